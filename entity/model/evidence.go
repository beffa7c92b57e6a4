package model

import (
	"sort"
	"time"

	"github.com/hildam/printlab/entity/consts"
)

// Evidence 单条证据，创建后不再修改
type Evidence struct {
	Source         string    `json:"source"`
	URL            string    `json:"url"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	RelevanceScore float64   `json:"relevance_score"`
	Timestamp      time.Time `json:"timestamp"`
}

// Document 检索服务返回的文档
type Document struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// ToEvidence 把检索文档转换为证据
func (d Document) ToEvidence(source string) Evidence {
	return Evidence{
		Source:         source,
		URL:            d.URL,
		Title:          d.Title,
		Content:        d.Content,
		RelevanceScore: d.Score,
		Timestamp:      time.Now(),
	}
}

// EvidenceSet 四路证据集合，只追加，同一集合内 URL 唯一
type EvidenceSet struct {
	Web       []Evidence `json:"web"`
	KB        []Evidence `json:"kb"`
	Paper     []Evidence `json:"paper"`
	Community []Evidence `json:"community"`
}

// Merge 按来源合并证据，已存在相同 URL 的记录会被跳过，返回实际新增条数
func (e *EvidenceSet) Merge(source string, items []Evidence) int {
	target := e.collection(source)
	if target == nil {
		return 0
	}
	seen := make(map[string]struct{}, len(*target)+len(items))
	for _, ev := range *target {
		seen[ev.URL] = struct{}{}
	}
	added := 0
	for _, ev := range items {
		if _, ok := seen[ev.URL]; ok {
			continue
		}
		seen[ev.URL] = struct{}{}
		*target = append(*target, ev)
		added++
	}
	return added
}

// collection 返回来源对应的集合
func (e *EvidenceSet) collection(source string) *[]Evidence {
	switch source {
	case consts.SourceWeb:
		return &e.Web
	case consts.SourceKB:
		return &e.KB
	case consts.SourcePaper:
		return &e.Paper
	case consts.SourceCommunity:
		return &e.Community
	}
	return nil
}

// All 按 web、kb、paper、community 的顺序拼接全部证据
func (e *EvidenceSet) All() []Evidence {
	out := make([]Evidence, 0, e.Len())
	out = append(out, e.Web...)
	out = append(out, e.KB...)
	out = append(out, e.Paper...)
	out = append(out, e.Community...)
	return out
}

func (e *EvidenceSet) Len() int {
	return len(e.Web) + len(e.KB) + len(e.Paper) + len(e.Community)
}

// SortByRelevance 按相关度降序稳定排序，分数相同保持原有顺序
func SortByRelevance(items []Evidence) []Evidence {
	sorted := append([]Evidence(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RelevanceScore > sorted[j].RelevanceScore
	})
	return sorted
}
