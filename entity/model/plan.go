package model

import (
	"strings"

	"github.com/hildam/printlab/entity/consts"
)

// Plan 研究计划
type Plan struct {
	MainQuery           string   `json:"main_query"`
	SubQueries          []string `json:"sub_queries"`
	SearchStrategies    []string `json:"search_strategies"`
	MaterialType        string   `json:"material_type,omitempty"`
	DefectType          string   `json:"defect_type,omitempty"`
	ParametersMentioned []string `json:"parameters_mentioned,omitempty"`
}

// FallbackPlan 规划失败时使用的退化计划
func FallbackPlan(query string) *Plan {
	return &Plan{
		MainQuery:        query,
		SubQueries:       []string{query},
		SearchStrategies: []string{consts.SourceWeb, consts.SourceKB},
	}
}

// HasStrategy 判断计划是否启用某个检索策略
func (p *Plan) HasStrategy(strategy string) bool {
	if p == nil {
		return false
	}
	for _, s := range p.SearchStrategies {
		if s == strategy {
			return true
		}
	}
	return false
}

// Clone 深拷贝计划，refine 基于副本追加子查询
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	cp := *p
	cp.SubQueries = append([]string(nil), p.SubQueries...)
	cp.SearchStrategies = append([]string(nil), p.SearchStrategies...)
	cp.ParametersMentioned = append([]string(nil), p.ParametersMentioned...)
	return &cp
}

// Normalize 规范化检索策略名并去重
func (p *Plan) Normalize() {
	seen := map[string]bool{}
	strategies := make([]string, 0, len(p.SearchStrategies))
	for _, s := range p.SearchStrategies {
		s = NormalizeStrategy(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		strategies = append(strategies, s)
	}
	p.SearchStrategies = strategies
	p.MaterialType = strings.TrimSpace(p.MaterialType)
	p.DefectType = strings.TrimSpace(p.DefectType)
}

// NormalizeStrategy 把策略别名映射到标准名字，未知策略返回空串
func NormalizeStrategy(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "web":
		return consts.SourceWeb
	case "kb", "knowledge-base", "knowledge_base", "knowledgebase":
		return consts.SourceKB
	case "paper", "papers", "academic":
		return consts.SourcePaper
	case "community", "reddit":
		return consts.SourceCommunity
	}
	return ""
}

// WebQueries 返回前 limit 个子查询，每轮网页检索都从头取
func (p *Plan) WebQueries(limit int) []string {
	if p == nil {
		return nil
	}
	if len(p.SubQueries) <= limit {
		return append([]string(nil), p.SubQueries...)
	}
	return append([]string(nil), p.SubQueries[:limit]...)
}
