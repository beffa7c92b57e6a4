package knowledge

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/HildaM/logs/slog"
	"github.com/google/uuid"
	"github.com/hildam/printlab/entity/model"
)

// ErrInvalidExperiment 实验记录缺少必填字段
var ErrInvalidExperiment = errors.New("invalid experiment")

// Store 内置指南加实验记录，实验记录以单个 JSON 数组持久化
type Store struct {
	path string // 实验记录文件，为空时只保存在内存

	mu          sync.RWMutex
	experiments []model.Experiment
}

// Open 加载实验记录，文件不存在视为空列表
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("Open debug, experiments file %s not found, start empty", path)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read experiments: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.experiments); err != nil {
		return nil, fmt.Errorf("decode experiments %s: %w", path, err)
	}
	return s, nil
}

// MaterialGuide 材料名大小写不敏感
func (s *Store) MaterialGuide(name string) (string, bool) {
	guide, ok := materialGuides[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return "", false
	}
	return formatMaterial(guide), true
}

// DefectSolution 缺陷名先规范化再查别名表
func (s *Store) DefectSolution(name string) (string, bool) {
	guide, ok := defectGuides[NormalizeDefect(name)]
	if !ok {
		return "", false
	}
	return formatDefect(guide), true
}

// NormalizeDefect 小写、空格转下划线、映射别名
func NormalizeDefect(name string) string {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
	if alias, ok := defectAliases[key]; ok {
		return alias
	}
	return key
}

// SimilarExperiments 材料相同 +2，缺陷命中 +3，只保留得分为正的记录，同分保持插入顺序
func (s *Store) SimilarExperiments(material, defect string, limit int) []model.Experiment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		score int
		exp   model.Experiment
	}
	var hits []scored
	for _, exp := range s.experiments {
		score := 0
		if material != "" && strings.EqualFold(exp.Material.Type, material) {
			score += 2
		}
		if defect != "" {
			for _, d := range exp.Result.Defects {
				if strings.EqualFold(d, defect) {
					score += 3
					break
				}
			}
		}
		if score > 0 {
			hits = append(hits, scored{score: score, exp: exp})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})
	if limit >= 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	out := make([]model.Experiment, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.exp)
	}
	return out
}

// AddExperiment 追加实验记录并整体重写文件，写入失败时回滚内存
func (s *Store) AddExperiment(exp model.Experiment) (model.Experiment, error) {
	if strings.TrimSpace(exp.Material.Type) == "" {
		return exp, fmt.Errorf("%w: material type is required", ErrInvalidExperiment)
	}
	if exp.ExperimentID == "" {
		exp.ExperimentID = uuid.NewString()
	}
	if exp.CreatedAt.IsZero() {
		exp.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.experiments = append(s.experiments, exp)
	if err := s.persist(); err != nil {
		s.experiments = s.experiments[:len(s.experiments)-1]
		slog.Error("AddExperiment failed, persist err = %+v", err)
		return exp, err
	}
	return exp, nil
}

// persist 先写临时文件再改名，调用方持有写锁
func (s *Store) persist() error {
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(s.experiments, "", "  ")
	if err != nil {
		return fmt.Errorf("encode experiments: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create experiments dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".experiments-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write experiments: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close experiments: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace experiments: %w", err)
	}
	return nil
}

// Materials 已收录的材料名
func (s *Store) Materials() []string {
	return sortedKeys(materialGuides)
}

// Defects 已收录的缺陷名
func (s *Store) Defects() []string {
	return sortedKeys(defectGuides)
}

// Experiments 全部实验记录的副本
func (s *Store) Experiments() []model.Experiment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Experiment(nil), s.experiments...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatMaterial(g MaterialGuide) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Material: %s\n\n", g.Name)
	b.WriteString("Recommended settings:\n")
	fmt.Fprintf(&b, "- Nozzle temperature: %g°C (range: %g-%g°C)\n", g.NozzleTemp.Optimal, g.NozzleTemp.Min, g.NozzleTemp.Max)
	fmt.Fprintf(&b, "- Bed temperature: %g°C (range: %g-%g°C)\n", g.BedTemp.Optimal, g.BedTemp.Min, g.BedTemp.Max)
	fmt.Fprintf(&b, "- Print speed: %gmm/s (range: %g-%gmm/s)\n", g.PrintSpeed.Optimal, g.PrintSpeed.Min, g.PrintSpeed.Max)
	fmt.Fprintf(&b, "- Retraction: %gmm @ %gmm/s\n", g.Retraction.Distance, g.Retraction.Speed)
	fmt.Fprintf(&b, "- Fan speed: %d%%\n\n", g.FanSpeed)
	b.WriteString("Tips:\n")
	for _, tip := range g.Tips {
		fmt.Fprintf(&b, "- %s\n", tip)
	}
	return b.String()
}

func formatDefect(g DefectGuide) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Defect: %s\n", g.Name)
	fmt.Fprintf(&b, "Description: %s\n\n", g.Description)
	b.WriteString("Causes:\n")
	for _, c := range g.Causes {
		fmt.Fprintf(&b, "- %s\n", c)
	}
	b.WriteString("\nSolutions (by priority):\n")
	solutions := append([]Solution(nil), g.Solutions...)
	sort.SliceStable(solutions, func(i, j int) bool {
		return solutions[i].Priority < solutions[j].Priority
	})
	for _, sol := range solutions {
		fmt.Fprintf(&b, "%d. %s\n", sol.Priority, sol.Action)
	}
	return b.String()
}
