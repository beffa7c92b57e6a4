package model

import (
	"github.com/cloudwego/eino/schema"
)

func init() {
	// checkpoint 序列化需要注册状态类型
	schema.RegisterName[*State]("printlab_research_state")
}

type State struct {
	// 用户输入的信息
	SessionID     string `json:"session_id,omitempty"`
	OriginalQuery string `json:"original_query"`

	// 子图共享变量
	Goto            string      `json:"goto,omitempty"`
	Plan            *Plan       `json:"plan,omitempty"`
	Evidence        EvidenceSet `json:"evidence"`
	IterationCount  int         `json:"iteration_count"`
	IsSufficient    bool        `json:"is_sufficient"`
	ConfidenceScore float64     `json:"confidence_score"`
	MissingInfo     []string    `json:"missing_info,omitempty"`

	// 推理结果
	SynthesizedKnowledge string           `json:"synthesized_knowledge,omitempty"`
	Recommendations      []Recommendation `json:"recommendations,omitempty"`

	// 最终输出
	FinalResponse string   `json:"final_response,omitempty"`
	SourcesCited  []string `json:"sources_cited,omitempty"`

	// 元数据
	Errors []string `json:"errors,omitempty"`

	// 全局配置变量
	MaxIterations      int `json:"max_iterations,omitempty"`
	SufficientDocCount int `json:"sufficient_doc_count,omitempty"`
}

// AddError 记录非致命错误
func (s *State) AddError(msg string) {
	s.Errors = append(s.Errors, msg)
}
