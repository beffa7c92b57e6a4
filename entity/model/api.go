package model

// ResearchRequest 研究请求
type ResearchRequest struct {
	Query         string         `json:"query"`
	Material      string         `json:"material,omitempty"`
	CurrentParams map[string]any `json:"current_params,omitempty"`
	SessionID     string         `json:"session_id,omitempty"`
}

// ResearchResponse 研究响应
type ResearchResponse struct {
	Response  string   `json:"response"`
	Sources   []string `json:"sources"`
	SessionID string   `json:"session_id"`
	Success   bool     `json:"success"`
	Error     string   `json:"error,omitempty"`
}

// GuideResponse 材料 / 缺陷指南查询响应
type GuideResponse struct {
	Material string `json:"material,omitempty"`
	Defect   string `json:"defect,omitempty"`
	Guide    string `json:"guide,omitempty"`
	Found    bool   `json:"found"`
}

// ExperimentResponse 实验记录写入响应
type ExperimentResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	ExperimentID string `json:"experiment_id,omitempty"`
}
