package model

import "time"

// Experiment 用户提交的打印实验记录
type Experiment struct {
	ExperimentID string             `json:"experiment_id"`
	Printer      string             `json:"printer,omitempty"`
	Material     ExperimentMaterial `json:"material"`
	Parameters   map[string]any     `json:"parameters,omitempty"`
	Result       ExperimentResult   `json:"result"`
	CreatedAt    time.Time          `json:"created_at,omitempty"`
}

// ExperimentMaterial 实验使用的耗材
type ExperimentMaterial struct {
	Type  string `json:"type"`
	Brand string `json:"brand,omitempty"`
	Color string `json:"color,omitempty"`
}

// ExperimentResult 实验结果
type ExperimentResult struct {
	Success bool     `json:"success"`
	Quality int      `json:"quality,omitempty"` // 1-5 分
	Defects []string `json:"defects,omitempty"`
	Notes   string   `json:"notes,omitempty"`
}
