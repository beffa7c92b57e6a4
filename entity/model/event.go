package model

// Event 流式研究事件
type Event struct {
	Type      string   `json:"type"`                 // start / complete / error
	SessionID string   `json:"session_id,omitempty"` // 会话ID
	Node      string   `json:"node,omitempty"`       // 开始执行的节点
	Response  string   `json:"response,omitempty"`   // 最终回答
	Sources   []string `json:"sources,omitempty"`    // 引用来源
	Message   string   `json:"message,omitempty"`    // 错误信息
}
