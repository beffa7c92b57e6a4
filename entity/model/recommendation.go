package model

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Recommendation 参数推荐
type Recommendation struct {
	Parameter        string     `json:"parameter"`
	CurrentValue     FlexString `json:"current_value,omitempty"`
	RecommendedValue FlexString `json:"recommended_value"`
	Confidence       float64    `json:"confidence"`
	Sources          []string   `json:"sources,omitempty"`
	Reasoning        string     `json:"reasoning"`
}

// ClampConfidence 把置信度限制在 [0,1]
func ClampConfidence(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// FlexString 兼容模型把数值写成 JSON number 的情况
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(strconv.FormatFloat(n, 'f', -1, 64))
	return nil
}

func (f FlexString) String() string {
	return string(f)
}
