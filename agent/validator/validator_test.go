package validator

import (
	"context"
	"testing"

	"github.com/hildam/printlab/agent/agenttest"
	"github.com/hildam/printlab/entity/consts"
	"github.com/hildam/printlab/entity/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValue(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"225°C", 225, true},
		{" 45 mm/s ", 45, true},
		{"0.2mm", 0.2, true},
		{"100%", 100, true},
		{"220-240", 220, true},
		{"5 - 7 mm", 5, true},
		{"about 220", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseValue(c.raw)
		assert.Equal(t, c.ok, ok, c.raw)
		assert.Equal(t, c.want, got, c.raw)
	}
}

func TestCheck_OutOfRange(t *testing.T) {
	rec := Check(model.Recommendation{
		Parameter:        "Nozzle Temperature",
		RecommendedValue: "350°C",
		Confidence:       0.8,
		Reasoning:        "hotter",
	})
	assert.Equal(t, 0.4, rec.Confidence)
	assert.Equal(t, "hotter (warning: outside typical range 180-300)", rec.Reasoning)

	rec = Check(model.Recommendation{Parameter: "layer_height", RecommendedValue: "0.8", Confidence: 0.6})
	assert.Equal(t, 0.3, rec.Confidence)
	assert.Contains(t, rec.Reasoning, "0.05-0.5")
}

func TestCheck_Unchanged(t *testing.T) {
	for _, rec := range []model.Recommendation{
		{Parameter: "nozzle temperature", RecommendedValue: "225", Confidence: 0.8, Reasoning: "r"},
		{Parameter: "fan speed", RecommendedValue: "500", Confidence: 0.8, Reasoning: "r"},
		{Parameter: "bed_temp", RecommendedValue: "warm", Confidence: 0.8, Reasoning: "r"},
		{Parameter: "retraction speed", RecommendedValue: "10", Confidence: 0.8, Reasoning: "r"},
	} {
		assert.Equal(t, rec, Check(rec), rec.Parameter)
	}
}

func TestValidate_Properties(t *testing.T) {
	recs := []model.Recommendation{
		{Parameter: "print speed", RecommendedValue: "500", Confidence: 0.9},
		{Parameter: "print speed", RecommendedValue: "50", Confidence: 0.9},
		{Parameter: "unknown", RecommendedValue: "x", Confidence: 0.2},
	}
	out := Validate(recs)
	require.Len(t, out, len(recs))
	for i := range recs {
		assert.Equal(t, recs[i].Parameter, out[i].Parameter)
		assert.LessOrEqual(t, out[i].Confidence, recs[i].Confidence)
	}
	// 输入不被修改
	assert.Equal(t, 0.9, recs[0].Confidence)
	assert.Nil(t, Validate(nil))
}

func TestValidator_Node(t *testing.T) {
	state := &model.State{Recommendations: []model.Recommendation{
		{Parameter: "bed temperature", RecommendedValue: "130°C", Confidence: 1},
	}}
	out, err := agenttest.RunNode(context.Background(), NewValidator(), state)
	require.NoError(t, err)
	assert.Equal(t, consts.Output, out)
	assert.Equal(t, 0.5, state.Recommendations[0].Confidence)
}
