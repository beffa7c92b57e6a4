package evaluator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/hildam/printlab/agent/agenttest"
	"github.com/hildam/printlab/entity/consts"
	"github.com/hildam/printlab/entity/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evidence(n int) model.EvidenceSet {
	var set model.EvidenceSet
	for i := 0; i < n; i++ {
		set.Web = append(set.Web, model.Evidence{
			Source:  consts.SourceWeb,
			URL:     fmt.Sprintf("https://example.com/%d", i),
			Title:   fmt.Sprintf("doc %d", i),
			Content: strings.Repeat("x", 400),
		})
	}
	return set
}

func TestJudge(t *testing.T) {
	cases := []struct {
		name  string
		reply string
		count int
		want  Verdict
	}{
		{"no evidence", `{"is_sufficient": true}`, 0, Verdict{false, 0, []string{"no results"}}},
		{"full reply", `{"is_sufficient": false, "confidence": 0.4, "missing": ["bed temp"]}`, 3, Verdict{false, 0.4, []string{"bed temp"}}},
		{"defaults", `{"is_sufficient": true}`, 3, Verdict{true, 0.5, []string{}}},
		{"clamped", `{"is_sufficient": true, "confidence": 1.7}`, 3, Verdict{true, 1, []string{}}},
		{"fallback few", `not json`, 3, Verdict{false, 0.3, []string{}}},
		{"fallback many", ``, 12, Verdict{true, 0.8, []string{}}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Judge(c.reply, c.count, 5)
			assert.Equal(t, c.want.IsSufficient, got.IsSufficient)
			assert.InDelta(t, c.want.Confidence, got.Confidence, 1e-9)
			assert.Equal(t, c.want.Missing, got.Missing)
		})
	}
}

func TestJudge_ConfigurableThreshold(t *testing.T) {
	assert.True(t, Judge("", 2, 2).IsSufficient)
	assert.False(t, Judge("", 4, 0).IsSufficient)
	assert.True(t, Judge("", 5, 0).IsSufficient)
}

func TestDecide(t *testing.T) {
	assert.Equal(t, consts.Synthesize, Decide(&model.State{IsSufficient: true, IterationCount: 1}))
	assert.Equal(t, consts.Refine, Decide(&model.State{IterationCount: 2}))
	assert.Equal(t, consts.Synthesize, Decide(&model.State{IterationCount: 3}))
	assert.Equal(t, consts.Refine, Decide(&model.State{IterationCount: 3, MaxIterations: 5}))
}

func TestSummary(t *testing.T) {
	s := Summary(evidence(12).All())
	assert.Equal(t, 10, strings.Count(s, "[web] doc"))
	assert.Contains(t, s, "[web] doc 0\n"+strings.Repeat("x", 300)+"...")
	assert.NotContains(t, s, "doc 10")
}

func TestEvaluator_Node(t *testing.T) {
	reasoner := &agenttest.Reasoner{Replies: map[string][]string{
		consts.Evaluate: {`{"is_sufficient": true, "confidence": 0.9}`},
	}}
	state := &model.State{OriginalQuery: "q", Evidence: evidence(2), MaxIterations: 3}

	out, err := agenttest.RunNode(context.Background(), NewEvaluator(reasoner), state)
	require.NoError(t, err)
	assert.Equal(t, consts.Synthesize, out)
	assert.Equal(t, 1, state.IterationCount)
	assert.InDelta(t, 0.9, state.ConfidenceScore, 1e-9)
	require.Len(t, reasoner.Prompts(consts.Evaluate), 1)
	assert.Contains(t, reasoner.Prompts(consts.Evaluate)[0], "Collected information (2 items)")
}

func TestEvaluator_NoEvidenceSkipsModel(t *testing.T) {
	reasoner := &agenttest.Reasoner{}
	state := &model.State{OriginalQuery: "q", IterationCount: 1}

	out, err := agenttest.RunNode(context.Background(), NewEvaluator(reasoner), state)
	require.NoError(t, err)
	assert.Equal(t, consts.Refine, out)
	assert.Equal(t, 0, reasoner.Calls(consts.Evaluate))
	assert.False(t, state.IsSufficient)
	assert.Equal(t, 0.0, state.ConfidenceScore)
	assert.Equal(t, []string{"no results"}, state.MissingInfo)
	assert.Equal(t, 2, state.IterationCount)
}

func TestEvaluator_TransportFailure(t *testing.T) {
	reasoner := &agenttest.Reasoner{Errs: map[string]error{consts.Evaluate: errors.New("503")}}
	state := &model.State{OriginalQuery: "q", Evidence: evidence(6)}

	out, err := agenttest.RunNode(context.Background(), NewEvaluator(reasoner), state)
	require.NoError(t, err)
	assert.Equal(t, consts.Synthesize, out)
	assert.True(t, state.IsSufficient)
	assert.InDelta(t, 0.6, state.ConfidenceScore, 1e-9)
	assert.Len(t, state.Errors, 1)
}
