package refiner

import (
	"context"
	"errors"
	"testing"

	"github.com/hildam/printlab/agent/agenttest"
	"github.com/hildam/printlab/entity/consts"
	"github.com/hildam/printlab/entity/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func basePlan() *model.Plan {
	return &model.Plan{
		MainQuery:        "PETG stringing",
		SubQueries:       []string{"a", "b"},
		SearchStrategies: []string{consts.SourceWeb, consts.SourcePaper},
		MaterialType:     "PETG",
	}
}

func TestExtend(t *testing.T) {
	plan := basePlan()
	next := Extend(plan, `{"new_queries": ["c", "  ", "d"]}`)

	assert.Equal(t, []string{"a", "b", "c", "d"}, next.SubQueries)
	assert.Equal(t, plan.SearchStrategies, next.SearchStrategies)
	assert.Equal(t, "PETG", next.MaterialType)
	// 原计划不被修改
	assert.Equal(t, []string{"a", "b"}, plan.SubQueries)
}

func TestExtend_Failure(t *testing.T) {
	plan := basePlan()
	assert.Same(t, plan, Extend(plan, "nonsense"))
	assert.Same(t, plan, Extend(plan, `{"queries": ["c"]}`))
	assert.Nil(t, Extend(nil, `{"new_queries": ["c"]}`))
}

func TestRefiner_Node(t *testing.T) {
	reasoner := &agenttest.Reasoner{Replies: map[string][]string{
		consts.Refine: {"```json\n{\"new_queries\": [\"PETG retraction 6mm\"]}\n```"},
	}}
	state := &model.State{OriginalQuery: "q", Plan: basePlan(), MissingInfo: []string{"retraction", "temperature"}}

	out, err := agenttest.RunNode(context.Background(), NewRefiner(reasoner), state)
	require.NoError(t, err)
	assert.Equal(t, consts.WebSearch, out)
	assert.Equal(t, []string{"a", "b", "PETG retraction 6mm"}, state.Plan.SubQueries)

	prompt := reasoner.Prompts(consts.Refine)[0]
	assert.Contains(t, prompt, "Missing information: retraction, temperature")
	assert.Contains(t, prompt, "Current queries: a; b")
}

func TestRefiner_TransportFailure(t *testing.T) {
	reasoner := &agenttest.Reasoner{Errs: map[string]error{consts.Refine: errors.New("down")}}
	state := &model.State{OriginalQuery: "q", Plan: basePlan()}

	out, err := agenttest.RunNode(context.Background(), NewRefiner(reasoner), state)
	require.NoError(t, err)
	assert.Equal(t, consts.WebSearch, out)
	assert.Equal(t, []string{"a", "b"}, state.Plan.SubQueries)
	assert.Len(t, state.Errors, 1)
}
