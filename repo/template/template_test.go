package template

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPromptTemplate_Builtin(t *testing.T) {
	for _, name := range []string{Planner, Evaluator, Refiner, Synthesizer, FinalResponse} {
		tpl, err := GetPromptTemplate(context.Background(), name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, tpl, name)
	}
}

func TestGetPromptTemplate_Unknown(t *testing.T) {
	_, err := GetPromptTemplate(context.Background(), "nope")
	assert.Error(t, err)
}

func TestRender_Planner(t *testing.T) {
	out, err := Render(context.Background(), Planner, map[string]any{"query": "PETG stringing fix"})
	require.NoError(t, err)
	assert.Contains(t, out, "Question to analyze: PETG stringing fix")
	assert.Contains(t, out, `"main_query"`)
}

func TestRender_FinalResponse(t *testing.T) {
	out, err := Render(context.Background(), FinalResponse, map[string]any{
		"synthesis":   "Lower the nozzle temperature.",
		"confidence":  "72%",
		"table":       "| a | b |",
		"details":     "**nozzle_temp**: hot",
		"tips":        "- dry filament",
		"sources":     "[1] https://example.com/a?x=1&y=2",
		"num_sources": 4,
		"iterations":  2,
	})
	require.NoError(t, err)
	assert.Contains(t, out, "## Problem Analysis\n\nLower the nozzle temperature.")
	assert.Contains(t, out, "overall confidence: 72%")
	assert.Contains(t, out, "https://example.com/a?x=1&y=2")
	assert.Contains(t, out, "generated from 4 sources")
	assert.Contains(t, out, "2 search iterations")
}
