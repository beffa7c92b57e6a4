package callback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/hildam/printlab/entity/consts"
	"github.com/hildam/printlab/entity/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepCallback_OnlyStepsEmit(t *testing.T) {
	out := make(chan model.Event, 4)
	cb := &StepCallback{ID: "s1", Out: out}
	ctx := context.Background()

	cb.OnStart(ctx, &callbacks.RunInfo{Name: consts.Plan}, "q")
	cb.OnStart(ctx, &callbacks.RunInfo{Name: "load"}, "q")
	cb.OnStart(ctx, &callbacks.RunInfo{Name: consts.GraphName}, "q")
	cb.OnStart(ctx, nil, "q")
	cb.OnEnd(ctx, &callbacks.RunInfo{Name: consts.Plan}, "gather")
	cb.OnError(ctx, &callbacks.RunInfo{Name: consts.Gather}, errors.New("boom"))

	require.Len(t, out, 1)
	ev := <-out
	assert.Equal(t, model.Event{Type: consts.EventStart, SessionID: "s1", Node: consts.Plan}, ev)
}

func TestStepCallback_CancelledContextDoesNotBlock(t *testing.T) {
	cb := &StepCallback{ID: "s1", Out: make(chan model.Event)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		cb.OnStart(ctx, &callbacks.RunInfo{Name: consts.Evaluate}, "")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("OnStart blocked on a cancelled context")
	}
}

func TestStepCallback_NilOut(t *testing.T) {
	cb := &StepCallback{ID: "s1"}
	assert.NotPanics(t, func() {
		cb.OnStart(context.Background(), &callbacks.RunInfo{Name: consts.Output}, "")
	})
}
