package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/hildam/printlab/entity/consts"
	"github.com/hildam/printlab/entity/model"
	"github.com/hildam/printlab/repo/knowledge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResearcher 记录收到的问题并返回固定结果
type fakeResearcher struct {
	queries []string
	err     error
}

func (f *fakeResearcher) Research(ctx context.Context, query, sessionID string) (*model.State, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return &model.State{
		SessionID:     sessionID,
		FinalResponse: "answer for " + query,
		SourcesCited:  []string{"https://a"},
	}, nil
}

func (f *fakeResearcher) RunStreaming(ctx context.Context, query, sessionID string) <-chan model.Event {
	ch := make(chan model.Event, 2)
	ch <- model.Event{Type: consts.EventStart, SessionID: sessionID, Node: consts.Plan}
	ch <- model.Event{Type: consts.EventComplete, SessionID: sessionID, Response: "done"}
	close(ch)
	return ch
}

func newTestServer(t *testing.T, r Researcher) *server.Hertz {
	t.Helper()
	store, err := knowledge.Open("")
	require.NoError(t, err)
	srv := server.New()
	Register(srv, NewHandler(r, store))
	return srv
}

func doJSON(srv *server.Hertz, method, path, body string) *ut.ResponseRecorder {
	var b *ut.Body
	if body != "" {
		b = &ut.Body{Body: bytes.NewBufferString(body), Len: len(body)}
	}
	return ut.PerformRequest(srv.Engine, method, path, b, ut.Header{Key: "Content-Type", Value: "application/json"})
}

func TestEnhanceQuery(t *testing.T) {
	assert.Equal(t, "stringing", EnhanceQuery(model.ResearchRequest{Query: " stringing "}))
	assert.Equal(t,
		"[Material: PETG] stringing (current settings: nozzle_temp=240, print_speed=50)",
		EnhanceQuery(model.ResearchRequest{
			Query:         "stringing",
			Material:      "PETG",
			CurrentParams: map[string]any{"print_speed": 50, "nozzle_temp": 240},
		}))
}

func TestRootAndHealth(t *testing.T) {
	srv := newTestServer(t, &fakeResearcher{})

	resp := doJSON(srv, "GET", "/", "").Result()
	assert.Equal(t, 200, resp.StatusCode())
	var root map[string]string
	require.NoError(t, json.Unmarshal(resp.Body(), &root))
	assert.Equal(t, "running", root["status"])
	assert.Equal(t, consts.Version, root["version"])

	resp = doJSON(srv, "GET", "/health", "").Result()
	assert.JSONEq(t, `{"status":"healthy"}`, string(resp.Body()))
}

func TestResearch(t *testing.T) {
	r := &fakeResearcher{}
	srv := newTestServer(t, r)

	resp := doJSON(srv, "POST", "/research", `{"query":"stringing","material":"PETG","session_id":"s1"}`).Result()
	require.Equal(t, 200, resp.StatusCode())

	var out model.ResearchResponse
	require.NoError(t, json.Unmarshal(resp.Body(), &out))
	assert.True(t, out.Success)
	assert.Equal(t, "s1", out.SessionID)
	assert.Equal(t, "answer for [Material: PETG] stringing", out.Response)
	assert.Equal(t, []string{"https://a"}, out.Sources)
}

func TestResearch_BadRequest(t *testing.T) {
	r := &fakeResearcher{}
	srv := newTestServer(t, r)

	assert.Equal(t, 400, doJSON(srv, "POST", "/research", `{"query":"  "}`).Result().StatusCode())
	assert.Equal(t, 400, doJSON(srv, "POST", "/research/stream", `{}`).Result().StatusCode())
	assert.Empty(t, r.queries)
}

func TestResearch_Failure(t *testing.T) {
	srv := newTestServer(t, &fakeResearcher{err: errors.New("graph broken")})

	resp := doJSON(srv, "POST", "/research", `{"query":"q"}`).Result()
	assert.Equal(t, 500, resp.StatusCode())
	var out model.ResearchResponse
	require.NoError(t, json.Unmarshal(resp.Body(), &out))
	assert.False(t, out.Success)
	assert.Equal(t, "graph broken", out.Error)
	assert.NotEmpty(t, out.SessionID)
}

func TestForward(t *testing.T) {
	ch := (&fakeResearcher{}).RunStreaming(context.Background(), "q", "s1")

	var types []string
	err := Forward(ch, func(id, event string, data []byte) error {
		types = append(types, event)
		var ev model.Event
		require.NoError(t, json.Unmarshal(data, &ev))
		assert.Equal(t, event, ev.Type)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{consts.EventStart, consts.EventComplete}, types)
}

func TestForward_WriteError(t *testing.T) {
	ch := (&fakeResearcher{}).RunStreaming(context.Background(), "q", "s1")

	calls := 0
	err := Forward(ch, func(id, event string, data []byte) error {
		calls++
		return errors.New("client gone")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
	_, open := <-ch
	assert.False(t, open)
}

func TestGuides(t *testing.T) {
	srv := newTestServer(t, &fakeResearcher{})

	var materials []string
	require.NoError(t, json.Unmarshal(doJSON(srv, "GET", "/materials", "").Result().Body(), &materials))
	assert.Equal(t, []string{"ABS", "PETG", "PLA", "TPU"}, materials)

	var guide model.GuideResponse
	require.NoError(t, json.Unmarshal(doJSON(srv, "GET", "/materials/petg", "").Result().Body(), &guide))
	assert.True(t, guide.Found)
	assert.Equal(t, "PETG", guide.Material)
	assert.Contains(t, guide.Guide, "Nozzle temperature")

	guide = model.GuideResponse{}
	require.NoError(t, json.Unmarshal(doJSON(srv, "GET", "/defects/oozing", "").Result().Body(), &guide))
	assert.True(t, guide.Found)
	assert.Equal(t, "oozing", guide.Defect)

	guide = model.GuideResponse{}
	require.NoError(t, json.Unmarshal(doJSON(srv, "GET", "/materials/nylon", "").Result().Body(), &guide))
	assert.False(t, guide.Found)

	var defects []string
	require.NoError(t, json.Unmarshal(doJSON(srv, "GET", "/defects", "").Result().Body(), &defects))
	assert.Len(t, defects, 6)
}

func TestExperiments(t *testing.T) {
	srv := newTestServer(t, &fakeResearcher{})

	resp := doJSON(srv, "POST", "/experiments", `{"material":{"type":"PLA"},"result":{"success":true,"defects":["warping"]}}`).Result()
	require.Equal(t, 200, resp.StatusCode())
	var out model.ExperimentResponse
	require.NoError(t, json.Unmarshal(resp.Body(), &out))
	assert.True(t, out.Success)
	assert.NotEmpty(t, out.ExperimentID)

	assert.Equal(t, 400, doJSON(srv, "POST", "/experiments", `{"material":{}}`).Result().StatusCode())

	var list []model.Experiment
	require.NoError(t, json.Unmarshal(doJSON(srv, "GET", "/experiments", "").Result().Body(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, out.ExperimentID, list[0].ExperimentID)
}
