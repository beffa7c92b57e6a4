package llm

import (
	"errors"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type verdict struct {
	IsSufficient bool     `json:"is_sufficient"`
	Confidence   *float64 `json:"confidence"`
	Missing      []string `json:"missing"`
}

func verdictSchema() *openapi3.Schema {
	return ObjectSchema(map[string]*openapi3.Schema{
		"is_sufficient": openapi3.NewBoolSchema(),
		"confidence":    openapi3.NewFloat64Schema(),
		"missing":       StringList(),
	}, "is_sufficient")
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare", ` {"a":1} `, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "here:\n```\n{\"a\":2}\n```\nthanks", `{"a":2}`},
		{"empty", "   ", ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, ExtractJSON(c.in))
		})
	}
}

func TestDecode_Valid(t *testing.T) {
	var v verdict
	err := Decode("```json\n{\"is_sufficient\": true, \"confidence\": 0.7}\n```", verdictSchema(), &v)
	require.NoError(t, err)
	assert.True(t, v.IsSufficient)
	require.NotNil(t, v.Confidence)
	assert.InDelta(t, 0.7, *v.Confidence, 1e-9)
	assert.Empty(t, v.Missing)
}

func TestDecode_Rejects(t *testing.T) {
	cases := map[string]string{
		"not json":         "I think it is sufficient",
		"missing required": `{"confidence": 0.4}`,
		"wrong type":       `{"is_sufficient": "yes"}`,
		"empty":            "",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			var v verdict
			err := Decode(in, verdictSchema(), &v)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedReply))
		})
	}
}

func TestParseReply_Fallback(t *testing.T) {
	fallback := func() verdict { return verdict{IsSufficient: true} }

	r := ParseReply("garbage", verdictSchema(), fallback)
	assert.True(t, r.Fallback)
	assert.Error(t, r.Err)
	assert.True(t, r.Value.IsSufficient)

	r = ParseReply(`{"is_sufficient": false, "missing": ["bed temp"]}`, verdictSchema(), fallback)
	assert.False(t, r.Fallback)
	assert.NoError(t, r.Err)
	assert.Equal(t, []string{"bed temp"}, r.Value.Missing)
}

func TestScalarAcceptsStringNumberNull(t *testing.T) {
	s := ObjectSchema(map[string]*openapi3.Schema{"v": Scalar()}, "v")
	for _, in := range []string{`{"v":"210"}`, `{"v":210}`, `{"v":null}`} {
		var out map[string]any
		assert.NoError(t, Decode(in, s, &out), in)
	}
	var out map[string]any
	assert.Error(t, Decode(`{"v":[1]}`, s, &out))
}
