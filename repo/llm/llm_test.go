package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/hildam/printlab/entity/conf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChatModel 按预设返回回复的模型
type fakeChatModel struct {
	reply  string
	err    error
	delay  time.Duration
	prompt string
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	if len(input) > 0 {
		f.prompt = input[0].Content
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func TestChatReasoner_Complete(t *testing.T) {
	cm := &fakeChatModel{reply: `{"ok":true}`}
	r := NewChatReasoner(cm, time.Second)

	text, err := r.Complete(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, text)
	assert.Equal(t, "hello", cm.prompt)
}

func TestChatReasoner_Failures(t *testing.T) {
	cases := map[string]*fakeChatModel{
		"transport": {err: errors.New("connection refused")},
		"empty":     {reply: "  "},
		"timeout":   {reply: "late", delay: 200 * time.Millisecond},
	}
	for name, cm := range cases {
		t.Run(name, func(t *testing.T) {
			r := NewChatReasoner(cm, 20*time.Millisecond)
			_, err := r.Complete(context.Background(), "q")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrReasoning))
		})
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(context.Background(), conf.ModelConfig{Provider: "llama"}, time.Second)
	assert.Error(t, err)
}
