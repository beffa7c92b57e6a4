package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// ErrMalformedReply 模型回复不是合法 JSON 或不满足 schema
var ErrMalformedReply = errors.New("malformed model reply")

// fencePattern 匹配 ```json ... ``` 或 ``` ... ``` 代码块
var fencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// Reply 模型结构化回复的解析结果：要么是通过校验的值，要么是降级默认值
type Reply[T any] struct {
	Value    T     // 解析结果或降级值
	Fallback bool  // 是否使用了降级值
	Err      error // 降级原因
}

// ParseReply 按 schema 严格校验模型回复，失败时返回 fallback 生成的默认值
func ParseReply[T any](text string, sch *openapi3.Schema, fallback func() T) Reply[T] {
	var v T
	if err := Decode(text, sch, &v); err != nil {
		return Reply[T]{Value: fallback(), Fallback: true, Err: err}
	}
	return Reply[T]{Value: v}
}

// Decode 提取回复中的 JSON，按 schema 校验后反序列化到 out
func Decode(text string, sch *openapi3.Schema, out any) error {
	raw := ExtractJSON(text)
	if raw == "" {
		return fmt.Errorf("%w: empty reply", ErrMalformedReply)
	}

	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if sch != nil {
		if err := sch.VisitJSON(doc); err != nil {
			return fmt.Errorf("%w: schema: %v", ErrMalformedReply, err)
		}
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	return nil
}

// ExtractJSON 去除 markdown 代码块包裹，返回其中的 JSON 文本
func ExtractJSON(text string) string {
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}

// ObjectSchema 构造对象 schema，required 为必填字段
func ObjectSchema(props map[string]*openapi3.Schema, required ...string) *openapi3.Schema {
	s := openapi3.NewObjectSchema()
	for name, prop := range props {
		s.WithProperty(name, prop)
	}
	s.Required = required
	return s
}

// StringList 字符串数组 schema
func StringList() *openapi3.Schema {
	return openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())
}

// NullableString 可为 null 的字符串 schema
func NullableString() *openapi3.Schema {
	return openapi3.NewStringSchema().WithNullable()
}

// Scalar 字符串或数值，可为 null
func Scalar() *openapi3.Schema {
	return &openapi3.Schema{
		Nullable: true,
		AnyOf: openapi3.SchemaRefs{
			openapi3.NewSchemaRef("", openapi3.NewStringSchema()),
			openapi3.NewSchemaRef("", openapi3.NewFloat64Schema()),
		},
	}
}
