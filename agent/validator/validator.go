package validator

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/HildaM/logs/slog"
	"github.com/cloudwego/eino/compose"
	"github.com/hildam/printlab/entity/consts"
	"github.com/hildam/printlab/entity/model"
)

// Range 参数的常见取值范围
type Range struct {
	Min float64
	Max float64
}

// knownRanges 参数常见范围，同时收录可读名与机器名
var knownRanges = map[string]Range{
	"nozzle temperature":  {180, 300},
	"nozzle_temp":         {180, 300},
	"bed temperature":     {40, 120},
	"bed_temp":            {40, 120},
	"print speed":         {10, 200},
	"print_speed":         {10, 200},
	"layer height":        {0.05, 0.5},
	"layer_height":        {0.05, 0.5},
	"retraction distance": {0.5, 10},
	"retraction_distance": {0.5, 10},
	"retraction speed":    {10, 100},
	"retraction_speed":    {10, 100},
}

// unitReplacer 去除单位，mm/s 必须先于 mm
var unitReplacer = strings.NewReplacer("°C", "", "mm/s", "", "mm", "", "%", "")

// validatorImpl 校验者，对超出常见范围的推荐降低置信度
type validatorImpl struct{}

// NewValidator 创建实例
func NewValidator() *validatorImpl {
	return &validatorImpl{}
}

// NewGraphNode 创建任务图
func (v *validatorImpl) NewGraphNode(ctx context.Context) (key string, node compose.AnyGraph, nameOption compose.GraphAddNodeOpt) {
	graph := compose.NewGraph[string, string]()

	_ = graph.AddLambdaNode("check", compose.InvokableLambdaWithOption(validate))
	_ = graph.AddEdge(compose.START, "check")
	_ = graph.AddEdge("check", compose.END)

	return consts.Validate, graph, compose.WithNodeName(consts.Validate)
}

func validate(ctx context.Context, input string, opts ...any) (output string, err error) {
	err = compose.ProcessState[*model.State](ctx, func(ctx context.Context, state *model.State) error {
		defer func() {
			output = state.Goto
		}()

		state.Recommendations = Validate(state.Recommendations)
		state.Goto = consts.Output
		return nil
	})
	return output, err
}

// Validate 返回校验后的推荐副本，条数与顺序不变
func Validate(recs []model.Recommendation) []model.Recommendation {
	if recs == nil {
		return nil
	}
	out := make([]model.Recommendation, len(recs))
	for i, rec := range recs {
		out[i] = Check(rec)
	}
	return out
}

// Check 校验单条推荐，未知参数或无法解析的值原样返回
func Check(rec model.Recommendation) model.Recommendation {
	r, ok := knownRanges[strings.ToLower(strings.TrimSpace(rec.Parameter))]
	if !ok {
		return rec
	}
	value, ok := ParseValue(string(rec.RecommendedValue))
	if !ok {
		slog.Debug("Check debug, unparsable value %q for %s", rec.RecommendedValue, rec.Parameter)
		return rec
	}
	if value >= r.Min && value <= r.Max {
		return rec
	}

	rec.Confidence *= 0.5
	rec.Reasoning += fmt.Sprintf(" (warning: outside typical range %s-%s)", formatBound(r.Min), formatBound(r.Max))
	return rec
}

// ParseValue 去掉单位后解析数值，区间取下限
func ParseValue(raw string) (float64, bool) {
	s := strings.TrimSpace(unitReplacer.Replace(raw))
	if i := strings.Index(s, "-"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
