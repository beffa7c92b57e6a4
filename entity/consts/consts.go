package consts

const (
	GraphName = "printlab_research_agent" // 研究图名称，用于标识整个工作流
	AppName   = "printlab"                // 应用名称
	Version   = "1.0.0"                   // 应用版本
)

// 研究流程节点名字
const (
	Plan       = "plan"       // 规划者，负责把用户问题拆解为研究计划
	Gather     = "gather"     // 并行检索，负责 web / paper / community / kb 四路检索
	Evaluate   = "evaluate"   // 评估者，判断证据是否充分
	Refine     = "refine"     // 改写者，根据缺失信息补充子查询
	WebSearch  = "web_search" // 重新检索，refine 之后只重跑网页检索
	Synthesize = "synthesize" // 综合者，生成结论与参数推荐
	Validate   = "validate"   // 校验者，对推荐数值做范围检查
	Output     = "output"     // 输出者，渲染最终回答
)

// GetStepNameList 返回列表
func GetStepNameList() []string {
	return []string{
		Plan,
		Gather,
		Evaluate,
		Refine,
		WebSearch,
		Synthesize,
		Validate,
		Output,
	}
}

// IsStep 判断名字是否为研究流程节点
func IsStep(name string) bool {
	for _, step := range GetStepNameList() {
		if step == name {
			return true
		}
	}
	return false
}

// 证据来源
const (
	SourceWeb       = "web"       // 通用网页
	SourceKB        = "kb"        // 内置知识库
	SourcePaper     = "paper"     // 学术论文
	SourceCommunity = "community" // 社区帖子
)

// 内部伪 URL
const (
	InternalScheme      = "internal://"
	MaterialGuideURL    = InternalScheme + "material_guide"
	DefectGuideURL      = InternalScheme + "defect_guide"
	ExperimentURLPrefix = InternalScheme + "experiment/"
)

// 流式事件类型
const (
	EventStart    = "start"    // 节点开始执行
	EventComplete = "complete" // 研究完成，携带最终回答
	EventError    = "error"    // 研究失败
)

// 相关度
const (
	DefaultRelevance    = 0.5  // 检索结果缺省分数
	GuideRelevance      = 0.9  // 材料 / 缺陷指南
	ExperimentRelevance = 0.85 // 相似实验记录
)
