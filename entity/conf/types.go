package conf

// MCPServerConfig MCP服务器配置
type MCPServerConfig struct {
	Command string            `yaml:"command" mapstructure:"command"`             // MCP服务器启动命令
	Args    []string          `yaml:"args" mapstructure:"args"`                   // 命令行参数列表
	Env     map[string]string `yaml:"env,omitempty" mapstructure:"env,omitempty"` // 环境变量映射，可选配置
	URL     string            `yaml:"url,omitempty" mapstructure:"url,omitempty"` // SSE 服务地址，设置后忽略 command
	Headers []string          `yaml:"headers,omitempty" mapstructure:"headers"`   // SSE 请求头，格式 "Key: Value"
}

// MCPConfig MCP配置
type MCPConfig struct {
	Servers map[string]MCPServerConfig `yaml:"servers" mapstructure:"servers"` // MCP服务器配置映射，key为服务器名称
}

// Model 单个模型配置
type Model struct {
	ModelID string `yaml:"model_id" mapstructure:"model_id"` // 模型ID
	BaseURL string `yaml:"base_url" mapstructure:"base_url"` // 模型服务的基础URL地址
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`   // 模型服务的API密钥
}

// GeminiConfig Gemini 模型配置
type GeminiConfig struct {
	APIKey          string   `yaml:"api_key" mapstructure:"api_key"`                     // Gemini API 密钥
	Models          []string `yaml:"models" mapstructure:"models"`                       // 依次尝试的模型列表
	MaxOutputTokens int      `yaml:"max_output_tokens" mapstructure:"max_output_tokens"` // 最大输出 token
}

// ModelConfig 模型配置
type ModelConfig struct {
	Provider     string       `yaml:"provider" mapstructure:"provider"`           // openai / gemini
	DefaultModel Model        `yaml:"default_model" mapstructure:"default_model"` // 默认使用的模型
	Gemini       GeminiConfig `yaml:"gemini" mapstructure:"gemini"`               // Gemini 配置
	JSONMode     bool         `yaml:"json_mode" mapstructure:"json_mode"`         // 要求模型只输出 JSON 对象
	Temperature  float32      `yaml:"temperature" mapstructure:"temperature"`     // 采样温度
}

// TavilyConfig Tavily 检索配置
type TavilyConfig struct {
	APIKey              string `yaml:"api_key" mapstructure:"api_key"`                             // Tavily API 密钥
	BaseURL             string `yaml:"base_url" mapstructure:"base_url"`                           // Tavily 服务地址
	WebMaxResults       int    `yaml:"web_max_results" mapstructure:"web_max_results"`             // 网页检索条数
	PaperMaxResults     int    `yaml:"paper_max_results" mapstructure:"paper_max_results"`         // 论文检索条数
	CommunityMaxResults int    `yaml:"community_max_results" mapstructure:"community_max_results"` // 社区检索条数
}

// SearchConfig 检索配置
type SearchConfig struct {
	Backend       string       `yaml:"backend" mapstructure:"backend"`                 // tavily / mcp
	Tavily        TavilyConfig `yaml:"tavily" mapstructure:"tavily"`                   // Tavily 配置
	MCPToolSuffix string       `yaml:"mcp_tool_suffix" mapstructure:"mcp_tool_suffix"` // MCP 检索工具名后缀
}

// KnowledgeConfig 知识库配置
type KnowledgeConfig struct {
	ExperimentsPath string `yaml:"experiments_path" mapstructure:"experiments_path"` // 实验记录文件
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"` // 监听地址
}

// LogConfig 日志配置
type LogConfig struct {
	Path  string `yaml:"path" mapstructure:"path"`   // 日志文件
	Level string `yaml:"level" mapstructure:"level"` // 日志级别
}

// SettingConfig 应用运行配置
type SettingConfig struct {
	MaxIterations      int    `yaml:"max_iterations" mapstructure:"max_iterations"`             // 最大评估轮数
	SufficientDocCount int    `yaml:"sufficient_doc_count" mapstructure:"sufficient_doc_count"` // 评估降级时判定充分的文档数
	CallTimeoutSec     int    `yaml:"call_timeout_sec" mapstructure:"call_timeout_sec"`         // 单次外部调用超时（秒）
	MaxLimitToken      int    `yaml:"max_limit_token" mapstructure:"max_limit_token"`           // 单条证据最大字符数，0 不截断
	CheckpointCapacity int    `yaml:"checkpoint_capacity" mapstructure:"checkpoint_capacity"`   // checkpoint 缓存容量
	PromptDir          string `yaml:"prompt_dir" mapstructure:"prompt_dir"`                     // 提示词覆盖目录，为空使用内置模板
}

// AppConfig 应用配置
type AppConfig struct {
	MCP       MCPConfig       `yaml:"mcp" mapstructure:"mcp"`             // MCP服务相关配置
	Model     ModelConfig     `yaml:"model" mapstructure:"model"`         // 大语言模型相关配置
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`       // 检索服务配置
	Knowledge KnowledgeConfig `yaml:"knowledge" mapstructure:"knowledge"` // 知识库配置
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`       // HTTP 服务配置
	Log       LogConfig       `yaml:"log" mapstructure:"log"`             // 日志配置
	Setting   SettingConfig   `yaml:"setting" mapstructure:"setting"`     // 应用运行时配置参数
}
