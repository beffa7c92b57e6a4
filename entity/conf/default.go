package conf

// 默认配置
const (
	DefaultMaxIterations      = 3
	DefaultSufficientDocCount = 5
	DefaultCallTimeoutSec     = 60
	DefaultCheckpointCapacity = 256
	DefaultTavilyBaseURL      = "https://api.tavily.com"
	DefaultExperimentsPath    = "data/experiments.json"
)

// Default 返回全部使用默认值的配置
func Default() *AppConfig {
	c := &AppConfig{}
	applyDefaults(c)
	return c
}

// applyDefaults 为未设置的配置项填充默认值
func applyDefaults(c *AppConfig) {
	if c.Model.Provider == "" {
		c.Model.Provider = "openai"
	}
	if len(c.Model.Gemini.Models) == 0 {
		c.Model.Gemini.Models = []string{"gemini-2.0-flash", "gemini-flash-latest"}
	}
	if c.Model.Gemini.MaxOutputTokens <= 0 {
		c.Model.Gemini.MaxOutputTokens = 4096
	}
	if c.Search.Backend == "" {
		c.Search.Backend = "tavily"
	}
	if c.Search.MCPToolSuffix == "" {
		c.Search.MCPToolSuffix = "search"
	}
	if c.Search.Tavily.BaseURL == "" {
		c.Search.Tavily.BaseURL = DefaultTavilyBaseURL
	}
	if c.Search.Tavily.WebMaxResults <= 0 {
		c.Search.Tavily.WebMaxResults = 5
	}
	if c.Search.Tavily.PaperMaxResults <= 0 {
		c.Search.Tavily.PaperMaxResults = 3
	}
	if c.Search.Tavily.CommunityMaxResults <= 0 {
		c.Search.Tavily.CommunityMaxResults = 5
	}
	if c.Knowledge.ExperimentsPath == "" {
		c.Knowledge.ExperimentsPath = DefaultExperimentsPath
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Log.Path == "" {
		c.Log.Path = "logs/app.log"
	}
	if c.Log.Level == "" {
		c.Log.Level = "debug"
	}
	if c.Setting.MaxIterations <= 0 {
		c.Setting.MaxIterations = DefaultMaxIterations
	}
	if c.Setting.SufficientDocCount <= 0 {
		c.Setting.SufficientDocCount = DefaultSufficientDocCount
	}
	if c.Setting.CallTimeoutSec <= 0 {
		c.Setting.CallTimeoutSec = DefaultCallTimeoutSec
	}
	// 0 表示证据全文交给模型
	if c.Setting.MaxLimitToken < 0 {
		c.Setting.MaxLimitToken = 0
	}
	if c.Setting.CheckpointCapacity <= 0 {
		c.Setting.CheckpointCapacity = DefaultCheckpointCapacity
	}
}
