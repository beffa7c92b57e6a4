package conf

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/HildaM/logs/slog"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix 环境变量前缀，PRINTLAB_MODEL__DEFAULT_MODEL__API_KEY 对应 model.default_model.api_key
const EnvPrefix = "PRINTLAB_"

var (
	// 配置读写锁，确保并发安全
	configMu sync.RWMutex
	// 文件提供者
	f *file.File
	// 配置文件路径
	cfgPath string
	// 缓存的配置实例
	appConf = Default()
)

// Init 初始化配置
func Init(path string) error {
	// 先读取 .env，文件不存在时忽略
	_ = godotenv.Load()

	// 加载配置
	if err := loadConfig(path); err != nil {
		return fmt.Errorf("Init config failed, load config err: %v", err)
	}

	// 启动配置文件监听
	startConfigWatch()

	// 初始化日志
	cfg := GetCfg()
	if err := slog.InitFile(cfg.Log.Path, slog.WithLevel(cfg.Log.Level), slog.WithColor(false)); err != nil {
		return fmt.Errorf("Init log failed, err: %+v", err)
	}

	slog.Info("Init config: %+v", redact(*cfg))
	return nil
}

// Load 读取配置文件并叠加环境变量，缺省项使用默认值
func Load(path string) (*AppConfig, error) {
	k := koanf.New(".")

	// 从配置文件加载
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// 环境变量覆盖文件配置
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env config: %w", err)
	}

	// 解析配置到结构体，使用 yaml 标签
	var config AppConfig
	if err := k.UnmarshalWithConf("", &config, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyDefaults(&config)
	return &config, nil
}

// envKey 把 PRINTLAB_A__B_C 转换为 a.b_c
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// loadConfig 加载配置
func loadConfig(path string) error {
	config, err := Load(path)
	if err != nil {
		return err
	}

	configMu.Lock()
	defer configMu.Unlock()
	cfgPath = path
	if path != "" {
		f = file.Provider(path)
	}
	// 更新全局配置实例
	appConf = config
	return nil
}

// GetCfg 获取配置
func GetCfg() *AppConfig {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConf
}

// CallTimeout 单次外部调用超时
func (s SettingConfig) CallTimeout() time.Duration {
	return time.Duration(s.CallTimeoutSec) * time.Second
}

// startConfigWatch 启动配置文件监听
func startConfigWatch() {
	if f == nil {
		log.Printf("file provider not initialized")
		return
	}

	// 监听文件变化并在变化时重新加载配置
	f.Watch(func(event interface{}, err error) {
		if err != nil {
			log.Printf("Config file watch error: %v", err)
			return
		}

		// 配置文件发生变化，重新加载
		log.Printf("Config file changed. Reloading...")
		config, err := Load(cfgPath)
		if err != nil {
			log.Printf("Failed to load reloaded config: %v", err)
			return
		}

		configMu.Lock()
		appConf = config
		configMu.Unlock()

		log.Printf("Config reloaded: %+v", redact(*config))
	})
}

// redact 日志输出前隐藏密钥
func redact(c AppConfig) AppConfig {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "***"
	}
	c.Model.DefaultModel.APIKey = mask(c.Model.DefaultModel.APIKey)
	c.Model.Gemini.APIKey = mask(c.Model.Gemini.APIKey)
	c.Search.Tavily.APIKey = mask(c.Search.Tavily.APIKey)
	return c
}
