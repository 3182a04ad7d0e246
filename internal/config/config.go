package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates application settings that may be sourced from environment variables.
type Config struct {
	API    APIConfig    `mapstructure:"api"`
	Engine EngineConfig `mapstructure:"engine"`
	Site   SiteConfig   `mapstructure:"site"`
	Export ExportConfig `mapstructure:"export"`
	Probe  ProbeConfig  `mapstructure:"probe"`
	Redis  RedisConfig  `mapstructure:"redis"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port int `mapstructure:"port"`
	// PublicBaseURL 是对外可达的基地址，作为请求头推导 origin 失败时的兜底。
	PublicBaseURL string `mapstructure:"public_base_url"`
}

// EngineConfig 控制无头浏览器引擎的获取方式。
type EngineConfig struct {
	// ExecutablePath 显式指定浏览器可执行文件，优先于自动探测。
	ExecutablePath string `mapstructure:"executable_path"`
	// LegacyPath 兼容 CHROME_PATH 环境变量，仅在 ExecutablePath 为空时生效。
	LegacyPath string `mapstructure:"legacy_path"`
}

// ResolvedExecutablePath 返回生效的引擎路径覆盖，空串表示交由自动探测。
func (e EngineConfig) ResolvedExecutablePath() string {
	if e.ExecutablePath != "" {
		return e.ExecutablePath
	}
	return e.LegacyPath
}

// SiteConfig 是站点访问门禁配置。Secret 非空时打印页要求门禁 Cookie。
type SiteConfig struct {
	Secret string `mapstructure:"secret"`
}

// ExportConfig 控制导出产物缓存与降级开关。
type ExportConfig struct {
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds"`
	// ForceClientPrint 强制走浏览器打印降级，优先级高于探测结果。
	ForceClientPrint bool `mapstructure:"force_client_print"`
	// ForceServerPDF 强制认为服务端渲染可用，优先级高于探测结果。
	ForceServerPDF bool `mapstructure:"force_server_pdf"`
}

// CacheTTL 返回产物缓存有效期。
func (e ExportConfig) CacheTTL() time.Duration {
	return time.Duration(e.CacheTTLSeconds) * time.Second
}

// ProbeConfig 控制可用性探测。
type ProbeConfig struct {
	TimeoutSeconds  int `mapstructure:"timeout_seconds"`
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds"`
}

// Timeout 返回单次探测的硬超时。
func (p ProbeConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// CacheTTL 返回探测结果缓存有效期。
func (p ProbeConfig) CacheTTL() time.Duration {
	return time.Duration(p.CacheTTLSeconds) * time.Second
}

// RedisConfig 是可选的 Redis 产物缓存配置。
type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// Addr 返回 host:port 形式的地址。
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Load reads configuration solely from environment variables (with optional defaults).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("export.cache_ttl_seconds", 300)
	v.SetDefault("probe.timeout_seconds", 3)
	v.SetDefault("probe.cache_ttl_seconds", 30)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                  "API_PORT",
		"api.public_base_url":       "PUBLIC_BASE_URL",
		"engine.executable_path":    "ENGINE_PATH",
		"engine.legacy_path":        "CHROME_PATH",
		"site.secret":               "SITE_SECRET",
		"export.cache_ttl_seconds":  "PDF_CACHE_TTL_SECONDS",
		"export.force_client_print": "FORCE_CLIENT_PRINT",
		"export.force_server_pdf":   "FORCE_SERVER_PDF",
		"probe.timeout_seconds":     "PROBE_TIMEOUT_SECONDS",
		"probe.cache_ttl_seconds":   "PROBE_CACHE_TTL_SECONDS",
		"redis.enabled":             "REDIS_ENABLED",
		"redis.host":                "REDIS_HOST",
		"redis.port":                "REDIS_PORT",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if cfg.Export.CacheTTLSeconds <= 0 {
		return errors.New("export cache ttl must be positive")
	}
	if cfg.Probe.TimeoutSeconds <= 0 {
		return errors.New("probe timeout must be positive")
	}
	if cfg.Probe.CacheTTLSeconds <= 0 {
		return errors.New("probe cache ttl must be positive")
	}
	if cfg.Export.ForceClientPrint && cfg.Export.ForceServerPDF {
		return errors.New("force_client_print and force_server_pdf are mutually exclusive")
	}
	if cfg.Redis.Enabled {
		if cfg.Redis.Host == "" {
			return errors.New("redis host is required")
		}
		if cfg.Redis.Port <= 0 {
			return errors.New("redis port must be positive")
		}
	}
	return nil
}
