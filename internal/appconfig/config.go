package appconfig

import (
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Fetch         FetchConfig         `yaml:"fetch"`
	Cache         CacheConfig         `yaml:"cache"`
	Redis         RedisConfig         `yaml:"redis"`
	Suggest       SuggestConfig       `yaml:"suggest"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type FetchConfig struct {
	// Mirrors are API base URLs tried in order; first entry is the primary.
	Mirrors           []string `yaml:"mirrors"`
	RequestTimeoutSec int      `yaml:"request_timeout_sec"`
	MaxRetries        int      `yaml:"max_retries"`
	RateLimitWaitSec  int      `yaml:"rate_limit_wait_sec"`
	CancelWaitSec     int      `yaml:"cancel_wait_sec"`
	SubmissionCount   int      `yaml:"submission_count"`
	UpcomingLimit     int      `yaml:"upcoming_limit"`
	UserAgent         string   `yaml:"user_agent"`
}

type CacheConfig struct {
	MaxAgeHours int `yaml:"max_age_hours"`
}

type RedisConfig struct {
	URL            string `yaml:"url"`
	PoolSize       int    `yaml:"pool_size"`
	MinIdleConns   int    `yaml:"min_idle_conns"`
	DialTimeoutMs  int    `yaml:"dial_timeout_ms"`
	ReadTimeoutMs  int    `yaml:"read_timeout_ms"`
	WriteTimeoutMs int    `yaml:"write_timeout_ms"`
}

type SuggestConfig struct {
	// APIKey is read from config or env, never compiled in.
	APIKey         string  `yaml:"api_key"`
	BaseURL        string  `yaml:"base_url"`
	Model          string  `yaml:"model"`
	TimeoutSec     int     `yaml:"timeout_sec"`
	Temperature    float64 `yaml:"temperature"`
	MaxSuggestions int     `yaml:"max_suggestions"`
}

type ObservabilityConfig struct {
	ServiceName string `yaml:"service_name"`
	InstanceID  string `yaml:"instance_id"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// Defaults mirror the production Codeforces client settings.
const (
	DefaultRequestTimeoutSec = 45
	DefaultMaxRetries        = 3
	DefaultRateLimitWaitSec  = 3
	DefaultCancelWaitSec     = 5
	DefaultSubmissionCount   = 50
	DefaultUpcomingLimit     = 10
	DefaultCacheMaxAgeHours  = 24
	DefaultUserAgent         = "KrypticGrind/1.0"
)

func DefaultMirrors() []string {
	return []string{
		"https://codeforces.com/api",
		"https://codeforces.ml/api",
		"https://cf.likianta.com/api",
	}
}

func ResolveConfigPath() string {
	if v := os.Getenv("APP_CONFIG"); v != "" {
		return v
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	if _, err := os.Stat("/app/config.yaml"); err == nil {
		return "/app/config.yaml"
	}
	return ""
}

// Load reads the yaml config (if any), then applies env overrides and
// defaults. A missing file is not an error; env and defaults still apply.
func Load() (*Config, string, error) {
	var cfg Config
	path := ResolveConfigPath()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, path, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, path, err
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, path, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("CF_MIRRORS"); v != "" {
		c.Fetch.Mirrors = splitNonEmpty(v)
	}
	c.Fetch.RequestTimeoutSec = getEnvInt("CF_REQUEST_TIMEOUT_SEC", c.Fetch.RequestTimeoutSec)
	c.Fetch.MaxRetries = getEnvInt("CF_MAX_RETRIES", c.Fetch.MaxRetries)
	c.Fetch.SubmissionCount = getEnvInt("CF_SUBMISSION_COUNT", c.Fetch.SubmissionCount)
	c.Redis.URL = getEnv("REDIS_URL", c.Redis.URL)
	c.Suggest.APIKey = getEnv("GEMINI_API_KEY", c.Suggest.APIKey)
	c.Suggest.BaseURL = getEnv("GEMINI_BASE_URL", c.Suggest.BaseURL)
	c.Suggest.Model = getEnv("GEMINI_MODEL", c.Suggest.Model)
	c.Observability.ServiceName = getEnv("SERVICE_NAME", c.Observability.ServiceName)
	c.Observability.InstanceID = getEnv("INSTANCE_ID", c.Observability.InstanceID)
	c.Observability.MetricsAddr = getEnv("METRICS_ADDR", c.Observability.MetricsAddr)
}

func (c *Config) applyDefaults() {
	if len(c.Fetch.Mirrors) == 0 {
		c.Fetch.Mirrors = DefaultMirrors()
	}
	if c.Fetch.RequestTimeoutSec <= 0 {
		c.Fetch.RequestTimeoutSec = DefaultRequestTimeoutSec
	}
	if c.Fetch.MaxRetries <= 0 {
		c.Fetch.MaxRetries = DefaultMaxRetries
	}
	if c.Fetch.RateLimitWaitSec <= 0 {
		c.Fetch.RateLimitWaitSec = DefaultRateLimitWaitSec
	}
	if c.Fetch.CancelWaitSec <= 0 {
		c.Fetch.CancelWaitSec = DefaultCancelWaitSec
	}
	if c.Fetch.SubmissionCount <= 0 {
		c.Fetch.SubmissionCount = DefaultSubmissionCount
	}
	if c.Fetch.UpcomingLimit <= 0 {
		c.Fetch.UpcomingLimit = DefaultUpcomingLimit
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = DefaultUserAgent
	}
	if c.Cache.MaxAgeHours <= 0 {
		c.Cache.MaxAgeHours = DefaultCacheMaxAgeHours
	}
	if c.Suggest.BaseURL == "" {
		c.Suggest.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if c.Suggest.Model == "" {
		c.Suggest.Model = "gemini-1.5-flash"
	}
	if c.Suggest.TimeoutSec <= 0 {
		c.Suggest.TimeoutSec = 30
	}
	if c.Suggest.Temperature <= 0 {
		c.Suggest.Temperature = 0.7
	}
	if c.Suggest.MaxSuggestions <= 0 {
		c.Suggest.MaxSuggestions = 6
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
