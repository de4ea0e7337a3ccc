package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Server struct {
	Addr           string `yaml:"addr"`
	ReadTimeoutMS  int    `yaml:"read_timeout_ms"`
	WriteTimeoutMS int    `yaml:"write_timeout_ms"`
	IdleTimeoutMS  int    `yaml:"idle_timeout_ms"`
	MaxBodyBytes   int64  `yaml:"max_body_bytes"`

	// TrustForwarded takes the client address from X-Forwarded-For and
	// X-Real-IP. Enable only behind a proxy that sets them.
	TrustForwarded bool `yaml:"trust_forwarded_headers"`
}

type Observability struct {
	LogLevel       string `yaml:"log_level"`       // "debug","info","warn","error"
	PrometheusPath string `yaml:"prometheus_path"` // e.g. "/metrics"
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type Limits struct {
	// Ask gates outbound chat calls per session.
	Ask struct {
		MaxRequests int `yaml:"max_requests"`
		WindowMS    int `yaml:"window_ms"`
	} `yaml:"ask"`
	// AskPerIP caps askai questions per client address across all of its
	// sessions.
	AskPerIP struct {
		MaxRequests int `yaml:"max_requests"`
		WindowMS    int `yaml:"window_ms"`
	} `yaml:"ask_per_ip"`
	// Ingress throttles every request per client address.
	Ingress struct {
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
	} `yaml:"ingress"`
	Storage string `yaml:"storage"` // "memory" or "redis"
	Redis   Redis  `yaml:"redis"`
}

type Background struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	FPS    int `yaml:"fps"`

	// Largest viewport a client may report.
	MaxWidth  int `yaml:"max_width"`
	MaxHeight int `yaml:"max_height"`
}

type Chat struct {
	BaseURL     string  `yaml:"base_url"` // OpenAI-compatible API root
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TimeoutMS   int     `yaml:"timeout_ms"`
	APIKeyEnv   string  `yaml:"api_key_env"`

	// APIKey is read from the APIKeyEnv environment variable, never from YAML.
	APIKey string `yaml:"-"`
}

type Root struct {
	Server        Server        `yaml:"server"`
	Observability Observability `yaml:"observability"`
	Limits        Limits        `yaml:"limits"`
	Background    Background    `yaml:"background"`
	Chat          Chat          `yaml:"chat"`
	ContentPath   string        `yaml:"content_path"` // empty: built-in content
}

func (s Server) ReadTimeout() time.Duration {
	if s.ReadTimeoutMS == 0 {
		return 5 * time.Second
	}
	return time.Duration(s.ReadTimeoutMS) * time.Millisecond
}

func (s Server) WriteTimeout() time.Duration {
	if s.WriteTimeoutMS == 0 {
		return 30 * time.Second
	}
	return time.Duration(s.WriteTimeoutMS) * time.Millisecond
}

func (s Server) IdleTimeout() time.Duration {
	if s.IdleTimeoutMS == 0 {
		return 60 * time.Second
	}
	return time.Duration(s.IdleTimeoutMS) * time.Millisecond
}

// MaxBody defaults to 64KB.
func (s Server) MaxBody() int64 {
	if s.MaxBodyBytes == 0 {
		return 64 << 10
	}
	return s.MaxBodyBytes
}

func (l Limits) AskWindow() time.Duration {
	return time.Duration(l.Ask.WindowMS) * time.Millisecond
}

func (l Limits) AskPerIPWindow() time.Duration {
	return time.Duration(l.AskPerIP.WindowMS) * time.Millisecond
}

func (c Chat) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// Load reads the YAML file at path, applies defaults and resolves the chat
// API key from the environment. A .env file in the working directory, if
// present, is loaded first.
func Load(path string) (*Root, error) {
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Root
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	cfg.Chat.APIKey = os.Getenv(cfg.Chat.APIKeyEnv)

	return &cfg, nil
}

func applyDefaults(cfg *Root) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Observability.LogLevel == "" {
		cfg.Observability.LogLevel = "info"
	}
	if cfg.Observability.PrometheusPath == "" {
		cfg.Observability.PrometheusPath = "/metrics"
	}

	if cfg.Limits.Ask.MaxRequests <= 0 {
		cfg.Limits.Ask.MaxRequests = 10
	}
	if cfg.Limits.Ask.WindowMS <= 0 {
		cfg.Limits.Ask.WindowMS = 60_000
	}
	if cfg.Limits.AskPerIP.MaxRequests <= 0 {
		cfg.Limits.AskPerIP.MaxRequests = 30
	}
	if cfg.Limits.AskPerIP.WindowMS <= 0 {
		cfg.Limits.AskPerIP.WindowMS = 60_000
	}
	if cfg.Limits.Ingress.RequestsPerSecond <= 0 {
		cfg.Limits.Ingress.RequestsPerSecond = 20
	}
	if cfg.Limits.Ingress.Burst <= 0 {
		cfg.Limits.Ingress.Burst = 40
	}
	if cfg.Limits.Storage == "" {
		cfg.Limits.Storage = "memory"
	}

	if cfg.Background.Width <= 0 {
		cfg.Background.Width = 1280
	}
	if cfg.Background.Height <= 0 {
		cfg.Background.Height = 720
	}
	if cfg.Background.FPS <= 0 {
		cfg.Background.FPS = 30
	}
	if cfg.Background.MaxWidth <= 0 {
		cfg.Background.MaxWidth = 3840
	}
	if cfg.Background.MaxHeight <= 0 {
		cfg.Background.MaxHeight = 2160
	}

	if cfg.Chat.BaseURL == "" {
		cfg.Chat.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.Chat.Model == "" {
		cfg.Chat.Model = "llama-3.3-70b-versatile"
	}
	if cfg.Chat.Temperature <= 0 {
		cfg.Chat.Temperature = 0.7
	}
	if cfg.Chat.MaxTokens <= 0 {
		cfg.Chat.MaxTokens = 500
	}
	if cfg.Chat.TimeoutMS <= 0 {
		cfg.Chat.TimeoutMS = 20_000
	}
	if cfg.Chat.APIKeyEnv == "" {
		cfg.Chat.APIKeyEnv = "GROQ_API_KEY"
	}
}
