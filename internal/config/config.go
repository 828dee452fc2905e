// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type APIConfig struct {
	Port       int           `yaml:"port"`
	Key        string        `yaml:"key"`         // static bearer key for collaborators
	JWTSecret  string        `yaml:"jwt_secret"`  // dashboard session tokens
	SessionTTL time.Duration `yaml:"session_ttl"` // e.g. 30m
}

type AIConfig struct {
	Provider        string        `yaml:"provider"` // openai | gemini | noop
	OpenAIKey       string        `yaml:"openai_key"`
	OpenAIBaseURL   string        `yaml:"openai_base_url"`
	GeminiKey       string        `yaml:"gemini_key"`
	GeminiURL       string        `yaml:"gemini_url"`
	ChatModel       string        `yaml:"chat_model"`
	TranscribeModel string        `yaml:"transcribe_model"`
	CallTimeout     time.Duration `yaml:"call_timeout"`     // deadline per provider call
	ConcurrentLimit int           `yaml:"concurrent_limit"` // max concurrent AI calls
	TokenBudget     int           `yaml:"token_budget"`     // transcript context budget for generation
}

type WorkerConfig struct {
	Count        int           `yaml:"count"`
	Batch        int           `yaml:"batch"` // jobs per dequeue
	Lease        time.Duration `yaml:"lease"`
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxAttempts  int           `yaml:"max_attempts"`
	BackoffBase  time.Duration `yaml:"backoff_base"`
	BackoffCap   time.Duration `yaml:"backoff_cap"`
	Retention    time.Duration `yaml:"retention"` // terminal job retention window
}

type SchedulerConfig struct {
	Interval       time.Duration `yaml:"interval"`
	Batch          int           `yaml:"batch"` // due posts per cycle
	PublishTimeout time.Duration `yaml:"publish_timeout"`
	MaxAttempts    int           `yaml:"max_attempts"`
	BackoffBase    time.Duration `yaml:"backoff_base"`
	BackoffCap     time.Duration `yaml:"backoff_cap"`
}

type PlatformConfig struct {
	Name             string        `yaml:"name"` // twitter | linkedin | telegram | noop
	MaxContentLength int           `yaml:"max_content_length"`
	MediaTypes       []string      `yaml:"media_types"`
	RateLimit        int           `yaml:"rate_limit"`
	RateWindow       time.Duration `yaml:"rate_window"`
	AuthRef          string        `yaml:"auth_ref"`
	BaseURL          string        `yaml:"base_url"` // override for HTTP platforms
	Channel          string        `yaml:"channel"`  // telegram channel username
}

type Config struct {
	Log       LogConfig        `yaml:"log"`
	Database  DatabaseConfig   `yaml:"database"`
	Redis     RedisConfig      `yaml:"redis"`
	API       APIConfig        `yaml:"api"`
	AI        AIConfig         `yaml:"ai"`
	Worker    WorkerConfig     `yaml:"worker"`
	Scheduler SchedulerConfig  `yaml:"scheduler"`
	Platforms []PlatformConfig `yaml:"platforms"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.API.Port == 0 {
		cfg.API.Port = 8080
	}
	if cfg.API.SessionTTL <= 0 {
		cfg.API.SessionTTL = 30 * time.Minute
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "openai"
	}
	if cfg.AI.ChatModel == "" {
		cfg.AI.ChatModel = "gpt-4o-mini"
	}
	if cfg.AI.TranscribeModel == "" {
		cfg.AI.TranscribeModel = "whisper-1"
	}
	if cfg.AI.CallTimeout <= 0 {
		cfg.AI.CallTimeout = 60 * time.Second
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 8
	}
	if cfg.AI.TokenBudget <= 0 {
		cfg.AI.TokenBudget = 6000
	}
	if cfg.Worker.Count <= 0 {
		cfg.Worker.Count = 4
	}
	if cfg.Worker.Batch <= 0 {
		cfg.Worker.Batch = cfg.Worker.Count
	}
	if cfg.Worker.Lease <= 0 {
		cfg.Worker.Lease = 2 * time.Minute
	}
	if cfg.Worker.PollInterval <= 0 {
		cfg.Worker.PollInterval = 500 * time.Millisecond
	}
	if cfg.Worker.MaxAttempts <= 0 {
		cfg.Worker.MaxAttempts = 5
	}
	if cfg.Worker.BackoffBase <= 0 {
		cfg.Worker.BackoffBase = 10 * time.Second
	}
	if cfg.Worker.BackoffCap <= 0 {
		cfg.Worker.BackoffCap = 10 * time.Minute
	}
	if cfg.Worker.Retention <= 0 {
		cfg.Worker.Retention = 7 * 24 * time.Hour
	}
	if cfg.Scheduler.Interval <= 0 {
		cfg.Scheduler.Interval = 5 * time.Second
	}
	if cfg.Scheduler.Batch <= 0 {
		cfg.Scheduler.Batch = 100
	}
	if cfg.Scheduler.PublishTimeout <= 0 {
		cfg.Scheduler.PublishTimeout = 30 * time.Second
	}
	if cfg.Scheduler.MaxAttempts <= 0 {
		cfg.Scheduler.MaxAttempts = 3
	}
	if cfg.Scheduler.BackoffBase <= 0 {
		cfg.Scheduler.BackoffBase = 30 * time.Second
	}
	if cfg.Scheduler.BackoffCap <= 0 {
		cfg.Scheduler.BackoffCap = 15 * time.Minute
	}
	for i := range cfg.Platforms {
		if cfg.Platforms[i].RateLimit <= 0 {
			cfg.Platforms[i].RateLimit = 10
		}
		if cfg.Platforms[i].RateWindow <= 0 {
			cfg.Platforms[i].RateWindow = time.Minute
		}
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.API.Key == "" {
		return nil, errors.New("api.key is required")
	}
	if len(cfg.Platforms) == 0 {
		return nil, errors.New("at least one platform must be configured")
	}
	for _, p := range cfg.Platforms {
		if p.Name == "" {
			return nil, errors.New("platform name is required")
		}
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
