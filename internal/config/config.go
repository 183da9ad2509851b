package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Paths       PathsConfig       `yaml:"paths"`
	Quota       QuotaConfig       `yaml:"quota"`
	Logging     LoggingConfig     `yaml:"logging"`
	Performance PerformanceConfig `yaml:"performance"`
	Gemini      GeminiConfig      `yaml:"gemini"`
	Telegram    TelegramConfig    `yaml:"telegram"`
}

type PathsConfig struct {
	Scratch  string `yaml:"scratch"`
	Clips    string `yaml:"clips"`
	Database string `yaml:"database"`
}

type QuotaConfig struct {
	SweepMaxAgeHours int `yaml:"sweep_max_age_hours"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type PerformanceConfig struct {
	MaxConcurrentJobs int `yaml:"max_concurrent_jobs"`
}

type GeminiConfig struct {
	Model string `yaml:"model"`
}

type TelegramConfig struct {
	// ChatID receives operator notifications; 0 disables them.
	ChatID int64 `yaml:"chat_id"`
}

// Load reads and validates a YAML config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Paths.Scratch == "" {
		c.Paths.Scratch = "data/scratch"
	}
	if c.Paths.Clips == "" {
		c.Paths.Clips = "data/clips"
	}
	if c.Paths.Database == "" {
		c.Paths.Database = "data/clipforge.db"
	}
	if c.Quota.SweepMaxAgeHours == 0 {
		c.Quota.SweepMaxAgeHours = 1
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Performance.MaxConcurrentJobs == 0 {
		c.Performance.MaxConcurrentJobs = 4
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.5-flash"
	}

	return nil
}
