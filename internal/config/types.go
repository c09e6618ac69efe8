package config

import (
	"time"
)

// Config holds all configuration for striker
type Config struct {
	Environment map[string]string `mapstructure:"environment" yaml:"environment"`
	Filename    string            `mapstructure:"-" yaml:"-"` // last source loaded
	Files       []string          `mapstructure:"-" yaml:"-"` // every source, in merge order
	Workspace   string            `mapstructure:"workspace" yaml:"workspace"`
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging"`
	Retry       RetryConfig       `mapstructure:"retry" yaml:"retry"`
	Debug       bool              `mapstructure:"debug" yaml:"debug"`
	DryRun      bool              `mapstructure:"dry_run" yaml:"dry_run"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	LogDir     string `mapstructure:"log_dir" yaml:"log_dir"`
	Theme      string `mapstructure:"theme" yaml:"theme"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"` // days
	FileOutput bool   `mapstructure:"file_output" yaml:"file_output"`
}

// RetryConfig controls how commands are retried
type RetryConfig struct {
	MaxTries     int           `mapstructure:"max_tries" yaml:"max_tries"`
	InitialDelay time.Duration `mapstructure:"initial_delay" yaml:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
}
