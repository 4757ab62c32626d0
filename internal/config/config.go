// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for a replay run. It is built once by the
// command layer and handed to each component by value.
type Config struct {
	Logger      LoggerConfig      `mapstructure:"logger" yaml:"logger"`
	LLM         LLMConfig         `mapstructure:"llm" yaml:"llm"`
	Automation  AutomationConfig  `mapstructure:"automation" yaml:"automation"`
	Computer    ComputerConfig    `mapstructure:"computer" yaml:"computer"`
	Directories DirectoriesConfig `mapstructure:"directories" yaml:"directories"`
	Transcript  TranscriptConfig  `mapstructure:"transcript" yaml:"transcript"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// LLMProvider names a backend capable of driving computer use.
type LLMProvider string

const (
	ProviderAnthropic LLMProvider = "anthropic"
)

// LLMConfig configures the model client adapter.
type LLMConfig struct {
	Provider          LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model             string        `mapstructure:"model" yaml:"model"`
	APIKey            string        `mapstructure:"api_key" yaml:"-"`
	Endpoint          string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout        time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	MaxTokens         int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	Betas             []string      `mapstructure:"betas" yaml:"betas"`
	Retry             RetryConfig   `mapstructure:"retry" yaml:"retry"`
}

// RetryConfig describes the backoff schedule applied to model calls.
type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval" yaml:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval" yaml:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier" yaml:"multiplier"`
}

// AutomationConfig tunes the conversation driver.
type AutomationConfig struct {
	ImagesToKeep   int    `mapstructure:"images_to_keep" yaml:"images_to_keep"`
	InitialMessage string `mapstructure:"initial_message" yaml:"initial_message"`
	// MaxIterations is an outer ceiling on model calls. Zero means unlimited.
	MaxIterations int `mapstructure:"max_iterations" yaml:"max_iterations"`
}

// ComputerConfig tunes the OS action executor.
type ComputerConfig struct {
	MaxWidth      int           `mapstructure:"max_width" yaml:"max_width"`
	TypingDelay   time.Duration `mapstructure:"typing_delay" yaml:"typing_delay"`
	DisplayNumber int           `mapstructure:"display_number" yaml:"display_number"`
}

// DirectoriesConfig lists the on-disk locations used during a run.
type DirectoriesConfig struct {
	Screenshots string `mapstructure:"screenshots" yaml:"screenshots"`
	Transcripts string `mapstructure:"transcripts" yaml:"transcripts"`
	Prompts     string `mapstructure:"prompts" yaml:"prompts"`
}

// TranscriptConfig controls how recorded transcripts are cleaned before use.
type TranscriptConfig struct {
	Separator string `mapstructure:"separator" yaml:"separator"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults are static, so this only fires on a programming error.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "cycle")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- LLM --
	v.SetDefault("llm.provider", string(ProviderAnthropic))
	v.SetDefault("llm.model", "claude-3-5-sonnet-20241022")
	v.SetDefault("llm.api_timeout", "2m")
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.requests_per_minute", 0)
	v.SetDefault("llm.betas", []string{"computer-use-2024-10-22"})
	v.SetDefault("llm.retry.max_attempts", 3)
	v.SetDefault("llm.retry.initial_interval", "1s")
	v.SetDefault("llm.retry.max_interval", "8s")
	v.SetDefault("llm.retry.multiplier", 2.0)

	// -- Automation --
	v.SetDefault("automation.images_to_keep", 3)
	v.SetDefault("automation.initial_message", "Repeat the workflow considering the user instruction.")
	v.SetDefault("automation.max_iterations", 0)

	// -- Computer --
	v.SetDefault("computer.max_width", 1280)
	v.SetDefault("computer.typing_delay", "12ms")
	v.SetDefault("computer.display_number", 0)

	// -- Directories --
	v.SetDefault("directories.screenshots", "screenshots")
	v.SetDefault("directories.transcripts", "transcripts")
	v.SetDefault("directories.prompts", "")

	// -- Transcript --
	v.SetDefault("transcript.separator", "```")
}

// BindEnv wires the environment variables that are not covered by
// AutomaticEnv key replacement.
func BindEnv(v *viper.Viper) error {
	if err := v.BindEnv("llm.api_key", "CYCLE_LLM_API_KEY", "ANTHROPIC_API_KEY"); err != nil {
		return fmt.Errorf("failed to bind llm.api_key: %w", err)
	}
	return nil
}

// NewConfigFromViper unmarshals and validates the configuration held by v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	if err := BindEnv(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
// The API key is checked by the client factory, since commands such as
// `screen` never talk to the model.
func (c *Config) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm configuration invalid: %w", err)
	}
	if c.Automation.ImagesToKeep < 0 {
		return fmt.Errorf("automation.images_to_keep must not be negative")
	}
	if c.Automation.MaxIterations < 0 {
		return fmt.Errorf("automation.max_iterations must not be negative")
	}
	if c.Computer.MaxWidth <= 0 {
		return fmt.Errorf("computer.max_width must be a positive integer")
	}
	if c.Computer.TypingDelay < 0 {
		return fmt.Errorf("computer.typing_delay must not be negative")
	}
	if strings.TrimSpace(c.Directories.Screenshots) == "" {
		return fmt.Errorf("directories.screenshots is required")
	}
	return nil
}

// Validate checks the LLM settings, including the retry schedule.
func (l *LLMConfig) Validate() error {
	switch l.Provider {
	case ProviderAnthropic:
	default:
		return fmt.Errorf("unsupported provider %q", l.Provider)
	}
	if l.Model == "" {
		return fmt.Errorf("model is required")
	}
	if l.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be a positive integer")
	}
	if l.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute must not be negative")
	}
	return l.Retry.Validate()
}

// Validate checks the retry schedule.
func (r *RetryConfig) Validate() error {
	if r.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if r.InitialInterval <= 0 {
		return fmt.Errorf("retry.initial_interval must be a positive duration")
	}
	if r.MaxInterval < r.InitialInterval {
		return fmt.Errorf("retry.max_interval must not be shorter than retry.initial_interval")
	}
	if r.Multiplier < 1 {
		return fmt.Errorf("retry.multiplier must be at least 1")
	}
	return nil
}
