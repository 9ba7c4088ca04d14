// Package config loads grammiz settings from a TOML file and GRAMMIZ_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/abhisek/grammiz/internal/llm"
	"github.com/abhisek/grammiz/internal/questiongen"
)

// FileConfig represents the TOML configuration file. Unset keys are nil.
type FileConfig struct {
	Quiz   QuizConfig   `toml:"quiz"`
	Backup BackupConfig `toml:"backup"`
	LLM    LLMConfig    `toml:"llm"`
	Log    LogConfig    `toml:"log"`
}

type QuizConfig struct {
	Count      *int    `toml:"count"`
	Difficulty *string `toml:"difficulty"`
}

type BackupConfig struct {
	BaseURL *string `toml:"base_url"`
	Timeout *string `toml:"timeout"`
}

type LLMConfig struct {
	Provider *string `toml:"provider"`
	Model    *string `toml:"model"`
	Timeout  *string `toml:"timeout"`
}

type LogConfig struct {
	Level *string `toml:"level"`
	File  *string `toml:"file"`
}

// Config is the resolved configuration.
type Config struct {
	QuizCount  int
	Difficulty questiongen.Difficulty

	BackupBaseURL string
	BackupTimeout time.Duration

	LLMProvider string
	LLMModel    string
	LLMTimeout  time.Duration

	LogLevel string
	LogFile  string
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		QuizCount:     10,
		Difficulty:    questiongen.DifficultyMedium,
		BackupTimeout: 10 * time.Second,
		LLMTimeout:    llm.DefaultTimeout,
		LogLevel:      "info",
	}
}

// LoadFile reads a TOML config from path. A missing file is not an error.
func LoadFile(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("stat config: %w", err)
	}
	var fc FileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return FileConfig{}, fmt.Errorf("decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("decode config: unknown key %q", undecoded[0].String())
	}
	return fc, nil
}

// Load resolves defaults, then the file at path, then the environment.
func Load(path string) (Config, error) {
	fc, err := LoadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	if err := cfg.apply(fc); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) apply(fc FileConfig) error {
	if v := fc.Quiz.Count; v != nil {
		c.QuizCount = *v
	}
	if v := fc.Quiz.Difficulty; v != nil {
		d, err := questiongen.ParseDifficulty(*v)
		if err != nil {
			return fmt.Errorf("quiz.difficulty: %w", err)
		}
		c.Difficulty = d
	}
	if v := fc.Backup.BaseURL; v != nil {
		c.BackupBaseURL = *v
	}
	if v := fc.Backup.Timeout; v != nil {
		d, err := parseDuration("backup.timeout", *v)
		if err != nil {
			return err
		}
		c.BackupTimeout = d
	}
	if v := fc.LLM.Provider; v != nil {
		c.LLMProvider = *v
	}
	if v := fc.LLM.Model; v != nil {
		c.LLMModel = *v
	}
	if v := fc.LLM.Timeout; v != nil {
		d, err := parseDuration("llm.timeout", *v)
		if err != nil {
			return err
		}
		c.LLMTimeout = d
	}
	if v := fc.Log.Level; v != nil {
		c.LogLevel = *v
	}
	if v := fc.Log.File; v != nil {
		c.LogFile = *v
	}
	return c.validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("GRAMMIZ_QUIZ_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GRAMMIZ_QUIZ_COUNT: %w", err)
		}
		c.QuizCount = n
	}
	if v := os.Getenv("GRAMMIZ_DIFFICULTY"); v != "" {
		d, err := questiongen.ParseDifficulty(v)
		if err != nil {
			return fmt.Errorf("GRAMMIZ_DIFFICULTY: %w", err)
		}
		c.Difficulty = d
	}
	if v := os.Getenv("GRAMMIZ_BACKUP_URL"); v != "" {
		c.BackupBaseURL = v
	}
	if v := os.Getenv("GRAMMIZ_LLM_PROVIDER"); v != "" {
		c.LLMProvider = v
	}
	if v := os.Getenv("GRAMMIZ_LLM_MODEL"); v != "" {
		c.LLMModel = v
	}
	if v := os.Getenv("GRAMMIZ_LLM_TIMEOUT"); v != "" {
		d, err := parseDuration("GRAMMIZ_LLM_TIMEOUT", v)
		if err != nil {
			return err
		}
		c.LLMTimeout = d
	}
	if v := os.Getenv("GRAMMIZ_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return c.validate()
}

func (c *Config) validate() error {
	if c.QuizCount <= 0 {
		return fmt.Errorf("quiz count must be positive, got %d", c.QuizCount)
	}
	return nil
}

// ApplyLLM copies the provider, model and timeout overrides into cfg.
func (c Config) ApplyLLM(cfg *llm.Config) {
	if c.LLMProvider != "" {
		cfg.Provider = c.LLMProvider
	}
	cfg.SetModel(c.LLMModel)
	if c.LLMTimeout > 0 {
		cfg.Timeout = c.LLMTimeout
	}
}

func parseDuration(key, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive", key)
	}
	return d, nil
}

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// DefaultPath returns the default TOML config path, honoring GRAMMIZ_CONFIG.
func DefaultPath() string {
	if v := os.Getenv("GRAMMIZ_CONFIG"); v != "" {
		return v
	}
	return filepath.Join(XDGConfigHome(), "grammiz", "config.toml")
}
