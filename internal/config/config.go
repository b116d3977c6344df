// Package config loads layered configuration: defaults, a YAML file, a
// .env file, VOCABQUIZ_ environment variables and command-line flags, in
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/conorfennell/vocabquiz/internal/validation"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is stripped from environment variables. A double underscore
// separates levels: VOCABQUIZ_QUIZ__WEAK_THRESHOLD sets quiz.weak_threshold.
const EnvPrefix = "VOCABQUIZ_"

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Quiz     QuizConfig     `koanf:"quiz"`
	Reward   RewardConfig   `koanf:"reward"`
	Sources  SourcesConfig  `koanf:"sources"`
	Suggest  SuggestConfig  `koanf:"suggest"`
	Log      LogConfig      `koanf:"log"`
}

type ServerConfig struct {
	Addr string `koanf:"addr" validate:"required"`
}

type DatabaseConfig struct {
	Path string `koanf:"path" validate:"required"`
}

type QuizConfig struct {
	WeakThreshold float64 `koanf:"weak_threshold" validate:"gte=0,lte=100"`
	MinAttempts   int     `koanf:"min_attempts" validate:"gte=0"`
	MaxQuestions  int     `koanf:"max_questions" validate:"gte=1"`
	Options       int     `koanf:"options" validate:"gte=2"`
	Fallback      string  `koanf:"fallback" validate:"oneof=all none"`
}

type RewardConfig struct {
	Threshold    float64 `koanf:"threshold" validate:"gt=0,lte=100"`
	MinAttempts  int     `koanf:"min_attempts" validate:"gte=0"`
	ImageBaseURL string  `koanf:"image_base_url" validate:"required,url"`
}

type SourcesConfig struct {
	ReposDir string `koanf:"repos_dir" validate:"required"`
}

type SuggestConfig struct {
	Provider string       `koanf:"provider" validate:"oneof=static openai"`
	OpenAI   OpenAIConfig `koanf:"openai"`
}

type OpenAIConfig struct {
	APIKey   string `koanf:"api_key"`
	Model    string `koanf:"model"`
	BaseURL  string `koanf:"base_url" validate:"omitempty,url"`
	Language string `koanf:"language"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Server:   ServerConfig{Addr: ":8080"},
		Database: DatabaseConfig{Path: "vocabquiz.db"},
		Quiz: QuizConfig{
			WeakThreshold: 70,
			MinAttempts:   3,
			MaxQuestions:  10,
			Options:       4,
			Fallback:      "all",
		},
		Reward: RewardConfig{
			Threshold:    90,
			MinAttempts:  0,
			ImageBaseURL: "https://example.com/cards",
		},
		Sources: SourcesConfig{ReposDir: "repos"},
		Suggest: SuggestConfig{
			Provider: "static",
			OpenAI:   OpenAIConfig{Model: "gpt-4o-mini", Language: "German"},
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"addr":       "server.addr",
	"db":         "database.path",
	"repos-dir":  "sources.repos_dir",
	"log-level":  "log.level",
	"log-format": "log.format",
}

// Options selects the sources Load reads. Empty fields are skipped.
type Options struct {
	File    string
	EnvFile string
	Flags   *pflag.FlagSet
}

// Load builds the configuration. A missing EnvFile is ignored; a missing
// File is an error.
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")

	if opts.File != "" {
		if err := k.Load(file.Provider(opts.File), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", opts.File, err)
		}
	}

	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", opts.EnvFile, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// Validate checks field ranges and cross-field requirements.
func (c *Config) Validate() error {
	if err := validation.Validator().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Suggest.Provider == "openai" && c.Suggest.OpenAI.APIKey == "" {
		return errors.New("invalid configuration: suggest.openai.api_key is required for the openai provider")
	}
	return nil
}
