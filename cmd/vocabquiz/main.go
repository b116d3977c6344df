package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/conorfennell/vocabquiz/internal/config"
	"github.com/conorfennell/vocabquiz/internal/quiz"
	"github.com/conorfennell/vocabquiz/internal/reward"
	"github.com/conorfennell/vocabquiz/internal/storage"
	"github.com/conorfennell/vocabquiz/internal/suggest"
	"github.com/conorfennell/vocabquiz/internal/sync"
	"github.com/conorfennell/vocabquiz/internal/vocab"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the services shared by the commands.
type app struct {
	cfg    *config.Config
	db     *storage.DB
	vocab  *vocab.Service
	quiz   *quiz.Service
	syncer *sync.Syncer
}

// loadApp reads the configuration, installs the logger and opens the
// database.
func loadApp(cmd *cobra.Command) (*app, error) {
	configFile, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")

	cfg, err := config.Load(config.Options{File: configFile, EnvFile: envFile, Flags: cmd.Flags()})
	if err != nil {
		return nil, err
	}
	slog.SetDefault(newLogger(cfg.Log))

	db, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	slog.Debug("Database opened", "path", cfg.Database.Path)

	suggester, err := newSuggester(cfg.Suggest)
	if err != nil {
		db.Close()
		return nil, err
	}

	policy := &reward.Policy{
		Threshold:    cfg.Reward.Threshold,
		MinAttempts:  cfg.Reward.MinAttempts,
		ImageBaseURL: cfg.Reward.ImageBaseURL,
	}
	quizCfg := quiz.Config{
		WeakThreshold: cfg.Quiz.WeakThreshold,
		MinAttempts:   cfg.Quiz.MinAttempts,
		MaxQuestions:  cfg.Quiz.MaxQuestions,
		Options:       cfg.Quiz.Options,
		Fallback:      cfg.Quiz.Fallback,
	}

	return &app{
		cfg:    cfg,
		db:     db,
		vocab:  vocab.NewService(db, policy, suggester),
		quiz:   quiz.NewService(db, policy, quizCfg),
		syncer: sync.New(db, cfg.Sources.ReposDir),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Level))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func newSuggester(cfg config.SuggestConfig) (suggest.Suggester, error) {
	switch cfg.Provider {
	case "openai":
		o, err := suggest.NewOpenAI(suggest.OpenAIConfig{
			APIKey:   cfg.OpenAI.APIKey,
			Model:    cfg.OpenAI.Model,
			BaseURL:  cfg.OpenAI.BaseURL,
			Language: cfg.OpenAI.Language,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create suggester: %w", err)
		}
		return suggest.WithLogging(o), nil
	default:
		return suggest.WithLogging(suggest.Static{}), nil
	}
}
