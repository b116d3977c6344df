package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestLoadPrecedence(t *testing.T) {
	yamlPath := writeFile(t, "config.yaml", `
server:
  addr: ":9000"
quiz:
  weak_threshold: 60
  max_questions: 5
reward:
  threshold: 95
log:
  level: debug
`)
	envPath := writeFile(t, ".env", "VOCABQUIZ_QUIZ__MAX_QUESTIONS=7\nVOCABQUIZ_DATABASE__PATH=/tmp/from-dotenv.db\n")
	t.Setenv("VOCABQUIZ_QUIZ__MAX_QUESTIONS", "8")
	t.Cleanup(func() { os.Unsetenv("VOCABQUIZ_DATABASE__PATH") })

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("addr", ":8080", "")
	flags.String("db", "vocabquiz.db", "")
	flags.String("log-level", "info", "")
	require.NoError(t, flags.Parse([]string{"--addr", ":7000"}))

	cfg, err := Load(Options{File: yamlPath, EnvFile: envPath, Flags: flags})
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.Addr, "flag beats file")
	assert.Equal(t, 60.0, cfg.Quiz.WeakThreshold, "file beats default")
	assert.Equal(t, 8, cfg.Quiz.MaxQuestions, "environment beats .env and file")
	assert.Equal(t, "/tmp/from-dotenv.db", cfg.Database.Path, ".env beats default")
	assert.Equal(t, 95.0, cfg.Reward.Threshold)
	assert.Equal(t, "debug", cfg.Log.Level, "unchanged flag does not override file")
	assert.Equal(t, 4, cfg.Quiz.Options, "default kept")
}

func TestLoadInvalid(t *testing.T) {
	testCases := []struct {
		name string
		yaml string
	}{
		{"threshold above 100", "reward:\n  threshold: 120\n"},
		{"unknown fallback", "quiz:\n  fallback: some\n"},
		{"too few options", "quiz:\n  options: 1\n"},
		{"openai without key", "suggest:\n  provider: openai\n"},
		{"unknown log format", "log:\n  format: xml\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(Options{File: writeFile(t, "config.yaml", tc.yaml)})
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(Options{File: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)

	_, err = Load(Options{EnvFile: filepath.Join(t.TempDir(), ".env")})
	assert.NoError(t, err, "a missing .env file is ignored")
}
