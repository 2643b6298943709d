package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(key string) string { return m[key] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", envMap(map[string]string{"BOT_TOKEN": "123:abc", "OPERATORS": "42"}))
	require.NoError(t, err)
	require.Equal(t, BackendSQLite, cfg.ReviewBackend)
	require.Equal(t, "reviews.db", cfg.SQLitePath)
	require.True(t, cfg.AskSubject)
	require.Equal(t, ":9090", cfg.MetricsAddr)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
param_prefix: /feedback-bot/
operators: "42,43"
review_backend: dynamodb
reviews_table: reviews
ask_subject: false
welcome_image: https://example.org/poster.jpg
`), 0o600))

	cfg, err := Load(path, envMap(map[string]string{
		"OPERATORS":      "7",
		"SESSIONS_TABLE": "sessions",
	}))
	require.NoError(t, err)
	require.Equal(t, "/feedback-bot", cfg.ParamPrefix)
	require.Equal(t, "7", cfg.Operators)
	require.Equal(t, BackendDynamoDB, cfg.ReviewBackend)
	require.Equal(t, "reviews", cfg.ReviewsTable)
	require.Equal(t, "sessions", cfg.SessionsTable)
	require.False(t, cfg.AskSubject)
	require.Equal(t, "https://example.org/poster.jpg", cfg.WelcomeImage)
}

func TestLoad_Errors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		msg  string
	}{
		{name: "no token source", env: map[string]string{"OPERATORS": "42"}, msg: "BOT_TOKEN"},
		{name: "no operators source", env: map[string]string{"BOT_TOKEN": "t"}, msg: "OPERATORS"},
		{name: "bad bool", env: map[string]string{"PARAM_PREFIX": "/p", "ASK_SUBJECT": "maybe"}, msg: "ASK_SUBJECT"},
		{name: "unknown backend", env: map[string]string{"PARAM_PREFIX": "/p", "REVIEW_BACKEND": "postgres"}, msg: "unknown review backend"},
		{name: "dynamodb without table", env: map[string]string{"PARAM_PREFIX": "/p", "REVIEW_BACKEND": "DynamoDB"}, msg: "REVIEWS_TABLE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load("", envMap(tc.env))
			require.ErrorContains(t, err, tc.msg)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), envMap(nil))
	require.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("operators: [unclosed"), 0o600))
	_, err := Load(path, envMap(nil))
	require.ErrorContains(t, err, "parse")
}
