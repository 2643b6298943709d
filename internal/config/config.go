// Package config loads bot settings from an optional YAML file overlaid by
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	BackendSQLite   = "sqlite"
	BackendDynamoDB = "dynamodb"

	defaultSQLitePath  = "reviews.db"
	defaultMetricsAddr = ":9090"
)

// Config is the full set of runtime settings. YAML keys match the field tags;
// each field can be overridden by the environment variable in its comment.
type Config struct {
	// BOT_TOKEN. When empty the token is read from <ParamPrefix>/telegram-token.
	BotToken string `yaml:"bot_token"`
	// PARAM_PREFIX
	ParamPrefix string `yaml:"param_prefix"`
	// OPERATORS, comma separated. The first id is the primary operator.
	// When empty the list is read from <ParamPrefix>/operators.
	Operators string `yaml:"operators"`

	// REVIEW_BACKEND: sqlite or dynamodb.
	ReviewBackend string `yaml:"review_backend"`
	// SQLITE_PATH
	SQLitePath string `yaml:"sqlite_path"`
	// REVIEWS_TABLE
	ReviewsTable string `yaml:"reviews_table"`
	// SESSIONS_TABLE. Empty keeps sessions in memory.
	SessionsTable string `yaml:"sessions_table"`

	// ASK_SUBJECT
	AskSubject bool `yaml:"ask_subject"`
	// WELCOME_IMAGE: URL or Telegram file id sent with the greeting.
	WelcomeImage string `yaml:"welcome_image"`
	// WEBHOOK_SECRET: expected X-Telegram-Bot-Api-Secret-Token value.
	WebhookSecret string `yaml:"webhook_secret"`
	// METRICS_ADDR
	MetricsAddr string `yaml:"metrics_addr"`
}

func defaults() Config {
	return Config{
		ReviewBackend: BackendSQLite,
		SQLitePath:    defaultSQLitePath,
		AskSubject:    true,
		MetricsAddr:   defaultMetricsAddr,
	}
}

// Load reads path (skipped when empty), applies the environment from getenv
// and validates the result.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := defaults()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if getenv == nil {
		getenv = os.Getenv
	}
	if err := applyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str("BOT_TOKEN", &cfg.BotToken)
	str("PARAM_PREFIX", &cfg.ParamPrefix)
	str("OPERATORS", &cfg.Operators)
	str("REVIEW_BACKEND", &cfg.ReviewBackend)
	str("SQLITE_PATH", &cfg.SQLitePath)
	str("REVIEWS_TABLE", &cfg.ReviewsTable)
	str("SESSIONS_TABLE", &cfg.SessionsTable)
	str("WELCOME_IMAGE", &cfg.WelcomeImage)
	str("WEBHOOK_SECRET", &cfg.WebhookSecret)
	str("METRICS_ADDR", &cfg.MetricsAddr)

	if v := strings.TrimSpace(getenv("ASK_SUBJECT")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: ASK_SUBJECT: %w", err)
		}
		cfg.AskSubject = b
	}
	cfg.ParamPrefix = strings.TrimRight(cfg.ParamPrefix, "/")
	cfg.ReviewBackend = strings.ToLower(cfg.ReviewBackend)
	return nil
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	if c.BotToken == "" && c.ParamPrefix == "" {
		return errors.New("config: BOT_TOKEN or PARAM_PREFIX is required")
	}
	if c.Operators == "" && c.ParamPrefix == "" {
		return errors.New("config: OPERATORS or PARAM_PREFIX is required")
	}
	switch c.ReviewBackend {
	case BackendSQLite:
		if c.SQLitePath == "" {
			return errors.New("config: SQLITE_PATH must not be empty")
		}
	case BackendDynamoDB:
		if c.ReviewsTable == "" {
			return errors.New("config: REVIEWS_TABLE is required for the dynamodb backend")
		}
	default:
		return fmt.Errorf("config: unknown review backend %q", c.ReviewBackend)
	}
	return nil
}
