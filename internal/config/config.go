// Package config loads server settings from a YAML file plus the process
// environment, and knows which setting keys the system recognizes.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the server-level configuration. Per-install secrets live in
// the settings table and the environment, not here.
type Config struct {
	HTTPAddr     string `yaml:"http_addr"`
	MetricsAddr  string `yaml:"metrics_addr"`
	DBPath       string `yaml:"db_path"`
	NATSEnabled  bool   `yaml:"nats_enabled"`
	NATSURL      string `yaml:"nats_url"`
	NATSSubject  string `yaml:"nats_subject"`
	RedisEnabled bool   `yaml:"redis_enabled"`
	RedisAddr    string `yaml:"redis_addr"`
}

func Default() Config {
	return Config{
		HTTPAddr:    ":8420",
		MetricsAddr: ":9420",
		NATSURL:     "nats://127.0.0.1:4222",
		RedisAddr:   "127.0.0.1:6379",
	}
}

// Load reads the YAML config at path, layered over defaults. A missing
// file is not an error; the defaults stand.
func Load(path string) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// LoadEnvFile applies a dotenv file to the process environment without
// overriding variables that are already set. Missing file is fine.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

// ReloadEnvFile re-applies a dotenv file, overriding values already in
// the environment. Startup exported every key, so an edit would otherwise
// re-read the stale exported value. Missing file is fine.
func ReloadEnvFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Overload(path)
}

// Recognized setting keys. Anything else stored in settings is passed to
// the environment untouched but never surfaced in the settings API.
var RecognizedKeys = []string{
	"GOOGLE_API_KEY",
	"OPENAI_API_KEY",
	"ANTHROPIC_API_KEY",
	"OPENROUTER_API_KEY",
	"VIDEO_INGESTOR_MODEL",
	"DISCORD_WEBHOOK_URL",
	"TELEGRAM_BOT_TOKEN",
	"TELEGRAM_CHAT_ID",
	"VIDEOMEMORY_RTSP_PULL_PORT",
}

var sensitiveKeys = map[string]bool{
	"GOOGLE_API_KEY":     true,
	"OPENAI_API_KEY":     true,
	"ANTHROPIC_API_KEY":  true,
	"OPENROUTER_API_KEY": true,
	"TELEGRAM_BOT_TOKEN": true,
}

func IsRecognizedKey(key string) bool {
	for _, k := range RecognizedKeys {
		if k == key {
			return true
		}
	}
	return false
}

func IsSensitiveKey(key string) bool {
	return sensitiveKeys[key]
}

// MaskValue hides a secret, keeping the last four characters for
// recognition. Short values mask entirely.
func MaskValue(key, value string) string {
	if !IsSensitiveKey(key) || value == "" {
		return value
	}
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
}
