// internal/config/config.go
//
// Process configuration read from the environment (after godotenv has loaded
// any .env file). Every value has a development default.
//
//   PORT              listen port                       (5175)
//   LOG_LEVEL         zerolog level                     (info)
//   DB_PATH           SQLite file                       (./data/wordly.db)
//   SESSION_SECRET    HS256 key for session cookies     (dev_secret_change_me)
//   APP_ENV           "production" enables Secure cookies
//   CLIENT_ORIGIN     CORS origin                       (http://localhost:5173)
//   WORD_API_URL      lookup template with {length}; "off" disables the lookup
//   WORD_API_TIMEOUT  lookup timeout                    (3s)
//   COOLDOWN          unlimited-mode pause              (30s)
//   DAILY_SALT        salt for the word of the day      (local_dev_salt)
//   WORDS_DIR         directory with <n>.txt overrides  (unset)
//   SESSION_IDLE_TTL  stop session engines idle this long (30m)

package config

import (
	"fmt"
	"os"
	"time"
)

// DefaultWordAPI is the public random-word endpoint used when WORD_API_URL is unset.
const DefaultWordAPI = "https://random-word-api.herokuapp.com/word?length={length}&number=50"

type Config struct {
	Port          string
	LogLevel      string
	DBPath        string
	SessionSecret string
	Production    bool
	ClientOrigin  string
	WordAPIURL    string
	WordTimeout   time.Duration
	Cooldown      time.Duration
	DailySalt     string
	WordsDir      string
	IdleTTL       time.Duration
}

// Load reads the environment. Malformed durations are errors.
func Load() (Config, error) {
	c := Config{
		Port:          getEnv("PORT", "5175"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DBPath:        getEnv("DB_PATH", "./data/wordly.db"),
		SessionSecret: getEnv("SESSION_SECRET", "dev_secret_change_me"),
		Production:    os.Getenv("APP_ENV") == "production",
		ClientOrigin:  getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		WordAPIURL:    getEnv("WORD_API_URL", DefaultWordAPI),
		DailySalt:     getEnv("DAILY_SALT", "local_dev_salt"),
		WordsDir:      os.Getenv("WORDS_DIR"),
	}
	if c.WordAPIURL == "off" {
		c.WordAPIURL = ""
	}

	var err error
	if c.WordTimeout, err = getDuration("WORD_API_TIMEOUT", 3*time.Second); err != nil {
		return c, err
	}
	if c.Cooldown, err = getDuration("COOLDOWN", 30*time.Second); err != nil {
		return c, err
	}
	if c.IdleTTL, err = getDuration("SESSION_IDLE_TTL", 30*time.Minute); err != nil {
		return c, err
	}
	if c.Cooldown < time.Second {
		return c, fmt.Errorf("COOLDOWN must be at least 1s, got %s", c.Cooldown)
	}
	return c, nil
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getDuration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return d, nil
}
