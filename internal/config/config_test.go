package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var keys = []string{
	"PORT", "LOG_LEVEL", "DB_PATH", "SESSION_SECRET", "APP_ENV", "CLIENT_ORIGIN",
	"WORD_API_URL", "WORD_API_TIMEOUT", "COOLDOWN", "DAILY_SALT", "WORDS_DIR", "SESSION_IDLE_TTL",
}

func clearEnv(t *testing.T) {
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, Config{
		Port:          "5175",
		LogLevel:      "info",
		DBPath:        "./data/wordly.db",
		SessionSecret: "dev_secret_change_me",
		ClientOrigin:  "http://localhost:5173",
		WordAPIURL:    DefaultWordAPI,
		WordTimeout:   3 * time.Second,
		Cooldown:      30 * time.Second,
		DailySalt:     "local_dev_salt",
		IdleTTL:       30 * time.Minute,
	}, c)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("APP_ENV", "production")
	t.Setenv("WORD_API_URL", "off")
	t.Setenv("WORD_API_TIMEOUT", "750ms")
	t.Setenv("COOLDOWN", "1m")
	t.Setenv("WORDS_DIR", "/srv/words")
	t.Setenv("SESSION_IDLE_TTL", "2h")

	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, "8080", c.Port)
	require.True(t, c.Production)
	require.Empty(t, c.WordAPIURL, `"off" disables the lookup`)
	require.Equal(t, 750*time.Millisecond, c.WordTimeout)
	require.Equal(t, time.Minute, c.Cooldown)
	require.Equal(t, "/srv/words", c.WordsDir)
	require.Equal(t, 2*time.Hour, c.IdleTTL)
}

func TestLoad_Errors(t *testing.T) {
	cases := map[string][2]string{
		"malformed timeout":  {"WORD_API_TIMEOUT", "soon"},
		"malformed cooldown": {"COOLDOWN", "30"},
		"cooldown too short": {"COOLDOWN", "500ms"},
		"malformed idle ttl": {"SESSION_IDLE_TTL", "forever"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			require.Error(t, err)
			require.Contains(t, err.Error(), kv[0])
		})
	}
}
