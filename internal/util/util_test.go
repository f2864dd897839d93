package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	req := require.New(t)
	for _, key := range []string{"PORT", "NATS_URL", "REQUIRE_TOKEN", "TOKEN_TTL", "ALLOWED_ORIGIN"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	config, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	req.NoError(err)
	req.Equal(3000, config.Port)
	req.Equal(nats.DefaultURL, config.NatsURL)
	req.Equal(24*time.Hour, config.TokenTTL)
	req.False(config.RequireToken)
	req.Equal([]string{"http://localhost:3001"}, config.AllowedOrigins())
}

func TestLoadConfig_FromEnvAndFile(t *testing.T) {
	req := require.New(t)
	for _, key := range []string{"PORT", "AUTHOR_ONLY_EDITS", "OUTBOX_SIZE"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("ALLOWED_ORIGIN", "http://a.test, http://b.test")
	t.Setenv("JOURNAL_RETENTION", "1h")

	envFile := filepath.Join(t.TempDir(), "test.env")
	req.NoError(os.WriteFile(envFile, []byte("PORT=9090\nAUTHOR_ONLY_EDITS=true\nOUTBOX_SIZE=8\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("PORT")
		os.Unsetenv("AUTHOR_ONLY_EDITS")
		os.Unsetenv("OUTBOX_SIZE")
	})

	config, err := LoadConfig(envFile)
	req.NoError(err)
	req.Equal(9090, config.Port)
	req.True(config.AuthorOnlyEdits)
	req.Equal(8, config.OutboxSize)
	req.Equal(time.Hour, config.JournalRetention)
	req.Equal([]string{"http://a.test", "http://b.test"}, config.AllowedOrigins())
}

func TestLoadLoggerConfig(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		config, err := LoadLoggerConfig(filepath.Join(t.TempDir(), "nope.json"))
		require.NoError(t, err)
		assert.Equal(t, "info", config.Level)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logger.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"Level":"debug","LogToFile":false}`), 0o600))

		config, err := LoadLoggerConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "debug", config.Level)
		assert.False(t, config.LogToFile)
		assert.True(t, config.LogToJSON)
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logger.json")
		require.NoError(t, os.WriteFile(path, []byte(`{`), 0o600))

		_, err := LoadLoggerConfig(path)
		require.Error(t, err)
	})
}
