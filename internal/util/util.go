// internal/util/util.go
package util

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/erilali/messenger/internal/logger"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Port             int           `env:"PORT,default=3000"`
	NatsURL          string        `env:"NATS_URL"`
	JWTSecret        string        `env:"JWT_SECRET,default=your-secret-key"`
	TokenTTL         time.Duration `env:"TOKEN_TTL,default=24h"`
	AllowedOrigin    string        `env:"ALLOWED_ORIGIN,default=http://localhost:3001"`
	RequireToken     bool          `env:"REQUIRE_TOKEN,default=false"`
	AuthorOnlyEdits  bool          `env:"AUTHOR_ONLY_EDITS,default=false"`
	OutboxSize       int           `env:"OUTBOX_SIZE,default=256"`
	MaxContentLength int           `env:"MAX_CONTENT_LENGTH,default=2000"`
	JournalRetention time.Duration `env:"JOURNAL_RETENTION,default=30m"`
	LogConfigPath    string        `env:"LOG_CONFIG_PATH,default=logger_config.json"`
}

// AllowedOrigins splits the comma separated ALLOWED_ORIGIN value.
func (c Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigin, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// LoadConfig reads a .env file when one exists, then the environment.
func LoadConfig(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return Config{}, err
		}
	}

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, err
	}
	if config.NatsURL == "" {
		config.NatsURL = nats.DefaultURL
	}
	return config, nil
}

// LoadLoggerConfig loads the logger configuration from a JSON file
func LoadLoggerConfig(filePath string) (logger.LogConfig, error) {
	config := logger.DefaultLogConfig()
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return config, err
	}
	defer file.Close()
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&config); err != nil {
		return config, err
	}
	return config, nil
}
