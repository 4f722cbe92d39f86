// Package config loads bot configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"log"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, falling back to system environment variables")
	}
}

type Config struct {
	// StoragePath is the permissions/data file. Extension selects the
	// codec: .yml/.yaml for YAML, anything else JSON.
	StoragePath string `env:"ULTROS_STORAGE_PATH" envDefault:"ultros.yml"`

	LogLevel  string `env:"ULTROS_LOG_LEVEL" envDefault:"info"`
	LogFile   string `env:"ULTROS_LOG_FILE"`
	LogPretty bool   `env:"ULTROS_LOG_PRETTY" envDefault:"false"`

	// Superadmin enables the superadmin option short-circuit in permission
	// checks.
	Superadmin bool `env:"ULTROS_SUPERADMIN" envDefault:"true"`

	// CommandPrefix is the default control prefix for protocols that do not
	// configure their own. Supports {NAME} and {NICK} tokens.
	CommandPrefix string `env:"ULTROS_COMMAND_PREFIX" envDefault:"."`

	// Rate limiting for command execution, tokens per second and burst per
	// caller+command pair. Zero rate disables limiting.
	RateLimit      float64 `env:"ULTROS_RATE_LIMIT" envDefault:"1"`
	RateLimitBurst int     `env:"ULTROS_RATE_LIMIT_BURST" envDefault:"3"`

	IRC IRCConfig `envPrefix:"ULTROS_IRC_"`
}

// IRCConfig configures the in-tree IRC adapter.
type IRCConfig struct {
	Enabled  bool     `env:"ENABLED" envDefault:"false"`
	Address  string   `env:"ADDRESS" envDefault:"irc.libera.chat:6697"`
	TLS      bool     `env:"TLS" envDefault:"true"`
	Nick     string   `env:"NICK" envDefault:"Ultros"`
	Channels []string `env:"CHANNELS" envSeparator:","`
	Prefix   string   `env:"PREFIX"`
}

// New parses configuration from the environment.
func New() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
