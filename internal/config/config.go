// Package config loads server configuration from an optional YAML file,
// environment variables, and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the server.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Game     GameConfig     `mapstructure:"game"`
	Provider ProviderConfig `mapstructure:"provider"`
	Payout   PayoutConfig   `mapstructure:"payout"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig holds transport settings.
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// GameConfig holds the room and turn-engine parameters.
type GameConfig struct {
	GridRadius   int           `mapstructure:"grid_radius"`
	MaxTurns     int           `mapstructure:"max_turns"`
	RoomCapacity int           `mapstructure:"room_capacity"`
	StartDelay   time.Duration `mapstructure:"start_delay"`
	TurnDelay    time.Duration `mapstructure:"turn_delay"`
}

// ProviderConfig holds settings for the external decision provider.
type ProviderConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// PayoutConfig holds settings for the external transfer collaborator.
type PayoutConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	APIKey        string `mapstructure:"api_key"`
	Chain         string `mapstructure:"chain"`
	TokenAddress  string `mapstructure:"token_address"`
	SenderAddress string `mapstructure:"sender_address"`
	Amount        int64  `mapstructure:"amount"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from the given path. A missing file is not an
// error; defaults and HEXHAVOC_* environment variables still apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.address", ":4000")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("game.grid_radius", 3)
	v.SetDefault("game.max_turns", 10)
	v.SetDefault("game.room_capacity", 4)
	v.SetDefault("game.start_delay", time.Second)
	v.SetDefault("game.turn_delay", 2*time.Second)
	v.SetDefault("provider.base_url", "https://api.openai.com/v1")
	v.SetDefault("provider.model", "gpt-3.5-turbo")
	v.SetDefault("provider.temperature", 0.7)
	v.SetDefault("provider.timeout", 30*time.Second)
	v.SetDefault("payout.chain", "ethereum")
	v.SetDefault("payout.amount", 1)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetEnvPrefix("HEXHAVOC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Game.GridRadius < 1 {
		return fmt.Errorf("game.grid_radius must be at least 1, got %d", c.Game.GridRadius)
	}
	if c.Game.MaxTurns < 1 {
		return fmt.Errorf("game.max_turns must be at least 1, got %d", c.Game.MaxTurns)
	}
	if c.Game.RoomCapacity < 2 {
		return fmt.Errorf("game.room_capacity must be at least 2, got %d", c.Game.RoomCapacity)
	}
	return nil
}
