package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/tordrt/levelschema/internal/logging"
	"github.com/tordrt/levelschema/internal/shared"
)

const (
	// DefaultFileName is looked up in the working directory when no
	// --config flag is given.
	DefaultFileName = "levelschema.toml"
	envPrefix       = "LEVELSCHEMA"
)

// Config holds the tool's configuration.
type Config struct {
	Database DatabaseConfig `toml:"database" mapstructure:"database"`
	Logging  LoggingConfig  `toml:"logging" mapstructure:"logging"`
}

// DatabaseConfig holds the connection settings.
type DatabaseConfig struct {
	URL    string `toml:"url" mapstructure:"url"`         // postgres://, mysql:// or sqlite://
	Schema string `toml:"schema" mapstructure:"schema"`   // PostgreSQL/MySQL schema, empty for the default
	SSL    bool   `toml:"ssl" mapstructure:"ssl"`         // PostgreSQL only
	CACert string `toml:"ca_cert" mapstructure:"ca_cert"` // PEM root certificate, implies verify-ca
}

// LoggingConfig holds the logging configuration.
type LoggingConfig struct {
	Level  string `toml:"level" mapstructure:"level"`
	Format string `toml:"format" mapstructure:"format"` // "text" or "json"
}

// Overrides are values given on the command line. Empty fields leave the
// loaded configuration untouched.
type Overrides struct {
	DatabaseURL string
	LogLevel    string
	SSL         *bool
	CACert      string
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// LoadDotEnv loads variables from a .env file without overriding the
// environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load reads the configuration. With an empty path levelschema.toml is looked
// up in the working directory and may be absent; an explicit path must exist.
// Environment variables prefixed with LEVELSCHEMA_ (and DATABASE_URL) take
// precedence over the file.
func Load(path string) (*Config, error) {
	def := Default()

	v := viper.New()
	v.SetDefault("database.url", def.Database.URL)
	v.SetDefault("database.schema", def.Database.Schema)
	v.SetDefault("database.ssl", def.Database.SSL)
	v.SetDefault("database.ca_cert", def.Database.CACert)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("database.url", envPrefix+"_DATABASE_URL", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(DefaultFileName, ".toml"))
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// ApplyOverrides applies command line values on top of the loaded
// configuration.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.DatabaseURL != "" {
		c.Database.URL = o.DatabaseURL
	}
	if o.LogLevel != "" {
		c.Logging.Level = o.LogLevel
	}
	if o.SSL != nil {
		c.Database.SSL = *o.SSL
	}
	if o.CACert != "" {
		c.Database.CACert = o.CACert
	}
}

// Validate checks the logging settings.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log format %q: want text or json", c.Logging.Format)
	}
	if c.Database.CACert != "" && !c.Database.SSL {
		return errors.New("database.ca_cert requires database.ssl")
	}
	return nil
}

// RequireDatabase returns ErrMissingDatabaseURL when no URL is configured.
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return shared.ErrMissingDatabaseURL
	}
	return nil
}

// SaveConfig writes cfg as TOML to path, replacing any existing file.
func SaveConfig(path string, cfg *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrCreateFile, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrEncodeFile, err)
	}
	return nil
}
