// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Census Census `yaml:"census" mapstructure:"census"`
	Tiger  Tiger  `yaml:"tiger" mapstructure:"tiger"`
	Render Render `yaml:"render" mapstructure:"render"`
	Export Export `yaml:"export" mapstructure:"export"`
	Store  Store  `yaml:"store" mapstructure:"store"`
	Server Server `yaml:"server" mapstructure:"server"`
	Log    Log    `yaml:"log" mapstructure:"log"`
}

// Census configures the ACS API client.
type Census struct {
	APIKey    string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	Dataset   string `yaml:"dataset" mapstructure:"dataset"`
	Year      int    `yaml:"year" mapstructure:"year"`
	StateFIPS string `yaml:"state_fips" mapstructure:"state_fips"`
}

// Tiger configures boundary downloads.
type Tiger struct {
	CacheDir string `yaml:"cache_dir" mapstructure:"cache_dir"`
	UseFTP   bool   `yaml:"use_ftp" mapstructure:"use_ftp"`
}

// Render configures choropleth output.
type Render struct {
	Width   int    `yaml:"width" mapstructure:"width"`
	Height  int    `yaml:"height" mapstructure:"height"`
	Classes int    `yaml:"classes" mapstructure:"classes"`
	Title   string `yaml:"title" mapstructure:"title"`
}

// Export configures file outputs.
type Export struct {
	Dir      string `yaml:"dir" mapstructure:"dir"`
	BaseName string `yaml:"base_name" mapstructure:"base_name"`
	Formats  string `yaml:"formats" mapstructure:"formats"`
}

// Store configures the database backend.
type Store struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// Server configures the HTTP API.
type Server struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// Log configures logging.
type Log struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("EQUITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("census.base_url", "https://api.census.gov/data")
	v.SetDefault("census.dataset", "acs/acs5")
	v.SetDefault("census.year", 2019)
	v.SetDefault("census.state_fips", "36")
	v.SetDefault("tiger.cache_dir", "data/tiger")
	v.SetDefault("tiger.use_ftp", false)
	v.SetDefault("render.width", 1000)
	v.SetDefault("render.height", 800)
	v.SetDefault("render.classes", 5)
	v.SetDefault("export.dir", "out")
	v.SetDefault("export.base_name", "counties")
	v.SetDefault("export.formats", "")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "equity.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg Log) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
