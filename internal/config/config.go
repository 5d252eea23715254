// Package config loads the settings of the mvp command.
//
// Values are resolved in this order, later sources winning:
//
//  1. defaults from the struct tags
//  2. a .env file, if present, and the process environment (prefix MVP_)
//  3. a YAML config file, if one is given
//
// Command line flags are applied on top by the command itself.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

const EnvPrefix = "MVP"

// Config holds the search settings and the ambient settings of a run.
type Config struct {
	Step       float64 `yaml:"step" envconfig:"STEP" default:"0.00001" validate:"gt=0,lt=1"`
	MinSavings float64 `yaml:"min_savings" envconfig:"MIN_SAVINGS" default:"0.0000000000001" validate:"gte=0"`
	MaxRounds  int     `yaml:"max_rounds" envconfig:"MAX_ROUNDS" default:"0" validate:"gte=0"`
	Restarts   int     `yaml:"restarts" envconfig:"RESTARTS" default:"1" validate:"gte=1"`
	Workers    int     `yaml:"workers" envconfig:"WORKERS" default:"4" validate:"gte=1"`
	Seed       int64   `yaml:"seed" envconfig:"SEED" default:"1"`
	Cache      bool    `yaml:"cache" envconfig:"CACHE" default:"false"`
	LogLevel   string  `yaml:"log_level" envconfig:"LOG_LEVEL" default:"info" validate:"oneof=panic fatal error warn warning info debug trace"`
	LogFile    string  `yaml:"log_file" envconfig:"LOG_FILE"`
	DBPath     string  `yaml:"db_path" envconfig:"DB_PATH"`
}

var validate = validator.New()

// Load resolves the configuration.  envFile and configFile may be empty; a
// missing envFile is ignored, a missing configFile is an error.
func Load(envFile, configFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
