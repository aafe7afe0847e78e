package config

// Package config provides a reusable loader for the state-database node's
// configuration files and environment variables.
//
// Version: v0.1.0

import (
	"fmt"

	"github.com/spf13/viper"

	"synnergy-statedb/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config represents the unified configuration for a state-database host
// process. It mirrors the structure of the YAML files under cmd/config.
type Config struct {
	Database struct {
		// BaseRowFee is loaded from database.base_row_fee but not passed to
		// billing: core charges its compiled-in baseRowFee constant (200).
		BaseRowFee int `mapstructure:"base_row_fee" json:"base_row_fee"`
		// CheckTimeInstructions bounds how many guest ABI calls a single
		// action may make before checktime aborts it.
		CheckTimeInstructions int `mapstructure:"checktime_instructions" json:"checktime_instructions"`
		// MaxIteratorCache caps live iterator handles per DatabaseAPI
		// instance, guarding against unbounded guest iterator churn.
		MaxIteratorCache int `mapstructure:"max_iterator_cache" json:"max_iterator_cache"`
	} `mapstructure:"database" json:"database"`

	VM struct {
		GasLimit    uint64 `mapstructure:"gas_limit" json:"gas_limit"`
		MemoryPages uint32 `mapstructure:"memory_pages" json:"memory_pages"`
	} `mapstructure:"vm" json:"vm"`

	Storage struct {
		DBPath string `mapstructure:"db_path" json:"db_path"`
		Prune  bool   `mapstructure:"prune" json:"prune"`
	} `mapstructure:"storage" json:"storage"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and returned.
//
// The function uses the provided environment name to merge additional config
// files. If env is empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv() // consult process environment variables, not a .env file

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the SYNN_ENV environment variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("SYNN_ENV", ""))
}
