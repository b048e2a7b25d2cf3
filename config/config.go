// Package config loads the settings of the command line tool from a config
// file, the environment and command line flags.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to the names of the environment variables that
// override settings. The setting monitor.port is read from
// SELFTIME_MONITOR_PORT.
const EnvPrefix = "SELFTIME"

// Keys of the settings.
const (
	KeyFormat         = "format"
	KeyTop            = "top"
	KeyDB             = "db"
	KeyVirtual        = "virtual"
	KeyMonitorPort    = "monitor.port"
	KeyMonitorOpen    = "monitor.open"
	KeyLogLevel       = "log.level"
	KeyLogDevelopment = "log.development"
)

// Config holds all the settings.
type Config struct {
	Format  string        `mapstructure:"format"`
	Top     int           `mapstructure:"top"`
	DB      string        `mapstructure:"db"`
	Virtual bool          `mapstructure:"virtual"`
	Monitor MonitorConfig `mapstructure:"monitor"`
	Log     LogConfig     `mapstructure:"log"`
}

// MonitorConfig configures the monitoring server. Port 0 disables it.
type MonitorConfig struct {
	Port int  `mapstructure:"port"`
	Open bool `mapstructure:"open"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// NewViper creates a viper instance that knows every setting, with its
// default, and reads overrides from the environment.
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetDefault(KeyFormat, "table")
	v.SetDefault(KeyTop, 0)
	v.SetDefault(KeyDB, "")
	v.SetDefault(KeyVirtual, false)
	v.SetDefault(KeyMonitorPort, 0)
	v.SetDefault(KeyMonitorOpen, false)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogDevelopment, false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the config file into v and returns the resulting settings. If
// cfgFile is empty, config.yaml is searched for in $HOME/.selftime and a
// missing file is not an error.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".selftime"))
		}

		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "reading config")
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}

	return c, nil
}

// LoadDotEnv exports the variables of an env file into the environment.
// Variables that are already set are kept. A missing file is ignored.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "loading env file %s", path)
	}

	return nil
}
