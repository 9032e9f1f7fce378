package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/turtacn/MechanismLab/pkg/errors"
)

// EnvPrefix is the environment variable prefix for every setting.
const EnvPrefix = "MECHLAB"

// newViper builds a Viper instance with YAML file type, MECHLAB_ env prefix
// and a "." → "_" key replacer, so "server.http.port" resolves to
// MECHLAB_SERVER_HTTP_PORT.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	registerKeys(v)
	return v
}

// Load reads the YAML file at configPath, merges MECHLAB_* overrides, applies
// defaults and validates. An empty path behaves like LoadFromEnv.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return LoadFromEnv()
	}
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeInvalidConfig, "config: failed to read config file %q", configPath)
	}
	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from MECHLAB_* variables and defaults only.
//
//	MECHLAB_<SECTION>_<FIELD>   e.g.  MECHLAB_REDIS_ENABLED, MECHLAB_ENGINE_MAX_BATCH_SIZE
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidConfig, "config: failed to unmarshal configuration")
	}
	ApplyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Watch re-reads configPath whenever it changes on disk and passes the new
// Config to onChange. A change that fails to parse or validate goes to
// onError, when set, and onChange is skipped. Only the initial read error is
// returned; watching continues in a viper-managed goroutine.
func Watch(configPath string, onChange func(*Config), onError func(error)) error {
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, errors.ErrCodeInvalidConfig, "config: failed to read config file %q", configPath)
	}

	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// MustLoad is Load for main(), where a config failure is always fatal.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
