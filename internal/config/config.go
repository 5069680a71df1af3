// Package config loads the resolver's tunable ambient settings — the
// staleness threshold, its allow-list, and the registry command name —
// from a ".peerresolve" config file, environment variables, or flags, in
// that increasing order of precedence, via viper.
package config

import (
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the resolved, typed view of the resolver's ambient settings.
type Config struct {
	StaleThresholdDays int
	StaleAllowList     []string
	RegistryCommand    string
}

// StaleThreshold returns StaleThresholdDays as a time.Duration.
func (c Config) StaleThreshold() time.Duration {
	return time.Duration(c.StaleThresholdDays) * 24 * time.Hour
}

// AllowListSet returns StaleAllowList as a lookup set.
func (c Config) AllowListSet() map[string]bool {
	set := make(map[string]bool, len(c.StaleAllowList))
	for _, name := range c.StaleAllowList {
		set[name] = true
	}
	return set
}

// Defaults are applied before any config file, environment variable, or
// flag is consulted.
var Defaults = Config{
	StaleThresholdDays: 365,
	StaleAllowList:     nil,
	RegistryCommand:    "npm",
}

// Load builds a viper instance layered config file < environment < flags
// and returns the resolved Config. searchPaths lists directories to look
// for a ".peerresolve.yaml"/".peerresolve.json" file in; flags, if
// non-nil, is consulted last (highest precedence).
func Load(searchPaths []string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetConfigName(".peerresolve")
	v.SetConfigType("yaml")
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}

	v.SetDefault("stale.threshold-days", Defaults.StaleThresholdDays)
	v.SetDefault("stale.allow", Defaults.StaleAllowList)
	v.SetDefault("registry.command", Defaults.RegistryCommand)

	v.SetEnvPrefix("peerresolve")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return Config{}, err
		}
	}

	return Config{
		StaleThresholdDays: v.GetInt("stale.threshold-days"),
		StaleAllowList:     v.GetStringSlice("stale.allow"),
		RegistryCommand:    v.GetString("registry.command"),
	}, nil
}
