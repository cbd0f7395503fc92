// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/wardenauth/warden/internal/xdg"
)

// EnvPrefix prefixes every environment variable Warden reads.
const EnvPrefix = "WARDEN_"

// LegacyDatabaseURLEnv is honoured for compatibility with existing deployments.
// WARDEN_DATABASE__URL takes precedence over it.
const LegacyDatabaseURLEnv = "DATABASE_URL"

// flagKeys maps command-line flag names to configuration keys. Flags not listed
// here are ignored by Load.
var flagKeys = map[string]string{
	"http-addr":    "http.addr",
	"metrics-addr": "metrics.addr",
	"log-level":    "log.level",
	"log-format":   "log.format",
	"database-url": "database.url",
}

// LoadOptions selects the sources Load reads besides defaults and environment.
type LoadOptions struct {
	// File is an explicit config file. When empty, the XDG config file is
	// used if it exists.
	File string
	// Flags, if set, overrides keys with the flags the user changed.
	Flags *pflag.FlagSet
	// Environ replaces os.Environ, for tests.
	Environ func() []string
}

// Load builds a Config from all sources and validates it.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	path := opts.File
	if path == "" {
		if p, ok := xdg.ExistingConfigFile(); ok {
			path = p
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "read config file").
				With("path", path).
				Wrap(err)
		}
	}

	environ := opts.Environ
	if environ == nil {
		environ = os.Environ
	}
	vars := environ()

	if v, ok := lookup(vars, LegacyDatabaseURLEnv); ok && v != "" {
		if err := k.Set("database.url", v); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "apply "+LegacyDatabaseURLEnv).Wrap(err)
		}
	}

	envProvider := env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envKey,
		EnvironFunc:   func() []string { return vars },
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "read environment").Wrap(err)
	}

	if opts.Flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(opts.Flags, ".", k, flagKey(opts.Flags)), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "read flags").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "decode config").Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey turns WARDEN_DELIVERY__SMTP__HOST into delivery.smtp.host. Single
// underscores are kept because keys like store_timeout contain them.
func envKey(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	return strings.ReplaceAll(key, "__", "."), value
}

// flagKey maps changed flags through flagKeys. An empty key tells posflag to
// skip the flag.
func flagKey(fs *pflag.FlagSet) func(*pflag.Flag) (string, any) {
	return func(f *pflag.Flag) (string, any) {
		key, ok := flagKeys[f.Name]
		if !ok || !f.Changed {
			return "", nil
		}
		return key, posflag.FlagVal(fs, f)
	}
}

func lookup(vars []string, name string) (string, bool) {
	for _, kv := range vars {
		if k, v, ok := strings.Cut(kv, "="); ok && k == name {
			return v, true
		}
	}
	return "", false
}
