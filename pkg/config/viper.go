package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Options controls where configuration is read from.
type Options struct {
	// Path is an extra directory searched for the config file.
	Path string
	// Name is the config file name without extension.
	Name string
	// EnvPrefix, when set, namespaces automatic env lookups (PREFIX_SERVER_PORT).
	EnvPrefix string
	// DotEnv lists .env files loaded into the process environment first.
	// Missing files are ignored.
	DotEnv []string
}

// Load reads configuration from a YAML file and environment variables.
// A missing config file is not an error; env vars and defaults still apply.
func Load(opts Options) (*viper.Viper, error) {
	for _, f := range opts.DotEnv {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	v := viper.New()

	v.SetConfigName(opts.Name)
	v.SetConfigType("yaml")
	if opts.Path != "" {
		v.AddConfigPath(opts.Path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if opts.EnvPrefix != "" {
		v.SetEnvPrefix(opts.EnvPrefix)
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return v, nil
}
