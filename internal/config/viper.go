package config

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ViperLoader reads AppConfig from a config file (any format viper
// supports) overlaid with `POGO_`-prefixed environment variables and
// flags bound via BindFlags.
type ViperLoader struct {
	v *viper.Viper
}

// NewViperLoader wraps an already-configured *viper.Viper. Callers
// typically build v via viper.New() and BindFlags before constructing the
// loader; Load reads only the file named by the "config" key (the --config
// flag or a value set on v).
func NewViperLoader(v *viper.Viper) *ViperLoader {
	v.SetEnvPrefix("pogo")
	v.AutomaticEnv()
	return &ViperLoader{v: v}
}

// BindFlags registers the subset of AppConfig an operator is expected to
// override from the command line, binding each flag into v so ViperLoader
// picks it up with the same precedence viper gives flags over file values.
func BindFlags(cmd *cobra.Command, v *viper.Viper) {
	flags := cmd.PersistentFlags()

	flags.String("config", "", "path to the configuration file")
	flags.Bool("debug", false, "enable debug logging and response caching")
	flags.String("database-path", "", "sqlite database path")
	flags.String("judge-url", "", "anonymity judge (AZenv) URL")
	flags.String("local-ip", "", "known local IP, used by the anonymity judge predicate")
	flags.Int("max-concurrency", 0, "maximum concurrent proxy tests")

	bindings := map[string]string{
		"config":          "config",
		"debug":           "debug",
		"database-path":   "database_path",
		"judge-url":       "judge_url",
		"local-ip":        "local_ip",
		"max-concurrency": "max_concurrency",
	}
	for flag, key := range bindings {
		v.BindPFlag(key, flags.Lookup(flag))
	}
}

// Load reads the bound configuration file (if any) into an AppConfig,
// applies defaults, and validates required fields.
func (l *ViperLoader) Load() (*AppConfig, error) {
	if path := l.v.GetString("config"); path != "" {
		l.v.SetConfigFile(path)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	var cfg AppConfig
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshalling: %w", err)
	}

	setDefaultValues(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
