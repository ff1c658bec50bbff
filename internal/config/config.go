package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandEnvWithDefaults expands ${VAR} and ${VAR:-default} references
func expandEnvWithDefaults(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		matches := envPattern.FindStringSubmatch(match)
		if len(matches) < 2 {
			return match
		}

		varName := matches[1]
		defaultValue := ""
		if len(matches) > 2 {
			defaultValue = matches[2]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// InitConfig reads configFile into a new C. String values may reference
// environment variables as ${VAR:-default}; expanded values that look like
// booleans or integers are stored as such.
func InitConfig[C any](configFile string) (*C, error) {
	v := viper.New()
	ext := strings.TrimLeft(filepath.Ext(configFile), ".")

	v.SetConfigFile(configFile)
	v.SetConfigType(ext)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("v.ReadInConfig: %w", err)
	}

	for _, k := range v.AllKeys() {
		value := v.GetString(k)
		if value == "" || !strings.Contains(value, "${") {
			continue
		}
		expanded := expandEnvWithDefaults(value)

		if expanded == "true" || expanded == "false" {
			boolValue, _ := strconv.ParseBool(expanded)
			v.Set(k, boolValue)
		} else if intValue, err := strconv.Atoi(expanded); err == nil {
			v.Set(k, intValue)
		} else {
			v.Set(k, expanded)
		}
	}

	cfg := new(C)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("v.Unmarshal: %w", err)
	}

	return cfg, nil
}

// Load reads the application config. A missing file is not an error: the
// defaults are returned instead. An empty path means "no file".
func Load(configFile string) (*Config, error) {
	if configFile == "" {
		return Default(), nil
	}
	if _, err := os.Stat(configFile); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	cfg, err := InitConfig[Config](configFile)
	if err != nil {
		return nil, err
	}
	cfg.fillDefaults()
	return cfg, nil
}
