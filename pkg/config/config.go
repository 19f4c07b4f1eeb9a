// Package config provides YAML-based configuration loading with environment
// variable expansion and POSTDECK_* overrides.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every override variable, e.g. POSTDECK_APP_HTTP_PORT.
const EnvPrefix = "POSTDECK_"

// Validator is an interface for configuration validation.
type Validator interface {
	Validate() error
}

// Load reads a YAML file with ${VAR} expansion, applies POSTDECK_*
// environment overrides on top and validates the result.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	expandedData := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expandedData), target); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	return finish(target)
}

// LoadWithDefaults loads filename, or only the environment when it does not
// exist and required is false.
func LoadWithDefaults[T any](filename string, required bool, target *T) error {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		if required {
			return fmt.Errorf("config file not found: %s", filename)
		}
		return finish(target)
	}
	return Load(filename, target)
}

func finish[T any](target *T) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if validator, ok := any(target).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}

	return nil
}
