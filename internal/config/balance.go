package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"tycoon/internal/game"
)

// LoadBalance reads game rule overrides from a YAML file. Keys left out keep their defaults;
// an empty path returns the defaults.
func LoadBalance(path string) (game.Rules, error) {
	rules := game.DefaultRules()
	if path == "" {
		return rules, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("read balance file: %w", err)
	}
	if err := yaml.Unmarshal(b, &rules); err != nil {
		return rules, fmt.Errorf("parse balance file: %w", err)
	}
	return rules.Normalize(), nil
}
