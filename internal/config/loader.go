package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

func parseFile(path string, data []byte) (*Config, error) {
	var cfg Config
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse JSON config: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			if err := json.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file (tried YAML and JSON)")
			}
		}
	}
	return &cfg, nil
}

func marshalConfig(path string, cfg *Config) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		return json.MarshalIndent(cfg, "", "  ")
	default:
		return yaml.Marshal(cfg)
	}
}

// Load reads, parses, defaults, and secret-merges a config file. A missing
// file yields the built-in defaults.
func Load(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = defaultConfig()
	} else {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			cfg = defaultConfig()
		case err != nil:
			return nil, err
		default:
			cfg, err = parseFile(path, data)
			if err != nil {
				return nil, err
			}
		}
	}

	cfg.applyDefaults()
	cfg.mergeSecrets()
	return cfg, nil
}
