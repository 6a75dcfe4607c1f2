package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type ConvertConfig struct {
	MaxVertices int  `yaml:"max_vertices"`
	PaddingUnit int  `yaml:"padding_unit"`
	Strict      bool `yaml:"strict"`
}

type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Convert ConvertConfig `yaml:"convert"`
}

func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		Convert: ConvertConfig{
			MaxVertices: 65535,
			PaddingUnit: 8,
		},
	}
}

// loadConfig layers an optional yaml file over the defaults. An empty path
// means defaults only.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
