package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config holds defaults read from a --config file. Flags given on the
// command line win over the file.
type Config struct {
	Decode struct {
		To       string `yaml:"to"`
		Extended bool   `yaml:"extended"`
		Strict   bool   `yaml:"strict"`
		MaxDepth int    `yaml:"max_depth"`
	} `yaml:"decode"`

	Encode struct {
		From      string `yaml:"from"`
		Canonical bool   `yaml:"canonical"`
	} `yaml:"encode"`

	Stream struct {
		Digest string `yaml:"digest"`
	} `yaml:"stream"`
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// fill copies config values into flags the user did not set.
func fill(fs *pflag.FlagSet, values map[string]string) error {
	for name, value := range values {
		if value == "" || fs.Changed(name) || fs.Lookup(name) == nil {
			continue
		}
		if err := fs.Set(name, value); err != nil {
			return fmt.Errorf("config %s: %w", name, err)
		}
	}
	return nil
}

// applyConfig loads --config, if given, into the unset flags of fs.
func applyConfig(fs *pflag.FlagSet, path string) error {
	if path == "" {
		return nil
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	values := map[string]string{
		"to":     cfg.Decode.To,
		"from":   cfg.Encode.From,
		"digest": cfg.Stream.Digest,
	}
	if cfg.Decode.Extended {
		values["extended"] = "true"
	}
	if cfg.Decode.Strict {
		values["strict"] = "true"
	}
	if cfg.Decode.MaxDepth > 0 {
		values["max-depth"] = fmt.Sprint(cfg.Decode.MaxDepth)
	}
	if cfg.Encode.Canonical {
		values["canonical"] = "true"
	}
	return fill(fs, values)
}
