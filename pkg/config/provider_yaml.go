package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files.
type YAMLProvider struct {
	filename string
}

// NewYAMLProvider creates a YAML configuration provider.
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{filename: filename}
}

// LoadConfig reads, parses and validates the configuration file.
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	raw, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", y.filename, err)
	}

	var cfg ConfigData
	if err := yaml.UnmarshalStrict(raw, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file %s: %w", y.filename, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", y.filename, err)
	}
	return &cfg, nil
}

// IsReadOnly reports that YAML configurations cannot be written back.
func (y *YAMLProvider) IsReadOnly() bool { return true }

// Close is a no-op for file-backed configurations.
func (y *YAMLProvider) Close() error { return nil }
