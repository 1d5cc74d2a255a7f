package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	configFileName = "config.yaml"

	// DefaultIndentWidth is the horizontal drag distance that counts as one level of
	// indentation.
	DefaultIndentWidth = 24.0
)

// Config holds user defaults. Command-line flags and WBS_* environment variables take
// precedence over values loaded from the file.
type Config struct {
	Policy      string  `yaml:"policy,omitempty" validate:"omitempty,oneof=free sibling"`
	IndentWidth float64 `yaml:"indentWidth,omitempty" validate:"omitempty,gt=0"`
	Snapshot    string  `yaml:"snapshot,omitempty"`
	Journal     string  `yaml:"journal,omitempty"`
	LogLevel    string  `yaml:"logLevel,omitempty" validate:"omitempty,oneof=off debug info warn error"`
	Format      string  `yaml:"format,omitempty" validate:"omitempty,oneof=json edn table"`
	Addr        string  `yaml:"addr,omitempty"`
}

// DefaultConfig returns the settings used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Policy:      "free",
		IndentWidth: DefaultIndentWidth,
		LogLevel:    "off",
		Format:      "json",
		Addr:        "127.0.0.1:7070",
	}
}

func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.wbs).
	if v := strings.TrimSpace(os.Getenv("WBS_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".wbs"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// LoadConfig reads path (or the default config path when empty). A missing file yields
// the defaults; unset fields in the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		p, err := ConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := ValidateStruct(cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg atomically to path (or the default config path when empty).
func SaveConfig(path string, cfg *Config) error {
	if cfg == nil {
		return nil
	}
	if strings.TrimSpace(path) == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := ValidateStruct(cfg); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, b, 0o600)
}
