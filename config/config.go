// Package config loads service configuration and produces the JSON
// descriptor consumed by the magic-pdf engine at startup. Precedence is
// defaults, then an optional TOML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Environment variables recognized by Load.
const (
	EnvPort       = "PORT"
	EnvModelsDir  = "MINERU_MODELS_DIR"
	EnvDeviceMode = "MINERU_DEVICE_MODE"
	EnvHubRepo    = "MINERU_HUB_REPO"
	EnvConfigFile = "MINERU_CONFIG"
)

const (
	DefaultPort       = "8080"
	DefaultModelsDir  = "/data/models"
	DefaultDeviceMode = "cpu"
	DefaultHubRepo    = "wanderkid/PDF-Extract-Kit"
)

// Feature is one per-feature block of the engine descriptor.
type Feature struct {
	Model  string `toml:"model" json:"model"`
	Enable bool   `toml:"enable" json:"enable"`
}

// Config carries everything the serve and models commands need.
type Config struct {
	Port       string `toml:"port"`
	ModelsDir  string `toml:"models-dir"`
	DeviceMode string `toml:"device-mode"`
	HubRepo    string `toml:"hub-repo"`

	// DescriptorPath is where the engine descriptor JSON is written.
	// Empty means <home>/magic-pdf.json.
	DescriptorPath string `toml:"descriptor-path"`

	Table   Feature `toml:"table"`
	Formula Feature `toml:"formula"`
	Layout  Feature `toml:"layout"`

	Verbose bool `toml:"verbose"`
}

// Default returns the configuration used when no file and no environment
// overrides are present. Feature defaults mirror the stock magic-pdf setup:
// formula recognition on, table recognition off.
func Default() Config {
	return Config{
		Port:       DefaultPort,
		ModelsDir:  DefaultModelsDir,
		DeviceMode: DefaultDeviceMode,
		HubRepo:    DefaultHubRepo,
		Table:      Feature{Model: "rapid_table", Enable: false},
		Formula:    Feature{Model: "unimernet_small", Enable: true},
		Layout:     Feature{Model: "layoutlmv3", Enable: true},
	}
}

// Load builds the effective configuration. path selects the TOML file; when
// empty, MINERU_CONFIG is consulted, and if that is empty too no file is
// read. A missing explicitly-named file is an error; a missing default file
// is not.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = os.Getenv(EnvConfigFile)
		explicit = path != ""
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return Config{}, err
			}
		}
	}

	applyEnv(&cfg)

	if cfg.Port == "" {
		cfg.Port = DefaultPort
	}
	if cfg.ModelsDir == "" {
		cfg.ModelsDir = DefaultModelsDir
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvPort); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv(EnvModelsDir); v != "" {
		cfg.ModelsDir = v
	}
	if v := os.Getenv(EnvDeviceMode); v != "" {
		cfg.DeviceMode = v
	}
	if v := os.Getenv(EnvHubRepo); v != "" {
		cfg.HubRepo = v
	}
}

// ResolveDescriptorPath expands the configured descriptor location, falling
// back to magic-pdf.json in the user's home directory.
func (c Config) ResolveDescriptorPath() (string, error) {
	if c.DescriptorPath != "" {
		return c.DescriptorPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, "magic-pdf.json"), nil
}
