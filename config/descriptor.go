package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Descriptor is the JSON file the parsing engine reads at process start.
// Key names follow the engine's expected schema, not Go conventions.
type Descriptor struct {
	DeviceMode string  `json:"device-mode"`
	ModelsDir  string  `json:"models-dir"`
	Table      Feature `json:"table-config"`
	Formula    Feature `json:"formula-config"`
	Layout     struct {
		Model string `json:"model"`
	} `json:"layout-config"`
}

// Descriptor derives the engine descriptor from the service configuration.
func (c Config) Descriptor() Descriptor {
	d := Descriptor{
		DeviceMode: c.DeviceMode,
		ModelsDir:  c.ModelsDir,
		Table:      c.Table,
		Formula:    c.Formula,
	}
	d.Layout.Model = c.Layout.Model
	return d
}

// WriteDescriptor renders the descriptor to path, creating parent
// directories as needed. The file is rewritten on every call so stale
// models-dir values from earlier deployments cannot survive.
func WriteDescriptor(d Descriptor, path string) error {
	data, err := json.MarshalIndent(d, "", "    ")
	if err != nil {
		return fmt.Errorf("encode descriptor: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create descriptor dir: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write descriptor %s: %w", path, err)
	}
	return nil
}
