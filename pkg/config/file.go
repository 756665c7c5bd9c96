package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfig is the optional YAML overlay read from CONFIG_DIR/analyzer.yaml
// at startup. Everything in it is optional; fields left unset keep the
// process-environment defaults Load already applied.
type FileConfig struct {
	Fetch *FetchFileConfig `yaml:"fetch,omitempty"`
}

// FetchFileConfig overlays FetchConfig's file-extension and skip-directory
// lists, since those are naturally a per-deployment list rather than a
// single env var.
type FetchFileConfig struct {
	IncludePatterns []string `yaml:"include_patterns,omitempty"`
	SkipDirs        []string `yaml:"skip_dirs,omitempty"`
}

// LoadFile reads and applies a YAML overlay from path onto cfg. A missing
// file is not an error — the overlay is optional — but a malformed one is.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if fc.Fetch != nil {
		if len(fc.Fetch.IncludePatterns) > 0 {
			c.Fetch.AllowedExts = fc.Fetch.IncludePatterns
		}
		if len(fc.Fetch.SkipDirs) > 0 {
			c.Fetch.SkipDirs = fc.Fetch.SkipDirs
		}
	}
	return nil
}
