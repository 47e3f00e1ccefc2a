package jigsaw

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultRenderScale is the raster pixel size of one image pixel
	DefaultRenderScale = 4

	// DefaultRenderPadding is the vector padding in cells
	DefaultRenderPadding = 2.0
)

// LoadConfig loads the configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	// Validate required fields
	if len(config.Puzzles) == 0 {
		return nil, fmt.Errorf("at least one puzzle must be defined")
	}

	ids := make(map[string]bool, len(config.Puzzles))
	for i, pc := range config.Puzzles {
		if pc.ID == "" {
			return nil, fmt.Errorf("puzzle[%d].id is required", i)
		}
		if ids[pc.ID] {
			return nil, fmt.Errorf("puzzle[%d].id %q is duplicated", i, pc.ID)
		}
		ids[pc.ID] = true
		if pc.Topic == "" && pc.File == "" && (pc.ApiURL == nil || *pc.ApiURL == "") {
			return nil, fmt.Errorf("puzzle[%d] %s needs a topic, file or apiUrl", i, pc.ID)
		}
		if pc.Anchor != nil && *pc.Anchor < 0 {
			return nil, fmt.Errorf("puzzle[%d].anchor must be >= 0", i)
		}
	}

	if q := config.MQTT.QoS; q != nil && (*q < 0 || *q > 2) {
		return nil, fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", *q)
	}

	if config.HasTopics() && config.MQTT.Broker == "" && os.Getenv("MQTT_BROKER") == "" {
		return nil, fmt.Errorf("mqtt.broker is required when a puzzle has a topic")
	}

	if config.Render.Scale <= 0 {
		config.Render.Scale = DefaultRenderScale
	}
	if config.Render.Padding <= 0 {
		config.Render.Padding = DefaultRenderPadding
	}

	return &config, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// ResolvePattern returns the configured pattern: inline rows win over a
// file, and the sea monster is used when neither is set. A relative
// pattern file is resolved against baseDir.
func ResolvePattern(pc PatternConfig, baseDir string) (*Pattern, error) {
	if len(pc.Rows) > 0 {
		return ParsePattern(strings.Join(pc.Rows, "\n"))
	}
	if pc.File != "" {
		path := pc.File
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
		return LoadPattern(path)
	}
	return SeaMonster(), nil
}
