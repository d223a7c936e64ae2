package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/nodeplay/internal/engine"
	"github.com/roach88/nodeplay/internal/graph"
	"github.com/roach88/nodeplay/internal/ir"
	"github.com/roach88/nodeplay/internal/nodes"
)

// Config is the optional engine configuration file. Flags set on the
// command line override it.
//
//	tick_rate: 50ms
//	update_limit: 200
//	debugging: false
//	silent: true
//	db: ./nodeplay.db
//	library: [EntryStart, ProcessDelay]
//	templates: [templates/blink.json]
type Config struct {
	TickRate    time.Duration `yaml:"tick_rate"`
	UpdateLimit *int          `yaml:"update_limit"`
	Debugging   bool          `yaml:"debugging"`
	Silent      bool          `yaml:"silent"`
	Database    string        `yaml:"db"`
	Library     []string      `yaml:"library"`
	Templates   []string      `yaml:"templates"`
}

// LoadConfig reads a config file. Unknown keys are errors. Template paths
// are resolved relative to the file. An empty path returns an empty
// config.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.TickRate < 0 {
		return nil, fmt.Errorf("config %s: tick_rate must be positive", path)
	}
	dir := filepath.Dir(path)
	for i, t := range cfg.Templates {
		if !filepath.IsAbs(t) {
			cfg.Templates[i] = filepath.Join(dir, t)
		}
	}
	return cfg, nil
}

// EngineOptions maps the config onto engine options.
func (c *Config) EngineOptions() []engine.EngineOption {
	opts := []engine.EngineOption{
		engine.WithTickRate(c.TickRate),
		engine.WithDebugging(c.Debugging),
		engine.WithSilent(c.Silent),
	}
	if c.UpdateLimit != nil {
		opts = append(opts, engine.WithUpdateLimit(*c.UpdateLimit))
	}
	if len(c.Library) > 0 {
		opts = append(opts, engine.WithLibrary(c.Library))
	}
	return opts
}

// TemplateRecord is a compiled composite saved as a reusable node class.
type TemplateRecord struct {
	ClassName   string          `json:"className"`
	DisplayName string          `json:"displayName,omitempty"`
	Nodes       []ir.NodeRecord `json:"nodes"`
}

// Register adds the standard node library and every configured template
// to r.
func (c *Config) Register(r *graph.Registry) error {
	if err := nodes.Register(r); err != nil {
		return err
	}
	for _, path := range c.Templates {
		t, err := readTemplate(path)
		if err != nil {
			return err
		}
		if err := r.RegisterTemplate(t.ClassName, t.DisplayName, t.Nodes); err != nil {
			return fmt.Errorf("template %s: %w", path, err)
		}
	}
	return nil
}

func readTemplate(path string) (TemplateRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TemplateRecord{}, fmt.Errorf("read template: %w", err)
	}
	var t TemplateRecord
	if err := json.Unmarshal(data, &t); err != nil {
		return TemplateRecord{}, fmt.Errorf("parse template %s: %w", path, err)
	}
	if t.ClassName == "" {
		return TemplateRecord{}, fmt.Errorf("template %s: className is required", path)
	}
	return t, nil
}
