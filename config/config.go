// Package config loads provider and agent configuration from YAML files.
// Environment references (${VAR}) in the raw document are expanded before
// parsing so credentials can stay out of the file itself.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pravin-python/WorkSynapse-sub001/core"
	"github.com/pravin-python/WorkSynapse-sub001/provider"
)

// File is the root of a configuration document.
type File struct {
	Providers []provider.Config  `yaml:"providers"`
	Agents    []core.AgentConfig `yaml:"agents"`
}

// Load reads, expands and parses a configuration file.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, core.NewConfigurationError(fmt.Sprintf("read config %s", path), err)
	}
	return Parse(raw)
}

// Parse decodes a configuration document, expanding ${VAR} environment
// references, normalizing agent limits and validating every entry.
func Parse(raw []byte) (*File, error) {
	expanded := os.ExpandEnv(string(raw))

	var f File
	if err := yaml.Unmarshal([]byte(expanded), &f); err != nil {
		return nil, core.NewConfigurationError("parse config", err)
	}

	seen := make(map[string]bool, len(f.Providers))
	for i := range f.Providers {
		p := &f.Providers[i]
		if p.Name == "" {
			return nil, core.NewConfigurationError(fmt.Sprintf("provider %d missing name", i), nil)
		}
		if seen[p.Name] {
			return nil, core.NewConfigurationError(fmt.Sprintf("duplicate provider %s", p.Name), nil)
		}
		seen[p.Name] = true
	}

	for i := range f.Agents {
		a := &f.Agents[i]
		a.Advanced.Normalize()
		if err := a.Validate(); err != nil {
			return nil, err
		}
	}
	return &f, nil
}

// Agent returns the agent config with the given id.
func (f *File) Agent(id string) (*core.AgentConfig, bool) {
	for i := range f.Agents {
		if f.Agents[i].ID == id {
			return &f.Agents[i], true
		}
	}
	return nil, false
}
