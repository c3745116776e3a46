package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Manifest is the YAML description of a plugin found by ScanDir.
//
//	name: bandcamp
//	factory: bandcamp
//	hosts:
//	  - bandcamp.com
//	stream_type: audio
type Manifest struct {
	Name       string   `yaml:"name"`
	Factory    string   `yaml:"factory"`
	Hosts      []string `yaml:"hosts"`
	StreamType string   `yaml:"stream_type"`
}

// ScanDir builds handles from the plugin manifests under dir.
//
// Every subdirectory whose name does not start with "_" or "." is searched
// for .yaml/.yml files; files starting with "test_" or "_" are ignored.
// Each manifest is bound to the compiled factory named by its factory
// field (or its name). A manifest that cannot be read, parsed or bound is
// skipped with a warning. Only a failure to list dir itself is returned.
func ScanDir(dir string, factories map[string]Factory, deps Deps) ([]Handle, error) {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan plugin directory: %w", err)
	}

	var handles []Handle
	for _, entry := range entries {
		if !entry.IsDir() || skipName(entry.Name()) {
			continue
		}

		sub := filepath.Join(dir, entry.Name())
		files, err := os.ReadDir(sub)
		if err != nil {
			log.Warn("skipping unreadable plugin directory", zap.String("dir", sub), zap.Error(err))
			continue
		}

		for _, file := range files {
			name := file.Name()
			ext := strings.ToLower(filepath.Ext(name))
			if file.IsDir() || skipName(name) || strings.HasPrefix(name, "test_") || (ext != ".yaml" && ext != ".yml") {
				continue
			}

			path := filepath.Join(sub, name)
			h, err := loadManifest(path, factories, deps)
			if err != nil {
				log.Warn("skipping plugin", zap.String("manifest", path), zap.Error(err))
				continue
			}
			handles = append(handles, h)
		}
	}

	return handles, nil
}

// DirLoader returns a Loader that runs ScanDir.
func DirLoader(dir string, factories map[string]Factory, deps Deps) Loader {
	return func() ([]Handle, error) {
		return ScanDir(dir, factories, deps)
	}
}

func loadManifest(path string, factories map[string]Factory, deps Deps) (Handle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Handle{}, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Handle{}, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Name == "" {
		return Handle{}, fmt.Errorf("manifest has no name")
	}
	if len(m.Hosts) == 0 {
		return Handle{}, fmt.Errorf("manifest %q lists no hosts", m.Name)
	}

	capability, err := ParseCapability(m.StreamType)
	if err != nil {
		return Handle{}, err
	}

	factoryName := m.Factory
	if factoryName == "" {
		factoryName = m.Name
	}
	factory, ok := factories[factoryName]
	if !ok {
		return Handle{}, fmt.Errorf("no compiled plugin %q", factoryName)
	}

	p, err := factory(deps)
	if err != nil {
		return Handle{}, fmt.Errorf("build plugin %q: %w", m.Name, err)
	}

	return Handle{
		Name:       m.Name,
		Hosts:      m.Hosts,
		Capability: capability,
		Plugin:     p,
	}, nil
}

func skipName(name string) bool {
	return strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")
}
