// Package subres implements the leaf subresources attached to the source
// resourcespace: project dependencies, the manifest config mapping, the test
// suite, and the self-introspection tree. Each is a full Space; verbs a leaf
// does not support fail with a capability error naming a Space that does.
package subres

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"codeatlas/internal/fsutil"
	"codeatlas/internal/resource"
)

// ManifestName is the project manifest file, looked up at the workspace root.
const ManifestName = "project.yaml"

// Manifest is the parsed project.yaml.
type Manifest struct {
	Name         string         `yaml:"name,omitempty"`
	Version      string         `yaml:"version,omitempty"`
	Dependencies []string       `yaml:"dependencies"`
	Config       map[string]any `yaml:"config,omitempty"`
}

// manifestStore serializes reads and writes of one project.yaml. The deps
// and config subresources share a store so neither clobbers the other's
// section.
type manifestStore struct {
	mu   sync.Mutex
	path string
}

func newManifestStore(workspace string) *manifestStore {
	return &manifestStore{path: filepath.Join(workspace, ManifestName)}
}

// load parses the manifest. A missing file yields an empty manifest, not an
// error: a fresh workspace has nothing to declare yet.
func (s *manifestStore) load() (*Manifest, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &Manifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", s.path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, resource.Validationf("%s does not parse as yaml: %v", ManifestName, err)
	}
	return &m, nil
}

func (s *manifestStore) save(m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("manifest: encode: %w", err)
	}
	if err := fsutil.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("manifest: write %s: %w", s.path, err)
	}
	return nil
}

// update applies fn to the manifest under the store lock and persists the
// result.
func (s *manifestStore) update(fn func(*Manifest) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(m); err != nil {
		return err
	}
	return s.save(m)
}

// view applies fn to a read-only snapshot of the manifest.
func (s *manifestStore) view(fn func(*Manifest) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return err
	}
	return fn(m)
}
