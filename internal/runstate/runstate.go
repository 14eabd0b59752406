// Package runstate persists the small cross-invocation state document:
// the ACME domain for the web entry point and the provisioning completion
// marker. The document is loaded whole, mutated by key, and serialized with
// sorted keys so repeated saves produce identical bytes. A missing file
// behaves as an empty document.
package runstate

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
)

const (
	// KeyACMEDomain stores the domain securing the web entry point.
	KeyACMEDomain = "acme_domain"
	// KeySetupComplete stores "<version> <RFC3339 timestamp>" recorded after
	// a successful provisioning run.
	KeySetupComplete = "setup_complete"
)

// Document holds the full contents of the state file. Keys this program
// never wrote are carried through load/save untouched.
type Document struct {
	values map[string]any
}

// NewDocument returns an empty state document.
func NewDocument() *Document {
	return &Document{values: map[string]any{}}
}

// Get returns the string form of the value stored under key.
func (d *Document) Get(key string) (string, bool) {
	value, ok := d.values[key]
	if !ok {
		return "", false
	}
	if s, ok := value.(string); ok {
		return s, true
	}
	return fmt.Sprint(value), true
}

// Set stores value under key, replacing any previous value.
func (d *Document) Set(key, value string) {
	d.values[key] = value
}

// Keys returns every stored key in sorted order.
func (d *Document) Keys() []string {
	keys := make([]string, 0, len(d.values))
	for key := range d.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Len reports the number of stored keys.
func (d *Document) Len() int {
	return len(d.values)
}

// Store reads and writes the state document at a fixed path.
type Store struct {
	fs   afero.Fs
	path string
}

// NewStore creates a store over the given filesystem. Pass afero.NewOsFs()
// outside tests.
func NewStore(fsys afero.Fs, path string) *Store {
	return &Store{fs: fsys, path: path}
}

// Path returns the location of the state document.
func (s *Store) Path() string {
	return s.path
}

// Load reads the full document. A missing file yields an empty document.
func (s *Store) Load() (*Document, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewDocument(), nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	values := map[string]any{}
	if err := toml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse state file %s: %w", s.path, err)
	}
	return &Document{values: values}, nil
}

// Save writes the document back, creating the parent directory when needed.
func (s *Store) Save(doc *Document) error {
	data, err := toml.Marshal(doc.values)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state directory: %w", err)
		}
	}
	if err := afero.WriteFile(s.fs, s.path, data, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}
