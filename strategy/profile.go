package strategy

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/kbukum/traverse/errors"
)

// Profile is a named list of strategies, optionally extending other
// profiles.
type Profile struct {
	Name       string   `yaml:"name"`
	Includes   []string `yaml:"includes,omitempty"`
	Strategies []string `yaml:"strategies"`
}

// ProfileLoader loads profile definitions by name.
type ProfileLoader interface {
	Load(name string) (*Profile, error)
}

// FileProfileLoader loads profiles from YAML files in a set of directories.
type FileProfileLoader struct {
	dirs []string
}

// NewFileProfileLoader creates a loader that searches the given directories.
func NewFileProfileLoader(dirs ...string) *FileProfileLoader {
	return &FileProfileLoader{dirs: dirs}
}

// Load finds and parses a profile by name. It looks for <name>.yaml or
// <name>.yml in each directory, then for any file below the directories
// whose profile name matches.
func (l *FileProfileLoader) Load(name string) (*Profile, error) {
	for _, dir := range l.dirs {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, name+ext)
			if _, err := os.Stat(path); err == nil {
				return LoadProfile(path)
			}
		}
	}
	for _, dir := range l.dirs {
		var found *Profile
		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() || found != nil {
				return err
			}
			if ext := filepath.Ext(path); ext != ".yaml" && ext != ".yml" {
				return nil
			}
			p, err := LoadProfile(path)
			if err != nil {
				return nil
			}
			if p.Name == name {
				found = p
			}
			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		if found != nil {
			return found, nil
		}
	}
	return nil, errors.NotFound("strategy profile", name)
}

// LoadProfile parses a single profile file. A profile without a name takes
// the file's base name.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile %s: %w", path, err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, errors.InvalidConfig(fmt.Sprintf("parse profile %s: %v", path, err)).WithCause(err)
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &p, nil
}

// ResolveProfile flattens a profile and its includes into an ordered list
// of strategy names. Included strategies come first, in include order; a
// name seen twice keeps its first position. Include cycles are rejected.
func ResolveProfile(name string, loader ProfileLoader) ([]string, error) {
	r := &resolver{
		loader:   loader,
		stack:    make(map[string]bool),
		resolved: make(map[string]bool),
	}
	if err := r.resolve(name, nil); err != nil {
		return nil, err
	}
	return r.names, nil
}

type resolver struct {
	loader   ProfileLoader
	stack    map[string]bool
	resolved map[string]bool
	names    []string
}

func (r *resolver) resolve(name string, chain []string) error {
	chain = append(chain, name)
	if r.stack[name] {
		return errors.InvalidConfig(fmt.Sprintf("circular include: %s", strings.Join(chain, " -> "))).
			WithDetail("profile", name)
	}
	if r.resolved[name] {
		return nil
	}
	p, err := r.loader.Load(name)
	if err != nil {
		return err
	}
	r.stack[name] = true
	for _, inc := range p.Includes {
		if err := r.resolve(inc, chain); err != nil {
			return err
		}
	}
	delete(r.stack, name)
	r.resolved[name] = true
	for _, s := range p.Strategies {
		if !slices.Contains(r.names, s) {
			r.names = append(r.names, s)
		}
	}
	return nil
}
