// Package suite runs YAML-described minos programs against the interpreter
// and the native backend and checks their output and diagnostics.
package suite

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Backend names an execution backend.
type Backend string

const (
	Interp Backend = "interp"
	Native Backend = "native"
)

// Spec is one suite file.
type Spec struct {
	Name     string    `yaml:"name"`
	Backends []Backend `yaml:"backends"`
	Cases    []Case    `yaml:"cases"`

	// Path is the file the spec was loaded from.
	Path string `yaml:"-"`
}

// Case is a single program with its expectations.
type Case struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"`
	// Stdout is the exact expected output. Nil means not checked.
	Stdout *string `yaml:"stdout"`
	// Error is a substring the diagnostic must contain. Empty means the
	// program must succeed.
	Error string `yaml:"error"`
	Skip  bool   `yaml:"skip"`
	// Backends overrides the suite's backends for this case.
	Backends []Backend `yaml:"backends"`
}

// backends returns the backends c runs on within s.
func (s *Spec) backends(c *Case) []Backend {
	if len(c.Backends) > 0 {
		return c.Backends
	}
	return s.Backends
}

// LoadSpec loads a suite from a YAML file.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading suite file: %w", err)
	}

	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing suite file %s: %w", path, err)
	}
	spec.Path = path

	// Apply defaults
	if spec.Name == "" {
		spec.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if len(spec.Backends) == 0 {
		spec.Backends = []Backend{Interp, Native}
	}

	for i := range spec.Cases {
		c := &spec.Cases[i]
		if c.Name == "" {
			c.Name = fmt.Sprintf("case%d", i+1)
		}
		for _, b := range spec.backends(c) {
			if b != Interp && b != Native {
				return nil, fmt.Errorf("%s: case %q: unknown backend %q", path, c.Name, b)
			}
		}
	}
	return &spec, nil
}

// Find returns every .yaml/.yml file under the given files or directories,
// sorted within each directory.
func Find(paths ...string) ([]string, error) {
	var out []string
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, root)
			continue
		}
		var found []string
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if ext := filepath.Ext(path); ext == ".yaml" || ext == ".yml" {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		slices.Sort(found)
		out = append(out, found...)
	}
	return out, nil
}

// Load finds and loads every suite under paths.
func Load(paths ...string) ([]*Spec, error) {
	files, err := Find(paths...)
	if err != nil {
		return nil, err
	}
	specs := make([]*Spec, 0, len(files))
	for _, f := range files {
		s, err := LoadSpec(f)
		if err != nil {
			return nil, err
		}
		specs = append(specs, s)
	}
	return specs, nil
}
