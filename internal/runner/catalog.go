package runner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// Catalog errors.
var (
	ErrNoCommand     = errors.New("example has no command")
	ErrDuplicateName = errors.New("duplicate example name")
)

// Example is one runnable example program.
type Example struct {
	Name    string            `yaml:"name"`
	Path    string            `yaml:"path,omitempty"` // program location, used by CheckAllIncluded
	Command []string          `yaml:"command"`
	Args    []string          `yaml:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
}

// Argv returns the full command line.
func (e Example) Argv() []string {
	return slices.Concat(e.Command, e.Args)
}

// Catalog is the list of examples plus the names to skip.
type Catalog struct {
	Examples []Example `yaml:"examples"`
	Ignored  []string  `yaml:"ignored,omitempty"`
}

// LoadCatalog reads a catalog file. ${VAR} references in args, env values
// and paths are expanded from vars, falling back to the process
// environment. Relative paths are resolved against the catalog's
// directory.
func LoadCatalog(path string, vars map[string]string) (*Catalog, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: catalog path is supplied by the user.
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	c, err := ParseCatalog(data, vars)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	base := filepath.Dir(path)
	for i := range c.Examples {
		p := c.Examples[i].Path
		if p != "" && !filepath.IsAbs(p) {
			c.Examples[i].Path = filepath.Join(base, p)
		}
	}
	return c, nil
}

// ParseCatalog decodes and expands catalog YAML.
func ParseCatalog(data []byte, vars map[string]string) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	expand := func(s string) string {
		return os.Expand(s, func(key string) string {
			if v, ok := vars[key]; ok {
				return v
			}
			return os.Getenv(key)
		})
	}

	seen := make(map[string]bool, len(c.Examples))
	for i := range c.Examples {
		ex := &c.Examples[i]
		if len(ex.Command) == 0 {
			return nil, fmt.Errorf("%w: %q", ErrNoCommand, ex.Name)
		}
		if seen[ex.Name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, ex.Name)
		}
		seen[ex.Name] = true

		ex.Path = expand(ex.Path)
		for j := range ex.Args {
			ex.Args[j] = expand(ex.Args[j])
		}
		for k, v := range ex.Env {
			ex.Env[k] = expand(v)
		}
	}
	return &c, nil
}

// Find returns the example with the given name.
func (c *Catalog) Find(name string) (Example, bool) {
	for _, ex := range c.Examples {
		if ex.Name == name {
			return ex, true
		}
	}
	return Example{}, false
}

// CheckAllIncluded lists the example programs under dir that no catalog
// entry points at. A program is a subdirectory holding a main.go.
func CheckAllIncluded(dir string, c *Catalog) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list examples: %w", err)
	}

	included := make(map[string]bool, len(c.Examples))
	for _, ex := range c.Examples {
		if ex.Path == "" {
			continue
		}
		abs, err := filepath.Abs(ex.Path)
		if err != nil {
			return nil, err
		}
		included[abs] = true
	}

	var missing []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		prog := filepath.Join(dir, e.Name())
		if _, err := os.Stat(filepath.Join(prog, "main.go")); err != nil {
			continue
		}
		abs, err := filepath.Abs(prog)
		if err != nil {
			return nil, err
		}
		if !included[abs] {
			missing = append(missing, prog)
		}
	}
	return missing, nil
}
