// Package config reads the optional .quarry.toml project file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"
)

// FileName is the project file looked up in the project root.
const FileName = ".quarry.toml"

const (
	DefaultDatabase  = ".quarry/index.db"
	DefaultBatchSize = 50
	DefaultContext   = "default"
)

// Config is the project configuration.
type Config struct {
	Database  string    `toml:"database"`
	BatchSize int       `toml:"batch_size"`
	Workers   int       `toml:"workers"`
	Contexts  []Context `toml:"context"`

	// Root is the directory the file was loaded from. Relative paths in the
	// file are relative to it.
	Root string `toml:"-"`
}

// Context is one build context: the source roots compiled together and the
// library manifests on their classpath.
type Context struct {
	Name      string   `toml:"name"`
	Roots     []string `toml:"roots"`
	Libraries []string `toml:"libraries"`
	Exclude   []string `toml:"exclude"`
}

// Default returns the configuration used when no project file exists: a
// single context covering the whole root.
func Default(root string) *Config {
	c := &Config{Root: root}
	c.applyDefaults()
	return c
}

// Load reads root/.quarry.toml. A missing file yields Default(root).
func Load(root string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(root, FileName))
	if errors.Is(err, os.ErrNotExist) {
		return Default(root), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return Parse(root, data)
}

// Parse decodes a project file, applies defaults and validates the result.
func Parse(root string, data []byte) (*Config, error) {
	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.Root = root
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Database == "" {
		c.Database = DefaultDatabase
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
	if len(c.Contexts) == 0 {
		c.Contexts = []Context{{Name: DefaultContext, Roots: []string{"."}}}
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("invalid config: batch_size must be positive, got %d", c.BatchSize)
	}
	if c.Workers < 1 {
		return fmt.Errorf("invalid config: workers must be positive, got %d", c.Workers)
	}
	seen := map[string]bool{}
	for i, ctx := range c.Contexts {
		if ctx.Name == "" {
			return fmt.Errorf("invalid config: context %d has no name", i)
		}
		if seen[ctx.Name] {
			return fmt.Errorf("invalid config: duplicate context %q", ctx.Name)
		}
		seen[ctx.Name] = true
		if len(ctx.Roots) == 0 {
			return fmt.Errorf("invalid config: context %q has no roots", ctx.Name)
		}
		for _, pat := range ctx.Exclude {
			if !doublestar.ValidatePattern(pat) {
				return fmt.Errorf("invalid config: context %q: bad exclude pattern %q", ctx.Name, pat)
			}
		}
	}
	return nil
}

// Path resolves p against the project root.
func (c *Config) Path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

// Context returns the context with the given name.
func (c *Config) Context(name string) (Context, bool) {
	for _, ctx := range c.Contexts {
		if ctx.Name == name {
			return ctx, true
		}
	}
	return Context{}, false
}

// Excluded reports whether rel, a slash-separated path relative to the
// project root, matches one of the context's exclude globs.
func (ctx Context) Excluded(rel string) bool {
	for _, pat := range ctx.Exclude {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}
