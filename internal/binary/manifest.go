// Package binary reads library manifests: YAML descriptions of compiled
// dependencies whose types can be searched and resolved like source types.
package binary

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jward/quarry/internal/pattern"
)

// Manifest describes one library.
type Manifest struct {
	Library string `yaml:"library"`
	Types   []Type `yaml:"types"`

	// Path is the file the manifest was loaded from.
	Path string `yaml:"-"`
}

// Type is a compiled type. Name is fully qualified; nested types separate
// the enclosing type with '$' (com.acme.Outer$Inner).
type Type struct {
	Name         string        `yaml:"name"`
	Kind         string        `yaml:"kind"`
	Super        string        `yaml:"super,omitempty"`
	Interfaces   []string      `yaml:"interfaces,omitempty"`
	Fields       []Field       `yaml:"fields,omitempty"`
	Methods      []Method      `yaml:"methods,omitempty"`
	Constructors []Constructor `yaml:"constructors,omitempty"`
}

type Field struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Static bool   `yaml:"static,omitempty"`
}

type Method struct {
	Name    string   `yaml:"name"`
	Returns string   `yaml:"returns"`
	Params  []string `yaml:"params"`
	Static  bool     `yaml:"static,omitempty"`
	Varargs bool     `yaml:"varargs,omitempty"`
}

type Constructor struct {
	Params  []string `yaml:"params"`
	Varargs bool     `yaml:"varargs,omitempty"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}
	return Parse(path, data)
}

// Parse decodes a manifest. Every type needs a name and a known kind.
func Parse(path string, data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	m.Path = path
	if m.Library == "" {
		m.Library = path
	}
	seen := map[string]bool{}
	for i := range m.Types {
		t := &m.Types[i]
		if t.Name == "" {
			return nil, fmt.Errorf("parse manifest %s: type %d has no name", path, i)
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("parse manifest %s: duplicate type %s", path, t.Name)
		}
		seen[t.Name] = true
		if t.Kind == "" {
			t.Kind = "class"
		}
		if _, err := pattern.ParseTypeKind(t.Kind); err != nil {
			return nil, fmt.Errorf("parse manifest %s: %s: %w", path, t.Name, err)
		}
	}
	return &m, nil
}

// Lookup returns the type with the given qualified name, accepting '.' in
// place of '$'.
func (m *Manifest) Lookup(qualified string) *Type {
	for i := range m.Types {
		if m.Types[i].Name == qualified || m.Types[i].Qualified() == qualified {
			return &m.Types[i]
		}
	}
	return nil
}

// Package returns the package of the type.
func (t *Type) Package() string {
	outer, _, _ := strings.Cut(t.Name, "$")
	pkg, _ := pattern.SplitQualified(outer)
	return pkg
}

// Simple returns the innermost simple name.
func (t *Type) Simple() string {
	name := t.Name
	if i := strings.LastIndexByte(name, '$'); i >= 0 {
		return name[i+1:]
	}
	_, simple := pattern.SplitQualified(name)
	return simple
}

// Enclosing returns the dotted names of enclosing types.
func (t *Type) Enclosing() string {
	_, local := pattern.SplitQualified(strings.ReplaceAll(t.Name, "$", "\x00"))
	parts := strings.Split(local, "\x00")
	return strings.Join(parts[:len(parts)-1], ".")
}

// Qualified returns the dotted name, with nested types joined by '.'.
func (t *Type) Qualified() string {
	return strings.ReplaceAll(t.Name, "$", ".")
}

// TypeKind returns the parsed kind.
func (t *Type) TypeKind() pattern.TypeKind {
	k, _ := pattern.ParseTypeKind(t.Kind)
	if k == pattern.AnyType {
		return pattern.Class
	}
	return k
}

const pathSep = "|"

// DocumentPath is the document path of a type: manifest|pkg/Outer$Inner.class.
func DocumentPath(manifestPath string, t *Type) string {
	return manifestPath + pathSep + strings.ReplaceAll(t.Name, ".", "/") + ".class"
}

// SplitDocumentPath reverses DocumentPath, returning the manifest path and
// the type's manifest name.
func SplitDocumentPath(path string) (manifest, typeName string, ok bool) {
	manifest, rest, ok := strings.Cut(path, pathSep)
	if !ok || !strings.HasSuffix(rest, ".class") {
		return "", "", false
	}
	return manifest, strings.ReplaceAll(strings.TrimSuffix(rest, ".class"), "/", "."), true
}
