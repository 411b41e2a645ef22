package store

import "time"

// Document kinds.
const (
	KindSource = "source"
	KindBinary = "binary"
)

// Document is one searchable unit: a source file, or one type of a binary
// library manifest.
type Document struct {
	ID int64
	// Path is a file path for sources and "<manifest>|<pkg/Type>.class" for
	// binary types.
	Path string
	// Context is the owning build context for sources and the manifest path
	// for binary types.
	Context     string
	Kind        string
	Hash        string
	LastIndexed time.Time
}

// IsBinary reports whether the document describes a compiled type.
func (d *Document) IsBinary() bool { return d.Kind == KindBinary }

// Entry is one index key with its posting list.
type Entry struct {
	Category string
	Key      string
	// Docs holds ascending document IDs.
	Docs []int64
}

// Posting is a single (category, key, document) row, as written by the
// indexer.
type Posting struct {
	Category string
	Key      string
	DocID    int64
}

// TypeDecl records where a type is declared. Path, Context and DocKind are
// filled by queries and ignored on insert.
type TypeDecl struct {
	ID        int64
	DocID     int64
	Qualified string
	Simple    string
	Package   string
	Kind      string

	Path    string
	Context string
	DocKind string
}

// Package is a package declared by at least one document of a context.
type Package struct {
	Name    string
	Context string
	DocID   int64
	// Path is the lexically smallest declaring document path; filled by
	// queries.
	Path string
}
