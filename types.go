package quarry

import (
	"github.com/jward/quarry/internal/config"
	"github.com/jward/quarry/internal/pattern"
	"github.com/jward/quarry/internal/runtime"
	"github.com/jward/quarry/internal/store"
)

// Public type aliases for the internal types that appear in the Engine API.
// They are identical to the internal types; no conversion is needed.

type Store = store.Store
type Document = store.Document
type Context = config.Context
type Config = config.Config
type Pattern = pattern.Pattern

// Accuracy labels a reported match.
type Accuracy = pattern.Level

const (
	// Accurate matches were confirmed by shape alone or by resolution.
	Accurate = pattern.Accurate
	// Inaccurate matches could not be fully confirmed: a binding was
	// missing or resolution of the document aborted.
	Inaccurate = pattern.Inaccurate
)

// ErrNoPattern is returned by Compile for malformed expressions.
var ErrNoPattern = runtime.ErrNoPattern
