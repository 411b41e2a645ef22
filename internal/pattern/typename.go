package pattern

import "strings"

// TypeName is a type constraint split into simple name and qualification.
// The zero value is a wildcard.
type TypeName struct {
	Simple        string
	Qualification string
	// Args is the type-argument text including angle brackets, compared only
	// under FullGeneric.
	Args string
	Dims int
}

// ParseTypeName splits "java.util.List<String>[]" into its parts. A single
// "*" or an empty string yields the wildcard.
func ParseTypeName(s string) TypeName {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return TypeName{}
	}
	var t TypeName
	for strings.HasSuffix(s, "[]") {
		t.Dims++
		s = strings.TrimSpace(strings.TrimSuffix(s, "[]"))
	}
	if strings.HasSuffix(s, "...") {
		t.Dims++
		s = strings.TrimSuffix(s, "...")
	}
	if i := strings.IndexByte(s, '<'); i >= 0 {
		t.Args = s[i:]
		s = s[:i]
	}
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		t.Qualification = s[:i]
		s = s[i+1:]
	}
	t.Simple = s
	return t
}

// IsZero reports whether t is the wildcard.
func (t TypeName) IsZero() bool {
	return t.Simple == "" && t.Qualification == "" && t.Args == "" && t.Dims == 0
}

// Qualified returns the dotted name without type arguments or dimensions.
func (t TypeName) Qualified() string {
	if t.Qualification == "" {
		return t.Simple
	}
	return t.Qualification + "." + t.Simple
}

func (t TypeName) String() string {
	if t.IsZero() {
		return "*"
	}
	return t.Qualified() + t.Args + strings.Repeat("[]", t.Dims)
}

// MatchSimple compares the simple name and dimensions with a source type
// written as text ("List<String>[]", "java.util.List"). Qualifiers in the
// written text are ignored.
func (t TypeName) MatchSimple(r MatchRule, written string) bool {
	if t.IsZero() {
		return true
	}
	w := ParseTypeName(written)
	if t.Dims != w.Dims {
		return false
	}
	return r.Match(t.Simple, w.Simple)
}

// MatchResolved compares t with a resolved type. qualified is the fully
// qualified erasure, args its type-argument text. Under FullGeneric, type
// arguments given in t must equal args once whitespace is removed.
func (t TypeName) MatchResolved(r MatchRule, qualified, args string, dims int) bool {
	if t.IsZero() {
		return true
	}
	if t.Dims != dims {
		return false
	}
	qual, simple := SplitQualified(qualified)
	if !r.Match(t.Simple, simple) {
		return false
	}
	if t.Qualification != "" && !r.MatchQualification(t.Qualification, qual) {
		return false
	}
	if r.Generics == FullGeneric && t.Args != "" {
		return stripSpace(t.Args) == stripSpace(args)
	}
	return true
}

// SplitQualified splits "a.b.C" into ("a.b", "C").
func SplitQualified(q string) (string, string) {
	if i := strings.LastIndexByte(q, '.'); i >= 0 {
		return q[:i], q[i+1:]
	}
	return "", q
}

func stripSpace(s string) string {
	return strings.Join(strings.Fields(s), "")
}
