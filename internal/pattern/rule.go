package pattern

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
)

// Mode selects how a pattern name is compared with a candidate name.
type Mode uint8

const (
	Exact Mode = iota
	Prefix
	Glob
	CamelCase
)

func (m Mode) String() string {
	switch m {
	case Exact:
		return "exact"
	case Prefix:
		return "prefix"
	case Glob:
		return "glob"
	case CamelCase:
		return "camelcase"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// ParseMode converts a mode name ("exact", "prefix", "glob", "camelcase") to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "exact":
		return Exact, nil
	case "prefix":
		return Prefix, nil
	case "glob", "pattern":
		return Glob, nil
	case "camelcase", "camel":
		return CamelCase, nil
	}
	return Exact, fmt.Errorf("unknown match mode %q", s)
}

// Generics selects how parameterized type constraints are compared once
// bindings exist.
type Generics uint8

const (
	// Erasure ignores type arguments.
	Erasure Generics = iota
	// FullGeneric requires type arguments to match textually.
	FullGeneric
)

// MatchRule is the match mode plus case sensitivity of a pattern. The same
// rule is applied to decoded index keys, syntax tokens and resolved names so
// the index filter and the tree filter can never disagree.
type MatchRule struct {
	Mode          Mode
	CaseSensitive bool
	Generics      Generics
}

// ExactCase is the most common rule: exact, case-sensitive, erasure comparison.
var ExactCase = MatchRule{Mode: Exact, CaseSensitive: true}

func (r MatchRule) String() string {
	cs := "insensitive"
	if r.CaseSensitive {
		cs = "sensitive"
	}
	return r.Mode.String() + "/" + cs
}

// Match reports whether name satisfies pattern under the rule. An empty
// pattern is a wildcard and matches every name.
func (r MatchRule) Match(pattern, name string) bool {
	if pattern == "" {
		return true
	}
	switch r.Mode {
	case Exact:
		if r.CaseSensitive {
			return pattern == name
		}
		return strings.EqualFold(pattern, name)
	case Prefix:
		return hasPrefix(name, pattern, r.CaseSensitive)
	case Glob:
		return globMatch(pattern, name, r.CaseSensitive)
	case CamelCase:
		if camelCaseMatch(pattern, name) {
			return true
		}
		// A case-insensitive camel-case rule also accepts a plain prefix so
		// lowercase input such as "nullp" still finds NullPointerException.
		return !r.CaseSensitive && hasPrefix(name, pattern, false)
	}
	return false
}

// MatchQualification compares dotted qualifications. Wildcards make the
// comparison a glob; otherwise qualifications must be equal.
func (r MatchRule) MatchQualification(pattern, qualification string) bool {
	if pattern == "" {
		return true
	}
	if HasWildcard(pattern) {
		return globMatch(pattern, qualification, r.CaseSensitive)
	}
	if r.CaseSensitive {
		return pattern == qualification
	}
	return strings.EqualFold(pattern, qualification)
}

// HasWildcard reports whether s contains a glob wildcard.
func HasWildcard(s string) bool {
	return strings.ContainsAny(s, "*?")
}

// LiteralPrefix returns the longest wildcard-free leading part of a glob.
func LiteralPrefix(glob string) string {
	if i := strings.IndexAny(glob, "*?"); i >= 0 {
		return glob[:i]
	}
	return glob
}

// IndexPrefix returns the index key prefix that every name matching pattern
// under the rule must start with. Callers still filter decoded keys through
// Match; the prefix only narrows the index scan.
func (r MatchRule) IndexPrefix(pattern string) string {
	if pattern == "" {
		return ""
	}
	switch r.Mode {
	case Exact, Prefix:
		return pattern
	case Glob:
		return LiteralPrefix(pattern)
	case CamelCase:
		// Humps after the first character may be separated by any number
		// of lowercase characters; only the first character is fixed.
		_, size := utf8.DecodeRuneInString(pattern)
		return pattern[:size]
	}
	return ""
}

func hasPrefix(name, prefix string, caseSensitive bool) bool {
	if len(prefix) > len(name) {
		return false
	}
	if caseSensitive {
		return strings.HasPrefix(name, prefix)
	}
	return strings.EqualFold(name[:len(prefix)], prefix)
}

// globEscaper neutralizes doublestar syntax other than * and ?, which names
// such as "String[]" would otherwise trigger.
var globEscaper = strings.NewReplacer(
	`\`, `\\`,
	`[`, `\[`,
	`]`, `\]`,
	`{`, `\{`,
	`}`, `\}`,
)

func globMatch(pattern, name string, caseSensitive bool) bool {
	if !caseSensitive {
		pattern = strings.ToLower(pattern)
		name = strings.ToLower(name)
	}
	ok, err := doublestar.Match(globEscaper.Replace(pattern), name)
	return err == nil && ok
}

// camelCaseMatch matches an abbreviation made of name humps, e.g. "NPE" or
// "NuPoEx" against "NullPointerException". The first character must match
// exactly. A lowercase pattern character must match the next name character;
// an uppercase or digit pattern character skips lowercase name characters up
// to the next hump and must match it.
func camelCaseMatch(pattern, name string) bool {
	if pattern == "" {
		return true
	}
	p := []rune(pattern)
	n := []rune(name)
	if len(n) == 0 || p[0] != n[0] {
		return false
	}
	ip, in := 0, 0
	for {
		ip++
		in++
		if ip == len(p) {
			return true
		}
		if in == len(n) {
			return false
		}
		pc := p[ip]
		if pc == n[in] {
			continue
		}
		if !isHump(pc) {
			return false
		}
	hump:
		for {
			if in == len(n) {
				return false
			}
			nc := n[in]
			switch {
			case unicode.IsDigit(nc):
				if nc == pc {
					break hump
				}
				in++
			case !unicode.IsUpper(nc):
				in++
			case nc != pc:
				return false
			default:
				break hump
			}
		}
	}
}

func isHump(c rune) bool {
	return unicode.IsUpper(c) || unicode.IsDigit(c)
}
