package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jward/quarry"
	"github.com/jward/quarry/internal/pattern"
)

var (
	flagContexts []string
	flagInclude  []string
	flagExclude  []string
	flagFocus    string
	flagFile     string
	flagLimit    int
	flagMode     string
	flagNoCase   bool
)

// errLimit stops a search once --limit matches were collected.
var errLimit = errors.New("result limit reached")

// addScopeFlags registers the flags that narrow a search scope.
func addScopeFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&flagContexts, "context", nil, "restrict to build contexts (repeatable)")
	cmd.Flags().StringSliceVar(&flagInclude, "include", nil, "only documents matching these globs, relative to the root")
	cmd.Flags().StringSliceVar(&flagExclude, "exclude", nil, "skip documents matching these globs, relative to the root")
}

// buildScope creates a Scope from CLI flags, nil when none narrow it.
func buildScope() *quarry.Scope {
	var opts []quarry.ScopeOption
	if len(flagContexts) > 0 {
		opts = append(opts, quarry.InContexts(flagContexts...))
	}
	if len(flagInclude) > 0 {
		opts = append(opts, quarry.IncludePaths(flagInclude...))
	}
	if len(flagExclude) > 0 {
		opts = append(opts, quarry.ExcludePaths(flagExclude...))
	}
	if flagFocus != "" {
		opts = append(opts, quarry.WithHierarchyFocus(flagFocus))
	}
	if len(opts) == 0 {
		return nil
	}
	return quarry.NewScope(opts...)
}

// limitedSink collects matches until the limit is reached.
type limitedSink struct {
	root    string
	limit   int
	matches []CLIMatch
}

func (s *limitedSink) Accept(m quarry.Match) error {
	if s.limit > 0 && len(s.matches) >= s.limit {
		return errLimit
	}
	s.matches = append(s.matches, toCLIMatch(s.root, m))
	return nil
}

var searchCmd = &cobra.Command{
	Use:   "search [expression]",
	Short: "Search for declarations and references",
	Long: `Compiles a pattern expression and reports every match in the index.

  quarry search 'method("run", {"declaring": "com.acme.Base"})'
  quarry search 'any_of(type_ref("Widget"), field("next"))' --context main
  quarry search --file patterns/serializers.risor

Each match carries its accuracy: ACCURATE when confirmed, INACCURATE when
a binding was missing or resolution aborted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	addScopeFlags(searchCmd)
	searchCmd.Flags().StringVar(&flagFocus, "focus", "", "only documents that can see this qualified type")
	searchCmd.Flags().StringVar(&flagFile, "file", "", "read the pattern from a .risor file")
	searchCmd.Flags().IntVar(&flagLimit, "limit", 0, "stop after this many matches (0: no limit)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	ctx := cmd.Context()

	if (len(args) == 0) == (flagFile == "") {
		return outputError(stdout, stderr, "search", errors.New("give either an expression or --file"))
	}

	engine, root, err := openEngine(cmd)
	if err != nil {
		return outputError(stdout, stderr, "search", err)
	}
	defer engine.Close()

	var p quarry.Pattern
	if flagFile != "" {
		p, err = engine.CompileFile(ctx, flagFile)
	} else {
		p, err = engine.Compile(ctx, args[0])
	}
	if err != nil {
		return outputError(stdout, stderr, "search", err)
	}

	sink := &limitedSink{root: root, limit: flagLimit}
	err = engine.Search(ctx, p, buildScope(), sink)
	truncated := errors.Is(err, errLimit)
	if err != nil && !truncated {
		return outputError(stdout, stderr, "search", err)
	}

	results := sink.matches
	if results == nil {
		results = []CLIMatch{}
	}
	result := CLIResult{Command: "search", Results: results, Truncated: truncated}
	if !truncated {
		n := len(results)
		result.TotalCount = &n
	}
	return outputResult(stdout, result)
}

var packagesCmd = &cobra.Command{
	Use:   "packages <name>",
	Short: "List declared packages matching a name",
	Long:  "Matches package names segment by segment: \"com.*.util\" and \"com.acme.**\" are accepted. Each package is reported once, with the first document declaring it.",
	Args:  cobra.ExactArgs(1),
	RunE:  runPackages,
}

func init() {
	addScopeFlags(packagesCmd)
	packagesCmd.Flags().StringVar(&flagMode, "mode", "exact", "match mode: exact|prefix|glob|camelcase")
	packagesCmd.Flags().BoolVar(&flagNoCase, "ignore-case", false, "case-insensitive match")
}

func runPackages(cmd *cobra.Command, args []string) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	mode, err := pattern.ParseMode(flagMode)
	if err != nil {
		return outputError(stdout, stderr, "packages", err)
	}
	engine, root, err := openEngine(cmd)
	if err != nil {
		return outputError(stdout, stderr, "packages", err)
	}
	defer engine.Close()

	rule := pattern.MatchRule{Mode: mode, CaseSensitive: !flagNoCase}
	p := pattern.NewPackageDecl(args[0], pattern.WithRule(rule))
	pkgs := []CLIPackage{}
	err = engine.SearchPackages(cmd.Context(), p, buildScope(), quarry.SinkFunc(func(m quarry.Match) error {
		pkgs = append(pkgs, CLIPackage{Name: m.Handle, File: location(root, m.Path)})
		return nil
	}))
	if err != nil {
		return outputError(stdout, stderr, "packages", err)
	}
	n := len(pkgs)
	return outputResult(stdout, CLIResult{Command: "packages", Results: pkgs, TotalCount: &n})
}

var hierarchyCmd = &cobra.Command{
	Use:   "hierarchy <type>",
	Short: "Show the supertypes and direct subtypes of a type",
	Args:  cobra.ExactArgs(1),
	RunE:  runHierarchy,
}

func init() {
	addScopeFlags(hierarchyCmd)
}

func runHierarchy(cmd *cobra.Command, args []string) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	engine, root, err := openEngine(cmd)
	if err != nil {
		return outputError(stdout, stderr, "hierarchy", err)
	}
	defer engine.Close()

	th, err := engine.TypeHierarchy(cmd.Context(), args[0], buildScope())
	if err != nil {
		return outputError(stdout, stderr, "hierarchy", err)
	}
	if th == nil {
		return outputError(stdout, stderr, "hierarchy", fmt.Errorf("unknown type: %s", args[0]))
	}
	h := CLIHierarchy{
		Type:         th.Type,
		Kind:         th.Kind,
		Supertypes:   th.Supertypes,
		Missing:      th.Missing,
		Subclasses:   []CLIMatch{},
		Implementors: []CLIMatch{},
	}
	if h.Supertypes == nil {
		h.Supertypes = []string{}
	}
	for _, m := range th.Subclasses {
		h.Subclasses = append(h.Subclasses, toCLIMatch(root, m))
	}
	for _, m := range th.Implementors {
		h.Implementors = append(h.Implementors, toCLIMatch(root, m))
	}
	return outputResult(stdout, CLIResult{Command: "hierarchy", Results: h})
}
