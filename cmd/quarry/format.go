package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/jward/quarry"
	"github.com/jward/quarry/internal/binary"
)

// validateFormat returns an error if format is not "json" or "text".
func validateFormat(format string) error {
	switch format {
	case "json", "text":
		return nil
	default:
		return fmt.Errorf("invalid format %q: must be json or text", format)
	}
}

// toCLIMatch converts an engine match, shortening paths against root.
func toCLIMatch(root string, m quarry.Match) CLIMatch {
	out := CLIMatch{
		File:     location(root, m.Path),
		Handle:   m.Handle,
		Accuracy: m.Accuracy.String(),
	}
	if _, _, ok := binary.SplitDocumentPath(m.Path); ok {
		out.Binary = true
		return out
	}
	out.Line, out.Column = m.Line, m.Column
	out.Start, out.End = m.Start, m.End
	return out
}

// location renders a document path relative to root. Compiled types print
// as "<manifest>|<pkg.Type>".
func location(root, path string) string {
	if manifest, name, ok := binary.SplitDocumentPath(path); ok {
		return relPath(root, manifest) + "|" + name
	}
	return relPath(root, path)
}

func relPath(root, path string) string {
	if root == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

// formatMatchesText prints one "file:line:col ACCURACY handle" line per
// match, "file ACCURACY handle" for compiled types.
func formatMatchesText(w io.Writer, matches []CLIMatch) {
	for _, m := range matches {
		fmt.Fprintln(w, matchLine(m))
	}
}

func matchLine(m CLIMatch) string {
	if m.Binary {
		return fmt.Sprintf("%s %s %s", m.File, m.Accuracy, m.Handle)
	}
	return fmt.Sprintf("%s:%d:%d %s %s", m.File, m.Line, m.Column, m.Accuracy, m.Handle)
}

// formatPackagesText formats CLIPackage results as aligned columns.
func formatPackagesText(w io.Writer, pkgs []CLIPackage) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PACKAGE\tFILE")
	for _, p := range pkgs {
		fmt.Fprintf(tw, "%s\t%s\n", p.Name, p.File)
	}
	tw.Flush()
}

// formatHierarchyText prints the type, its supertypes, then its direct
// subtypes.
func formatHierarchyText(w io.Writer, h CLIHierarchy) {
	fmt.Fprintf(w, "%s %s\n", h.Kind, h.Type)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, s := range h.Supertypes {
		fmt.Fprintf(tw, "  super\t%s\n", s)
	}
	for _, s := range h.Missing {
		fmt.Fprintf(tw, "  missing\t%s\n", s)
	}
	for _, m := range h.Subclasses {
		fmt.Fprintf(tw, "  subclass\t%s\n", matchLine(m))
	}
	for _, m := range h.Implementors {
		fmt.Fprintf(tw, "  implementor\t%s\n", matchLine(m))
	}
	tw.Flush()
}

// outputResult writes result to w in the selected format.
func outputResult(w io.Writer, result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(w, result)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLIMatch:
		formatMatchesText(w, v)
	case []CLIPackage:
		formatPackagesText(w, v)
	case CLIHierarchy:
		formatHierarchyText(w, v)
	case nil:
		// Unknown hierarchy type.
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	if result.Truncated {
		fmt.Fprintf(w, "(stopped after %d results)\n", resultLen(result.Results))
	}
	return nil
}

func resultLen(v any) int {
	switch r := v.(type) {
	case []CLIMatch:
		return len(r)
	case []CLIPackage:
		return len(r)
	}
	return 0
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(stdout, stderr io.Writer, command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return err
}
