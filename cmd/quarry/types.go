package main

// CLIResult is the top-level JSON envelope for all search commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	// Truncated is set when --limit stopped the search early.
	Truncated bool   `json:"truncated,omitempty"`
	Error     string `json:"error,omitempty"`
}

// CLIMatch is a JSON-friendly match. File is relative to the project root;
// for compiled types it is "<manifest>|<pkg.Type>" and the position fields
// are zero.
type CLIMatch struct {
	File     string `json:"file"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
	Start    int    `json:"start,omitempty"`
	End      int    `json:"end,omitempty"`
	Binary   bool   `json:"binary,omitempty"`
	Handle   string `json:"handle"`
	Accuracy string `json:"accuracy"`
}

// CLIPackage is a package and the first document declaring it.
type CLIPackage struct {
	Name string `json:"name"`
	File string `json:"file"`
}

// CLIHierarchy is the lineage of one type.
type CLIHierarchy struct {
	Type         string     `json:"type"`
	Kind         string     `json:"kind"`
	Supertypes   []string   `json:"supertypes"`
	Missing      []string   `json:"missing,omitempty"`
	Subclasses   []CLIMatch `json:"subclasses"`
	Implementors []CLIMatch `json:"implementors"`
}
