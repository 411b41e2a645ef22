// Package quarry is a structural search engine for Java sources and
// compiled library descriptors. A search finds the declarations and
// references of types, fields, methods, constructors and packages that
// match a pattern, and labels every match ACCURATE or INACCURATE.
//
// # Pipeline
//
// Indexing writes, per document, the keys a pattern can be answered from:
// declared names with their shape (arity, package, kind) and every
// referenced simple name. A search then runs per batch of candidate
// documents:
//
//  1. Collect: intersect the posting lists of the pattern's index keys and
//     sort the candidates by build context, then path.
//  2. Parse: build declaration-only skeletons. Bodies are parsed only when
//     they may contain the pattern's name.
//  3. Sweep: classify every node by shape alone as impossible, possible,
//     inaccurate or accurate.
//  4. Resolve: bind the documents with possible matches against a binding
//     environment shared by the batch. A document that cannot be bound
//     reports its possible matches as inaccurate.
//  5. Report: emit matches in source order and release the trees.
//
// # Usage
//
//	e, err := quarry.New(".quarry/index.db")
//	if err != nil { ... }
//	defer e.Close()
//
//	ctx := context.Background()
//	err = e.IndexDirectory(ctx, "path/to/project")
//
//	p, err := e.Compile(ctx, `method("run", {"params": []})`)
//	err = e.Search(ctx, p, nil, quarry.SinkFunc(func(m quarry.Match) error {
//		fmt.Println(m.Path, m.Line, m.Accuracy, m.Handle)
//		return nil
//	}))
//
// # Scopes
//
// A [Scope] limits a search to build contexts, to path globs, or to the
// type hierarchy of one type ([WithHierarchyFocus]). A nil Scope is the
// whole workspace.
//
// # Hierarchies
//
// [Engine.TypeHierarchy] lists the supertypes of a type and its direct
// subclasses and implementors.
//
// # Incremental Indexing
//
// [Engine.IndexFiles] detects unchanged files via content hashing and skips
// them. Library manifests ([Engine.IndexLibrary]) are reindexed when their
// content changes.
package quarry
