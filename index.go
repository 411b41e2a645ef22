package quarry

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jward/quarry/internal/binary"
	"github.com/jward/quarry/internal/java"
	"github.com/jward/quarry/internal/store"
)

// IndexFiles indexes the given Java source paths. When WithParallel is
// enabled it uses the worker pool of IndexFilesParallel, otherwise the
// serial path.
//
// For each file:
//  1. Skip non-Java files and files no build context claims
//  2. Skip unchanged files (same content hash and context)
//  3. Delete the stale document and everything extracted from it
//  4. Parse the whole file and write its postings, type declarations
//     and package
func (e *Engine) IndexFiles(ctx context.Context, paths []string) error {
	if e.useParallel {
		return e.IndexFilesParallel(ctx, paths)
	}
	return e.indexFilesSerial(ctx, paths)
}

func (e *Engine) indexFilesSerial(ctx context.Context, paths []string) error {
	start := time.Now()
	parser := java.NewParser()
	defer parser.Close()

	var errs []error
	indexed, skipped := 0, 0
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("index: %w", err)
		}
		item, skip, err := e.prepareFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("prepare %s: %w", path, err))
			continue
		}
		if skip {
			skipped++
			continue
		}
		if err := e.commitFile(item, e.extractFile(ctx, parser, item)); err != nil {
			errs = append(errs, err)
			continue
		}
		indexed++
	}

	e.logger.Info("index.done", "files", indexed, "skipped", skipped, "errors", len(errs), "elapsed", time.Since(start))
	if len(errs) > 0 {
		return fmt.Errorf("indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

// prepareFile does Phase A work for a single file: hash check, cleanup,
// document record. skip=true means the file is unchanged or unclaimed.
func (e *Engine) prepareFile(path string) (workItem, bool, error) {
	if !java.IsSource(path) {
		return workItem{}, true, nil
	}
	bc, ok := e.contextOf(path)
	if !ok {
		return workItem{}, true, nil
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return workItem{}, false, fmt.Errorf("read file: %w", err)
	}
	hash := store.ContentHash(src)

	existing, err := e.store.DocumentByPath(path)
	if err != nil {
		return workItem{}, false, fmt.Errorf("lookup document: %w", err)
	}
	if existing != nil {
		if existing.Hash == hash && existing.Context == bc.Name {
			return workItem{}, true, nil
		}
		if err := e.store.DeleteDocumentData(existing.ID); err != nil {
			return workItem{}, false, fmt.Errorf("delete old data: %w", err)
		}
	}

	docID, err := e.store.InsertDocument(&store.Document{
		Path:        path,
		Context:     bc.Name,
		Kind:        store.KindSource,
		Hash:        hash,
		LastIndexed: time.Now(),
	})
	if err != nil {
		return workItem{}, false, fmt.Errorf("insert document: %w", err)
	}
	return workItem{
		path:    path,
		context: bc.Name,
		docID:   docID,
		src:     src,
		batch:   store.NewBatchedStore(),
	}, false, nil
}

// extractFile parses one file completely and writes its index data to the
// item's batch.
func (e *Engine) extractFile(ctx context.Context, parser *java.Parser, item workItem) error {
	tree, err := parser.ParseFull(ctx, item.path, item.src)
	if err != nil {
		return err
	}
	defer tree.Release()
	return java.Extract(tree, item.docID, item.context, item.batch)
}

// IndexLibrary indexes a binary descriptor manifest as one document per
// type and puts it on the classpath of the named build context. An
// unchanged manifest is only attached.
func (e *Engine) IndexLibrary(ctx context.Context, manifestPath, contextName string) error {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("index library %s: %w", manifestPath, err)
	}
	m, err := binary.Parse(manifestPath, data)
	if err != nil {
		return fmt.Errorf("index library: %w", err)
	}
	hash := store.ContentHash(data)

	existing, err := e.store.DocumentsByContext(manifestPath)
	if err != nil {
		return fmt.Errorf("index library %s: %w", manifestPath, err)
	}
	if upToDate(existing, hash, len(m.Types)) {
		e.attachLibrary(contextName, manifestPath)
		return nil
	}
	for _, d := range existing {
		if err := e.store.DeleteDocumentData(d.ID); err != nil {
			return fmt.Errorf("index library %s: %w", manifestPath, err)
		}
	}

	batch := store.NewBatchedStore()
	now := time.Now()
	for i := range m.Types {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("index library: %w", err)
		}
		t := &m.Types[i]
		docID, err := e.store.InsertDocument(&store.Document{
			Path:        binary.DocumentPath(manifestPath, t),
			Context:     manifestPath,
			Kind:        store.KindBinary,
			Hash:        hash,
			LastIndexed: now,
		})
		if err != nil {
			return fmt.Errorf("index library %s: %w", manifestPath, err)
		}
		if err := binary.Extract(m, t, docID, batch); err != nil {
			return fmt.Errorf("index library %s: %w", manifestPath, err)
		}
	}
	if err := e.store.CommitBatch(batch); err != nil {
		return fmt.Errorf("index library %s: %w", manifestPath, err)
	}

	e.attachLibrary(contextName, manifestPath)
	e.logger.Info("index.done", "library", m.Library, "manifest", manifestPath, "types", len(m.Types), "context", contextName)
	return nil
}

func upToDate(docs []*store.Document, hash string, types int) bool {
	if len(docs) == 0 || len(docs) != types {
		return false
	}
	for _, d := range docs {
		if d.Hash != hash {
			return false
		}
	}
	return true
}
