package quarry

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jward/quarry/internal/java"
	"github.com/jward/quarry/internal/store"
)

// workItem holds everything an extraction worker needs.
type workItem struct {
	path    string
	context string
	docID   int64
	src     []byte
	batch   *store.BatchedStore
}

// IndexFilesParallel indexes files using a three-phase pipeline:
//
//	Phase A (serial):   hash check, delete stale data, insert document rows.
//	Phase B (parallel): parse and extract into per-file batches.
//	Phase C (serial):   commit batches to SQLite.
//
// Each worker owns its tree-sitter parser. Only Phase A and Phase C touch
// the database.
func (e *Engine) IndexFilesParallel(ctx context.Context, paths []string) error {
	start := time.Now()

	// ---- Phase A: Serial preparation ----
	items, skipped, errs := e.prepareAll(ctx, paths)
	if err := ctx.Err(); err != nil {
		e.discard(items)
		return fmt.Errorf("index: %w", err)
	}

	// ---- Phase B: Parallel extraction ----
	results := make([]error, len(items))
	if len(items) > 0 {
		numWorkers := min(e.workers, len(items))
		work := make(chan int)
		g := new(errgroup.Group)
		for range numWorkers {
			g.Go(func() error {
				parser := java.NewParser()
				defer parser.Close()
				for i := range work {
					results[i] = e.extractFile(ctx, parser, items[i])
				}
				return nil
			})
		}
	feed:
		for i := range items {
			select {
			case work <- i:
			case <-ctx.Done():
				break feed
			}
		}
		close(work)
		_ = g.Wait()
	}
	if err := ctx.Err(); err != nil {
		e.discard(items)
		return fmt.Errorf("index: %w", err)
	}

	// ---- Phase C: Serial commit ----
	indexed := 0
	for i, item := range items {
		if err := e.commitFile(item, results[i]); err != nil {
			errs = append(errs, err)
			continue
		}
		indexed++
	}

	e.logger.Info("index.done",
		"files", indexed, "skipped", skipped, "errors", len(errs),
		"workers", min(e.workers, max(len(items), 1)), "elapsed", time.Since(start))
	if len(errs) > 0 {
		return fmt.Errorf("indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

// prepareAll runs Phase A over paths, stopping early on cancellation.
func (e *Engine) prepareAll(ctx context.Context, paths []string) ([]workItem, int, []error) {
	var (
		items   []workItem
		errs    []error
		skipped int
	)
	for _, path := range paths {
		if ctx.Err() != nil {
			break
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
		items = append(items, item)
	}
	return items, skipped, errs
}

// commitFile runs Phase C for one file. A file whose extraction failed has
// its document row removed so the next run retries it.
func (e *Engine) commitFile(item workItem, extractErr error) error {
	if extractErr != nil {
		_ = e.store.DeleteDocumentData(item.docID)
		return fmt.Errorf("extract %s: %w", item.path, extractErr)
	}
	if err := e.store.CommitBatch(item.batch); err != nil {
		_ = e.store.DeleteDocumentData(item.docID)
		return fmt.Errorf("commit %s: %w", item.path, err)
	}
	e.logger.Debug("index.file", "path", item.path, "context", item.context, "rows", item.batch.Len())
	return nil
}

// discard removes the document rows of items that were never committed.
func (e *Engine) discard(items []workItem) {
	for _, item := range items {
		_ = e.store.DeleteDocumentData(item.docID)
	}
}
