package pipeline

import (
	"context"
	"runtime"
	"sync"

	"docverify/imageio"
	"docverify/observability"
	"docverify/ocr"
)

// BatchItem is the outcome for one document in a batch: exactly one of
// Result and Err is set.
type BatchItem struct {
	ID     string
	Result *DocumentResult
	Err    error
}

// BatchResult aggregates a batch run. A failure on one document never
// aborts the others; failures are collected alongside successes.
type BatchResult struct {
	Items []BatchItem
}

// Errors returns the per-document failures keyed by document ID.
func (b *BatchResult) Errors() map[string]error {
	out := make(map[string]error)
	for _, it := range b.Items {
		if it.Err != nil {
			out[it.ID] = it.Err
		}
	}
	return out
}

// ProcessBatch runs the per-document pipeline over independent documents on
// a worker pool. workers <= 0 sizes the pool to the available CPUs. The OCR
// engine is probed once up front; an unavailable engine is fatal for the
// whole run since no document could be extracted.
func (p *Pipeline) ProcessBatch(ctx context.Context, docs []*imageio.DocumentImage, workers int) (*BatchResult, error) {
	if err := ocr.Probe(ctx, p.engine); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(docs) {
		workers = len(docs)
	}

	items := make([]BatchItem, len(docs))
	idx := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				doc := docs[i]
				res, err := p.ProcessDocument(ctx, doc)
				items[i] = BatchItem{ID: doc.ID, Result: res, Err: err}
			}
		}()
	}
	for i := range docs {
		select {
		case <-ctx.Done():
			close(idx)
			wg.Wait()
			return nil, ctx.Err()
		case idx <- i:
		}
	}
	close(idx)
	wg.Wait()

	failures := 0
	for _, it := range items {
		if it.Err != nil {
			failures++
		}
	}
	p.log.Info("batch processed",
		observability.Int("documents", len(docs)),
		observability.Int("failures", failures))
	return &BatchResult{Items: items}, nil
}
