package document_processor

import (
	"context"
	"github.com/rideon/docguard/common_models"
	"github.com/ztrue/tracerr"
	"golang.org/x/sync/errgroup"
	"sync"
)

// Submission is one document of a registration, with its processing options.
type Submission struct {
	File    *common_models.DocumentFile
	Options common_models.ProcessDocumentOptions
}

// Progress is reported once per finished document. Done strictly increases over a batch.
type Progress struct {
	Done     int
	Total    int
	Document string
	State    common_models.ProcessingState
}

// ProcessAll processes every submission, and returns the results in input order.
// Documents are processed one at a time unless Options.Concurrency is above 1.
// The first error, including cancellation of ctx, abandons the remaining documents and no result is returned.
func (p *Processor) ProcessAll(ctx context.Context, submissions []Submission, progress func(Progress)) ([]*common_models.ProcessedDocument, error) {
	if p.options.Concurrency > 1 && len(submissions) > 1 {
		return p.processConcurrently(ctx, submissions, progress)
	}

	results := make([]*common_models.ProcessedDocument, len(submissions))
	for i, submission := range submissions {
		doc, err := p.Process(ctx, submission.File, submission.Options)
		if err != nil {
			return nil, tracerr.Wrap(err)
		}
		results[i] = doc
		if progress != nil {
			progress(Progress{Done: i + 1, Total: len(submissions), Document: doc.OriginalName, State: doc.State})
		}
	}
	return results, nil
}

func (p *Processor) processConcurrently(ctx context.Context, submissions []Submission, progress func(Progress)) ([]*common_models.ProcessedDocument, error) {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.options.Concurrency)

	results := make([]*common_models.ProcessedDocument, len(submissions))
	var progressLock sync.Mutex
	done := 0

	for i, submission := range submissions {
		g.Go(func() error {
			doc, err := p.Process(gCtx, submission.File, submission.Options)
			if err != nil {
				return tracerr.Wrap(err)
			}
			results[i] = doc // each goroutine owns its own slot

			progressLock.Lock()
			defer progressLock.Unlock()
			done++
			if progress != nil {
				progress(Progress{Done: done, Total: len(submissions), Document: doc.OriginalName, State: doc.State})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
