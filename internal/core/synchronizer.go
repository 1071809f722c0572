package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"polity/internal/search"
	"polity/pkg/domain"
)

// IndexFailure records one document operation that exhausted its retries.
type IndexFailure struct {
	Index    string
	ID       string
	Language string
	Action   string
	Err      error
}

func (f IndexFailure) Error() string {
	return fmt.Sprintf("%s %s/%s|%s: %v", f.Action, f.Index, f.ID, f.Language, f.Err)
}

func (f IndexFailure) Unwrap() error { return f.Err }

// IndexSyncError aggregates the document failures of one synchronization pass.
type IndexSyncError struct {
	Failures []IndexFailure
}

func (e *IndexSyncError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Error())
	}
	return fmt.Sprintf("index sync: %d document(s) failed: %s", len(e.Failures), strings.Join(parts, "; "))
}

// Unwrap exposes the per-document failures to errors.Is and errors.As.
func (e *IndexSyncError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f)
	}
	return errs
}

// docOp is a resolved index mutation for one (index, id, language) key.
type docOp struct {
	remove bool
	doc    search.Document
}

// Synchronizer writes planned index operations with per-document retries.
type Synchronizer struct {
	index    search.Index
	logger   Logger
	metrics  IndexMetrics
	attempts int
	interval time.Duration
}

func (s *Service) synchronizer() *Synchronizer {
	return &Synchronizer{
		index:    s.index,
		logger:   s.logger,
		metrics:  s.indexMetrics,
		attempts: s.syncAttempts,
		interval: s.syncInterval,
	}
}

// resolve renders plan into document operations using view. Syncs of records
// that no longer exist produce nothing.
func (z *Synchronizer) resolve(view domain.TransactionView, plan *IndexPlan) ([]docOp, error) {
	var ops []docOp
	for _, op := range plan.Ops() {
		index, ok := IndexName(op.Ref.Type)
		if !ok {
			return nil, fmt.Errorf("%s is not indexed", op.Ref.Type)
		}
		if op.Remove {
			for _, lang := range op.Languages {
				ops = append(ops, docOp{remove: true, doc: search.Document{Index: index, ID: op.Ref.ID, Language: lang}})
			}
			continue
		}
		for _, lang := range view.Languages(op.Ref) {
			doc, ok, err := buildDocument(view, op.Ref, lang)
			if err != nil {
				return nil, err
			}
			if ok {
				ops = append(ops, docOp{doc: doc})
			}
		}
	}
	return ops, nil
}

// Apply resolves plan against a read view of store and writes the result.
// Documents are rendered under the view; index calls happen after it is released.
func (z *Synchronizer) Apply(ctx context.Context, store domain.PersistentStore, plan *IndexPlan) error {
	var ops []docOp
	err := store.View(ctx, func(view domain.TransactionView) error {
		var err error
		ops, err = z.resolve(view, plan)
		return err
	})
	if err != nil {
		return err
	}
	return z.write(ctx, ops)
}

// write performs ops in order. Every failed document is retried, then
// recorded; the remaining operations still run.
func (z *Synchronizer) write(ctx context.Context, ops []docOp) error {
	var failures []IndexFailure
	for _, op := range ops {
		action := "sync"
		if op.remove {
			action = "remove"
		}
		err := z.retry(ctx, op.doc.Index, action, func() error {
			if op.remove {
				return z.index.Delete(ctx, op.doc.Index, op.doc.ID, op.doc.Language)
			}
			return z.Upsert(ctx, op.doc)
		})
		z.metrics.ObserveIndexOp(op.doc.Index, action, err == nil)
		if err != nil {
			failures = append(failures, IndexFailure{Index: op.doc.Index, ID: op.doc.ID, Language: op.doc.Language, Action: action, Err: err})
		}
	}
	if len(failures) > 0 {
		return &IndexSyncError{Failures: failures}
	}
	return nil
}

// Upsert looks the key up with an id and language query, then adds or
// updates. Repeated calls leave exactly one document per key.
func (z *Synchronizer) Upsert(ctx context.Context, doc search.Document) error {
	query := fmt.Sprintf("id:%s AND language_code:%s", doc.ID, doc.Language)
	hits, err := z.index.Search(ctx, doc.Index, query, doc.Language)
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		err = z.index.Add(ctx, doc)
		if !errors.Is(err, search.ErrExists) {
			return err
		}
	}
	return z.index.Update(ctx, doc)
}

func (z *Synchronizer) retry(ctx context.Context, index, action string, op func() error) error {
	attempts := z.attempts
	if attempts < 1 {
		attempts = 1
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = z.interval
	policy.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(attempts-1)), ctx)
	return backoff.RetryNotify(func() error {
		err := op()
		if errors.Is(err, search.ErrBadQuery) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, wait time.Duration) {
		z.metrics.ObserveIndexRetry(index, action)
		z.logger.Warn("index write failed, retrying", "index", index, "action", action, "wait", wait, "error", err)
	})
}
