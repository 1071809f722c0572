package core

import (
	"context"
	"errors"
	"time"

	"polity/internal/blob"
	"polity/internal/infra/persistence/memory"
	"polity/internal/search"
	"polity/pkg/domain"
)

const (
	defaultSyncAttempts = 3
	defaultSyncInterval = 50 * time.Millisecond
)

// Service is the write and read surface of the entity store. Every write runs
// the nested-write resolver inside one store transaction and, after commit,
// brings the search index up to date for the affected closure.
type Service struct {
	store        domain.PersistentStore
	index        search.Index
	archive      blob.Store
	clock        Clock
	logger       Logger
	metrics      MetricsRecorder
	indexMetrics IndexMetrics
	tracer       Tracer
	audit        AuditRecorder
	syncAttempts int
	syncInterval time.Duration
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	svc := &Service{
		store:        store,
		index:        search.NewMemory(),
		clock:        ClockFunc(func() time.Time { return time.Now().UTC() }),
		logger:       noopLogger{},
		metrics:      noopMetricsRecorder{},
		indexMetrics: noopIndexMetrics{},
		tracer:       noopTracer{},
		audit:        noopAuditRecorder{},
		syncAttempts: defaultSyncAttempts,
		syncInterval: defaultSyncInterval,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	if setter, ok := store.(interface{ SetNowFunc(func() time.Time) }); ok {
		setter.SetNowFunc(svc.clock.Now)
	}
	return svc
}

// NewInMemoryService creates a service over a fresh in-memory store using engine.
func NewInMemoryService(engine *domain.RulesEngine, opts ...Option) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore { return s.store }

// Index returns the search index kept in sync by the service.
func (s *Service) Index() search.Index { return s.index }

func (s *Service) now() time.Time { return s.clock.Now() }

// run wraps one service operation with tracing, metrics, logging and audit.
// fn returns the id of the primary record it acted on.
func (s *Service) run(ctx context.Context, op string, fn func(context.Context) (string, error)) error {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, op)
	id, err := fn(ctx)
	elapsed := time.Since(started)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, elapsed)
	if err != nil {
		s.logger.Error("operation failed", "operation", op, "id", id, "error", err)
		s.recordAudit(ctx, op, id, elapsed, err)
		return err
	}
	s.logger.Debug("operation completed", "operation", op, "id", id, "duration", elapsed)
	s.recordAudit(ctx, op, id, elapsed, nil)
	return nil
}

type auditedOperation struct {
	entity domain.EntityType
	action domain.Action
}

var auditedOperations = map[string]auditedOperation{
	"create_person":         {domain.EntityPerson, domain.ActionCreate},
	"update_person":         {domain.EntityPerson, domain.ActionUpdate},
	"delete_person":         {domain.EntityPerson, domain.ActionDelete},
	"create_organization":   {domain.EntityOrganization, domain.ActionCreate},
	"update_organization":   {domain.EntityOrganization, domain.ActionUpdate},
	"delete_organization":   {domain.EntityOrganization, domain.ActionDelete},
	"create_post":           {domain.EntityPost, domain.ActionCreate},
	"update_post":           {domain.EntityPost, domain.ActionUpdate},
	"delete_post":           {domain.EntityPost, domain.ActionDelete},
	"create_membership":     {domain.EntityMembership, domain.ActionCreate},
	"update_membership":     {domain.EntityMembership, domain.ActionUpdate},
	"delete_membership":     {domain.EntityMembership, domain.ActionDelete},
	"create_area":           {domain.EntityArea, domain.ActionCreate},
	"create_contact_detail": {domain.EntityContactDetail, domain.ActionCreate},
	"update_contact_detail": {domain.EntityContactDetail, domain.ActionUpdate},
	"delete_contact_detail": {domain.EntityContactDetail, domain.ActionDelete},
	"create_link":           {domain.EntityLink, domain.ActionCreate},
	"update_link":           {domain.EntityLink, domain.ActionUpdate},
	"delete_link":           {domain.EntityLink, domain.ActionDelete},
	"create_identifier":     {domain.EntityIdentifier, domain.ActionCreate},
	"update_identifier":     {domain.EntityIdentifier, domain.ActionUpdate},
	"delete_identifier":     {domain.EntityIdentifier, domain.ActionDelete},
	"create_other_name":     {domain.EntityOtherName, domain.ActionCreate},
	"update_other_name":     {domain.EntityOtherName, domain.ActionUpdate},
	"delete_other_name":     {domain.EntityOtherName, domain.ActionDelete},
	"add_citation":          {domain.EntityLink, domain.ActionCreate},
}

func (s *Service) recordAudit(ctx context.Context, op, id string, elapsed time.Duration, err error) {
	meta, ok := auditedOperations[op]
	if !ok {
		return
	}
	entry := AuditEntry{
		Operation: op,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  id,
		Status:    AuditStatusSuccess,
		Duration:  elapsed,
		Timestamp: s.now(),
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
}

// write runs fn in a store transaction and applies the index plan it builds
// once the transaction has committed. Rule violations raised by the store are
// reported as a ValidationError.
func (s *Service) write(ctx context.Context, fn func(tx domain.Transaction, plan *IndexPlan) error) (domain.Result, error) {
	plan := NewIndexPlan()
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return fn(tx, plan)
	})
	if err != nil {
		var rv domain.RuleViolationError
		if errors.As(err, &rv) {
			return res, rv.ValidationError()
		}
		return res, err
	}
	for _, v := range res.Violations {
		s.logger.Warn("rule violation", "rule", v.Rule, "entity", v.Entity, "id", v.EntityID, "message", v.Message)
	}
	s.syncPlan(ctx, plan)
	return res, nil
}

// syncPlan applies plan to the index. Failures are logged and never returned
// to the writer; the store has already committed.
func (s *Service) syncPlan(ctx context.Context, plan *IndexPlan) {
	if plan.Empty() {
		return
	}
	if err := s.synchronizer().Apply(ctx, s.store, plan); err != nil {
		s.logger.Error("index synchronization failed", "error", err, "operations", plan.Len())
	}
}

func (s *Service) view(ctx context.Context, fn func(domain.TransactionView) error) error {
	return s.store.View(ctx, fn)
}

func language(lang string) string {
	if lang == "" {
		return domain.DefaultLanguage
	}
	return lang
}
