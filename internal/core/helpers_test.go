package core_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"polity/internal/core"
	"polity/internal/search"
	"polity/pkg/domain"
)

// recordingIndex wraps an index and records every mutation. Writes fail while
// failWrites is positive.
type recordingIndex struct {
	search.Index
	mu         sync.Mutex
	writes     []string
	failWrites int
}

func newRecordingIndex() *recordingIndex {
	return &recordingIndex{Index: search.NewMemory()}
}

var errIndexDown = errors.New("index unavailable")

func (r *recordingIndex) record(action string, index, id, lang string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites > 0 {
		r.failWrites--
		return errIndexDown
	}
	r.writes = append(r.writes, fmt.Sprintf("%s %s:%s|%s", action, index, id, lang))
	return nil
}

func (r *recordingIndex) Add(ctx context.Context, doc search.Document) error {
	if err := r.record("add", doc.Index, doc.ID, doc.Language); err != nil {
		return err
	}
	return r.Index.Add(ctx, doc)
}

func (r *recordingIndex) Update(ctx context.Context, doc search.Document) error {
	if err := r.record("update", doc.Index, doc.ID, doc.Language); err != nil {
		return err
	}
	return r.Index.Update(ctx, doc)
}

func (r *recordingIndex) Delete(ctx context.Context, index, id, lang string) error {
	if err := r.record("delete", index, id, lang); err != nil {
		return err
	}
	return r.Index.Delete(ctx, index, id, lang)
}

func (r *recordingIndex) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = nil
}

func (r *recordingIndex) failNext(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failWrites = n
}

func (r *recordingIndex) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.writes...)
}

// touched reports whether any write hit index:id.
func (r *recordingIndex) touched(index, id string) bool {
	prefix := index + ":" + id + "|"
	for _, w := range r.recorded() {
		_, key, _ := strings.Cut(w, " ")
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

func newTestService(t *testing.T, opts ...core.Option) (*core.Service, *recordingIndex) {
	t.Helper()
	idx := newRecordingIndex()
	base := []core.Option{
		core.WithIndex(idx),
		core.WithSyncBackoff(time.Millisecond),
		core.WithClock(core.ClockFunc(func() time.Time {
			return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		})),
	}
	return core.NewInMemoryService(core.NewDefaultRulesEngine(), append(base, opts...)...), idx
}

// document returns the decoded body of index:id|lang, or nil when absent.
func document(t *testing.T, idx search.Index, index, id, lang string) map[string]any {
	t.Helper()
	hits, err := idx.Search(context.Background(), index, fmt.Sprintf("id:%s AND language_code:%s", id, lang), lang)
	if err != nil {
		t.Fatalf("search %s: %v", index, err)
	}
	if len(hits) == 0 {
		return nil
	}
	if len(hits) > 1 {
		t.Fatalf("expected one document for %s:%s|%s, got %d", index, id, lang, len(hits))
	}
	var body map[string]any
	if err := json.Unmarshal(hits[0].Body, &body); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	return body
}

func ids(t *testing.T, body map[string]any, field string) []string {
	t.Helper()
	raw, _ := body[field].([]any)
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			t.Fatalf("unexpected %s entry %T", field, item)
		}
		out = append(out, fmt.Sprint(obj["id"]))
	}
	return out
}

type fixture struct {
	person       domain.Person
	organization domain.Organization
	post         domain.Post
}

func seedFixture(t *testing.T, svc *core.Service) fixture {
	t.Helper()
	ctx := context.Background()
	person, _, err := svc.CreatePerson(ctx, "en", core.PersonInput{Name: core.String("Ada Lovelace")})
	if err != nil {
		t.Fatalf("create person: %v", err)
	}
	org, _, err := svc.CreateOrganization(ctx, "en", core.OrganizationInput{Name: core.String("Analytical Party")})
	if err != nil {
		t.Fatalf("create organization: %v", err)
	}
	post, _, err := svc.CreatePost(ctx, "en", core.PostInput{Label: core.String("Chair"), OrganizationID: core.String(org.ID)})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	return fixture{person: person, organization: org, post: post}
}

func searchDocument(index, id, lang string) search.Document {
	return search.Document{
		Index:    index,
		ID:       id,
		Language: lang,
		Body:     json.RawMessage(fmt.Sprintf(`{"id":%q,"language_code":%q}`, id, lang)),
	}
}

type logLine struct {
	level string
	msg   string
	args  []any
}

type captureLogger struct {
	mu    sync.Mutex
	lines []logLine
}

func (l *captureLogger) log(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, logLine{level: level, msg: msg, args: args})
}

func (l *captureLogger) Debug(msg string, args ...any) { l.log("debug", msg, args) }
func (l *captureLogger) Info(msg string, args ...any)  { l.log("info", msg, args) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.log("warn", msg, args) }
func (l *captureLogger) Error(msg string, args ...any) { l.log("error", msg, args) }

func (l *captureLogger) has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if line.level == level && line.msg == msg {
			return true
		}
	}
	return false
}

type captureIndexMetrics struct {
	mu        sync.Mutex
	successes int
	failures  int
	retries   int
}

func (m *captureIndexMetrics) ObserveIndexOp(_, _ string, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		m.successes++
	} else {
		m.failures++
	}
}

func (m *captureIndexMetrics) ObserveIndexRetry(string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retries++
}

type observation struct {
	operation string
	success   bool
}

type captureMetrics struct {
	mu  sync.Mutex
	obs []observation
}

func (m *captureMetrics) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.obs = append(m.obs, observation{operation: op, success: success})
}

type captureAudit struct {
	mu      sync.Mutex
	entries []core.AuditEntry
}

func (a *captureAudit) Record(_ context.Context, entry core.AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
}

type spanRecord struct {
	operation string
	err       error
}

type captureTracer struct {
	mu    sync.Mutex
	spans []*spanRecord
}

type captureSpan struct {
	t   *captureTracer
	rec *spanRecord
}

func (t *captureTracer) Start(ctx context.Context, op string) (context.Context, core.TraceSpan) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec := &spanRecord{operation: op}
	t.spans = append(t.spans, rec)
	return ctx, captureSpan{t: t, rec: rec}
}

func (s captureSpan) End(err error) {
	s.t.mu.Lock()
	defer s.t.mu.Unlock()
	s.rec.err = err
}
