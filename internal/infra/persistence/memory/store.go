// Package memory provides an in-memory implementation of the entity store
// used for tests, ephemeral environments and as the transactional engine
// behind the snapshotting SQL backends.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"polity/pkg/domain"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var (
	_ domain.PersistentStore = (*Store)(nil)
	_ domain.Transaction     = (*transaction)(nil)
)

type (
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

// Store provides an in-memory transactional store for the entity graph.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// newID returns a dashed UUID, or the dashless hex form for memberships.
func newID(entity domain.EntityType) string {
	id := uuid.NewString()
	if entity == domain.EntityMembership {
		return strings.ReplaceAll(id, "-", "")
	}
	return id
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot domain.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// SetNowFunc overrides the time provider.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		s.nowFn = fn
	}
}

// transaction represents a mutation set applied to a private copy of the store state.
type transaction struct {
	transactionView
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

// RunInTransaction executes fn within a transactional copy of the store state.
// Registered rules run against the resulting state before it is committed;
// blocking violations discard every mutation made by fn.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}
	tx.transactionView = transactionView{state: &tx.state}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, newTransactionView(&tx.state), tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	return fn(newTransactionView(&snapshot))
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

func (tx *transaction) language(lang string) string {
	if lang == "" {
		return domain.DefaultLanguage
	}
	return lang
}

func (tx *transaction) requireRef(entity domain.EntityType, id *string) error {
	if id == nil || *id == "" {
		return nil
	}
	if !tx.state.exists(domain.EntityRef{Type: entity, ID: *id}) {
		return domain.ErrNotFound{Entity: entity, ID: *id}
	}
	return nil
}

func (tx *transaction) requireParent(child domain.EntityType, parent domain.ParentRef) error {
	if err := parent.Validate(child); err != nil {
		return err
	}
	if !tx.state.exists(parent.Ref()) {
		return domain.ErrNotFound{Entity: parent.Entity(), ID: parent.ID}
	}
	return nil
}

// transactionView exposes a read-only snapshot of state. Rows are cloned on the way out.
type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

func findClone[T any](t table[T], id, lang string, cp func(T) T) (T, bool) {
	v, ok := t.find(id, lang)
	if !ok {
		return v, false
	}
	return cp(v), true
}

func cloneAll[T any](rows []T, cp func(T) T) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		out = append(out, cp(r))
	}
	return out
}

func (v transactionView) FindPerson(id, lang string) (domain.Person, bool) {
	return findClone(v.state.persons, id, lang, clonePerson)
}

func (v transactionView) FindOrganization(id, lang string) (domain.Organization, bool) {
	return findClone(v.state.organizations, id, lang, cloneOrganization)
}

func (v transactionView) FindPost(id, lang string) (domain.Post, bool) {
	return findClone(v.state.posts, id, lang, clonePost)
}

func (v transactionView) FindMembership(id, lang string) (domain.Membership, bool) {
	return findClone(v.state.memberships, id, lang, cloneMembership)
}

func (v transactionView) FindArea(id, lang string) (domain.Area, bool) {
	return findClone(v.state.areas, id, lang, cloneArea)
}

func (v transactionView) FindContactDetail(id, lang string) (domain.ContactDetail, bool) {
	return findClone(v.state.contacts, id, lang, cloneContactDetail)
}

func (v transactionView) FindLink(id, lang string) (domain.Link, bool) {
	return findClone(v.state.links, id, lang, cloneLink)
}

func (v transactionView) FindIdentifier(id, lang string) (domain.Identifier, bool) {
	return findClone(v.state.identifiers, id, lang, cloneIdentifier)
}

func (v transactionView) FindOtherName(id, lang string) (domain.OtherName, bool) {
	return findClone(v.state.otherNames, id, lang, cloneOtherName)
}

func (v transactionView) PersonVariants(id string) []domain.Person {
	return cloneAll(v.state.persons.variants(id), clonePerson)
}

func (v transactionView) OrganizationVariants(id string) []domain.Organization {
	return cloneAll(v.state.organizations.variants(id), cloneOrganization)
}

func (v transactionView) PostVariants(id string) []domain.Post {
	return cloneAll(v.state.posts.variants(id), clonePost)
}

func (v transactionView) MembershipVariants(id string) []domain.Membership {
	return cloneAll(v.state.memberships.variants(id), cloneMembership)
}

func (v transactionView) ListPersons() []domain.Person {
	return v.state.persons.all(clonePerson)
}

func (v transactionView) ListOrganizations() []domain.Organization {
	return v.state.organizations.all(cloneOrganization)
}

func (v transactionView) ListPosts() []domain.Post {
	return v.state.posts.all(clonePost)
}

func (v transactionView) ListMemberships() []domain.Membership {
	return v.state.memberships.all(cloneMembership)
}

func filterParent[T domain.SubRecord](rows []T, parent domain.ParentRef) []T {
	out := rows[:0]
	for _, r := range rows {
		if r.ResolveParent() == parent {
			out = append(out, r)
		}
	}
	return out
}

func (v transactionView) ListContactDetails(parent domain.ParentRef) []domain.ContactDetail {
	return filterParent(v.state.contacts.all(cloneContactDetail), parent)
}

func (v transactionView) ListLinks(parent domain.ParentRef) []domain.Link {
	return filterParent(v.state.links.all(cloneLink), parent)
}

func (v transactionView) ListIdentifiers(parent domain.ParentRef) []domain.Identifier {
	return filterParent(v.state.identifiers.all(cloneIdentifier), parent)
}

func (v transactionView) ListOtherNames(parent domain.ParentRef) []domain.OtherName {
	return filterParent(v.state.otherNames.all(cloneOtherName), parent)
}

func (v transactionView) Languages(ref domain.EntityRef) []string {
	return v.state.languages(ref)
}

func (v transactionView) Exists(ref domain.EntityRef) bool {
	return v.state.exists(ref)
}
