package core

import (
	"fmt"
	"sort"

	"polity/pkg/domain"
)

// Index names of the four indexed entity types.
const (
	IndexPersons       = "persons"
	IndexOrganizations = "organizations"
	IndexPosts         = "posts"
	IndexMemberships   = "memberships"
)

// IndexNames lists every search index maintained by the service.
var IndexNames = []string{IndexPersons, IndexOrganizations, IndexPosts, IndexMemberships}

// IndexName returns the search index holding documents of entity.
func IndexName(entity domain.EntityType) (string, bool) {
	switch entity {
	case domain.EntityPerson:
		return IndexPersons, true
	case domain.EntityOrganization:
		return IndexOrganizations, true
	case domain.EntityPost:
		return IndexPosts, true
	case domain.EntityMembership:
		return IndexMemberships, true
	}
	return "", false
}

// IndexOp is one planned index mutation for every language variant of Ref.
type IndexOp struct {
	Ref    domain.EntityRef
	Remove bool
	// Languages are the variants to remove, captured before the delete.
	Languages []string
}

func (op IndexOp) String() string {
	if op.Remove {
		return fmt.Sprintf("remove %s %v", op.Ref, op.Languages)
	}
	return "sync " + op.Ref.String()
}

// IndexPlan is the ordered, de-duplicated set of index mutations triggered by
// one write. A removal of a record supersedes any sync of the same record.
type IndexPlan struct {
	ops     []IndexOp
	pos     map[domain.EntityRef]int
	removed map[domain.EntityRef]bool
}

// NewIndexPlan returns an empty plan.
func NewIndexPlan() *IndexPlan {
	return &IndexPlan{pos: make(map[domain.EntityRef]int), removed: make(map[domain.EntityRef]bool)}
}

// Sync schedules a refresh of every variant of ref. Empty ids are ignored.
func (p *IndexPlan) Sync(ref domain.EntityRef) {
	if ref.ID == "" || p.removed[ref] {
		return
	}
	if _, ok := p.pos[ref]; ok {
		return
	}
	p.pos[ref] = len(p.ops)
	p.ops = append(p.ops, IndexOp{Ref: ref})
}

// Remove schedules deletion of the listed variants of ref.
func (p *IndexPlan) Remove(ref domain.EntityRef, languages []string) {
	if ref.ID == "" {
		return
	}
	op := IndexOp{Ref: ref, Remove: true, Languages: append([]string(nil), languages...)}
	if i, ok := p.pos[ref]; ok {
		if p.removed[ref] {
			op.Languages = mergeLanguages(p.ops[i].Languages, op.Languages)
		}
		p.ops[i] = op
	} else {
		p.pos[ref] = len(p.ops)
		p.ops = append(p.ops, op)
	}
	p.removed[ref] = true
}

// Ops returns the planned operations in scheduling order.
func (p *IndexPlan) Ops() []IndexOp {
	out := make([]IndexOp, len(p.ops))
	copy(out, p.ops)
	return out
}

// Len returns the number of planned operations.
func (p *IndexPlan) Len() int { return len(p.ops) }

// Empty reports whether nothing is planned.
func (p *IndexPlan) Empty() bool { return p == nil || len(p.ops) == 0 }

func mergeLanguages(a, b []string) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	for _, l := range append(append([]string(nil), a...), b...) {
		set[l] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for l := range set {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func personRef(id string) domain.EntityRef {
	return domain.EntityRef{Type: domain.EntityPerson, ID: id}
}

func organizationRef(id string) domain.EntityRef {
	return domain.EntityRef{Type: domain.EntityOrganization, ID: id}
}

func postRef(id string) domain.EntityRef { return domain.EntityRef{Type: domain.EntityPost, ID: id} }

func membershipRef(id string) domain.EntityRef {
	return domain.EntityRef{Type: domain.EntityMembership, ID: id}
}

// closure computes index plans against a store view. Delete closures must be
// planned against the view taken before the delete runs.
type closure struct {
	view domain.TransactionView
	plan *IndexPlan
}

func newClosure(view domain.TransactionView, plan *IndexPlan) closure {
	return closure{view: view, plan: plan}
}

func (c closure) remove(ref domain.EntityRef) {
	c.plan.Remove(ref, c.view.Languages(ref))
}

// memberships returns one representative row per membership id matching keep.
func (c closure) memberships(keep func(domain.Membership) bool) []domain.Membership {
	seen := make(map[string]bool)
	var out []domain.Membership
	for _, m := range c.view.ListMemberships() {
		if seen[m.ID] || !keep(m) {
			continue
		}
		seen[m.ID] = true
		out = append(out, m)
	}
	return out
}

func (c closure) posts(keep func(domain.Post) bool) []domain.Post {
	seen := make(map[string]bool)
	var out []domain.Post
	for _, p := range c.view.ListPosts() {
		if seen[p.ID] || !keep(p) {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}

func (c closure) memberOfPerson(id string) func(domain.Membership) bool {
	return func(m domain.Membership) bool { return m.PersonID == id }
}

func (c closure) memberOfOrganization(id string) func(domain.Membership) bool {
	return func(m domain.Membership) bool { return domain.StringValue(m.OrganizationID) == id }
}

func (c closure) memberOfPost(id string) func(domain.Membership) bool {
	return func(m domain.Membership) bool { return domain.StringValue(m.PostID) == id }
}

// PersonSaved: the person, each of its memberships and their organizations and posts.
func (c closure) PersonSaved(id string) {
	c.plan.Sync(personRef(id))
	for _, m := range c.memberships(c.memberOfPerson(id)) {
		c.plan.Sync(membershipRef(m.ID))
		c.plan.Sync(organizationRef(domain.StringValue(m.OrganizationID)))
		c.plan.Sync(postRef(domain.StringValue(m.PostID)))
	}
}

// PersonDeleted: remove the person and its memberships, refresh their organizations and posts.
func (c closure) PersonDeleted(id string) {
	c.remove(personRef(id))
	for _, m := range c.memberships(c.memberOfPerson(id)) {
		c.remove(membershipRef(m.ID))
		c.plan.Sync(organizationRef(domain.StringValue(m.OrganizationID)))
		c.plan.Sync(postRef(domain.StringValue(m.PostID)))
	}
}

// OrganizationSaved: the organization, its posts, its memberships and their persons.
func (c closure) OrganizationSaved(id string) {
	c.plan.Sync(organizationRef(id))
	for _, p := range c.posts(func(p domain.Post) bool { return domain.StringValue(p.OrganizationID) == id }) {
		c.plan.Sync(postRef(p.ID))
	}
	for _, m := range c.memberships(c.memberOfOrganization(id)) {
		c.plan.Sync(membershipRef(m.ID))
		c.plan.Sync(personRef(m.PersonID))
	}
}

// OrganizationDeleted: remove the organization, each of its posts once, and
// every membership of either; refresh those memberships' persons. Memberships
// that keep existing with a cleared member or on_behalf_of reference are
// refreshed along with their persons.
func (c closure) OrganizationDeleted(id string) {
	c.remove(organizationRef(id))
	for _, p := range c.posts(func(p domain.Post) bool { return domain.StringValue(p.OrganizationID) == id }) {
		c.remove(postRef(p.ID))
		for _, m := range c.memberships(c.memberOfPost(p.ID)) {
			c.remove(membershipRef(m.ID))
			c.plan.Sync(personRef(m.PersonID))
		}
	}
	for _, m := range c.memberships(c.memberOfOrganization(id)) {
		c.remove(membershipRef(m.ID))
		c.plan.Sync(personRef(m.PersonID))
	}
	for _, m := range c.memberships(func(m domain.Membership) bool {
		return domain.StringValue(m.MemberID) == id || domain.StringValue(m.OnBehalfOfID) == id
	}) {
		c.plan.Sync(membershipRef(m.ID))
		c.plan.Sync(personRef(m.PersonID))
	}
}

// PostSaved: the post, its organization, its memberships and their persons.
func (c closure) PostSaved(id string) {
	c.plan.Sync(postRef(id))
	if post, ok := c.view.FindPost(id, ""); ok {
		c.plan.Sync(organizationRef(domain.StringValue(post.OrganizationID)))
	}
	for _, m := range c.memberships(c.memberOfPost(id)) {
		c.plan.Sync(membershipRef(m.ID))
		c.plan.Sync(personRef(m.PersonID))
	}
}

// PostDeleted: remove the post and its memberships, refresh its organization and the persons.
func (c closure) PostDeleted(id string) {
	c.remove(postRef(id))
	if post, ok := c.view.FindPost(id, ""); ok {
		c.plan.Sync(organizationRef(domain.StringValue(post.OrganizationID)))
	}
	for _, m := range c.memberships(c.memberOfPost(id)) {
		c.remove(membershipRef(m.ID))
		c.plan.Sync(personRef(m.PersonID))
	}
}

// MembershipSaved: the membership, its person, organization and post.
func (c closure) MembershipSaved(id string) {
	c.plan.Sync(membershipRef(id))
	c.membershipRelations(id)
}

// MembershipDeleted: remove the membership, refresh its person, organization and post.
func (c closure) MembershipDeleted(id string) {
	c.membershipRelations(id)
	c.remove(membershipRef(id))
}

func (c closure) membershipRelations(id string) {
	m, ok := c.view.FindMembership(id, "")
	if !ok {
		return
	}
	c.plan.Sync(personRef(m.PersonID))
	c.plan.Sync(organizationRef(domain.StringValue(m.OrganizationID)))
	c.plan.Sync(postRef(domain.StringValue(m.PostID)))
}

// SubRecordChanged applies the save closure of the primary entity that owns
// parent. Citation links on sub-records resolve through the sub-record to its owner.
func (c closure) SubRecordChanged(parent domain.ParentRef) {
	owner, ok := c.Owner(parent)
	if !ok {
		return
	}
	switch owner.Kind {
	case domain.ParentPerson:
		c.PersonSaved(owner.ID)
	case domain.ParentOrganization:
		c.OrganizationSaved(owner.ID)
	case domain.ParentPost:
		c.PostSaved(owner.ID)
	case domain.ParentMembership:
		c.MembershipSaved(owner.ID)
	}
}

// Owner resolves parent to the primary entity whose document embeds it.
func (c closure) Owner(parent domain.ParentRef) (domain.ParentRef, bool) {
	for depth := 0; depth < 3; depth++ {
		switch parent.Kind {
		case domain.ParentPerson, domain.ParentOrganization, domain.ParentPost, domain.ParentMembership:
			return parent, parent.ID != ""
		case domain.ParentContactDetail:
			cd, ok := c.view.FindContactDetail(parent.ID, "")
			if !ok {
				return domain.ParentRef{}, false
			}
			parent = cd.ResolveParent()
		case domain.ParentIdentifier:
			ident, ok := c.view.FindIdentifier(parent.ID, "")
			if !ok {
				return domain.ParentRef{}, false
			}
			parent = ident.ResolveParent()
		case domain.ParentOtherName:
			on, ok := c.view.FindOtherName(parent.ID, "")
			if !ok {
				return domain.ParentRef{}, false
			}
			parent = on.ResolveParent()
		default:
			return domain.ParentRef{}, false
		}
	}
	return domain.ParentRef{}, false
}
