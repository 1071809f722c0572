package memory

import (
	"sort"

	"polity/pkg/domain"
)

// table holds every language variant row of one entity type.
type table[T any] map[domain.VariantKey]T

func (t table[T]) keysFor(id string) []domain.VariantKey {
	var keys []domain.VariantKey
	for k := range t {
		if k.ID == id {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Language < keys[j].Language })
	return keys
}

// find returns the (id, lang) row, or the lowest-language row when lang is empty.
func (t table[T]) find(id, lang string) (T, bool) {
	if lang != "" {
		v, ok := t[domain.VariantKey{ID: id, Language: lang}]
		return v, ok
	}
	keys := t.keysFor(id)
	if len(keys) == 0 {
		var zero T
		return zero, false
	}
	return t[keys[0]], true
}

func (t table[T]) variants(id string) []T {
	keys := t.keysFor(id)
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, t[k])
	}
	return out
}

func (t table[T]) languages(id string) []string {
	keys := t.keysFor(id)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.Language)
	}
	return out
}

func (t table[T]) has(id string) bool {
	for k := range t {
		if k.ID == id {
			return true
		}
	}
	return false
}

// ids returns the distinct ids whose rows satisfy match, sorted.
func (t table[T]) ids(match func(T) bool) []string {
	seen := make(map[string]struct{})
	for k, v := range t {
		if match == nil || match(v) {
			seen[k.ID] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// removeID deletes every variant of id and returns the removed rows.
func (t table[T]) removeID(id string) []T {
	removed := t.variants(id)
	for _, k := range t.keysFor(id) {
		delete(t, k)
	}
	return removed
}

func (t table[T]) all(cp func(T) T) []T {
	keys := make([]domain.VariantKey, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ID != keys[j].ID {
			return keys[i].ID < keys[j].ID
		}
		return keys[i].Language < keys[j].Language
	})
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, cp(t[k]))
	}
	return out
}

func (t table[T]) clone(cp func(T) T) table[T] {
	out := make(table[T], len(t))
	for k, v := range t {
		out[k] = cp(v)
	}
	return out
}

type memoryState struct {
	persons       table[domain.Person]
	organizations table[domain.Organization]
	posts         table[domain.Post]
	memberships   table[domain.Membership]
	areas         table[domain.Area]
	contacts      table[domain.ContactDetail]
	links         table[domain.Link]
	identifiers   table[domain.Identifier]
	otherNames    table[domain.OtherName]
}

func newMemoryState() memoryState {
	return memoryState{
		persons:       make(table[domain.Person]),
		organizations: make(table[domain.Organization]),
		posts:         make(table[domain.Post]),
		memberships:   make(table[domain.Membership]),
		areas:         make(table[domain.Area]),
		contacts:      make(table[domain.ContactDetail]),
		links:         make(table[domain.Link]),
		identifiers:   make(table[domain.Identifier]),
		otherNames:    make(table[domain.OtherName]),
	}
}

func (s memoryState) clone() memoryState {
	return memoryState{
		persons:       s.persons.clone(clonePerson),
		organizations: s.organizations.clone(cloneOrganization),
		posts:         s.posts.clone(clonePost),
		memberships:   s.memberships.clone(cloneMembership),
		areas:         s.areas.clone(cloneArea),
		contacts:      s.contacts.clone(cloneContactDetail),
		links:         s.links.clone(cloneLink),
		identifiers:   s.identifiers.clone(cloneIdentifier),
		otherNames:    s.otherNames.clone(cloneOtherName),
	}
}

func (s *memoryState) exists(ref domain.EntityRef) bool {
	switch ref.Type {
	case domain.EntityPerson:
		return s.persons.has(ref.ID)
	case domain.EntityOrganization:
		return s.organizations.has(ref.ID)
	case domain.EntityPost:
		return s.posts.has(ref.ID)
	case domain.EntityMembership:
		return s.memberships.has(ref.ID)
	case domain.EntityArea:
		return s.areas.has(ref.ID)
	case domain.EntityContactDetail:
		return s.contacts.has(ref.ID)
	case domain.EntityLink:
		return s.links.has(ref.ID)
	case domain.EntityIdentifier:
		return s.identifiers.has(ref.ID)
	case domain.EntityOtherName:
		return s.otherNames.has(ref.ID)
	}
	return false
}

func (s *memoryState) languages(ref domain.EntityRef) []string {
	switch ref.Type {
	case domain.EntityPerson:
		return s.persons.languages(ref.ID)
	case domain.EntityOrganization:
		return s.organizations.languages(ref.ID)
	case domain.EntityPost:
		return s.posts.languages(ref.ID)
	case domain.EntityMembership:
		return s.memberships.languages(ref.ID)
	case domain.EntityArea:
		return s.areas.languages(ref.ID)
	case domain.EntityContactDetail:
		return s.contacts.languages(ref.ID)
	case domain.EntityLink:
		return s.links.languages(ref.ID)
	case domain.EntityIdentifier:
		return s.identifiers.languages(ref.ID)
	case domain.EntityOtherName:
		return s.otherNames.languages(ref.ID)
	}
	return nil
}

func clonePerson(p domain.Person) domain.Person { return p }

func cloneOrganization(o domain.Organization) domain.Organization {
	cp := o
	cp.AreaID = cloneStringPtr(o.AreaID)
	return cp
}

func clonePost(p domain.Post) domain.Post {
	cp := p
	cp.OrganizationID = cloneStringPtr(p.OrganizationID)
	cp.AreaID = cloneStringPtr(p.AreaID)
	return cp
}

func cloneMembership(m domain.Membership) domain.Membership {
	cp := m
	cp.OrganizationID = cloneStringPtr(m.OrganizationID)
	cp.PostID = cloneStringPtr(m.PostID)
	cp.MemberID = cloneStringPtr(m.MemberID)
	cp.OnBehalfOfID = cloneStringPtr(m.OnBehalfOfID)
	cp.AreaID = cloneStringPtr(m.AreaID)
	return cp
}

func cloneArea(a domain.Area) domain.Area                            { return a }
func cloneContactDetail(c domain.ContactDetail) domain.ContactDetail { return c }
func cloneLink(l domain.Link) domain.Link                            { return l }
func cloneIdentifier(i domain.Identifier) domain.Identifier          { return i }
func cloneOtherName(o domain.OtherName) domain.OtherName             { return o }

func cloneStringPtr(v *string) *string {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

// normalizeRef turns a pointer to "" into nil so "clear" and "unset" are stored alike.
func normalizeRef(v **string) {
	if *v != nil && **v == "" {
		*v = nil
	}
}

func snapshotFromMemoryState(state memoryState) domain.Snapshot {
	return domain.Snapshot{
		Persons:        state.persons.all(clonePerson),
		Organizations:  state.organizations.all(cloneOrganization),
		Posts:          state.posts.all(clonePost),
		Memberships:    state.memberships.all(cloneMembership),
		Areas:          state.areas.all(cloneArea),
		ContactDetails: state.contacts.all(cloneContactDetail),
		Links:          state.links.all(cloneLink),
		Identifiers:    state.identifiers.all(cloneIdentifier),
		OtherNames:     state.otherNames.all(cloneOtherName),
	}
}

func loadRows[T any](into table[T], rows []T, key func(T) domain.VariantKey, cp func(T) T) {
	for _, row := range rows {
		into[key(row)] = cp(row)
	}
}

func memoryStateFromSnapshot(s domain.Snapshot) memoryState {
	state := newMemoryState()
	loadRows(state.persons, s.Persons, domain.Person.Key, clonePerson)
	loadRows(state.organizations, s.Organizations, domain.Organization.Key, cloneOrganization)
	loadRows(state.posts, s.Posts, domain.Post.Key, clonePost)
	loadRows(state.memberships, s.Memberships, domain.Membership.Key, cloneMembership)
	loadRows(state.areas, s.Areas, domain.Area.Key, cloneArea)
	loadRows(state.contacts, s.ContactDetails, domain.ContactDetail.Key, cloneContactDetail)
	loadRows(state.links, s.Links, domain.Link.Key, cloneLink)
	loadRows(state.identifiers, s.Identifiers, domain.Identifier.Key, cloneIdentifier)
	loadRows(state.otherNames, s.OtherNames, domain.OtherName.Key, cloneOtherName)
	return state
}

// migrateSnapshot fills in missing language codes and drops rows whose
// required references no longer resolve.
func migrateSnapshot(snapshot domain.Snapshot) domain.Snapshot {
	fixLang := func(b *domain.Base) {
		if b.Language == "" {
			b.Language = domain.DefaultLanguage
		}
	}
	for i := range snapshot.Persons {
		fixLang(&snapshot.Persons[i].Base)
	}
	for i := range snapshot.Organizations {
		fixLang(&snapshot.Organizations[i].Base)
	}
	for i := range snapshot.Posts {
		fixLang(&snapshot.Posts[i].Base)
	}
	for i := range snapshot.Memberships {
		fixLang(&snapshot.Memberships[i].Base)
	}
	for i := range snapshot.Areas {
		fixLang(&snapshot.Areas[i].Base)
	}

	ids := func(entity domain.EntityType) map[string]struct{} {
		out := make(map[string]struct{})
		add := func(id string) { out[id] = struct{}{} }
		switch entity {
		case domain.EntityPerson:
			for _, r := range snapshot.Persons {
				add(r.ID)
			}
		case domain.EntityOrganization:
			for _, r := range snapshot.Organizations {
				add(r.ID)
			}
		case domain.EntityPost:
			for _, r := range snapshot.Posts {
				add(r.ID)
			}
		}
		return out
	}
	persons := ids(domain.EntityPerson)
	memberships := make([]domain.Membership, 0, len(snapshot.Memberships))
	for _, m := range snapshot.Memberships {
		if _, ok := persons[m.PersonID]; ok {
			memberships = append(memberships, m)
		}
	}
	snapshot.Memberships = memberships

	present := map[domain.ParentKind]map[string]struct{}{
		domain.ParentPerson:        persons,
		domain.ParentOrganization:  ids(domain.EntityOrganization),
		domain.ParentPost:          ids(domain.EntityPost),
		domain.ParentMembership:    {},
		domain.ParentContactDetail: {},
		domain.ParentIdentifier:    {},
		domain.ParentOtherName:     {},
	}
	for _, m := range snapshot.Memberships {
		present[domain.ParentMembership][m.ID] = struct{}{}
	}
	attached := func(p domain.ParentRef) bool {
		_, ok := present[p.Kind][p.ID]
		return ok
	}

	contacts := make([]domain.ContactDetail, 0, len(snapshot.ContactDetails))
	for _, c := range snapshot.ContactDetails {
		fixLang(&c.Base)
		if attached(c.Parent) {
			contacts = append(contacts, c)
			present[domain.ParentContactDetail][c.ID] = struct{}{}
		}
	}
	snapshot.ContactDetails = contacts

	identifiers := make([]domain.Identifier, 0, len(snapshot.Identifiers))
	for _, i := range snapshot.Identifiers {
		fixLang(&i.Base)
		if attached(i.Parent) {
			identifiers = append(identifiers, i)
			present[domain.ParentIdentifier][i.ID] = struct{}{}
		}
	}
	snapshot.Identifiers = identifiers

	otherNames := make([]domain.OtherName, 0, len(snapshot.OtherNames))
	for _, o := range snapshot.OtherNames {
		fixLang(&o.Base)
		if attached(o.Parent) {
			otherNames = append(otherNames, o)
			present[domain.ParentOtherName][o.ID] = struct{}{}
		}
	}
	snapshot.OtherNames = otherNames

	links := make([]domain.Link, 0, len(snapshot.Links))
	for _, l := range snapshot.Links {
		fixLang(&l.Base)
		if attached(l.Parent) {
			links = append(links, l)
		}
	}
	snapshot.Links = links
	return snapshot
}
