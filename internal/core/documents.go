package core

import (
	"encoding/json"
	"fmt"
	"sort"

	"polity/internal/search"
	"polity/pkg/domain"
)

// ContactDetailView is a contact detail with its citations.
type ContactDetailView struct {
	domain.ContactDetail
	Links []domain.Link `json:"links"`
}

// IdentifierView is an identifier with its citations.
type IdentifierView struct {
	domain.Identifier
	Links []domain.Link `json:"links"`
}

// OtherNameView is an alternate name with its citations.
type OtherNameView struct {
	domain.OtherName
	Links []domain.Link `json:"links"`
}

// Attachments are the sub-records embedded in every primary entity view.
type Attachments struct {
	ContactDetails []ContactDetailView `json:"contact_details"`
	Links          []domain.Link       `json:"links"`
	Identifiers    []IdentifierView    `json:"identifiers"`
	OtherNames     []OtherNameView     `json:"other_names"`
}

// PersonView is the read and index representation of a person variant.
type PersonView struct {
	domain.Person
	Attachments
	Memberships []domain.Membership `json:"memberships"`
}

// OrganizationView is the read and index representation of an organization variant.
type OrganizationView struct {
	domain.Organization
	Attachments
	Posts       []domain.Post       `json:"posts"`
	Memberships []domain.Membership `json:"memberships"`
}

// PostView is the read and index representation of a post variant.
type PostView struct {
	domain.Post
	Attachments
	Organization *domain.Organization `json:"organization"`
	Memberships  []domain.Membership  `json:"memberships"`
}

// MembershipView is the read and index representation of a membership variant.
type MembershipView struct {
	domain.Membership
	Attachments
	Person       *domain.Person       `json:"person"`
	Organization *domain.Organization `json:"organization"`
	Post         *domain.Post         `json:"post"`
}

// pickLanguage keeps one row per id: the lang variant when present, otherwise
// the lowest language code. Output is ordered by id.
func pickLanguage[T interface{ Key() domain.VariantKey }](rows []T, lang string) []T {
	chosen := make(map[string]T)
	for _, row := range rows {
		k := row.Key()
		current, ok := chosen[k.ID]
		if !ok {
			chosen[k.ID] = row
			continue
		}
		cur := current.Key().Language
		switch {
		case cur == lang:
		case k.Language == lang || k.Language < cur:
			chosen[k.ID] = row
		}
	}
	ids := make([]string, 0, len(chosen))
	for id := range chosen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, chosen[id])
	}
	return out
}

func filterRows[T any](rows []T, keep func(T) bool) []T {
	var out []T
	for _, row := range rows {
		if keep(row) {
			out = append(out, row)
		}
	}
	return out
}

// lookup returns the lang variant of id or, failing that, any variant.
func lookup[T any](find func(id, lang string) (T, bool), id, lang string) (T, bool) {
	if v, ok := find(id, lang); ok {
		return v, true
	}
	return find(id, "")
}

func lookupRef[T any](find func(id, lang string) (T, bool), id *string, lang string) *T {
	if domain.StringValue(id) == "" {
		return nil
	}
	v, ok := lookup(find, *id, lang)
	if !ok {
		return nil
	}
	return &v
}

func citations(view domain.TransactionView, parent domain.ParentRef, lang string) []domain.Link {
	return pickLanguage(view.ListLinks(parent), lang)
}

func attachments(view domain.TransactionView, parent domain.ParentRef, lang string) Attachments {
	var a Attachments
	for _, cd := range pickLanguage(view.ListContactDetails(parent), lang) {
		ref := domain.ParentRef{Kind: domain.ParentContactDetail, ID: cd.ID}
		a.ContactDetails = append(a.ContactDetails, ContactDetailView{ContactDetail: cd, Links: citations(view, ref, lang)})
	}
	a.Links = citations(view, parent, lang)
	for _, ident := range pickLanguage(view.ListIdentifiers(parent), lang) {
		ref := domain.ParentRef{Kind: domain.ParentIdentifier, ID: ident.ID}
		a.Identifiers = append(a.Identifiers, IdentifierView{Identifier: ident, Links: citations(view, ref, lang)})
	}
	for _, on := range pickLanguage(view.ListOtherNames(parent), lang) {
		ref := domain.ParentRef{Kind: domain.ParentOtherName, ID: on.ID}
		a.OtherNames = append(a.OtherNames, OtherNameView{OtherName: on, Links: citations(view, ref, lang)})
	}
	return a
}

func membershipsWhere(view domain.TransactionView, lang string, keep func(domain.Membership) bool) []domain.Membership {
	return pickLanguage(filterRows(view.ListMemberships(), keep), lang)
}

func buildPersonView(view domain.TransactionView, p domain.Person) PersonView {
	return PersonView{
		Person:      p,
		Attachments: attachments(view, domain.PersonParent(p.ID), p.Language),
		Memberships: membershipsWhere(view, p.Language, func(m domain.Membership) bool { return m.PersonID == p.ID }),
	}
}

func buildOrganizationView(view domain.TransactionView, o domain.Organization) OrganizationView {
	return OrganizationView{
		Organization: o,
		Attachments:  attachments(view, domain.OrganizationParent(o.ID), o.Language),
		Posts: pickLanguage(filterRows(view.ListPosts(), func(p domain.Post) bool {
			return domain.StringValue(p.OrganizationID) == o.ID
		}), o.Language),
		Memberships: membershipsWhere(view, o.Language, func(m domain.Membership) bool {
			return domain.StringValue(m.OrganizationID) == o.ID
		}),
	}
}

func buildPostView(view domain.TransactionView, p domain.Post) PostView {
	return PostView{
		Post:         p,
		Attachments:  attachments(view, domain.PostParent(p.ID), p.Language),
		Organization: lookupRef(view.FindOrganization, p.OrganizationID, p.Language),
		Memberships: membershipsWhere(view, p.Language, func(m domain.Membership) bool {
			return domain.StringValue(m.PostID) == p.ID
		}),
	}
}

func buildMembershipView(view domain.TransactionView, m domain.Membership) MembershipView {
	personID := m.PersonID
	return MembershipView{
		Membership:   m,
		Attachments:  attachments(view, domain.MembershipParent(m.ID), m.Language),
		Person:       lookupRef(view.FindPerson, &personID, m.Language),
		Organization: lookupRef(view.FindOrganization, m.OrganizationID, m.Language),
		Post:         lookupRef(view.FindPost, m.PostID, m.Language),
	}
}

// buildDocument renders the (id, lang) variant of ref as a search document.
// It reports false when the variant does not exist.
func buildDocument(view domain.TransactionView, ref domain.EntityRef, lang string) (search.Document, bool, error) {
	index, ok := IndexName(ref.Type)
	if !ok {
		return search.Document{}, false, fmt.Errorf("%s is not indexed", ref.Type)
	}
	var body any
	switch ref.Type {
	case domain.EntityPerson:
		p, ok := view.FindPerson(ref.ID, lang)
		if !ok {
			return search.Document{}, false, nil
		}
		body = buildPersonView(view, p)
	case domain.EntityOrganization:
		o, ok := view.FindOrganization(ref.ID, lang)
		if !ok {
			return search.Document{}, false, nil
		}
		body = buildOrganizationView(view, o)
	case domain.EntityPost:
		p, ok := view.FindPost(ref.ID, lang)
		if !ok {
			return search.Document{}, false, nil
		}
		body = buildPostView(view, p)
	case domain.EntityMembership:
		m, ok := view.FindMembership(ref.ID, lang)
		if !ok {
			return search.Document{}, false, nil
		}
		body = buildMembershipView(view, m)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return search.Document{}, false, fmt.Errorf("encode %s document: %w", ref, err)
	}
	return search.Document{Index: index, ID: ref.ID, Language: lang, Body: payload}, true, nil
}
