package core

import (
	"fmt"

	"polity/pkg/domain"
)

// resolver applies a nested payload inside one transaction. Every payload is
// first checked against candidate state (check*), and only a clean payload is
// written (write*). Sub-record payloads carrying an id patch the record when
// it belongs to the parent being written; payloads without an id create and
// attach a new record.
type resolver struct {
	tx   domain.Transaction
	lang string
}

func newResolver(tx domain.Transaction, lang string) resolver {
	return resolver{tx: tx, lang: lang}
}

func path(prefix, field string, i int) string {
	if prefix == "" {
		return fmt.Sprintf("%s.%d", field, i)
	}
	return fmt.Sprintf("%s.%s.%d", prefix, field, i)
}

// preview returns the record a payload with id would patch, or the zero value.
func preview[T any](find func(id, lang string) (T, bool), id *string, lang string) T {
	var zero T
	if domain.StringValue(id) == "" {
		return zero
	}
	v, ok := lookup(find, *id, lang)
	if !ok {
		return zero
	}
	return v
}

// variant returns the (id, lang) row as an update would start from it: the
// row itself, or the shared fields of another variant for a new translation.
func variant[T any](find func(id, lang string) (T, bool), share func(*T, T), id, lang string) (T, bool) {
	if v, ok := find(id, lang); ok {
		return v, true
	}
	var v T
	seed, ok := find(id, "")
	if !ok {
		return v, false
	}
	share(&v, seed)
	return v, true
}

func (r resolver) checkLinks(verr *domain.ValidationError, prefix string, kind domain.ParentKind, links []LinkInput) {
	for i, in := range links {
		l := preview(r.tx.FindLink, in.ID, r.lang)
		l.Parent = domain.ParentRef{Kind: kind}
		in.apply(&l)
		verr.Merge(path(prefix, "links", i), domain.CheckCitationField(l))
	}
}

func (r resolver) checkContactDetail(verr *domain.ValidationError, prefix string, in ContactDetailInput) {
	c := preview(r.tx.FindContactDetail, in.ID, r.lang)
	in.apply(&c)
	verr.Merge(prefix, domain.CheckDates(c))
	r.checkLinks(verr, prefix, domain.ParentContactDetail, in.Links)
}

func (r resolver) checkIdentifier(verr *domain.ValidationError, prefix string, in IdentifierInput) {
	r.checkLinks(verr, prefix, domain.ParentIdentifier, in.Links)
}

func (r resolver) checkOtherName(verr *domain.ValidationError, prefix string, in OtherNameInput) {
	o := preview(r.tx.FindOtherName, in.ID, r.lang)
	in.apply(&o)
	verr.Merge(prefix, domain.CheckDates(o))
	r.checkLinks(verr, prefix, domain.ParentOtherName, in.Links)
}

// checkAttachments validates nested sub-records. Alternate names of a post
// are reported under other_labels.
func (r resolver) checkAttachments(verr *domain.ValidationError, prefix string, kind domain.ParentKind, in AttachmentInputs) {
	for i, cd := range in.ContactDetails {
		r.checkContactDetail(verr, path(prefix, "contact_details", i), cd)
	}
	r.checkLinks(verr, prefix, kind, in.Links)
	for i, ident := range in.Identifiers {
		r.checkIdentifier(verr, path(prefix, "identifiers", i), ident)
	}
	otherNames := "other_names"
	if kind == domain.ParentPost {
		otherNames = "other_labels"
	}
	for i, on := range in.OtherNames {
		r.checkOtherName(verr, path(prefix, otherNames, i), on)
	}
}

// checkMembership validates a membership candidate and its attachments.
// findPost resolves posts, including a post being written in the same payload.
func (r resolver) checkMembership(verr *domain.ValidationError, prefix string, m domain.Membership, in AttachmentInputs, findPost domain.PostLookup) {
	verr.Merge(prefix, domain.CheckDates(m))
	verr.Merge(prefix, domain.CheckMembership(m, findPost))
	r.checkAttachments(verr, prefix, domain.ParentMembership, in)
}

func (r resolver) findPost(id string) (domain.Post, bool) { return r.tx.FindPost(id, "") }

// subOps reaches into the transaction for one sub-record type.
type subOps[T domain.SubRecord] struct {
	entity domain.EntityType
	find   func(id, lang string) (T, bool)
	create func(T) (T, error)
	update func(id, lang string, mutator func(*T) error) (T, error)
	remove func(id string) error
	shell  func(base domain.Base, parent domain.ParentRef) T
}

func contactDetailOps(tx domain.Transaction) subOps[domain.ContactDetail] {
	return subOps[domain.ContactDetail]{
		entity: domain.EntityContactDetail,
		find:   tx.FindContactDetail,
		create: tx.CreateContactDetail,
		update: tx.UpdateContactDetail,
		remove: tx.DeleteContactDetail,
		shell: func(b domain.Base, p domain.ParentRef) domain.ContactDetail {
			return domain.ContactDetail{Base: b, Parent: p}
		},
	}
}

func linkOps(tx domain.Transaction) subOps[domain.Link] {
	return subOps[domain.Link]{
		entity: domain.EntityLink,
		find:   tx.FindLink,
		create: tx.CreateLink,
		update: tx.UpdateLink,
		remove: tx.DeleteLink,
		shell:  func(b domain.Base, p domain.ParentRef) domain.Link { return domain.Link{Base: b, Parent: p} },
	}
}

func identifierOps(tx domain.Transaction) subOps[domain.Identifier] {
	return subOps[domain.Identifier]{
		entity: domain.EntityIdentifier,
		find:   tx.FindIdentifier,
		create: tx.CreateIdentifier,
		update: tx.UpdateIdentifier,
		remove: tx.DeleteIdentifier,
		shell: func(b domain.Base, p domain.ParentRef) domain.Identifier {
			return domain.Identifier{Base: b, Parent: p}
		},
	}
}

func otherNameOps(tx domain.Transaction) subOps[domain.OtherName] {
	return subOps[domain.OtherName]{
		entity: domain.EntityOtherName,
		find:   tx.FindOtherName,
		create: tx.CreateOtherName,
		update: tx.UpdateOtherName,
		remove: tx.DeleteOtherName,
		shell: func(b domain.Base, p domain.ParentRef) domain.OtherName {
			return domain.OtherName{Base: b, Parent: p}
		},
	}
}

// spawn creates a new sub-record attached to parent. id may be empty.
func spawn[T domain.SubRecord](ops subOps[T], parent domain.ParentRef, lang, id string, apply func(*T)) (T, error) {
	v := ops.shell(domain.Base{ID: id, Language: lang}, parent)
	apply(&v)
	return ops.create(v)
}

// stage patches the sub-record named by id when it is attached to parent,
// or creates a new one when id is absent.
func stage[T domain.SubRecord](ops subOps[T], parent domain.ParentRef, lang string, id *string, apply func(*T)) (T, error) {
	existing := domain.StringValue(id)
	if existing == "" {
		return spawn(ops, parent, lang, "", apply)
	}
	current, ok := ops.find(existing, "")
	if !ok || current.ResolveParent() != parent {
		var zero T
		return zero, domain.ErrNotFound{Entity: ops.entity, ID: existing}
	}
	return ops.update(existing, lang, func(v *T) error {
		apply(v)
		return nil
	})
}

func (r resolver) writeLinks(parent domain.ParentRef, links []LinkInput) error {
	for _, in := range links {
		if _, err := stage(linkOps(r.tx), parent, r.lang, in.ID, in.apply); err != nil {
			return err
		}
	}
	return nil
}

func (r resolver) writeContactDetail(parent domain.ParentRef, in ContactDetailInput) (domain.ContactDetail, error) {
	saved, err := stage(contactDetailOps(r.tx), parent, r.lang, in.ID, in.apply)
	if err != nil {
		return saved, err
	}
	return saved, r.writeLinks(domain.ParentRef{Kind: domain.ParentContactDetail, ID: saved.ID}, in.Links)
}

func (r resolver) writeIdentifier(parent domain.ParentRef, in IdentifierInput) (domain.Identifier, error) {
	saved, err := stage(identifierOps(r.tx), parent, r.lang, in.ID, in.apply)
	if err != nil {
		return saved, err
	}
	return saved, r.writeLinks(domain.ParentRef{Kind: domain.ParentIdentifier, ID: saved.ID}, in.Links)
}

func (r resolver) writeOtherName(parent domain.ParentRef, in OtherNameInput) (domain.OtherName, error) {
	saved, err := stage(otherNameOps(r.tx), parent, r.lang, in.ID, in.apply)
	if err != nil {
		return saved, err
	}
	return saved, r.writeLinks(domain.ParentRef{Kind: domain.ParentOtherName, ID: saved.ID}, in.Links)
}

func (r resolver) writeAttachments(parent domain.ParentRef, in AttachmentInputs) error {
	for _, cd := range in.ContactDetails {
		if _, err := r.writeContactDetail(parent, cd); err != nil {
			return err
		}
	}
	if err := r.writeLinks(parent, in.Links); err != nil {
		return err
	}
	for _, ident := range in.Identifiers {
		if _, err := r.writeIdentifier(parent, ident); err != nil {
			return err
		}
	}
	for _, on := range in.OtherNames {
		if _, err := r.writeOtherName(parent, on); err != nil {
			return err
		}
	}
	return nil
}

// nestedMembership describes how memberships written under a post or an
// organization are bound to it.
type nestedMembership struct {
	owns  func(domain.Membership) bool
	force func(*domain.Membership)
}

func underPost(id string) nestedMembership {
	return nestedMembership{
		owns:  func(m domain.Membership) bool { return domain.StringValue(m.PostID) == id },
		force: func(m *domain.Membership) { m.PostID = &id },
	}
}

func underOrganization(id string) nestedMembership {
	return nestedMembership{
		owns:  func(m domain.Membership) bool { return domain.StringValue(m.OrganizationID) == id },
		force: func(m *domain.Membership) { m.OrganizationID = &id },
	}
}

// candidateMembership is the state a nested membership payload would produce.
func (r resolver) candidateMembership(in MembershipInput, bind nestedMembership) domain.Membership {
	m := preview(r.tx.FindMembership, in.ID, r.lang)
	in.apply(&m)
	bind.force(&m)
	return m
}

func (r resolver) checkNestedMemberships(verr *domain.ValidationError, memberships []MembershipInput, bind nestedMembership, findPost domain.PostLookup) {
	for i, in := range memberships {
		m := r.candidateMembership(in, bind)
		r.checkMembership(verr, path("", "memberships", i), m, in.AttachmentInputs, findPost)
	}
}

// writeNestedMemberships writes memberships bound to their parent and returns their ids.
func (r resolver) writeNestedMemberships(memberships []MembershipInput, bind nestedMembership) ([]string, error) {
	ids := make([]string, 0, len(memberships))
	for _, in := range memberships {
		var (
			saved domain.Membership
			err   error
		)
		if id := domain.StringValue(in.ID); id != "" {
			current, ok := r.tx.FindMembership(id, "")
			if !ok || !bind.owns(current) {
				return nil, domain.ErrNotFound{Entity: domain.EntityMembership, ID: id}
			}
			saved, err = r.tx.UpdateMembership(id, r.lang, func(m *domain.Membership) error {
				in.apply(m)
				bind.force(m)
				return nil
			})
		} else {
			m := domain.Membership{Base: domain.Base{Language: r.lang}}
			in.apply(&m)
			bind.force(&m)
			saved, err = r.tx.CreateMembership(m)
		}
		if err != nil {
			return nil, err
		}
		if err := r.writeAttachments(domain.MembershipParent(saved.ID), in.AttachmentInputs); err != nil {
			return nil, err
		}
		ids = append(ids, saved.ID)
	}
	return ids, nil
}
