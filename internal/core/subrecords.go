package core

import (
	"context"

	"polity/pkg/domain"
)

type subRecord interface {
	domain.SubRecord
	Key() domain.VariantKey
}

// subRecordKind binds one sub-record type to its payload type.
type subRecordKind[T subRecord, In any] struct {
	entity domain.EntityType
	// owns is the parent kind of citations attached to this record; empty
	// for links.
	owns  domain.ParentKind
	ops   func(domain.Transaction) subOps[T]
	id    func(In) *string
	apply func(In) func(*T)
	links func(In) []LinkInput
	check func(r resolver, verr *domain.ValidationError, parent domain.ParentRef, in In)
}

var contactDetailKind = subRecordKind[domain.ContactDetail, ContactDetailInput]{
	entity: domain.EntityContactDetail,
	owns:   domain.ParentContactDetail,
	ops:    contactDetailOps,
	id:     func(in ContactDetailInput) *string { return in.ID },
	apply:  func(in ContactDetailInput) func(*domain.ContactDetail) { return in.apply },
	links:  func(in ContactDetailInput) []LinkInput { return in.Links },
	check: func(r resolver, verr *domain.ValidationError, _ domain.ParentRef, in ContactDetailInput) {
		r.checkContactDetail(verr, "", in)
	},
}

var identifierKind = subRecordKind[domain.Identifier, IdentifierInput]{
	entity: domain.EntityIdentifier,
	owns:   domain.ParentIdentifier,
	ops:    identifierOps,
	id:     func(in IdentifierInput) *string { return in.ID },
	apply:  func(in IdentifierInput) func(*domain.Identifier) { return in.apply },
	links:  func(in IdentifierInput) []LinkInput { return in.Links },
	check: func(r resolver, verr *domain.ValidationError, _ domain.ParentRef, in IdentifierInput) {
		r.checkIdentifier(verr, "", in)
	},
}

var otherNameKind = subRecordKind[domain.OtherName, OtherNameInput]{
	entity: domain.EntityOtherName,
	owns:   domain.ParentOtherName,
	ops:    otherNameOps,
	id:     func(in OtherNameInput) *string { return in.ID },
	apply:  func(in OtherNameInput) func(*domain.OtherName) { return in.apply },
	links:  func(in OtherNameInput) []LinkInput { return in.Links },
	check: func(r resolver, verr *domain.ValidationError, _ domain.ParentRef, in OtherNameInput) {
		r.checkOtherName(verr, "", in)
	},
}

var linkKind = subRecordKind[domain.Link, LinkInput]{
	entity: domain.EntityLink,
	ops:    linkOps,
	id:     func(in LinkInput) *string { return in.ID },
	apply:  func(in LinkInput) func(*domain.Link) { return in.apply },
	links:  func(LinkInput) []LinkInput { return nil },
	check: func(r resolver, verr *domain.ValidationError, parent domain.ParentRef, in LinkInput) {
		l := preview(r.tx.FindLink, in.ID, r.lang)
		l.Parent = parent
		in.apply(&l)
		verr.Merge("", domain.CheckCitationField(l))
	},
}

func operation(action domain.Action, entity domain.EntityType) string {
	return string(action) + "_" + string(entity)
}

func createSubRecord[T subRecord, In any](ctx context.Context, s *Service, kind subRecordKind[T, In], parent domain.ParentRef, lang string, in In) (T, domain.Result, error) {
	lang = language(lang)
	var (
		created T
		res     domain.Result
	)
	err := s.run(ctx, operation(domain.ActionCreate, kind.entity), func(ctx context.Context) (string, error) {
		if err := parent.Validate(kind.entity); err != nil {
			return "", err
		}
		var err error
		res, err = s.write(ctx, func(tx domain.Transaction, plan *IndexPlan) error {
			if !tx.Exists(parent.Ref()) {
				return domain.ErrNotFound{Entity: parent.Entity(), ID: parent.ID}
			}
			r := newResolver(tx, lang)
			verr := &domain.ValidationError{}
			kind.check(r, verr, parent, in)
			if err := verr.Err(); err != nil {
				return err
			}
			var err error
			created, err = spawn(kind.ops(tx), parent, lang, domain.StringValue(kind.id(in)), kind.apply(in))
			if err != nil {
				return err
			}
			if err := r.writeLinks(domain.ParentRef{Kind: kind.owns, ID: created.Key().ID}, kind.links(in)); err != nil {
				return err
			}
			newClosure(tx.Snapshot(), plan).SubRecordChanged(parent)
			return nil
		})
		return created.Key().ID, err
	})
	return created, res, err
}

func updateSubRecord[T subRecord, In any](ctx context.Context, s *Service, kind subRecordKind[T, In], lang, id string, in In) (T, domain.Result, error) {
	lang = language(lang)
	var (
		updated T
		res     domain.Result
	)
	err := s.run(ctx, operation(domain.ActionUpdate, kind.entity), func(ctx context.Context) (string, error) {
		var err error
		res, err = s.write(ctx, func(tx domain.Transaction, plan *IndexPlan) error {
			ops := kind.ops(tx)
			current, ok := ops.find(id, "")
			if !ok {
				return domain.ErrNotFound{Entity: kind.entity, ID: id}
			}
			parent := current.ResolveParent()
			r := newResolver(tx, lang)
			verr := &domain.ValidationError{}
			kind.check(r, verr, parent, in)
			if err := verr.Err(); err != nil {
				return err
			}
			var err error
			updated, err = stage(ops, parent, lang, &id, kind.apply(in))
			if err != nil {
				return err
			}
			if err := r.writeLinks(domain.ParentRef{Kind: kind.owns, ID: id}, kind.links(in)); err != nil {
				return err
			}
			newClosure(tx.Snapshot(), plan).SubRecordChanged(parent)
			return nil
		})
		return id, err
	})
	return updated, res, err
}

func deleteSubRecord[T subRecord, In any](ctx context.Context, s *Service, kind subRecordKind[T, In], id string) (domain.Result, error) {
	var res domain.Result
	err := s.run(ctx, operation(domain.ActionDelete, kind.entity), func(ctx context.Context) (string, error) {
		var err error
		res, err = s.write(ctx, func(tx domain.Transaction, plan *IndexPlan) error {
			ops := kind.ops(tx)
			current, ok := ops.find(id, "")
			if !ok {
				return domain.ErrNotFound{Entity: kind.entity, ID: id}
			}
			newClosure(tx.Snapshot(), plan).SubRecordChanged(current.ResolveParent())
			return ops.remove(id)
		})
		return id, err
	})
	return res, err
}

func getSubRecord[T any](ctx context.Context, s *Service, entity domain.EntityType, find func(domain.TransactionView) func(id, lang string) (T, bool), lang, id string) (T, error) {
	var out T
	err := s.view(ctx, func(view domain.TransactionView) error {
		v, ok := find(view)(id, language(lang))
		if !ok {
			return domain.ErrNotFound{Entity: entity, ID: id}
		}
		out = v
		return nil
	})
	return out, err
}

func listSubRecords[T subRecord](ctx context.Context, s *Service, list func(domain.TransactionView, domain.ParentRef) []T, parent domain.ParentRef, lang string) ([]T, error) {
	var out []T
	err := s.view(ctx, func(view domain.TransactionView) error {
		out = pickLanguage(list(view, parent), language(lang))
		return nil
	})
	return out, err
}

// ListContactDetails returns the contact details of parent, one variant each, preferring lang.
func (s *Service) ListContactDetails(ctx context.Context, parent domain.ParentRef, lang string) ([]domain.ContactDetail, error) {
	return listSubRecords(ctx, s, domain.TransactionView.ListContactDetails, parent, lang)
}

// GetContactDetail returns the lang variant of a contact detail.
func (s *Service) GetContactDetail(ctx context.Context, lang, id string) (domain.ContactDetail, error) {
	return getSubRecord(ctx, s, domain.EntityContactDetail, func(v domain.TransactionView) func(string, string) (domain.ContactDetail, bool) {
		return v.FindContactDetail
	}, lang, id)
}

// CreateContactDetail attaches a contact detail to parent.
func (s *Service) CreateContactDetail(ctx context.Context, parent domain.ParentRef, lang string, in ContactDetailInput) (domain.ContactDetail, domain.Result, error) {
	return createSubRecord(ctx, s, contactDetailKind, parent, lang, in)
}

// UpdateContactDetail patches the lang variant of a contact detail.
func (s *Service) UpdateContactDetail(ctx context.Context, lang, id string, in ContactDetailInput) (domain.ContactDetail, domain.Result, error) {
	return updateSubRecord(ctx, s, contactDetailKind, lang, id, in)
}

// DeleteContactDetail removes a contact detail and its citations.
func (s *Service) DeleteContactDetail(ctx context.Context, id string) (domain.Result, error) {
	return deleteSubRecord(ctx, s, contactDetailKind, id)
}

// ListLinks returns the links of parent, one variant each, preferring lang.
func (s *Service) ListLinks(ctx context.Context, parent domain.ParentRef, lang string) ([]domain.Link, error) {
	return listSubRecords(ctx, s, domain.TransactionView.ListLinks, parent, lang)
}

// GetLink returns the lang variant of a link.
func (s *Service) GetLink(ctx context.Context, lang, id string) (domain.Link, error) {
	return getSubRecord(ctx, s, domain.EntityLink, func(v domain.TransactionView) func(string, string) (domain.Link, bool) {
		return v.FindLink
	}, lang, id)
}

// CreateLink attaches a link to parent. A non-empty field makes it a citation.
func (s *Service) CreateLink(ctx context.Context, parent domain.ParentRef, lang string, in LinkInput) (domain.Link, domain.Result, error) {
	return createSubRecord(ctx, s, linkKind, parent, lang, in)
}

// UpdateLink patches the lang variant of a link.
func (s *Service) UpdateLink(ctx context.Context, lang, id string, in LinkInput) (domain.Link, domain.Result, error) {
	return updateSubRecord(ctx, s, linkKind, lang, id, in)
}

// DeleteLink removes a link.
func (s *Service) DeleteLink(ctx context.Context, id string) (domain.Result, error) {
	return deleteSubRecord(ctx, s, linkKind, id)
}

// ListIdentifiers returns the identifiers of parent, one variant each, preferring lang.
func (s *Service) ListIdentifiers(ctx context.Context, parent domain.ParentRef, lang string) ([]domain.Identifier, error) {
	return listSubRecords(ctx, s, domain.TransactionView.ListIdentifiers, parent, lang)
}

// GetIdentifier returns the lang variant of an identifier.
func (s *Service) GetIdentifier(ctx context.Context, lang, id string) (domain.Identifier, error) {
	return getSubRecord(ctx, s, domain.EntityIdentifier, func(v domain.TransactionView) func(string, string) (domain.Identifier, bool) {
		return v.FindIdentifier
	}, lang, id)
}

// CreateIdentifier attaches an identifier to parent.
func (s *Service) CreateIdentifier(ctx context.Context, parent domain.ParentRef, lang string, in IdentifierInput) (domain.Identifier, domain.Result, error) {
	return createSubRecord(ctx, s, identifierKind, parent, lang, in)
}

// UpdateIdentifier patches the lang variant of an identifier.
func (s *Service) UpdateIdentifier(ctx context.Context, lang, id string, in IdentifierInput) (domain.Identifier, domain.Result, error) {
	return updateSubRecord(ctx, s, identifierKind, lang, id, in)
}

// DeleteIdentifier removes an identifier and its citations.
func (s *Service) DeleteIdentifier(ctx context.Context, id string) (domain.Result, error) {
	return deleteSubRecord(ctx, s, identifierKind, id)
}

// ListOtherNames returns the alternate names of parent, one variant each, preferring lang.
func (s *Service) ListOtherNames(ctx context.Context, parent domain.ParentRef, lang string) ([]domain.OtherName, error) {
	return listSubRecords(ctx, s, domain.TransactionView.ListOtherNames, parent, lang)
}

// GetOtherName returns the lang variant of an alternate name.
func (s *Service) GetOtherName(ctx context.Context, lang, id string) (domain.OtherName, error) {
	return getSubRecord(ctx, s, domain.EntityOtherName, func(v domain.TransactionView) func(string, string) (domain.OtherName, bool) {
		return v.FindOtherName
	}, lang, id)
}

// CreateOtherName attaches an alternate name to parent.
func (s *Service) CreateOtherName(ctx context.Context, parent domain.ParentRef, lang string, in OtherNameInput) (domain.OtherName, domain.Result, error) {
	return createSubRecord(ctx, s, otherNameKind, parent, lang, in)
}

// UpdateOtherName patches the lang variant of an alternate name.
func (s *Service) UpdateOtherName(ctx context.Context, lang, id string, in OtherNameInput) (domain.OtherName, domain.Result, error) {
	return updateSubRecord(ctx, s, otherNameKind, lang, id, in)
}

// DeleteOtherName removes an alternate name and its citations.
func (s *Service) DeleteOtherName(ctx context.Context, id string) (domain.Result, error) {
	return deleteSubRecord(ctx, s, otherNameKind, id)
}
