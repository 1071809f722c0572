package memory

import (
	"polity/pkg/domain"
)

// attachedPrepare keeps the parent of a sub-record fixed after creation and
// checks that it resolves.
func attachedPrepare[T any](tx *transaction, entity domain.EntityType, parent func(*T) *domain.ParentRef) func(v, prev *T) error {
	return func(v, prev *T) error {
		if prev != nil {
			*parent(v) = *parent(prev)
		}
		return tx.requireParent(entity, *parent(v))
	}
}

func (tx *transaction) contactDetailOps() variantOps[domain.ContactDetail] {
	return variantOps[domain.ContactDetail]{
		entity:  domain.EntityContactDetail,
		table:   tx.state.contacts,
		base:    func(c *domain.ContactDetail) *domain.Base { return &c.Base },
		share:   (*domain.ContactDetail).ShareFrom,
		clone:   cloneContactDetail,
		prepare: attachedPrepare(tx, domain.EntityContactDetail, func(c *domain.ContactDetail) *domain.ParentRef { return &c.Parent }),
	}
}

func (tx *transaction) linkOps() variantOps[domain.Link] {
	return variantOps[domain.Link]{
		entity:  domain.EntityLink,
		table:   tx.state.links,
		base:    func(l *domain.Link) *domain.Base { return &l.Base },
		share:   (*domain.Link).ShareFrom,
		clone:   cloneLink,
		prepare: attachedPrepare(tx, domain.EntityLink, func(l *domain.Link) *domain.ParentRef { return &l.Parent }),
	}
}

func (tx *transaction) identifierOps() variantOps[domain.Identifier] {
	return variantOps[domain.Identifier]{
		entity:  domain.EntityIdentifier,
		table:   tx.state.identifiers,
		base:    func(i *domain.Identifier) *domain.Base { return &i.Base },
		share:   (*domain.Identifier).ShareFrom,
		clone:   cloneIdentifier,
		prepare: attachedPrepare(tx, domain.EntityIdentifier, func(i *domain.Identifier) *domain.ParentRef { return &i.Parent }),
	}
}

func (tx *transaction) otherNameOps() variantOps[domain.OtherName] {
	return variantOps[domain.OtherName]{
		entity:  domain.EntityOtherName,
		table:   tx.state.otherNames,
		base:    func(o *domain.OtherName) *domain.Base { return &o.Base },
		share:   (*domain.OtherName).ShareFrom,
		clone:   cloneOtherName,
		prepare: attachedPrepare(tx, domain.EntityOtherName, func(o *domain.OtherName) *domain.ParentRef { return &o.Parent }),
	}
}

func (tx *transaction) CreateContactDetail(c domain.ContactDetail) (domain.ContactDetail, error) {
	return createVariant(tx, tx.contactDetailOps(), c)
}

func (tx *transaction) UpdateContactDetail(id, lang string, mutator func(*domain.ContactDetail) error) (domain.ContactDetail, error) {
	return updateVariant(tx, tx.contactDetailOps(), id, lang, mutator)
}

// DeleteContactDetail removes the contact detail and the citations attached to it.
func (tx *transaction) DeleteContactDetail(id string) error {
	if !tx.state.contacts.has(id) {
		return domain.ErrNotFound{Entity: domain.EntityContactDetail, ID: id}
	}
	tx.removeAttachments(domain.ParentRef{Kind: domain.ParentContactDetail, ID: id})
	removeRows(tx, domain.EntityContactDetail, tx.state.contacts, id)
	return nil
}

func (tx *transaction) CreateLink(l domain.Link) (domain.Link, error) {
	return createVariant(tx, tx.linkOps(), l)
}

func (tx *transaction) UpdateLink(id, lang string, mutator func(*domain.Link) error) (domain.Link, error) {
	return updateVariant(tx, tx.linkOps(), id, lang, mutator)
}

func (tx *transaction) DeleteLink(id string) error {
	if !tx.state.links.has(id) {
		return domain.ErrNotFound{Entity: domain.EntityLink, ID: id}
	}
	removeRows(tx, domain.EntityLink, tx.state.links, id)
	return nil
}

func (tx *transaction) CreateIdentifier(i domain.Identifier) (domain.Identifier, error) {
	return createVariant(tx, tx.identifierOps(), i)
}

func (tx *transaction) UpdateIdentifier(id, lang string, mutator func(*domain.Identifier) error) (domain.Identifier, error) {
	return updateVariant(tx, tx.identifierOps(), id, lang, mutator)
}

func (tx *transaction) DeleteIdentifier(id string) error {
	if !tx.state.identifiers.has(id) {
		return domain.ErrNotFound{Entity: domain.EntityIdentifier, ID: id}
	}
	tx.removeAttachments(domain.ParentRef{Kind: domain.ParentIdentifier, ID: id})
	removeRows(tx, domain.EntityIdentifier, tx.state.identifiers, id)
	return nil
}

func (tx *transaction) CreateOtherName(o domain.OtherName) (domain.OtherName, error) {
	return createVariant(tx, tx.otherNameOps(), o)
}

func (tx *transaction) UpdateOtherName(id, lang string, mutator func(*domain.OtherName) error) (domain.OtherName, error) {
	return updateVariant(tx, tx.otherNameOps(), id, lang, mutator)
}

func (tx *transaction) DeleteOtherName(id string) error {
	if !tx.state.otherNames.has(id) {
		return domain.ErrNotFound{Entity: domain.EntityOtherName, ID: id}
	}
	tx.removeAttachments(domain.ParentRef{Kind: domain.ParentOtherName, ID: id})
	removeRows(tx, domain.EntityOtherName, tx.state.otherNames, id)
	return nil
}

// removeAttachments deletes every sub-record owned by parent, including the
// citation links of those sub-records.
func (tx *transaction) removeAttachments(parent domain.ParentRef) {
	for _, id := range tx.state.contacts.ids(func(c domain.ContactDetail) bool { return c.Parent == parent }) {
		tx.removeAttachments(domain.ParentRef{Kind: domain.ParentContactDetail, ID: id})
		removeRows(tx, domain.EntityContactDetail, tx.state.contacts, id)
	}
	for _, id := range tx.state.identifiers.ids(func(i domain.Identifier) bool { return i.Parent == parent }) {
		tx.removeAttachments(domain.ParentRef{Kind: domain.ParentIdentifier, ID: id})
		removeRows(tx, domain.EntityIdentifier, tx.state.identifiers, id)
	}
	for _, id := range tx.state.otherNames.ids(func(o domain.OtherName) bool { return o.Parent == parent }) {
		tx.removeAttachments(domain.ParentRef{Kind: domain.ParentOtherName, ID: id})
		removeRows(tx, domain.EntityOtherName, tx.state.otherNames, id)
	}
	for _, id := range tx.state.links.ids(func(l domain.Link) bool { return l.Parent == parent }) {
		removeRows(tx, domain.EntityLink, tx.state.links, id)
	}
}
