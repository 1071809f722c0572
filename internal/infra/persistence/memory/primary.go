package memory

import (
	"polity/pkg/domain"
)

func (tx *transaction) personOps() variantOps[domain.Person] {
	return variantOps[domain.Person]{
		entity:  domain.EntityPerson,
		table:   tx.state.persons,
		base:    func(p *domain.Person) *domain.Base { return &p.Base },
		share:   (*domain.Person).ShareFrom,
		clone:   clonePerson,
		prepare: noPrepare[domain.Person],
	}
}

func (tx *transaction) organizationOps() variantOps[domain.Organization] {
	return variantOps[domain.Organization]{
		entity: domain.EntityOrganization,
		table:  tx.state.organizations,
		base:   func(o *domain.Organization) *domain.Base { return &o.Base },
		share:  (*domain.Organization).ShareFrom,
		clone:  cloneOrganization,
		prepare: func(o, _ *domain.Organization) error {
			normalizeRef(&o.AreaID)
			return tx.requireRef(domain.EntityArea, o.AreaID)
		},
	}
}

func (tx *transaction) postOps() variantOps[domain.Post] {
	return variantOps[domain.Post]{
		entity: domain.EntityPost,
		table:  tx.state.posts,
		base:   func(p *domain.Post) *domain.Base { return &p.Base },
		share:  (*domain.Post).ShareFrom,
		clone:  clonePost,
		prepare: func(p, _ *domain.Post) error {
			normalizeRef(&p.OrganizationID)
			normalizeRef(&p.AreaID)
			if err := tx.requireRef(domain.EntityOrganization, p.OrganizationID); err != nil {
				return err
			}
			return tx.requireRef(domain.EntityArea, p.AreaID)
		},
	}
}

func (tx *transaction) membershipOps() variantOps[domain.Membership] {
	return variantOps[domain.Membership]{
		entity: domain.EntityMembership,
		table:  tx.state.memberships,
		base:   func(m *domain.Membership) *domain.Base { return &m.Base },
		share:  (*domain.Membership).ShareFrom,
		clone:  cloneMembership,
		prepare: func(m, _ *domain.Membership) error {
			for _, ref := range []**string{&m.OrganizationID, &m.PostID, &m.MemberID, &m.OnBehalfOfID, &m.AreaID} {
				normalizeRef(ref)
			}
			if !tx.state.persons.has(m.PersonID) {
				return domain.ErrNotFound{Entity: domain.EntityPerson, ID: m.PersonID}
			}
			checks := []struct {
				entity domain.EntityType
				id     *string
			}{
				{domain.EntityOrganization, m.OrganizationID},
				{domain.EntityPost, m.PostID},
				{domain.EntityOrganization, m.MemberID},
				{domain.EntityOrganization, m.OnBehalfOfID},
				{domain.EntityArea, m.AreaID},
			}
			for _, c := range checks {
				if err := tx.requireRef(c.entity, c.id); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (tx *transaction) areaOps() variantOps[domain.Area] {
	return variantOps[domain.Area]{
		entity:  domain.EntityArea,
		table:   tx.state.areas,
		base:    func(a *domain.Area) *domain.Base { return &a.Base },
		share:   (*domain.Area).ShareFrom,
		clone:   cloneArea,
		prepare: noPrepare[domain.Area],
	}
}

// CreatePerson stores a new person. An empty ID is generated, an empty language defaults to DefaultLanguage.
func (tx *transaction) CreatePerson(p domain.Person) (domain.Person, error) {
	return createVariant(tx, tx.personOps(), p)
}

// UpdatePerson mutates or translates a person variant.
func (tx *transaction) UpdatePerson(id, lang string, mutator func(*domain.Person) error) (domain.Person, error) {
	return updateVariant(tx, tx.personOps(), id, lang, mutator)
}

// DeletePerson removes every variant of the person together with its memberships and sub-records.
func (tx *transaction) DeletePerson(id string) error {
	if !tx.state.persons.has(id) {
		return domain.ErrNotFound{Entity: domain.EntityPerson, ID: id}
	}
	for _, mid := range tx.state.memberships.ids(func(m domain.Membership) bool { return m.PersonID == id }) {
		tx.removeMembership(mid)
	}
	tx.removeAttachments(domain.PersonParent(id))
	removeRows(tx, domain.EntityPerson, tx.state.persons, id)
	return nil
}

func (tx *transaction) CreateOrganization(o domain.Organization) (domain.Organization, error) {
	return createVariant(tx, tx.organizationOps(), o)
}

func (tx *transaction) UpdateOrganization(id, lang string, mutator func(*domain.Organization) error) (domain.Organization, error) {
	return updateVariant(tx, tx.organizationOps(), id, lang, mutator)
}

// DeleteOrganization removes the organization, its posts, every membership in
// it or its posts, and its sub-records. Memberships that name it as member or
// on_behalf_of keep existing with that reference cleared.
func (tx *transaction) DeleteOrganization(id string) error {
	if !tx.state.organizations.has(id) {
		return domain.ErrNotFound{Entity: domain.EntityOrganization, ID: id}
	}
	for _, pid := range tx.state.posts.ids(func(p domain.Post) bool { return domain.StringValue(p.OrganizationID) == id }) {
		tx.removePost(pid)
	}
	for _, mid := range tx.state.memberships.ids(func(m domain.Membership) bool { return domain.StringValue(m.OrganizationID) == id }) {
		tx.removeMembership(mid)
	}
	for key, m := range tx.state.memberships {
		before := cloneMembership(m)
		changed := false
		if domain.StringValue(m.MemberID) == id {
			m.MemberID = nil
			changed = true
		}
		if domain.StringValue(m.OnBehalfOfID) == id {
			m.OnBehalfOfID = nil
			changed = true
		}
		if !changed {
			continue
		}
		m.Touch(tx.now)
		tx.state.memberships[key] = m
		tx.recordChange(Change{Entity: domain.EntityMembership, Action: domain.ActionUpdate, Before: before, After: cloneMembership(m)})
	}
	tx.removeAttachments(domain.OrganizationParent(id))
	removeRows(tx, domain.EntityOrganization, tx.state.organizations, id)
	return nil
}

func (tx *transaction) CreatePost(p domain.Post) (domain.Post, error) {
	return createVariant(tx, tx.postOps(), p)
}

func (tx *transaction) UpdatePost(id, lang string, mutator func(*domain.Post) error) (domain.Post, error) {
	return updateVariant(tx, tx.postOps(), id, lang, mutator)
}

// DeletePost removes the post together with its memberships and sub-records.
func (tx *transaction) DeletePost(id string) error {
	if !tx.state.posts.has(id) {
		return domain.ErrNotFound{Entity: domain.EntityPost, ID: id}
	}
	tx.removePost(id)
	return nil
}

func (tx *transaction) removePost(id string) {
	for _, mid := range tx.state.memberships.ids(func(m domain.Membership) bool { return domain.StringValue(m.PostID) == id }) {
		tx.removeMembership(mid)
	}
	tx.removeAttachments(domain.PostParent(id))
	removeRows(tx, domain.EntityPost, tx.state.posts, id)
}

func (tx *transaction) CreateMembership(m domain.Membership) (domain.Membership, error) {
	return createVariant(tx, tx.membershipOps(), m)
}

func (tx *transaction) UpdateMembership(id, lang string, mutator func(*domain.Membership) error) (domain.Membership, error) {
	return updateVariant(tx, tx.membershipOps(), id, lang, mutator)
}

func (tx *transaction) DeleteMembership(id string) error {
	if !tx.state.memberships.has(id) {
		return domain.ErrNotFound{Entity: domain.EntityMembership, ID: id}
	}
	tx.removeMembership(id)
	return nil
}

func (tx *transaction) removeMembership(id string) {
	tx.removeAttachments(domain.MembershipParent(id))
	removeRows(tx, domain.EntityMembership, tx.state.memberships, id)
}

// CreateArea stores a geographic area.
func (tx *transaction) CreateArea(a domain.Area) (domain.Area, error) {
	return createVariant(tx, tx.areaOps(), a)
}
