package core

import (
	"context"

	"github.com/google/uuid"

	"polity/pkg/domain"
)

// assignID fills an empty id up front; nested memberships are bound to their
// parent before the parent is stored.
func assignID(id *string) string {
	if v := domain.StringValue(id); v != "" {
		return v
	}
	return uuid.NewString()
}

func (r resolver) checkOrganization(o domain.Organization, in OrganizationInput) *domain.ValidationError {
	verr := &domain.ValidationError{}
	verr.Merge("", domain.CheckDates(o))
	r.checkAttachments(verr, "", domain.ParentOrganization, in.AttachmentInputs)
	r.checkNestedMemberships(verr, in.Memberships, underOrganization(o.ID), r.findPost)
	return verr
}

func (r resolver) writeOrganizationChildren(id string, in OrganizationInput, plan *IndexPlan) error {
	if err := r.writeAttachments(domain.OrganizationParent(id), in.AttachmentInputs); err != nil {
		return err
	}
	memberships, err := r.writeNestedMemberships(in.Memberships, underOrganization(id))
	if err != nil {
		return err
	}
	c := newClosure(r.tx.Snapshot(), plan)
	c.OrganizationSaved(id)
	for _, m := range memberships {
		c.MembershipSaved(m)
	}
	return nil
}

// CreateOrganization stores an organization in lang with its nested
// sub-records and memberships.
func (s *Service) CreateOrganization(ctx context.Context, lang string, in OrganizationInput) (domain.Organization, domain.Result, error) {
	lang = language(lang)
	var (
		created domain.Organization
		res     domain.Result
	)
	err := s.run(ctx, "create_organization", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.write(ctx, func(tx domain.Transaction, plan *IndexPlan) error {
			r := newResolver(tx, lang)
			candidate := domain.Organization{Base: domain.Base{ID: assignID(in.ID), Language: lang}}
			in.apply(&candidate)
			if err := r.checkOrganization(candidate, in).Err(); err != nil {
				return err
			}
			var err error
			if created, err = tx.CreateOrganization(candidate); err != nil {
				return err
			}
			return r.writeOrganizationChildren(created.ID, in, plan)
		})
		return created.ID, err
	})
	return created, res, err
}

// UpdateOrganization patches the lang variant of an organization.
func (s *Service) UpdateOrganization(ctx context.Context, lang, id string, in OrganizationInput) (domain.Organization, domain.Result, error) {
	lang = language(lang)
	var (
		updated domain.Organization
		res     domain.Result
	)
	err := s.run(ctx, "update_organization", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.write(ctx, func(tx domain.Transaction, plan *IndexPlan) error {
			r := newResolver(tx, lang)
			candidate, ok := variant(tx.FindOrganization, (*domain.Organization).ShareFrom, id, lang)
			if !ok {
				return domain.ErrNotFound{Entity: domain.EntityOrganization, ID: id}
			}
			candidate.ID = id
			in.apply(&candidate)
			if err := r.checkOrganization(candidate, in).Err(); err != nil {
				return err
			}
			var err error
			updated, err = tx.UpdateOrganization(id, lang, func(o *domain.Organization) error {
				in.apply(o)
				return nil
			})
			if err != nil {
				return err
			}
			return r.writeOrganizationChildren(id, in, plan)
		})
		return id, err
	})
	return updated, res, err
}

// DeleteOrganization removes an organization with its posts, their
// memberships and its own memberships.
func (s *Service) DeleteOrganization(ctx context.Context, id string) (domain.Result, error) {
	var res domain.Result
	err := s.run(ctx, "delete_organization", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.write(ctx, func(tx domain.Transaction, plan *IndexPlan) error {
			if !tx.Exists(organizationRef(id)) {
				return domain.ErrNotFound{Entity: domain.EntityOrganization, ID: id}
			}
			newClosure(tx.Snapshot(), plan).OrganizationDeleted(id)
			return tx.DeleteOrganization(id)
		})
		return id, err
	})
	return res, err
}

// GetOrganization returns the lang variant of an organization with its embedded records.
func (s *Service) GetOrganization(ctx context.Context, lang, id string) (OrganizationView, error) {
	lang = language(lang)
	var out OrganizationView
	err := s.view(ctx, func(view domain.TransactionView) error {
		o, ok := view.FindOrganization(id, lang)
		if !ok {
			return domain.ErrNotFound{Entity: domain.EntityOrganization, ID: id}
		}
		out = buildOrganizationView(view, o)
		return nil
	})
	return out, err
}

// OrganizationVariants returns every language variant of an organization.
func (s *Service) OrganizationVariants(ctx context.Context, id string) ([]domain.Organization, error) {
	var out []domain.Organization
	err := s.view(ctx, func(view domain.TransactionView) error {
		out = view.OrganizationVariants(id)
		if len(out) == 0 {
			return domain.ErrNotFound{Entity: domain.EntityOrganization, ID: id}
		}
		return nil
	})
	return out, err
}

// ListOrganizations returns one variant per organization, preferring lang.
func (s *Service) ListOrganizations(ctx context.Context, lang string) ([]domain.Organization, error) {
	var out []domain.Organization
	err := s.view(ctx, func(view domain.TransactionView) error {
		out = pickLanguage(view.ListOrganizations(), language(lang))
		return nil
	})
	return out, err
}
