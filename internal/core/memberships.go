package core

import (
	"context"

	"polity/pkg/domain"
)

func (r resolver) checkStandaloneMembership(m domain.Membership, in MembershipInput) *domain.ValidationError {
	verr := &domain.ValidationError{}
	r.checkMembership(verr, "", m, in.AttachmentInputs, r.findPost)
	return verr
}

// CreateMembership stores a membership of a person in an organization and/or post.
func (s *Service) CreateMembership(ctx context.Context, lang string, in MembershipInput) (domain.Membership, domain.Result, error) {
	lang = language(lang)
	var (
		created domain.Membership
		res     domain.Result
	)
	err := s.run(ctx, "create_membership", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.write(ctx, func(tx domain.Transaction, plan *IndexPlan) error {
			r := newResolver(tx, lang)
			candidate := domain.Membership{Base: domain.Base{ID: domain.StringValue(in.ID), Language: lang}}
			in.apply(&candidate)
			if err := r.checkStandaloneMembership(candidate, in).Err(); err != nil {
				return err
			}
			var err error
			if created, err = tx.CreateMembership(candidate); err != nil {
				return err
			}
			if err := r.writeAttachments(domain.MembershipParent(created.ID), in.AttachmentInputs); err != nil {
				return err
			}
			newClosure(tx.Snapshot(), plan).MembershipSaved(created.ID)
			return nil
		})
		return created.ID, err
	})
	return created, res, err
}

// UpdateMembership patches the lang variant of a membership. Entities the
// membership pointed at before the update are refreshed as well.
func (s *Service) UpdateMembership(ctx context.Context, lang, id string, in MembershipInput) (domain.Membership, domain.Result, error) {
	lang = language(lang)
	var (
		updated domain.Membership
		res     domain.Result
	)
	err := s.run(ctx, "update_membership", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.write(ctx, func(tx domain.Transaction, plan *IndexPlan) error {
			r := newResolver(tx, lang)
			candidate, ok := variant(tx.FindMembership, (*domain.Membership).ShareFrom, id, lang)
			if !ok {
				return domain.ErrNotFound{Entity: domain.EntityMembership, ID: id}
			}
			candidate.ID = id
			in.apply(&candidate)
			if err := r.checkStandaloneMembership(candidate, in).Err(); err != nil {
				return err
			}
			newClosure(tx.Snapshot(), plan).membershipRelations(id)
			var err error
			updated, err = tx.UpdateMembership(id, lang, func(m *domain.Membership) error {
				in.apply(m)
				return nil
			})
			if err != nil {
				return err
			}
			if err := r.writeAttachments(domain.MembershipParent(id), in.AttachmentInputs); err != nil {
				return err
			}
			newClosure(tx.Snapshot(), plan).MembershipSaved(id)
			return nil
		})
		return id, err
	})
	return updated, res, err
}

// DeleteMembership removes every variant of a membership.
func (s *Service) DeleteMembership(ctx context.Context, id string) (domain.Result, error) {
	var res domain.Result
	err := s.run(ctx, "delete_membership", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.write(ctx, func(tx domain.Transaction, plan *IndexPlan) error {
			if !tx.Exists(membershipRef(id)) {
				return domain.ErrNotFound{Entity: domain.EntityMembership, ID: id}
			}
			newClosure(tx.Snapshot(), plan).MembershipDeleted(id)
			return tx.DeleteMembership(id)
		})
		return id, err
	})
	return res, err
}

// GetMembership returns the lang variant of a membership with its embedded records.
func (s *Service) GetMembership(ctx context.Context, lang, id string) (MembershipView, error) {
	lang = language(lang)
	var out MembershipView
	err := s.view(ctx, func(view domain.TransactionView) error {
		m, ok := view.FindMembership(id, lang)
		if !ok {
			return domain.ErrNotFound{Entity: domain.EntityMembership, ID: id}
		}
		out = buildMembershipView(view, m)
		return nil
	})
	return out, err
}

// MembershipVariants returns every language variant of a membership.
func (s *Service) MembershipVariants(ctx context.Context, id string) ([]domain.Membership, error) {
	var out []domain.Membership
	err := s.view(ctx, func(view domain.TransactionView) error {
		out = view.MembershipVariants(id)
		if len(out) == 0 {
			return domain.ErrNotFound{Entity: domain.EntityMembership, ID: id}
		}
		return nil
	})
	return out, err
}

// ListMemberships returns one variant per membership, preferring lang.
func (s *Service) ListMemberships(ctx context.Context, lang string) ([]domain.Membership, error) {
	var out []domain.Membership
	err := s.view(ctx, func(view domain.TransactionView) error {
		out = pickLanguage(view.ListMemberships(), language(lang))
		return nil
	})
	return out, err
}
