package core

import (
	"context"

	"polity/pkg/domain"
)

func (r resolver) checkPost(p domain.Post, in PostInput) *domain.ValidationError {
	verr := &domain.ValidationError{}
	verr.Merge("", domain.CheckDates(p))
	r.checkAttachments(verr, "", domain.ParentPost, in.attachments())
	findPost := func(id string) (domain.Post, bool) {
		if id == p.ID {
			return p, true
		}
		return r.findPost(id)
	}
	r.checkNestedMemberships(verr, in.Memberships, underPost(p.ID), findPost)
	r.checkStoredMemberships(verr, p.ID, in.Memberships, findPost)
	return verr
}

// checkStoredMemberships revalidates the memberships already held by post id
// against the candidate post. Memberships patched by the payload are checked
// as nested candidates instead.
func (r resolver) checkStoredMemberships(verr *domain.ValidationError, id string, nested []MembershipInput, findPost domain.PostLookup) {
	patched := make(map[string]bool, len(nested))
	for _, in := range nested {
		patched[domain.StringValue(in.ID)] = true
	}
	seen := make(map[string]bool)
	for _, m := range r.tx.ListMemberships() {
		if domain.StringValue(m.PostID) != id || seen[m.ID] || patched[m.ID] {
			continue
		}
		seen[m.ID] = true
		verr.Merge("memberships."+m.ID, domain.CheckMembership(m, findPost))
	}
}

func (r resolver) writePostChildren(id string, in PostInput, plan *IndexPlan) error {
	if err := r.writeAttachments(domain.PostParent(id), in.attachments()); err != nil {
		return err
	}
	memberships, err := r.writeNestedMemberships(in.Memberships, underPost(id))
	if err != nil {
		return err
	}
	c := newClosure(r.tx.Snapshot(), plan)
	c.PostSaved(id)
	for _, m := range memberships {
		c.MembershipSaved(m)
	}
	return nil
}

// CreatePost stores a post in lang with its nested sub-records and memberships.
// A missing organization fails with ErrNotFound.
func (s *Service) CreatePost(ctx context.Context, lang string, in PostInput) (domain.Post, domain.Result, error) {
	lang = language(lang)
	var (
		created domain.Post
		res     domain.Result
	)
	err := s.run(ctx, "create_post", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.write(ctx, func(tx domain.Transaction, plan *IndexPlan) error {
			r := newResolver(tx, lang)
			candidate := domain.Post{Base: domain.Base{ID: assignID(in.ID), Language: lang}}
			in.apply(&candidate)
			if err := r.checkPost(candidate, in).Err(); err != nil {
				return err
			}
			var err error
			if created, err = tx.CreatePost(candidate); err != nil {
				return err
			}
			return r.writePostChildren(created.ID, in, plan)
		})
		return created.ID, err
	})
	return created, res, err
}

// UpdatePost patches the lang variant of a post.
func (s *Service) UpdatePost(ctx context.Context, lang, id string, in PostInput) (domain.Post, domain.Result, error) {
	lang = language(lang)
	var (
		updated domain.Post
		res     domain.Result
	)
	err := s.run(ctx, "update_post", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.write(ctx, func(tx domain.Transaction, plan *IndexPlan) error {
			r := newResolver(tx, lang)
			candidate, ok := variant(tx.FindPost, (*domain.Post).ShareFrom, id, lang)
			if !ok {
				return domain.ErrNotFound{Entity: domain.EntityPost, ID: id}
			}
			candidate.ID = id
			in.apply(&candidate)
			if err := r.checkPost(candidate, in).Err(); err != nil {
				return err
			}
			var before string
			if prev, ok := tx.FindPost(id, ""); ok {
				before = domain.StringValue(prev.OrganizationID)
			}
			var err error
			updated, err = tx.UpdatePost(id, lang, func(p *domain.Post) error {
				in.apply(p)
				return nil
			})
			if err != nil {
				return err
			}
			// a post moved between organizations leaves the old one stale
			plan.Sync(organizationRef(before))
			return r.writePostChildren(id, in, plan)
		})
		return id, err
	})
	return updated, res, err
}

// DeletePost removes a post and its memberships.
func (s *Service) DeletePost(ctx context.Context, id string) (domain.Result, error) {
	var res domain.Result
	err := s.run(ctx, "delete_post", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.write(ctx, func(tx domain.Transaction, plan *IndexPlan) error {
			if !tx.Exists(postRef(id)) {
				return domain.ErrNotFound{Entity: domain.EntityPost, ID: id}
			}
			newClosure(tx.Snapshot(), plan).PostDeleted(id)
			return tx.DeletePost(id)
		})
		return id, err
	})
	return res, err
}

// GetPost returns the lang variant of a post with its embedded records.
func (s *Service) GetPost(ctx context.Context, lang, id string) (PostView, error) {
	lang = language(lang)
	var out PostView
	err := s.view(ctx, func(view domain.TransactionView) error {
		p, ok := view.FindPost(id, lang)
		if !ok {
			return domain.ErrNotFound{Entity: domain.EntityPost, ID: id}
		}
		out = buildPostView(view, p)
		return nil
	})
	return out, err
}

// PostVariants returns every language variant of a post.
func (s *Service) PostVariants(ctx context.Context, id string) ([]domain.Post, error) {
	var out []domain.Post
	err := s.view(ctx, func(view domain.TransactionView) error {
		out = view.PostVariants(id)
		if len(out) == 0 {
			return domain.ErrNotFound{Entity: domain.EntityPost, ID: id}
		}
		return nil
	})
	return out, err
}

// ListPosts returns one variant per post, preferring lang.
func (s *Service) ListPosts(ctx context.Context, lang string) ([]domain.Post, error) {
	var out []domain.Post
	err := s.view(ctx, func(view domain.TransactionView) error {
		out = pickLanguage(view.ListPosts(), language(lang))
		return nil
	})
	return out, err
}
