package core

import (
	"context"

	"polity/pkg/domain"
)

func (r resolver) checkPerson(p domain.Person, in PersonInput) *domain.ValidationError {
	verr := &domain.ValidationError{}
	verr.Merge("", domain.CheckDates(p))
	r.checkAttachments(verr, "", domain.ParentPerson, in.AttachmentInputs)
	return verr
}

// CreatePerson stores a person in lang together with its nested sub-records.
func (s *Service) CreatePerson(ctx context.Context, lang string, in PersonInput) (domain.Person, domain.Result, error) {
	lang = language(lang)
	var (
		created domain.Person
		res     domain.Result
	)
	err := s.run(ctx, "create_person", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.write(ctx, func(tx domain.Transaction, plan *IndexPlan) error {
			r := newResolver(tx, lang)
			candidate := domain.Person{Base: domain.Base{ID: domain.StringValue(in.ID), Language: lang}}
			in.apply(&candidate)
			if err := r.checkPerson(candidate, in).Err(); err != nil {
				return err
			}
			var err error
			if created, err = tx.CreatePerson(candidate); err != nil {
				return err
			}
			if err := r.writeAttachments(domain.PersonParent(created.ID), in.AttachmentInputs); err != nil {
				return err
			}
			newClosure(tx.Snapshot(), plan).PersonSaved(created.ID)
			return nil
		})
		return created.ID, err
	})
	return created, res, err
}

// UpdatePerson patches the lang variant of a person, creating the translation
// when the person exists only in other languages.
func (s *Service) UpdatePerson(ctx context.Context, lang, id string, in PersonInput) (domain.Person, domain.Result, error) {
	lang = language(lang)
	var (
		updated domain.Person
		res     domain.Result
	)
	err := s.run(ctx, "update_person", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.write(ctx, func(tx domain.Transaction, plan *IndexPlan) error {
			r := newResolver(tx, lang)
			candidate, ok := variant(tx.FindPerson, (*domain.Person).ShareFrom, id, lang)
			if !ok {
				return domain.ErrNotFound{Entity: domain.EntityPerson, ID: id}
			}
			in.apply(&candidate)
			if err := r.checkPerson(candidate, in).Err(); err != nil {
				return err
			}
			var err error
			updated, err = tx.UpdatePerson(id, lang, func(p *domain.Person) error {
				in.apply(p)
				return nil
			})
			if err != nil {
				return err
			}
			if err := r.writeAttachments(domain.PersonParent(id), in.AttachmentInputs); err != nil {
				return err
			}
			newClosure(tx.Snapshot(), plan).PersonSaved(id)
			return nil
		})
		return id, err
	})
	return updated, res, err
}

// DeletePerson removes every variant of a person, its sub-records and its memberships.
func (s *Service) DeletePerson(ctx context.Context, id string) (domain.Result, error) {
	var res domain.Result
	err := s.run(ctx, "delete_person", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.write(ctx, func(tx domain.Transaction, plan *IndexPlan) error {
			if !tx.Exists(personRef(id)) {
				return domain.ErrNotFound{Entity: domain.EntityPerson, ID: id}
			}
			newClosure(tx.Snapshot(), plan).PersonDeleted(id)
			return tx.DeletePerson(id)
		})
		return id, err
	})
	return res, err
}

// GetPerson returns the lang variant of a person with its embedded records.
func (s *Service) GetPerson(ctx context.Context, lang, id string) (PersonView, error) {
	lang = language(lang)
	var out PersonView
	err := s.view(ctx, func(view domain.TransactionView) error {
		p, ok := view.FindPerson(id, lang)
		if !ok {
			return domain.ErrNotFound{Entity: domain.EntityPerson, ID: id}
		}
		out = buildPersonView(view, p)
		return nil
	})
	return out, err
}

// PersonVariants returns every language variant of a person.
func (s *Service) PersonVariants(ctx context.Context, id string) ([]domain.Person, error) {
	var out []domain.Person
	err := s.view(ctx, func(view domain.TransactionView) error {
		out = view.PersonVariants(id)
		if len(out) == 0 {
			return domain.ErrNotFound{Entity: domain.EntityPerson, ID: id}
		}
		return nil
	})
	return out, err
}

// ListPersons returns one variant per person, preferring lang.
func (s *Service) ListPersons(ctx context.Context, lang string) ([]domain.Person, error) {
	var out []domain.Person
	err := s.view(ctx, func(view domain.TransactionView) error {
		out = pickLanguage(view.ListPersons(), language(lang))
		return nil
	})
	return out, err
}
