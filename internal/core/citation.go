package core

import (
	"context"
	"fmt"

	"polity/pkg/domain"
)

func citationField(parent domain.ParentRef, field string) error {
	if domain.HasField(parent.Entity(), field) {
		return nil
	}
	verr := &domain.ValidationError{}
	verr.Add("field", domain.ErrFieldNotExist, fmt.Sprintf("%s Does not exist", field))
	return verr
}

// AddCitation attaches a link citing field of parent in lang. It fails with a
// ValidationError wrapping ErrFieldNotExist when parent has no such field.
func (s *Service) AddCitation(ctx context.Context, parent domain.ParentRef, lang, field, url, note string) (domain.Link, error) {
	lang = language(lang)
	var created domain.Link
	err := s.run(ctx, "add_citation", func(ctx context.Context) (string, error) {
		if err := citationField(parent, field); err != nil {
			return "", err
		}
		if err := parent.Validate(domain.EntityLink); err != nil {
			return "", err
		}
		_, err := s.write(ctx, func(tx domain.Transaction, plan *IndexPlan) error {
			if !tx.Exists(parent.Ref()) {
				return domain.ErrNotFound{Entity: parent.Entity(), ID: parent.ID}
			}
			var err error
			created, err = tx.CreateLink(domain.Link{
				Base:   domain.Base{Language: lang},
				Parent: parent,
				URL:    url,
				Note:   note,
				Field:  field,
			})
			if err != nil {
				return err
			}
			newClosure(tx.Snapshot(), plan).SubRecordChanged(parent)
			return nil
		})
		return created.ID, err
	})
	return created, err
}

// CitationExists reports whether parent carries a citation for field in lang.
// A missing parent fails with ErrNotFound.
func (s *Service) CitationExists(ctx context.Context, parent domain.ParentRef, lang, field string) (bool, error) {
	if err := citationField(parent, field); err != nil {
		return false, err
	}
	lang = language(lang)
	var found bool
	err := s.view(ctx, func(view domain.TransactionView) error {
		if !view.Exists(parent.Ref()) {
			return domain.ErrNotFound{Entity: parent.Entity(), ID: parent.ID}
		}
		for _, l := range view.ListLinks(parent) {
			if l.Field == field && l.Language == lang {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}
