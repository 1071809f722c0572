package core

import (
	"context"

	"polity/pkg/domain"
)

// CreateArea stores an area so organizations, posts and memberships can
// reference it. Areas are not indexed.
func (s *Service) CreateArea(ctx context.Context, lang string, area domain.Area) (domain.Area, error) {
	area.Language = language(lang)
	var created domain.Area
	err := s.run(ctx, "create_area", func(ctx context.Context) (string, error) {
		_, err := s.write(ctx, func(tx domain.Transaction, _ *IndexPlan) error {
			var err error
			created, err = tx.CreateArea(area)
			return err
		})
		return created.ID, err
	})
	return created, err
}

// GetArea returns the lang variant of an area, or any variant when lang is empty.
func (s *Service) GetArea(ctx context.Context, lang, id string) (domain.Area, error) {
	var out domain.Area
	err := s.view(ctx, func(view domain.TransactionView) error {
		a, ok := view.FindArea(id, lang)
		if !ok {
			return domain.ErrNotFound{Entity: domain.EntityArea, ID: id}
		}
		out = a
		return nil
	})
	return out, err
}
