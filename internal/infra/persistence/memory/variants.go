package memory

import (
	"fmt"

	"polity/pkg/domain"
)

// variantOps describes how the generic create/update paths reach into one entity table.
type variantOps[T any] struct {
	entity domain.EntityType
	table  table[T]
	base   func(*T) *domain.Base
	share  func(*T, T)
	clone  func(T) T
	// prepare normalizes and checks references. prev is the row before the
	// caller's mutation, nil on create.
	prepare func(v, prev *T) error
}

func noPrepare[T any](*T, *T) error { return nil }

func createVariant[T any](tx *transaction, ops variantOps[T], v T) (T, error) {
	var zero T
	b := ops.base(&v)
	if b.ID == "" {
		b.ID = newID(ops.entity)
	} else if ops.table.has(b.ID) {
		return zero, fmt.Errorf("%w: %s %s", domain.ErrAlreadyExists, ops.entity, b.ID)
	}
	b.Language = tx.language(b.Language)
	b.CreatedAt = tx.now
	b.UpdatedAt = tx.now
	if err := ops.prepare(&v, nil); err != nil {
		return zero, err
	}
	key := ops.base(&v).Key()
	ops.table[key] = ops.clone(v)
	tx.recordChange(Change{Entity: ops.entity, Action: domain.ActionCreate, After: ops.clone(v)})
	return ops.clone(v), nil
}

// updateVariant mutates the (id, lang) row. When the id exists but lang does
// not, a new translation is seeded from the lowest-language variant. Shared
// fields of the result are copied into every other variant of the id.
func updateVariant[T any](tx *transaction, ops variantOps[T], id, lang string, mutator func(*T) error) (T, error) {
	var zero T
	lang = tx.language(lang)
	key := domain.VariantKey{ID: id, Language: lang}

	var (
		current T
		prev    T
		before  *T
	)
	if existing, ok := ops.table[key]; ok {
		current = ops.clone(existing)
		prev = ops.clone(existing)
		before = &prev
	} else {
		seed, ok := ops.table.find(id, "")
		if !ok {
			return zero, domain.ErrNotFound{Entity: ops.entity, ID: id}
		}
		ops.share(&current, seed)
		*ops.base(&current) = domain.Base{ID: id, Language: lang, CreatedAt: tx.now}
		prev = ops.clone(seed)
	}
	createdAt := ops.base(&current).CreatedAt

	if mutator != nil {
		if err := mutator(&current); err != nil {
			return zero, err
		}
	}
	b := ops.base(&current)
	b.ID = id
	b.Language = lang
	b.CreatedAt = createdAt
	b.UpdatedAt = tx.now
	if err := ops.prepare(&current, &prev); err != nil {
		return zero, err
	}

	ops.table[key] = ops.clone(current)
	for _, k := range ops.table.keysFor(id) {
		if k == key {
			continue
		}
		row := ops.table[k]
		ops.share(&row, current)
		ops.base(&row).Touch(tx.now)
		ops.table[k] = row
	}

	change := Change{Entity: ops.entity, Action: domain.ActionCreate, After: ops.clone(current)}
	if before != nil {
		change.Action = domain.ActionUpdate
		change.Before = *before
	}
	tx.recordChange(change)
	return ops.clone(current), nil
}

// removeRows deletes every variant of id, recording one change per row.
func removeRows[T any](tx *transaction, entity domain.EntityType, t table[T], id string) {
	for _, row := range t.removeID(id) {
		tx.recordChange(Change{Entity: entity, Action: domain.ActionDelete, Before: row})
	}
}
