package core

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"polity/internal/search"
	"polity/pkg/domain"
)

// ReindexReport counts the documents written and removed by Reindex, per index.
type ReindexReport struct {
	Written map[string]int
	Removed map[string]int
}

func variantIDs[T interface{ Key() domain.VariantKey }](rows []T) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, row := range rows {
		if id := row.Key().ID; !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// Reindex rebuilds every search document from the store and drops documents
// whose variant no longer exists. The four indexes are rebuilt concurrently.
func (s *Service) Reindex(ctx context.Context) (ReindexReport, error) {
	report := ReindexReport{Written: make(map[string]int), Removed: make(map[string]int)}
	err := s.run(ctx, "reindex", func(ctx context.Context) (string, error) {
		docs := make(map[string][]search.Document, len(IndexNames))
		err := s.view(ctx, func(view domain.TransactionView) error {
			refs := map[domain.EntityType][]string{
				domain.EntityPerson:       variantIDs(view.ListPersons()),
				domain.EntityOrganization: variantIDs(view.ListOrganizations()),
				domain.EntityPost:         variantIDs(view.ListPosts()),
				domain.EntityMembership:   variantIDs(view.ListMemberships()),
			}
			for entity, ids := range refs {
				index, _ := IndexName(entity)
				for _, id := range ids {
					ref := domain.EntityRef{Type: entity, ID: id}
					for _, lang := range view.Languages(ref) {
						doc, ok, err := buildDocument(view, ref, lang)
						if err != nil {
							return err
						}
						if ok {
							docs[index] = append(docs[index], doc)
						}
					}
				}
			}
			return nil
		})
		if err != nil {
			return "", err
		}

		written := make([]int, len(IndexNames))
		removed := make([]int, len(IndexNames))
		z := s.synchronizer()
		g, gctx := errgroup.WithContext(ctx)
		for i, index := range IndexNames {
			i, index := i, index // per-iteration copies (go 1.21 loop semantics)
			g.Go(func() error {
				n, err := z.rebuild(gctx, index, docs[index])
				written[i] = len(docs[index])
				removed[i] = n
				return err
			})
		}
		err = g.Wait()
		for i, index := range IndexNames {
			report.Written[index] = written[i]
			report.Removed[index] = removed[i]
		}
		return "", err
	})
	return report, err
}

// rebuild writes docs into index and removes every other document in it.
// It returns the number of stale documents removed.
func (z *Synchronizer) rebuild(ctx context.Context, index string, docs []search.Document) (int, error) {
	keep := make(map[string]bool, len(docs))
	ops := make([]docOp, 0, len(docs))
	for _, doc := range docs {
		keep[doc.Key()] = true
		ops = append(ops, docOp{doc: doc})
	}
	existing, err := z.index.Search(ctx, index, "", "")
	if err != nil {
		return 0, fmt.Errorf("list %s: %w", index, err)
	}
	for _, doc := range existing {
		if !keep[doc.Key()] {
			ops = append(ops, docOp{remove: true, doc: search.Document{Index: index, ID: doc.ID, Language: doc.Language}})
		}
	}
	return len(ops) - len(docs), z.write(ctx, ops)
}
