package memory_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"polity/internal/infra/persistence/memory"
	"polity/pkg/domain"
)

func strPtr(v string) *string { return &v }

type graph struct {
	person, org, other, post, membership string
}

func seed(t *testing.T, store *memory.Store) graph {
	t.Helper()
	var g graph
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		p, err := tx.CreatePerson(domain.Person{Name: "Ada Obi"})
		if err != nil {
			return err
		}
		o, err := tx.CreateOrganization(domain.Organization{Name: "Assembly"})
		if err != nil {
			return err
		}
		other, err := tx.CreateOrganization(domain.Organization{Name: "Party"})
		if err != nil {
			return err
		}
		post, err := tx.CreatePost(domain.Post{Label: "Speaker", OrganizationID: strPtr(o.ID)})
		if err != nil {
			return err
		}
		m, err := tx.CreateMembership(domain.Membership{
			PersonID:       p.ID,
			OrganizationID: strPtr(o.ID),
			PostID:         strPtr(post.ID),
			OnBehalfOfID:   strPtr(other.ID),
		})
		if err != nil {
			return err
		}
		g = graph{person: p.ID, org: o.ID, other: other.ID, post: post.ID, membership: m.ID}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return g
}

func view(t *testing.T, store *memory.Store, fn func(domain.TransactionView)) {
	t.Helper()
	if err := store.View(context.Background(), func(v domain.TransactionView) error {
		fn(v)
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestCreateAssignsIdentityAndDefaults(t *testing.T) {
	store := memory.NewStore(nil)
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	store.SetNowFunc(func() time.Time { return fixed })
	g := seed(t, store)

	if strings.Count(g.person, "-") != 4 {
		t.Fatalf("expected dashed uuid for person, got %q", g.person)
	}
	if strings.Contains(g.membership, "-") || len(g.membership) != 32 {
		t.Fatalf("expected dashless hex membership id, got %q", g.membership)
	}
	view(t, store, func(v domain.TransactionView) {
		p, ok := v.FindPerson(g.person, domain.DefaultLanguage)
		if !ok {
			t.Fatalf("expected person in default language")
		}
		if !p.CreatedAt.Equal(fixed) || !p.UpdatedAt.Equal(fixed) {
			t.Fatalf("unexpected timestamps %+v", p.Base)
		}
	})
	if store.RulesEngine() == nil || store.NowFunc() == nil {
		t.Fatalf("expected engine and clock")
	}
}

func TestCreateRejectsDuplicatesAndDanglingReferences(t *testing.T) {
	store := memory.NewStore(nil)
	g := seed(t, store)
	cases := map[string]func(tx domain.Transaction) error{
		"duplicate id": func(tx domain.Transaction) error {
			_, err := tx.CreatePerson(domain.Person{Base: domain.Base{ID: g.person}, Name: "again"})
			return err
		},
		"missing person": func(tx domain.Transaction) error {
			_, err := tx.CreateMembership(domain.Membership{PersonID: "ghost", OrganizationID: strPtr(g.org)})
			return err
		},
		"missing post org": func(tx domain.Transaction) error {
			_, err := tx.CreatePost(domain.Post{Label: "x", OrganizationID: strPtr("ghost")})
			return err
		},
		"missing area": func(tx domain.Transaction) error {
			_, err := tx.CreateOrganization(domain.Organization{Name: "x", AreaID: strPtr("ghost")})
			return err
		},
		"missing parent": func(tx domain.Transaction) error {
			_, err := tx.CreateContactDetail(domain.ContactDetail{Parent: domain.PersonParent("ghost"), Type: "email"})
			return err
		},
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := store.RunInTransaction(context.Background(), fn)
			if err == nil {
				t.Fatalf("expected error")
			}
			if name == "duplicate id" {
				if !errors.Is(err, domain.ErrAlreadyExists) {
					t.Fatalf("expected ErrAlreadyExists, got %v", err)
				}
				return
			}
			if !errors.Is(err, domain.ErrMissing) {
				t.Fatalf("expected not found, got %v", err)
			}
		})
	}
}

func TestEmptyReferenceClearsPointer(t *testing.T) {
	store := memory.NewStore(nil)
	g := seed(t, store)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.UpdateMembership(g.membership, "", func(m *domain.Membership) error {
			m.OnBehalfOfID = strPtr("")
			return nil
		})
		return err
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	view(t, store, func(v domain.TransactionView) {
		m, _ := v.FindMembership(g.membership, "")
		if m.OnBehalfOfID != nil {
			t.Fatalf("expected cleared on_behalf_of, got %q", *m.OnBehalfOfID)
		}
	})
}

func TestUpdateWithNewLanguageCreatesTranslation(t *testing.T) {
	store := memory.NewStore(nil)
	g := seed(t, store)
	ctx := context.Background()
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.UpdatePerson(g.person, "en", func(p *domain.Person) error {
			p.Email = "ada@example.org"
			return nil
		}); err != nil {
			return err
		}
		ms, err := tx.UpdatePerson(g.person, "ms", func(p *domain.Person) error {
			p.Name = "Ada Obi (ms)"
			p.ID = "tampered"
			return nil
		})
		if err != nil {
			return err
		}
		if ms.ID != g.person || ms.Language != "ms" {
			t.Fatalf("key must be pinned, got %+v", ms.Base)
		}
		if ms.Email != "ada@example.org" {
			t.Fatalf("translation must be seeded with shared fields, got %q", ms.Email)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("translate: %v", err)
	}

	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.UpdatePerson(g.person, "ms", func(p *domain.Person) error {
			p.BirthDate = "1970"
			return nil
		})
		return err
	})
	if err != nil {
		t.Fatalf("update shared: %v", err)
	}

	view(t, store, func(v domain.TransactionView) {
		variants := v.PersonVariants(g.person)
		if len(variants) != 2 {
			t.Fatalf("expected two variants, got %d", len(variants))
		}
		if variants[0].Language != "en" || variants[1].Language != "ms" {
			t.Fatalf("variants must be ordered by language: %+v", variants)
		}
		if variants[0].Name != "Ada Obi" || variants[1].Name != "Ada Obi (ms)" {
			t.Fatalf("translated fields leaked between variants: %+v", variants)
		}
		for _, p := range variants {
			if p.BirthDate != "1970" {
				t.Fatalf("shared field not propagated to %s", p.Language)
			}
		}
		if got := v.Languages(domain.EntityRef{Type: domain.EntityPerson, ID: g.person}); len(got) != 2 {
			t.Fatalf("expected two languages, got %v", got)
		}
		if p, _ := v.FindPerson(g.person, ""); p.Language != "en" {
			t.Fatalf("empty language must resolve to lowest variant, got %s", p.Language)
		}
	})
}

func TestUpdateMissingAndMutatorError(t *testing.T) {
	store := memory.NewStore(nil)
	g := seed(t, store)
	sentinel := errors.New("stop")
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.UpdatePost("ghost", "en", nil); !errors.Is(err, domain.ErrMissing) {
			t.Fatalf("expected not found, got %v", err)
		}
		_, err := tx.UpdateOrganization(g.org, "en", func(o *domain.Organization) error {
			o.Name = "changed"
			return sentinel
		})
		return err
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected mutator error, got %v", err)
	}
	view(t, store, func(v domain.TransactionView) {
		o, _ := v.FindOrganization(g.org, "en")
		if o.Name != "Assembly" {
			t.Fatalf("failed transaction must not commit, got %q", o.Name)
		}
	})
}

func TestDeletePersonCascades(t *testing.T) {
	store := memory.NewStore(nil)
	g := seed(t, store)
	ctx := context.Background()
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.CreateLink(domain.Link{Parent: domain.MembershipParent(g.membership), URL: "https://example.org"}); err != nil {
			return err
		}
		if _, err := tx.CreateIdentifier(domain.Identifier{Parent: domain.PersonParent(g.person), Identifier: "42", Scheme: "hansard"}); err != nil {
			return err
		}
		return tx.DeletePerson(g.person)
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	view(t, store, func(v domain.TransactionView) {
		if v.Exists(domain.EntityRef{Type: domain.EntityPerson, ID: g.person}) {
			t.Fatalf("person survived")
		}
		if v.Exists(domain.EntityRef{Type: domain.EntityMembership, ID: g.membership}) {
			t.Fatalf("membership survived person delete")
		}
		if len(v.ListLinks(domain.MembershipParent(g.membership))) != 0 {
			t.Fatalf("membership links survived")
		}
		if len(v.ListIdentifiers(domain.PersonParent(g.person))) != 0 {
			t.Fatalf("identifiers survived")
		}
		if !v.Exists(domain.EntityRef{Type: domain.EntityPost, ID: g.post}) {
			t.Fatalf("post must survive person delete")
		}
	})
}

func TestDeleteOrganizationCascadesAndClearsReferences(t *testing.T) {
	store := memory.NewStore(nil)
	g := seed(t, store)
	ctx := context.Background()
	var kept string
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		m, err := tx.CreateMembership(domain.Membership{PersonID: g.person, OrganizationID: strPtr(g.other), MemberID: strPtr(g.org)})
		if err != nil {
			return err
		}
		kept = m.ID
		return nil
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var changes int
	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if err := tx.DeleteOrganization(g.org); err != nil {
			return err
		}
		changes = len(tx.Snapshot().ListPosts())
		return nil
	})
	if err != nil {
		t.Fatalf("delete org: %v", err)
	}
	if changes != 0 {
		t.Fatalf("expected posts removed inside the transaction")
	}
	view(t, store, func(v domain.TransactionView) {
		if v.Exists(domain.EntityRef{Type: domain.EntityPost, ID: g.post}) {
			t.Fatalf("post survived organization delete")
		}
		if v.Exists(domain.EntityRef{Type: domain.EntityMembership, ID: g.membership}) {
			t.Fatalf("membership survived organization delete")
		}
		m, ok := v.FindMembership(kept, "")
		if !ok {
			t.Fatalf("membership of another organization must survive")
		}
		if m.MemberID != nil {
			t.Fatalf("member reference must be cleared")
		}
	})
}

func TestSubRecordParentIsFixed(t *testing.T) {
	store := memory.NewStore(nil)
	g := seed(t, store)
	ctx := context.Background()
	var contactID string
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		c, err := tx.CreateContactDetail(domain.ContactDetail{Parent: domain.PostParent(g.post), Type: "phone", Value: "123"})
		if err != nil {
			return err
		}
		contactID = c.ID
		if _, err := tx.CreateLink(domain.Link{Parent: domain.ParentRef{Kind: domain.ParentContactDetail, ID: c.ID}, URL: "https://src"}); err != nil {
			return err
		}
		_, err = tx.UpdateContactDetail(c.ID, "en", func(c *domain.ContactDetail) error {
			c.Parent = domain.PersonParent(g.person)
			c.Label = "Office"
			return nil
		})
		return err
	})
	if err != nil {
		t.Fatalf("contact: %v", err)
	}
	view(t, store, func(v domain.TransactionView) {
		c, _ := v.FindContactDetail(contactID, "en")
		if c.Parent != domain.PostParent(g.post) || c.Label != "Office" {
			t.Fatalf("unexpected contact %+v", c)
		}
	})

	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DeletePost(g.post)
	})
	if err != nil {
		t.Fatalf("delete post: %v", err)
	}
	view(t, store, func(v domain.TransactionView) {
		if v.Exists(domain.EntityRef{Type: domain.EntityContactDetail, ID: contactID}) {
			t.Fatalf("contact survived post delete")
		}
		if len(v.ListLinks(domain.ParentRef{Kind: domain.ParentContactDetail, ID: contactID})) != 0 {
			t.Fatalf("citation survived contact delete")
		}
	})
}

func TestInvalidParentKind(t *testing.T) {
	store := memory.NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateIdentifier(domain.Identifier{Parent: domain.ParentRef{Kind: domain.ParentContactDetail, ID: "c"}})
		return err
	})
	if !errors.Is(err, domain.ErrInvalidParent) {
		t.Fatalf("expected ErrInvalidParent, got %v", err)
	}
}

func TestDeleteMissing(t *testing.T) {
	store := memory.NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		for _, del := range []func(string) error{
			tx.DeletePerson, tx.DeleteOrganization, tx.DeletePost, tx.DeleteMembership,
			tx.DeleteContactDetail, tx.DeleteLink, tx.DeleteIdentifier, tx.DeleteOtherName,
		} {
			if err := del("ghost"); !errors.Is(err, domain.ErrMissing) {
				t.Fatalf("expected not found, got %v", err)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
}

type blockingRule struct{}

func (blockingRule) Name() string { return "block" }

func (blockingRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, c := range changes {
		if c.Entity == domain.EntityPerson && c.Action == domain.ActionCreate {
			res.Violations = append(res.Violations, domain.Violation{Rule: "block", Severity: domain.SeverityBlock, Entity: c.Entity})
		}
	}
	return res, nil
}

func TestStoreRuleViolationDiscardsTransaction(t *testing.T) {
	engine := domain.NewRulesEngine()
	engine.Register(blockingRule{})
	store := memory.NewStore(engine)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.CreatePerson(domain.Person{Name: "Blocked"})
		return e
	})
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	view(t, store, func(v domain.TransactionView) {
		if len(v.ListPersons()) != 0 {
			t.Fatalf("blocked transaction committed")
		}
	})
}

func TestExportImportRoundTrip(t *testing.T) {
	store := memory.NewStore(nil)
	g := seed(t, store)
	snapshot := store.ExportState()
	store.ImportState(domain.Snapshot{})
	view(t, store, func(v domain.TransactionView) {
		if len(v.ListPersons()) != 0 {
			t.Fatalf("expected cleared state")
		}
	})
	store.ImportState(snapshot)
	view(t, store, func(v domain.TransactionView) {
		if _, ok := v.FindMembership(g.membership, "en"); !ok {
			t.Fatalf("expected restored membership")
		}
	})
}
