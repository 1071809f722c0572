package core_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polity/internal/core"
	"polity/pkg/domain"
)

func TestCreateMembershipSyncsMembershipPersonAndOrganization(t *testing.T) {
	svc, idx := newTestService(t)
	ctx := context.Background()
	f := seedFixture(t, svc)
	idx.reset()

	m, _, err := svc.CreateMembership(ctx, "en", core.MembershipInput{
		PersonID:       core.String(f.person.ID),
		OrganizationID: core.String(f.organization.ID),
		Role:           core.String("member"),
	})
	require.NoError(t, err)
	assert.Len(t, m.ID, 32, "membership ids are dashless hex")

	assert.True(t, idx.touched(core.IndexMemberships, m.ID))
	assert.True(t, idx.touched(core.IndexPersons, f.person.ID))
	assert.True(t, idx.touched(core.IndexOrganizations, f.organization.ID))
	assert.False(t, idx.touched(core.IndexPosts, f.post.ID), "membership has no post")

	doc := document(t, idx, core.IndexMemberships, m.ID, "en")
	require.NotNil(t, doc)
	assert.Equal(t, "member", doc["role"])
	assert.Equal(t, []string{m.ID}, ids(t, document(t, idx, core.IndexPersons, f.person.ID, "en"), "memberships"))
	assert.Equal(t, []string{m.ID}, ids(t, document(t, idx, core.IndexOrganizations, f.organization.ID, "en"), "memberships"))
}

func TestMembershipOrganizationMustMatchPost(t *testing.T) {
	svc, idx := newTestService(t)
	ctx := context.Background()
	f := seedFixture(t, svc)
	other, _, err := svc.CreateOrganization(ctx, "en", core.OrganizationInput{Name: core.String("Difference Bloc")})
	require.NoError(t, err)
	idx.reset()

	_, _, err = svc.CreateMembership(ctx, "en", core.MembershipInput{
		PersonID:       core.String(f.person.ID),
		OrganizationID: core.String(other.ID),
		PostID:         core.String(f.post.ID),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidMembership)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "organization_id")

	memberships, err := svc.ListMemberships(ctx, "en")
	require.NoError(t, err)
	assert.Empty(t, memberships)
	assert.Empty(t, idx.recorded(), "rejected writes must not touch the index")
}

func TestMembershipRequiresPostOrOrganization(t *testing.T) {
	svc, _ := newTestService(t)
	f := seedFixture(t, svc)

	_, _, err := svc.CreateMembership(context.Background(), "en", core.MembershipInput{PersonID: core.String(f.person.ID)})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ErrorIs(t, err, domain.ErrInvalidMembership)
	assert.Equal(t, []string{"A person must be a member of a post or organization"}, verr.Fields[domain.NonFieldErrors])
}

func TestDeletePersonRemovesDocumentsAndRefreshesOrganization(t *testing.T) {
	svc, idx := newTestService(t)
	ctx := context.Background()
	f := seedFixture(t, svc)
	m, _, err := svc.CreateMembership(ctx, "en", core.MembershipInput{
		PersonID:       core.String(f.person.ID),
		OrganizationID: core.String(f.organization.ID),
	})
	require.NoError(t, err)
	require.NotNil(t, document(t, idx, core.IndexMemberships, m.ID, "en"))
	idx.reset()

	_, err = svc.DeletePerson(ctx, f.person.ID)
	require.NoError(t, err)

	assert.Nil(t, document(t, idx, core.IndexPersons, f.person.ID, "en"))
	assert.Nil(t, document(t, idx, core.IndexMemberships, m.ID, "en"))
	org := document(t, idx, core.IndexOrganizations, f.organization.ID, "en")
	require.NotNil(t, org, "organization document is refreshed, not removed")
	assert.Empty(t, ids(t, org, "memberships"))
	assert.Contains(t, idx.recorded(), "update organizations:"+f.organization.ID+"|en")

	_, err = svc.GetMembership(ctx, "en", m.ID)
	assert.ErrorIs(t, err, domain.ErrMissing)
}

func TestCitations(t *testing.T) {
	svc, idx := newTestService(t)
	ctx := context.Background()
	f := seedFixture(t, svc)
	parent := domain.PostParent(f.post.ID)

	link, err := svc.AddCitation(ctx, parent, "en", "label", "http://x", "note")
	require.NoError(t, err)
	assert.Equal(t, "label", link.Field)
	assert.Equal(t, parent, link.ResolveParent())

	ok, err := svc.CitationExists(ctx, parent, "en", "label")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CitationExists(ctx, parent, "ms", "label")
	require.NoError(t, err)
	assert.False(t, ok, "citations are per language variant")

	_, err = svc.AddCitation(ctx, parent, "en", "nonexistent_field", "http://x", "note")
	assert.ErrorIs(t, err, domain.ErrFieldNotExist)
	_, err = svc.CitationExists(ctx, parent, "en", "nonexistent_field")
	assert.ErrorIs(t, err, domain.ErrFieldNotExist)

	ghost := domain.PostParent("ghost")
	_, err = svc.AddCitation(ctx, ghost, "en", "label", "http://x", "")
	assert.ErrorIs(t, err, domain.ErrMissing)
	ok, err = svc.CitationExists(ctx, ghost, "en", "label")
	var nf domain.ErrNotFound
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, domain.EntityPost, nf.Entity)
	assert.False(t, ok)

	post := document(t, idx, core.IndexPosts, f.post.ID, "en")
	require.NotNil(t, post)
	assert.Equal(t, []string{link.ID}, ids(t, post, "links"))
}

func TestNestedSubRecordOfAnotherParentIsNotFound(t *testing.T) {
	svc, idx := newTestService(t)
	ctx := context.Background()

	owner, _, err := svc.CreatePerson(ctx, "en", core.PersonInput{
		Name: core.String("Owner"),
		AttachmentInputs: core.AttachmentInputs{
			ContactDetails: []core.ContactDetailInput{{Type: core.String("email"), Value: core.String("owner@example.org")}},
		},
	})
	require.NoError(t, err)
	details, err := svc.ListContactDetails(ctx, domain.PersonParent(owner.ID), "en")
	require.NoError(t, err)
	require.Len(t, details, 1)

	other, _, err := svc.CreatePerson(ctx, "en", core.PersonInput{Name: core.String("Other")})
	require.NoError(t, err)
	idx.reset()

	_, _, err = svc.UpdatePerson(ctx, "en", other.ID, core.PersonInput{
		Name: core.String("Renamed"),
		AttachmentInputs: core.AttachmentInputs{
			ContactDetails: []core.ContactDetailInput{
				{Value: core.String("new@example.org")},
				{ID: core.String(details[0].ID), Value: core.String("stolen@example.org")},
			},
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMissing)
	var nf domain.ErrNotFound
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, domain.EntityContactDetail, nf.Entity)

	view, err := svc.GetPerson(ctx, "en", other.ID)
	require.NoError(t, err)
	assert.Equal(t, "Other", view.Name, "nothing commits")
	assert.Empty(t, view.ContactDetails)
	detail, err := svc.GetContactDetail(ctx, "en", details[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "owner@example.org", detail.Value)
	assert.Empty(t, idx.recorded())
}

func TestNestedValidationErrorsUseNestedPaths(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.CreatePerson(ctx, "en", core.PersonInput{
		Name:      core.String("Ada"),
		BirthDate: core.String("1815-12-10"),
		AttachmentInputs: core.AttachmentInputs{
			ContactDetails: []core.ContactDetailInput{
				{Value: core.String("ok"), ValidFrom: core.String("2020")},
				{
					Value:     core.String("bad"),
					ValidFrom: core.String("2020-1-1"),
					Links:     []core.LinkInput{{URL: core.String("http://x"), Field: core.String("colour")}},
				},
			},
			OtherNames: []core.OtherNameInput{{Name: core.String("A."), EndDate: core.String("yesterday")}},
		},
	})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ErrorIs(t, err, domain.ErrInvalidDate)
	assert.ErrorIs(t, err, domain.ErrFieldNotExist)
	assert.Contains(t, verr.Fields, "contact_details.1.valid_from")
	assert.Contains(t, verr.Fields, "contact_details.1.links.0.field")
	assert.Contains(t, verr.Fields, "other_names.0.end_date")
	assert.NotContains(t, verr.Fields, "contact_details.0.valid_from")

	persons, err := svc.ListPersons(ctx, "en")
	require.NoError(t, err)
	assert.Empty(t, persons)
}

func TestPartialDates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	cases := []struct {
		date string
		ok   bool
	}{
		{"1815", true},
		{"1815-12", true},
		{"1815-12-10", true},
		{"", true},
		{"18150", false},
		{"1815-1", false},
		{"1815/12/10", false},
		{"10-12-1815", false},
	}
	for _, tc := range cases {
		_, _, err := svc.CreatePerson(ctx, "en", core.PersonInput{Name: core.String("P"), BirthDate: core.String(tc.date)})
		if tc.ok {
			assert.NoError(t, err, tc.date)
			continue
		}
		assert.ErrorIs(t, err, domain.ErrInvalidDate, tc.date)
	}
}

func TestCreatedDocumentMatchesRecord(t *testing.T) {
	svc, idx := newTestService(t)
	ctx := context.Background()

	p, _, err := svc.CreatePerson(ctx, "en", core.PersonInput{
		Name:      core.String("Grace Hopper"),
		Email:     core.String("grace@example.org"),
		BirthDate: core.String("1906-12-09"),
		AttachmentInputs: core.AttachmentInputs{
			Identifiers: []core.IdentifierInput{{Scheme: core.String("navy"), Identifier: core.String("RADM")}},
		},
	})
	require.NoError(t, err)

	doc := document(t, idx, core.IndexPersons, p.ID, "en")
	require.NotNil(t, doc)
	assert.Equal(t, p.ID, doc["id"])
	assert.Equal(t, "en", doc["language_code"])
	assert.Equal(t, "Grace Hopper", doc["name"])
	assert.Equal(t, "grace@example.org", doc["email"])
	assert.Equal(t, "1906-12-09", doc["birth_date"])
	assert.Len(t, ids(t, doc, "identifiers"), 1)
}

func TestTranslationAddsVariantAndDocument(t *testing.T) {
	svc, idx := newTestService(t)
	ctx := context.Background()
	p, _, err := svc.CreatePerson(ctx, "en", core.PersonInput{Name: core.String("Tunku"), Email: core.String("t@example.org")})
	require.NoError(t, err)

	ms, _, err := svc.UpdatePerson(ctx, "ms", p.ID, core.PersonInput{Name: core.String("Tunku (ms)")})
	require.NoError(t, err)
	assert.Equal(t, "ms", ms.Language)
	assert.Equal(t, "t@example.org", ms.Email, "shared fields seed the translation")

	variants, err := svc.PersonVariants(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, variants, 2)

	assert.Equal(t, "Tunku", document(t, idx, core.IndexPersons, p.ID, "en")["name"])
	assert.Equal(t, "Tunku (ms)", document(t, idx, core.IndexPersons, p.ID, "ms")["name"])

	_, _, err = svc.UpdatePerson(ctx, "ms", p.ID, core.PersonInput{Email: core.String("new@example.org")})
	require.NoError(t, err)
	en, err := svc.GetPerson(ctx, "en", p.ID)
	require.NoError(t, err)
	assert.Equal(t, "new@example.org", en.Email, "shared fields propagate to every variant")
	assert.Equal(t, "new@example.org", document(t, idx, core.IndexPersons, p.ID, "en")["email"])
}

func TestPartialUpdateLeavesAbsentFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	p, _, err := svc.CreatePerson(ctx, "en", core.PersonInput{Name: core.String("Ada"), Gender: core.String("female")})
	require.NoError(t, err)

	updated, _, err := svc.UpdatePerson(ctx, "en", p.ID, core.PersonInput{Summary: core.String("Mathematician")})
	require.NoError(t, err)
	assert.Equal(t, "Ada", updated.Name)
	assert.Equal(t, "female", updated.Gender)
	assert.Equal(t, "Mathematician", updated.Summary)
}

func TestUpdateMissingPersonIsNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, err := svc.UpdatePerson(context.Background(), "en", "missing", core.PersonInput{Name: core.String("x")})
	assert.ErrorIs(t, err, domain.ErrMissing)
	_, err = svc.DeletePerson(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrMissing)
}

func TestCreatePostWithMissingOrganizationIsNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, err := svc.CreatePost(context.Background(), "en", core.PostInput{
		Label:          core.String("Speaker"),
		OrganizationID: core.String("nope"),
	})
	var nf domain.ErrNotFound
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, domain.EntityOrganization, nf.Entity)
}

func TestPostNestedMembershipsAreBoundToPost(t *testing.T) {
	svc, idx := newTestService(t)
	ctx := context.Background()
	f := seedFixture(t, svc)
	idx.reset()

	post, _, err := svc.CreatePost(ctx, "en", core.PostInput{
		Label:          core.String("Treasurer"),
		OrganizationID: core.String(f.organization.ID),
		OtherLabels:    []core.OtherNameInput{{Name: core.String("Bursar")}},
		Memberships: []core.MembershipInput{{
			PersonID: core.String(f.person.ID),
			AttachmentInputs: core.AttachmentInputs{
				Links: []core.LinkInput{{URL: core.String("http://example.org/appointment")}},
			},
		}},
	})
	require.NoError(t, err)

	view, err := svc.GetPost(ctx, "en", post.ID)
	require.NoError(t, err)
	require.Len(t, view.Memberships, 1)
	m := view.Memberships[0]
	assert.Equal(t, post.ID, domain.StringValue(m.PostID))
	require.Len(t, view.OtherNames, 1)
	assert.Equal(t, "Bursar", view.OtherNames[0].Name)

	assert.NotNil(t, document(t, idx, core.IndexMemberships, m.ID, "en"))
	assert.Equal(t, []string{m.ID}, ids(t, document(t, idx, core.IndexPersons, f.person.ID, "en"), "memberships"))
	assert.Contains(t, ids(t, document(t, idx, core.IndexOrganizations, f.organization.ID, "en"), "posts"), post.ID)

	mv, err := svc.GetMembership(ctx, "en", m.ID)
	require.NoError(t, err)
	assert.Len(t, mv.Links, 1)
}

func TestPostNestedMembershipMismatchIsReportedByPath(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	f := seedFixture(t, svc)
	other, _, err := svc.CreateOrganization(ctx, "en", core.OrganizationInput{Name: core.String("Other")})
	require.NoError(t, err)

	_, _, err = svc.CreatePost(ctx, "en", core.PostInput{
		Label:          core.String("Whip"),
		OrganizationID: core.String(f.organization.ID),
		Memberships: []core.MembershipInput{{
			PersonID:       core.String(f.person.ID),
			OrganizationID: core.String(other.ID),
		}},
	})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "memberships.0.organization_id")

	posts, err := svc.ListPosts(ctx, "en")
	require.NoError(t, err)
	assert.Len(t, posts, 1, "only the fixture post exists")
}

func TestMovingPostKeepsMembershipOrganizationsConsistent(t *testing.T) {
	svc, idx := newTestService(t)
	ctx := context.Background()
	f := seedFixture(t, svc)
	other, _, err := svc.CreateOrganization(ctx, "en", core.OrganizationInput{Name: core.String("Other")})
	require.NoError(t, err)
	m, _, err := svc.CreateMembership(ctx, "en", core.MembershipInput{
		PersonID:       core.String(f.person.ID),
		OrganizationID: core.String(f.organization.ID),
		PostID:         core.String(f.post.ID),
	})
	require.NoError(t, err)
	idx.reset()

	_, _, err = svc.UpdatePost(ctx, "en", f.post.ID, core.PostInput{OrganizationID: core.String(other.ID)})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ErrorIs(t, err, domain.ErrInvalidMembership)
	assert.Contains(t, verr.Fields, "memberships."+m.ID+".organization_id")
	assert.Empty(t, idx.recorded())

	post, err := svc.GetPost(ctx, "en", f.post.ID)
	require.NoError(t, err)
	assert.Equal(t, f.organization.ID, domain.StringValue(post.OrganizationID))

	// moving the membership in the same write keeps both sides in agreement
	_, _, err = svc.UpdatePost(ctx, "en", f.post.ID, core.PostInput{
		OrganizationID: core.String(other.ID),
		Memberships: []core.MembershipInput{{
			ID:             core.String(m.ID),
			OrganizationID: core.String(other.ID),
		}},
	})
	require.NoError(t, err)
	got, err := svc.GetMembership(ctx, "en", m.ID)
	require.NoError(t, err)
	assert.Equal(t, other.ID, domain.StringValue(got.OrganizationID))
	assert.Equal(t, f.post.ID, domain.StringValue(got.PostID))
}

func TestOrganizationNestedMembershipOfAnotherOrganizationIsNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	f := seedFixture(t, svc)
	m, _, err := svc.CreateMembership(ctx, "en", core.MembershipInput{
		PersonID:       core.String(f.person.ID),
		OrganizationID: core.String(f.organization.ID),
	})
	require.NoError(t, err)
	other, _, err := svc.CreateOrganization(ctx, "en", core.OrganizationInput{Name: core.String("Other")})
	require.NoError(t, err)

	_, _, err = svc.UpdateOrganization(ctx, "en", other.ID, core.OrganizationInput{
		Memberships: []core.MembershipInput{{ID: core.String(m.ID), Role: core.String("defector")}},
	})
	assert.ErrorIs(t, err, domain.ErrMissing)

	_, _, err = svc.UpdateOrganization(ctx, "en", f.organization.ID, core.OrganizationInput{
		Memberships: []core.MembershipInput{{ID: core.String(m.ID), Role: core.String("chair")}},
	})
	require.NoError(t, err)
	updated, err := svc.GetMembership(ctx, "en", m.ID)
	require.NoError(t, err)
	assert.Equal(t, "chair", updated.Role)
}

func TestDeleteOrganizationRemovesPostsAndMemberships(t *testing.T) {
	svc, idx := newTestService(t)
	ctx := context.Background()
	f := seedFixture(t, svc)
	viaPost, _, err := svc.CreateMembership(ctx, "en", core.MembershipInput{
		PersonID: core.String(f.person.ID),
		PostID:   core.String(f.post.ID),
	})
	require.NoError(t, err)
	direct, _, err := svc.CreateMembership(ctx, "en", core.MembershipInput{
		PersonID:       core.String(f.person.ID),
		OrganizationID: core.String(f.organization.ID),
	})
	require.NoError(t, err)
	idx.reset()

	_, err = svc.DeleteOrganization(ctx, f.organization.ID)
	require.NoError(t, err)

	assert.Nil(t, document(t, idx, core.IndexOrganizations, f.organization.ID, "en"))
	assert.Nil(t, document(t, idx, core.IndexPosts, f.post.ID, "en"))
	assert.Nil(t, document(t, idx, core.IndexMemberships, viaPost.ID, "en"))
	assert.Nil(t, document(t, idx, core.IndexMemberships, direct.ID, "en"))
	person := document(t, idx, core.IndexPersons, f.person.ID, "en")
	require.NotNil(t, person)
	assert.Empty(t, ids(t, person, "memberships"))

	deletes := 0
	for _, w := range idx.recorded() {
		if w == "delete posts:"+f.post.ID+"|en" {
			deletes++
		}
	}
	assert.Equal(t, 1, deletes, "each post document is removed once")
}

func TestDeletePostRefreshesOrganization(t *testing.T) {
	svc, idx := newTestService(t)
	ctx := context.Background()
	f := seedFixture(t, svc)
	require.Equal(t, []string{f.post.ID}, ids(t, document(t, idx, core.IndexOrganizations, f.organization.ID, "en"), "posts"))

	_, err := svc.DeletePost(ctx, f.post.ID)
	require.NoError(t, err)
	assert.Nil(t, document(t, idx, core.IndexPosts, f.post.ID, "en"))
	assert.Empty(t, ids(t, document(t, idx, core.IndexOrganizations, f.organization.ID, "en"), "posts"))
}

func TestSubRecordCRUDRefreshesOwner(t *testing.T) {
	svc, idx := newTestService(t)
	ctx := context.Background()
	f := seedFixture(t, svc)

	_, _, err := svc.CreateContactDetail(ctx, domain.ParentRef{}, "en", core.ContactDetailInput{Value: core.String("x")})
	assert.ErrorIs(t, err, domain.ErrParentRequired)

	cd, _, err := svc.CreateContactDetail(ctx, domain.PersonParent(f.person.ID), "en", core.ContactDetailInput{
		Type:  core.String("phone"),
		Value: core.String("+44 20"),
		Links: []core.LinkInput{{URL: core.String("http://source"), Field: core.String("value")}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{cd.ID}, ids(t, document(t, idx, core.IndexPersons, f.person.ID, "en"), "contact_details"))

	links, err := svc.ListLinks(ctx, domain.ParentRef{Kind: domain.ParentContactDetail, ID: cd.ID}, "en")
	require.NoError(t, err)
	require.Len(t, links, 1)

	_, _, err = svc.UpdateContactDetail(ctx, "en", cd.ID, core.ContactDetailInput{ValidUntil: core.String("not-a-date")})
	assert.ErrorIs(t, err, domain.ErrInvalidDate)

	updated, _, err := svc.UpdateContactDetail(ctx, "en", cd.ID, core.ContactDetailInput{Value: core.String("+44 21")})
	require.NoError(t, err)
	assert.Equal(t, "+44 21", updated.Value)
	assert.Equal(t, domain.PersonParent(f.person.ID), updated.ResolveParent())

	idx.reset()
	_, err = svc.DeleteLink(ctx, links[0].ID)
	require.NoError(t, err)
	assert.True(t, idx.touched(core.IndexPersons, f.person.ID), "citation on a contact detail refreshes the person")

	_, err = svc.DeleteContactDetail(ctx, cd.ID)
	require.NoError(t, err)
	assert.Empty(t, ids(t, document(t, idx, core.IndexPersons, f.person.ID, "en"), "contact_details"))

	_, err = svc.DeleteContactDetail(ctx, cd.ID)
	assert.ErrorIs(t, err, domain.ErrMissing)
}

func TestMembershipSubRecordRefreshesMembershipClosure(t *testing.T) {
	svc, idx := newTestService(t)
	ctx := context.Background()
	f := seedFixture(t, svc)
	m, _, err := svc.CreateMembership(ctx, "en", core.MembershipInput{
		PersonID: core.String(f.person.ID),
		PostID:   core.String(f.post.ID),
	})
	require.NoError(t, err)
	idx.reset()

	_, _, err = svc.CreateIdentifier(ctx, domain.MembershipParent(m.ID), "en", core.IdentifierInput{
		Scheme:     core.String("seat"),
		Identifier: core.String("12"),
	})
	require.NoError(t, err)
	for _, want := range []struct{ index, id string }{
		{core.IndexMemberships, m.ID},
		{core.IndexPersons, f.person.ID},
		{core.IndexPosts, f.post.ID},
	} {
		assert.True(t, idx.touched(want.index, want.id), "%s:%s", want.index, want.id)
	}
}

func TestIndexFailureDoesNotFailWrite(t *testing.T) {
	logger := &captureLogger{}
	metrics := &captureIndexMetrics{}
	svc, idx := newTestService(t, core.WithLogger(logger), core.WithIndexMetrics(metrics), core.WithSyncAttempts(2))
	ctx := context.Background()
	idx.failNext(1000)

	p, _, err := svc.CreatePerson(ctx, "en", core.PersonInput{Name: core.String("Offline")})
	require.NoError(t, err, "the store commit stands")
	_, err = svc.GetPerson(ctx, "en", p.ID)
	require.NoError(t, err)
	assert.Nil(t, document(t, idx, core.IndexPersons, p.ID, "en"))
	assert.True(t, logger.has("error", "index synchronization failed"))
	assert.Equal(t, 1, metrics.retries)
	assert.Equal(t, 1, metrics.failures)

	idx.failNext(0)
	report, err := svc.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Written[core.IndexPersons])
	assert.NotNil(t, document(t, idx, core.IndexPersons, p.ID, "en"))
}

func TestIndexRetryRecovers(t *testing.T) {
	svc, idx := newTestService(t, core.WithSyncAttempts(3))
	idx.failNext(2)
	p, _, err := svc.CreatePerson(context.Background(), "en", core.PersonInput{Name: core.String("Flaky")})
	require.NoError(t, err)
	assert.NotNil(t, document(t, idx, core.IndexPersons, p.ID, "en"))
}

func TestReindexDropsStaleDocuments(t *testing.T) {
	svc, idx := newTestService(t)
	ctx := context.Background()
	f := seedFixture(t, svc)
	require.NoError(t, idx.Index.Add(ctx, searchDocument(core.IndexPersons, "ghost", "en")))

	report, err := svc.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Removed[core.IndexPersons])
	assert.Equal(t, 1, report.Written[core.IndexPosts])
	assert.Nil(t, document(t, idx, core.IndexPersons, "ghost", "en"))
	assert.NotNil(t, document(t, idx, core.IndexPersons, f.person.ID, "en"))

	again, err := svc.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Removed[core.IndexPersons])
	hits, err := idx.Search(ctx, core.IndexPersons, "", "")
	require.NoError(t, err)
	assert.Len(t, hits, 1, "reindexing is idempotent")
}

func TestAreasValidateReferences(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	area, err := svc.CreateArea(ctx, "en", domain.Area{Name: "Kuala Lumpur", Identifier: "KUL"})
	require.NoError(t, err)
	got, err := svc.GetArea(ctx, "en", area.ID)
	require.NoError(t, err)
	assert.Equal(t, "KUL", got.Identifier)

	_, _, err = svc.CreateOrganization(ctx, "en", core.OrganizationInput{Name: core.String("x"), AreaID: core.String("missing")})
	assert.True(t, errors.Is(err, domain.ErrMissing))
	org, _, err := svc.CreateOrganization(ctx, "en", core.OrganizationInput{Name: core.String("x"), AreaID: core.String(area.ID)})
	require.NoError(t, err)
	assert.Equal(t, area.ID, domain.StringValue(org.AreaID))
}

func TestClientSuppliedDuplicateID(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, _, err := svc.CreatePerson(ctx, "en", core.PersonInput{ID: core.String("p-1"), Name: core.String("One")})
	require.NoError(t, err)
	_, _, err = svc.CreatePerson(ctx, "ms", core.PersonInput{ID: core.String("p-1"), Name: core.String("Satu")})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}
