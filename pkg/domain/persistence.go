package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. Updates address a single language
// variant; deletes remove every variant of the id.
type Transaction interface {
	TransactionView
	Snapshot() TransactionView
	CreatePerson(Person) (Person, error)
	UpdatePerson(id, lang string, mutator func(*Person) error) (Person, error)
	DeletePerson(id string) error
	CreateOrganization(Organization) (Organization, error)
	UpdateOrganization(id, lang string, mutator func(*Organization) error) (Organization, error)
	DeleteOrganization(id string) error
	CreatePost(Post) (Post, error)
	UpdatePost(id, lang string, mutator func(*Post) error) (Post, error)
	DeletePost(id string) error
	CreateMembership(Membership) (Membership, error)
	UpdateMembership(id, lang string, mutator func(*Membership) error) (Membership, error)
	DeleteMembership(id string) error
	CreateArea(Area) (Area, error)
	CreateContactDetail(ContactDetail) (ContactDetail, error)
	UpdateContactDetail(id, lang string, mutator func(*ContactDetail) error) (ContactDetail, error)
	DeleteContactDetail(id string) error
	CreateLink(Link) (Link, error)
	UpdateLink(id, lang string, mutator func(*Link) error) (Link, error)
	DeleteLink(id string) error
	CreateIdentifier(Identifier) (Identifier, error)
	UpdateIdentifier(id, lang string, mutator func(*Identifier) error) (Identifier, error)
	DeleteIdentifier(id string) error
	CreateOtherName(OtherName) (OtherName, error)
	UpdateOtherName(id, lang string, mutator func(*OtherName) error) (OtherName, error)
	DeleteOtherName(id string) error
}

// TransactionView provides read-only access to snapshot data for rules, the
// write resolver and the index closure planner.
//
// Find methods return the requested language variant; an empty lang returns
// the variant with the lowest language code. Variants and List methods return
// every language row (the untranslated view).
type TransactionView interface {
	FindPerson(id, lang string) (Person, bool)
	FindOrganization(id, lang string) (Organization, bool)
	FindPost(id, lang string) (Post, bool)
	FindMembership(id, lang string) (Membership, bool)
	FindArea(id, lang string) (Area, bool)
	FindContactDetail(id, lang string) (ContactDetail, bool)
	FindLink(id, lang string) (Link, bool)
	FindIdentifier(id, lang string) (Identifier, bool)
	FindOtherName(id, lang string) (OtherName, bool)
	PersonVariants(id string) []Person
	OrganizationVariants(id string) []Organization
	PostVariants(id string) []Post
	MembershipVariants(id string) []Membership
	ListPersons() []Person
	ListOrganizations() []Organization
	ListPosts() []Post
	ListMemberships() []Membership
	ListContactDetails(parent ParentRef) []ContactDetail
	ListLinks(parent ParentRef) []Link
	ListIdentifiers(parent ParentRef) []Identifier
	ListOtherNames(parent ParentRef) []OtherName
	Languages(ref EntityRef) []string
	Exists(ref EntityRef) bool
}

// Snapshot is the serializable full state of a store.
type Snapshot struct {
	Persons        []Person        `json:"persons"`
	Organizations  []Organization  `json:"organizations"`
	Posts          []Post          `json:"posts"`
	Memberships    []Membership    `json:"memberships"`
	Areas          []Area          `json:"areas"`
	ContactDetails []ContactDetail `json:"contact_details"`
	Links          []Link          `json:"links"`
	Identifiers    []Identifier    `json:"identifiers"`
	OtherNames     []OtherName     `json:"other_names"`
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	RulesEngine() *RulesEngine
	ExportState() Snapshot
	ImportState(Snapshot)
}

// SnapshotBuckets lists the named partitions of a Snapshot in persistence order.
var SnapshotBuckets = []string{
	"persons",
	"organizations",
	"posts",
	"memberships",
	"areas",
	"contact_details",
	"links",
	"identifiers",
	"other_names",
}

// Bucket returns a pointer to the slice backing the named partition, for
// use as a json.Marshal source or json.Unmarshal target.
func (s *Snapshot) Bucket(name string) (any, bool) {
	switch name {
	case "persons":
		return &s.Persons, true
	case "organizations":
		return &s.Organizations, true
	case "posts":
		return &s.Posts, true
	case "memberships":
		return &s.Memberships, true
	case "areas":
		return &s.Areas, true
	case "contact_details":
		return &s.ContactDetails, true
	case "links":
		return &s.Links, true
	case "identifiers":
		return &s.Identifiers, true
	case "other_names":
		return &s.OtherNames, true
	}
	return nil, false
}
