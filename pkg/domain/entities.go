// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by polity.
package domain

import (
	"sort"
	"time"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records, parent references and persistence buckets.
const (
	// EntityPerson identifies a person record.
	EntityPerson EntityType = "person"
	// EntityOrganization identifies an organization record.
	EntityOrganization EntityType = "organization"
	// EntityPost identifies a post (seat, office) record.
	EntityPost EntityType = "post"
	// EntityMembership identifies a membership linking a person to an organization or post.
	EntityMembership EntityType = "membership"
	// EntityArea identifies a geographic area record.
	EntityArea EntityType = "area"
	// EntityContactDetail identifies a contact detail sub-record.
	EntityContactDetail EntityType = "contact_detail"
	// EntityLink identifies a link sub-record, including citations.
	EntityLink       EntityType = "link"
	EntityIdentifier EntityType = "identifier"
	EntityOtherName  EntityType = "other_name"
)

// IsPrimary reports whether the type is one of the four indexed primary entities.
func (t EntityType) IsPrimary() bool {
	switch t {
	case EntityPerson, EntityOrganization, EntityPost, EntityMembership:
		return true
	}
	return false
}

// IsSubRecord reports whether the type is a generic attachment.
func (t EntityType) IsSubRecord() bool {
	switch t {
	case EntityContactDetail, EntityLink, EntityIdentifier, EntityOtherName:
		return true
	}
	return false
}

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// DefaultLanguage is used when a write does not name a language variant.
const DefaultLanguage = "en"

// VariantKey is the composite storage key of a language variant row.
type VariantKey struct {
	ID       string
	Language string
}

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	Language  string    `json:"language_code"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Key returns the (id, language) storage key of the row.
func (b Base) Key() VariantKey { return VariantKey{ID: b.ID, Language: b.Language} }

// Touch sets the modification timestamp.
func (b *Base) Touch(now time.Time) { b.UpdatedAt = now }

// EntityRef names a record independent of its language variants.
type EntityRef struct {
	Type EntityType `json:"type"`
	ID   string     `json:"id"`
}

func (r EntityRef) String() string { return string(r.Type) + ":" + r.ID }

// Person represents an individual politician or office holder.
type Person struct {
	Base
	Name             string `json:"name"`
	FamilyName       string `json:"family_name"`
	GivenName        string `json:"given_name"`
	AdditionalName   string `json:"additional_name"`
	HonorificPrefix  string `json:"honorific_prefix"`
	HonorificSuffix  string `json:"honorific_suffix"`
	PatronymicName   string `json:"patronymic_name"`
	SortName         string `json:"sort_name"`
	Gender           string `json:"gender"`
	Summary          string `json:"summary"`
	Biography        string `json:"biography"`
	NationalIdentity string `json:"national_identity"`
	Email            string `json:"email"`
	BirthDate        string `json:"birth_date"`
	DeathDate        string `json:"death_date"`
	Image            string `json:"image"`
}

// ShareFrom copies the fields that are not localized from src.
func (p *Person) ShareFrom(src Person) {
	p.Email = src.Email
	p.BirthDate = src.BirthDate
	p.DeathDate = src.DeathDate
	p.Image = src.Image
}

// Organization represents a party, legislature, committee or other body.
type Organization struct {
	Base
	Name            string  `json:"name"`
	Classification  string  `json:"classification"`
	Abstract        string  `json:"abstract"`
	Description     string  `json:"description"`
	FoundingDate    string  `json:"founding_date"`
	DissolutionDate string  `json:"dissolution_date"`
	Image           string  `json:"image"`
	AreaID          *string `json:"area_id"`
}

// ShareFrom copies the fields that are not localized from src.
func (o *Organization) ShareFrom(src Organization) {
	o.FoundingDate = src.FoundingDate
	o.DissolutionDate = src.DissolutionDate
	o.Image = src.Image
	o.AreaID = cloneStringPtr(src.AreaID)
}

// Post represents a position within an organization that people hold through memberships.
type Post struct {
	Base
	Label          string  `json:"label"`
	Role           string  `json:"role"`
	OrganizationID *string `json:"organization_id"`
	AreaID         *string `json:"area_id"`
	StartDate      string  `json:"start_date"`
	EndDate        string  `json:"end_date"`
}

// ShareFrom copies the fields that are not localized from src.
func (p *Post) ShareFrom(src Post) {
	p.OrganizationID = cloneStringPtr(src.OrganizationID)
	p.AreaID = cloneStringPtr(src.AreaID)
	p.StartDate = src.StartDate
	p.EndDate = src.EndDate
}

// Membership links a person to an organization and/or a post.
type Membership struct {
	Base
	Label          string  `json:"label"`
	Role           string  `json:"role"`
	PersonID       string  `json:"person_id"`
	OrganizationID *string `json:"organization_id"`
	PostID         *string `json:"post_id"`
	MemberID       *string `json:"member_id"`
	OnBehalfOfID   *string `json:"on_behalf_of_id"`
	AreaID         *string `json:"area_id"`
	StartDate      string  `json:"start_date"`
	EndDate        string  `json:"end_date"`
}

// ShareFrom copies the fields that are not localized from src.
func (m *Membership) ShareFrom(src Membership) {
	m.PersonID = src.PersonID
	m.OrganizationID = cloneStringPtr(src.OrganizationID)
	m.PostID = cloneStringPtr(src.PostID)
	m.MemberID = cloneStringPtr(src.MemberID)
	m.OnBehalfOfID = cloneStringPtr(src.OnBehalfOfID)
	m.AreaID = cloneStringPtr(src.AreaID)
	m.StartDate = src.StartDate
	m.EndDate = src.EndDate
}

// Area is a geographic region referenced by organizations, posts and memberships.
type Area struct {
	Base
	Name           string `json:"name"`
	Classification string `json:"classification"`
	Identifier     string `json:"identifier"`
}

// ShareFrom copies the fields that are not localized from src.
func (a *Area) ShareFrom(src Area) {
	a.Identifier = src.Identifier
}

// ContactDetail is a means of contacting an entity.
type ContactDetail struct {
	Base
	Parent     ParentRef `json:"parent"`
	Label      string    `json:"label"`
	Note       string    `json:"note"`
	Type       string    `json:"type"`
	Value      string    `json:"value"`
	ValidFrom  string    `json:"valid_from"`
	ValidUntil string    `json:"valid_until"`
}

// ResolveParent returns the entity the contact detail is attached to.
func (c ContactDetail) ResolveParent() ParentRef { return c.Parent }

// ShareFrom copies the fields that are not localized from src.
func (c *ContactDetail) ShareFrom(src ContactDetail) {
	c.Parent = src.Parent
	c.Type = src.Type
	c.Value = src.Value
	c.ValidFrom = src.ValidFrom
	c.ValidUntil = src.ValidUntil
}

// Link is a URL attached to an entity. When Field is set the link is a
// citation for that field of its parent.
type Link struct {
	Base
	Parent ParentRef `json:"parent"`
	Label  string    `json:"label"`
	Note   string    `json:"note"`
	URL    string    `json:"url"`
	Field  string    `json:"field"`
}

// ResolveParent returns the entity the link is attached to.
func (l Link) ResolveParent() ParentRef { return l.Parent }

// ShareFrom copies the fields that are not localized from src.
func (l *Link) ShareFrom(src Link) {
	l.Parent = src.Parent
	l.URL = src.URL
	l.Field = src.Field
}

// Identifier is an issued identifier such as a national id or a parliament number.
type Identifier struct {
	Base
	Parent     ParentRef `json:"parent"`
	Identifier string    `json:"identifier"`
	Scheme     string    `json:"scheme"`
}

// ResolveParent returns the entity the identifier is attached to.
func (i Identifier) ResolveParent() ParentRef { return i.Parent }

// ShareFrom copies the fields that are not localized from src.
func (i *Identifier) ShareFrom(src Identifier) {
	i.Parent = src.Parent
	i.Identifier = src.Identifier
	i.Scheme = src.Scheme
}

// OtherName is an alternate name or label of an entity.
type OtherName struct {
	Base
	Parent          ParentRef `json:"parent"`
	Name            string    `json:"name"`
	FamilyName      string    `json:"family_name"`
	GivenName       string    `json:"given_name"`
	AdditionalName  string    `json:"additional_name"`
	HonorificPrefix string    `json:"honorific_prefix"`
	HonorificSuffix string    `json:"honorific_suffix"`
	PatronymicName  string    `json:"patronymic_name"`
	Note            string    `json:"note"`
	StartDate       string    `json:"start_date"`
	EndDate         string    `json:"end_date"`
}

// ResolveParent returns the entity the name is attached to.
func (o OtherName) ResolveParent() ParentRef { return o.Parent }

// ShareFrom copies the fields that are not localized from src.
func (o *OtherName) ShareFrom(src OtherName) {
	o.Parent = src.Parent
	o.StartDate = src.StartDate
	o.EndDate = src.EndDate
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in the change log.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
	Field    string
	Err      error
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}

// ValidationError converts the blocking violations into a field error map.
func (e RuleViolationError) ValidationError() *ValidationError {
	verr := &ValidationError{}
	for _, v := range e.Result.Violations {
		if v.Severity != SeverityBlock {
			continue
		}
		field := v.Field
		if field == "" {
			field = NonFieldErrors
		}
		verr.Add(field, v.Err, v.Message)
	}
	return verr
}

// Unwrap exposes the sentinel errors of the blocking violations.
func (e RuleViolationError) Unwrap() []error {
	var errs []error
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock && v.Err != nil {
			errs = append(errs, v.Err)
		}
	}
	return errs
}

func cloneStringPtr(v *string) *string {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

// StringValue dereferences v, returning "" for nil.
func StringValue(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// SortByLanguage orders variant rows by language code for deterministic output.
func SortByLanguage[T interface{ Key() VariantKey }](rows []T) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i].Key(), rows[j].Key()
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		return a.Language < b.Language
	})
}
