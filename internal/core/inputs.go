package core

import "polity/pkg/domain"

// Inputs are write payloads. A nil pointer field is absent and leaves the
// stored value untouched; a non-nil pointer replaces it. For reference fields
// an empty string clears the reference.

func set(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setRef(dst **string, v *string) {
	if v == nil {
		return
	}
	if *v == "" {
		*dst = nil
		return
	}
	ref := *v
	*dst = &ref
}

// LinkInput is a link or citation payload.
type LinkInput struct {
	ID    *string `json:"id"`
	Label *string `json:"label"`
	Note  *string `json:"note"`
	URL   *string `json:"url"`
	Field *string `json:"field"`
}

func (in LinkInput) apply(l *domain.Link) {
	set(&l.Label, in.Label)
	set(&l.Note, in.Note)
	set(&l.URL, in.URL)
	set(&l.Field, in.Field)
}

// ContactDetailInput is a contact detail payload with nested citations.
type ContactDetailInput struct {
	ID         *string     `json:"id"`
	Label      *string     `json:"label"`
	Note       *string     `json:"note"`
	Type       *string     `json:"type"`
	Value      *string     `json:"value"`
	ValidFrom  *string     `json:"valid_from"`
	ValidUntil *string     `json:"valid_until"`
	Links      []LinkInput `json:"links"`
}

func (in ContactDetailInput) apply(c *domain.ContactDetail) {
	set(&c.Label, in.Label)
	set(&c.Note, in.Note)
	set(&c.Type, in.Type)
	set(&c.Value, in.Value)
	set(&c.ValidFrom, in.ValidFrom)
	set(&c.ValidUntil, in.ValidUntil)
}

// IdentifierInput is an identifier payload with nested citations.
type IdentifierInput struct {
	ID         *string     `json:"id"`
	Identifier *string     `json:"identifier"`
	Scheme     *string     `json:"scheme"`
	Links      []LinkInput `json:"links"`
}

func (in IdentifierInput) apply(i *domain.Identifier) {
	set(&i.Identifier, in.Identifier)
	set(&i.Scheme, in.Scheme)
}

// OtherNameInput is an alternate name payload with nested citations.
type OtherNameInput struct {
	ID              *string     `json:"id"`
	Name            *string     `json:"name"`
	FamilyName      *string     `json:"family_name"`
	GivenName       *string     `json:"given_name"`
	AdditionalName  *string     `json:"additional_name"`
	HonorificPrefix *string     `json:"honorific_prefix"`
	HonorificSuffix *string     `json:"honorific_suffix"`
	PatronymicName  *string     `json:"patronymic_name"`
	Note            *string     `json:"note"`
	StartDate       *string     `json:"start_date"`
	EndDate         *string     `json:"end_date"`
	Links           []LinkInput `json:"links"`
}

func (in OtherNameInput) apply(o *domain.OtherName) {
	set(&o.Name, in.Name)
	set(&o.FamilyName, in.FamilyName)
	set(&o.GivenName, in.GivenName)
	set(&o.AdditionalName, in.AdditionalName)
	set(&o.HonorificPrefix, in.HonorificPrefix)
	set(&o.HonorificSuffix, in.HonorificSuffix)
	set(&o.PatronymicName, in.PatronymicName)
	set(&o.Note, in.Note)
	set(&o.StartDate, in.StartDate)
	set(&o.EndDate, in.EndDate)
}

// AttachmentInputs are the nested sub-record payloads every primary entity accepts.
type AttachmentInputs struct {
	ContactDetails []ContactDetailInput `json:"contact_details"`
	Links          []LinkInput          `json:"links"`
	Identifiers    []IdentifierInput    `json:"identifiers"`
	OtherNames     []OtherNameInput     `json:"other_names"`
}

// PersonInput is a person payload.
type PersonInput struct {
	ID               *string `json:"id"`
	Name             *string `json:"name"`
	FamilyName       *string `json:"family_name"`
	GivenName        *string `json:"given_name"`
	AdditionalName   *string `json:"additional_name"`
	HonorificPrefix  *string `json:"honorific_prefix"`
	HonorificSuffix  *string `json:"honorific_suffix"`
	PatronymicName   *string `json:"patronymic_name"`
	SortName         *string `json:"sort_name"`
	Gender           *string `json:"gender"`
	Summary          *string `json:"summary"`
	Biography        *string `json:"biography"`
	NationalIdentity *string `json:"national_identity"`
	Email            *string `json:"email"`
	BirthDate        *string `json:"birth_date"`
	DeathDate        *string `json:"death_date"`
	Image            *string `json:"image"`
	AttachmentInputs
}

func (in PersonInput) apply(p *domain.Person) {
	set(&p.Name, in.Name)
	set(&p.FamilyName, in.FamilyName)
	set(&p.GivenName, in.GivenName)
	set(&p.AdditionalName, in.AdditionalName)
	set(&p.HonorificPrefix, in.HonorificPrefix)
	set(&p.HonorificSuffix, in.HonorificSuffix)
	set(&p.PatronymicName, in.PatronymicName)
	set(&p.SortName, in.SortName)
	set(&p.Gender, in.Gender)
	set(&p.Summary, in.Summary)
	set(&p.Biography, in.Biography)
	set(&p.NationalIdentity, in.NationalIdentity)
	set(&p.Email, in.Email)
	set(&p.BirthDate, in.BirthDate)
	set(&p.DeathDate, in.DeathDate)
	set(&p.Image, in.Image)
}

// OrganizationInput is an organization payload. Nested memberships are
// attached to the organization.
type OrganizationInput struct {
	ID              *string `json:"id"`
	Name            *string `json:"name"`
	Classification  *string `json:"classification"`
	Abstract        *string `json:"abstract"`
	Description     *string `json:"description"`
	FoundingDate    *string `json:"founding_date"`
	DissolutionDate *string `json:"dissolution_date"`
	Image           *string `json:"image"`
	AreaID          *string `json:"area_id"`
	AttachmentInputs
	Memberships []MembershipInput `json:"memberships"`
}

func (in OrganizationInput) apply(o *domain.Organization) {
	set(&o.Name, in.Name)
	set(&o.Classification, in.Classification)
	set(&o.Abstract, in.Abstract)
	set(&o.Description, in.Description)
	set(&o.FoundingDate, in.FoundingDate)
	set(&o.DissolutionDate, in.DissolutionDate)
	set(&o.Image, in.Image)
	setRef(&o.AreaID, in.AreaID)
}

// PostInput is a post payload. Posts call their alternate names other_labels.
type PostInput struct {
	ID             *string              `json:"id"`
	Label          *string              `json:"label"`
	Role           *string              `json:"role"`
	OrganizationID *string              `json:"organization_id"`
	AreaID         *string              `json:"area_id"`
	StartDate      *string              `json:"start_date"`
	EndDate        *string              `json:"end_date"`
	ContactDetails []ContactDetailInput `json:"contact_details"`
	Links          []LinkInput          `json:"links"`
	Identifiers    []IdentifierInput    `json:"identifiers"`
	OtherLabels    []OtherNameInput     `json:"other_labels"`
	Memberships    []MembershipInput    `json:"memberships"`
}

func (in PostInput) apply(p *domain.Post) {
	set(&p.Label, in.Label)
	set(&p.Role, in.Role)
	setRef(&p.OrganizationID, in.OrganizationID)
	setRef(&p.AreaID, in.AreaID)
	set(&p.StartDate, in.StartDate)
	set(&p.EndDate, in.EndDate)
}

func (in PostInput) attachments() AttachmentInputs {
	return AttachmentInputs{
		ContactDetails: in.ContactDetails,
		Links:          in.Links,
		Identifiers:    in.Identifiers,
		OtherNames:     in.OtherLabels,
	}
}

// MembershipInput is a membership payload, standalone or nested under a post
// or organization.
type MembershipInput struct {
	ID             *string `json:"id"`
	Label          *string `json:"label"`
	Role           *string `json:"role"`
	PersonID       *string `json:"person_id"`
	OrganizationID *string `json:"organization_id"`
	PostID         *string `json:"post_id"`
	MemberID       *string `json:"member_id"`
	OnBehalfOfID   *string `json:"on_behalf_of_id"`
	AreaID         *string `json:"area_id"`
	StartDate      *string `json:"start_date"`
	EndDate        *string `json:"end_date"`
	AttachmentInputs
}

func (in MembershipInput) apply(m *domain.Membership) {
	set(&m.Label, in.Label)
	set(&m.Role, in.Role)
	set(&m.PersonID, in.PersonID)
	setRef(&m.OrganizationID, in.OrganizationID)
	setRef(&m.PostID, in.PostID)
	setRef(&m.MemberID, in.MemberID)
	setRef(&m.OnBehalfOfID, in.OnBehalfOfID)
	setRef(&m.AreaID, in.AreaID)
	set(&m.StartDate, in.StartDate)
	set(&m.EndDate, in.EndDate)
}

// String returns a pointer to v for building inputs.
func String(v string) *string { return &v }
