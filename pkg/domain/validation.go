package domain

import (
	"fmt"
	"regexp"
)

var partialDatePattern = regexp.MustCompile(`^[0-9]{4}(-[0-9]{2}){0,2}$`)

// ValidPartialDate reports whether s is YYYY, YYYY-MM or YYYY-MM-DD. The empty
// string means "unset" and is accepted.
func ValidPartialDate(s string) bool {
	if s == "" {
		return true
	}
	return partialDatePattern.MatchString(s)
}

// DateField pairs a json field name with its value.
type DateField struct {
	Name  string
	Value string
}

// DateFields returns the partial-date fields carried by record, or nil when
// the record has none.
func DateFields(record any) []DateField {
	switch r := record.(type) {
	case Person:
		return []DateField{{"birth_date", r.BirthDate}, {"death_date", r.DeathDate}}
	case Organization:
		return []DateField{{"founding_date", r.FoundingDate}, {"dissolution_date", r.DissolutionDate}}
	case Post:
		return []DateField{{"start_date", r.StartDate}, {"end_date", r.EndDate}}
	case Membership:
		return []DateField{{"start_date", r.StartDate}, {"end_date", r.EndDate}}
	case ContactDetail:
		return []DateField{{"valid_from", r.ValidFrom}, {"valid_until", r.ValidUntil}}
	case OtherName:
		return []DateField{{"start_date", r.StartDate}, {"end_date", r.EndDate}}
	}
	return nil
}

// CheckDates validates every partial-date field of record.
func CheckDates(record any) *ValidationError {
	verr := &ValidationError{}
	for _, f := range DateFields(record) {
		if !ValidPartialDate(f.Value) {
			verr.Add(f.Name, ErrInvalidDate, fmt.Sprintf("%q is not a valid date, use YYYY, YYYY-MM or YYYY-MM-DD", f.Value))
		}
	}
	if verr.Empty() {
		return nil
	}
	return verr
}

// PostLookup resolves a post by id in any language variant.
type PostLookup func(id string) (Post, bool)

// CheckMembership enforces that a membership targets a post or an
// organization, and that both agree when both are set.
func CheckMembership(m Membership, findPost PostLookup) *ValidationError {
	verr := &ValidationError{}
	orgID := StringValue(m.OrganizationID)
	postID := StringValue(m.PostID)
	if orgID == "" && postID == "" {
		verr.Add(NonFieldErrors, ErrInvalidMembership, "A person must be a member of a post or organization")
		return verr
	}
	if orgID != "" && postID != "" && findPost != nil {
		if post, ok := findPost(postID); ok {
			if postOrg := StringValue(post.OrganizationID); postOrg != "" && postOrg != orgID {
				verr.Add("organization_id", ErrInvalidMembership, "An organization for membership should match organization of a post")
			}
		}
	}
	if verr.Empty() {
		return nil
	}
	return verr
}

// CheckCitationField validates that a citation link names a real field of its parent.
func CheckCitationField(l Link) *ValidationError {
	if l.Field == "" {
		return nil
	}
	if HasField(l.Parent.Entity(), l.Field) {
		return nil
	}
	verr := &ValidationError{}
	verr.Add("field", ErrFieldNotExist, fmt.Sprintf("%s Does not exist", l.Field))
	return verr
}
