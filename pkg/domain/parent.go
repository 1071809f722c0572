package domain

import "fmt"

// ParentKind enumerates the entity kinds a sub-record may be attached to.
type ParentKind string

// Parent kinds. The first four are the primary entities; the remaining kinds
// only ever own citation links.
const (
	ParentPerson        ParentKind = ParentKind(EntityPerson)
	ParentOrganization  ParentKind = ParentKind(EntityOrganization)
	ParentPost          ParentKind = ParentKind(EntityPost)
	ParentMembership    ParentKind = ParentKind(EntityMembership)
	ParentContactDetail ParentKind = ParentKind(EntityContactDetail)
	ParentIdentifier    ParentKind = ParentKind(EntityIdentifier)
	ParentOtherName     ParentKind = ParentKind(EntityOtherName)
)

// ParentRef is the generic (kind, id) attachment of a sub-record.
type ParentRef struct {
	Kind ParentKind `json:"kind"`
	ID   string     `json:"id"`
}

// PersonParent references a person as owner.
func PersonParent(id string) ParentRef { return ParentRef{Kind: ParentPerson, ID: id} }

// OrganizationParent references an organization as owner.
func OrganizationParent(id string) ParentRef { return ParentRef{Kind: ParentOrganization, ID: id} }

// PostParent references a post as owner.
func PostParent(id string) ParentRef { return ParentRef{Kind: ParentPost, ID: id} }

// MembershipParent references a membership as owner.
func MembershipParent(id string) ParentRef { return ParentRef{Kind: ParentMembership, ID: id} }

// IsZero reports whether the reference is unset.
func (r ParentRef) IsZero() bool { return r.Kind == "" && r.ID == "" }

// IsPrimary reports whether the reference points at a primary entity.
func (r ParentRef) IsPrimary() bool { return r.Entity().IsPrimary() }

// Entity returns the entity type of the referenced parent.
func (r ParentRef) Entity() EntityType { return EntityType(r.Kind) }

// Ref converts the parent reference to an entity reference.
func (r ParentRef) Ref() EntityRef { return EntityRef{Type: r.Entity(), ID: r.ID} }

func (r ParentRef) String() string { return fmt.Sprintf("%s:%s", r.Kind, r.ID) }

// Validate checks that the reference names a supported parent kind for the child type.
func (r ParentRef) Validate(child EntityType) error {
	if r.IsZero() || r.ID == "" {
		return fmt.Errorf("%w: %s requires a parent", ErrParentRequired, child)
	}
	if r.IsPrimary() {
		return nil
	}
	if child == EntityLink && r.Entity().IsSubRecord() && r.Kind != ParentKind(EntityLink) {
		return nil
	}
	return fmt.Errorf("%w: %s cannot be attached to %s", ErrInvalidParent, child, r.Kind)
}

// SubRecord is implemented by every generic attachment.
type SubRecord interface {
	ResolveParent() ParentRef
}
