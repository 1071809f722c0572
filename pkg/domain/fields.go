package domain

import (
	"reflect"
	"sort"
	"strings"
)

// relations lists the reverse relations exposed as attributes of each entity,
// in addition to the record's own fields.
var relations = map[EntityType][]string{
	EntityPerson:        {"memberships", "identifiers", "other_names", "contact_details", "links"},
	EntityOrganization:  {"posts", "memberships", "identifiers", "other_names", "contact_details", "links"},
	EntityPost:          {"memberships", "other_labels", "contact_details", "links"},
	EntityMembership:    {"contact_details", "links"},
	EntityContactDetail: {"links"},
	EntityIdentifier:    {"links"},
	EntityOtherName:     {"links"},
}

var fieldRegistry = buildFieldRegistry()

func buildFieldRegistry() map[EntityType]map[string]struct{} {
	types := map[EntityType]reflect.Type{
		EntityPerson:        reflect.TypeOf(Person{}),
		EntityOrganization:  reflect.TypeOf(Organization{}),
		EntityPost:          reflect.TypeOf(Post{}),
		EntityMembership:    reflect.TypeOf(Membership{}),
		EntityArea:          reflect.TypeOf(Area{}),
		EntityContactDetail: reflect.TypeOf(ContactDetail{}),
		EntityLink:          reflect.TypeOf(Link{}),
		EntityIdentifier:    reflect.TypeOf(Identifier{}),
		EntityOtherName:     reflect.TypeOf(OtherName{}),
	}
	out := make(map[EntityType]map[string]struct{}, len(types))
	for entity, typ := range types {
		fields := make(map[string]struct{})
		collectJSONFields(typ, fields)
		for _, rel := range relations[entity] {
			fields[rel] = struct{}{}
		}
		out[entity] = fields
	}
	return out
}

func collectJSONFields(typ reflect.Type, into map[string]struct{}) {
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if f.Anonymous {
			collectJSONFields(f.Type, into)
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		into[name] = struct{}{}
		if trimmed, ok := strings.CutSuffix(name, "_id"); ok {
			into[trimmed] = struct{}{}
		}
	}
}

// HasField reports whether field is an attribute of the entity type.
func HasField(entity EntityType, field string) bool {
	fields, ok := fieldRegistry[entity]
	if !ok {
		return false
	}
	_, ok = fields[field]
	return ok
}

// Fields returns the sorted attribute names of the entity type.
func Fields(entity EntityType) []string {
	fields := fieldRegistry[entity]
	out := make([]string, 0, len(fields))
	for f := range fields {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
