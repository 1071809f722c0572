package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Term is a single field:value clause.
type Term struct {
	Field string
	Value string
}

// Query is a conjunction of terms, written `field:value AND field:value`.
type Query struct {
	Terms []Term
}

// ParseQuery parses the conjunctive field query grammar. The empty string
// matches every document.
func ParseQuery(raw string) (Query, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Query{}, nil
	}
	var q Query
	for _, clause := range strings.Split(raw, " AND ") {
		field, value, ok := strings.Cut(strings.TrimSpace(clause), ":")
		if !ok || field == "" {
			return Query{}, fmt.Errorf("%w: %q", ErrBadQuery, clause)
		}
		q.Terms = append(q.Terms, Term{Field: field, Value: value})
	}
	return q, nil
}

// Lookup reports the value of field when the query pins it.
func (q Query) Lookup(field string) (string, bool) {
	for _, t := range q.Terms {
		if t.Field == field {
			return t.Value, true
		}
	}
	return "", false
}

// Match reports whether doc satisfies every term. id and language_code are
// answered from the document key, other fields from the top level of the body.
func (q Query) Match(doc Document) bool {
	var body map[string]any
	for _, t := range q.Terms {
		switch t.Field {
		case "id":
			if doc.ID != t.Value {
				return false
			}
		case "language_code":
			if doc.Language != t.Value {
				return false
			}
		default:
			if body == nil {
				if err := json.Unmarshal(doc.Body, &body); err != nil {
					return false
				}
			}
			v, ok := body[t.Field]
			if !ok || v == nil || fmt.Sprint(v) != t.Value {
				return false
			}
		}
	}
	return true
}
