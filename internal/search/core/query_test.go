package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseQuery(t *testing.T) {
	q, err := ParseQuery("id:abc AND language_code:ms")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(q.Terms) != 2 {
		t.Fatalf("expected two terms, got %+v", q.Terms)
	}
	if v, ok := q.Lookup("language_code"); !ok || v != "ms" {
		t.Fatalf("expected language term, got %q", v)
	}
	if _, err := ParseQuery("nonsense"); !errors.Is(err, ErrBadQuery) {
		t.Fatalf("expected ErrBadQuery, got %v", err)
	}
	if q, err := ParseQuery("  "); err != nil || len(q.Terms) != 0 {
		t.Fatalf("empty query should match all")
	}
}

func TestQueryMatch(t *testing.T) {
	body, _ := json.Marshal(map[string]any{"name": "Ada", "organization_id": nil})
	doc := Document{Index: "persons", ID: "p1", Language: "en", Body: body}
	cases := []struct {
		query string
		want  bool
	}{
		{"id:p1 AND language_code:en", true},
		{"id:p1 AND language_code:ms", false},
		{"id:p2", false},
		{"name:Ada", true},
		{"name:Bob", false},
		{"organization_id:x", false},
		{"", true},
	}
	for _, tc := range cases {
		q, err := ParseQuery(tc.query)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.query, err)
		}
		if got := q.Match(doc); got != tc.want {
			t.Errorf("Match(%q) = %v, want %v", tc.query, got, tc.want)
		}
	}
	if doc.Key() != "p1|en" {
		t.Fatalf("unexpected key %s", doc.Key())
	}
}
