package core

import (
	"context"
	"strings"

	"polity/pkg/domain"
)

// NewDefaultRulesEngine builds a rules engine with the built-in invariants:
// membership targets, partial dates and citation fields.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewMembershipTargetRule())
	engine.Register(NewPartialDateRule())
	engine.Register(NewCitationFieldRule())
	return engine
}

// written returns the post-change state of every created or updated record.
func written(changes []domain.Change) []domain.Change {
	out := make([]domain.Change, 0, len(changes))
	for _, c := range changes {
		if c.Action != domain.ActionDelete && c.After != nil {
			out = append(out, c)
		}
	}
	return out
}

func violations(rule string, entity domain.EntityType, id string, verr *domain.ValidationError) []domain.Violation {
	if verr.Empty() {
		return nil
	}
	var out []domain.Violation
	for field, msgs := range verr.Fields {
		cause := verrCause(verr)
		out = append(out, domain.Violation{
			Rule:     rule,
			Severity: domain.SeverityBlock,
			Message:  strings.Join(msgs, "; "),
			Entity:   entity,
			EntityID: id,
			Field:    field,
			Err:      cause,
		})
	}
	return out
}

func verrCause(verr *domain.ValidationError) error {
	if causes := verr.Unwrap(); len(causes) > 0 {
		return causes[0]
	}
	return nil
}

// NewMembershipTargetRule blocks memberships without a post or organization,
// or whose post belongs to a different organization. Memberships of a changed
// post are checked too.
func NewMembershipTargetRule() domain.Rule { return membershipTargetRule{} }

type membershipTargetRule struct{}

func (membershipTargetRule) Name() string { return "membership_target" }

func (r membershipTargetRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	findPost := func(id string) (domain.Post, bool) { return view.FindPost(id, "") }
	checked := make(map[string]bool)
	check := func(m domain.Membership) {
		if checked[m.ID] {
			return
		}
		checked[m.ID] = true
		verr := domain.CheckMembership(m, findPost)
		res.Violations = append(res.Violations, violations(r.Name(), domain.EntityMembership, m.ID, verr)...)
	}
	for _, c := range written(changes) {
		switch after := c.After.(type) {
		case domain.Membership:
			check(after)
		case domain.Post:
			// a post moved to another organization must carry its memberships along
			for _, m := range view.ListMemberships() {
				if domain.StringValue(m.PostID) == after.ID {
					check(m)
				}
			}
		}
	}
	return res, nil
}

// NewPartialDateRule blocks date fields outside YYYY, YYYY-MM and YYYY-MM-DD.
func NewPartialDateRule() domain.Rule { return partialDateRule{} }

type partialDateRule struct{}

func (partialDateRule) Name() string { return "partial_date" }

func (r partialDateRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, c := range written(changes) {
		verr := domain.CheckDates(c.After)
		if verr.Empty() {
			continue
		}
		res.Violations = append(res.Violations, violations(r.Name(), c.Entity, changeID(c.After), verr)...)
	}
	return res, nil
}

// NewCitationFieldRule blocks citation links naming a field their parent does not have.
func NewCitationFieldRule() domain.Rule { return citationFieldRule{} }

type citationFieldRule struct{}

func (citationFieldRule) Name() string { return "citation_field" }

func (r citationFieldRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, c := range written(changes) {
		if c.Entity != domain.EntityLink {
			continue
		}
		l, ok := c.After.(domain.Link)
		if !ok {
			continue
		}
		res.Violations = append(res.Violations, violations(r.Name(), c.Entity, l.ID, domain.CheckCitationField(l))...)
	}
	return res, nil
}

func changeID(record any) string {
	if keyed, ok := record.(interface{ Key() domain.VariantKey }); ok {
		return keyed.Key().ID
	}
	return ""
}
