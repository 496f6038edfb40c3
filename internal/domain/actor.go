package domain

import (
	"reflect"
	"sort"
	"strings"
)

// ActorRole enumerates the musical role an Actor played for a track or
// album.
type ActorRole int

const (
	ActorRoleArtist ActorRole = iota
	ActorRoleArranger
	ActorRoleComposer
	ActorRoleConductor
	ActorRoleDirector
	ActorRoleDjMixer
	ActorRoleEngineer
	ActorRoleLyricist
	ActorRoleMixDj
	ActorRoleMixEngineer
	ActorRolePerformer
	ActorRoleProducer
	ActorRolePublisher
	ActorRoleRemixer
	ActorRoleWriter
)

// ActorKind distinguishes a single contributor from an aggregate "summary"
// credit or a sort-friendly alias.
type ActorKind int

const (
	ActorKindSummary ActorKind = iota
	ActorKindIndividual
	ActorKindSorting
)

// Actor credits a named contributor with a role.
type Actor struct {
	Name      string
	Role      ActorRole
	Kind      ActorKind
	RoleNotes string
}

// Actors is an ordered collection of Actor values within a single scope
// (track or album).
type Actors []Actor

func (as Actors) less(i, j int) bool {
	if as[i].Role != as[j].Role {
		return as[i].Role < as[j].Role
	}
	if as[i].Kind != as[j].Kind {
		return as[i].Kind < as[j].Kind
	}
	return as[i].Name < as[j].Name
}

// IsCanonical reports whether as equals its Canonicalize() form: sorted by
// (role, kind, name), free of exact duplicates, and carrying every required
// synthesized Summary actor. Validate's role invariants (such as at most
// one Summary per role) are not checked here.
func (as Actors) IsCanonical() bool {
	if len(as) == 0 {
		return true
	}
	return reflect.DeepEqual(as, as.Canonicalize())
}

// Canonicalize stable-sorts as by (role, kind, name), collapses exact
// duplicates, and synthesizes a missing Summary actor per role from its
// Individual actors by joining their names with ", " in input order.
func (as Actors) Canonicalize() Actors {
	out := make(Actors, len(as))
	copy(out, as)
	sort.SliceStable(out, out.less)

	deduped := out[:0:0]
	for i, a := range out {
		if i > 0 && a == out[i-1] {
			continue
		}
		deduped = append(deduped, a)
	}

	type roleGroup struct {
		individuals []string
		hasSummary  bool
	}
	groups := map[ActorRole]*roleGroup{}
	order := []ActorRole{}
	for _, a := range deduped {
		g, ok := groups[a.Role]
		if !ok {
			g = &roleGroup{}
			groups[a.Role] = g
			order = append(order, a.Role)
		}
		if a.Kind == ActorKindSummary {
			g.hasSummary = true
		}
	}
	// Individual names are collected in input order, each once per role.
	seen := map[ActorRole]map[string]bool{}
	for _, a := range as {
		if a.Kind != ActorKindIndividual {
			continue
		}
		if seen[a.Role] == nil {
			seen[a.Role] = map[string]bool{}
		}
		if !seen[a.Role][a.Name] {
			seen[a.Role][a.Name] = true
			groups[a.Role].individuals = append(groups[a.Role].individuals, a.Name)
		}
	}

	for _, role := range order {
		g := groups[role]
		if !g.hasSummary && len(g.individuals) > 0 {
			deduped = append(deduped, Actor{
				Name: strings.Join(g.individuals, ", "),
				Role: role,
				Kind: ActorKindSummary,
			})
		}
	}

	sort.SliceStable(deduped, deduped.less)
	return deduped
}

// ActorsInvalidity enumerates cross-entry problems in an Actors slice.
type ActorsInvalidity int

const (
	ActorsInvalidityMultipleSummary ActorsInvalidity = iota
	ActorsInvalidityMultipleSorting
	ActorsInvaliditySummaryMissingIndividual
)

// Validate checks the per-(role) invariants: at most one Summary actor, at
// most one Sorting actor, and a Summary actor's name must contain every
// Individual actor's name of the same role as a substring.
func (as Actors) Validate() []ActorsInvalidity {
	type roleGroup struct {
		summaries   []Actor
		sortings    []Actor
		individuals []Actor
	}
	groups := map[ActorRole]*roleGroup{}
	for _, a := range as {
		g, ok := groups[a.Role]
		if !ok {
			g = &roleGroup{}
			groups[a.Role] = g
		}
		switch a.Kind {
		case ActorKindSummary:
			g.summaries = append(g.summaries, a)
		case ActorKindSorting:
			g.sortings = append(g.sortings, a)
		case ActorKindIndividual:
			g.individuals = append(g.individuals, a)
		}
	}

	var issues []ActorsInvalidity
	for _, g := range groups {
		if len(g.summaries) > 1 {
			issues = append(issues, ActorsInvalidityMultipleSummary)
		}
		if len(g.sortings) > 1 {
			issues = append(issues, ActorsInvalidityMultipleSorting)
		}
		if len(g.summaries) == 1 {
			summary := g.summaries[0]
			for _, ind := range g.individuals {
				if !strings.Contains(summary.Name, ind.Name) {
					issues = append(issues, ActorsInvaliditySummaryMissingIndividual)
					break
				}
			}
		}
	}
	return issues
}

// Summary returns the Summary actor for role, if any.
func (as Actors) Summary(role ActorRole) (Actor, bool) {
	for _, a := range as {
		if a.Role == role && a.Kind == ActorKindSummary {
			return a, true
		}
	}
	return Actor{}, false
}
