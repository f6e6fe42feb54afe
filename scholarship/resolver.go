/*
resolver.go - Ordered benefit resolution strategies

PURPOSE:
  Makes the precedence rule VISIBLE: resolution is an explicit ordered
  list of named resolvers tried in sequence, not an accident of early
  returns. NGO sponsorship is always tried before individual awards.

TIE-BREAK RULE:
  Among overlapping sponsorships the highest default discount wins; at
  equal percentages the LOWEST sponsor code wins. The tie-break is a
  deliberate, documented rule so resolution is deterministic regardless
  of input order.
*/
package scholarship

import (
	"fmt"
	"sort"
)

// Resolver is one benefit resolution strategy. It returns the resolved
// benefit, or nil plus a reason describing why it did not apply.
type Resolver interface {
	Name() string
	Resolve(student Student, term Term, snap Snapshot) (*Benefit, string)
}

// DefaultResolvers returns the canonical precedence order: NGO
// sponsorship strictly before individual awards.
func DefaultResolvers() []Resolver {
	return []Resolver{NGOResolver{}, IndividualResolver{}}
}

// Resolve runs the default resolver chain and falls back to an explicit
// no-scholarship benefit carrying the accumulated reasons.
func Resolve(student Student, term Term, snap Snapshot) Benefit {
	return ResolveWith(DefaultResolvers(), student, term, snap)
}

// ResolveWith runs an explicit resolver chain in order.
func ResolveWith(resolvers []Resolver, student Student, term Term, snap Snapshot) Benefit {
	reason := fmt.Sprintf("no scholarship found for student %s in term %s", student.ID, term.ID)
	for _, r := range resolvers {
		benefit, miss := r.Resolve(student, term, snap)
		if benefit != nil {
			return *benefit
		}
		if miss != "" {
			reason = reason + "; " + r.Name() + ": " + miss
		}
	}
	return NoBenefit(reason)
}

// =============================================================================
// NGO RESOLVER
// =============================================================================

// NGOResolver selects a sponsor-funded benefit. NGO benefits are always
// percentage-based with the sponsor's payment mode.
type NGOResolver struct{}

func (NGOResolver) Name() string { return "ngo" }

func (NGOResolver) Resolve(student Student, term Term, snap Snapshot) (*Benefit, string) {
	var candidates []Sponsorship
	for _, sp := range snap.Sponsorships {
		if sp.StudentID == student.ID && sp.Overlaps(term) {
			candidates = append(candidates, sp)
		}
	}
	if len(candidates) == 0 {
		return nil, "no sponsorship overlapping term"
	}

	// Highest discount wins; equal discounts break on lowest sponsor code.
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i].Sponsor, candidates[j].Sponsor
		if !a.DefaultDiscountPercent.Equal(b.DefaultDiscountPercent) {
			return a.DefaultDiscountPercent.GreaterThan(b.DefaultDiscountPercent)
		}
		return a.Code < b.Code
	})
	sponsor := candidates[0].Sponsor

	if !sponsor.Active {
		return nil, fmt.Sprintf("sponsor %s is inactive", sponsor.Code)
	}
	if !sponsor.MOUCovers(term) {
		return nil, fmt.Sprintf("sponsor %s MOU does not cover term %s", sponsor.Code, term.ID)
	}

	return &Benefit{
		HasScholarship:  true,
		DiscountPercent: sponsor.DefaultDiscountPercent,
		Source:          SourceNGO,
		PaymentMode:     sponsor.PaymentMode,
		SponsorCode:     sponsor.Code,
		Reason:          fmt.Sprintf("sponsored by %s at %s%%", sponsor.Code, sponsor.DefaultDiscountPercent),
	}, ""
}

// =============================================================================
// INDIVIDUAL RESOLVER
// =============================================================================

// IndividualResolver selects an individually awarded scholarship. Any
// fixed-amount award wins immediately; otherwise the highest percentage.
type IndividualResolver struct{}

func (IndividualResolver) Name() string { return "individual" }

func (IndividualResolver) Resolve(student Student, term Term, snap Snapshot) (*Benefit, string) {
	var candidates []Award
	for _, a := range snap.Awards {
		if a.StudentID != student.ID || !a.Status.Usable() || !a.Overlaps(term) {
			continue
		}
		if a.SponsorshipLinked {
			// Mirrors a sponsorship record; counting it again would
			// double the benefit.
			continue
		}
		candidates = append(candidates, a)
	}
	if len(candidates) == 0 {
		return nil, "no approved or active award overlapping term"
	}

	// Fixed amount takes unconditional precedence over any percentage.
	for _, a := range candidates {
		if a.FixedAmount != nil {
			amount := *a.FixedAmount
			return &Benefit{
				HasScholarship: true,
				FixedAmount:    &amount,
				Source:         SourceNonNGO,
				PaymentMode:    PayDirect,
				AwardID:        a.ID,
				Reason:         fmt.Sprintf("individual award %s, fixed amount %s", a.ID, amount),
			}, ""
		}
	}

	best := candidates[0]
	for _, a := range candidates[1:] {
		if a.Percent != nil && (best.Percent == nil || a.Percent.GreaterThan(*best.Percent)) {
			best = a
		}
	}
	if best.Percent == nil {
		return nil, "awards carry neither amount nor percentage"
	}

	return &Benefit{
		HasScholarship:  true,
		DiscountPercent: *best.Percent,
		Source:          SourceNonNGO,
		PaymentMode:     PayDirect,
		AwardID:         best.ID,
		Reason:          fmt.Sprintf("individual award %s at %s%%", best.ID, best.Percent),
	}, ""
}
