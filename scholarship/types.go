/*
Package scholarship resolves the single applicable discount for a student
and billing term, and computes the exact monetary outcome.

PURPOSE:
  A student may be covered by an NGO sponsorship, an individually awarded
  scholarship, both, or neither. Exactly one benefit applies per term.
  Precedence is explicit and absolute: NGO sponsorship is checked strictly
  before individual awards and is never merged with them.

KEY CONCEPTS IN THIS FILE (types.go):
  - Term, Sponsor, Sponsorship, Award: immutable input snapshots
  - Benefit: the resolved outcome (percentage OR fixed amount, source,
    payment mode, audit reason)
  - Snapshot: the pre-loaded records for one student, supplied by the
    persistence collaborator

INVARIANTS:
  - Exactly one of {fixed-amount path, percentage path} determines the
    discount; a fixed amount always wins when present.
  - NGO benefits are always percentage-based, never fixed.
  - Date-window overlap: record.start <= term.end AND
    (record.end is nil OR record.end >= term.start).

SEE ALSO:
  - resolver.go: the ordered resolver strategies
  - compute.go: discount arithmetic on the money kernel
*/
package scholarship

import (
	"time"

	"github.com/keystone/sis-engine/money"
)

// =============================================================================
// SNAPSHOT TYPES
// =============================================================================

// Student is the minimal student snapshot the resolver needs.
type Student struct {
	ID   string
	Name string
}

// Term is a billing term window.
type Term struct {
	ID    string
	Start time.Time
	End   time.Time
}

// overlaps implements the canonical window rule used for sponsorships,
// awards and MOU validity alike.
func overlaps(start time.Time, end *time.Time, term Term) bool {
	if start.After(term.End) {
		return false
	}
	if end != nil && end.Before(term.Start) {
		return false
	}
	return true
}

// PaymentMode says how a benefit is settled.
type PaymentMode string

const (
	PayDirect      PaymentMode = "direct"
	PayBulkInvoice PaymentMode = "bulk_invoice"
)

// Sponsor is an NGO (or similar organization) with a discount agreement.
type Sponsor struct {
	Code                   string
	Name                   string
	DefaultDiscountPercent money.Amount
	PaymentMode            PaymentMode
	MOUStart               time.Time
	MOUEnd                 *time.Time
	Active                 bool
}

// MOUCovers reports whether the sponsor's agreement window overlaps the
// term: the term must not end before the MOU starts nor start after the
// MOU ends (when an end is set).
func (s Sponsor) MOUCovers(term Term) bool {
	return !term.End.Before(s.MOUStart) && (s.MOUEnd == nil || !term.Start.After(*s.MOUEnd))
}

// Sponsorship links a sponsor to one student for a date window.
type Sponsorship struct {
	Sponsor   Sponsor
	StudentID string
	Start     time.Time
	End       *time.Time
}

// Overlaps reports whether the sponsorship window covers the term.
func (sp Sponsorship) Overlaps(term Term) bool { return overlaps(sp.Start, sp.End, term) }

// AwardStatus is the lifecycle state of an individual scholarship award.
type AwardStatus string

const (
	AwardPending  AwardStatus = "pending"
	AwardApproved AwardStatus = "approved"
	AwardActive   AwardStatus = "active"
	AwardExpired  AwardStatus = "expired"
	AwardRevoked  AwardStatus = "revoked"
)

// Usable reports whether the status makes the award eligible.
func (s AwardStatus) Usable() bool { return s == AwardApproved || s == AwardActive }

// Award is an individually granted scholarship. Either Percent or
// FixedAmount is set; a fixed amount takes unconditional precedence.
type Award struct {
	ID          string
	StudentID   string
	Percent     *money.Amount
	FixedAmount *money.Amount
	Status      AwardStatus
	Start       time.Time
	End         *time.Time

	// SponsorshipLinked marks awards that mirror a sponsored-student
	// relationship; those are excluded from individual resolution to
	// avoid double-counting.
	SponsorshipLinked bool
}

// Overlaps reports whether the award window covers the term.
func (a Award) Overlaps(term Term) bool { return overlaps(a.Start, a.End, term) }

// Snapshot bundles the pre-loaded records for one student. The
// persistence collaborator assembles this; the resolver never queries.
type Snapshot struct {
	Sponsorships []Sponsorship
	Awards       []Award
}

// =============================================================================
// BENEFIT - The resolved outcome
// =============================================================================

// SourceType identifies where a benefit came from.
type SourceType string

const (
	SourceNGO    SourceType = "ngo"
	SourceNonNGO SourceType = "non_ngo"
	SourceNone   SourceType = "none"
)

// Benefit is the single resolved discount for a student+term.
type Benefit struct {
	HasScholarship bool

	// DiscountPercent applies when FixedAmount is nil. 0-100.
	DiscountPercent money.Amount

	// FixedAmount, when set, determines the discount outright.
	FixedAmount *money.Amount

	Source      SourceType
	PaymentMode PaymentMode

	// References back to the source record, for audit.
	SponsorCode string
	AwardID     string

	// Reason is a human-readable explanation, populated for audit and
	// debugging even - especially - when no scholarship applies.
	Reason string
}

// NoBenefit builds the explicit "no scholarship" outcome.
func NoBenefit(reason string) Benefit {
	return Benefit{
		HasScholarship:  false,
		DiscountPercent: money.Zero(),
		Source:          SourceNone,
		PaymentMode:     PayDirect,
		Reason:          reason,
	}
}
