/*
Package policy provides the common vocabulary every rule evaluator in the
engine speaks: violations, severities, decisions, and the override
authority matrix.

PURPOSE:
  Authority checks, teaching qualification checks, and financial policies
  all produce the same shape of output - zero or more Violations plus a
  derived Decision. Callers branch on the Decision; the Violations carry
  the audit detail.

KEY CONCEPTS IN THIS FILE:
  - Violation: one broken rule (code, message, severity, override level)
  - Decision:  ALLOW / DENY / REQUIRE_OVERRIDE, always derived from the
               violation list, never stored independently
  - Type:      closed enumeration of policy categories
  - RequiredLevel: the authority matrix - which level can override which
               category. This table is data, not scattered conditionals.

DECISION DERIVATION:
  ALLOW            iff zero violations
  REQUIRE_OVERRIDE iff every violation is overridable
  DENY             iff at least one violation is non-overridable

OVERRIDABILITY:
  A Violation with a nil OverrideLevel can NEVER be overridden, regardless
  of who is asking. The authority matrix governs category-level override
  rights; per-violation levels govern individual rules.

SEE ALSO:
  - authority/: resolves who holds which level and evaluates overrides
  - teaching/:  qualification rules producing these violations
*/
package policy

import "fmt"

// =============================================================================
// POLICY TYPES - Closed enumeration, the override matrix keys
// =============================================================================

// Type identifies a policy category for override governance.
type Type string

const (
	TypeEnrollment  Type = "enrollment"
	TypeAcademic    Type = "academic"
	TypeFinancial   Type = "financial"
	TypeTeachingQual Type = "teaching_qualification"
	TypeOperational Type = "operational"
	TypeScheduling  Type = "scheduling"
	TypeGrading     Type = "grading"
	TypeAttendance  Type = "attendance"
)

// Level is an authority level. 1 is the highest (Dean); larger numbers
// are lower in the hierarchy. Lower numeric level always dominates.
type Level int

// DeanLevel is the most restrictive override requirement.
const DeanLevel Level = 1

// overrideMatrix is the single source of truth for override governance.
// Keep this as data; never fold it into per-policy conditionals.
var overrideMatrix = map[Type]Level{
	TypeEnrollment:   2,
	TypeAcademic:     2,
	TypeFinancial:    2,
	TypeTeachingQual: 2,
	TypeOperational:  4,
	TypeScheduling:   3,
	TypeGrading:      3,
	TypeAttendance:   4,
}

// RequiredLevel returns the authority level needed to override the given
// policy category. Unknown categories default to Dean-only (level 1),
// the most conservative choice, by explicit business rule.
func RequiredLevel(t Type) Level {
	if lvl, ok := overrideMatrix[t]; ok {
		return lvl
	}
	return DeanLevel
}

// KnownType reports whether t appears in the override matrix.
func KnownType(t Type) bool {
	_, ok := overrideMatrix[t]
	return ok
}

// =============================================================================
// SEVERITY
// =============================================================================

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityError    Severity = "error"
	SeverityWarning  Severity = "warning"
)

// =============================================================================
// VIOLATION
// =============================================================================

// Code is a stable violation identifier.
type Code string

const (
	// Authority resolution
	CodeNoUserContext               Code = "NO_USER_CONTEXT"
	CodeNoAuthorityPosition         Code = "NO_AUTHORITY_POSITION"
	CodeInsufficientOverrideAuthority Code = "INSUFFICIENT_OVERRIDE_AUTHORITY"

	// Teaching qualification
	CodeNoTeachingAssignment      Code = "NO_TEACHING_ASSIGNMENT"
	CodeInsufficientDegreeBA      Code = "INSUFFICIENT_DEGREE_BA"
	CodeInsufficientDegreeGrad    Code = "INSUFFICIENT_DEGREE_GRAD"
	CodeUnauthorizedTeachingLevel Code = "UNAUTHORIZED_TEACHING_LEVEL"
)

// Violation records one broken rule.
type Violation struct {
	Code     Code
	Message  string
	Severity Severity

	// OverrideLevel is the authority level that may override this
	// violation. Nil means non-overridable, period.
	OverrideLevel *Level

	// Metadata carries free-form context for audit trails.
	Metadata map[string]any
}

// Overridable reports whether any authority level can override this
// violation.
func (v Violation) Overridable() bool { return v.OverrideLevel != nil }

func (v Violation) String() string {
	return fmt.Sprintf("[%s/%s] %s", v.Severity, v.Code, v.Message)
}

// LevelPtr is a convenience for building violations with an override level.
func LevelPtr(l Level) *Level { return &l }

// =============================================================================
// DECISION - Always derived from violations
// =============================================================================

type Decision string

const (
	Allow           Decision = "allow"
	Deny            Decision = "deny"
	RequireOverride Decision = "require_override"
)

// Decide derives the decision from a violation list.
func Decide(violations []Violation) Decision {
	if len(violations) == 0 {
		return Allow
	}
	for _, v := range violations {
		if !v.Overridable() {
			return Deny
		}
	}
	return RequireOverride
}
