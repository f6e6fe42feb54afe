/*
override.go - The override authority evaluator

PURPOSE:
  Decides whether a user may override a named policy category. The outcome
  is intentionally BINARY - ALLOW or DENY, never REQUIRE_OVERRIDE: you
  cannot override your own lack of override authority, that would be
  circular.

EVALUATION ORDER:
  1. No user in context      -> CRITICAL NO_USER_CONTEXT, DENY
  2. No effective positions  -> ERROR NO_AUTHORITY_POSITION, DENY
  3. Positions insufficient  -> ERROR INSUFFICIENT_OVERRIDE_AUTHORITY, DENY
  4. Otherwise               -> ALLOW

  A missing PolicyType is a caller bug, not a denial: it fails fast with
  policy.ErrMissingInput.
*/
package authority

import (
	"fmt"

	"github.com/keystone/sis-engine/policy"
)

// OverrideRequest is the evaluation input snapshot.
type OverrideRequest struct {
	User       *User
	Department *Department
	PolicyType policy.Type
}

// OverridePolicy evaluates override authority requests.
type OverridePolicy struct{}

// Evaluate returns the decision plus its violations. The error return is
// reserved for malformed input (missing policy type); authorization
// failures are violations, never errors.
func (OverridePolicy) Evaluate(req OverrideRequest) (policy.Decision, []policy.Violation, error) {
	if req.PolicyType == "" {
		return "", nil, &policy.MissingInputError{Field: "policy_type"}
	}

	if req.User == nil {
		// Unconditional deny; bypasses the overridable-check path.
		return policy.Deny, []policy.Violation{{
			Code:     policy.CodeNoUserContext,
			Message:  "no user in evaluation context",
			Severity: policy.SeverityCritical,
		}}, nil
	}

	positions := EffectivePositions(req.User, req.Department)
	if len(positions) == 0 {
		// Never overridable: overriding the lack of override authority
		// would be circular.
		return policy.Deny, []policy.Violation{{
			Code:     policy.CodeNoAuthorityPosition,
			Message:  fmt.Sprintf("user %s holds no current authority position", req.User.ID),
			Severity: policy.SeverityError,
			Metadata: map[string]any{"user_id": req.User.ID},
		}}, nil
	}

	if !CanOverride(positions, req.PolicyType) {
		required := policy.RequiredLevel(req.PolicyType)
		actual, _ := HighestLevel(positions)
		return policy.Deny, []policy.Violation{{
			Code: policy.CodeInsufficientOverrideAuthority,
			Message: fmt.Sprintf(
				"authority level %d insufficient to override %s policy (requires level %d or explicit grant)",
				actual, req.PolicyType, required),
			Severity: policy.SeverityError,
			Metadata: map[string]any{
				"user_id":        req.User.ID,
				"policy_type":    string(req.PolicyType),
				"actual_level":   int(actual),
				"required_level": int(required),
			},
		}}, nil
	}

	return policy.Allow, nil, nil
}
