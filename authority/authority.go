/*
Package authority resolves institutional authority positions and evaluates
override requests against the policy matrix.

PURPOSE:
  Answers two questions:
  1. Which positions does this user EFFECTIVELY hold right now, for this
     department? (including acting/delegation appointments)
  2. Do those positions allow overriding a given policy category?

KEY CONCEPTS:
  - Position: one institutional post (level, optional department scope,
    explicit override grants)
  - PositionAssignment: a user's link to a position; may carry a Delegate
    when the holder is acting for someone else - resolution always yields
    the delegate's position, never the raw assignment
  - EffectivePositions: the filtered + delegation-resolved position set
  - OverridePolicy: the binary ALLOW/DENY evaluator for override requests

SNAPSHOT CONTRACT:
  All inputs are already-loaded immutable snapshots. This package performs
  no queries and no I/O; "user holds nothing" is an empty slice, never an
  error, and the evaluator turns it into a NO_AUTHORITY_POSITION violation.

SEE ALSO:
  - policy/: the matrix (RequiredLevel) and the violation vocabulary
*/
package authority

import "github.com/keystone/sis-engine/policy"

// =============================================================================
// SNAPSHOT TYPES
// =============================================================================

// Department identifies an academic or administrative unit.
type Department struct {
	ID   string
	Code string
	Name string
}

// Position is one institutional post.
type Position struct {
	ID    string
	Title string

	// Level: 1 = Dean (highest), increasing numbers = lower authority.
	Level policy.Level

	// Department scope. Nil means institution-wide.
	Department *Department

	// CanOverride lists policy categories this position may override
	// regardless of level.
	CanOverride map[policy.Type]bool
}

// AppliesTo reports whether the position's scope covers the department.
// Institution-wide positions cover everything.
func (p Position) AppliesTo(dept *Department) bool {
	if p.Department == nil || dept == nil {
		return true
	}
	return p.Department.ID == dept.ID
}

// PositionAssignment links a user to a position. When Delegate is set the
// holder is acting for someone else and the delegate's position governs.
type PositionAssignment struct {
	Position Position
	Delegate *Position
	Current  bool
}

// Effective returns the position that actually applies: the delegated
// position when acting, otherwise the assignment's own.
func (a PositionAssignment) Effective() Position {
	if a.Delegate != nil {
		return *a.Delegate
	}
	return a.Position
}

// User is the snapshot of an authenticated institutional user.
type User struct {
	ID          string
	Name        string
	Assignments []PositionAssignment
}

// =============================================================================
// RESOLUTION
// =============================================================================

// EffectivePositions computes the set of positions the user effectively
// holds for the given department (nil = institution-wide context).
// Current assignments only; each resolved through delegation. Returns an
// empty slice - not an error - when the user holds nothing.
func EffectivePositions(user *User, dept *Department) []Position {
	if user == nil {
		return nil
	}
	var positions []Position
	seen := make(map[string]bool)
	for _, a := range user.Assignments {
		if !a.Current {
			continue
		}
		pos := a.Effective()
		if !pos.AppliesTo(dept) {
			continue
		}
		if pos.ID != "" && seen[pos.ID] {
			continue
		}
		seen[pos.ID] = true
		positions = append(positions, pos)
	}
	return positions
}

// CanOverride reports whether any of the positions may override the given
// policy category: either via an explicit grant or because its level meets
// the matrix requirement (lower numeric level dominates).
func CanOverride(positions []Position, t policy.Type) bool {
	required := policy.RequiredLevel(t)
	for _, p := range positions {
		if p.CanOverride[t] {
			return true
		}
		if p.Level <= required {
			return true
		}
	}
	return false
}

// HighestLevel returns the strongest (numerically lowest) level among the
// positions, for violation messages. Second return is false when empty.
func HighestLevel(positions []Position) (policy.Level, bool) {
	if len(positions) == 0 {
		return 0, false
	}
	best := positions[0].Level
	for _, p := range positions[1:] {
		if p.Level < best {
			best = p.Level
		}
	}
	return best, true
}
