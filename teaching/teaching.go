/*
Package teaching evaluates whether a teacher may be assigned to a course.

PURPOSE:
  Combines degree-level rules, the native-English-speaker exception,
  special-qualification overrides, and level-authorization checks into
  zero or more violations with per-violation override requirements.

RULE ORDER:
  1. No active+current assignment in the department? Emit
     NO_TEACHING_ASSIGNMENT and STOP - the remaining rules cannot be
     evaluated without a base assignment.
  2. BA courses require Masters/Doctorate, OR the native-speaker
     exception (Bachelors + native English speaker + English department),
     OR a special qualification. Failure: INSUFFICIENT_DEGREE_BA
     (override level 2).
  3. Graduate courses require Masters/Doctorate OR special qualification.
     Failure: INSUFFICIENT_DEGREE_GRAD (override level 1 - Dean only,
     stricter than BA).
  4. Independently of 2/3, the assignment's authorized teaching level must
     cover the course level. Mismatch: UNAUTHORIZED_TEACHING_LEVEL
     (warning, override level 3). Both a degree violation and a level
     violation can appear together.

SNAPSHOT CONTRACT:
  Pure functions over supplied Teacher/Course/Department snapshots. All
  querying belongs to the caller.
*/
package teaching

import (
	"fmt"
	"strings"

	"github.com/keystone/sis-engine/authority"
	"github.com/keystone/sis-engine/policy"
)

// =============================================================================
// SNAPSHOT TYPES
// =============================================================================

type Degree string

const (
	DegreeBachelors Degree = "bachelors"
	DegreeMasters   Degree = "masters"
	DegreeDoctorate Degree = "doctorate"
)

// AdvancedDegree reports Masters or Doctorate.
func (d Degree) Advanced() bool { return d == DegreeMasters || d == DegreeDoctorate }

// TeachingLevel is what an assignment authorizes the teacher to teach.
type TeachingLevel string

const (
	LevelUndergraduate TeachingLevel = "undergraduate"
	LevelGraduate      TeachingLevel = "graduate"
	LevelBoth          TeachingLevel = "both"
)

// CourseLevel is the level of the course being assigned.
type CourseLevel string

const (
	CourseBA       CourseLevel = "BA"
	CourseGraduate CourseLevel = "GRADUATE"
)

// RequiredTeachingLevel maps a course level to the assignment authorization
// it needs. LevelBoth always satisfies.
func (c CourseLevel) RequiredTeachingLevel() TeachingLevel {
	if c == CourseGraduate {
		return LevelGraduate
	}
	return LevelUndergraduate
}

// Assignment is a teacher's qualification record for one department.
type Assignment struct {
	Department           authority.Department
	MinimumDegree        Degree
	NativeEnglishSpeaker bool
	SpecialQualification bool
	AuthorizedLevels     TeachingLevel
	Active               bool
	Current              bool
}

// Authorizes reports whether the assignment covers the course level.
func (a Assignment) Authorizes(level CourseLevel) bool {
	return a.AuthorizedLevels == LevelBoth || a.AuthorizedLevels == level.RequiredTeachingLevel()
}

// Teacher is the snapshot of a teacher with all qualification records.
type Teacher struct {
	ID          string
	Name        string
	Assignments []Assignment
}

// AssignmentFor returns the teacher's active+current assignment for the
// department, or nil.
func (t Teacher) AssignmentFor(dept authority.Department) *Assignment {
	for i := range t.Assignments {
		a := &t.Assignments[i]
		if a.Active && a.Current && a.Department.ID == dept.ID {
			return a
		}
	}
	return nil
}

// Course is the snapshot of the course being assigned.
type Course struct {
	Code       string
	Title      string
	Level      CourseLevel
	Department authority.Department
}

// IsEnglishDepartment reports whether a department teaches English,
// which gates the native-speaker exception for BA courses.
func IsEnglishDepartment(d authority.Department) bool {
	return strings.HasPrefix(strings.ToUpper(d.Code), "ENG") ||
		strings.Contains(strings.ToLower(d.Name), "english")
}

// =============================================================================
// QUALIFICATION POLICY
// =============================================================================

// QualificationPolicy evaluates teacher/course compatibility.
type QualificationPolicy struct{}

// Evaluate derives the decision from Violations.
func (p QualificationPolicy) Evaluate(teacher Teacher, course Course, dept authority.Department) policy.Decision {
	return policy.Decide(p.Violations(teacher, course, dept))
}

// Violations returns every broken rule, in evaluation order.
func (p QualificationPolicy) Violations(teacher Teacher, course Course, dept authority.Department) []policy.Violation {
	assignment := teacher.AssignmentFor(dept)
	if assignment == nil {
		// Short-circuit: nothing downstream is evaluable without a base
		// assignment.
		return []policy.Violation{{
			Code: policy.CodeNoTeachingAssignment,
			Message: fmt.Sprintf("teacher %s has no active teaching assignment in %s",
				teacher.ID, dept.Name),
			Severity:      policy.SeverityError,
			OverrideLevel: policy.LevelPtr(2),
			Metadata:      map[string]any{"teacher_id": teacher.ID, "department_id": dept.ID},
		}}
	}

	var violations []policy.Violation

	switch course.Level {
	case CourseBA:
		if v := p.checkBADegree(teacher, course, dept, *assignment); v != nil {
			violations = append(violations, *v)
		}
	case CourseGraduate:
		if v := p.checkGraduateDegree(teacher, course, *assignment); v != nil {
			violations = append(violations, *v)
		}
	}

	// Level authorization is checked regardless of the degree outcome;
	// both violations can appear together.
	if !assignment.Authorizes(course.Level) {
		violations = append(violations, policy.Violation{
			Code: policy.CodeUnauthorizedTeachingLevel,
			Message: fmt.Sprintf("teacher %s is authorized for %s teaching, course %s requires %s",
				teacher.ID, assignment.AuthorizedLevels, course.Code, course.Level.RequiredTeachingLevel()),
			Severity:      policy.SeverityWarning,
			OverrideLevel: policy.LevelPtr(3),
			Metadata: map[string]any{
				"authorized": string(assignment.AuthorizedLevels),
				"required":   string(course.Level.RequiredTeachingLevel()),
			},
		})
	}

	return violations
}

func (p QualificationPolicy) checkBADegree(teacher Teacher, course Course, dept authority.Department, a Assignment) *policy.Violation {
	if a.MinimumDegree.Advanced() || a.SpecialQualification {
		return nil
	}
	// Native-speaker exception: Bachelors degree is acceptable for BA
	// English courses taught by native speakers in an English department.
	if a.NativeEnglishSpeaker && a.MinimumDegree == DegreeBachelors && IsEnglishDepartment(dept) {
		return nil
	}
	return &policy.Violation{
		Code: policy.CodeInsufficientDegreeBA,
		Message: fmt.Sprintf("teacher %s holds %s, BA course %s requires masters/doctorate (or native-speaker exception)",
			teacher.ID, a.MinimumDegree, course.Code),
		Severity:      policy.SeverityError,
		OverrideLevel: policy.LevelPtr(2),
		Metadata: map[string]any{
			"degree":       string(a.MinimumDegree),
			"course_level": string(course.Level),
		},
	}
}

func (p QualificationPolicy) checkGraduateDegree(teacher Teacher, course Course, a Assignment) *policy.Violation {
	if a.MinimumDegree.Advanced() || a.SpecialQualification {
		return nil
	}
	// Graduate teaching is stricter: Dean-only override, no native-speaker
	// exception.
	return &policy.Violation{
		Code: policy.CodeInsufficientDegreeGrad,
		Message: fmt.Sprintf("teacher %s holds %s, graduate course %s requires masters/doctorate",
			teacher.ID, a.MinimumDegree, course.Code),
		Severity:      policy.SeverityError,
		OverrideLevel: policy.LevelPtr(policy.DeanLevel),
		Metadata: map[string]any{
			"degree":       string(a.MinimumDegree),
			"course_level": string(course.Level),
		},
	}
}
