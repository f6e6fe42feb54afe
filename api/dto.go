/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Policy evaluation:
    ViolationDTO, EvaluationDTO

  Override authority:
    OverrideEvaluateRequest, UserDTO, PositionDTO

  Teaching qualification:
    TeachingEvaluateRequest, TeacherDTO, CourseDTO

  Scholarship:
    ScholarshipResolveRequest, BenefitDTO, ComputationDTO

  Billing:
    ApplyFeeRequest, DocumentChargeRequest, BatchRequest,
    InvoiceDTO, LineItemDTO, ChargeDTO, BatchResultDTO

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/config.go: SeedJSON used by the seed endpoint
*/
package api

import (
	"github.com/keystone/sis-engine/authority"
	"github.com/keystone/sis-engine/billing"
	"github.com/keystone/sis-engine/policy"
	"github.com/keystone/sis-engine/teaching"
)

// =============================================================================
// SHARED TYPES
// =============================================================================

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ViolationDTO represents one policy violation in API responses.
type ViolationDTO struct {
	Code          string         `json:"code"`
	Message       string         `json:"message"`
	Severity      string         `json:"severity"`
	Overridable   bool           `json:"overridable"`
	OverrideLevel *int           `json:"override_level,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// EvaluationDTO is the standard shape for every policy evaluation response.
type EvaluationDTO struct {
	Decision   string         `json:"decision"`
	Violations []ViolationDTO `json:"violations"`
}

func toViolationDTOs(violations []policy.Violation) []ViolationDTO {
	dtos := make([]ViolationDTO, len(violations))
	for i, v := range violations {
		dto := ViolationDTO{
			Code:        string(v.Code),
			Message:     v.Message,
			Severity:    string(v.Severity),
			Overridable: v.Overridable(),
			Metadata:    v.Metadata,
		}
		if v.OverrideLevel != nil {
			lvl := int(*v.OverrideLevel)
			dto.OverrideLevel = &lvl
		}
		dtos[i] = dto
	}
	return dtos
}

func toEvaluationDTO(decision policy.Decision, violations []policy.Violation) EvaluationDTO {
	return EvaluationDTO{
		Decision:   string(decision),
		Violations: toViolationDTOs(violations),
	}
}

// =============================================================================
// OVERRIDE AUTHORITY
// =============================================================================

// DepartmentDTO represents an institutional department.
type DepartmentDTO struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// PositionDTO represents an institutional position.
type PositionDTO struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Level       int            `json:"level"`
	Department  *DepartmentDTO `json:"department,omitempty"`
	CanOverride []string       `json:"can_override,omitempty"`
}

// PositionAssignmentDTO represents one position held by a user, with an
// optional acting delegate.
type PositionAssignmentDTO struct {
	Position PositionDTO  `json:"position"`
	Delegate *PositionDTO `json:"delegate,omitempty"`
	Current  bool         `json:"current"`
}

// UserDTO represents the acting user with their position assignments.
type UserDTO struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name"`
	Assignments []PositionAssignmentDTO `json:"assignments"`
}

// OverrideEvaluateRequest asks whether a user may override a policy type.
type OverrideEvaluateRequest struct {
	User       *UserDTO       `json:"user"`
	Department *DepartmentDTO `json:"department,omitempty"`
	PolicyType string         `json:"policy_type"`
}

func (d DepartmentDTO) toDomain() authority.Department {
	return authority.Department{ID: d.ID, Code: d.Code, Name: d.Name}
}

func (d PositionDTO) toDomain() authority.Position {
	pos := authority.Position{
		ID:    d.ID,
		Title: d.Title,
		Level: policy.Level(d.Level),
	}
	if d.Department != nil {
		dept := d.Department.toDomain()
		pos.Department = &dept
	}
	if len(d.CanOverride) > 0 {
		pos.CanOverride = make(map[policy.Type]bool, len(d.CanOverride))
		for _, t := range d.CanOverride {
			pos.CanOverride[policy.Type(t)] = true
		}
	}
	return pos
}

func (d UserDTO) toDomain() *authority.User {
	user := &authority.User{ID: d.ID, Name: d.Name}
	for _, a := range d.Assignments {
		assignment := authority.PositionAssignment{
			Position: a.Position.toDomain(),
			Current:  a.Current,
		}
		if a.Delegate != nil {
			delegate := a.Delegate.toDomain()
			assignment.Delegate = &delegate
		}
		user.Assignments = append(user.Assignments, assignment)
	}
	return user
}

// =============================================================================
// TEACHING QUALIFICATION
// =============================================================================

// TeachingAssignmentDTO represents a teacher's qualification record for
// one department.
type TeachingAssignmentDTO struct {
	Department           DepartmentDTO `json:"department"`
	MinimumDegree        string        `json:"minimum_degree"`
	NativeEnglishSpeaker bool          `json:"native_english_speaker"`
	SpecialQualification bool          `json:"special_qualification"`
	AuthorizedLevels     string        `json:"authorized_levels"`
	Active               bool          `json:"active"`
	Current              bool          `json:"current"`
}

// TeacherDTO represents the teacher snapshot under evaluation.
type TeacherDTO struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name"`
	Assignments []TeachingAssignmentDTO `json:"assignments"`
}

// CourseDTO represents the course being assigned.
type CourseDTO struct {
	Code       string        `json:"code"`
	Title      string        `json:"title"`
	Level      string        `json:"level"` // BA, GRADUATE
	Department DepartmentDTO `json:"department"`
}

// TeachingEvaluateRequest asks whether a teacher may be assigned a course.
type TeachingEvaluateRequest struct {
	Teacher TeacherDTO `json:"teacher"`
	Course  CourseDTO  `json:"course"`
}

func (d TeacherDTO) toDomain() teaching.Teacher {
	t := teaching.Teacher{ID: d.ID, Name: d.Name}
	for _, a := range d.Assignments {
		t.Assignments = append(t.Assignments, teaching.Assignment{
			Department:           a.Department.toDomain(),
			MinimumDegree:        teaching.Degree(a.MinimumDegree),
			NativeEnglishSpeaker: a.NativeEnglishSpeaker,
			SpecialQualification: a.SpecialQualification,
			AuthorizedLevels:     teaching.TeachingLevel(a.AuthorizedLevels),
			Active:               a.Active,
			Current:              a.Current,
		})
	}
	return t
}

func (d CourseDTO) toDomain() teaching.Course {
	return teaching.Course{
		Code:       d.Code,
		Title:      d.Title,
		Level:      teaching.CourseLevel(d.Level),
		Department: d.Department.toDomain(),
	}
}

// =============================================================================
// SCHOLARSHIP
// =============================================================================

// ScholarshipResolveRequest resolves a student's benefit for a term and,
// when base_amount is present, computes the discounted invoice total.
type ScholarshipResolveRequest struct {
	StudentID  string `json:"student_id"`
	TermID     string `json:"term_id"`
	TermStart  string `json:"term_start"` // YYYY-MM-DD
	TermEnd    string `json:"term_end"`   // YYYY-MM-DD
	BaseAmount string `json:"base_amount,omitempty"`
}

// BenefitDTO represents the resolved scholarship benefit.
type BenefitDTO struct {
	HasScholarship  bool   `json:"has_scholarship"`
	Source          string `json:"source"`
	DiscountPercent string `json:"discount_percent,omitempty"`
	FixedAmount     string `json:"fixed_amount,omitempty"`
	PaymentMode     string `json:"payment_mode,omitempty"`
	SponsorCode     string `json:"sponsor_code,omitempty"`
	AwardID         string `json:"award_id,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

// ComputationDTO represents the discount applied to a base amount.
type ComputationDTO struct {
	Original            string `json:"original"`
	Discount            string `json:"discount"`
	Final               string `json:"final"`
	RequiresBulkInvoice bool   `json:"requires_bulk_invoice"`
}

// ScholarshipResolveResponse bundles the benefit with the optional
// computation.
type ScholarshipResolveResponse struct {
	Benefit     BenefitDTO      `json:"benefit"`
	Computation *ComputationDTO `json:"computation,omitempty"`
}

// =============================================================================
// BILLING
// =============================================================================

// ApplyFeeRequest applies the administrative fee for one student's cycle.
type ApplyFeeRequest struct {
	StudentID string `json:"student_id"`
	TermID    string `json:"term_id"`
	CycleType string `json:"cycle_type"`
}

// DocumentChargeRequest processes a document request against the quota.
type DocumentChargeRequest struct {
	StudentID    string `json:"student_id"`
	TermID       string `json:"term_id"`
	CycleType    string `json:"cycle_type"`
	DocumentType string `json:"document_type"`
	Units        int    `json:"units"`
}

// BatchRequest processes administrative fees for a whole cycle cohort.
type BatchRequest struct {
	TermID   string           `json:"term_id"`
	Statuses []CycleStatusDTO `json:"statuses"`
}

// CycleStatusDTO represents one student's standing in a billing cycle.
type CycleStatusDTO struct {
	StudentID string `json:"student_id"`
	CycleType string `json:"cycle_type"`
	Active    bool   `json:"active"`
}

// LineItemDTO represents one invoice line.
type LineItemDTO struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Description string `json:"description"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	Total       string `json:"total"`
}

// InvoiceDTO represents an invoice with its lines and total.
type InvoiceDTO struct {
	ID        string        `json:"id"`
	StudentID string        `json:"student_id"`
	TermID    string        `json:"term_id"`
	Lines     []LineItemDTO `json:"lines"`
	Total     string        `json:"total"`
}

// ChargeDTO represents the outcome of a document request.
type ChargeDTO struct {
	UnitsFromQuota int    `json:"units_from_quota"`
	ExcessUnits    int    `json:"excess_units"`
	ExcessCharge   string `json:"excess_charge,omitempty"`
	InvoiceID      string `json:"invoice_id,omitempty"`
	LineItemID     string `json:"line_item_id,omitempty"`
}

// BatchErrorDTO represents one failed student in a batch run.
type BatchErrorDTO struct {
	StudentID string `json:"student_id"`
	Error     string `json:"error"`
}

// BatchResultDTO summarizes a batch fee run.
type BatchResultDTO struct {
	Processed    int             `json:"processed"`
	FeesApplied  int             `json:"fees_applied"`
	TotalRevenue string          `json:"total_revenue"`
	Errors       []BatchErrorDTO `json:"errors,omitempty"`
}

func toInvoiceDTO(inv *billing.Invoice) InvoiceDTO {
	dto := InvoiceDTO{
		ID:        inv.ID,
		StudentID: inv.StudentID,
		TermID:    inv.TermID,
		Lines:     make([]LineItemDTO, len(inv.Lines)),
		Total:     inv.Total().String(),
	}
	for i, line := range inv.Lines {
		dto.Lines[i] = LineItemDTO{
			ID:          line.ID,
			Type:        string(line.Type),
			Description: line.Description,
			UnitPrice:   line.UnitPrice.String(),
			Quantity:    line.Quantity,
			Total:       line.Total.String(),
		}
	}
	return dto
}
