/*
handlers.go - HTTP API handlers for the policy engine

PURPOSE:
  Exposes the policy engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Policy evaluation:
    POST /api/override/evaluate     Evaluate override authority
    POST /api/teaching/evaluate     Evaluate a teaching assignment

  Scholarship:
    POST /api/scholarship/resolve   Resolve benefit, optionally compute discount

  Billing:
    POST /api/billing/fees          Apply the administrative fee
    POST /api/billing/documents     Process a document request
    POST /api/billing/batch         Run the fee batch for a cohort
    GET  /api/billing/invoices      Look up an invoice by student+term

  Admin:
    POST /api/admin/seed            Load a JSON configuration document

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access (billing state, scholarship records)
  - Billing: The billing service with its transactional rules
  - ConfigFactory: JSON to config conversion

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (policies, resolvers, billing service)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 500: Internal errors
  Policy denials are NOT errors: a DENY decision is a 200 response with
  decision and violations in the body.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/keystone/sis-engine/authority"
	"github.com/keystone/sis-engine/billing"
	"github.com/keystone/sis-engine/factory"
	"github.com/keystone/sis-engine/money"
	"github.com/keystone/sis-engine/policy"
	"github.com/keystone/sis-engine/scholarship"
	"github.com/keystone/sis-engine/store/sqlite"
	"github.com/keystone/sis-engine/teaching"
)

const dateLayout = "2006-01-02"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store         *sqlite.Store
	Billing       *billing.Service
	ConfigFactory *factory.ConfigFactory

	override  authority.OverridePolicy
	teaching  teaching.QualificationPolicy
	resolvers []scholarship.Resolver
}

// NewHandler creates a new handler backed by the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store:         store,
		Billing:       billing.NewService(store),
		ConfigFactory: factory.NewConfigFactory(),
		resolvers:     scholarship.DefaultResolvers(),
	}
}

// =============================================================================
// POLICY EVALUATION HANDLERS
// =============================================================================

// EvaluateOverride evaluates whether a user may override a policy type.
// POST /api/override/evaluate
func (h *Handler) EvaluateOverride(w http.ResponseWriter, r *http.Request) {
	var req OverrideEvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	domainReq := authority.OverrideRequest{
		PolicyType: policy.Type(req.PolicyType),
	}
	if req.User != nil {
		domainReq.User = req.User.toDomain()
	}
	if req.Department != nil {
		dept := req.Department.toDomain()
		domainReq.Department = &dept
	}

	decision, violations, err := h.override.Evaluate(domainReq)
	if err != nil {
		status := http.StatusInternalServerError
		if policy.IsClientError(err) {
			status = http.StatusBadRequest
		}
		writeError(w, status, "Override evaluation failed", err)
		return
	}

	writeJSON(w, http.StatusOK, toEvaluationDTO(decision, violations))
	recordDecision("override", decision)
}

// EvaluateTeaching evaluates a teaching assignment against the
// qualification rules.
// POST /api/teaching/evaluate
func (h *Handler) EvaluateTeaching(w http.ResponseWriter, r *http.Request) {
	var req TeachingEvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Teacher.ID == "" {
		writeError(w, http.StatusBadRequest, "teacher.id is required", nil)
		return
	}
	switch teaching.CourseLevel(req.Course.Level) {
	case teaching.CourseBA, teaching.CourseGraduate:
	default:
		writeError(w, http.StatusBadRequest, "course.level must be BA or GRADUATE", nil)
		return
	}

	teacher := req.Teacher.toDomain()
	course := req.Course.toDomain()
	violations := h.teaching.Violations(teacher, course, course.Department)
	decision := policy.Decide(violations)

	writeJSON(w, http.StatusOK, toEvaluationDTO(decision, violations))
	recordDecision("teaching", decision)
}

// =============================================================================
// SCHOLARSHIP HANDLERS
// =============================================================================

// ResolveScholarship resolves the student's benefit for a term from the
// stored sponsorships and awards, and computes the discount when a base
// amount is supplied.
// POST /api/scholarship/resolve
func (h *Handler) ResolveScholarship(w http.ResponseWriter, r *http.Request) {
	var req ScholarshipResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.StudentID == "" || req.TermID == "" {
		writeError(w, http.StatusBadRequest, "student_id and term_id are required", nil)
		return
	}

	start, err := time.Parse(dateLayout, req.TermStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid term_start format (use YYYY-MM-DD)", err)
		return
	}
	end, err := time.Parse(dateLayout, req.TermEnd)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid term_end format (use YYYY-MM-DD)", err)
		return
	}

	snap, err := h.Store.ScholarshipSnapshot(r.Context(), req.StudentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scholarship records", err)
		return
	}

	student := scholarship.Student{ID: req.StudentID}
	term := scholarship.Term{ID: req.TermID, Start: start, End: end}
	benefit := scholarship.ResolveWith(h.resolvers, student, term, snap)

	resp := ScholarshipResolveResponse{Benefit: toBenefitDTO(benefit)}
	if req.BaseAmount != "" {
		comp, err := scholarship.ComputeDiscount(benefit, req.BaseAmount)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, money.ErrInvalidNumericInput) {
				status = http.StatusBadRequest
			}
			writeError(w, status, "Failed to compute discount", err)
			return
		}
		resp.Computation = &ComputationDTO{
			Original:            comp.Original.String(),
			Discount:            comp.Discount.String(),
			Final:               comp.Final.String(),
			RequiresBulkInvoice: comp.RequiresBulkInvoice,
		}
	}

	writeJSON(w, http.StatusOK, resp)
	scholarshipResolutions.WithLabelValues(string(benefit.Source)).Inc()
}

func toBenefitDTO(b scholarship.Benefit) BenefitDTO {
	dto := BenefitDTO{
		HasScholarship: b.HasScholarship,
		Source:         string(b.Source),
		PaymentMode:    string(b.PaymentMode),
		SponsorCode:    b.SponsorCode,
		AwardID:        b.AwardID,
		Reason:         b.Reason,
	}
	if b.HasScholarship {
		if b.FixedAmount != nil {
			dto.FixedAmount = b.FixedAmount.String()
		} else {
			dto.DiscountPercent = b.DiscountPercent.String()
		}
	}
	return dto
}

// =============================================================================
// BILLING HANDLERS
// =============================================================================

// ApplyFee applies the administrative fee for one student's cycle.
// POST /api/billing/fees
func (h *Handler) ApplyFee(w http.ResponseWriter, r *http.Request) {
	var req ApplyFeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.StudentID == "" || req.TermID == "" {
		writeError(w, http.StatusBadRequest, "student_id and term_id are required", nil)
		return
	}

	inv, err := h.Billing.ApplyAdministrativeFee(r.Context(), req.TermID, billing.CycleStatus{
		StudentID: req.StudentID,
		CycleType: billing.CycleType(req.CycleType),
		Active:    true,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to apply fee", err)
		return
	}
	if inv == nil {
		// Already applied, or no active fee config for this cycle.
		writeJSON(w, http.StatusOK, map[string]any{"applied": false})
		return
	}

	writeJSON(w, http.StatusCreated, toInvoiceDTO(inv))
	feesApplied.Inc()
}

// ProcessDocuments charges a document request against the student's quota.
// POST /api/billing/documents
func (h *Handler) ProcessDocuments(w http.ResponseWriter, r *http.Request) {
	var req DocumentChargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Units <= 0 {
		writeError(w, http.StatusBadRequest, "units must be positive", nil)
		return
	}

	charge, err := h.Billing.ProcessDocumentRequest(r.Context(), billing.DocumentRequest{
		StudentID:    req.StudentID,
		TermID:       req.TermID,
		CycleType:    billing.CycleType(req.CycleType),
		DocumentType: req.DocumentType,
		Units:        req.Units,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to process document request", err)
		return
	}

	dto := ChargeDTO{
		UnitsFromQuota: charge.UnitsFromQuota,
		ExcessUnits:    charge.ExcessUnits,
		InvoiceID:      charge.InvoiceID,
		LineItemID:     charge.LineItemID,
	}
	if charge.ExcessCharge != nil {
		dto.ExcessCharge = charge.ExcessCharge.String()
	}
	writeJSON(w, http.StatusOK, dto)
	documentUnits.WithLabelValues("quota").Add(float64(charge.UnitsFromQuota))
	documentUnits.WithLabelValues("excess").Add(float64(charge.ExcessUnits))
}

// RunBatch applies administrative fees for a whole cohort.
// POST /api/billing/batch
func (h *Handler) RunBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.TermID == "" {
		writeError(w, http.StatusBadRequest, "term_id is required", nil)
		return
	}

	statuses := make([]billing.CycleStatus, len(req.Statuses))
	for i, s := range req.Statuses {
		statuses[i] = billing.CycleStatus{
			StudentID: s.StudentID,
			CycleType: billing.CycleType(s.CycleType),
			Active:    s.Active,
		}
	}

	result := h.Billing.ProcessCycleBatch(r.Context(), req.TermID, statuses)

	dto := BatchResultDTO{
		Processed:    result.Processed,
		FeesApplied:  result.FeesApplied,
		TotalRevenue: result.TotalRevenue.String(),
	}
	for _, e := range result.Errors {
		dto.Errors = append(dto.Errors, BatchErrorDTO{StudentID: e.StudentID, Error: e.Err})
	}
	writeJSON(w, http.StatusOK, dto)
	feesApplied.Add(float64(result.FeesApplied))
}

// GetInvoice looks up the invoice for a student and term.
// GET /api/billing/invoices?student_id=...&term_id=...
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	studentID := r.URL.Query().Get("student_id")
	termID := r.URL.Query().Get("term_id")
	if studentID == "" || termID == "" {
		writeError(w, http.StatusBadRequest, "student_id and term_id are required", nil)
		return
	}

	inv, err := h.Store.InvoiceFor(r.Context(), studentID, termID)
	if err != nil {
		if errors.Is(err, billing.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Invoice not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(inv))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// LoadSeed parses a JSON configuration document and saves every record.
// POST /api/admin/seed
func (h *Handler) LoadSeed(w http.ResponseWriter, r *http.Request) {
	var sj factory.SeedJSON
	if err := json.NewDecoder(r.Body).Decode(&sj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	seed, err := h.ConfigFactory.FromJSON(sj)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid configuration", err)
		return
	}

	ctx := r.Context()
	for _, cfg := range seed.FeeConfigs {
		if err := h.Store.SaveFeeConfig(ctx, cfg); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save fee config", err)
			return
		}
	}
	for _, cfg := range seed.ExcessFeeConfigs {
		if err := h.Store.SaveExcessFeeConfig(ctx, cfg); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save excess fee config", err)
			return
		}
	}
	for _, sp := range seed.Sponsors {
		if err := h.Store.SaveSponsor(ctx, sp); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save sponsor", err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"fee_configs":        len(seed.FeeConfigs),
		"excess_fee_configs": len(seed.ExcessFeeConfigs),
		"sponsors":           len(seed.Sponsors),
	})
}

// Health reports liveness.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
