/*
Package billing computes one-time administrative fees and document-quota
charges when a student's cycle status changes.

PURPOSE:
  Two cooperating pieces:
  1. Administrative fee: when a student enters a new cycle (new entry,
     language-to-bachelor transition), a one-time fee is invoiced and a
     document-unit quota is allocated. At most one administrative fee per
     student per term - the operation is idempotent.
  2. Document quota: document requests draw down the quota; units beyond
     the remaining balance are billed as excess at a configured per-unit
     rate. Classic allowance + overage billing.

KEY CONCEPTS IN THIS FILE (types.go):
  - CycleType / FeeConfig / ExcessFeeConfig: configuration snapshots
  - Invoice / LineItem: creation instructions the collaborator persists
  - DocumentQuota: allowance state per student+term
  - DocumentRequest / DocumentCharge: one usage event and its outcome

TRANSACTION CONTRACT:
  The idempotency check ("does an invoice already exist?") MUST run inside
  the same store transaction as the resulting write; the collaborator's
  WithTx provides that boundary. See store.go.

SEE ALSO:
  - service.go: the fee/quota operations
  - store.go:   persistence contract
  - store/memory.go: in-memory store for tests
*/
package billing

import (
	"github.com/keystone/sis-engine/money"
)

// =============================================================================
// CYCLE CONFIGURATION
// =============================================================================

// CycleType identifies the kind of cycle-status change that triggers an
// administrative fee.
type CycleType string

const (
	CycleNewEntry           CycleType = "new_entry"
	CycleLanguageToBachelor CycleType = "language_to_bachelor"
)

// Label returns the display name used in invoice descriptions.
func (c CycleType) Label() string {
	switch c {
	case CycleNewEntry:
		return "New Student Entry"
	case CycleLanguageToBachelor:
		return "Language to Bachelor Transition"
	default:
		return string(c)
	}
}

// FeeConfig is the administrative fee configuration for one cycle type.
type FeeConfig struct {
	CycleType     CycleType
	FeeAmount     money.Amount
	IncludedUnits int
	Active        bool
}

// ExcessFeeConfig sets the per-unit rate for document usage beyond quota.
type ExcessFeeConfig struct {
	CycleType  CycleType
	FeePerUnit money.Amount
	Active     bool
}

// CycleStatus is a student's current cycle state, supplied by the caller.
type CycleStatus struct {
	StudentID string
	CycleType CycleType
	Active    bool
}

// =============================================================================
// INVOICE INSTRUCTIONS
// =============================================================================

type LineItemType string

const (
	LineAdminFee       LineItemType = "admin_fee"
	LineDocumentExcess LineItemType = "doc_excess"
)

// LineItem is one invoice line. Total = UnitPrice * Quantity, rounded by
// the money kernel.
type LineItem struct {
	ID          string
	Type        LineItemType
	Description string
	UnitPrice   money.Amount
	Quantity    int
	Total       money.Amount
}

// Invoice is a creation instruction for the persistence collaborator.
type Invoice struct {
	ID        string
	StudentID string
	TermID    string
	Lines     []LineItem
}

// Total sums the line totals.
func (i Invoice) Total() money.Amount {
	total := money.Zero()
	for _, l := range i.Lines {
		total = total.Add(l.Total)
	}
	return total
}

// =============================================================================
// DOCUMENT QUOTA
// =============================================================================

// DocumentQuota tracks the document-unit allowance for a student+term.
type DocumentQuota struct {
	ID        string
	StudentID string
	TermID    string

	InitialUnits int
	UsedUnits    int
	Active       bool

	// FeeLineItemID links back to the administrative fee that allocated
	// this quota.
	FeeLineItemID string
}

// Remaining returns the unused units, never negative.
func (q DocumentQuota) Remaining() int {
	r := q.InitialUnits - q.UsedUnits
	if r < 0 {
		return 0
	}
	return r
}

// SplitUnits divides a requested unit count into the part covered by the
// remaining quota and the excess part.
func SplitUnits(remaining, requested int) (fromQuota, excess int) {
	if requested <= 0 {
		return 0, 0
	}
	if requested <= remaining {
		return requested, 0
	}
	return remaining, requested - remaining
}

// DocumentRequest is one document-issuance event.
type DocumentRequest struct {
	StudentID    string
	TermID       string
	CycleType    CycleType
	DocumentType string
	Units        int
}

// DocumentCharge is the outcome of processing a request.
type DocumentCharge struct {
	UnitsFromQuota int
	ExcessUnits    int

	// ExcessCharge is nil when the quota covered the whole request.
	ExcessCharge *money.Amount

	InvoiceID  string
	LineItemID string
}

// =============================================================================
// BATCH PROCESSING
// =============================================================================

// BatchError records one failed student in a batch run.
type BatchError struct {
	StudentID string
	Err       string
}

// BatchResult summarizes a bulk fee-application run.
type BatchResult struct {
	Processed    int
	FeesApplied  int
	TotalRevenue money.Amount
	Errors       []BatchError
}
