/*
service.go - Administrative fee and document quota operations

OPERATIONS:
  ApplyAdministrativeFee:
    1. Look up the active fee config for the cycle type; none -> no fee,
       return nil.
    2. Any existing invoice for this student+term -> return nil. At most
       one administrative fee per student per term, idempotent.
    3. Create the invoice (one ADMIN_FEE line naming the cycle label) and
       an active document quota linked to the fee line.
    All inside one store transaction.

  ProcessDocumentRequest:
    Draw from the active quota's remaining balance; bill anything beyond
    it at the configured per-unit excess rate, on the term's invoice
    (creating one if needed). No active quota -> the whole request is
    excess.

  ProcessCycleBatch:
    Bulk ApplyAdministrativeFee over a list of cycle statuses, with a
    processed/applied/revenue/errors summary. One student failing does
    not abort the batch.
*/
package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/keystone/sis-engine/ids"
	"github.com/keystone/sis-engine/money"
)

// Service runs fee and quota operations against a transactional store.
type Service struct {
	store TxStore

	// newID is swappable for deterministic tests.
	newID func() string
}

func NewService(store TxStore) *Service {
	return &Service{store: store, newID: ids.New}
}

// =============================================================================
// ADMINISTRATIVE FEE
// =============================================================================

// ApplyAdministrativeFee invoices the one-time fee for a cycle-status
// change and allocates the document quota. Returns nil (no error) when no
// fee applies or one was already invoiced for this student+term.
func (s *Service) ApplyAdministrativeFee(ctx context.Context, termID string, status CycleStatus) (*Invoice, error) {
	if status.StudentID == "" {
		return nil, fmt.Errorf("apply administrative fee: missing student id")
	}

	var invoice *Invoice
	err := s.store.WithTx(ctx, func(tx Store) error {
		cfg, err := tx.FeeConfig(ctx, status.CycleType)
		if errors.Is(err, ErrNotFound) {
			return nil // no active config, no fee
		}
		if err != nil {
			return err
		}

		// Idempotency: the existence check and the write share this
		// transaction, so concurrent requests cannot both pass.
		exists, err := tx.HasInvoice(ctx, status.StudentID, termID)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}

		line := LineItem{
			ID:          s.newID(),
			Type:        LineAdminFee,
			Description: "Administrative Fee - " + status.CycleType.Label(),
			UnitPrice:   cfg.FeeAmount,
			Quantity:    1,
			Total:       cfg.FeeAmount,
		}
		inv := &Invoice{
			ID:        s.newID(),
			StudentID: status.StudentID,
			TermID:    termID,
			Lines:     []LineItem{line},
		}
		if err := tx.CreateInvoice(ctx, inv); err != nil {
			return err
		}

		quota := &DocumentQuota{
			ID:            s.newID(),
			StudentID:     status.StudentID,
			TermID:        termID,
			InitialUnits:  cfg.IncludedUnits,
			UsedUnits:     0,
			Active:        true,
			FeeLineItemID: line.ID,
		}
		if err := tx.CreateQuota(ctx, quota); err != nil {
			return err
		}

		invoice = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// =============================================================================
// DOCUMENT REQUESTS
// =============================================================================

// ProcessDocumentRequest deducts a request from the student's quota and
// bills any excess.
func (s *Service) ProcessDocumentRequest(ctx context.Context, req DocumentRequest) (*DocumentCharge, error) {
	if req.Units <= 0 {
		return nil, fmt.Errorf("process document request: units must be positive, got %d", req.Units)
	}

	var charge DocumentCharge
	err := s.store.WithTx(ctx, func(tx Store) error {
		remaining := 0
		var quota *DocumentQuota

		q, err := tx.ActiveQuota(ctx, req.StudentID, req.TermID)
		switch {
		case errors.Is(err, ErrNotFound):
			// No quota at all: the entire request is excess.
		case err != nil:
			return err
		default:
			quota = q
			remaining = q.Remaining()
		}

		fromQuota, excess := SplitUnits(remaining, req.Units)
		charge = DocumentCharge{UnitsFromQuota: fromQuota, ExcessUnits: excess}

		if fromQuota > 0 {
			if err := tx.SetQuotaUsage(ctx, quota.ID, quota.UsedUnits+fromQuota); err != nil {
				return err
			}
		}
		if excess == 0 {
			return nil
		}

		excessCfg, err := tx.ExcessFeeConfig(ctx, req.CycleType)
		if err != nil {
			return fmt.Errorf("no excess fee rate for cycle %s: %w", req.CycleType, err)
		}

		total, err := money.Mul(excessCfg.FeePerUnit, excess)
		if err != nil {
			return err
		}
		line := LineItem{
			ID:          s.newID(),
			Type:        LineDocumentExcess,
			Description: fmt.Sprintf("Document Excess Fee - %s (%d units)", req.DocumentType, excess),
			UnitPrice:   excessCfg.FeePerUnit,
			Quantity:    excess,
			Total:       total,
		}

		inv, err := tx.InvoiceFor(ctx, req.StudentID, req.TermID)
		switch {
		case errors.Is(err, ErrNotFound):
			inv = &Invoice{
				ID:        s.newID(),
				StudentID: req.StudentID,
				TermID:    req.TermID,
				Lines:     []LineItem{line},
			}
			if err := tx.CreateInvoice(ctx, inv); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := tx.AppendLineItem(ctx, inv.ID, line); err != nil {
				return err
			}
		}

		charge.ExcessCharge = &total
		charge.InvoiceID = inv.ID
		charge.LineItemID = line.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &charge, nil
}

// =============================================================================
// BATCH
// =============================================================================

// ProcessCycleBatch applies the administrative fee for every active cycle
// status. Failures are collected, not fatal.
func (s *Service) ProcessCycleBatch(ctx context.Context, termID string, statuses []CycleStatus) BatchResult {
	result := BatchResult{TotalRevenue: money.Zero()}
	for _, status := range statuses {
		if !status.Active {
			continue
		}
		result.Processed++

		inv, err := s.ApplyAdministrativeFee(ctx, termID, status)
		if err != nil {
			result.Errors = append(result.Errors, BatchError{StudentID: status.StudentID, Err: err.Error()})
			continue
		}
		if inv != nil {
			result.FeesApplied++
			result.TotalRevenue = result.TotalRevenue.Add(inv.Total())
		}
	}
	return result
}
