/*
store.go - Persistence contract between the billing service and its
collaborator

PURPOSE:
  The billing core owns no persistence. The collaborator implements this
  interface (SQLite here, PostgreSQL in production - same patterns) and
  provides the transactional boundary the idempotency contract requires:
  "check existing invoice, then create" must happen inside ONE transaction
  so concurrent requests cannot double-invoice, and quota decrements must
  not lose updates under concurrency.

IMPLEMENTATIONS:
  - store/sqlite (top level): production store
  - billing/store:            in-memory store for tests
*/
package billing

import (
	"context"
	"errors"
)

// ErrNotFound is returned by store lookups when no matching record
// exists. Use with errors.Is().
var ErrNotFound = errors.New("record not found")

// Store is the persistence surface the billing service needs. Lookups for
// configs and quotas return only ACTIVE records; absence is ErrNotFound.
type Store interface {
	// FeeConfig returns the active administrative fee config for a cycle.
	FeeConfig(ctx context.Context, cycle CycleType) (*FeeConfig, error)

	// ExcessFeeConfig returns the active per-unit excess rate for a cycle.
	ExcessFeeConfig(ctx context.Context, cycle CycleType) (*ExcessFeeConfig, error)

	// HasInvoice reports whether ANY invoice exists for student+term,
	// regardless of which service created it.
	HasInvoice(ctx context.Context, studentID, termID string) (bool, error)

	// CreateInvoice persists an invoice with its line items.
	CreateInvoice(ctx context.Context, inv *Invoice) error

	// InvoiceFor returns the invoice for student+term, or ErrNotFound.
	InvoiceFor(ctx context.Context, studentID, termID string) (*Invoice, error)

	// AppendLineItem adds a line to an existing invoice.
	AppendLineItem(ctx context.Context, invoiceID string, line LineItem) error

	// ActiveQuota returns the active document quota for student+term,
	// or ErrNotFound.
	ActiveQuota(ctx context.Context, studentID, termID string) (*DocumentQuota, error)

	// CreateQuota persists a new document quota.
	CreateQuota(ctx context.Context, q *DocumentQuota) error

	// SetQuotaUsage updates the used-unit count of a quota.
	SetQuotaUsage(ctx context.Context, quotaID string, usedUnits int) error
}

// TxStore wraps Store with a transactional boundary. WithTx executes fn
// against a transactional view; fn returning an error rolls everything
// back. The billing service runs every read-check-write sequence through
// WithTx; implementations must make that boundary atomic.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
