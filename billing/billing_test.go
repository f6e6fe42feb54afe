package billing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keystone/sis-engine/billing"
	"github.com/keystone/sis-engine/billing/store"
	"github.com/keystone/sis-engine/money"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const term = "2025T1"

func newTestService(t *testing.T) (*billing.Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	mem.SeedFeeConfig(billing.FeeConfig{
		CycleType:     billing.CycleNewEntry,
		FeeAmount:     money.MustNormalize("100.00"),
		IncludedUnits: 10,
		Active:        true,
	})
	mem.SeedExcessFeeConfig(billing.ExcessFeeConfig{
		CycleType:  billing.CycleNewEntry,
		FeePerUnit: money.MustNormalize("5.00"),
		Active:     true,
	})
	return billing.NewService(mem), mem
}

func newEntry(studentID string) billing.CycleStatus {
	return billing.CycleStatus{StudentID: studentID, CycleType: billing.CycleNewEntry, Active: true}
}

// =============================================================================
// ADMINISTRATIVE FEE
// =============================================================================

func TestApplyAdministrativeFee_CreatesInvoiceAndQuota(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()

	inv, err := svc.ApplyAdministrativeFee(ctx, term, newEntry("s-1"))
	require.NoError(t, err)
	require.NotNil(t, inv)

	require.Len(t, inv.Lines, 1)
	line := inv.Lines[0]
	assert.Equal(t, billing.LineAdminFee, line.Type)
	assert.Equal(t, "Administrative Fee - New Student Entry", line.Description)
	assert.Equal(t, "100.00", line.Total.String())
	assert.Equal(t, "100.00", inv.Total().String())

	quota, err := mem.ActiveQuota(ctx, "s-1", term)
	require.NoError(t, err)
	assert.Equal(t, 10, quota.InitialUnits)
	assert.Equal(t, 0, quota.UsedUnits)
	assert.Equal(t, line.ID, quota.FeeLineItemID)
}

func TestApplyAdministrativeFee_Idempotent(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()

	first, err := svc.ApplyAdministrativeFee(ctx, term, newEntry("s-1"))
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := svc.ApplyAdministrativeFee(ctx, term, newEntry("s-1"))
	require.NoError(t, err)
	assert.Nil(t, second, "second application must be a no-op")
	assert.Equal(t, 1, mem.InvoiceCount())
}

func TestApplyAdministrativeFee_NoActiveConfig(t *testing.T) {
	svc := billing.NewService(store.NewMemory())
	inv, err := svc.ApplyAdministrativeFee(context.Background(), term, newEntry("s-1"))
	require.NoError(t, err)
	assert.Nil(t, inv, "no active config means no fee")
}

func TestApplyAdministrativeFee_LanguageToBachelorLabel(t *testing.T) {
	mem := store.NewMemory()
	mem.SeedFeeConfig(billing.FeeConfig{
		CycleType:     billing.CycleLanguageToBachelor,
		FeeAmount:     money.MustNormalize("80.00"),
		IncludedUnits: 5,
		Active:        true,
	})
	svc := billing.NewService(mem)

	inv, err := svc.ApplyAdministrativeFee(context.Background(), term, billing.CycleStatus{
		StudentID: "s-1", CycleType: billing.CycleLanguageToBachelor, Active: true,
	})
	require.NoError(t, err)
	require.NotNil(t, inv)
	assert.Equal(t, "Administrative Fee - Language to Bachelor Transition", inv.Lines[0].Description)
}

// =============================================================================
// DOCUMENT REQUESTS
// =============================================================================

func TestProcessDocumentRequest_WithinQuota(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	_, err := svc.ApplyAdministrativeFee(ctx, term, newEntry("s-1"))
	require.NoError(t, err)

	charge, err := svc.ProcessDocumentRequest(ctx, billing.DocumentRequest{
		StudentID: "s-1", TermID: term, CycleType: billing.CycleNewEntry,
		DocumentType: "transcript", Units: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, charge.UnitsFromQuota)
	assert.Equal(t, 0, charge.ExcessUnits)
	assert.Nil(t, charge.ExcessCharge)

	quota, err := mem.ActiveQuota(ctx, "s-1", term)
	require.NoError(t, err)
	assert.Equal(t, 4, quota.UsedUnits)
}

func TestProcessDocumentRequest_OverageBilling(t *testing.T) {
	// GIVEN: quota 10 units with 8 used
	// WHEN: a 3-unit request arrives
	// THEN: 2 drawn from quota (now exhausted), 1 billed at the per-unit rate
	svc, mem := newTestService(t)
	ctx := context.Background()
	_, err := svc.ApplyAdministrativeFee(ctx, term, newEntry("s-1"))
	require.NoError(t, err)

	quota, err := mem.ActiveQuota(ctx, "s-1", term)
	require.NoError(t, err)
	require.NoError(t, mem.SetQuotaUsage(ctx, quota.ID, 8))

	charge, err := svc.ProcessDocumentRequest(ctx, billing.DocumentRequest{
		StudentID: "s-1", TermID: term, CycleType: billing.CycleNewEntry,
		DocumentType: "transcript", Units: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, charge.UnitsFromQuota)
	assert.Equal(t, 1, charge.ExcessUnits)
	require.NotNil(t, charge.ExcessCharge)
	assert.Equal(t, "5.00", charge.ExcessCharge.String())

	quota, err = mem.ActiveQuota(ctx, "s-1", term)
	require.NoError(t, err)
	assert.Equal(t, 10, quota.UsedUnits)
	assert.Equal(t, 0, quota.Remaining())

	// The excess landed on the existing term invoice as a second line.
	inv, err := mem.InvoiceFor(ctx, "s-1", term)
	require.NoError(t, err)
	require.Len(t, inv.Lines, 2)
	assert.Equal(t, billing.LineDocumentExcess, inv.Lines[1].Type)
	assert.Equal(t, 1, inv.Lines[1].Quantity)
	assert.Equal(t, "105.00", inv.Total().String())
}

func TestProcessDocumentRequest_NoQuotaAllExcess(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	charge, err := svc.ProcessDocumentRequest(ctx, billing.DocumentRequest{
		StudentID: "s-2", TermID: term, CycleType: billing.CycleNewEntry,
		DocumentType: "certificate", Units: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, charge.UnitsFromQuota)
	assert.Equal(t, 3, charge.ExcessUnits)
	require.NotNil(t, charge.ExcessCharge)
	assert.Equal(t, "15.00", charge.ExcessCharge.String())
	assert.NotEmpty(t, charge.InvoiceID, "excess with no invoice creates one")
}

func TestProcessDocumentRequest_RejectsNonPositiveUnits(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.ProcessDocumentRequest(context.Background(), billing.DocumentRequest{
		StudentID: "s-1", TermID: term, Units: 0,
	})
	assert.Error(t, err)
}

// =============================================================================
// BATCH PROCESSING
// =============================================================================

func TestProcessCycleBatch_EndToEnd(t *testing.T) {
	// 3 students, $100 fee each: processed=3, applied=3, revenue=$300.00
	svc, _ := newTestService(t)
	statuses := []billing.CycleStatus{newEntry("s-1"), newEntry("s-2"), newEntry("s-3")}

	result := svc.ProcessCycleBatch(context.Background(), term, statuses)
	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 3, result.FeesApplied)
	assert.Equal(t, "300.00", result.TotalRevenue.String())
	assert.Empty(t, result.Errors)
}

func TestProcessCycleBatch_SkipsInactiveAndDeduplicates(t *testing.T) {
	svc, _ := newTestService(t)
	statuses := []billing.CycleStatus{
		newEntry("s-1"),
		{StudentID: "s-2", CycleType: billing.CycleNewEntry, Active: false},
		newEntry("s-1"), // duplicate: idempotency keeps it to one fee
	}

	result := svc.ProcessCycleBatch(context.Background(), term, statuses)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.FeesApplied)
	assert.Equal(t, "100.00", result.TotalRevenue.String())
}

func TestProcessCycleBatch_CollectsErrors(t *testing.T) {
	svc, _ := newTestService(t)
	result := svc.ProcessCycleBatch(context.Background(), term, []billing.CycleStatus{
		{StudentID: "", CycleType: billing.CycleNewEntry, Active: true},
		newEntry("s-1"),
	})
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.FeesApplied)
	require.Len(t, result.Errors, 1)
}

func TestSplitUnits(t *testing.T) {
	cases := []struct {
		remaining, requested, fromQuota, excess int
	}{
		{10, 3, 3, 0},
		{2, 3, 2, 1},
		{0, 3, 0, 3},
		{5, 5, 5, 0},
		{5, 0, 0, 0},
	}
	for _, c := range cases {
		fromQuota, excess := billing.SplitUnits(c.remaining, c.requested)
		assert.Equal(t, c.fromQuota, fromQuota, "remaining=%d requested=%d", c.remaining, c.requested)
		assert.Equal(t, c.excess, excess, "remaining=%d requested=%d", c.remaining, c.requested)
	}
}
