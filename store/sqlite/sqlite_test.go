/*
sqlite_test.go - Tests for the SQLite persistence layer

Tests for:
- Fee configuration upsert and active-only lookup
- Invoice idempotency under WithTx
- Quota usage updates
- Scholarship snapshot loading
*/
package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keystone/sis-engine/billing"
	"github.com/keystone/sis-engine/money"
	"github.com/keystone/sis-engine/scholarship"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestFeeConfigRoundtrip(t *testing.T) {
	// GIVEN: A seeded fee configuration
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveFeeConfig(ctx, billing.FeeConfig{
		CycleType:     billing.CycleNewEntry,
		FeeAmount:     money.MustNormalize("100.00"),
		IncludedUnits: 10,
		Active:        true,
	}))

	// WHEN: Looking it up
	cfg, err := st.FeeConfig(ctx, billing.CycleNewEntry)

	// THEN: The stored values come back normalized
	require.NoError(t, err)
	assert.Equal(t, "100.00", cfg.FeeAmount.String())
	assert.Equal(t, 10, cfg.IncludedUnits)

	// AND: Upserting replaces the previous row
	require.NoError(t, st.SaveFeeConfig(ctx, billing.FeeConfig{
		CycleType:     billing.CycleNewEntry,
		FeeAmount:     money.MustNormalize("150.00"),
		IncludedUnits: 12,
		Active:        true,
	}))
	cfg, err = st.FeeConfig(ctx, billing.CycleNewEntry)
	require.NoError(t, err)
	assert.Equal(t, "150.00", cfg.FeeAmount.String())
}

func TestFeeConfigInactiveHidden(t *testing.T) {
	// GIVEN: A deactivated fee configuration
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveFeeConfig(ctx, billing.FeeConfig{
		CycleType:     billing.CycleLanguageToBachelor,
		FeeAmount:     money.MustNormalize("100.00"),
		IncludedUnits: 10,
		Active:        false,
	}))

	// WHEN/THEN: The lookup reports not found
	_, err := st.FeeConfig(ctx, billing.CycleLanguageToBachelor)
	assert.ErrorIs(t, err, billing.ErrNotFound)
}

func TestInvoiceIdempotencyUnderTx(t *testing.T) {
	// GIVEN: A store and one invoice created inside a transaction
	st := newTestStore(t)
	ctx := context.Background()

	line := billing.LineItem{
		ID:          "line-1",
		Type:        billing.LineAdminFee,
		Description: "Administrative Fee - New Student Entry",
		UnitPrice:   money.MustNormalize("100.00"),
		Quantity:    1,
		Total:       money.MustNormalize("100.00"),
	}

	err := st.WithTx(ctx, func(s billing.Store) error {
		exists, err := s.HasInvoice(ctx, "stu-1", "term-1")
		require.NoError(t, err)
		require.False(t, exists)
		return s.CreateInvoice(ctx, &billing.Invoice{
			ID: "inv-1", StudentID: "stu-1", TermID: "term-1",
			Lines: []billing.LineItem{line},
		})
	})
	require.NoError(t, err)

	// WHEN: A second transaction runs the same check
	err = st.WithTx(ctx, func(s billing.Store) error {
		exists, err := s.HasInvoice(ctx, "stu-1", "term-1")
		require.NoError(t, err)
		// THEN: The existing invoice is visible, so no second insert
		assert.True(t, exists)
		return nil
	})
	require.NoError(t, err)

	inv, err := st.InvoiceFor(ctx, "stu-1", "term-1")
	require.NoError(t, err)
	require.Len(t, inv.Lines, 1)
	assert.Equal(t, "100.00", inv.Total().String())
}

func TestTxRollbackDiscardsWrites(t *testing.T) {
	// GIVEN: A transaction whose callback fails after an insert
	st := newTestStore(t)
	ctx := context.Background()

	err := st.WithTx(ctx, func(s billing.Store) error {
		if err := s.CreateInvoice(ctx, &billing.Invoice{
			ID: "inv-rb", StudentID: "stu-rb", TermID: "term-1",
		}); err != nil {
			return err
		}
		return billing.ErrNotFound
	})
	require.Error(t, err)

	// THEN: The insert never became visible
	exists, err := st.HasInvoice(ctx, "stu-rb", "term-1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestQuotaUsageUpdate(t *testing.T) {
	// GIVEN: An active quota with no usage
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateQuota(ctx, &billing.DocumentQuota{
		ID: "quota-1", StudentID: "stu-1", TermID: "term-1",
		InitialUnits: 10, UsedUnits: 0, Active: true,
		FeeLineItemID: "line-1",
	}))

	// WHEN: Usage is recorded
	require.NoError(t, st.SetQuotaUsage(ctx, "quota-1", 7))

	// THEN: The remaining allowance reflects it
	quota, err := st.ActiveQuota(ctx, "stu-1", "term-1")
	require.NoError(t, err)
	assert.Equal(t, 7, quota.UsedUnits)
	assert.Equal(t, 3, quota.Remaining())
	assert.Equal(t, "line-1", quota.FeeLineItemID)

	// AND: Updating a missing quota reports not found
	assert.ErrorIs(t, st.SetQuotaUsage(ctx, "nope", 1), billing.ErrNotFound)
}

func TestScholarshipSnapshot(t *testing.T) {
	// GIVEN: A sponsor, a sponsorship and an individual award on record
	st := newTestStore(t)
	ctx := context.Background()

	mouEnd := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	sponsor := scholarship.Sponsor{
		Code:                   "NGO-A",
		Name:                   "Aurora Foundation",
		DefaultDiscountPercent: money.MustNormalize("60"),
		PaymentMode:            scholarship.PayBulkInvoice,
		MOUStart:               time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		MOUEnd:                 &mouEnd,
		Active:                 true,
	}
	require.NoError(t, st.SaveSponsor(ctx, sponsor))
	require.NoError(t, st.SaveSponsorship(ctx, "rel-1", scholarship.Sponsorship{
		Sponsor:   sponsor,
		StudentID: "stu-1",
		Start:     time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
	}))

	pct := money.MustNormalize("80")
	require.NoError(t, st.SaveAward(ctx, scholarship.Award{
		ID:        "award-1",
		StudentID: "stu-1",
		Percent:   &pct,
		Status:    scholarship.AwardActive,
		Start:     time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
	}))

	// WHEN: Loading the snapshot
	snap, err := st.ScholarshipSnapshot(ctx, "stu-1")
	require.NoError(t, err)

	// THEN: Sponsorship rows join sponsor fields
	require.Len(t, snap.Sponsorships, 1)
	rel := snap.Sponsorships[0]
	assert.Equal(t, "NGO-A", rel.Sponsor.Code)
	assert.Equal(t, "60.00", rel.Sponsor.DefaultDiscountPercent.String())
	assert.Equal(t, scholarship.PayBulkInvoice, rel.Sponsor.PaymentMode)
	require.NotNil(t, rel.Sponsor.MOUEnd)
	assert.True(t, rel.Sponsor.MOUEnd.Equal(mouEnd))
	assert.Nil(t, rel.End)

	// AND: Awards load with nullable amounts intact
	require.Len(t, snap.Awards, 1)
	award := snap.Awards[0]
	require.NotNil(t, award.Percent)
	assert.Equal(t, "80.00", award.Percent.String())
	assert.Nil(t, award.FixedAmount)
	assert.Equal(t, scholarship.AwardActive, award.Status)

	// AND: A different student sees nothing
	other, err := st.ScholarshipSnapshot(ctx, "stu-2")
	require.NoError(t, err)
	assert.Empty(t, other.Sponsorships)
	assert.Empty(t, other.Awards)
}

func TestBillingServiceAgainstSQLite(t *testing.T) {
	// GIVEN: The billing service backed by the real store
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveFeeConfig(ctx, billing.FeeConfig{
		CycleType:     billing.CycleNewEntry,
		FeeAmount:     money.MustNormalize("100.00"),
		IncludedUnits: 10,
		Active:        true,
	}))
	require.NoError(t, st.SaveExcessFeeConfig(ctx, billing.ExcessFeeConfig{
		CycleType:  billing.CycleNewEntry,
		FeePerUnit: money.MustNormalize("5.00"),
		Active:     true,
	}))

	svc := billing.NewService(st)

	// WHEN: Applying the fee twice and then requesting documents past the allowance
	inv, err := svc.ApplyAdministrativeFee(ctx, "term-1", billing.CycleStatus{
		StudentID: "stu-1", CycleType: billing.CycleNewEntry, Active: true,
	})
	require.NoError(t, err)
	require.NotNil(t, inv)

	dup, err := svc.ApplyAdministrativeFee(ctx, "term-1", billing.CycleStatus{
		StudentID: "stu-1", CycleType: billing.CycleNewEntry, Active: true,
	})
	require.NoError(t, err)
	assert.Nil(t, dup)

	charge, err := svc.ProcessDocumentRequest(ctx, billing.DocumentRequest{
		StudentID: "stu-1", TermID: "term-1",
		CycleType: billing.CycleNewEntry, DocumentType: "transcript", Units: 12,
	})
	require.NoError(t, err)

	// THEN: Ten units come from quota and two are billed at the excess rate
	assert.Equal(t, 10, charge.UnitsFromQuota)
	assert.Equal(t, 2, charge.ExcessUnits)
	require.NotNil(t, charge.ExcessCharge)
	assert.Equal(t, "10.00", charge.ExcessCharge.String())

	final, err := st.InvoiceFor(ctx, "stu-1", "term-1")
	require.NoError(t, err)
	assert.Equal(t, "110.00", final.Total().String())
}
