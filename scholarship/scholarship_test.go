package scholarship_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keystone/sis-engine/money"
	"github.com/keystone/sis-engine/scholarship"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var (
	student  = scholarship.Student{ID: "s-1", Name: "Test Student"}
	fallTerm = scholarship.Term{
		ID:    "2025T3",
		Start: date(2025, time.September, 1),
		End:   date(2025, time.December, 20),
	}
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func pct(v any) money.Amount { return money.MustNormalize(v) }

func sponsor(code string, discount any) scholarship.Sponsor {
	return scholarship.Sponsor{
		Code:                   code,
		Name:                   "Sponsor " + code,
		DefaultDiscountPercent: pct(discount),
		PaymentMode:            scholarship.PayBulkInvoice,
		MOUStart:               date(2024, time.January, 1),
		Active:                 true,
	}
}

func sponsorshipFor(s scholarship.Sponsor) scholarship.Sponsorship {
	return scholarship.Sponsorship{
		Sponsor:   s,
		StudentID: student.ID,
		Start:     date(2025, time.January, 1),
	}
}

func percentAward(id string, percent any) scholarship.Award {
	p := pct(percent)
	return scholarship.Award{
		ID: id, StudentID: student.ID, Percent: &p,
		Status: scholarship.AwardActive,
		Start:  date(2025, time.January, 1),
	}
}

// =============================================================================
// PRECEDENCE
// =============================================================================

func TestResolve_NGOBeatsHigherIndividualAward(t *testing.T) {
	// GIVEN: active NGO sponsorship at 60% AND individual award at 80%
	// THEN: NGO wins unconditionally - sources are never merged
	snap := scholarship.Snapshot{
		Sponsorships: []scholarship.Sponsorship{sponsorshipFor(sponsor("NGO-A", 60))},
		Awards:       []scholarship.Award{percentAward("aw-1", 80)},
	}

	b := scholarship.Resolve(student, fallTerm, snap)
	assert.True(t, b.HasScholarship)
	assert.Equal(t, scholarship.SourceNGO, b.Source)
	assert.Equal(t, "60.00", b.DiscountPercent.String())
	assert.Equal(t, "NGO-A", b.SponsorCode)
	assert.Equal(t, scholarship.PayBulkInvoice, b.PaymentMode)
}

func TestResolve_HighestSponsorPercentageWins(t *testing.T) {
	snap := scholarship.Snapshot{Sponsorships: []scholarship.Sponsorship{
		sponsorshipFor(sponsor("NGO-LOW", 25)),
		sponsorshipFor(sponsor("NGO-HIGH", 75)),
	}}
	b := scholarship.Resolve(student, fallTerm, snap)
	assert.Equal(t, "NGO-HIGH", b.SponsorCode)
}

func TestResolve_EqualPercentageTieBreaksOnLowestCode(t *testing.T) {
	// Deterministic tie-break: lowest sponsor code, regardless of input order.
	snap := scholarship.Snapshot{Sponsorships: []scholarship.Sponsorship{
		sponsorshipFor(sponsor("NGO-B", 50)),
		sponsorshipFor(sponsor("NGO-A", 50)),
	}}
	b := scholarship.Resolve(student, fallTerm, snap)
	assert.Equal(t, "NGO-A", b.SponsorCode)
}

// =============================================================================
// SPONSOR VALIDITY
// =============================================================================

func TestResolve_InactiveSponsorFallsThroughToAward(t *testing.T) {
	inactive := sponsor("NGO-X", 90)
	inactive.Active = false
	snap := scholarship.Snapshot{
		Sponsorships: []scholarship.Sponsorship{sponsorshipFor(inactive)},
		Awards:       []scholarship.Award{percentAward("aw-1", 30)},
	}

	b := scholarship.Resolve(student, fallTerm, snap)
	assert.Equal(t, scholarship.SourceNonNGO, b.Source)
	assert.Equal(t, "aw-1", b.AwardID)
}

func TestResolve_ExpiredMOUNoBenefit(t *testing.T) {
	expired := sponsor("NGO-X", 60)
	expired.MOUEnd = datePtr(2025, time.June, 30) // ends before fall term
	snap := scholarship.Snapshot{Sponsorships: []scholarship.Sponsorship{sponsorshipFor(expired)}}

	b := scholarship.Resolve(student, fallTerm, snap)
	assert.False(t, b.HasScholarship)
	assert.Equal(t, scholarship.SourceNone, b.Source)
	assert.Contains(t, b.Reason, "MOU")
}

func TestResolve_SponsorshipWindowMustOverlapTerm(t *testing.T) {
	sp := sponsorshipFor(sponsor("NGO-A", 60))
	sp.End = datePtr(2025, time.August, 1) // ends before fall term starts
	snap := scholarship.Snapshot{Sponsorships: []scholarship.Sponsorship{sp}}

	b := scholarship.Resolve(student, fallTerm, snap)
	assert.False(t, b.HasScholarship)
}

// =============================================================================
// INDIVIDUAL AWARDS
// =============================================================================

func TestResolve_FixedAmountBeatsHigherPercentage(t *testing.T) {
	fixed := money.MustNormalize("500.00")
	fixedAward := scholarship.Award{
		ID: "aw-fixed", StudentID: student.ID, FixedAmount: &fixed,
		Status: scholarship.AwardApproved, Start: date(2025, time.January, 1),
	}
	snap := scholarship.Snapshot{Awards: []scholarship.Award{percentAward("aw-pct", 95), fixedAward}}

	b := scholarship.Resolve(student, fallTerm, snap)
	require.NotNil(t, b.FixedAmount)
	assert.Equal(t, "500.00", b.FixedAmount.String())
	assert.Equal(t, "aw-fixed", b.AwardID)
}

func TestResolve_SponsorshipLinkedAwardsExcluded(t *testing.T) {
	linked := percentAward("aw-linked", 70)
	linked.SponsorshipLinked = true
	snap := scholarship.Snapshot{Awards: []scholarship.Award{linked, percentAward("aw-own", 40)}}

	b := scholarship.Resolve(student, fallTerm, snap)
	assert.Equal(t, "aw-own", b.AwardID)
}

func TestResolve_UnusableStatusesExcluded(t *testing.T) {
	for _, status := range []scholarship.AwardStatus{
		scholarship.AwardPending, scholarship.AwardExpired, scholarship.AwardRevoked,
	} {
		a := percentAward("aw-1", 50)
		a.Status = status
		b := scholarship.Resolve(student, fallTerm, scholarship.Snapshot{Awards: []scholarship.Award{a}})
		assert.False(t, b.HasScholarship, "status %s should not qualify", status)
	}
}

func TestResolve_NoScholarshipCarriesReason(t *testing.T) {
	b := scholarship.Resolve(student, fallTerm, scholarship.Snapshot{})
	assert.False(t, b.HasScholarship)
	assert.Equal(t, scholarship.SourceNone, b.Source)
	assert.Contains(t, b.Reason, student.ID)
	assert.Contains(t, b.Reason, fallTerm.ID)
}

// =============================================================================
// DISCOUNT COMPUTATION
// =============================================================================

func TestComputeDiscount_Percentage(t *testing.T) {
	b := scholarship.Benefit{
		HasScholarship:  true,
		DiscountPercent: pct(60),
		Source:          scholarship.SourceNGO,
		PaymentMode:     scholarship.PayBulkInvoice,
		SponsorCode:     "NGO-A",
	}
	c, err := scholarship.ComputeDiscount(b, "1000.00")
	require.NoError(t, err)
	assert.Equal(t, "1000.00", c.Original.String())
	assert.Equal(t, "600.00", c.Discount.String())
	assert.Equal(t, "400.00", c.Final.String())
	assert.True(t, c.RequiresBulkInvoice)
}

func TestComputeDiscount_FixedAmountCappedAtBase(t *testing.T) {
	// award 1500.00 against tuition 1000.00: discount caps at the bill,
	// final never goes negative
	fixed := money.MustNormalize("1500.00")
	b := scholarship.Benefit{HasScholarship: true, FixedAmount: &fixed, Source: scholarship.SourceNonNGO, PaymentMode: scholarship.PayDirect}

	c, err := scholarship.ComputeDiscount(b, "1000.00")
	require.NoError(t, err)
	assert.Equal(t, "1000.00", c.Discount.String())
	assert.Equal(t, "0.00", c.Final.String())
	assert.False(t, c.Final.IsNegative())
	assert.False(t, c.RequiresBulkInvoice)
}

func TestComputeDiscount_RoundsViaKernel(t *testing.T) {
	b := scholarship.Benefit{HasScholarship: true, DiscountPercent: pct("33.33")}
	c, err := scholarship.ComputeDiscount(b, "1000.01")
	require.NoError(t, err)
	// 1000.01 * 33.33% = 333.333333 -> 333.33
	assert.Equal(t, "333.33", c.Discount.String())
}

func TestComputeDiscount_NoBenefitPassesThrough(t *testing.T) {
	c, err := scholarship.ComputeDiscount(scholarship.NoBenefit("nothing applies"), 250)
	require.NoError(t, err)
	assert.Equal(t, "0.00", c.Discount.String())
	assert.Equal(t, "250.00", c.Final.String())
}

func TestComputeDiscount_BadBasePropagates(t *testing.T) {
	_, err := scholarship.ComputeDiscount(scholarship.NoBenefit("x"), "one thousand")
	assert.ErrorIs(t, err, money.ErrInvalidNumericInput)
}
