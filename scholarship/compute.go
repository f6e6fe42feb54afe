/*
compute.go - Discount arithmetic on the money kernel

Fixed amounts are capped at the base (a discount never exceeds the bill);
percentage discounts cannot exceed 100%, so the final amount is never
negative on either path.
*/
package scholarship

import "github.com/keystone/sis-engine/money"

// Computation is the monetary outcome the billing collaborator persists.
type Computation struct {
	Original money.Amount
	Discount money.Amount
	Final    money.Amount

	Source              SourceType
	PaymentMode         PaymentMode
	SponsorCode         string
	AwardID             string
	RequiresBulkInvoice bool
}

// ComputeDiscount applies a resolved benefit to a base amount. The base
// may be any representation the money kernel accepts; an unparseable
// input propagates as an error rather than silently zeroing a bill.
func ComputeDiscount(b Benefit, base any) (Computation, error) {
	original, err := money.Normalize(base)
	if err != nil {
		return Computation{}, err
	}

	var discount money.Amount
	switch {
	case !b.HasScholarship:
		discount = money.Zero()
	case b.FixedAmount != nil:
		discount = b.FixedAmount.Min(original)
	default:
		discount = money.Percent(original, b.DiscountPercent)
	}

	return Computation{
		Original:            original,
		Discount:            discount,
		Final:               original.Sub(discount),
		Source:              b.Source,
		PaymentMode:         b.PaymentMode,
		SponsorCode:         b.SponsorCode,
		AwardID:             b.AwardID,
		RequiresBulkInvoice: b.PaymentMode == PayBulkInvoice && b.HasScholarship,
	}, nil
}
