package services

import (
	"github.com/propadmin/backoffice/internal/models"
)

// Balance is the reconciled view of an invoice against its payments and
// accumulated retention. Pure data; derived values are rounded to 2 decimals.
type Balance struct {
	AmountPaid    float64 `json:"amount_paid"`
	TotalCredited float64 `json:"total_credited"`
	Outstanding   float64 `json:"outstanding"`
	// TotalKnown is false when the invoice total is missing (legacy import);
	// balance math then treats the total as 0 and the UI shows "unknown".
	TotalKnown bool `json:"total_known"`
}

// Reconcile derives the balance for an invoice from its payment list and
// retention. No side effects; callers decide what to do with the result.
func Reconcile(inv models.Invoice, payments []models.Payment) Balance {
	var paid float64
	for _, p := range payments {
		paid += p.Amount
	}
	paid = RoundMoney(paid)
	credited := RoundMoney(paid + inv.Retention)

	total := 0.0
	known := inv.Total != nil
	if known {
		total = *inv.Total
	}
	outstanding := RoundMoney(total - credited)
	if outstanding < 0 {
		outstanding = 0
	}
	return Balance{
		AmountPaid:    paid,
		TotalCredited: credited,
		Outstanding:   outstanding,
		TotalKnown:    known,
	}
}

// Settled reports whether the credited amount covers the invoice total.
// Overpayment counts as settled; an unknown total never settles by credit.
func (b Balance) Settled(inv models.Invoice) bool {
	if inv.Total == nil {
		return false
	}
	return b.TotalCredited >= *inv.Total
}
