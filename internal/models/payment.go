package models

import "time"

// Payment methods.
const (
	MethodCash     = "cash"
	MethodCheck    = "check"
	MethodTransfer = "transfer"
	MethodExternal = "external" // inserted by the Contifico sync
)

// ValidMethod reports whether m is a known payment method.
func ValidMethod(m string) bool {
	switch m {
	case MethodCash, MethodCheck, MethodTransfer, MethodExternal:
		return true
	}
	return false
}

// Payment is append-only: corrections are new entries or retention
// adjustments on the invoice, never edits here.
type Payment struct {
	ID          uint    `gorm:"primaryKey"`
	InvoiceID   uint    `gorm:"not null;index"`
	Amount      float64 `gorm:"not null"`
	Method      string  `gorm:"not null"`
	PaymentDate time.Time
	// ExternalReference is the id assigned by the external billing system;
	// the sync adapter deduplicates on it.
	ExternalReference *string `gorm:"uniqueIndex"`
	CheckNumber       string
	Notes             string
	CreatedAt         time.Time
}
