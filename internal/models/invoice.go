package models

import "time"

// Invoice statuses. Draft invoices never appear in collections views; an
// invoice is cancelled, never deleted.
const (
	StatusDraft             = "draft"
	StatusSent              = "sent"
	StatusPendingValidation = "pending_validation"
	StatusPartial           = "partial"
	StatusPaid              = "paid"
	StatusOverdue           = "overdue"
	StatusCancelled         = "cancelled"
)

// ValidStatus reports whether s is a known invoice status.
func ValidStatus(s string) bool {
	switch s {
	case StatusDraft, StatusSent, StatusPendingValidation, StatusPartial,
		StatusPaid, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

type Invoice struct {
	ID         uint   `gorm:"primaryKey"`
	Number     string `gorm:"uniqueIndex;not null"`
	PropertyID uint   `gorm:"not null;index"`
	ClientID   uint   `gorm:"not null;index"`
	Status     string `gorm:"not null;default:'draft';index"`
	Subtotal   float64
	TaxAmount  float64
	// Total is nullable: legacy rows imported without a total are displayed
	// as "unknown" and reconciled against 0.
	Total            *float64
	Retention        float64 `gorm:"not null;default:0"`
	ProofOfPaymentID *uint
	ProofOfPayment   *ProofOfPayment `gorm:"foreignKey:ProofOfPaymentID"`
	IssueDate        time.Time
	DueDate          time.Time
	Items            []InvoiceItem `gorm:"foreignKey:InvoiceID"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type InvoiceItem struct {
	ID          uint   `gorm:"primaryKey"`
	InvoiceID   uint   `gorm:"not null;index"`
	ServiceCode string `gorm:"not null"`
	Description string `gorm:"not null"`
	Quantity    float64
	UnitPrice   float64
	TaxRate     float64
}

// ProofOfPayment is a receipt uploaded by the payer; the file itself lives in
// external storage, only the reference is kept here.
type ProofOfPayment struct {
	ID          uint   `gorm:"primaryKey"`
	ExternalURL string `gorm:"not null"`
	Filename    string `gorm:"not null"`
	CreatedAt   time.Time
}
