package models

import "time"

// BillingConfiguration caches a rate/tax decision for a property+client+
// service so the next billing run reuses it without re-entry. One active row
// per key; recalculation upserts it best-effort.
type BillingConfiguration struct {
	ID              uint `gorm:"primaryKey"`
	PropertyID      uint `gorm:"not null;index:idx_billing_config_key"`
	ClientID        uint `gorm:"not null;index:idx_billing_config_key"`
	ServiceID       uint `gorm:"not null;index:idx_billing_config_key"`
	AppliesTax      bool
	TaxRate         float64
	SpecialBaseRate float64
	Active          bool `gorm:"not null;default:true"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
