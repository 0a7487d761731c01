package models

import "time"

// Property is a billable unit (local, oficina, bodega...) owned by a client.
// Area is in square meters and feeds special-rate recalculation.
type Property struct {
	ID        uint    `gorm:"primaryKey"`
	Code      string  `gorm:"uniqueIndex;not null"`
	Name      string  `gorm:"not null"`
	Area      float64 `gorm:"not null;default:0"`
	ClientID  uint    `gorm:"not null;index"`
	Client    Client  `gorm:"foreignKey:ClientID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Client is the payer a property (and its invoices) belongs to.
type Client struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	Email     string
	TaxID     string `gorm:"column:tax_id"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BillingService is a catalog row (alicuota, mantenimiento, agua...).
// Invoice items reference it loosely by code; resolution is best-effort.
type BillingService struct {
	ID        uint   `gorm:"primaryKey"`
	Code      string `gorm:"uniqueIndex;not null"`
	Name      string `gorm:"not null"`
	CreatedAt time.Time
}
