package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/propadmin/backoffice/internal/models"
)

// RecalculateInput carries the override parameters for one invoice.
// Pointer fields distinguish "not provided" from zero values.
// TaxRatePercent is a percentage (12 means 12%).
type RecalculateInput struct {
	InvoiceID                 uint
	SpecialBaseRate           *float64
	AppliesTax                *bool
	TaxRatePercent            *float64
	PropertyArea              *float64
	ApplyToCurrentInvoiceOnly bool
}

// RecalculateResult distinguishes full success, no-op, and degraded success
// (invoice updated but the billing configuration could not be cached).
type RecalculateResult struct {
	Invoice models.Invoice
	Changed bool
	Warning string
}

// RecalculationService recomputes invoice totals from rate/tax overrides and
// caches the decision as a BillingConfiguration for future billing runs.
type RecalculationService struct {
	DB *gorm.DB
}

func NewRecalculationService(db *gorm.DB) *RecalculationService {
	return &RecalculationService{DB: db}
}

// Recalculate applies the overrides in two phases: the invoice update is
// fatal on failure, the configuration upsert degrades to a warning.
func (s *RecalculationService) Recalculate(ctx context.Context, in RecalculateInput) (RecalculateResult, error) {
	var res RecalculateResult
	if in.InvoiceID == 0 {
		return res, fmt.Errorf("invoice_id is required: %w", ErrValidation)
	}

	var inv models.Invoice
	if err := s.DB.WithContext(ctx).Preload("Items").First(&inv, in.InvoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return res, fmt.Errorf("invoice %d: %w", in.InvoiceID, ErrNotFound)
		}
		return res, fmt.Errorf("load invoice: %w", ErrPersistence)
	}

	// An invoice must never outlive its property; a missing row means a
	// previously-broken insert and is fatal.
	var prop models.Property
	if err := s.DB.WithContext(ctx).First(&prop, inv.PropertyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return res, fmt.Errorf("property %d for invoice %d: %w", inv.PropertyID, inv.ID, ErrNotFound)
		}
		return res, fmt.Errorf("load property: %w", ErrPersistence)
	}

	area := prop.Area
	if in.PropertyArea != nil && *in.PropertyArea > 0 {
		area = *in.PropertyArea
	}
	taxRate := 0.0
	if in.TaxRatePercent != nil {
		taxRate = *in.TaxRatePercent / 100
	}

	var subtotal, taxAmount float64
	switch {
	case in.SpecialBaseRate != nil && area > 0:
		for i := range inv.Items {
			inv.Items[i].UnitPrice = *in.SpecialBaseRate
		}
		subtotal = RoundMoney(area * *in.SpecialBaseRate)
		if in.AppliesTax != nil && *in.AppliesTax {
			taxAmount = RoundMoney(subtotal * taxRate)
		}
	case in.AppliesTax != nil:
		subtotal = inv.Subtotal
		if *in.AppliesTax {
			taxAmount = RoundMoney(subtotal * taxRate)
		}
	default:
		// nothing to change
		res.Invoice = inv
		return res, nil
	}

	total := RoundMoney(subtotal + taxAmount)
	inv.Subtotal = subtotal
	inv.TaxAmount = taxAmount
	inv.Total = &total

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Invoice{}).Where("id = ?", inv.ID).Updates(map[string]any{
			"subtotal":   inv.Subtotal,
			"tax_amount": inv.TaxAmount,
			"total":      *inv.Total,
		}).Error; err != nil {
			return err
		}
		for i := range inv.Items {
			if err := tx.Model(&models.InvoiceItem{}).Where("id = ?", inv.Items[i].ID).
				Update("unit_price", inv.Items[i].UnitPrice).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("update invoice %d: %w", inv.ID, ErrPersistence)
	}

	res.Invoice = inv
	res.Changed = true
	if !in.ApplyToCurrentInvoiceOnly {
		res.Warning = s.upsertConfig(ctx, inv, in, taxRate)
	}
	return res, nil
}

// upsertConfig is the best-effort second phase: any failure is reported as a
// warning string, never an error, so the invoice update above stands.
func (s *RecalculationService) upsertConfig(ctx context.Context, inv models.Invoice, in RecalculateInput, taxRate float64) string {
	if len(inv.Items) == 0 {
		return "billing configuration not saved: invoice has no line items"
	}
	var svc models.BillingService
	if err := s.DB.WithContext(ctx).Where("code = ?", inv.Items[0].ServiceCode).First(&svc).Error; err != nil {
		return fmt.Sprintf("billing configuration not saved: unknown service code %q", inv.Items[0].ServiceCode)
	}
	var client models.Client
	if err := s.DB.WithContext(ctx).First(&client, inv.ClientID).Error; err != nil {
		return fmt.Sprintf("billing configuration not saved: client %d not found", inv.ClientID)
	}

	appliesTax := in.AppliesTax != nil && *in.AppliesTax
	baseRate := 0.0
	if in.SpecialBaseRate != nil {
		baseRate = *in.SpecialBaseRate
	}

	var cfg models.BillingConfiguration
	err := s.DB.WithContext(ctx).
		Where("property_id = ? AND client_id = ? AND service_id = ? AND active = ?", inv.PropertyID, inv.ClientID, svc.ID, true).
		First(&cfg).Error
	switch {
	case err == nil:
		cfg.AppliesTax = appliesTax
		cfg.TaxRate = taxRate
		cfg.SpecialBaseRate = baseRate
		if err := s.DB.WithContext(ctx).Save(&cfg).Error; err != nil {
			return "billing configuration not saved: update failed"
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		cfg = models.BillingConfiguration{
			PropertyID:      inv.PropertyID,
			ClientID:        inv.ClientID,
			ServiceID:       svc.ID,
			AppliesTax:      appliesTax,
			TaxRate:         taxRate,
			SpecialBaseRate: baseRate,
			Active:          true,
		}
		if err := s.DB.WithContext(ctx).Create(&cfg).Error; err != nil {
			return "billing configuration not saved: insert failed"
		}
	default:
		return "billing configuration not saved: lookup failed"
	}
	return ""
}
