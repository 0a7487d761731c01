package services

import (
	"context"
	"errors"
	"testing"

	"github.com/propadmin/backoffice/internal/models"
)

func TestRecalculateSpecialRateRounding(t *testing.T) {
	db := setupTestDB(t)
	svc := NewRecalculationService(db)
	inv := seedInvoice(t, db, models.StatusSent, 100)
	// area 33.333 on the property record
	if err := db.Model(&models.Property{}).Where("id = ?", inv.PropertyID).Update("area", 33.333).Error; err != nil {
		t.Fatalf("set area: %v", err)
	}
	item := models.InvoiceItem{InvoiceID: inv.ID, ServiceCode: "ALIC", Description: "Alícuota marzo", Quantity: 1, UnitPrice: 100}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("item: %v", err)
	}

	rate := 10.005
	res, err := svc.Recalculate(context.Background(), RecalculateInput{
		InvoiceID:                 inv.ID,
		SpecialBaseRate:           &rate,
		ApplyToCurrentInvoiceOnly: true,
	})
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if !res.Changed {
		t.Fatalf("expected changes applied")
	}
	// 33.333 * 10.005 = 333.4966..., rounded half-up to 2 decimals.
	if res.Invoice.Subtotal != 333.50 {
		t.Fatalf("subtotal = %v, want 333.50", res.Invoice.Subtotal)
	}
	if res.Invoice.TaxAmount != 0 {
		t.Fatalf("tax = %v, want 0 (applies_tax not set)", res.Invoice.TaxAmount)
	}
	if res.Invoice.Total == nil || *res.Invoice.Total != 333.50 {
		t.Fatalf("total = %v, want 333.50", res.Invoice.Total)
	}
	// Line prices follow the special rate.
	var got models.InvoiceItem
	if err := db.First(&got, item.ID).Error; err != nil {
		t.Fatalf("reload item: %v", err)
	}
	if got.UnitPrice != 10.005 {
		t.Fatalf("unit price = %v, want 10.005", got.UnitPrice)
	}
}

func TestRecalculateWithTax(t *testing.T) {
	db := setupTestDB(t)
	svc := NewRecalculationService(db)
	inv := seedInvoice(t, db, models.StatusSent, 100)
	if err := db.Model(&models.Property{}).Where("id = ?", inv.PropertyID).Update("area", 50).Error; err != nil {
		t.Fatalf("set area: %v", err)
	}

	rate, taxPct, applies := 2.0, 12.0, true
	res, err := svc.Recalculate(context.Background(), RecalculateInput{
		InvoiceID:                 inv.ID,
		SpecialBaseRate:           &rate,
		AppliesTax:                &applies,
		TaxRatePercent:            &taxPct,
		ApplyToCurrentInvoiceOnly: true,
	})
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if res.Invoice.Subtotal != 100 {
		t.Fatalf("subtotal = %v, want 100", res.Invoice.Subtotal)
	}
	if res.Invoice.TaxAmount != 12 {
		t.Fatalf("tax = %v, want 12", res.Invoice.TaxAmount)
	}
	if res.Invoice.Total == nil || *res.Invoice.Total != 112 {
		t.Fatalf("total = %v, want 112", res.Invoice.Total)
	}
}

func TestRecalculateTaxOnlyKeepsSubtotal(t *testing.T) {
	db := setupTestDB(t)
	svc := NewRecalculationService(db)
	inv := seedInvoice(t, db, models.StatusSent, 200) // subtotal 200

	taxPct, applies := 15.0, true
	res, err := svc.Recalculate(context.Background(), RecalculateInput{
		InvoiceID:                 inv.ID,
		AppliesTax:                &applies,
		TaxRatePercent:            &taxPct,
		ApplyToCurrentInvoiceOnly: true,
	})
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if res.Invoice.Subtotal != 200 {
		t.Fatalf("subtotal = %v, want 200 (unchanged)", res.Invoice.Subtotal)
	}
	if res.Invoice.TaxAmount != 30 {
		t.Fatalf("tax = %v, want 30", res.Invoice.TaxAmount)
	}
}

func TestRecalculateNoOp(t *testing.T) {
	db := setupTestDB(t)
	svc := NewRecalculationService(db)
	inv := seedInvoice(t, db, models.StatusSent, 150)

	res, err := svc.Recalculate(context.Background(), RecalculateInput{InvoiceID: inv.ID})
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if res.Changed {
		t.Fatalf("expected no changes applied")
	}
	var check models.Invoice
	if err := db.First(&check, inv.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if check.Total == nil || *check.Total != 150 || check.Subtotal != 150 {
		t.Fatalf("invoice mutated by no-op: %#v", check)
	}
}

func TestRecalculateMissingInvoice(t *testing.T) {
	db := setupTestDB(t)
	svc := NewRecalculationService(db)
	if _, err := svc.Recalculate(context.Background(), RecalculateInput{InvoiceID: 404}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecalculateMissingPropertyIsFatal(t *testing.T) {
	db := setupTestDB(t)
	svc := NewRecalculationService(db)
	inv := seedInvoice(t, db, models.StatusSent, 100)
	if err := db.Delete(&models.Property{}, inv.PropertyID).Error; err != nil {
		t.Fatalf("delete property: %v", err)
	}

	rate := 5.0
	_, err := svc.Recalculate(context.Background(), RecalculateInput{InvoiceID: inv.ID, SpecialBaseRate: &rate})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var check models.Invoice
	if err := db.First(&check, inv.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if check.Total == nil || *check.Total != 100 {
		t.Fatalf("invoice mutated despite fatal property check: %#v", check)
	}
}

func TestRecalculatePersistsBillingConfiguration(t *testing.T) {
	db := setupTestDB(t)
	svc := NewRecalculationService(db)
	inv := seedInvoice(t, db, models.StatusSent, 100)
	if err := db.Create(&models.BillingService{Code: "ALIC", Name: "Alícuota"}).Error; err != nil {
		t.Fatalf("service: %v", err)
	}
	if err := db.Create(&models.InvoiceItem{InvoiceID: inv.ID, ServiceCode: "ALIC", Description: "Alícuota", Quantity: 1, UnitPrice: 100}).Error; err != nil {
		t.Fatalf("item: %v", err)
	}

	rate, taxPct, applies := 1.5, 12.0, true
	res, err := svc.Recalculate(context.Background(), RecalculateInput{
		InvoiceID:       inv.ID,
		SpecialBaseRate: &rate,
		AppliesTax:      &applies,
		TaxRatePercent:  &taxPct,
	})
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if res.Warning != "" {
		t.Fatalf("unexpected warning: %s", res.Warning)
	}
	var cfg models.BillingConfiguration
	if err := db.Where("property_id = ? AND client_id = ?", inv.PropertyID, inv.ClientID).First(&cfg).Error; err != nil {
		t.Fatalf("config not saved: %v", err)
	}
	if !cfg.AppliesTax || cfg.TaxRate != 0.12 || cfg.SpecialBaseRate != 1.5 || !cfg.Active {
		t.Fatalf("unexpected config: %#v", cfg)
	}

	// Second run with new values updates the same active row.
	rate2 := 2.0
	if _, err := svc.Recalculate(context.Background(), RecalculateInput{
		InvoiceID:       inv.ID,
		SpecialBaseRate: &rate2,
		AppliesTax:      &applies,
		TaxRatePercent:  &taxPct,
	}); err != nil {
		t.Fatalf("second recalculate: %v", err)
	}
	var count int64
	db.Model(&models.BillingConfiguration{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected upsert to keep a single row, got %d", count)
	}
	if err := db.First(&cfg, cfg.ID).Error; err != nil {
		t.Fatalf("reload config: %v", err)
	}
	if cfg.SpecialBaseRate != 2.0 {
		t.Fatalf("config not updated: %#v", cfg)
	}
}

func TestRecalculateUnknownServiceCodeDegradesToWarning(t *testing.T) {
	db := setupTestDB(t)
	svc := NewRecalculationService(db)
	inv := seedInvoice(t, db, models.StatusSent, 100)
	if err := db.Create(&models.InvoiceItem{InvoiceID: inv.ID, ServiceCode: "NOPE", Description: "x", Quantity: 1, UnitPrice: 100}).Error; err != nil {
		t.Fatalf("item: %v", err)
	}

	rate := 1.25
	res, err := svc.Recalculate(context.Background(), RecalculateInput{InvoiceID: inv.ID, SpecialBaseRate: &rate})
	if err != nil {
		t.Fatalf("recalculate must succeed despite config failure: %v", err)
	}
	if !res.Changed {
		t.Fatalf("expected invoice updated")
	}
	if res.Warning == "" {
		t.Fatalf("expected warning about unsaved billing configuration")
	}
	var count int64
	db.Model(&models.BillingConfiguration{}).Count(&count)
	if count != 0 {
		t.Fatalf("no config row expected, got %d", count)
	}
}

func TestRecalculateCurrentOnlySkipsConfig(t *testing.T) {
	db := setupTestDB(t)
	svc := NewRecalculationService(db)
	inv := seedInvoice(t, db, models.StatusSent, 100)
	if err := db.Create(&models.BillingService{Code: "ALIC", Name: "Alícuota"}).Error; err != nil {
		t.Fatalf("service: %v", err)
	}
	if err := db.Create(&models.InvoiceItem{InvoiceID: inv.ID, ServiceCode: "ALIC", Description: "Alícuota", Quantity: 1, UnitPrice: 100}).Error; err != nil {
		t.Fatalf("item: %v", err)
	}

	rate := 3.0
	res, err := svc.Recalculate(context.Background(), RecalculateInput{
		InvoiceID:                 inv.ID,
		SpecialBaseRate:           &rate,
		ApplyToCurrentInvoiceOnly: true,
	})
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if res.Warning != "" {
		t.Fatalf("unexpected warning: %s", res.Warning)
	}
	var count int64
	db.Model(&models.BillingConfiguration{}).Count(&count)
	if count != 0 {
		t.Fatalf("config must not be written when apply_to_current_invoice_only is set, got %d rows", count)
	}
}
