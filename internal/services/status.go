package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/propadmin/backoffice/internal/auth"
	"github.com/propadmin/backoffice/internal/gate"
	"github.com/propadmin/backoffice/internal/models"
)

// StatusController applies the invoice state machine. Every mutating call
// takes the caller identity explicitly; status updates carry an optimistic
// WHERE status = <expected> guard, and a zero-row update is a conflict.
type StatusController struct {
	DB *gorm.DB
}

func NewStatusController(db *gorm.DB) *StatusController { return &StatusController{DB: db} }

func (c *StatusController) loadInvoice(ctx context.Context, id uint) (models.Invoice, error) {
	var inv models.Invoice
	if err := c.DB.WithContext(ctx).First(&inv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return inv, fmt.Errorf("invoice %d: %w", id, ErrNotFound)
		}
		return inv, fmt.Errorf("load invoice: %w", ErrPersistence)
	}
	return inv, nil
}

func (c *StatusController) payments(ctx context.Context, invoiceID uint) ([]models.Payment, error) {
	var ps []models.Payment
	if err := c.DB.WithContext(ctx).Where("invoice_id = ?", invoiceID).Find(&ps).Error; err != nil {
		return nil, fmt.Errorf("load payments: %w", ErrPersistence)
	}
	return ps, nil
}

// guardedStatusUpdate moves an invoice from to a new status only if it still
// has the expected one. Extra columns may ride along in updates.
func (c *StatusController) guardedStatusUpdate(ctx context.Context, id uint, expected string, updates map[string]any) error {
	res := c.DB.WithContext(ctx).Model(&models.Invoice{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update invoice %d: %w", id, ErrPersistence)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("invoice %d changed concurrently: %w", id, ErrConflict)
	}
	return nil
}

// AttachProof records an uploaded receipt and moves the invoice to
// pending_validation. Re-uploads overwrite the previous reference; the old
// ProofOfPayment row stays for audit.
func (c *StatusController) AttachProof(ctx context.Context, invoiceID uint, externalURL, filename string) (models.Invoice, error) {
	var inv models.Invoice
	if externalURL == "" || filename == "" {
		return inv, fmt.Errorf("external_url and filename are required: %w", ErrValidation)
	}
	inv, err := c.loadInvoice(ctx, invoiceID)
	if err != nil {
		return inv, err
	}
	switch inv.Status {
	case models.StatusSent, models.StatusPartial, models.StatusPendingValidation:
	default:
		return inv, fmt.Errorf("cannot attach proof in status %s: %w", inv.Status, ErrValidation)
	}
	proof := models.ProofOfPayment{ExternalURL: externalURL, Filename: filename}
	if err := c.DB.WithContext(ctx).Create(&proof).Error; err != nil {
		return inv, fmt.Errorf("save proof: %w", ErrPersistence)
	}
	if err := c.guardedStatusUpdate(ctx, inv.ID, inv.Status, map[string]any{
		"status":              models.StatusPendingValidation,
		"proof_of_payment_id": proof.ID,
	}); err != nil {
		return inv, err
	}
	return c.loadInvoice(ctx, invoiceID)
}

// ApproveProof sets the invoice to paid. Deliberately does not re-check the
// reconciled balance: approving a receipt is treated as confirmation of full
// payment; partial credit goes through the retention/payment paths instead.
func (c *StatusController) ApproveProof(ctx context.Context, actor auth.Actor, invoiceID uint) (models.Invoice, error) {
	var inv models.Invoice
	if err := gate.Authorize(actor, gate.ActionApproveProof); err != nil {
		return inv, fmt.Errorf("approve proof: %w", ErrUnauthorized)
	}
	inv, err := c.loadInvoice(ctx, invoiceID)
	if err != nil {
		return inv, err
	}
	if inv.Status != models.StatusPendingValidation {
		return inv, fmt.Errorf("invoice is %s, not pending_validation: %w", inv.Status, ErrValidation)
	}
	if err := c.guardedStatusUpdate(ctx, inv.ID, models.StatusPendingValidation, map[string]any{
		"status": models.StatusPaid,
	}); err != nil {
		return inv, err
	}
	return c.loadInvoice(ctx, invoiceID)
}

// RejectProof reverts a pending invoice to sent. The proof reference is kept
// for the audit trail; the next upload overwrites it.
func (c *StatusController) RejectProof(ctx context.Context, actor auth.Actor, invoiceID uint) (models.Invoice, error) {
	var inv models.Invoice
	if err := gate.Authorize(actor, gate.ActionRejectProof); err != nil {
		return inv, fmt.Errorf("reject proof: %w", ErrUnauthorized)
	}
	inv, err := c.loadInvoice(ctx, invoiceID)
	if err != nil {
		return inv, err
	}
	if inv.Status != models.StatusPendingValidation {
		return inv, fmt.Errorf("invoice is %s, not pending_validation: %w", inv.Status, ErrValidation)
	}
	if err := c.guardedStatusUpdate(ctx, inv.ID, models.StatusPendingValidation, map[string]any{
		"status": models.StatusSent,
	}); err != nil {
		return inv, err
	}
	return c.loadInvoice(ctx, invoiceID)
}

// AddRetention accrues a withholding credit. If the credited amount now
// covers the total, the invoice becomes paid; otherwise the status stays as
// is — retention alone never moves sent to partial, only payments do.
func (c *StatusController) AddRetention(ctx context.Context, actor auth.Actor, invoiceID uint, amount float64) (models.Invoice, error) {
	var inv models.Invoice
	if err := gate.Authorize(actor, gate.ActionAddRetention); err != nil {
		return inv, fmt.Errorf("add retention: %w", ErrUnauthorized)
	}
	if amount <= 0 {
		return inv, fmt.Errorf("retention amount must be positive: %w", ErrValidation)
	}
	inv, err := c.loadInvoice(ctx, invoiceID)
	if err != nil {
		return inv, err
	}
	ps, err := c.payments(ctx, invoiceID)
	if err != nil {
		return inv, err
	}
	inv.Retention = RoundMoney(inv.Retention + amount)
	bal := Reconcile(inv, ps)

	updates := map[string]any{"retention": inv.Retention}
	if bal.Settled(inv) && (inv.Status == models.StatusSent || inv.Status == models.StatusPartial) {
		updates["status"] = models.StatusPaid
	}
	if err := c.guardedStatusUpdate(ctx, inv.ID, inv.Status, updates); err != nil {
		return inv, err
	}
	return c.loadInvoice(ctx, invoiceID)
}

// CreditPayment re-reconciles after a payment insert and applies the
// sent|partial → partial|paid rule. The invoice must be reloaded by the
// caller if it needs the fresh row.
func (c *StatusController) CreditPayment(ctx context.Context, invoiceID uint) (updated bool, err error) {
	inv, err := c.loadInvoice(ctx, invoiceID)
	if err != nil {
		return false, err
	}
	if inv.Status != models.StatusSent && inv.Status != models.StatusPartial {
		return false, nil
	}
	ps, err := c.payments(ctx, invoiceID)
	if err != nil {
		return false, err
	}
	bal := Reconcile(inv, ps)
	next := inv.Status
	switch {
	case bal.Settled(inv):
		next = models.StatusPaid
	case bal.TotalCredited > 0:
		next = models.StatusPartial
	}
	if next == inv.Status {
		return false, nil
	}
	if err := c.guardedStatusUpdate(ctx, inv.ID, inv.Status, map[string]any{"status": next}); err != nil {
		return false, err
	}
	return true, nil
}
