package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/propadmin/backoffice/internal/auth"
	"github.com/propadmin/backoffice/internal/gate"
	"github.com/propadmin/backoffice/internal/httpx"
	"github.com/propadmin/backoffice/internal/models"
	"github.com/propadmin/backoffice/internal/services"
)

// InvoiceHandler serves the collections views and the proof/retention/
// recalculation actions.
type InvoiceHandler struct {
	DB       *gorm.DB
	Status   *services.StatusController
	Recalc   *services.RecalculationService
	validate *validator.Validate
}

func NewInvoiceHandler(db *gorm.DB) *InvoiceHandler {
	return &InvoiceHandler{
		DB:       db,
		Status:   services.NewStatusController(db),
		Recalc:   services.NewRecalculationService(db),
		validate: validator.New(),
	}
}

// invoiceView is the serialized shape for collections listings: the invoice
// plus its reconciled balance.
type invoiceView struct {
	ID         uint                 `json:"id"`
	Number     string               `json:"number"`
	PropertyID uint                 `json:"property_id"`
	ClientID   uint                 `json:"client_id"`
	Status     string               `json:"status"`
	Subtotal   float64              `json:"subtotal"`
	TaxAmount  float64              `json:"tax_amount"`
	Total      *float64             `json:"total"`
	Retention  float64              `json:"retention"`
	ProofID    *uint                `json:"proof_of_payment_id,omitempty"`
	IssueDate  string               `json:"issue_date"`
	DueDate    string               `json:"due_date"`
	Balance    services.Balance     `json:"balance"`
	Items      []models.InvoiceItem `json:"items,omitempty"`
	Payments   []models.Payment     `json:"payments,omitempty"`
}

func (h *InvoiceHandler) view(inv models.Invoice, payments []models.Payment, full bool) invoiceView {
	v := invoiceView{
		ID:         inv.ID,
		Number:     inv.Number,
		PropertyID: inv.PropertyID,
		ClientID:   inv.ClientID,
		Status:     inv.Status,
		Subtotal:   inv.Subtotal,
		TaxAmount:  inv.TaxAmount,
		Total:      inv.Total,
		Retention:  inv.Retention,
		ProofID:    inv.ProofOfPaymentID,
		IssueDate:  inv.IssueDate.Format("2006-01-02"),
		DueDate:    inv.DueDate.Format("2006-01-02"),
		Balance:    services.Reconcile(inv, payments),
	}
	if full {
		v.Items = inv.Items
		v.Payments = payments
	}
	return v
}

// List: GET /invoices — collections view. Drafts are always excluded.
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	offset := 0
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			offset = (n - 1) * limit
		}
	}
	dbq := h.DB.Where("status <> ?", models.StatusDraft)
	if s := r.URL.Query().Get("status"); s != "" {
		if !models.ValidStatus(s) || s == models.StatusDraft {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_status_filter", nil)
			return
		}
		dbq = dbq.Where("status = ?", s)
	}
	if v := r.URL.Query().Get("client_id"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			dbq = dbq.Where("client_id = ?", n)
		}
	}
	var total int64
	dbq.Model(&models.Invoice{}).Count(&total)
	var invs []models.Invoice
	if err := dbq.Order("id desc").Limit(limit).Offset(offset).Find(&invs).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_invoices", nil)
		return
	}
	items := make([]invoiceView, 0, len(invs))
	for _, inv := range invs {
		var ps []models.Payment
		if err := h.DB.Where("invoice_id = ?", inv.ID).Find(&ps).Error; err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_invoices", nil)
			return
		}
		items = append(items, h.view(inv, ps, false))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": total, "limit": limit, "offset": offset})
}

// Detail: GET /invoices/detail?id=...
func (h *InvoiceHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var inv models.Invoice
	if err := h.DB.Preload("Items").First(&inv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_invoice", nil)
		return
	}
	var ps []models.Payment
	if err := h.DB.Where("invoice_id = ?", inv.ID).Order("payment_date asc").Find(&ps).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_payments", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, h.view(inv, ps, true))
}

func idParam(w http.ResponseWriter, r *http.Request) (uint, bool) {
	idStr := r.URL.Query().Get("id")
	if idStr == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_id", nil)
		return 0, false
	}
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return 0, false
	}
	return uint(id), true
}

type invoiceActionReq struct {
	InvoiceID uint `json:"invoice_id" validate:"required"`
}

// AttachProof: POST /invoices/proof — payer uploads a receipt reference.
func (h *InvoiceHandler) AttachProof(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InvoiceID   uint   `json:"invoice_id" validate:"required"`
		ExternalURL string `json:"external_url" validate:"required,url"`
		Filename    string `json:"filename" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	inv, err := h.Status.AttachProof(r.Context(), req.InvoiceID, req.ExternalURL, req.Filename)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "proof attached, invoice pending validation", "invoice": h.mustView(inv)})
}

// Approve: POST /invoices/approve — forces paid, balance not re-checked.
func (h *InvoiceHandler) Approve(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req invoiceActionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.InvoiceID == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "missing_invoice_id", nil)
		return
	}
	inv, err := h.Status.ApproveProof(r.Context(), actor, req.InvoiceID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "proof approved, invoice paid", "invoice": h.mustView(inv)})
}

// Reject: POST /invoices/reject — reverts to sent, proof kept for audit.
func (h *InvoiceHandler) Reject(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req invoiceActionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.InvoiceID == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "missing_invoice_id", nil)
		return
	}
	inv, err := h.Status.RejectProof(r.Context(), actor, req.InvoiceID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "proof rejected, invoice reverted to sent", "invoice": h.mustView(inv)})
}

// Retention: POST /invoices/retention — accrues withholding credit.
func (h *InvoiceHandler) Retention(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req struct {
		InvoiceID uint    `json:"invoice_id" validate:"required"`
		Amount    float64 `json:"amount" validate:"required,gt=0"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	inv, err := h.Status.AddRetention(r.Context(), actor, req.InvoiceID, req.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "retention registered", "invoice": h.mustView(inv)})
}

// Recalculate: POST /invoices/recalculate — §6 contract; config-cache
// failures come back as a warning on a 200, never an error.
func (h *InvoiceHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if err := gate.Authorize(actor, gate.ActionRecalculate); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}
	var req struct {
		InvoiceID                 uint     `json:"invoice_id" validate:"required"`
		SpecialBaseRate           *float64 `json:"special_base_rate" validate:"omitempty,gt=0"`
		AppliesTax                *bool    `json:"applies_tax"`
		TaxRatePercent            *float64 `json:"tax_rate_percent" validate:"omitempty,gte=0"`
		PropertyArea              *float64 `json:"property_area" validate:"omitempty,gt=0"`
		ApplyToCurrentInvoiceOnly bool     `json:"apply_to_current_invoice_only"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	res, err := h.Recalc.Recalculate(r.Context(), services.RecalculateInput{
		InvoiceID:                 req.InvoiceID,
		SpecialBaseRate:           req.SpecialBaseRate,
		AppliesTax:                req.AppliesTax,
		TaxRatePercent:            req.TaxRatePercent,
		PropertyArea:              req.PropertyArea,
		ApplyToCurrentInvoiceOnly: req.ApplyToCurrentInvoiceOnly,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !res.Changed {
		httpx.JSON(w, http.StatusOK, map[string]any{"message": "no changes applied", "invoice": h.mustView(res.Invoice)})
		return
	}
	body := map[string]any{"message": "invoice recalculated", "invoice": h.mustView(res.Invoice)}
	if res.Warning != "" {
		body["message"] = "invoice recalculated with warnings"
		body["warning"] = res.Warning
	}
	httpx.JSON(w, http.StatusOK, body)
}

func (h *InvoiceHandler) mustView(inv models.Invoice) invoiceView {
	var ps []models.Payment
	_ = h.DB.Where("invoice_id = ?", inv.ID).Find(&ps).Error
	return h.view(inv, ps, true)
}
