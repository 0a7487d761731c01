package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/propadmin/backoffice/internal/auth"
	"github.com/propadmin/backoffice/internal/gate"
	"github.com/propadmin/backoffice/internal/httpx"
	"github.com/propadmin/backoffice/internal/models"
	"github.com/propadmin/backoffice/internal/services"
)

// PaymentHandler covers manual payment entry by collections staff. Payments
// are append-only; there is no update or delete.
type PaymentHandler struct {
	DB       *gorm.DB
	Status   *services.StatusController
	validate *validator.Validate
}

func NewPaymentHandler(db *gorm.DB) *PaymentHandler {
	return &PaymentHandler{DB: db, Status: services.NewStatusController(db), validate: validator.New()}
}

// Create: POST /payments
func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if err := gate.Authorize(actor, gate.ActionAddPayment); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}
	var req struct {
		InvoiceID   uint    `json:"invoice_id" validate:"required"`
		Amount      float64 `json:"amount" validate:"required,gt=0"`
		Method      string  `json:"method" validate:"required"`
		PaymentDate string  `json:"payment_date" validate:"required"`
		CheckNumber string  `json:"check_number"`
		Notes       string  `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	if !models.ValidMethod(req.Method) {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_method", nil)
		return
	}
	date, err := time.Parse("2006-01-02", req.PaymentDate)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_payment_date", nil)
		return
	}

	var inv models.Invoice
	if err := h.DB.First(&inv, req.InvoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "invoice_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_invoice", nil)
		return
	}
	if inv.Status == models.StatusDraft || inv.Status == models.StatusCancelled {
		httpx.JSONError(w, http.StatusBadRequest, "invoice_not_collectible", nil)
		return
	}

	// Manual entries get a receipt reference so they dedupe the same way
	// external ones do if a client retries the request body.
	ref := "manual-" + uuid.NewString()
	payment := models.Payment{
		InvoiceID:         inv.ID,
		Amount:            services.RoundMoney(req.Amount),
		Method:            req.Method,
		PaymentDate:       date,
		ExternalReference: &ref,
		CheckNumber:       req.CheckNumber,
		Notes:             req.Notes,
	}
	if err := h.DB.Create(&payment).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_save_payment", nil)
		return
	}
	if _, err := h.Status.CreditPayment(r.Context(), inv.ID); err != nil {
		writeServiceError(w, err)
		return
	}
	var fresh models.Invoice
	if err := h.DB.First(&fresh, inv.ID).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_invoice", nil)
		return
	}
	var ps []models.Payment
	_ = h.DB.Where("invoice_id = ?", inv.ID).Find(&ps).Error
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"message": "payment registered",
		"payment": payment,
		"status":  fresh.Status,
		"balance": services.Reconcile(fresh, ps),
	})
}
