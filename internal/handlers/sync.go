package handlers

import (
	"net/http"

	"github.com/propadmin/backoffice/internal/auth"
	"github.com/propadmin/backoffice/internal/gate"
	"github.com/propadmin/backoffice/internal/httpx"
	"github.com/propadmin/backoffice/internal/services"
)

// SyncHandler triggers a pull from the external billing system. The response
// keeps the external system's field names, which is what the existing
// back-office UI expects at this boundary.
type SyncHandler struct {
	Sync *services.SyncService
}

func NewSyncHandler(sync *services.SyncService) *SyncHandler { return &SyncHandler{Sync: sync} }

// Handle: POST /payments/sync
func (h *SyncHandler) Handle(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if err := gate.Authorize(actor, gate.ActionSyncPayments); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}
	report, err := h.Sync.Sync(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"facturas_procesadas":      report.InvoicesChecked,
		"facturas_actualizadas":    report.InvoicesUpdated,
		"nuevos_cobros_procesados": report.NewPaymentsInserted,
		"cobros_omitidos":          report.PaymentsSkipped,
	})
}
