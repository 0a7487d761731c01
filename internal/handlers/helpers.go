package handlers

import (
	"errors"
	"net/http"

	"github.com/propadmin/backoffice/internal/httpx"
	"github.com/propadmin/backoffice/internal/services"
)

// writeServiceError maps the service error taxonomy onto HTTP statuses with
// the snake_case codes the rest of the API uses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, services.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, services.ErrUnauthorized):
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
	case errors.Is(err, services.ErrConflict):
		httpx.JSONError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, services.ErrExternal):
		httpx.JSONError(w, http.StatusBadGateway, "external_service_failed", err.Error())
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}
