package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/propadmin/backoffice/internal/httpx"
	"github.com/propadmin/backoffice/internal/models"
)

type PropertyHandler struct {
	DB       *gorm.DB
	validate *validator.Validate
}

func NewPropertyHandler(db *gorm.DB) *PropertyHandler {
	return &PropertyHandler{DB: db, validate: validator.New()}
}

// List: GET /properties
func (h *PropertyHandler) List(w http.ResponseWriter, r *http.Request) {
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
	dbq := h.DB.Model(&models.Property{})
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		dbq = dbq.Where("lower(name) LIKE ? OR lower(code) LIKE ?", like, like)
	}
	var total int64
	dbq.Count(&total)
	var props []models.Property
	if err := dbq.Preload("Client").Order("id desc").Limit(limit).Offset(offset).Find(&props).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_properties", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": props, "total": total, "limit": limit, "offset": offset})
}

type propertyReq struct {
	Code     string  `json:"code" validate:"required"`
	Name     string  `json:"name" validate:"required"`
	Area     float64 `json:"area" validate:"gte=0"`
	ClientID uint    `json:"client_id" validate:"required"`
}

// Create: POST /properties
func (h *PropertyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req propertyReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	var client models.Client
	if err := h.DB.First(&client, req.ClientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusBadRequest, "client_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_client", nil)
		return
	}
	prop := models.Property{Code: req.Code, Name: req.Name, Area: req.Area, ClientID: req.ClientID}
	if err := h.DB.Create(&prop).Error; err != nil {
		httpx.JSONError(w, http.StatusConflict, "property_code_taken", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, prop)
}

// Update: POST /properties/update?id=...
func (h *PropertyHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var prop models.Property
	if err := h.DB.First(&prop, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_property", nil)
		return
	}
	var req struct {
		Name *string  `json:"name"`
		Area *float64 `json:"area" validate:"omitempty,gte=0"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	updates := map[string]any{}
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Area != nil {
		updates["area"] = *req.Area
	}
	if len(updates) == 0 {
		httpx.JSON(w, http.StatusOK, prop)
		return
	}
	if err := h.DB.Model(&prop).Updates(updates).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_property", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, prop)
}
