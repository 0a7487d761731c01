package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/propadmin/backoffice/internal/auth"
	"github.com/propadmin/backoffice/internal/models"
)

func TestPaymentCreatePartialThenPaid(t *testing.T) {
	db := setupTestDB(t)
	_, _, inv := seedCollectionsFixtures(t, db, models.StatusSent, 100)
	h := NewPaymentHandler(db)

	body := `{"invoice_id":` + strconv.Itoa(int(inv.ID)) + `,"amount":40,"method":"transfer","payment_date":"2025-04-10"}`
	req := asActor(httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader(body)), auth.RoleCobranza)
	w := httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Status  string `json:"status"`
		Balance struct {
			Outstanding float64 `json:"outstanding"`
		} `json:"balance"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != models.StatusPartial {
		t.Fatalf("status = %s, want partial", resp.Status)
	}
	if resp.Balance.Outstanding != 60 {
		t.Fatalf("outstanding = %v, want 60", resp.Balance.Outstanding)
	}

	body = `{"invoice_id":` + strconv.Itoa(int(inv.ID)) + `,"amount":60,"method":"check","payment_date":"2025-04-12","check_number":"000123"}`
	req = asActor(httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader(body)), auth.RoleCobranza)
	w = httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var check models.Invoice
	if err := db.First(&check, inv.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if check.Status != models.StatusPaid {
		t.Fatalf("status = %s, want paid", check.Status)
	}
}

func TestPaymentCreateValidation(t *testing.T) {
	db := setupTestDB(t)
	_, _, inv := seedCollectionsFixtures(t, db, models.StatusSent, 100)
	h := NewPaymentHandler(db)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"zero amount", `{"invoice_id":` + strconv.Itoa(int(inv.ID)) + `,"amount":0,"method":"cash","payment_date":"2025-04-10"}`, http.StatusBadRequest},
		{"bad method", `{"invoice_id":` + strconv.Itoa(int(inv.ID)) + `,"amount":10,"method":"barter","payment_date":"2025-04-10"}`, http.StatusBadRequest},
		{"bad date", `{"invoice_id":` + strconv.Itoa(int(inv.ID)) + `,"amount":10,"method":"cash","payment_date":"10/04/2025"}`, http.StatusBadRequest},
		{"missing invoice", `{"invoice_id":9999,"amount":10,"method":"cash","payment_date":"2025-04-10"}`, http.StatusNotFound},
	}
	for _, c := range cases {
		req := asActor(httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader(c.body)), auth.RoleCobranza)
		w := httptest.NewRecorder()
		h.Create(w, req)
		if w.Code != c.want {
			t.Errorf("%s: expected %d got %d body=%s", c.name, c.want, w.Code, w.Body.String())
		}
	}
}

func TestPaymentCreateRejectsDraftInvoice(t *testing.T) {
	db := setupTestDB(t)
	_, _, inv := seedCollectionsFixtures(t, db, models.StatusDraft, 100)
	h := NewPaymentHandler(db)

	body := `{"invoice_id":` + strconv.Itoa(int(inv.ID)) + `,"amount":10,"method":"cash","payment_date":"2025-04-10"}`
	req := asActor(httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader(body)), auth.RoleCobranza)
	w := httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
}

func TestPaymentCreateForbiddenForDefaultRole(t *testing.T) {
	db := setupTestDB(t)
	_, _, inv := seedCollectionsFixtures(t, db, models.StatusSent, 100)
	h := NewPaymentHandler(db)

	body := `{"invoice_id":` + strconv.Itoa(int(inv.ID)) + `,"amount":10,"method":"cash","payment_date":"2025-04-10"}`
	req := asActor(httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader(body)), auth.RoleUsuario)
	w := httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", w.Code)
	}
}
