package handlers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/propadmin/backoffice/internal/auth"
	"github.com/propadmin/backoffice/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Role{}, &models.User{}, &models.Client{}, &models.Property{},
		&models.BillingService{}, &models.ProofOfPayment{}, &models.Invoice{},
		&models.InvoiceItem{}, &models.Payment{}, &models.BillingConfiguration{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// seedCollectionsFixtures creates a client, a property, and an invoice in the
// given status with the given total.
func seedCollectionsFixtures(t *testing.T, db *gorm.DB, status string, total float64) (models.Client, models.Property, models.Invoice) {
	t.Helper()
	client := models.Client{Name: "Consorcio El Bosque", Email: "admin@elbosque.test"}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("client: %v", err)
	}
	prop := models.Property{Code: "LOC-101", Name: "Local 101", Area: 85.5, ClientID: client.ID}
	if err := db.Create(&prop).Error; err != nil {
		t.Fatalf("property: %v", err)
	}
	inv := models.Invoice{
		Number:     "FAC-001-001-000000001",
		PropertyID: prop.ID,
		ClientID:   client.ID,
		Status:     status,
		Subtotal:   total,
		Total:      &total,
		IssueDate:  time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		DueDate:    time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC),
	}
	if err := db.Create(&inv).Error; err != nil {
		t.Fatalf("invoice: %v", err)
	}
	return client, prop, inv
}

func asActor(r *http.Request, role string) *http.Request {
	return r.WithContext(auth.WithActor(r.Context(), auth.Actor{UserID: 1, Role: role}))
}
