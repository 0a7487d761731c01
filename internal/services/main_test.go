package services

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

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

// seedInvoice creates a client, property, and an invoice in the given status.
func seedInvoice(t *testing.T, db *gorm.DB, status string, total float64) models.Invoice {
	t.Helper()
	client := models.Client{Name: "Inmobiliaria Andes", Email: "pagos@andes.test"}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("client: %v", err)
	}
	prop := models.Property{Code: fmt.Sprintf("LOC-%s", t.Name()), Name: "Local 12", Area: 80, ClientID: client.ID}
	if err := db.Create(&prop).Error; err != nil {
		t.Fatalf("property: %v", err)
	}
	inv := models.Invoice{
		Number:     fmt.Sprintf("FAC-%s", t.Name()),
		PropertyID: prop.ID,
		ClientID:   client.ID,
		Status:     status,
		Subtotal:   total,
		Total:      &total,
		IssueDate:  time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		DueDate:    time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
	}
	if err := db.Create(&inv).Error; err != nil {
		t.Fatalf("invoice: %v", err)
	}
	return inv
}

func addPayment(t *testing.T, db *gorm.DB, invoiceID uint, amount float64) models.Payment {
	t.Helper()
	ref := fmt.Sprintf("ref-%s-%d-%f", t.Name(), invoiceID, amount)
	p := models.Payment{
		InvoiceID:         invoiceID,
		Amount:            amount,
		Method:            models.MethodTransfer,
		PaymentDate:       time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		ExternalReference: &ref,
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("payment: %v", err)
	}
	return p
}
