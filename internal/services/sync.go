package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/propadmin/backoffice/internal/contifico"
	"github.com/propadmin/backoffice/internal/models"
)

// EventSource is the external collections feed. The HTTP client satisfies it;
// tests inject fakes.
type EventSource interface {
	FetchPaymentEvents(ctx context.Context) ([]contifico.PaymentEvent, error)
}

// SyncReport aggregates one sync pass.
type SyncReport struct {
	InvoicesChecked     int
	InvoicesUpdated     int
	NewPaymentsInserted int
	PaymentsSkipped     int
}

// SyncService ingests external payment events into the payment ledger.
// Inserts are deduplicated by external reference, so a pass is idempotent and
// a failed run can simply be retried; already-applied updates stand.
type SyncService struct {
	DB     *gorm.DB
	Source EventSource
	Status *StatusController
}

func NewSyncService(db *gorm.DB, src EventSource) *SyncService {
	return &SyncService{DB: db, Source: src, Status: NewStatusController(db)}
}

// Sync runs one sequential pass over the external feed.
func (s *SyncService) Sync(ctx context.Context) (SyncReport, error) {
	var report SyncReport
	events, err := s.Source.FetchPaymentEvents(ctx)
	if err != nil {
		return report, fmt.Errorf("fetch payment events: %v: %w", err, ErrExternal)
	}

	checked := map[uint]bool{}
	updated := map[uint]bool{}
	for _, ev := range events {
		var existing models.Payment
		err := s.DB.WithContext(ctx).Where("external_reference = ?", ev.ID).First(&existing).Error
		if err == nil {
			report.PaymentsSkipped++
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return report, fmt.Errorf("payment lookup: %w", ErrPersistence)
		}

		var inv models.Invoice
		if err := s.DB.WithContext(ctx).Where("number = ?", ev.InvoiceNumber).First(&inv).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Printf("sync: no invoice for external document %s, skipping event %s", ev.InvoiceNumber, ev.ID)
				report.PaymentsSkipped++
				continue
			}
			return report, fmt.Errorf("invoice lookup: %w", ErrPersistence)
		}
		if !checked[inv.ID] {
			checked[inv.ID] = true
			report.InvoicesChecked++
		}

		ref := ev.ID
		method := ev.Method
		if !models.ValidMethod(method) {
			method = models.MethodExternal
		}
		payment := models.Payment{
			InvoiceID:         inv.ID,
			Amount:            RoundMoney(ev.Amount),
			Method:            method,
			PaymentDate:       ev.Date,
			ExternalReference: &ref,
		}
		if err := s.DB.WithContext(ctx).Create(&payment).Error; err != nil {
			return report, fmt.Errorf("insert payment %s: %w", ev.ID, ErrPersistence)
		}
		report.NewPaymentsInserted++

		didUpdate, err := s.Status.CreditPayment(ctx, inv.ID)
		if err != nil {
			return report, err
		}
		if didUpdate && !updated[inv.ID] {
			updated[inv.ID] = true
			report.InvoicesUpdated++
		}
	}
	return report, nil
}
