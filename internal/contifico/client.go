// Package contifico is a thin client for the external billing system's
// collections feed. Only the fields the sync needs are decoded.
package contifico

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// PaymentEvent is one registered collection in the external system.
type PaymentEvent struct {
	ID            string
	InvoiceNumber string
	Amount        float64
	Method        string
	Date          time.Time
}

type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// cobroDTO mirrors the wire format: amounts are decimal strings and dates
// come as DD/MM/YYYY.
type cobroDTO struct {
	ID         string `json:"id"`
	Documento  string `json:"documento"`
	Monto      string `json:"monto"`
	FormaCobro string `json:"forma_cobro"`
	Fecha      string `json:"fecha"`
}

// FetchPaymentEvents pulls the registered collections. The context bounds the
// whole call; auth or transport failures surface as a single error.
func (c *Client) FetchPaymentEvents(ctx context.Context) ([]PaymentEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/registro/cobro/", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contifico request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("contifico returned %d: %s", resp.StatusCode, string(body))
	}

	var rows []cobroDTO
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("contifico decode: %w", err)
	}

	events := make([]PaymentEvent, 0, len(rows))
	for _, r := range rows {
		amount, err := strconv.ParseFloat(r.Monto, 64)
		if err != nil {
			return nil, fmt.Errorf("contifico amount %q on %s: %w", r.Monto, r.ID, err)
		}
		date, err := time.Parse("02/01/2006", r.Fecha)
		if err != nil {
			return nil, fmt.Errorf("contifico date %q on %s: %w", r.Fecha, r.ID, err)
		}
		events = append(events, PaymentEvent{
			ID:            r.ID,
			InvoiceNumber: r.Documento,
			Amount:        amount,
			Method:        mapMethod(r.FormaCobro),
			Date:          date,
		})
	}
	return events, nil
}

// mapMethod translates the external payment-form codes.
func mapMethod(formaCobro string) string {
	switch formaCobro {
	case "EF":
		return "cash"
	case "CQ":
		return "check"
	case "TRA":
		return "transfer"
	default:
		return "external"
	}
}
