// Package payment talks to the Xendit invoicing API. An invoice is created
// strictly after the order row is committed; a gateway failure leaves the
// order at PENDING for a later retry.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/currency"

	"github.com/RZKY888X/bakery-store/internal/order"
)

var ErrGateway = errors.New("payment gateway error")

// invoiceDuration is how long a payable link stays open, in seconds (2 days).
const invoiceDuration = 172800

type ClientType string

const (
	ClientWeb    ClientType = "web"
	ClientMobile ClientType = "mobile"
)

type Customer struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Email     string `json:"email,omitempty"`
}

// LineItem is the human-readable breakdown shown on the gateway's checkout
// page. Price is already rounded to the gateway's minor-unit convention.
type LineItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
}

// Invoice is the gateway's payable reference for one order.
type Invoice struct {
	URL        string `json:"invoiceUrl"`
	ID         string `json:"invoiceId"`
	ExternalID string `json:"externalId"`
}

type Config struct {
	BaseURL       string
	SecretKey     string
	Currency      string
	WebSuccessURL string
	WebFailureURL string
	MobileScheme  string
}

type Gateway struct {
	HTTP     *http.Client
	cfg      Config
	currency currency.Unit
}

func New(cfg Config) (*Gateway, error) {
	unit, err := currency.ParseISO(cfg.Currency)
	if err != nil {
		return nil, fmt.Errorf("currency[%s] is not valid: %w", cfg.Currency, err)
	}
	return &Gateway{
		HTTP:     &http.Client{Timeout: 8 * time.Second},
		cfg:      cfg,
		currency: unit,
	}, nil
}

// NewExternalID mints the gateway-side reference for one invoice attempt.
func NewExternalID(client ClientType) string {
	if client == ClientMobile {
		return "ORDER-MOBILE-" + uuid.NewString()
	}
	return "ORDER-" + uuid.NewString()
}

type invoiceRequest struct {
	ExternalID         string          `json:"external_id"`
	Amount             int64           `json:"amount"`
	Description        string          `json:"description"`
	InvoiceDuration    int             `json:"invoice_duration"`
	Currency           string          `json:"currency"`
	ReminderTime       int             `json:"reminder_time"`
	Customer           invoiceCustomer `json:"customer"`
	Items              []LineItem      `json:"items"`
	SuccessRedirectURL string          `json:"success_redirect_url"`
	FailureRedirectURL string          `json:"failure_redirect_url"`
}

type invoiceCustomer struct {
	GivenNames   string `json:"given_names"`
	Surname      string `json:"surname"`
	MobileNumber string `json:"mobile_number"`
	Email        string `json:"email,omitempty"`
}

type invoiceResponse struct {
	ID         string `json:"id"`
	ExternalID string `json:"external_id"`
	InvoiceURL string `json:"invoice_url"`
}

type gatewayError struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// CreateInvoice submits a payable invoice for an already-committed order
// and returns the gateway's references. The caller persists them on the
// order so the webhook can be reconciled later.
func (g *Gateway) CreateInvoice(ctx context.Context, o *order.Order, items []LineItem, cust Customer, client ClientType, externalID string) (*Invoice, error) {
	success, failure := g.redirects(client, o.ID)

	body := invoiceRequest{
		ExternalID:      externalID,
		Amount:          o.TotalAmount.Round(0).IntPart(),
		Description:     fmt.Sprintf("Order #%d - %d item(s)", o.ID, len(items)),
		InvoiceDuration: invoiceDuration,
		Currency:        g.currency.String(),
		ReminderTime:    1,
		Customer: invoiceCustomer{
			GivenNames:   cust.FirstName,
			Surname:      cust.LastName,
			MobileNumber: cust.Phone,
			Email:        cust.Email,
		},
		Items:              items,
		SuccessRedirectURL: success,
		FailureRedirectURL: failure,
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("json.Marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(g.cfg.BaseURL, "/")+"/v2/invoices", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("http.NewRequestWithContext: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.cfg.SecretKey, "")

	res, err := g.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		var ge gatewayError
		_ = json.NewDecoder(res.Body).Decode(&ge)
		if ge.Message != "" {
			return nil, fmt.Errorf("%w: %s %s", ErrGateway, ge.ErrorCode, ge.Message)
		}
		return nil, fmt.Errorf("%w: unexpected status %s", ErrGateway, res.Status)
	}

	var out invoiceResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrGateway, err)
	}
	return &Invoice{URL: out.InvoiceURL, ID: out.ID, ExternalID: out.ExternalID}, nil
}

func (g *Gateway) redirects(client ClientType, orderID int64) (success, failure string) {
	if client == ClientMobile {
		return fmt.Sprintf("%s://payment/success?orderId=%d", g.cfg.MobileScheme, orderID),
			fmt.Sprintf("%s://payment/failed?orderId=%d", g.cfg.MobileScheme, orderID)
	}
	return g.cfg.WebSuccessURL, g.cfg.WebFailureURL
}
