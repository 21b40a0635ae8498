package main

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/RZKY888X/bakery-store/internal/httpx"
	"github.com/RZKY888X/bakery-store/internal/order"
	"github.com/RZKY888X/bakery-store/internal/payment"
	"github.com/RZKY888X/bakery-store/internal/product"
)

type checkoutItem struct {
	ProductID int64           `json:"id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type checkoutRequest struct {
	Items           []checkoutItem     `json:"items"`
	Total           decimal.Decimal    `json:"total"`
	Customer        payment.Customer   `json:"customer"`
	ShippingAddress string             `json:"shippingAddress"`
	ClientType      payment.ClientType `json:"clientType"`
}

// checkoutHandler commits the order first, then asks the gateway for an
// invoice. A gateway failure does not roll the order back; the response
// tells the client the order id so invoice creation can be retried.
func checkoutHandler(svc *order.Service, repo order.Repository, gw *payment.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := httpx.Claims(c)
		var req checkoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid json"})
			return
		}

		createReq := order.CreateRequest{
			TotalAmount:     req.Total,
			ShippingAddress: req.ShippingAddress,
			PaymentMethod:   "XENDIT",
		}
		for _, it := range req.Items {
			createReq.Items = append(createReq.Items, order.CreateItem{
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				Price:     it.Price,
			})
		}

		o, err := svc.Create(c.Request.Context(), claims.UserID, createReq)
		if err != nil {
			c.JSON(orderErrorStatus(err), gin.H{"message": orderErrorMessage(err)})
			return
		}

		lineItems := make([]payment.LineItem, 0, len(req.Items))
		for _, it := range req.Items {
			lineItems = append(lineItems, payment.LineItem{
				Name:     it.Name,
				Quantity: it.Quantity,
				Price:    it.Price.Round(0).IntPart(),
			})
		}

		client := req.ClientType
		if client == "" {
			client = payment.ClientWeb
		}
		externalID := payment.NewExternalID(client)

		inv, err := gw.CreateInvoice(c.Request.Context(), o, lineItems, req.Customer, client, externalID)
		if err != nil {
			log.Printf("[payment] invoice failed for order=%d: %v", o.ID, err)
			c.JSON(http.StatusBadGateway, gin.H{
				"message": "we couldn't reach payment, the order is pending",
				"orderId": o.ID,
			})
			return
		}

		if err := repo.SetInvoiceRef(c.Request.Context(), o.ID, inv.ID, inv.ExternalID); err != nil {
			// the invoice exists either way; without the ref the webhook
			// cannot match this order and it needs manual reconciliation
			log.Printf("[payment] persisting invoice ref for order=%d failed: %v", o.ID, err)
		}

		c.JSON(http.StatusOK, gin.H{
			"invoiceUrl": inv.URL,
			"invoiceId":  inv.ID,
			"externalId": inv.ExternalID,
			"orderId":    o.ID,
		})
	}
}

type retryInvoiceRequest struct {
	Customer   payment.Customer   `json:"customer"`
	ClientType payment.ClientType `json:"clientType"`
}

// retryInvoiceHandler re-runs the gateway phase for an order that was
// committed but whose invoice creation failed. Only PENDING orders qualify.
func retryInvoiceHandler(repo order.Repository, products product.Repository, gw *payment.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := httpx.Claims(c)
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid order id"})
			return
		}
		var req retryInvoiceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid json"})
			return
		}

		o, err := repo.GetByID(c.Request.Context(), id)
		if err != nil {
			c.JSON(orderErrorStatus(err), gin.H{"message": orderErrorMessage(err)})
			return
		}
		if o.UserID != claims.UserID && !claims.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{"message": "not your order"})
			return
		}
		if o.Status != order.StatusPending {
			c.JSON(http.StatusConflict, gin.H{"message": "order is not awaiting payment"})
			return
		}

		lineItems := make([]payment.LineItem, 0, len(o.Items))
		for _, it := range o.Items {
			name := fmt.Sprintf("Item %d", it.ProductID)
			if p, err := products.GetByID(c.Request.Context(), it.ProductID); err == nil {
				name = p.Name
			}
			lineItems = append(lineItems, payment.LineItem{
				Name:     name,
				Quantity: it.Quantity,
				Price:    it.Price.Round(0).IntPart(),
			})
		}

		client := req.ClientType
		if client == "" {
			client = payment.ClientWeb
		}
		// reuse the persisted external id so a webhook for an earlier,
		// still-payable invoice of this order keeps matching it
		externalID := o.ExternalID
		if externalID == "" {
			externalID = payment.NewExternalID(client)
		}

		inv, err := gw.CreateInvoice(c.Request.Context(), o, lineItems, req.Customer, client, externalID)
		if err != nil {
			log.Printf("[payment] invoice retry failed for order=%d: %v", o.ID, err)
			c.JSON(http.StatusBadGateway, gin.H{"message": "we couldn't reach payment", "orderId": o.ID})
			return
		}
		if err := repo.SetInvoiceRef(c.Request.Context(), o.ID, inv.ID, inv.ExternalID); err != nil {
			log.Printf("[payment] persisting invoice ref for order=%d failed: %v", o.ID, err)
		}

		c.JSON(http.StatusOK, gin.H{
			"invoiceUrl": inv.URL,
			"invoiceId":  inv.ID,
			"externalId": inv.ExternalID,
			"orderId":    o.ID,
		})
	}
}

type webhookPayload struct {
	ID         string `json:"id"`
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
}

// paymentWebhookHandler handles the gateway's server-to-server invoice
// notification. It authenticates the shared callback token and matches the
// order by the persisted external id, never by a client-asserted order id.
func paymentWebhookHandler(svc *order.Service, callbackToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader("X-Callback-Token")
		if callbackToken == "" ||
			subtle.ConstantTimeCompare([]byte(got), []byte(callbackToken)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid callback token"})
			return
		}

		var payload webhookPayload
		if err := c.ShouldBindJSON(&payload); err != nil || payload.ExternalID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid payload"})
			return
		}

		// only settled invoices advance the order; expiry and the rest are
		// acknowledged so the gateway stops retrying
		if payload.Status != "PAID" && payload.Status != "SETTLED" {
			c.JSON(http.StatusOK, gin.H{"message": "ignored"})
			return
		}

		o, err := svc.ConfirmPayment(c.Request.Context(), payload.ExternalID)
		if err != nil {
			if errors.Is(err, order.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"message": "unknown external id"})
				return
			}
			c.JSON(orderErrorStatus(err), gin.H{"message": orderErrorMessage(err)})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "order status updated", "order": o})
	}
}
