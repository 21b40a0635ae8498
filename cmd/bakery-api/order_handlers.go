package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/RZKY888X/bakery-store/internal/httpx"
	"github.com/RZKY888X/bakery-store/internal/order"
	"github.com/RZKY888X/bakery-store/internal/report"
	"github.com/RZKY888X/bakery-store/internal/user"
)

// orderErrorStatus maps order service failures onto HTTP codes. Anything
// unrecognized is a storage/transient failure.
func orderErrorStatus(err error) int {
	switch {
	case order.IsValidationError(err):
		return http.StatusBadRequest
	case errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrInvalidTransition), errors.Is(err, order.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func orderErrorMessage(err error) string {
	switch {
	case order.IsValidationError(err):
		return err.Error()
	case errors.Is(err, order.ErrNotFound):
		return "order not found"
	case errors.Is(err, order.ErrInvalidTransition):
		return "illegal status transition"
	case errors.Is(err, order.ErrConflict):
		return "order changed concurrently, please retry"
	default:
		return "please try again"
	}
}

// createOrderHandler godoc
// @Summary  Checkout the cart into a new PENDING order
// @Accept   json
// @Produce  json
// @Param    payload body order.CreateRequest true "cart"
// @Success  201 {object} order.Order
// @Router   /orders [post]
func createOrderHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := httpx.Claims(c)
		var req order.CreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid json"})
			return
		}
		o, err := svc.Create(c.Request.Context(), claims.UserID, req)
		if err != nil {
			c.JSON(orderErrorStatus(err), gin.H{"message": orderErrorMessage(err)})
			return
		}
		c.JSON(http.StatusCreated, o)
	}
}

func myOrdersHandler(repo order.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := httpx.Claims(c)
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		orders, err := repo.ListByUser(c.Request.Context(), claims.UserID, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "server error fetching orders"})
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

func listOrdersHandler(repo order.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		orders, err := repo.ListRecent(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "server error fetching all orders"})
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

func statsHandler(svc *order.Service, users user.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := svc.Stats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "error fetching stats"})
			return
		}
		stats.Users, err = users.CountByRole(c.Request.Context(), user.RoleUser)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "error fetching stats"})
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// salesReportHandler godoc
// @Summary  Time-bucketed sales series for the dashboard
// @Produce  json
// @Param    range query string false "today | weekly | monthly"
// @Success  200 {object} map[string][]report.Bucket
// @Router   /orders/report [get]
func salesReportHandler(svc *report.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		rng := report.ParseRange(c.Query("range"))
		buckets, err := svc.Sales(c.Request.Context(), rng)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "error fetching report"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"salesData": buckets})
	}
}

// updateOrderStatusHandler godoc
// @Summary  Move an order through its lifecycle
// @Accept   json
// @Produce  json
// @Param    id path int true "order id"
// @Success  200 {object} order.Order
// @Router   /orders/{id}/status [put]
func updateOrderStatusHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid order id"})
			return
		}
		var req struct {
			Status string `json:"status"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid json"})
			return
		}
		target, err := order.ToStatus(req.Status)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		o, err := svc.SetStatus(c.Request.Context(), id, target)
		if err != nil {
			c.JSON(orderErrorStatus(err), gin.H{"message": orderErrorMessage(err)})
			return
		}
		c.JSON(http.StatusOK, o)
	}
}
