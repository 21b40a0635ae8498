package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/RZKY888X/bakery-store/docs"
	"github.com/RZKY888X/bakery-store/internal/auth"
	"github.com/RZKY888X/bakery-store/internal/config"
	"github.com/RZKY888X/bakery-store/internal/httpx"
	"github.com/RZKY888X/bakery-store/internal/order"
	"github.com/RZKY888X/bakery-store/internal/payment"
	"github.com/RZKY888X/bakery-store/internal/product"
	"github.com/RZKY888X/bakery-store/internal/report"
	"github.com/RZKY888X/bakery-store/internal/user"
)

// @title        Bakery Store API
// @version      1.0
// @description  Storefront backend: catalog, checkout, payment and sales reporting.
// @BasePath     /api
func main() {
	cfg := config.Load()

	pool, err := pgxpool.New(context.Background(), cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("[api] pgxpool.New: %v", err)
	}
	defer pool.Close()

	orderRepo := order.NewPGRepo(pool)
	orderSvc := order.NewService(orderRepo)
	reportSvc := report.NewService(orderRepo)
	userRepo := user.NewPGRepo(pool)
	userSvc := user.NewService(userRepo)
	productRepo := product.NewPGRepo(pool)
	tokens := auth.NewManager(cfg.JWTSecret, cfg.JWTTTL)

	gateway, err := payment.New(payment.Config{
		BaseURL:       cfg.XenditBaseURL,
		SecretKey:     cfg.XenditSecretKey,
		Currency:      cfg.Currency,
		WebSuccessURL: cfg.WebSuccessURL,
		WebFailureURL: cfg.WebFailureURL,
		MobileScheme:  cfg.MobileScheme,
	})
	if err != nil {
		log.Fatalf("[api] payment.New: %v", err)
	}

	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger())

	r.GET("/healthz", func(c *gin.Context) { c.String(200, "ok") })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	authd := httpx.Auth(tokens)
	admin := httpx.AdminOnly()

	api := r.Group("/api")

	api.POST("/auth/register", registerHandler(userSvc, tokens))
	api.POST("/auth/login", loginHandler(userSvc, tokens))
	api.GET("/users", authd, admin, listUsersHandler(userRepo))
	api.DELETE("/users/:id", authd, admin, deleteUserHandler(userRepo))

	api.GET("/products", listProductsHandler(productRepo))
	api.GET("/products/favorites", listFavoritesHandler(productRepo))
	api.GET("/products/:id", getProductHandler(productRepo))
	api.POST("/products", authd, admin, createProductHandler(productRepo))
	api.PUT("/products/:id", authd, admin, updateProductHandler(productRepo))
	api.DELETE("/products/:id", authd, admin, deleteProductHandler(productRepo))
	api.GET("/categories", listCategoriesHandler(productRepo))
	api.POST("/categories", authd, admin, createCategoryHandler(productRepo))
	api.DELETE("/categories/:id", authd, admin, deleteCategoryHandler(productRepo))

	api.POST("/orders", authd, createOrderHandler(orderSvc))
	api.GET("/orders/my-orders", authd, myOrdersHandler(orderRepo))
	api.GET("/orders", authd, admin, listOrdersHandler(orderRepo))
	api.GET("/orders/stats", authd, admin, statsHandler(orderSvc, userRepo))
	api.GET("/orders/report", authd, admin, salesReportHandler(reportSvc))
	api.PUT("/orders/:id/status", authd, admin, updateOrderStatusHandler(orderSvc))
	api.POST("/orders/:id/invoice", authd, retryInvoiceHandler(orderRepo, productRepo, gateway))

	api.POST("/payment/invoice", authd, checkoutHandler(orderSvc, orderRepo, gateway))
	api.POST("/payment/webhook", paymentWebhookHandler(orderSvc, cfg.XenditCallbackToken))

	log.Printf("[api] listening on %s", cfg.HTTPAddr)
	log.Fatal(r.Run(cfg.HTTPAddr))
}
