package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"

	"github.com/dulcehogar/shop/internal/app"
	"github.com/dulcehogar/shop/internal/app/handlers"
	"github.com/dulcehogar/shop/internal/cache"
	"github.com/dulcehogar/shop/internal/config"
	"github.com/dulcehogar/shop/internal/jwt/jwtmiddleware"
	"github.com/dulcehogar/shop/internal/lib/logger"
	"github.com/dulcehogar/shop/internal/lib/logger/handlers/reqlog"
	"github.com/dulcehogar/shop/internal/messaging/kafka"
	"github.com/dulcehogar/shop/internal/payment"
	"github.com/dulcehogar/shop/internal/service"
	"github.com/dulcehogar/shop/internal/storage"
)

const serviceName = "shop"

func main() {
	cfg := config.MustLoad()

	log := logger.SetupLogger(cfg.Env)
	log.Info("starting app", slog.String("env", cfg.Env))

	application, err := app.NewApp(log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer application.Close()

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(reqlog.Middleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	userRepo := storage.NewUserRepository(application.DB)
	productRepo := storage.NewProductRepository(application.DB)
	catalogRepo := storage.NewCatalogRepository(application.DB)
	cartRepo := storage.NewCartRepository(application.DB)
	orderRepo := storage.NewOrderRepository(application.DB)
	addressRepo := storage.NewAddressRepository(application.DB)
	favoriteRepo := storage.NewFavoriteRepository(application.DB)

	appCache := cache.NewRedisCache(application.Redis, serviceName)
	publisher, _ := kafka.NewKafkaBroker(log, cfg.Kafka.Brokers)
	provider := payment.NewHTTPProvider(cfg.Payment.BaseURL, cfg.Payment.APIKey, cfg.Payment.Timeout)

	authService := service.NewAuthService(log, userRepo, time.Duration(cfg.JWT.TokenTTL)*time.Minute)
	catalogService := service.NewCatalogService(log, productRepo, catalogRepo, orderRepo)
	cartService := service.NewCartService(log, cartRepo, productRepo)
	favoriteService := service.NewFavoriteService(log, favoriteRepo, productRepo)
	addressService := service.NewAddressService(log, addressRepo)
	checkoutService := service.NewCheckoutService(log, cartRepo, productRepo, addressRepo, provider, cfg.Payment.SuccessURL)
	orderService := service.NewOrderService(log, application.DB, orderRepo, productRepo, cartRepo, addressRepo,
		provider, publisher, appCache, cfg.Kafka.OrdersTopic, cfg.Redis.SessionTTL)
	invoiceService := service.NewInvoiceService(log, orderRepo, appCache)

	// public storefront endpoints
	router.Post("/api/auth", handlers.AuthHandler(log, authService))
	router.Get("/api/products", handlers.ListProductsHandler(log, catalogService))
	router.Get("/api/products/{id}", handlers.GetProductHandler(log, catalogService))
	router.Get("/api/categories", handlers.ListCategoriesHandler(log, catalogService))
	router.Get("/api/brands", handlers.ListBrandsHandler(log, catalogService))

	// endpoints behind authentication
	router.Group(func(r chi.Router) {
		r.Use(jwtmiddleware.NewJWTMiddleware())

		r.Get("/api/cart", handlers.GetCartHandler(log, cartService))
		r.Post("/api/cart", handlers.AddToCartHandler(log, cartService))
		r.Delete("/api/cart", handlers.ClearCartHandler(log, cartService))
		r.Delete("/api/cart/{productID}", handlers.RemoveFromCartHandler(log, cartService))

		r.Get("/api/favorites", handlers.ListFavoritesHandler(log, favoriteService))
		r.Post("/api/favorites", handlers.AddFavoriteHandler(log, favoriteService))
		r.Delete("/api/favorites/{productID}", handlers.RemoveFavoriteHandler(log, favoriteService))

		r.Get("/api/addresses", handlers.ListAddressesHandler(log, addressService))
		r.Post("/api/addresses", handlers.CreateAddressHandler(log, addressService))
		r.Delete("/api/addresses/{id}", handlers.DeleteAddressHandler(log, addressService))

		r.Post("/api/checkout/session", handlers.StartCheckoutHandler(log, checkoutService))
		r.Post("/api/order/confirm", handlers.ConfirmOrderHandler(log, orderService))
		r.Get("/api/orders", handlers.ListOrdersHandler(log, orderService))
		r.Get("/api/invoice/{sessionID}", handlers.InvoiceHandler(log, invoiceService))
	})

	// admin endpoints
	router.Group(func(r chi.Router) {
		r.Use(jwtmiddleware.NewJWTMiddleware())
		r.Use(jwtmiddleware.RequireAdmin)

		r.Post("/api/admin/products", handlers.SaveProductHandler(log, catalogService))
		r.Patch("/api/admin/products/{id}/active", handlers.SetProductActiveHandler(log, catalogService))
		r.Post("/api/admin/categories", handlers.CreateCategoryHandler(log, catalogService))
		r.Post("/api/admin/brands", handlers.CreateBrandHandler(log, catalogService))
		r.Get("/api/admin/sales/summary", handlers.SalesSummaryHandler(log, catalogService))
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.Any("error", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	stopSign := <-stop
	log.Info("received shutdown signal", slog.String("signal", stopSign.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", slog.Any("error", err))
	}
	log.Info("server gracefully stopped")
}
