package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Lixing-Zhang/smart-checkout/backend/internal/classifier"
	"github.com/Lixing-Zhang/smart-checkout/backend/internal/config"
	"github.com/Lixing-Zhang/smart-checkout/backend/internal/events"
	"github.com/Lixing-Zhang/smart-checkout/backend/internal/handlers"
	"github.com/Lixing-Zhang/smart-checkout/backend/internal/imaging"
	"github.com/Lixing-Zhang/smart-checkout/backend/internal/inference"
	"github.com/Lixing-Zhang/smart-checkout/backend/internal/middleware"
	"github.com/Lixing-Zhang/smart-checkout/backend/internal/models"
	"github.com/Lixing-Zhang/smart-checkout/backend/internal/repository"
	"github.com/Lixing-Zhang/smart-checkout/backend/internal/service"
	"github.com/Lixing-Zhang/smart-checkout/backend/internal/session"
	"github.com/Lixing-Zhang/smart-checkout/backend/pkg/logger"
)

type receiptPublisher interface {
	service.ReceiptPublisher
	Close() error
}

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	log.Info("starting self-checkout api server",
		"port", cfg.Server.Port,
		"host", cfg.Server.Host,
		"log_level", cfg.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize catalog
	catalog, err := loadCatalog(ctx, cfg.Catalog)
	if err != nil {
		log.Error("failed to load product catalog", "driver", cfg.Catalog.Driver, "error", err)
		os.Exit(1)
	}
	log.Info("product catalog loaded", "driver", cfg.Catalog.Driver, "products", catalog.Len())

	// Initialize classifier
	labels, err := classifier.LoadLabels(cfg.Model.LabelsPath)
	if err != nil {
		log.Error("failed to load model labels", "path", cfg.Model.LabelsPath, "error", err)
		os.Exit(1)
	}

	var model classifier.Model
	if m, err := inference.NewOpenCVModel(cfg.Model.Path, cfg.Model.ConfigPath); err != nil {
		log.Warn("model not loaded, predictions disabled", "path", cfg.Model.Path, "error", err)
	} else {
		defer m.Close()
		model = m
		log.Info("model loaded", "path", cfg.Model.Path, "labels", len(labels))
	}

	adapter, err := classifier.NewAdapter(model, catalog, classifier.Options{
		Labels:              labels,
		ConfidenceThreshold: cfg.Model.ConfidenceThreshold,
	})
	if err != nil {
		log.Error("failed to create classifier", "error", err)
		os.Exit(1)
	}

	// Initialize receipt publisher
	publisher := newPublisher(cfg.Events, log)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("failed to close receipt publisher", "error", err)
		}
	}()

	// Initialize services
	policy, _ := service.ParseUnmatchedPolicy(cfg.Pricing.UnmatchedPolicy)
	pricingService := service.NewPricingService(catalog, service.PricingOptions{
		TaxRate:         cfg.Pricing.TaxRate,
		UnmatchedPolicy: policy,
	})
	checkoutService := service.NewCheckoutService(pricingService, service.CheckoutOptions{
		Publisher: publisher,
		Logger:    log,
	})
	productService := service.NewProductService(catalog)
	classificationService := service.NewClassificationService(
		imaging.NewNormalizer(cfg.Model.MaxPayloadBytes, cfg.Model.MaxPixels),
		adapter,
		imaging.Size{Width: cfg.Model.ImageWidth, Height: cfg.Model.ImageHeight},
		log,
	)

	sessions := session.NewStore(cfg.Session.TTL)
	go sessions.Run(ctx, time.Minute)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(classificationService, productService, log)
	productHandler := handlers.NewProductHandler(productService, log)
	classificationHandler := handlers.NewClassificationHandler(classificationService, int64(cfg.Model.MaxPayloadBytes)*4/3+1024, log)
	cartHandler := handlers.NewCartHandler(pricingService, checkoutService, log)
	sessionHandler := handlers.NewSessionHandler(sessions, pricingService, checkoutService, log)

	// Create router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(chimiddleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// The websocket stream outlives any request timeout
	r.Get("/api/predict/stream", classificationHandler.Stream)

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(60 * time.Second))

		r.Get("/", healthHandler.Status)
		r.Get("/api/health", healthHandler.ServeHTTP)

		// API routes
		r.Route("/api", func(r chi.Router) {
			// Product endpoints
			r.Get("/products", productHandler.ListProducts)
			r.Get("/product/barcode/{code}", productHandler.GetProductByBarcode)
			r.Get("/product/{name}", productHandler.GetProduct)

			// Recognition
			r.Post("/predict", classificationHandler.Predict)

			// Cart and checkout
			r.Post("/cart/calculate", cartHandler.Calculate)
			r.Post("/checkout", cartHandler.Checkout)

			// Kiosk sessions
			r.Post("/session", sessionHandler.Create)
			r.Get("/session/{id}", sessionHandler.Get)
			r.Delete("/session/{id}", sessionHandler.Delete)
			r.Post("/session/{id}/items", sessionHandler.AddItem)
			r.Delete("/session/{id}/items", sessionHandler.Clear)
			r.Delete("/session/{id}/items/{name}", sessionHandler.RemoveItem)
			r.Post("/session/{id}/checkout", sessionHandler.Checkout)
		})
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()
	log.Info("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		return
	}

	log.Info("server stopped gracefully")
}

// loadCatalog builds the in-memory catalog from the configured source.
// A sqlite database is created and seeded with the default products when empty.
func loadCatalog(ctx context.Context, cfg config.CatalogConfig) (*repository.InMemoryProductRepository, error) {
	if cfg.Driver == "" {
		return repository.NewDefaultProductRepository(), nil
	}

	db, err := repository.OpenCatalogDB(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if cfg.Driver == "sqlite3" {
		if err := repository.MigrateSQLite(ctx, db, repository.DefaultProducts()); err != nil {
			return nil, err
		}
	}

	var products []models.Product
	if products, err = repository.LoadProducts(ctx, db); err != nil {
		return nil, err
	}
	return repository.NewInMemoryProductRepository(products)
}

func newPublisher(cfg config.EventsConfig, log *slog.Logger) receiptPublisher {
	if len(cfg.KafkaBrokers) == 0 {
		log.Info("no kafka brokers configured, receipts are not published")
		return events.NoopPublisher{}
	}
	log.Info("publishing receipts to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.ReceiptTopic)
	return events.NewKafkaPublisher(events.NewKafkaWriter(cfg.KafkaBrokers, cfg.ReceiptTopic))
}
