package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maian3333/ridehub-ms-booking/internal/api/handlers"
	"github.com/maian3333/ridehub-ms-booking/internal/api/middleware"
	"github.com/maian3333/ridehub-ms-booking/internal/cache"
	"github.com/maian3333/ridehub-ms-booking/internal/config"
	"github.com/maian3333/ridehub-ms-booking/internal/health"
	"github.com/maian3333/ridehub-ms-booking/internal/metrics"
	"github.com/maian3333/ridehub-ms-booking/internal/models"
	repository "github.com/maian3333/ridehub-ms-booking/internal/repositories"
	service "github.com/maian3333/ridehub-ms-booking/internal/services"
	"github.com/maian3333/ridehub-ms-booking/pkg/email"
	"github.com/maian3333/ridehub-ms-booking/pkg/gateway/sepay"
	"github.com/maian3333/ridehub-ms-booking/pkg/gateway/vnpay"
)

func main() {

	// Logger setup
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load config
	cfg := config.MustLoad()

	// Database setup
	repos, transactionRepo, ticketRepo, err := repository.New(cfg)
	if err != nil {
		slog.Error("❌ Error accessing the database", "error", err.Error())
		os.Exit(1)
	}

	defer func() {
		if err := repos.Close(); err != nil {
			slog.Error("⚠️ Error closing database connection", slog.String("error", err.Error()))
		} else {
			slog.Info("✅ Database connection closed")
		}
	}()

	// Redis setup
	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		slog.Error("❌ Error accessing the redis instance", "error", err.Error())
		os.Exit(1)
	}

	snapshotCache := cache.NewRedisCache(redisClient, &cfg.Cache)

	defer func() {
		if err := snapshotCache.Close(); err != nil {
			slog.Error("⚠️ Error closing redis connection", slog.String("error", err.Error()))
		}
	}()

	sePayClient := sepay.NewClient(cfg.SePay)
	vnPayClient := vnpay.NewClient(cfg.VNPay)
	emailService := email.NewService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)
	notificationService := service.NewNotificationService(emailService)
	paymentService := service.NewPaymentService(transactionRepo, ticketRepo, snapshotCache, notificationService, sePayClient, vnPayClient)
	ticketService := service.NewTicketService(ticketRepo)
	paymentHandler := handlers.NewPaymentHandler(paymentService, map[models.PaymentMethod]string{
		models.PaymentMethodSePay: cfg.SePay.ReturnFEURL,
		models.PaymentMethodVNPay: cfg.VNPay.ReturnFEURL,
	})
	ticketHandler := handlers.NewTicketHandler(ticketService)

	healthHandler, err := health.NewHealthHandler(cfg, &health.Endpoints{
		DB:          repos.DB,
		RedisClient: redisClient,
	})
	if err != nil {
		slog.Error("❌ Error building health checks", "error", err.Error())
		os.Exit(1)
	}

	slog.Info("storage initialized", slog.String("env", cfg.Env), slog.String("version", "1.0.0"))

	// Setup router
	routerMux := http.NewServeMux()
	routerMux.HandleFunc("POST /api/payment/checkout", paymentHandler.Checkout())
	routerMux.HandleFunc("POST /api/payment/{kind}/webhook", paymentHandler.Webhook())
	routerMux.HandleFunc("GET /api/payment/{kind}/webhook", paymentHandler.Webhook())
	routerMux.HandleFunc("GET /api/payment/{kind}/callback", paymentHandler.Callback())
	routerMux.HandleFunc("GET /api/payment/{kind}/query/{transactionId}", paymentHandler.QueryStatus())
	routerMux.HandleFunc("POST /api/payment/{kind}/refund/{transactionId}", paymentHandler.Refund())
	routerMux.HandleFunc("POST /api/payment/{kind}/poll/{transactionId}", paymentHandler.Poll())
	routerMux.HandleFunc("GET /api/tickets/{code}", ticketHandler.GetTicket())
	routerMux.HandleFunc("GET /api/bookings/{bookingRef}/tickets", ticketHandler.ListBookingTickets())
	routerMux.HandleFunc("POST /api/tickets/{code}/cancel", ticketHandler.Cancel())
	routerMux.HandleFunc("POST /api/tickets/{code}/refund", ticketHandler.Refund())
	routerMux.HandleFunc("POST /api/tickets/{code}/exchange", ticketHandler.Exchange())
	routerMux.HandleFunc("POST /api/tickets/{code}/checkin", ticketHandler.CheckIn())
	routerMux.Handle("GET /metrics", metrics.Handler())
	routerMux.Handle("GET /health", healthHandler.Handler())

	// Middleware chaining
	var handler http.Handler = routerMux
	handler = metrics.Middleware(handler)
	handler = middleware.Logging(handler)

	// Setup http server
	server := http.Server{
		Addr:    cfg.Addr,
		Handler: handler,
	}

	slog.Info("🚀 Server is starting...", slog.String("address", cfg.Addr))

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("❌ Failed to start server", slog.Any("error", err.Error()))
		}
	}()

	<-done

	slog.Warn("🛑 Shutdown signal received. Preparing to stop the server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("⚠️ Server shutdown encountered an issue", slog.String("error", err.Error()))
	} else {
		slog.Info("✅ Server shut down gracefully. All connections closed.")
	}

}
