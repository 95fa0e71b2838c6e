// Package app wires the back-office API server.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/backoffice/internal/domain/analytics"
	"github.com/xenking/backoffice/internal/domain/menu"
	"github.com/xenking/backoffice/internal/domain/order"
	"github.com/xenking/backoffice/internal/events"
	"github.com/xenking/backoffice/internal/handler"
	"github.com/xenking/backoffice/internal/storage/postgres"
	"github.com/xenking/backoffice/pkg/health"
	"github.com/xenking/backoffice/pkg/httpmiddleware"
)

const serviceName = "backoffice-api"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.MaxConns)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	var publisher order.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		pub := events.NewPublisher(events.NewWriter(events.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		}))
		defer func() {
			if err := pub.Close(); err != nil {
				lg.Warn("Close event publisher", zap.Error(err))
			}
		}()
		publisher = pub
		lg.Info("Publishing order events",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	svc, err := newServices(pool, cfg, publisher,
		m.MeterProvider().Meter("github.com/xenking/backoffice/internal/domain/order"))
	if err != nil {
		return err
	}

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, cfg, svc, healthSvc, m),
	}

	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

type services struct {
	menu      *menu.Service
	orders    *order.Service
	analytics *analytics.Service
}

func newServices(pool *pgxpool.Pool, cfg *Config, publisher order.Publisher, meter metric.Meter) (*services, error) {
	menuRepo := postgres.NewMenuRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)

	orders, err := order.NewService(
		order.Config{PageSize: cfg.Orders.PageSize},
		orderRepo, menuRepo, publisher, meter,
	)
	if err != nil {
		return nil, errors.Wrap(err, "create order service")
	}
	return &services{
		menu:      menu.NewService(menuRepo),
		orders:    orders,
		analytics: analytics.NewService(orderRepo, menuRepo, cfg.Analytics.TopSellersLimit),
	}, nil
}

// newHandler builds the router with probes and API routes behind the
// middleware chain. The first middleware is the outermost.
func newHandler(ctx context.Context, cfg *Config, svc *services, hc *health.Health, tel httpmiddleware.Telemetry) http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/livez", hc.LiveEndpoint).Methods(http.MethodGet).Name("livez")
	router.HandleFunc("/readyz", hc.ReadyEndpoint).Methods(http.MethodGet).Name("readyz")
	handler.New(svc.menu, svc.orders, svc.analytics).RegisterRoutes(router)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httpmiddleware.WriteMessage(w, http.StatusNotFound, "Route not found")
	})

	routeFinder := httpmiddleware.MakeRouteFinder(router)
	lg := zctx.From(ctx)
	return httpmiddleware.Wrap(router,
		httpmiddleware.Recovery(lg),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", httpmiddleware.RequestIDHeader},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.Instrument(serviceName, routeFinder, tel),
		httpmiddleware.LogRequests(routeFinder),
		httpmiddleware.Labeler(routeFinder),
	)
}
