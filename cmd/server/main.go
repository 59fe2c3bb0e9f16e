package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/sdrwatch/internal/alerts"
	"github.com/RMahshie/sdrwatch/internal/api"
	"github.com/RMahshie/sdrwatch/internal/api/handlers"
	"github.com/RMahshie/sdrwatch/internal/collector"
	"github.com/RMahshie/sdrwatch/internal/config"
	"github.com/RMahshie/sdrwatch/internal/dashboard"
	"github.com/RMahshie/sdrwatch/internal/dialog"
	"github.com/RMahshie/sdrwatch/internal/observability"
	"github.com/RMahshie/sdrwatch/internal/poller"
	"github.com/RMahshie/sdrwatch/pkg/models"
)

const version = "1.0.0"

func main() {
	// Configure zerolog for structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if !cfg.IsDev() {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	if level, err := zerolog.ParseLevel(cfg.Server.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	} else {
		log.Warn().Str("log_level", cfg.Server.LogLevel).Msg("Unknown log level, using info")
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	client, err := collector.NewClient(collector.Config{
		BaseURL:           cfg.Collector.URL,
		Timeout:           cfg.Collector.RequestTimeout,
		LegacyLatitudeKey: cfg.Collector.LegacyLatitudeKey,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create collector client")
	}

	dataPoller := poller.New(client, poller.Config{
		Interval:     cfg.Poller.Interval,
		DiscardStale: cfg.Poller.DiscardStale,
	}, metrics)

	board := dashboard.New(dataPoller, dashboard.Config{
		ContainerWidthPx: cfg.Layout.ContainerWidthPx,
		LabelCharWidthPx: cfg.Layout.LabelCharWidthPx,
		LabelPaddingPx:   cfg.Layout.LabelPaddingPx,
	})
	defer board.Close()

	nodes := dialog.NewNodeRegistry(client, dataPoller, cfg.Collector.RequestTimeout, metrics)
	tasking := dialog.NewTaskConfigurator(client, board, dataPoller, cfg.Collector.RequestTimeout, metrics)

	live := handlers.NewLiveHub(dataPoller, cfg.Server.AllowedOrigins, metrics)
	dataPoller.Subscribe(live.Broadcast)

	var alertPublisher *alerts.AlertPublisher
	if cfg.MQTT.Broker != "" {
		mqttClient, err := alerts.Connect(alerts.Config{
			Broker:   cfg.MQTT.Broker,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
		})
		if err != nil {
			log.Error().Err(err).Str("broker", cfg.MQTT.Broker).Msg("MQTT unavailable, alerts disabled")
		} else {
			alertPublisher = alerts.NewAlertPublisher(mqttClient, cfg.MQTT.Topic, metrics)
			dataPoller.Subscribe(alertPublisher.HandleSnapshot)
			defer mqttClient.Disconnect(250)
		}
	}

	// Create Chi router
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(zerologLogger())
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(noCacheAPI)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Create Huma API
	humaConfig := huma.DefaultConfig("SDR Watch API", version)
	humaConfig.DocsPath = "/api/docs"
	humaAPI := humachi.New(router, humaConfig)

	// Register health endpoint
	huma.Register(humaAPI, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns the health status of the service",
	}, func(ctx context.Context, input *struct{}) (*models.HealthResponse, error) {
		resp := &models.HealthResponse{}
		resp.Body.Status = "healthy"
		resp.Body.Version = version
		resp.Body.Time = time.Now()
		resp.Body.Ready = dataPoller.HasSnapshot()
		return resp, nil
	})

	api.RegisterRoutes(router, humaAPI, api.Deps{
		Source:   dataPoller,
		Viewer:   board,
		Dialogs:  handlers.NewDialogHandler(nodes, nodes, tasking),
		Live:     live,
		Gatherer: registry,
	})

	pollCtx, stopPolling := context.WithCancel(context.Background())
	defer stopPolling()
	dataPoller.Start(pollCtx)

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Str("addr", srv.Addr).Str("collector", cfg.Collector.URL).Msg("Starting SDR Watch server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	dataPoller.Stop()
	live.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if alertPublisher != nil {
		alertPublisher.Wait()
	}

	log.Info().Msg("Server exited")
}

// zerologLogger returns a Chi middleware that logs HTTP requests using zerolog
func zerologLogger() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				log.Info().
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("remote_ip", r.RemoteAddr).
					Int("status", ww.Status()).
					Dur("latency", time.Since(start)).
					Str("user_agent", r.UserAgent()).
					Msg("HTTP request")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// noCacheAPI marks every /api response as uncacheable
func noCacheAPI(next http.Handler) http.Handler {
	noCache := middleware.NoCache(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			noCache.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
