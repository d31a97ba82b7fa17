package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/egfanboy/mediapire-gateway/internal/app"
	"github.com/egfanboy/mediapire-gateway/internal/catalog"
	"github.com/egfanboy/mediapire-gateway/internal/consul"
	"github.com/egfanboy/mediapire-gateway/internal/health"
	mediasource "github.com/egfanboy/mediapire-gateway/internal/integrations/media-source"
	"github.com/egfanboy/mediapire-gateway/internal/logging"
	"github.com/egfanboy/mediapire-gateway/internal/media"
	"github.com/egfanboy/mediapire-gateway/internal/metrics"
	"github.com/egfanboy/mediapire-gateway/internal/proxy"
	"github.com/egfanboy/mediapire-gateway/pkg/types"
	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
)

var cleanupFuncs []func()

func addCleanupFunc(fn func()) {
	cleanupFuncs = append(cleanupFuncs, fn)
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to a YAML config file (defaults to $CONFIG_PATH)")
	flag.Parse()

	err := app.InitApp(configPath)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	gateway := app.GetApp()
	cfg := gateway.Config

	logger := logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log.Info().Msg("Initializing Mediapire Gateway")

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	defer func() {
		signal.Stop(c)
		log.Info().Msg("Running cleanup functions")
		for i := len(cleanupFuncs) - 1; i >= 0; i-- {
			cleanupFuncs[i]()
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	mediaSource, err := mediasource.NewMediaSourceIntegration(mediasource.Config{
		BaseUrl: cfg.Backend.Url,
		Token:   cfg.Backend.Token,
		RootId:  types.ContentID(cfg.Catalog.RootId),
		Timeout: cfg.Backend.Timeout,
	}, m)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create media source client")
		os.Exit(1)
	}

	streamer := proxy.NewStreamer(mediaSource, proxy.Config{
		ChunkSize:      cfg.Proxy.ChunkSize,
		ConnectTimeout: cfg.Proxy.ConnectTimeout,
		IdleTimeout:    cfg.Proxy.IdleTimeout,
	}, m)
	addCleanupFunc(streamer.CloseIdleConnections)

	gateway.ControllerRegistry.Register(health.NewController())
	gateway.ControllerRegistry.Register(catalog.NewController(
		catalog.NewCatalogService(mediaSource),
		catalog.ControllerConfig{
			RootId:   types.ContentID(cfg.Catalog.RootId),
			BasePath: cfg.BasePath,
			UiTitle:  cfg.Ui.Title,
		},
	))
	gateway.ControllerRegistry.Register(media.NewController(media.NewMediaService(mediaSource, streamer)))

	mainRouter := mux.NewRouter()
	mainRouter.Use(m.Middleware)
	mainRouter.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	apiRouter := mainRouter
	if cfg.BasePath != "" {
		apiRouter = mainRouter.PathPrefix(cfg.BasePath).Subrouter()
	}
	gateway.ControllerRegistry.BuildAll(apiRouter)

	var handler http.Handler = mainRouter
	if len(cfg.Cors.AllowedOrigins) > 0 {
		handler = cors.Handler(cors.Options{
			AllowedOrigins: cfg.Cors.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"Content-Length", "X-Request-ID"},
			MaxAge:         300,
		})(handler)
	}
	handler = logging.Middleware(logger)(handler)

	srv := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		ReadHeaderTimeout: time.Second * 15,
		ReadTimeout:       time.Second * 15,
		// streams are bounded by the proxy idle timeout
		WriteTimeout: 0,
		IdleTimeout:  time.Second * 60,
		Handler:      handler,
	}

	go func() {
		err := srv.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("")
			os.Exit(1)
		}
	}()

	addCleanupFunc(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("Forcing server close")
			srv.Close()
		}
	})

	if cfg.Consul.Enabled {
		err = consul.NewConsulClient(cfg.Consul)
		if err != nil {
			log.Error().Err(err).Msg("Failed to connect to consul")
			os.Exit(1)
		}

		err = consul.RegisterService(cfg)
		if err != nil {
			log.Error().Err(err).Msg("Failed to register service to consul")
			os.Exit(1)
		}

		addCleanupFunc(func() {
			if err := consul.UnregisterService(cfg); err != nil {
				log.Warn().Err(err).Msg("Failed to unregister service from consul")
			}
		})
	}

	log.Info().Int("port", cfg.Port).Str("backend", cfg.Backend.Url).Msg("Mediapire Gateway running")

	<-c
}
