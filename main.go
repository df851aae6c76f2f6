package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/fabotse/tdec-prospect-sub000/internal/audit"
	"github.com/fabotse/tdec-prospect-sub000/internal/config"
	"github.com/fabotse/tdec-prospect-sub000/internal/oauth"
	"github.com/fabotse/tdec-prospect-sub000/internal/observe"
	"github.com/fabotse/tdec-prospect-sub000/internal/server"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/justinas/alice"
)

func configureServerRoutes(cfg config.Config, client *http.Client) (http.Handler, error) {
	// wrap a mux such that HTTP telemetry is configured by default
	muxWithoutTelemetry := http.NewServeMux()
	mux := observe.NewMux(muxWithoutTelemetry)

	auditor := audit.Middleware()

	// The request body size is limited to prevent accidental or deliberate
	// abuse. Bulk lead uploads are the largest legitimate payloads.
	requestLimitBytes := int64(5 << 20) // 5 MB
	requestLimiter := maxRequestSize(requestLimitBytes)

	providerRouteMiddleware := alice.New(requestLimiter, auditor)
	standardRouteMiddleware := alice.New(requestLimiter)

	// the token source is process-wide so the fingerprint-keyed cache
	// survives across requests and tenants
	sinchTokens, err := oauth.NewSource("Sinch", cfg.Providers.Sinch.TokenURL, client)
	if err != nil {
		return nil, fmt.Errorf("sinch token source configuration failed: %w", err)
	}

	deps := handlerDeps{
		providers:   cfg.Providers,
		client:      client,
		sinchTokens: sinchTokens,
	}

	mux.Handle("POST /instantly/campaigns", providerRouteMiddleware.Then(handleInstantlyCreateCampaign(deps)))
	mux.Handle("GET /instantly/campaigns/{id}", providerRouteMiddleware.Then(handleInstantlyGetCampaign(deps)))
	mux.Handle("POST /instantly/campaigns/{id}/leads", providerRouteMiddleware.Then(handleInstantlyAddLeads(deps)))

	mux.Handle("POST /apollo/contacts", providerRouteMiddleware.Then(handleApolloCreateContacts(deps)))
	mux.Handle("POST /apollo/accounts", providerRouteMiddleware.Then(handleApolloCreateAccount(deps)))
	mux.Handle("POST /apollo/search", providerRouteMiddleware.Then(handleApolloSearch(deps)))

	mux.Handle("POST /phantombuster/agents/{id}/launch", providerRouteMiddleware.Then(handlePhantombusterLaunch(deps)))
	mux.Handle("GET /phantombuster/containers/{id}/output", providerRouteMiddleware.Then(handlePhantombusterOutput(deps)))

	mux.Handle("POST /sinch/messages", providerRouteMiddleware.Then(handleSinchSendMessages(deps)))

	// healthchecks are not included in telemetry
	muxWithoutTelemetry.Handle("GET /healthcheck", standardRouteMiddleware.Then(handleHealthCheck()))

	return mux, nil
}

func main() {
	configureLogging()

	logBuildInfo()

	err := launchServer()
	if err != nil {
		log.Fatal().Err(err).Msg("server failed to start")
	}
}

func launchServer() error {
	ctx := context.Background()

	// a missing .env file is the normal case outside development
	if err := godotenv.Load(); err == nil {
		log.Info().Msg("loaded environment from .env")
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("configuration load failed: %w", err)
	}

	// configure telemetry, including wrapping the shared HTTP client used
	// for all outbound provider traffic
	shutdownTelemetry, err := observe.Configure(ctx, cfg.Observe)
	if err != nil {
		return fmt.Errorf("telemetry bootstrap failed: %w", err)
	}

	transport := observe.HTTPTransport(configureHTTPTransport(cfg.Server), cfg.Observe)
	client := &http.Client{Transport: transport}

	handler, err := configureServerRoutes(cfg, client)
	if err != nil {
		return fmt.Errorf("server routing configuration failed: %w", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		MaxHeaderBytes:    20 << 10,         // 20 KB
		ReadHeaderTimeout: 20 * time.Second, // Prevent Slowloris attacks
	}

	hooks := &server.ShutdownHooks{}
	hooks.AddContext("telemetry", shutdownTelemetry)
	hooks.Add("idle connections", func() error {
		client.CloseIdleConnections()
		return nil
	})

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second
	if err := server.Serve(srv, shutdownTimeout, hooks); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

func configureLogging() {
	// Set global level to the minimum: allows the Open Telemetry logging to be
	// configured separately. However, it means that any logger that sets its
	// level will log as this effectively disables the global level.
	zerolog.SetGlobalLevel(zerolog.Level(-128))

	// default level is Info
	log.Logger = log.Level(zerolog.InfoLevel)

	if os.Getenv("ENV") == "development" {
		log.Logger = log.
			Output(zerolog.ConsoleWriter{Out: os.Stdout}).
			Level(zerolog.DebugLevel)
	}

	zerolog.DefaultContextLogger = &log.Logger
}

func logBuildInfo() {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	ev := log.Info()
	for _, v := range buildInfo.Settings {
		if strings.HasPrefix(v.Key, "vcs.") ||
			strings.HasPrefix(v.Key, "GO") ||
			v.Key == "CGO_ENABLED" {
			ev = ev.Str(v.Key, v.Value)
		}
	}

	ev.Msg("build information")
}

func configureHTTPTransport(cfg config.ServerConfig) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	transport.MaxIdleConns = cfg.OutgoingHTTPMaxIdleConns
	transport.MaxConnsPerHost = cfg.OutgoingHTTPMaxConnsPerHost

	return transport
}
