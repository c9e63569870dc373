// ABOUTME: Wires config, connection context, governor, adapter, transport and store
// ABOUTME: One app is built per command invocation and closed when it finishes

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/2389/coven-control/internal/config"
	"github.com/2389/coven-control/internal/connection"
	"github.com/2389/coven-control/internal/fault"
	"github.com/2389/coven-control/internal/gatewayapi"
	"github.com/2389/coven-control/internal/metrics"
	"github.com/2389/coven-control/internal/realtime"
	"github.com/2389/coven-control/internal/reconcile"
	"github.com/2389/coven-control/internal/reliability"
	"github.com/2389/coven-control/internal/service"
	"github.com/2389/coven-control/internal/store"
)

// app holds the collaborators shared by every command.
type app struct {
	cfg        *config.Config
	configPath string
	prefsPath  string
	logger     *slog.Logger

	conn      *connection.Context
	governor  *reliability.Governor
	client    *gatewayapi.Client
	transport *realtime.Transport
	store     *store.SQLiteStore

	metricsSrv *http.Server
}

func newApp(ctx context.Context, path, levelOverride string) (*app, error) {
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if levelOverride != "" {
		cfg.Logging.Level = levelOverride
	}
	logger := setupLogger(cfg.Logging)

	key, err := store.LoadOrCreateKey(cfg.Database.SecretKeyPath)
	if err != nil {
		return nil, fmt.Errorf("loading secret key: %w", err)
	}
	st, err := store.NewSQLiteStore(cfg.Database.Path, store.WithSecretKey(key), store.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	a := &app{
		cfg:        cfg,
		configPath: path,
		prefsPath:  filepath.Join(filepath.Dir(path), "connection.toml"),
		logger:     logger,
		store:      st,
	}

	opts, socketURL, streamURL, err := a.connectionOptions(ctx)
	if err != nil {
		st.Close()
		return nil, err
	}
	a.conn = connection.NewContext(opts)

	a.governor = reliability.NewGovernor(
		reliability.WithBaseDelay(cfg.Reliability.BaseDelay),
		reliability.WithCooldown(cfg.Reliability.CircuitCooldown),
		reliability.WithIdempotency(cfg.Reliability.IdempotencyTTL, cfg.Reliability.IdempotencyMaxKeys),
		reliability.WithLogger(logger),
	)
	a.client = gatewayapi.NewClient(a.conn,
		gatewayapi.WithHTTPClient(&http.Client{Timeout: cfg.Gateway.RequestTimeout}),
		gatewayapi.WithGovernor(a.governor, cfg.Reliability.MaxAttempts),
		gatewayapi.WithLogger(logger),
	)
	a.transport = realtime.NewTransport(a.conn,
		realtime.WithSocketURL(socketURL),
		realtime.WithStreamURL(streamURL),
		realtime.WithLogger(logger),
	)

	return a, nil
}

// connectionOptions layers saved connection preferences over the config
// file. The token comes from config first, then the secret store.
func (a *app) connectionOptions(ctx context.Context) (connection.Options, string, string, error) {
	baseURL := a.cfg.Gateway.BaseURL
	socketURL := a.cfg.Realtime.SocketURL
	streamURL := a.cfg.Realtime.StreamURL

	prefs, err := connection.LoadPreferences(a.prefsPath)
	if err != nil {
		return connection.Options{}, "", "", err
	}
	if prefs != nil {
		if prefs.BaseURL != "" {
			baseURL = prefs.BaseURL
		}
		if prefs.SocketURL != "" {
			socketURL = prefs.SocketURL
		}
		if prefs.StreamURL != "" {
			streamURL = prefs.StreamURL
		}
	}

	token := a.cfg.Gateway.Token
	if token == "" {
		stored, ok, err := a.store.RetrieveSecret(ctx, connection.TokenSecretKey)
		if err != nil {
			a.logger.Warn("could not read saved gateway token", "error", err)
		} else if ok {
			token = stored
		}
	}
	if token != "" && connection.TokenExpired(token, time.Now()) {
		a.logger.Warn("gateway token has expired; run coven-control connect --token to replace it")
	}

	opts, err := connection.NewOptions(baseURL, token)
	if err != nil {
		return connection.Options{}, "", "", fmt.Errorf("gateway connection: %w", err)
	}
	return opts, socketURL, streamURL, nil
}

func (a *app) dashboard() *service.Dashboard {
	return service.NewDashboard(a.client, a.store, a.logger)
}

func (a *app) agents() *service.Agents {
	return service.NewAgents(a.client, a.store, a.logger)
}

func (a *app) tasks() *service.Tasks {
	return service.NewTasks(a.client, a.store)
}

func (a *app) security() *service.Security {
	return service.NewSecurity(a.store, a.store, a.governor, a.logger)
}

func (a *app) engine() *reconcile.Engine {
	return reconcile.NewEngine(a.transport, a.store, a.logger)
}

// Close releases everything newApp opened.
func (a *app) Close() {
	if a.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = a.metricsSrv.Shutdown(ctx)
		cancel()
	}
	if a.governor != nil {
		a.governor.Close()
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store", "error", err)
	}
}

func startMetricsServer(addr string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", "error", err)
		}
	}()
	return srv
}

// errorMessage turns classified gateway failures into operator guidance
// and leaves every other error as is.
func errorMessage(err error, endpoint string) string {
	if fault.KindOf(err) != fault.KindUnknown || fault.FromTransport(err) != err {
		return fault.UserMessage(err, endpoint)
	}
	return err.Error()
}
