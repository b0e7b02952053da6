package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/log"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/runtime"
	"github.com/gofiber/fiber/v2"
)

// ErrNoServersConfigured indicates no HTTP server was configured.
var ErrNoServersConfigured = errors.New("no servers configured: use WithHTTPServer()")

// ShutdownHook releases one component during shutdown.
type ShutdownHook func(ctx context.Context) error

type namedHook struct {
	name string
	fn   ShutdownHook
}

// ServerManager serves a fiber app and, on SIGINT, SIGTERM, a closed shutdown
// channel or a startup failure, stops the server, runs the registered hooks in
// order and syncs the logger.
type ServerManager struct {
	httpServer         *fiber.App
	httpAddress        string
	hooks              []namedHook
	logger             log.Logger
	serversStarted     chan struct{}
	serversStartedOnce sync.Once
	shutdownChan       <-chan struct{}
	shutdownOnce       sync.Once
	shutdownTimeout    time.Duration
	startupErrors      chan error
	startupErr         error
}

var _ pluginmetrics.App = (*ServerManager)(nil)

// NewServerManager creates a ServerManager. A nil logger is replaced by a no-op logger.
func NewServerManager(logger log.Logger) *ServerManager {
	return &ServerManager{
		logger:          log.OrNop(logger),
		serversStarted:  make(chan struct{}),
		shutdownTimeout: 30 * time.Second,
		startupErrors:   make(chan error, 1),
	}
}

// WithHTTPServer configures the HTTP server.
func (sm *ServerManager) WithHTTPServer(app *fiber.App, address string) *ServerManager {
	sm.httpServer = app
	sm.httpAddress = address

	return sm
}

// WithShutdownHook appends a hook run after the HTTP server has stopped.
// Hooks run in registration order and share the shutdown timeout.
func (sm *ServerManager) WithShutdownHook(name string, fn ShutdownHook) *ServerManager {
	if fn != nil {
		sm.hooks = append(sm.hooks, namedHook{name: name, fn: fn})
	}

	return sm
}

// WithShutdownChannel replaces OS signal handling with ch.
func (sm *ServerManager) WithShutdownChannel(ch <-chan struct{}) *ServerManager {
	sm.shutdownChan = ch

	return sm
}

// WithShutdownTimeout bounds the whole shutdown sequence. Defaults to 30 seconds.
func (sm *ServerManager) WithShutdownTimeout(d time.Duration) *ServerManager {
	if d > 0 {
		sm.shutdownTimeout = d
	}

	return sm
}

// ServersStarted returns a channel closed once the server goroutine was launched.
// It does not mean the socket is bound.
func (sm *ServerManager) ServersStarted() <-chan struct{} {
	return sm.serversStarted
}

// Run implements pluginmetrics.App.
func (sm *ServerManager) Run(_ *pluginmetrics.Launcher) error {
	return sm.StartWithGracefulShutdownWithError()
}

// StartWithGracefulShutdownWithError starts the server and blocks until
// shutdown completes. It returns the startup error when the server could not
// listen.
func (sm *ServerManager) StartWithGracefulShutdownWithError() error {
	if sm.httpServer == nil {
		return ErrNoServersConfigured
	}

	sm.startServers()
	sm.handleShutdown()

	return sm.startupErr
}

func (sm *ServerManager) startServers() {
	runtime.SafeGoWithContextAndComponent(
		context.Background(),
		sm.logger,
		"server",
		"start_http_server",
		runtime.KeepRunning,
		func(ctx context.Context) {
			sm.logger.Log(ctx, log.LevelInfo, "starting HTTP server", log.String("address", sm.httpAddress))

			if err := sm.httpServer.Listen(sm.httpAddress); err != nil {
				sm.logger.Log(ctx, log.LevelError, "HTTP server error", log.Err(err))

				select {
				case sm.startupErrors <- fmt.Errorf("HTTP server: %w", err):
				default:
				}
			}
		},
	)

	sm.serversStartedOnce.Do(func() {
		close(sm.serversStarted)
	})
}

func (sm *ServerManager) handleShutdown() {
	var signals <-chan os.Signal

	if sm.shutdownChan == nil {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)

		defer signal.Stop(c)

		signals = c
	}

	select {
	case <-sm.shutdownChan:
	case sig := <-signals:
		sm.logger.Log(context.Background(), log.LevelInfo, "signal received", log.String("signal", sig.String()))
	case err := <-sm.startupErrors:
		sm.startupErr = err
		sm.logger.Log(context.Background(), log.LevelError, "server startup failed", log.Err(err))
	}

	sm.logger.Log(context.Background(), log.LevelInfo, "gracefully shutting down")

	sm.executeShutdown()
}

// executeShutdown is idempotent.
func (sm *ServerManager) executeShutdown() {
	sm.shutdownOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), sm.shutdownTimeout)
		defer cancel()

		if sm.httpServer != nil {
			sm.logger.Log(ctx, log.LevelInfo, "shutting down HTTP server")

			if err := sm.httpServer.ShutdownWithContext(ctx); err != nil {
				sm.logger.Log(ctx, log.LevelError, "HTTP server shutdown failed", log.Err(err))
			}
		}

		for _, hook := range sm.hooks {
			sm.runHook(ctx, hook)
		}

		if err := sm.logger.Sync(ctx); err != nil {
			sm.logger.Log(ctx, log.LevelError, "failed to sync logger", log.Err(err))
		}

		sm.logger.Log(ctx, log.LevelInfo, "graceful shutdown completed")
	})
}

func (sm *ServerManager) runHook(ctx context.Context, hook namedHook) {
	defer runtime.RecoverAndLogWithContext(ctx, sm.logger, "server", "shutdown_"+hook.name)

	sm.logger.Log(ctx, log.LevelInfo, "shutting down component", log.String("component", hook.name))

	if err := hook.fn(ctx); err != nil {
		sm.logger.Log(ctx, log.LevelError, "component shutdown failed",
			log.String("component", hook.name),
			log.Err(err),
		)
	}
}
