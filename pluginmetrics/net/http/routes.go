package http

import (
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/log"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/runtime"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AppOption customizes NewApp.
type AppOption func(*appConfig)

type appConfig struct {
	ingestMiddleware []fiber.Handler
}

// WithIngestMiddleware runs handler before the /v1 ingestion routes, for
// example a rate limiter. A nil handler is ignored.
func WithIngestMiddleware(handler fiber.Handler) AppOption {
	return func(cfg *appConfig) {
		if handler != nil {
			cfg.ingestMiddleware = append(cfg.ingestMiddleware, handler)
		}
	}
}

// NewApp builds a fiber app with every route registered and access logging
// through logger. gatherer may be nil, in which case /metrics/prometheus is
// not mounted.
func NewApp(h *Handler, gatherer prometheus.Gatherer, logger log.Logger, opts ...AppOption) *fiber.App {
	logger = log.OrNop(logger)

	var cfg appConfig

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          h.ErrorHandler,
	})

	app.Use(WithHTTPLogging(WithCustomLogger(logger)))
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, panicValue any) {
			runtime.HandlePanicValue(c.UserContext(), logger, panicValue, "http", "handler")
		},
	}))

	app.Get("/ping", Ping)
	app.Get("/health", h.Health)
	app.Get("/metrics", h.Metrics)

	if gatherer != nil {
		app.Get("/metrics/prometheus", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	v1 := app.Group("/v1")

	for _, mw := range cfg.ingestMiddleware {
		v1.Use(mw)
	}

	v1.Post("/requests", h.RecordRequest)
	v1.Post("/errors", h.ReportError)

	return app
}
