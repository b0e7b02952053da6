package http

import (
	"context"
	"errors"
	"fmt"

	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/analytics"
	constant "github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/constants"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/correlator"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/internal/nilcheck"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/log"
	"github.com/gofiber/fiber/v2"
)

// Recorder accepts request outcomes.
type Recorder interface {
	Record(ctx context.Context, key analytics.Key, success bool, latencyMillis float64)
}

// ErrorTextReporter accepts side-channel error lines.
type ErrorTextReporter interface {
	ReportErrorText(ctx context.Context, entityID, message string) correlator.Outcome
}

// TextSource returns the latest exposition text.
type TextSource interface {
	Text() string
}

// RecordRequestInput is the body of POST /v1/requests.
type RecordRequestInput struct {
	EntityID      string  `json:"entityId" validate:"max=256"`
	Operation     string  `json:"operation" validate:"max=256"`
	Success       *bool   `json:"success" validate:"required"`
	LatencyMillis float64 `json:"latencyMillis" validate:"gte=0"`
}

// ReportErrorInput is the body of POST /v1/errors.
type ReportErrorInput struct {
	EntityID string `json:"entityId" validate:"max=256"`
	Message  string `json:"message" validate:"required,max=8192"`
}

// IngestResponse reports whether an ingestion call changed the store.
type IngestResponse struct {
	Accepted  bool   `json:"accepted"`
	Operation string `json:"operation,omitempty"`
	Applied   bool   `json:"applied,omitempty"`
	Dropped   string `json:"dropped,omitempty"`
}

// Handler serves the ingestion and scrape endpoints.
type Handler struct {
	recorder Recorder
	reporter ErrorTextReporter
	text     TextSource
	status   func() fiber.Map
	logger   log.Logger
}

// NewHandler wires the handler. status may be nil.
func NewHandler(recorder Recorder, reporter ErrorTextReporter, text TextSource, status func() fiber.Map, logger log.Logger) (*Handler, error) {
	if nilcheck.Interface(recorder) || nilcheck.Interface(reporter) || nilcheck.Interface(text) {
		return nil, fmt.Errorf("%w: recorder, reporter and text source are required", ErrValidationFailed)
	}

	return &Handler{
		recorder: recorder,
		reporter: reporter,
		text:     text,
		status:   status,
		logger:   log.OrNop(logger),
	}, nil
}

// Ping returns HTTP Status 200 with response "pong".
func Ping(c *fiber.Ctx) error {
	return c.SendString("pong")
}

// RecordRequest handles POST /v1/requests. A blank entity id is accepted and ignored.
func (h *Handler) RecordRequest(c *fiber.Ctx) error {
	var in RecordRequestInput
	if err := c.BodyParser(&in); err != nil {
		return fmt.Errorf("%w: %w", ErrBodyParseFailed, err)
	}

	if err := ValidateStruct(&in); err != nil {
		return err
	}

	if nilcheck.Blank(in.EntityID) {
		return Respond(c, fiber.StatusAccepted, IngestResponse{Accepted: false})
	}

	setEntityID(c, in.EntityID)

	op := in.Operation
	if nilcheck.Blank(op) {
		op = constant.UnknownOperation
	}

	h.recorder.Record(c.UserContext(), analytics.Key{EntityID: in.EntityID, Operation: op}, *in.Success, in.LatencyMillis)

	return Respond(c, fiber.StatusAccepted, IngestResponse{Accepted: true, Operation: op})
}

// ReportError handles POST /v1/errors.
func (h *Handler) ReportError(c *fiber.Ctx) error {
	var in ReportErrorInput
	if err := c.BodyParser(&in); err != nil {
		return fmt.Errorf("%w: %w", ErrBodyParseFailed, err)
	}

	if err := ValidateStruct(&in); err != nil {
		return err
	}

	if nilcheck.Blank(in.EntityID) {
		return Respond(c, fiber.StatusAccepted, IngestResponse{Accepted: false})
	}

	setEntityID(c, in.EntityID)

	out := h.reporter.ReportErrorText(c.UserContext(), in.EntityID, in.Message)

	return Respond(c, fiber.StatusAccepted, IngestResponse{
		Accepted:  out.Dropped == "",
		Operation: out.Operation,
		Applied:   out.Applied,
		Dropped:   out.Dropped,
	})
}

// Metrics handles GET /metrics with the latest published exposition text.
// Before the first export it answers 204.
func (h *Handler) Metrics(c *fiber.Ctx) error {
	text := h.text.Text()
	if text == "" {
		return c.SendStatus(fiber.StatusNoContent)
	}

	c.Set(fiber.HeaderContentType, constant.ExpositionContentType)

	return c.SendString(text)
}

// Health handles GET /health.
func (h *Handler) Health(c *fiber.Ctx) error {
	body := fiber.Map{"status": "available"}

	if h.status != nil {
		for k, v := range h.status() {
			body[k] = v
		}
	}

	return Respond(c, fiber.StatusOK, body)
}

// ErrorHandler is the fiber error handler for this surface. Only unexpected
// errors are logged; their details never reach the client.
func (h *Handler) ErrorHandler(c *fiber.Ctx, err error) error {
	var (
		resp ErrorResponse
		fe   *fiber.Error
	)

	if !errors.As(err, &resp) && !errors.As(err, &fe) && !isClientError(err) {
		h.logger.Log(c.UserContext(), log.LevelError, "handler error",
			log.String("method", c.Method()),
			log.String("path", c.Path()),
			log.Err(err),
		)
	}

	return RenderError(c, err)
}
