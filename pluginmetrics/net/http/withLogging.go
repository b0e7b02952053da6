package http

import (
	"strconv"
	"strings"
	"time"

	constant "github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/constants"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/log"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const entityIDLocal = "pluginmetrics.entity_id"

// RequestInfo holds access log data for one request.
type RequestInfo struct {
	RequestID     string
	Method        string
	URI           string
	RemoteAddress string
	UserAgent     string
	Protocol      string
	EntityID      string
	Status        int
	Size          int
	Date          time.Time
	Duration      time.Duration
}

// NewRequestInfo captures the request side of an access log entry.
func NewRequestInfo(c *fiber.Ctx) *RequestInfo {
	return &RequestInfo{
		RequestID:     c.Get(constant.HeaderID),
		Method:        c.Method(),
		URI:           c.OriginalURL(),
		RemoteAddress: c.IP(),
		UserAgent:     c.Get(constant.HeaderUserAgent),
		Protocol:      c.Protocol(),
		Date:          time.Now().UTC(),
	}
}

// Finish fills the response side once the handler chain has returned.
func (r *RequestInfo) Finish(c *fiber.Ctx) {
	r.Duration = time.Since(r.Date)
	r.Status = c.Response().StatusCode()
	r.Size = len(c.Response().Body())

	if id, ok := c.Locals(entityIDLocal).(string); ok {
		r.EntityID = id
	}
}

// CLFString renders the entry close to the Common Log Format.
func (r *RequestInfo) CLFString() string {
	return strings.Join([]string{
		r.RemoteAddress,
		"-",
		"-",
		r.Protocol,
		r.Date.Format("[02/Jan/2006:15:04:05 -0700]"),
		`"` + r.Method + " " + r.URI + `"`,
		strconv.Itoa(r.Status),
		strconv.Itoa(r.Size),
		orDash(r.UserAgent),
	}, " ")
}

func (r *RequestInfo) String() string {
	return r.CLFString()
}

// Fields returns the structured form of the entry.
func (r *RequestInfo) Fields() []log.Field {
	fields := []log.Field{
		log.String("request_id", r.RequestID),
		log.String("method", r.Method),
		log.String("path", r.URI),
		log.Int("status", r.Status),
		log.Duration("latency", r.Duration),
		log.Int("size", r.Size),
	}

	if r.EntityID != "" {
		fields = append(fields, log.String("entity_id", r.EntityID))
	}

	return fields
}

type logMiddleware struct {
	logger    log.Logger
	skipPaths map[string]struct{}
}

// LogMiddlewareOption configures WithHTTPLogging.
type LogMiddlewareOption func(*logMiddleware)

// WithCustomLogger sets the access logger. Nil is ignored.
func WithCustomLogger(logger log.Logger) LogMiddlewareOption {
	return func(m *logMiddleware) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithSkipPaths excludes exact paths from access logging.
func WithSkipPaths(paths ...string) LogMiddlewareOption {
	return func(m *logMiddleware) {
		for _, p := range paths {
			m.skipPaths[p] = struct{}{}
		}
	}
}

// WithHTTPLogging logs one entry per request after the handler chain returns.
// Requests without an X-Request-Id get a generated one, echoed on the response.
// Server errors are logged at error level.
func WithHTTPLogging(opts ...LogMiddlewareOption) fiber.Handler {
	mid := &logMiddleware{
		logger:    log.NewNop(),
		skipPaths: map[string]struct{}{"/health": {}, "/ping": {}},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(mid)
		}
	}

	return func(c *fiber.Ctx) error {
		if _, skip := mid.skipPaths[c.Path()]; skip {
			return c.Next()
		}

		ensureRequestID(c)

		info := NewRequestInfo(c)

		err := c.Next()
		if err != nil {
			// Let the error handler write the response before its status is read.
			if handlerErr := c.App().ErrorHandler(c, err); handlerErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}

			err = nil
		}

		info.Finish(c)

		level := log.LevelInfo
		if info.Status >= fiber.StatusInternalServerError {
			level = log.LevelError
		}

		mid.logger.Log(c.UserContext(), level, info.CLFString(), info.Fields()...)

		return err
	}
}

func ensureRequestID(c *fiber.Ctx) {
	if c.Get(constant.HeaderID) != "" {
		c.Set(constant.HeaderID, c.Get(constant.HeaderID))

		return
	}

	id := uuid.NewString()
	c.Request().Header.Set(constant.HeaderID, id)
	c.Set(constant.HeaderID, id)
}

func setEntityID(c *fiber.Ctx, entityID string) {
	c.Locals(entityIDLocal, entityID)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}
