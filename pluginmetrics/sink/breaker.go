package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/internal/nilcheck"
	"github.com/LerianStudio/lib-plugin-metrics/pluginmetrics/log"
	"github.com/sony/gobreaker"
)

// ErrSinkUnavailable wraps rejections by an open or half-open breaker.
var ErrSinkUnavailable = errors.New("sink: unavailable (circuit breaker open)")

// BreakerConfig mirrors gobreaker.Settings with trip thresholds.
type BreakerConfig struct {
	Name                string
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
	FailureRatio        float64
	MinRequests         uint32
}

// DefaultBreakerConfig trips after five consecutive publish failures and probes again after a minute.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:                "pluginmetrics-sink",
		MaxRequests:         1,
		Interval:            5 * time.Minute,
		Timeout:             time.Minute,
		ConsecutiveFailures: 5,
		FailureRatio:        0.5,
		MinRequests:         10,
	}
}

// Breaker guards a sink with a circuit breaker.
type Breaker struct {
	next    Sink
	breaker *gobreaker.CircuitBreaker
	logger  log.Logger
}

// NewBreaker wraps next.
func NewBreaker(next Sink, cfg BreakerConfig, logger log.Logger) (*Breaker, error) {
	if nilcheck.Interface(next) {
		return nil, ErrNilSink
	}

	logger = log.OrNop(logger)

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if cfg.ConsecutiveFailures > 0 && counts.ConsecutiveFailures >= cfg.ConsecutiveFailures {
				return true
			}

			if cfg.MinRequests == 0 || counts.Requests < cfg.MinRequests {
				return false
			}

			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Log(context.Background(), log.LevelWarn, "sink circuit breaker state changed",
				log.String("breaker", name),
				log.String("from", from.String()),
				log.String("to", to.String()),
			)
		},
	}

	return &Breaker{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}, nil
}

// SetMetrics implements Sink.
func (b *Breaker) SetMetrics(ctx context.Context, text string) error {
	_, err := b.breaker.Execute(func() (any, error) {
		return nil, b.next.SetMetrics(ctx, text)
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrSinkUnavailable, err)
	}

	return err
}

// State returns the breaker state name: "closed", "half-open" or "open".
func (b *Breaker) State() string {
	return b.breaker.State().String()
}

// Name returns the breaker name.
func (b *Breaker) Name() string {
	return b.breaker.Name()
}
