package job

import (
	"context"
	"errors"
	"time"

	"sentiment-alpha/internal/domain"
	"sentiment-alpha/internal/service"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// SignalPoller runs the signal cycle on a fixed interval.
type SignalPoller struct {
	tracer   trace.Tracer
	logger   zerolog.Logger
	runner   CycleRunner
	interval time.Duration
}

type CycleRunner interface {
	RunOnce(ctx context.Context) (*domain.CycleResult, error)
}

func NewSignalPoller(tracer trace.Tracer, logger zerolog.Logger, runner CycleRunner, interval time.Duration) *SignalPoller {
	return &SignalPoller{
		tracer:   tracer,
		logger:   logger.With().Str("component", "poller").Logger(),
		runner:   runner,
		interval: interval,
	}
}

// Start runs one cycle immediately and then one per tick. Blocks until ctx is
// cancelled. Ticks that fire during a slow cycle are dropped by the ticker.
func (p *SignalPoller) Start(ctx context.Context) {
	if p.runner == nil || p.interval <= 0 {
		p.logger.Warn().Msg("signal poller disabled")
		<-ctx.Done()
		return
	}

	p.logger.Info().Dur("interval", p.interval).Msg("signal poller starting")
	p.tick(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("signal poller stopped")
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *SignalPoller) tick(ctx context.Context) {
	ctx, span := p.tracer.Start(ctx, "signal-poller.tick")
	defer span.End()

	result, err := p.runner.RunOnce(ctx)
	switch {
	case errors.Is(err, service.ErrCycleSkipped):
		p.logger.Debug().Msg("cycle skipped, another instance holds the lock")
	case err != nil:
		if ctx.Err() != nil {
			return
		}
		p.logger.Error().Err(err).Msg("signal cycle failed")
	case result != nil && result.Emitted:
		p.logger.Debug().Str("action", string(result.Action)).Float64("alpha", result.Alpha).Msg("signal emitted")
	}
}
