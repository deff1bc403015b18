package signal

import (
	"time"

	"sentiment-alpha/internal/domain"
)

type Options struct {
	Weights    Weights
	Thresholds Thresholds
	Emit       EmitPolicy
}

func DefaultOptions() Options {
	return Options{
		Weights:    DefaultWeights(),
		Thresholds: DefaultThresholds(),
		Emit:       DefaultEmitPolicy(),
	}
}

// Engine runs the alpha model and the decision state machine. It holds no
// mutable state; the caller owns DecisionState.
type Engine struct {
	opts Options
	now  func() time.Time
}

type Decision struct {
	Alpha        float64
	Contribution domain.Contribution
	Action       domain.Action
	Emit         bool
}

func NewEngine(opts Options, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{opts: opts, now: now}
}

func (e *Engine) Options() Options {
	return e.opts
}

func (e *Engine) Now() time.Time {
	return e.now()
}

// Step computes one decision and returns the state to carry into the next
// cycle. The input state is not modified.
func (e *Engine) Step(state domain.DecisionState, in AlphaInput, now time.Time) (Decision, domain.DecisionState) {
	alpha, contrib := ComputeAlpha(in, e.opts.Weights)
	action := Decide(alpha, state.LastAction, e.opts.Thresholds)
	emit := ShouldEmit(state, action, alpha, now, e.opts.Emit)

	next := domain.DecisionState{LastAction: &action, LastEmit: state.LastEmit}
	if emit {
		next.LastEmit = now
	}

	return Decision{
		Alpha:        alpha,
		Contribution: contrib,
		Action:       action,
		Emit:         emit,
	}, next
}
