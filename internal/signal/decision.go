package signal

import (
	"math"
	"time"

	"sentiment-alpha/internal/domain"
)

type Thresholds struct {
	Up   float64
	Down float64
	// Hold is the band that keeps a previous accumulate (alpha > Hold) or
	// wait (alpha < -Hold) in place.
	Hold float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{Up: 0.33, Down: -0.33, Hold: 0.2}
}

type EmitPolicy struct {
	MinInterval time.Duration
	StrongAlpha float64
}

const (
	defaultEmitInterval = 5 * time.Second
	minEmitInterval     = 2 * time.Second
	strongAlpha         = 0.66
)

func DefaultEmitPolicy() EmitPolicy {
	return EmitPolicy{MinInterval: defaultEmitInterval, StrongAlpha: strongAlpha}
}

// Decide maps alpha to an action. A previous accumulate or wait is kept while
// alpha stays inside the hold band on the same side.
func Decide(alpha float64, prev *domain.Action, th Thresholds) domain.Action {
	action := domain.ActionHold
	switch {
	case alpha >= th.Up:
		action = domain.ActionAccumulate
	case alpha <= th.Down:
		action = domain.ActionWait
	}

	if prev == nil || *prev == action {
		return action
	}
	if *prev == domain.ActionAccumulate && alpha > th.Hold {
		return domain.ActionAccumulate
	}
	if *prev == domain.ActionWait && alpha < -th.Hold {
		return domain.ActionWait
	}
	return action
}

// ShouldEmit rate-limits notifications. A changed action or a strong alpha
// bypasses the interval.
func ShouldEmit(state domain.DecisionState, action domain.Action, alpha float64, now time.Time, policy EmitPolicy) bool {
	interval := max(policy.MinInterval, minEmitInterval)
	if now.Sub(state.LastEmit) >= interval {
		return true
	}
	if state.LastAction == nil || *state.LastAction != action {
		return true
	}
	strong := policy.StrongAlpha
	if strong <= 0 {
		strong = strongAlpha
	}
	return math.Abs(alpha) >= strong
}
