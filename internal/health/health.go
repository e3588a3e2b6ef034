package health

import (
	"errors"
	"fmt"
	"math"

	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/config"
)

// Score bounds.
const (
	MinScore = 0
	MaxScore = 100
)

// unknownBattery is the battery state of a sensor that reports no voltage:
// just below the empty reference, so it always dominates min().
const unknownBattery = -0.1

// State is the LED classification of a health score.
type State string

const (
	// StateCritical is shown below the critical threshold.
	StateCritical State = "red"

	// StateDegraded is shown between the two thresholds.
	StateDegraded State = "orange"

	// StateHealthy is shown at or above the healthy threshold.
	StateHealthy State = "green"
)

// ErrInvalidParams is returned by Params.Validate.
var ErrInvalidParams = errors.New("health: invalid parameters")

// Params holds the battery references, score deltas and thresholds.
type Params struct {
	VoltageLow        float64
	VoltageHigh       float64
	SuccessReward     int
	FailurePenalty    int
	CriticalThreshold int
	HealthyThreshold  int

	// DefaultScore is used for a room that has no stored score yet.
	DefaultScore int
}

// FromConfig converts the health section of the daemon configuration.
func FromConfig(cfg config.HealthConfig) Params {
	return Params{
		VoltageLow:        cfg.VoltageLow,
		VoltageHigh:       cfg.VoltageHigh,
		SuccessReward:     cfg.SuccessReward,
		FailurePenalty:    cfg.FailurePenalty,
		CriticalThreshold: cfg.CriticalThreshold,
		HealthyThreshold:  cfg.HealthyThreshold,
		DefaultScore:      cfg.DefaultScore,
	}
}

// Validate checks that the references and thresholds are monotonic.
func (p Params) Validate() error {
	if p.VoltageHigh <= p.VoltageLow {
		return fmt.Errorf("%w: voltage high %.2f must exceed low %.2f", ErrInvalidParams, p.VoltageHigh, p.VoltageLow)
	}
	if p.CriticalThreshold >= p.HealthyThreshold {
		return fmt.Errorf("%w: critical threshold %d must be below healthy threshold %d",
			ErrInvalidParams, p.CriticalThreshold, p.HealthyThreshold)
	}
	if p.SuccessReward < 0 || p.FailurePenalty < 0 {
		return fmt.Errorf("%w: reward and penalty must not be negative", ErrInvalidParams)
	}
	return nil
}

// BatteryPercent maps a battery voltage onto 0..100 by linear interpolation
// between lo (empty) and hi (fresh). A non-positive voltage means the
// device did not report one and yields a value just below zero.
func BatteryPercent(v, lo, hi float64) float64 {
	if v <= 0 || hi <= lo {
		return unknownBattery
	}
	frac := (v - lo) / (hi - lo)
	return math.Max(0, math.Min(1, frac)) * 100
}

// Success returns the score after a successful poll that reported voltage.
// A good battery never repairs a low score; the reward only offsets decay.
func (p Params) Success(prev int, voltage float64) int {
	battery := BatteryPercent(voltage, p.VoltageLow, p.VoltageHigh)
	return clamp(math.Min(battery, float64(prev)) + float64(p.SuccessReward))
}

// Failure returns the score after a failed poll. The battery is not
// re-evaluated: the score drops by exactly the penalty, floored at zero.
func (p Params) Failure(prev int) int {
	return clamp(float64(prev - p.FailurePenalty))
}

// Classify maps a score to its LED state.
func (p Params) Classify(score int) State {
	switch {
	case score < p.CriticalThreshold:
		return StateCritical
	case score < p.HealthyThreshold:
		return StateDegraded
	default:
		return StateHealthy
	}
}

// Previous returns the stored score for roomID, or DefaultScore when the
// room has never been scored. Stored values are clamped on the way in.
func (p Params) Previous(scores map[string]int, roomID string) int {
	if s, ok := scores[roomID]; ok {
		return clamp(float64(s))
	}
	return clamp(float64(p.DefaultScore))
}

func clamp(v float64) int {
	return int(math.Round(math.Max(MinScore, math.Min(MaxScore, v))))
}
