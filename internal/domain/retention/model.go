// Package retention implements the forgetting-curve model used to decide when a
// concept must be re-surfaced. Everything here is pure and safe for concurrent
// use without locking.
package retention

import (
	"math"
	"time"

	"github.com/phrazzld/scry-tutor/internal/domain"
)

// minStrengthDays guards the decay formula against strategies that return a
// non-positive strength.
const minStrengthDays = 1e-6

// StrengthFunc maps a mastery level to memory strength S in days.
// Implementations must be monotonically increasing.
type StrengthFunc func(mastery float64) float64

// IntervalFunc maps a mastery level to the fallback review interval.
// Implementations must be monotonically non-decreasing.
type IntervalFunc func(mastery float64) time.Duration

// ExponentialStrength returns S(m) = baseDays * e^(growth*m).
func ExponentialStrength(baseDays, growth float64) StrengthFunc {
	return func(mastery float64) float64 {
		return baseDays * math.Exp(growth*mastery)
	}
}

// BandedInterval returns a step function: the interval of the highest band
// whose floor does not exceed the mastery level. Floors must be increasing.
func BandedInterval(floors []float64, days []int) IntervalFunc {
	floors = append([]float64(nil), floors...)
	days = append([]int(nil), days...)
	return func(mastery float64) time.Duration {
		idx := 0
		for i, floor := range floors {
			if mastery >= floor {
				idx = i
			}
		}
		return time.Duration(days[idx]) * 24 * time.Hour
	}
}

// Option customizes a Model.
type Option func(*Model)

// WithStrength replaces the mastery -> strength strategy.
func WithStrength(f StrengthFunc) Option {
	return func(m *Model) {
		if f != nil {
			m.strength = f
		}
	}
}

// WithInterval replaces the mastery -> base interval strategy.
func WithInterval(f IntervalFunc) Option {
	return func(m *Model) {
		if f != nil {
			m.interval = f
		}
	}
}

// Model evaluates retention and due dates for mastery records.
type Model struct {
	params   *Params
	strength StrengthFunc
	interval IntervalFunc
}

// NewDefaultModel creates a model with default parameters and strategies.
func NewDefaultModel() *Model {
	m, _ := NewModel(NewDefaultParams())
	return m
}

// NewModel creates a model from params. Strategies default to
// ExponentialStrength and BandedInterval built from params.
func NewModel(params *Params, opts ...Option) (*Model, error) {
	if params == nil {
		params = NewDefaultParams()
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	m := &Model{
		params:   params,
		strength: ExponentialStrength(params.BaseStrengthDays, params.StrengthGrowth),
		interval: BandedInterval(params.BandFloors, params.IntervalDays),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Params returns the policy the model was built with.
func (m *Model) Params() Params {
	return *m.params
}

// Strength returns the memory strength in days for a mastery level.
func (m *Model) Strength(mastery float64) float64 {
	s := m.strength(mastery)
	if !(s > minStrengthDays) {
		return minStrengthDays
	}
	return s
}

// Retention estimates R = exp(-Δt/S) where Δt is the time since the last
// review in days. The result is always in (0, 1].
func (m *Model) Retention(rec *domain.MasteryRecord, now time.Time) float64 {
	elapsed := now.Sub(rec.LastReviewedAt).Hours() / 24
	if elapsed < 0 {
		elapsed = 0
	}

	r := math.Exp(-elapsed / m.Strength(rec.MasteryLevel))
	switch {
	case r > 1:
		return 1
	case r <= 0:
		return math.SmallestNonzeroFloat64
	default:
		return r
	}
}

// NextDueAt is the fallback schedule: LastReviewedAt plus the base interval
// for the record's mastery band.
func (m *Model) NextDueAt(rec *domain.MasteryRecord) time.Time {
	return rec.LastReviewedAt.Add(m.interval(rec.MasteryLevel))
}

// Assessment is the urgency verdict for one record at one instant.
type Assessment struct {
	Retention       float64
	DueAt           time.Time
	DecayTriggered  bool // Retention fell below the threshold
	IntervalElapsed bool // now >= DueAt
	Urgency         domain.Urgency
}

// Due reports whether either trigger fired.
func (a Assessment) Due() bool {
	return a.DecayTriggered || a.IntervalElapsed
}

// Evaluate applies the urgency policy. Both triggers are always checked: a
// low-strength concept can decay below the threshold long before its coarse
// interval elapses.
func (m *Model) Evaluate(rec *domain.MasteryRecord, now time.Time) Assessment {
	a := Assessment{
		Retention: m.Retention(rec, now),
		DueAt:     m.NextDueAt(rec),
	}
	a.DecayTriggered = a.Retention < m.params.Threshold
	a.IntervalElapsed = !now.Before(a.DueAt)

	switch {
	case a.DecayTriggered && a.Retention < m.params.HighUrgencyBelow:
		a.Urgency = domain.UrgencyHigh
	case a.DecayTriggered:
		a.Urgency = domain.UrgencyMedium
	default:
		a.Urgency = domain.UrgencyLow
	}
	return a
}
