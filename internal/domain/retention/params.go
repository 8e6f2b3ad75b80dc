package retention

import (
	"errors"
	"fmt"
)

// ErrInvalidParams is returned when retention parameters are inconsistent.
var ErrInvalidParams = errors.New("invalid retention parameters")

// Params defines all configurable policy for the retention model
type Params struct {
	// Urgency policy
	Threshold        float64 // Retention below this makes a concept due
	HighUrgencyBelow float64 // Decay-triggered retention below this is high urgency

	// Default mastery -> strength mapping: S(m) = BaseStrengthDays * e^(StrengthGrowth*m)
	BaseStrengthDays float64
	StrengthGrowth   float64

	// Default mastery -> base interval step function.
	// BandFloors[i] is the lowest mastery that earns IntervalDays[i].
	BandFloors   []float64
	IntervalDays []int
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance
type ParamsConfig struct {
	Threshold        float64
	HighUrgencyBelow float64
	BaseStrengthDays float64
	StrengthGrowth   float64
	BandFloors       []float64
	IntervalDays     []int
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		Threshold:        0.7,
		HighUrgencyBelow: 0.5,

		// 2 days at zero mastery, ~40 days at full mastery
		BaseStrengthDays: 2.0,
		StrengthGrowth:   3.0,

		BandFloors:   []float64{0.0, 0.4, 0.6, 0.8, 0.9},
		IntervalDays: []int{1, 3, 7, 14, 30},
	}
}

// NewParams creates a new Params instance with custom configuration.
// Zero values in config keep the defaults.
func NewParams(config ParamsConfig) (*Params, error) {
	params := NewDefaultParams()

	if config.Threshold > 0 {
		params.Threshold = config.Threshold
	}
	if config.HighUrgencyBelow > 0 {
		params.HighUrgencyBelow = config.HighUrgencyBelow
	}
	if config.BaseStrengthDays > 0 {
		params.BaseStrengthDays = config.BaseStrengthDays
	}
	if config.StrengthGrowth > 0 {
		params.StrengthGrowth = config.StrengthGrowth
	}
	if len(config.BandFloors) > 0 {
		params.BandFloors = append([]float64(nil), config.BandFloors...)
	}
	if len(config.IntervalDays) > 0 {
		params.IntervalDays = append([]int(nil), config.IntervalDays...)
	}

	if err := params.Validate(); err != nil {
		return nil, err
	}

	return params, nil
}

// Validate checks that the parameters describe monotone mappings.
func (p *Params) Validate() error {
	if p.Threshold <= 0 || p.Threshold >= 1 {
		return fmt.Errorf("%w: threshold %f must be within (0, 1)", ErrInvalidParams, p.Threshold)
	}
	if p.HighUrgencyBelow <= 0 || p.HighUrgencyBelow > p.Threshold {
		return fmt.Errorf("%w: high urgency bound %f must be within (0, threshold]",
			ErrInvalidParams, p.HighUrgencyBelow)
	}
	if p.BaseStrengthDays <= 0 {
		return fmt.Errorf("%w: base strength must be positive", ErrInvalidParams)
	}
	if p.StrengthGrowth <= 0 {
		return fmt.Errorf("%w: strength growth must be positive", ErrInvalidParams)
	}
	if len(p.BandFloors) == 0 || len(p.BandFloors) != len(p.IntervalDays) {
		return fmt.Errorf("%w: %d band floors for %d intervals",
			ErrInvalidParams, len(p.BandFloors), len(p.IntervalDays))
	}
	for i := range p.BandFloors {
		if p.BandFloors[i] < 0 || p.BandFloors[i] > 1 {
			return fmt.Errorf("%w: band floor %f outside [0, 1]", ErrInvalidParams, p.BandFloors[i])
		}
		if p.IntervalDays[i] < 1 {
			return fmt.Errorf("%w: interval %d days must be at least 1", ErrInvalidParams, p.IntervalDays[i])
		}
		if i == 0 {
			continue
		}
		if p.BandFloors[i] <= p.BandFloors[i-1] {
			return fmt.Errorf("%w: band floors must be strictly increasing", ErrInvalidParams)
		}
		if p.IntervalDays[i] < p.IntervalDays[i-1] {
			return fmt.Errorf("%w: intervals must not shrink as mastery grows", ErrInvalidParams)
		}
	}
	return nil
}
