package sim

import (
	"math"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Mode selects the queueing discipline of a station. It is fixed for the
// station's lifetime.
type Mode string

const (
	NonPreemptive     Mode = "non-preemptive"
	PreemptiveRestart Mode = "preemptive-restart"
	PreemptiveResume  Mode = "preemptive-resume"
)

// validModes maps accepted mode strings. Empty defaults to NonPreemptive.
var validModes = map[Mode]bool{
	NonPreemptive:     true,
	PreemptiveRestart: true,
	PreemptiveResume:  true,
	"":                true,
}

// IsValidMode returns true if the given string is a recognized discipline mode.
func IsValidMode(name string) bool {
	return validModes[Mode(name)]
}

// Preemptive reports whether the mode allows an arrival to displace the job in service.
func (m Mode) Preemptive() bool {
	return m == PreemptiveRestart || m == PreemptiveResume
}

const (
	// DistFixed looks the service time up in a per-class table.
	DistFixed = "fixed"
	// DistExponential draws service times from an exponential with a per-class mean.
	DistExponential = "exponential"
)

// validServiceDistributions maps accepted service distribution names.
var validServiceDistributions = map[string]bool{
	DistFixed:       true,
	DistExponential: true,
	"":              true, // empty defaults to fixed
}

// IsValidServiceDistribution returns true if name is a recognized service distribution.
func IsValidServiceDistribution(name string) bool {
	return validServiceDistributions[name]
}

// MaxTicks bounds every configured or sampled duration so that now+d stays
// inside the int64 clock.
const MaxTicks int64 = math.MaxInt64 / 2

// ServiceTimeConfig describes the per-class service time model.
// Values holds fixed durations (fixed) or means (exponential), in ticks,
// indexed by priority class. Fixed durations must be whole ticks.
type ServiceTimeConfig struct {
	Distribution string    `yaml:"distribution"`
	Values       []float64 `yaml:"values"`
}

// StationConfig groups everything resolved once at station construction.
type StationConfig struct {
	NumPrio int               `yaml:"num_prio"` // number of priority classes (must be > 0)
	Mode    Mode              `yaml:"mode"`     // discipline; empty = non-preemptive
	Service ServiceTimeConfig `yaml:"service"`
}

// Validate reports every configuration problem at once.
// A service table shorter than NumPrio is not an error: lookups for the
// missing classes fall back to a random configured class.
func (c StationConfig) Validate() error {
	var result *multierror.Error
	if c.NumPrio <= 0 {
		result = multierror.Append(result, errors.Errorf("num_prio must be > 0, got %d", c.NumPrio))
	}
	if !IsValidMode(string(c.Mode)) {
		result = multierror.Append(result, errors.Errorf("unknown mode %q", c.Mode))
	}
	if !IsValidServiceDistribution(c.Service.Distribution) {
		result = multierror.Append(result, errors.Errorf("unknown service distribution %q", c.Service.Distribution))
	}
	if c.Service.Distribution == DistExponential && len(c.Service.Values) == 0 {
		result = multierror.Append(result, errors.New("exponential service times need at least one mean"))
	}
	for i, v := range c.Service.Values {
		switch {
		case math.IsNaN(v) || math.IsInf(v, 0):
			result = multierror.Append(result, errors.Errorf("service value for class %d must be finite, got %v", i, v))
		case v < 0:
			result = multierror.Append(result, errors.Errorf("service value for class %d must be >= 0, got %v", i, v))
		case v >= float64(MaxTicks):
			result = multierror.Append(result, errors.Errorf("service value for class %d must be below %d ticks, got %v", i, MaxTicks, v))
		case c.Service.Distribution == DistExponential:
			if v == 0 {
				result = multierror.Append(result, errors.Errorf("exponential mean for class %d must be > 0", i))
			}
		case v != math.Trunc(v):
			result = multierror.Append(result, errors.Errorf("fixed service time for class %d must be a whole number of ticks, got %v", i, v))
		}
	}
	return result.ErrorOrNil()
}

// EffectiveMode returns the configured mode, defaulting to NonPreemptive.
func (c StationConfig) EffectiveMode() Mode {
	if c.Mode == "" {
		return NonPreemptive
	}
	return c.Mode
}
