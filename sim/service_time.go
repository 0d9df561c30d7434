package sim

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ServiceTimeModel returns the service duration, in ticks, for a job of the
// given priority class.
type ServiceTimeModel interface {
	ServiceTime(class int) int64
}

// FixedServiceTime looks the duration up in a per-class table.
type FixedServiceTime struct {
	table []int64
	rng   *rand.Rand // used only for the fallback when class >= len(table)
}

// NewFixedServiceTime creates a fixed-table model. A non-empty table needs
// rng for the fallback of classes past its end; a nil rng panics.
func NewFixedServiceTime(table []int64, rng *rand.Rand) *FixedServiceTime {
	if len(table) > 0 && rng == nil {
		panic("NewFixedServiceTime: rng must not be nil for a non-empty table")
	}
	return &FixedServiceTime{table: table, rng: rng}
}

func (f *FixedServiceTime) ServiceTime(class int) int64 {
	idx, ok := resolveClass(class, len(f.table), f.rng)
	if !ok {
		return 0
	}
	return f.table[idx]
}

// ExponentialServiceTime draws from an exponential distribution whose mean is
// configured per class. The rng must be a stream dedicated to service
// sampling (SubsystemService).
type ExponentialServiceTime struct {
	means []float64
	rng   *rand.Rand
}

// NewExponentialServiceTime creates an exponential model over the given means.
func NewExponentialServiceTime(means []float64, rng *rand.Rand) *ExponentialServiceTime {
	return &ExponentialServiceTime{means: means, rng: rng}
}

// ServiceTime returns a value in [1, MaxTicks] when a mean is configured.
func (e *ExponentialServiceTime) ServiceTime(class int) int64 {
	idx, ok := resolveClass(class, len(e.means), e.rng)
	if !ok {
		return 0
	}
	d := e.rng.ExpFloat64() * e.means[idx]
	switch {
	case !(d >= 1):
		return 1
	case d >= float64(MaxTicks):
		return MaxTicks
	}
	return int64(math.Round(d))
}

// resolveClass maps a requested class onto a configured table index.
// Classes past the end of the table fall back to a uniformly chosen
// configured class; an empty table or a negative class has no index.
func resolveClass(class, n int, rng *rand.Rand) (int, bool) {
	if n == 0 || class < 0 {
		logrus.Debugf("service time: no entry for class %d, using zero service", class)
		return 0, false
	}
	if class < n {
		return class, true
	}
	idx := rng.Intn(n)
	logrus.Debugf("service time: class %d beyond %d configured classes, using class %d", class, n, idx)
	return idx, true
}

// NewServiceTimeModel builds the model described by cfg. rng is the service
// sampling stream; it also drives the fallback for unconfigured classes.
func NewServiceTimeModel(cfg ServiceTimeConfig, rng *rand.Rand) (ServiceTimeModel, error) {
	if !IsValidServiceDistribution(cfg.Distribution) {
		return nil, errors.Errorf("unknown service distribution %q", cfg.Distribution)
	}
	switch cfg.Distribution {
	case "", DistFixed:
		if len(cfg.Values) > 0 && rng == nil {
			return nil, errors.New("fixed service times need a random stream for the class fallback")
		}
		table := make([]int64, len(cfg.Values))
		for i, v := range cfg.Values {
			if v < 0 || v >= float64(MaxTicks) || v != math.Trunc(v) {
				return nil, errors.Errorf("fixed service time for class %d must be a whole number of ticks in [0, %d), got %v", i, MaxTicks, v)
			}
			table[i] = int64(v)
		}
		return NewFixedServiceTime(table, rng), nil
	case DistExponential:
		if rng == nil {
			return nil, errors.New("exponential service times need a random stream")
		}
		for i, v := range cfg.Values {
			if !(v > 0) || v >= float64(MaxTicks) {
				return nil, errors.Errorf("exponential mean for class %d must be in (0, %d), got %v", i, MaxTicks, v)
			}
		}
		means := append([]float64(nil), cfg.Values...)
		return NewExponentialServiceTime(means, rng), nil
	default:
		return nil, errors.Errorf("unhandled service distribution %q", cfg.Distribution)
	}
}
