package workload

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/prioq-sim/sim"
)

// Inter-arrival process names accepted in ArrivalSpec.Process.
const (
	ProcessConstant    = "constant"
	ProcessPoisson     = "poisson"
	ProcessExponential = "exponential" // alias of poisson
	ProcessGamma       = "gamma"
	ProcessWeibull     = "weibull"
)

var validProcesses = map[string]bool{
	ProcessConstant:    true,
	ProcessPoisson:     true,
	ProcessExponential: true,
	ProcessGamma:       true,
	ProcessWeibull:     true,
	"":                 true, // empty defaults to poisson
}

// IsValidProcess returns true if name is a recognized inter-arrival process.
func IsValidProcess(name string) bool {
	return validProcesses[name]
}

// ArrivalSpec describes the inter-arrival distribution of one priority class.
type ArrivalSpec struct {
	Process string   `yaml:"process"`
	MeanIAT float64  `yaml:"mean_iat"`     // mean inter-arrival time in ticks; samples round to whole ticks, minimum 1
	CV      *float64 `yaml:"cv,omitempty"` // gamma and weibull only; default 1
}

// Validate checks the process name and its parameters.
func (a ArrivalSpec) Validate() error {
	if !IsValidProcess(a.Process) {
		return errors.Errorf("unknown inter-arrival process %q", a.Process)
	}
	if math.IsNaN(a.MeanIAT) || math.IsInf(a.MeanIAT, 0) || a.MeanIAT <= 0 {
		return errors.Errorf("mean_iat must be a finite value > 0, got %v", a.MeanIAT)
	}
	if a.MeanIAT >= float64(sim.MaxTicks) {
		return errors.Errorf("mean_iat must be below %d ticks, got %v", sim.MaxTicks, a.MeanIAT)
	}
	if a.CV != nil && (math.IsNaN(*a.CV) || *a.CV <= 0) {
		return errors.Errorf("cv must be > 0, got %v", *a.CV)
	}
	return nil
}

// ArrivalSampler generates inter-arrival times for one priority class.
type ArrivalSampler interface {
	// SampleIAT returns the next inter-arrival time in ticks.
	// Always returns a positive value (>= 1).
	SampleIAT(rng *rand.Rand) int64
}

// ConstantSampler emits arrivals at a fixed period.
type ConstantSampler struct {
	iat int64
}

func (s *ConstantSampler) SampleIAT(_ *rand.Rand) int64 {
	return s.iat
}

// PoissonSampler generates exponentially-distributed inter-arrival times (CV=1).
type PoissonSampler struct {
	mean float64 // ticks
}

func (s *PoissonSampler) SampleIAT(rng *rand.Rand) int64 {
	return floorOne(rng.ExpFloat64() * s.mean)
}

// GammaSampler generates Gamma-distributed inter-arrival times.
// CV > 1 produces bursty arrivals.
// Implemented using Marsaglia-Tsang's method for shape >= 1,
// with transformation for shape < 1.
type GammaSampler struct {
	shape float64 // 1/CV² (alpha parameter)
	scale float64 // mean*CV² in ticks (beta parameter)
}

func (s *GammaSampler) SampleIAT(rng *rand.Rand) int64 {
	return floorOne(gammaRand(rng, s.shape, s.scale))
}

// gammaRand samples from Gamma(shape, scale) using Marsaglia-Tsang's method.
// For shape >= 1: direct method.
// For shape < 1: Gamma(shape) = Gamma(shape+1) * U^(1/shape).
func gammaRand(rng *rand.Rand, shape, scale float64) float64 {
	if shape < 1.0 {
		u := rng.Float64()
		return gammaRand(rng, shape+1.0, scale) * math.Pow(u, 1.0/shape)
	}

	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9.0*d)

	for {
		var x, v float64
		for {
			x = rng.NormFloat64()
			v = 1.0 + c*x
			if v > 0 {
				break
			}
		}
		v = v * v * v
		u := rng.Float64()

		// Squeeze test
		if u < 1.0-0.0331*(x*x)*(x*x) {
			return d * v * scale
		}
		if math.Log(u) < 0.5*x*x+d*(1.0-v+math.Log(v)) {
			return d * v * scale
		}
	}
}

// WeibullSampler generates Weibull-distributed inter-arrival times.
type WeibullSampler struct {
	shape float64 // Weibull k parameter
	scale float64 // Weibull λ parameter (ticks)
}

func (s *WeibullSampler) SampleIAT(rng *rand.Rand) int64 {
	// Inverse CDF: scale * (-ln(U))^(1/shape)
	u := rng.Float64()
	if u == 0 {
		u = math.SmallestNonzeroFloat64
	}
	return floorOne(s.scale * math.Pow(-math.Log(u), 1.0/s.shape))
}

// floorOne rounds a sampled interval to ticks within [1, sim.MaxTicks], so a
// renewal clock always advances and never overflows.
func floorOne(sample float64) int64 {
	switch {
	case !(sample >= 1):
		return 1
	case sample >= float64(sim.MaxTicks):
		return sim.MaxTicks
	}
	return int64(math.Round(sample))
}

// NewArrivalSampler creates an ArrivalSampler from a validated spec.
func NewArrivalSampler(spec ArrivalSpec) ArrivalSampler {
	mean := spec.MeanIAT
	if mean < 1e-9 {
		mean = 1e-9
	}
	cv := 1.0
	if spec.CV != nil && *spec.CV > 0 {
		cv = *spec.CV
	}
	switch spec.Process {
	case ProcessConstant:
		return &ConstantSampler{iat: floorOne(mean)}

	case ProcessGamma:
		// shape = 1/CV², scale = mean * CV²
		shape := 1.0 / (cv * cv)
		if shape < 0.01 {
			logrus.Warnf("Gamma shape %.4f (CV=%.1f) is very small; falling back to Poisson", shape, cv)
			return &PoissonSampler{mean: mean}
		}
		return &GammaSampler{shape: shape, scale: mean * cv * cv}

	case ProcessWeibull:
		k := weibullShapeFromCV(cv)
		// scale = mean / Γ(1 + 1/k)
		return &WeibullSampler{shape: k, scale: mean / math.Gamma(1.0+1.0/k)}

	default:
		return &PoissonSampler{mean: mean}
	}
}

// weibullShapeFromCV finds Weibull shape parameter k such that
// CV² = Γ(1+2/k)/Γ(1+1/k)² - 1, using bisection over k ∈ [0.1, 100].
func weibullShapeFromCV(targetCV float64) float64 {
	lo, hi := 0.1, 100.0
	for i := 0; i < 100; i++ {
		mid := (lo + hi) / 2.0
		cv := weibullCV(mid)
		if math.Abs(cv-targetCV) < 0.001 {
			return mid
		}
		// CV is monotonically decreasing in k
		if cv > targetCV {
			lo = mid
		} else {
			hi = mid
		}
	}
	logrus.Warnf("weibullShapeFromCV: bisection did not converge for CV=%.3f after 100 iterations; using k=%.3f", targetCV, (lo+hi)/2.0)
	return (lo + hi) / 2.0
}

// weibullCV computes the coefficient of variation for Weibull(k).
func weibullCV(k float64) float64 {
	g1 := math.Gamma(1.0 + 1.0/k)
	g2 := math.Gamma(1.0 + 2.0/k)
	return math.Sqrt(g2/(g1*g1) - 1.0)
}
