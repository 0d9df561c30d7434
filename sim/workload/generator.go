package workload

import (
	"math/rand"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/prioq-sim/sim"
)

// Arrival modes accepted in GeneratorConfig.Mode.
const (
	// ModeUniform runs one renewal clock: each tick draws a class uniformly
	// and the next tick follows after an interval from that class's sampler.
	ModeUniform = "uniform"
	// ModePerClass runs an independent renewal clock per class.
	ModePerClass = "per-class"
)

var validArrivalModes = map[string]bool{
	ModeUniform:  true,
	ModePerClass: true,
	"":           true, // empty defaults to uniform
}

// IsValidArrivalMode returns true if name is a recognized arrival mode.
func IsValidArrivalMode(name string) bool {
	return validArrivalModes[name]
}

// GeneratorConfig describes the arrival process feeding a station.
type GeneratorConfig struct {
	NumPrio int    `yaml:"-"`
	Mode    string `yaml:"mode"`

	// Arrivals is indexed by priority class.
	Arrivals []ArrivalSpec `yaml:"classes"`

	// MaxJobs caps the number of generated jobs; 0 = unlimited.
	MaxJobs int `yaml:"max_jobs"`

	// Horizon is the last tick at which a job may arrive; 0 = none.
	Horizon int64 `yaml:"-"`
}

// Validate reports every configuration problem at once.
func (c GeneratorConfig) Validate() error {
	var result *multierror.Error
	if c.NumPrio <= 0 {
		result = multierror.Append(result, errors.Errorf("num_prio must be > 0, got %d", c.NumPrio))
	}
	if !IsValidArrivalMode(c.Mode) {
		result = multierror.Append(result, errors.Errorf("unknown arrival mode %q", c.Mode))
	}
	if len(c.Arrivals) == 0 {
		result = multierror.Append(result, errors.New("at least one inter-arrival distribution is required"))
	}
	for i, a := range c.Arrivals {
		if err := a.Validate(); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "class %d", i))
		}
	}
	if c.MaxJobs < 0 {
		result = multierror.Append(result, errors.Errorf("max_jobs must be >= 0, got %d", c.MaxJobs))
	}
	if c.MaxJobs == 0 && c.Horizon <= 0 {
		result = multierror.Append(result, errors.New("generation is unbounded: set a horizon or max_jobs"))
	}
	return result.ErrorOrNil()
}

// Admitter receives generated jobs. *sim.Station implements it.
type Admitter interface {
	OnArrival(job *sim.Job)
}

// Generator is a renewal-process source that hands jobs tagged with a
// priority class to an Admitter, on timers registered with a Scheduler.
type Generator struct {
	cfg      GeneratorConfig
	sched    sim.Scheduler
	target   Admitter
	samplers []ArrivalSampler
	rng      *sim.PartitionedRNG

	counters  []int // per-class count, used only for job IDs
	generated int
	stopped   bool
}

// NewGenerator validates cfg and builds one sampler per configured class.
// Classes beyond the configured samplers borrow a uniformly chosen one.
func NewGenerator(cfg GeneratorConfig, sched sim.Scheduler, rng *sim.PartitionedRNG, target Admitter) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid arrival config")
	}
	if sched == nil || rng == nil || target == nil {
		return nil, errors.New("generator needs a scheduler, a partitioned RNG and a target")
	}
	if len(cfg.Arrivals) < cfg.NumPrio {
		logrus.Warnf("inter-arrival times configured for %d of %d classes; remaining classes draw from a random configured class",
			len(cfg.Arrivals), cfg.NumPrio)
	}
	g := &Generator{
		cfg:      cfg,
		sched:    sched,
		target:   target,
		rng:      rng,
		counters: make([]int, cfg.NumPrio),
	}
	for _, a := range cfg.Arrivals {
		g.samplers = append(g.samplers, NewArrivalSampler(a))
	}
	return g, nil
}

// Start registers the first arrival(s) at the current tick.
func (g *Generator) Start() {
	now := g.sched.Now()
	if g.cfg.Mode == ModePerClass {
		for p := 0; p < g.cfg.NumPrio; p++ {
			g.sched.ScheduleAt(now, func() { g.fireClass(p) })
		}
		return
	}
	g.sched.ScheduleAt(now, g.fireUniform)
}

// Stop prevents any further arrivals. Already-emitted jobs are unaffected.
func (g *Generator) Stop() {
	g.stopped = true
}

func (g *Generator) fireUniform() {
	if !g.admit() {
		return
	}
	rng := g.rng.ForSubsystem(sim.SubsystemArrivals)
	p := rng.Intn(g.cfg.NumPrio)
	g.emit(p)
	g.scheduleNext(g.sampler(p, rng).SampleIAT(rng), g.fireUniform)
}

func (g *Generator) fireClass(p int) {
	if !g.admit() {
		return
	}
	rng := g.rng.ForSubsystem(sim.SubsystemArrivalClass(p))
	g.emit(p)
	g.scheduleNext(g.sampler(p, rng).SampleIAT(rng), func() { g.fireClass(p) })
}

// admit reports whether another job may still be generated.
func (g *Generator) admit() bool {
	if g.stopped {
		return false
	}
	if g.cfg.MaxJobs > 0 && g.generated >= g.cfg.MaxJobs {
		logrus.Debugf("Arrival generator reached max_jobs=%d", g.cfg.MaxJobs)
		g.stopped = true
		return false
	}
	return true
}

func (g *Generator) emit(p int) {
	g.counters[p]++
	g.generated++
	job := sim.NewJob(sim.JobID(g.counters[p], p), p)
	logrus.Tracef("[tick %07d] Generated %s", g.sched.Now(), job.ID)
	g.target.OnArrival(job)
}

func (g *Generator) scheduleNext(iat int64, fn func()) {
	next := g.sched.Now() + iat
	if g.cfg.Horizon > 0 && next > g.cfg.Horizon {
		return
	}
	g.sched.ScheduleAt(next, fn)
}

// sampler returns the sampler of class p, or a uniformly chosen configured
// one when p is beyond the configured table.
func (g *Generator) sampler(p int, rng *rand.Rand) ArrivalSampler {
	if p < len(g.samplers) {
		return g.samplers[p]
	}
	idx := rng.Intn(len(g.samplers))
	logrus.Debugf("inter-arrival: class %d beyond %d configured classes, using class %d", p, len(g.samplers), idx)
	return g.samplers[idx]
}

// Generated returns the total number of jobs emitted.
func (g *Generator) Generated() int {
	return g.generated
}

// GeneratedOf returns the number of jobs emitted for one class.
func (g *Generator) GeneratedOf(class int) int {
	if class < 0 || class >= len(g.counters) {
		return 0
	}
	return g.counters[class]
}
