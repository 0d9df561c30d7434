package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// SimulationKey is the seed of a run. The same key and configuration give the
// same departures tick for tick.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

const (
	// SubsystemArrivals drives the uniform-mode clock: class choice and
	// inter-arrival draws. It is seeded with the key itself, so a run can be
	// replayed from nothing but the seed and rand.NewSource.
	SubsystemArrivals = "arrivals"

	// SubsystemService drives service time draws and the class fallback.
	SubsystemService = "service"
)

// SubsystemArrivalClass returns the subsystem name for the renewal clock of
// priority class p in per-class arrival mode.
func SubsystemArrivalClass(p int) string {
	return fmt.Sprintf("arrivals_class_%d", p)
}

// PartitionedRNG hands out one stream per subsystem, so extra draws in one
// stream (say, exponential service) never shift another (arrivals).
// Streams other than SubsystemArrivals are seeded with key XOR fnv1a64(name).
// Not safe for concurrent use.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns the stream for name, creating it on first use.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	rng, ok := p.subsystems[name]
	if !ok {
		rng = rand.New(rand.NewSource(p.seedFor(name)))
		p.subsystems[name] = rng
	}
	return rng
}

func (p *PartitionedRNG) seedFor(name string) int64 {
	if name == SubsystemArrivals {
		return int64(p.key)
	}
	return int64(p.key) ^ fnv1a64(name)
}

// Key returns the run's key.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
