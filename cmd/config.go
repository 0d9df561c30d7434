package cmd

import (
	"bytes"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/prioq-sim/sim"
	"github.com/inference-sim/prioq-sim/sim/trace"
	"github.com/inference-sim/prioq-sim/sim/workload"
)

// RunConfig represents the full run YAML structure.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type RunConfig struct {
	Seed     int64                    `yaml:"seed"`
	Horizon  int64                    `yaml:"horizon"` // ticks; 0 = none
	Station  sim.StationConfig        `yaml:"station"`
	Arrivals workload.GeneratorConfig `yaml:"arrivals"`
	Output   OutputConfig             `yaml:"output"`
}

// OutputConfig selects where results go.
type OutputConfig struct {
	MetricsPath  string `yaml:"metrics_path"`  // JSON summary file; stdout only when empty
	PromTextfile string `yaml:"prom_textfile"` // Prometheus text exposition file
	TraceLevel   string `yaml:"trace_level"`   // none | decisions
}

// defaultRunConfig is used when no --config file is given: three classes
// with the classic [2, 5, 10] service table and Poisson arrivals.
func defaultRunConfig() RunConfig {
	return RunConfig{
		Seed: 42,
		Station: sim.StationConfig{
			NumPrio: 3,
			Mode:    sim.NonPreemptive,
			Service: sim.ServiceTimeConfig{Distribution: sim.DistFixed, Values: []float64{2, 5, 10}},
		},
		Arrivals: workload.GeneratorConfig{
			Mode: workload.ModeUniform,
			Arrivals: []workload.ArrivalSpec{
				{Process: workload.ProcessPoisson, MeanIAT: 10},
				{Process: workload.ProcessPoisson, MeanIAT: 10},
				{Process: workload.ProcessPoisson, MeanIAT: 10},
			},
			MaxJobs: 1000,
		},
		Output: OutputConfig{TraceLevel: string(trace.TraceLevelNone)},
	}
}

// loadRunConfig parses a run YAML file over the defaults. Lists present in
// the file replace the default lists. Uses strict field checking: typos must
// cause errors.
func loadRunConfig(path string) (RunConfig, error) {
	cfg := defaultRunConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "reading config file %s", path)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config file %s", path)
	}
	return cfg, nil
}

// resolve copies run-wide settings into the sections that need them.
func (c *RunConfig) resolve() {
	c.Arrivals.NumPrio = c.Station.NumPrio
	c.Arrivals.Horizon = c.Horizon
}

// Validate reports every problem across all sections at once.
func (c RunConfig) Validate() error {
	var result *multierror.Error
	if c.Horizon < 0 {
		result = multierror.Append(result, errors.Errorf("horizon must be >= 0, got %d", c.Horizon))
	}
	if err := c.Station.Validate(); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "station"))
	}
	if err := c.Arrivals.Validate(); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "arrivals"))
	}
	if !trace.IsValidTraceLevel(c.Output.TraceLevel) {
		result = multierror.Append(result, errors.Errorf("unknown trace level %q", c.Output.TraceLevel))
	}
	return result.ErrorOrNil()
}
