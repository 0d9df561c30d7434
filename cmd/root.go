package cmd

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/prioq-sim/sim"
	"github.com/inference-sim/prioq-sim/sim/telemetry"
	"github.com/inference-sim/prioq-sim/sim/trace"
	"github.com/inference-sim/prioq-sim/sim/workload"
)

var (
	// CLI flags for the run
	configPath string // Run YAML file
	seed       int64  // Seed for arrival and service sampling
	horizon    int64  // Last simulated tick (0 = none)
	logLevel   string // Log verbosity level

	// CLI flags for the station
	numPrio      int       // Number of priority classes
	mode         string    // Queueing discipline
	serviceDist  string    // Service time distribution
	serviceTimes []float64 // Per-class fixed service times or exponential means

	// CLI flags for the arrival generator
	arrivalMode         string    // uniform or per-class
	interarrivalProcess string    // Inter-arrival process for every class
	interarrivalMeans   []float64 // Per-class mean inter-arrival times
	interarrivalCV      float64   // Coefficient of variation for gamma and weibull
	maxJobs             int       // Stop after this many arrivals (0 = unlimited)

	// CLI flags for output
	metricsOut   string // JSON summary file
	promTextfile string // Prometheus textfile output
	traceLevel   string // Decision trace level
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "prioq-sim",
	Short: "Discrete-event simulator for a single-server priority queueing station",
}

// runCmd executes the simulation using the config file and CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the priority queueing simulation",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg := defaultRunConfig()
		if configPath != "" {
			cfg, err = loadRunConfig(configPath)
			if err != nil {
				logrus.Fatalf("%v", err)
			}
			logrus.Infof("Loaded run config from %s", configPath)
		}
		applyFlagOverrides(cmd, &cfg)
		cfg.resolve()
		if err := cfg.Validate(); err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}

		logrus.Infof("Starting simulation: num_prio=%d, mode=%s, service=%s%v, arrivals=%s, horizon=%d, max_jobs=%d, seed=%d",
			cfg.Station.NumPrio, cfg.Station.EffectiveMode(), cfg.Station.Service.Distribution, cfg.Station.Service.Values,
			cfg.Arrivals.Mode, cfg.Horizon, cfg.Arrivals.MaxJobs, cfg.Seed)

		startTime := time.Now()
		res, err := runSimulation(cfg)
		if err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		if err := res.Metrics.SaveResults(cfg.Output.MetricsPath); err != nil {
			logrus.Fatalf("%v", err)
		}
		if res.Trace != nil {
			printTraceSummary(res.Trace)
		}

		logrus.Infof("Simulation complete in %v.", time.Since(startTime))
	},
}

// applyFlagOverrides lets explicitly set flags win over file values.
// Flags left at their defaults never override the file.
func applyFlagOverrides(cmd *cobra.Command, cfg *RunConfig) {
	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("horizon") {
		cfg.Horizon = horizon
	}
	if flags.Changed("num-prio") {
		cfg.Station.NumPrio = numPrio
	}
	if flags.Changed("mode") {
		cfg.Station.Mode = sim.Mode(mode)
	}
	if flags.Changed("service-dist") {
		cfg.Station.Service.Distribution = serviceDist
	}
	if flags.Changed("service-times") {
		cfg.Station.Service.Values = serviceTimes
	}
	if flags.Changed("arrival-mode") {
		cfg.Arrivals.Mode = arrivalMode
	}
	if flags.Changed("interarrival-means") {
		// Only the means change; configured processes and CVs are kept.
		for i, m := range interarrivalMeans {
			if i < len(cfg.Arrivals.Arrivals) {
				cfg.Arrivals.Arrivals[i].MeanIAT = m
				continue
			}
			cfg.Arrivals.Arrivals = append(cfg.Arrivals.Arrivals, workload.ArrivalSpec{Process: workload.ProcessPoisson, MeanIAT: m})
		}
	}
	if flags.Changed("interarrival-process") {
		for i := range cfg.Arrivals.Arrivals {
			cfg.Arrivals.Arrivals[i].Process = interarrivalProcess
		}
	}
	if flags.Changed("interarrival-cv") {
		for i := range cfg.Arrivals.Arrivals {
			cv := interarrivalCV
			cfg.Arrivals.Arrivals[i].CV = &cv
		}
	}
	if flags.Changed("max-jobs") {
		cfg.Arrivals.MaxJobs = maxJobs
	}
	if flags.Changed("metrics-out") {
		cfg.Output.MetricsPath = metricsOut
	}
	if flags.Changed("prom-textfile") {
		cfg.Output.PromTextfile = promTextfile
	}
	if flags.Changed("trace-level") {
		cfg.Output.TraceLevel = traceLevel
	}
}

// runResult is what a finished run reports.
type runResult struct {
	Metrics *sim.MetricsSummary
	Trace   *trace.TraceSummary // nil when tracing is off
}

// runSimulation wires the simulator, station, generator and sinks from a
// resolved and validated cfg, then runs to completion.
func runSimulation(cfg RunConfig) (*runResult, error) {
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed))
	s := sim.NewSimulator(cfg.Horizon)

	model, err := sim.NewServiceTimeModel(cfg.Station.Service, rng.ForSubsystem(sim.SubsystemService))
	if err != nil {
		return nil, errors.Wrap(err, "service time model")
	}

	metrics := sim.NewMetrics(cfg.Station.NumPrio, s.Now())
	sinks := []sim.TelemetrySink{metrics}
	var prom *telemetry.PrometheusSink
	if cfg.Output.PromTextfile != "" {
		prom, err = telemetry.NewPrometheusSink(nil)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, prom)
	}
	stationTrace := trace.NewStationTrace(trace.TraceConfig{Level: trace.TraceLevel(cfg.Output.TraceLevel)})

	station, err := sim.NewStation(cfg.Station, s, model, sim.StationHooks{
		Telemetry: telemetry.NewFanout(sinks...),
		Trace:     stationTrace,
	})
	if err != nil {
		return nil, err
	}
	gen, err := workload.NewGenerator(cfg.Arrivals, s, rng, station)
	if err != nil {
		return nil, err
	}

	gen.Start()
	s.Run()

	summary := metrics.Summarize(s.EndTime())
	summary.Mode = string(station.Mode())
	summary.Arrivals = station.Arrivals
	summary.Preemptions = station.Preemptions
	for c := 0; c < station.NumPrio(); c++ {
		summary.Classes[c].WaitingAtEnd = station.QueueLenOf(c)
	}
	if station.Busy() {
		job := station.InService()
		summary.InServiceAtEnd = job.ID
		logrus.Infof("%s still in service until tick %d", job.ID, station.ServiceEnd())
	}
	logrus.Infof("Generated %d jobs, %d departed, %d waiting", gen.Generated(), station.Departures, station.QueueLen())

	if prom != nil {
		if err := prom.WriteTextfile(cfg.Output.PromTextfile); err != nil {
			return nil, err
		}
	}
	res := &runResult{Metrics: summary}
	if stationTrace != nil {
		res.Trace = trace.Summarize(stationTrace)
	}
	return res, nil
}

func printTraceSummary(ts *trace.TraceSummary) {
	fmt.Println("=== Decision Trace Summary ===")
	fmt.Printf("Total decisions: %d\n", ts.TotalDecisions)
	for _, k := range []trace.DecisionKind{trace.KindDirect, trace.KindEnqueue, trace.KindPreempt, trace.KindDispatch, trace.KindDepart, trace.KindIdle} {
		fmt.Printf("  %-8s %d\n", k+":", ts.KindCounts[k])
	}
	fmt.Printf("Max queue length: %d\n", ts.MaxQueueLen)
	fmt.Printf("Carried work (ticks): %d\n", ts.CarriedWork)
	classes := make([]int, 0, len(ts.PreemptionsByClass))
	for class := range ts.PreemptionsByClass {
		classes = append(classes, class)
	}
	sort.Ints(classes)
	for _, class := range classes {
		fmt.Printf("  class %d displaced: %d\n", class, ts.PreemptionsByClass[class])
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {

	runCmd.Flags().StringVar(&configPath, "config", "", "Path to a run YAML file (flags override its values)")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for arrival and service sampling")
	runCmd.Flags().Int64Var(&horizon, "horizon", 0, "Total simulation horizon (in ticks, 0 = none)")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")

	// Station configs
	runCmd.Flags().IntVar(&numPrio, "num-prio", 3, "Number of priority classes (0 is the highest)")
	runCmd.Flags().StringVar(&mode, "mode", string(sim.NonPreemptive), "Queueing discipline (non-preemptive, preemptive-restart, preemptive-resume)")
	runCmd.Flags().StringVar(&serviceDist, "service-dist", sim.DistFixed, "Service time distribution (fixed, exponential)")
	runCmd.Flags().Float64SliceVar(&serviceTimes, "service-times", []float64{2, 5, 10}, "Comma-separated per-class service times (fixed) or means (exponential), in ticks")

	// Arrival generator configs
	runCmd.Flags().StringVar(&arrivalMode, "arrival-mode", workload.ModeUniform, "Arrival mode (uniform, per-class)")
	runCmd.Flags().StringVar(&interarrivalProcess, "interarrival-process", workload.ProcessPoisson, "Inter-arrival process (constant, poisson, exponential, gamma, weibull)")
	runCmd.Flags().Float64SliceVar(&interarrivalMeans, "interarrival-means", []float64{10, 10, 10}, "Comma-separated per-class mean inter-arrival times, in ticks")
	runCmd.Flags().Float64Var(&interarrivalCV, "interarrival-cv", 1.0, "Coefficient of variation for gamma and weibull inter-arrival times")
	runCmd.Flags().IntVar(&maxJobs, "max-jobs", 1000, "Stop generating after this many jobs (0 = unlimited)")

	// Output configs
	runCmd.Flags().StringVar(&metricsOut, "metrics-out", "", "Write the JSON metrics summary to this file")
	runCmd.Flags().StringVar(&promTextfile, "prom-textfile", "", "Write Prometheus metrics in text exposition format to this file")
	runCmd.Flags().StringVar(&traceLevel, "trace-level", string(trace.TraceLevelNone), "Decision trace level (none, decisions)")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
