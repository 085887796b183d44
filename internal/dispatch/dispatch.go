// Package dispatch resolves a benchmark TYPE to its probes, runs them, and
// emits the collected results in human or machine form.
package dispatch

import (
	"fmt"
	"io"

	"github.com/bytedance/sonic"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/sysperf/internal/bench"
	"github.com/GriffinCanCode/sysperf/internal/config"
	"github.com/GriffinCanCode/sysperf/internal/logging"
	"github.com/GriffinCanCode/sysperf/internal/probes"
)

// Aggregate TYPEs.
const (
	TypeAll          = "all"
	TypeLatencyAll   = "latency_all"
	TypeBandwidthAll = "bandwidth_all"
)

// memcpyMTSweep is the thread counts swept when --threads is unset.
const memcpyMTSweep = 4

// Entry is one probe's outcome within a run.
type Entry struct {
	Name   string
	Kind   probes.Kind
	Result bench.Result
	Err    error
}

// Runner executes benchmark types against one configuration.
type Runner struct {
	cfg   *config.Config
	log   *logging.Logger
	out   io.Writer
	runID string
}

// New creates a runner emitting results to out.
func New(cfg *config.Config, log *logging.Logger, out io.Writer) *Runner {
	return &Runner{cfg: cfg, log: log, out: out, runID: ulid.Make().String()}
}

// Validate checks the configuration against the given TYPE before anything
// runs.
func (r *Runner) Validate(typ string) error {
	switch typ {
	case TypeAll, TypeBandwidthAll:
		return r.cfg.Validate(config.Requirements{Bandwidth: true, UsesChunk: true})
	case TypeLatencyAll:
		return r.cfg.Validate(config.Requirements{})
	default:
		probe, err := probes.Lookup(typ)
		if err != nil {
			return err
		}
		return r.cfg.Validate(probe.Requirements)
	}
}

// Run executes the TYPE and emits its results. Single-probe failures
// propagate; aggregate runs report every probe even when some fail.
func (r *Runner) Run(typ string) error {
	log := &logging.Logger{Logger: r.log.With(zap.String("run_id", r.runID))}

	switch typ {
	case TypeAll:
		entries := r.runKind(probes.KindLatency, log)
		entries = append(entries, r.runKind(probes.KindBandwidth, log)...)
		return r.emit(entries)
	case TypeLatencyAll:
		return r.emit(r.runKind(probes.KindLatency, log))
	case TypeBandwidthAll:
		return r.emit(r.runKind(probes.KindBandwidth, log))
	}

	probe, err := probes.Lookup(typ)
	if err != nil {
		return err
	}

	entries := r.runProbe(probe, log)
	for _, e := range entries {
		if e.Err != nil {
			return fmt.Errorf("%s: %w", e.Name, e.Err)
		}
	}
	return r.emit(entries)
}

// runKind runs every probe of one family, collecting failures instead of
// stopping.
func (r *Runner) runKind(kind probes.Kind, log *logging.Logger) []Entry {
	var entries []Entry
	for _, probe := range probes.ByKind(kind) {
		entries = append(entries, r.runProbe(probe, log)...)
	}
	return entries
}

// runProbe executes one probe. A threaded probe with no configured thread
// count sweeps 1..4 workers, one entry per count.
func (r *Runner) runProbe(probe *probes.Probe, log *logging.Logger) []Entry {
	if probe.Threaded() && r.cfg.Threads == 0 {
		var entries []Entry
		for n := uint64(1); n <= memcpyMTSweep; n++ {
			name := fmt.Sprintf("%s (%d threads)", probe.Name, n)
			log.Debug("running probe", zap.String("probe", name))
			result, err := probe.RunThreads(r.cfg, r.log, n)
			entries = append(entries, r.entry(name, probe.Kind, result, err, log))
		}
		return entries
	}

	log.Debug("running probe", zap.String("probe", probe.Name))
	var (
		result bench.Result
		err    error
	)
	if probe.Threaded() {
		result, err = probe.RunThreads(r.cfg, r.log, r.cfg.Threads)
	} else {
		result, err = probe.Run(r.cfg, r.log)
	}
	return []Entry{r.entry(probe.Name, probe.Kind, result, err, log)}
}

func (r *Runner) entry(name string, kind probes.Kind, result bench.Result, err error, log *logging.Logger) Entry {
	if err != nil {
		log.Error("probe failed", zap.String("probe", name), zap.Error(err))
	}
	return Entry{Name: name, Kind: kind, Result: result, Err: err}
}

// emit writes the collected entries in the configured output format.
func (r *Runner) emit(entries []Entry) error {
	if r.cfg.OutputFormat == config.FormatJSON {
		return r.emitJSON(entries)
	}
	return r.emitHuman(entries)
}

func (r *Runner) emitHuman(entries []Entry) error {
	for _, e := range entries {
		if e.Err != nil {
			fmt.Fprintf(r.out, "%s: error: %v\n", e.Name, e.Err)
			continue
		}
		if e.Kind == probes.KindLatency {
			avg, stddev := e.Result.Nanoseconds()
			fmt.Fprintf(r.out, "%s: %.3f ± %.3f ns\n", e.Name, avg, stddev)
		} else {
			avg, stddev := e.Result.GiBPerSec()
			fmt.Fprintf(r.out, "%s: %.3f ± %.3f GiByte/sec\n", e.Name, avg, stddev)
		}
	}
	return nil
}

// jsonResult is the structured form of one probe outcome; values keep their
// natural units, unscaled.
type jsonResult struct {
	Average float64 `json:"average"`
	Stddev  float64 `json:"stddev"`
	Unit    string  `json:"unit"`
	Error   string  `json:"error,omitempty"`
}

type jsonReport struct {
	RunID   string                `json:"run_id"`
	Results map[string]jsonResult `json:"results"`
}

func (r *Runner) emitJSON(entries []Entry) error {
	report := jsonReport{RunID: r.runID, Results: make(map[string]jsonResult, len(entries))}
	for _, e := range entries {
		jr := jsonResult{Unit: e.Kind.Unit()}
		if e.Err != nil {
			jr.Error = e.Err.Error()
		} else {
			jr.Average = e.Result.Average
			jr.Stddev = e.Result.Stddev
		}
		report.Results[e.Name] = jr
	}

	encoded, err := sonic.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	fmt.Fprintln(r.out, string(encoded))
	return nil
}
