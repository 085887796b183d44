// Package probes maps symbolic benchmark names to their implementations and
// the configuration slice each one consumes.
package probes

import (
	"fmt"

	"github.com/GriffinCanCode/sysperf/internal/bench"
	"github.com/GriffinCanCode/sysperf/internal/config"
	"github.com/GriffinCanCode/sysperf/internal/logging"
	"github.com/GriffinCanCode/sysperf/internal/probes/bandwidth"
	"github.com/GriffinCanCode/sysperf/internal/probes/latency"
)

// Kind tags a probe's harness family.
type Kind int

const (
	// KindLatency probes report seconds per single operation.
	KindLatency Kind = iota
	// KindBandwidth probes report bytes per second.
	KindBandwidth
)

// Unit returns the structured-output unit for the probe family.
func (k Kind) Unit() string {
	if k == KindLatency {
		return bench.UnitSeconds
	}
	return bench.UnitBytesPerSecond
}

type latencyFunc func(*config.Config, *logging.Logger, uint64) (bench.Result, error)
type bandwidthFunc func(*config.Config, *logging.Logger) (bench.Result, error)
type threadedFunc func(*config.Config, *logging.Logger, uint64) (bench.Result, error)

// Probe is one named benchmark and its requirements.
type Probe struct {
	Name            string
	Kind            Kind
	DefaultLoopSize uint64
	Requirements    config.Requirements

	runLatency   latencyFunc
	runBandwidth bandwidthFunc
	runThreaded  threadedFunc
}

// Threaded reports whether the probe takes a worker-thread count.
func (p *Probe) Threaded() bool {
	return p.runThreaded != nil
}

// LoopSize resolves the inner-loop count: the configured value or the
// probe's default.
func (p *Probe) LoopSize(cfg *config.Config) uint64 {
	if cfg.LoopSize != 0 {
		return cfg.LoopSize
	}
	return p.DefaultLoopSize
}

// Run executes the probe with the resolved configuration. Threaded probes
// must go through RunThreads instead.
func (p *Probe) Run(cfg *config.Config, log *logging.Logger) (bench.Result, error) {
	switch {
	case p.runLatency != nil:
		return p.runLatency(cfg, log, p.LoopSize(cfg))
	case p.runBandwidth != nil:
		return p.runBandwidth(cfg, log)
	default:
		return bench.Result{}, fmt.Errorf("probe %s requires a thread count", p.Name)
	}
}

// RunThreads executes a threaded probe with the given worker count.
func (p *Probe) RunThreads(cfg *config.Config, log *logging.Logger, threads uint64) (bench.Result, error) {
	if p.runThreaded == nil {
		return bench.Result{}, fmt.Errorf("probe %s does not take a thread count", p.Name)
	}
	if threads == 0 {
		return bench.Result{}, fmt.Errorf("threads must be greater than 0")
	}
	return p.runThreaded(cfg, log, threads)
}

var registry = []*Probe{
	{
		Name: "latency_atomic", Kind: KindLatency, DefaultLoopSize: 1_000_000,
		runLatency: latency.Atomic,
	},
	{
		Name: "latency_atomic_rel_acq", Kind: KindLatency, DefaultLoopSize: 1_000_000,
		runLatency: latency.AtomicRelAcq,
	},
	{
		Name: "latency_barrier", Kind: KindLatency, DefaultLoopSize: 1_000,
		runLatency: latency.Barrier,
	},
	{
		Name: "latency_condition_variable", Kind: KindLatency, DefaultLoopSize: 100_000,
		runLatency: latency.ConditionVariable,
	},
	{
		Name: "latency_semaphore", Kind: KindLatency, DefaultLoopSize: 100_000,
		runLatency: latency.Semaphore,
	},
	{
		Name: "latency_statfs", Kind: KindLatency, DefaultLoopSize: 1_000_000,
		runLatency: latency.Statfs,
	},
	{
		Name: "latency_fstatfs", Kind: KindLatency, DefaultLoopSize: 1_000_000,
		runLatency: latency.Fstatfs,
	},
	{
		Name: "latency_getpid", Kind: KindLatency, DefaultLoopSize: 1_000_000,
		runLatency: latency.Getpid,
	},
	{
		Name: "bandwidth_memcpy", Kind: KindBandwidth,
		Requirements: config.Requirements{Bandwidth: true},
		runBandwidth: bandwidth.Memcpy,
	},
	{
		Name: "bandwidth_memcpy_mt", Kind: KindBandwidth,
		Requirements: config.Requirements{Bandwidth: true, UsesThread: true},
		runThreaded:  bandwidth.MemcpyMT,
	},
	{
		Name: "bandwidth_tcp", Kind: KindBandwidth,
		Requirements: config.Requirements{Bandwidth: true, UsesChunk: true},
		runBandwidth: bandwidth.TCP,
	},
	{
		Name: "bandwidth_uds", Kind: KindBandwidth,
		Requirements: config.Requirements{Bandwidth: true, UsesChunk: true},
		runBandwidth: bandwidth.UDS,
	},
	{
		Name: "bandwidth_pipe", Kind: KindBandwidth,
		Requirements: config.Requirements{Bandwidth: true, UsesChunk: true},
		runBandwidth: bandwidth.Pipe,
	},
	{
		Name: "bandwidth_fifo", Kind: KindBandwidth,
		Requirements: config.Requirements{Bandwidth: true, UsesChunk: true},
		runBandwidth: bandwidth.Fifo,
	},
	{
		Name: "bandwidth_mq", Kind: KindBandwidth,
		Requirements: config.Requirements{Bandwidth: true, UsesChunk: true},
		runBandwidth: bandwidth.MQ,
	},
	{
		Name: "bandwidth_mmap", Kind: KindBandwidth,
		Requirements: config.Requirements{Bandwidth: true, UsesChunk: true},
		runBandwidth: bandwidth.Mmap,
	},
	{
		Name: "bandwidth_shm", Kind: KindBandwidth,
		Requirements: config.Requirements{Bandwidth: true, UsesChunk: true},
		runBandwidth: bandwidth.Shm,
	},
}

// All returns every probe in canonical order.
func All() []*Probe {
	return registry
}

// ByKind returns every probe of one family, in canonical order.
func ByKind(kind Kind) []*Probe {
	var out []*Probe
	for _, p := range registry {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

// Lookup resolves a probe by its symbolic name.
func Lookup(name string) (*Probe, error) {
	for _, p := range registry {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("unknown benchmark type: %s", name)
}
