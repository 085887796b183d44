package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/GriffinCanCode/sysperf/internal/config"
	"github.com/GriffinCanCode/sysperf/internal/dispatch"
	"github.com/GriffinCanCode/sysperf/internal/logging"
)

const usageTypes = `Latency tests (nanoseconds per operation):
  latency_atomic               Atomic flag flip between two threads
  latency_atomic_rel_acq       Atomic flag flip, rel/acq variant (seq-cst in Go)
  latency_barrier              Cross-process barrier round
  latency_condition_variable   Condition variable ping-pong
  latency_semaphore            Named semaphore ping-pong between processes
  latency_statfs               statfs() syscall
  latency_fstatfs              fstatfs() syscall
  latency_getpid               getpid() syscall
  latency_all                  Every latency test

Bandwidth tests (GiByte/sec):
  bandwidth_memcpy             Single-threaded memory copy
  bandwidth_memcpy_mt          Multi-threaded memory copy
  bandwidth_tcp                TCP loopback socket
  bandwidth_uds                Unix domain socket
  bandwidth_pipe               Anonymous pipe
  bandwidth_fifo               Named pipe (FIFO)
  bandwidth_mq                 POSIX message queue
  bandwidth_mmap               Shared file mapping, double-buffered
  bandwidth_shm                POSIX shared memory, double-buffered
  bandwidth_all                Every bandwidth test

Combined:
  all                          Every latency and bandwidth test`

type rootOptions struct {
	configFile   string
	payloadBytes string
	chunkBytes   string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "sysperf <TYPE>",
		Short: "Benchmark synchronization latency and IPC bandwidth",
		Long:  "Benchmark tool for measuring system performance.\n\n" + usageTypes,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmark(cmd, args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.IntP("iterations", "i", 10, "measured iterations (minimum 3)")
	flags.IntP("warmups", "w", 3, "warmup iterations")
	flags.Uint64P("loop-size", "l", 0, "inner loop count for latency tests (default per probe)")
	flags.StringVarP(&opts.payloadBytes, "payload-bytes", "d", "", "payload size for bandwidth tests (default 1GiB)")
	flags.StringVarP(&opts.chunkBytes, "chunk-bytes", "b", "", "chunk size for streaming transports (default 1MiB)")
	flags.Uint64P("threads", "n", 0, "worker count for bandwidth_memcpy_mt (default: sweep 1-4)")
	flags.String("log-level", "", "log severity: debug, info, warning, error")
	flags.StringP("output-format", "o", "", "output format: human or json")
	flags.StringVar(&opts.configFile, "config", "", "optional TOML configuration file")

	cmd.AddCommand(newWorkerCommand())
	return cmd
}

// resolveConfig layers flags over environment over an optional config file
// over built-in defaults.
func resolveConfig(flags *pflag.FlagSet, opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.configFile != "" {
		if err := cfg.LoadFile(opts.configFile); err != nil {
			return nil, err
		}
	}

	if flags.Changed("iterations") {
		cfg.Iterations, _ = flags.GetInt("iterations")
	}
	if flags.Changed("warmups") {
		cfg.Warmups, _ = flags.GetInt("warmups")
	}
	if flags.Changed("loop-size") {
		cfg.LoopSize, _ = flags.GetUint64("loop-size")
	}
	if opts.payloadBytes != "" {
		size, err := config.ParseSize(opts.payloadBytes)
		if err != nil {
			return nil, fmt.Errorf("invalid --payload-bytes: %w", err)
		}
		cfg.PayloadBytes = size
	}
	if opts.chunkBytes != "" {
		size, err := config.ParseSize(opts.chunkBytes)
		if err != nil {
			return nil, fmt.Errorf("invalid --chunk-bytes: %w", err)
		}
		cfg.ChunkBytes = size
	}
	if flags.Changed("threads") {
		cfg.Threads, _ = flags.GetUint64("threads")
	}
	if level, _ := flags.GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if format, _ := flags.GetString("output-format"); format != "" {
		cfg.OutputFormat = format
	}
	return cfg, nil
}

func runBenchmark(cmd *cobra.Command, benchType string, opts *rootOptions) error {
	cfg, err := resolveConfig(cmd.Flags(), opts)
	if err != nil {
		return err
	}

	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return err
	}
	log, err := logging.NewAtLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	runner := dispatch.New(cfg, log, os.Stdout)
	if err := runner.Validate(benchType); err != nil {
		return err
	}

	// Past validation every failure is a measurement failure, not misuse.
	cmd.SilenceUsage = true

	if err := runner.Run(benchType); err != nil {
		return fmt.Errorf("benchmark %s: %w", benchType, err)
	}
	return nil
}
