package main

import (
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/sysperf/internal/logging"
	"github.com/GriffinCanCode/sysperf/internal/worker"
)

// newWorkerCommand builds the hidden subcommand that runs a probe's peer
// process. The parent spawns it with worker.Spawn; it is not part of the
// public CLI surface.
func newWorkerCommand() *cobra.Command {
	params := worker.Params{}
	var logLevel string

	cmd := &cobra.Command{
		Use:    "worker <role>",
		Hidden: true,
		Args:   cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			log, err := logging.NewAtLevel(logLevel)
			if err != nil {
				return err
			}
			defer log.Sync()

			params.Log = log
			return worker.Run(args[0], params)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&params.Iterations, "iterations", 0, "")
	flags.IntVar(&params.Warmups, "warmups", 0, "")
	flags.Uint64Var(&params.LoopSize, "loop-size", 0, "")
	flags.Uint64Var(&params.PayloadBytes, "payload-bytes", 0, "")
	flags.Uint64Var(&params.ChunkBytes, "chunk-bytes", 0, "")
	flags.StringVar(&params.Resource, "resource", "", "")
	flags.StringVar(&params.Aux, "aux", "", "")
	flags.StringVar(&logLevel, "log-level", "warning", "")

	return cmd
}
