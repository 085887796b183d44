// Package worker lets a probe run its peer in a separate OS process. Go
// offers no fork, so the parent re-executes its own binary with a hidden
// subcommand naming the role; parent and peer then rendezvous through named
// OS resources (the cross-process barrier, semaphores, paths) exactly as two
// independently started processes would.
package worker

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/GriffinCanCode/sysperf/internal/logging"
)

// Params carries a role's configuration across the exec boundary.
type Params struct {
	Iterations   int
	Warmups      int
	LoopSize     uint64
	PayloadBytes uint64
	ChunkBytes   uint64
	Resource     string // primary rendezvous name: barrier id, path, queue name
	Aux          string // secondary resource when the role needs two
	Log          *logging.Logger
}

// Role is a child-process entry point.
type Role func(p Params) error

var registry = map[string]Role{}

// Register binds a role name to its entry point. Probe packages register
// their peer roles from init.
func Register(name string, role Role) {
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("worker role %q registered twice", name))
	}
	registry[name] = role
}

// Run executes a registered role in this process. The hidden worker
// subcommand calls it after parsing Params from its flags.
func Run(name string, p Params) error {
	role, ok := registry[name]
	if !ok {
		return fmt.Errorf("unknown worker role: %s", name)
	}
	return role(p)
}

// Args encodes a role invocation as command-line arguments for the hidden
// subcommand.
func Args(name string, p Params, logLevel string) []string {
	return []string{
		"worker", name,
		"--iterations", strconv.Itoa(p.Iterations),
		"--warmups", strconv.Itoa(p.Warmups),
		"--loop-size", strconv.FormatUint(p.LoopSize, 10),
		"--payload-bytes", strconv.FormatUint(p.PayloadBytes, 10),
		"--chunk-bytes", strconv.FormatUint(p.ChunkBytes, 10),
		"--resource", p.Resource,
		"--aux", p.Aux,
		"--log-level", logLevel,
	}
}

// Spawn starts the current executable as the named role. Extra files are
// inherited starting at descriptor 3 (the pipe probe passes its write end
// this way). The caller must Wait on the returned command after its own
// timed work completes.
func Spawn(name string, p Params, logLevel string, extraFiles ...*os.File) (*exec.Cmd, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate executable: %w", err)
	}

	cmd := exec.Command(self, Args(name, p, logLevel)...)
	cmd.Stderr = os.Stderr
	cmd.ExtraFiles = extraFiles
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to spawn worker %q: %w", name, err)
	}
	return cmd, nil
}
