// Command sysperf measures low-level performance characteristics of a POSIX
// host: the latency of single synchronization and syscall operations, and
// the bandwidth of inter-process and intra-process transfer channels.
//
// Usage:
//
//	sysperf <TYPE> [flags]
//
// TYPE names one probe (latency_getpid, bandwidth_pipe, ...) or an
// aggregate (latency_all, bandwidth_all, all). Each measurement reports a
// trimmed mean and population standard deviation after discarding warmups
// and the best and worst sample.
//
// Multi-process probes re-execute this binary through a hidden worker
// subcommand; the two processes rendezvous through named OS resources.
package main
