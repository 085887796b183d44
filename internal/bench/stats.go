package bench

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// TrimmedStats sorts the samples, discards the single minimum and single
// maximum, and returns the mean and population standard deviation of the
// remaining values. Fewer than 3 samples is a programming error.
func TrimmedStats(samples []float64) (Result, error) {
	if len(samples) < 3 {
		return Result{}, fmt.Errorf("need at least 3 samples to trim, got: %d", len(samples))
	}

	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)
	trimmed := sorted[1 : len(sorted)-1]

	return Result{
		Average: stat.Mean(trimmed, nil),
		Stddev:  stat.PopStdDev(trimmed, nil),
	}, nil
}

// BandwidthStats converts per-round transfer durations (seconds) for a known
// payload size into a bytes-per-second result. The stddev is propagated to
// first order: σ_bw = payload · σ_t / μ_t².
func BandwidthStats(durations []float64, payloadBytes uint64) (Result, error) {
	t, err := TrimmedStats(durations)
	if err != nil {
		return Result{}, err
	}
	size := float64(payloadBytes)
	return Result{
		Average: size / t.Average,
		Stddev:  size * t.Stddev / (t.Average * t.Average),
	}, nil
}
