package bench

import (
	"fmt"
	"time"
)

// LatencyRound times one outer iteration of a latency probe and returns the
// elapsed wall time of its inner loop.
type LatencyRound func() (time.Duration, error)

// Latency runs warmups+iterations outer rounds. Each round's sample is the
// elapsed time divided by loopSize*opsPerPass, the per-single-operation time.
// Only post-warmup rounds feed the trimmed statistic.
func Latency(iterations, warmups int, loopSize, opsPerPass uint64, round LatencyRound) (Result, error) {
	if loopSize == 0 || opsPerPass == 0 {
		return Result{}, fmt.Errorf("loop size and ops per pass must be positive")
	}

	divisor := float64(loopSize) * float64(opsPerPass)
	samples := make([]float64, 0, iterations)
	for i := 0; i < iterations+warmups; i++ {
		elapsed, err := round()
		if err != nil {
			return Result{}, fmt.Errorf("latency round %d: %w", i, err)
		}
		if i >= warmups {
			samples = append(samples, elapsed.Seconds()/divisor)
		}
	}
	return TrimmedStats(samples)
}

// SampleSet accumulates per-round durations for a bandwidth probe,
// discarding warmup rounds.
type SampleSet struct {
	warmups int
	values  []float64
}

// NewSampleSet creates a collector for iterations measured rounds after
// warmups warmup rounds.
func NewSampleSet(iterations, warmups int) *SampleSet {
	return &SampleSet{warmups: warmups, values: make([]float64, 0, iterations)}
}

// IsWarmup reports whether the given zero-based round index is a warmup.
func (s *SampleSet) IsWarmup(round int) bool {
	return round < s.warmups
}

// Record stores the elapsed time of a measured round; warmup rounds are
// dropped.
func (s *SampleSet) Record(round int, elapsed time.Duration) {
	if !s.IsWarmup(round) {
		s.values = append(s.values, elapsed.Seconds())
	}
}

// Durations returns the measured samples in seconds.
func (s *SampleSet) Durations() []float64 {
	return s.values
}
