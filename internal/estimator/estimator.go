// Package estimator implements the Poisson-process publish-rate model that
// drives adaptive feed polling: observed inter-arrival times in, next poll
// time and smoothed rate out.
package estimator

import (
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Config holds the algorithmic constants as a single named record so tests
// can exercise the estimator against non-default bounds.
type Config struct {
	LeadFactor           float64
	Alpha                float64
	MinIntervalHours     float64
	MaxIntervalHours     float64
	DefaultIntervalHours float64
	SampleSize           int
}

// DefaultConfig returns the tuned constants used in production.
func DefaultConfig() Config {
	return Config{
		LeadFactor:           0.6,
		Alpha:                0.3,
		MinIntervalHours:     0.25,
		MaxIntervalHours:     24,
		DefaultIntervalHours: 1,
		SampleSize:           20,
	}
}

// Estimate computes the next poll instant and the updated publish rate from
// a sequence of observed publish timestamps and an optional prior rate. It
// is a pure function of its arguments: the same (cfg, now, timestamps,
// priorRate) always produces the same result.
func Estimate(cfg Config, now time.Time, timestamps []time.Time, priorRate *float64) (time.Time, *float64) {
	ts := validSorted(timestamps)

	if len(ts) < 2 {
		return now.Add(hours(cfg.DefaultIntervalHours)), priorRate
	}

	if len(ts) > cfg.SampleSize {
		ts = ts[len(ts)-cfg.SampleSize:]
	}

	gaps := positiveGapsHours(ts)
	if len(gaps) == 0 {
		return now.Add(hours(cfg.DefaultIntervalHours)), priorRate
	}

	var sum float64
	for _, g := range gaps {
		sum += g
	}
	observedRate := float64(len(gaps)) / sum

	rate := observedRate
	if priorRate != nil {
		rate = cfg.Alpha*observedRate + (1-cfg.Alpha)*(*priorRate)
	}

	interArrival := 1 / rate
	interval := clamp(cfg.LeadFactor*interArrival, cfg.MinIntervalHours, cfg.MaxIntervalHours)

	return now.Add(hours(interval)), &rate
}

// validSorted filters out zero/invalid instants and returns the remainder
// sorted ascending.
func validSorted(timestamps []time.Time) []time.Time {
	out := make([]time.Time, 0, len(timestamps))
	for _, t := range timestamps {
		if t.IsZero() {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// positiveGapsHours computes consecutive gaps in hours, discarding
// non-positive ones (duplicate timestamps or clock skew).
func positiveGapsHours(ts []time.Time) []float64 {
	gaps := make([]float64, 0, len(ts)-1)
	for i := 1; i < len(ts); i++ {
		gap := ts[i].Sub(ts[i-1]).Hours()
		if gap > 0 {
			gaps = append(gaps, gap)
		}
	}
	return gaps
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

// NextBackoff computes the next-fetch instant for a feed that failed to
// fetch or parse: the offset from now doubles with each consecutive
// failure, seeded at MinIntervalHours and capped at MaxIntervalHours. It
// never touches the publish-rate estimate. RandomizationFactor is zeroed so
// the same (cfg, consecutiveFailures) always produces the same offset.
func NextBackoff(cfg Config, now time.Time, consecutiveFailures int) time.Time {
	if consecutiveFailures < 1 {
		consecutiveFailures = 1
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = hours(cfg.MinIntervalHours)
	b.Multiplier = 2
	b.MaxInterval = hours(cfg.MaxIntervalHours)
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	var offset time.Duration
	for i := 0; i < consecutiveFailures; i++ {
		offset = b.NextBackOff()
	}

	return now.Add(offset)
}
