// Package probe runs startup checks before the server comes up.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const checkTimeout = 5 * time.Second

// CheckFunc performs one startup check and returns nil on success.
type CheckFunc func(ctx context.Context) error

// Probe is a single named check. Failures of non-critical probes are
// logged and otherwise ignored.
type Probe struct {
	Name     string
	Check    CheckFunc
	Critical bool
}

// Result holds the outcome of one probe.
type Result struct {
	Probe    Probe
	Err      error
	Duration time.Duration
}

// Run executes the probes in order, each under its own timeout.
func Run(ctx context.Context, probes []Probe) []Result {
	results := make([]Result, len(probes))

	for i, p := range probes {
		start := time.Now()
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := p.Check(checkCtx)
		cancel()

		results[i] = Result{Probe: p, Err: err, Duration: time.Since(start)}
	}
	return results
}

// Analyze logs every result and returns a combined error when any
// critical probe failed.
func Analyze(results []Result) error {
	var critical []error

	slog.Info("Startup checks")
	for _, r := range results {
		status := "PASS"
		if r.Err != nil {
			status = "FAIL"
		}
		msg := fmt.Sprintf("[%s] %-16s (%v)", status, r.Probe.Name, r.Duration.Round(time.Millisecond))

		if r.Err != nil {
			slog.Error(msg, "error", r.Err)
			if r.Probe.Critical {
				critical = append(critical, fmt.Errorf("%s: %w", r.Probe.Name, r.Err))
			}
		} else {
			slog.Info(msg)
		}
	}

	if len(critical) > 0 {
		return errors.Join(critical...)
	}
	return nil
}
