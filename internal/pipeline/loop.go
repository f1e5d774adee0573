// Package pipeline runs a stage's cycle on a fixed interval.
package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"colnews/internal/logger"
)

// Loop runs Run immediately and then every Interval until the context is cancelled.
// A failing or panicking cycle is logged and the loop waits for the next interval.
type Loop struct {
	Run      func(ctx context.Context) error
	Logger   *logger.Logger
	Name     string
	Interval time.Duration
}

// Start blocks until ctx is cancelled. It returns the number of cycles run.
func (l *Loop) Start(ctx context.Context) int {
	log := l.Logger.With("stage", l.Name)
	log.Info("stage started", "interval", l.Interval.String())

	cycles := 0

	for {
		cycles++

		start := time.Now()
		if err := l.RunCycle(ctx); err != nil {
			log.Error("cycle failed", "cycle", cycles, "error", err)
		} else {
			log.Info("cycle complete", "cycle", cycles, "duration", time.Since(start).String())
		}

		if !wait(ctx, l.Interval) {
			break
		}
	}

	log.Info("stage stopped", "cycles", cycles)

	return cycles
}

// RunCycle runs one cycle, converting a panic into an error.
func (l *Loop) RunCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			l.Logger.Error("cycle panicked", "stage", l.Name, "panic", r, "stack", string(debug.Stack()))
		}
	}()

	return l.Run(ctx)
}

// wait sleeps for d and reports false when ctx ends first.
func wait(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
