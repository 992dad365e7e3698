// Package engine provides the step-based simulation loop and the colony
// simulation systems it drives.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"
)

// Engine drives the simulation forward one step at a time.
type Engine struct {
	Step        uint64        // Current step counter (monotonic, never resets)
	StepsPerDay uint64        // Steps per simulated day
	Interval    time.Duration // Base step interval; 0 runs as fast as possible
	MaxDays     uint64        // Stop after this many day boundaries; 0 = unbounded

	// Callbacks populated during setup. OnDay runs on every day boundary,
	// before OnStep of the same step.
	OnDay  func(step uint64) error
	OnStep func(step uint64) error

	running atomic.Bool
	speed   atomic.Uint64 // float64 bits; 1.0 = nominal, 0 = paused
	days    uint64
}

// NewEngine creates an engine with the given day length and step interval.
func NewEngine(stepsPerDay int, interval time.Duration) *Engine {
	if stepsPerDay < 1 {
		stepsPerDay = 1
	}
	e := &Engine{
		StepsPerDay: uint64(stepsPerDay),
		Interval:    interval,
	}
	e.SetSpeed(1.0)
	return e
}

// Speed returns the current speed multiplier.
func (e *Engine) Speed() float64 {
	return math.Float64frombits(e.speed.Load())
}

// SetSpeed changes the speed multiplier. It is safe to call while Run is active.
func (e *Engine) SetSpeed(v float64) {
	e.speed.Store(math.Float64bits(v))
}

// Days returns the number of day boundaries passed.
func (e *Engine) Days() uint64 {
	return e.days
}

// Run starts the simulation loop. It blocks until Stop is called, ctx is
// done, MaxDays day boundaries have passed, or a callback fails; a callback
// error is returned.
func (e *Engine) Run(ctx context.Context) error {
	e.running.Store(true)
	defer e.running.Store(false)
	slog.Info("simulation engine started", "step", e.Step, "speed", e.Speed(), "steps_per_day", e.StepsPerDay)

	for e.running.Load() {
		if err := ctx.Err(); err != nil {
			break
		}
		speed := e.Speed()
		if speed <= 0 {
			// Paused.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()

		if err := e.step(); err != nil {
			slog.Error("simulation engine halted", "step", e.Step, "error", err)
			return err
		}
		if e.MaxDays > 0 && e.days >= e.MaxDays {
			break
		}

		// Sleep for the remainder of the step interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	slog.Info("simulation engine stopped", "step", e.Step, "days", e.days)
	return nil
}

// Stop halts the simulation loop after the current step.
func (e *Engine) Stop() {
	e.running.Store(false)
}

// Running reports whether Run is active.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// step advances the simulation by one step.
func (e *Engine) step() error {
	e.Step++

	if e.Step%e.StepsPerDay == 0 {
		e.days++
		if e.OnDay != nil {
			if err := e.OnDay(e.Step); err != nil {
				return fmt.Errorf("day boundary at step %d: %w", e.Step, err)
			}
		}
	}

	if e.OnStep != nil {
		if err := e.OnStep(e.Step); err != nil {
			return fmt.Errorf("step %d: %w", e.Step, err)
		}
	}
	return nil
}
