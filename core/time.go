// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"time"
)

// NewTime creates a new time service
func NewTime(cfg TimeConfiguration) *Time {
	var interval time.Duration
	if cfg.FramesPerSecond <= 0 {
		interval = time.Nanosecond
	} else {
		interval = time.Second / time.Duration(cfg.FramesPerSecond)
	}

	return &Time{
		fps:       cfg.FramesPerSecond,
		interval:  interval,
		fpsTicker: time.NewTicker(interval),
	}
}

// Time contains the frame pacing ticker
type Time struct {
	fps       int
	interval  time.Duration
	fpsTicker *time.Ticker
}

// Fps gets the set frames per second
func (t *Time) Fps() int {
	return t.fps
}

// Interval is the minimum time between two frames.
func (t *Time) Interval() time.Duration {
	return t.interval
}

// FpsTicker gets the initialized fps ticker
func (t *Time) FpsTicker() *time.Ticker {
	return t.fpsTicker
}

// Stop releases the ticker.
func (t *Time) Stop() {
	t.fpsTicker.Stop()
}

// DefaultFixedDelta is the step used when FixedDelta is enabled.
const DefaultFixedDelta = 20 * time.Millisecond

// NewRunTime returns a run time that starts counting at now.
func NewRunTime(now time.Time) *RunTime {
	return &RunTime{
		start:      now,
		last:       now,
		FixedDelta: DefaultFixedDelta,
		Speed:      1,
	}
}

// RunTime tracks scaled application time across frames.
type RunTime struct {
	start time.Time
	last  time.Time

	current time.Duration
	delta   time.Duration

	// FixedDelta replaces the measured frame time when UseFixedDelta is set.
	FixedDelta    time.Duration
	UseFixedDelta bool

	// Speed scales the measured frame time.
	Speed float64

	// Paused stops time from advancing.
	Paused bool
}

// Update advances the run time to now and returns the frame delta.
func (r *RunTime) Update(now time.Time) time.Duration {
	elapsed := now.Sub(r.last)
	r.last = now
	if elapsed < 0 {
		elapsed = 0
	}

	switch {
	case r.Paused:
		r.delta = 0
	case r.UseFixedDelta:
		r.delta = time.Duration(float64(r.FixedDelta) * r.Speed)
	default:
		r.delta = time.Duration(float64(elapsed) * r.Speed)
	}
	r.current += r.delta
	return r.delta
}

// Current is the scaled time accumulated so far.
func (r *RunTime) Current() time.Duration {
	return r.current
}

// Delta is the last frame delta.
func (r *RunTime) Delta() time.Duration {
	return r.delta
}

// Uptime is the wall clock time since the run time started.
func (r *RunTime) Uptime() time.Duration {
	return r.last.Sub(r.start)
}
