/*
 * Copyright 2024 dev@threadoak.net
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package simclock provides a simulated clock for deterministic time-based tests.

Code under test takes a Clock instead of calling the time package directly. In
production the Clock is System(), a thin wrapper over package time. In tests a
Sim is constructed with New() and time only moves when the test calls Advance();
timers and tickers fire synchronously inside Advance in a deterministic order.

	clock := simclock.New(t)
	timer := clock.NewTimer(time.Second)
	clock.Advance(999 * time.Millisecond) // nothing fires
	clock.Advance(time.Millisecond)       // timer.C receives

A Sim's After method satisfies stunt.Timewarp, so stubbed return values built
with stunt.Delayed come under virtual time too.
*/
package simclock

import "time"

// A Clock tells time and schedules timers. It mirrors the parts of package
// time that tests most often need to control.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
	After(d time.Duration) <-chan time.Time
	NewTimer(d time.Duration) *Timer
	AfterFunc(d time.Duration, f func()) *Timer
	NewTicker(d time.Duration) *Ticker
}

// A Timer fires once on its channel C, or runs a function if created with
// AfterFunc. It wraps either a time.Timer or a simulated schedule entry.
type Timer struct {
	C     <-chan time.Time
	stop  func() bool
	reset func(d time.Duration) bool
}

// Stop prevents the Timer from firing. It reports whether the timer was still
// pending.
func (t *Timer) Stop() bool {
	return t.stop()
}

// Reset reschedules the Timer to fire after duration d. It reports whether the
// timer was still pending.
func (t *Timer) Reset(d time.Duration) bool {
	return t.reset(d)
}

// A Ticker delivers ticks on its channel C at a fixed period until stopped.
type Ticker struct {
	C    <-chan time.Time
	stop func()
}

// Stop turns off the Ticker. No further ticks are delivered.
func (t *Ticker) Stop() {
	t.stop()
}

type systemClock struct{}

// System returns the real Clock backed by package time.
func System() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

func (systemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

func (systemClock) NewTimer(d time.Duration) *Timer {
	rt := time.NewTimer(d)
	return &Timer{C: rt.C, stop: rt.Stop, reset: rt.Reset}
}

func (systemClock) AfterFunc(d time.Duration, f func()) *Timer {
	rt := time.AfterFunc(d, f)
	return &Timer{C: rt.C, stop: rt.Stop, reset: rt.Reset}
}

func (systemClock) NewTicker(d time.Duration) *Ticker {
	rt := time.NewTicker(d)
	return &Ticker{C: rt.C, stop: rt.Stop}
}
