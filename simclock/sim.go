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

package simclock

import (
	"time"

	"github.com/threadoak/stunt/stunt"
)

// defaultFireLimit bounds the number of fires within a single Advance before
// the test is failed with an InfiniteLoopError.
const defaultFireLimit = 10000

// entry is a scheduled fire. period > 0 means recurring (a ticker).
type entry struct {
	when    time.Time
	seq     uint64
	period  time.Duration
	fire    func(now time.Time)
	stopped bool
}

/*
A Sim is a Clock under test control.

Time starts at the epoch given by At() (default time.Unix(0, 0)) and only moves
when Advance is called. Timers and tickers never fire spontaneously and no
goroutines are started, so tests stay deterministic and leak-free.

A Sim must not be shared across parallel tests that Advance it concurrently;
within one test it is safe to create timers from fire callbacks.
*/
type Sim struct {
	t       stunt.T
	mu      chan struct{} // 1-buffered semaphore, released around fire callbacks
	now     time.Time
	seq     uint64
	cap     int
	entries []*entry
}

// An Option configures a Sim at construction.
type Option func(*Sim)

// At sets the Sim's initial time.
func At(epoch time.Time) Option {
	return func(s *Sim) {
		s.now = epoch
	}
}

// FireLimit overrides the per-Advance cap on timer fires used to detect
// runaway rescheduling.
func FireLimit(n int) Option {
	return func(s *Sim) {
		s.cap = n
	}
}

// New returns a Sim reporting failures through t, starting at time.Unix(0, 0)
// unless configured otherwise with At().
func New(t stunt.T, opts ...Option) *Sim {
	s := &Sim{
		t:   t,
		mu:  make(chan struct{}, 1),
		now: time.Unix(0, 0),
		cap: defaultFireLimit,
	}
	s.mu <- struct{}{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sim) lock()   { <-s.mu }
func (s *Sim) unlock() { s.mu <- struct{}{} }

// Now returns the current simulated time.
func (s *Sim) Now() time.Time {
	s.lock()
	defer s.unlock()
	return s.now
}

// Since returns the simulated time elapsed since t.
func (s *Sim) Since(t time.Time) time.Duration {
	return s.Now().Sub(t)
}

/*
Advance moves simulated time forward by d, firing every due timer and ticker
synchronously before returning.

Entries fire in order of their due time, ties broken by creation order. Each
fire advances Now() to that entry's due time first, so a callback reading the
clock sees the instant it was scheduled for. Recurring entries rescheduled
within the window fire again in the same Advance.

A single Advance that fires more than the configured limit fails the test
fatally with an InfiniteLoopError.

Advance(0) fires anything already due, matching time.After with a non-positive
duration.
*/
func (s *Sim) Advance(d time.Duration) {
	s.lock()
	deadline := s.now.Add(d)
	fired := 0
	for {
		e := s.nextDue(deadline)
		if e == nil {
			break
		}
		fired++
		if fired > s.cap {
			s.unlock()
			s.t.Helper()
			s.t.Fatalf("%v", &InfiniteLoopError{Fires: fired, Window: d})
			return
		}
		if e.when.After(s.now) {
			s.now = e.when
		}
		if e.period > 0 {
			e.when = e.when.Add(e.period)
		} else {
			e.stopped = true
		}
		now, fire := s.now, e.fire

		// Unlock around the callback so it can read the clock or schedule
		// further timers.
		s.unlock()
		fire(now)
		s.lock()
	}
	if deadline.After(s.now) {
		s.now = deadline
	}
	s.compact()
	s.unlock()
}

// nextDue returns the earliest live entry due at or before deadline, ties
// broken by seq. Caller holds the lock.
func (s *Sim) nextDue(deadline time.Time) *entry {
	var due *entry
	for _, e := range s.entries {
		if e.stopped || e.when.After(deadline) {
			continue
		}
		if due == nil || e.when.Before(due.when) || (e.when.Equal(due.when) && e.seq < due.seq) {
			due = e
		}
	}
	return due
}

// compact drops stopped entries. Caller holds the lock.
func (s *Sim) compact() {
	live := s.entries[:0]
	for _, e := range s.entries {
		if !e.stopped {
			live = append(live, e)
		}
	}
	s.entries = live
}

// schedule registers a fire at now+d. Caller must not hold the lock.
func (s *Sim) schedule(d time.Duration, period time.Duration, fire func(now time.Time)) *entry {
	s.lock()
	defer s.unlock()
	s.seq++
	e := &entry{when: s.now.Add(d), seq: s.seq, period: period, fire: fire}
	s.entries = append(s.entries, e)
	return e
}

// After returns a channel that receives the simulated time once d has elapsed
// via Advance. It satisfies stunt.Timewarp.
func (s *Sim) After(d time.Duration) <-chan time.Time {
	return s.NewTimer(d).C
}

// NewTimer returns a Timer that fires on C once d of simulated time has
// elapsed via Advance.
func (s *Sim) NewTimer(d time.Duration) *Timer {
	ch := make(chan time.Time, 1)
	e := s.schedule(d, 0, func(now time.Time) {
		select {
		case ch <- now:
		default:
		}
	})
	return &Timer{
		C:     ch,
		stop:  func() bool { return s.stopEntry(e) },
		reset: func(d time.Duration) bool { return s.resetEntry(e, d) },
	}
}

// AfterFunc returns a Timer that runs f synchronously inside the Advance call
// that reaches its due time.
func (s *Sim) AfterFunc(d time.Duration, f func()) *Timer {
	e := s.schedule(d, 0, func(time.Time) { f() })
	return &Timer{
		C:     nil,
		stop:  func() bool { return s.stopEntry(e) },
		reset: func(d time.Duration) bool { return s.resetEntry(e, d) },
	}
}

// NewTicker returns a Ticker delivering a tick on C every d of simulated time.
// A tick that finds C's buffer full is dropped, as with time.Ticker.
func (s *Sim) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		s.t.Helper()
		s.t.Fatalf("non-positive interval %v for NewTicker", d)
		return &Ticker{C: nil, stop: func() {}}
	}
	ch := make(chan time.Time, 1)
	e := s.schedule(d, d, func(now time.Time) {
		select {
		case ch <- now:
		default:
		}
	})
	return &Ticker{
		C:    ch,
		stop: func() { s.stopEntry(e) },
	}
}

func (s *Sim) stopEntry(e *entry) bool {
	s.lock()
	defer s.unlock()
	pending := !e.stopped
	e.stopped = true
	return pending
}

func (s *Sim) resetEntry(e *entry, d time.Duration) bool {
	s.lock()
	defer s.unlock()
	pending := !e.stopped
	e.stopped = false
	e.when = s.now.Add(d)
	s.seq++
	e.seq = s.seq
	return pending
}

// NumPending returns the number of live scheduled entries, useful for
// asserting that timers were stopped or consumed.
func (s *Sim) NumPending() int {
	s.lock()
	defer s.unlock()
	n := 0
	for _, e := range s.entries {
		if !e.stopped {
			n++
		}
	}
	return n
}
