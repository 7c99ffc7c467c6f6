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
	"fmt"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/threadoak/stunt/stunt"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// captureT records failures instead of ending the test, panicking on Fatalf so
// the code under test stops as it would with a real testing.T.
type captureT struct {
	failures []string
}

type fatalSentinel struct{}

func (c *captureT) Errorf(format string, args ...interface{}) {
	c.failures = append(c.failures, fmt.Sprintf(format, args...))
}

func (c *captureT) Fatalf(format string, args ...interface{}) {
	c.failures = append(c.failures, fmt.Sprintf(format, args...))
	panic(fatalSentinel{})
}

func (c *captureT) Logf(string, ...interface{}) {}

func (c *captureT) Helper() {}

// recoverFatal swallows the sentinel panic raised by captureT.Fatalf. The caller
// must pass recover()'s result, recover() itself only works in the deferred func.
func recoverFatal(t *testing.T, e interface{}) {
	t.Helper()
	if e == nil {
		return
	}
	if _, expected := e.(fatalSentinel); !expected {
		panic(e)
	}
}

func TestCaptureT_FatalfEndsTheRunAndIsRecovered(t *testing.T) {
	ct := &captureT{}
	completed := false
	func() {
		defer func() { recoverFatal(t, recover()) }()
		ct.Fatalf("boom %d", 1)
		completed = true
	}()
	assert.False(t, completed)
	assert.Equal(t, []string{"boom 1"}, ct.failures)
}

func TestSim_NowOnlyMovesOnAdvance(t *testing.T) {
	epoch := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := New(t, At(epoch))

	assert.Equal(t, epoch, clock.Now())
	clock.Advance(time.Minute)
	assert.Equal(t, epoch.Add(time.Minute), clock.Now())
	assert.Equal(t, 90*time.Second, clock.Since(epoch.Add(-30*time.Second)))
}

func TestSim_TimerFiresExactlyAtItsDeadline(t *testing.T) {
	clock := New(t)
	timer := clock.NewTimer(time.Second)

	clock.Advance(999 * time.Millisecond)
	select {
	case <-timer.C:
		t.Fatalf("timer fired 1ms early")
	default:
	}

	clock.Advance(time.Millisecond)
	select {
	case fired := <-timer.C:
		assert.Equal(t, clock.Now(), fired)
	default:
		t.Fatalf("timer did not fire at its deadline")
	}
	assert.Zero(t, clock.NumPending())
}

func TestSim_FireOrderIsDueTimeThenCreationOrder(t *testing.T) {
	clock := New(t)
	var order []string
	note := func(name string) func() {
		return func() { order = append(order, name) }
	}

	clock.AfterFunc(2*time.Second, note("a"))
	clock.AfterFunc(2*time.Second, note("b"))
	clock.AfterFunc(time.Second, note("c"))

	clock.Advance(3 * time.Second)
	assert.Equal(t, []string{"c", "a", "b"}, order)
}

func TestSim_AfterFuncSeesItsOwnDeadline(t *testing.T) {
	clock := New(t)
	var sawNow time.Time
	clock.AfterFunc(5*time.Second, func() {
		sawNow = clock.Now()
	})

	clock.Advance(time.Minute)
	assert.Equal(t, time.Unix(0, 0).Add(5*time.Second), sawNow)
	assert.Equal(t, time.Unix(0, 0).Add(time.Minute), clock.Now())
}

func TestSim_AfterFuncMayScheduleWithinTheSameAdvance(t *testing.T) {
	clock := New(t)
	var fired []time.Duration
	since := func() time.Duration { return clock.Now().Sub(time.Unix(0, 0)) }

	clock.AfterFunc(time.Second, func() {
		fired = append(fired, since())
		clock.AfterFunc(time.Second, func() {
			fired = append(fired, since())
		})
	})

	clock.Advance(2 * time.Second)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, fired)
}

func TestSim_TimerStopAndReset(t *testing.T) {
	clock := New(t)
	timer := clock.NewTimer(time.Second)

	require.True(t, timer.Stop())
	clock.Advance(time.Hour)
	select {
	case <-timer.C:
		t.Fatalf("stopped timer fired")
	default:
	}
	assert.False(t, timer.Stop())

	require.False(t, timer.Reset(time.Second)) //was not pending
	clock.Advance(time.Second)
	select {
	case <-timer.C:
	default:
		t.Fatalf("reset timer did not fire")
	}
}

func TestSim_TickerDeliversOnePerAdvanceStep(t *testing.T) {
	clock := New(t)
	ticker := clock.NewTicker(time.Second)
	defer ticker.Stop()

	for i := 1; i <= 3; i++ {
		clock.Advance(time.Second)
		select {
		case tick := <-ticker.C:
			assert.Equal(t, time.Unix(0, 0).Add(time.Duration(i)*time.Second), tick)
		default:
			t.Fatalf("no tick %d", i)
		}
	}
}

func TestSim_TickerCoalescesWhenNotDrained(t *testing.T) {
	clock := New(t)
	ticker := clock.NewTicker(time.Second)
	defer ticker.Stop()

	//three periods elapse but the buffer holds a single tick, as with time.Ticker
	clock.Advance(3 * time.Second)

	tick := <-ticker.C
	assert.Equal(t, time.Unix(0, 0).Add(time.Second), tick)
	select {
	case <-ticker.C:
		t.Fatalf("expected coalesced ticks to be dropped")
	default:
	}
	assert.Equal(t, 1, clock.NumPending()) //still scheduled
}

func TestSim_TickerRejectsNonPositiveInterval(t *testing.T) {
	ct := &captureT{}
	defer func() {
		recoverFatal(t, recover())
		require.Len(t, ct.failures, 1)
		assert.Contains(t, ct.failures[0], "non-positive interval")
	}()

	clock := New(ct)
	clock.NewTicker(0)
	t.Errorf("Expect unreachable")
}

func TestSim_RunawayRescheduleFailsFatally(t *testing.T) {
	ct := &captureT{}
	defer func() {
		recoverFatal(t, recover())
		require.Len(t, ct.failures, 1)
		assert.Contains(t, ct.failures[0], "runaway reschedule")
	}()

	clock := New(ct, FireLimit(50))
	var loop func()
	loop = func() {
		clock.AfterFunc(0, loop)
	}
	clock.AfterFunc(0, loop)

	clock.Advance(0)
	t.Errorf("Expect unreachable")
}

func TestSim_AfterSatisfiesTimewarp(t *testing.T) {
	clock := New(t)
	rv := stunt.Delayed(stunt.Values(42), time.Second, clock.After)

	done := make(chan int)
	go func() {
		values, _ := rv.Receive()
		done <- values[0].(int)
	}()

	for clock.NumPending() == 0 {
		runtime.Gosched()
	}
	clock.Advance(time.Second)
	assert.Equal(t, 42, <-done)
}
