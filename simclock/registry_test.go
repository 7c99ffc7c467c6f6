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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActive_FallsBackToSystemClock(t *testing.T) {
	assert.Equal(t, System(), Active())

	before := time.Now()
	now := Active().Now()
	assert.False(t, now.Before(before))
}

func TestInstall_MakesTheSimActive(t *testing.T) {
	clock := New(t, At(time.Unix(1000, 0)))
	clock.Install()
	defer clock.Restore()

	require.Equal(t, time.Unix(1000, 0), Active().Now())
	clock.Advance(time.Second)
	assert.Equal(t, time.Unix(1001, 0), Active().Now())
}

func TestInstall_SecondInstallFailsFatally(t *testing.T) {
	clock := New(t)
	clock.Install()
	defer clock.Restore()

	ct := &captureT{}
	defer func() {
		recoverFatal(t, recover())
		require.Len(t, ct.failures, 1)
		assert.Contains(t, ct.failures[0], "already installed")
	}()

	second := New(ct)
	second.Install()
	t.Errorf("Expect unreachable")
}

func TestRestore_DiscardsPendingAndIsIdempotent(t *testing.T) {
	clock := New(t)
	clock.Install()

	timer := clock.NewTimer(time.Second)
	require.Equal(t, 1, clock.NumPending())

	clock.Restore()
	assert.Equal(t, System(), Active())
	assert.Zero(t, clock.NumPending())

	clock.Advance(time.Hour)
	select {
	case <-timer.C:
		t.Fatalf("discarded timer fired")
	default:
	}

	clock.Restore() //no-op
	assert.Equal(t, System(), Active())
}

func TestRestore_AllowsReinstall(t *testing.T) {
	first := New(t)
	first.Install()
	first.Restore()

	second := New(t)
	second.Install()
	defer second.Restore()
	assert.Equal(t, time.Unix(0, 0), Active().Now())
}
