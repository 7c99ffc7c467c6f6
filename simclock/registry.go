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

import "sync"

// The process-wide clock registry. Code that cannot take a Clock parameter can
// call Active() instead of package time; a test installs its Sim for the
// duration and restores on teardown.
var registry = struct {
	sync.Mutex
	active *Sim
}{}

// Active returns the installed Sim, or System() when none is installed.
func Active() Clock {
	registry.Lock()
	defer registry.Unlock()
	if registry.active != nil {
		return registry.active
	}
	return System()
}

/*
Install makes s the process-wide clock returned by Active().

Only one Sim may be installed at a time; a second Install before Restore fails
the test fatally with a ClockAlreadyInstalledError. Defer Restore immediately:

	clock := simclock.New(t)
	clock.Install()
	defer clock.Restore()
*/
func (s *Sim) Install() {
	registry.Lock()
	defer registry.Unlock()
	if registry.active != nil {
		s.t.Helper()
		s.t.Fatalf("%v", &ClockAlreadyInstalledError{})
		return
	}
	registry.active = s
}

// Restore removes s from the registry and discards its pending timers and
// tickers. Idempotent, and safe to call on a Sim that was never installed.
func (s *Sim) Restore() {
	registry.Lock()
	if registry.active == s {
		registry.active = nil
	}
	registry.Unlock()

	s.lock()
	for _, e := range s.entries {
		e.stopped = true
	}
	s.entries = nil
	s.unlock()
}
