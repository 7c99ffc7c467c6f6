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
	"time"
)

// ClockAlreadyInstalledError reports a second Sim being installed before the
// first was restored.
type ClockAlreadyInstalledError struct{}

func (e *ClockAlreadyInstalledError) Error() string {
	return "a simulated clock is already installed; Restore() it first"
}

// InfiniteLoopError reports a single Advance exceeding its fire limit,
// usually a callback rescheduling itself with no forward progress.
type InfiniteLoopError struct {
	Fires  int
	Window time.Duration
}

func (e *InfiniteLoopError) Error() string {
	return fmt.Sprintf("advancing by %v fired %d timers without settling; runaway reschedule?", e.Window, e.Fires)
}
