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

package stunt

import "fmt"

// Engine failures are typed so their messages are attributable and testable.
// They are surfaced through T: Fatalf for configuration errors and overruns,
// Errorf for verification shortfalls.

// InvalidTargetError reports an attempt to wrap something that cannot be wrapped.
type InvalidTargetError struct {
	Target string
	Field  string
	Reason string
}

func (e *InvalidTargetError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid double target %s: %s", e.Target, e.Reason)
	}
	return fmt.Sprintf("invalid double target %s.%s: %s", e.Target, e.Field, e.Reason)
}

// AlreadyWrappedError reports a second double being installed over a
// (target, field) pair that is already wrapped and not yet restored.
type AlreadyWrappedError struct {
	Target string
	Field  string
}

func (e *AlreadyWrappedError) Error() string {
	return fmt.Sprintf("%s.%s is already wrapped by another double; Restore() it first", e.Target, e.Field)
}

// UnexpectedCallError reports a call that overran a mocked expectation's upper
// bound with no other rule able to service it. Raised at the offending call.
type UnexpectedCallError struct {
	Method   string
	Args     []interface{}
	Expected string
}

func (e *UnexpectedCallError) Error() string {
	return fmt.Sprintf("unexpected call to %s with args %v, expected %s", e.Method, e.Args, e.Expected)
}

// ExpectationNotSatisfiedError reports an expectation whose observed call count
// falls outside its configured range. Raised at verification time.
type ExpectationNotSatisfiedError struct {
	Subject  string
	Expected string
	Count    int
}

func (e *ExpectationNotSatisfiedError) Error() string {
	return fmt.Sprintf("%s expected %s, found %d calls", e.Subject, e.Expected, e.Count)
}
