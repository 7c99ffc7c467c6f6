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

//MockedMethodCall is a MethodCall that has pre-defined expectations for the number and sequence of invocations
type MockedMethodCall interface {
	/*
		Matching is used to setup whether this rule will match a given set of arguments.

		Empty matcher list will fatally fail the test

		If the first matcher is a Matcher then it is used (test will fatally fail if more matchers are sent)
		If the first matcher is a func then it is equivalent to Matching(Func(matchers[0],matchers[1:]))
		Otherwise each matcher is converted to a Matcher via either Func() or Eql()
		and the list is sent to Args()
	*/
	Matching(matchers ...interface{}) MockedMethodCall

	//Setup that this call will only match if the supplied calls are already complete
	After(calls ...MockedMethodCall) MockedMethodCall

	/*
		Returning is used to setup return values for this rule

		The returnValues are converted to a ReturnValues via Values()
	*/
	Returning(values ...interface{}) MockedMethodCall

	// Panicking programs matching calls to panic with v, after being recorded.
	Panicking(v interface{}) MockedMethodCall

	// Failing programs matching calls to return zero values plus err in the
	// method's trailing error result.
	Failing(err error) MockedMethodCall

	//Setup an expectation on the number of times this call will be invoked.
	//
	//Expectations that are also Completions (Exactly, Once, Twice, AtMost, Between)
	//set an upper bound: a call that overruns it, and that no other rule can service,
	//fails the test immediately with an UnexpectedCallError. Lower bounds are only
	//checked at Verify().
	Expect(expect Expectation) MockedMethodCall

	MethodCall

	complete() bool
}

type mockedMethodCall struct {
	*stubbedMethodCall
	count  int
	after  []MockedMethodCall
	expect Expectation
}

func newMockedMethodCall(m *method) MockedMethodCall {

	call := &mockedMethodCall{
		stubbedMethodCall: newStubbedMethodCall(m),
		count:             0,
		after:             []MockedMethodCall{},
	}
	return call
}

func (c *mockedMethodCall) complete() bool {
	if completion, isCompletion := c.expect.(Completion); isCompletion {
		return completion.Complete(c.count)
	}
	return false
}

func (c *mockedMethodCall) met() bool {
	if c.expect != nil {
		return c.expect.Met(c.count)
	}
	return true
}

func (c *mockedMethodCall) Matching(matchers ...interface{}) MockedMethodCall {
	c.t().Helper()
	c.stubbedMethodCall.Matching(matchers...)
	return c
}

//This rule will only be invoked after these other mocked calls (which might be on other doubles) are complete
func (c *mockedMethodCall) After(after ...MockedMethodCall) MockedMethodCall {
	c.after = append(c.after, after...)
	return c
}

func (c *mockedMethodCall) Returning(values ...interface{}) MockedMethodCall {
	c.stubbedMethodCall.Returning(values...)
	return c
}

func (c *mockedMethodCall) Panicking(v interface{}) MockedMethodCall {
	c.stubbedMethodCall.Panicking(v)
	return c
}

func (c *mockedMethodCall) Failing(err error) MockedMethodCall {
	c.stubbedMethodCall.Failing(err)
	return c
}

func (c *mockedMethodCall) Expect(expect Expectation) MockedMethodCall {
	c.expect = expect
	return c
}

func (c *mockedMethodCall) inSequence() bool {
	for _, call := range c.after {
		if !call.complete() {
			return false
		}
	}
	return true
}

func (c *mockedMethodCall) matches(args []interface{}) bool {
	return c.stubbedMethodCall.matches(args) && !c.complete() && c.inSequence()
}

// exceededBy reports whether args would have matched this rule were its upper bound
// not already reached. Used for fail-fast overrun detection.
func (c *mockedMethodCall) exceededBy(args []interface{}) bool {
	if c.expect == nil {
		return false
	}
	if _, isCompletion := c.expect.(Completion); !isCompletion {
		return false
	}
	return c.complete() && c.stubbedMethodCall.matches(args) && c.inSequence()
}

func (c *mockedMethodCall) expectation() string {
	return fmt.Sprint(c.expect)
}

func (c *mockedMethodCall) spy(args []interface{}) ([]interface{}, error) {
	c.count++
	if c.trace() && c.complete() {
		c.t().Logf("%v completed expectations after %d calls", c, c.count)
	}
	return c.stubbedMethodCall.spy(args)
}

func (c *mockedMethodCall) verify(t T) {
	t.Helper()
	if !c.met() {
		t.Errorf("%v", &ExpectationNotSatisfiedError{
			Subject:  c.stubbedMethodCall.String(),
			Expected: fmt.Sprint(c.expect),
			Count:    c.count,
		})
	}
}

// ExpectInOrder is shorthand to Setup that the list of calls are expected to be executed in this sequence
func ExpectInOrder(calls ...MockedMethodCall) {
	for i := len(calls) - 1; i > 0; i-- {
		calls[i].After(calls[i-1])
	}
}
