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

import (
	"fmt"
)

// StubbedMethodCall is a MethodCall that matches a given set of arguments and returns programmed values.
type StubbedMethodCall interface {
	/*
		Matching is used to setup whether this rule will match a given set of arguments.

		Empty matcher list will fatally fail the test

		If the first matcher is a Matcher then it is used (test will fatally fail if more matchers are sent)
		If the first matcher is a func then it is equivalent to Matching(Func(matchers[0],matchers[1:]))
		Otherwise each matcher is converted to a Matcher via either Func() or Eql()
		and the list is sent to Args()

		Registering a second plain stub with an identical matcher replaces the first,
		unless the first has sequenced return values.
	*/
	Matching(matchers ...interface{}) StubbedMethodCall

	/*
		Returning is used to setup return values for this rule

		The returnValues are converted to a ReturnValues via Values().
		Chained Returning calls build a Sequence, one entry per matching call.
	*/
	Returning(returnValues ...interface{}) StubbedMethodCall

	// Panicking programs matching calls to panic with v, after being recorded.
	Panicking(v interface{}) StubbedMethodCall

	// Failing programs matching calls to return zero values plus err in the
	// method's trailing error result.
	Failing(err error) StubbedMethodCall

	// Yielding programs matching calls to synchronously invoke their last
	// func-typed argument with the given values, then return default values.
	Yielding(values ...interface{}) StubbedMethodCall

	MethodCall
}

type stubbedMethodCall struct {
	*method
	returns ReturnValues
	matcher MethodArgsMatcher
}

func newStubbedMethodCall(m *method) (call *stubbedMethodCall) {
	return &stubbedMethodCall{method: m}
}

func (c *stubbedMethodCall) matches(args []interface{}) bool {
	if c.matcher != nil {
		return c.matcher.Matches(args...)
	}
	return true
}

func (c *stubbedMethodCall) spy(args []interface{}) ([]interface{}, error) {
	if c.returns == nil {
		c.returns = c.receiver.defaultReturnValues(c.method)
	}
	if aware, needsArgs := c.returns.(argAwareReturnValues); needsArgs {
		return aware.ReceiveFor(args)
	}
	return c.returns.Receive()
}

func (c *stubbedMethodCall) verify(T) {
	//Nothing to verify
}

// sequenced reports whether this rule consumes one programmed entry per matching call.
func (c *stubbedMethodCall) sequenced() bool {
	if mv, isMulti := c.returns.(multiValues); isMulti {
		return mv.multiValued()
	}
	return false
}

func (c *stubbedMethodCall) Returning(returnValues ...interface{}) StubbedMethodCall {
	c.returns = c.receiver.returns(c.t(), c.m, c.returns, returnValues...)
	return c
}

func (c *stubbedMethodCall) Panicking(v interface{}) StubbedMethodCall {
	return c.Returning(Panicking(v))
}

func (c *stubbedMethodCall) Failing(err error) StubbedMethodCall {
	return c.Returning(Failing(err))
}

func (c *stubbedMethodCall) Yielding(values ...interface{}) StubbedMethodCall {
	return c.Returning(Yielding(values...))
}

func (c *stubbedMethodCall) Matching(matchers ...interface{}) StubbedMethodCall {
	t := c.method.t()
	t.Helper()
	matcher := c.receiver.matcher(c.t(), c.m, c.matcher, matchers...)
	c.matcher = matcher
	c.method.replaceDuplicateStub(c)
	return c
}

func (c *stubbedMethodCall) String() string {
	if c.matcher != nil {
		return fmt.Sprintf("%v matching %v", c.method, c.matcher)
	}
	return c.method.String()
}
