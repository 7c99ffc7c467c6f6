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
	"reflect"
	"sync"
)

// Method is used to configure the default Double type for a given interface method.
//
// A method's signature is available via Reflect()
// Stub(), Mock(), Spy(), Fake() are used to return a specific MethodCall implementation to use
// See TestDouble.SetDefaultCall
type Method interface {
	Stub() StubbedMethodCall
	Mock() MockedMethodCall
	Spy() SpyMethodCall
	Fake(impl interface{}) FakeMethodCall
	Reflect() reflect.Method
}

// recordingCatchAll marks rules that match and record every invocation (spies and fakes).
// New rules are inserted ahead of them so programmed stubs and mocks stay reachable.
type recordingCatchAll interface {
	recordsAllCalls()
}

// ceilinged marks rules carrying an upper-bound expectation that can be overrun.
type ceilinged interface {
	exceededBy(args []interface{}) bool
	expectation() string
}

type method struct {
	receiver *TestDouble
	mutex    *sync.Mutex
	rules    []MethodCall
	journal  []*recordedCall
	m        reflect.Method
}

func newMethod(d *TestDouble, m reflect.Method) *method {
	return &method{receiver: d, mutex: &sync.Mutex{}, rules: []MethodCall{}, m: m}
}

func (m *method) trace() bool {
	return m.receiver.trace
}

func (m *method) t() T {
	return m.receiver.t
}

func (m *method) Stub() StubbedMethodCall {
	return newStubbedMethodCall(m)
}

func (m *method) Mock() MockedMethodCall {
	return newMockedMethodCall(m)
}

func (m *method) Spy() SpyMethodCall {
	return newSpyMethodCall(m)
}

func (m *method) Fake(impl interface{}) FakeMethodCall {
	return newFakeMethodCall(m, impl)
}

func (m *method) Reflect() reflect.Method {
	return m.m
}

func (m *method) String() string {
	return fmt.Sprintf("%v.%s", m.receiver, m.m.Name)
}

// addMethodCall registers a rule, keeping recording catch-alls (spies, fakes) last
// so later-programmed stubs and mocks remain reachable.
func (m *method) addMethodCall(call MethodCall) {
	if _, isCatchAll := call.(recordingCatchAll); !isCatchAll {
		for i, existing := range m.rules {
			if _, catchAll := existing.(recordingCatchAll); catchAll {
				m.rules = append(m.rules[:i], append([]MethodCall{call}, m.rules[i:]...)...)
				return
			}
		}
	}
	m.rules = append(m.rules, call)
}

// replaceDuplicateStub makes the latest registration win when two plain stubs carry
// an identical matcher. Sequenced rules, on either side, are left alone so ordered
// behaviours can be layered per matching call.
func (m *method) replaceDuplicateStub(c *stubbedMethodCall) {
	if c.matcher == nil || c.sequenced() {
		return
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()

	key := fmt.Sprint(c.matcher)
	prior, own := -1, -1
	for i, rule := range m.rules {
		other, isStub := rule.(*stubbedMethodCall)
		if !isStub {
			continue
		}
		if other == c {
			own = i
			continue
		}
		if other.matcher == nil || fmt.Sprint(other.matcher) != key || other.sequenced() {
			continue
		}
		prior = i
	}
	if prior < 0 || own < 0 {
		return
	}
	// The replacement takes the prior rule's slot, preserving its priority.
	m.rules[prior] = c
	m.rules = append(m.rules[:own], m.rules[own+1:]...)
}

func (m *method) match(args []interface{}) MethodCall {
	for _, possible := range m.rules {
		if possible.matches(args) {
			return possible
		}
	}

	// Nothing live can service the call. An exhausted upper-bounded mock that would
	// have matched means the caller overran its expectation: fail at the call site.
	for _, possible := range m.rules {
		if c, bounded := possible.(ceilinged); bounded && c.exceededBy(args) {
			m.t().Helper()
			m.t().Fatalf("%v", &UnexpectedCallError{Method: m.String(), Args: args, Expected: c.expectation()})
			return nil
		}
	}

	def := m.receiver.defaultCall(m)
	if def == nil {
		m.t().Fatalf("Nil DefaultMethodCall returned for %v", m)
	} else if !def.matches(args) {
		// A Strict() default is a Never() mock, complete from the outset.
		if c, bounded := def.(ceilinged); bounded && c.exceededBy(args) {
			m.t().Helper()
			m.addMethodCall(def)
			m.t().Fatalf("%v", &UnexpectedCallError{Method: m.String(), Args: args, Expected: c.expectation()})
			return nil
		}
		m.t().Fatalf("Method %v expects default call %v to match %v", m, def, args)
	}
	m.addMethodCall(def)

	return def
}

func (m *method) invoke(args []interface{}) []interface{} {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	// Journal first: the invocation is observable even if the programmed outcome panics.
	m.journal = append(m.journal, newRecordedCall(args))

	matched := m.match(args)

	if m.trace() {
		m.t().Helper()
		//A fake or panicking rule can panic but we still want to trace it
		defer func(matched MethodCall, args []interface{}) {
			if e := recover(); e != nil {
				m.t().Logf("Called %s(%v) => panic! %v", matched, args, e)
				panic(e)
			}
		}(matched, args)
	}

	returns, err := matched.spy(args)
	if err != nil {
		m.t().Fatalf("No return values available for method %v(%v) %s", matched, args, err.Error())
	} else {
		if m.trace() {
			m.t().Logf("Called %s(%v) => %v", matched, args, returns)
		}
		AssertMethodReturnValues(m.t(), m.m, returns)
	}
	return returns
}

// recordedView returns the journal of all invocations as a verifiable set.
// The view is a snapshot taken at the time of the call.
func (m *method) recordedView() RecordedCalls {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return &recordedSet{
		method:  m,
		history: m.journal,
		labels:  []string{fmt.Sprintf("recorded calls to %v", m)},
	}
}

func (m *method) defaultReturnValues() ReturnValues {
	return m.receiver.defaultReturnValues(m)
}
