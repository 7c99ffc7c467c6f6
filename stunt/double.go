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
)

//T is compatible with builtin testing.T
type T interface {
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
	Logf(format string, args ...interface{})
	Helper()
}

//MatcherForMethod can be used to integrate a different matching framework
type MatcherForMethod func(t T, m reflect.Method, chained MethodArgsMatcher, matchers ...interface{}) MethodArgsMatcher

//ReturnsForMethod can be used to integrate a different return values framework
type ReturnsForMethod func(t T, m reflect.Method, chained ReturnValues, returnValues ...interface{}) ReturnValues

/*
A TestDouble is an object that can substitute for a concrete implementation of an interface
in a 4 phase testing framework (Setup, Exercise, Verify, Teardown).

Setup phase

Expected method calls to the double can be configured as one of the following types.

1) Stub - Returns programmed values in response to calls against matching input arguments

2) Mock - A stub with pre-built expectations about the number and order of method invocations on matching calls

3) Spy  - A stub that records calls as they execute

4) Fake - A substitute implementation for the method

Exercise phase

Any methods invoked on the double are sent to the first matching rule that has been configured.
If no rule matches but an exhausted Mock with an upper bound would have matched, the test fails
immediately at the offending call. Otherwise the DefaultMethodCall for this double is generated.

Every invocation of every method is additionally appended to the method's journal before any
rule runs, so calls remain observable via Recorded() regardless of the programmed outcome.

Verify phase

The Verify() method is used to confirm expectations on Mock methods have been met.

Spies (and Fakes) have explicit methods to assert the number and order of method invocations on subsets of calls.
*/
type TestDouble struct {
	t                   T
	methods             map[string]*method
	defaultCall         func(Method) MethodCall
	defaultReturnValues func(Method) ReturnValues
	describes           string
	trace               bool
	matcher             MatcherForMethod
	returns             ReturnsForMethod
}

// Enable tracing of all received method calls (via T.Logf)
func (d *TestDouble) EnableTrace() {
	d.trace = true
}

/*
SetDefaultCall allows caller to provide a function to decide whether to Stub, Mock, Spy or Fake
a call that was not explicitly registered in Setup phase.

the default function is a spy returning default values, so unregistered calls are recorded
and lenient. See Strict().
*/
func (d *TestDouble) SetDefaultCall(defaultCall func(Method) MethodCall) {
	d.defaultCall = defaultCall
}

/*
SetDefaultReturnValues allows a caller to provide a function to generate default return values
for a Stub, Mock, or Spy that was not explicitly registered with ReturnValues during Setup.
The default is to use zeroed values via reflection.
*/
func (d *TestDouble) SetDefaultReturnValues(defaultReturns func(Method) ReturnValues) {
	d.defaultReturnValues = defaultReturns
}

func (d *TestDouble) SetMatcherIntegration(forMethod MatcherForMethod) {
	d.matcher = forMethod
}

func (d *TestDouble) SetReturnValuesIntegration(forMethod ReturnsForMethod) {
	d.returns = forMethod
}

// Strict is a configurator that makes unregistered calls a verification failure,
// ie the default call becomes a Mock that never expects to be invoked.
func Strict() func(*TestDouble) {
	return func(d *TestDouble) {
		d.defaultCall = func(m Method) MethodCall {
			return m.Mock().Expect(Never())
		}
	}
}

func (d *TestDouble) String() string {
	return d.describes
}

func (d *TestDouble) T() T {
	return d.t
}

//MethodCall is an abstract interface of specific call types, Stub, Mock, Spy and Fake
type MethodCall interface {
	matches(args []interface{}) bool
	spy(args []interface{}) ([]interface{}, error)
	verify(T)
}

// defaults wires the built-in matcher and return value integrations.
//
// Successive Returning() calls against the same rule chain into a Sequence,
// so `.Returning(a).Returning(b)` programs the first matching call to yield a
// and subsequent ones b.
func defaults(d *TestDouble) {
	d.matcher = func(t T, m reflect.Method, _ MethodArgsMatcher, matchers ...interface{}) MethodArgsMatcher {
		return NewMatcherForMethod(t, m, matchers...)
	}
	d.returns = func(t T, m reflect.Method, chained ReturnValues, returnValues ...interface{}) ReturnValues {
		rv := NewReturnsForMethod(t, m, returnValues...)
		if chained == nil {
			return rv
		}
		if seq, isSeq := chained.(*sequentialReturnValues); isSeq {
			seq.push(rv)
			return seq
		}
		return Sequence(chained, rv)
	}
	d.defaultReturnValues = func(m Method) ReturnValues {
		return ZeroValues(m.Reflect().Type)
	}
	d.defaultCall = func(m Method) MethodCall {
		return m.Spy()
	}
}

/*
NewDouble Constructor for TestDouble called by specific implementation of test doubles.

forInterface is expected to be the nil implementation of an interface - (*Iface)(nil)

configurators are used to configure tracing and default behaviour for unregistered method calls and return values
*/
func NewDouble(t T, forInterface interface{}, configurators ...func(*TestDouble)) *TestDouble {
	doubleFor := reflect.TypeOf(forInterface)

	if doubleFor == nil || doubleFor.Kind() != reflect.Ptr || doubleFor.Elem().Kind() != reflect.Interface {
		t.Fatalf("Expecting '%v' to be a pointer to nil interface", forInterface)
	}
	doubleFor = doubleFor.Elem()

	double := &TestDouble{
		t:         t,
		describes: fmt.Sprintf("DoubleFor(%v)", doubleFor),
		methods:   make(map[string]*method, doubleFor.NumMethod()),
	}

	for i := 0; i < doubleFor.NumMethod(); i++ {
		m := doubleFor.Method(i)
		double.methods[m.Name] = newMethod(double, m)
	}

	defaults(double)
	for _, c := range configurators {
		c(double)
	}

	if double.matcher == nil || double.returns == nil {
		t.Fatalf("%v needs both matcher and return values integrations configured", doubleFor)
	}

	if double.defaultCall == nil || double.defaultReturnValues == nil {
		t.Fatalf("%v needs both SetDefaultCall and SetDefaultReturnValues configured", doubleFor)
	}

	return double
}

// newFuncDouble builds a single-method double over a bare func type.
// Used by SpyOn/StubOn where the "method" is a func-typed struct field and
// there is no interface to reflect over.
func newFuncDouble(t T, describes string, name string, ft reflect.Type, configurators ...func(*TestDouble)) *TestDouble {
	double := &TestDouble{
		t:         t,
		describes: describes,
		methods:   make(map[string]*method, 1),
	}
	double.methods[name] = newMethod(double, reflect.Method{Name: name, Type: ft})

	defaults(double)
	for _, c := range configurators {
		c(double)
	}
	return double
}

/*
Stub adds and returns a StubbedMethodCall for methodName on TestDouble d

Setup phase

Configure Matcher and ReturnValues.

By default a StubbedMethodCall matches any arguments and returns zero values for all outputs.

Exercise Phase

The first stub matching the invocation arguments will provide the output values.

Verify Phase

Nothing to verify
*/
func (d *TestDouble) Stub(methodName string) (stub StubbedMethodCall) {

	if m, found := d.methods[methodName]; found {
		m.mutex.Lock()
		defer m.mutex.Unlock()
		stub = m.Stub()
		m.addMethodCall(stub)
	} else {
		d.t.Fatalf("Cannot Stub non existent method %s for %v", methodName, d)
	}
	return
}

/*
Mock adds and returns a MockedMethodCall for methodName on TestDouble d

Setup Phase

Configure Matcher, sequencing (After), and Return Values.

Set Expectation on number of matching invocations.

By default a MockedMethodCall matches any arguments, returns zero values for all outputs and
expects exactly one invocation.

Exercise Phase

The first mock matching the invocation arguments and not yet Complete in terms of Expectation will
provide the output values. A call that matches only exhausted mocks fails the test immediately.

Verify Phase

(via call to a TestDouble.Verify() usually deferred immediately after the double is created)

Will assert the Expectation is met.
*/
func (d *TestDouble) Mock(methodName string) (mock MockedMethodCall) {
	if m, found := d.methods[methodName]; found {
		m.mutex.Lock()
		defer m.mutex.Unlock()
		mock = m.Mock()
		m.addMethodCall(mock)
	} else {
		d.t.Fatalf("Cannot Mock non existent method %s for %v", methodName, d)
	}
	return
}

/*
Spy records all calls to methodName.

Setup Phase

Configure ReturnValues.

Calling Spy twice for the same method will return the same value (ie there is only ever one spy,
and it will record methods that do not match any preceding Stub or Mock rules)

Exercise Phase

Matches and records all invocations that reach it.

Verify Phase

Can be called again to retrieve the spy for the method (eg to get a dynamically created default Spy).

Extract subsets of RecordedCalls and then verify an Expectation on the number of calls in the subset.
*/
func (d *TestDouble) Spy(methodName string) (spy SpyMethodCall) {
	if m, found := d.methods[methodName]; found {
		m.mutex.Lock()
		defer m.mutex.Unlock()
		for _, methodCall := range m.rules {
			if call, isa := methodCall.(SpyMethodCall); isa {
				return call
			}
		}
		spy = m.Spy()
		m.addMethodCall(spy)
	} else {
		d.t.Fatalf("Cannot Spy on non existent method %s for %v", methodName, d)
	}
	return
}

/*
Fake installs a user implementation for the method.

Setup Phase

Install the Fake implementation, which must match the signature of the method.

Only one fake is installed for a method, and it cannot be registered behind an existing spy.

Exercise Phase

Invokes the fake function via reflection, and records the call as per Spy.

Verify Phase

Explicitly verify RecordedCalls as per Spy.
*/
func (d *TestDouble) Fake(methodName string, impl interface{}) (fake FakeMethodCall) {

	if m, found := d.methods[methodName]; found {
		m.mutex.Lock()
		defer m.mutex.Unlock()
		for _, methodCall := range m.rules {
			if call, isa := methodCall.(SpyMethodCall); isa {
				d.t.Fatalf("unreachable fake for %v.%s which has previously registered a spy (%v)", d, methodName, call)
			}
		}
		fake = m.Fake(impl)
		m.addMethodCall(fake)
	} else {
		d.t.Fatalf("Cannot Fake non existent method %v.%s", d, methodName)
	}
	return
}

/*
Recorded returns the journal of every invocation of methodName, whichever rule serviced it,
as a verifiable set of RecordedCalls.

The journal is appended before the programmed outcome runs, so calls that panic via
Panicking() are still present.
*/
func (d *TestDouble) Recorded(methodName string) RecordedCalls {
	if m, found := d.methods[methodName]; found {
		return m.recordedView()
	}
	d.t.Fatalf("No recorded calls for non existent method %s on %v", methodName, d)
	return nil
}

func (d *TestDouble) Verify() {
	for _, method := range d.methods {
		for _, methodCall := range method.rules {
			methodCall.verify(d.t)
		}
	}
}

//Invoke is called by specialised double implementations, and sometimes by Fake implementations
//to record the invocation of a method.
func (d *TestDouble) Invoke(methodName string, args ...interface{}) []interface{} {
	d.t.Helper()

	method, found := d.methods[methodName]
	if !found {
		d.t.Fatalf("Unexpected call to unknown method %v.%s", d, methodName)
	}
	return method.invoke(args)
}

type Verifiable interface {
	Verify()
}

//Verify is shorthand to Verify a set of TestDoubles
func Verify(testDoubles ...Verifiable) {
	for _, td := range testDoubles {
		td.Verify()
	}
}
