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
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"sync"
	"time"
)

// ReturnValues implementations generate values in response to Stub, Mock or Spy method invocations
type ReturnValues interface {

	//Receive is called when a method is exercised
	//
	// non nil error response will fatally terminate the test
	Receive() ([]interface{}, error)
}

type ValidatingReturnValues interface {
	ReturnValues
	ForMethod(t T, method reflect.Method)
}

// argAwareReturnValues generate values that depend on the invocation arguments (eg Yielding)
type argAwareReturnValues interface {
	ReturnValues
	ReceiveFor(args []interface{}) ([]interface{}, error)
}

type multiValues interface {
	ReturnValues
	multiValued() bool
}

// A Timewarp can be used to simulate a sleep, eg when testing using a simulated clock.
// The canonical sleeper is
//   time.After
type Timewarp func(d time.Duration) <-chan time.Time

func NewReturnsForMethod(t T, forMethod reflect.Method, values ...interface{}) (rv ReturnValues) {
	if len(values) == 1 {
		var isRv bool
		if rv, isRv = values[0].(ReturnValues); !isRv {
			rv = Values(values...)
		} //else rv is now cast to ReturnValues
	} else {
		rv = Values(values...)
	}
	if validatingRV, hasForMethod := rv.(ValidatingReturnValues); hasForMethod {
		validatingRV.ForMethod(t, forMethod)
	}
	return
}

type reflectZeroReturnValues []reflect.Type

func (zv reflectZeroReturnValues) Receive() ([]interface{}, error) {
	if len(zv) == 0 {
		return nil, nil
	}
	results := make([]interface{}, len(zv))
	for i := 0; i < len(zv); i++ {
		results[i] = reflect.Zero(zv[i]).Interface()
	}
	return results, nil
}

func (zv reflectZeroReturnValues) ForMethod(_ T, _ reflect.Method) {
	//we validated on the way in
}

// ZeroValues repeatedly returns the zeroed values for the given methodType
func ZeroValues(methodType reflect.Type) ReturnValues {
	if methodType.NumOut() == 0 {
		return reflectZeroReturnValues(nil)
	}
	results := make([]reflect.Type, methodType.NumOut())
	for i := 0; i < methodType.NumOut(); i++ {
		results[i] = methodType.Out(i)
	}
	return reflectZeroReturnValues(results)
}

type fixedReturnValues []interface{}

func (v fixedReturnValues) Receive() ([]interface{}, error) {
	return v, nil
}

func (v fixedReturnValues) ForMethod(t T, m reflect.Method) {
	AssertMethodReturnValues(t, m, v)
}

// Values stores a fixed set of values returned for every invocation
func Values(values ...interface{}) ReturnValues {
	return fixedReturnValues(values)
}

type panicReturnValues struct {
	v interface{}
}

func (p panicReturnValues) Receive() ([]interface{}, error) {
	panic(p.v)
}

func (p panicReturnValues) String() string {
	return fmt.Sprintf("Panicking(%v)", p.v)
}

// Panicking programs a matching invocation to panic with v.
//
// The invocation is journalled before the panic, and spies record it, so the
// call remains observable. The panic is not an engine failure: it propagates
// to the caller of the doubled method as its own fault.
func Panicking(v interface{}) ReturnValues {
	return panicReturnValues{v}
}

type failingReturnValues struct {
	err  error
	outs []reflect.Type
}

func (f *failingReturnValues) ForMethod(t T, m reflect.Method) {
	t.Helper()
	mt := m.Type
	if mt.NumOut() == 0 || !mt.Out(mt.NumOut()-1).Implements(reflect.TypeOf((*error)(nil)).Elem()) {
		t.Fatalf("Failing(%v) requires %v to have a trailing error return", f.err, mt)
		return
	}
	f.outs = make([]reflect.Type, mt.NumOut())
	for i := 0; i < mt.NumOut(); i++ {
		f.outs[i] = mt.Out(i)
	}
}

func (f *failingReturnValues) Receive() ([]interface{}, error) {
	if f.outs == nil {
		return nil, errors.New("Failing used without method context")
	}
	results := make([]interface{}, len(f.outs))
	for i := 0; i < len(f.outs)-1; i++ {
		results[i] = reflect.Zero(f.outs[i]).Interface()
	}
	results[len(f.outs)-1] = f.err
	return results, nil
}

func (f *failingReturnValues) String() string {
	return fmt.Sprintf("Failing(%v)", f.err)
}

// Failing programs a matching invocation to return zeroed values with err in the
// method's trailing error result. The stubbed method must return an error as its
// final value.
func Failing(err error) ReturnValues {
	return &failingReturnValues{err: err}
}

type yieldingReturnValues struct {
	with []interface{}
	then ReturnValues
}

func (y *yieldingReturnValues) ForMethod(t T, m reflect.Method) {
	y.then = ZeroValues(m.Type)
}

func (y *yieldingReturnValues) Receive() ([]interface{}, error) {
	return nil, errors.New("Yielding requires invocation arguments")
}

func (y *yieldingReturnValues) ReceiveFor(args []interface{}) ([]interface{}, error) {
	for i := len(args) - 1; i >= 0; i-- {
		cb := reflect.ValueOf(args[i])
		if !cb.IsValid() || cb.Kind() != reflect.Func {
			continue
		}
		in := make([]reflect.Value, len(y.with))
		for j, v := range y.with {
			in[j] = argValue(v, cb.Type(), j)
		}
		cb.Call(in)
		if y.then == nil {
			return nil, nil
		}
		return y.then.Receive()
	}
	return nil, errors.New("no callback-shaped argument to yield to")
}

func (y *yieldingReturnValues) String() string {
	return fmt.Sprintf("Yielding(%v)", y.with)
}

// Yielding programs a matching invocation to synchronously invoke its last
// func-typed argument with the given values, then return zeroed values.
func Yielding(with ...interface{}) ReturnValues {
	return &yieldingReturnValues{with: with}
}

// ReturnChannel provides channel semantics for returning values from stub calls
type ReturnChannel interface {

	//Send a list of return values
	Send(...interface{})

	//Close the channel, subsequent invocations that need values will cause the test to fail fatally
	Close()

	//Set a timeout. If the timeout expires before a value is available on the channel
	//  ( via Send() ) the test will fail fatally.
	SetTimeout(timeout time.Duration, sleeper ...Timewarp)

	ReturnValues
}

// NewReturnChannel generates return values for successive calls to a stub.
// It will return errors if the channel is closed
//
// Use the optional bufferSize parameter with a non-zero value to create a buffered channel.
//
// Use SetTimeout() to override the default timeout of 200 ms.
func NewReturnChannel(bufferSize ...int) ReturnChannel {
	var channel chan []interface{}

	bufSize := 0
	for _, size := range bufferSize {
		bufSize += size
	}
	channel = make(chan []interface{}, bufSize)
	return &returnChannel{
		values:  channel,
		timeout: 200 * time.Millisecond,
		sleeper: time.After,
	}
}

type returnChannel struct {
	t       T
	method  reflect.Method
	values  chan []interface{}
	timeout time.Duration
	sleeper Timewarp
}

func (rc *returnChannel) ForMethod(t T, method reflect.Method) {
	rc.t = t
	rc.method = method
}

func (rc *returnChannel) multiValued() bool { return true }

func (rc *returnChannel) Receive() (returns []interface{}, err error) {
	select {
	case generatedReturns, ok := <-rc.values:
		if ok {
			returns = generatedReturns
		} else {
			err = errors.New("requested values from closed return channel")
		}
	case <-rc.sleeper(rc.timeout):
		err = errors.New("timed out waiting for return channel to provide values")
	}

	return
}

func (rc *returnChannel) Send(returnValues ...interface{}) {
	if rc.t != nil {
		AssertMethodReturnValues(rc.t, rc.method, returnValues)
	}
	rc.values <- returnValues
}

func (rc *returnChannel) Close() {
	close(rc.values)
}

//Max time to wait for a value from the channel before failing the test
func (rc *returnChannel) SetTimeout(timeout time.Duration, sleeper ...Timewarp) {
	if len(sleeper) > 0 {
		rc.sleeper = sleeper[0]
	}
	rc.timeout = timeout
}

type delayedReturnValues struct {
	ReturnValues
	delayer func() time.Duration
	sleeper Timewarp
}

func newDelayedReturnValues(rv ReturnValues, f func() time.Duration, sleeper ...Timewarp) ReturnValues {
	sf := time.After
	if len(sleeper) > 0 {
		sf = sleeper[0]
	}
	return &delayedReturnValues{ReturnValues: rv, delayer: f, sleeper: sf}
}

func (d *delayedReturnValues) Receive() ([]interface{}, error) {
	//Simulate IO delay / long poll etc
	<-d.sleeper(d.delayer())
	return d.ReturnValues.Receive()
}

func (d delayedReturnValues) ForMethod(t T, method reflect.Method) {
	if rvForMethod, hasForMethod := d.ReturnValues.(ValidatingReturnValues); hasForMethod {
		rvForMethod.ForMethod(t, method)
	}
}

// Delayed wraps the ReturnValues rv with a fixed delay of 'by' duration
//
// Useful to simulate an asynchronous IO request, allowing other goroutines to run
// while waiting for the response.
//
// An optional sleeper function, defaulting to time.After, can be provided.
// A simulated clock's After method satisfies Timewarp, putting the delay under
// virtual time.
func Delayed(rv ReturnValues, by time.Duration, sleep ...Timewarp) ReturnValues {
	return newDelayedReturnValues(rv, func() time.Duration { return by }, sleep...)
}

// RandDelayed wraps the ReturnValues rv with a delay of up to 'max' duration
func RandDelayed(rv ReturnValues, max time.Duration, sleep ...Timewarp) ReturnValues {
	return newDelayedReturnValues(rv, func() time.Duration { return time.Duration(rand.Int63n(int64(max))) }, sleep...)
}

type sequentialReturnValues struct {
	mutex   sync.Mutex
	pending []ReturnValues
	last    ReturnValues
}

//Sequence returns values from each of 'values' in turn, one entry per matching
//call. Once the list is exhausted the final entry is held and re-exercised by
//every further call.
func Sequence(values ...ReturnValues) ReturnValues {
	s := &sequentialReturnValues{}
	for _, rv := range values {
		s.push(rv)
	}
	return s
}

func (s *sequentialReturnValues) push(rv ReturnValues) {
	if nested, isSeq := rv.(*sequentialReturnValues); isSeq {
		s.pending = append(s.pending, nested.pending...)
		return
	}
	s.pending = append(s.pending, rv)
}

func (s *sequentialReturnValues) multiValued() bool { return true }

func (s *sequentialReturnValues) ForMethod(t T, m reflect.Method) {
	for _, rv := range s.pending {
		if validatingRV, isValidating := rv.(ValidatingReturnValues); isValidating {
			validatingRV.ForMethod(t, m)
		}
	}
}

func (s *sequentialReturnValues) Receive() ([]interface{}, error) {
	return s.receive(func(rv ReturnValues) ([]interface{}, error) {
		return rv.Receive()
	})
}

// ReceiveFor forwards invocation arguments to entries that need them (eg Yielding).
func (s *sequentialReturnValues) ReceiveFor(args []interface{}) ([]interface{}, error) {
	return s.receive(func(rv ReturnValues) ([]interface{}, error) {
		if aware, needsArgs := rv.(argAwareReturnValues); needsArgs {
			return aware.ReceiveFor(args)
		}
		return rv.Receive()
	})
}

func (s *sequentialReturnValues) receive(recv func(ReturnValues) ([]interface{}, error)) ([]interface{}, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for len(s.pending) > 0 {
		rv := s.pending[0]
		if mv, isMultiValue := rv.(multiValues); isMultiValue && mv.multiValued() {
			//multi-valued entries (eg a ReturnChannel) are drained before moving on
			if result, rvErr := recv(rv); rvErr == nil {
				return result, nil
			}
			s.pending = s.pending[1:]
			continue
		}
		s.pending = s.pending[1:]
		if len(s.pending) == 0 {
			//the final entry is held, re-exercised by any further calls
			s.last = rv
		}
		return recv(rv)
	}

	if s.last != nil {
		return recv(s.last)
	}
	return nil, errors.New("no available values")
}
