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

// patchKey identifies a wrapped (target, field) pair. The installed Patch holds
// the target alive through its reflect values, so the address cannot be reused
// while the entry exists.
type patchKey struct {
	target uintptr
	field  string
}

var patchTable = struct {
	sync.Mutex
	installed map[patchKey]*Patch
}{installed: map[patchKey]*Patch{}}

/*
A Patch is a double installed in place over a func-typed struct field.

Where an interface is available, prefer NewDouble. Patches serve code whose
collaborators are function tables - structs holding func-typed fields - the
idiomatic substitute for dynamic method replacement.

SpyOn wraps the field with a recording pass-through to the original function.
StubOn replaces the field with a programmable stub returning zero values by
default. Either way the field is mutated in place and Restore() puts the
original back; only one Patch may be installed over a given (target, field)
at a time.
*/
type Patch struct {
	d          *TestDouble
	name       string
	field      reflect.Value
	original   reflect.Value
	key        patchKey
	spyCall    SpyMethodCall
	programmed StubbedMethodCall
	restored   bool
}

/*
SpyOn replaces target's func-typed field with a recording pass-through to the
original function.

target must be a pointer to a struct and field the name of an exported
func-typed, non-nil field, otherwise the test fails fatally with an
InvalidTargetError. Installing over an already-wrapped field fails with an
AlreadyWrappedError.

The original behaviour is preserved: calls delegate to the wrapped function
and are recorded. Returning() overrides delegation for subsequent calls while
still recording.
*/
func SpyOn(t T, target interface{}, field string, configurators ...func(*TestDouble)) *Patch {
	t.Helper()
	return installPatch(t, target, field, true, configurators...)
}

/*
StubOn replaces target's func-typed field with a programmable stub.

By default every call records and returns zero values. Program outcomes with
Returning/Panicking/Failing/Yielding, or register argument-scoped rules with
On(matchers...).
*/
func StubOn(t T, target interface{}, field string, configurators ...func(*TestDouble)) *Patch {
	t.Helper()
	return installPatch(t, target, field, false, configurators...)
}

func installPatch(t T, target interface{}, fieldName string, delegate bool, configurators ...func(*TestDouble)) *Patch {
	t.Helper()

	v := reflect.ValueOf(target)
	describe := fmt.Sprintf("%T", target)
	if !v.IsValid() || v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		t.Fatalf("%v", &InvalidTargetError{Target: describe, Field: fieldName, Reason: "target must be a non-nil pointer to a struct"})
		return nil
	}
	describe = v.Elem().Type().String()

	fv := v.Elem().FieldByName(fieldName)
	if !fv.IsValid() {
		t.Fatalf("%v", &InvalidTargetError{Target: describe, Field: fieldName, Reason: "no such field"})
		return nil
	}
	if fv.Kind() != reflect.Func {
		t.Fatalf("%v", &InvalidTargetError{Target: describe, Field: fieldName, Reason: fmt.Sprintf("field is %v, not a func type", fv.Type())})
		return nil
	}
	if !fv.CanSet() {
		t.Fatalf("%v", &InvalidTargetError{Target: describe, Field: fieldName, Reason: "field is not settable"})
		return nil
	}
	if delegate && fv.IsNil() {
		t.Fatalf("%v", &InvalidTargetError{Target: describe, Field: fieldName, Reason: "cannot spy on a nil func field"})
		return nil
	}

	key := patchKey{target: v.Pointer(), field: fieldName}
	patchTable.Lock()
	defer patchTable.Unlock()
	if _, wrapped := patchTable.installed[key]; wrapped {
		t.Fatalf("%v", &AlreadyWrappedError{Target: describe, Field: fieldName})
		return nil
	}

	d := newFuncDouble(t, fmt.Sprintf("Patch(%s.%s)", describe, fieldName), fieldName, fv.Type(), configurators...)

	p := &Patch{
		d:        d,
		name:     fieldName,
		field:    fv,
		original: reflect.ValueOf(fv.Interface()),
		key:      key,
	}

	if delegate {
		d.Fake(fieldName, fv.Interface())
	} else {
		p.spyCall = d.Spy(fieldName)
	}

	ft := fv.Type()
	wrapper := reflect.MakeFunc(ft, func(in []reflect.Value) []reflect.Value {
		args := make([]interface{}, len(in))
		for i, a := range in {
			args[i] = a.Interface()
		}
		returns := d.Invoke(fieldName, args...)

		out := make([]reflect.Value, ft.NumOut())
		for i := range out {
			if i < len(returns) && returns[i] != nil {
				out[i] = reflect.ValueOf(returns[i])
			} else {
				out[i] = reflect.Zero(ft.Out(i))
			}
		}
		return out
	})
	fv.Set(wrapper)
	patchTable.installed[key] = p

	return p
}

func (p *Patch) String() string {
	return p.d.String()
}

func (p *Patch) T() T {
	return p.d.T()
}

// Double exposes the underlying TestDouble for advanced configuration.
func (p *Patch) Double() *TestDouble {
	return p.d
}

/*
Restore puts the original function back and releases the (target, field) entry
so it can be wrapped again.

Safe to call multiple times; calls after the first are no-ops. Usually
deferred immediately after the Patch is created.
*/
func (p *Patch) Restore() {
	patchTable.Lock()
	defer patchTable.Unlock()
	if p.restored {
		return
	}
	p.restored = true
	p.field.Set(p.original)
	delete(patchTable.installed, p.key)
}

// Returning programs the patch's default outcome. Chained calls build a
// Sequence, one entry per call. For a SpyOn patch this overrides delegation to
// the original while calls continue to be recorded.
func (p *Patch) Returning(values ...interface{}) *Patch {
	if p.spyCall != nil {
		p.spyCall.Returning(values...)
		return p
	}
	p.defaultRule().Returning(values...)
	return p
}

// Panicking programs calls to panic with v after being recorded.
func (p *Patch) Panicking(v interface{}) *Patch {
	if p.spyCall != nil {
		p.spyCall.Returning(Panicking(v))
		return p
	}
	p.defaultRule().Panicking(v)
	return p
}

// Failing programs calls to return zero values plus err in the trailing error result.
func (p *Patch) Failing(err error) *Patch {
	if p.spyCall != nil {
		p.spyCall.Returning(Failing(err))
		return p
	}
	p.defaultRule().Failing(err)
	return p
}

// Yielding programs calls to synchronously invoke their last func-typed
// argument with the given values.
func (p *Patch) Yielding(values ...interface{}) *Patch {
	if p.spyCall != nil {
		p.spyCall.Returning(Yielding(values...))
		return p
	}
	p.defaultRule().Yielding(values...)
	return p
}

func (p *Patch) defaultRule() StubbedMethodCall {
	if p.programmed == nil {
		p.programmed = p.d.Stub(p.name)
	}
	return p.programmed
}

// On returns a rule scoped to calls matching the given argument matchers, for
// chained Returning/Panicking/Failing/Yielding configuration. Rules are
// consulted in registration order ahead of the patch's default outcome.
func (p *Patch) On(matchers ...interface{}) StubbedMethodCall {
	return p.d.Stub(p.name).Matching(matchers...)
}

// Expects registers a mocked expectation against the patched function,
// verified by Verify(). See TestDouble.Mock.
func (p *Patch) Expects() MockedMethodCall {
	return p.d.Mock(p.name)
}

// Calls returns the journal of every invocation of the patched function,
// whichever rule serviced it.
func (p *Patch) Calls() RecordedCalls {
	return p.d.Recorded(p.name)
}

// Called reports whether the patched function has been invoked at least once.
func (p *Patch) Called() bool {
	return p.Calls().Called()
}

// CalledOnce reports whether the patched function has been invoked exactly once.
func (p *Patch) CalledOnce() bool {
	return p.Calls().CalledOnce()
}

// CalledWith reports whether any invocation matched the given matchers.
func (p *Patch) CalledWith(matchers ...interface{}) bool {
	return p.Calls().CalledWith(matchers...)
}

// NthArgs returns the argument list of invocation i (0-indexed).
func (p *Patch) NthArgs(i int) []interface{} {
	return p.Calls().NthArgs(i)
}

// NumCalls returns the number of recorded invocations.
func (p *Patch) NumCalls() int {
	return p.Calls().NumCalls()
}

// Expect asserts the total number of recorded invocations.
func (p *Patch) Expect(expect Expectation) {
	p.Calls().Expect(expect)
}

// Verify confirms all mocked expectations registered via Expects().
func (p *Patch) Verify() {
	p.d.Verify()
}
