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
	"reflect"
)

// FakeMethodCall is a SpyMethodCall with a Fake implementation.
type FakeMethodCall interface {
	// The full set of all recorded calls to this method available to be verified
	RecordedCalls
	MethodCall
}

type fakeMethodCall struct {
	*spyMethodCall
	impl reflect.Value
}

func newFakeMethodCall(m *method, impl interface{}) *fakeMethodCall {

	implF := reflect.ValueOf(impl)
	implT := implF.Type()
	AssertMethodInputs(m.t(), m.Reflect(), implT)
	AssertMethodOutputs(m.t(), m.Reflect(), implT)

	return &fakeMethodCall{spyMethodCall: newSpyMethodCall(m), impl: implF}
}

func (c *fakeMethodCall) spy(args []interface{}) ([]interface{}, error) {
	//Record the call first, in case the actual call panics.
	c.recordedSet.history = append(c.recordedSet.history, newRecordedCall(args))

	inArgs := make([]reflect.Value, len(args))
	for i, arg := range args {
		inArgs[i] = argValue(arg, c.impl.Type(), i)
	}
	var returnVals []reflect.Value
	if c.impl.Type().IsVariadic() {
		returnVals = c.impl.CallSlice(inArgs)
	} else {
		returnVals = c.impl.Call(inArgs)
	}

	if len(returnVals) == 0 {
		return nil, nil
	}
	returns := make([]interface{}, len(returnVals))
	for j, v := range returnVals {
		returns[j] = v.Interface()
	}
	return returns, nil
}

// argValue converts an interface{} argument back into a reflect.Value suitable for
// position i of funcType, substituting typed zero values for untyped nils.
func argValue(arg interface{}, funcType reflect.Type, i int) reflect.Value {
	if arg != nil {
		return reflect.ValueOf(arg)
	}
	if i < funcType.NumIn() {
		return reflect.Zero(funcType.In(i))
	}
	// variadic tail
	return reflect.Zero(funcType.In(funcType.NumIn() - 1).Elem())
}
