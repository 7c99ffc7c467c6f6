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
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp/cmpopts"
)

type keylike interface {
	key()
}

type tkey string

func (tkey) key() {
	panic("Unexpected call to key()")
}

func TestMatcher(t *testing.T) {

	type test struct {
		name        string
		matcher     Matcher
		method      reflect.Method
		matching    []interface{}
		notMatching []interface{}
	}

	var mF = func(name string) reflect.Method {
		m, ok := backendIface.MethodByName(name)
		if !ok {
			t.Fatalf("No method %s for %v", name, backendIface)
		}
		return m
	}

	tk := tkey("akey")

	prefixF := func(x string) bool { return regexp.MustCompile("^t").MatchString(x) }
	tests := []test{
		{"getArg", Args(Eql("test")), mF("get"), []interface{}{"test"}, []interface{}{""}},
		{"Func", Func(prefixF), mF("get"), []interface{}{"test"}, []interface{}{""}},
		{"Any", Any(Args(Eql("test")), Args(Eql("x"))), mF("get"), []interface{}{"test"}, []interface{}{"xxx"}},
		{"AnyFuncLen", Any(Args(Func(prefixF, "startswith 't'")), Args(Len(3))), mF("get"), []interface{}{"yyy"}, []interface{}{"xxxx"}},
		{"All()", All(), mF("get"), []interface{}{"ttt"}, nil},
		{"NoMatchers", NewMatcherForMethod(t, mF("get")), mF("get"), []interface{}{"ttt"}, nil},
		{"Any()", Any(), mF("get"), nil, []interface{}{"ttt"}},
		{"All", All(Args(Func(prefixF, "startswith 't'")), Args(Len(3))), mF("get"), []interface{}{"ttt"}, []interface{}{"test"}},
		{"Not(Any(...))", Not(Any(Args(Func(prefixF)), Args(Len(3)))), mF("get"), []interface{}{"xxxx"}, []interface{}{"ttt"}},
		{"getNew", NewMatcherForMethod(t, mF("get"), "test"), mF("get"), []interface{}{"test"}, []interface{}{""}},
		{"getNewFunc", NewMatcherForMethod(t, mF("get"), prefixF), mF("get"), []interface{}{"tight"}, []interface{}{""}},
		{"getNewFuncExplained", NewMatcherForMethod(t, mF("get"), prefixF, "startswith 't'"), mF("get"), []interface{}{"tight"}, []interface{}{""}},
		{"getNewType", NewMatcherForMethod(t, mF("get"), IsA(tk)), mF("get"), []interface{}{tk}, []interface{}{"plainstring"}},
		{"getNewIface", NewMatcherForMethod(t, mF("get"), reflect.TypeOf((*keylike)(nil)).Elem()), mF("get"), []interface{}{tk}, []interface{}{"plainstring"}},
		{"batchArg", Args(Eql(10), Eql("test"), Eql("blah")), mF("batch"), []interface{}{10, []string{"test", "blah"}}, []interface{}{5, []string{"test"}}},
		{"refsArg", Args(Eql(10), Eql("test")), mF("refs"), []interface{}{10, "test"}, []interface{}{5, "test"}},
		{"refsNew", NewMatcherForMethod(t, mF("refs"), 10, "test"), mF("refs"), []interface{}{10, "test"}, []interface{}{5, "test"}},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			vMatcher := test.matcher.(MethodArgsMatcher)
			vMatcher.ForMethod(t, test.method)
			if test.matching != nil && !test.matcher.Matches(test.matching...) {
				t.Errorf("Expected %v to match %v", test.matcher, test.matching)
			}
			if test.notMatching != nil && test.matcher.Matches(test.notMatching...) {
				t.Errorf("expected %v not to match %v", test.matcher, test.notMatching)
			}
		})
	}
}

func TestMethodArgsMatcher_FailsFatally(t *testing.T) {
	type test struct {
		name        string
		matcher     MethodArgsMatcher
		failMethod  reflect.Method
		expectedMsg string
	}

	var mF = func(name string) reflect.Method {
		m, ok := backendIface.MethodByName(name)
		if !ok {
			t.Fatalf("No method %s for %v", name, backendIface)
		}
		return m
	}

	tests := []test{
		{"Any(Nil())", Any(Nil()), mF("get"), "Nil as MethodArgsMatcher"},
		{"FuncTooManyArgs", Args(Eql("x"), Eql(0)), mF("get"), "1.*have.*2"},
		{"FuncBadType", Func(func(i int) bool { return true }), mF("get"), "string.*int"},
		{"ArgBadType", Args(Slice(Eql("xxx"))), mF("get"), "slice.*string"},
		{"ArgNested", Args(Args(Eql("x"))), mF("get"), "SingleArgMatcher"},
		{"FuncNoReturn", Func(func(s string) {}), mF("get"), "bool"},
		{"FuncMoreReturns", Func(func(s string) (bool, error) { return false, nil }), mF("get"), "bool"},
		{"FuncReturnNotBool", Func(func(s string) error { return nil }), mF("get"), "bool.*error"},
		{"FuncArgType", Args(Len(3)), mF("put"), "length.*int"},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			tDouble := NewTDouble(t)
			spy := tDouble.Fake("Fatalf", tDouble.FakeFatalf)
			defer func(spy FakeMethodCall) {
				recover()
				spy.Matching(printfMatcher(test.expectedMsg)).Expect(Once())
			}(spy)

			test.matcher.ForMethod(tDouble, test.failMethod)
		})
	}
}

type coord struct {
	X, Y float64
}

func TestSingleArgMatchers(t *testing.T) {
	type test struct {
		name        string
		matcher     Matcher
		argType     reflect.Type
		matching    []interface{}
		notMatching []interface{}
		re          string
	}

	var emptySlice = make([]int, 0)
	var nilSlice []int
	intType := reflect.TypeOf(10)
	strType := reflect.TypeOf("")
	sliceIntType := reflect.TypeOf(emptySlice)
	sliceStrType := reflect.TypeOf([]string{})
	coordType := reflect.TypeOf(coord{})

	tests := []test{
		{"Eql(string)", Eql("x"), strType, []interface{}{"x"}, []interface{}{"y", ""}, "x"},
		{"Eql(int)", Eql(10), intType, []interface{}{10}, []interface{}{6, -1, 0}, "10"},
		{"NotEql(int)", Not(Eql(10)), intType, []interface{}{6, -1, 0}, []interface{}{10}, "Not.*10"},
		{"Like(coord)", Like(coord{1, 2}), coordType, []interface{}{coord{1, 2}}, []interface{}{coord{1, 3}}, "Like"},
		{"LikeApprox", Like(coord{1, 2}, cmpopts.EquateApprox(0, 0.01)), coordType, []interface{}{coord{1.004, 2}}, []interface{}{coord{1.2, 2}}, "Like"},
		{"Nil([]int)", Nil(), sliceIntType, []interface{}{nilSlice}, []interface{}{emptySlice, []int{1}}, "Nil"},
		{"Slice([]int)", Slice(Eql(10), Eql(20)), sliceIntType, []interface{}{[]int{10, 20}, []int{10, 20, 3}}, []interface{}{[]int{10}, []int{1, 20}, emptySlice, nilSlice, "astring"}, `\[.*10.*20.*\]`},
		{"Len([]int)", Len(Eql(2)), sliceIntType, []interface{}{[]int{0, 0}}, []interface{}{emptySlice, []int{1}, []int{1, 2, 3}, 0}, "Len.*2"},
		{"Len(string)", Len(Eql(3)), sliceStrType, []interface{}{"one"}, []interface{}{"", "12"}, "Len.*3"},
		{"Len(Func(func >=))", Len(Func(func(l int) bool { return l >= 2 })), sliceIntType, []interface{}{"one", "xx"}, []interface{}{"x", ""}, "Len.*func.*int.*bool"},
		{"Len(func >=)", Len(func(l int) bool { return l >= 2 }), sliceIntType, []interface{}{"one", "xx"}, []interface{}{"x", ""}, "Len.*func.*int.*bool"},
		{"All()", All(), strType, []interface{}{"one", 10, true, emptySlice}, []interface{}{}, "All()"},
		{"Any()", Any(), strType, []interface{}{}, []interface{}{"one", 10, true, emptySlice}, "Any()"},
		{"All", All(All(), Eql("xxx"), Len(3)), strType, []interface{}{"xxx"}, []interface{}{"yyy"}, "All.*All.*xxx.*Len.*3"},
		{"Any", Any(Eql("xxx"), Len(2)), strType, []interface{}{"xxx", "ab"}, []interface{}{"yyy", ""}, "Any.*xxx.*Len.*2"},
		{"IsA", IsA(111), intType, []interface{}{33}, []interface{}{"yyyy"}, "int"},
		{"IsAType", IsA(reflect.TypeOf(10)), intType, []interface{}{33}, []interface{}{"yyyy"}, "int"},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			matcher, matching, notMatching, argType := test.matcher, test.matching, test.notMatching, test.argType

			if !regexp.MustCompile(test.re).MatchString(fmt.Sprint(matcher)) {
				t.Errorf("expected '%v' to match '%s'", matcher, test.re)
			}

			vMatcher := matcher.(SingleArgMatcher)
			vMatcher.ForType(t, argType)

			for _, arg := range matching {
				if !matcher.Matches(arg) {
					t.Errorf("Expected %s to match %v", matcher, arg)
				}
			}

			for _, notArg := range notMatching {
				if matcher.Matches(notArg) {
					t.Errorf("Expected %s to not match %v", matcher, notArg)
				}
			}
		})
	}
}

func TestSingleArgMatcher_FailsFatally(t *testing.T) {
	type test struct {
		name        string
		matcher     SingleArgMatcher
		failType    reflect.Type
		expectedMsg string
	}

	tests := []test{
		{"NonNilable", Nil(), reflect.TypeOf(0), "int.*nil"},
		{"NonSlice", Slice(Eql(10)), reflect.TypeOf(0), "slice.*int"},
		{"Any(Args)", Any(Args()), reflect.TypeOf(0), "SingleArgMatcher"},
		{"MultiArgFunc", Func(func(i int, s string) bool { return false }), reflect.TypeOf(0), "1 arg.*bool"},
		{"NonBoolFunc", Func(func(i int) {}), reflect.TypeOf(0), "1 arg.*bool"},
		{"BadArgType", Func(func(s string) bool { return false }), reflect.TypeOf(0), "string.*int"},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			tDouble := NewTDouble(t)
			spy := tDouble.Fake("Fatalf", tDouble.FakeFatalf)
			defer func(spy FakeMethodCall) {
				recover()
				spy.Matching(printfMatcher(test.expectedMsg)).Expect(Once())
			}(spy)

			test.matcher.ForType(tDouble, test.failType)
		})
	}
}
