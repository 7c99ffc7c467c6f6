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
	"strings"

	"github.com/google/go-cmp/cmp"
)

// Matcher decides whether an invocation, or one argument of it, is a match.
// Rules hold matchers; the first registered rule whose matcher accepts the
// arguments services the call.
type Matcher interface {

	//Matches reports whether the argument list (or single argument) is accepted
	Matches(args ...interface{}) bool
}

// MethodArgsMatcher additionally validates itself against a whole method
// signature at registration time, failing t fatally on a mismatch.
type MethodArgsMatcher interface {
	Matcher
	ForMethod(t T, m reflect.Method)
}

// SingleArgMatcher additionally validates itself against one parameter type
// at registration time, failing t fatally on a mismatch.
type SingleArgMatcher interface {
	Matcher
	ForType(t T, ft reflect.Type)
}

// CombinationMatcher can stand in either position
type CombinationMatcher interface {
	Matcher
	ForMethod(t T, m reflect.Method)
	ForType(t T, ft reflect.Type)
}

func forMethod(t T, method reflect.Method, matcher Matcher) {
	if mam, isMAM := matcher.(MethodArgsMatcher); isMAM {
		mam.ForMethod(t, method)
	} else {
		t.Fatalf("Cannot use %v as MethodArgsMatcher", matcher)
	}
}

func forType(t T, ft reflect.Type, matcher Matcher) {
	if sam, isSAM := matcher.(SingleArgMatcher); isSAM {
		sam.ForType(t, ft)
	} else {
		t.Fatalf("Cannot use %v as SingleArgMatcher", matcher)
	}
}

// genericSingleArgumentMatcher promotes a bare value to a matcher. Types match
// by IsA, funcs by Func, anything else by Eql.
func genericSingleArgumentMatcher(matcher interface{}) SingleArgMatcher {
	switch typedMatcher := matcher.(type) {
	case SingleArgMatcher:
		return typedMatcher
	case reflect.Type:
		return IsA(typedMatcher)
	default:
		if reflect.TypeOf(matcher).Kind() == reflect.Func {
			return Func(matcher)
		}
		return Eql(matcher)
	}
}

// NewMatcherForMethod builds the MethodArgsMatcher for a rule from whatever the
// caller passed to Matching. No matchers means match everything. A single func
// is treated as a Func over the whole argument list, a single MethodArgsMatcher
// is used as is, and anything else is promoted per argument and wrapped in Args.
// The result is validated against the method signature before use.
func NewMatcherForMethod(t T, forMethod reflect.Method, matchers ...interface{}) (result MethodArgsMatcher) {
	forType := forMethod.Type
	if forType.NumIn() == 0 {
		t.Fatalf("Cannot build matcher for %v which takes no arguments", forMethod)
	}

	if len(matchers) == 0 {
		return All()
	}

	if reflect.TypeOf(matchers[0]).Kind() == reflect.Func {
		if len(matchers) > 1 {
			result = Func(matchers[0], matchers[1:]...)
		} else {
			result = Func(matchers[0])
		}

	} else if len(matchers) > 1 {
		matcherSlice := make([]Matcher, len(matchers))
		for i, m := range matchers {
			matcherSlice[i] = genericSingleArgumentMatcher(m)
		}
		return Args(matcherSlice...)

	} else if m, isMatcher := matchers[0].(MethodArgsMatcher); isMatcher {
		result = m
	} else {
		result = Args(genericSingleArgumentMatcher(matchers[0]))
	}

	result.ForMethod(t, forMethod)

	return
}

type funcMatcher struct {
	reflect.Value
	explanation string
}

func (f funcMatcher) String() string {
	return f.explanation
}

func (f funcMatcher) ForMethod(t T, m reflect.Method) {
	t.Helper()
	ft := f.Value.Type()
	if ft.Kind() != reflect.Func || ft.NumOut() != 1 || ft.Out(0).Kind() != reflect.Bool {
		t.Fatalf("expected Func(...) bool, have %v", ft)
	}

	AssertMethodInputs(t, m, ft)
}

func (f funcMatcher) ForType(t T, in reflect.Type) {
	t.Helper()
	vt := f.Type()
	if f.Kind() != reflect.Func || vt.NumIn() != 1 || vt.NumOut() != 1 || vt.Out(0).Kind() != reflect.Bool {
		t.Fatalf("%v expected to be a function that accepts 1 argument and returns bool, got %v", f, vt)
	}
	if !in.AssignableTo(vt.In(0)) {
		t.Fatalf("Argument to %v expected to be assignable from %v, got %v", f, in, vt.In(0))
	}
}

func (f funcMatcher) Matches(args ...interface{}) bool {
	inArgs := make([]reflect.Value, len(args))
	for i, arg := range args {
		inArgs[i] = reflect.ValueOf(arg)
	}

	if f.Type().IsVariadic() {
		return f.CallSlice(inArgs)[0].Interface().(bool)
	}
	return f.Call(inArgs)[0].Interface().(bool)
}

// Func wraps a predicate function f as a matcher. Custom matchers are
// typically thin wrappers around Func.
//
// Against a whole method, f must return bool and take arguments compatible
// with that method's parameters. Against a single argument, f must be a
// one-parameter func returning bool whose parameter is assignable from the
// argument's type. An optional explanation is formatted into the matcher's
// String, which otherwise shows f's type.
func Func(f interface{}, explanation ...interface{}) CombinationMatcher {
	fv := reflect.ValueOf(f)

	var explainString string
	if len(explanation) == 0 {
		explainString = fmt.Sprintf("%T", f)
	} else {
		explainString = fmt.Sprint(explanation...)
	}

	return funcMatcher{fv, explainString}
}

type matcherList []Matcher

func (l matcherList) toString(prefix string, lRune rune, rRune rune) string {
	s := strings.Builder{}
	s.WriteString(prefix)
	if len(l) > 0 {
		s.WriteRune(lRune)
		for i, arg := range l {
			if i > 0 {
				s.WriteRune(',')
			}
			s.WriteString(fmt.Sprint(arg))
		}
		s.WriteRune(rRune)
	}
	return s.String()
}

func (l matcherList) ForMethod(t T, m reflect.Method) {
	t.Helper()
	for _, matcher := range l {
		forMethod(t, m, matcher)
	}
}

func (l matcherList) ForType(t T, ft reflect.Type) {
	t.Helper()
	for _, matcher := range l {
		forType(t, ft, matcher)
	}
}

type argumentsMatcher struct {
	matcherList matcherList
}

func (l *argumentsMatcher) Matches(args ...interface{}) bool {
	for i := 0; i < len(l.matcherList) && i < len(args); i++ {
		matcher, arg := l.matcherList[i], args[i]
		if !matcher.Matches(arg) {
			return false
		}
	}
	return true
}

func (l *argumentsMatcher) ForMethod(t T, m reflect.Method) {
	t.Helper()
	methodType := m.Type

	if methodType.IsVariadic() {
		if len(l.matcherList) > methodType.NumIn()-1 {
			//matchers spilling into the variadic tail collapse into one Slice()
			newMatchers := make([]Matcher, methodType.NumIn())
			copy(newMatchers, l.matcherList[:methodType.NumIn()-1])
			sliceMatchers := make([]Matcher, len(l.matcherList)-methodType.NumIn()+1)
			copy(sliceMatchers, l.matcherList[methodType.NumIn()-1:])
			newMatchers[methodType.NumIn()-1] = Slice(sliceMatchers...)
			l.matcherList = newMatchers
		}
	} else if len(l.matcherList) > methodType.NumIn() {
		t.Fatalf("%v requires not more than %d argument matchers, have %d", m, methodType.NumIn(), len(l.matcherList))
	}

	for i, matcher := range l.matcherList {
		if sam, ok := matcher.(SingleArgMatcher); ok {
			sam.ForType(t, methodType.In(i))
		} else {
			t.Fatalf("Cannot validate %v as SingleArgMatcher for %v", matcher, methodType.In(i))
		}
	}
}

func (l *argumentsMatcher) String() string {
	return l.matcherList.toString("Args", '(', ')')
}

// Args builds a whole-method matcher from per-argument matchers, applied
// positionally. Fewer matchers than parameters is a prefix match, the
// uncovered trailing arguments always accept.
func Args(matchers ...Matcher) MethodArgsMatcher {
	return &argumentsMatcher{matchers}
}

type sliceMatcher struct {
	matcherList
}

// Slice matches a slice or array argument element-wise, each matcher against
// the element at its position. Elements beyond the matcher list always accept.
// It is also what variadic tail matchers collapse into.
func Slice(matchers ...Matcher) SingleArgMatcher {
	return &sliceMatcher{matchers}
}

func (sm *sliceMatcher) String() string {
	return sm.toString("Slice", '[', ']')
}

func (sm *sliceMatcher) Matches(args ...interface{}) bool {
	slice := args[0]
	v := reflect.ValueOf(slice)
	switch v.Kind() {
	case reflect.Array, reflect.Slice:
		if v.Len() < len(sm.matcherList) {
			return false
		}
		for i := 0; i < len(sm.matcherList); i++ {
			if !sm.matcherList[i].Matches(v.Index(i).Interface()) {
				return false
			}
		}
		return true

	default:
		return false
	}
}

func (sm *sliceMatcher) ForType(t T, in reflect.Type) {
	t.Helper()
	if in.Kind() != reflect.Slice && in.Kind() != reflect.Array {
		t.Fatalf("Slice() used to match non slice or array type %v", in)
	} else {
		sm.matcherList.ForType(t, in.Elem())
	}
}

// Eql matches a single argument deeply equal to v, per reflect.DeepEqual
func Eql(v interface{}) SingleArgMatcher {
	return Func(func(arg interface{}) bool {
		return reflect.DeepEqual(arg, v)
	}, "Eql", "(", v, ")")
}

// Like matches a single argument equal to expected under go-cmp semantics,
// honouring Equal methods and any supplied options (cmpopts.EquateApprox,
// cmpopts.IgnoreFields, ...).
//
// Values with unexported fields need an appropriate option, as for cmp.Equal.
func Like(expected interface{}, opts ...cmp.Option) SingleArgMatcher {
	return Func(func(arg interface{}) bool {
		return cmp.Equal(arg, expected, opts...)
	}, "Like", "(", expected, ")")
}

type nilMatcher struct{}

func (n nilMatcher) String() string {
	return "Nil"
}

func (n nilMatcher) Matches(args ...interface{}) bool {
	arg := args[0]
	if arg == nil {
		return true
	}

	v := reflect.ValueOf(arg)
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice:
		return v.IsNil()
	}

	return false
}

func (n nilMatcher) ForType(t T, ft reflect.Type) {
	t.Helper()
	switch ft.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice:
		//ok
	default:
		t.Fatalf("type %v cannot be nil", ft)
	}
}

var singletonNilMatcher = nilMatcher{}

// Nil matches a nil argument. Registration fails for parameter types that
// have no nil value.
func Nil() SingleArgMatcher {
	return singletonNilMatcher
}

type lenMatcher struct {
	SingleArgMatcher
}

func (l lenMatcher) String() string {
	return fmt.Sprintf("Len(%v)", l.SingleArgMatcher)
}

func (l lenMatcher) Matches(args ...interface{}) bool {
	arg := args[0]
	v := reflect.ValueOf(arg)
	switch v.Kind() {
	case reflect.Array, reflect.Chan, reflect.Map, reflect.Slice, reflect.String:
		return l.SingleArgMatcher.Matches(v.Len())
	default:
		return false
	}
}

func (l lenMatcher) ForType(t T, ft reflect.Type) {
	t.Helper()
	switch ft.Kind() {
	case reflect.Array, reflect.Chan, reflect.Map, reflect.Slice, reflect.String:
		l.SingleArgMatcher.ForType(t, reflect.TypeOf(0))
	default:
		t.Fatalf("cannot check length of type %v", ft)
	}
}

// Len matches the length of an array, chan, map, slice or string argument.
// v is anything that can match an int, so Len(3) and
// Len(func(l int) bool { return l <= 10 }) both work.
func Len(v interface{}) SingleArgMatcher {
	return lenMatcher{genericSingleArgumentMatcher(v)}
}

// IsA matches a single argument whose type is assignable to, or implements, t.
// A non reflect.Type t is first converted with reflect.TypeOf.
func IsA(t interface{}) SingleArgMatcher {
	rt, isType := t.(reflect.Type)
	if !isType {
		rt = reflect.TypeOf(t)
	}
	return Func(func(x interface{}) bool {
		argT := reflect.TypeOf(x)
		switch argT.Kind() {
		case reflect.Interface:
			return argT.AssignableTo(rt) || argT.Implements(rt)
		default:
			return argT.AssignableTo(rt)
		}
	}, "IsA", "(", rt, ")")
}

type combinationMatcher struct {
	matcherList
	explain string
}

func (a combinationMatcher) String() string {
	return a.matcherList.toString(a.explain, '{', '}')
}

func newCombinationMatcher(matchers []Matcher, explain string) combinationMatcher {
	return combinationMatcher{matchers, explain}
}

type andMatcher struct {
	combinationMatcher
}

func (a andMatcher) Matches(args ...interface{}) bool {
	for _, m := range a.matcherList {
		if !m.Matches(args...) {
			return false
		}
	}
	return true
}

// All matches when every matcher matches. With no matchers it matches
// everything, which makes it the catch-all.
func All(matchers ...Matcher) CombinationMatcher {
	return andMatcher{newCombinationMatcher(matchers, "All")}
}

// And is All under a conjunction-flavoured name
func And(matchers ...Matcher) CombinationMatcher {
	return All(matchers...)
}

type orMatcher struct {
	combinationMatcher
}

func (a orMatcher) Matches(arg ...interface{}) bool {
	for _, m := range a.matcherList {
		if m.Matches(arg...) {
			return true
		}
	}
	return false
}

// Any matches when at least one matcher matches. With no matchers it
// matches nothing.
func Any(matchers ...Matcher) CombinationMatcher {
	return orMatcher{newCombinationMatcher(matchers, "Any")}
}

// Or is Any under a disjunction-flavoured name
func Or(matchers ...Matcher) CombinationMatcher {
	return Any(matchers...)
}

type notMatcher struct {
	Matcher
}

func (nm notMatcher) String() string {
	return fmt.Sprintf("Not(%v)", nm.Matcher)
}

func (nm notMatcher) Matches(arg ...interface{}) bool {
	return !nm.Matcher.Matches(arg...)
}

func (nm notMatcher) ForType(t T, ft reflect.Type) {
	t.Helper()
	forType(t, ft, nm.Matcher)
}

func (nm notMatcher) ForMethod(t T, m reflect.Method) {
	t.Helper()
	forMethod(t, m, nm.Matcher)
}

// Not inverts matcher, keeping its registration-time validation
func Not(matcher Matcher) CombinationMatcher {
	return notMatcher{matcher}
}
