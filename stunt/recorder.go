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
	"sort"
	"strings"
	"sync/atomic"
)

var tick uint64 //global atomic counter to assist with verifying order of execution

// SpyMethodCall is a MethodCall that records method invocations for later verification
type SpyMethodCall interface {
	/*
		Returning is used to setup return values for this call

		The returnValues are converted to a ReturnValues via Values()
	*/
	Returning(values ...interface{}) SpyMethodCall

	// The full set of all recorded calls to this method available to be verified
	RecordedCalls

	MethodCall
}

// RecordedCalls represents a set of recorded call invocations to be verified
type RecordedCalls interface {
	/*
		Matching returns the subset of calls that match

		Empty matcher list will fatally fail the test

		If the first matcher is a Matcher then it is used (test will fatally fail if more matchers are sent)
		If the first matcher is a func then it is equivalent to Matching(Func(matchers[0],matchers[1:]))
		Otherwise each matcher is converted to a Matcher via either Func() or Eql()
		and the list is sent to Args()
	*/
	Matching(matchers ...interface{}) RecordedCalls

	/*
		Slice returns a subset of these calls, including call at index from, excluding call at index to (like go slice)

		If necessary use NumCalls() to reference calls from the end of the set.
		eg to get the last 3 calls - r.Slice(r.NumCalls()-3, r.NumCalls())
	*/
	Slice(from int, to int) RecordedCalls

	// After returns the subset of these calls that were invoked after all of otherCalls
	After(otherCalls RecordedCalls) RecordedCalls

	// Expect asserts the number of calls in this set
	Expect(expect Expectation)

	// NumCalls returns the number of calls in this set.
	// Prefer to use Expect() rather than asserting the result of NumCalls()
	NumCalls() int

	// Called reports whether the set contains at least one call
	Called() bool

	// CalledOnce reports whether the set contains exactly one call
	CalledOnce() bool

	// CalledWith reports whether at least one call in the set matches
	CalledWith(matchers ...interface{}) bool

	// NthArgs returns the argument list of call i (0-indexed, in invocation order).
	// Fails the test fatally when i is out of range.
	NthArgs(i int) []interface{}

	calls() []*recordedCall
	nested() []string
}

type recordedCall struct {
	tick uint64 //Record the order of all calls relative to each other.
	args []interface{}
}

func newRecordedCall(args []interface{}) *recordedCall {
	return &recordedCall{args: args, tick: atomic.AddUint64(&tick, 1)}
}

// recordedSet is the concrete RecordedCalls implementation shared by spies,
// fakes, per-method journals and the subset algebra.
type recordedSet struct {
	method  *method
	history []*recordedCall
	labels  []string
}

func (s *recordedSet) calls() []*recordedCall {
	return s.history
}

func (s *recordedSet) nested() []string {
	return s.labels
}

func (s *recordedSet) String() string {
	//slice[x:y] of
	//	calls after
	//      ">>"
	//		slice[x:y] of
	//  		calls matching(matcher) within
	// 				all calls to <<Other method>>
	//  	"<<"
	//      within
	//     		all calls to <<this method>>
	var rewinds = make([]int, 0)
	depth := 0
	sb := strings.Builder{}
	for i := 0; i < len(s.labels); i++ {
		if s.labels[i] == ">>" {
			rewinds = append([]int{depth}, rewinds...)
		} else if s.labels[i] == "<<" {
			depth = rewinds[0]
			rewinds = rewinds[1:]
		} else {
			if i > 0 {
				sb.WriteRune('\n')
			}
			for d := 0; d < depth; d++ {
				sb.WriteString("  ")
			}
			sb.WriteString(s.labels[i])
			depth++
		}
	}
	return sb.String()
}

func (s *recordedSet) subset(calls []*recordedCall, desc ...string) *recordedSet {
	return &recordedSet{method: s.method, history: calls, labels: append(desc, s.labels...)}
}

func (s *recordedSet) Matching(matchers ...interface{}) RecordedCalls {
	matcher := s.method.receiver.matcher(s.method.t(), s.method.m, nil, matchers...)

	var subsetCalls []*recordedCall
	for _, call := range s.history {
		if matcher.Matches(call.args...) {
			subsetCalls = append(subsetCalls, call)
		}
	}
	return s.subset(subsetCalls, fmt.Sprintf("calls matching %s within", matcher))
}

func (s *recordedSet) Slice(from int, to int) RecordedCalls {
	l := len(s.history)
	var subsetCalls []*recordedCall
	var sliceDesc string
	if from < 0 || to < 0 || from > to {
		s.method.t().Fatalf("Invalid Slice of RecordedCalls %v[%d:%d]", s, from, to)
	}
	if from > l {
		sliceDesc = fmt.Sprintf("[%d>=len():]", from)
	} else if to > l {
		sliceDesc = fmt.Sprintf("[%d:]", from)
		subsetCalls = s.history[from:]
	} else {
		sliceDesc = fmt.Sprintf("[%d:%d]", from, to)
		subsetCalls = s.history[from:to]
	}

	return s.subset(subsetCalls, fmt.Sprintf("slice%s of", sliceDesc))
}

//After returns the calls in s that occurred after those in recordedCalls
func (s *recordedSet) After(recordedCalls RecordedCalls) RecordedCalls {
	recorded := recordedCalls.calls()

	var subsetCalls []*recordedCall

	if len(recorded) > 0 {
		lastTick := recorded[len(recorded)-1].tick
		if partitionIndex := sort.Search(len(s.history), func(i int) bool { return s.history[i].tick > lastTick }); partitionIndex < len(s.history) {
			subsetCalls = s.history[partitionIndex:]
		} // otherwise no matches, default empty set
	} else {
		// all our calls are considered to be after an empty set
		subsetCalls = s.history
	}

	nested := append([]string{"calls after", ">>"}, append(recordedCalls.nested(), "<<", "within")...)
	return s.subset(subsetCalls, nested...)
}

//Verify phase: expectations on call count
func (s *recordedSet) Expect(expect Expectation) {
	t := s.method.t()
	t.Helper()
	count := len(s.history)
	if !expect.Met(count) {
		t.Errorf("%v", &ExpectationNotSatisfiedError{Subject: s.String(), Expected: fmt.Sprint(expect), Count: count})
	}
}

func (s *recordedSet) NumCalls() int {
	return len(s.history)
}

func (s *recordedSet) Called() bool {
	return len(s.history) > 0
}

func (s *recordedSet) CalledOnce() bool {
	return len(s.history) == 1
}

func (s *recordedSet) CalledWith(matchers ...interface{}) bool {
	return s.Matching(matchers...).NumCalls() > 0
}

func (s *recordedSet) NthArgs(i int) []interface{} {
	if i < 0 || i >= len(s.history) {
		s.method.t().Fatalf("%v has no call %d, have %d calls", s, i, len(s.history))
		return nil
	}
	return s.history[i].args
}

type spyMethodCall struct {
	*stubbedMethodCall
	*recordedSet
}

func newSpyMethodCall(m *method, labels ...string) *spyMethodCall {

	if len(labels) == 0 {
		labels = []string{fmt.Sprintf("all calls to %v", m)}
	}

	return &spyMethodCall{
		stubbedMethodCall: newStubbedMethodCall(m),
		recordedSet:       &recordedSet{method: m, history: []*recordedCall{}, labels: labels},
	}
}

func (c *spyMethodCall) recordsAllCalls() {}

func (c *spyMethodCall) String() string {
	return c.recordedSet.String()
}

//Setup phase: stub return values
func (c *spyMethodCall) Returning(values ...interface{}) SpyMethodCall {
	c.stubbedMethodCall.Returning(values...)
	return c
}

//Verify phase: Matching selects the recorded subset, not a registration matcher
func (c *spyMethodCall) Matching(matchers ...interface{}) RecordedCalls {
	return c.recordedSet.Matching(matchers...)
}

func (c *spyMethodCall) matches(_ []interface{}) bool {
	return true
}

func (c *spyMethodCall) spy(args []interface{}) ([]interface{}, error) {
	//Spy happens within a method mutex so this is safe..
	c.recordedSet.history = append(c.recordedSet.history, newRecordedCall(args))
	return c.stubbedMethodCall.spy(args)
}
