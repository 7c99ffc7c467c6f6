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

/*
Package stunt is a test-double engine for Go.

A stunt double stands in for a real collaborator while a test exercises the
system under test. Doubles come in two flavours:

1) Interface doubles, built over a nil interface pointer with NewDouble.
Each interface method can individually be Stubbed, Mocked, Spied upon or
Faked.

2) Patched doubles, built over func-typed struct fields with SpyOn and
StubOn. The field is replaced in place and put back by Restore.

Stubs, Mocks, Spies, Fakes

See the canonical sources...

* http://xunitpatterns.com/Test%20Double.html

* https://martinfowler.com/articles/mocksArentStubs.html

A Stub provides programmed return values for calls matching a set of
argument matchers. Rules are consulted in registration order and the first
matching rule wins; re-registering a rule with an identical matcher
replaces the earlier rule.

 package examples

 import (
	. "github.com/threadoak/stunt/stunt" //Note the dot import which assists with readability
	"testing"
 )

 func Test_Stub(t *testing.T) {
	d := NewKeyStoreDouble(t) // A specific implementation of a TestDouble

	//Stub a method that receives specific arguments, to return specific values
	d.Stub("Fetch").Matching(Args(Eql("test"))).Returning(Values(Entry{Key: "test"}, nil))

	// Exercise the system under test substituting d for the real client
	// ...
 }

A Mock is a Stub with an up-front expectation for how many times it will be
called. Falling short of a lower bound is reported when Verify runs.
Overrunning an upper bound fails the test at the offending call, unless a
later rule can service it.

 func Test_Mock(t *testing.T) {
	d := NewKeyStoreDouble(t)
	defer d.Verify()

	d.Mock("Fetch").Matching(Args(Eql("test"))).Returning(Values(Entry{Key: "test"}, nil)).Expect(Exactly(3))
	d.Mock("Delete").Expect(Never())

	//Exercise...
 }

A Spy records calls as they execute, to be asserted after the exercise
phase. Every double additionally keeps a journal of all invocations of each
method, whatever rule serviced them, available via Recorded.

 func Test_Spy(t *testing.T) {
	d := NewKeyStoreDouble(t)

	spy := d.Spy("Fetch").Returning(Values(Entry{}, nil))

	//Exercise...

	spy.Expect(Twice())
	spy.Matching(Args(Eql("test"))).Expect(Once())
 }

A Fake is a Spy that provides an actual implementation of the method
instead of return values. Use with caution.

Programmed outcomes beyond plain values: Panicking makes a matching call
panic (the call is still recorded first), Failing fills the method's
trailing error result, Yielding synchronously invokes the last
callback-shaped argument, Sequence steps through a list of outcomes and
holds the last one, Delayed and ReturnChannel defer completion.
*/
package stunt
