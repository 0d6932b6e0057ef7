// Copyright 2024 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package inventory holds the Test/Suite/Inventory data model and the
// Enumerator that builds an Inventory by listing the wrapped binary's
// tests.
package inventory

// Outcome is the result of running a single Test, once the scheduler has
// harvested it.
type Outcome int

const (
	// Pending means the test has not yet been dispatched or harvested in
	// the current iteration.
	Pending Outcome = iota
	Pass
	Fail
	Timeout
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case Pass:
		return "pass"
	case Fail:
		return "fail"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Test is one gtest-style test case, identified within its Suite by Name.
// It is created once during enumeration and mutated exactly once per
// iteration, by the scheduler, when it is harvested.
type Test struct {
	Name       string
	Outcome    Outcome
	ElapsedNS  int64
	Diagnostic string
}

// Suite is a named group of Tests, corresponding to one gtest test case
// (fixture) name.
type Suite struct {
	Name  string
	Tests []*Test
}

// FullName returns the "Suite.Test" form used by --gtest_filter, the
// console reporter, and the scheduler's diagnostic lines. The XML
// reporter's classname attribute is the bare suite Name instead.
func (s *Suite) FullName(t *Test) string {
	return s.Name + "." + t.Name
}

// Inventory is the full, ordered set of Suites discovered by the
// Enumerator. It is built once per process and iterated (possibly several
// times, per --gtest_repeat) by the scheduler.
type Inventory struct {
	Suites []*Suite
}

// TestCount returns the total number of Tests across all Suites.
func (inv *Inventory) TestCount() int {
	n := 0
	for _, s := range inv.Suites {
		n += len(s.Tests)
	}
	return n
}

// ResetForIteration returns every Test to its Pending state ahead of a new
// iteration, so that a test's Outcome/ElapsedNS/Diagnostic from a previous
// --gtest_repeat pass is never read as this iteration's result.
func (inv *Inventory) ResetForIteration() {
	for _, s := range inv.Suites {
		for _, t := range s.Tests {
			t.Outcome = Pending
			t.ElapsedNS = 0
			t.Diagnostic = ""
		}
	}
}
