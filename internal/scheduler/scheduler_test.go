// Copyright 2024 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package scheduler_test

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"chromiumos/isorunner/internal/clock"
	"chromiumos/isorunner/internal/inventory"
	"chromiumos/isorunner/internal/scheduler"
)

// TestMain lets this test binary double as the fake wrapped binary the
// scheduler forks in the tests below.
func TestMain(m *testing.M) {
	if os.Getenv("SCHED_FAKE_BINARY") == "1" {
		os.Exit(runFakeBinary())
	}
	os.Exit(m.Run())
}

func runFakeBinary() int {
	var filter string
	for _, a := range os.Args[1:] {
		if strings.HasPrefix(a, "--gtest_filter=") {
			filter = strings.TrimPrefix(a, "--gtest_filter=")
		}
	}
	switch filter {
	case "FooTest.Pass":
		return 0
	case "FooTest.Fail":
		if f := os.NewFile(3, "diag"); f != nil {
			fmt.Fprintln(f, "expected true, got false")
			f.Close()
		}
		return 1
	case "FooTest.Hang":
		time.Sleep(10 * time.Second)
		return 0
	case "FooTest.Crash":
		unix.Kill(os.Getpid(), unix.SIGKILL)
		return 0
	default:
		return 0
	}
}

func newInventory(names ...string) *inventory.Inventory {
	suite := &inventory.Suite{Name: "FooTest"}
	for _, n := range names {
		suite.Tests = append(suite.Tests, &inventory.Test{Name: n})
	}
	return &inventory.Inventory{Suites: []*inventory.Suite{suite}}
}

func newScheduler(t *testing.T, deadlineMS, jobCount int) *scheduler.Scheduler {
	self, err := os.Executable()
	if err != nil {
		t.Fatalf("os.Executable() = %v", err)
	}
	os.Setenv("SCHED_FAKE_BINARY", "1")
	t.Cleanup(func() { os.Unsetenv("SCHED_FAKE_BINARY") })

	return scheduler.New(self, []string{"prog", "--no-isolate"},
		scheduler.Config{JobCount: jobCount, DeadlineMS: deadlineMS}, clock.New())
}

func TestRunIterationPassAndFail(t *testing.T) {
	inv := newInventory("Pass", "Fail")
	sched := newScheduler(t, 5000, 2)

	var done []string
	err := sched.RunIteration(inv, func(si, ti int) {
		done = append(done, inv.Suites[si].Tests[ti].Name)
	})
	if err != nil {
		t.Fatalf("RunIteration() = %v", err)
	}
	if len(done) != 2 {
		t.Fatalf("onDone called %d times; want 2", len(done))
	}

	byName := map[string]*inventory.Test{}
	for _, test := range inv.Suites[0].Tests {
		byName[test.Name] = test
	}

	if byName["Pass"].Outcome != inventory.Pass {
		t.Errorf("Pass outcome = %v; want Pass", byName["Pass"].Outcome)
	}
	if byName["Fail"].Outcome != inventory.Fail {
		t.Errorf("Fail outcome = %v; want Fail", byName["Fail"].Outcome)
	}
	if !strings.Contains(byName["Fail"].Diagnostic, "expected true, got false") {
		t.Errorf("Fail diagnostic = %q; want it to contain the fake failure text", byName["Fail"].Diagnostic)
	}
}

func TestRunIterationTimeout(t *testing.T) {
	inv := newInventory("Hang")
	sched := newScheduler(t, 100, 1)

	err := sched.RunIteration(inv, func(si, ti int) {})
	if err != nil {
		t.Fatalf("RunIteration() = %v", err)
	}

	test := inv.Suites[0].Tests[0]
	if test.Outcome != inventory.Timeout {
		t.Errorf("Outcome = %v; want Timeout", test.Outcome)
	}
	if !strings.Contains(test.Diagnostic, "killed because of timeout") {
		t.Errorf("Diagnostic = %q; want it to mention the timeout", test.Diagnostic)
	}
}

func TestRunIterationSignal(t *testing.T) {
	inv := newInventory("Crash")
	sched := newScheduler(t, 5000, 1)

	err := sched.RunIteration(inv, func(si, ti int) {})
	if err != nil {
		t.Fatalf("RunIteration() = %v", err)
	}

	test := inv.Suites[0].Tests[0]
	if test.Outcome != inventory.Fail {
		t.Errorf("Outcome = %v; want Fail", test.Outcome)
	}
	if !strings.Contains(test.Diagnostic, "terminated by signal") {
		t.Errorf("Diagnostic = %q; want it to mention the signal", test.Diagnostic)
	}
}

func TestRunIterationTimeoutReportsObservedElapsed(t *testing.T) {
	inv := newInventory("Hang")
	sched := newScheduler(t, 100, 1)

	if err := sched.RunIteration(inv, func(si, ti int) {}); err != nil {
		t.Fatalf("RunIteration() = %v", err)
	}

	test := inv.Suites[0].Tests[0]
	wantMS := test.ElapsedNS / int64(time.Millisecond)
	want := fmt.Sprintf("killed because of timeout at %d ms.", wantMS)
	if !strings.Contains(test.Diagnostic, want) {
		t.Errorf("Diagnostic = %q; want it to contain %q (the observed stop time, not the configured deadline of 100 ms)", test.Diagnostic, want)
	}
}

func TestRunIterationResetsBetweenCalls(t *testing.T) {
	inv := newInventory("Fail")
	sched := newScheduler(t, 5000, 1)

	if err := sched.RunIteration(inv, func(si, ti int) {}); err != nil {
		t.Fatalf("first RunIteration() = %v", err)
	}
	firstDiag := inv.Suites[0].Tests[0].Diagnostic
	if firstDiag == "" {
		t.Fatal("expected a non-empty diagnostic after the first iteration")
	}

	inv.Suites[0].Tests[0].Name = "Pass"
	if err := sched.RunIteration(inv, func(si, ti int) {}); err != nil {
		t.Fatalf("second RunIteration() = %v", err)
	}
	if d := inv.Suites[0].Tests[0].Diagnostic; d != "" {
		t.Errorf("second iteration diagnostic = %q; want reset to empty", d)
	}
}
