// Copyright 2024 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package report_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"chromiumos/isorunner/internal/inventory"
	"chromiumos/isorunner/internal/report"
)

func TestIterationStartBanner(t *testing.T) {
	inv := &inventory.Inventory{Suites: []*inventory.Suite{
		{Name: "FooTest", Tests: []*inventory.Test{{Name: "Bar"}, {Name: "Baz"}}},
	}}

	var buf bytes.Buffer
	c := report.NewConsole(&buf, "no", false, 2000)
	c.IterationStart(inv, 1, 1)

	got := buf.String()
	if !strings.Contains(got, "Running 2 tests from 1 test case.") {
		t.Errorf("banner = %q; want the running-tests line", got)
	}
}

func TestTestEndShowsFailureDiagnostic(t *testing.T) {
	suite := &inventory.Suite{Name: "FooTest"}
	test := &inventory.Test{Name: "Bar", Outcome: inventory.Fail, Diagnostic: "expected 1, got 2\n"}

	var buf bytes.Buffer
	c := report.NewConsole(&buf, "no", false, 2000)
	c.TestEnd(suite, test)

	got := buf.String()
	if !strings.Contains(got, "[  FAILED  ] FooTest.Bar") {
		t.Errorf("output = %q; want a FAILED tag with the full test name", got)
	}
	if !strings.Contains(got, "expected 1, got 2") {
		t.Errorf("output = %q; want the diagnostic text", got)
	}
}

func TestIterationEndListsTimeoutsAndSlow(t *testing.T) {
	inv := &inventory.Inventory{Suites: []*inventory.Suite{
		{Name: "FooTest", Tests: []*inventory.Test{
			{Name: "Ok", Outcome: inventory.Pass, ElapsedNS: int64(10 * time.Millisecond)},
			{Name: "TooSlow", Outcome: inventory.Pass, ElapsedNS: int64(3000 * time.Millisecond)},
			{Name: "Stuck", Outcome: inventory.Timeout, ElapsedNS: int64(60000 * time.Millisecond)},
		}},
	}}

	var buf bytes.Buffer
	c := report.NewConsole(&buf, "no", false, 2000)
	c.IterationEnd(inv, int64(60000*time.Millisecond))

	got := buf.String()
	if !strings.Contains(got, "[   PASS   ] 2 tests.") {
		t.Errorf("output = %q; want 2 passing tests", got)
	}
	if !strings.Contains(got, "FooTest.Stuck (stopped at 60000 ms)") {
		t.Errorf("output = %q; want the timeout listing", got)
	}
	if !strings.Contains(got, "FooTest.TooSlow (3000 ms, exceeds 2000 ms)") {
		t.Errorf("output = %q; want the slow-test listing", got)
	}
}
