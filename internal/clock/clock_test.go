// Copyright 2024 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package clock_test

import (
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"

	"chromiumos/isorunner/internal/clock"
)

func TestNowNanoAdvancesWithFake(t *testing.T) {
	fake := fakeclock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	c := clock.Wrap(fake)

	start := c.NowNano()
	fake.Increment(1500 * time.Millisecond)
	elapsed := c.NowNano() - start

	if want := int64(1500 * time.Millisecond); elapsed != want {
		t.Errorf("elapsed = %d; want %d", elapsed, want)
	}
}

func TestFormatTimestamp(t *testing.T) {
	fake := fakeclock.NewFakeClock(time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC))
	c := clock.Wrap(fake)

	got := c.FormatTimestamp(fake.Now())
	want := fake.Now().Local().Format("2006-01-02T15:04:05")
	if got != want {
		t.Errorf("FormatTimestamp() = %q; want %q", got, want)
	}
}
