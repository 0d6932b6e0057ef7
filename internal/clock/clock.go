// Copyright 2024 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package clock provides a fakeable source of time for the scheduler's
// deadline/warnline accounting and the XML reporter's timestamps.
package clock

import (
	"time"

	"code.cloudfoundry.org/clock"
)

// Clock is the time source used throughout the runner. Production code
// constructs one with New; tests substitute a fake backed by
// code.cloudfoundry.org/clock/fakeclock.
type Clock struct {
	c clock.Clock
}

// New returns a Clock backed by the real wall/monotonic clock.
func New() *Clock {
	return &Clock{c: clock.NewClock()}
}

// Wrap adapts an existing code.cloudfoundry.org/clock.Clock, letting tests
// inject a fakeclock.FakeClock.
func Wrap(c clock.Clock) *Clock {
	return &Clock{c: c}
}

// monoBase is the reference point NowNano measures from. Subtracting it from
// a reading of the real clock uses Go's monotonic clock reading.
var monoBase = time.Now()

// NowNano returns a monotonically increasing nanosecond timestamp suitable
// for elapsed-time subtraction. It is not a wall-clock time.
func (c *Clock) NowNano() int64 {
	return int64(c.c.Now().Sub(monoBase))
}

// Now returns the current wall-clock time.
func (c *Clock) Now() time.Time {
	return c.c.Now()
}

// Sleep blocks for d, honoring the underlying (possibly fake) clock.
func (c *Clock) Sleep(d time.Duration) {
	c.c.Sleep(d)
}

// FormatTimestamp renders t the way the JUnit XML reporter's testsuites
// timestamp attribute expects: local time, second precision, no zone
// suffix.
func (c *Clock) FormatTimestamp(t time.Time) string {
	return t.Local().Format("2006-01-02T15:04:05")
}
