// Copyright 2024 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package scheduler drives one iteration of the parallel, process-isolated
// test run: it keeps a fixed-size pool of slots busy, reaps finished
// children with a non-blocking wait, and kills-and-reaps anything that
// outlives its deadline.
package scheduler

import (
	"fmt"
	"syscall"
	"time"

	"chromiumos/isorunner/internal/child"
	"chromiumos/isorunner/internal/clock"
	"chromiumos/isorunner/internal/command"
	"chromiumos/isorunner/internal/inventory"
)

// Config holds the scheduler's own tunables. Reporting-only settings (color,
// print-time, the warnline) are not here; they never change dispatch
// behavior and belong to internal/report instead.
type Config struct {
	JobCount   int
	DeadlineMS int
}

// Scheduler runs every test in inv exactly once per RunIteration call,
// forking a fresh process per test via internal/child.
type Scheduler struct {
	BinaryPath string
	BaseArgs   []string
	Config     Config
	Clock      *clock.Clock
}

// New returns a Scheduler that forks binaryPath (with baseArgs as the
// common argv every test's invocation is derived from) according to cfg.
func New(binaryPath string, baseArgs []string, cfg Config, clk *clock.Clock) *Scheduler {
	return &Scheduler{BinaryPath: binaryPath, BaseArgs: baseArgs, Config: cfg, Clock: clk}
}

type slot struct {
	busy      bool
	handle    *child.Handle
	suiteIdx  int
	testIdx   int
	startNano int64
}

type pair struct {
	suiteIdx int
	testIdx  int
}

// OnTestDone is called once per test, right after it has been harvested
// (or killed for timing out) and its Test fields have been updated.
type OnTestDone func(suiteIdx, testIdx int)

// RunIteration resets inv to Pending and runs every test in it once,
// calling onDone as each result becomes available.
func (s *Scheduler) RunIteration(inv *inventory.Inventory, onDone OnTestDone) error {
	inv.ResetForIteration()

	var pairs []pair
	for si, suite := range inv.Suites {
		for ti := range suite.Tests {
			pairs = append(pairs, pair{si, ti})
		}
	}
	if len(pairs) == 0 {
		return nil
	}

	jobCount := s.Config.JobCount
	if jobCount < 1 {
		jobCount = 1
	}
	if jobCount > len(pairs) {
		jobCount = len(pairs)
	}

	slots := make([]*slot, jobCount)
	for i := range slots {
		slots[i] = &slot{}
	}

	next := 0
	running := 0

	dispatch := func(sl *slot) error {
		if next >= len(pairs) {
			return nil
		}
		p := pairs[next]
		suite := inv.Suites[p.suiteIdx]
		test := suite.Tests[p.testIdx]
		full := suite.FullName(test)

		h, err := child.Start(s.BinaryPath, s.BaseArgs, full)
		if err != nil {
			return fmt.Errorf("scheduler: dispatching %s: %w", full, err)
		}

		sl.busy = true
		sl.handle = h
		sl.suiteIdx = p.suiteIdx
		sl.testIdx = p.testIdx
		sl.startNano = s.Clock.NowNano()
		next++
		running++
		return nil
	}

	for _, sl := range slots {
		if err := dispatch(sl); err != nil {
			return err
		}
	}

	deadlineNS := int64(s.Config.DeadlineMS) * int64(time.Millisecond)

	for running > 0 {
		reapedAny := false

		for _, sl := range slots {
			if !sl.busy {
				continue
			}

			var ws syscall.WaitStatus
			wpid, err := syscall.Wait4(sl.handle.Pid(), &ws, syscall.WNOHANG, nil)
			switch err {
			case nil:
				// fall through below
			case syscall.EINTR, syscall.ECHILD:
				// Nothing reaped this tick; ECHILD is not treated as fatal
				// here (see DESIGN.md).
				continue
			default:
				return fmt.Errorf("scheduler: wait4(%d): %w", sl.handle.Pid(), err)
			}
			if wpid == 0 {
				continue
			}

			elapsed := s.Clock.NowNano() - sl.startNano
			if err := s.harvest(inv, sl, ws, elapsed); err != nil {
				return err
			}
			onDone(sl.suiteIdx, sl.testIdx)
			sl.busy = false
			running--
			reapedAny = true

			if err := dispatch(sl); err != nil {
				return err
			}
		}

		if reapedAny {
			continue
		}

		now := s.Clock.NowNano()
		for _, sl := range slots {
			if !sl.busy || now-sl.startNano < deadlineNS {
				continue
			}

			elapsed := now - sl.startNano
			sl.handle.Kill()

			var ws syscall.WaitStatus
			syscall.Wait4(sl.handle.Pid(), &ws, 0, nil)

			if err := s.harvestTimeout(inv, sl, elapsed); err != nil {
				return err
			}
			onDone(sl.suiteIdx, sl.testIdx)
			sl.busy = false
			running--

			if err := dispatch(sl); err != nil {
				return err
			}
		}

		s.Clock.Sleep(time.Millisecond)
	}

	return nil
}

func (s *Scheduler) harvest(inv *inventory.Inventory, sl *slot, ws syscall.WaitStatus, elapsed int64) error {
	suite := inv.Suites[sl.suiteIdx]
	test := suite.Tests[sl.testIdx]
	full := suite.FullName(test)
	diag, err := sl.handle.Drain()
	if err != nil {
		return fmt.Errorf("scheduler: harvesting %s: %w", full, err)
	}

	test.ElapsedNS = elapsed

	switch {
	case ws.Exited() && ws.ExitStatus() == 0:
		test.Outcome = inventory.Pass
		test.Diagnostic = diag
	case ws.Signaled():
		test.Outcome = inventory.Fail
		test.Diagnostic = diag + fmt.Sprintf("%s terminated by signal: %s.\n", full, command.SignalName(ws.Signal()))
	default:
		test.Outcome = inventory.Fail
		test.Diagnostic = diag
	}
	return nil
}

func (s *Scheduler) harvestTimeout(inv *inventory.Inventory, sl *slot, elapsed int64) error {
	suite := inv.Suites[sl.suiteIdx]
	test := suite.Tests[sl.testIdx]
	full := suite.FullName(test)
	diag, err := sl.handle.Drain()
	if err != nil {
		return fmt.Errorf("scheduler: harvesting %s: %w", full, err)
	}

	test.ElapsedNS = elapsed
	test.Outcome = inventory.Timeout
	test.Diagnostic = diag + fmt.Sprintf("%s killed because of timeout at %d ms.\n", full, elapsed/int64(time.Millisecond))
	return nil
}
