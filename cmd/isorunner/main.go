// Copyright 2024 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Command isorunner wraps an externally supplied gtest-style test binary
// and runs its tests one process per test, so that a crash or hang in one
// test can never take down the rest of the run.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"chromiumos/isorunner/internal/clock"
	"chromiumos/isorunner/internal/command"
	"chromiumos/isorunner/internal/inventory"
	"chromiumos/isorunner/internal/logging"
	"chromiumos/isorunner/internal/options"
	"chromiumos/isorunner/internal/report"
	"chromiumos/isorunner/internal/scheduler"
)

func main() {
	lg := logging.New(os.Stderr, false)
	command.InstallSignalHandler(os.Stderr, func(sig os.Signal) {
		lg.Logf("received %v, exiting", sig)
	})
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(argv []string, stdout, stderr io.Writer) int {
	testBinary, rest := extractTestBinary(argv)

	opts, childArgv, err := options.Parse(rest, stdout)
	if err != nil {
		return command.WriteError(stderr, err)
	}

	if !opts.Isolate {
		return delegate(testBinary, childArgv[1:], stdout, stderr)
	}

	if testBinary == "" {
		return command.WriteError(stderr, fmt.Errorf("isorunner: --test-binary=PATH is required"))
	}

	clk := clock.New()

	inv, err := inventory.Enumerate(context.Background(), testBinary, childArgv[1:])
	if err != nil {
		return command.WriteError(stderr, fmt.Errorf("enumerate: %w", err))
	}

	iterations := opts.Repeat
	if iterations < 1 {
		iterations = 1
	}

	console := report.NewConsole(stdout, opts.Color, opts.PrintTime, opts.WarnlineMS)
	sched := scheduler.New(testBinary, childArgv, scheduler.Config{
		JobCount:   opts.JobCount,
		DeadlineMS: opts.DeadlineMS,
	}, clk)

	for iter := 1; iter <= iterations; iter++ {
		console.IterationStart(inv, iter, iterations)

		iterStartNano := clk.NowNano()
		iterStartWall := clk.Now()

		err := sched.RunIteration(inv, func(suiteIdx, testIdx int) {
			console.TestEnd(inv.Suites[suiteIdx], inv.Suites[suiteIdx].Tests[testIdx])
		})
		if err != nil {
			return command.WriteError(stderr, fmt.Errorf("scheduler: %w", err))
		}

		elapsedNano := clk.NowNano() - iterStartNano
		console.IterationEnd(inv, elapsedNano)

		if opts.XMLPath != "" {
			ts := clk.FormatTimestamp(iterStartWall)
			if err := report.WriteJUnitXML(opts.XMLPath, inv, ts, float64(elapsedNano)/1e9); err != nil {
				return command.WriteError(stderr, fmt.Errorf("xml: %w", err))
			}
		}
	}

	return 0
}

// extractTestBinary pulls --test-binary=PATH out of argv, if present,
// before the rest of argv is handed to the option partitioner. This flag
// is how isorunner learns which externally supplied binary to wrap; it has
// no equivalent in the partitioner's own contract.
func extractTestBinary(argv []string) (string, []string) {
	rest := make([]string, 0, len(argv))
	rest = append(rest, argv[0])

	var path string
	for _, a := range argv[1:] {
		if strings.HasPrefix(a, "--test-binary=") {
			path = strings.TrimPrefix(a, "--test-binary=")
			continue
		}
		rest = append(rest, a)
	}
	return path, rest
}

// delegate execs testBinary directly, inheriting stdio and propagating its
// exit status. It is used for --help, --no-isolate, and --gtest_list_tests,
// none of which need the scheduler.
func delegate(testBinary string, args []string, stdout, stderr io.Writer) int {
	if testBinary == "" {
		return 0
	}

	cmd := exec.Command(testBinary, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode()
		}
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}
