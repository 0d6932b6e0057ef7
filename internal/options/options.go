// Copyright 2024 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package options implements the argument partitioner: it splits a raw
// argv into the runner's own IsolationOptions and the argv that should be
// forwarded to the wrapped binary, exactly mirroring the decisions the
// original gtest_isolate_runner made, with the deviations called out in
// DESIGN.md.
package options

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
)

const (
	defaultDeadlineMS = 60000
	defaultWarnlineMS = 2000
)

// Options is the parsed form of the isolation-only flags. Isolate is the
// only field that is always meaningful; the rest are only valid when
// Isolate is true.
type Options struct {
	Isolate    bool
	JobCount   int
	DeadlineMS int
	WarnlineMS int
	Color      string // "auto", "yes", or "no"
	PrintTime  bool
	Repeat     int
	XMLPath    string // empty if --gtest_output was not given
}

// Parse partitions argv (with argv[0] the program name, exactly as
// os.Args is shaped) into Options and the argv that should be forwarded to
// the wrapped binary. When Isolate is true, that argv has --no-isolate
// inserted as its first forwarded flag so that a child re-invocation never
// tries to isolate itself again; when Isolate is false, it is argv with only
// the filter rewrites applied (none at all for --help).
//
// help text, if requested, is written to out.
func Parse(argv []string, out io.Writer) (*Options, []string, error) {
	if len(argv) == 0 {
		return nil, nil, fmt.Errorf("options: argv must have at least one element")
	}

	work := append([]string(nil), argv...)
	opts := &Options{}

	for _, a := range work[1:] {
		if a == "--help" || a == "-h" {
			printHelp(out)
			opts.Isolate = false
			return opts, work, nil
		}
	}

	rewriteFilterSynonyms(work)

	selftest := false
	for _, a := range work[1:] {
		if a == "--bionic-selftest" {
			selftest = true
			break
		}
	}

	work = rewriteSelftestFilter(work, selftest)

	opts.Isolate = true
	for _, a := range work[1:] {
		if a == "--no-isolate" || a == "--gtest_list_tests" {
			opts.Isolate = false
			break
		}
	}
	if !opts.Isolate {
		return opts, work, nil
	}

	opts.JobCount = onlineCPUCount()
	opts.DeadlineMS = defaultDeadlineMS
	opts.WarnlineMS = defaultWarnlineMS
	opts.Color = "auto"
	opts.PrintTime = true
	opts.Repeat = 1

	filtered := make([]string, 0, len(work))
	filtered = append(filtered, work[0])

	for i := 1; i < len(work); i++ {
		a := work[i]

		switch {
		case a == "-j":
			if i+1 < len(work) && isPositiveInt(work[i+1]) {
				n, _ := strconv.Atoi(work[i+1])
				opts.JobCount = n
				i++
			} else {
				opts.JobCount = onlineCPUCount()
			}

		case strings.HasPrefix(a, "-j"):
			suffix := a[2:]
			n, err := strconv.Atoi(suffix)
			if err != nil || n <= 0 {
				return nil, nil, fmt.Errorf("options: invalid job count %q", suffix)
			}
			opts.JobCount = n

		case strings.HasPrefix(a, "--deadline="):
			n, err := strconv.Atoi(strings.TrimPrefix(a, "--deadline="))
			if err != nil || n <= 0 {
				return nil, nil, fmt.Errorf("options: invalid deadline %q", a)
			}
			opts.DeadlineMS = n

		case strings.HasPrefix(a, "--warnline="):
			n, err := strconv.Atoi(strings.TrimPrefix(a, "--warnline="))
			if err != nil || n <= 0 {
				return nil, nil, fmt.Errorf("options: invalid warnline %q", a)
			}
			opts.WarnlineMS = n

		case strings.HasPrefix(a, "--gtest_color="):
			val := strings.TrimPrefix(a, "--gtest_color=")
			opts.Color = val
			filtered = append(filtered, a)

		case strings.HasPrefix(a, "--gtest_print_time="):
			val := strings.TrimPrefix(a, "--gtest_print_time=")
			opts.PrintTime = val != "0"
			filtered = append(filtered, a)

		case strings.HasPrefix(a, "--gtest_repeat="):
			// Removed from the forwarded argv: each child process runs
			// exactly one iteration, regardless of how many times the
			// scheduler re-dispatches the inventory.
			n, err := strconv.Atoi(strings.TrimPrefix(a, "--gtest_repeat="))
			if err != nil || n < 0 {
				return nil, nil, fmt.Errorf("options: invalid --gtest_repeat %q", a)
			}
			opts.Repeat = n

		case strings.HasPrefix(a, "--gtest_output="):
			path, err := parseGtestOutput(a)
			if err != nil {
				return nil, nil, err
			}
			opts.XMLPath = path

		default:
			filtered = append(filtered, a)
		}
	}
	work = filtered

	if opts.Repeat < 1 {
		opts.Repeat = 1
	}

	childArgv := make([]string, 0, len(work)+1)
	childArgv = append(childArgv, work[0], "--no-isolate")
	childArgv = append(childArgv, work[1:]...)

	return opts, childArgv, nil
}

// rewriteFilterSynonyms rewrites "--gtest-filter..." to "--gtest_filter...",
// mirroring the synonym the upstream binary itself accepts nowhere else:
// the 8th character (index 7) of any argument beginning with
// "--gtest-filter" is the hyphen that separates "gtest" from "filter".
func rewriteFilterSynonyms(work []string) {
	const prefix = "--gtest-filter"
	for i, a := range work {
		if strings.HasPrefix(a, prefix) && len(a) > 7 {
			b := []byte(a)
			b[7] = '_'
			work[i] = string(b)
		}
	}
}

// rewriteSelftestFilter removes the last --gtest_filter= argument (if any)
// and appends a freshly assembled one reflecting whether self-tests should
// be included or excluded. Removing-then-appending, rather than editing an
// existing argument in place, is what keeps this idempotent: re-running it
// on its own output never accumulates repeated ":bionic_selftest*" suffixes.
func rewriteSelftestFilter(work []string, selftest bool) []string {
	filterIdx := -1
	for i := len(work) - 1; i >= 1; i-- {
		if strings.HasPrefix(work[i], "--gtest_filter=") {
			filterIdx = i
			break
		}
	}

	var existing string
	if filterIdx != -1 {
		existing = strings.TrimPrefix(work[filterIdx], "--gtest_filter=")
		work = append(work[:filterIdx], work[filterIdx+1:]...)
	}

	var newFilter string
	switch {
	case selftest:
		newFilter = "bionic_selftest*"
	case existing == "":
		newFilter = "-bionic_selftest*"
	case strings.Contains(existing, ":-"):
		newFilter = existing + ":bionic_selftest*"
	default:
		newFilter = existing + ":-bionic_selftest*"
	}

	return append(work, "--gtest_filter="+newFilter)
}

func parseGtestOutput(arg string) (string, error) {
	val := strings.TrimPrefix(arg, "--gtest_output=")
	if !strings.HasPrefix(val, "xml:") {
		return "", fmt.Errorf("options: malformed --gtest_output %q", arg)
	}
	rest := strings.TrimPrefix(val, "xml:")
	if rest == "" {
		return "", fmt.Errorf("options: malformed --gtest_output %q", arg)
	}

	path := rest
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("options: --gtest_output: %w", err)
		}
		path = filepath.Join(cwd, path)
	}
	if strings.HasSuffix(rest, "/") {
		path = filepath.Join(path, "test_details.xml")
	}
	return path, nil
}

func isPositiveInt(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n > 0
}

func onlineCPUCount() int {
	n, err := cpu.Counts(true)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func printHelp(out io.Writer) {
	fmt.Fprint(out, `isorunner [options] [gtest-style flags]

isorunner partitions its own flags from the ones it forwards to the
wrapped test binary, then runs each discovered test in its own process.

  --test-binary=PATH     path to the wrapped test binary (required unless
                         this is --help or an equivalent non-isolating flag)
  -jN, -j N, -j          number of tests to run concurrently; bare -j uses
                         the number of online processors
  --deadline=MS          per-test time limit before it is killed
  --warnline=MS          per-test time limit before it is reported slow
  --no-isolate           run the wrapped binary directly, without isolation
  --bionic-selftest      restrict the run to the built-in self-test set
  --gtest_filter=PATTERN forwarded to the wrapped binary for listing/running
  --gtest_list_tests     forwarded; also disables isolation
  --gtest_repeat=N       repeat the whole run N times
  --gtest_color=MODE     auto, yes, or no
  --gtest_print_time=0|1 include per-test elapsed time in console output
  --gtest_output=xml:PATH
                         write a JUnit-style XML report to PATH
`)
}
