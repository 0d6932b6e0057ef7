// Copyright 2024 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package report implements the two result sinks: a gtest-flavored console
// stream and a JUnit-style XML file.
package report

import (
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"chromiumos/isorunner/internal/inventory"
)

// color names one of the handful of colors the console reporter uses.
type color int

const (
	colorDefault color = iota
	colorRed
	colorGreen
	colorYellow
)

var ansiCodes = map[color]string{
	colorDefault: "0",
	colorRed:     "31",
	colorGreen:   "32",
	colorYellow:  "33",
}

// Console is the gtest-style console reporter.
type Console struct {
	out        io.Writer
	useColor   bool
	printTime  bool
	warnlineMS int
}

// NewConsole returns a Console writing to out. colorMode is "auto", "yes",
// or "no"; "auto" colors only when out is a terminal.
func NewConsole(out io.Writer, colorMode string, printTime bool, warnlineMS int) *Console {
	return &Console{
		out:        out,
		useColor:   shouldColor(colorMode, out),
		printTime:  printTime,
		warnlineMS: warnlineMS,
	}
}

func shouldColor(mode string, out io.Writer) bool {
	switch mode {
	case "yes":
		return true
	case "no":
		return false
	default:
		f, ok := out.(*os.File)
		return ok && term.IsTerminal(int(f.Fd()))
	}
}

func (c *Console) tag(col color, text string) string {
	if !c.useColor {
		return text
	}
	return "\x1b[" + ansiCodes[col] + "m" + text + "\x1b[0m"
}

// IterationStart prints the "[==========] Running N tests from M test
// cases." banner, plus a repeat-iteration header when totalIterations > 1.
func (c *Console) IterationStart(inv *inventory.Inventory, iteration, totalIterations int) {
	if totalIterations > 1 {
		fmt.Fprintf(c.out, "\nRepeating all tests (iteration %d) . . .\n\n", iteration)
	}
	total := inv.TestCount()
	fmt.Fprintf(c.out, "%s Running %d %s from %d %s.\n",
		c.tag(colorGreen, "[==========]"), total, pluralize(total, "test"),
		len(inv.Suites), pluralize(len(inv.Suites), "test case"))
}

// TestEnd prints one test's result line immediately after it is harvested.
func (c *Console) TestEnd(suite *inventory.Suite, test *inventory.Test) {
	var tag string
	switch test.Outcome {
	case inventory.Pass:
		tag = c.tag(colorGreen, "[    OK    ]")
	case inventory.Timeout:
		tag = c.tag(colorRed, "[ TIMEOUT  ]")
	default:
		tag = c.tag(colorRed, "[  FAILED  ]")
	}

	fmt.Fprintf(c.out, "%s %s", tag, suite.FullName(test))
	if c.printTime {
		fmt.Fprintf(c.out, " (%d ms)\n", test.ElapsedNS/int64(time.Millisecond))
	} else {
		fmt.Fprintln(c.out)
	}
	if test.Diagnostic != "" {
		fmt.Fprint(c.out, test.Diagnostic)
	}
}

// IterationEnd prints the end-of-run summary: totals, the pass count, and a
// listing of every failed, timed-out, or slow test.
func (c *Console) IterationEnd(inv *inventory.Inventory, elapsedNS int64) {
	type named struct {
		name string
		ms   int64
	}

	var total, passed int
	var failed []string
	var timedOut, slow []named

	for _, suite := range inv.Suites {
		for _, test := range suite.Tests {
			total++
			full := suite.FullName(test)
			ms := test.ElapsedNS / int64(time.Millisecond)

			switch test.Outcome {
			case inventory.Pass:
				passed++
			case inventory.Timeout:
				timedOut = append(timedOut, named{full, ms})
			default:
				failed = append(failed, full)
			}
			if test.Outcome != inventory.Timeout && ms >= int64(c.warnlineMS) {
				slow = append(slow, named{full, ms})
			}
		}
	}

	fmt.Fprintf(c.out, "%s %d %s from %d %s ran.",
		c.tag(colorGreen, "[==========]"), total, pluralize(total, "test"),
		len(inv.Suites), pluralize(len(inv.Suites), "test case"))
	if c.printTime {
		fmt.Fprintf(c.out, " (%d ms total)", elapsedNS/int64(time.Millisecond))
	}
	fmt.Fprintln(c.out)

	fmt.Fprintf(c.out, "%s %d %s.\n", c.tag(colorGreen, "[   PASS   ]"), passed, pluralize(passed, "test"))

	if n := len(failed); n > 0 {
		fmt.Fprintf(c.out, "%s %d %s, listed below:\n", c.tag(colorRed, "[   FAIL   ]"), n, pluralize(n, "test"))
		for _, name := range failed {
			fmt.Fprintf(c.out, "%s %s\n", c.tag(colorRed, "[   FAIL   ]"), name)
		}
	}
	if n := len(timedOut); n > 0 {
		fmt.Fprintf(c.out, "%s %d %s, listed below:\n", c.tag(colorRed, "[ TIMEOUT  ]"), n, pluralize(n, "test"))
		for _, e := range timedOut {
			fmt.Fprintf(c.out, "%s %s (stopped at %d ms)\n", c.tag(colorRed, "[ TIMEOUT  ]"), e.name, e.ms)
		}
	}
	if n := len(slow); n > 0 {
		fmt.Fprintf(c.out, "%s %d %s, listed below:\n", c.tag(colorYellow, "[   SLOW   ]"), n, pluralize(n, "test"))
		for _, e := range slow {
			fmt.Fprintf(c.out, "%s %s (%d ms, exceeds %d ms)\n", c.tag(colorYellow, "[   SLOW   ]"), e.name, e.ms, c.warnlineMS)
		}
	}

	if n := len(failed); n > 0 {
		fmt.Fprintf(c.out, "\n%d FAILED %s\n", n, pluralizeUpper(n, "TEST"))
	}
	if n := len(timedOut); n > 0 {
		fmt.Fprintf(c.out, "%d TIMED OUT %s\n", n, pluralizeUpper(n, "TEST"))
	}
	if n := len(slow); n > 0 {
		fmt.Fprintf(c.out, "%d SLOW %s\n", n, pluralizeUpper(n, "TEST"))
	}
}

func pluralize(n int, word string) string {
	if n == 1 {
		return word
	}
	if word == "test case" {
		return "test cases"
	}
	return word + "s"
}

func pluralizeUpper(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "S"
}
