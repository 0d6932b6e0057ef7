// Copyright 2024 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package report

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"chromiumos/isorunner/internal/inventory"
)

// WriteJUnitXML writes inv's current-iteration results to path. Passing
// testcases self-close; failing ones carry an explicit <failure> element
// and an explicit closing tag. encoding/xml can't produce that shape (it
// always writes matching open/close tags), so this is written by hand.
func WriteJUnitXML(path string, inv *inventory.Inventory, timestamp string, elapsedSeconds float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("xml: creating %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)

	total, failures := 0, 0
	suiteFailures := make([]int, len(inv.Suites))
	suiteSeconds := make([]float64, len(inv.Suites))
	for i, suite := range inv.Suites {
		for _, test := range suite.Tests {
			total++
			suiteSeconds[i] += secondsOf(test.ElapsedNS)
			if test.Outcome != inventory.Pass {
				failures++
				suiteFailures[i]++
			}
		}
	}

	fmt.Fprint(w, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	fmt.Fprintf(w, "<testsuites tests=\"%d\" failures=\"%d\" disabled=\"0\" errors=\"0\" timestamp=\"%s\" time=\"%.3f\" name=\"AllTests\">\n",
		total, failures, timestamp, elapsedSeconds)

	for i, suite := range inv.Suites {
		fmt.Fprintf(w, "  <testsuite name=\"%s\" tests=\"%d\" failures=\"%d\" disabled=\"0\" errors=\"0\" time=\"%.3f\">\n",
			xmlEscapeAttr(suite.Name), len(suite.Tests), suiteFailures[i], suiteSeconds[i])

		for _, test := range suite.Tests {
			fmt.Fprintf(w, "    <testcase name=\"%s\" status=\"run\" time=\"%.3f\" classname=\"%s\"",
				xmlEscapeAttr(test.Name), secondsOf(test.ElapsedNS), xmlEscapeAttr(suite.Name))
			if test.Outcome == inventory.Pass {
				fmt.Fprint(w, " />\n")
				continue
			}
			fmt.Fprint(w, ">\n")
			fmt.Fprintf(w, "      <failure message=\"%s\" type=\"\">\n", xmlEscapeAttr(test.Diagnostic))
			fmt.Fprint(w, "      </failure>\n")
			fmt.Fprint(w, "    </testcase>\n")
		}

		fmt.Fprint(w, "  </testsuite>\n")
	}
	fmt.Fprint(w, "</testsuites>\n")

	if err := w.Flush(); err != nil {
		return fmt.Errorf("xml: writing %s: %w", path, err)
	}
	return nil
}

func secondsOf(elapsedNS int64) float64 {
	return float64(elapsedNS) / 1e9
}

func xmlEscapeAttr(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '"':
			b.WriteString("&quot;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
