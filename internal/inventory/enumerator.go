// Copyright 2024 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package inventory

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Enumerate runs binaryPath --gtest_list_tests (with args forwarded ahead
// of that flag) and parses its output into an Inventory.
func Enumerate(ctx context.Context, binaryPath string, args []string) (*Inventory, error) {
	full := append(append([]string{}, args...), "--gtest_list_tests")
	cmd := exec.CommandContext(ctx, binaryPath, full...)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("enumerate: running %s --gtest_list_tests: %w", binaryPath, err)
	}
	return Parse(string(out))
}

// Parse decodes gtest's --gtest_list_tests output. Each line holds exactly
// one whitespace-free token: a line whose token ends in "." starts a new
// suite (the token sans its trailing dot is the suite name); any other
// token is a test name appended to the most recently seen suite. A line
// with more than one token, or a test-name token seen before any suite
// header, is a hard error.
func Parse(output string) (*Inventory, error) {
	inv := &Inventory{}
	var current *Suite

	for i, rawLine := range strings.Split(output, "\n") {
		if strings.TrimSpace(rawLine) == "" {
			continue
		}
		fields := strings.Fields(rawLine)
		if len(fields) != 1 {
			return nil, fmt.Errorf("enumerate: line %d (%q) has trailing content", i+1, rawLine)
		}
		token := fields[0]

		if strings.HasSuffix(token, ".") {
			current = &Suite{Name: strings.TrimSuffix(token, ".")}
			inv.Suites = append(inv.Suites, current)
			continue
		}

		if current == nil {
			return nil, fmt.Errorf("enumerate: line %d (%q): test name precedes any suite header", i+1, rawLine)
		}
		current.Tests = append(current.Tests, &Test{Name: token})
	}

	return inv, nil
}
