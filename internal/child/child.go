// Copyright 2024 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package child starts one wrapped-binary process per test and exposes the
// diagnostic pipe it's given. The scheduler owns reaping; this package
// never calls cmd.Wait, since that would race with the scheduler's manual
// syscall.Wait4 polling.
package child

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"
)

// Handle is one running (or exited-but-not-yet-reaped) wrapped-binary
// process, isolated to a single test.
type Handle struct {
	Cmd      *exec.Cmd
	TestName string // "Suite.Test"

	pipeRead *os.File
}

// Start forks and execs binaryPath to run exactly the test named fullName,
// built from baseArgs with any existing --gtest_filter replaced. The pipe's
// write end is passed as the child's fd 3.
func Start(binaryPath string, baseArgs []string, fullName string) (*Handle, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("child: creating diagnostic pipe: %w", err)
	}

	args := buildArgsForTest(baseArgs, fullName)
	cmd := exec.Command(binaryPath, args...)
	cmd.ExtraFiles = []*os.File{w}
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil

	if err := cmd.Start(); err != nil {
		r.Close()
		w.Close()
		return nil, fmt.Errorf("child: starting %s for %s: %w", binaryPath, fullName, err)
	}
	w.Close()

	return &Handle{Cmd: cmd, TestName: fullName, pipeRead: r}, nil
}

// Pid returns the child's process ID.
func (h *Handle) Pid() int {
	return h.Cmd.Process.Pid
}

// Kill sends SIGKILL to the child. Callers must still reap it afterward.
func (h *Handle) Kill() error {
	return unix.Kill(h.Pid(), unix.SIGKILL)
}

// Drain reads whatever diagnostic bytes the child wrote to its fd-3 pipe
// and closes the read end. It must only be called after the child has
// exited (or been killed), since it blocks until the write end is closed.
// A read error is fatal to the run, not just this test.
func (h *Handle) Drain() (string, error) {
	defer h.pipeRead.Close()
	b, err := io.ReadAll(h.pipeRead)
	if err != nil {
		return "", fmt.Errorf("child: reading diagnostic pipe for %s: %w", h.TestName, err)
	}
	return string(b), nil
}

// buildArgsForTest drops any --gtest_filter already present in baseArgs
// (baseArgs[0] is a program-name placeholder, not a real argument) and
// appends an exact filter for fullName so exactly one test runs.
func buildArgsForTest(baseArgs []string, fullName string) []string {
	args := make([]string, 0, len(baseArgs))
	for _, a := range baseArgs[1:] {
		if strings.HasPrefix(a, "--gtest_filter=") {
			continue
		}
		args = append(args, a)
	}
	return append(args, "--gtest_filter="+fullName)
}
