// Copyright 2024 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package command holds the small pieces of plumbing shared by the
// isorunner entry point: exit-code-carrying errors and signal handling.
package command

import (
	"fmt"
	"io"
)

// StatusError is an error that additionally carries the process exit code
// it should cause.
type StatusError struct {
	status int
	msg    string
}

// Status returns the exit code this error should cause.
func (e *StatusError) Status() int { return e.status }

func (e *StatusError) Error() string { return e.msg }

// NewStatusErrorf creates a StatusError with the given exit status and a
// fmt.Sprintf-formatted message.
func NewStatusErrorf(status int, format string, args ...interface{}) *StatusError {
	return &StatusError{status: status, msg: fmt.Sprintf(format, args...)}
}

// WriteError writes err's message, terminated by a newline, to out and
// returns the process exit code that should be used: the status attached to
// a *StatusError, or 1 for any other error.
func WriteError(out io.Writer, err error) int {
	status := 1
	if se, ok := err.(*StatusError); ok {
		status = se.Status()
	}
	fmt.Fprintln(out, err)
	return status
}
