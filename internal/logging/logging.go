// Copyright 2024 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package logging provides the runner-level diagnostic logger for messages
// about the runner itself (the entry point uses it when a signal ends the
// run), kept separate from the colorized test-result stream produced by
// internal/report. Argument and OS errors are written by internal/command's
// WriteError, not by this logger.
package logging

import (
	"fmt"
	"io"
	"io/ioutil"
	"sync"
	"time"
)

// Logger writes runner diagnostics, optionally timestamped.
type Logger struct {
	mu       sync.Mutex
	out      io.Writer
	datetime bool
	buf      []byte
}

// New returns a Logger writing to out. If datetime is true, each line is
// prefixed with a UTC timestamp.
func New(out io.Writer, datetime bool) *Logger {
	return &Logger{out: out, datetime: datetime}
}

// Discard returns a Logger that drops everything written to it.
func Discard() *Logger {
	return New(ioutil.Discard, false)
}

// Log writes args the way fmt.Sprint would, appending a trailing newline if
// one isn't already present.
func (l *Logger) Log(args ...interface{}) {
	l.output(fmt.Sprint(args...))
}

// Logf writes a formatted message, appending a trailing newline if one
// isn't already present.
func (l *Logger) Logf(format string, args ...interface{}) {
	l.output(fmt.Sprintf(format, args...))
}

func (l *Logger) output(s string) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf = l.buf[:0]
	if l.datetime {
		l.buf = append(l.buf, now.UTC().Format("2006-01-02T15:04:05.000000Z ")...)
	}
	l.buf = append(l.buf, s...)
	if len(s) == 0 || s[len(s)-1] != '\n' {
		l.buf = append(l.buf, '\n')
	}
	l.out.Write(l.buf)
}
