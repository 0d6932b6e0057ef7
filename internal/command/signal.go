// Copyright 2024 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package command

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"strings"
	"syscall"

	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/unix"
)

var selfName = filepath.Base(os.Args[0])

// InstallSignalHandler installs a handler for SIGINT/SIGTERM that runs
// callback and, for SIGTERM, dumps goroutine stacks and terminates any
// child processes still outstanding before exiting with status 1.
func InstallSignalHandler(out io.Writer, callback func(sig os.Signal)) {
	ch := make(chan os.Signal, 1)
	go func() {
		sig := <-ch
		fmt.Fprintf(out, "\n%s: caught %v signal, exiting\n", selfName, sig)
		callback(sig)
		if sig == unix.SIGTERM {
			handleSIGTERM(out)
		}
		os.Exit(1)
	}()
	signal.Notify(ch, unix.SIGINT, unix.SIGTERM)
}

func handleSIGTERM(out io.Writer) {
	fmt.Fprintf(out, "\n%s: dumping all goroutines...\n\n", selfName)
	if p := pprof.Lookup("goroutine"); p != nil {
		p.WriteTo(out, 2)
	}
	fmt.Fprintf(out, "\n%s: finished dumping goroutines\n", selfName)

	procs, err := process.Processes()
	if err != nil {
		fmt.Fprintf(out, "failed to terminate subprocesses: %v\n", err)
		return
	}

	selfPid := int32(os.Getpid())
	for _, proc := range procs {
		ppid, err := proc.Ppid()
		if err != nil {
			continue
		}
		if ppid == selfPid {
			proc.Terminate()
		}
	}
}

// SignalName renders sig the way the console and diagnostic-line formats
// want it: a human name with the first letter capitalized, e.g.
// "Segmentation fault" for SIGSEGV.
func SignalName(sig syscall.Signal) string {
	s := sig.String()
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
