// Copyright 2024 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package child

import (
	"errors"
	"os"
	"testing"
)

func TestDrainPropagatesReadError(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe() = %v", err)
	}
	w.Close()
	r.Close() // closing the read end before Drain gets to it forces a read error

	h := &Handle{TestName: "Foo.Bar", pipeRead: r}
	if _, err := h.Drain(); err == nil {
		t.Error("Drain() = nil error; want an error from reading a closed pipe")
	} else if !errors.Is(err, os.ErrClosed) {
		t.Errorf("Drain() = %v; want it to wrap os.ErrClosed", err)
	}
}
