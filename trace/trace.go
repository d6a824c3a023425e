// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package trace provides the process-wide append-only tracer sink: one
// file per rank, optional, enabled by the `trace` key in overset.config.
package trace

import (
	"fmt"
	"log"
	"os"
)

// Sink is a per-rank append-only log. A nil *Sink is valid and silently
// discards every Logf call, so callers do not need to guard on whether
// tracing was enabled.
type Sink struct {
	logger *log.Logger
	file   *os.File
}

// Open creates (or truncates) basename+"."+rank+".trace" and returns a
// Sink writing to it. Callers are responsible for calling Close.
func Open(basename string, rank int) (*Sink, error) {
	path := fmt.Sprintf("%s.%d.trace", basename, rank)
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &Sink{logger: log.New(f, "", log.LstdFlags|log.Lmicroseconds), file: f}, nil
}

// Logf appends a formatted line. No-op on a nil Sink.
func (s *Sink) Logf(format string, args ...interface{}) {
	if s == nil {
		return
	}
	s.logger.Printf(format, args...)
}

// Close flushes and closes the underlying file. No-op on a nil Sink.
func (s *Sink) Close() error {
	if s == nil {
		return nil
	}
	return s.file.Close()
}
