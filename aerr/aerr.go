// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package aerr classifies and propagates five error kinds: invariant
// violation, weight non-convergence, configuration error, domain error,
// and warning. Fatal kinds abort the whole process group; warnings are
// logged and execution continues.
package aerr

import (
	"fmt"

	"github.com/cpmech/goverset/xmpi"
	"github.com/cpmech/gosl/utl"
)

// Kind distinguishes the error categories.
type Kind int

const (
	Invariant Kind = iota
	WeightNonConvergence
	Configuration
	Domain
	Warning
)

func (k Kind) String() string {
	switch k {
	case Invariant:
		return "invariant violation"
	case WeightNonConvergence:
		return "weight non-convergence"
	case Configuration:
		return "configuration error"
	case Domain:
		return "domain error"
	case Warning:
		return "warning"
	}
	return "unknown"
}

// Error is a classified assembly error, carrying enough context to
// reproduce the offending ids/stencil in a diagnostic message.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// New builds a classified error.
func New(k Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

// Warn logs a warning and continues; it never aborts the process group.
// Used for straddling In/Out cells, extreme visualization field values,
// and a fragment with no candidate donors for its receptors.
func Warn(format string, args ...interface{}) {
	utl.PfYel("WARNING: "+format+"\n", args...)
}

// Fatal reports a classified error on this rank and collectively aborts
// the process group: every rank's stop flag is MAX-reduced so that a
// fatal error anywhere becomes a fatal error everywhere. It panics after
// reporting.
func Fatal(comm *xmpi.Comm, err *Error) {
	stop := make([]int, comm.Size())
	if err != nil {
		stop[comm.Rank()] = 1
	}
	comm.ElementalMaxInt(stop)
	anyStop := false
	for _, s := range stop {
		if s > 0 {
			anyStop = true
			break
		}
	}
	if !anyStop {
		return
	}
	if err != nil {
		utl.PfRed("FATAL on rank %d: %v\n", comm.Rank(), err)
	} else {
		utl.PfRed("FATAL: aborted by another rank\n")
	}
	panic(err)
}

// Check is a convenience wrapper: if err is non-nil, it wraps it as a
// Kind error and calls Fatal.
func Check(comm *xmpi.Comm, err error, k Kind) {
	if err == nil {
		return
	}
	Fatal(comm, New(k, "%v", err))
}
