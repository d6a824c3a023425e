// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package interp

import (
	"math"

	"github.com/cpmech/goverset/aerr"
)

// Scale returns max(donor-extent diagonal, farthest donor distance from
// the origin), the scale factor used by both the verification tolerance
// here and the wire-level donor-point-record invariant.
func Scale(donors [][3]float64) float64 {
	if len(donors) == 0 {
		return 1
	}
	lo, hi := donors[0], donors[0]
	var farthest float64
	for _, p := range donors {
		for d := 0; d < 3; d++ {
			if p[d] < lo[d] {
				lo[d] = p[d]
			}
			if p[d] > hi[d] {
				hi[d] = p[d]
			}
		}
		n := math.Sqrt(p[0]*p[0] + p[1]*p[1] + p[2]*p[2])
		if n > farthest {
			farthest = n
		}
	}
	var diag float64
	for d := 0; d < 3; d++ {
		dx := hi[d] - lo[d]
		diag += dx * dx
	}
	diag = math.Sqrt(diag)
	if diag > farthest {
		return diag
	}
	return farthest
}

// Verify checks that Σ w_i p_i reproduces q within
// max(1e-6*scale, 1e-12). A failure is returned as a WeightNonConvergence
// error reporting the donor stencil and query point; Verify does not
// abort, and the donor search drops a candidate whose check fails.
func Verify(donors [][3]float64, weights []float64, q [3]float64) *aerr.Error {
	var got [3]float64
	for i, w := range weights {
		for d := 0; d < 3; d++ {
			got[d] += w * donors[i][d]
		}
	}
	var errNorm float64
	for d := 0; d < 3; d++ {
		dx := got[d] - q[d]
		errNorm += dx * dx
	}
	errNorm = math.Sqrt(errNorm)
	tol := math.Max(1e-6*Scale(donors), 1e-12)
	if errNorm > tol {
		return aerr.New(aerr.WeightNonConvergence,
			"weights do not reproduce query point: got %v want %v (err=%g tol=%g) donors=%v weights=%v",
			got, q, errNorm, tol, donors, weights)
	}
	return nil
}
