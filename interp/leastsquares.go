// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package interp

import "github.com/cpmech/gosl/la"

// LeastSquaresWeights computes the three-dimensional linear least-squares
// reconstruction weights for n support points around query point q: the
// minimum-norm weight vector w such that Σ w_i = 1 and
// Σ w_i (p_i - q) = 0, which reproduces any affine field f(x) = a·x + b
// exactly for n >= 4 points in general position. Solved via the 4x4
// normal-equations system built from the moment matrix.
func LeastSquaresWeights(points [][3]float64, q [3]float64) []float64 {
	n := len(points)
	// P[a][i]: row 0 is the constant 1, rows 1-3 are (p_i - q) components.
	P := la.MatAlloc(4, n)
	for i, p := range points {
		P[0][i] = 1
		P[1][i] = p[0] - q[0]
		P[2][i] = p[1] - q[1]
		P[3][i] = p[2] - q[2]
	}
	// M = P P^T (4x4 moment matrix)
	M := la.MatAlloc(4, 4)
	for a := 0; a < 4; a++ {
		for b := 0; b < 4; b++ {
			var sum float64
			for i := 0; i < n; i++ {
				sum += P[a][i] * P[b][i]
			}
			M[a][b] = sum
		}
	}
	Minv := la.MatAlloc(4, 4)
	det, err := la.MatInv(Minv, M, 1e-14)
	if err != nil || det == 0 {
		return nil
	}
	// solve M c = e0 => c = Minv * e0 = first column of Minv
	c := [4]float64{Minv[0][0], Minv[1][0], Minv[2][0], Minv[3][0]}
	weights := make([]float64, n)
	for i := 0; i < n; i++ {
		weights[i] = c[0]*P[0][i] + c[1]*P[1][i] + c[2]*P[2][i] + c[3]*P[3][i]
	}
	return weights
}
