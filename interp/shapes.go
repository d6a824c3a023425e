// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package interp implements the interpolation kernels: the Lagrange
// element inverse map (with inverse-distance fallback), the
// least-squares reconstruction weights, and weight verification.
package interp

import "github.com/cpmech/goverset/mesh"

// shapeFunc evaluates shape-function values S and, when derivs is true,
// their natural-coordinate derivatives dSdR, at (r,s,t). Its signature
// keeps the Jacobian-assembly code in lagrange.go in the same shape as
// a conventional isoparametric element's CalcAtIp.
type shapeFunc func(S []float64, dSdR [][]float64, r, s, t float64, derivs bool)

// tetShape is the linear 4-node tetrahedron: N = (1-r-s-t, r, s, t).
func tetShape(S []float64, dSdR [][]float64, r, s, t float64, derivs bool) {
	S[0] = 1 - r - s - t
	S[1] = r
	S[2] = s
	S[3] = t
	if !derivs {
		return
	}
	dSdR[0][0], dSdR[0][1], dSdR[0][2] = -1, -1, -1
	dSdR[1][0], dSdR[1][1], dSdR[1][2] = 1, 0, 0
	dSdR[2][0], dSdR[2][1], dSdR[2][2] = 0, 1, 0
	dSdR[3][0], dSdR[3][1], dSdR[3][2] = 0, 0, 1
}

// pyramidShape is the 5-node pyramid: a bilinear quad base collapsed
// toward the apex as t -> 1.
func pyramidShape(S []float64, dSdR [][]float64, r, s, t float64, derivs bool) {
	S[0] = (1 - r) * (1 - s) * (1 - t)
	S[1] = r * (1 - s) * (1 - t)
	S[2] = r * s * (1 - t)
	S[3] = (1 - r) * s * (1 - t)
	S[4] = t
	if !derivs {
		return
	}
	dSdR[0][0], dSdR[0][1], dSdR[0][2] = -(1-s)*(1-t), -(1-r)*(1-t), -(1-r)*(1-s)
	dSdR[1][0], dSdR[1][1], dSdR[1][2] = (1-s)*(1-t), -r*(1-t), -r*(1-s)
	dSdR[2][0], dSdR[2][1], dSdR[2][2] = s*(1-t), r*(1-t), -r*s
	dSdR[3][0], dSdR[3][1], dSdR[3][2] = -s*(1-t), (1-r)*(1-t), -(1-r)*s
	dSdR[4][0], dSdR[4][1], dSdR[4][2] = 0, 0, 1
}

// prismShape is the 6-node triangular prism: area coordinates (r,s,
// 1-r-s) on the triangle, extruded linearly along t.
func prismShape(S []float64, dSdR [][]float64, r, s, t float64, derivs bool) {
	l := 1 - r - s
	S[0] = l * (1 - t)
	S[1] = r * (1 - t)
	S[2] = s * (1 - t)
	S[3] = l * t
	S[4] = r * t
	S[5] = s * t
	if !derivs {
		return
	}
	dSdR[0][0], dSdR[0][1], dSdR[0][2] = -(1 - t), -(1 - t), -l
	dSdR[1][0], dSdR[1][1], dSdR[1][2] = 1 - t, 0, -r
	dSdR[2][0], dSdR[2][1], dSdR[2][2] = 0, 1 - t, -s
	dSdR[3][0], dSdR[3][1], dSdR[3][2] = -t, -t, l
	dSdR[4][0], dSdR[4][1], dSdR[4][2] = t, 0, r
	dSdR[5][0], dSdR[5][1], dSdR[5][2] = 0, t, s
}

// hexShape is the trilinear 8-node hexahedron over natural coordinates
// in [0,1]^3, VTK vertex ordering.
func hexShape(S []float64, dSdR [][]float64, r, s, t float64, derivs bool) {
	R := [8][3]float64{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}, {0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1}}
	for i, v := range R {
		rr, ss, tt := sgn(r, v[0]), sgn(s, v[1]), sgn(t, v[2])
		S[i] = rr * ss * tt
		if derivs {
			dSdR[i][0] = dsgn(r, v[0]) * ss * tt
			dSdR[i][1] = rr * dsgn(s, v[1]) * tt
			dSdR[i][2] = rr * ss * dsgn(t, v[2])
		}
	}
}

// sgn returns (1-x) when corner==0, x when corner==1.
func sgn(x, corner float64) float64 {
	if corner == 0 {
		return 1 - x
	}
	return x
}

func dsgn(x, corner float64) float64 {
	if corner == 0 {
		return -1
	}
	return 1
}

// shapeFor returns the shape function for a cell type, or nil for an
// unknown type.
func shapeFor(t mesh.CellType) shapeFunc {
	switch t {
	case mesh.Tet:
		return tetShape
	case mesh.Pyramid:
		return pyramidShape
	case mesh.Prism:
		return prismShape
	case mesh.Hex:
		return hexShape
	}
	return nil
}
