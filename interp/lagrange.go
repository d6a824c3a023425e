// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package interp

import (
	"math"

	"github.com/cpmech/goverset/mesh"
	"github.com/cpmech/gosl/la"
)

// MaxNewtonIters and NewtonTol bound the Lagrange inverse-mapping Newton
// iteration.
const (
	MaxNewtonIters = 1000
	NewtonTol      = 1e-12
)

// InverseMap solves for the natural coordinates (r,s,t) of physical point
// q inside a cell with the given vertex positions, by Newton iteration on
// F(r,s,t) = evaluate(r,s,t) - q, starting from (0.5,0.5,0.5). For tets
// the inverse is closed-form (barycentric). Returns the
// donor weights (the shape functions evaluated at the solution) and
// whether the solution is a genuine interior mapping. When ok is false,
// LagrangeWeights falls back to InverseDistanceWeights, while the donor
// search discards the cell.
func InverseMap(cellType mesh.CellType, verts [][3]float64, q [3]float64) (weights []float64, ok bool) {
	if cellType == mesh.Tet {
		return tetBarycentric(verts, q)
	}
	shp := shapeFor(cellType)
	n := cellType.NodeCount()
	S := make([]float64, n)
	dSdR := make([][]float64, n)
	for i := range dSdR {
		dSdR[i] = make([]float64, 3)
	}
	r, s, t := 0.5, 0.5, 0.5
	for iter := 0; iter < MaxNewtonIters; iter++ {
		shp(S, dSdR, r, s, t, true)
		F := evalPos(S, verts)
		for d := 0; d < 3; d++ {
			F[d] -= q[d]
		}
		if infNorm(F) < NewtonTol {
			break
		}
		dxdR := la.MatAlloc(3, 3)
		for d := 0; d < 3; d++ {
			for k := 0; k < 3; k++ {
				var sum float64
				for m := 0; m < n; m++ {
					sum += verts[m][d] * dSdR[m][k]
				}
				dxdR[d][k] = sum
			}
		}
		dRdx := la.MatAlloc(3, 3)
		det, err := la.MatInv(dRdx, dxdR, 1e-14)
		if err != nil || det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
			return nil, false
		}
		dr := dRdx[0][0]*F[0] + dRdx[0][1]*F[1] + dRdx[0][2]*F[2]
		ds := dRdx[1][0]*F[0] + dRdx[1][1]*F[1] + dRdx[1][2]*F[2]
		dt := dRdx[2][0]*F[0] + dRdx[2][1]*F[1] + dRdx[2][2]*F[2]
		r -= dr
		s -= ds
		t -= dt
	}
	if math.IsNaN(r) || math.IsNaN(s) || math.IsNaN(t) || math.IsInf(r, 0) || math.IsInf(s, 0) || math.IsInf(t, 0) {
		return nil, false
	}
	if r < 0 || r > 1 || s < 0 || s > 1 || t < 0 || t > 1 {
		return nil, false
	}
	shp(S, dSdR, r, s, t, false)
	return append([]float64(nil), S...), true
}

// tetBarycentric solves the affine map for a linear tetrahedron in
// closed form: q = v0 + r(v1-v0) + s(v2-v0) + t(v3-v0).
func tetBarycentric(verts [][3]float64, q [3]float64) (weights []float64, ok bool) {
	A := la.MatAlloc(3, 3)
	for d := 0; d < 3; d++ {
		A[d][0] = verts[1][d] - verts[0][d]
		A[d][1] = verts[2][d] - verts[0][d]
		A[d][2] = verts[3][d] - verts[0][d]
	}
	Ainv := la.MatAlloc(3, 3)
	det, err := la.MatInv(Ainv, A, 1e-14)
	if err != nil || det == 0 {
		return nil, false
	}
	b := [3]float64{q[0] - verts[0][0], q[1] - verts[0][1], q[2] - verts[0][2]}
	r := Ainv[0][0]*b[0] + Ainv[0][1]*b[1] + Ainv[0][2]*b[2]
	s := Ainv[1][0]*b[0] + Ainv[1][1]*b[1] + Ainv[1][2]*b[2]
	t := Ainv[2][0]*b[0] + Ainv[2][1]*b[1] + Ainv[2][2]*b[2]
	if math.IsNaN(r) || math.IsNaN(s) || math.IsNaN(t) {
		return nil, false
	}
	if r < 0 || r > 1 || s < 0 || s > 1 || t < 0 || t > 1 || r+s+t > 1 {
		return nil, false
	}
	return []float64{1 - r - s - t, r, s, t}, true
}

// InverseDistanceWeights is the fallback used when the Lagrange inverse
// map fails to converge to an interior point: inverse-distance weights
// on a unit-normalized copy of the vertices, so the scale of the cell
// does not affect conditioning.
func InverseDistanceWeights(verts [][3]float64, q [3]float64) []float64 {
	var centroid [3]float64
	for _, v := range verts {
		for d := 0; d < 3; d++ {
			centroid[d] += v[d]
		}
	}
	n := float64(len(verts))
	for d := 0; d < 3; d++ {
		centroid[d] /= n
	}
	var maxExt float64
	norm := make([][3]float64, len(verts))
	for i, v := range verts {
		for d := 0; d < 3; d++ {
			norm[i][d] = v[d] - centroid[d]
		}
		e := math.Sqrt(norm[i][0]*norm[i][0] + norm[i][1]*norm[i][1] + norm[i][2]*norm[i][2])
		if e > maxExt {
			maxExt = e
		}
	}
	if maxExt == 0 {
		maxExt = 1
	}
	nq := [3]float64{(q[0] - centroid[0]) / maxExt, (q[1] - centroid[1]) / maxExt, (q[2] - centroid[2]) / maxExt}
	weights := make([]float64, len(verts))
	var sum float64
	const eps = 1e-12
	for i := range verts {
		p := [3]float64{norm[i][0] / maxExt, norm[i][1] / maxExt, norm[i][2] / maxExt}
		d := math.Sqrt((p[0]-nq[0])*(p[0]-nq[0]) + (p[1]-nq[1])*(p[1]-nq[1]) + (p[2]-nq[2])*(p[2]-nq[2]))
		w := 1 / (d + eps)
		weights[i] = w
		sum += w
	}
	if sum > 0 {
		for i := range weights {
			weights[i] /= sum
		}
	}
	return weights
}

// LagrangeWeights is a weight calculator that tries the Lagrange inverse
// map and falls back to inverse-distance weights on failure.
func LagrangeWeights(cellType mesh.CellType, verts [][3]float64, q [3]float64) []float64 {
	if w, ok := InverseMap(cellType, verts, q); ok {
		return w
	}
	return InverseDistanceWeights(verts, q)
}

func evalPos(S []float64, verts [][3]float64) [3]float64 {
	var p [3]float64
	for i, s := range S {
		for d := 0; d < 3; d++ {
			p[d] += s * verts[i][d]
		}
	}
	return p
}

func infNorm(v [3]float64) float64 {
	m := math.Abs(v[0])
	if a := math.Abs(v[1]); a > m {
		m = a
	}
	if a := math.Abs(v[2]); a > m {
		m = a
	}
	return m
}
