// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spatial

import "github.com/cpmech/goverset/mesh"

// PointSegment is a degenerate Segment wrapping a single surface point;
// used when the octree indexes raw surface point clouds rather than
// facets.
type PointSegment struct {
	P [3]float64
}

func (s PointSegment) Extent() mesh.Extent { return mesh.Extent{Lo: s.P, Hi: s.P} }
func (s PointSegment) ClosestPoint(p [3]float64) [3]float64 { return s.P }
func (s PointSegment) IntersectsExtent(e mesh.Extent) bool  { return e.Contains(s.P) }

// TriangleSegment is a flat triangular facet payload item.
type TriangleSegment struct {
	A, B, C [3]float64
}

func (s TriangleSegment) Extent() mesh.Extent {
	e := mesh.Extent{Lo: s.A, Hi: s.A}
	for _, p := range [][3]float64{s.B, s.C} {
		for d := 0; d < 3; d++ {
			if p[d] < e.Lo[d] {
				e.Lo[d] = p[d]
			}
			if p[d] > e.Hi[d] {
				e.Hi[d] = p[d]
			}
		}
	}
	return e
}

func (s TriangleSegment) IntersectsExtent(e mesh.Extent) bool {
	return s.Extent().Intersects(e)
}

// ClosestPoint projects p onto the triangle's plane, clamps to the
// triangle using barycentric region tests, a standard closest-point-on-
// triangle routine (Ericson, Real-Time Collision Detection §5.1.5).
func (s TriangleSegment) ClosestPoint(p [3]float64) [3]float64 {
	ab := sub(s.B, s.A)
	ac := sub(s.C, s.A)
	ap := sub(p, s.A)
	d1 := dot(ab, ap)
	d2 := dot(ac, ap)
	if d1 <= 0 && d2 <= 0 {
		return s.A
	}
	bp := sub(p, s.B)
	d3 := dot(ab, bp)
	d4 := dot(ac, bp)
	if d3 >= 0 && d4 <= d3 {
		return s.B
	}
	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return add(s.A, scale(ab, v))
	}
	cp := sub(p, s.C)
	d5 := dot(ab, cp)
	d6 := dot(ac, cp)
	if d6 >= 0 && d5 <= d6 {
		return s.C
	}
	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return add(s.A, scale(ac, w))
	}
	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return add(s.B, scale(sub(s.C, s.B), w))
	}
	denom := 1.0 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return add(add(s.A, scale(ab, v)), scale(ac, w))
}

func sub(a, b [3]float64) [3]float64 { return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func add(a, b [3]float64) [3]float64 { return [3]float64{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }
func scale(a [3]float64, s float64) [3]float64 { return [3]float64{a[0] * s, a[1] * s, a[2] * s} }
func dot(a, b [3]float64) float64   { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }
