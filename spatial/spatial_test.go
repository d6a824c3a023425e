// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spatial

import (
	"math"
	"math/rand"
	"testing"

	"github.com/cpmech/goverset/mesh"
	"github.com/cpmech/gosl/chk"
)

// bruteForceNearest mirrors testable property 6: the octree's nearest
// point must agree with a brute-force scan within 1e-12 relative to the
// diagonal.
func bruteForceNearest(pts []PointSegment, q [3]float64) (point [3]float64, d float64) {
	best := -1.0
	for _, s := range pts {
		dd := distSq(s.P, q)
		if best < 0 || dd < best {
			best = dd
			point = s.P
		}
	}
	return point, best
}

func Test_octree01_nearest(tst *testing.T) {
	chk.PrintTitle("octree01: nearest point matches brute force")
	rng := rand.New(rand.NewSource(42))
	n := 500
	pts := make([]PointSegment, n)
	items := make([]Segment, n)
	for i := 0; i < n; i++ {
		p := [3]float64{rng.Float64()*10 - 5, rng.Float64()*10 - 5, rng.Float64()*10 - 5}
		pts[i] = PointSegment{P: p}
		items[i] = pts[i]
	}
	tree := NewOctree(items, 8)
	diag := math.Sqrt(3 * 10 * 10)
	for q := 0; q < 50; q++ {
		query := [3]float64{rng.Float64()*12 - 6, rng.Float64()*12 - 6, rng.Float64()*12 - 6}
		gotPoint, gotDSq, _, ok := tree.NearestPoint(query)
		if !ok {
			tst.Fatalf("expected a nearest point")
		}
		wantPoint, wantDSq := bruteForceNearest(pts, query)
		if math.Abs(gotDSq-wantDSq) > 1e-12*diag*diag {
			tst.Errorf("query %v: got dsq=%v want=%v (points %v vs %v)", query, gotDSq, wantDSq, gotPoint, wantPoint)
		}
	}
}

func Test_kdtree01_nearest(tst *testing.T) {
	chk.PrintTitle("kdtree01: single nearest neighbor")
	pts := [][3]float64{{0, 0, 0}, {10, 0, 0}, {0, 10, 0}, {5, 5, 5}}
	tree := NewKDTree(pts)
	idx, dsq, ok := tree.Nearest([3]float64{4, 4, 4})
	if !ok {
		tst.Fatalf("expected a match")
	}
	if idx != 3 {
		tst.Errorf("expected closest point index 3, got %d", idx)
	}
	chk.Scalar(tst, "dsq", 1e-12, dsq, 3.0)
}

func Test_cartblock01_dims(tst *testing.T) {
	chk.PrintTitle("cartblock01: dims respect the cell cap")
	e := mesh.Extent{Lo: [3]float64{0, 0, 0}, Hi: [3]float64{1, 1, 1}}
	nx, ny, nz := PickDims(e, 1000)
	if nx*ny*nz > 1000 {
		tst.Errorf("cell count %d exceeds cap", nx*ny*nz)
	}
}
