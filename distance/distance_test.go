// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package distance

import (
	"testing"

	"github.com/cpmech/goverset/xmpi"
	"github.com/cpmech/gosl/chk"
)

// Test_computeNearestSurface checks that a node of component 0 measures
// its distance to component 1's single surface point, and that a node of
// component 1 is left untouched (no other component's surface was
// provided).
func Test_computeNearestSurface(tst *testing.T) {
	chk.PrintTitle("distance: nearest surface distance for the opposite component")
	comm := xmpi.New()
	nodes := NodeSet{
		Positions:  [][3]float64{{0, 0, 0}, {5, 5, 5}},
		Components: []int{0, 1},
	}
	surfaces := map[int][][3]float64{
		1: {{3, 4, 0}}, // distance from (0,0,0) is 5
	}
	dist := Compute(comm, nodes, surfaces, 0, nil)
	chk.Scalar(tst, "component-0 node distance", 1e-12, dist[0], 5.0)
	if dist[1] != InitialDistance {
		tst.Fatalf("expected component-1 node to keep its initial distance, got %g", dist[1])
	}
}

// Test_importanceRescale checks that providing a grid-importance factor
// divides the measured distance by 1.1*importance.
func Test_importanceRescale(tst *testing.T) {
	chk.PrintTitle("distance: importance rescale shortens effective distance")
	comm := xmpi.New()
	nodes := NodeSet{Positions: [][3]float64{{0, 0, 0}}, Components: []int{0}}
	surfaces := map[int][][3]float64{1: {{10, 0, 0}}}
	importance := map[int]float64{0: 2.0}
	dist := Compute(comm, nodes, surfaces, 0, importance)
	want := 10.0 / (1.1 * 2.0)
	chk.Scalar(tst, "rescaled distance", 1e-9, dist[0], want)
}

// Test_pickMaxChunk checks the "about 5 rounds" default.
func Test_pickMaxChunk(tst *testing.T) {
	chk.PrintTitle("distance: default chunk size targets ~5 rounds")
	if got := PickMaxChunk(1000); got != 200 {
		tst.Fatalf("expected chunk size 200, got %d", got)
	}
	if got := PickMaxChunk(0); got != 1 {
		tst.Fatalf("expected chunk size 1 for zero points, got %d", got)
	}
}
