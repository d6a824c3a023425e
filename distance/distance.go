// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package distance implements the chunked parallel nearest-surface
// distance calculator: every fragment node starts at √(FLT_MAX), then
// for each component's solid-surface point set, chunks of it are
// gathered to every rank and used to tighten a running minimum via a
// local KD-tree.
package distance

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/cpmech/goverset/spatial"
	"github.com/cpmech/goverset/xmpi"
)

// InitialDistance is the sentinel every fragment node starts at before
// any surface has tightened it: √(FLT_MAX).
var InitialDistance = math.Sqrt(math.MaxFloat32)

// NodeSet is the flat set of fragment-node positions and component ids
// the calculator updates in place.
type NodeSet struct {
	Positions  [][3]float64
	Components []int
}

// PickMaxChunk picks a default chunk size so a component's globally
// collected surface points split into about 5 rounds.
func PickMaxChunk(totalPoints int) int {
	if totalPoints <= 0 {
		return 1
	}
	chunk := totalPoints / 5
	if chunk < 1 {
		chunk = 1
	}
	return chunk
}

// Compute returns one distance per node in nodes, the nearest distance
// to the solid surface of any component other than the node's own.
// localSurfacePoints[c] is this rank's locally known portion of
// component c's surface point cloud; ranks' portions are gathered
// together before chunking, since xmpi has no range-indexed Gather to
// extract an exact [start,end) slice of the global concatenation the
// way the original chunked gatherer does (see DESIGN.md). importance, if
// non-nil, rescales each component's contribution per step 3 ("divide by
// 1.1 · importance[c]").
func Compute(comm *xmpi.Comm, nodes NodeSet, localSurfacePoints map[int][][3]float64, maxChunk int, importance map[int]float64) []float64 {
	distances := make([]float64, len(nodes.Positions))
	for i := range distances {
		distances[i] = InitialDistance
	}

	components := make([]int, 0, len(localSurfacePoints))
	for c := range localSurfacePoints {
		components = append(components, c)
	}
	sort.Ints(components)

	for _, c := range components {
		allPoints := gatherComponentPoints(comm, localSurfacePoints[c])
		if len(allPoints) == 0 {
			continue
		}
		chunk := maxChunk
		if chunk <= 0 {
			chunk = PickMaxChunk(len(allPoints))
		}
		numChunks := len(allPoints)/chunk + 1
		for round := 0; round < numChunks; round++ {
			lo := round * chunk
			if lo >= len(allPoints) {
				break
			}
			hi := lo + chunk
			if hi > len(allPoints) {
				hi = len(allPoints)
			}
			tree := spatial.NewKDTree(allPoints[lo:hi])
			for i, comp := range nodes.Components {
				if comp == c {
					continue
				}
				_, dSq, ok := tree.Nearest(nodes.Positions[i])
				if !ok {
					continue
				}
				if d := math.Sqrt(dSq); d < distances[i] {
					distances[i] = d
				}
			}
		}
	}

	if importance != nil {
		for i, comp := range nodes.Components {
			if imp, ok := importance[comp]; ok && imp > 0 {
				distances[i] /= 1.1 * imp
			}
		}
	}
	return distances
}

// gatherComponentPoints concatenates every rank's local points for one
// component, in rank order, via xmpi.Comm.AllGatherBytes.
func gatherComponentPoints(comm *xmpi.Comm, local [][3]float64) [][3]float64 {
	payload := make([]byte, len(local)*24)
	for i, p := range local {
		base := i * 24
		binary.LittleEndian.PutUint64(payload[base:], math.Float64bits(p[0]))
		binary.LittleEndian.PutUint64(payload[base+8:], math.Float64bits(p[1]))
		binary.LittleEndian.PutUint64(payload[base+16:], math.Float64bits(p[2]))
	}
	gathered := comm.AllGatherBytes(payload)
	var out [][3]float64
	for _, buf := range gathered {
		n := len(buf) / 24
		for i := 0; i < n; i++ {
			base := i * 24
			out = append(out, [3]float64{
				math.Float64frombits(binary.LittleEndian.Uint64(buf[base:])),
				math.Float64frombits(binary.LittleEndian.Uint64(buf[base+8:])),
				math.Float64frombits(binary.LittleEndian.Uint64(buf[base+16:])),
			})
		}
	}
	return out
}
