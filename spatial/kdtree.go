// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spatial

import "sort"

// KDTree is a 3-D kd-tree over a point cloud, one per component's solid
// surface. Queries return squared distance; callers take the square
// root.
type KDTree struct {
	points [][3]float64
	ids    []int // original index of each point, preserved through the build
	axis   []int8
	left   []int32
	right  []int32
	root   int32
}

// NewKDTree builds a balanced kd-tree over points by recursively
// splitting on the median of the widest axis.
func NewKDTree(points [][3]float64) *KDTree {
	t := &KDTree{points: points}
	idx := make([]int, len(points))
	for i := range idx {
		idx[i] = i
	}
	t.ids = make([]int, len(points))
	t.axis = make([]int8, len(points))
	t.left = make([]int32, len(points))
	t.right = make([]int32, len(points))
	for i := range t.left {
		t.left[i] = -1
		t.right[i] = -1
	}
	if len(points) == 0 {
		t.root = -1
		return t
	}
	t.root = int32(t.build(idx, 0))
	return t
}

// build recursively partitions idx (indices into t.points) and returns
// the slot used for this subtree's root node; nodes are stored by slot
// equal to their position in a depth-first build order over 0..n-1.
func (t *KDTree) build(idx []int, slotBase int) int {
	if len(idx) == 0 {
		return -1
	}
	ax := widestAxis(t.points, idx)
	sort.Slice(idx, func(i, j int) bool { return t.points[idx[i]][ax] < t.points[idx[j]][ax] })
	mid := len(idx) / 2
	slot := slotBase
	t.ids[slot] = idx[mid]
	t.axis[slot] = int8(ax)
	leftIdx := idx[:mid]
	rightIdx := idx[mid+1:]
	if len(leftIdx) > 0 {
		t.left[slot] = int32(t.build(leftIdx, slotBase+1))
	}
	if len(rightIdx) > 0 {
		t.right[slot] = int32(t.build(rightIdx, slotBase+1+len(leftIdx)))
	}
	return slot
}

func widestAxis(points [][3]float64, idx []int) int {
	var lo, hi [3]float64
	lo, hi = points[idx[0]], points[idx[0]]
	for _, i := range idx[1:] {
		p := points[i]
		for d := 0; d < 3; d++ {
			if p[d] < lo[d] {
				lo[d] = p[d]
			}
			if p[d] > hi[d] {
				hi[d] = p[d]
			}
		}
	}
	best, bestSpread := 0, hi[0]-lo[0]
	for d := 1; d < 3; d++ {
		if s := hi[d] - lo[d]; s > bestSpread {
			best, bestSpread = d, s
		}
	}
	return best
}

// Nearest returns the index (into the original points slice) and squared
// distance of the point closest to q.
func (t *KDTree) Nearest(q [3]float64) (idx int, distanceSq float64, ok bool) {
	if t.root < 0 {
		return 0, 0, false
	}
	best := -1
	bestD := -1.0
	var walk func(slot int32)
	walk = func(slot int32) {
		if slot < 0 {
			return
		}
		pid := t.ids[slot]
		d := distSq(t.points[pid], q)
		if bestD < 0 || d < bestD {
			bestD = d
			best = pid
		}
		ax := int(t.axis[slot])
		diff := q[ax] - t.points[pid][ax]
		near, far := t.left[slot], t.right[slot]
		if diff > 0 {
			near, far = t.right[slot], t.left[slot]
		}
		walk(near)
		if bestD < 0 || diff*diff < bestD {
			walk(far)
		}
	}
	walk(t.root)
	if best < 0 {
		return 0, 0, false
	}
	return best, bestD, true
}
