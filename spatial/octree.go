// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package spatial implements three spatial indexes: an octree over
// arbitrary extent-bearing payloads, a KD-tree over a point cloud, and a
// uniform Cartesian block. This is original geometry code rather than a
// library wire-up; see DESIGN.md.
package spatial

import (
	"container/heap"

	"github.com/cpmech/goverset/mesh"
)

// Segment is a polymorphic geometry payload item behind a shared
// interface rather than an inheritance hierarchy. This package provides
// PointSegment and TriangleSegment; it has no line or quadratic-triangle
// variant.
type Segment interface {
	Extent() mesh.Extent
	ClosestPoint(p [3]float64) [3]float64
	IntersectsExtent(e mesh.Extent) bool
}

// DefaultMaxLeafItems is the default split threshold K.
const DefaultMaxLeafItems = 20

// isotropicExpand makes an extent cube-shaped (longest side wins) and
// pads it by 0.1% to avoid edge coincidence with payload items exactly
// on the boundary.
func isotropicExpand(e mesh.Extent) mesh.Extent {
	var longest float64
	for d := 0; d < 3; d++ {
		side := e.Hi[d] - e.Lo[d]
		if side > longest {
			longest = side
		}
	}
	if longest == 0 {
		longest = 1
	}
	pad := longest * 0.001
	longest += pad
	var out mesh.Extent
	for d := 0; d < 3; d++ {
		mid := 0.5 * (e.Hi[d] + e.Lo[d])
		out.Lo[d] = mid - 0.5*longest
		out.Hi[d] = mid + 0.5*longest
	}
	return out
}

type octNode struct {
	extent   mesh.Extent
	items    []int // indices into Octree.items, only populated on leaves
	children [8]int
	isLeaf   bool
}

// Octree is an axis-aligned, isotropic octree over Segment payloads.
type Octree struct {
	items    []Segment
	nodes    []octNode
	maxLeaf  int
}

// NewOctree builds an octree over items, splitting leaves with more than
// maxLeaf items (0 selects DefaultMaxLeafItems).
func NewOctree(items []Segment, maxLeaf int) *Octree {
	if maxLeaf <= 0 {
		maxLeaf = DefaultMaxLeafItems
	}
	o := &Octree{items: items, maxLeaf: maxLeaf}
	if len(items) == 0 {
		o.nodes = []octNode{{isLeaf: true}}
		return o
	}
	root := items[0].Extent()
	for _, it := range items[1:] {
		root = root.Union(it.Extent())
	}
	root = isotropicExpand(root)
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	o.nodes = append(o.nodes, octNode{extent: root})
	o.build(0, idx)
	return o
}

func (o *Octree) build(nodeIdx int, items []int) {
	n := &o.nodes[nodeIdx]
	if len(items) <= o.maxLeaf {
		n.isLeaf = true
		n.items = items
		return
	}

	center := [3]float64{
		0.5 * (n.extent.Lo[0] + n.extent.Hi[0]),
		0.5 * (n.extent.Lo[1] + n.extent.Hi[1]),
		0.5 * (n.extent.Lo[2] + n.extent.Hi[2]),
	}

	childExtents := make([]mesh.Extent, 8)
	for c := 0; c < 8; c++ {
		var lo, hi [3]float64
		for d := 0; d < 3; d++ {
			if c&(1<<uint(d)) == 0 {
				lo[d], hi[d] = n.extent.Lo[d], center[d]
			} else {
				lo[d], hi[d] = center[d], n.extent.Hi[d]
			}
		}
		childExtents[c] = mesh.Extent{Lo: lo, Hi: hi}
	}

	childItems := make([][]int, 8)
	for _, it := range items {
		ie := o.items[it].Extent()
		for c := 0; c < 8; c++ {
			if ie.Intersects(childExtents[c]) {
				childItems[c] = append(childItems[c], it)
			}
		}
	}

	// if splitting did not actually separate the set (every item
	// straddles every child, e.g. items all larger than the cell) stop
	// recursing to avoid infinite subdivision.
	allSame := true
	for c := 0; c < 8; c++ {
		if len(childItems[c]) != len(items) {
			allSame = false
			break
		}
	}
	if allSame {
		n.isLeaf = true
		n.items = items
		return
	}

	for c := 0; c < 8; c++ {
		childIdx := len(o.nodes)
		o.nodes = append(o.nodes, octNode{extent: childExtents[c]})
		n = &o.nodes[nodeIdx] // re-fetch: append may have reallocated
		n.children[c] = childIdx
		o.build(childIdx, childItems[c])
		n = &o.nodes[nodeIdx]
	}
}

// heapEntry is a candidate voxel in the best-first traversal, keyed by
// squared distance from the query point to the voxel's clamp-to-extent
// point.
type heapEntry struct {
	nodeIdx  int
	itemIdx  int // -1 for an internal/leaf extent, >=0 for a concrete item
	distSq   float64
}

type entryHeap []heapEntry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].distSq < h[j].distSq }
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x interface{}) { *h = append(*h, x.(heapEntry)) }
func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func distSq(a, b [3]float64) float64 {
	dx, dy, dz := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return dx*dx + dy*dy + dz*dz
}

// NearestPoint returns the closest point on any indexed surface segment
// to q, its squared distance, and the owning Segment. Traversal is
// iterative best-first over a min-heap keyed by squared distance from q
// to each voxel's clamp-to-extent point, pruning against the best
// distance found so far.
func (o *Octree) NearestPoint(q [3]float64) (point [3]float64, distanceSq float64, seg Segment, ok bool) {
	if len(o.items) == 0 {
		return point, 0, nil, false
	}
	h := &entryHeap{}
	heap.Init(h)
	push := func(nodeIdx int) {
		cp := o.nodes[nodeIdx].extent.ClosestPoint(q)
		heap.Push(h, heapEntry{nodeIdx: nodeIdx, itemIdx: -1, distSq: distSq(cp, q)})
	}
	push(0)

	best := -1.0
	for h.Len() > 0 {
		e := heap.Pop(h).(heapEntry)
		if best >= 0 && e.distSq > best {
			break
		}
		if e.itemIdx >= 0 {
			cp := o.items[e.itemIdx].ClosestPoint(q)
			d := distSq(cp, q)
			if best < 0 || d < best {
				best = d
				point = cp
				seg = o.items[e.itemIdx]
				ok = true
			}
			continue
		}
		n := o.nodes[e.nodeIdx]
		if n.isLeaf {
			for _, it := range n.items {
				cp := o.items[it].ClosestPoint(q)
				heap.Push(h, heapEntry{nodeIdx: e.nodeIdx, itemIdx: it, distSq: distSq(cp, q)})
			}
			continue
		}
		for _, c := range n.children {
			push(c)
		}
	}
	return
}

// Extent returns the octree's root bounding box, the isotropic cube
// covering every indexed item. Returns the zero Extent for an empty tree.
func (o *Octree) Extent() mesh.Extent {
	if len(o.nodes) == 0 {
		return mesh.Extent{}
	}
	return o.nodes[0].extent
}

// Len reports how many items the tree indexes, so a caller can skip an
// empty tree rather than routing queries to it.
func (o *Octree) Len() int { return len(o.items) }

// Containment returns every item whose extent intersects q.
func (o *Octree) Containment(q mesh.Extent) []Segment {
	if len(o.items) == 0 {
		return nil
	}
	var out []Segment
	seen := make(map[int]bool)
	stack := []int{0}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := o.nodes[idx]
		if !n.extent.Intersects(q) {
			continue
		}
		if n.isLeaf {
			for _, it := range n.items {
				if seen[it] {
					continue
				}
				if o.items[it].Extent().Intersects(q) {
					seen[it] = true
					out = append(out, o.items[it])
				}
			}
			continue
		}
		stack = append(stack, n.children[:]...)
	}
	return out
}
