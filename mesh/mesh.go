// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package mesh holds the node/cell/boundary-face data model and the
// read-only HostView the rest of the pipeline consumes. Types here are
// plain values, not pointer-linked structures: global ids are dense
// 64-bit keys into arena-style slices, the same dense-index idiom a
// finite-element domain uses for its own global-to-local maps.
package mesh

import "math"

// CellType enumerates the four supported volume element shapes.
type CellType int

const (
	Tet CellType = iota
	Pyramid
	Prism
	Hex
)

// NodeCount returns how many vertices a cell of this type carries.
func (t CellType) NodeCount() int {
	switch t {
	case Tet:
		return 4
	case Pyramid:
		return 5
	case Prism:
		return 6
	case Hex:
		return 8
	}
	return 0
}

func (t CellType) String() string {
	switch t {
	case Tet:
		return "tet"
	case Pyramid:
		return "pyramid"
	case Prism:
		return "prism"
	case Hex:
		return "hex"
	}
	return "unknown"
}

// BCTag enumerates the boundary-condition tags a boundary face may
// carry.
type BCTag int

const (
	NotABoundary BCTag = iota
	Solid
	Interpolation
	SymmetryX
	SymmetryY
	SymmetryZ
	Irrelevant
)

// Scalar is the numeric kind a HostView's coordinates are expressed in:
// real for ordinary assembly passes, complex128 for adjoint-differentiated
// builds that carry a small imaginary perturbation (the complex-
// differentiated mode used for sensitivity analysis).
type Scalar interface {
	~float64 | ~complex128
}

// Real extracts the real part of any Scalar, giving the core geometry
// algorithms (which only ever need real coordinates) one conversion
// point regardless of which HostView kind is in use.
func Real[T Scalar](v T) float64 {
	switch x := any(v).(type) {
	case float64:
		return x
	case complex128:
		return real(x)
	}
	return 0
}

// HostView is the read-only accessor the host solver supplies for one
// local mesh partition. It is not expected to cache anything; a view is
// only used during a single assembly pass. T is float64 for ordinary
// builds, complex128 for adjoint-differentiated ones.
type HostView[T Scalar] interface {
	NodeCount() int
	CellCount() int
	FaceCount() int

	NodePosition(i int) [3]T
	NodeGlobalID(i int) uint64
	NodeOwner(i int) int
	NodeComponent(i int) int
	NodeBCTag(i int) BCTag

	CellType(i int) CellType
	CellNodes(i int) []int

	FaceNodes(i int) []int
	FaceBCTag(i int) BCTag
}

// View is the real-valued HostView the whole assembly pipeline operates
// on; complex-differentiated builds adapt their HostView[complex128] down
// to a View via RealOf before handing it to the pipeline.
type View = HostView[float64]

// realAdapter projects a complex HostView down to its real coordinates.
type realAdapter struct {
	inner HostView[complex128]
}

func (a realAdapter) NodeCount() int { return a.inner.NodeCount() }
func (a realAdapter) CellCount() int { return a.inner.CellCount() }
func (a realAdapter) FaceCount() int { return a.inner.FaceCount() }
func (a realAdapter) NodePosition(i int) [3]float64 {
	p := a.inner.NodePosition(i)
	return [3]float64{real(p[0]), real(p[1]), real(p[2])}
}
func (a realAdapter) NodeGlobalID(i int) uint64  { return a.inner.NodeGlobalID(i) }
func (a realAdapter) NodeOwner(i int) int        { return a.inner.NodeOwner(i) }
func (a realAdapter) NodeComponent(i int) int    { return a.inner.NodeComponent(i) }
func (a realAdapter) NodeBCTag(i int) BCTag      { return a.inner.NodeBCTag(i) }
func (a realAdapter) CellType(i int) CellType    { return a.inner.CellType(i) }
func (a realAdapter) CellNodes(i int) []int      { return a.inner.CellNodes(i) }
func (a realAdapter) FaceNodes(i int) []int      { return a.inner.FaceNodes(i) }
func (a realAdapter) FaceBCTag(i int) BCTag      { return a.inner.FaceBCTag(i) }

// RealOf adapts a complex-differentiated view to the real-valued View the
// pipeline consumes.
func RealOf(v HostView[complex128]) View { return realAdapter{inner: v} }

// ArrayView is a simple in-memory HostView used by tests and the
// demonstration CLI: plain slices, no host-solver callbacks.
type ArrayView struct {
	Positions  [][3]float64
	GlobalIDs  []uint64
	Owners     []int
	Components []int
	NodeTags   []BCTag
	Types      []CellType
	Cells      [][]int
	Faces      [][]int
	FaceTags   []BCTag
}

func (a *ArrayView) NodeCount() int              { return len(a.Positions) }
func (a *ArrayView) CellCount() int               { return len(a.Cells) }
func (a *ArrayView) FaceCount() int                { return len(a.Faces) }
func (a *ArrayView) NodePosition(i int) [3]float64 { return a.Positions[i] }
func (a *ArrayView) NodeGlobalID(i int) uint64      { return a.GlobalIDs[i] }
func (a *ArrayView) NodeOwner(i int) int            { return a.Owners[i] }
func (a *ArrayView) NodeComponent(i int) int        { return a.Components[i] }
func (a *ArrayView) NodeBCTag(i int) BCTag          { return a.NodeTags[i] }
func (a *ArrayView) CellType(i int) CellType        { return a.Types[i] }
func (a *ArrayView) CellNodes(i int) []int          { return a.Cells[i] }
func (a *ArrayView) FaceNodes(i int) []int          { return a.Faces[i] }
func (a *ArrayView) FaceBCTag(i int) BCTag          { return a.FaceTags[i] }

var _ View = (*ArrayView)(nil)

// CellOwner derives a cell's owning rank as the owner of its
// lowest-global-id node.
func CellOwner(v View, cellNodes []int) int {
	owner := -1
	var best uint64
	for i, n := range cellNodes {
		gid := v.NodeGlobalID(n)
		if i == 0 || gid < best {
			best = gid
			owner = v.NodeOwner(n)
		}
	}
	return owner
}

// Extent is an axis-aligned bounding box.
type Extent struct {
	Lo, Hi [3]float64
}

// Union returns the smallest extent covering both e and o.
func (e Extent) Union(o Extent) Extent {
	out := e
	for d := 0; d < 3; d++ {
		if o.Lo[d] < out.Lo[d] {
			out.Lo[d] = o.Lo[d]
		}
		if o.Hi[d] > out.Hi[d] {
			out.Hi[d] = o.Hi[d]
		}
	}
	return out
}

// Intersects reports whether e and o overlap (touching counts as overlap).
func (e Extent) Intersects(o Extent) bool {
	for d := 0; d < 3; d++ {
		if e.Hi[d] < o.Lo[d] || o.Hi[d] < e.Lo[d] {
			return false
		}
	}
	return true
}

// Contains reports whether point p lies within the extent.
func (e Extent) Contains(p [3]float64) bool {
	for d := 0; d < 3; d++ {
		if p[d] < e.Lo[d] || p[d] > e.Hi[d] {
			return false
		}
	}
	return true
}

// Diag returns the extent's diagonal length.
func (e Extent) Diag() float64 {
	var s float64
	for d := 0; d < 3; d++ {
		dx := e.Hi[d] - e.Lo[d]
		s += dx * dx
	}
	return math.Sqrt(s)
}

// ClosestPoint clamps p onto the extent, giving the nearest point on or
// inside the box to p (used by the octree's best-first traversal).
func (e Extent) ClosestPoint(p [3]float64) [3]float64 {
	var out [3]float64
	for d := 0; d < 3; d++ {
		v := p[d]
		if v < e.Lo[d] {
			v = e.Lo[d]
		}
		if v > e.Hi[d] {
			v = e.Hi[d]
		}
		out[d] = v
	}
	return out
}

// CellExtent computes the bounding box of a cell given its node indices.
func CellExtent(v View, nodeIdx []int) Extent {
	p0 := v.NodePosition(nodeIdx[0])
	e := Extent{Lo: p0, Hi: p0}
	for _, n := range nodeIdx[1:] {
		p := v.NodePosition(n)
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
