// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package xmpi wraps the gosl/mpi collectives used across the assembly
// pipeline: Gather, Broadcast, ElementalMax, ParallelSum,
// ParallelMin, Barrier, and the paired all-to-all Exchange. Every other
// package that needs cross-rank communication goes through a *Comm
// rather than calling gosl/mpi directly, so the collective surface stays
// in one place.
package xmpi

import (
	"github.com/cpmech/gosl/mpi"
)

// Comm is a thin handle on the process group. It carries no state beyond
// rank/size; gosl/mpi itself owns the communicator.
type Comm struct {
	rank int
	size int
	on   bool
}

// New returns a handle on the current process group. Safe to call even
// when MPI was never started (single-rank serial runs): Size() reports 1
// and every collective becomes a no-op pass-through.
func New() *Comm {
	c := &Comm{on: mpi.IsOn()}
	if c.on {
		c.rank = mpi.Rank()
		c.size = mpi.Size()
	} else {
		c.rank = 0
		c.size = 1
	}
	return c
}

func (c *Comm) Rank() int { return c.rank }
func (c *Comm) Size() int { return c.size }
func (c *Comm) Root() bool { return c.rank == 0 }

// Barrier blocks until every rank arrives.
func (c *Comm) Barrier() {
	if c.on {
		mpi.Barrier()
	}
}

// ElementalMaxInt performs an in-place element-wise MAX reduction across
// all ranks, using gosl/mpi's mpi.IntAllReduceMax(dest, workspace) idiom.
func (c *Comm) ElementalMaxInt(buf []int) {
	if !c.on || c.size == 1 {
		return
	}
	work := make([]int, len(buf))
	mpi.IntAllReduceMax(buf, work)
}

// ParallelSum performs an in-place element-wise sum reduction across all
// ranks, using gosl/mpi's mpi.AllReduceSum(dest, workspace) idiom.
func (c *Comm) ParallelSum(buf []float64) {
	if !c.on || c.size == 1 {
		return
	}
	work := make([]float64, len(buf))
	mpi.AllReduceSum(buf, work)
}

// ParallelMin performs an in-place element-wise MIN reduction across all
// ranks.
func (c *Comm) ParallelMin(buf []float64) {
	if !c.on || c.size == 1 {
		return
	}
	work := make([]float64, len(buf))
	mpi.AllReduceMin(buf, work)
}

// Broadcast sends buf from root to every rank, in place.
func (c *Comm) Broadcast(root int, buf []float64) {
	if !c.on || c.size == 1 {
		return
	}
	mpi.BcastFromRoot(root, buf)
}

// Exchange runs the paired all-to-all used after fragment balancing
// (§4.6), after donor-candidate search (§4.7), and in the inverse-receptor
// phase (§4.10): every rank sends a (possibly empty) byte payload to every
// other rank and receives one back. Every rank visits its peers in
// ascending rank order, and within each pair the lower rank sends first
// while the higher rank receives first, so no two ranks block waiting on
// each other.
func (c *Comm) Exchange(outgoing map[int][]byte) map[int][]byte {
	incoming := make(map[int][]byte, len(outgoing))
	if !c.on || c.size == 1 {
		if b, ok := outgoing[c.rank]; ok {
			incoming[c.rank] = b
		}
		return incoming
	}
	for step := 0; step < c.size; step++ {
		peer := step
		if peer == c.rank {
			if b, ok := outgoing[c.rank]; ok {
				incoming[c.rank] = b
			}
			continue
		}
		if c.rank < peer {
			sendBytes(peer, outgoing[peer])
			incoming[peer] = recvBytes(peer)
		} else {
			incoming[peer] = recvBytes(peer)
			sendBytes(peer, outgoing[peer])
		}
	}
	return incoming
}

// AllGatherBytes broadcasts payload from every rank to every rank, built
// on top of Exchange rather than a dedicated gosl/mpi primitive: the
// balancer's global recursive-bisection step (§4.6) needs every rank to
// see every other rank's agglomerated blob points before partitioning
// identically everywhere.
func (c *Comm) AllGatherBytes(payload []byte) [][]byte {
	outgoing := make(map[int][]byte, c.size)
	for r := 0; r < c.size; r++ {
		outgoing[r] = payload
	}
	incoming := c.Exchange(outgoing)
	out := make([][]byte, c.size)
	for r := 0; r < c.size; r++ {
		out[r] = incoming[r]
	}
	return out
}

// sendBytes and recvBytes serialize a byte payload as a length header
// followed by a float64 view of the data: gosl/mpi's primitives move
// numeric slices, never raw buffers. Padding keeps the float64 view
// whole.
func sendBytes(toRank int, data []byte) {
	n := len(data)
	padded := make([]byte, ((n+7)/8)*8)
	copy(padded, data)
	vals := bytesToFloat64(padded)
	mpi.SendOneInt(toRank, n)
	if len(vals) > 0 {
		mpi.SendFloat64s(toRank, vals)
	}
}

func recvBytes(fromRank int) []byte {
	n := mpi.RecvOneInt(fromRank)
	if n == 0 {
		return nil
	}
	nwords := (n + 7) / 8
	vals := mpi.RecvFloat64s(fromRank, nwords)
	padded := float64ToBytes(vals)
	return padded[:n]
}
