// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package receptor runs the inverse-receptor exchange: once the status
// machine has converged, every surviving FringeNode ships its
// coordinates to whichever rank owns its donor cell, that rank
// re-derives the interpolation weights and verifies them, and the
// result is collated into one Receptor record per fringe node. A fringe
// node for which the exchange finds no donor is reported with an empty
// donor list; nodes whose final status is Orphan get no Receptor record.
package receptor

import (
	"sort"

	"github.com/cpmech/goverset/aerr"
	"github.com/cpmech/goverset/donor"
	"github.com/cpmech/goverset/status"
	"github.com/cpmech/goverset/xmpi"
)

// DonorPoint is one node of a receptor's chosen donor stencil.
type DonorPoint struct {
	GlobalID  uint64
	OwnerRank int
	Weight    float64
}

// Receptor is the final record for one fringe (or orphan) node: its
// donor stencil, deterministic in donor-node order, or an empty Donors
// list when no valid donor survived.
type Receptor struct {
	GlobalID uint64
	Donors   []DonorPoint
}

// Node is the minimal per-node input the exchange needs: identity,
// position, and the component it belongs to (so same-component cells
// are never offered as donors).
type Node struct {
	GlobalID     uint64
	Position     [3]float64
	Component    int
	WallDistance float64
}

// PruneFringe keeps only the nodes whose final status is FringeNode,
// ahead of the inverse-receptor exchange.
func PruneFringe(nodes []Node, statuses []status.Status) []Node {
	var out []Node
	for i, n := range nodes {
		if i < len(statuses) && statuses[i] == status.FringeNode {
			out = append(out, n)
		}
	}
	return out
}

// BuildQueries turns pruned fringe nodes owned by this rank into donor
// query points, grouped by every rank each is routed to. route answers,
// for a fringe node, which ranks' fragment trees could hold its donor
// cell (an overlap-routing index's Route, typically); callers that query
// every rank's Finder locally (small process counts) can pass a route
// that always returns the local rank.
func BuildQueries(nodes []Node, route func(Node) []int) map[int][]donor.QueryPoint {
	out := make(map[int][]donor.QueryPoint)
	for _, n := range nodes {
		qp := donor.QueryPoint{
			GlobalID:     n.GlobalID,
			Position:     n.Position,
			Component:    n.Component,
			WallDistance: n.WallDistance,
		}
		for _, r := range route(n) {
			out[r] = append(out[r], qp)
		}
	}
	return out
}

// Exchange runs the full two-round donor query/reply protocol and
// collates the result into one Receptor per global id. Orphaned fringe
// nodes (none sent, or none answered) are not present in the returned
// map; callers should add an empty Receptor for every pruned node
// missing from it.
func Exchange(comm *xmpi.Comm, finder *donor.Finder, outgoing map[int][]donor.QueryPoint) map[uint64]Receptor {
	merged := donor.RunQueries(comm, finder, outgoing)
	out := make(map[uint64]Receptor, len(merged))
	for gid, cands := range merged {
		out[gid] = collate(gid, cands)
	}
	return out
}

// collate picks one deterministic donor stencil per fringe node out of
// the (possibly several, for overlapping donor components) candidates
// returned by the search, choosing the stencil with the smallest
// interpolated wall distance and breaking ties by owner rank then owner
// cell id so the choice never depends on exchange arrival order.
func collate(gid uint64, cands []donor.CandidateDonor) Receptor {
	if len(cands) == 0 {
		return Receptor{GlobalID: gid}
	}
	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.InterpolatedWallDistance != b.InterpolatedWallDistance {
			return a.InterpolatedWallDistance < b.InterpolatedWallDistance
		}
		if a.OwnerRank != b.OwnerRank {
			return a.OwnerRank < b.OwnerRank
		}
		return a.OwnerLocalCellID < b.OwnerLocalCellID
	})
	best := cands[0]
	donors := make([]DonorPoint, len(best.DonorGlobalIDs))
	for i, gid := range best.DonorGlobalIDs {
		donors[i] = DonorPoint{GlobalID: gid, OwnerRank: best.OwnerRank, Weight: best.Weights[i]}
	}
	return Receptor{GlobalID: gid, Donors: donors}
}

// FillOrphans adds an empty Receptor for every pruned node Exchange
// found no donor for, so the caller's receptor map always covers every
// fringe node it pruned.
func FillOrphans(nodes []Node, receptors map[uint64]Receptor) {
	for _, n := range nodes {
		if _, ok := receptors[n.GlobalID]; !ok {
			receptors[n.GlobalID] = Receptor{GlobalID: n.GlobalID}
			aerr.Warn("fringe node %d has no candidate donor after inverse-receptor exchange", n.GlobalID)
		}
	}
}
