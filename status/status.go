// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package status implements the 16-step Druyor-style node classification
// state machine: starting from Unknown, every node is walked through
// hole detection, mandatory-receptor marking, donor validity, and the
// final In/Out/FringeNode/Orphan resolution, with a ghost-pattern sync
// after every per-node write.
package status

import (
	"github.com/cpmech/goverset/aerr"
	"github.com/cpmech/goverset/donor"
	"github.com/cpmech/goverset/holemap"
	"github.com/cpmech/goverset/mesh"
	"github.com/cpmech/goverset/spatial"
	"github.com/cpmech/goverset/xmpi"
)

// Status is a node's current overset classification.
type Status int

const (
	Unknown Status = iota
	InNode
	OutNode
	MandatoryReceptor
	ReceptorCandidate
	FringeNode
	Orphan
)

func (s Status) String() string {
	switch s {
	case Unknown:
		return "unknown"
	case InNode:
		return "in"
	case OutNode:
		return "out"
	case MandatoryReceptor:
		return "mandatory-receptor"
	case ReceptorCandidate:
		return "receptor-candidate"
	case FringeNode:
		return "fringe"
	case Orphan:
		return "orphan"
	}
	return "invalid"
}

// DefaultExtraLayers is the mandatory-receptor expansion depth.
const DefaultExtraLayers = 1

// SyncPattern maps every local node (owned or ghost) to a shared slot so
// a ghost copy and its owner always land in the same MAX-reduce slot: a
// gather-max over ghost copies, scattered back to the owner. A nil
// *SyncPattern is valid and makes Sync a no-op, for single-rank runs
// that carry no ghost nodes at all.
type SyncPattern struct {
	Slot     []int
	NumSlots int
}

// SyncStatuses folds every node's status into its slot by MAX and
// scatters the result back, so every ghost copy ends up agreeing with
// its owner.
func (sp *SyncPattern) SyncStatuses(comm *xmpi.Comm, statuses []Status) {
	if sp == nil || comm.Size() == 1 {
		return
	}
	buf := make([]int, sp.NumSlots)
	for i, s := range statuses {
		if int(s) > buf[sp.Slot[i]] {
			buf[sp.Slot[i]] = int(s)
		}
	}
	comm.ElementalMaxInt(buf)
	for i := range statuses {
		statuses[i] = Status(buf[sp.Slot[i]])
	}
}

// syncBools folds a 0/1 flag vector the same way, used by step 1's
// candidate-hole sync ahead of any Status value existing for it.
func syncBools(sp *SyncPattern, comm *xmpi.Comm, flags []bool) {
	if sp == nil || comm.Size() == 1 {
		return
	}
	buf := make([]int, sp.NumSlots)
	for i, f := range flags {
		if f {
			buf[sp.Slot[i]] = 1
		}
	}
	comm.ElementalMaxInt(buf)
	for i := range flags {
		flags[i] = buf[sp.Slot[i]] != 0
	}
}

// Machine carries all per-node data the state machine transitions read
// and write. Every slice is indexed by local node id.
type Machine struct {
	Positions  [][3]float64
	Neighbors  [][]int
	Components []int
	BCTags     []mesh.BCTag

	// HoleMaps holds one hole map per *other* component id.
	HoleMaps map[int]*holemap.HoleMap
	// ComponentExtents holds every component's bounding box, keyed by
	// component id, used to build the mandatory-receptor masks of step 4.
	ComponentExtents map[int]mesh.Extent

	WallDistance []float64
	Candidates   map[int][]donor.CandidateDonor
	DonorValid   map[int][]bool

	// StraddlingCellNodes lists, for every cell whose nodes span more
	// than one component, the node ids of that cell.
	StraddlingCellNodes [][]int

	ExtraLayers int

	// MultiOverlapMaskCells caps the Cartesian cell count of each
	// per-component occupancy grid step 4 builds (the `multi-overlap-
	// mask-cells` config key); 0 selects DefaultMultiOverlapMaskCells.
	MultiOverlapMaskCells int

	Statuses []Status

	Sync *SyncPattern
	Comm *xmpi.Comm

	candidateHole []bool
}

// NewMachine allocates a Machine sized for n nodes, every status
// starting at the sentinel Unknown.
func NewMachine(n int, comm *xmpi.Comm) *Machine {
	if comm == nil {
		comm = xmpi.New()
	}
	return &Machine{
		Statuses:    make([]Status, n),
		Candidates:  make(map[int][]donor.CandidateDonor),
		DonorValid:  make(map[int][]bool),
		ExtraLayers: DefaultExtraLayers,
		Comm:        comm,
	}
}

func (m *Machine) sync() { m.Sync.SyncStatuses(m.Comm, m.Statuses) }

// Run executes all 16 transitions in order and returns the sanity-check
// error, if any. buildAnswerer is called once, immediately before step
// 9, with this rank's Statuses slice as it stands after steps 1-8 (hole
// detection, mandatory-receptor marking, multi-overlap, straddling/
// surface forcing, and the distance and definite-in criteria have all
// already run, so the great majority of a rank's eventual InNode set is
// already known); it must return a closure answering, for a donor cell
// identified by (ownerRank, ownerLocalCellID), whether at least one of
// its nodes is currently InNode on the owning rank. Callers supply this
// via whatever cross-rank exchange they are already running (e.g.
// reusing donor.RunQueries' protocol), keeping this package free of its
// own network traffic. A nil buildAnswerer treats every donor cell as
// valid, for tests that exercise a single step in isolation.
func (m *Machine) Run(buildAnswerer func(statuses []Status) func(ownerRank, ownerLocalCellID int) bool) *aerr.Error {
	m.identifyCandidateHoles()
	m.markMandatoryReceptors()
	m.markHolePointsOut()
	m.improveMultiOverlap()
	m.markStraddlingCellsIn()
	m.markSurfaceNodesIn()
	m.distanceCriterion()
	m.markDefiniteIn()
	var cellHasInNode func(ownerRank, ownerLocalCellID int) bool
	if buildAnswerer != nil {
		cellHasInNode = buildAnswerer(m.Statuses)
	}
	m.updateDonorValidity(cellHasInNode)
	m.markCandidateReceptors()
	m.convertCandidates()
	m.reconsiderMandatoryReceptors()
	m.convertMandatoryReceptors()
	m.closeOutUnknown()
	m.filterSpuriousOrphans()
	return m.sanityCheck()
}

// step 1: hole identification.
func (m *Machine) identifyCandidateHoles() {
	m.candidateHole = make([]bool, len(m.Statuses))
	for i := range m.Statuses {
		comp := m.Components[i]
		for otherComp, hm := range m.HoleMaps {
			if otherComp == comp {
				continue
			}
			if hm.Classify(m.Positions[i]) != holemap.InHole {
				continue
			}
			if m.hasCandidateFromComponent(i, otherComp) {
				continue
			}
			m.candidateHole[i] = true
			break
		}
	}
	syncBools(m.Sync, m.Comm, m.candidateHole)
}

func (m *Machine) hasCandidateFromComponent(node, component int) bool {
	for _, c := range m.Candidates[node] {
		if c.Component == component {
			return true
		}
	}
	return false
}

// step 2: mark mandatory receptors, expanded extra_layers hops.
func (m *Machine) markMandatoryReceptors() {
	frontier := make([]int, 0, len(m.Statuses))
	for i, tag := range m.BCTags {
		if tag == mesh.Interpolation {
			m.Statuses[i] = MandatoryReceptor
			frontier = append(frontier, i)
		}
	}
	layers := m.ExtraLayers
	if layers <= 0 {
		layers = DefaultExtraLayers
	}
	for l := 0; l < layers; l++ {
		var next []int
		for _, i := range frontier {
			for _, w := range m.Neighbors[i] {
				if m.Statuses[w] != MandatoryReceptor {
					m.Statuses[w] = MandatoryReceptor
					next = append(next, w)
				}
			}
		}
		frontier = next
	}
	m.sync()
}

// step 3: candidate holes become Out.
func (m *Machine) markHolePointsOut() {
	for i, isHole := range m.candidateHole {
		if isHole {
			m.Statuses[i] = OutNode
		}
	}
	m.sync()
}

// step 4: improve multi-overlap regions.
func (m *Machine) improveMultiOverlap() {
	masks := make(map[int]*occupancyGrid)
	for comp, extent := range m.ComponentExtents {
		masks[comp] = newOccupancyGrid(extent, m.MultiOverlapMaskCells)
	}
	for i, comp := range m.Components {
		if m.Statuses[i] != MandatoryReceptor {
			continue
		}
		if mask, ok := masks[comp]; ok {
			mask.mark(m.Positions[i])
		}
	}
	for i := range m.Statuses {
		if m.hasOutNeighbor(i) {
			continue
		}
		nbhd := m.neighborhoodExtent(i)
		for comp, mask := range masks {
			if comp == m.Components[i] {
				continue
			}
			if mask.overlaps(nbhd) {
				m.Statuses[i] = InNode
				break
			}
		}
	}
	m.sync()
}

func (m *Machine) hasOutNeighbor(i int) bool {
	for _, w := range m.Neighbors[i] {
		if m.Statuses[w] == OutNode {
			return true
		}
	}
	return false
}

func (m *Machine) neighborhoodExtent(i int) mesh.Extent {
	e := mesh.Extent{Lo: m.Positions[i], Hi: m.Positions[i]}
	for _, w := range m.Neighbors[i] {
		p := m.Positions[w]
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

// step 5: nodes of straddling cells stay In on both sides.
func (m *Machine) markStraddlingCellsIn() {
	for _, nodes := range m.StraddlingCellNodes {
		for _, n := range nodes {
			m.Statuses[n] = InNode
		}
	}
	m.sync()
}

// step 6: solid surface nodes are In.
func (m *Machine) markSurfaceNodesIn() {
	for i, tag := range m.BCTags {
		if tag == mesh.Solid {
			m.Statuses[i] = InNode
		}
	}
	m.sync()
}

// step 7: distance criterion. Mandatory receptors are left to steps
// 12-13.
func (m *Machine) distanceCriterion() {
	for i, cands := range m.Candidates {
		if len(cands) == 0 || m.Statuses[i] == MandatoryReceptor || m.hasOutNeighbor(i) {
			continue
		}
		if m.WallDistance[i] < minInterpolatedDistance(cands) {
			m.Statuses[i] = InNode
		}
	}
	m.sync()
}

func minInterpolatedDistance(cands []donor.CandidateDonor) float64 {
	best := cands[0].InterpolatedWallDistance
	for _, c := range cands[1:] {
		if c.InterpolatedWallDistance < best {
			best = c.InterpolatedWallDistance
		}
	}
	return best
}

// step 8: nodes still Unknown with no Out neighbor are In.
func (m *Machine) markDefiniteIn() {
	for i, s := range m.Statuses {
		if s != Unknown {
			continue
		}
		if !m.hasOutNeighbor(i) {
			m.Statuses[i] = InNode
		}
	}
	m.sync()
}

// step 9: update donor validity.
func (m *Machine) updateDonorValidity(cellHasInNode func(ownerRank, ownerLocalCellID int) bool) {
	if cellHasInNode == nil {
		cellHasInNode = func(int, int) bool { return true }
	}
	for node, cands := range m.Candidates {
		valid := make([]bool, len(cands))
		for j, c := range cands {
			valid[j] = cellHasInNode(c.OwnerRank, c.OwnerLocalCellID)
		}
		m.DonorValid[node] = valid
	}
}

func (m *Machine) hasValidDonor(node int) bool {
	for _, ok := range m.DonorValid[node] {
		if ok {
			return true
		}
	}
	return false
}

func (m *Machine) bestValidDistance(node int) (float64, bool) {
	best, found := 0.0, false
	cands := m.Candidates[node]
	valid := m.DonorValid[node]
	for j, c := range cands {
		if j < len(valid) && valid[j] {
			if !found || c.InterpolatedWallDistance < best {
				best = c.InterpolatedWallDistance
				found = true
			}
		}
	}
	return best, found
}

// step 10: candidate receptors.
func (m *Machine) markCandidateReceptors() {
	for i, s := range m.Statuses {
		if s != Unknown {
			continue
		}
		for _, w := range m.Neighbors[i] {
			if m.Statuses[w] == InNode {
				m.Statuses[i] = ReceptorCandidate
				break
			}
		}
	}
	m.sync()
}

// step 11: convert candidates with a valid donor to fringe nodes.
func (m *Machine) convertCandidates() {
	for i, s := range m.Statuses {
		if s == ReceptorCandidate && m.hasValidDonor(i) {
			m.Statuses[i] = FringeNode
		}
	}
	m.sync()
}

// step 12: reconsider mandatory receptors.
func (m *Machine) reconsiderMandatoryReceptors() {
	for i, s := range m.Statuses {
		if s != MandatoryReceptor {
			continue
		}
		best, found := m.bestValidDistance(i)
		if !found || !(best < m.WallDistance[i]) {
			continue
		}
		hasIn := false
		for _, w := range m.Neighbors[i] {
			if m.Statuses[w] == InNode {
				hasIn = true
				break
			}
		}
		if !hasIn {
			m.Statuses[i] = OutNode
		}
	}
	m.sync()
}

// step 13: convert remaining mandatory receptors.
func (m *Machine) convertMandatoryReceptors() {
	for i, s := range m.Statuses {
		if s != MandatoryReceptor {
			continue
		}
		if m.hasValidDonor(i) {
			m.Statuses[i] = FringeNode
		} else {
			m.Statuses[i] = Orphan
		}
	}
	m.sync()
}

// step 14: close out remaining Unknown and ReceptorCandidate nodes.
func (m *Machine) closeOutUnknown() {
	for i, s := range m.Statuses {
		if s == Unknown {
			m.Statuses[i] = OutNode
		}
	}
	for i, s := range m.Statuses {
		if s != ReceptorCandidate {
			continue
		}
		hasIn := false
		for _, w := range m.Neighbors[i] {
			if m.Statuses[w] == InNode {
				hasIn = true
				break
			}
		}
		if hasIn && !m.isFarFromOut(i) {
			m.Statuses[i] = InNode
		} else {
			m.Statuses[i] = Orphan
		}
	}
	m.sync()
}

// isFarFromOut reports whether node i has no one-hop OutNode neighbor.
func (m *Machine) isFarFromOut(i int) bool {
	return !m.hasOutNeighbor(i)
}

// step 15: flood-filter spurious orphans.
func (m *Machine) filterSpuriousOrphans() {
	visited := make([]bool, len(m.Statuses))
	var stack []int
	for i, s := range m.Statuses {
		if s == Orphan && m.BCTags[i] == mesh.Interpolation {
			stack = append(stack, i)
		}
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[i] {
			continue
		}
		visited[i] = true
		if m.Statuses[i] == Orphan || m.Statuses[i] == InNode {
			m.Statuses[i] = OutNode
		}
		for _, w := range m.Neighbors[i] {
			if !visited[w] && (m.Statuses[w] == Orphan || m.Statuses[w] == InNode) {
				stack = append(stack, w)
			}
		}
	}
	m.sync()
}

// step 16: sanity check.
func (m *Machine) sanityCheck() *aerr.Error {
	for i, s := range m.Statuses {
		if s == Unknown || s == MandatoryReceptor || s == ReceptorCandidate {
			return aerr.New(aerr.Invariant, "node %d terminated in a non-terminal status %v", i, s)
		}
	}
	for _, nodes := range m.StraddlingCellNodes {
		hasIn, hasOut := false, false
		for _, n := range nodes {
			switch m.Statuses[n] {
			case InNode:
				hasIn = true
			case OutNode:
				hasOut = true
			}
		}
		if hasIn && hasOut {
			aerr.Warn("cell with nodes %v has both In and Out nodes", nodes)
		}
	}
	return nil
}

// occupancyGrid is a coarse Cartesian mask of where some marker node set
// lies, used by step 4's per-component mandatory-receptor mask.
type occupancyGrid struct {
	block *spatial.CartesianBlock
	cells map[int]bool
}

// DefaultMultiOverlapMaskCells is the `multi-overlap-mask-cells` config
// default: a coarse grid keeps step 4's occupancy test cheap without
// materially changing which nodes fall inside another component's
// mandatory-receptor neighborhood.
const DefaultMultiOverlapMaskCells = 4096

func newOccupancyGrid(e mesh.Extent, maxCells int) *occupancyGrid {
	if maxCells <= 0 {
		maxCells = DefaultMultiOverlapMaskCells
	}
	return &occupancyGrid{
		block: spatial.NewCartesianBlock(e, maxCells),
		cells: make(map[int]bool),
	}
}

func (g *occupancyGrid) mark(p [3]float64) {
	if !g.block.Extent.Contains(p) {
		return
	}
	g.cells[g.block.ContainingCell(p)] = true
}

func (g *occupancyGrid) overlaps(e mesh.Extent) bool {
	if !g.block.Extent.Intersects(e) {
		return false
	}
	i0, i1, j0, j1, k0, k1 := g.block.Range(e)
	for i := i0; i <= i1; i++ {
		for j := j0; j <= j1; j++ {
			for k := k0; k <= k1; k++ {
				if g.cells[g.block.CellID(i, j, k)] {
					return true
				}
			}
		}
	}
	return false
}
