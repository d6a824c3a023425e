// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mesh

import "sort"

// BuildNodeGraph returns the node-to-node adjacency implied by cell
// connectivity (two nodes are neighbors iff some cell contains both),
// de-duplicated and sorted, the graph the status state machine walks for
// its neighbor-based transitions.
func BuildNodeGraph(v View) [][]int {
	n := v.NodeCount()
	seen := make([]map[int]bool, n)
	for c := 0; c < v.CellCount(); c++ {
		nodes := v.CellNodes(c)
		for i := 0; i < len(nodes); i++ {
			for j := i + 1; j < len(nodes); j++ {
				a, b := nodes[i], nodes[j]
				if seen[a] == nil {
					seen[a] = make(map[int]bool)
				}
				if seen[b] == nil {
					seen[b] = make(map[int]bool)
				}
				seen[a][b] = true
				seen[b][a] = true
			}
		}
	}
	graph := make([][]int, n)
	for i, set := range seen {
		nbrs := make([]int, 0, len(set))
		for w := range set {
			nbrs = append(nbrs, w)
		}
		sort.Ints(nbrs)
		graph[i] = nbrs
	}
	return graph
}
