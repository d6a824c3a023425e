// Copyright 2024 The goverset Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mesh

// AssignComponentIDs labels disjoint node-edge-connected subgraphs of a
// local partition with distinct contiguous ordinals. Components are
// disjoint in topology by construction: two cells sharing a node belong
// to the same component. Used when the host does not already tag
// NodeComponent itself.
func AssignComponentIDs(v View) []int {
	n := v.NodeCount()
	adj := make([][]int, n)
	for c := 0; c < v.CellCount(); c++ {
		nodes := v.CellNodes(c)
		for i := 0; i < len(nodes); i++ {
			for j := i + 1; j < len(nodes); j++ {
				a, b := nodes[i], nodes[j]
				adj[a] = append(adj[a], b)
				adj[b] = append(adj[b], a)
			}
		}
	}

	ids := make([]int, n)
	for i := range ids {
		ids[i] = -1
	}
	next := 0
	queue := make([]int, 0, n)
	for start := 0; start < n; start++ {
		if ids[start] != -1 {
			continue
		}
		queue = queue[:0]
		queue = append(queue, start)
		ids[start] = next
		for len(queue) > 0 {
			u := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			for _, w := range adj[u] {
				if ids[w] == -1 {
					ids[w] = next
					queue = append(queue, w)
				}
			}
		}
		next++
	}
	return ids
}
