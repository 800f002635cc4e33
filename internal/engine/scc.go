package engine

import "slices"

// stronglyConnected labels every node with its strongly connected
// component using Tarjan's algorithm.
//
// Returns node -> component index. Only nodes in a component of size > 1
// can lie on a cycle (the graph has no self-loops), so the enumerator
// skips every other start node and never crosses component boundaries.
//
// Nodes and successors are visited in lexical order so component indices
// are stable across runs.
func stronglyConnected(edges map[string][]string) (comp map[string]int, sizes []int) {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int, len(edges))
		lowlink = make(map[string]int, len(edges))
		onStack = make(map[string]bool, len(edges))
	)
	comp = make(map[string]int, len(edges))

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range edges[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root: pop its component
		if lowlink[v] == indices[v] {
			id := len(sizes)
			size := 0
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				comp[w] = id
				size++
				if w == v {
					break
				}
			}
			sizes = append(sizes, size)
		}
	}

	nodes := make([]string, 0, len(edges))
	for node := range edges {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return comp, sizes
}
