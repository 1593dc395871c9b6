package traversal

import (
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/kbukum/traverse/errors"
)

// sortStrategies runs Kahn's algorithm over the constraint graph, always
// taking the ready strategy with the lowest (category, registration index).
// Constraints naming strategies outside the set are ignored.
func sortStrategies(list []Strategy) ([]Strategy, error) {
	n := len(list)
	byName := make(map[string]int, n)
	for i, s := range list {
		byName[s.Name()] = i
	}

	// before[i] holds the strategies that must come after i.
	before := make([]map[int]struct{}, n)
	for i := range before {
		before[i] = make(map[int]struct{})
	}
	edge := func(from, to int) { before[from][to] = struct{}{} }

	for i, s := range list {
		for _, name := range s.RunsBefore() {
			if j, ok := byName[name]; ok {
				edge(i, j)
			}
		}
		for _, name := range s.RunsAfter() {
			if j, ok := byName[name]; ok {
				edge(j, i)
			}
		}
		for j, o := range list {
			if s.Category() < o.Category() {
				edge(i, j)
			}
		}
	}

	for i := range before {
		if _, self := before[i][i]; self {
			return nil, errors.StrategyCycle([]string{list[i].Name()})
		}
	}

	inDegree := make([]int, n)
	for i := range before {
		for j := range before[i] {
			inDegree[j]++
		}
	}

	less := func(a, b int) bool {
		if list[a].Category() != list[b].Category() {
			return list[a].Category() < list[b].Category()
		}
		return a < b
	}

	var ready []int
	for i, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, i)
		}
	}

	ordered := make([]Strategy, 0, n)
	for len(ready) > 0 {
		best := 0
		for k := 1; k < len(ready); k++ {
			if less(ready[k], ready[best]) {
				best = k
			}
		}
		cur := ready[best]
		ready = append(ready[:best], ready[best+1:]...)
		ordered = append(ordered, list[cur])

		for j := range before[cur] {
			inDegree[j]--
			if inDegree[j] == 0 {
				ready = append(ready, j)
			}
		}
	}

	if len(ordered) != n {
		return nil, errors.StrategyCycle(cycleNames(list, before))
	}
	return ordered, nil
}

// cycleNames reports the members of the first strongly connected component
// with more than one strategy, in registration order.
func cycleNames(list []Strategy, before []map[int]struct{}) []string {
	g := simple.NewDirectedGraph()
	for i := range list {
		g.AddNode(simple.Node(int64(i)))
	}
	for i := range before {
		for j := range before[i] {
			if i != j {
				g.SetEdge(g.NewEdge(simple.Node(int64(i)), simple.Node(int64(j))))
			}
		}
	}

	var cycle []int
	for _, scc := range topo.TarjanSCC(g) {
		if len(scc) < 2 {
			continue
		}
		members := make([]int, 0, len(scc))
		for _, node := range scc {
			members = append(members, int(node.ID()))
		}
		if cycle == nil || minOf(members) < minOf(cycle) {
			cycle = members
		}
	}

	marked := make(map[int]bool, len(cycle))
	for _, i := range cycle {
		marked[i] = true
	}
	names := make([]string, 0, len(cycle))
	for i, s := range list {
		if marked[i] {
			names = append(names, s.Name())
		}
	}
	return names
}

func minOf(xs []int) int {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}
