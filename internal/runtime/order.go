package runtime

import (
	"github.com/aretw0/dynamo/pkg/domain"
	"github.com/google/uuid"
)

// Order returns the evaluation order of every node of g.
func Order(g *domain.Graph) ([]*domain.Node, error) {
	return topoOrder(g.Nodes())
}

// topoOrder returns the nodes in a deterministic topological order over Input
// edges (State edges are feedback and ignored). When the relation has a cycle
// it returns a CyclicGraphError naming the nodes that lie on a cycle.
func topoOrder(nodes []*domain.Node) ([]*domain.Node, error) {
	indeg := make(map[*domain.Node]int, len(nodes))
	adj := make(map[*domain.Node][]*domain.Node, len(nodes))
	for _, n := range nodes {
		indeg[n] += 0
		for _, p := range n.Inputs {
			c := p.Incoming()
			if c == nil {
				continue
			}
			src := c.Source.Owner()
			adj[src] = append(adj[src], n)
			indeg[n]++
		}
	}

	ready := make([]*domain.Node, 0, len(nodes))
	for _, n := range nodes {
		if indeg[n] == 0 {
			ready = append(ready, n)
		}
	}

	order := make([]*domain.Node, 0, len(nodes))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)
		for _, next := range adj[n] {
			indeg[next]--
			if indeg[next] == 0 {
				ready = append(ready, next)
			}
		}
	}

	if len(order) == len(nodes) {
		return order, nil
	}

	var cyclic []uuid.UUID
	for _, n := range nodes {
		if indeg[n] > 0 && reachesItself(n, adj) {
			cyclic = append(cyclic, n.ID)
		}
	}
	return nil, &domain.CyclicGraphError{Nodes: cyclic}
}

func reachesItself(start *domain.Node, adj map[*domain.Node][]*domain.Node) bool {
	seen := make(map[*domain.Node]bool)
	stack := append([]*domain.Node{}, adj[start]...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == start {
			return true
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		stack = append(stack, adj[n]...)
	}
	return false
}
