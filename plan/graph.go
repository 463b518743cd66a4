package plan

import "omibyte.io/hwinit/hwerr"

// Graph links each operation to the operations whose names it references.
type Graph struct {
	adjList map[int][]int
}

func NewGraph() *Graph {
	return &Graph{adjList: make(map[int][]int)}
}

func (g *Graph) AddEdge(src, dest int) {
	for _, neighbor := range g.adjList[src] {
		if neighbor == dest {
			return
		}
	}
	g.adjList[src] = append(g.adjList[src], dest)
}

// Dependencies returns the operations src references directly.
func (g *Graph) Dependencies(src int) []int {
	return g.adjList[src]
}

// ReferenceGraph resolves every reference in Ops to the latest earlier
// operation binding that name.
func (p *Plan) ReferenceGraph() (*Graph, error) {
	g := NewGraph()
	bound := map[string]int{}
	for i, op := range p.Ops {
		for _, ref := range op.Refs {
			j, ok := bound[ref]
			if !ok {
				return nil, hwerr.State(hwerr.ErrInconsistentPlan, ref, "operation %d (%s) references a name not bound before it", i, op.Kind)
			}
			g.AddEdge(i, j)
		}
		if op.Defines() {
			bound[op.Name] = i
		}
	}
	return g, nil
}

// Check verifies that the operations only reference earlier bindings and
// that every layout handle points at the operation binding it.
func (p *Plan) Check() error {
	if _, err := p.ReferenceGraph(); err != nil {
		return err
	}
	last := map[string]int{}
	for i, op := range p.Ops {
		if op.Defines() {
			last[op.Name] = i
		}
	}
	for _, grp := range Groups {
		for _, h := range p.Layout.Group(grp) {
			if h.Op < 0 || h.Op >= len(p.Ops) || p.Ops[h.Op].Name != h.Name {
				return hwerr.State(hwerr.ErrInconsistentPlan, h.Name, "%s handle does not match operation %d", grp, h.Op)
			}
			if last[h.Name] != h.Op {
				return hwerr.State(hwerr.ErrInconsistentPlan, h.Name, "%s handle is rebound after operation %d", grp, h.Op)
			}
		}
	}
	return nil
}
