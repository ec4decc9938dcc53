// Package plan checks a bring-up sequence against its declared
// prerequisites.
package plan

import (
	"errors"
	"fmt"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/ystepanoff/stopwake/controller"
)

var (
	ErrUnknownStep   = errors.New("unknown step")
	ErrDuplicateStep = errors.New("duplicate step")
	ErrCycle         = errors.New("prerequisites form a cycle")
	ErrOutOfOrder    = errors.New("step runs before its prerequisite")
)

// Plan is a dependency graph over the steps, with an edge from each
// prerequisite to the step that needs it.
type Plan struct {
	steps []controller.StepInfo
	index map[string]int
	g     *simple.DirectedGraph
}

func New(steps []controller.StepInfo) (*Plan, error) {
	p := &Plan{
		steps: steps,
		index: make(map[string]int, len(steps)),
		g:     simple.NewDirectedGraph(),
	}
	for i, s := range steps {
		if _, ok := p.index[s.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateStep, s.Name)
		}
		p.index[s.Name] = i
		p.g.AddNode(simple.Node(i))
	}
	for i, s := range steps {
		for _, req := range s.Requires {
			j, ok := p.index[req]
			if !ok {
				return nil, fmt.Errorf("%w: %s requires %s", ErrUnknownStep, s.Name, req)
			}
			if i == j {
				return nil, fmt.Errorf("%w: %s requires itself", ErrCycle, s.Name)
			}
			p.g.SetEdge(p.g.NewEdge(simple.Node(j), simple.Node(i)))
		}
	}
	return p, nil
}

// Check verifies the prerequisites are acyclic and that the declared
// order runs every prerequisite first.
func (p *Plan) Check() error {
	if _, err := p.Sorted(); err != nil {
		return err
	}
	for i, s := range p.steps {
		for _, req := range s.Requires {
			if p.index[req] > i {
				return fmt.Errorf("%w: %s before %s", ErrOutOfOrder, s.Name, req)
			}
		}
	}
	return nil
}

// Sorted returns a valid order, breaking ties by declaration order.
func (p *Plan) Sorted() ([]string, error) {
	nodes, err := topo.SortStabilized(p.g, func(ns []graph.Node) {
		slices.SortFunc(ns, func(a, b graph.Node) bool { return a.ID() < b.ID() })
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCycle, err)
	}
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = p.steps[n.ID()].Name
	}
	return out, nil
}

// Dependents lists the steps that directly require name.
func (p *Plan) Dependents(name string) []string {
	i, ok := p.index[name]
	if !ok {
		return nil
	}
	var out []string
	it := p.g.From(int64(i))
	for it.Next() {
		out = append(out, p.steps[it.Node().ID()].Name)
	}
	slices.SortFunc(out, func(a, b string) bool { return p.index[a] < p.index[b] })
	return out
}
