package planner

import (
	"fmt"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

type phaseID int64

const (
	phaseDevice phaseID = iota
	phaseClock
	phasePorts
	phaseInputs
	phaseOutputs
	phasePwm
	phaseSerial
	phaseUnmasks
)

var phaseNames = [...]string{
	phaseDevice:  "device",
	phaseClock:   "clock",
	phasePorts:   "ports",
	phaseInputs:  "inputs",
	phaseOutputs: "outputs",
	phasePwm:     "pwm",
	phaseSerial:  "serial",
	phaseUnmasks: "unmasks",
}

func (p phaseID) String() string { return phaseNames[p] }

// phaseDeps lists, for each phase, the phases that must have run before it.
var phaseDeps = map[phaseID][]phaseID{
	phaseClock:   {phaseDevice},
	phasePorts:   {phaseDevice, phaseClock},
	phaseInputs:  {phasePorts},
	phaseOutputs: {phasePorts, phaseInputs},
	phasePwm:     {phaseClock, phasePorts, phaseOutputs},
	phaseSerial:  {phaseClock, phasePorts, phasePwm},
	phaseUnmasks: {phaseInputs, phaseOutputs, phasePwm, phaseSerial},
}

// phaseOrder is the order Build runs its phases in.
var phaseOrder []phaseID

func init() {
	order, err := sortPhases(phaseDeps)
	if err != nil {
		panic(err)
	}
	phaseOrder = order
}

// sortPhases orders the phases so every phase follows its dependencies. Ties
// are broken by phase ID so the result never varies between runs.
func sortPhases(deps map[phaseID][]phaseID) ([]phaseID, error) {
	g := simple.NewDirectedGraph()
	for id := range phaseNames {
		g.AddNode(simple.Node(id))
	}
	for to, froms := range deps {
		for _, from := range froms {
			g.SetEdge(g.NewEdge(simple.Node(from), simple.Node(to)))
		}
	}

	sorted, err := topo.SortStabilized(g, nil)
	if err != nil {
		return nil, fmt.Errorf("phase graph: %w", err)
	}
	order := make([]phaseID, len(sorted))
	for i, n := range sorted {
		order[i] = phaseID(n.ID())
	}
	return order, nil
}
