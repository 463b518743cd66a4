package planner

import (
	"log"

	"omibyte.io/hwinit/hwerr"
	"omibyte.io/hwinit/lowering"
	"omibyte.io/hwinit/pins"
	"omibyte.io/hwinit/plan"
	"omibyte.io/hwinit/units"
)

// State is where a shared hardware resource is in its one-way lifecycle.
type State uint8

const (
	Unrequested State = iota
	Materialized
	// Frozen is terminal and only reachable by the clock configuration builder.
	Frozen
)

func (s State) String() string {
	return [...]string{"unrequested", "materialized", "frozen"}[s]
}

type resource struct {
	state State
	name  string
}

// Builder is the mutable context of one planning pass. Each accessor
// materializes its resource the first time it is asked for and hands back the
// recorded handle afterwards, so no resource is acquired twice. A Builder must
// not be shared between passes.
type Builder struct {
	strategy lowering.Strategy
	log      *log.Logger

	plan *plan.Plan

	device       resource
	flash        resource
	bus          resource
	clockBuilder resource
	clocks       resource
	afio         resource
	ports        [pins.PortE + 1]resource
}

// NewBuilder starts an empty pass for strategy. logger may be nil.
func NewBuilder(strategy lowering.Strategy, logger *log.Logger) *Builder {
	return &Builder{
		strategy: strategy,
		log:      logger,
		plan: &plan.Plan{
			Family:   strategy.Family(),
			Language: strategy.Language(),
		},
	}
}

// Plan returns the plan built so far.
func (b *Builder) Plan() *plan.Plan { return b.plan }

func (b *Builder) logf(format string, args ...any) {
	if b.log != nil {
		b.log.Printf(format, args...)
	}
}

// emit appends ops and returns the index of the first.
func (b *Builder) emit(ops ...plan.Operation) int {
	at := len(b.plan.Ops)
	for _, op := range ops {
		b.logf("op %d: %s", len(b.plan.Ops), op)
		b.plan.Ops = append(b.plan.Ops, op)
	}
	return at
}

func (b *Builder) preamble() {
	if b.device.state != Unrequested {
		return
	}
	ops := b.strategy.DevicePreamble()
	b.emit(ops...)
	b.device = resource{state: Materialized, name: ops[0].Name}
	b.flash = resource{state: Materialized, name: ops[1].Name}
}

// Device returns the device singleton, acquiring it and the flash handle on first use.
func (b *Builder) Device() string {
	b.preamble()
	return b.device.name
}

func (b *Builder) Flash() string {
	b.preamble()
	return b.flash.name
}

// Bus returns the bus controller.
func (b *Builder) Bus() string {
	if b.bus.state == Unrequested {
		op := b.strategy.BusController(b.Device())
		b.emit(op)
		b.bus = resource{state: Materialized, name: op.Name}
	}
	return b.bus.name
}

// ClockBuilder returns the clock configuration builder. The builder is
// consumed by freezing; asking for it afterwards fails.
func (b *Builder) ClockBuilder() (string, error) {
	switch b.clockBuilder.state {
	case Frozen:
		return "", hwerr.State(hwerr.ErrReacquireAfterFreeze, b.clockBuilder.name, "clock configuration was frozen into %s", b.clocks.name)
	case Unrequested:
		op := b.strategy.ClockBuilder(b.Bus())
		b.emit(op)
		b.clockBuilder = resource{state: Materialized, name: op.Name}
	}
	return b.clockBuilder.name, nil
}

// ApplyClock configures the builder for a system clock of f.
func (b *Builder) ApplyClock(f units.Frequency) error {
	builder, err := b.ClockBuilder()
	if err != nil {
		return err
	}
	op := b.strategy.ClockApplication(builder, f)
	b.emit(op)
	if op.Defines() {
		b.clockBuilder.name = op.Name
	}
	return nil
}

// Clocks returns the frozen clocks, freezing the current builder on first use.
func (b *Builder) Clocks() (string, error) {
	if b.clocks.state == Materialized {
		return b.clocks.name, nil
	}
	builder, err := b.ClockBuilder()
	if err != nil {
		return "", err
	}
	op := b.strategy.ClockFreeze(builder, b.Flash())
	b.emit(op)
	b.clockBuilder.state = Frozen
	b.clocks = resource{state: Materialized, name: op.Name}
	return b.clocks.name, nil
}

// AltFunction returns the alternate-function I/O controller.
func (b *Builder) AltFunction() string {
	if b.afio.state == Unrequested {
		op := b.strategy.AltFunction(b.Device(), b.Bus())
		b.emit(op)
		b.afio = resource{state: Materialized, name: op.Name}
	}
	return b.afio.name
}

// Port returns the split port p.
func (b *Builder) Port(p pins.Port) string {
	r := &b.ports[p]
	if r.state == Unrequested {
		op := b.strategy.PortSplit(p, b.Device(), b.Bus())
		b.emit(op)
		*r = resource{state: Materialized, name: op.Name}
	}
	return r.name
}

// StateOf reports the state of a named shared resource: "device", "flash",
// "bus", "clock-builder", "clocks" or "afio".
func (b *Builder) StateOf(name string) State {
	switch name {
	case "device":
		return b.device.state
	case "flash":
		return b.flash.state
	case "bus":
		return b.bus.state
	case "clock-builder":
		return b.clockBuilder.state
	case "clocks":
		return b.clocks.state
	case "afio":
		return b.afio.state
	}
	return Unrequested
}

// PortState reports whether port p has been split.
func (b *Builder) PortState(p pins.Port) State {
	return b.ports[p].state
}

var _ lowering.Env = (*Builder)(nil)
