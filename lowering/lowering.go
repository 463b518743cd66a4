// Package lowering defines the contract a device family implements to turn
// abstract planning steps into that family's concrete operations.
//
// The planner only ever talks to a Strategy. Strategies are stateless: every
// handle they need is passed in through Env, already materialized by the
// planner's memoized accessors.
package lowering

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"omibyte.io/hwinit/device"
	"omibyte.io/hwinit/hwerr"
	"omibyte.io/hwinit/pins"
	"omibyte.io/hwinit/plan"
	"omibyte.io/hwinit/units"
)

// Env resolves the shared resources a step depends on. Each accessor
// materializes its resource on first use, so a strategy only pays for what it
// asks for.
type Env interface {
	Device() string
	Flash() string
	Bus() string
	// Clocks returns the frozen clock handle, freezing the clock tree if needed.
	Clocks() (string, error)
	AltFunction() string
	Port(p pins.Port) string
}

// PwmResult is what a strategy returns for one PWM block.
type PwmResult struct {
	Ops []plan.Operation
	// Channels holds one handle per block pin, in block pin order. Handle.Op
	// indexes into Ops.
	Channels []plan.Handle
}

// SerialResult is what a strategy returns for one serial block.
type SerialResult struct {
	Ops []plan.Operation
	// Handle.Op indexes into Ops.
	Handle plan.Handle
}

type Strategy interface {
	// Family is the catalog family name.
	Family() string
	// Language names the emitted source language, "rust" or "go".
	Language() string

	// Imports is the declaration preamble prepended to the plan.
	Imports() []plan.Operation
	// DevicePreamble binds the device singleton (first op) and the flash handle (second op).
	DevicePreamble() []plan.Operation

	BusController(device string) plan.Operation
	ClockBuilder(bus string) plan.Operation
	// ClockApplication binds the builder configured for f under the builder's name.
	ClockApplication(builder string, f units.Frequency) plan.Operation
	ClockFreeze(builder, flash string) plan.Operation
	AltFunction(device, bus string) plan.Operation
	PortSplit(p pins.Port, device, bus string) plan.Operation

	// PinConfigure binds pin.Ident() to the configured pin. The last
	// operation binding that name is the pin's handle.
	PinConfigure(pin pins.Pin, mode device.Mode, port string) []plan.Operation
	InterruptWiring(pin pins.Pin, edge device.Edge, handle string, env Env) []plan.Operation
	Pwm(spec device.Pwm, env Env) (PwmResult, error)
	Serial(spec device.Serial, env Env) (SerialResult, error)

	ResultType(pin pins.Pin, mode device.Mode) plan.Shape
	// InterruptUnmasks lists the interrupt-controller statements for the
	// configuration's triggered inputs and serials.
	InterruptUnmasks(cfg *device.Config) []plan.Operation
}

var (
	mu         sync.RWMutex
	strategies = map[device.Kind]Strategy{}
)

// Register binds a strategy to a device kind. Registering a kind twice panics.
func Register(kind device.Kind, s Strategy) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := strategies[kind]; exists {
		panic(fmt.Sprintf("lowering strategy already registered for %s", kind))
	}
	strategies[kind] = s
}

func Lookup(kind device.Kind) (Strategy, error) {
	mu.RLock()
	defer mu.RUnlock()
	s, ok := strategies[kind]
	if !ok {
		return nil, hwerr.UnknownIdentity(hwerr.ErrUnknownDeviceKind, kind.String(), "no lowering strategy registered")
	}
	return s, nil
}

// Registered lists the kinds with a strategy, in kind order.
func Registered() []device.Kind {
	mu.RLock()
	defer mu.RUnlock()
	kinds := maps.Keys(strategies)
	slices.Sort(kinds)
	return kinds
}

// Let is a helper for the common "bind name to expr" operation.
func Let(kind plan.OpKind, name, expr string, refs ...string) plan.Operation {
	return plan.Operation{Kind: kind, Name: name, Expr: expr, Refs: refs}
}

// LetMut is Let for a binding later borrowed mutably.
func LetMut(kind plan.OpKind, name, expr string, refs ...string) plan.Operation {
	op := Let(kind, name, expr, refs...)
	op.Mutable = true
	return op
}

// Do is an operation executed for its effect.
func Do(kind plan.OpKind, expr string, refs ...string) plan.Operation {
	return plan.Operation{Kind: kind, Expr: expr, Refs: refs}
}

// Elide marks op as performed implicitly by the family.
func Elide(op plan.Operation) plan.Operation {
	op.Elided = true
	return op
}

// Fallible marks op as also yielding an error.
func Fallible(op plan.Operation) plan.Operation {
	op.Fallible = true
	return op
}

// Subject returns op with its subject set.
func Subject(op plan.Operation, subject string) plan.Operation {
	op.Subject = subject
	return op
}

// Tuple renders names as a Rust tuple expression; a single element keeps its
// trailing comma.
func Tuple(names ...string) string {
	if len(names) == 1 {
		return "(" + names[0] + ",)"
	}
	return "(" + strings.Join(names, ", ") + ")"
}

// DefaultPwmFrequency is used for PWM blocks that leave the frequency unset.
const DefaultPwmFrequency units.Frequency = 1_000

// PwmFrequency returns the block frequency or the default.
func PwmFrequency(spec device.Pwm) units.Frequency {
	if spec.Frequency != nil {
		return *spec.Frequency
	}
	return DefaultPwmFrequency
}
