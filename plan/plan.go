// Package plan describes an initialization plan: the ordered operations that
// bring a board up, and the layout of the handles those operations produce.
package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

type OpKind uint8

const (
	OpImport OpKind = iota
	OpDevice
	OpFlash
	OpBus
	OpClockBuilder
	OpClockApply
	OpClockFreeze
	OpAltFunction
	OpPortSplit
	OpPinConfigure
	OpInterruptSource
	OpInterruptTrigger
	OpInterruptEnable
	OpTimer
	OpPwmChannel
	OpSerial
	OpUnmask
)

var opKindNames = [...]string{
	OpImport:           "import",
	OpDevice:           "device",
	OpFlash:            "flash",
	OpBus:              "bus",
	OpClockBuilder:     "clock-builder",
	OpClockApply:       "clock-apply",
	OpClockFreeze:      "clock-freeze",
	OpAltFunction:      "alt-function",
	OpPortSplit:        "port-split",
	OpPinConfigure:     "pin-configure",
	OpInterruptSource:  "interrupt-source",
	OpInterruptTrigger: "interrupt-trigger",
	OpInterruptEnable:  "interrupt-enable",
	OpTimer:            "timer",
	OpPwmChannel:       "pwm-channel",
	OpSerial:           "serial",
	OpUnmask:           "unmask",
}

func (k OpKind) String() string {
	if int(k) < len(opKindNames) {
		return opKindNames[k]
	}
	return fmt.Sprintf("op(%d)", k)
}

func (k OpKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Operation constructs the value Name from Expr. Refs lists the earlier names
// Expr depends on. An operation without a Name is executed for its effect.
type Operation struct {
	Kind    OpKind   `yaml:"kind"`
	Name    string   `yaml:"name,omitempty"`
	Mutable bool     `yaml:"mutable,omitempty"`
	Expr    string   `yaml:"expr"`
	Refs    []string `yaml:"refs,omitempty"`
	// Subject names the pin, port or peripheral the operation concerns.
	Subject string `yaml:"subject,omitempty"`
	// Fallible marks an expression that also yields an error to check.
	Fallible bool `yaml:"fallible,omitempty"`
	// Elided operations keep their place in the order but emit no code; the
	// family performs the step implicitly.
	Elided bool `yaml:"elided,omitempty"`
}

// Defines reports whether the operation binds a name.
func (o Operation) Defines() bool { return o.Name != "" }

func (o Operation) String() string {
	if o.Name == "" {
		return fmt.Sprintf("%s: %s", o.Kind, o.Expr)
	}
	return fmt.Sprintf("%s: %s = %s", o.Kind, o.Name, o.Expr)
}

type Class uint8

const (
	ClassInput Class = iota
	ClassOutput
	ClassPwmChannel
	ClassChannel
	ClassTimer
	ClassSerial
)

func (c Class) String() string {
	return [...]string{"input", "output", "pwm-channel", "channel", "timer", "serial"}[c]
}

func (c Class) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Shape describes the type of a produced handle.
type Shape struct {
	// Type is the family's concrete type text.
	Type  string `yaml:"type"`
	Class Class  `yaml:"class"`
	// Port is the port letter the handle lives on, empty for serials and timers.
	Port string `yaml:"port,omitempty"`
	// Mode is the pin mode type name, e.g. "PullUp".
	Mode string `yaml:"mode,omitempty"`
}

type Handle struct {
	Name  string `yaml:"name"`
	Shape Shape  `yaml:"shape"`
	// Op is the index into Plan.Ops of the operation that binds Name.
	Op int `yaml:"op"`
}

type Group uint8

const (
	GroupInputs Group = iota
	GroupOutputs
	GroupPwm
	GroupChannels
	GroupTimers
	GroupSerials
)

// Groups lists the layout groups in destructuring order.
var Groups = []Group{GroupInputs, GroupOutputs, GroupPwm, GroupChannels, GroupTimers, GroupSerials}

var groupNames = [...]string{"inputs", "outputs", "pwm", "channels", "timers", "serials"}

func (g Group) String() string { return groupNames[g] }

// Static is the name of the static backing the group in emitted code.
func (g Group) Static() string {
	return [...]string{"INPUT_PINS", "OUTPUT_PINS", "PWM_PINS", "CHANNELS", "TIMERS", "SERIALS"}[g]
}

// Layout lists, per group, the handles in the order callers destructure them.
type Layout struct {
	groups [len(groupNames)][]Handle
}

func (l *Layout) Add(g Group, h Handle) {
	l.groups[g] = append(l.groups[g], h)
}

func (l *Layout) Group(g Group) []Handle {
	return l.groups[g]
}

func (l *Layout) Len() int {
	n := 0
	for _, g := range l.groups {
		n += len(g)
	}
	return n
}

func (l Layout) MarshalYAML() (any, error) {
	type entry struct {
		Group   string   `yaml:"group"`
		Handles []Handle `yaml:"handles"`
	}
	out := make([]entry, 0, len(Groups))
	for _, g := range Groups {
		out = append(out, entry{Group: g.String(), Handles: l.Group(g)})
	}
	return out, nil
}

// Plan is the complete result of planning one board.
type Plan struct {
	Family   string `yaml:"family"`
	Language string `yaml:"language"`
	// Imports is the declaration preamble placed ahead of Ops.
	Imports []Operation `yaml:"imports"`
	Ops     []Operation `yaml:"ops"`
	// Unmasks are the interrupt-controller statements run once handles are in place.
	Unmasks []Operation `yaml:"unmasks,omitempty"`
	Layout  Layout      `yaml:"layout"`
}

// Index returns the position of the first operation of kind k, or -1.
func (p *Plan) Index(k OpKind) int {
	for i, op := range p.Ops {
		if op.Kind == k {
			return i
		}
	}
	return -1
}

// LastIndex returns the position of the last operation of kind k, or -1.
func (p *Plan) LastIndex(k OpKind) int {
	for i := len(p.Ops) - 1; i >= 0; i-- {
		if p.Ops[i].Kind == k {
			return i
		}
	}
	return -1
}

// Count returns the number of operations of kind k.
func (p *Plan) Count(k OpKind) int {
	n := 0
	for _, op := range p.Ops {
		if op.Kind == k {
			n++
		}
	}
	return n
}

// WriteTo writes a canonical listing of the plan.
func (p *Plan) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "family %s (%s)\n", p.Family, p.Language)
	for _, op := range p.Imports {
		fmt.Fprintf(&b, "     %s\n", op)
	}
	for i, op := range p.Ops {
		fmt.Fprintf(&b, "%4d %s\n", i, op)
	}
	for _, op := range p.Unmasks {
		fmt.Fprintf(&b, "     %s\n", op)
	}
	for _, g := range Groups {
		fmt.Fprintf(&b, "%s:", g)
		for _, h := range p.Layout.Group(g) {
			fmt.Fprintf(&b, " %s@%d<%s>", h.Name, h.Op, h.Shape.Type)
		}
		b.WriteByte('\n')
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

func (p *Plan) String() string {
	var b strings.Builder
	p.WriteTo(&b)
	return b.String()
}

// Fingerprint hashes the canonical listing; equal plans have equal fingerprints.
func (p *Plan) Fingerprint() string {
	sum := sha256.Sum256([]byte(p.String()))
	return hex.EncodeToString(sum[:])
}
