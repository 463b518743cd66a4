// Package planner turns a validated board configuration into an ordered
// initialization plan by running a fixed sequence of phases against a family
// lowering strategy.
package planner

import (
	"fmt"
	"log"
	"strings"

	"omibyte.io/hwinit/claims"
	"omibyte.io/hwinit/device"
	"omibyte.io/hwinit/hwerr"
	"omibyte.io/hwinit/lowering"
	"omibyte.io/hwinit/pins"
	"omibyte.io/hwinit/plan"
)

type Options struct {
	// Strategy overrides the strategy registered for the configuration's kind.
	Strategy lowering.Strategy
	// Logger receives a trace of every emitted operation. Nil is silent.
	Logger *log.Logger
}

type pass struct {
	*Builder
	cfg  *device.Config
	pool *claims.Pool
}

// Build plans cfg. Planning is all or nothing: any error discards the partial plan.
func Build(cfg *device.Config, options Options) (*plan.Plan, error) {
	strategy := options.Strategy
	if strategy == nil {
		var err error
		if strategy, err = lowering.Lookup(cfg.Kind); err != nil {
			return nil, err
		}
	}

	pool, err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	p := &pass{
		Builder: NewBuilder(strategy, options.Logger),
		cfg:     cfg,
		pool:    pool,
	}
	for _, phase := range phaseOrder {
		p.logf("phase %s", phase)
		if err := p.run(phase); err != nil {
			return nil, err
		}
	}

	if rest := pool.Remaining(); len(rest) > 0 {
		keys := make([]string, len(rest))
		for i, pin := range rest {
			keys[i] = pin.Key()
		}
		return nil, hwerr.State(hwerr.ErrInconsistentPlan, strings.Join(keys, ","), "pins declared but never configured")
	}

	result := p.Plan()
	if err := result.Check(); err != nil {
		return nil, err
	}
	return result, nil
}

func (p *pass) run(phase phaseID) error {
	switch phase {
	case phaseDevice:
		p.Device()
	case phaseClock:
		return p.clock()
	case phasePorts:
		for _, port := range pins.DistinctPorts(p.cfg.Pins()) {
			p.Port(port)
		}
	case phaseInputs:
		for _, g := range p.cfg.Inputs() {
			if err := p.gpio(g, plan.GroupInputs); err != nil {
				return err
			}
		}
	case phaseOutputs:
		for _, g := range p.cfg.Outputs() {
			if err := p.gpio(g, plan.GroupOutputs); err != nil {
				return err
			}
		}
	case phasePwm:
		for i, spec := range p.cfg.PwmBlocks() {
			if err := p.pwm(spec); err != nil {
				return hwerr.At(fmt.Sprintf("pwm[%d]", i), err)
			}
		}
	case phaseSerial:
		for i, spec := range p.cfg.SerialBlocks() {
			if err := p.serial(spec); err != nil {
				return hwerr.At(fmt.Sprintf("serial[%d]", i), err)
			}
		}
	case phaseUnmasks:
		p.plan.Imports = p.strategy.Imports()
		p.plan.Unmasks = p.strategy.InterruptUnmasks(p.cfg)
	}
	return nil
}

// clock configures and freezes the clock tree ahead of any port split. With no
// requested frequency the tree is still frozen at its reset configuration when
// a timer or serial block will need the clocks later.
func (p *pass) clock() error {
	if f := p.cfg.Sys.Clock; f != nil {
		if err := p.ApplyClock(*f); err != nil {
			return err
		}
	} else if len(p.cfg.Pwm) == 0 && len(p.cfg.Serial) == 0 {
		return nil
	}
	_, err := p.Clocks()
	return err
}

func (p *pass) gpio(g device.Gpio, group plan.Group) error {
	if err := p.pool.Claim(g.Pin, device.GpioRole(g)); err != nil {
		return err
	}
	name := g.Pin.Ident()
	p.emit(p.strategy.PinConfigure(g.Pin, g.Mode, p.Port(g.Pin.Port))...)
	if g.Trigger != nil {
		p.AltFunction()
		p.emit(p.strategy.InterruptWiring(g.Pin, *g.Trigger, name, p)...)
	}

	at := p.lastBinding(name)
	if at < 0 {
		return hwerr.State(hwerr.ErrInconsistentPlan, name, "pin configuration bound no handle")
	}
	p.plan.Layout.Add(group, plan.Handle{
		Name:  name,
		Shape: p.strategy.ResultType(g.Pin, g.Mode),
		Op:    at,
	})
	return nil
}

func (p *pass) pwm(spec device.Pwm) error {
	role := device.PwmRole(spec)
	for _, pin := range spec.Pins {
		if err := p.pool.Claim(pin, role); err != nil {
			return err
		}
	}
	res, err := p.strategy.Pwm(spec, p)
	if err != nil {
		return err
	}
	if len(res.Channels) != len(spec.Pins) {
		return hwerr.State(hwerr.ErrInconsistentPlan, spec.Timer, "%d pins produced %d channels", len(spec.Pins), len(res.Channels))
	}
	base := p.emit(res.Ops...)
	for _, h := range res.Channels {
		h.Op += base
		p.plan.Layout.Add(plan.GroupPwm, h)
	}
	return nil
}

func (p *pass) serial(spec device.Serial) error {
	if err := p.pool.Claim(spec.RX, device.SerialRole(spec, "rx")); err != nil {
		return err
	}
	if err := p.pool.Claim(spec.TX, device.SerialRole(spec, "tx")); err != nil {
		return err
	}
	res, err := p.strategy.Serial(spec, p)
	if err != nil {
		return err
	}
	base := p.emit(res.Ops...)
	h := res.Handle
	h.Op += base
	p.plan.Layout.Add(plan.GroupSerials, h)
	return nil
}

func (b *Builder) lastBinding(name string) int {
	for i := len(b.plan.Ops) - 1; i >= 0; i-- {
		if b.plan.Ops[i].Name == name {
			return i
		}
	}
	return -1
}
