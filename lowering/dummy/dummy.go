// Package dummy is a family without hardware behind it. Its operations are
// plain pseudo-Rust so planner output can be checked by eye.
package dummy

import (
	"fmt"

	"omibyte.io/hwinit/device"
	"omibyte.io/hwinit/lowering"
	"omibyte.io/hwinit/pins"
	"omibyte.io/hwinit/plan"
	"omibyte.io/hwinit/units"
)

func init() {
	lowering.Register(device.KindDummy, Strategy{})
}

type Strategy struct{}

func (Strategy) Family() string   { return "dummy" }
func (Strategy) Language() string { return "rust" }

func (Strategy) Imports() []plan.Operation {
	return []plan.Operation{
		lowering.Do(plan.OpImport, "use core::mem::MaybeUninit"),
		lowering.Do(plan.OpImport, "use dummy_hal::prelude::*"),
	}
}

func (Strategy) DevicePreamble() []plan.Operation {
	return []plan.Operation{
		lowering.Let(plan.OpDevice, "device", "dummy_hal::Device::take()"),
		lowering.LetMut(plan.OpFlash, "flash", "device.flash()", "device"),
	}
}

func (Strategy) BusController(dev string) plan.Operation {
	return lowering.LetMut(plan.OpBus, "bus", dev+".bus()", dev)
}

func (Strategy) ClockBuilder(bus string) plan.Operation {
	return lowering.Let(plan.OpClockBuilder, "clock_config", bus+".clock_config()", bus)
}

func (Strategy) ClockApplication(builder string, f units.Frequency) plan.Operation {
	return lowering.Let(plan.OpClockApply, builder, fmt.Sprintf("%s.sysclk(%d)", builder, uint64(f)), builder)
}

func (Strategy) ClockFreeze(builder, flash string) plan.Operation {
	return lowering.Let(plan.OpClockFreeze, "clocks", fmt.Sprintf("%s.freeze(&mut %s)", builder, flash), builder, flash)
}

func (Strategy) AltFunction(dev, bus string) plan.Operation {
	return lowering.LetMut(plan.OpAltFunction, "afio", fmt.Sprintf("%s.afio(&mut %s)", dev, bus), dev, bus)
}

func (Strategy) PortSplit(p pins.Port, dev, bus string) plan.Operation {
	op := lowering.LetMut(plan.OpPortSplit, "port_"+p.Lower(), fmt.Sprintf("%s.port_%s(&mut %s)", dev, p.Lower(), bus), dev, bus)
	return lowering.Subject(op, p.Upper())
}

func (Strategy) PinConfigure(pin pins.Pin, mode device.Mode, port string) []plan.Operation {
	expr := fmt.Sprintf("%s.%s.into_%s()", port, pin.Ident(), mode.Name())
	return []plan.Operation{lowering.Subject(lowering.LetMut(plan.OpPinConfigure, pin.Ident(), expr, port), pin.TypeName())}
}

func (Strategy) InterruptWiring(pin pins.Pin, edge device.Edge, handle string, env lowering.Env) []plan.Operation {
	afio := env.AltFunction()
	return []plan.Operation{
		lowering.Do(plan.OpInterruptSource, fmt.Sprintf("%s.make_interrupt_source(&mut %s)", handle, afio), handle, afio),
		lowering.Do(plan.OpInterruptTrigger, fmt.Sprintf("%s.trigger_on_edge(dummy_hal::Edge::%s)", handle, edge), handle),
		lowering.Do(plan.OpInterruptEnable, handle+".enable_interrupt()", handle),
	}
}

func (Strategy) ResultType(pin pins.Pin, mode device.Mode) plan.Shape {
	class := plan.ClassInput
	if mode.Direction() == device.Output {
		class = plan.ClassOutput
	}
	return plan.Shape{
		Type:  fmt.Sprintf("dummy_hal::Pin<'%s', %d, dummy_hal::%s<dummy_hal::%s>>", pin.Port.Upper(), pin.Number, mode.Direction(), mode.TypeName()),
		Class: class,
		Port:  pin.Port.Upper(),
		Mode:  mode.TypeName(),
	}
}

// Pwm accepts any pin on any timer; channels are numbered in block order.
func (Strategy) Pwm(spec device.Pwm, env lowering.Env) (lowering.PwmResult, error) {
	var res lowering.PwmResult
	clocks, err := env.Clocks()
	if err != nil {
		return res, err
	}
	dev := env.Device()
	timer := lowering.Let(plan.OpTimer, spec.Timer, fmt.Sprintf("%s.%s(&%s).pwm(%d)", dev, spec.Timer, clocks, uint64(lowering.PwmFrequency(spec))), dev, clocks)
	res.Ops = append(res.Ops, lowering.Subject(timer, spec.Timer))
	for i, pin := range spec.Pins {
		port := env.Port(pin.Port)
		name := fmt.Sprintf("%s_ch%d", spec.Timer, i+1)
		op := lowering.LetMut(plan.OpPwmChannel, name, fmt.Sprintf("%s.channel(%s.%s)", spec.Timer, port, pin.Ident()), spec.Timer, port)
		res.Ops = append(res.Ops, lowering.Subject(op, pin.TypeName()))
		res.Channels = append(res.Channels, plan.Handle{
			Name:  name,
			Shape: plan.Shape{Type: "dummy_hal::PwmChannel", Class: plan.ClassPwmChannel, Port: pin.Port.Upper()},
			Op:    len(res.Ops) - 1,
		})
	}
	return res, nil
}

func (Strategy) Serial(spec device.Serial, env lowering.Env) (lowering.SerialResult, error) {
	var res lowering.SerialResult
	clocks, err := env.Clocks()
	if err != nil {
		return res, err
	}
	dev := env.Device()
	tx, rx := env.Port(spec.TX.Port), env.Port(spec.RX.Port)
	expr := fmt.Sprintf("%s.%s(%s.%s, %s.%s, %d, &%s)", dev, spec.ID, tx, spec.TX.Ident(), rx, spec.RX.Ident(), spec.Baud, clocks)
	res.Ops = []plan.Operation{lowering.Subject(lowering.Let(plan.OpSerial, spec.ID, expr, dev, tx, rx, clocks), spec.ID)}
	res.Handle = plan.Handle{
		Name:  spec.ID,
		Shape: plan.Shape{Type: "dummy_hal::Serial", Class: plan.ClassSerial},
	}
	return res, nil
}

func (Strategy) InterruptUnmasks(cfg *device.Config) []plan.Operation {
	var ops []plan.Operation
	for _, g := range cfg.Inputs() {
		if g.Trigger != nil {
			ops = append(ops, lowering.Subject(lowering.Do(plan.OpUnmask, fmt.Sprintf("dummy_hal::unmask(%q)", g.Pin.Key())), g.Pin.Key()))
		}
	}
	return ops
}

var _ lowering.Strategy = Strategy{}
