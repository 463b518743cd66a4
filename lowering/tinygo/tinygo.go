// Package tinygo lowers plans to Go statements against TinyGo's machine
// package for STM32F1 boards.
//
// The machine package hides the device singleton, the bus controller and the
// port split behind package-level values, so those steps are kept in the plan
// as elided operations: they still order the plan but produce no code.
package tinygo

import (
	"fmt"
	"strings"

	"omibyte.io/hwinit/device"
	"omibyte.io/hwinit/lowering"
	"omibyte.io/hwinit/pins"
	"omibyte.io/hwinit/plan"
	"omibyte.io/hwinit/units"
)

// InterruptHook is the package-level function generated code forwards pin
// interrupts to.
const InterruptHook = "OnInterrupt"

func init() {
	lowering.Register(device.KindTinyGo, Strategy{})
}

type Strategy struct{}

func (Strategy) Family() string   { return "tinygo" }
func (Strategy) Language() string { return "go" }

func (Strategy) Imports() []plan.Operation {
	return []plan.Operation{lowering.Do(plan.OpImport, "machine")}
}

func (Strategy) DevicePreamble() []plan.Operation {
	return []plan.Operation{
		lowering.Elide(lowering.Let(plan.OpDevice, "peripherals", "peripherals are package-level values in machine")),
		lowering.Elide(lowering.Let(plan.OpFlash, "flash", "flash wait states are set by the runtime", "peripherals")),
	}
}

func (Strategy) BusController(dev string) plan.Operation {
	return lowering.Elide(lowering.Let(plan.OpBus, "rcc", "peripheral clocks are enabled by Configure", dev))
}

func (Strategy) ClockBuilder(bus string) plan.Operation {
	return lowering.Elide(lowering.Let(plan.OpClockBuilder, "cfgr", "the clock tree is fixed by the build target", bus))
}

func (Strategy) ClockApplication(builder string, f units.Frequency) plan.Operation {
	return lowering.Elide(lowering.Let(plan.OpClockApply, builder, fmt.Sprintf("system clock %s is selected by the build target", f), builder))
}

func (Strategy) ClockFreeze(builder, flash string) plan.Operation {
	return lowering.Elide(lowering.Let(plan.OpClockFreeze, "clocks", "clocks are frozen by the runtime before main", builder, flash))
}

func (Strategy) AltFunction(dev, bus string) plan.Operation {
	return lowering.Elide(lowering.Let(plan.OpAltFunction, "afio", "AFIO is enabled by SetInterrupt", dev, bus))
}

func (Strategy) PortSplit(p pins.Port, dev, bus string) plan.Operation {
	op := lowering.Let(plan.OpPortSplit, "gpio"+p.Lower(), fmt.Sprintf("port %s is enabled on first Configure", p.Upper()), dev, bus)
	return lowering.Subject(lowering.Elide(op), p.Upper())
}

var pinModes = map[device.Mode]string{
	device.Analog:    "machine.PinInputAnalog",
	device.Floating:  "machine.PinInputFloating",
	device.PullDown:  "machine.PinInputPulldown",
	device.PullUp:    "machine.PinInputPullup",
	device.OpenDrain: "machine.PinOutputOpenDrain",
	device.PushPull:  "machine.PinOutput",
}

func pinValue(pin pins.Pin, port string) plan.Operation {
	return lowering.Subject(lowering.Let(plan.OpPinConfigure, pin.Ident(), "machine."+pin.TypeName(), port), pin.TypeName())
}

func (Strategy) PinConfigure(pin pins.Pin, mode device.Mode, port string) []plan.Operation {
	name := pin.Ident()
	configure := lowering.Do(plan.OpPinConfigure, fmt.Sprintf("%s.Configure(machine.PinConfig{Mode: %s})", name, pinModes[mode]), name)
	return []plan.Operation{pinValue(pin, port), lowering.Subject(configure, pin.TypeName())}
}

var edgeModes = map[device.Edge]string{
	device.Rising:  "machine.PinRising",
	device.Falling: "machine.PinFalling",
	device.Both:    "machine.PinToggle",
}

func (Strategy) InterruptWiring(pin pins.Pin, edge device.Edge, handle string, env lowering.Env) []plan.Operation {
	afio := env.AltFunction()
	callback := fmt.Sprintf("func(p machine.Pin) { %s(p) }", InterruptHook)
	ops := []plan.Operation{
		lowering.Elide(lowering.Do(plan.OpInterruptSource, "EXTI line is routed by SetInterrupt", handle, afio)),
		lowering.Fallible(lowering.Do(plan.OpInterruptTrigger, fmt.Sprintf("%s.SetInterrupt(%s, %s)", handle, edgeModes[edge], callback), handle)),
		lowering.Elide(lowering.Do(plan.OpInterruptEnable, "EXTI interrupt is enabled by SetInterrupt", handle)),
	}
	for i := range ops {
		ops[i].Subject = pin.TypeName()
	}
	return ops
}

func (Strategy) ResultType(pin pins.Pin, mode device.Mode) plan.Shape {
	class := plan.ClassInput
	if mode.Direction() == device.Output {
		class = plan.ClassOutput
	}
	return plan.Shape{Type: "machine.Pin", Class: class, Port: pin.Port.Upper(), Mode: mode.TypeName()}
}

func (Strategy) Pwm(spec device.Pwm, env lowering.Env) (lowering.PwmResult, error) {
	var res lowering.PwmResult
	clocks, err := env.Clocks()
	if err != nil {
		return res, err
	}
	timer := spec.Timer
	period := uint64(1e9) / uint64(lowering.PwmFrequency(spec))

	for _, pin := range spec.Pins {
		res.Ops = append(res.Ops, pinValue(pin, env.Port(pin.Port)))
	}
	res.Ops = append(res.Ops,
		lowering.Subject(lowering.Let(plan.OpTimer, timer, "&machine."+strings.ToUpper(timer), clocks), timer),
		lowering.Subject(lowering.Fallible(lowering.Do(plan.OpTimer, fmt.Sprintf("%s.Configure(machine.PWMConfig{Period: %d})", timer, period), timer)), timer))

	for _, pin := range spec.Pins {
		name := timer + "_" + pin.Ident()
		op := lowering.Fallible(lowering.Let(plan.OpPwmChannel, name, fmt.Sprintf("%s.Channel(%s)", timer, pin.Ident()), timer, pin.Ident()))
		res.Ops = append(res.Ops, lowering.Subject(op, pin.TypeName()))
		res.Channels = append(res.Channels, plan.Handle{
			Name:  name,
			Shape: plan.Shape{Type: "uint8", Class: plan.ClassPwmChannel, Port: pin.Port.Upper()},
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
	uart := "machine.UART" + strings.TrimPrefix(spec.ID, "usart")
	tx, rx := spec.TX.Ident(), spec.RX.Ident()

	res.Ops = append(res.Ops,
		pinValue(spec.TX, env.Port(spec.TX.Port)),
		pinValue(spec.RX, env.Port(spec.RX.Port)),
		lowering.Subject(lowering.Let(plan.OpSerial, spec.ID, uart, clocks), spec.ID))
	res.Handle = plan.Handle{
		Name:  spec.ID,
		Shape: plan.Shape{Type: "*machine.UART", Class: plan.ClassSerial},
		Op:    len(res.Ops) - 1,
	}
	configure := fmt.Sprintf("%s.Configure(machine.UARTConfig{BaudRate: %d, TX: %s, RX: %s})", spec.ID, spec.Baud, tx, rx)
	res.Ops = append(res.Ops, lowering.Subject(lowering.Fallible(lowering.Do(plan.OpSerial, configure, spec.ID, tx, rx)), spec.ID))
	return res, nil
}

// InterruptUnmasks returns nothing: SetInterrupt enables the NVIC line itself.
func (Strategy) InterruptUnmasks(*device.Config) []plan.Operation { return nil }

var _ lowering.Strategy = Strategy{}
