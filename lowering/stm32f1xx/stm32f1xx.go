// Package stm32f1xx lowers plans for STM32F1 parts through the stm32f1xx-hal crate.
package stm32f1xx

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"omibyte.io/hwinit/device"
	"omibyte.io/hwinit/lowering"
	"omibyte.io/hwinit/pins"
	"omibyte.io/hwinit/plan"
	"omibyte.io/hwinit/units"
)

const hal = "stm32f1xx_hal"

func init() {
	lowering.Register(device.KindStm32f1xx, Strategy{})
}

type Strategy struct{}

func (Strategy) Family() string   { return "stm32f1xx" }
func (Strategy) Language() string { return "rust" }

func (Strategy) Imports() []plan.Operation {
	uses := []string{
		"core::mem::MaybeUninit",
		hal + "::prelude::*",
		hal + "::gpio::{self, Edge, ExtiPin}",
		hal + "::timer::{self, Timer}",
		hal + "::pwm::{self, PwmChannel}",
		hal + "::pac",
		hal + "::serial::{self, Config, Serial}",
	}
	ops := make([]plan.Operation, len(uses))
	for i, u := range uses {
		ops[i] = lowering.Do(plan.OpImport, "use "+u)
	}
	return ops
}

func (Strategy) DevicePreamble() []plan.Operation {
	return []plan.Operation{
		lowering.Let(plan.OpDevice, "peripherals", hal+"::pac::Peripherals::take().unwrap()"),
		lowering.LetMut(plan.OpFlash, "flash", "peripherals.FLASH.constrain()", "peripherals"),
	}
}

func (Strategy) BusController(dev string) plan.Operation {
	return lowering.LetMut(plan.OpBus, "rcc", dev+".RCC.constrain()", dev)
}

func (Strategy) ClockBuilder(bus string) plan.Operation {
	return lowering.Let(plan.OpClockBuilder, "cfgr", bus+".cfgr", bus)
}

func (Strategy) ClockApplication(builder string, f units.Frequency) plan.Operation {
	return lowering.Let(plan.OpClockApply, builder, fmt.Sprintf("%s.sysclk(%du32.hz())", builder, uint64(f)), builder)
}

func (Strategy) ClockFreeze(builder, flash string) plan.Operation {
	return lowering.Let(plan.OpClockFreeze, "clocks", fmt.Sprintf("%s.freeze(&mut %s.acr)", builder, flash), builder, flash)
}

func (Strategy) AltFunction(dev, bus string) plan.Operation {
	return lowering.LetMut(plan.OpAltFunction, "afio", fmt.Sprintf("%s.AFIO.constrain(&mut %s.apb2)", dev, bus), dev, bus)
}

// PortSplit enables the port on APB2, which hosts every GPIO port on this line.
func (Strategy) PortSplit(p pins.Port, dev, bus string) plan.Operation {
	op := lowering.LetMut(plan.OpPortSplit, "gpio"+p.Lower(), fmt.Sprintf("%s.GPIO%s.split(&mut %s.apb2)", dev, p.Upper(), bus), dev, bus)
	return lowering.Subject(op, p.Upper())
}

var modeFunctions = map[device.Mode]string{
	device.Analog:    "into_analog",
	device.Floating:  "into_floating_input",
	device.PullDown:  "into_pull_down_input",
	device.PullUp:    "into_pull_up_input",
	device.OpenDrain: "into_open_drain_output",
	device.PushPull:  "into_push_pull_output",
}

func (Strategy) PinConfigure(pin pins.Pin, mode device.Mode, port string) []plan.Operation {
	return []plan.Operation{convert(pin, port, modeFunctions[mode])}
}

// convert moves pin out of its split port into the state named by fn.
func convert(pin pins.Pin, port, fn string) plan.Operation {
	expr := fmt.Sprintf("%s.%s.%s(&mut %s.%s)", port, pin.Ident(), fn, port, pin.Bank().Register())
	return lowering.Subject(lowering.LetMut(plan.OpPinConfigure, pin.Ident(), expr, port), pin.TypeName())
}

var edgeNames = map[device.Edge]string{
	device.Rising:  "RISING",
	device.Falling: "FALLING",
	device.Both:    "RISING_FALLING",
}

func (Strategy) InterruptWiring(pin pins.Pin, edge device.Edge, handle string, env lowering.Env) []plan.Operation {
	afio := env.AltFunction()
	dev := env.Device()
	ops := []plan.Operation{
		lowering.Do(plan.OpInterruptSource, fmt.Sprintf("%s.make_interrupt_source(&mut %s)", handle, afio), handle, afio),
		lowering.Do(plan.OpInterruptTrigger, fmt.Sprintf("%s.trigger_on_edge(&%s.EXTI, Edge::%s)", handle, dev, edgeNames[edge]), handle, dev),
		lowering.Do(plan.OpInterruptEnable, fmt.Sprintf("%s.enable_interrupt(&%s.EXTI)", handle, dev), handle, dev),
	}
	for i := range ops {
		ops[i].Subject = pin.TypeName()
	}
	return ops
}

func gpioType(pin pins.Pin, state string) string {
	return fmt.Sprintf("%s::gpio::gpio%s::%s<%s>", hal, pin.Port.Lower(), pin.TypeName(), state)
}

func (Strategy) ResultType(pin pins.Pin, mode device.Mode) plan.Shape {
	shape := plan.Shape{Port: pin.Port.Upper(), Mode: mode.TypeName()}
	switch {
	case mode == device.Analog:
		shape.Class = plan.ClassInput
		shape.Type = gpioType(pin, hal+"::gpio::Analog")
	case mode.Direction() == device.Input:
		shape.Class = plan.ClassInput
		shape.Type = gpioType(pin, fmt.Sprintf("%s::gpio::Input<%s::gpio::%s>", hal, hal, mode.TypeName()))
	default:
		shape.Class = plan.ClassOutput
		shape.Type = gpioType(pin, fmt.Sprintf("%s::gpio::Output<%s::gpio::%s>", hal, hal, mode.TypeName()))
	}
	return shape
}

func (Strategy) Pwm(spec device.Pwm, env lowering.Env) (lowering.PwmResult, error) {
	var res lowering.PwmResult
	t, err := timerFor(spec.Timer)
	if err != nil {
		return res, err
	}
	channels := make([]int, len(spec.Pins))
	for i, pin := range spec.Pins {
		if channels[i], err = channelOf(spec.Timer, pin); err != nil {
			return res, err
		}
	}
	clocks, err := env.Clocks()
	if err != nil {
		return res, err
	}
	afio := env.AltFunction()
	dev, bus := env.Device(), env.Bus()

	for _, pin := range spec.Pins {
		res.Ops = append(res.Ops, convert(pin, env.Port(pin.Port), "into_alternate_push_pull"))
	}

	// The HAL takes the pins in channel order and hands the channels back in
	// the same order.
	order := make([]int, len(spec.Pins))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) bool { return channels[a] < channels[b] })
	names := make([]string, len(order))
	slot := make([]int, len(order))
	for pos, i := range order {
		names[pos] = spec.Pins[i].Ident()
		slot[i] = pos
	}

	tuple := spec.Timer + "_channels"
	expr := fmt.Sprintf("Timer::%s(%s.%s, &%s, &mut %s.%s).pwm::<timer::%s, _, _, _>(%s, &mut %s.mapr, %du32.hz())",
		spec.Timer, dev, strings.ToUpper(spec.Timer), clocks, bus, t.bus, t.remap,
		lowering.Tuple(names...), afio, uint64(lowering.PwmFrequency(spec)))
	refs := append([]string{dev, clocks, bus, afio}, names...)
	res.Ops = append(res.Ops, lowering.Subject(lowering.Let(plan.OpTimer, tuple, expr, refs...), spec.Timer))

	for i, pin := range spec.Pins {
		name := fmt.Sprintf("%s_ch%d", spec.Timer, channels[i])
		op := lowering.LetMut(plan.OpPwmChannel, name, fmt.Sprintf("%s.%d", tuple, slot[i]), tuple)
		res.Ops = append(res.Ops, lowering.Subject(op, pin.TypeName()))
		res.Channels = append(res.Channels, plan.Handle{
			Name: name,
			Shape: plan.Shape{
				Type:  fmt.Sprintf("%s::pwm::PwmChannel<%s::pac::%s, %s::pwm::C%d>", hal, hal, strings.ToUpper(spec.Timer), hal, channels[i]),
				Class: plan.ClassPwmChannel,
				Port:  pin.Port.Upper(),
				Mode:  "PushPull",
			},
			Op: len(res.Ops) - 1,
		})
	}
	return res, nil
}

func (Strategy) Serial(spec device.Serial, env lowering.Env) (lowering.SerialResult, error) {
	var res lowering.SerialResult
	info, err := serialFor(spec.ID, spec.TX, spec.RX)
	if err != nil {
		return res, err
	}
	clocks, err := env.Clocks()
	if err != nil {
		return res, err
	}
	afio := env.AltFunction()
	dev, bus := env.Device(), env.Bus()

	tx, rx := spec.TX.Ident(), spec.RX.Ident()
	res.Ops = append(res.Ops,
		convert(spec.TX, env.Port(spec.TX.Port), "into_alternate_push_pull"),
		convert(spec.RX, env.Port(spec.RX.Port), "into_floating_input"))

	expr := fmt.Sprintf("Serial::%s(%s.%s, (%s, %s), &mut %s.mapr, Config::default().baudrate(%du32.bps()), %s, &mut %s.%s)",
		spec.ID, dev, strings.ToUpper(spec.ID), tx, rx, afio, spec.Baud, clocks, bus, info.bus)
	op := lowering.Let(plan.OpSerial, spec.ID, expr, dev, tx, rx, afio, clocks, bus)
	res.Ops = append(res.Ops, lowering.Subject(op, spec.ID))

	res.Handle = plan.Handle{
		Name: spec.ID,
		Shape: plan.Shape{
			Type: fmt.Sprintf("%s::serial::Serial<%s::pac::%s, (%s, %s)>", hal, hal, strings.ToUpper(spec.ID),
				gpioType(spec.TX, fmt.Sprintf("%s::gpio::Alternate<%s::gpio::PushPull>", hal, hal)),
				gpioType(spec.RX, fmt.Sprintf("%s::gpio::Input<%s::gpio::Floating>", hal, hal))),
			Class: plan.ClassSerial,
		},
		Op: len(res.Ops) - 1,
	}
	return res, nil
}

// InterruptUnmasks unmasks the EXTI vector of every triggered input, in line
// order, followed by the interrupt of every serial port.
func (Strategy) InterruptUnmasks(cfg *device.Config) []plan.Operation {
	var lines []pins.Pin
	for _, g := range cfg.Inputs() {
		if g.Trigger != nil {
			lines = append(lines, g.Pin)
		}
	}
	slices.SortFunc(lines, func(a, b pins.Pin) bool { return a.Number < b.Number })

	var irqs []string
	for _, pin := range lines {
		if line := extiLine(pin); !slices.Contains(irqs, line) {
			irqs = append(irqs, line)
		}
	}
	for _, s := range cfg.SerialBlocks() {
		if info, ok := serials[s.ID]; ok && !slices.Contains(irqs, info.irq) {
			irqs = append(irqs, info.irq)
		}
	}

	ops := make([]plan.Operation, len(irqs))
	for i, irq := range irqs {
		ops[i] = lowering.Subject(lowering.Do(plan.OpUnmask, fmt.Sprintf("%s::pac::NVIC::unmask(%s::pac::Interrupt::%s)", hal, hal, irq)), irq)
	}
	return ops
}

var _ lowering.Strategy = Strategy{}
