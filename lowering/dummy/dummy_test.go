package dummy

import (
	"testing"

	"omibyte.io/hwinit/device"
	"omibyte.io/hwinit/lowering"
	"omibyte.io/hwinit/pins"
	"omibyte.io/hwinit/plan"
)

type env struct{}

func (env) Device() string          { return "device" }
func (env) Flash() string           { return "flash" }
func (env) Bus() string             { return "bus" }
func (env) Clocks() (string, error) { return "clocks", nil }
func (env) AltFunction() string     { return "afio" }
func (env) Port(p pins.Port) string { return "port_" + p.Lower() }

func TestLookup(t *testing.T) {
	s, err := lowering.Lookup(device.KindDummy)
	if err != nil {
		t.Fatal(err)
	}
	if s.Family() != "dummy" {
		t.Errorf("got family %s", s.Family())
	}
}

func TestPinConfigure(t *testing.T) {
	ops := Strategy{}.PinConfigure(pins.MustParse("PB3"), device.OpenDrain, "port_b")
	if len(ops) != 1 || ops[0].Expr != "port_b.pb3.into_open_drain()" {
		t.Errorf("unexpected ops %v", ops)
	}
	shape := Strategy{}.ResultType(pins.MustParse("PB3"), device.OpenDrain)
	if shape.Class != plan.ClassOutput || shape.Type != "dummy_hal::Pin<'B', 3, dummy_hal::Output<dummy_hal::OpenDrain>>" {
		t.Errorf("unexpected shape %+v", shape)
	}
}

func TestPwmAndSerial(t *testing.T) {
	spec := device.Pwm{Timer: "tim3", Pins: []pins.Pin{pins.MustParse("PC1"), pins.MustParse("PC2")}}
	res, err := Strategy{}.Pwm(spec, env{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Ops) != 3 || res.Ops[0].Expr != "device.tim3(&clocks).pwm(1000)" {
		t.Errorf("unexpected ops %v", res.Ops)
	}
	if res.Channels[1].Name != "tim3_ch2" || res.Channels[1].Op != 2 {
		t.Errorf("unexpected channel %+v", res.Channels[1])
	}

	sr, err := Strategy{}.Serial(device.Serial{ID: "serial0", TX: pins.MustParse("PA9"), RX: pins.MustParse("PA10"), Baud: 9600}, env{})
	if err != nil {
		t.Fatal(err)
	}
	if sr.Ops[sr.Handle.Op].Expr != "device.serial0(port_a.pa9, port_a.pa10, 9600, &clocks)" {
		t.Errorf("unexpected serial op %v", sr.Ops)
	}
}
