package planner

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	"omibyte.io/hwinit/device"
	"omibyte.io/hwinit/hwerr"
	_ "omibyte.io/hwinit/lowering/dummy"
	"omibyte.io/hwinit/lowering/stm32f1xx"
	_ "omibyte.io/hwinit/lowering/tinygo"
	"omibyte.io/hwinit/pins"
	"omibyte.io/hwinit/plan"
	"omibyte.io/hwinit/units"
)

func bluePill() *device.Config {
	falling := device.Falling
	clock := units.Frequency(36_000_000)
	return &device.Config{
		Kind: device.KindStm32f1xx,
		Sys:  device.Sys{Clock: &clock, Heap: 10_240},
		Gpio: []device.Gpio{
			{Pin: pins.MustParse("PA0"), Mode: device.PullUp, Direction: device.Input, Trigger: &falling},
			{Pin: pins.MustParse("PC13"), Mode: device.PushPull, Direction: device.Output},
		},
	}
}

func kinds(p *plan.Plan) []plan.OpKind {
	out := make([]plan.OpKind, len(p.Ops))
	for i, op := range p.Ops {
		out[i] = op.Kind
	}
	return out
}

func TestBuildBluePill(t *testing.T) {
	p, err := Build(bluePill(), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []plan.OpKind{
		plan.OpDevice, plan.OpFlash,
		plan.OpBus, plan.OpClockBuilder, plan.OpClockApply, plan.OpClockFreeze,
		plan.OpPortSplit, plan.OpPortSplit,
		plan.OpPinConfigure,
		plan.OpAltFunction, plan.OpInterruptSource, plan.OpInterruptTrigger, plan.OpInterruptEnable,
		plan.OpPinConfigure,
	}
	got := kinds(p)
	if len(got) != len(want) {
		t.Fatalf("expected %d operations, got %d:\n%s", len(want), len(got), p)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("operation %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	if p.Ops[6].Name != "gpioa" || p.Ops[7].Name != "gpioc" {
		t.Errorf("expected ports A then C, got %s and %s", p.Ops[6].Name, p.Ops[7].Name)
	}
	if p.Ops[11].Expr != "pa0.trigger_on_edge(&peripherals.EXTI, Edge::FALLING)" {
		t.Errorf("unexpected trigger %s", p.Ops[11].Expr)
	}

	inputs := p.Layout.Group(plan.GroupInputs)
	if len(inputs) != 1 || inputs[0].Name != "pa0" || inputs[0].Shape.Mode != "PullUp" || inputs[0].Shape.Port != "A" || inputs[0].Op != 8 {
		t.Errorf("unexpected inputs %+v", inputs)
	}
	outputs := p.Layout.Group(plan.GroupOutputs)
	if len(outputs) != 1 || outputs[0].Name != "pc13" || outputs[0].Shape.Class != plan.ClassOutput || outputs[0].Shape.Port != "C" {
		t.Errorf("unexpected outputs %+v", outputs)
	}
	for _, g := range []plan.Group{plan.GroupPwm, plan.GroupChannels, plan.GroupTimers, plan.GroupSerials} {
		if n := len(p.Layout.Group(g)); n != 0 {
			t.Errorf("expected %s to be empty, got %d handles", g, n)
		}
	}
	if len(p.Unmasks) != 1 || p.Unmasks[0].Subject != "EXTI0" {
		t.Errorf("unexpected unmasks %v", p.Unmasks)
	}
	if len(p.Imports) == 0 || p.Family != "stm32f1xx" {
		t.Errorf("unexpected preamble %s %v", p.Family, p.Imports)
	}
}

func TestBuildFullBoard(t *testing.T) {
	cfg, err := device.Load("../device/testdata/bluepill.yaml")
	if err != nil {
		t.Fatal(err)
	}
	p, err := Build(cfg, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if n := p.Count(plan.OpPortSplit); n != 3 {
		t.Errorf("expected 3 port splits, got %d", n)
	}
	if n := p.Count(plan.OpAltFunction); n != 1 {
		t.Errorf("expected one alternate-function acquisition, got %d", n)
	}
	if n := p.Count(plan.OpClockFreeze); n != 1 {
		t.Errorf("expected one freeze, got %d", n)
	}
	pwm := p.Layout.Group(plan.GroupPwm)
	if len(pwm) != 1 || pwm[0].Name != "tim2_ch2" || p.Ops[pwm[0].Op].Subject != "PA1" {
		t.Errorf("unexpected pwm handles %+v", pwm)
	}
	serials := p.Layout.Group(plan.GroupSerials)
	if len(serials) != 1 || serials[0].Name != "usart1" || p.Ops[serials[0].Op].Kind != plan.OpSerial {
		t.Errorf("unexpected serial handles %+v", serials)
	}
	if len(p.Unmasks) != 2 || p.Unmasks[1].Subject != "USART1" {
		t.Errorf("unexpected unmasks %v", p.Unmasks)
	}
}

func TestDeterminism(t *testing.T) {
	for _, kind := range device.Kinds() {
		t.Run(kind.String(), func(t *testing.T) {
			cfg := bluePill()
			cfg.Kind = kind
			first, err := Build(cfg, Options{})
			if err != nil {
				t.Fatal(err)
			}
			second, err := Build(cfg, Options{})
			if err != nil {
				t.Fatal(err)
			}
			if first.String() != second.String() || first.Fingerprint() != second.Fingerprint() {
				t.Errorf("plans differ:\n%s\n%s", first, second)
			}
		})
	}
}

func TestOrderingInvariant(t *testing.T) {
	rising := device.Rising
	clock := units.Frequency(72_000_000)
	freq := units.Frequency(20_000)
	cfg := &device.Config{
		Kind: device.KindStm32f1xx,
		Sys:  device.Sys{Clock: &clock, Heap: 4096},
		Gpio: []device.Gpio{
			{Pin: pins.MustParse("PB12"), Mode: device.PushPull, Direction: device.Output},
			{Pin: pins.MustParse("PC14"), Mode: device.Floating, Direction: device.Input, Trigger: &rising},
			{Pin: pins.MustParse("PA5"), Mode: device.PullDown, Direction: device.Input, Trigger: &rising},
		},
		Pwm:    []device.Pwm{{Timer: "tim4", Pins: []pins.Pin{pins.MustParse("PB8"), pins.MustParse("PB9")}, Frequency: &freq}},
		Serial: []device.Serial{{ID: "usart2", TX: pins.MustParse("PA2"), RX: pins.MustParse("PA3"), Baud: 115200}},
	}

	for _, kind := range device.Kinds() {
		t.Run(kind.String(), func(t *testing.T) {
			cfg.Serial[0].ID = "usart2"
			if kind == device.KindDummy {
				cfg.Serial[0].ID = "serial2"
			}
			cfg.Kind = kind
			p, err := Build(cfg, Options{})
			if err != nil {
				t.Fatal(err)
			}
			freeze := p.Index(plan.OpClockFreeze)
			if freeze < 0 || freeze > p.Index(plan.OpPortSplit) {
				t.Errorf("freeze at %d, first port split at %d", freeze, p.Index(plan.OpPortSplit))
			}
			afio := p.Index(plan.OpAltFunction)
			if afio < 0 || afio > p.Index(plan.OpInterruptSource) {
				t.Errorf("alternate function at %d, first interrupt source at %d", afio, p.Index(plan.OpInterruptSource))
			}
			if p.LastIndex(plan.OpPortSplit) > p.Index(plan.OpPinConfigure) {
				t.Errorf("a port is split after the first pin configuration")
			}
			inputs := p.Layout.Group(plan.GroupInputs)
			if len(inputs) != 2 || inputs[0].Name != "pc14" || inputs[1].Name != "pa5" {
				t.Errorf("inputs out of configuration order: %+v", inputs)
			}
			if n := len(p.Layout.Group(plan.GroupPwm)); n != 2 {
				t.Errorf("expected 2 pwm handles, got %d", n)
			}
		})
	}
}

func TestNoClock(t *testing.T) {
	cfg := bluePill()
	cfg.Sys.Clock = nil
	p, err := Build(cfg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if p.Count(plan.OpClockBuilder) != 0 || p.Count(plan.OpClockFreeze) != 0 {
		t.Errorf("expected no clock configuration:\n%s", p)
	}

	cfg.Serial = []device.Serial{{ID: "usart1", TX: pins.MustParse("PA9"), RX: pins.MustParse("PA10"), Baud: 9600}}
	p, err = Build(cfg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if p.Count(plan.OpClockApply) != 0 || p.Index(plan.OpClockFreeze) > p.Index(plan.OpPortSplit) {
		t.Errorf("expected the reset clocks frozen ahead of the ports:\n%s", p)
	}
}

func TestBuildErrors(t *testing.T) {
	cfg := bluePill()
	cfg.Serial = []device.Serial{{ID: "usart1", TX: pins.MustParse("PA0"), RX: pins.MustParse("PA10"), Baud: 9600}}
	if _, err := Build(cfg, Options{}); !errors.Is(err, hwerr.ErrDuplicatePinUse) || !errors.Is(err, hwerr.ErrExclusivity) {
		t.Errorf("expected an exclusivity error, got %v", err)
	}

	cfg = bluePill()
	cfg.Kind = device.Kind(42)
	if _, err := Build(cfg, Options{}); !errors.Is(err, hwerr.ErrUnknownDeviceKind) {
		t.Errorf("expected unknown device kind, got %v", err)
	}

	cfg = bluePill()
	cfg.Pwm = []device.Pwm{{Timer: "tim3", Pins: []pins.Pin{pins.MustParse("PC0")}}}
	_, err := Build(cfg, Options{})
	if !errors.Is(err, hwerr.ErrPinNotRoutable) {
		t.Fatalf("expected unroutable pin, got %v", err)
	}
	var he *hwerr.Error
	if !errors.As(err, &he) || he.Field != "pwm[0]" {
		t.Errorf("expected the error located at pwm[0], got %v", err)
	}

	cfg = bluePill()
	cfg.Pwm = []device.Pwm{{Timer: "tim3"}}
	if _, err := Build(cfg, Options{}); !errors.Is(err, hwerr.ErrMissingRequiredField) {
		t.Errorf("expected missing field, got %v", err)
	}

	cfg = bluePill()
	cfg.Pwm = []device.Pwm{
		{Timer: "tim2", Pins: []pins.Pin{pins.MustParse("PA1")}},
		{Timer: "tim2", Pins: []pins.Pin{pins.MustParse("PA2")}},
	}
	if _, err := Build(cfg, Options{}); !errors.Is(err, hwerr.ErrDuplicatePeripheral) {
		t.Errorf("expected a timer driven twice to be rejected, got %v", err)
	}

	cfg = bluePill()
	cfg.Serial = []device.Serial{
		{ID: "usart1", TX: pins.MustParse("PA9"), RX: pins.MustParse("PA10"), Baud: 9600},
		{ID: "usart1", TX: pins.MustParse("PB6"), RX: pins.MustParse("PB7"), Baud: 9600},
	}
	if _, err := Build(cfg, Options{}); !errors.Is(err, hwerr.ErrDuplicatePeripheral) {
		t.Errorf("expected a serial configured twice to be rejected, got %v", err)
	}
}

func TestPwmChannelOrder(t *testing.T) {
	cfg := bluePill()
	cfg.Pwm = []device.Pwm{{Timer: "tim2", Pins: []pins.Pin{pins.MustParse("PA2"), pins.MustParse("PA1")}}}
	p, err := Build(cfg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	timer := p.Ops[p.Index(plan.OpTimer)]
	if !strings.Contains(timer.Expr, "((pa1, pa2), ") {
		t.Errorf("expected the pins in channel order, got %s", timer.Expr)
	}
	handles := p.Layout.Group(plan.GroupPwm)
	want := []struct{ name, expr string }{{"tim2_ch3", "tim2_channels.1"}, {"tim2_ch2", "tim2_channels.0"}}
	if len(handles) != len(want) {
		t.Fatalf("got %d handles", len(handles))
	}
	for i, w := range want {
		op := p.Ops[handles[i].Op]
		if handles[i].Name != w.name || op.Expr != w.expr {
			t.Errorf("handle %d: expected %s = %s, got %s = %s", i, w.name, w.expr, op.Name, op.Expr)
		}
	}
}

func TestReacquireAfterFreeze(t *testing.T) {
	b := NewBuilder(stm32f1xx.Strategy{}, nil)
	if err := b.ApplyClock(units.Frequency(8_000_000)); err != nil {
		t.Fatal(err)
	}
	if s := b.StateOf("clock-builder"); s != Materialized {
		t.Errorf("expected a materialized builder, got %s", s)
	}
	clocks, err := b.Clocks()
	if err != nil || clocks != "clocks" {
		t.Fatalf("got %q %v", clocks, err)
	}
	if s := b.StateOf("clock-builder"); s != Frozen {
		t.Errorf("expected a frozen builder, got %s", s)
	}

	if _, err := b.ClockBuilder(); !errors.Is(err, hwerr.ErrReacquireAfterFreeze) || !errors.Is(err, hwerr.ErrState) {
		t.Errorf("expected reacquire after freeze, got %v", err)
	}
	if err := b.ApplyClock(units.Frequency(8_000_000)); !errors.Is(err, hwerr.ErrReacquireAfterFreeze) {
		t.Errorf("expected reacquire after freeze, got %v", err)
	}
	if again, err := b.Clocks(); err != nil || again != clocks {
		t.Errorf("expected the memoized clocks, got %q %v", again, err)
	}
	if n := b.Plan().Count(plan.OpClockFreeze); n != 1 {
		t.Errorf("expected one freeze, got %d", n)
	}
}

func TestMemoizedAccessors(t *testing.T) {
	b := NewBuilder(stm32f1xx.Strategy{}, nil)
	if b.StateOf("bus") != Unrequested || b.PortState(pins.PortB) != Unrequested {
		t.Fatal("expected a fresh builder")
	}
	for i := 0; i < 3; i++ {
		b.Port(pins.PortB)
		b.Bus()
		b.AltFunction()
	}
	p := b.Plan()
	for k, want := range map[plan.OpKind]int{plan.OpDevice: 1, plan.OpFlash: 1, plan.OpBus: 1, plan.OpPortSplit: 1, plan.OpAltFunction: 1} {
		if n := p.Count(k); n != want {
			t.Errorf("%s: expected %d, got %d", k, want, n)
		}
	}
	if b.PortState(pins.PortB) != Materialized || b.PortState(pins.PortA) != Unrequested {
		t.Errorf("unexpected port states")
	}
}

func TestPhaseOrder(t *testing.T) {
	want := []phaseID{phaseDevice, phaseClock, phasePorts, phaseInputs, phaseOutputs, phasePwm, phaseSerial, phaseUnmasks}
	if len(phaseOrder) != len(want) {
		t.Fatalf("got %v", phaseOrder)
	}
	for i := range want {
		if phaseOrder[i] != want[i] {
			t.Errorf("phase %d: expected %s, got %s", i, want[i], phaseOrder[i])
		}
	}

	_, err := sortPhases(map[phaseID][]phaseID{
		phaseDevice: {phaseClock},
		phaseClock:  {phaseDevice},
	})
	if err == nil {
		t.Error("expected a cycle to be rejected")
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	if _, err := Build(bluePill(), Options{Logger: log.New(&buf, "", 0)}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"phase clock", "clock-freeze: clocks = cfgr.freeze(&mut flash.acr)"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in log:\n%s", want, out)
		}
	}
}
