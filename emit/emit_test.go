package emit

import (
	"errors"
	"go/parser"
	"go/token"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"omibyte.io/hwinit/device"
	_ "omibyte.io/hwinit/lowering/dummy"
	_ "omibyte.io/hwinit/lowering/stm32f1xx"
	"omibyte.io/hwinit/plan"
	"omibyte.io/hwinit/planner"
)

func buildPlan(t *testing.T, kind device.Kind) *plan.Plan {
	t.Helper()
	cfg, err := device.Load("../device/testdata/bluepill.yaml")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Kind = kind
	if kind == device.KindDummy {
		cfg.Serial[0].ID = "serial1"
	}
	p, err := planner.Build(cfg, planner.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func contains(t *testing.T, out string, lines ...string) {
	t.Helper()
	for _, l := range lines {
		if !strings.Contains(out, l) {
			t.Errorf("expected %q in output:\n%s", l, out)
		}
	}
}

func TestRust(t *testing.T) {
	p := buildPlan(t, device.KindStm32f1xx)
	out, err := Rust(p, Options{Name: "BluePill"})
	if err != nil {
		t.Fatal(err)
	}
	contains(t, string(out),
		"struct BluePill;\nimpl BluePill {\n",
		"    fn init() -> (\n",
		"&'static mut (stm32f1xx_hal::gpio::gpioa::PA0<stm32f1xx_hal::gpio::Input<stm32f1xx_hal::gpio::PullUp>>,),\n",
		"use stm32f1xx_hal::prelude::*;\n",
		"let peripherals = stm32f1xx_hal::pac::Peripherals::take().unwrap();\n",
		"let cfgr = cfgr.sysclk(36000000u32.hz());\n",
		"let mut pa0 = gpioa.pa0.into_pull_up_input(&mut gpioa.crl);\n",
		"pa0.make_interrupt_source(&mut afio);\n",
		"static mut CHANNELS: MaybeUninit<()> = MaybeUninit::uninit();\n",
		"INPUT_PINS.write((pa0,)),\n",
		"SERIALS.write((usart1,)),\n",
		"stm32f1xx_hal::pac::NVIC::unmask(stm32f1xx_hal::pac::Interrupt::EXTI0);\n",
		"stm32f1xx_hal::pac::NVIC::unmask(stm32f1xx_hal::pac::Interrupt::USART1);\n",
	)
	if strings.Count(string(out), "{") != strings.Count(string(out), "}") {
		t.Errorf("unbalanced braces:\n%s", out)
	}
}

func TestRustWithoutInterrupts(t *testing.T) {
	p := buildPlan(t, device.KindStm32f1xx)
	p.Unmasks = nil
	out, err := Rust(p, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(out), "fn init() -> (\n") {
		t.Errorf("unexpected prefix:\n%s", out)
	}
	contains(t, string(out), "#[inline]\nfn enable_interrupts() {}\n")
}

func TestGo(t *testing.T) {
	p := buildPlan(t, device.KindTinyGo)
	out, err := Go(p, Options{Package: "bluepill"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := parser.ParseFile(token.NewFileSet(), "bluepill.go", out, 0); err != nil {
		t.Fatalf("generated source does not parse: %v\n%s", err, out)
	}
	contains(t, string(out),
		"package bluepill\n",
		"import \"machine\"\n",
		"var OnInterrupt = func(machine.Pin) {}\n",
		"func Init() (*Peripherals, error) {\n",
		"\tpa0 := machine.PA0\n",
		"\tpa0.Configure(machine.PinConfig{Mode: machine.PinInputPullup})\n",
		"\tif err := pa0.SetInterrupt(machine.PinFalling, func(p machine.Pin) { OnInterrupt(p) }); err != nil {\n",
		"\ttim2_pa1, err := tim2.Channel(pa1)\n",
		"\t// clock-freeze: clocks are frozen by the runtime before main\n",
		"Tim2Pa1 uint8",
		"Usart1 *machine.UART",
	)
	if strings.Contains(string(out), "_ = tim2\n") {
		t.Errorf("tim2 is read by its channel and needs no blank assignment:\n%s", out)
	}
}

func TestYAML(t *testing.T) {
	p := buildPlan(t, device.KindStm32f1xx)
	out, err := YAML(p)
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Family string `yaml:"family"`
		Ops    []struct {
			Kind string `yaml:"kind"`
		} `yaml:"ops"`
		Layout []struct {
			Group   string `yaml:"group"`
			Handles []struct {
				Name string `yaml:"name"`
				Op   int    `yaml:"op"`
			} `yaml:"handles"`
		} `yaml:"layout"`
	}
	if err := yaml.Unmarshal(out, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Family != "stm32f1xx" || doc.Ops[0].Kind != "device" {
		t.Errorf("unexpected document %+v", doc)
	}
	if len(doc.Layout) != len(plan.Groups) || doc.Layout[0].Group != "inputs" || doc.Layout[0].Handles[0].Name != "pa0" {
		t.Errorf("unexpected layout %+v", doc.Layout)
	}
}

func TestRender(t *testing.T) {
	p := buildPlan(t, device.KindDummy)
	out, err := Render(p, FormatSource, Options{})
	if err != nil {
		t.Fatal(err)
	}
	contains(t, string(out), "let device = dummy_hal::Device::take();")

	text, err := Render(p, FormatText, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(text), "family dummy (rust)\n") {
		t.Errorf("unexpected listing:\n%s", text)
	}

	if _, err := ParseFormat("json"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected unknown format, got %v", err)
	}
	if f, err := ParseFormat("YML"); err != nil || f != FormatYAML {
		t.Errorf("got %v %v", f, err)
	}
	if FormatSource.Resolve(&plan.Plan{Language: "go"}) != FormatGo {
		t.Error("expected go source for a go plan")
	}
}

func TestInconsistentPlan(t *testing.T) {
	p := buildPlan(t, device.KindStm32f1xx)
	p.Layout.Add(plan.GroupTimers, plan.Handle{Name: "tim9", Op: 0})
	if _, err := Rust(p, Options{}); err == nil {
		t.Error("expected a mismatched handle to be rejected")
	}
}
