// Package device holds the typed configuration tree of a board: system
// settings plus the GPIO, PWM and serial peripherals wired to its pins.
package device

import (
	"fmt"
	"strings"

	"omibyte.io/hwinit/claims"
	"omibyte.io/hwinit/hwerr"
	"omibyte.io/hwinit/pins"
	"omibyte.io/hwinit/units"
)

// LogConfig is reserved for the runtime's logging sink.
type LogConfig struct {
	Level string
	Sink  string
}

type Sys struct {
	// Clock is the requested system clock. Nil keeps the reset clock tree.
	Clock *units.Frequency
	Heap  units.MemorySize
	Log   *LogConfig
}

type Gpio struct {
	Pin       pins.Pin
	Mode      Mode
	Direction Direction
	// Trigger is the interrupt edge; nil means no interrupt wiring.
	Trigger *Edge
}

// NewGpio checks that direction agrees with mode and that only inputs carry a trigger.
func NewGpio(pin pins.Pin, mode Mode, direction Direction, trigger *Edge) (Gpio, error) {
	if mode.Direction() != direction {
		return Gpio{}, hwerr.Parse(hwerr.ErrModeDirection, mode.Name(), "%s is an %s mode", mode.Name(), strings.ToLower(mode.Direction().String()))
	}
	if trigger != nil && direction != Input {
		return Gpio{}, hwerr.Parse(hwerr.ErrTriggerOnOutput, pin.TypeName(), "")
	}
	return Gpio{Pin: pin, Mode: mode, Direction: direction, Trigger: trigger}, nil
}

type Pwm struct {
	Timer     string
	Pins      []pins.Pin
	Frequency *units.Frequency
}

type Serial struct {
	ID   string
	RX   pins.Pin
	TX   pins.Pin
	Baud uint32
}

// Config is one board description. Kind selects the family; the remaining
// fields have the same meaning for every family.
type Config struct {
	Kind   Kind
	Sys    Sys
	Gpio   []Gpio
	Pwm    []Pwm
	Serial []Serial
}

func (c *Config) Gpios() []Gpio { return c.Gpio }

func (c *Config) PwmBlocks() []Pwm { return c.Pwm }

func (c *Config) SerialBlocks() []Serial { return c.Serial }

// Inputs returns the input pins in configuration order.
func (c *Config) Inputs() []Gpio { return c.byDirection(Input) }

// Outputs returns the output pins in configuration order.
func (c *Config) Outputs() []Gpio { return c.byDirection(Output) }

func (c *Config) byDirection(d Direction) []Gpio {
	var out []Gpio
	for _, g := range c.Gpio {
		if g.Direction == d {
			out = append(out, g)
		}
	}
	return out
}

// Uses lists every pin the configuration references, across all peripheral classes.
func (c *Config) Uses() []claims.Use {
	var uses []claims.Use
	for _, g := range c.Gpio {
		uses = append(uses, claims.Use{Pin: g.Pin, Role: GpioRole(g)})
	}
	for _, p := range c.Pwm {
		for _, pin := range p.Pins {
			uses = append(uses, claims.Use{Pin: pin, Role: PwmRole(p)})
		}
	}
	for _, s := range c.Serial {
		uses = append(uses,
			claims.Use{Pin: s.RX, Role: SerialRole(s, "rx")},
			claims.Use{Pin: s.TX, Role: SerialRole(s, "tx")})
	}
	return uses
}

// Pins lists every referenced pin in the order Uses reports them.
func (c *Config) Pins() []pins.Pin {
	uses := c.Uses()
	out := make([]pins.Pin, len(uses))
	for i, u := range uses {
		out[i] = u.Pin
	}
	return out
}

func GpioRole(g Gpio) string { return "gpio " + strings.ToLower(g.Direction.String()) }

func PwmRole(p Pwm) string { return "pwm " + p.Timer }

func SerialRole(s Serial, line string) string { return "serial " + s.ID + " " + line }

// Validate checks the tree against the family catalog and builds the pin pool.
func (c *Config) Validate() (*claims.Pool, error) {
	info, err := c.Kind.Target()
	if err != nil {
		return nil, err
	}
	if c.Sys.Heap == 0 {
		return nil, hwerr.MissingField("sys.heap_size", "")
	}
	for i, g := range c.Gpio {
		if _, err := NewGpio(g.Pin, g.Mode, g.Direction, g.Trigger); err != nil {
			return nil, hwerr.At(fmt.Sprintf("gpios[%d]", i), err)
		}
	}
	timers := map[string]string{}
	for i, p := range c.Pwm {
		field := fmt.Sprintf("pwm[%d]", i)
		if p.Timer == "" {
			return nil, hwerr.MissingField(field+".timer", "")
		}
		if !info.HasTimer(p.Timer) {
			return nil, hwerr.At(field, hwerr.UnknownIdentity(hwerr.ErrUnknownPeripheral, p.Timer, "%s has timers %s", info.Family, strings.Join(info.Timers, ", ")))
		}
		if len(p.Pins) == 0 {
			return nil, hwerr.MissingField(field+".pins", "")
		}
		id := strings.ToLower(p.Timer)
		if prev, ok := timers[id]; ok {
			return nil, hwerr.At(field, hwerr.DuplicatePeripheral(p.Timer, "timer already driven by %s", prev))
		}
		timers[id] = field
	}
	serials := map[string]string{}
	for i, s := range c.Serial {
		field := fmt.Sprintf("serial[%d]", i)
		if s.ID == "" {
			return nil, hwerr.MissingField(field+".id", "")
		}
		if !info.HasSerial(s.ID) {
			return nil, hwerr.At(field, hwerr.UnknownIdentity(hwerr.ErrUnknownPeripheral, s.ID, "%s has serials %s", info.Family, strings.Join(info.Serials, ", ")))
		}
		if s.Baud == 0 {
			return nil, hwerr.MissingField(field+".baud", "")
		}
		id := strings.ToLower(s.ID)
		if prev, ok := serials[id]; ok {
			return nil, hwerr.At(field, hwerr.DuplicatePeripheral(s.ID, "serial already configured by %s", prev))
		}
		serials[id] = field
	}
	for _, u := range c.Uses() {
		if !info.HasPort(u.Pin.Port.Lower()) {
			return nil, hwerr.Range(hwerr.ErrPinOutOfRange, u.Pin.Key(), "%s has ports %s", info.Family, strings.Join(info.Ports, ", "))
		}
	}
	return claims.Validate(c.Uses())
}
