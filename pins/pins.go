// Package pins models GPIO pin identities: a port letter A..E and a pin number 0..15.
package pins

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"

	"omibyte.io/hwinit/hwerr"
)

// MaxNumber is the highest pin number within a port.
const MaxNumber = 15

type Port uint8

const (
	PortA Port = iota
	PortB
	PortC
	PortD
	PortE
)

// Ports lists every port in the stable emission order.
var Ports = []Port{PortA, PortB, PortC, PortD, PortE}

func ParsePort(s string) (Port, error) {
	if len(s) == 1 {
		c := s[0] | 0x20
		if c >= 'a' && c <= 'e' {
			return Port(c - 'a'), nil
		}
	}
	return 0, hwerr.Parse(hwerr.ErrInvalidPinName, s, "port must be one of A..E")
}

// Lower returns the port letter in lower case, e.g. "a".
func (p Port) Lower() string { return string(rune('a' + p)) }

// Upper returns the port letter in upper case, e.g. "A".
func (p Port) Upper() string { return string(rune('A' + p)) }

func (p Port) String() string { return p.Upper() }

// Bank is the half of a port covered by one configuration register.
type Bank uint8

const (
	Low Bank = iota
	High
)

func (b Bank) String() string {
	if b == High {
		return "high"
	}
	return "low"
}

// Register names the control register for the bank.
func (b Bank) Register() string {
	if b == High {
		return "crh"
	}
	return "crl"
}

type Pin struct {
	Port   Port
	Number uint8
}

func New(port Port, number int) (Pin, error) {
	if number < 0 {
		return Pin{}, hwerr.Parse(hwerr.ErrInvalidPinNumber, strconv.Itoa(number), "")
	}
	if number > MaxNumber {
		return Pin{}, hwerr.Range(hwerr.ErrPinOutOfRange, port.Upper()+strconv.Itoa(number), "pins are numbered from 0 to %d", MaxNumber)
	}
	return Pin{Port: port, Number: uint8(number)}, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) Pin {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Parse reads names such as "PA0", "pb5" or "C13".
func Parse(text string) (Pin, error) {
	s := strings.TrimSpace(text)
	if len(s) > 1 && (s[0] == 'P' || s[0] == 'p') {
		s = s[1:]
	}
	if len(s) == 0 {
		return Pin{}, hwerr.Parse(hwerr.ErrInvalidPinName, text, "")
	}

	port, err := ParsePort(s[:1])
	if err != nil {
		return Pin{}, hwerr.Parse(hwerr.ErrInvalidPinName, text, "port must be one of A..E")
	}

	digits := s[1:]
	if len(digits) == 0 || strings.IndexFunc(digits, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return Pin{}, hwerr.Parse(hwerr.ErrInvalidPinNumber, text, "expected a decimal pin number")
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n > MaxNumber {
		return Pin{}, hwerr.Range(hwerr.ErrPinOutOfRange, text, "pins are numbered from 0 to %d", MaxNumber)
	}
	return Pin{Port: port, Number: uint8(n)}, nil
}

func (p Pin) Bank() Bank {
	if p.Number < 8 {
		return Low
	}
	return High
}

// Key is the uniqueness key, e.g. "A0".
func (p Pin) Key() string { return fmt.Sprintf("%s%d", p.Port.Upper(), p.Number) }

// Ident is the handle name used in generated code, e.g. "pa0".
func (p Pin) Ident() string { return fmt.Sprintf("p%s%d", p.Port.Lower(), p.Number) }

// TypeName is the pin type name, e.g. "PA0".
func (p Pin) TypeName() string { return fmt.Sprintf("P%s%d", p.Port.Upper(), p.Number) }

func (p Pin) String() string { return p.TypeName() }

// Less orders pins by port, then number.
func (p Pin) Less(o Pin) bool {
	if p.Port != o.Port {
		return p.Port < o.Port
	}
	return p.Number < o.Number
}

// DistinctPorts returns the ports referenced by pins, deduplicated and in A..E order.
func DistinctPorts(pins []Pin) []Port {
	ports := make([]Port, 0, len(Ports))
	for _, p := range pins {
		if !slices.Contains(ports, p.Port) {
			ports = append(ports, p.Port)
		}
	}
	slices.Sort(ports)
	return ports
}

// MarshalText renders the canonical name.
func (p Pin) MarshalText() ([]byte, error) {
	return []byte(p.TypeName()), nil
}

func (p *Pin) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
