// Package claims guarantees that no physical pin serves two peripheral roles.
//
// Every pin referenced by a configuration is inserted into a Pool once, at
// validation time, and claimed exactly once while planning. A second insert
// or a second claim of the same pin is an exclusivity violation.
package claims

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"omibyte.io/hwinit/hwerr"
	"omibyte.io/hwinit/pins"
)

// Use is one pin referenced by one peripheral role, e.g. "pwm tim2".
type Use struct {
	Pin  pins.Pin
	Role string
}

type entry struct {
	role    string
	claimed string
}

type Pool struct {
	entries map[pins.Pin]*entry
}

func NewPool() *Pool {
	return &Pool{entries: map[pins.Pin]*entry{}}
}

// Insert adds a use. A pin already present fails regardless of the roles involved.
func (p *Pool) Insert(u Use) error {
	if prev, ok := p.entries[u.Pin]; ok {
		return hwerr.Exclusivity(u.Pin.Key(), "claimed by %s and %s", prev.role, u.Role)
	}
	p.entries[u.Pin] = &entry{role: u.Role}
	return nil
}

// Claim takes pin out of the pool on behalf of role.
func (p *Pool) Claim(pin pins.Pin, role string) error {
	e, ok := p.entries[pin]
	switch {
	case !ok:
		return hwerr.Exclusivity(pin.Key(), "%s claims a pin that was never declared", role)
	case e.claimed != "":
		return hwerr.Exclusivity(pin.Key(), "already claimed by %s, requested by %s", e.claimed, role)
	}
	e.claimed = role
	return nil
}

// Role returns the role pin was inserted for.
func (p *Pool) Role(pin pins.Pin) (string, bool) {
	e, ok := p.entries[pin]
	if !ok {
		return "", false
	}
	return e.role, true
}

// Remaining lists the pins not yet claimed, ordered by port then number.
func (p *Pool) Remaining() []pins.Pin {
	var out []pins.Pin
	for pin, e := range p.entries {
		if e.claimed == "" {
			out = append(out, pin)
		}
	}
	slices.SortFunc(out, pins.Pin.Less)
	return out
}

// Pins lists every inserted pin, ordered by port then number.
func (p *Pool) Pins() []pins.Pin {
	out := maps.Keys(p.entries)
	slices.SortFunc(out, pins.Pin.Less)
	return out
}

func (p *Pool) Len() int { return len(p.entries) }

// Validate builds a pool from uses and fails on the first repeated pin.
func Validate(uses []Use) (*Pool, error) {
	pool := NewPool()
	for _, u := range uses {
		if err := pool.Insert(u); err != nil {
			return nil, err
		}
	}
	return pool, nil
}
