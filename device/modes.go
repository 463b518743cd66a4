package device

import (
	"strings"

	"omibyte.io/hwinit/hwerr"
)

type Direction uint8

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "Output"
	}
	return "Input"
}

type Mode uint8

const (
	Analog Mode = iota
	Floating
	OpenDrain
	PullDown
	PullUp
	PushPull
)

var modeNames = [...]string{
	Analog:    "analog",
	Floating:  "floating",
	OpenDrain: "open_drain",
	PullDown:  "pull_down",
	PullUp:    "pull_up",
	PushPull:  "push_pull",
}

var modeTypeNames = [...]string{
	Analog:    "Analog",
	Floating:  "Floating",
	OpenDrain: "OpenDrain",
	PullDown:  "PullDown",
	PullUp:    "PullUp",
	PushPull:  "PushPull",
}

// Direction reports the direction a mode implies. Analog is sampled, so it
// counts as an input.
func (m Mode) Direction() Direction {
	switch m {
	case PushPull, OpenDrain:
		return Output
	default:
		return Input
	}
}

// Name is the snake_case mode name, e.g. "pull_up".
func (m Mode) Name() string { return modeNames[m] }

// TypeName is the mode's type name, e.g. "PullUp".
func (m Mode) TypeName() string { return modeTypeNames[m] }

func (m Mode) String() string { return m.TypeName() }

type Edge uint8

const (
	Rising Edge = iota
	Falling
	Both
)

func (e Edge) String() string {
	return [...]string{"rising", "falling", "both"}[e]
}

// normalize folds case and drops separators so "pull_up", "PullUp" and
// "PULL-UP" compare equal.
func normalize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', ' ':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))
}

func ParseDirection(s string) (Direction, error) {
	switch normalize(s) {
	case "input", "in":
		return Input, nil
	case "output", "out":
		return Output, nil
	}
	return 0, hwerr.Parse(hwerr.ErrInvalidAlias, s, "expected input or output")
}

func ParseMode(s string) (Mode, error) {
	key := normalize(s)
	for m, name := range modeNames {
		if normalize(name) == key {
			return Mode(m), nil
		}
	}
	return 0, hwerr.Parse(hwerr.ErrInvalidAlias, s, "expected one of analog, floating, open_drain, pull_down, pull_up, push_pull")
}

func ParseEdge(s string) (Edge, error) {
	switch normalize(s) {
	case "rising", "interrupt":
		return Rising, nil
	case "falling":
		return Falling, nil
	case "both", "all", "risingfalling":
		return Both, nil
	}
	return 0, hwerr.Parse(hwerr.ErrInvalidAlias, s, "expected rising, falling or both")
}
