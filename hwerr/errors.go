// Package hwerr holds the error taxonomy shared by every stage of planning.
//
// Each error carries a category (ErrParse, ErrRange, ...) and a specific code
// (ErrUnknownUnit, ErrPinOutOfRange, ...). Both match with errors.Is.
package hwerr

import (
	"errors"
	"fmt"
	"strings"
)

// Categories.
var (
	ErrParse           = errors.New("parse error")
	ErrRange           = errors.New("range error")
	ErrExclusivity     = errors.New("exclusivity error")
	ErrState           = errors.New("state error")
	ErrUnknownIdentity = errors.New("unknown identity")
	ErrMissingField    = errors.New("missing field")
)

// Codes.
var (
	ErrUnknownUnit          = errors.New("unknown unit")
	ErrInvalidPinName       = errors.New("invalid pin name")
	ErrInvalidPinNumber     = errors.New("invalid pin number")
	ErrInvalidAlias         = errors.New("invalid alias")
	ErrInvalidValue         = errors.New("invalid value")
	ErrUnknownField         = errors.New("unknown field")
	ErrModeDirection        = errors.New("mode contradicts direction")
	ErrTriggerOnOutput      = errors.New("trigger on output pin")
	ErrPinOutOfRange        = errors.New("pin out of range")
	ErrValueOverflow        = errors.New("value overflow")
	ErrDuplicatePinUse      = errors.New("duplicate pin use")
	ErrDuplicatePeripheral  = errors.New("duplicate peripheral use")
	ErrReacquireAfterFreeze = errors.New("reacquire after freeze")
	ErrUnknownDeviceKind    = errors.New("unknown device kind")
	ErrUnknownPeripheral    = errors.New("unknown peripheral identity")
	ErrPinNotRoutable       = errors.New("pin not routable")
	ErrMissingRequiredField = errors.New("missing required field")
	ErrInconsistentPlan     = errors.New("inconsistent plan")
)

// Error is the single fatal error a stage reports.
type Error struct {
	// Kind is one of the category sentinels.
	Kind error
	// Code is the specific sentinel.
	Code error
	// Field locates the offending input, e.g. "gpios[1].mode". May be empty.
	Field string
	// Value is the offending input text. May be empty.
	Value string
	// Msg adds detail.
	Msg string
}

func (e *Error) Error() string {
	s := e.Code.Error()
	if e.Field != "" {
		s = e.Field + ": " + s
	}
	if e.Value != "" {
		s += fmt.Sprintf(" %q", e.Value)
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}

// Is reports whether target is the category or the code of e.
func (e *Error) Is(target error) bool {
	return target == e.Kind || target == e.Code
}

// WithField returns a copy of e located at field. An existing field is
// appended to the new prefix.
func (e *Error) WithField(field string) *Error {
	c := *e
	switch {
	case c.Field == "":
		c.Field = field
	case strings.HasPrefix(c.Field, "["):
		c.Field = field + c.Field
	case field != "":
		c.Field = field + "." + c.Field
	}
	return &c
}

func newError(kind, code error, value, format string, args ...any) *Error {
	e := &Error{Kind: kind, Code: code, Value: value}
	if format != "" {
		e.Msg = fmt.Sprintf(format, args...)
	}
	return e
}

func Parse(code error, value, format string, args ...any) *Error {
	return newError(ErrParse, code, value, format, args...)
}

func Range(code error, value, format string, args ...any) *Error {
	return newError(ErrRange, code, value, format, args...)
}

func Exclusivity(value, format string, args ...any) *Error {
	return newError(ErrExclusivity, ErrDuplicatePinUse, value, format, args...)
}

// DuplicatePeripheral is the exclusivity error for a timer or serial
// peripheral named by more than one block.
func DuplicatePeripheral(value, format string, args ...any) *Error {
	return newError(ErrExclusivity, ErrDuplicatePeripheral, value, format, args...)
}

func State(code error, value, format string, args ...any) *Error {
	return newError(ErrState, code, value, format, args...)
}

func UnknownIdentity(code error, value, format string, args ...any) *Error {
	return newError(ErrUnknownIdentity, code, value, format, args...)
}

func MissingField(field, format string, args ...any) *Error {
	e := newError(ErrMissingField, ErrMissingRequiredField, "", format, args...)
	e.Field = field
	return e
}

// At locates err at field when it is an *Error; other errors are wrapped.
func At(field string, err error) error {
	if err == nil {
		return nil
	}
	var he *Error
	if errors.As(err, &he) {
		return he.WithField(field)
	}
	return fmt.Errorf("%s: %w", field, err)
}
