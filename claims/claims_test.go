package claims

import (
	"errors"
	"strings"
	"testing"

	"omibyte.io/hwinit/hwerr"
	"omibyte.io/hwinit/pins"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		uses []Use
		dup  string
	}{
		{
			name: "distinct",
			uses: []Use{
				{pins.MustParse("PA0"), "gpio input"},
				{pins.MustParse("PC13"), "gpio output"},
				{pins.MustParse("PA1"), "pwm tim2"},
				{pins.MustParse("PB6"), "serial usart1 tx"},
				{pins.MustParse("PB7"), "serial usart1 rx"},
			},
		},
		{
			name: "gpio and pwm",
			uses: []Use{
				{pins.MustParse("PA0"), "gpio input"},
				{pins.MustParse("PA0"), "pwm tim2"},
			},
			dup: "A0",
		},
		{
			name: "two gpios",
			uses: []Use{
				{pins.MustParse("PB5"), "gpio output"},
				{pins.MustParse("pb5"), "gpio output"},
			},
			dup: "B5",
		},
		{
			name: "serial rx and tx",
			uses: []Use{
				{pins.MustParse("PA9"), "serial usart1 tx"},
				{pins.MustParse("PA9"), "serial usart1 rx"},
			},
			dup: "A9",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pool, err := Validate(tc.uses)
			if tc.dup == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if pool.Len() != len(tc.uses) {
					t.Errorf("got %d pins, want %d", pool.Len(), len(tc.uses))
				}
				return
			}
			if !errors.Is(err, hwerr.ErrExclusivity) || !errors.Is(err, hwerr.ErrDuplicatePinUse) {
				t.Fatalf("expected exclusivity error, got %v", err)
			}
			var he *hwerr.Error
			if !errors.As(err, &he) || he.Value != tc.dup {
				t.Errorf("expected pin %s in error, got %v", tc.dup, err)
			}
		})
	}
}

func TestClaim(t *testing.T) {
	pool, err := Validate([]Use{
		{pins.MustParse("PC13"), "gpio output"},
		{pins.MustParse("PA0"), "gpio input"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := pool.Claim(pins.MustParse("PA0"), "gpio input"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := pool.Remaining(); len(got) != 1 || got[0] != pins.MustParse("PC13") {
		t.Errorf("unexpected remaining pins %v", got)
	}

	err = pool.Claim(pins.MustParse("PA0"), "pwm tim2")
	if !errors.Is(err, hwerr.ErrDuplicatePinUse) {
		t.Errorf("expected duplicate pin use, got %v", err)
	}
	if !strings.Contains(err.Error(), "gpio input") {
		t.Errorf("expected the first owner in %q", err)
	}

	if err := pool.Claim(pins.MustParse("PE1"), "gpio input"); !errors.Is(err, hwerr.ErrExclusivity) {
		t.Errorf("expected exclusivity error for undeclared pin, got %v", err)
	}

	if role, ok := pool.Role(pins.MustParse("PC13")); !ok || role != "gpio output" {
		t.Errorf("got %q %v", role, ok)
	}
	if got := pool.Pins(); len(got) != 2 || got[0] != pins.MustParse("PA0") {
		t.Errorf("unexpected pin order %v", got)
	}
}
