package pins

import (
	"errors"
	"testing"

	"omibyte.io/hwinit/hwerr"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Pin
	}{
		{"PA0", Pin{PortA, 0}},
		{"pb5", Pin{PortB, 5}},
		{"C13", Pin{PortC, 13}},
		{"pE15", Pin{PortE, 15}},
		{" PD7 ", Pin{PortD, 7}},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := Parse(tc.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		in       string
		category error
		code     error
	}{
		{"pc16", hwerr.ErrRange, hwerr.ErrPinOutOfRange},
		{"PA99", hwerr.ErrRange, hwerr.ErrPinOutOfRange},
		{"PF0", hwerr.ErrParse, hwerr.ErrInvalidPinName},
		{"P0", hwerr.ErrParse, hwerr.ErrInvalidPinName},
		{"", hwerr.ErrParse, hwerr.ErrInvalidPinName},
		{"PA", hwerr.ErrParse, hwerr.ErrInvalidPinNumber},
		{"PA-1", hwerr.ErrParse, hwerr.ErrInvalidPinNumber},
		{"PAx", hwerr.ErrParse, hwerr.ErrInvalidPinNumber},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			_, err := Parse(tc.in)
			if !errors.Is(err, tc.category) {
				t.Errorf("expected category %v, got %v", tc.category, err)
			}
			if !errors.Is(err, tc.code) {
				t.Errorf("expected code %v, got %v", tc.code, err)
			}
		})
	}
}

func TestBank(t *testing.T) {
	for _, port := range Ports {
		for n := 0; n <= MaxNumber; n++ {
			p, err := New(port, n)
			if err != nil {
				t.Fatal(err)
			}
			if (p.Bank() == Low) != (n < 8) {
				t.Errorf("%v: unexpected bank %v", p, p.Bank())
			}
		}
	}
	if got := MustParse("PC13").Bank().Register(); got != "crh" {
		t.Errorf("got %s", got)
	}
	if got := MustParse("PA0").Bank().Register(); got != "crl" {
		t.Errorf("got %s", got)
	}
}

func TestNewRange(t *testing.T) {
	if _, err := New(PortA, 16); !errors.Is(err, hwerr.ErrPinOutOfRange) {
		t.Errorf("expected out of range, got %v", err)
	}
}

func TestNames(t *testing.T) {
	p := MustParse("pc13")
	if p.Key() != "C13" || p.Ident() != "pc13" || p.TypeName() != "PC13" {
		t.Errorf("unexpected names %s %s %s", p.Key(), p.Ident(), p.TypeName())
	}
}

func TestDistinctPorts(t *testing.T) {
	got := DistinctPorts([]Pin{MustParse("PC13"), MustParse("PA0"), MustParse("PC14"), MustParse("PB6")})
	want := []Port{PortA, PortB, PortC}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}
