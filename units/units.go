// Package units normalizes clock and memory-size literals into canonical scalars.
package units

import (
	"fmt"
	"math"
	"math/bits"
	"strconv"
	"strings"

	"omibyte.io/hwinit/hwerr"
)

// Frequency is a count of cycles per second.
type Frequency uint64

// MemorySize is a count of bytes.
type MemorySize uint64

type FrequencyUnit uint8

const (
	Hertz FrequencyUnit = iota
	KiloHertz
	MegaHertz
	GigaHertz
)

type ByteUnit uint8

const (
	Byte ByteUnit = iota
	KiloByte
	MegaByte
	GigaByte
)

var frequencyMultipliers = [...]uint64{
	Hertz:     1,
	KiloHertz: 1_000,
	MegaHertz: 1_000_000,
	GigaHertz: 1_000_000_000,
}

// ByteMultipliers is the single table used to size memory literals. Giga is
// 1024³; override it here if the target's owner settles on another value.
var ByteMultipliers = [...]uint64{
	Byte:     1,
	KiloByte: 1 << 10,
	MegaByte: 1 << 20,
	GigaByte: 1 << 30,
}

var frequencyAliases = map[string]FrequencyUnit{
	"hz":  Hertz,
	"k":   KiloHertz,
	"khz": KiloHertz,
	"m":   MegaHertz,
	"mhz": MegaHertz,
	"g":   GigaHertz,
	"ghz": GigaHertz,
}

var byteAliases = map[string]ByteUnit{
	"b":     Byte,
	"byte":  Byte,
	"bytes": Byte,
	"k":     KiloByte,
	"kb":    KiloByte,
	"kib":   KiloByte,
	"m":     MegaByte,
	"mb":    MegaByte,
	"mib":   MegaByte,
	"g":     GigaByte,
	"gb":    GigaByte,
	"gib":   GigaByte,
}

func ParseFrequencyUnit(alias string) (FrequencyUnit, error) {
	if u, ok := frequencyAliases[strings.ToLower(strings.TrimSpace(alias))]; ok {
		return u, nil
	}
	return 0, hwerr.Parse(hwerr.ErrUnknownUnit, alias, "expected one of hz, khz, mhz, ghz")
}

func ParseByteUnit(alias string) (ByteUnit, error) {
	if u, ok := byteAliases[strings.ToLower(strings.TrimSpace(alias))]; ok {
		return u, nil
	}
	return 0, hwerr.Parse(hwerr.ErrUnknownUnit, alias, "expected one of b, kb, mb, gb")
}

func (u FrequencyUnit) Multiplier() uint64 {
	return frequencyMultipliers[u]
}

func (u ByteUnit) Multiplier() uint64 {
	return ByteMultipliers[u]
}

func (u FrequencyUnit) String() string {
	return [...]string{"Hz", "kHz", "MHz", "GHz"}[u]
}

func (u ByteUnit) String() string {
	return [...]string{"B", "KB", "MB", "GB"}[u]
}

// ResolveFrequency scales magnitude by the unit multiplier.
func ResolveFrequency(magnitude uint64, unit FrequencyUnit) (Frequency, error) {
	v, err := scale(magnitude, unit.Multiplier())
	return Frequency(v), err
}

// ResolveMemory scales magnitude by the entry for unit in ByteMultipliers.
func ResolveMemory(magnitude uint64, unit ByteUnit) (MemorySize, error) {
	v, err := scale(magnitude, unit.Multiplier())
	return MemorySize(v), err
}

// ParseFrequency resolves a (magnitude, alias) pair.
func ParseFrequency(magnitude uint64, alias string) (Frequency, error) {
	unit, err := ParseFrequencyUnit(alias)
	if err != nil {
		return 0, err
	}
	return ResolveFrequency(magnitude, unit)
}

// ParseMemory resolves a (magnitude, alias) pair.
func ParseMemory(magnitude uint64, alias string) (MemorySize, error) {
	unit, err := ParseByteUnit(alias)
	if err != nil {
		return 0, err
	}
	return ResolveMemory(magnitude, unit)
}

func scale(magnitude, multiplier uint64) (uint64, error) {
	hi, lo := bits.Mul64(magnitude, multiplier)
	if hi != 0 {
		return 0, hwerr.Range(hwerr.ErrValueOverflow, strconv.FormatUint(magnitude, 10), "exceeds %d", uint64(math.MaxUint64))
	}
	return lo, nil
}

func (f Frequency) Hertz() uint64 { return uint64(f) }

// String renders the largest unit that divides f evenly.
func (f Frequency) String() string {
	for u := GigaHertz; u > Hertz; u-- {
		if m := u.Multiplier(); f != 0 && uint64(f)%m == 0 {
			return fmt.Sprintf("%d%s", uint64(f)/m, u)
		}
	}
	return fmt.Sprintf("%dHz", uint64(f))
}

func (m MemorySize) Bytes() uint64 { return uint64(m) }

func (m MemorySize) String() string {
	for u := GigaByte; u > Byte; u-- {
		if mul := u.Multiplier(); m != 0 && uint64(m)%mul == 0 {
			return fmt.Sprintf("%d%s", uint64(m)/mul, u)
		}
	}
	return fmt.Sprintf("%dB", uint64(m))
}
