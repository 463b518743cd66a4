package device

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"omibyte.io/hwinit/hwerr"
	"omibyte.io/hwinit/pins"
	"omibyte.io/hwinit/units"
)

type Format uint8

const (
	FormatYAML Format = iota
	FormatTOML
)

var ErrUnsupportedFormat = errors.New("unsupported document format")

// FormatOf picks the document format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// Load reads and decodes the document at path.
func Load(path string) (*Config, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	cfg, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses a board document. The document has a single top-level key
// naming the device kind:
//
//	stm32f1xx:
//	  sys:
//	    heap_size: [10, "kb"]
//	    sys_clock: [36, "mhz"]
//	  gpios:
//	    - ["PA0", "input", "pull_up", "falling"]
//	    - ["PC13", "output", "push_pull"]
func Decode(data []byte, format Format) (*Config, error) {
	var tree map[string]any
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &tree)
	case FormatTOML:
		err = toml.Unmarshal(data, &tree)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, hwerr.Parse(hwerr.ErrInvalidValue, "", "%v", err)
	}
	return FromTree(tree)
}

// FromTree converts an already parsed document into a Config.
func FromTree(tree map[string]any) (*Config, error) {
	if len(tree) != 1 {
		return nil, hwerr.Parse(hwerr.ErrInvalidValue, "", "expected exactly one device kind at the top level, found %d", len(tree))
	}

	cfg := &Config{}
	for name, raw := range tree {
		kind, err := ParseKind(name)
		if err != nil {
			return nil, err
		}
		cfg.Kind = kind

		body, err := asMap(raw)
		if err != nil {
			return nil, hwerr.At(name, err)
		}
		if err := decodeBody(cfg, body); err != nil {
			return nil, hwerr.At(name, err)
		}
	}
	return cfg, nil
}

func decodeBody(cfg *Config, body map[string]any) error {
	sysSeen := false
	for _, key := range sortedKeys(body) {
		value := body[key]
		var err error
		switch normalize(key) {
		case "sys", "system":
			sysSeen = true
			cfg.Sys, err = decodeSys(value)
		case "gpio", "gpios":
			cfg.Gpio, err = decodeList(value, decodeGpio)
		case "pwm", "pwms":
			cfg.Pwm, err = decodeList(value, decodePwm)
		case "serial", "serials":
			cfg.Serial, err = decodeList(value, decodeSerial)
		default:
			err = hwerr.Parse(hwerr.ErrUnknownField, key, "")
		}
		if err != nil {
			return hwerr.At(key, err)
		}
	}
	if !sysSeen {
		return hwerr.MissingField("sys", "")
	}
	return nil
}

func decodeSys(raw any) (Sys, error) {
	m, err := asMap(raw)
	if err != nil {
		return Sys{}, err
	}
	var sys Sys
	heapSeen := false
	for _, key := range sortedKeys(m) {
		value := m[key]
		switch normalize(key) {
		case "heapsize", "heap":
			heapSeen = true
			mag, alias, err := quantity(value, "b")
			if err != nil {
				return Sys{}, hwerr.At(key, err)
			}
			if sys.Heap, err = units.ParseMemory(mag, alias); err != nil {
				return Sys{}, hwerr.At(key, err)
			}
		case "sysclock", "clock":
			mag, alias, err := quantity(value, "hz")
			if err != nil {
				return Sys{}, hwerr.At(key, err)
			}
			f, err := units.ParseFrequency(mag, alias)
			if err != nil {
				return Sys{}, hwerr.At(key, err)
			}
			sys.Clock = &f
		case "log":
			lm, err := asMap(value)
			if err != nil {
				return Sys{}, hwerr.At(key, err)
			}
			sys.Log = &LogConfig{}
			sys.Log.Level, _ = lm["level"].(string)
			sys.Log.Sink, _ = lm["sink"].(string)
		default:
			return Sys{}, hwerr.Parse(hwerr.ErrUnknownField, key, "")
		}
	}
	if !heapSeen {
		return Sys{}, hwerr.MissingField("heap_size", "")
	}
	return sys, nil
}

// decodeGpio accepts [pin, direction, mode, edge?] or {pin, direction, mode, trigger}.
func decodeGpio(raw any) (Gpio, error) {
	var pinText, dirText, modeText, edgeText string
	switch v := raw.(type) {
	case []any:
		if len(v) < 2 || len(v) > 4 {
			return Gpio{}, hwerr.Parse(hwerr.ErrInvalidValue, fmt.Sprint(v), "expected [pin, direction, mode, edge]")
		}
		fields := make([]string, 4)
		for i, item := range v {
			s, err := asString(item)
			if err != nil {
				return Gpio{}, hwerr.At(fmt.Sprintf("[%d]", i), err)
			}
			fields[i] = s
		}
		pinText = fields[0]
		if len(v) == 2 {
			// [pin, mode]: direction follows from the mode.
			modeText = fields[1]
		} else {
			dirText, modeText, edgeText = fields[1], fields[2], fields[3]
		}
	default:
		m, err := asMap(raw)
		if err != nil {
			return Gpio{}, err
		}
		for _, key := range sortedKeys(m) {
			s, err := asString(m[key])
			if err != nil {
				return Gpio{}, hwerr.At(key, err)
			}
			switch normalize(key) {
			case "pin":
				pinText = s
			case "direction", "dir":
				dirText = s
			case "mode":
				modeText = s
			case "trigger", "interrupt", "edge":
				edgeText = s
			default:
				return Gpio{}, hwerr.Parse(hwerr.ErrUnknownField, key, "")
			}
		}
	}

	if pinText == "" {
		return Gpio{}, hwerr.MissingField("pin", "")
	}
	pin, err := pins.Parse(pinText)
	if err != nil {
		return Gpio{}, hwerr.At("pin", err)
	}
	if modeText == "" {
		return Gpio{}, hwerr.MissingField("mode", "")
	}
	mode, err := ParseMode(modeText)
	if err != nil {
		return Gpio{}, hwerr.At("mode", err)
	}
	direction := mode.Direction()
	if dirText != "" {
		if direction, err = ParseDirection(dirText); err != nil {
			return Gpio{}, hwerr.At("direction", err)
		}
	}
	var trigger *Edge
	if edgeText != "" && normalize(edgeText) != "none" {
		edge, err := ParseEdge(edgeText)
		if err != nil {
			return Gpio{}, hwerr.At("trigger", err)
		}
		trigger = &edge
	}
	return NewGpio(pin, mode, direction, trigger)
}

func decodePwm(raw any) (Pwm, error) {
	m, err := asMap(raw)
	if err != nil {
		return Pwm{}, err
	}
	var p Pwm
	for _, key := range sortedKeys(m) {
		value := m[key]
		switch normalize(key) {
		case "timer":
			s, err := asString(value)
			if err != nil {
				return Pwm{}, hwerr.At(key, err)
			}
			p.Timer = strings.ToLower(s)
		case "pins", "pin", "channels":
			list, ok := value.([]any)
			if !ok {
				list = []any{value}
			}
			for i, item := range list {
				s, err := asString(item)
				if err != nil {
					return Pwm{}, hwerr.At(fmt.Sprintf("%s[%d]", key, i), err)
				}
				pin, err := pins.Parse(s)
				if err != nil {
					return Pwm{}, hwerr.At(fmt.Sprintf("%s[%d]", key, i), err)
				}
				p.Pins = append(p.Pins, pin)
			}
		case "frequency", "freq":
			mag, alias, err := quantity(value, "hz")
			if err != nil {
				return Pwm{}, hwerr.At(key, err)
			}
			f, err := units.ParseFrequency(mag, alias)
			if err != nil {
				return Pwm{}, hwerr.At(key, err)
			}
			p.Frequency = &f
		default:
			return Pwm{}, hwerr.Parse(hwerr.ErrUnknownField, key, "")
		}
	}
	if p.Timer == "" {
		return Pwm{}, hwerr.MissingField("timer", "")
	}
	if len(p.Pins) == 0 {
		return Pwm{}, hwerr.MissingField("pins", "")
	}
	return p, nil
}

// decodeSerial accepts {usart1: {tx, rx, baud}} or {id: usart1, tx, rx, baud}.
func decodeSerial(raw any) (Serial, error) {
	m, err := asMap(raw)
	if err != nil {
		return Serial{}, err
	}
	var s Serial
	fields := m
	if len(m) == 1 {
		for key, value := range m {
			if inner, err := asMap(value); err == nil {
				s.ID = strings.ToLower(key)
				fields = inner
			}
		}
	}

	var rxSeen, txSeen bool
	for _, key := range sortedKeys(fields) {
		value := fields[key]
		switch normalize(key) {
		case "id", "interface", "name":
			v, err := asString(value)
			if err != nil {
				return Serial{}, hwerr.At(key, err)
			}
			s.ID = strings.ToLower(v)
		case "rx", "tx":
			v, err := asString(value)
			if err != nil {
				return Serial{}, hwerr.At(key, err)
			}
			pin, err := pins.Parse(v)
			if err != nil {
				return Serial{}, hwerr.At(key, err)
			}
			if normalize(key) == "rx" {
				s.RX, rxSeen = pin, true
			} else {
				s.TX, txSeen = pin, true
			}
		case "baud", "baudrate":
			n, err := asUint(value)
			if err != nil {
				return Serial{}, hwerr.At(key, err)
			}
			if n == 0 {
				return Serial{}, hwerr.At(key, hwerr.Parse(hwerr.ErrInvalidValue, "0", "baud must be positive"))
			}
			if n > math.MaxUint32 {
				return Serial{}, hwerr.At(key, hwerr.Range(hwerr.ErrValueOverflow, strconv.FormatUint(n, 10), "baud must fit in 32 bits"))
			}
			s.Baud = uint32(n)
		default:
			return Serial{}, hwerr.Parse(hwerr.ErrUnknownField, key, "")
		}
	}
	switch {
	case s.ID == "":
		return Serial{}, hwerr.MissingField("id", "")
	case !rxSeen:
		return Serial{}, hwerr.MissingField(s.ID+".rx", "")
	case !txSeen:
		return Serial{}, hwerr.MissingField(s.ID+".tx", "")
	case s.Baud == 0:
		return Serial{}, hwerr.MissingField(s.ID+".baud", "")
	}
	return s, nil
}

func decodeList[T any](raw any, decode func(any) (T, error)) ([]T, error) {
	if raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, hwerr.Parse(hwerr.ErrInvalidValue, fmt.Sprint(raw), "expected a list")
	}
	out := make([]T, 0, len(list))
	for i, item := range list {
		v, err := decode(item)
		if err != nil {
			return nil, hwerr.At(fmt.Sprintf("[%d]", i), err)
		}
		out = append(out, v)
	}
	return out, nil
}

// quantity reads [magnitude, unit], a bare magnitude in the default unit, or
// a string such as "36mhz".
func quantity(raw any, defaultUnit string) (uint64, string, error) {
	switch v := raw.(type) {
	case []any:
		if len(v) != 2 {
			return 0, "", hwerr.Parse(hwerr.ErrInvalidValue, fmt.Sprint(v), "expected [magnitude, unit]")
		}
		mag, err := asUint(v[0])
		if err != nil {
			return 0, "", err
		}
		unit, err := asString(v[1])
		if err != nil {
			return 0, "", err
		}
		return mag, unit, nil
	case string:
		s := strings.TrimSpace(v)
		i := strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' })
		if i == 0 {
			return 0, "", hwerr.Parse(hwerr.ErrInvalidValue, v, "expected a magnitude")
		}
		if i < 0 {
			i = len(s)
		}
		mag, err := strconv.ParseUint(s[:i], 10, 64)
		if err != nil {
			return 0, "", hwerr.Parse(hwerr.ErrInvalidValue, v, "")
		}
		unit := strings.TrimSpace(s[i:])
		if unit == "" {
			unit = defaultUnit
		}
		return mag, unit, nil
	default:
		mag, err := asUint(raw)
		return mag, defaultUnit, err
	}
}

func asMap(raw any) (map[string]any, error) {
	switch v := raw.(type) {
	case map[string]any:
		return v, nil
	case map[any]any:
		m := make(map[string]any, len(v))
		for k, item := range v {
			m[fmt.Sprint(k)] = item
		}
		return m, nil
	case nil:
		return map[string]any{}, nil
	}
	return nil, hwerr.Parse(hwerr.ErrInvalidValue, fmt.Sprint(raw), "expected a mapping")
}

func asString(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	}
	return "", hwerr.Parse(hwerr.ErrInvalidValue, fmt.Sprint(raw), "expected a string")
}

func asUint(raw any) (uint64, error) {
	switch v := raw.(type) {
	case int:
		if v >= 0 {
			return uint64(v), nil
		}
	case int64:
		if v >= 0 {
			return uint64(v), nil
		}
	case uint64:
		return v, nil
	case float64:
		if v >= 0 && v == math.Trunc(v) && v < math.MaxUint64 {
			return uint64(v), nil
		}
	}
	return 0, hwerr.Parse(hwerr.ErrInvalidValue, fmt.Sprint(raw), "expected a non-negative integer")
}

// sortedKeys keeps decoding order, and therefore the first reported error, deterministic.
func sortedKeys(m map[string]any) []string {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}
