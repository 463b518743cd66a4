// Package emit renders plans as source code or as a plain listing.
package emit

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"omibyte.io/hwinit/plan"
)

var ErrUnknownFormat = errors.New("unknown output format")

type Format string

const (
	// FormatSource picks Rust or Go from the plan's language.
	FormatSource Format = ""
	FormatRust   Format = "rust"
	FormatGo     Format = "go"
	FormatYAML   Format = "yaml"
	FormatText   Format = "text"
)

var formats = []Format{FormatRust, FormatGo, FormatYAML, FormatText}

func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "source", "src":
		return FormatSource, nil
	case "rs":
		return FormatRust, nil
	case "golang":
		return FormatGo, nil
	case "yml":
		return FormatYAML, nil
	case "txt":
		return FormatText, nil
	}
	for _, f := range formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, s)
}

// Extension is the file extension output in format f is written with.
func (f Format) Extension() string {
	switch f {
	case FormatRust:
		return ".rs"
	case FormatGo:
		return ".go"
	case FormatYAML:
		return ".yaml"
	default:
		return ".txt"
	}
}

// Resolve replaces FormatSource with the format matching the plan's language.
func (f Format) Resolve(p *plan.Plan) Format {
	if f != FormatSource {
		return f
	}
	if p.Language == "go" {
		return FormatGo
	}
	return FormatRust
}

type Options struct {
	// Name wraps the Rust functions in an impl block for the named type.
	Name string
	// Package is the Go package clause. Defaults to "board".
	Package string
}

// Render renders p in format f.
func Render(p *plan.Plan, f Format, options Options) ([]byte, error) {
	switch f.Resolve(p) {
	case FormatRust:
		return Rust(p, options)
	case FormatGo:
		return Go(p, options)
	case FormatYAML:
		return YAML(p)
	case FormatText:
		return Text(p), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, f)
}

// YAML dumps the plan.
func YAML(p *plan.Plan) ([]byte, error) {
	return yaml.Marshal(p)
}

// Text returns the numbered listing of the plan.
func Text(p *plan.Plan) []byte {
	return []byte(p.String())
}

// writer indents lines for the brace-delimited languages.
type writer struct {
	b     strings.Builder
	depth int
}

func (w *writer) line(format string, args ...any) {
	if format == "" {
		w.b.WriteByte('\n')
		return
	}
	w.b.WriteString(strings.Repeat("    ", w.depth))
	fmt.Fprintf(&w.b, format, args...)
	w.b.WriteByte('\n')
}

func (w *writer) open(format string, args ...any) {
	w.line(format, args...)
	w.depth++
}

func (w *writer) close(format string, args ...any) {
	w.depth--
	w.line(format, args...)
}

func (w *writer) String() string { return w.b.String() }
