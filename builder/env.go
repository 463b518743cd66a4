package builder

import (
	"fmt"
	"os"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Env map[string]string

// Environment returns the settings hwinit reads from the process environment,
// with defaults filled in.
func Environment() Env {
	return map[string]string{
		"HWINIT_FORMAT":  getenv("HWINIT_FORMAT", ""),
		"HWINIT_OUTPUT":  getenv("HWINIT_OUTPUT", ""),
		"HWINIT_FAMILY":  getenv("HWINIT_FAMILY", ""),
		"HWINIT_PACKAGE": getenv("HWINIT_PACKAGE", "board"),
		"RUSTFMT":        getenv("RUSTFMT", ""),
	}
}

func (e Env) Print() {
	for _, line := range e.List() {
		fmt.Println("set " + line)
	}
}

func (e Env) Value(key string) string {
	if v, ok := e[key]; ok {
		return v
	}
	return ""
}

// List renders the environment as sorted KEY=value pairs.
func (e Env) List() []string {
	keys := maps.Keys(e)
	slices.Sort(keys)
	result := make([]string, 0, len(keys))
	for _, key := range keys {
		result = append(result, fmt.Sprintf("%s=%s", key, e[key]))
	}
	return result
}

// withDefaults fills the options left empty from the environment.
func (o Options) withDefaults() Options {
	env := o.Environment
	if env == nil {
		env = Environment()
		o.Environment = env
	}
	if o.Format == "" {
		o.Format = env.Value("HWINIT_FORMAT")
	}
	if o.Output == "" {
		o.Output = env.Value("HWINIT_OUTPUT")
	}
	if o.Family == "" {
		o.Family = env.Value("HWINIT_FAMILY")
	}
	if o.Package == "" {
		o.Package = env.Value("HWINIT_PACKAGE")
	}
	return o
}

func getenv(key, _default string) (value string) {
	value = os.Getenv(key)
	if len(value) == 0 {
		value = _default
	}
	return value
}
