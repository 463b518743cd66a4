package builder

import "log"

type Options struct {
	Configs []string
	// Output is a file or a directory. Empty leaves writing to the caller.
	Output string
	// Format selects the emitter, see emit.ParseFormat.
	Format string
	// Family overrides the device kind named in each configuration.
	Family string
	// Name wraps generated Rust in an impl block for the named type.
	Name        string
	Package     string
	Environment Env
	// Rustfmt formats generated Rust when a rustfmt executable is found.
	Rustfmt bool
	Logger  *log.Logger
}
