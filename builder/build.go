package builder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"omibyte.io/hwinit/device"
	"omibyte.io/hwinit/emit"
	"omibyte.io/hwinit/plan"
	"omibyte.io/hwinit/planner"
)

type Result struct {
	Config string
	Plan   *plan.Plan
	Format emit.Format
	Source []byte
	// Output is the file Source was written to, empty when nothing was written.
	Output string
}

// BuildConfigs builds every configuration in options.Configs.
func BuildConfigs(options Options) ([]Result, error) {
	options = options.withDefaults()
	if len(options.Configs) == 0 {
		return nil, ErrNoConfigs
	}

	// Check output path with respect to the number of configurations
	if info, err := os.Stat(options.Output); err == nil && !info.IsDir() && len(options.Configs) > 1 {
		// Output must be a directory if multiple configurations were specified
		return nil, ErrUnexpectedOutputPath
	}

	results := make([]Result, 0, len(options.Configs))
	for _, config := range options.Configs {
		info, err := os.Stat(config)
		if err != nil {
			return results, errors.Join(ErrConfigError, err)
		} else if info.IsDir() {
			return results, fmt.Errorf("%w: %s is a directory", ErrConfigError, config)
		}

		result, err := Build(config, options)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

// Load decodes a configuration file and applies the family override.
func Load(config string, options Options) (*device.Config, error) {
	options = options.withDefaults()
	cfg, err := device.Load(config)
	if err != nil {
		return nil, err
	}
	if options.Family != "" {
		kind, err := device.ParseKind(options.Family)
		if err != nil {
			return nil, err
		}
		cfg.Kind = kind
	}
	return cfg, nil
}

// Plan loads and plans one configuration.
func Plan(config string, options Options) (*plan.Plan, error) {
	options = options.withDefaults()
	cfg, err := Load(config, options)
	if err != nil {
		return nil, err
	}
	p, err := planner.Build(cfg, planner.Options{Logger: options.Logger})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config, err)
	}
	return p, nil
}

// Build plans one configuration, renders it and writes it to options.Output.
func Build(config string, options Options) (Result, error) {
	options = options.withDefaults()
	p, err := Plan(config, options)
	if err != nil {
		return Result{}, err
	}

	format, err := emit.ParseFormat(options.Format)
	if err != nil {
		return Result{}, err
	}
	format = format.Resolve(p)

	src, err := emit.Render(p, format, emit.Options{Name: options.Name, Package: options.Package})
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", config, err)
	}
	if format == emit.FormatRust && options.Rustfmt {
		toolchain, err := findToolchain(options.Environment)
		if err != nil {
			return Result{}, err
		}
		if src, err = toolchain.formatRust(src); err != nil {
			return Result{}, err
		}
	}

	result := Result{Config: config, Plan: p, Format: format, Source: src}
	if options.Output == "" || options.Output == "-" {
		return result, nil
	}

	fname := outputPath(options.Output, config, format, len(options.Configs) > 1)
	if err := writeOutput(fname, src); err != nil {
		return Result{}, err
	}
	if options.Logger != nil {
		options.Logger.Printf("wrote %s (%d operations)", fname, len(p.Ops))
	}
	result.Output = fname
	return result, nil
}

// outputPath names the file a configuration is written to. A directory
// output gets one file per configuration, named after it.
func outputPath(output, config string, format emit.Format, many bool) string {
	info, err := os.Stat(output)
	if (err == nil && info.IsDir()) || many || strings.HasSuffix(output, string(filepath.Separator)) {
		base := strings.TrimSuffix(filepath.Base(config), filepath.Ext(config))
		return filepath.Join(output, base+format.Extension())
	}
	return output
}

func writeOutput(fname string, data []byte) error {
	// The path to the output must exist. Create it if it doesn't
	dir := filepath.Dir(fname)
	if stat, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return err
		}
	} else if err != nil {
		return err
	} else if !stat.IsDir() {
		return os.ErrInvalid
	}
	return os.WriteFile(fname, data, 0644)
}
