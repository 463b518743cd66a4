package builder

import (
	"bytes"
	"fmt"
	"os/exec"
	"path/filepath"
)

type Toolchain struct {
	Rustfmt string
}

func findToolchain(env Env) (Toolchain, error) {
	rustfmt := env.Value("RUSTFMT")
	if len(rustfmt) == 0 {
		var err error
		if rustfmt, err = findExecutable("rustfmt"); err != nil {
			return Toolchain{}, fmt.Errorf("%w: rustfmt: %v", ErrToolNotFound, err)
		}
	}
	return Toolchain{Rustfmt: rustfmt}, nil
}

func findExecutable(cmd string) (string, error) {
	fname, err := exec.LookPath(cmd)
	if err == nil {
		fname, err = filepath.Abs(fname)
	}
	return fname, err
}

// formatRust pipes src through rustfmt. Without a rustfmt the source is
// returned unchanged.
func (t Toolchain) formatRust(src []byte) ([]byte, error) {
	if t.Rustfmt == "" {
		return src, nil
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.Command(t.Rustfmt, "--edition", "2021", "--emit", "stdout")
	cmd.Stdin = bytes.NewReader(src)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("error formatting generated source: %v: %s", err, stderr.String())
	}
	return stdout.Bytes(), nil
}
