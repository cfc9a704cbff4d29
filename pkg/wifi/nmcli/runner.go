package nmcli

import (
	"bytes"
	"context"
	"os/exec"
)

// Runner executes nmcli.
type Runner interface {
	Run(ctx context.Context, args ...string) ([]byte, error)
}

// ExecRunner runs the nmcli binary found at Path (or on $PATH).
type ExecRunner struct {
	Path string
}

// Run executes nmcli with args and returns combined output.
func (r ExecRunner) Run(ctx context.Context, args ...string) ([]byte, error) {
	path := r.Path
	if path == "" {
		path = "nmcli"
	}
	cmd := exec.CommandContext(ctx, path, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

// exitCoder is implemented by *exec.ExitError.
type exitCoder interface {
	ExitCode() int
}
