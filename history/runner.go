package history

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Runner executes git commands. It exists so mining can be tested
// without shelling out.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// gitRunner shells out to the git binary. Commands are started through
// exec.CommandContext so cancellation kills in-flight clones.
type gitRunner struct{}

func (gitRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, bytes.TrimSpace(stderr.Bytes()))
	}
	return stdout.String(), nil
}
