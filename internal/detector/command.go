package detector

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
)

// RunCommand executes an external tool with an explicit timeout. On failure
// or timeout it returns whatever output was produced along with the error;
// callers degrade to best-effort results instead of failing the run.
func RunCommand(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error) {
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if cmdCtx.Err() == context.DeadlineExceeded {
		return stdout.String(), fmt.Errorf("%s timed out after %s", name, timeout)
	}
	if err != nil {
		return stdout.String(), fmt.Errorf("%s failed; %w", name, err)
	}

	return stdout.String(), nil
}
