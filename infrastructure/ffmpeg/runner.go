package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner defines the interface for running external commands
// This allows mocking exec.Command in tests
type CommandRunner interface {
	// Output executes a command and returns its standard output
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
	// Stream executes a command and calls onLine for every stdout line.
	// It returns only after the process has exited and all lines were delivered.
	Stream(ctx context.Context, name string, args []string, onLine func(line string)) error
}

// CommandError carries the stderr of a failed command
type CommandError struct {
	Err    error
	Stderr string
}

func (e *CommandError) Error() string {
	if e.Stderr == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v\n%s", e.Err, e.Stderr)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExecCommandRunner is the production implementation using os/exec
type ExecCommandRunner struct{}

// Output executes a command and returns its output
func (r *ExecCommandRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return out, &CommandError{Err: err, Stderr: strings.TrimSpace(stderr.String())}
	}
	return out, nil
}

// Stream executes a command, scanning stdout line by line
func (r *ExecCommandRunner) Stream(ctx context.Context, name string, args []string, onLine func(line string)) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return &CommandError{Err: err}
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		onLine(scanner.Text())
	}
	scanErr := scanner.Err()

	// Wait must run even when scanning failed so the process is reaped
	if err := cmd.Wait(); err != nil {
		return &CommandError{Err: err, Stderr: strings.TrimSpace(stderr.String())}
	}
	if scanErr != nil {
		return fmt.Errorf("failed to read command output: %w", scanErr)
	}
	return nil
}
