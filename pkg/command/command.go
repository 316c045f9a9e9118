// Package command runs the external membership tooling (net, adcli, ipa,
// sss_cache) on behalf of the back-ends, capturing output for diagnostics.
package command

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"

	"github.com/MalloZup/realmd/internal/telemetry"
	"github.com/MalloZup/realmd/pkg/diag"
)

// Result is the outcome of one tool invocation.
type Result struct {
	// Status is the tool's exit status. Zero means success.
	Status int
	// Output is the combined stdout and stderr, already surfaced to
	// diagnostics by Run.
	Output string
}

// Request describes one tool invocation.
type Request struct {
	// Path is the resolved tool binary.
	Path string
	// Args are the tool arguments, excluding the binary name.
	Args []string
	// Env entries (KEY=value) appended to the daemon environment, used to
	// hand a ticket cache to the tool via KRB5CCNAME.
	Env []string
	// Stdin is optional input, used to feed one-time secrets to tools that
	// read them from standard input. Never logged.
	Stdin io.Reader
}

// Runner executes external tools. Back-ends depend on this interface so
// tests can substitute a fake.
type Runner interface {
	Run(ctx context.Context, op diag.Op, req Request) (Result, error)
}

// ExecRunner runs tools as child processes.
type ExecRunner struct {
	sink diag.Sink
}

// NewExecRunner creates a Runner emitting per-invocation diagnostics to sink.
func NewExecRunner(sink diag.Sink) *ExecRunner {
	return &ExecRunner{sink: sink}
}

// Run executes the request and waits for completion. The context cancels
// the child process. A non-zero exit is reported in Result.Status, not as
// an error; errors are reserved for failures to run the tool at all.
func (r *ExecRunner) Run(ctx context.Context, op diag.Op, req Request) (Result, error) {
	// The span carries only the tool path and exit status. Arguments, the
	// environment, and stdin stay out of it; stdin can carry secrets.
	ctx, span := telemetry.StartToolSpan(ctx, req.Path)
	defer span.End()

	r.sink.Info(op, "Running command: %s %s", req.Path, strings.Join(req.Args, " "))

	cmd := exec.CommandContext(ctx, req.Path, req.Args...)
	if len(req.Env) > 0 {
		cmd.Env = append(cmd.Environ(), req.Env...)
	}
	cmd.Stdin = req.Stdin

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	result := Result{Output: buf.String()}
	if result.Output != "" {
		r.sink.Info(op, "%s", strings.TrimRight(result.Output, "\n"))
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		result.Status = exitErr.ExitCode()
	default:
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		telemetry.RecordError(ctx, err)
		r.sink.Error(op, err, "Couldn't run command")
		return result, err
	}

	telemetry.SetAttributes(ctx, telemetry.ToolStatus(result.Status))
	return result, ctx.Err()
}
