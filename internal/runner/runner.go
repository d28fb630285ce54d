// Package runner executes the external build process and streams its
// output line by line. The process is opaque: the runner never
// interprets the script, it only supervises execution and translates
// failures.
package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sync/errgroup"
)

// maxLineBytes bounds a single output line; kernel builds emit long
// command echoes.
const maxLineBytes = 1024 * 1024

// tailLines is how many trailing stderr lines a ProcessError retains
// for diagnosis.
const tailLines = 20

// LineSink consumes one line of process output. Append must not block;
// the sinks in the orchestrator queue or coalesce internally.
type LineSink interface {
	Append(line string)
}

// Command describes one external process invocation.
type Command struct {
	Path string
	Args []string
	// Dir is the working directory, normally the workspace root.
	Dir string
}

// ProcessError is the fatal result of a build process that started but
// did not succeed.
type ProcessError struct {
	// ExitCode is the process exit status, -1 when signalled.
	ExitCode int
	// Signal names the terminating signal, empty on a plain exit.
	Signal string
	// Tail holds the last stderr lines for diagnosis.
	Tail  []string
	Cause error
}

func (e *ProcessError) Error() string {
	if e.Signal != "" {
		return fmt.Sprintf("build process terminated by signal %s", e.Signal)
	}
	return fmt.Sprintf("build process exited with status %d", e.ExitCode)
}

func (e *ProcessError) Unwrap() error { return e.Cause }

// Runner runs external commands with dual-sink output streaming.
// Accepting the interface keeps the orchestrator testable without
// spawning processes.
type Runner interface {
	Run(ctx context.Context, cmd Command, stdout, stderr LineSink) error
}

// ScriptRunner is the production Runner over os/exec.
type ScriptRunner struct{}

// NewScriptRunner creates a ScriptRunner.
func NewScriptRunner() *ScriptRunner {
	return &ScriptRunner{}
}

// Run starts the command and pumps both output streams into the sinks
// until the process exits. Stdout is always drained, even when nobody
// listens. Stdin is the null device; the build must never go
// interactive. Cancellation terminates the process and surfaces as the
// context's error, not as a ProcessError.
func (r *ScriptRunner) Run(ctx context.Context, cmd Command, stdout, stderr LineSink) error {
	c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	c.Dir = cmd.Dir

	// Scrub the environment; only essentials pass through.
	c.Env = []string{
		"HOME=" + os.Getenv("HOME"),
		"PATH=" + os.Getenv("PATH"),
		"USER=" + os.Getenv("USER"),
		"LANG=" + os.Getenv("LANG"),
	}

	outPipe, err := c.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	errPipe, err := c.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := c.Start(); err != nil {
		return fmt.Errorf("start build process: %w", err)
	}

	tail := newTailBuffer(tailLines)
	var g errgroup.Group
	g.Go(func() error { return pump(outPipe, stdout, nil) })
	g.Go(func() error { return pump(errPipe, stderr, tail) })

	// Pipes must be fully drained before Wait closes them.
	pumpErr := g.Wait()
	waitErr := c.Wait()

	if cerr := translateContext(ctx); cerr != nil {
		return cerr
	}
	if waitErr != nil {
		return translateExit(waitErr, tail)
	}
	if pumpErr != nil {
		return fmt.Errorf("stream build output: %w", pumpErr)
	}
	return nil
}

// pump reads lines from one stream into a sink and optionally a tail
// buffer.
func pump(r io.Reader, sink LineSink, tail *tailBuffer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Text()
		if sink != nil {
			sink.Append(line)
		}
		if tail != nil {
			tail.add(line)
		}
	}
	return scanner.Err()
}

// translateContext maps cancellation and deadline to their context
// errors before any exit-status interpretation.
func translateContext(ctx context.Context) error {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return fmt.Errorf("build cancelled: %w", context.Canceled)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("build timed out: %w", context.DeadlineExceeded)
	default:
		return nil
	}
}

// translateExit converts a Wait error into a ProcessError.
func translateExit(waitErr error, tail *tailBuffer) error {
	var ee *exec.ExitError
	if !errors.As(waitErr, &ee) {
		return fmt.Errorf("wait for build process: %w", waitErr)
	}

	perr := &ProcessError{
		ExitCode: ee.ExitCode(),
		Tail:     tail.lines(),
		Cause:    waitErr,
	}
	if ws, ok := ee.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		perr.Signal = ws.Signal().String()
	}
	return perr
}

// tailBuffer keeps the last n lines pushed into it. It is written by a
// single pump goroutine and read only after the pumps are joined.
type tailBuffer struct {
	buf   []string
	next  int
	total int
}

func newTailBuffer(n int) *tailBuffer {
	return &tailBuffer{buf: make([]string, n)}
}

func (t *tailBuffer) add(line string) {
	t.buf[t.next] = line
	t.next = (t.next + 1) % len(t.buf)
	t.total++
}

// lines returns the retained lines in arrival order.
func (t *tailBuffer) lines() []string {
	if t.total == 0 {
		return nil
	}
	n := t.total
	if n > len(t.buf) {
		n = len(t.buf)
	}
	out := make([]string, 0, n)
	start := (t.next - n + len(t.buf)) % len(t.buf)
	for i := 0; i < n; i++ {
		out = append(out, t.buf[(start+i)%len(t.buf)])
	}
	return out
}
