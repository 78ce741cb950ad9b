package invoker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"originlytics-backend/internal/shared/telemetry"
)

// Analyzer describes one external analyzer process.
type Analyzer struct {
	ID     string
	Script string
	Args   []string
}

// Options bound a single invocation.
type Options struct {
	// Timeout applies per attempt.
	Timeout time.Duration
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
}

// ErrMalformedOutput indicates the analyzer exited cleanly but produced
// empty or non-parseable output. This is a silent subprocess failure,
// not a logic error, so it is retried like any transient failure.
var ErrMalformedOutput = errors.New("malformed analyzer output")

// FatalError is raised once retries are exhausted. It names the analyzer
// and carries the last failure cause.
type FatalError struct {
	Analyzer string
	Attempts int
	Err      error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("analyzer %s failed after %d attempts: %v", e.Analyzer, e.Attempts, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// Runner executes a command with text on stdin and returns stdout.
// It exists so tests can substitute the subprocess boundary.
type Runner interface {
	Run(ctx context.Context, path string, args []string, stdin string, env []string) ([]byte, error)
}

// Invoker runs analyzer subprocesses with per-attempt timeouts and
// exponential-backoff retries. It holds no mutable state and is safe for
// concurrent use.
type Invoker struct {
	PythonBin string
	Dir       string
	Runner    Runner

	// baseInterval overrides the first backoff delay; tests shrink it.
	baseInterval time.Duration
}

// New returns an Invoker executing real subprocesses.
func New(pythonBin, dir string) *Invoker {
	return &Invoker{PythonBin: pythonBin, Dir: dir, Runner: execRunner{}}
}

// Invoke delivers text to the analyzer via stdin and returns its parsed
// JSON output. Timeouts, non-zero exits, and malformed output are retried
// with exponential backoff (1s, 2s, 4s, ...); after MaxRetries retries the
// last cause is wrapped in a FatalError. Input always travels over the
// pipe, never as an argv element.
func (iv *Invoker) Invoke(ctx context.Context, analyzer Analyzer, text string, envOverrides map[string]string, opts Options) (json.RawMessage, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}

	script := analyzer.Script
	if !filepath.IsAbs(script) && iv.Dir != "" {
		script = filepath.Join(iv.Dir, script)
	}
	args := append([]string{script}, analyzer.Args...)

	env := os.Environ()
	for k, v := range envOverrides {
		env = append(env, k+"="+v)
	}

	attempts := 0
	operation := func() (json.RawMessage, error) {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
		defer cancel()

		out, err := iv.Runner.Run(attemptCtx, iv.PythonBin, args, text, env)
		if err != nil {
			if !retryable(err) {
				return nil, backoff.Permanent(err)
			}
			telemetry.Warn("invoker.attempt_failed", map[string]any{
				"analyzer": analyzer.ID,
				"attempt":  attempts,
				"error":    err.Error(),
			})
			return nil, err
		}

		raw := bytes.TrimSpace(out)
		if len(raw) == 0 || !json.Valid(raw) {
			telemetry.Warn("invoker.malformed_output", map[string]any{
				"analyzer": analyzer.ID,
				"attempt":  attempts,
				"bytes":    len(raw),
			})
			return nil, ErrMalformedOutput
		}
		return json.RawMessage(raw), nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = time.Second
	if iv.baseInterval > 0 {
		expo.InitialInterval = iv.baseInterval
	}
	expo.Multiplier = 2
	expo.RandomizationFactor = 0

	result, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(uint(opts.MaxRetries+1)),
	)
	if err != nil {
		return nil, &FatalError{Analyzer: analyzer.ID, Attempts: attempts, Err: err}
	}
	return result, nil
}

// Preload warms the analyzer runtime by running the model preload script
// once. Detector and emotion models download on first use, so warming them
// at startup keeps the first analysis from paying that cost. The script
// reports progress on stderr only, so this checks the exit code and skips
// the JSON pipeline.
func (iv *Invoker) Preload(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	script := "preload_models.py"
	if iv.Dir != "" {
		script = filepath.Join(iv.Dir, script)
	}
	_, err := iv.Runner.Run(runCtx, iv.PythonBin, []string{script}, "", os.Environ())
	return err
}

// retryable classifies a run error. Timeouts and non-zero exits are
// transient; a missing interpreter or canceled parent context is not.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, exec.ErrNotFound) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return true
	}
	// Pipe breakage and kill-on-timeout surface as generic errors.
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "signal: killed") ||
		strings.Contains(msg, "killed")
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, path string, args []string, stdin string, env []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%w: %s", err, truncate(stderr.String(), 512))
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
