package buildtool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/EnockMagara/dependafix-sub000/api/schemas"
)

// DefaultTimeout is the hard wall-clock limit for a single build invocation.
const DefaultTimeout = 5 * time.Minute

// ErrLaunchFailure marks a subprocess that could not be started at all
// (binary missing, repository unreadable). Unlike a failing build, this is a
// hard error that aborts the current phase.
var ErrLaunchFailure = errors.New("build tool launch failure")

// Executor runs build-tool subprocesses with a hard timeout and captures
// their combined output.
type Executor struct {
	logger  *zap.Logger
	timeout time.Duration
}

// NewExecutor creates an executor. A non-positive timeout selects
// DefaultTimeout.
func NewExecutor(logger *zap.Logger, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{
		logger:  logger.Named("build-executor"),
		timeout: timeout,
	}
}

// orderedBuffer interleaves stdout and stderr writes in arrival order.
type orderedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *orderedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *orderedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Run spawns the build tool for the given goals inside repoPath. A non-zero
// exit code yields Success=false, never an error; expiry of the timeout
// force-terminates the process and yields a TimedOut result. Only subprocess
// launch failure returns an error.
func (e *Executor) Run(ctx context.Context, repoPath string, tool Tool, goals []schemas.Goal) (*schemas.BuildResult, error) {
	bin, args := tool.Invocation(goals)

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	e.logger.Info("Running build tool",
		zap.String("tool", string(tool.Kind())),
		zap.String("binary", bin),
		zap.Strings("args", args),
		zap.String("repo", repoPath),
		zap.Duration("timeout", e.timeout),
	)

	out := &orderedBuffer{}
	cmd := exec.CommandContext(runCtx, bin, args...)
	cmd.Dir = repoPath
	cmd.Stdout = out
	cmd.Stderr = out
	// Give the process a short grace period after cancellation before SIGKILL.
	cmd.WaitDelay = 5 * time.Second

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	result := &schemas.BuildResult{
		Output:   out.String(),
		Duration: duration,
	}

	if runCtx.Err() == context.DeadlineExceeded {
		result.Success = false
		result.ExitCode = -1
		result.TimedOut = true
		result.Output += "\n[dependafix] execution_timeout: build exceeded " + e.timeout.String()
		e.logger.Warn("Build timed out; process terminated",
			zap.Duration("timeout", e.timeout),
			zap.Duration("elapsed", duration))
		return result, nil
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Normal unsuccessful build.
			result.Success = false
			result.ExitCode = exitErr.ExitCode()
			e.logger.Info("Build finished unsuccessfully",
				zap.Int("exit_code", result.ExitCode),
				zap.Duration("elapsed", duration))
			return result, nil
		}
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q: %v", ErrLaunchFailure, bin, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrLaunchFailure, err)
	}

	result.Success = true
	result.ExitCode = 0
	e.logger.Info("Build finished successfully", zap.Duration("elapsed", duration))
	return result, nil
}

// Runner binds an Executor to one repository and tool, satisfying
// schemas.BuildRunner for the validator and orchestrator.
type Runner struct {
	exec     *Executor
	repoPath string
	tool     Tool
}

// NewRunner creates a BuildRunner for a checkout.
func NewRunner(exec *Executor, repoPath string, tool Tool) *Runner {
	return &Runner{exec: exec, repoPath: repoPath, tool: tool}
}

// Run implements schemas.BuildRunner.
func (r *Runner) Run(ctx context.Context, goals ...schemas.Goal) (*schemas.BuildResult, error) {
	return r.exec.Run(ctx, r.repoPath, r.tool, goals)
}

// Tool implements schemas.BuildRunner.
func (r *Runner) Tool() schemas.BuildToolKind {
	return r.tool.Kind()
}
