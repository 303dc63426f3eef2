package runner

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"os/exec"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/colearn-ml/colearn-examples/internal/logging"
)

// DefaultTimeout bounds a single example run.
const DefaultTimeout = 20 * time.Minute

// testModeEnv is added to every run. COLEARN_EXAMPLES_TEST makes the
// examples do a single round; MPLBACKEND disables interactive plotting.
var testModeEnv = map[string]string{
	"MPLBACKEND":            "agg",
	"COLEARN_EXAMPLES_TEST": "1",
}

// Result is the outcome of one example.
type Result struct {
	Name     string
	Skipped  bool
	TimedOut bool
	ExitCode int
	Duration time.Duration
	Err      error
}

// OK reports whether the example ran and succeeded, or was skipped.
func (r Result) OK() bool { return r.Err == nil }

// Runner executes examples one at a time.
type Runner struct {
	Timeout time.Duration     // 0 means DefaultTimeout
	Env     map[string]string // added to the parent environment
	Ignored []string
	Dir     string // working directory; empty means the current one
	Logger  *zap.Logger
}

// Run executes ex and waits for it. Stdout and stderr are streamed to the
// logger line by line.
func (r *Runner) Run(ctx context.Context, ex Example) Result {
	log := logging.OrNop(r.Logger).With(zap.String("example", ex.Name))
	res := Result{Name: ex.Name}

	if slices.Contains(r.Ignored, ex.Name) {
		log.Info("example ignored")
		res.Skipped = true
		return res
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	argv := ex.Argv()
	if len(argv) == 0 {
		res.Err = ErrNoCommand
		return res
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...) //nolint:gosec // G204: commands come from the catalog.
	cmd.Dir = r.Dir
	cmd.Env = r.environ(ex)
	cmd.WaitDelay = 5 * time.Second

	stdout := newLineWriter(log, "stdout")
	stderr := newLineWriter(log, "stderr")
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	log.Info("running example", zap.Strings("argv", argv), zap.Any("env", ex.Env), zap.Duration("timeout", timeout))
	start := time.Now()
	err := cmd.Run()
	stdout.Flush()
	stderr.Flush()
	res.Duration = time.Since(start)

	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			res.TimedOut = true
			err = fmt.Errorf("timed out after %s: %w", timeout, err)
		}
		res.Err = fmt.Errorf("example %s: %w", ex.Name, err)
		log.Error("example failed", zap.Error(res.Err), zap.Int("exit_code", res.ExitCode), zap.Duration("duration", res.Duration))
		return res
	}
	log.Info("example passed", zap.Duration("duration", res.Duration))
	return res
}

// RunAll runs every example in order and returns one Result each. The
// error joins the failures; skipped examples are not failures.
func (r *Runner) RunAll(ctx context.Context, examples []Example) ([]Result, error) {
	results := make([]Result, 0, len(examples))
	var errs []error
	for _, ex := range examples {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res := r.Run(ctx, ex)
		results = append(results, res)
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return results, errors.Join(errs...)
}

// environ returns the parent environment with the runner's variables, the
// test-mode flags and the example's variables layered on top.
func (r *Runner) environ(ex Example) []string {
	env := os.Environ()
	extra := make(map[string]string, len(r.Env)+len(testModeEnv)+len(ex.Env))
	maps.Copy(extra, r.Env)
	maps.Copy(extra, testModeEnv)
	maps.Copy(extra, ex.Env)

	for _, k := range slices.Sorted(maps.Keys(extra)) {
		env = append(env, k+"="+extra[k])
	}
	return env
}
