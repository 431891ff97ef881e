// Package exec runs a pipeline: it materializes a plan into a fresh run
// directory, executes the fixed plan interpreter as a child process, and
// then invokes the report renderer as a second child process. Two phases
// stay separate so a rendering crash cannot destroy captured results.
package exec

import (
	"bytes"
	"context"
	"os"
	osexec "os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tessera-qa/tessera/packages/plan"
	"github.com/tessera-qa/tessera/packages/result"
)

// DefaultPhaseTimeout bounds each subprocess phase.
const DefaultPhaseTimeout = 30 * time.Minute

// defaultPipeGrace bounds how long a finished phase may keep its pipes
// open, covering grandchildren that inherited them and outlive the child.
const defaultPipeGrace = 5 * time.Second

// RunResult is the outcome of one pipeline run. A nonzero ExitCode means
// the interpreter could not run its cases; it is an outcome, not an error.
type RunResult struct {
	RunDir    string
	ReportDir string
	ExitCode  int
	Stdout    string
	Stderr    string
	Summary   result.Summary
}

type Executor struct {
	log       *zap.Logger
	baseDir   string
	binary    string
	timeout   time.Duration
	pipeGrace time.Duration
	now       func() time.Time
}

// New builds an executor rooted at baseDir (the reports tree). binary is
// the program spawned for both phases, normally this process's own binary.
func New(log *zap.Logger, baseDir, binary string, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultPhaseTimeout
	}
	return &Executor{
		log:       log,
		baseDir:   baseDir,
		binary:    binary,
		timeout:   timeout,
		pipeGrace: defaultPipeGrace,
		now:       time.Now,
	}
}

// Run executes the full pipeline for p and returns the rendered report
// directory, the interpreter's exit code and its captured streams.
func (e *Executor) Run(ctx context.Context, p plan.Plan) (RunResult, error) {
	var res RunResult

	runDir, err := e.createRunDir(p.Type)
	if err != nil {
		return res, generationFault(err)
	}
	res.RunDir = runDir

	resultsDir := filepath.Join(runDir, "results")
	if err := os.MkdirAll(resultsDir, 0o755); err != nil {
		return res, generationFault(errors.Wrap(err, "create results dir"))
	}

	planPath := filepath.Join(runDir, plan.FileName)
	if err := p.Write(planPath); err != nil {
		return res, generationFault(err)
	}

	e.log.Info("starting pipeline",
		zap.String("type", p.Type),
		zap.String("run_dir", runDir),
		zap.Int("cases", p.CaseCount()))

	// Phase 1: interpret the plan. A nonzero exit is a normal outcome.
	exitCode, stdout, stderr, err := e.runPhase(ctx,
		"exec-plan", "--plan", planPath, "--results", resultsDir, "--artifacts", runDir)
	res.ExitCode = exitCode
	res.Stdout = stdout
	res.Stderr = stderr
	if err != nil {
		return res, executionFault(err)
	}

	if exitCode == 0 {
		summary, err := result.ReadSummary(resultsDir)
		if err != nil {
			return res, executionFault(errors.Wrap(err, "read run summary"))
		}
		res.Summary = summary
	}

	// Phase 2: render the structured results into a browsable report.
	reportDir := filepath.Join(runDir, "report")
	renderExit, _, renderErr, err := e.runPhase(ctx,
		"render", "--results", resultsDir, "--out", reportDir)
	if err != nil {
		return res, executionFault(err)
	}
	if renderExit != 0 {
		return res, executionFault(errors.Errorf("renderer exited with code %d: %s", renderExit, renderErr))
	}
	res.ReportDir = reportDir

	e.log.Info("pipeline finished",
		zap.String("run_dir", runDir),
		zap.Int("exit_code", exitCode),
		zap.String("report_dir", reportDir))
	return res, nil
}

// createRunDir makes a timestamped directory exclusively owned by this run.
// The uniquifier keeps concurrent runs in the same second collision-free.
func (e *Executor) createRunDir(testType string) (string, error) {
	stamp := e.now().UTC().Format("20060102_150405")
	dir := filepath.Join(e.baseDir, testType, stamp+"_"+uuid.NewString()[:8])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create run dir")
	}
	return dir, nil
}

// runPhase spawns one child process and captures its exit code and streams.
func (e *Executor) runPhase(ctx context.Context, args ...string) (int, string, string, error) {
	phaseCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := osexec.CommandContext(phaseCtx, e.binary, args...)
	cmd.Env = os.Environ()

	// Capture through Wait's own pipe copiers: a raw copy reads until the
	// stream closes, never stalling mid-stream on output a line scanner
	// would choke on. WaitDelay keeps a grandchild that inherited the
	// pipes from holding Wait open once the child itself is gone.
	out := &phaseLog{log: e.log, phase: args[0], stream: "stdout"}
	errw := &phaseLog{log: e.log, phase: args[0], stream: "stderr"}
	cmd.Stdout = out
	cmd.Stderr = errw
	cmd.WaitDelay = e.pipeGrace

	runErr := cmd.Run()
	if runErr != nil {
		var exitErr *osexec.ExitError
		switch {
		case errors.Is(runErr, osexec.ErrWaitDelay):
			// The child exited cleanly; only stragglers still holding its
			// pipes were cut loose.
		case errors.As(runErr, &exitErr) && phaseCtx.Err() == nil:
			return exitErr.ExitCode(), out.buf.String(), errw.buf.String(), nil
		case phaseCtx.Err() != nil:
			return 0, out.buf.String(), errw.buf.String(),
				errors.Wrapf(phaseCtx.Err(), "%s timed out", args[0])
		default:
			return 0, out.buf.String(), errw.buf.String(), errors.Wrapf(runErr, "run %s", args[0])
		}
	}
	return 0, out.buf.String(), errw.buf.String(), nil
}

// phaseLog buffers a child stream, echoing each chunk to the log.
type phaseLog struct {
	buf    bytes.Buffer
	log    *zap.Logger
	phase  string
	stream string
}

func (w *phaseLog) Write(p []byte) (int, error) {
	w.log.Debug("subprocess output",
		zap.String("phase", w.phase),
		zap.String("stream", w.stream),
		zap.ByteString("output", p))
	return w.buf.Write(p)
}
