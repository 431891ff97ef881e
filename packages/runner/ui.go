package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tessera-qa/tessera/packages/plan"
	"github.com/tessera-qa/tessera/packages/result"
)

const uiCaseTimeout = 2 * time.Minute

// TraceDir returns the per-case trace capture directory for recorded cases.
// The index keeps paths distinct across cases in one run.
func TraceDir(artifacts string, index int) string {
	return filepath.Join(artifacts, fmt.Sprintf("trace_%d", index))
}

// runUICase drives an isolated headless browser context through the case's
// step sequence or raw script. Teardown runs on every exit path; a fault
// still yields a failure screenshot and a result document.
func (r *Runner) runUICase(ctx context.Context, spec plan.UICaseSpec) result.CaseResult {
	started := time.Now().UTC()
	cr := result.CaseResult{
		Index:     spec.Index,
		Name:      spec.Name,
		Status:    result.StatusPassed,
		StartedAt: started,
	}
	defer func() {
		cr.DurationMS = time.Since(started).Milliseconds()
	}()

	traceDir := ""
	if spec.Record {
		traceDir = TraceDir(r.artifacts, spec.Index)
		if err := os.MkdirAll(traceDir, 0o755); err != nil {
			cr.Status = result.StatusBroken
			cr.Steps = append(cr.Steps, result.Step{
				Name:   "start trace recording",
				Status: result.StatusBroken,
				Detail: err.Error(),
			})
			return cr
		}
		cr.Steps = append(cr.Steps, result.Step{Name: "start trace recording", Status: result.StatusPassed})
		cr.Attachments = append(cr.Attachments, result.Attachment{
			Name: "trace", Type: "text/plain", Body: traceDir,
		})
	}

	caseCtx, cancel := context.WithTimeout(ctx, uiCaseTimeout)
	defer cancel()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(caseCtx, chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runErr := r.runBrowserSteps(browserCtx, spec, traceDir, &cr)
	if runErr != nil {
		r.log.Warn("ui case failed", zap.String("case", spec.Name), zap.Error(runErr))
		cr.Status = result.StatusFailed
		r.screenshot(browserCtx, fmt.Sprintf("screenshot_error_%d.png", spec.Index), &cr)
		return cr
	}
	r.screenshot(browserCtx, fmt.Sprintf("screenshot_success_%d.png", spec.Index), &cr)
	return cr
}

func (r *Runner) runBrowserSteps(ctx context.Context, spec plan.UICaseSpec, traceDir string, cr *result.CaseResult) error {
	if spec.BaseURL != "" {
		if err := chromedp.Run(ctx, chromedp.Navigate(spec.BaseURL)); err != nil {
			cr.Steps = append(cr.Steps, result.Step{
				Name:   fmt.Sprintf("navigate to %s", spec.BaseURL),
				Status: result.StatusFailed,
				Detail: err.Error(),
			})
			return err
		}
		cr.Steps = append(cr.Steps, result.Step{
			Name:   fmt.Sprintf("navigate to %s", spec.BaseURL),
			Status: result.StatusPassed,
		})
	}

	if len(spec.Steps) > 0 {
		for i, step := range spec.Steps {
			if err := r.runStep(ctx, step, cr); err != nil {
				return err
			}
			if traceDir != "" {
				r.captureTo(ctx, filepath.Join(traceDir, fmt.Sprintf("step_%02d.png", i)))
			}
		}
		return nil
	}

	if spec.Script != "" {
		if err := chromedp.Run(ctx, chromedp.Evaluate(spec.Script, nil)); err != nil {
			cr.Steps = append(cr.Steps, result.Step{
				Name:   "evaluate script",
				Status: result.StatusFailed,
				Detail: err.Error(),
			})
			return err
		}
		cr.Steps = append(cr.Steps, result.Step{Name: "evaluate script", Status: result.StatusPassed})
	}
	return nil
}

func (r *Runner) runStep(ctx context.Context, step plan.UIStep, cr *result.CaseResult) error {
	action, err := stepAction(step)
	name := stepName(step)
	if err == nil {
		err = chromedp.Run(ctx, action)
	}
	if err != nil {
		cr.Steps = append(cr.Steps, result.Step{Name: name, Status: result.StatusFailed, Detail: err.Error()})
		return err
	}
	cr.Steps = append(cr.Steps, result.Step{Name: name, Status: result.StatusPassed})
	return nil
}

// stepAction maps an opaque step descriptor onto a browser action.
func stepAction(step plan.UIStep) (chromedp.Action, error) {
	switch step.Action {
	case "navigate":
		return chromedp.Navigate(step.Value), nil
	case "click":
		return chromedp.Click(step.Selector, chromedp.ByQuery), nil
	case "fill":
		return chromedp.SendKeys(step.Selector, step.Value, chromedp.ByQuery), nil
	case "wait":
		if step.Selector != "" {
			return chromedp.WaitVisible(step.Selector, chromedp.ByQuery), nil
		}
		return chromedp.Sleep(time.Duration(step.TimeoutMS) * time.Millisecond), nil
	case "evaluate":
		return chromedp.Evaluate(step.Value, nil), nil
	default:
		return nil, errors.Errorf("unknown step action %q", step.Action)
	}
}

func stepName(step plan.UIStep) string {
	if step.Selector != "" {
		return fmt.Sprintf("%s %s", step.Action, step.Selector)
	}
	return step.Action
}

func (r *Runner) screenshot(ctx context.Context, name string, cr *result.CaseResult) {
	path := filepath.Join(r.artifacts, name)
	if !r.captureTo(ctx, path) {
		return
	}
	cr.Attachments = append(cr.Attachments, result.Attachment{
		Name: "screenshot", Type: "image/png", Body: path,
	})
}

func (r *Runner) captureTo(ctx context.Context, path string) bool {
	var buf []byte
	if err := chromedp.Run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		r.log.Warn("screenshot failed", zap.String("path", path), zap.Error(err))
		return false
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		r.log.Warn("screenshot write failed", zap.String("path", path), zap.Error(err))
		return false
	}
	return true
}
