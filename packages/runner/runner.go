// Package runner is the fixed plan interpreter run as phase 1 of a
// pipeline. It walks the typed case descriptors in a plan, performs the
// HTTP/UI/load action each describes, and emits structured results. A
// failing case never aborts its siblings; every case produces exactly one
// result document.
package runner

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tessera-qa/tessera/packages/models"
	"github.com/tessera-qa/tessera/packages/plan"
	"github.com/tessera-qa/tessera/packages/result"
)

// apiTimeout bounds every interpreted HTTP request.
const apiTimeout = 30 * time.Second

type Runner struct {
	log       *zap.Logger
	results   *result.Writer
	artifacts string
	client    *http.Client
}

// New builds a runner writing case results into resultsDir and screenshots,
// traces and other per-case files into artifactsDir.
func New(log *zap.Logger, resultsDir, artifactsDir string) (*Runner, error) {
	w, err := result.NewWriter(resultsDir)
	if err != nil {
		return nil, err
	}
	return &Runner{
		log:       log,
		results:   w,
		artifacts: artifactsDir,
		client:    &http.Client{Timeout: apiTimeout},
	}, nil
}

// Execute interprets the plan and writes one result per case plus a
// summary. The returned error covers only the run mechanism itself; failed
// assertions are encoded in the results, not the error.
func (r *Runner) Execute(ctx context.Context, p plan.Plan) (result.Summary, error) {
	started := time.Now().UTC()
	var cases []result.CaseResult

	switch p.Type {
	case models.TestTypeAPI:
		for _, spec := range p.APICases {
			cr := r.runAPICase(ctx, spec)
			if err := r.results.WriteCase(cr); err != nil {
				return result.Summary{}, err
			}
			cases = append(cases, cr)
		}
	case models.TestTypeUI:
		for _, spec := range p.UICases {
			cr := r.runUICase(ctx, spec)
			if err := r.results.WriteCase(cr); err != nil {
				return result.Summary{}, err
			}
			cases = append(cases, cr)
		}
	case models.TestTypePerformance:
		cr := r.runLoad(ctx, p.Load)
		if err := r.results.WriteCase(cr); err != nil {
			return result.Summary{}, err
		}
		cases = append(cases, cr)
	}

	summary := result.Summarize(p.Type, started, time.Now().UTC(), cases)
	if err := r.results.WriteSummary(summary); err != nil {
		return result.Summary{}, err
	}
	r.log.Info("plan executed",
		zap.String("type", p.Type),
		zap.Int("passed", summary.Passed),
		zap.Int("failed", summary.Failed),
		zap.Int("broken", summary.Broken),
		zap.Int("total", summary.Total))
	return summary, nil
}
