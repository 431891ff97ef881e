package main

import (
	"context"
	"os"

	"github.com/alecthomas/kong"
	"github.com/gin-gonic/gin"
	prettyconsole "github.com/thessem/zap-prettyconsole"
	"go.uber.org/zap"

	"github.com/tessera-qa/tessera/packages/config"
	"github.com/tessera-qa/tessera/packages/exec"
	"github.com/tessera-qa/tessera/packages/plan"
	"github.com/tessera-qa/tessera/packages/render"
	"github.com/tessera-qa/tessera/packages/runner"
	"github.com/tessera-qa/tessera/packages/scheduler"
	"github.com/tessera-qa/tessera/packages/server"
	"github.com/tessera-qa/tessera/packages/store"
)

var log *zap.Logger

func init() {
	var err error
	if os.Getenv("ENV") == "local" {
		log = prettyconsole.NewLogger(zap.DebugLevel)
	} else {
		log, err = zap.NewProduction()
		if err != nil {
			panic("Failed to initialize logger: " + err.Error())
		}
	}
}

func main() {
	defer log.Sync()

	var cli config.CLI
	kctx := kong.Parse(&cli,
		kong.Name("tessera"),
		kong.Description("Multi-tenant test-management backend."),
	)

	switch kctx.Command() {
	case "exec-plan":
		runExecPlan(cli.ExecPlan)
	case "render":
		runRender(cli.Render)
	default:
		runServe(cli.Serve)
	}
}

func runServe(cfg config.ServeCmd) {
	gin.SetMode(gin.ReleaseMode)

	if err := os.MkdirAll(cfg.ReportsDir, 0o755); err != nil {
		log.Fatal("Failed to create reports dir", zap.Error(err))
	}
	if err := os.MkdirAll(cfg.StaticDir, 0o755); err != nil {
		log.Fatal("Failed to create static dir", zap.Error(err))
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal("Failed to open store", zap.Error(err))
	}
	defer st.Close()

	// The scheduler's workers use their own store handle, never the
	// request-scoped one.
	workerStore, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal("Failed to open worker store", zap.Error(err))
	}
	defer workerStore.Close()

	self, err := os.Executable()
	if err != nil {
		log.Fatal("Failed to resolve own binary", zap.Error(err))
	}

	executor := exec.New(log.Named("exec"), cfg.ReportsDir, self, cfg.PhaseTimeout)
	sched := scheduler.New(log.Named("scheduler"), workerStore, executor.Run, scheduler.Options{
		Workers:       cfg.Workers,
		QueueSize:     cfg.QueueSize,
		ReportTTL:     cfg.ReportTTL,
		SweepInterval: cfg.SweepInterval,
	})
	sched.Start()
	defer sched.Close()

	srv := server.New(log.Named("http"), st, sched, server.Config{
		JWTSecret:  cfg.JWTSecret,
		StaticDir:  cfg.StaticDir,
		ReportsDir: cfg.ReportsDir,
	})
	if err := srv.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}

func runExecPlan(cfg config.ExecPlanCmd) {
	p, err := plan.Read(cfg.Plan)
	if err != nil {
		log.Fatal("Failed to read plan", zap.Error(err))
	}
	r, err := runner.New(log.Named("runner"), cfg.Results, cfg.Artifacts)
	if err != nil {
		log.Fatal("Failed to initialize runner", zap.Error(err))
	}
	// Assertion failures are encoded in the results; a nonzero exit here
	// means the run itself could not execute.
	if _, err := r.Execute(context.Background(), p); err != nil {
		log.Fatal("Plan execution failed", zap.Error(err))
	}
}

func runRender(cfg config.RenderCmd) {
	if err := render.Render(cfg.Results, cfg.Out); err != nil {
		log.Fatal("Report rendering failed", zap.Error(err))
	}
}
