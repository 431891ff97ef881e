// Package config declares the CLI surface. One binary serves three roles:
// the backend server, the phase-1 plan interpreter, and the phase-2 report
// renderer; the latter two are spawned as subprocesses of the first.
package config

import "time"

type ServeCmd struct {
	Port          string        `help:"Port to listen on." env:"PORT" default:"8000"`
	DatabasePath  string        `help:"Path to the sqlite database." env:"DATABASE_PATH" default:"tessera.db"`
	ReportsDir    string        `help:"Root directory for run artifacts." env:"REPORTS_DIR" default:"reports"`
	StaticDir     string        `help:"Directory for uploaded static files." env:"STATIC_DIR" default:"static"`
	JWTSecret     string        `help:"Secret for signing access tokens." env:"JWT_SECRET" default:"change-me"`
	Workers       int           `help:"Background execution workers." env:"WORKERS" default:"4"`
	QueueSize     int           `help:"Pending execution queue capacity." env:"QUEUE_SIZE" default:"64"`
	PhaseTimeout  time.Duration `help:"Timeout per pipeline phase." env:"PHASE_TIMEOUT" default:"30m"`
	ReportTTL     time.Duration `help:"Age after which a running report is reclaimed as failed." env:"REPORT_TTL" default:"2h"`
	SweepInterval time.Duration `help:"How often to sweep for stale reports." env:"SWEEP_INTERVAL" default:"5m"`
}

type ExecPlanCmd struct {
	Plan      string `help:"Path to the plan document." required:""`
	Results   string `help:"Directory for structured results." required:""`
	Artifacts string `help:"Directory for screenshots and traces." required:""`
}

type RenderCmd struct {
	Results string `help:"Directory holding structured results." required:""`
	Out     string `help:"Directory to render the report into." required:""`
}

type CLI struct {
	Serve    ServeCmd    `cmd:"" default:"withargs" help:"Run the test-management backend."`
	ExecPlan ExecPlanCmd `cmd:"" name:"exec-plan" help:"Interpret a plan document (phase 1)."`
	Render   RenderCmd   `cmd:"" help:"Render structured results into a report (phase 2)."`
}
