// Package server is the HTTP surface: thin CRUD around the record store
// plus the run-trigger endpoints that hand work to the scheduler.
package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tessera-qa/tessera/packages/scheduler"
	"github.com/tessera-qa/tessera/packages/store"
)

type Config struct {
	JWTSecret  string
	StaticDir  string
	ReportsDir string
}

type Server struct {
	log    *zap.Logger
	store  *store.Store
	sched  *scheduler.Scheduler
	cfg    Config
	engine *gin.Engine
}

func New(log *zap.Logger, st *store.Store, sched *scheduler.Scheduler, cfg Config) *Server {
	s := &Server{
		log:   log,
		store: st,
		sched: sched,
		cfg:   cfg,
	}
	s.engine = s.routes()
	return s
}

// Engine exposes the router, mainly for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) Run(addr string) error {
	s.log.Info("server starting", zap.String("addr", addr))
	return s.engine.Run(addr)
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(s.log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// Rendered artifacts stay retrievable by path even after their report
	// rows are gone.
	r.Static("/reports", s.cfg.ReportsDir)
	r.Static("/static", s.cfg.StaticDir)

	v1 := r.Group("/api/v1")
	v1.POST("/register", s.register)
	v1.POST("/login", s.login)

	auth := v1.Group("", s.requireAuth())

	auth.GET("/users/me", s.me)
	auth.PUT("/users/me", s.updateMe)
	auth.POST("/users/me/avatar", s.uploadAvatar)

	auth.GET("/projects", s.listProjects)
	auth.POST("/projects", s.createProject)
	auth.GET("/projects/:project_id", s.getProject)
	auth.PUT("/projects/:project_id", s.updateProject)
	auth.DELETE("/projects/:project_id", s.deleteProject)

	auth.GET("/projects/:project_id/api-tests", s.listAPICases)
	auth.POST("/projects/:project_id/api-tests", s.createAPICase)
	auth.PUT("/api-tests/:case_id", s.updateAPICase)
	auth.DELETE("/api-tests/:case_id", s.deleteAPICase)
	auth.POST("/projects/:project_id/api-tests/run", s.runAPITests)
	auth.GET("/projects/:project_id/api-tests/reports", s.listAPIReports)

	auth.GET("/projects/:project_id/ui-tests", s.listUICases)
	auth.POST("/projects/:project_id/ui-tests", s.createUICase)
	auth.PUT("/ui-tests/:case_id", s.updateUICase)
	auth.DELETE("/ui-tests/:case_id", s.deleteUICase)
	auth.POST("/projects/:project_id/ui-tests/run", s.runUITests)
	auth.GET("/projects/:project_id/ui-tests/reports", s.listUIReports)
	auth.GET("/projects/:project_id/ui-tests/reports/:report_id/artifacts", s.uiReportArtifacts)

	auth.GET("/projects/:project_id/business-flows", s.listBusinessFlows)
	auth.POST("/projects/:project_id/business-flows", s.createBusinessFlow)
	auth.GET("/projects/:project_id/ui-business-flows", s.listUIBusinessFlows)
	auth.POST("/projects/:project_id/ui-business-flows", s.createUIBusinessFlow)
	auth.DELETE("/business-flows/:flow_id", s.deleteBusinessFlow)

	auth.POST("/projects/:project_id/performance-tests", s.createPerformanceTest)
	auth.POST("/projects/:project_id/performance-tests/run", s.runPerformanceTest)
	auth.POST("/projects/:project_id/performance-tests/:report_id/stop", s.stopPerformanceTest)
	auth.GET("/projects/:project_id/performance-tests/reports", s.listPerformanceReports)

	return r
}

// RequestLogger logs every request with its latency.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("request completed",
			zap.String("path", path),
			zap.String("method", c.Request.Method),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func detail(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{"detail": msg})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		detail(c, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return id, true
}

// ownedProject resolves the project path param under the caller's
// ownership; absent and unowned both produce 404.
func (s *Server) ownedProject(c *gin.Context) (int64, bool) {
	projectID, ok := pathID(c, "project_id")
	if !ok {
		return 0, false
	}
	user := currentUser(c)
	if _, err := s.store.ProjectOwnedBy(projectID, user.ID); err != nil {
		detail(c, http.StatusNotFound, "Project not found")
		return 0, false
	}
	return projectID, true
}
