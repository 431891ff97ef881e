package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tessera-qa/tessera/packages/models"
	"github.com/tessera-qa/tessera/packages/plan"
)

type performanceRequest struct {
	TargetURL string `json:"target_url" binding:"required,url"`
	Users     int    `json:"users"`
	SpawnRate int    `json:"spawn_rate"`
	RunTime   string `json:"run_time"`
}

// createPerformanceTest records a performance test without dispatching it.
// The row starts running like any other report; if it is never run, the
// stale-report sweep reclaims it.
func (s *Server) createPerformanceTest(c *gin.Context) {
	projectID, ok := s.ownedProject(c)
	if !ok {
		return
	}
	report, err := s.store.CreateReport(projectID, reportName("Performance_Test"), models.TestTypePerformance)
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   "Performance test created",
		"report_id": report.ID,
	})
}

func (s *Server) runPerformanceTest(c *gin.Context) {
	projectID, ok := s.ownedProject(c)
	if !ok {
		return
	}
	var req performanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	report, err := s.store.CreateReport(projectID, reportName("Performance_Test"), models.TestTypePerformance)
	if err != nil {
		s.serverError(c, err)
		return
	}

	p := plan.FromLoad(plan.LoadSpec{
		TargetURL: req.TargetURL,
		Users:     req.Users,
		SpawnRate: req.SpawnRate,
		RunTime:   req.RunTime,
	})
	if err := s.sched.Dispatch(report.ID, p); err != nil {
		s.log.Warn("dispatch failed", zap.Int64("report_id", report.ID), zap.Error(err))
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message":   "Performance test started",
		"report_id": report.ID,
	})
}

// stopPerformanceTest acknowledges the request; cancellation of a running
// load subprocess is not supported.
func (s *Server) stopPerformanceTest(c *gin.Context) {
	projectID, ok := s.ownedProject(c)
	if !ok {
		return
	}
	reportID, ok := pathID(c, "report_id")
	if !ok {
		return
	}
	if _, err := s.store.ReportInProject(reportID, projectID); err != nil {
		detail(c, http.StatusNotFound, "Report not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   "Stop requested; the running test will finish its configured duration",
		"report_id": reportID,
	})
}

func (s *Server) listPerformanceReports(c *gin.Context) {
	projectID, ok := s.ownedProject(c)
	if !ok {
		return
	}
	reports, err := s.store.ReportsByProject(projectID, models.TestTypePerformance)
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}
