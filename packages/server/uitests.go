package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tessera-qa/tessera/packages/models"
	"github.com/tessera-qa/tessera/packages/plan"
)

type uiCaseRequest struct {
	CaseName      string          `json:"case_name" binding:"required"`
	BaseURL       string          `json:"base_url"`
	ScriptContent string          `json:"script_content"`
	Steps         models.StepList `json:"steps"`
	Record        bool            `json:"record"`
}

func (s *Server) listUICases(c *gin.Context) {
	projectID, ok := s.ownedProject(c)
	if !ok {
		return
	}
	cases, err := s.store.UICasesByProject(projectID)
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, cases)
}

func (s *Server) createUICase(c *gin.Context) {
	projectID, ok := s.ownedProject(c)
	if !ok {
		return
	}
	var req uiCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	created, err := s.store.CreateUICase(&models.UICase{
		ProjectID:     projectID,
		CaseName:      req.CaseName,
		BaseURL:       req.BaseURL,
		ScriptContent: req.ScriptContent,
		Steps:         req.Steps,
		Record:        req.Record,
	})
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, created)
}

func (s *Server) updateUICase(c *gin.Context) {
	caseID, ok := pathID(c, "case_id")
	if !ok {
		return
	}
	existing, err := s.store.UICaseByID(caseID)
	if err != nil {
		detail(c, http.StatusNotFound, "Test case not found")
		return
	}
	if _, err := s.store.ProjectOwnedBy(existing.ProjectID, currentUser(c).ID); err != nil {
		detail(c, http.StatusNotFound, "Project not found")
		return
	}

	var req uiCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	existing.CaseName = req.CaseName
	existing.BaseURL = req.BaseURL
	existing.ScriptContent = req.ScriptContent
	existing.Steps = req.Steps
	existing.Record = req.Record

	updated, err := s.store.UpdateUICase(existing)
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteUICase(c *gin.Context) {
	caseID, ok := pathID(c, "case_id")
	if !ok {
		return
	}
	existing, err := s.store.UICaseByID(caseID)
	if err != nil {
		detail(c, http.StatusNotFound, "Test case not found")
		return
	}
	if _, err := s.store.ProjectOwnedBy(existing.ProjectID, currentUser(c).ID); err != nil {
		detail(c, http.StatusNotFound, "Project not found")
		return
	}
	if err := s.store.DeleteUICase(caseID); err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "UI test case deleted successfully"})
}

func (s *Server) runUITests(c *gin.Context) {
	projectID, ok := s.ownedProject(c)
	if !ok {
		return
	}

	var req runTestsRequest
	_ = c.ShouldBindJSON(&req)

	cases, err := s.store.UICasesByIDs(projectID, req.TestCaseIDs)
	if err != nil {
		s.serverError(c, err)
		return
	}
	if len(cases) == 0 {
		detail(c, http.StatusNotFound, "No test cases found")
		return
	}

	report, err := s.store.CreateReport(projectID, reportName("UI_Test"), models.TestTypeUI)
	if err != nil {
		s.serverError(c, err)
		return
	}

	if err := s.sched.Dispatch(report.ID, plan.FromUICases(cases)); err != nil {
		s.log.Warn("dispatch failed", zap.Int64("report_id", report.ID), zap.Error(err))
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message":   "UI tests started",
		"report_id": report.ID,
	})
}

func (s *Server) listUIReports(c *gin.Context) {
	projectID, ok := s.ownedProject(c)
	if !ok {
		return
	}
	reports, err := s.store.ReportsByProject(projectID, models.TestTypeUI)
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

// uiReportArtifacts lists screenshots and trace captures under the
// report's run directory.
func (s *Server) uiReportArtifacts(c *gin.Context) {
	projectID, ok := s.ownedProject(c)
	if !ok {
		return
	}
	reportID, ok := pathID(c, "report_id")
	if !ok {
		return
	}
	report, err := s.store.ReportInProject(reportID, projectID)
	if err != nil {
		detail(c, http.StatusNotFound, "Report not found")
		return
	}

	screenshots := make([]string, 0)
	traces := make([]string, 0)
	if report.ReportPath != nil {
		runDir := filepath.Dir(*report.ReportPath)
		entries, err := os.ReadDir(runDir)
		if err == nil {
			for _, e := range entries {
				switch {
				case e.IsDir() && strings.HasPrefix(e.Name(), "trace_"):
					traces = append(traces, filepath.Join(runDir, e.Name()))
				case strings.HasSuffix(e.Name(), ".png"):
					screenshots = append(screenshots, filepath.Join(runDir, e.Name()))
				}
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"screenshots": screenshots,
		"traces":      traces,
	})
}
