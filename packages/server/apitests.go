package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tessera-qa/tessera/packages/models"
	"github.com/tessera-qa/tessera/packages/plan"
)

type apiCaseRequest struct {
	CaseName     string         `json:"case_name" binding:"required"`
	Method       string         `json:"method" binding:"required"`
	URL          string         `json:"url" binding:"required"`
	Headers      models.JSONMap `json:"headers"`
	Params       models.JSONMap `json:"params"`
	Body         models.JSONMap `json:"body"`
	ExpectedData models.JSONMap `json:"expected_data"`
}

func (s *Server) listAPICases(c *gin.Context) {
	projectID, ok := s.ownedProject(c)
	if !ok {
		return
	}
	cases, err := s.store.APICasesByProject(projectID)
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, cases)
}

func (s *Server) createAPICase(c *gin.Context) {
	projectID, ok := s.ownedProject(c)
	if !ok {
		return
	}
	var req apiCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	created, err := s.store.CreateAPICase(&models.APICase{
		ProjectID:    projectID,
		CaseName:     req.CaseName,
		Method:       strings.ToUpper(req.Method),
		URL:          req.URL,
		Headers:      req.Headers,
		Params:       req.Params,
		Body:         req.Body,
		ExpectedData: req.ExpectedData,
	})
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, created)
}

func (s *Server) updateAPICase(c *gin.Context) {
	caseID, ok := pathID(c, "case_id")
	if !ok {
		return
	}
	existing, err := s.store.APICaseByID(caseID)
	if err != nil {
		detail(c, http.StatusNotFound, "Test case not found")
		return
	}
	if _, err := s.store.ProjectOwnedBy(existing.ProjectID, currentUser(c).ID); err != nil {
		detail(c, http.StatusNotFound, "Project not found")
		return
	}

	var req apiCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	existing.CaseName = req.CaseName
	existing.Method = strings.ToUpper(req.Method)
	existing.URL = req.URL
	existing.Headers = req.Headers
	existing.Params = req.Params
	existing.Body = req.Body
	existing.ExpectedData = req.ExpectedData

	updated, err := s.store.UpdateAPICase(existing)
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteAPICase(c *gin.Context) {
	caseID, ok := pathID(c, "case_id")
	if !ok {
		return
	}
	existing, err := s.store.APICaseByID(caseID)
	if err != nil {
		detail(c, http.StatusNotFound, "Test case not found")
		return
	}
	if _, err := s.store.ProjectOwnedBy(existing.ProjectID, currentUser(c).ID); err != nil {
		detail(c, http.StatusNotFound, "Project not found")
		return
	}
	if err := s.store.DeleteAPICase(caseID); err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "API test case deleted successfully"})
}

type runTestsRequest struct {
	TestCaseIDs []int64 `json:"test_case_ids"`
}

// runAPITests triggers a background run. Everything up to the 202 is
// synchronous: ownership, case resolution, the empty-set check and the
// report row. The pipeline itself never blocks the response.
func (s *Server) runAPITests(c *gin.Context) {
	projectID, ok := s.ownedProject(c)
	if !ok {
		return
	}

	// Body is optional; an absent id list means every case in the project.
	var req runTestsRequest
	_ = c.ShouldBindJSON(&req)

	var (
		cases []models.APICase
		err   error
	)
	if len(req.TestCaseIDs) > 0 {
		cases, err = s.store.APICasesByIDs(projectID, req.TestCaseIDs)
	} else {
		cases, err = s.store.APICasesByProject(projectID)
	}
	if err != nil {
		s.serverError(c, err)
		return
	}
	if len(cases) == 0 {
		detail(c, http.StatusNotFound, "No test cases found")
		return
	}

	report, err := s.store.CreateReport(projectID, reportName("API_Test"), models.TestTypeAPI)
	if err != nil {
		s.serverError(c, err)
		return
	}

	if err := s.sched.Dispatch(report.ID, plan.FromAPICases(cases)); err != nil {
		s.log.Warn("dispatch failed", zap.Int64("report_id", report.ID), zap.Error(err))
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message":   "API tests started",
		"report_id": report.ID,
	})
}

func (s *Server) listAPIReports(c *gin.Context) {
	projectID, ok := s.ownedProject(c)
	if !ok {
		return
	}
	reports, err := s.store.ReportsByProject(projectID, models.TestTypeAPI)
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

func reportName(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
