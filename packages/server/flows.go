package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tessera-qa/tessera/packages/models"
	"github.com/tessera-qa/tessera/packages/store"
)

type businessFlowRequest struct {
	FlowName string        `json:"flow_name" binding:"required"`
	CaseIDs  models.IDList `json:"case_ids" binding:"required"`
}

func (s *Server) listBusinessFlows(c *gin.Context) {
	s.listFlows(c, models.TestTypeAPI)
}

func (s *Server) createBusinessFlow(c *gin.Context) {
	s.createFlow(c, models.TestTypeAPI)
}

func (s *Server) listUIBusinessFlows(c *gin.Context) {
	s.listFlows(c, models.TestTypeUI)
}

func (s *Server) createUIBusinessFlow(c *gin.Context) {
	s.createFlow(c, models.TestTypeUI)
}

func (s *Server) listFlows(c *gin.Context, testType string) {
	projectID, ok := s.ownedProject(c)
	if !ok {
		return
	}
	flows, err := s.store.BusinessFlowsByProject(projectID, testType)
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, flows)
}

func (s *Server) createFlow(c *gin.Context, testType string) {
	projectID, ok := s.ownedProject(c)
	if !ok {
		return
	}
	var req businessFlowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	flow, err := s.store.CreateBusinessFlow(&models.BusinessFlow{
		ProjectID: projectID,
		FlowName:  req.FlowName,
		TestType:  testType,
		CaseIDs:   req.CaseIDs,
	})
	if err != nil {
		if err == store.ErrCaseMismatch {
			detail(c, http.StatusBadRequest, err.Error())
			return
		}
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, flow)
}

func (s *Server) deleteBusinessFlow(c *gin.Context) {
	flowID, ok := pathID(c, "flow_id")
	if !ok {
		return
	}
	flow, err := s.store.BusinessFlowByID(flowID)
	if err != nil {
		detail(c, http.StatusNotFound, "No business flow found")
		return
	}
	if _, err := s.store.ProjectOwnedBy(flow.ProjectID, currentUser(c).ID); err != nil {
		detail(c, http.StatusNotFound, "Project not found")
		return
	}
	if err := s.store.DeleteBusinessFlow(flowID); err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Business flow deleted successfully"})
}
