package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tessera-qa/tessera/packages/models"
)

type projectRequest struct {
	ProjectName string `json:"project_name" binding:"required"`
	TestStyle   string `json:"test_style" binding:"required"`
}

func (s *Server) listProjects(c *gin.Context) {
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	projects, err := s.store.ProjectsByUser(currentUser(c).ID, skip, limit)
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (s *Server) createProject(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !models.ValidTestStyle(req.TestStyle) {
		detail(c, http.StatusBadRequest, "Invalid test style")
		return
	}
	project, err := s.store.CreateProject(currentUser(c).ID, req.ProjectName, req.TestStyle)
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (s *Server) getProject(c *gin.Context) {
	projectID, ok := pathID(c, "project_id")
	if !ok {
		return
	}
	project, err := s.store.ProjectOwnedBy(projectID, currentUser(c).ID)
	if err != nil {
		detail(c, http.StatusNotFound, "Project not found")
		return
	}
	c.JSON(http.StatusOK, project)
}

func (s *Server) updateProject(c *gin.Context) {
	projectID, ok := pathID(c, "project_id")
	if !ok {
		return
	}
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !models.ValidTestStyle(req.TestStyle) {
		detail(c, http.StatusBadRequest, "Invalid test style")
		return
	}
	project, err := s.store.UpdateProject(projectID, currentUser(c).ID, req.ProjectName, req.TestStyle)
	if err != nil {
		if isNotFound(err) {
			detail(c, http.StatusNotFound, "Project not found")
			return
		}
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (s *Server) deleteProject(c *gin.Context) {
	projectID, ok := pathID(c, "project_id")
	if !ok {
		return
	}
	if err := s.store.DeleteProject(projectID, currentUser(c).ID); err != nil {
		if isNotFound(err) {
			detail(c, http.StatusNotFound, "Project not found")
			return
		}
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Project deleted successfully"})
}
