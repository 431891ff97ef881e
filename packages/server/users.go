package server

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tessera-qa/tessera/packages/store"
)

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !validPassword(req.Password) {
		detail(c, http.StatusBadRequest,
			"Password must be at least 8 characters long and contain letters")
		return
	}
	if _, err := s.store.UserByUsername(req.Username); err == nil {
		detail(c, http.StatusBadRequest, "Username already registered")
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		s.serverError(c, err)
		return
	}
	user, err := s.store.CreateUser(req.Username, hash)
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	user, err := s.store.UserByUsername(req.Username)
	if err != nil || !verifyPassword(user.PasswordHash, req.Password) {
		detail(c, http.StatusUnauthorized, "Incorrect username or password")
		return
	}
	token, err := s.issueToken(user.Username)
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"user":         user,
	})
}

func (s *Server) me(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

type updateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) updateMe(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	user := currentUser(c)

	username := user.Username
	if req.Username != "" {
		username = req.Username
	}
	hash := user.PasswordHash
	if req.Password != "" {
		if !validPassword(req.Password) {
			detail(c, http.StatusBadRequest,
				"Password must be at least 8 characters long and contain letters")
			return
		}
		var err error
		hash, err = hashPassword(req.Password)
		if err != nil {
			s.serverError(c, err)
			return
		}
	}

	if err := s.store.UpdateUser(user.ID, username, hash); err != nil {
		s.serverError(c, err)
		return
	}
	updated, err := s.store.UserByID(user.ID)
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) uploadAvatar(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		detail(c, http.StatusBadRequest, "Missing file")
		return
	}
	user := currentUser(c)

	avatarDir := filepath.Join(s.cfg.StaticDir, "avatars")
	if err := os.MkdirAll(avatarDir, 0o755); err != nil {
		s.serverError(c, err)
		return
	}

	ext := strings.TrimPrefix(filepath.Ext(file.Filename), ".")
	if ext == "" {
		ext = "png"
	}
	name := fmt.Sprintf("avatar_%d.%s", user.ID, ext)
	dst := filepath.Join(avatarDir, name)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		s.serverError(c, err)
		return
	}
	if err := s.store.UpdateAvatar(user.ID, filepath.Join("avatars", name)); err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"avatar_path": filepath.Join("avatars", name)})
}

func (s *Server) serverError(c *gin.Context, err error) {
	s.log.Error("internal error", zap.String("path", c.Request.URL.Path), zap.Error(err))
	detail(c, http.StatusInternalServerError, "Internal server error")
}

func isNotFound(err error) bool {
	return err == store.ErrNotFound
}
