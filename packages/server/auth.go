package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/tessera-qa/tessera/packages/models"
)

const tokenLifetime = 24 * time.Hour

const userKey = "tessera.user"

func hashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	return string(b), nil
}

func verifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// validPassword mirrors the registration policy: at least 8 characters
// including a letter.
func validPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	for _, r := range password {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}

func (s *Server) issueToken(username string) (string, error) {
	claims := jwt.MapClaims{
		"sub": username,
		"exp": jwt.NewNumericDate(time.Now().Add(tokenLifetime)),
		"iat": jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	return signed, errors.Wrap(err, "sign token")
}

func (s *Server) parseToken(raw string) (string, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return "", errors.Wrap(err, "parse token")
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("token missing subject")
	}
	return sub, nil
}

// requireAuth authenticates the bearer token and loads the caller.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" {
			detail(c, http.StatusUnauthorized, "Not authenticated")
			c.Abort()
			return
		}
		username, err := s.parseToken(raw)
		if err != nil {
			detail(c, http.StatusUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}
		user, err := s.store.UserByUsername(username)
		if err != nil {
			detail(c, http.StatusUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

func currentUser(c *gin.Context) *models.User {
	return c.MustGet(userKey).(*models.User)
}
