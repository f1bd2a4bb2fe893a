package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleRegister(c *gin.Context) {
	var req credentialsRequest
	if !bindJSON(c, &req) {
		return
	}
	sess, err := s.deps.Auth.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

func (s *Server) handleLogin(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "", "invalid JSON body")
		return
	}
	sess, err := s.deps.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// handleLogout drops the cached session and its pending proposals. The
// token itself stays valid until it expires.
func (s *Server) handleLogout(c *gin.Context) {
	s.deps.Ledger.EndSession(c.Request.Context(), ownerFrom(c))
	c.Status(http.StatusNoContent)
}
