package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LiftThanakorn/income-expense-tracker/internal/report"
)

// handleDashboard serves the derived view for ?window= and ?type=. Both
// default: thisMonth and all.
func (s *Server) handleDashboard(c *gin.Context) {
	window, err := report.ParseWindow(c.Query("window"))
	if err != nil {
		respondError(c, err)
		return
	}
	filter, err := report.ParseTypeFilter(c.Query("type"))
	if err != nil {
		respondError(c, err)
		return
	}
	sess, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Dashboard(window, filter))
}
