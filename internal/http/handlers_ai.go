package http

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LiftThanakorn/income-expense-tracker/internal/core"
	"github.com/LiftThanakorn/income-expense-tracker/internal/services"
)

const slipFormField = "slip"

// handleImportSlip reads a multipart slip image and returns an unsaved
// transaction draft. The client saves it through POST /api/transactions.
func (s *Server) handleImportSlip(c *gin.Context) {
	if s.deps.Slips == nil {
		unavailable(c, "slip import")
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, services.MaxSlipBytes+1<<20)
	fh, err := c.FormFile(slipFormField)
	if err != nil {
		badRequest(c, slipFormField, "multipart file field \"slip\" is required")
		return
	}
	if fh.Size > services.MaxSlipBytes {
		respondError(c, core.NewValidationError("image", "too large (max 10 MB)"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, slipFormField, "cannot read upload")
		return
	}
	defer f.Close()

	image, err := io.ReadAll(io.LimitReader(f, services.MaxSlipBytes+1))
	if err != nil {
		badRequest(c, slipFormField, "cannot read upload")
		return
	}

	sess, ok := s.session(c)
	if !ok {
		return
	}
	draft, err := s.deps.Slips.Import(c.Request.Context(), sess, image, fh.Header.Get("Content-Type"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

// handleRequestReport answers 200 with the finished report when it ran
// inline and 202 with the pending report when the worker will run it.
func (s *Server) handleRequestReport(c *gin.Context) {
	if s.deps.Reports == nil {
		unavailable(c, "spending reports")
		return
	}
	// An empty body asks for the default window
	var req reportRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	rep, err := s.deps.Reports.Request(c.Request.Context(), ownerFrom(c), req.Window)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if rep.Status == core.ReportPending {
		status = http.StatusAccepted
		c.Header("Location", "/api/reports/"+rep.ID.String())
	}
	c.JSON(status, rep)
}

func (s *Server) handleGetReport(c *gin.Context) {
	if s.deps.Reports == nil {
		unavailable(c, "spending reports")
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	rep, err := s.deps.Reports.Get(c.Request.Context(), ownerFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}
