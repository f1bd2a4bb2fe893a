package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LiftThanakorn/income-expense-tracker/internal/core"
	"github.com/LiftThanakorn/income-expense-tracker/internal/report"
)

// handleListTransactions lists newest first. Without a window query the
// whole history is returned.
func (s *Server) handleListTransactions(c *gin.Context) {
	filter, err := report.ParseTypeFilter(c.Query("type"))
	if err != nil {
		respondError(c, err)
		return
	}
	window := report.AllTime
	if q := c.Query("window"); q != "" {
		if window, err = report.ParseWindow(q); err != nil {
			respondError(c, err)
			return
		}
	}

	sess, ok := s.session(c)
	if !ok {
		return
	}
	txs := report.FilterByWindow(sess.Transactions.List(), report.WindowRange(window, time.Now().In(s.loc)))
	c.JSON(http.StatusOK, report.FilterByType(txs, filter))
}

func (s *Server) handleCreateTransaction(c *gin.Context) {
	var req transactionRequest
	if !bindJSON(c, &req) {
		return
	}
	sess, ok := s.session(c)
	if !ok {
		return
	}
	tx, err := sess.Transactions.Create(c.Request.Context(), req.transaction())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

func (s *Server) handleUpdateTransaction(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req transactionRequest
	if !bindJSON(c, &req) {
		return
	}
	sess, ok := s.session(c)
	if !ok {
		return
	}
	current, found := sess.Transactions.Get(id)
	if !found {
		respondError(c, &core.NotFoundError{Entity: "transaction", ID: id.String()})
		return
	}

	next := req.transaction()
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt
	tx, err := sess.Transactions.Update(c.Request.Context(), next)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

func (s *Server) handleDeleteTransaction(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	sess, ok := s.session(c)
	if !ok {
		return
	}
	if err := sess.Transactions.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListCategories(c *gin.Context) {
	filter, err := report.ParseTypeFilter(c.Query("type"))
	if err != nil {
		respondError(c, err)
		return
	}
	sess, ok := s.session(c)
	if !ok {
		return
	}
	out := make([]core.Category, 0, sess.Categories.Len())
	for _, cat := range sess.Categories.List() {
		if filter == report.AllTypes || string(cat.Type) == string(filter) {
			out = append(out, cat)
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleCreateCategory(c *gin.Context) {
	var req categoryRequest
	if !bindJSON(c, &req) {
		return
	}
	sess, ok := s.session(c)
	if !ok {
		return
	}
	cat, err := sess.Categories.Create(c.Request.Context(), core.Category{
		Name: sanitizeInput(req.Name),
		Type: core.TransactionType(req.Type),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

// handleUpdateCategory renames or retypes a category. Budgets match by
// name, so a rename detaches the category from its budget.
func (s *Server) handleUpdateCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req categoryRequest
	if !bindJSON(c, &req) {
		return
	}
	sess, ok := s.session(c)
	if !ok {
		return
	}
	current, found := sess.Categories.Get(id)
	if !found {
		respondError(c, &core.NotFoundError{Entity: "category", ID: id.String()})
		return
	}

	current.Name = sanitizeInput(req.Name)
	current.Type = core.TransactionType(req.Type)
	cat, err := sess.Categories.Update(c.Request.Context(), current)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (s *Server) handleDeleteCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	sess, ok := s.session(c)
	if !ok {
		return
	}
	if err := sess.Categories.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListBudgets(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Budgets.List())
}

// handleUpsertBudget sets the ceiling for a category name, creating the
// budget on first use.
func (s *Server) handleUpsertBudget(c *gin.Context) {
	var req budgetRequest
	if !bindJSON(c, &req) {
		return
	}
	sess, ok := s.session(c)
	if !ok {
		return
	}
	b, err := sess.Budgets.Upsert(c.Request.Context(), sanitizeInput(req.Category), req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (s *Server) handleDeleteBudget(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	sess, ok := s.session(c)
	if !ok {
		return
	}
	if err := sess.Budgets.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
