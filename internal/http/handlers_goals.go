package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LiftThanakorn/income-expense-tracker/internal/core"
	"github.com/LiftThanakorn/income-expense-tracker/internal/reconcile"
)

// goalDeletion is the reply to a goal delete. Proposal is set when the
// goal still held money.
type goalDeletion struct {
	Proposal *reconcile.Proposal `json:"proposal,omitempty"`
}

func (s *Server) handleListGoals(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Goals.List())
}

// handleCreateGoal creates the goal and, when it opens with money already
// in it, proposes the matching expense.
func (s *Server) handleCreateGoal(c *gin.Context) {
	var req goalRequest
	if !bindJSON(c, &req) {
		return
	}
	sess, ok := s.session(c)
	if !ok {
		return
	}
	res, err := sess.Engine.CreateGoal(c.Request.Context(), req.goal(s.loc))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (s *Server) handleUpdateGoal(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req goalRequest
	if !bindJSON(c, &req) {
		return
	}
	sess, ok := s.session(c)
	if !ok {
		return
	}
	current, found := sess.Goals.Get(id)
	if !found {
		respondError(c, &core.NotFoundError{Entity: "goal", ID: id.String()})
		return
	}

	next := req.goal(s.loc)
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt
	res, err := sess.Engine.UpdateGoal(c.Request.Context(), next)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleDeleteGoal(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	sess, ok := s.session(c)
	if !ok {
		return
	}
	p, err := sess.Engine.DeleteGoal(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, goalDeletion{Proposal: p})
}

func (s *Server) handleQuickAdd(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req quickAddRequest
	if !bindJSON(c, &req) {
		return
	}
	sess, ok := s.session(c)
	if !ok {
		return
	}
	res, err := sess.Engine.QuickAdd(c.Request.Context(), id, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleListProposals(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Engine.Pending())
}

// handleConfirmProposal records the proposed transaction. A proposal that
// was already answered or has expired is 404.
func (s *Server) handleConfirmProposal(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	sess, ok := s.session(c)
	if !ok {
		return
	}
	tx, err := sess.Engine.Confirm(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

func (s *Server) handleDeclineProposal(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	sess, ok := s.session(c)
	if !ok {
		return
	}
	if err := sess.Engine.Decline(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
