package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/expense-tracker-server/internal/models"
)

// GetBudget returns the budget of ?month=&year= (default: current month).
// A period without a budget is not an error.
func (h *Handler) GetBudget(c *gin.Context) {
	var req models.PeriodRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	budget, err := h.service.GetBudget(c.Request.Context(), currentUserID(c), req)
	if errors.Is(err, models.ErrNoBudget) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"message": models.ErrNoBudget.Error(),
			"data":    nil,
		})
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	success(c, http.StatusOK, "", budget)
}

func (h *Handler) SaveBudget(c *gin.Context) {
	var req models.BudgetRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}

	budget, err := h.service.SaveBudget(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	success(c, http.StatusOK, "Budget saved successfully", budget)
}

func (h *Handler) UpdateBudget(c *gin.Context) {
	var req models.UpdateBudgetRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}

	budget, err := h.service.UpdateBudget(c.Request.Context(), currentUserID(c), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	success(c, http.StatusOK, "Budget updated successfully", budget)
}

// RecomputeBudget recalculates total_spent of a period from its expenses.
// The period may come from the body or, when there is none, the query.
func (h *Handler) RecomputeBudget(c *gin.Context) {
	var req models.PeriodRequest
	bind := c.ShouldBind
	if c.Request.ContentLength == 0 {
		bind = c.ShouldBindQuery
	}
	if err := bind(&req); err != nil {
		respondBindError(c, err)
		return
	}

	budget, err := h.service.RecomputeBudget(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	success(c, http.StatusOK, "Budget spent amount updated", budget)
}
