package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/expense-tracker-server/internal/models"
)

func (h *Handler) ListExpenses(c *gin.Context) {
	expenses, err := h.service.ListExpenses(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	success(c, http.StatusOK, "", expenses)
}

func (h *Handler) CreateExpense(c *gin.Context) {
	var req models.ExpenseRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}

	expense, err := h.service.CreateExpense(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	success(c, http.StatusCreated, "Expense created successfully", expense)
}

func (h *Handler) GetExpense(c *gin.Context) {
	expense, err := h.service.GetExpense(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	success(c, http.StatusOK, "", expense)
}

func (h *Handler) UpdateExpense(c *gin.Context) {
	var req models.UpdateExpenseRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}

	expense, err := h.service.UpdateExpense(c.Request.Context(), currentUserID(c), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	success(c, http.StatusOK, "Expense updated successfully", expense)
}

func (h *Handler) DeleteExpense(c *gin.Context) {
	if err := h.service.DeleteExpense(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	success(c, http.StatusOK, "Expense deleted successfully", nil)
}

func (h *Handler) TodayExpenses(c *gin.Context) {
	expenses, err := h.service.TodayExpenses(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	success(c, http.StatusOK, "", expenses)
}

func (h *Handler) MonthlyExpenses(c *gin.Context) {
	var req models.PeriodRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	expenses, err := h.service.MonthlyExpenses(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	success(c, http.StatusOK, "", expenses)
}

func (h *Handler) ExpenseSummary(c *gin.Context) {
	summary, err := h.service.ExpenseSummary(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	success(c, http.StatusOK, "", summary)
}
