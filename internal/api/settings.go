package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/expense-tracker-server/internal/models"
)

func (h *Handler) GetSettings(c *gin.Context) {
	settings, err := h.service.GetSettings(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	success(c, http.StatusOK, "", settings)
}

// SaveSettings creates or replaces the caller's daily budget
func (h *Handler) SaveSettings(c *gin.Context) {
	var req models.SettingsRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}

	settings, err := h.service.SaveSettings(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	success(c, http.StatusOK, "Settings saved successfully", settings)
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	var req models.UpdateSettingsRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}

	settings, err := h.service.UpdateSettings(c.Request.Context(), currentUserID(c), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	success(c, http.StatusOK, "Settings updated successfully", settings)
}

func (h *Handler) RecalculateTotalExpenses(c *gin.Context) {
	settings, err := h.service.RecalculateTotalExpenses(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	success(c, http.StatusOK, "Total expenses recalculated", settings)
}
