package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/expense-tracker-server/internal/models"
)

func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.service.ListCategories(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	success(c, http.StatusOK, "", categories)
}

func (h *Handler) GetCategory(c *gin.Context) {
	category, err := h.service.GetCategory(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	success(c, http.StatusOK, "", category)
}

func (h *Handler) CreateCategory(c *gin.Context) {
	var req models.CategoryRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}

	category, err := h.service.CreateCategory(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	success(c, http.StatusCreated, "Category created successfully", category)
}

func (h *Handler) UpdateCategory(c *gin.Context) {
	var req models.UpdateCategoryRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}

	category, err := h.service.UpdateCategory(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	success(c, http.StatusOK, "Category updated successfully", category)
}

func (h *Handler) DeleteCategory(c *gin.Context) {
	if err := h.service.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	success(c, http.StatusOK, "Category deleted successfully", nil)
}
