package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/expense-tracker-server/internal/models"
)

func (h *Handler) ListWallets(c *gin.Context) {
	h.listWallets(c, c.Query("enabled") == "true")
}

func (h *Handler) ListEnabledWallets(c *gin.Context) {
	h.listWallets(c, true)
}

func (h *Handler) listWallets(c *gin.Context, enabledOnly bool) {
	wallets, err := h.service.ListWallets(c.Request.Context(), currentUserID(c), enabledOnly)
	if err != nil {
		h.respondError(c, err)
		return
	}
	success(c, http.StatusOK, "", wallets)
}

func (h *Handler) CreateWallet(c *gin.Context) {
	var req models.CreateWalletRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}

	wallet, err := h.service.CreateWallet(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	success(c, http.StatusCreated, "Wallet created successfully", wallet)
}

func (h *Handler) GetWallet(c *gin.Context) {
	wallet, err := h.service.GetWallet(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	success(c, http.StatusOK, "", wallet)
}

// UpdateWallet renames or toggles a wallet. A new balance is booked as an
// update_balance transaction.
func (h *Handler) UpdateWallet(c *gin.Context) {
	var req models.UpdateWalletRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}

	wallet, err := h.service.UpdateWallet(c.Request.Context(), currentUserID(c), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	success(c, http.StatusOK, "Wallet updated successfully", wallet)
}

func (h *Handler) DeleteWallet(c *gin.Context) {
	if err := h.service.DeleteWallet(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	success(c, http.StatusOK, "Wallet deleted successfully", nil)
}
