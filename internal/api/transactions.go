package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/expense-tracker-server/internal/export"
	"github.com/rongwang/expense-tracker-server/internal/models"
)

func (h *Handler) CreateTransaction(c *gin.Context) {
	var req models.CreateTransactionRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}

	tx, err := h.service.CreateTransaction(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	success(c, http.StatusCreated, "Transaction created successfully", tx)
}

func (h *Handler) GetTransaction(c *gin.Context) {
	tx, err := h.service.GetTransaction(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	success(c, http.StatusOK, "", tx)
}

func (h *Handler) UpdateTransaction(c *gin.Context) {
	var req models.UpdateTransactionRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}

	tx, err := h.service.UpdateTransaction(c.Request.Context(), currentUserID(c), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	success(c, http.StatusOK, "Transaction updated successfully", tx)
}

func (h *Handler) DeleteTransaction(c *gin.Context) {
	if err := h.service.DeleteTransaction(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	success(c, http.StatusOK, "Transaction deleted successfully", nil)
}

func (h *Handler) ListTransactions(c *gin.Context) {
	filter, err := transactionFilter(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	transactions, err := h.service.ListTransactions(c.Request.Context(), currentUserID(c), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	success(c, http.StatusOK, "", transactions)
}

func (h *Handler) TodayTotal(c *gin.Context) {
	total, err := h.service.TodayTotal(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	success(c, http.StatusOK, "", total)
}

// DateRange lists expense transactions between startDate and endDate, both
// inclusive calendar days
func (h *Handler) DateRange(c *gin.Context) {
	start, err := requiredDate(c, "startDate")
	if err != nil {
		h.respondError(c, err)
		return
	}
	end, err := requiredDate(c, "endDate")
	if err != nil {
		h.respondError(c, err)
		return
	}

	transactions, err := h.service.DateRange(c.Request.Context(), currentUserID(c), start, end)
	if err != nil {
		h.respondError(c, err)
		return
	}
	success(c, http.StatusOK, "", transactions)
}

// ExportTransactions streams the filtered listing as a CSV or XLSX attachment
func (h *Handler) ExportTransactions(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	filter, err := transactionFilter(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	transactions, err := h.service.ListTransactions(c.Request.Context(), currentUserID(c), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, transactions); err != nil {
		h.respondError(c, err)
		return
	}

	filename := fmt.Sprintf("transactions-%s.%s", time.Now().Format("20060102"), format)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// transactionFilter reads walletId, transactionType, dateFrom and dateTo.
// A date-only dateTo covers that whole day.
func transactionFilter(c *gin.Context) (models.TransactionFilter, error) {
	filter := models.TransactionFilter{
		WalletID: c.Query("walletId"),
		Type:     models.TransactionType(c.Query("transactionType")),
	}

	if v := c.Query("dateFrom"); v != "" {
		from, _, err := parseDateParam("dateFrom", v)
		if err != nil {
			return filter, err
		}
		filter.DateFrom = &from
	}
	if v := c.Query("dateTo"); v != "" {
		at, dayEnd, err := parseDateParam("dateTo", v)
		if err != nil {
			return filter, err
		}
		if dayEnd.IsZero() {
			// Exact instants are inclusive too
			at = at.Add(time.Nanosecond)
		} else {
			at = dayEnd
		}
		filter.DateTo = &at
	}
	return filter, nil
}

func requiredDate(c *gin.Context, name string) (time.Time, error) {
	v := c.Query(name)
	if v == "" {
		return time.Time{}, models.NewValidationError(name, name+" is required")
	}
	t, _, err := parseDateParam(name, v)
	return t, err
}

// parseDateParam accepts a local calendar day (2006-01-02) or an RFC 3339
// instant. For a calendar day it also returns the start of the next day.
func parseDateParam(name, v string) (time.Time, time.Time, error) {
	if day, err := time.ParseInLocation("2006-01-02", v, time.Local); err == nil {
		start, end := models.DayBounds(day)
		return start, end, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, time.Time{}, nil
	}
	return time.Time{}, time.Time{}, models.NewValidationError(name, name+" must be a date (YYYY-MM-DD) or an RFC 3339 timestamp")
}
