package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mghazyfawazh/schoolportal/internal/records"
)

const (
	defaultTrafficDays = 7
	maxTrafficDays     = 365
)

// RecordVisit stores a page-view beacon.
func (h *Handler) RecordVisit(c *gin.Context) {
	var in records.VisitInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	visit, err := h.Traffic.Record(c.Request.Context(), in, c.Request.UserAgent())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": visit.ID})
}

// TrafficSummary covers the last `days` days, today included.
func (h *Handler) TrafficSummary(c *gin.Context) {
	days := defaultTrafficDays
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxTrafficDays {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be between 1 and 365", "field": "days"})
			return
		}
		days = n
	}
	today := h.now().UTC().Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -(days - 1))

	summary, err := h.Traffic.Summary(c.Request.Context(), actorOf(c), since)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
