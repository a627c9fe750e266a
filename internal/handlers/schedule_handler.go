package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mghazyfawazh/schoolportal/internal/export"
	"github.com/mghazyfawazh/schoolportal/internal/models"
	"github.com/mghazyfawazh/schoolportal/internal/schedule"
)

type scheduleRequest struct {
	Class       string `json:"class"`
	Batch       string `json:"batch"`
	Day         string `json:"day"`
	Date        string `json:"date"`
	Subject     string `json:"subject"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	TeacherName string `json:"teacherName"`
	RoomNumber  string `json:"roomNumber"`
	Notes       string `json:"notes"`
}

func (r scheduleRequest) entry() models.ScheduleEntry {
	return models.ScheduleEntry{
		Class:       r.Class,
		Batch:       r.Batch,
		Day:         r.Day,
		Date:        r.Date,
		Subject:     r.Subject,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		TeacherName: r.TeacherName,
		RoomNumber:  r.RoomNumber,
		Notes:       r.Notes,
	}
}

// ListSchedules godoc
// @Summary      List schedule entries
// @Tags         schedules
// @Produce      json
// @Param        class  query  string  false  "class"
// @Param        day    query  string  false  "weekday"
// @Param        batch  query  string  false  "batch"
// @Param        date   query  string  false  "YYYY-MM-DD"
// @Success      200  {array}  models.ScheduleEntry
// @Security     BearerAuth
// @Router       /schedules [get]
func (h *Handler) ListSchedules(c *gin.Context) {
	var f schedule.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, err)
		return
	}
	rows, err := h.Schedules.List(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// ScheduleView returns the sorted entries together with their day grouping.
func (h *Handler) ScheduleView(c *gin.Context) {
	var f schedule.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, err)
		return
	}
	rows, err := h.Schedules.List(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, schedule.BuildView(rows))
}

func (h *Handler) ScheduleForDate(c *gin.Context) {
	var f schedule.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, err)
		return
	}
	rows, err := h.Schedules.ForDate(c.Request.Context(), f, c.Param("date"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) GetSchedule(c *gin.Context) {
	row, err := h.Schedules.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

// UpsertSchedule godoc
// @Summary      Create or replace the entry for a class slot
// @Tags         schedules
// @Accept       json
// @Produce      json
// @Param        body  body  scheduleRequest  true  "entry"
// @Param        expectedVersion  query  int  false  "write only if the stored version matches (0 = must not exist)"
// @Success      200  {object}  models.ScheduleEntry
// @Failure      400  {object}  map[string]interface{}
// @Failure      409  {object}  map[string]interface{}
// @Security     BearerAuth
// @Router       /schedules [put]
func (h *Handler) UpsertSchedule(c *gin.Context) {
	var in scheduleRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	var opts schedule.UpsertOptions
	if v := c.Query("expectedVersion"); v != "" {
		var expected int64
		if _, err := fmt.Sscan(v, &expected); err != nil || expected < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "expectedVersion must be a non-negative integer", "field": "expectedVersion"})
			return
		}
		opts.ExpectedVersion = &expected
	}
	row, err := h.Schedules.Upsert(c.Request.Context(), actorOf(c), in.entry(), opts)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (h *Handler) BulkUpsertSchedules(c *gin.Context) {
	var in struct {
		scheduleRequest
		Days []string `json:"days" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	written, err := h.Schedules.BulkUpsert(c.Request.Context(), actorOf(c), in.entry(), in.Days)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"written": written})
}

func (h *Handler) DeleteSchedule(c *gin.Context) {
	if err := h.Schedules.Delete(c.Request.Context(), actorOf(c), c.Param("key")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// ClearSchedules deletes every entry matching the query filter. An empty
// filter clears the whole timetable.
func (h *Handler) ClearSchedules(c *gin.Context) {
	var f schedule.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, err)
		return
	}
	removed, err := h.Schedules.Clear(c.Request.Context(), actorOf(c), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

const (
	liveWriteWait  = 10 * time.Second
	livePingPeriod = 30 * time.Second
)

// LiveSchedules streams the schedule view over a websocket. Every change to
// the matching entries pushes a fresh view; the stream ends with a close
// frame when the subscription fails.
func (h *Handler) LiveSchedules(c *gin.Context) {
	var f schedule.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := h.Schedules.Subscribe(ctx, f)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// The client only sends close frames; reading surfaces them.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(livePingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case view := <-sub.Updates():
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteJSON(view); err != nil {
				return
			}
		case <-sub.Done():
			msg := "subscription closed"
			if err := sub.Err(); err != nil {
				h.Log.Warn("live schedule feed ended", zap.Error(err))
				msg = "document store unavailable"
			}
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, msg), time.Now().Add(liveWriteWait))
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteWait)); err != nil {
				return
			}
		}
	}
}

var scheduleColumns = []export.Column{
	{Title: "Class", Width: 14},
	{Title: "Batch", Width: 10},
	{Title: "Day", Width: 12},
	{Title: "Date", Width: 12},
	{Title: "Subject", Width: 20},
	{Title: "Start", Width: 8},
	{Title: "End", Width: 8},
	{Title: "Teacher", Width: 20},
	{Title: "Room", Width: 10},
	{Title: "Notes", Width: 30},
}

// ExportSchedules downloads the filtered timetable as xlsx, with a second
// sheet of periods per teacher and weekday.
func (h *Handler) ExportSchedules(c *gin.Context) {
	var f schedule.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, err)
		return
	}
	entries, err := h.Schedules.List(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}

	rows := make([]export.Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, export.Row{e.Class, e.Batch, e.Day, e.Date, e.Subject, e.StartTime, e.EndTime, e.TeacherName, e.RoomNumber, e.Notes})
	}

	loadColumns := []export.Column{{Title: "No", Width: 6}, {Title: "Teacher", Width: 24}, {Title: "Classes", Width: 30}}
	for _, d := range models.Weekdays {
		loadColumns = append(loadColumns, export.Column{Title: d, Width: 11})
	}
	loadColumns = append(loadColumns, export.Column{Title: "Total", Width: 8})
	loads := schedule.TeacherLoads(entries)
	loadRows := make([]export.Row, 0, len(loads))
	for i, l := range loads {
		row := export.Row{i + 1, l.Teacher, strings.Join(l.Classes, ", ")}
		for _, d := range models.Weekdays {
			row = append(row, l.PerDay[d])
		}
		loadRows = append(loadRows, append(row, l.Total))
	}

	data, err := export.Workbook(
		export.Sheet{Name: "Schedule", Columns: scheduleColumns, Rows: rows},
		export.Sheet{Name: "Teacher Load", Columns: loadColumns, Rows: loadRows},
	)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="schedule.xlsx"`)
	c.Data(http.StatusOK, export.ContentTypeXLSX, data)
}

// ImportSchedules upserts every row of an uploaded workbook sheet laid out
// like the export (default sheet "Schedule"). Rows failing validation are
// reported and skipped; any other error stops the import.
func (h *Handler) ImportSchedules(c *gin.Context) {
	actor := actorOf(c)
	if !actor.CanEdit() {
		h.fail(c, models.ErrForbidden)
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	f, err := file.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer f.Close()

	sheet := c.DefaultQuery("sheet", "Schedule")
	rows, err := export.ReadSheet(f, sheet)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid excel file or sheet %s not found", sheet)})
		return
	}

	imported := 0
	failures := []string{}
	for i, row := range rows {
		if i == 0 {
			continue
		}
		cell := func(n int) string {
			if n < len(row) {
				return strings.TrimSpace(row[n])
			}
			return ""
		}
		in := models.ScheduleEntry{
			Class:       cell(0),
			Batch:       cell(1),
			Day:         cell(2),
			Date:        cell(3),
			Subject:     cell(4),
			StartTime:   cell(5),
			EndTime:     cell(6),
			TeacherName: cell(7),
			RoomNumber:  cell(8),
			Notes:       cell(9),
		}
		if _, err := h.Schedules.Upsert(c.Request.Context(), actor, in, schedule.UpsertOptions{}); err != nil {
			var verr *models.ValidationError
			if !errors.As(err, &verr) {
				h.Log.Warn("schedule import stopped", zap.Int("row", i+1), zap.Int("imported", imported), zap.Error(err))
				h.fail(c, err, gin.H{"imported": imported, "row": i + 1})
				return
			}
			failures = append(failures, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		imported++
	}

	h.Log.Info("schedule import finished", zap.Int("imported", imported), zap.Int("failed", len(failures)), zap.String("by", actor.DisplayName))
	c.JSON(http.StatusOK, gin.H{"imported": imported, "failures": failures})
}
