package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mghazyfawazh/schoolportal/internal/auth"
	"github.com/mghazyfawazh/schoolportal/internal/middleware"
	"github.com/mghazyfawazh/schoolportal/internal/models"
	"github.com/mghazyfawazh/schoolportal/internal/records"
	"github.com/mghazyfawazh/schoolportal/internal/repo"
	"github.com/mghazyfawazh/schoolportal/internal/schedule"
)

type Handler struct {
	Schedules  *schedule.Service
	Results    *records.Results
	Complaints *records.Complaints
	Syllabus   *records.Syllabus
	Traffic    *records.Traffic
	Tokens     *auth.Tokens
	Log        *zap.Logger

	upgrader websocket.Upgrader
	now      func() time.Time
}

func NewHandler(h Handler) *Handler {
	if h.Log == nil {
		h.Log = zap.NewNop()
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
	h.now = time.Now
	return &h
}

// Register mounts every route under v1. apiKey guards token minting and the
// traffic beacon; everything else needs a bearer token.
func (h *Handler) Register(v1 *gin.RouterGroup, apiKey string) {
	keyed := v1.Group("", middleware.APIKeyAuth(apiKey))
	keyed.POST("/auth/token", h.IssueToken)
	keyed.POST("/traffic/visits", h.RecordVisit)

	authed := v1.Group("", middleware.Identity(h.Tokens))

	authed.GET("/schedules", h.ListSchedules)
	authed.GET("/schedules/view", h.ScheduleView)
	authed.GET("/schedules/day/:date", h.ScheduleForDate)
	authed.GET("/schedules/live", h.LiveSchedules)
	authed.GET("/schedules/export", h.ExportSchedules)
	authed.GET("/schedules/:key", h.GetSchedule)
	authed.PUT("/schedules", h.UpsertSchedule)
	authed.POST("/schedules/bulk", h.BulkUpsertSchedules)
	authed.POST("/schedules/import", h.ImportSchedules)
	authed.DELETE("/schedules/:key", h.DeleteSchedule)
	authed.DELETE("/schedules", h.ClearSchedules)

	authed.POST("/results", h.AddResult)
	authed.GET("/results", h.ListResults)
	authed.GET("/results/leaderboard", h.Leaderboard)
	authed.GET("/results/averages", h.SubjectAverages)
	authed.GET("/results/trend", h.Trend)
	authed.GET("/results/export", h.ExportResults)

	authed.POST("/complaints", h.FileComplaint)
	authed.GET("/complaints", h.ListComplaints)
	authed.GET("/complaints/student", h.StudentComplaints)
	authed.DELETE("/complaints/:bucket/:id", h.RemoveComplaint)

	authed.PUT("/syllabus", h.UpsertSyllabus)
	authed.GET("/syllabus", h.ListSyllabus)
	authed.GET("/syllabus/progress", h.SyllabusProgress)
	authed.DELETE("/syllabus/:key", h.DeleteSyllabus)

	authed.GET("/traffic/summary", h.TrafficSummary)
}

func actorOf(c *gin.Context) models.Actor {
	actor, _ := middleware.ActorFrom(c)
	return actor
}

// fail maps service errors onto HTTP statuses. extra fields are merged into
// the response body.
func (h *Handler) fail(c *gin.Context, err error, extra ...gin.H) {
	status := http.StatusInternalServerError
	body := gin.H{"error": err.Error()}

	var verr *models.ValidationError
	var serr *models.StoreError
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		body = gin.H{"error": verr.Reason, "field": verr.Field}
	case errors.Is(err, models.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, repo.ErrNotFound):
		status = http.StatusNotFound
		body = gin.H{"error": "not found"}
	case errors.Is(err, schedule.ErrVersionConflict), errors.Is(err, records.ErrContended):
		status = http.StatusConflict
	case errors.As(err, &serr):
		status = http.StatusServiceUnavailable
		body = gin.H{"error": "document store unavailable", "retryable": true}
	}

	var berr *schedule.BulkError
	if errors.As(err, &berr) {
		body["written"] = berr.Written
		body["day"] = berr.Day
	}

	for _, e := range extra {
		for k, v := range e {
			body[k] = v
		}
	}

	if status >= http.StatusInternalServerError {
		h.Log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
