package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mghazyfawazh/schoolportal/internal/auth"
	"github.com/mghazyfawazh/schoolportal/internal/export"
	"github.com/mghazyfawazh/schoolportal/internal/handlers"
	"github.com/mghazyfawazh/schoolportal/internal/models"
	"github.com/mghazyfawazh/schoolportal/internal/records"
	"github.com/mghazyfawazh/schoolportal/internal/repo"
	"github.com/mghazyfawazh/schoolportal/internal/schedule"
)

const testAPIKey = "test-key"

type fixture struct {
	router *gin.Engine
	store  repo.Store
	tokens *auth.Tokens
	h      *handlers.Handler
}

func setupTest(t *testing.T) *fixture {
	t.Helper()
	return setupTestWithStore(t, repo.NewMemory())
}

func setupTestWithStore(t *testing.T, store repo.Store) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens := auth.NewTokens("test-signing-key", "schoolportal", time.Hour)
	h := handlers.NewHandler(handlers.Handler{
		Schedules:  schedule.NewService(store, nil),
		Results:    records.NewResults(store, nil),
		Complaints: records.NewComplaints(store, nil),
		Syllabus:   records.NewSyllabus(store, nil),
		Traffic:    records.NewTraffic(store, nil),
		Tokens:     tokens,
	})

	r := gin.New()
	h.Register(r.Group("/v1"), testAPIKey)
	return &fixture{router: r, store: store, tokens: tokens, h: h}
}

func (f *fixture) token(t *testing.T, role models.Role, name string) string {
	t.Helper()
	tok, err := f.tokens.Issue(models.Actor{Role: role, DisplayName: name})
	require.NoError(t, err)
	return tok.AccessToken
}

func (f *fixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	f.router.ServeHTTP(resp, req)
	return resp
}

func decode(t *testing.T, resp *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), out), resp.Body.String())
}

func physics() map[string]interface{} {
	return map[string]interface{}{
		"class":       "Class 10",
		"batch":       "A",
		"day":         "Monday",
		"subject":     "Physics",
		"startTime":   "09:00",
		"endTime":     "10:00",
		"teacherName": "Mr. Sharma",
		"roomNumber":  "101",
	}
}

func TestUpsertSchedule(t *testing.T) {
	f := setupTest(t)
	admin := f.token(t, models.RoleAdmin, "Principal")

	resp := f.do(t, http.MethodPut, "/v1/schedules", admin, physics())
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var created models.ScheduleEntry
	decode(t, resp, &created)
	assert.NotEmpty(t, created.Key)
	assert.Equal(t, int64(1), created.Version)
	assert.Equal(t, "Principal", created.CreatedBy)

	resp = f.do(t, http.MethodGet, "/v1/schedules/"+created.Key, admin, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var got models.ScheduleEntry
	decode(t, resp, &got)
	assert.Equal(t, "Physics", got.Subject)
}

func TestUpsertScheduleRequiresToken(t *testing.T) {
	f := setupTest(t)
	resp := f.do(t, http.MethodPut, "/v1/schedules", "", physics())
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestUpsertScheduleStudentForbidden(t *testing.T) {
	f := setupTest(t)
	student := f.token(t, models.RoleStudent, "Asha")
	resp := f.do(t, http.MethodPut, "/v1/schedules", student, physics())
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestUpsertScheduleValidation(t *testing.T) {
	f := setupTest(t)
	teacher := f.token(t, models.RoleTeacher, "Mr. Sharma")

	body := physics()
	body["endTime"] = "08:00"
	resp := f.do(t, http.MethodPut, "/v1/schedules", teacher, body)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	var out map[string]interface{}
	decode(t, resp, &out)
	assert.Equal(t, "endTime", out["field"])
}

func TestUpsertScheduleVersionConflict(t *testing.T) {
	f := setupTest(t)
	admin := f.token(t, models.RoleAdmin, "Principal")

	resp := f.do(t, http.MethodPut, "/v1/schedules?expectedVersion=0", admin, physics())
	require.Equal(t, http.StatusOK, resp.Code)

	resp = f.do(t, http.MethodPut, "/v1/schedules?expectedVersion=0", admin, physics())
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = f.do(t, http.MethodPut, "/v1/schedules?expectedVersion=1", admin, physics())
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = f.do(t, http.MethodPut, "/v1/schedules?expectedVersion=abc", admin, physics())
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestListAndViewSchedules(t *testing.T) {
	f := setupTest(t)
	admin := f.token(t, models.RoleAdmin, "Principal")

	tuesday := physics()
	tuesday["day"] = "Tuesday"
	other := physics()
	other["class"] = "Class 9"
	for _, body := range []map[string]interface{}{tuesday, physics(), other} {
		require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, "/v1/schedules", admin, body).Code)
	}

	resp := f.do(t, http.MethodGet, "/v1/schedules?class=Class%2010", admin, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var rows []models.ScheduleEntry
	decode(t, resp, &rows)
	require.Len(t, rows, 2)
	assert.Equal(t, "Monday", rows[0].Day)
	assert.Equal(t, "Tuesday", rows[1].Day)

	resp = f.do(t, http.MethodGet, "/v1/schedules/view", admin, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var view schedule.View
	decode(t, resp, &view)
	assert.Len(t, view.Entries, 3)
	monday, ok := view.Group("Monday")
	require.True(t, ok)
	assert.Len(t, monday.Entries, 2)
}

func TestScheduleForDate(t *testing.T) {
	f := setupTest(t)
	admin := f.token(t, models.RoleAdmin, "Principal")
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, "/v1/schedules", admin, physics()).Code)

	sub := physics()
	sub["day"], sub["date"], sub["subject"] = "", "2024-03-04", "Revision"
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, "/v1/schedules", admin, sub).Code)

	// 2024-03-04 is a Monday.
	resp := f.do(t, http.MethodGet, "/v1/schedules/day/2024-03-04", admin, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var rows []models.ScheduleEntry
	decode(t, resp, &rows)
	require.Len(t, rows, 1)
	assert.Equal(t, "Revision", rows[0].Subject)

	resp = f.do(t, http.MethodGet, "/v1/schedules/day/04-03-2024", admin, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestBulkUpsertSchedules(t *testing.T) {
	f := setupTest(t)
	teacher := f.token(t, models.RoleTeacher, "Mr. Sharma")

	body := physics()
	body["days"] = []string{"Wednesday", "Monday"}
	resp := f.do(t, http.MethodPost, "/v1/schedules/bulk", teacher, body)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var out map[string]int
	decode(t, resp, &out)
	assert.Equal(t, 2, out["written"])

	body["days"] = []string{"Funday"}
	resp = f.do(t, http.MethodPost, "/v1/schedules/bulk", teacher, body)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestDeleteAndClearSchedules(t *testing.T) {
	f := setupTest(t)
	admin := f.token(t, models.RoleAdmin, "Principal")
	teacher := f.token(t, models.RoleTeacher, "Mr. Sharma")

	resp := f.do(t, http.MethodPut, "/v1/schedules", admin, physics())
	var created models.ScheduleEntry
	decode(t, resp, &created)

	resp = f.do(t, http.MethodDelete, "/v1/schedules/"+created.Key, teacher, nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	resp = f.do(t, http.MethodGet, "/v1/schedules/"+created.Key, teacher, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	tuesday := physics()
	tuesday["day"] = "Tuesday"
	f.do(t, http.MethodPut, "/v1/schedules", admin, physics())
	f.do(t, http.MethodPut, "/v1/schedules", admin, tuesday)

	resp = f.do(t, http.MethodDelete, "/v1/schedules", teacher, nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = f.do(t, http.MethodDelete, "/v1/schedules?day=Tuesday", admin, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var out map[string]int
	decode(t, resp, &out)
	assert.Equal(t, 1, out["removed"])
}

func TestExportSchedules(t *testing.T) {
	f := setupTest(t)
	admin := f.token(t, models.RoleAdmin, "Principal")
	f.do(t, http.MethodPut, "/v1/schedules", admin, physics())

	resp := f.do(t, http.MethodGet, "/v1/schedules/export", admin, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, export.ContentTypeXLSX, resp.Header().Get("Content-Type"))

	book, err := excelize.OpenReader(bytes.NewReader(resp.Body.Bytes()))
	require.NoError(t, err)
	defer book.Close()
	assert.Equal(t, []string{"Schedule", "Teacher Load"}, book.GetSheetList())

	rows, err := book.GetRows("Teacher Load")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Mr. Sharma", rows[1][1])
	assert.Equal(t, "1", rows[1][3])
}

// upload posts an xlsx with one sheet "Schedule" holding rows to the import endpoint.
func (f *fixture) upload(t *testing.T, token string, rows []export.Row) *httptest.ResponseRecorder {
	t.Helper()
	data, err := export.Workbook(export.Sheet{
		Name:    "Schedule",
		Columns: []export.Column{{Title: "Class"}, {Title: "Batch"}, {Title: "Day"}, {Title: "Date"}, {Title: "Subject"}, {Title: "Start"}, {Title: "End"}, {Title: "Teacher"}, {Title: "Room"}, {Title: "Notes"}},
		Rows:    rows,
	})
	require.NoError(t, err)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "schedule.xlsx")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/schedules/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	f.router.ServeHTTP(resp, req)
	return resp
}

func TestImportSchedules(t *testing.T) {
	f := setupTest(t)
	admin := f.token(t, models.RoleAdmin, "Principal")

	resp := f.upload(t, admin, []export.Row{
		{"Class 10", "A", "Monday", "", "Physics", "09:00", "10:00", "Mr. Sharma", "101", ""},
		{"Class 10", "A", "Sunday", "", "Chemistry", "09:00", "10:00", "Ms. Rao", "102", ""},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var out struct {
		Imported int      `json:"imported"`
		Failures []string `json:"failures"`
	}
	decode(t, resp, &out)
	assert.Equal(t, 1, out.Imported)
	require.Len(t, out.Failures, 1)
	assert.True(t, strings.HasPrefix(out.Failures[0], "row 3"))
}

func TestLiveSchedules(t *testing.T) {
	f := setupTest(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	token := f.token(t, models.RoleStudent, "Asha")
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/schedules/live?class=Class%2010&access_token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var view schedule.View
	require.NoError(t, conn.ReadJSON(&view))
	assert.Empty(t, view.Entries)

	_, err = f.h.Schedules.Upsert(context.Background(), models.Actor{Role: models.RoleAdmin, DisplayName: "Principal"}, models.ScheduleEntry{
		Class: "Class 10", Day: "Monday", Subject: "Physics", StartTime: "09:00", EndTime: "10:00", TeacherName: "Mr. Sharma",
	}, schedule.UpsertOptions{})
	require.NoError(t, err)

	for len(view.Entries) == 0 {
		require.NoError(t, conn.ReadJSON(&view))
	}
	require.Len(t, view.Entries, 1)
	monday, ok := view.Group("Monday")
	require.True(t, ok)
	assert.Len(t, monday.Entries, 1)
}

func TestLiveSchedulesRejectsMissingToken(t *testing.T) {
	f := setupTest(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/schedules/live"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// brokenPuts fails every Put after the first okPuts.
type brokenPuts struct {
	*repo.Memory
	okPuts int
	puts   int
}

func (b *brokenPuts) Put(ctx context.Context, collection, key string, fields repo.Fields) error {
	b.puts++
	if b.puts > b.okPuts {
		return errors.New("connection reset")
	}
	return b.Memory.Put(ctx, collection, key, fields)
}

func TestImportSchedulesStopsOnStoreError(t *testing.T) {
	store := &brokenPuts{Memory: repo.NewMemory(), okPuts: 1}
	f := setupTestWithStore(t, store)
	admin := f.token(t, models.RoleAdmin, "Principal")

	resp := f.upload(t, admin, []export.Row{
		{"Class 10", "A", "Monday", "", "Physics", "09:00", "10:00", "Mr. Sharma", "101", ""},
		{"Class 10", "A", "Sunday", "", "Chemistry", "09:00", "10:00", "Ms. Rao", "102", ""},
		{"Class 10", "A", "Tuesday", "", "Physics", "09:00", "10:00", "Mr. Sharma", "101", ""},
		{"Class 10", "A", "Wednesday", "", "Physics", "09:00", "10:00", "Mr. Sharma", "101", ""},
	})
	require.Equal(t, http.StatusServiceUnavailable, resp.Code, resp.Body.String())

	var out map[string]interface{}
	decode(t, resp, &out)
	assert.Equal(t, true, out["retryable"])
	assert.Equal(t, 1.0, out["imported"])
	assert.Equal(t, 4.0, out["row"])
	assert.Equal(t, 2, store.puts)
}
