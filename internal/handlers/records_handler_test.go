package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mghazyfawazh/schoolportal/internal/auth"
	"github.com/mghazyfawazh/schoolportal/internal/export"
	"github.com/mghazyfawazh/schoolportal/internal/models"
	"github.com/mghazyfawazh/schoolportal/internal/records"
)

func result(student, subject string, marks, outOf float64, date string) map[string]interface{} {
	return map[string]interface{}{
		"studentName": student,
		"class":       "Class 10",
		"batch":       "A",
		"subject":     subject,
		"marks":       marks,
		"outOf":       outOf,
		"testDate":    date,
	}
}

func TestIssueToken(t *testing.T) {
	f := setupTest(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/token", bytes.NewBufferString(`{"role":"teacher","displayName":"Mr. Sharma"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	f.router.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	req = httptest.NewRequest(http.MethodPost, "/v1/auth/token", bytes.NewBufferString(`{"role":"teacher","displayName":"Mr. Sharma"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", testAPIKey)
	resp = httptest.NewRecorder()
	f.router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var tok auth.Token
	decode(t, resp, &tok)
	actor, err := f.tokens.Parse(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.Actor{Role: models.RoleTeacher, DisplayName: "Mr. Sharma"}, actor)

	req = httptest.NewRequest(http.MethodPost, "/v1/auth/token", bytes.NewBufferString(`{"role":"janitor","displayName":"X"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", testAPIKey)
	resp = httptest.NewRecorder()
	f.router.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestResults(t *testing.T) {
	f := setupTest(t)
	teacher := f.token(t, models.RoleTeacher, "Mr. Sharma")

	for _, body := range []map[string]interface{}{
		result("Asha", "Physics", 45, 50, "2024-01-10"),
		result("Asha", "Maths", 30, 50, "2024-02-10"),
		result("Ravi", "Physics", 20, 50, "2024-01-10"),
	} {
		resp := f.do(t, http.MethodPost, "/v1/results", teacher, body)
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	}

	resp := f.do(t, http.MethodGet, "/v1/results?studentName=Asha", teacher, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var rows []models.ResultRecord
	decode(t, resp, &rows)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-02-10", rows[0].TestDate)

	resp = f.do(t, http.MethodGet, "/v1/results/leaderboard", teacher, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var board []struct {
		Key        string  `json:"key"`
		Position   int     `json:"position"`
		Percentage float64 `json:"percentage"`
	}
	decode(t, resp, &board)
	require.Len(t, board, 2)
	assert.Equal(t, "Asha", board[0].Key)
	assert.Equal(t, 1, board[0].Position)
	assert.Equal(t, 75.0, board[0].Percentage)
	assert.Equal(t, 40.0, board[1].Percentage)

	resp = f.do(t, http.MethodGet, "/v1/results/averages", teacher, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var averages []struct {
		Group string  `json:"group"`
		Mean  float64 `json:"mean"`
	}
	decode(t, resp, &averages)
	require.Len(t, averages, 2)
	for _, a := range averages {
		if a.Group == "Physics" {
			assert.Equal(t, 65.0, a.Mean)
		}
	}

	resp = f.do(t, http.MethodGet, "/v1/results/trend?studentName=Asha", teacher, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var trend map[string]interface{}
	decode(t, resp, &trend)
	assert.Equal(t, 90.0, trend["before"])
	assert.Equal(t, 60.0, trend["after"])
	assert.Equal(t, false, trend["improving"])

	resp = f.do(t, http.MethodGet, "/v1/results/trend", teacher, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAddResultValidation(t *testing.T) {
	f := setupTest(t)
	teacher := f.token(t, models.RoleTeacher, "Mr. Sharma")

	resp := f.do(t, http.MethodPost, "/v1/results", teacher, result("Asha", "Physics", -1, 50, "2024-01-10"))
	require.Equal(t, http.StatusBadRequest, resp.Code)
	var out map[string]interface{}
	decode(t, resp, &out)
	assert.Equal(t, "marks", out["field"])

	student := f.token(t, models.RoleStudent, "Asha")
	resp = f.do(t, http.MethodPost, "/v1/results", student, result("Asha", "Physics", 50, 50, "2024-01-10"))
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestExportResults(t *testing.T) {
	f := setupTest(t)
	teacher := f.token(t, models.RoleTeacher, "Mr. Sharma")
	f.do(t, http.MethodPost, "/v1/results", teacher, result("Asha", "Physics", 45, 50, "2024-01-10"))

	resp := f.do(t, http.MethodGet, "/v1/results/export", teacher, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, export.ContentTypeXLSX, resp.Header().Get("Content-Type"))

	resp = f.do(t, http.MethodGet, "/v1/results/export?format=pdf", teacher, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, export.ContentTypePDF, resp.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(resp.Body.Bytes(), []byte("%PDF")))

	resp = f.do(t, http.MethodGet, "/v1/results/export?format=csv", teacher, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestComplaints(t *testing.T) {
	f := setupTest(t)
	teacher := f.token(t, models.RoleTeacher, "Mr. Sharma")
	admin := f.token(t, models.RoleAdmin, "Principal")

	body := map[string]interface{}{
		"studentName": "Asha",
		"class":       "Class 10",
		"batch":       "A",
		"text":        "Late to class",
		"severity":    "low",
	}
	resp := f.do(t, http.MethodPost, "/v1/complaints", teacher, body)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var low records.FiledComplaint
	decode(t, resp, &low)
	assert.Equal(t, models.SeverityLow, low.Severity)

	body["text"], body["severity"] = "Fight in corridor", "Critical"
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/v1/complaints", teacher, body).Code)

	body["severity"] = "Apocalyptic"
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/v1/complaints", teacher, body).Code)

	q := url.Values{"studentName": {"Asha"}, "class": {"Class 10"}, "batch": {"A"}}
	student := f.token(t, models.RoleStudent, "Asha")
	resp = f.do(t, http.MethodGet, "/v1/complaints/student?"+q.Encode(), student, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var mine []records.FiledComplaint
	decode(t, resp, &mine)
	require.Len(t, mine, 2)
	assert.Equal(t, models.SeverityCritical, mine[0].Severity)

	other := f.token(t, models.RoleStudent, "Ravi")
	resp = f.do(t, http.MethodGet, "/v1/complaints/student?"+q.Encode(), other, nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = f.do(t, http.MethodGet, "/v1/complaints", student, nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = f.do(t, http.MethodDelete, "/v1/complaints/"+low.Bucket+"/"+low.ID, teacher, nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)
	resp = f.do(t, http.MethodDelete, "/v1/complaints/"+low.Bucket+"/"+low.ID, admin, nil)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = f.do(t, http.MethodGet, "/v1/complaints", teacher, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var all []records.FiledComplaint
	decode(t, resp, &all)
	require.Len(t, all, 1)
	assert.Equal(t, "Fight in corridor", all[0].Text)
}

func TestSyllabus(t *testing.T) {
	f := setupTest(t)
	teacher := f.token(t, models.RoleTeacher, "Mr. Sharma")

	topic := func(subject, name string, done int) map[string]interface{} {
		return map[string]interface{}{
			"class":            "Class 10",
			"batch":            "A",
			"subject":          subject,
			"topic":            name,
			"completionStatus": done,
		}
	}
	for _, body := range []map[string]interface{}{
		topic("Physics", "Optics", 100),
		topic("Physics", "Waves", 50),
		topic("Maths", "Algebra", 0),
	} {
		resp := f.do(t, http.MethodPut, "/v1/syllabus", teacher, body)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	}
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPut, "/v1/syllabus", teacher, topic("Maths", "Geometry", 101)).Code)

	resp := f.do(t, http.MethodGet, "/v1/syllabus?subject=Physics", teacher, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var items []models.SyllabusItem
	decode(t, resp, &items)
	require.Len(t, items, 2)
	assert.Equal(t, "Optics", items[0].Topic)

	resp = f.do(t, http.MethodGet, "/v1/syllabus/progress", teacher, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var progress struct {
		Overall float64 `json:"overall"`
		Topics  int     `json:"topics"`
	}
	decode(t, resp, &progress)
	assert.Equal(t, 3, progress.Topics)
	assert.Equal(t, 50.0, progress.Overall)

	resp = f.do(t, http.MethodDelete, "/v1/syllabus/"+items[0].Key, teacher, nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	resp = f.do(t, http.MethodGet, "/v1/syllabus?subject=Physics", teacher, nil)
	decode(t, resp, &items)
	assert.Len(t, items, 1)
}

func TestTraffic(t *testing.T) {
	f := setupTest(t)

	beacon := func(path, session string) *httptest.ResponseRecorder {
		raw, _ := json.Marshal(map[string]string{"pathname": path, "sessionId": session})
		req := httptest.NewRequest(http.MethodPost, "/v1/traffic/visits", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", testAPIKey)
		req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		resp := httptest.NewRecorder()
		f.router.ServeHTTP(resp, req)
		return resp
	}
	require.Equal(t, http.StatusCreated, beacon("/", "s1").Code)
	require.Equal(t, http.StatusCreated, beacon("/results", "s1").Code)
	require.Equal(t, http.StatusCreated, beacon("/", "s2").Code)
	assert.Equal(t, http.StatusBadRequest, beacon("no-slash", "s3").Code)

	admin := f.token(t, models.RoleAdmin, "Principal")
	resp := f.do(t, http.MethodGet, "/v1/traffic/summary?days=1", admin, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var summary records.TrafficSummary
	decode(t, resp, &summary)
	assert.Equal(t, 3, summary.TotalVisits)
	assert.Equal(t, 2, summary.UniqueSessions)
	require.NotEmpty(t, summary.TopPaths)
	assert.Equal(t, "/", summary.TopPaths[0].Key)
	assert.Equal(t, 2, summary.TopPaths[0].Count)

	teacher := f.token(t, models.RoleTeacher, "Mr. Sharma")
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, "/v1/traffic/summary", teacher, nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/v1/traffic/summary?days=0", admin, nil).Code)
}
