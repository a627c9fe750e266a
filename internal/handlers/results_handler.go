package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mghazyfawazh/schoolportal/internal/aggregate"
	"github.com/mghazyfawazh/schoolportal/internal/export"
	"github.com/mghazyfawazh/schoolportal/internal/records"
)

// AddResult godoc
// @Summary      Record a test result
// @Tags         results
// @Accept       json
// @Produce      json
// @Param        body  body  records.ResultInput  true  "result"
// @Success      201  {object}  models.ResultRecord
// @Failure      400  {object}  map[string]interface{}
// @Security     BearerAuth
// @Router       /results [post]
func (h *Handler) AddResult(c *gin.Context) {
	var in records.ResultInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	rec, err := h.Results.Add(c.Request.Context(), actorOf(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *Handler) ListResults(c *gin.Context) {
	var f records.ResultFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, err)
		return
	}
	rows, err := h.Results.List(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// Leaderboard ranks students by aggregate percentage, rounded for display.
func (h *Handler) Leaderboard(c *gin.Context) {
	var f records.ResultFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, err)
		return
	}
	ranked, err := h.Results.Leaderboard(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	for i := range ranked {
		ranked[i].Percentage = aggregate.Round2(ranked[i].Percentage)
	}
	c.JSON(http.StatusOK, ranked)
}

func (h *Handler) SubjectAverages(c *gin.Context) {
	var f records.ResultFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, err)
		return
	}
	averages, err := h.Results.SubjectAverages(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	for i := range averages {
		averages[i].Mean = averages[i].Rounded()
	}
	c.JSON(http.StatusOK, averages)
}

func (h *Handler) Trend(c *gin.Context) {
	var f records.ResultFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, err)
		return
	}
	trend, err := h.Results.Trend(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"before":      aggregate.Round2(trend.Before),
		"after":       aggregate.Round2(trend.After),
		"beforeCount": trend.BeforeCount,
		"afterCount":  trend.AfterCount,
		"delta":       aggregate.Round2(trend.Delta()),
		"improving":   trend.Improving(),
	})
}

var resultColumns = []export.Column{
	{Title: "Student", Width: 22},
	{Title: "Class", Width: 12},
	{Title: "Batch", Width: 10},
	{Title: "Subject", Width: 18},
	{Title: "Marks", Width: 9},
	{Title: "Out Of", Width: 9},
	{Title: "%", Width: 9},
	{Title: "Test Date", Width: 12},
	{Title: "Remarks", Width: 30},
}

// ExportResults downloads the filtered results as xlsx (default) or pdf.
func (h *Handler) ExportResults(c *gin.Context) {
	var f records.ResultFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, err)
		return
	}
	format := c.DefaultQuery("format", "xlsx")
	if format != "xlsx" && format != "pdf" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be xlsx or pdf", "field": "format"})
		return
	}
	results, err := h.Results.List(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}

	rows := make([]export.Row, 0, len(results))
	for _, r := range results {
		rows = append(rows, export.Row{
			r.StudentName, r.Class, r.Batch, r.Subject, r.Marks, r.OutOf,
			aggregate.Round2(aggregate.Percentage(r.Marks, r.OutOf)), r.TestDate, r.Remarks,
		})
	}

	var data []byte
	contentType := export.ContentTypeXLSX
	if format == "pdf" {
		contentType = export.ContentTypePDF
		data, err = export.PDF("Results", resultColumns, rows)
	} else {
		data, err = export.Workbook(export.Sheet{Name: "Results", Columns: resultColumns, Rows: rows})
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="results.`+format+`"`)
	c.Data(http.StatusOK, contentType, data)
}
