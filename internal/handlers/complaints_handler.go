package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mghazyfawazh/schoolportal/internal/records"
)

// FileComplaint godoc
// @Summary      File a complaint about a student
// @Tags         complaints
// @Accept       json
// @Produce      json
// @Param        body  body  records.ComplaintInput  true  "complaint"
// @Success      201  {object}  records.FiledComplaint
// @Failure      409  {object}  map[string]interface{}
// @Security     BearerAuth
// @Router       /complaints [post]
func (h *Handler) FileComplaint(c *gin.Context) {
	var in records.ComplaintInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	filed, err := h.Complaints.File(c.Request.Context(), actorOf(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, filed)
}

func (h *Handler) ListComplaints(c *gin.Context) {
	var f records.ComplaintFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, err)
		return
	}
	rows, err := h.Complaints.List(c.Request.Context(), actorOf(c), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// StudentComplaints returns the complaints about one student. Students may
// only ask about themselves.
func (h *Handler) StudentComplaints(c *gin.Context) {
	var q struct {
		StudentName string `form:"studentName" binding:"required"`
		Class       string `form:"class" binding:"required"`
		Batch       string `form:"batch" binding:"required"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	rows, err := h.Complaints.ForStudent(c.Request.Context(), actorOf(c), q.StudentName, q.Class, q.Batch)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) RemoveComplaint(c *gin.Context) {
	if err := h.Complaints.Remove(c.Request.Context(), actorOf(c), c.Param("bucket"), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}
