package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mghazyfawazh/schoolportal/internal/aggregate"
	"github.com/mghazyfawazh/schoolportal/internal/records"
)

func (h *Handler) UpsertSyllabus(c *gin.Context) {
	var in records.SyllabusInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	item, err := h.Syllabus.Upsert(c.Request.Context(), actorOf(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) ListSyllabus(c *gin.Context) {
	var f records.SyllabusFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, err)
		return
	}
	items, err := h.Syllabus.List(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) SyllabusProgress(c *gin.Context) {
	var f records.SyllabusFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, err)
		return
	}
	p, err := h.Syllabus.Progress(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	for i := range p.Subjects {
		p.Subjects[i].Mean = p.Subjects[i].Rounded()
	}
	p.Overall = aggregate.Round2(p.Overall)
	c.JSON(http.StatusOK, p)
}

func (h *Handler) DeleteSyllabus(c *gin.Context) {
	if err := h.Syllabus.Delete(c.Request.Context(), actorOf(c), c.Param("key")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}
