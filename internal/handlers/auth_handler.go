package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mghazyfawazh/schoolportal/internal/models"
)

// IssueToken godoc
// @Summary      Mint a bearer token for a portal user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  models.Actor  true  "role and display name"
// @Success      201  {object}  auth.Token
// @Failure      400  {object}  map[string]interface{}
// @Security     ApiKeyAuth
// @Router       /auth/token [post]
func (h *Handler) IssueToken(c *gin.Context) {
	var actor models.Actor
	if err := c.ShouldBindJSON(&actor); err != nil {
		badRequest(c, err)
		return
	}
	token, err := h.Tokens.Issue(actor)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, token)
}
