package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"letsquiz-service/internal/app"
	"letsquiz-service/internal/domain"
)

type ReferenceHandler struct {
	reference *app.ReferenceService
}

func NewReferenceHandler(reference *app.ReferenceService) *ReferenceHandler {
	return &ReferenceHandler{reference: reference}
}

func (h *ReferenceHandler) Questions(c *gin.Context) {
	query := app.QuestionQuery{DifficultyLabel: c.Query("difficulty")}

	if raw := c.Query("category"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondError(c, domain.ErrInvalidCategory)
			return
		}
		query.CategoryID = &id
	}
	if raw := c.Query("count"); raw != "" {
		count, err := strconv.Atoi(raw)
		if err != nil || count <= 0 {
			respondError(c, domain.ErrInvalidCount)
			return
		}
		query.Count = count
	}

	questions, err := h.reference.Questions(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, questions)
}

func (h *ReferenceHandler) Categories(c *gin.Context) {
	categories, err := h.reference.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (h *ReferenceHandler) Difficulties(c *gin.Context) {
	difficulties, err := h.reference.Difficulties(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, difficulties)
}
