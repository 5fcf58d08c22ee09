package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"letsquiz-service/internal/app"
)

type GuestHandler struct {
	guests *app.GuestService
}

func NewGuestHandler(guests *app.GuestService) *GuestHandler {
	return &GuestHandler{guests: guests}
}

func (h *GuestHandler) Create(c *gin.Context) {
	record, err := h.guests.Create(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (h *GuestHandler) Get(c *gin.Context) {
	record, err := h.guests.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// Convert is a declared extension point: guest records never gain an owner
// today, but the route is reserved so clients can probe for support.
func (h *GuestHandler) Convert(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, gin.H{
		"detail": "Guest session conversion is not supported.",
	})
}
