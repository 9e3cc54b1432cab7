package handler

import (
	"net/http"

	"talklink/backend/internal/hub"

	"github.com/gin-gonic/gin"
)

// Handler wires HTTP routes to the live-coordination core.
type Handler struct {
	Router    *hub.Router
	JWTSecret []byte
}

func NewHandler(router *hub.Router, jwtSecret []byte) *Handler {
	return &Handler{Router: router, JWTSecret: jwtSecret}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "API Running!"})
}
