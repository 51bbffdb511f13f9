package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// InvalidateCatalog drops the cached catalog so the next preview reloads it
// POST /internal/catalog/invalidate
func (h *Handler) InvalidateCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"invalidated": h.pipeline.InvalidateCatalog()})
}
