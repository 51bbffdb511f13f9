// Package handlers exposes the import pipeline over the internal HTTP API
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kosarica/catalog-service/internal/audit"
	"github.com/kosarica/catalog-service/internal/mapping"
	"github.com/kosarica/catalog-service/internal/pipeline"
	"github.com/kosarica/catalog-service/internal/shape"
	"github.com/kosarica/catalog-service/internal/staging"
)

// maxPayloadBytes bounds uploaded vendor files
const maxPayloadBytes = 64 << 20

// Handler serves the import, audit, mapping and catalog endpoints
type Handler struct {
	pipeline *pipeline.Service
	mappings *mapping.Repository
	audit    *audit.Log
	logger   zerolog.Logger
}

// NewHandler creates a handler over the pipeline collaborators
func NewHandler(svc *pipeline.Service, mappings *mapping.Repository, auditLog *audit.Log, logger zerolog.Logger) *Handler {
	return &Handler{
		pipeline: svc,
		mappings: mappings,
		audit:    auditLog,
		logger:   logger.With().Str("component", "http").Logger(),
	}
}

// Register mounts every internal route on the group
func (h *Handler) Register(g *gin.RouterGroup) {
	imports := g.Group("/imports")
	{
		imports.POST("/analyze", h.Analyze)
		imports.POST("/preview", h.Preview)
		imports.GET("/:importId", h.GetImport)
		imports.POST("/:importId/commit", h.CommitImport)
	}

	g.GET("/audit", h.ListAudit)
	g.GET("/audit/:importId", h.GetAudit)

	mappings := g.Group("/mappings")
	{
		mappings.POST("/validate", h.ValidateMapping)
		mappings.GET("/:vendorCode", h.GetMapping)
		mappings.PUT("/:vendorCode", h.PutMapping)
		mappings.GET("/:vendorCode/versions", h.ListMappingVersions)
		mappings.GET("/:vendorCode/versions/:version", h.GetMappingVersion)
	}

	g.POST("/catalog/invalidate", h.InvalidateCatalog)
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error    string   `json:"error" jsonschema:"required"`
	Type     string   `json:"type,omitempty"`
	Messages []string `json:"messages,omitempty"`
}

// respondError maps pipeline errors onto HTTP statuses
func (h *Handler) respondError(c *gin.Context, err error) {
	var (
		shapeErr      *shape.ShapeError
		validationErr *mapping.ValidationError
	)

	switch {
	case errors.As(err, &shapeErr):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: shapeErr.Error(), Type: "shape_error"})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:    "mapping validation failed",
			Type:     "validation_error",
			Messages: validationErr.Messages,
		})
	case errors.Is(err, staging.ErrNotStaged):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Type: "not_staged"})
	case pipeline.IsNotFound(err), errors.Is(err, audit.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Type: "not_found"})
	default:
		h.logger.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Type: "bad_request"})
}
