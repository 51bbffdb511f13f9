package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kosarica/catalog-service/internal/mapping"
)

// ValidateMappingResponse reports the outcome of a dry-run validation
type ValidateMappingResponse struct {
	Valid    bool     `json:"valid" jsonschema:"required"`
	Messages []string `json:"messages"`
}

// MappingVersionsResponse lists stored versions of a vendor mapping
type MappingVersionsResponse struct {
	VendorCode string `json:"vendorCode" jsonschema:"required"`
	Versions   []int  `json:"versions" jsonschema:"required"`
}

// GetMapping returns the latest mapping of a vendor
// GET /internal/mappings/:vendorCode
func (h *Handler) GetMapping(c *gin.Context) {
	def, err := h.mappings.Latest(c.Request.Context(), c.Param("vendorCode"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, def)
}

// GetMappingVersion returns one stored version of a vendor mapping
// GET /internal/mappings/:vendorCode/versions/:version
func (h *Handler) GetMappingVersion(c *gin.Context) {
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil || version < 1 {
		badRequest(c, "version must be a positive integer")
		return
	}

	def, err := h.mappings.Version(c.Request.Context(), c.Param("vendorCode"), version)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, def)
}

// ListMappingVersions lists the stored versions of a vendor mapping
// GET /internal/mappings/:vendorCode/versions
func (h *Handler) ListMappingVersions(c *gin.Context) {
	vendorCode := c.Param("vendorCode")
	versions, err := h.mappings.Versions(c.Request.Context(), vendorCode)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MappingVersionsResponse{VendorCode: vendorCode, Versions: versions})
}

// PutMapping validates and stores a new version of a vendor mapping
// PUT /internal/mappings/:vendorCode
func (h *Handler) PutMapping(c *gin.Context) {
	var def mapping.Definition
	if err := c.ShouldBindJSON(&def); err != nil {
		badRequest(c, err.Error())
		return
	}

	vendorCode := c.Param("vendorCode")
	if def.VendorCode == "" {
		def.VendorCode = vendorCode
	}
	if def.VendorCode != vendorCode {
		badRequest(c, "vendorCode in body does not match the path")
		return
	}

	saved, err := h.mappings.Save(c.Request.Context(), def, c.Query("updatedBy"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.logger.Info().Str("vendor", saved.VendorCode).Int("version", saved.Version).Msg("Mapping saved")
	c.JSON(http.StatusOK, saved)
}

// ValidateMapping runs the mapping checks without storing anything
// POST /internal/mappings/validate
func (h *Handler) ValidateMapping(c *gin.Context) {
	var def mapping.Definition
	if err := c.ShouldBindJSON(&def); err != nil {
		badRequest(c, err.Error())
		return
	}

	resp := ValidateMappingResponse{Valid: true, Messages: []string{}}
	if err := mapping.Validate(&def); err != nil {
		resp.Valid = false
		if verr, ok := err.(*mapping.ValidationError); ok {
			resp.Messages = verr.Messages
		} else {
			resp.Messages = []string{err.Error()}
		}
	}
	c.JSON(http.StatusOK, resp)
}
