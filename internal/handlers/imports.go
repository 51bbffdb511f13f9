package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kosarica/catalog-service/internal/commit"
	"github.com/kosarica/catalog-service/internal/mapping"
	"github.com/kosarica/catalog-service/internal/payload"
	"github.com/kosarica/catalog-service/internal/pipeline"
	"github.com/kosarica/catalog-service/internal/types"
)

// AnalyzeRequest is the JSON body of an analyze call
type AnalyzeRequest struct {
	VendorCode string          `json:"vendorCode" binding:"required" jsonschema:"required"`
	Payload    json.RawMessage `json:"payload" binding:"required" jsonschema:"required"`
}

// PreviewRequest is the JSON body of a preview call. Mapping overrides the stored mapping.
type PreviewRequest struct {
	VendorCode     string              `json:"vendorCode" binding:"required" jsonschema:"required"`
	Payload        json.RawMessage     `json:"payload" binding:"required" jsonschema:"required"`
	Mapping        *mapping.Definition `json:"mapping,omitempty"`
	MappingVersion int                 `json:"mappingVersion,omitempty" binding:"min=0"`
	SafetyToggles  types.SafetyToggles `json:"safetyToggles"`
	RequestedBy    string              `json:"requestedBy,omitempty"`
}

// CommitRequest is the JSON body of a commit call
type CommitRequest struct {
	ImportedBy string `json:"importedBy" binding:"required" jsonschema:"required"`
	// EffectiveFrom is a YYYY-MM-DD date or RFC 3339 timestamp; empty means now
	EffectiveFrom string `json:"effectiveFrom,omitempty"`
}

// Analyze profiles a payload and drafts a mapping
// POST /internal/imports/analyze
//
// Accepts a JSON body or a multipart upload with vendorCode, file, and optional format/sheet.
func (h *Handler) Analyze(c *gin.Context) {
	if isMultipart(c) {
		vendorCode := c.PostForm("vendorCode")
		if vendorCode == "" {
			badRequest(c, "vendorCode is required")
			return
		}
		raw, opts, err := readUpload(c)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		h.analyze(c, vendorCode, raw, opts)
		return
	}

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	h.analyze(c, req.VendorCode, req.Payload, payload.Options{Format: payload.FormatJSON})
}

func (h *Handler) analyze(c *gin.Context, vendorCode string, raw []byte, opts payload.Options) {
	result, err := h.pipeline.Analyze(c.Request.Context(), vendorCode, raw, opts)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Preview stages an import preview
// POST /internal/imports/preview
//
// Accepts a JSON body or a multipart upload with vendorCode, file, optional format/sheet,
// mappingVersion, safetyToggles (JSON) and requestedBy.
func (h *Handler) Preview(c *gin.Context) {
	var req pipeline.PreviewRequest

	if isMultipart(c) {
		raw, opts, err := readUpload(c)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		req = pipeline.PreviewRequest{
			VendorCode:     c.PostForm("vendorCode"),
			Payload:        raw,
			PayloadOptions: opts,
			RequestedBy:    c.PostForm("requestedBy"),
		}
		if req.VendorCode == "" {
			badRequest(c, "vendorCode is required")
			return
		}
		if v := c.PostForm("mappingVersion"); v != "" {
			version, err := strconv.Atoi(v)
			if err != nil || version < 0 {
				badRequest(c, "mappingVersion must be a non-negative integer")
				return
			}
			req.MappingVersion = version
		}
		if t := c.PostForm("safetyToggles"); t != "" {
			if err := json.Unmarshal([]byte(t), &req.Toggles); err != nil {
				badRequest(c, "safetyToggles must be a JSON object")
				return
			}
		}
	} else {
		var body PreviewRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err.Error())
			return
		}
		req = pipeline.PreviewRequest{
			VendorCode:     body.VendorCode,
			Payload:        body.Payload,
			PayloadOptions: payload.Options{Format: payload.FormatJSON},
			Mapping:        body.Mapping,
			MappingVersion: body.MappingVersion,
			Toggles:        body.SafetyToggles,
			RequestedBy:    body.RequestedBy,
		}
	}

	imp, err := h.pipeline.Preview(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, imp)
}

// GetImport returns a staged import and, once committed, its result
// GET /internal/imports/:importId
func (h *Handler) GetImport(c *gin.Context) {
	imp, err := h.pipeline.Get(c.Request.Context(), c.Param("importId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, imp)
}

// CommitImport applies a staged import
// POST /internal/imports/:importId/commit
//
// Responds 200 with the CommitResult whether or not every product applied; 409 when the
// import was already committed or is being committed.
func (h *Handler) CommitImport(c *gin.Context) {
	var req CommitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	effective, err := commit.ParseEffectiveFrom(req.EffectiveFrom)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	result, err := h.pipeline.Commit(c.Request.Context(), c.Param("importId"), pipeline.CommitRequest{
		ImportedBy:    req.ImportedBy,
		EffectiveFrom: effective,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func isMultipart(c *gin.Context) bool {
	return c.ContentType() == "multipart/form-data"
}

func readUpload(c *gin.Context) ([]byte, payload.Options, error) {
	var opts payload.Options

	fh, err := c.FormFile("file")
	if err != nil {
		return nil, opts, fmt.Errorf("file is required")
	}
	if fh.Size > maxPayloadBytes {
		return nil, opts, fmt.Errorf("file exceeds %d bytes", maxPayloadBytes)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, opts, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	raw, err := io.ReadAll(io.LimitReader(f, maxPayloadBytes))
	if err != nil {
		return nil, opts, fmt.Errorf("failed to read upload: %w", err)
	}

	opts.Format = payload.FormatFromFilename(fh.Filename)
	if name := c.PostForm("format"); name != "" {
		format, err := payload.ParseFormat(name)
		if err != nil {
			return nil, opts, err
		}
		opts.Format = format
	}
	opts.Sheet = c.PostForm("sheet")
	return raw, opts, nil
}
