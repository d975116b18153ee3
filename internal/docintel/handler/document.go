// Package handler provides HTTP handlers for the document service.
package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/docintel/internal/docintel/biz"
	"github.com/kart-io/docintel/internal/pkg/httputils"
	"github.com/kart-io/docintel/pkg/errors"
)

// maxUploadBytes bounds one upload; larger files are rejected before
// extraction starts.
const maxUploadBytes = 50 << 20

// DocumentHandler handles document lifecycle requests.
type DocumentHandler struct {
	svc biz.Service
}

// NewDocumentHandler creates a DocumentHandler.
func NewDocumentHandler(svc biz.Service) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

// Upload ingests a multipart file upload.
func (h *DocumentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		httputils.WriteResponse(c, errors.ErrInvalidParam.WithMessage("missing file field"), nil)
		return
	}
	if fileHeader.Size > maxUploadBytes {
		httputils.WriteResponse(c, errors.ErrInvalidParam.WithMessagef(
			"file exceeds the %d MB upload limit", maxUploadBytes>>20), nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		httputils.WriteResponse(c, errors.ErrInvalidParam.WithCause(err), nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		httputils.WriteResponse(c, errors.ErrInternal.WithCause(err), nil)
		return
	}
	if len(data) > maxUploadBytes {
		httputils.WriteResponse(c, errors.ErrInvalidParam.WithMessagef(
			"file exceeds the %d MB upload limit", maxUploadBytes>>20), nil)
		return
	}

	resp, err := h.svc.Ingest(c.Request.Context(), fileHeader.Filename, data)
	httputils.WriteResponse(c, err, resp)
}

// List returns all documents.
func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.svc.ListDocuments(c.Request.Context())
	httputils.WriteResponse(c, err, docs)
}

// Get returns one document's metadata.
func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.svc.GetDocument(c.Request.Context(), c.Param("id"))
	httputils.WriteResponse(c, err, doc)
}

// Delete removes a document and its index entries.
func (h *DocumentHandler) Delete(c *gin.Context) {
	err := h.svc.DeleteDocument(c.Request.Context(), c.Param("id"))
	httputils.WriteResponse(c, err, nil)
}

// Pages returns per-page extraction details.
func (h *DocumentHandler) Pages(c *gin.Context) {
	pages, err := h.svc.GetPages(c.Request.Context(), c.Param("id"))
	httputils.WriteResponse(c, err, pages)
}

// Entities returns the document's aggregated entities.
func (h *DocumentHandler) Entities(c *gin.Context) {
	entities, err := h.svc.GetEntities(c.Request.Context(), c.Param("id"))
	httputils.WriteResponse(c, err, entities)
}

// Stats returns corpus-wide counters.
func (h *DocumentHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	httputils.WriteResponse(c, err, stats)
}
