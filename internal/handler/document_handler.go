package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/acadchain-api/internal/dto"
	"github.com/noah-isme/acadchain-api/internal/service"
	appErrors "github.com/noah-isme/acadchain-api/pkg/errors"
	"github.com/noah-isme/acadchain-api/pkg/response"
)

// DocumentHandler wires HTTP endpoints to the document lifecycle.
type DocumentHandler struct {
	service *service.DocumentService
}

// NewDocumentHandler creates a new handler.
func NewDocumentHandler(svc *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{service: svc}
}

// Upload godoc
// @Summary Upload a document
// @Tags Documents
// @Accept json
// @Produce json
// @Param payload body dto.UploadDocumentRequest true "Document payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /documents/upload [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	var req dto.UploadDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid document payload"))
		return
	}

	doc, err := h.service.Upload(c.Request.Context(), claimsFromContext(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, doc)
}

// UpdateStatus godoc
// @Summary Move a document through the review pipeline
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body dto.UpdateDocumentStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /documents/status/{id} [put]
func (h *DocumentHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateDocumentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}

	doc, err := h.service.UpdateStatus(c.Request.Context(), claimsFromContext(c), c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, doc, nil)
}

// NewVersion godoc
// @Summary Create a new version of a document
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body dto.NewVersionRequest true "Replacement content"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/version/{id} [post]
func (h *DocumentHandler) NewVersion(c *gin.Context) {
	var req dto.NewVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid version payload"))
		return
	}

	doc, err := h.service.NewVersion(c.Request.Context(), claimsFromContext(c), c.Param("id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, doc)
}

// Versions godoc
// @Summary Archived versions of a document
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Router /documents/versions/{id} [get]
func (h *DocumentHandler) Versions(c *gin.Context) {
	archives, err := h.service.Versions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, archives, nil)
}

// Get godoc
// @Summary Fetch a document asset
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.service.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, doc, nil)
}

// ListByStudent godoc
// @Summary Documents owned by a student
// @Tags Documents
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /documents/student/{studentId} [get]
func (h *DocumentHandler) ListByStudent(c *gin.Context) {
	docs, err := h.service.ListByStudent(c.Request.Context(), claimsFromContext(c), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, docs, nil)
}

// Verify godoc
// @Summary Verify a document by content hash (POST body)
// @Tags Documents
// @Accept json
// @Produce json
// @Param payload body dto.VerifyRequest true "Content hash"
// @Success 200 {object} response.Envelope
// @Router /documents/verify [post]
func (h *DocumentHandler) Verify(c *gin.Context) {
	var req dto.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "content hash required"))
		return
	}

	result, err := h.service.VerifyByHash(c.Request.Context(), claimsFromContext(c), req.Hash)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// VerifyByHash godoc
// @Summary Verify a document by content hash (path form, public)
// @Tags Documents
// @Produce json
// @Param hash path string true "Content hash"
// @Success 200 {object} response.Envelope
// @Router /documents/verify/{hash} [get]
func (h *DocumentHandler) VerifyByHash(c *gin.Context) {
	result, err := h.service.VerifyByHash(c.Request.Context(), claimsFromContext(c), c.Param("hash"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}
