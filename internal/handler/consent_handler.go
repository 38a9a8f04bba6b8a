package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/acadchain-api/internal/dto"
	"github.com/noah-isme/acadchain-api/internal/service"
	appErrors "github.com/noah-isme/acadchain-api/pkg/errors"
	"github.com/noah-isme/acadchain-api/pkg/response"
)

// ConsentHandler wires HTTP endpoints to the consent state machine.
type ConsentHandler struct {
	service *service.ConsentService
}

// NewConsentHandler creates a new handler.
func NewConsentHandler(svc *service.ConsentService) *ConsentHandler {
	return &ConsentHandler{service: svc}
}

// Grant godoc
// @Summary Grant a third-party consent
// @Tags Consents
// @Accept json
// @Produce json
// @Param payload body dto.GrantConsentRequest true "Consent payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /consents/grant [post]
func (h *ConsentHandler) Grant(c *gin.Context) {
	var req dto.GrantConsentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid consent payload"))
		return
	}

	result, err := h.service.Grant(c.Request.Context(), claimsFromContext(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// Revoke godoc
// @Summary Revoke an active consent
// @Tags Consents
// @Accept json
// @Produce json
// @Param id path string true "Consent ID"
// @Param payload body dto.RevokeConsentRequest true "Revocation reason"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /consents/revoke/{id} [post]
func (h *ConsentHandler) Revoke(c *gin.Context) {
	var req dto.RevokeConsentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "revocation reason required"))
		return
	}

	result, err := h.service.Revoke(c.Request.Context(), claimsFromContext(c), c.Param("id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// ListByStudent godoc
// @Summary Consents for a student, both stores merged
// @Tags Consents
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /consents/student/{studentId} [get]
func (h *ConsentHandler) ListByStudent(c *gin.Context) {
	consents, err := h.service.ListByStudent(c.Request.Context(), claimsFromContext(c), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, consents, nil)
}

// Check godoc
// @Summary Check whether an active consent exists (public)
// @Tags Consents
// @Produce json
// @Param studentId path string true "Student ID"
// @Param requesterId path string true "Requester ID"
// @Success 200 {object} response.Envelope
// @Router /consents/check/{studentId}/{requesterId} [get]
func (h *ConsentHandler) Check(c *gin.Context) {
	check, err := h.service.Check(c.Request.Context(), c.Param("studentId"), c.Param("requesterId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, check, nil)
}
