package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/acadchain-api/internal/dto"
	"github.com/noah-isme/acadchain-api/internal/models"
	"github.com/noah-isme/acadchain-api/internal/service"
	appErrors "github.com/noah-isme/acadchain-api/pkg/errors"
	"github.com/noah-isme/acadchain-api/pkg/response"
)

// ApprovalHandler wires HTTP endpoints to the record approval state machine.
type ApprovalHandler struct {
	service *service.ApprovalService
}

// NewApprovalHandler creates a new handler.
func NewApprovalHandler(svc *service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{service: svc}
}

func (h *ApprovalHandler) transition(c *gin.Context, target models.RecordStatus) {
	var req dto.TransitionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid transition payload"))
			return
		}
	}

	result, err := h.service.Approve(c.Request.Context(), claimsFromContext(c), c.Param("id"), target, req.Comment)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// Submit godoc
// @Summary Submit a record for approval
// @Tags Records
// @Accept json
// @Produce json
// @Param id path string true "Record ID"
// @Param payload body dto.TransitionRequest false "Optional comment"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /records/submit/{id} [post]
func (h *ApprovalHandler) Submit(c *gin.Context) {
	h.transition(c, models.RecordSubmitted)
}

// FacultyApprove godoc
// @Summary Faculty approval of a submitted record
// @Tags Records
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /records/faculty/{id} [post]
func (h *ApprovalHandler) FacultyApprove(c *gin.Context) {
	h.transition(c, models.RecordFacultyApproved)
}

// HODApprove godoc
// @Summary HOD approval
// @Tags Records
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /records/hod/{id} [post]
func (h *ApprovalHandler) HODApprove(c *gin.Context) {
	h.transition(c, models.RecordHODApproved)
}

// DACApprove godoc
// @Summary DAC approval
// @Tags Records
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /records/dac/{id} [post]
func (h *ApprovalHandler) DACApprove(c *gin.Context) {
	h.transition(c, models.RecordDACApproved)
}

// ExamSectionApprove godoc
// @Summary Exam section approval
// @Tags Records
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /records/exam-section/{id} [post]
func (h *ApprovalHandler) ExamSectionApprove(c *gin.Context) {
	h.transition(c, models.RecordESApproved)
}

// DeanApprove godoc
// @Summary Final dean academic approval
// @Tags Records
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /records/dean/{id} [post]
func (h *ApprovalHandler) DeanApprove(c *gin.Context) {
	h.transition(c, models.RecordApproved)
}

// Reject godoc
// @Summary Reject a record back to DRAFT
// @Tags Records
// @Accept json
// @Produce json
// @Param id path string true "Record ID"
// @Param payload body dto.RejectRequest true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /records/reject/{id} [post]
func (h *ApprovalHandler) Reject(c *gin.Context) {
	var req dto.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "rejection reason required"))
		return
	}

	result, err := h.service.Reject(c.Request.Context(), claimsFromContext(c), c.Param("id"), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// Status godoc
// @Summary Approval status of a record
// @Tags Records
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /records/status/{id} [get]
func (h *ApprovalHandler) Status(c *gin.Context) {
	record, err := h.service.Status(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, record, nil)
}

// Queue godoc
// @Summary Records sitting in one approval stage
// @Tags Records
// @Produce json
// @Param status path string true "Record status"
// @Param limit query int false "Maximum records returned"
// @Success 200 {object} response.Envelope
// @Router /records/queue/{status} [get]
func (h *ApprovalHandler) Queue(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	queue, err := h.service.Queue(c.Request.Context(), claimsFromContext(c), models.RecordStatus(c.Param("status")), limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, queue, nil)
}
