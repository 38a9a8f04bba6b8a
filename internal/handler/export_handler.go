package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/acadchain-api/internal/service"
	"github.com/noah-isme/acadchain-api/pkg/response"
)

// ExportHandler serves downloadable audit artifacts.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler creates a new handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// ConsentAuditCSV godoc
// @Summary Consent audit trail as CSV
// @Tags Exports
// @Produce text/csv
// @Param studentId path string true "Student ID"
// @Success 200 {file} file
// @Router /exports/consents/{studentId} [get]
func (h *ExportHandler) ConsentAuditCSV(c *gin.Context) {
	studentID := c.Param("studentId")
	out, err := h.service.ConsentAuditCSV(c.Request.Context(), claimsFromContext(c), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("consent-audit-%s.csv", studentID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", out)
}

// VerificationReceiptPDF godoc
// @Summary Verification receipt as PDF
// @Tags Exports
// @Produce application/pdf
// @Param hash path string true "Content hash"
// @Success 200 {file} file
// @Router /exports/verification/{hash} [get]
func (h *ExportHandler) VerificationReceiptPDF(c *gin.Context) {
	hash := c.Param("hash")
	out, err := h.service.VerificationReceiptPDF(c.Request.Context(), claimsFromContext(c), hash)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("verification-%s.pdf", hash)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", out)
}
