package dto

import "github.com/noah-isme/acadchain-api/internal/models"

// TransitionRequest carries the acting approver's comment for a forward
// approval transition.
type TransitionRequest struct {
	Comment string `json:"comment"`
}

// RejectRequest carries the mandatory rejection reason.
type RejectRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// TransitionResult reports a committed record transition.
type TransitionResult struct {
	RecordID string              `json:"recordId"`
	Status   models.RecordStatus `json:"status"`
	TxID     string              `json:"txId"`
}
