package models

import "time"

// TransitionEvent describes a committed lifecycle transition. It is the
// payload handed to the notification dispatcher after the transition result
// has already been determined.
type TransitionEvent struct {
	Kind       string    `json:"kind"` // record | document | consent
	EntityID   string    `json:"entity_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	ActorID    string    `json:"actor_id"`
	ActorRole  UserRole  `json:"actor_role"`
	TxID       string    `json:"tx_id,omitempty"`
	Comment    string    `json:"comment,omitempty"`
	Recipients []string  `json:"recipients,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notification is the in-app message persisted for a recipient.
type Notification struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Kind      string    `db:"kind" json:"kind"`
	EntityID  string    `db:"entity_id" json:"entity_id"`
	Message   string    `db:"message" json:"message"`
	Read      bool      `db:"read" json:"read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
