package models

import (
	"time"

	"github.com/google/uuid"
)

type ConsentStatus string

const (
	ConsentStatusPending  ConsentStatus = "pending"
	ConsentStatusApproved ConsentStatus = "approved"
	ConsentStatusRejected ConsentStatus = "rejected"
)

// ConsentAction is the closed set of actions a counter-party may take on
// a pending delete or reset request.
type ConsentAction string

const (
	ActionApprove ConsentAction = "approve"
	ActionRefuse  ConsentAction = "reject"
)

func ParseConsentAction(s string) (ConsentAction, bool) {
	switch ConsentAction(s) {
	case ActionApprove, ActionRefuse:
		return ConsentAction(s), true
	}
	return "", false
}

// TransactionDeleteRequest tracks a proposal to delete one transaction.
// The transaction reference is deliberately weak: an approved request
// outlives the row it deleted.
type TransactionDeleteRequest struct {
	ID            uuid.UUID     `json:"id"`
	TransactionID uuid.UUID     `json:"transaction_id"`
	RequesterID   uuid.UUID     `json:"requester_id"`
	Status        ConsentStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

type TransactionDeleteRequestDetail struct {
	TransactionDeleteRequest
	Requester   SimpleUser                  `json:"requester"`
	Transaction *FriendTransactionWithUsers `json:"transaction,omitempty"`
}
