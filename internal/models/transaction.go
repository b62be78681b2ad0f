package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionStatusPending  TransactionStatus = "pending"
	TransactionStatusAccepted TransactionStatus = "accepted"
	TransactionStatusRejected TransactionStatus = "rejected"
)

// FriendTransaction is a signed debt record between two friends.
// A positive amount means the friend owes the initiator; negative means
// the initiator owes the friend.
type FriendTransaction struct {
	ID            uuid.UUID         `json:"id"`
	InitiatorID   uuid.UUID         `json:"initiator_id"`
	FriendID      uuid.UUID         `json:"friend_id"`
	Amount        decimal.Decimal   `json:"amount"`
	Description   string            `json:"description,omitempty"`
	Status        TransactionStatus `json:"status"`
	ActionTakenBy *uuid.UUID        `json:"action_taken_by,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

type FriendTransactionWithUsers struct {
	FriendTransaction
	Initiator SimpleUser `json:"initiator"`
	Friend    SimpleUser `json:"friend"`
}
