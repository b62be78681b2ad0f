package models

import (
	"time"

	"github.com/google/uuid"
)

type FriendshipStatus string

const (
	FriendshipStatusPending  FriendshipStatus = "pending"
	FriendshipStatusAccepted FriendshipStatus = "accepted"
	FriendshipStatusRejected FriendshipStatus = "rejected"
)

// RequestAction is the closed set of actions a receiver may take on a
// pending friendship or transaction.
type RequestAction string

const (
	ActionAccept RequestAction = "accept"
	ActionReject RequestAction = "reject"
)

func ParseRequestAction(s string) (RequestAction, bool) {
	switch RequestAction(s) {
	case ActionAccept, ActionReject:
		return RequestAction(s), true
	}
	return "", false
}

type Friendship struct {
	ID          uuid.UUID        `json:"id"`
	RequesterID uuid.UUID        `json:"requester_id"`
	ReceiverID  uuid.UUID        `json:"receiver_id"`
	Status      FriendshipStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

type FriendshipWithUsers struct {
	Friendship
	Requester SimpleUser `json:"requester"`
	Receiver  SimpleUser `json:"receiver"`
}
