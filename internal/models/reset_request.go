package models

import (
	"time"

	"github.com/google/uuid"
)

// HistoryResetRequest tracks a proposal to wipe the accepted transaction
// history between two friends.
type HistoryResetRequest struct {
	ID           uuid.UUID     `json:"id"`
	RequesterID  uuid.UUID     `json:"requester_id"`
	TargetUserID uuid.UUID     `json:"target_user_id"`
	Status       ConsentStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

type HistoryResetRequestWithUsers struct {
	HistoryResetRequest
	Requester  SimpleUser `json:"requester"`
	TargetUser SimpleUser `json:"target_user"`
}

// HistoryResetResult reports an approved reset together with the number
// of accepted transactions it removed.
type HistoryResetResult struct {
	Request      HistoryResetRequest `json:"request"`
	DeletedCount int64               `json:"deleted_count"`
}
