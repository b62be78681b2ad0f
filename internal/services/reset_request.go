package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hisabkitab/server/internal/models"
)

var (
	ErrResetRequestNotFound = errors.New("reset request not found")
	ErrResetRequestExists   = errors.New("a reset request with this user is already pending")
	ErrCannotResetSelf      = errors.New("cannot reset history with yourself")
)

// ResetRequestService owns the mutual-consent flow for wiping the
// accepted transaction history between two friends.
type ResetRequestService struct {
	db DB
}

func NewResetRequestService(db DB) *ResetRequestService {
	return &ResetRequestService{db: db}
}

const resetRequestColumns = `id, requester_id, target_user_id, status, created_at, updated_at`

// Request opens a pending reset request towards the named friend. The
// pair is locked so the friendship check and the pending-uniqueness
// check are one serializable unit.
func (s *ResetRequestService) Request(ctx context.Context, requesterID uuid.UUID, targetUsername string) (*models.HistoryResetRequestWithUsers, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin reset request transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	target, err := getSimpleUserByUsername(ctx, tx, targetUsername)
	if err != nil {
		return nil, err
	}
	if target.ID == requesterID {
		return nil, ErrCannotResetSelf
	}

	if err := lockUserPairForUpdate(ctx, tx, requesterID, target.ID); err != nil {
		return nil, fmt.Errorf("lock users: %w", err)
	}

	areFriends, err := friendsExist(ctx, tx, requesterID, target.ID)
	if err != nil {
		return nil, err
	}
	if !areFriends {
		return nil, ErrNotFriends
	}

	var pendingExists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM history_reset_requests
			WHERE ((requester_id = $1 AND target_user_id = $2)
			    OR (requester_id = $2 AND target_user_id = $1))
			  AND status = 'pending'
		)`,
		requesterID, target.ID,
	).Scan(&pendingExists)
	if err != nil {
		return nil, fmt.Errorf("check pending reset request: %w", err)
	}
	if pendingExists {
		return nil, ErrResetRequestExists
	}

	request := &models.HistoryResetRequestWithUsers{}
	err = tx.QueryRow(ctx,
		`INSERT INTO history_reset_requests (requester_id, target_user_id, status)
		 VALUES ($1, $2, 'pending')
		 RETURNING `+resetRequestColumns,
		requesterID, target.ID,
	).Scan(&request.ID, &request.RequesterID, &request.TargetUserID, &request.Status, &request.CreatedAt, &request.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert reset request: %w", err)
	}

	requester, err := getSimpleUser(ctx, tx, requesterID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit reset request: %w", err)
	}
	committed = true

	request.Requester = requester
	request.TargetUser = target
	return request, nil
}

// ListIncomingPending returns the pending reset requests targeting the
// given user, newest first.
func (s *ResetRequestService) ListIncomingPending(ctx context.Context, userID uuid.UUID) ([]models.HistoryResetRequestWithUsers, error) {
	rows, err := s.db.Query(ctx,
		`SELECT r.id, r.requester_id, r.target_user_id, r.status, r.created_at, r.updated_at,
		        req.username, req.first_name, req.last_name,
		        tgt.username, tgt.first_name, tgt.last_name
		 FROM history_reset_requests r
		 JOIN users req ON r.requester_id = req.id
		 JOIN users tgt ON r.target_user_id = tgt.id
		 WHERE r.target_user_id = $1 AND r.status = 'pending'
		 ORDER BY r.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending reset requests: %w", err)
	}
	defer rows.Close()

	var requests []models.HistoryResetRequestWithUsers
	for rows.Next() {
		var r models.HistoryResetRequestWithUsers
		if err := rows.Scan(
			&r.ID, &r.RequesterID, &r.TargetUserID, &r.Status, &r.CreatedAt, &r.UpdatedAt,
			&r.Requester.Username, &r.Requester.FirstName, &r.Requester.LastName,
			&r.TargetUser.Username, &r.TargetUser.FirstName, &r.TargetUser.LastName,
		); err != nil {
			return nil, fmt.Errorf("scan reset request: %w", err)
		}
		r.Requester.ID = r.RequesterID
		r.TargetUser.ID = r.TargetUserID
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading reset requests: %w", err)
	}
	if requests == nil {
		requests = []models.HistoryResetRequestWithUsers{}
	}
	return requests, nil
}

// Act resolves a pending reset request. Only the target of a
// still-pending row may act. Approval deletes every accepted transaction
// between the pair, first resolving any pending delete requests on those
// rows, and reports the count removed.
func (s *ResetRequestService) Act(ctx context.Context, requestID, actingUserID uuid.UUID, action models.ConsentAction) (*models.HistoryResetResult, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin reset request action: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	newStatus := models.ConsentStatusApproved
	if action == models.ActionRefuse {
		newStatus = models.ConsentStatusRejected
	}

	request := models.HistoryResetRequest{}
	err = tx.QueryRow(ctx,
		`UPDATE history_reset_requests
		 SET status = $1, updated_at = NOW()
		 WHERE id = $2 AND target_user_id = $3 AND status = 'pending'
		 RETURNING `+resetRequestColumns,
		newStatus, requestID, actingUserID,
	).Scan(&request.ID, &request.RequesterID, &request.TargetUserID, &request.Status, &request.CreatedAt, &request.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrResetRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("acting on reset request: %w", err)
	}

	result := &models.HistoryResetResult{Request: request}

	if request.Status == models.ConsentStatusApproved {
		if err := lockUserPairForUpdate(ctx, tx, request.RequesterID, request.TargetUserID); err != nil {
			return nil, fmt.Errorf("lock users: %w", err)
		}

		// Pending delete requests on rows about to disappear are resolved
		// before the bulk delete so none are left dangling.
		_, err = tx.Exec(ctx,
			`UPDATE transaction_delete_requests
			 SET status = 'rejected', updated_at = NOW()
			 WHERE status = 'pending'
			   AND transaction_id IN (
			       SELECT id FROM friend_transactions
			       WHERE ((initiator_id = $1 AND friend_id = $2)
			           OR (initiator_id = $2 AND friend_id = $1))
			         AND status = 'accepted'
			   )`,
			request.RequesterID, request.TargetUserID,
		)
		if err != nil {
			return nil, fmt.Errorf("rejecting pending delete requests: %w", err)
		}

		tag, err := tx.Exec(ctx,
			`DELETE FROM friend_transactions
			 WHERE ((initiator_id = $1 AND friend_id = $2)
			     OR (initiator_id = $2 AND friend_id = $1))
			   AND status = 'accepted'`,
			request.RequesterID, request.TargetUserID,
		)
		if err != nil {
			return nil, fmt.Errorf("deleting accepted transactions: %w", err)
		}
		result.DeletedCount = tag.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit reset request action: %w", err)
	}
	committed = true

	return result, nil
}
