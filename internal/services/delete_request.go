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
	ErrDeleteRequestNotFound = errors.New("delete request not found")
	ErrDeleteRequestExists   = errors.New("a delete request for this transaction is already pending")
	ErrNotTransactionParty   = errors.New("you are not a party to this transaction")
)

// DeleteRequestService owns the mutual-consent flow for removing a
// single transaction: one party requests, the counter-party approves or
// rejects, and approval permanently deletes the transaction row.
type DeleteRequestService struct {
	db DB
}

func NewDeleteRequestService(db DB) *DeleteRequestService {
	return &DeleteRequestService{db: db}
}

const deleteRequestColumns = `id, transaction_id, requester_id, status, created_at, updated_at`

// Request opens a pending delete request on a transaction the requester
// is a party to. The transaction row is locked so a concurrent approval
// or reset cannot delete it mid-check.
func (s *DeleteRequestService) Request(ctx context.Context, transactionID, requesterID uuid.UUID) (*models.TransactionDeleteRequest, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin delete request transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	var initiatorID, friendID uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT initiator_id, friend_id FROM friend_transactions WHERE id = $1 FOR UPDATE`,
		transactionID,
	).Scan(&initiatorID, &friendID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load transaction: %w", err)
	}

	if requesterID != initiatorID && requesterID != friendID {
		return nil, ErrNotTransactionParty
	}

	var pendingExists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM transaction_delete_requests
			WHERE transaction_id = $1 AND status = 'pending'
		)`,
		transactionID,
	).Scan(&pendingExists)
	if err != nil {
		return nil, fmt.Errorf("check pending delete request: %w", err)
	}
	if pendingExists {
		return nil, ErrDeleteRequestExists
	}

	request := &models.TransactionDeleteRequest{}
	err = tx.QueryRow(ctx,
		`INSERT INTO transaction_delete_requests (transaction_id, requester_id, status)
		 VALUES ($1, $2, 'pending')
		 RETURNING `+deleteRequestColumns,
		transactionID, requesterID,
	).Scan(&request.ID, &request.TransactionID, &request.RequesterID, &request.Status, &request.CreatedAt, &request.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert delete request: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit delete request: %w", err)
	}
	committed = true

	return request, nil
}

// ListActionable returns the pending delete requests the given user may
// act on: requests on transactions they are a party to, raised by the
// other party.
func (s *DeleteRequestService) ListActionable(ctx context.Context, userID uuid.UUID) ([]models.TransactionDeleteRequestDetail, error) {
	rows, err := s.db.Query(ctx,
		`SELECT r.id, r.transaction_id, r.requester_id, r.status, r.created_at, r.updated_at,
		        req.username, req.first_name, req.last_name,
		        t.id, t.initiator_id, t.friend_id, t.amount::text, t.description, t.status, t.action_taken_by, t.created_at, t.updated_at,
		        ini.username, ini.first_name, ini.last_name,
		        fr.username, fr.first_name, fr.last_name
		 FROM transaction_delete_requests r
		 JOIN users req ON r.requester_id = req.id
		 JOIN friend_transactions t ON r.transaction_id = t.id
		 JOIN users ini ON t.initiator_id = ini.id
		 JOIN users fr ON t.friend_id = fr.id
		 WHERE r.status = 'pending'
		   AND (t.initiator_id = $1 OR t.friend_id = $1)
		   AND r.requester_id != $1
		 ORDER BY r.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list actionable delete requests: %w", err)
	}
	defer rows.Close()

	var requests []models.TransactionDeleteRequestDetail
	for rows.Next() {
		var d models.TransactionDeleteRequestDetail
		var t models.FriendTransactionWithUsers
		var amount string
		if err := rows.Scan(
			&d.ID, &d.TransactionID, &d.RequesterID, &d.Status, &d.CreatedAt, &d.UpdatedAt,
			&d.Requester.Username, &d.Requester.FirstName, &d.Requester.LastName,
			&t.ID, &t.InitiatorID, &t.FriendID, &amount, &t.Description, &t.Status, &t.ActionTakenBy, &t.CreatedAt, &t.UpdatedAt,
			&t.Initiator.Username, &t.Initiator.FirstName, &t.Initiator.LastName,
			&t.Friend.Username, &t.Friend.FirstName, &t.Friend.LastName,
		); err != nil {
			return nil, fmt.Errorf("scan delete request: %w", err)
		}
		parsed, err := decimalFromDB(amount)
		if err != nil {
			return nil, err
		}
		t.Amount = parsed
		t.Initiator.ID = t.InitiatorID
		t.Friend.ID = t.FriendID
		d.Requester.ID = d.RequesterID
		d.Transaction = &t
		requests = append(requests, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading delete requests: %w", err)
	}
	if requests == nil {
		requests = []models.TransactionDeleteRequestDetail{}
	}
	return requests, nil
}

// Act resolves a pending delete request. The actionable-set filter is
// re-applied at the row level inside the transaction, so the author of
// the request, a non-party, or a losing racer all observe
// ErrDeleteRequestNotFound. Approval deletes the transaction and rejects
// any other pending delete request still referencing it.
func (s *DeleteRequestService) Act(ctx context.Context, requestID, actingUserID uuid.UUID, action models.ConsentAction) (*models.TransactionDeleteRequest, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin delete request action: %w", err)
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

	request := &models.TransactionDeleteRequest{}
	err = tx.QueryRow(ctx,
		`UPDATE transaction_delete_requests r
		 SET status = $1, updated_at = NOW()
		 FROM friend_transactions t
		 WHERE r.id = $2
		   AND r.status = 'pending'
		   AND r.transaction_id = t.id
		   AND (t.initiator_id = $3 OR t.friend_id = $3)
		   AND r.requester_id != $3
		 RETURNING r.id, r.transaction_id, r.requester_id, r.status, r.created_at, r.updated_at`,
		newStatus, requestID, actingUserID,
	).Scan(&request.ID, &request.TransactionID, &request.RequesterID, &request.Status, &request.CreatedAt, &request.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDeleteRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("acting on delete request: %w", err)
	}

	if request.Status == models.ConsentStatusApproved {
		// Orphaned pending requests on the same transaction are resolved
		// here rather than left dangling.
		_, err = tx.Exec(ctx,
			`UPDATE transaction_delete_requests
			 SET status = 'rejected', updated_at = NOW()
			 WHERE transaction_id = $1 AND status = 'pending' AND id != $2`,
			request.TransactionID, request.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("rejecting orphaned delete requests: %w", err)
		}

		// Zero rows affected means a concurrent reset already removed the
		// row; the approval still stands.
		_, err = tx.Exec(ctx,
			`DELETE FROM friend_transactions WHERE id = $1`,
			request.TransactionID,
		)
		if err != nil {
			return nil, fmt.Errorf("deleting transaction: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit delete request action: %w", err)
	}
	committed = true

	return request, nil
}
