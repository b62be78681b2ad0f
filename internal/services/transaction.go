package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/hisabkitab/server/internal/models"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrCannotTransactSelf  = errors.New("cannot create a transaction with yourself")
	ErrZeroAmount          = errors.New("amount cannot be zero")
)

// TransactionService owns the transaction state machine. A transaction
// is proposed pending by the initiator and resolved exactly once, by the
// friend, to accepted or rejected.
type TransactionService struct {
	db DB
}

func NewTransactionService(db DB) *TransactionService {
	return &TransactionService{db: db}
}

const transactionColumns = `id, initiator_id, friend_id, amount::text, description, status, action_taken_by, created_at, updated_at`

func scanTransaction(row Row) (*models.FriendTransaction, error) {
	t := &models.FriendTransaction{}
	var amount string
	err := row.Scan(&t.ID, &t.InitiatorID, &t.FriendID, &amount, &t.Description, &t.Status, &t.ActionTakenBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Amount, err = decimalFromDB(amount)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func decimalFromDB(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return d, nil
}

// Create records a pending transaction against a friend. Positive
// amounts mean the friend owes the initiator. The pair is locked so the
// friendship check and the insert are one serializable unit.
func (s *TransactionService) Create(ctx context.Context, initiatorID uuid.UUID, friendUsername string, amount decimal.Decimal, description string) (*models.FriendTransactionWithUsers, error) {
	if amount.IsZero() {
		return nil, ErrZeroAmount
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction create: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	friend, err := getSimpleUserByUsername(ctx, tx, friendUsername)
	if err != nil {
		return nil, err
	}
	if friend.ID == initiatorID {
		return nil, ErrCannotTransactSelf
	}

	if err := lockUserPairForUpdate(ctx, tx, initiatorID, friend.ID); err != nil {
		return nil, fmt.Errorf("lock users: %w", err)
	}

	areFriends, err := friendsExist(ctx, tx, initiatorID, friend.ID)
	if err != nil {
		return nil, err
	}
	if !areFriends {
		return nil, ErrNotFriends
	}

	row := tx.QueryRow(ctx,
		`INSERT INTO friend_transactions (initiator_id, friend_id, amount, description, status)
		 VALUES ($1, $2, $3::numeric, $4, 'pending')
		 RETURNING `+transactionColumns,
		initiatorID, friend.ID, amount.String(), description,
	)
	txn, err := scanTransaction(row)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	initiator, err := getSimpleUser(ctx, tx, initiatorID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction create: %w", err)
	}
	committed = true

	return &models.FriendTransactionWithUsers{
		FriendTransaction: *txn,
		Initiator:         initiator,
		Friend:            friend,
	}, nil
}

// ListPendingReceived returns pending transactions awaiting action from
// the given user.
func (s *TransactionService) ListPendingReceived(ctx context.Context, userID uuid.UUID) ([]models.FriendTransactionWithUsers, error) {
	return s.listPending(ctx, userID, "friend_id")
}

// ListPendingSent returns pending transactions the given user initiated.
func (s *TransactionService) ListPendingSent(ctx context.Context, userID uuid.UUID) ([]models.FriendTransactionWithUsers, error) {
	return s.listPending(ctx, userID, "initiator_id")
}

func (s *TransactionService) listPending(ctx context.Context, userID uuid.UUID, column string) ([]models.FriendTransactionWithUsers, error) {
	rows, err := s.db.Query(ctx,
		`SELECT t.id, t.initiator_id, t.friend_id, t.amount::text, t.description, t.status, t.action_taken_by, t.created_at, t.updated_at,
		        ini.username, ini.first_name, ini.last_name,
		        fr.username, fr.first_name, fr.last_name
		 FROM friend_transactions t
		 JOIN users ini ON t.initiator_id = ini.id
		 JOIN users fr ON t.friend_id = fr.id
		 WHERE t.`+column+` = $1 AND t.status = 'pending'
		 ORDER BY t.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func collectTransactions(rows Rows) ([]models.FriendTransactionWithUsers, error) {
	var transactions []models.FriendTransactionWithUsers
	for rows.Next() {
		var t models.FriendTransactionWithUsers
		var amount string
		if err := rows.Scan(
			&t.ID, &t.InitiatorID, &t.FriendID, &amount, &t.Description, &t.Status, &t.ActionTakenBy, &t.CreatedAt, &t.UpdatedAt,
			&t.Initiator.Username, &t.Initiator.FirstName, &t.Initiator.LastName,
			&t.Friend.Username, &t.Friend.FirstName, &t.Friend.LastName,
		); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		parsed, err := decimalFromDB(amount)
		if err != nil {
			return nil, err
		}
		t.Amount = parsed
		t.Initiator.ID = t.InitiatorID
		t.Friend.ID = t.FriendID
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading transactions: %w", err)
	}
	if transactions == nil {
		transactions = []models.FriendTransactionWithUsers{}
	}
	return transactions, nil
}

// ActOnTransaction resolves a pending transaction. Only the friend named
// on a still-pending row may act; the acting user is stamped on the row.
// A losing racer or a repeat act observes ErrTransactionNotFound.
func (s *TransactionService) ActOnTransaction(ctx context.Context, transactionID, actingUserID uuid.UUID, action models.RequestAction) (*models.FriendTransactionWithUsers, error) {
	newStatus := models.TransactionStatusAccepted
	if action == models.ActionReject {
		newStatus = models.TransactionStatusRejected
	}

	row := s.db.QueryRow(ctx,
		`UPDATE friend_transactions
		 SET status = $1, action_taken_by = $2, updated_at = NOW()
		 WHERE id = $3 AND friend_id = $2 AND status = 'pending'
		 RETURNING `+transactionColumns,
		newStatus, actingUserID, transactionID,
	)
	txn, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("acting on transaction: %w", err)
	}

	initiator, err := getSimpleUser(ctx, s.db, txn.InitiatorID)
	if err != nil {
		return nil, err
	}
	friend, err := getSimpleUser(ctx, s.db, txn.FriendID)
	if err != nil {
		return nil, err
	}

	return &models.FriendTransactionWithUsers{
		FriendTransaction: *txn,
		Initiator:         initiator,
		Friend:            friend,
	}, nil
}

// History returns the accepted transactions between the user and the
// named friend, most recently resolved first. Pending and rejected rows
// are not part of history.
func (s *TransactionService) History(ctx context.Context, userID uuid.UUID, friendUsername string) ([]models.FriendTransactionWithUsers, error) {
	friend, err := getSimpleUserByUsername(ctx, s.db, friendUsername)
	if err != nil {
		return nil, err
	}

	areFriends, err := friendsExist(ctx, s.db, userID, friend.ID)
	if err != nil {
		return nil, err
	}
	if !areFriends {
		return nil, ErrNotFriends
	}

	rows, err := s.db.Query(ctx,
		`SELECT t.id, t.initiator_id, t.friend_id, t.amount::text, t.description, t.status, t.action_taken_by, t.created_at, t.updated_at,
		        ini.username, ini.first_name, ini.last_name,
		        fr.username, fr.first_name, fr.last_name
		 FROM friend_transactions t
		 JOIN users ini ON t.initiator_id = ini.id
		 JOIN users fr ON t.friend_id = fr.id
		 WHERE ((t.initiator_id = $1 AND t.friend_id = $2)
		     OR (t.initiator_id = $2 AND t.friend_id = $1))
		   AND t.status = 'accepted'
		 ORDER BY t.updated_at DESC`,
		userID, friend.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("list transaction history: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}
