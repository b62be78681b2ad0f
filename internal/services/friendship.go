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
	ErrFriendshipNotFound        = errors.New("friend request not found")
	ErrCannotFriendSelf          = errors.New("cannot send a friend request to yourself")
	ErrAlreadyFriends            = errors.New("you are already friends with this user")
	ErrRequestAlreadySent        = errors.New("you have already sent this user a friend request")
	ErrRequestAlreadyReceived    = errors.New("this user has already sent you a friend request")
	ErrRequestPreviouslyRejected = errors.New("a previous friend request with this user was rejected")
	ErrNotFriends                = errors.New("you are not friends with this user")
)

// FriendshipService owns the friendship state machine: a request is
// created pending by the requester and resolved exactly once, by the
// receiver, to accepted or rejected.
type FriendshipService struct {
	db DB
}

func NewFriendshipService(db DB) *FriendshipService {
	return &FriendshipService{db: db}
}

// SendRequest creates a pending friendship towards the named user. The
// relation is undirected once established, so the existence check covers
// both directions and the pair is locked for the duration.
func (s *FriendshipService) SendRequest(ctx context.Context, requesterID uuid.UUID, receiverUsername string) (*models.FriendshipWithUsers, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin friend request transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	receiver, err := getSimpleUserByUsername(ctx, tx, receiverUsername)
	if err != nil {
		return nil, err
	}
	if receiver.ID == requesterID {
		return nil, ErrCannotFriendSelf
	}

	if err := lockUserPairForUpdate(ctx, tx, requesterID, receiver.ID); err != nil {
		return nil, fmt.Errorf("lock users: %w", err)
	}

	var existingRequester uuid.UUID
	var existingStatus models.FriendshipStatus
	var found bool
	rows, err := tx.Query(ctx,
		`SELECT requester_id, status FROM friendships
		 WHERE (requester_id = $1 AND receiver_id = $2)
		    OR (requester_id = $2 AND receiver_id = $1)`,
		requesterID, receiver.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("check existing friendship: %w", err)
	}
	for rows.Next() {
		if err := rows.Scan(&existingRequester, &existingStatus); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan existing friendship: %w", err)
		}
		found = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("check existing friendship: %w", err)
	}

	if found {
		switch existingStatus {
		case models.FriendshipStatusAccepted:
			return nil, ErrAlreadyFriends
		case models.FriendshipStatusPending:
			if existingRequester == receiver.ID {
				return nil, ErrRequestAlreadyReceived
			}
			return nil, ErrRequestAlreadySent
		default:
			// Re-requesting after a rejection is not supported.
			return nil, ErrRequestPreviouslyRejected
		}
	}

	friendship := &models.FriendshipWithUsers{}
	err = tx.QueryRow(ctx,
		`INSERT INTO friendships (requester_id, receiver_id, status)
		 VALUES ($1, $2, 'pending')
		 RETURNING id, requester_id, receiver_id, status, created_at, updated_at`,
		requesterID, receiver.ID,
	).Scan(&friendship.ID, &friendship.RequesterID, &friendship.ReceiverID, &friendship.Status, &friendship.CreatedAt, &friendship.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert friendship: %w", err)
	}

	requester, err := getSimpleUser(ctx, tx, requesterID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit friend request: %w", err)
	}
	committed = true

	friendship.Requester = requester
	friendship.Receiver = receiver
	return friendship, nil
}

// ListIncomingPending returns the pending requests awaiting action from
// the given user, newest first.
func (s *FriendshipService) ListIncomingPending(ctx context.Context, userID uuid.UUID) ([]models.FriendshipWithUsers, error) {
	rows, err := s.db.Query(ctx,
		`SELECT f.id, f.requester_id, f.receiver_id, f.status, f.created_at, f.updated_at,
		        req.username, req.first_name, req.last_name,
		        rec.username, rec.first_name, rec.last_name
		 FROM friendships f
		 JOIN users req ON f.requester_id = req.id
		 JOIN users rec ON f.receiver_id = rec.id
		 WHERE f.receiver_id = $1 AND f.status = 'pending'
		 ORDER BY f.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending friend requests: %w", err)
	}
	defer rows.Close()

	var requests []models.FriendshipWithUsers
	for rows.Next() {
		var f models.FriendshipWithUsers
		if err := rows.Scan(
			&f.ID, &f.RequesterID, &f.ReceiverID, &f.Status, &f.CreatedAt, &f.UpdatedAt,
			&f.Requester.Username, &f.Requester.FirstName, &f.Requester.LastName,
			&f.Receiver.Username, &f.Receiver.FirstName, &f.Receiver.LastName,
		); err != nil {
			return nil, fmt.Errorf("scan friend request: %w", err)
		}
		f.Requester.ID = f.RequesterID
		f.Receiver.ID = f.ReceiverID
		requests = append(requests, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending friend requests: %w", err)
	}
	if requests == nil {
		requests = []models.FriendshipWithUsers{}
	}
	return requests, nil
}

// ActOnRequest resolves a pending request. Only the receiver of a row
// that is still pending may act; the status predicate doubles as the
// compare-and-swap, so a losing racer (or a second act on a resolved
// request) observes ErrFriendshipNotFound.
func (s *FriendshipService) ActOnRequest(ctx context.Context, friendshipID, actingUserID uuid.UUID, action models.RequestAction) (*models.FriendshipWithUsers, error) {
	newStatus := models.FriendshipStatusAccepted
	if action == models.ActionReject {
		newStatus = models.FriendshipStatusRejected
	}

	friendship := &models.FriendshipWithUsers{}
	err := s.db.QueryRow(ctx,
		`UPDATE friendships
		 SET status = $1, updated_at = NOW()
		 WHERE id = $2 AND receiver_id = $3 AND status = 'pending'
		 RETURNING id, requester_id, receiver_id, status, created_at, updated_at`,
		newStatus, friendshipID, actingUserID,
	).Scan(&friendship.ID, &friendship.RequesterID, &friendship.ReceiverID, &friendship.Status, &friendship.CreatedAt, &friendship.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFriendshipNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("acting on friend request: %w", err)
	}

	requester, err := getSimpleUser(ctx, s.db, friendship.RequesterID)
	if err != nil {
		return nil, err
	}
	receiver, err := getSimpleUser(ctx, s.db, friendship.ReceiverID)
	if err != nil {
		return nil, err
	}
	friendship.Requester = requester
	friendship.Receiver = receiver
	return friendship, nil
}

// ListFriends returns the other party of every accepted friendship the
// user is part of, ordered by username.
func (s *FriendshipService) ListFriends(ctx context.Context, userID uuid.UUID) ([]models.SimpleUser, error) {
	rows, err := s.db.Query(ctx,
		`SELECT u.id, u.username, u.first_name, u.last_name
		 FROM users u
		 WHERE u.id IN (
		     SELECT CASE WHEN f.requester_id = $1 THEN f.receiver_id ELSE f.requester_id END
		     FROM friendships f
		     WHERE (f.requester_id = $1 OR f.receiver_id = $1) AND f.status = 'accepted'
		 )
		 ORDER BY u.username`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	defer rows.Close()

	var friends []models.SimpleUser
	for rows.Next() {
		var u models.SimpleUser
		if err := rows.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName); err != nil {
			return nil, fmt.Errorf("scan friend: %w", err)
		}
		friends = append(friends, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	if friends == nil {
		friends = []models.SimpleUser{}
	}
	return friends, nil
}

// AreFriends reports whether an accepted friendship exists between the
// two users in either direction. Used as the authorization gate for
// transactions and history resets.
func (s *FriendshipService) AreFriends(ctx context.Context, userID, otherID uuid.UUID) (bool, error) {
	return friendsExist(ctx, s.db, userID, otherID)
}

func friendsExist(ctx context.Context, q DBConn, userID, otherID uuid.UUID) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM friendships
			WHERE ((requester_id = $1 AND receiver_id = $2)
			    OR (requester_id = $2 AND receiver_id = $1))
			  AND status = 'accepted'
		)`,
		userID, otherID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check friendship: %w", err)
	}
	return exists, nil
}
