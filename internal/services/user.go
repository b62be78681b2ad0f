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
	ErrUserNotFound          = errors.New("user not found")
	ErrUsernameAlreadyExists = errors.New("username already taken")
)

type UserService struct {
	db DBConn
}

func NewUserService(db DBConn) *UserService {
	return &UserService{db: db}
}

func (s *UserService) Create(ctx context.Context, params models.CreateUserParams) (*models.User, error) {
	// Check if username already exists (case-insensitive)
	var exists bool
	err := s.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(username) = LOWER($1))", params.Username).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("checking username existence: %w", err)
	}
	if exists {
		return nil, ErrUsernameAlreadyExists
	}

	user := &models.User{}
	err = s.db.QueryRow(ctx,
		`INSERT INTO users (username, password_hash, first_name, last_name)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, username, password_hash, first_name, last_name, created_at, updated_at`,
		params.Username, params.PasswordHash, params.FirstName, params.LastName,
	).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.FirstName, &user.LastName, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRow(ctx,
		`SELECT id, username, password_hash, first_name, last_name, created_at, updated_at
		 FROM users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.FirstName, &user.LastName, &user.CreatedAt, &user.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by id: %w", err)
	}

	return user, nil
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRow(ctx,
		`SELECT id, username, password_hash, first_name, last_name, created_at, updated_at
		 FROM users WHERE username = $1`,
		username,
	).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.FirstName, &user.LastName, &user.CreatedAt, &user.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by username: %w", err)
	}

	return user, nil
}

func (s *UserService) UpdatePassword(ctx context.Context, userID uuid.UUID, newPasswordHash string) error {
	result, err := s.db.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`,
		newPasswordHash, userID,
	)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// Search finds users by username prefix, excluding the viewer.
func (s *UserService) Search(ctx context.Context, viewerID uuid.UUID, query string) ([]models.UserSearchResult, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, username
		 FROM users
		 WHERE username ILIKE $1 || '%' AND id != $2
		 ORDER BY username
		 LIMIT 20`,
		query, viewerID,
	)
	if err != nil {
		return nil, fmt.Errorf("searching users: %w", err)
	}
	defer rows.Close()

	var results []models.UserSearchResult
	for rows.Next() {
		var r models.UserSearchResult
		if err := rows.Scan(&r.ID, &r.Username); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("searching users: %w", err)
	}
	if results == nil {
		results = []models.UserSearchResult{}
	}
	return results, nil
}

// getSimpleUser loads the nested user representation inside an open
// transaction or on the pool directly.
func getSimpleUser(ctx context.Context, q DBConn, id uuid.UUID) (models.SimpleUser, error) {
	var u models.SimpleUser
	err := q.QueryRow(ctx,
		`SELECT id, username, first_name, last_name FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName)
	if errors.Is(err, pgx.ErrNoRows) {
		return u, ErrUserNotFound
	}
	if err != nil {
		return u, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// getSimpleUserByUsername resolves a username to the nested user
// representation, failing with ErrUserNotFound when absent.
func getSimpleUserByUsername(ctx context.Context, q DBConn, username string) (models.SimpleUser, error) {
	var u models.SimpleUser
	err := q.QueryRow(ctx,
		`SELECT id, username, first_name, last_name FROM users WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName)
	if errors.Is(err, pgx.ErrNoRows) {
		return u, ErrUserNotFound
	}
	if err != nil {
		return u, fmt.Errorf("resolving username: %w", err)
	}
	return u, nil
}
