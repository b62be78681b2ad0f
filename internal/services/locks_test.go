package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// lockRecorder answers user lock queries and records the order the ids
// were locked in. Ids listed in missing report ErrNoRows.
func lockRecorder(t *testing.T, missing ...uuid.UUID) (*fakeDB, *[]uuid.UUID) {
	t.Helper()
	locked := new([]uuid.UUID)
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			if !strings.Contains(sql, "FROM users") || !strings.Contains(sql, "FOR UPDATE") {
				t.Fatalf("unexpected sql: %q", sql)
			}
			id := args[0].(uuid.UUID)
			*locked = append(*locked, id)
			for _, m := range missing {
				if id == m {
					return fakeRow{scanFunc: func(dest ...any) error {
						return pgx.ErrNoRows
					}}
				}
			}
			return rowFromValues(id)
		},
	}
	return db, locked
}

func TestLockUserPairForUpdate_OrdersByID(t *testing.T) {
	alice := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	bob := uuid.MustParse("eeeeeeee-eeee-eeee-eeee-eeeeeeeeeeee")

	db, locked := lockRecorder(t)

	// Passing the pair high-then-low must still lock low first, or two
	// concurrent operations on the same pair can deadlock.
	if err := lockUserPairForUpdate(context.Background(), db, bob, alice); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(*locked) != 2 || (*locked)[0] != alice || (*locked)[1] != bob {
		t.Fatalf("unexpected lock order: %+v", *locked)
	}
}

func TestLockUserPairForUpdate_SameUserLocksOnce(t *testing.T) {
	alice := uuid.MustParse("11111111-1111-1111-1111-111111111111")

	db, locked := lockRecorder(t)

	if err := lockUserPairForUpdate(context.Background(), db, alice, alice); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(*locked) != 1 {
		t.Fatalf("expected a single lock, got %+v", *locked)
	}
}

func TestLockUserPairForUpdate_MissingUserSurfacesNoRows(t *testing.T) {
	alice := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	gone := uuid.MustParse("eeeeeeee-eeee-eeee-eeee-eeeeeeeeeeee")

	db, locked := lockRecorder(t, gone)

	err := lockUserPairForUpdate(context.Background(), db, alice, gone)
	if !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}
	// Second of the ordered pair, so the first lock was taken.
	if len(*locked) != 2 {
		t.Fatalf("expected 2 lock attempts, got %+v", *locked)
	}
}

func TestLockUserForUpdate_PropagatesNoRowsUnwrapped(t *testing.T) {
	gone := uuid.MustParse("eeeeeeee-eeee-eeee-eeee-eeeeeeeeeeee")

	db, locked := lockRecorder(t, gone)

	if err := lockUserForUpdate(context.Background(), db, gone); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}
	if len(*locked) != 1 {
		t.Fatalf("expected 1 lock attempt, got %+v", *locked)
	}
}

func TestLockUserForUpdate_WrapsUnexpectedError(t *testing.T) {
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return fakeRow{scanFunc: func(dest ...any) error {
				return errors.New("connection reset")
			}}
		},
	}

	err := lockUserForUpdate(context.Background(), db, uuid.New())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "lock user") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
