package database

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// stubPGHooks installs working stubs for every pool hook and restores
// the originals on cleanup. Tests override the hook they want to fail.
func stubPGHooks(t *testing.T) {
	t.Helper()
	origParse := parsePGConfig
	origNew := newPGPool
	origPing := pingPGPool
	origClose := closePGPool
	t.Cleanup(func() {
		parsePGConfig = origParse
		newPGPool = origNew
		pingPGPool = origPing
		closePGPool = origClose
	})

	parsePGConfig = func(dsn string) (*pgxpool.Config, error) {
		return &pgxpool.Config{}, nil
	}
	newPGPool = func(ctx context.Context, config *pgxpool.Config) (*pgxpool.Pool, error) {
		return &pgxpool.Pool{}, nil
	}
	pingPGPool = func(ctx context.Context, pool *pgxpool.Pool) error {
		return nil
	}
	closePGPool = func(pool *pgxpool.Pool) {}
}

func TestNewPostgresDB_ConstructorErrors(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name    string
		breakIt func()
		wantMsg string
	}{
		{
			name: "dsn parse failure",
			breakIt: func() {
				parsePGConfig = func(dsn string) (*pgxpool.Config, error) {
					return nil, cause
				}
			},
			wantMsg: "parsing database config",
		},
		{
			name: "pool creation failure",
			breakIt: func() {
				newPGPool = func(ctx context.Context, config *pgxpool.Config) (*pgxpool.Pool, error) {
					return nil, cause
				}
			},
			wantMsg: "creating connection pool",
		},
		{
			name: "ping failure",
			breakIt: func() {
				pingPGPool = func(ctx context.Context, pool *pgxpool.Pool) error {
					return cause
				}
			},
			wantMsg: "pinging database",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubPGHooks(t)
			tt.breakIt()

			_, err := NewPostgresDB("postgres://hisabkitab")
			if !errors.Is(err, cause) {
				t.Fatalf("expected wrapped cause, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Fatalf("expected %q in error, got %q", tt.wantMsg, err.Error())
			}
		})
	}
}

func TestNewPostgresDB_PingFailureClosesPool(t *testing.T) {
	stubPGHooks(t)

	pingPGPool = func(ctx context.Context, pool *pgxpool.Pool) error {
		return errors.New("ping failed")
	}
	closed := false
	closePGPool = func(pool *pgxpool.Pool) { closed = true }

	if _, err := NewPostgresDB("postgres://hisabkitab"); err == nil {
		t.Fatal("expected ping error")
	}
	if !closed {
		t.Fatal("expected the half-built pool to be closed")
	}
}

func TestNewPostgresDB_PoolTuning(t *testing.T) {
	stubPGHooks(t)

	cfg := &pgxpool.Config{}
	parsePGConfig = func(dsn string) (*pgxpool.Config, error) {
		return cfg, nil
	}
	pool := &pgxpool.Pool{}
	newPGPool = func(ctx context.Context, config *pgxpool.Config) (*pgxpool.Pool, error) {
		return pool, nil
	}

	db, err := NewPostgresDB("postgres://hisabkitab")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if db.Pool != pool {
		t.Fatal("expected the stubbed pool back")
	}

	if cfg.MaxConns != 25 || cfg.MinConns != 5 {
		t.Fatalf("unexpected conn bounds: max %d min %d", cfg.MaxConns, cfg.MinConns)
	}
	if cfg.MaxConnLifetime != time.Hour {
		t.Fatalf("unexpected MaxConnLifetime: %v", cfg.MaxConnLifetime)
	}
	if cfg.MaxConnIdleTime != 30*time.Minute {
		t.Fatalf("unexpected MaxConnIdleTime: %v", cfg.MaxConnIdleTime)
	}
	if cfg.HealthCheckPeriod != time.Minute {
		t.Fatalf("unexpected HealthCheckPeriod: %v", cfg.HealthCheckPeriod)
	}
}

func TestPostgresDB_Close(t *testing.T) {
	stubPGHooks(t)

	closed := false
	closePGPool = func(pool *pgxpool.Pool) { closed = true }

	db := &PostgresDB{Pool: &pgxpool.Pool{}}
	db.Close()
	if !closed {
		t.Fatal("expected pool close")
	}
}
