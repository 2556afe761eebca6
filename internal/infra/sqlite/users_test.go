package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/homeledger/homeledger/internal/domain"
)

// ─── User & Session Store Tests ─────────────────────────────────────────────

func TestCreateUser_Duplicate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.CreateUser(ctx, "alice", "hash"); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := db.CreateUser(ctx, "alice", "otherhash")
	if !errors.Is(err, domain.ErrUserExists) {
		t.Errorf("duplicate error = %v, want ErrUserExists", err)
	}
}

func TestGetUserByUsername(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	created, err := db.CreateUser(ctx, "alice", "hash")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	user, err := db.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if user.ID != created.ID || user.PasswordHash != "hash" {
		t.Errorf("user = %+v, want id %d with stored hash", user, created.ID)
	}

	if _, err := db.GetUserByUsername(ctx, "nobody"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown user error = %v, want ErrNotFound", err)
	}
}

func TestSessions_Lifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user, _ := db.CreateUser(ctx, "alice", "hash")

	token := "tok-1"
	if err := db.CreateSession(ctx, token, user.ID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("create session: %v", err)
	}

	got, err := db.UserBySession(ctx, token)
	if err != nil {
		t.Fatalf("resolve session: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("session resolves to user %d, want %d", got.ID, user.ID)
	}

	if err := db.DeleteSession(ctx, token); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := db.UserBySession(ctx, token); !errors.Is(err, domain.ErrSessionExpired) {
		t.Errorf("deleted session error = %v, want ErrSessionExpired", err)
	}
}

func TestSessions_Expired(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user, _ := db.CreateUser(ctx, "alice", "hash")

	if err := db.CreateSession(ctx, "stale", user.ID, time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := db.UserBySession(ctx, "stale"); !errors.Is(err, domain.ErrSessionExpired) {
		t.Errorf("expired session error = %v, want ErrSessionExpired", err)
	}

	// Cleanup removes it outright.
	if err := db.CleanExpiredSessions(ctx); err != nil {
		t.Fatalf("clean: %v", err)
	}
	var count int
	if err := db.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("sessions = %d, want 0 after cleanup", count)
	}
}

func TestSessions_UnknownToken(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.UserBySession(context.Background(), "missing"); !errors.Is(err, domain.ErrSessionExpired) {
		t.Errorf("unknown token error = %v, want ErrSessionExpired", err)
	}
}
