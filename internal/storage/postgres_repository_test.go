//go:build postgres

package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"camvault/internal/auth"
	"camvault/internal/models"
)

// These tests need a reachable Postgres instance. Run them with:
//
//	CAMVAULT_TEST_POSTGRES_DSN=postgres://... go test -tags postgres ./internal/storage/
func newPostgresTestRepository(t *testing.T) *postgresRepository {
	t.Helper()
	dsn := os.Getenv("CAMVAULT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CAMVAULT_TEST_POSTGRES_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	repo, err := NewPostgresRepository(ctx, dsn)
	if err != nil {
		t.Fatalf("NewPostgresRepository returned error: %v", err)
	}
	pg, ok := repo.(*postgresRepository)
	if !ok {
		t.Fatalf("unexpected repository type %T", repo)
	}
	t.Cleanup(func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		_ = pg.Close(closeCtx)
	})
	return pg
}

func uniqueEmail(t *testing.T) string {
	return fmt.Sprintf("%s-%d@example.com", t.Name(), time.Now().UnixNano())
}

func createPostgresUser(t *testing.T, repo *postgresRepository, email string) models.User {
	t.Helper()
	hashed, err := auth.HashPassword("secret")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	user, err := repo.CreateUser(context.Background(), CreateUserParams{
		Email:        email,
		PasswordHash: hashed,
	})
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}
	return user
}

func TestPostgresCreateUserDuplicateEmail(t *testing.T) {
	repo := newPostgresTestRepository(t)
	email := uniqueEmail(t)
	createPostgresUser(t, repo, email)

	hashed, err := auth.HashPassword("other")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	_, err = repo.CreateUser(context.Background(), CreateUserParams{
		Email:        email,
		PasswordHash: hashed,
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestPostgresAuthenticateUser(t *testing.T) {
	repo := newPostgresTestRepository(t)
	email := uniqueEmail(t)
	created := createPostgresUser(t, repo, email)

	user, err := repo.AuthenticateUser(context.Background(), email, "secret")
	if err != nil {
		t.Fatalf("AuthenticateUser returned error: %v", err)
	}
	if user.ID != created.ID {
		t.Fatalf("expected user %q, got %q", created.ID, user.ID)
	}
	if _, err := repo.AuthenticateUser(context.Background(), email, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestPostgresVideoLifecycle(t *testing.T) {
	repo := newPostgresTestRepository(t)
	alice := createPostgresUser(t, repo, uniqueEmail(t))
	bob := createPostgresUser(t, repo, uniqueEmail(t))

	record, err := repo.CreateVideo(context.Background(), CreateVideoParams{
		UserID:    alice.ID,
		VideoData: "QUJD",
	})
	if err != nil {
		t.Fatalf("CreateVideo returned error: %v", err)
	}

	if _, err := repo.GetVideo(context.Background(), record.ID, bob.ID); !errors.Is(err, ErrVideoNotFound) {
		t.Fatalf("expected ErrVideoNotFound for foreign get, got %v", err)
	}
	if err := repo.DeleteVideo(context.Background(), record.ID, bob.ID); !errors.Is(err, ErrVideoNotFound) {
		t.Fatalf("expected ErrVideoNotFound for foreign delete, got %v", err)
	}

	summaries, err := repo.ListVideos(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("ListVideos returned error: %v", err)
	}
	found := false
	for _, summary := range summaries {
		if summary.ID == record.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected video %q in owner listing", record.ID)
	}

	if err := repo.DeleteVideo(context.Background(), record.ID, alice.ID); err != nil {
		t.Fatalf("DeleteVideo returned error: %v", err)
	}
	if _, err := repo.GetVideo(context.Background(), record.ID, alice.ID); !errors.Is(err, ErrVideoNotFound) {
		t.Fatalf("expected ErrVideoNotFound after delete, got %v", err)
	}
}
