package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/fieldledger/fieldledger/internal/logger"
	"github.com/fieldledger/fieldledger/models"
)

func newTestCacheRepo(t *testing.T) (*cacheRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	l := logger.Nop()
	repo := &cacheRepository{
		DB:     &DB{DB: db, logger: l},
		logger: l,
	}
	return repo, mock, db
}

func TestCacheRepository_PutGet(t *testing.T) {
	repo, mock, db := newTestCacheRepo(t)
	defer db.Close()

	now := time.Now()
	entry := models.CachedResponse{
		Key:       "list:order",
		Payload:   []byte(`[{"id":"ord-1"}]`),
		FetchedAt: now,
		ExpiresAt: now.Add(time.Minute),
	}

	mock.ExpectExec("INSERT INTO response_cache").
		WithArgs(entry.Key, string(entry.Payload), entry.FetchedAt, entry.ExpiresAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Put(context.Background(), entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows := sqlmock.NewRows([]string{"cache_key", "payload", "fetched_at", "expires_at"}).
		AddRow(entry.Key, []byte(entry.Payload), entry.FetchedAt, entry.ExpiresAt)
	mock.ExpectQuery("SELECT (.+) FROM response_cache").
		WithArgs(entry.Key).
		WillReturnRows(rows)

	got, err := repo.Get(context.Background(), entry.Key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Key != entry.Key || string(got.Payload) != string(entry.Payload) {
		t.Errorf("unexpected entry: %+v", got)
	}
}

func TestCacheRepository_Get_Miss(t *testing.T) {
	repo, mock, db := newTestCacheRepo(t)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM response_cache").
		WithArgs("list:expense").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "list:expense")
	if !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestCacheRepository_Prune(t *testing.T) {
	repo, mock, db := newTestCacheRepo(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectExec("DELETE FROM response_cache").
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 2))

	if err := repo.Prune(context.Background(), now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func newTestSettingsRepo(t *testing.T) (*settingsRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	l := logger.Nop()
	repo := &settingsRepository{
		DB:     &DB{DB: db, logger: l},
		logger: l,
	}
	return repo, mock, db
}

func TestSettingsRepository_SetGet(t *testing.T) {
	repo, mock, db := newTestSettingsRepo(t)
	defer db.Close()

	mock.ExpectExec("INSERT INTO settings").
		WithArgs("auth_token", "jwt-value").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Set(context.Background(), "auth_token", "jwt-value"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mock.ExpectQuery("SELECT value FROM settings").
		WithArgs("auth_token").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("jwt-value"))

	value, err := repo.Get(context.Background(), "auth_token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "jwt-value" {
		t.Errorf("expected jwt-value, got %s", value)
	}
}

func TestSettingsRepository_Get_NotFound(t *testing.T) {
	repo, mock, db := newTestSettingsRepo(t)
	defer db.Close()

	mock.ExpectQuery("SELECT value FROM settings").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, ErrSettingNotFound) {
		t.Fatalf("expected ErrSettingNotFound, got %v", err)
	}
}
