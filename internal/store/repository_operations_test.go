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

func newTestOperationRepo(t *testing.T) (*operationRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	l := logger.Nop()
	repo := &operationRepository{
		DB:     &DB{DB: db, logger: l},
		logger: l,
	}
	return repo, mock, db
}

func operationColumns() []string {
	return []string{"operation_id", "record_type", "record_id", "kind", "payload", "enqueued_at", "retry_count"}
}

func TestOperationRepository_Insert_Success(t *testing.T) {
	repo, mock, db := newTestOperationRepo(t)
	defer db.Close()

	op := models.Operation{
		OperationID: "op-1",
		Identity:    models.Identity{Type: models.TypeOrder, ID: "ord-1"},
		Kind:        models.OpCreate,
		Payload:     []byte(`{"total":12}`),
		EnqueuedAt:  time.Now(),
	}

	mock.ExpectExec("INSERT INTO pending_operations").
		WithArgs(op.OperationID, op.Type, op.ID, op.Kind, string(op.Payload), op.EnqueuedAt, op.RetryCount).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Insert(context.Background(), op); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOperationRepository_ListAll_EnqueueOrder(t *testing.T) {
	repo, mock, db := newTestOperationRepo(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows(operationColumns()).
		AddRow("op-1", "order", "ord-1", "create", []byte(`{}`), now, 0).
		AddRow("op-2", "expense", "exp-1", "delete", []byte(`{}`), now.Add(time.Second), 2)

	mock.ExpectQuery("SELECT (.+) FROM pending_operations ORDER BY seq").
		WillReturnRows(rows)

	ops, err := repo.ListAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("expected 2 operations, got %d", len(ops))
	}
	if ops[0].OperationID != "op-1" || ops[1].Kind != models.OpDelete || ops[1].RetryCount != 2 {
		t.Errorf("unexpected operations: %+v", ops)
	}
}

func TestOperationRepository_ListByIdentity(t *testing.T) {
	repo, mock, db := newTestOperationRepo(t)
	defer db.Close()

	rows := sqlmock.NewRows(operationColumns()).
		AddRow("op-9", "order", "ord-1", "update", []byte(`{"total":20}`), time.Now(), 1)

	mock.ExpectQuery("SELECT (.+) FROM pending_operations WHERE record_type = \\? AND record_id = \\?").
		WithArgs(models.TypeOrder, "ord-1").
		WillReturnRows(rows)

	ops, err := repo.ListByIdentity(context.Background(), models.Identity{Type: models.TypeOrder, ID: "ord-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ops) != 1 || ops[0].OperationID != "op-9" {
		t.Fatalf("unexpected operations: %+v", ops)
	}
}

func TestOperationRepository_RemoveByIdentity_ReportsCount(t *testing.T) {
	repo, mock, db := newTestOperationRepo(t)
	defer db.Close()

	mock.ExpectExec("DELETE FROM pending_operations").
		WithArgs("ord-1", models.TypeOrder).
		WillReturnResult(sqlmock.NewResult(0, 2))

	removed, err := repo.RemoveByIdentity(context.Background(), models.Identity{Type: models.TypeOrder, ID: "ord-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}
}

func TestOperationRepository_SetRetryCount_NotFound(t *testing.T) {
	repo, mock, db := newTestOperationRepo(t)
	defer db.Close()

	mock.ExpectExec("UPDATE pending_operations").
		WithArgs(1, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetRetryCount(context.Background(), "missing", 1)
	if !errors.Is(err, ErrOperationNotFound) {
		t.Fatalf("expected ErrOperationNotFound, got %v", err)
	}
}

func TestOperationRepository_SetRetryCount_Success(t *testing.T) {
	repo, mock, db := newTestOperationRepo(t)
	defer db.Close()

	mock.ExpectExec("UPDATE pending_operations").
		WithArgs(2, "op-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetRetryCount(context.Background(), "op-1", 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOperationRepository_Count(t *testing.T) {
	repo, mock, db := newTestOperationRepo(t)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM pending_operations").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 4 {
		t.Errorf("expected count 4, got %d", count)
	}
}

func TestOperationRepository_Clear(t *testing.T) {
	repo, mock, db := newTestOperationRepo(t)
	defer db.Close()

	mock.ExpectExec("DELETE FROM pending_operations").
		WillReturnResult(sqlmock.NewResult(0, 4))

	if err := repo.Clear(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
