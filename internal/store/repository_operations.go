package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/fieldledger/fieldledger/internal/logger"
	"github.com/fieldledger/fieldledger/models"
)

type operationRepository struct {
	*DB
	logger *logger.Logger
}

func NewOperationRepository(db *DB, logger *logger.Logger) OperationRepository {
	return &operationRepository{
		DB:     db,
		logger: logger,
	}
}

func (o *operationRepository) Insert(ctx context.Context, op models.Operation) error {
	log := logger.FromContext(ctx)

	_, err := o.DB.ExecContext(ctx, insertOperation,
		op.OperationID,
		op.Type,
		op.ID,
		op.Kind,
		string(op.Payload),
		op.EnqueuedAt,
		op.RetryCount,
	)
	if err != nil {
		log.Err(err).
			Str("func", "operationRepository.Insert").
			Str("operation_id", op.OperationID).
			Str("identity", op.Identity.String()).
			Msg("failed to insert queued operation")
		return fmt.Errorf("failed to insert operation %s: %w", op.OperationID, storageError(err))
	}

	return nil
}

func (o *operationRepository) ListAll(ctx context.Context) ([]models.Operation, error) {
	return o.queryOperations(ctx, "operationRepository.ListAll", getAllOperations)
}

func (o *operationRepository) ListByIdentity(ctx context.Context, id models.Identity) ([]models.Operation, error) {
	return o.queryOperations(ctx, "operationRepository.ListByIdentity", getOperationsByIdentity, id.Type, id.ID)
}

func (o *operationRepository) queryOperations(ctx context.Context, caller, query string, args ...any) ([]models.Operation, error) {
	log := logger.FromContext(ctx)

	rows, err := o.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", caller).
			Msg("failed to execute query for queued operations")
		return nil, fmt.Errorf("failed to query queued operations: %w", storageError(err))
	}
	defer rows.Close()

	var ops []models.Operation
	for rows.Next() {
		var (
			op      models.Operation
			payload []byte
		)
		scanErr := rows.Scan(
			&op.OperationID,
			&op.Type,
			&op.ID,
			&op.Kind,
			&payload,
			&op.EnqueuedAt,
			&op.RetryCount,
		)
		if scanErr != nil {
			log.Err(scanErr).
				Str("func", caller).
				Msg("failed to scan queued operation row")
			return nil, fmt.Errorf("failed to scan queued operation row: %w", storageError(scanErr))
		}
		op.Payload = payload
		ops = append(ops, op)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		log.Err(rowsErr).
			Str("func", caller).
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("error iterating queued operation rows: %w", storageError(rowsErr))
	}

	return ops, nil
}

func (o *operationRepository) Remove(ctx context.Context, operationID string) error {
	log := logger.FromContext(ctx)

	_, err := o.DB.ExecContext(ctx, removeOperation, operationID)
	if err != nil {
		log.Err(err).
			Str("func", "operationRepository.Remove").
			Str("operation_id", operationID).
			Msg("failed to remove queued operation")
		return fmt.Errorf("failed to remove operation %s: %w", operationID, storageError(err))
	}

	return nil
}

func (o *operationRepository) RemoveByIdentity(ctx context.Context, id models.Identity) (int64, error) {
	log := logger.FromContext(ctx)

	query, args, err := sq.Delete("pending_operations").
		Where(sq.Eq{"record_type": id.Type, "record_id": id.ID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	result, err := o.DB.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "operationRepository.RemoveByIdentity").
			Str("identity", id.String()).
			Msg("failed to remove queued operations for identity")
		return 0, fmt.Errorf("failed to remove operations for %s: %w", id, storageError(err))
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected for %s: %w", id, storageError(err))
	}

	return removed, nil
}

func (o *operationRepository) SetRetryCount(ctx context.Context, operationID string, retryCount int) error {
	log := logger.FromContext(ctx)

	result, err := o.DB.ExecContext(ctx, setOperationRetryCount, retryCount, operationID)
	if err != nil {
		log.Err(err).
			Str("func", "operationRepository.SetRetryCount").
			Str("operation_id", operationID).
			Msg("failed to update retry count")
		return fmt.Errorf("failed to set retry count for %s: %w", operationID, storageError(err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for %s: %w", operationID, storageError(err))
	}
	if affected == 0 {
		return fmt.Errorf("operation %s: %w", operationID, ErrOperationNotFound)
	}

	return nil
}

func (o *operationRepository) Count(ctx context.Context) (int64, error) {
	log := logger.FromContext(ctx)

	query, args, err := sq.Select("COUNT(*)").From("pending_operations").ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var count int64
	if err = o.DB.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		log.Err(err).
			Str("func", "operationRepository.Count").
			Msg("failed to count queued operations")
		return 0, fmt.Errorf("failed to count queued operations: %w", storageError(err))
	}

	return count, nil
}

func (o *operationRepository) Clear(ctx context.Context) error {
	log := logger.FromContext(ctx)

	query, _, err := sq.Delete("pending_operations").ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = o.DB.ExecContext(ctx, query); err != nil {
		log.Err(err).
			Str("func", "operationRepository.Clear").
			Msg("failed to clear pending-operation log")
		return fmt.Errorf("failed to clear pending-operation log: %w", storageError(err))
	}

	return nil
}
