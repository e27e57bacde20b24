package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/fieldledger/fieldledger/internal/logger"
	"github.com/fieldledger/fieldledger/models"
)

type recordRepository struct {
	*DB
	logger *logger.Logger
}

func NewRecordRepository(db *DB, logger *logger.Logger) RecordRepository {
	return &recordRepository{
		DB:     db,
		logger: logger,
	}
}

// storageError marks a SQL-level failure as a storage-unavailable condition
// while preserving the driver cause for errors.Is / errors.As.
func storageError(err error) error {
	return errors.Join(ErrStorageUnavailable, err)
}

func (r *recordRepository) Put(ctx context.Context, record models.Record) error {
	log := logger.FromContext(ctx)

	_, err := r.DB.ExecContext(ctx, upsertRecord,
		record.Type,
		record.ID,
		string(record.Payload),
		record.LastWriteAt,
		record.Synced,
		record.SourceOp,
		record.LocalOpID,
		record.Deleted,
	)
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.Put").
			Str("identity", record.Identity.String()).
			Msg("failed to execute upsert for record")
		return fmt.Errorf("failed to put record %s: %w", record.Identity, storageError(err))
	}

	return nil
}

func (r *recordRepository) Get(ctx context.Context, id models.Identity) (models.Record, error) {
	log := logger.FromContext(ctx)

	row := r.DB.QueryRowContext(ctx, getSingleRecord, id.Type, id.ID)

	record, err := scanRecord(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Record{}, fmt.Errorf("record %s: %w", id, ErrRecordNotFound)
		}
		log.Err(err).
			Str("func", "recordRepository.Get").
			Str("identity", id.String()).
			Msg("failed to scan record row")
		return models.Record{}, fmt.Errorf("failed to get record %s: %w", id, storageError(err))
	}

	return record, nil
}

func (r *recordRepository) List(ctx context.Context, t models.RecordType, synced *bool) ([]models.Record, error) {
	log := logger.FromContext(ctx)

	builder := sq.Select(
		"record_type", "record_id", "payload", "last_write_at",
		"synced", "source_op", "local_op_id", "deleted",
	).
		From("records").
		Where(sq.Eq{"record_type": t}).
		OrderBy("last_write_at")
	if synced != nil {
		builder = builder.Where(sq.Eq{"synced": *synced})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.List").
			Str("record_type", string(t)).
			Msg("failed to execute query for listing records")
		return nil, fmt.Errorf("failed to list records of type %s: %w", t, storageError(err))
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		record, scanErr := scanRecord(rows.Scan)
		if scanErr != nil {
			log.Err(scanErr).
				Str("func", "recordRepository.List").
				Str("record_type", string(t)).
				Msg("failed to scan record row")
			return nil, fmt.Errorf("failed to scan record row: %w", storageError(scanErr))
		}
		records = append(records, record)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		log.Err(rowsErr).
			Str("func", "recordRepository.List").
			Str("record_type", string(t)).
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("error iterating record rows: %w", storageError(rowsErr))
	}

	return records, nil
}

func (r *recordRepository) Remove(ctx context.Context, id models.Identity) error {
	log := logger.FromContext(ctx)

	_, err := r.DB.ExecContext(ctx, removeRecord, id.Type, id.ID)
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.Remove").
			Str("identity", id.String()).
			Msg("failed to execute delete for record")
		return fmt.Errorf("failed to remove record %s: %w", id, storageError(err))
	}

	return nil
}

func (r *recordRepository) RemoveSynced(ctx context.Context, t models.RecordType) error {
	log := logger.FromContext(ctx)

	query, args, err := sq.Delete("records").
		Where(sq.Eq{"record_type": t, "synced": true}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = r.DB.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).
			Str("func", "recordRepository.RemoveSynced").
			Str("record_type", string(t)).
			Msg("failed to wipe synced subset")
		return fmt.Errorf("failed to remove synced records of type %s: %w", t, storageError(err))
	}

	return nil
}

func (r *recordRepository) Clear(ctx context.Context, t models.RecordType) error {
	log := logger.FromContext(ctx)

	query, args, err := sq.Delete("records").
		Where(sq.Eq{"record_type": t}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	if _, err = r.DB.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).
			Str("func", "recordRepository.Clear").
			Str("record_type", string(t)).
			Msg("failed to clear collection")
		return fmt.Errorf("failed to clear collection %s: %w", t, storageError(err))
	}

	return nil
}

func (r *recordRepository) Count(ctx context.Context, t models.RecordType) (int64, error) {
	log := logger.FromContext(ctx)

	query, args, err := sq.Select("COUNT(*)").
		From("records").
		Where(sq.Eq{"record_type": t}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var count int64
	if err = r.DB.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		log.Err(err).
			Str("func", "recordRepository.Count").
			Str("record_type", string(t)).
			Msg("failed to count collection")
		return 0, fmt.Errorf("failed to count collection %s: %w", t, storageError(err))
	}

	return count, nil
}

func scanRecord(scan func(dest ...any) error) (models.Record, error) {
	var (
		record  models.Record
		payload []byte
	)
	err := scan(
		&record.Type,
		&record.ID,
		&payload,
		&record.LastWriteAt,
		&record.Synced,
		&record.SourceOp,
		&record.LocalOpID,
		&record.Deleted,
	)
	if err != nil {
		return models.Record{}, err
	}
	record.Payload = payload
	return record, nil
}
