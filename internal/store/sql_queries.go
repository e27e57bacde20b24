// SPDX-License-Identifier: Apache-2.0

package store

const (
	upsertRecord = `
		INSERT INTO records (
			record_type,
			record_id,
			payload,
			last_write_at,
			synced,
			source_op,
			local_op_id,
			deleted
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (record_type, record_id) DO UPDATE SET
			payload       = excluded.payload,
			last_write_at = excluded.last_write_at,
			synced        = excluded.synced,
			source_op     = excluded.source_op,
			local_op_id   = excluded.local_op_id,
			deleted       = excluded.deleted;`

	getSingleRecord = `
		SELECT
			record_type,
			record_id,
			payload,
			last_write_at,
			synced,
			source_op,
			local_op_id,
			deleted
		FROM records
		WHERE record_type = ? AND record_id = ?;`

	removeRecord = `
		DELETE FROM records
		WHERE record_type = ? AND record_id = ?;`

	insertOperation = `
		INSERT INTO pending_operations (
			operation_id,
			record_type,
			record_id,
			kind,
			payload,
			enqueued_at,
			retry_count
		) VALUES (?, ?, ?, ?, ?, ?, ?);`

	getAllOperations = `
		SELECT
			operation_id,
			record_type,
			record_id,
			kind,
			payload,
			enqueued_at,
			retry_count
		FROM pending_operations
		ORDER BY seq;`

	getOperationsByIdentity = `
		SELECT
			operation_id,
			record_type,
			record_id,
			kind,
			payload,
			enqueued_at,
			retry_count
		FROM pending_operations
		WHERE record_type = ? AND record_id = ?
		ORDER BY seq;`

	removeOperation = `
		DELETE FROM pending_operations
		WHERE operation_id = ?;`

	setOperationRetryCount = `
		UPDATE pending_operations
		SET retry_count = ?
		WHERE operation_id = ?;`

	upsertCacheEntry = `
		INSERT INTO response_cache (cache_key, payload, fetched_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (cache_key) DO UPDATE SET
			payload    = excluded.payload,
			fetched_at = excluded.fetched_at,
			expires_at = excluded.expires_at;`

	getCacheEntry = `
		SELECT cache_key, payload, fetched_at, expires_at
		FROM response_cache
		WHERE cache_key = ?;`

	upsertSetting = `
		INSERT INTO settings (key, value)
		VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value;`

	getSetting = `
		SELECT value
		FROM settings
		WHERE key = ?;`
)
