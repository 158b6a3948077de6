package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ecosdelcampo/fieldsync/internal/core/domain"
)

// QueueRepository persists queued operations. Records are created by the
// submit services and mutated only by the sync coordinator (the single
// pending → synced transition); no other component writes them.
type QueueRepository struct {
	db *sql.DB
}

func NewQueueRepository(db *sql.DB) *QueueRepository {
	return &QueueRepository{db: db}
}

// Enqueue inserts op with status pending and assigns LocalID and CreatedAt.
func (r *QueueRepository) Enqueue(ctx context.Context, op *domain.Operation) (int64, error) {
	if err := op.Validate(); err != nil {
		return 0, err
	}

	payload, err := marshalPayload(op)
	if err != nil {
		return 0, err
	}

	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now().UTC()
	}
	op.Status = domain.StatusPending

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO queued_operations (kind, payload, status, idempotency_key, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		string(op.Kind), payload, string(op.Status), op.IdempotencyKey, op.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("queue enqueue: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("queue enqueue: %w", err)
	}
	op.LocalID = id
	return id, nil
}

// ListPending returns all pending operations across kinds in creation order.
func (r *QueueRepository) ListPending(ctx context.Context) ([]*domain.Operation, error) {
	return r.list(ctx,
		`SELECT id, kind, payload, status, idempotency_key, created_at, synced_at, remote_id
		 FROM queued_operations WHERE status = ? ORDER BY created_at, id`,
		string(domain.StatusPending))
}

// ListPendingByKind returns pending operations of one kind in creation order.
func (r *QueueRepository) ListPendingByKind(ctx context.Context, kind domain.OperationKind) ([]*domain.Operation, error) {
	return r.list(ctx,
		`SELECT id, kind, payload, status, idempotency_key, created_at, synced_at, remote_id
		 FROM queued_operations WHERE status = ? AND kind = ? ORDER BY created_at, id`,
		string(domain.StatusPending), string(kind))
}

// MarkSynced transitions pending → synced. Idempotent: a second call on the
// same id is a no-op that preserves the original remote id and timestamp.
func (r *QueueRepository) MarkSynced(ctx context.Context, localID int64, remoteID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE queued_operations SET status = ?, synced_at = ?, remote_id = ?
		 WHERE id = ? AND status = ?`,
		string(domain.StatusSynced), time.Now().UTC().UnixMilli(), remoteID,
		localID, string(domain.StatusPending),
	)
	if err != nil {
		return fmt.Errorf("queue mark synced: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("queue mark synced: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// Nothing updated: either the record is already synced (no-op) or absent.
	var status string
	err = r.db.QueryRowContext(ctx,
		`SELECT status FROM queued_operations WHERE id = ?`, localID,
	).Scan(&status)
	if err == sql.ErrNoRows {
		return domain.ErrOperationNotFound
	}
	if err != nil {
		return fmt.Errorf("queue mark synced: %w", err)
	}
	return nil
}

// Remove permanently deletes a record regardless of status.
func (r *QueueRepository) Remove(ctx context.Context, localID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM queued_operations WHERE id = ?`, localID)
	if err != nil {
		return fmt.Errorf("queue remove: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("queue remove: %w", err)
	}
	if affected == 0 {
		return domain.ErrOperationNotFound
	}
	return nil
}

// CountPending returns the number of pending operations.
func (r *QueueRepository) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM queued_operations WHERE status = ?`,
		string(domain.StatusPending),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("queue count pending: %w", err)
	}
	return n, nil
}

// PruneSynced deletes synced records older than olderThan. Retention policy
// is mark-and-keep; this is the external pruning hook.
func (r *QueueRepository) PruneSynced(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM queued_operations WHERE status = ? AND synced_at < ?`,
		string(domain.StatusSynced), olderThan.UTC().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("queue prune: %w", err)
	}
	return res.RowsAffected()
}

func (r *QueueRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Operation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("queue list: %w", err)
	}
	defer rows.Close()

	var ops []*domain.Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("queue list: %w", err)
	}
	return ops, nil
}

func scanOperation(rows *sql.Rows) (*domain.Operation, error) {
	var (
		op        domain.Operation
		kind      string
		payload   []byte
		status    string
		createdAt int64
		syncedAt  sql.NullInt64
		remoteID  sql.NullString
	)
	if err := rows.Scan(&op.LocalID, &kind, &payload, &status, &op.IdempotencyKey,
		&createdAt, &syncedAt, &remoteID); err != nil {
		return nil, fmt.Errorf("queue scan: %w", err)
	}

	op.Kind = domain.OperationKind(kind)
	op.Status = domain.OperationStatus(status)
	op.CreatedAt = time.UnixMilli(createdAt).UTC()
	if syncedAt.Valid {
		t := time.UnixMilli(syncedAt.Int64).UTC()
		op.SyncedAt = &t
	}
	if remoteID.Valid {
		op.RemoteID = remoteID.String
	}

	if err := unmarshalPayload(&op, payload); err != nil {
		return nil, err
	}
	return &op, nil
}

func marshalPayload(op *domain.Operation) ([]byte, error) {
	var v any
	switch op.Kind {
	case domain.KindOrder:
		v = op.Order
	case domain.KindProduct:
		v = op.Product
	default:
		return nil, domain.ErrPayloadMismatch
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("queue payload marshal: %w", err)
	}
	return b, nil
}

func unmarshalPayload(op *domain.Operation, payload []byte) error {
	switch op.Kind {
	case domain.KindOrder:
		op.Order = &domain.OrderPayload{}
		if err := json.Unmarshal(payload, op.Order); err != nil {
			return fmt.Errorf("queue payload unmarshal: %w", err)
		}
	case domain.KindProduct:
		op.Product = &domain.ProductPayload{}
		if err := json.Unmarshal(payload, op.Product); err != nil {
			return fmt.Errorf("queue payload unmarshal: %w", err)
		}
	default:
		return domain.ErrPayloadMismatch
	}
	return nil
}
