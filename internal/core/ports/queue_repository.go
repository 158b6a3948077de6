package ports

import (
	"context"
	"time"

	"github.com/ecosdelcampo/fieldsync/internal/core/domain"
)

// QueueRepository is the durable local staging area for mutating operations
// that could not reach the server. Records must survive process restart.
type QueueRepository interface {
	// Enqueue persists op with status pending and assigns its LocalID and
	// CreatedAt. Storage failures are returned, never swallowed: silently
	// dropping a queued operation is the worst failure mode here.
	Enqueue(ctx context.Context, op *domain.Operation) (int64, error)

	// ListPending returns all pending operations across kinds in creation
	// order. Replay order follows this order: an offline order may reference
	// a product that was itself created offline.
	ListPending(ctx context.Context) ([]*domain.Operation, error)

	// ListPendingByKind returns pending operations of one kind, in creation order.
	ListPendingByKind(ctx context.Context, kind domain.OperationKind) ([]*domain.Operation, error)

	// MarkSynced transitions pending → synced and stamps SyncedAt and
	// RemoteID. Marking an already-synced record is a no-op; an unknown
	// LocalID returns domain.ErrOperationNotFound.
	MarkSynced(ctx context.Context, localID int64, remoteID string) error

	// Remove permanently deletes a record regardless of status.
	Remove(ctx context.Context, localID int64) error

	// CountPending returns the number of pending operations.
	CountPending(ctx context.Context) (int64, error)

	// PruneSynced deletes synced records older than the given time and
	// returns how many were removed.
	PruneSynced(ctx context.Context, olderThan time.Time) (int64, error)
}
