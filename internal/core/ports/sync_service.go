package ports

import (
	"context"
	"time"
)

// SyncReport summarizes one completed sync pass. It is also the payload of
// the sync.completed bus event.
type SyncReport struct {
	OrdersSynced   int       `json:"orders_synced"`
	ProductsSynced int       `json:"products_synced"`
	Failed         int       `json:"failed"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

// SyncService drains the offline queue against the gateway.
type SyncService interface {
	// Sync runs one pass over the pending operations snapshot, in creation
	// order, sequentially. Per-item failures leave the record pending and do
	// not abort the pass. Returns domain.ErrSyncInProgress when a pass is
	// already running (the trigger is dropped, not queued).
	Sync(ctx context.Context) (*SyncReport, error)

	// Syncing reports whether a pass is currently in flight.
	Syncing() bool
}
