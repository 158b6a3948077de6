package service

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ecosdelcampo/fieldsync/internal/api/metrics"
	"github.com/ecosdelcampo/fieldsync/internal/core/domain"
	"github.com/ecosdelcampo/fieldsync/internal/core/ports"
	"github.com/ecosdelcampo/fieldsync/internal/pkg/bus"
)

const (
	endpointOrders   = "/orders"
	endpointProducts = "/products"
)

// SyncService drains the offline queue against the gateway when connectivity
// returns. At most one pass runs at a time; a second trigger while a pass is
// in flight is dropped, not queued.
type SyncService struct {
	queue   ports.QueueRepository
	gateway ports.Gateway
	bus     *bus.Bus
	log     zerolog.Logger
	syncing atomic.Bool
}

func NewSyncService(queue ports.QueueRepository, gw ports.Gateway, b *bus.Bus, log zerolog.Logger) *SyncService {
	return &SyncService{queue: queue, gateway: gw, bus: b, log: log}
}

// Bind subscribes the coordinator to connectivity-restored events.
func (s *SyncService) Bind() {
	s.bus.Subscribe(domain.EventOnline, func(any) {
		if _, err := s.Sync(context.Background()); err != nil && !errors.Is(err, domain.ErrSyncInProgress) {
			s.log.Error().Err(err).Msg("sync pass failed")
		}
	})
}

// Syncing reports whether a pass is currently in flight.
func (s *SyncService) Syncing() bool {
	return s.syncing.Load()
}

// Sync runs one pass over a snapshot of the pending queue, strictly in
// creation order. Items enqueued during the pass wait for the next trigger.
func (s *SyncService) Sync(ctx context.Context) (*ports.SyncReport, error) {
	if !s.syncing.CompareAndSwap(false, true) {
		return nil, domain.ErrSyncInProgress
	}
	defer s.syncing.Store(false)

	report := &ports.SyncReport{StartedAt: time.Now().UTC()}

	pending, err := s.queue.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		report.FinishedAt = time.Now().UTC()
		return report, nil
	}

	s.log.Info().Int("pending", len(pending)).Msg("starting sync pass")
	timer := time.Now()

	// Sequential on purpose: an offline order may reference a product that
	// was itself created offline earlier in the queue.
	for _, op := range pending {
		if s.replay(ctx, op) {
			switch op.Kind {
			case domain.KindOrder:
				report.OrdersSynced++
			case domain.KindProduct:
				report.ProductsSynced++
			}
			metrics.OperationsSyncedTotal.WithLabelValues(string(op.Kind)).Inc()
		} else {
			report.Failed++
			metrics.OperationsFailedTotal.WithLabelValues(string(op.Kind)).Inc()
		}
	}

	report.FinishedAt = time.Now().UTC()
	metrics.SyncPassDuration.Observe(time.Since(timer).Seconds())
	if n, err := s.queue.CountPending(ctx); err == nil {
		metrics.QueuePendingOperations.Set(float64(n))
	}

	s.log.Info().
		Int("orders_synced", report.OrdersSynced).
		Int("products_synced", report.ProductsSynced).
		Int("failed", report.Failed).
		Msg("sync pass completed")

	s.bus.Publish(domain.EventSyncCompleted, report)
	return report, nil
}

// replay submits one queued operation. A false return leaves the record
// pending; failure of one item never aborts the rest of the pass.
func (s *SyncService) replay(ctx context.Context, op *domain.Operation) bool {
	var (
		endpoint string
		body     any
	)
	switch op.Kind {
	case domain.KindOrder:
		endpoint, body = endpointOrders, op.Order
	case domain.KindProduct:
		endpoint, body = endpointProducts, op.Product
	default:
		s.log.Error().Int64("local_id", op.LocalID).Str("kind", string(op.Kind)).Msg("unknown operation kind")
		return false
	}

	resp, err := s.gateway.Request(ctx, http.MethodPost, endpoint, body,
		ports.WithHeader("Idempotency-Key", op.IdempotencyKey))
	if err != nil {
		s.log.Warn().Err(err).Int64("local_id", op.LocalID).Msg("replay interrupted")
		return false
	}
	if !resp.OK() {
		s.log.Warn().
			Int64("local_id", op.LocalID).
			Int("status", resp.Status).
			Msg("replay rejected, keeping pending")
		return false
	}

	remoteID, err := decodeRemoteID(op.Kind, resp)
	if err != nil {
		s.log.Error().Err(err).Int64("local_id", op.LocalID).Msg("replay response unreadable")
		return false
	}

	if err := s.queue.MarkSynced(ctx, op.LocalID, remoteID); err != nil {
		s.log.Error().Err(err).Int64("local_id", op.LocalID).Msg("failed to mark operation synced")
		return false
	}

	s.log.Info().
		Int64("local_id", op.LocalID).
		Str("remote_id", remoteID).
		Str("kind", string(op.Kind)).
		Msg("operation synced")
	return true
}

func decodeRemoteID(kind domain.OperationKind, resp *ports.Response) (string, error) {
	var out struct {
		Order struct {
			ID string `json:"_id"`
		} `json:"order"`
		Product struct {
			ID string `json:"_id"`
		} `json:"product"`
	}
	if err := resp.DecodeJSON(&out); err != nil {
		return "", err
	}
	if kind == domain.KindOrder {
		return out.Order.ID, nil
	}
	return out.Product.ID, nil
}
