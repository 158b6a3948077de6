package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ecosdelcampo/fieldsync/internal/core/domain"
	"github.com/ecosdelcampo/fieldsync/internal/core/ports"
	"github.com/ecosdelcampo/fieldsync/internal/pkg/bus"
)

func queueOrder(t *testing.T, q *memQueue, key string) int64 {
	t.Helper()
	id, err := q.Enqueue(context.Background(), &domain.Operation{
		Kind:           domain.KindOrder,
		IdempotencyKey: key,
		Order:          &domain.OrderPayload{ProductID: "p1", Quantity: 1, Price: 2, FarmerID: "f1"},
	})
	if err != nil {
		t.Fatalf("enqueue order: %v", err)
	}
	return id
}

func queueProduct(t *testing.T, q *memQueue, key, name string) int64 {
	t.Helper()
	id, err := q.Enqueue(context.Background(), &domain.Operation{
		Kind:           domain.KindProduct,
		IdempotencyKey: key,
		Product:        &domain.ProductPayload{Name: name, Price: 3.5, Stock: 100, Unit: "kg"},
	})
	if err != nil {
		t.Fatalf("enqueue product: %v", err)
	}
	return id
}

func acceptAll(call gwCall) (*ports.Response, error) {
	if call.Endpoint == endpointOrders {
		return jsonResponse(201, map[string]any{"order": map[string]string{"_id": "ro-" + call.Key}}), nil
	}
	return jsonResponse(201, map[string]any{"product": map[string]string{"_id": "rp-" + call.Key}}), nil
}

func TestSyncService_ReplaysInCreationOrder(t *testing.T) {
	q := &memQueue{}
	gw := &scriptedGateway{respond: acceptAll}
	svc := NewSyncService(q, gw, bus.New(), zerolog.Nop())

	prodID := queueProduct(t, q, "k1", "Tomatoes")
	orderID := queueOrder(t, q, "k2")

	report, err := svc.Sync(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if report.ProductsSynced != 1 || report.OrdersSynced != 1 || report.Failed != 0 {
		t.Errorf("unexpected report: %+v", report)
	}

	calls := gw.recorded()
	if len(calls) != 2 {
		t.Fatalf("expected 2 replays, got %d", len(calls))
	}
	// The product was queued first; an order may reference it, so it must be
	// replayed first.
	if calls[0].Endpoint != endpointProducts || calls[1].Endpoint != endpointOrders {
		t.Errorf("replay out of creation order: %s then %s", calls[0].Endpoint, calls[1].Endpoint)
	}
	if calls[0].Key != "k1" || calls[1].Key != "k2" {
		t.Errorf("idempotency keys not forwarded: %q %q", calls[0].Key, calls[1].Key)
	}

	if op := q.byID(prodID); op.Status != domain.StatusSynced || op.RemoteID != "rp-k1" {
		t.Errorf("product not marked synced: %+v", op)
	}
	if op := q.byID(orderID); op.Status != domain.StatusSynced || op.RemoteID != "ro-k2" {
		t.Errorf("order not marked synced: %+v", op)
	}
}

func TestSyncService_PartialFailureKeepsGoing(t *testing.T) {
	q := &memQueue{}
	gw := &scriptedGateway{respond: func(call gwCall) (*ports.Response, error) {
		if call.Key == "bad" {
			return jsonResponse(500, map[string]string{"message": "boom"}), nil
		}
		return acceptAll(call)
	}}
	svc := NewSyncService(q, gw, bus.New(), zerolog.Nop())

	first := queueProduct(t, q, "ok1", "Tomatoes")
	stuck := queueProduct(t, q, "bad", "Beans")
	last := queueOrder(t, q, "ok2")

	report, err := svc.Sync(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if report.ProductsSynced != 1 || report.OrdersSynced != 1 || report.Failed != 1 {
		t.Errorf("unexpected report: %+v", report)
	}
	if len(gw.recorded()) != 3 {
		t.Errorf("a mid-pass failure must not abort the rest, got %d calls", len(gw.recorded()))
	}

	if op := q.byID(first); op.Status != domain.StatusSynced {
		t.Errorf("first op should be synced: %+v", op)
	}
	if op := q.byID(stuck); op.Status != domain.StatusPending {
		t.Errorf("rejected op must stay pending for the next pass: %+v", op)
	}
	if op := q.byID(last); op.Status != domain.StatusSynced {
		t.Errorf("op after the failure should be synced: %+v", op)
	}
}

func TestSyncService_RejectedItemRetriedNextPass(t *testing.T) {
	q := &memQueue{}
	var healthy bool
	gw := &scriptedGateway{respond: func(call gwCall) (*ports.Response, error) {
		if !healthy {
			return offlineResponse(), nil
		}
		return acceptAll(call)
	}}
	svc := NewSyncService(q, gw, bus.New(), zerolog.Nop())

	id := queueProduct(t, q, "k1", "Tomatoes")

	report, err := svc.Sync(context.Background())
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if report.Failed != 1 || q.byID(id).Status != domain.StatusPending {
		t.Fatalf("offline replay must keep the record pending: %+v", report)
	}

	healthy = true
	report, err = svc.Sync(context.Background())
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if report.ProductsSynced != 1 || q.byID(id).Status != domain.StatusSynced {
		t.Errorf("record not drained on the retry pass: %+v", report)
	}
}

func TestSyncService_SingleFlight(t *testing.T) {
	q := &memQueue{}
	queueOrder(t, q, "k1")

	release := make(chan struct{})
	entered := make(chan struct{})
	var once sync.Once
	gw := &scriptedGateway{respond: func(call gwCall) (*ports.Response, error) {
		once.Do(func() { close(entered) })
		<-release
		return acceptAll(call)
	}}
	svc := NewSyncService(q, gw, bus.New(), zerolog.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := svc.Sync(context.Background())
		done <- err
	}()

	<-entered
	if !svc.Syncing() {
		t.Error("Syncing() should report true while a pass is in flight")
	}
	if _, err := svc.Sync(context.Background()); !errors.Is(err, domain.ErrSyncInProgress) {
		t.Errorf("overlapping trigger: expected ErrSyncInProgress, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if svc.Syncing() {
		t.Error("Syncing() should report false after the pass")
	}
	if len(gw.recorded()) != 1 {
		t.Errorf("the dropped trigger must not add replays, got %d", len(gw.recorded()))
	}
}

func TestSyncService_EmptyQueuePublishesNothing(t *testing.T) {
	b := bus.New()
	var events int
	b.Subscribe(domain.EventSyncCompleted, func(any) { events++ })

	gw := &scriptedGateway{respond: acceptAll}
	svc := NewSyncService(&memQueue{}, gw, b, zerolog.Nop())

	report, err := svc.Sync(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if report.OrdersSynced+report.ProductsSynced+report.Failed != 0 {
		t.Errorf("expected empty report, got %+v", report)
	}
	if events != 0 {
		t.Error("an empty pass must not publish a completion event")
	}
	if len(gw.recorded()) != 0 {
		t.Error("an empty pass must not hit the gateway")
	}
}

func TestSyncService_BindDrainsOnReconnect(t *testing.T) {
	b := bus.New()
	q := &memQueue{}
	gw := &scriptedGateway{respond: acceptAll}
	svc := NewSyncService(q, gw, b, zerolog.Nop())
	svc.Bind()

	var received *ports.SyncReport
	b.Subscribe(domain.EventSyncCompleted, func(payload any) {
		received, _ = payload.(*ports.SyncReport)
	})

	// A farmer adds a product while offline, then connectivity returns.
	// Bus delivery is synchronous, so the pass completes before Publish returns.
	id := queueProduct(t, q, "k1", "Tomatoes")
	b.Publish(domain.EventOnline, nil)

	if received == nil {
		t.Fatal("no completion event after reconnect")
	}
	if received.ProductsSynced != 1 || received.Failed != 0 {
		t.Errorf("unexpected report: %+v", received)
	}

	op := q.byID(id)
	if op.Status != domain.StatusSynced || op.RemoteID != "rp-k1" {
		t.Errorf("queued product not drained: %+v", op)
	}
	if n, _ := q.CountPending(context.Background()); n != 0 {
		t.Errorf("expected empty queue, %d left", n)
	}
}

func TestSyncService_UnknownKindCountsAsFailed(t *testing.T) {
	q := &memQueue{}
	q.ops = append(q.ops, &domain.Operation{
		LocalID: 1,
		Kind:    domain.OperationKind("mystery"),
		Status:  domain.StatusPending,
	})
	gw := &scriptedGateway{respond: func(gwCall) (*ports.Response, error) {
		return nil, fmt.Errorf("must not be called")
	}}
	svc := NewSyncService(q, gw, bus.New(), zerolog.Nop())

	report, err := svc.Sync(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if report.Failed != 1 {
		t.Errorf("unknown kind should count as failed, got %+v", report)
	}
	if len(gw.recorded()) != 0 {
		t.Error("unknown kind must not reach the gateway")
	}
}
