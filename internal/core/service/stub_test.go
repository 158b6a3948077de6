package service

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/ecosdelcampo/fieldsync/internal/core/domain"
	"github.com/ecosdelcampo/fieldsync/internal/core/ports"
)

// memQueue is an in-memory QueueRepository for service tests.
type memQueue struct {
	mu     sync.Mutex
	nextID int64
	ops    []*domain.Operation
}

func (q *memQueue) Enqueue(_ context.Context, op *domain.Operation) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nextID++
	cp := *op
	cp.LocalID = q.nextID
	cp.Status = domain.StatusPending
	cp.CreatedAt = time.Now().UTC()
	q.ops = append(q.ops, &cp)
	return cp.LocalID, nil
}

func (q *memQueue) ListPending(_ context.Context) ([]*domain.Operation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*domain.Operation
	for _, op := range q.ops {
		if op.Status == domain.StatusPending {
			cp := *op
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (q *memQueue) ListPendingByKind(ctx context.Context, kind domain.OperationKind) ([]*domain.Operation, error) {
	all, _ := q.ListPending(ctx)
	var out []*domain.Operation
	for _, op := range all {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out, nil
}

func (q *memQueue) MarkSynced(_ context.Context, localID int64, remoteID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, op := range q.ops {
		if op.LocalID != localID {
			continue
		}
		if op.Status == domain.StatusSynced {
			return nil
		}
		now := time.Now().UTC()
		op.Status = domain.StatusSynced
		op.RemoteID = remoteID
		op.SyncedAt = &now
		return nil
	}
	return domain.ErrOperationNotFound
}

func (q *memQueue) Remove(_ context.Context, localID int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, op := range q.ops {
		if op.LocalID == localID {
			q.ops = append(q.ops[:i], q.ops[i+1:]...)
			return nil
		}
	}
	return domain.ErrOperationNotFound
}

func (q *memQueue) CountPending(ctx context.Context) (int64, error) {
	pending, _ := q.ListPending(ctx)
	return int64(len(pending)), nil
}

func (q *memQueue) PruneSynced(_ context.Context, olderThan time.Time) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var kept []*domain.Operation
	var removed int64
	for _, op := range q.ops {
		if op.Status == domain.StatusSynced && op.SyncedAt != nil && op.SyncedAt.Before(olderThan) {
			removed++
			continue
		}
		kept = append(kept, op)
	}
	q.ops = kept
	return removed, nil
}

func (q *memQueue) byID(localID int64) *domain.Operation {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, op := range q.ops {
		if op.LocalID == localID {
			return op
		}
	}
	return nil
}

type gwCall struct {
	Method   string
	Endpoint string
	Key      string
	Body     any
}

// scriptedGateway records every call and answers via the respond hook.
type scriptedGateway struct {
	mu      sync.Mutex
	calls   []gwCall
	respond func(call gwCall) (*ports.Response, error)
}

func (g *scriptedGateway) Request(_ context.Context, method, endpoint string, body any, opts ...ports.RequestOption) (*ports.Response, error) {
	var rc ports.RequestConfig
	for _, opt := range opts {
		opt(&rc)
	}
	call := gwCall{Method: method, Endpoint: endpoint, Key: rc.Header.Get("Idempotency-Key"), Body: body}

	g.mu.Lock()
	g.calls = append(g.calls, call)
	g.mu.Unlock()

	return g.respond(call)
}

func (g *scriptedGateway) recorded() []gwCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]gwCall(nil), g.calls...)
}

func jsonResponse(status int, v any) *ports.Response {
	b, _ := json.Marshal(v)
	return &ports.Response{Status: status, Header: http.Header{}, Body: b}
}

func offlineResponse() *ports.Response {
	return &ports.Response{Status: 0, Header: http.Header{}, Body: []byte(`{"message":"connection error"}`)}
}

// memCreds is an in-memory CredentialStore for service tests.
type memCreds struct {
	mu      sync.Mutex
	token   string
	user    domain.User
	hasUser bool
	cleared int
}

func (c *memCreds) Save(_ context.Context, token string, user domain.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.user = user
	c.hasUser = true
	return nil
}

func (c *memCreds) SaveToken(_ context.Context, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	return nil
}

func (c *memCreds) Credentials(_ context.Context) (*domain.Credentials, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" {
		return nil, domain.ErrNoCredentials
	}
	return &domain.Credentials{AccessToken: c.token, IssuedAt: time.Now().UTC(), User: c.user}, nil
}

func (c *memCreds) Token(_ context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" {
		return "", domain.ErrNoCredentials
	}
	return c.token, nil
}

func (c *memCreds) IsExpired(_ context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token == "", nil
}

func (c *memCreds) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.hasUser = false
	c.cleared++
	return nil
}
