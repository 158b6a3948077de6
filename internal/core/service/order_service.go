package service

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ecosdelcampo/fieldsync/internal/core/domain"
	"github.com/ecosdelcampo/fieldsync/internal/core/ports"
)

// OrderService places and tracks orders, falling back to the offline queue
// when the server is unreachable.
type OrderService struct {
	gateway  ports.Gateway
	queue    ports.QueueRepository
	validate *validator.Validate
	log      zerolog.Logger
}

func NewOrderService(gw ports.Gateway, queue ports.QueueRepository, log zerolog.Logger) *OrderService {
	return &OrderService{
		gateway:  gw,
		queue:    queue,
		validate: validator.New(),
		log:      log,
	}
}

// Create places an order. When the server cannot be reached the payload is
// queued with a stable idempotency key, so the eventual replay is safe even
// if the original request reached the server before the failure.
func (s *OrderService) Create(ctx context.Context, input ports.CreateOrderInput) (*ports.SubmitResult, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("invalid order: %w", err)
	}

	payload := &domain.OrderPayload{
		ProductID: input.ProductID,
		Quantity:  input.Quantity,
		Price:     input.Price,
		FarmerID:  input.FarmerID,
	}
	key := uuid.NewString()

	resp, err := s.gateway.Request(ctx, http.MethodPost, endpointOrders, payload,
		ports.WithHeader("Idempotency-Key", key))
	if err != nil {
		return nil, err
	}

	if resp.Unreachable() {
		s.log.Warn().Str("product_id", input.ProductID).Msg("server unreachable, queueing order")
		return enqueue(ctx, s.queue, &domain.Operation{
			Kind:           domain.KindOrder,
			IdempotencyKey: key,
			Order:          payload,
		})
	}
	if !resp.OK() {
		return nil, remoteError(resp)
	}

	var out struct {
		Order struct {
			ID string `json:"_id"`
		} `json:"order"`
	}
	if err := resp.DecodeJSON(&out); err != nil {
		return nil, fmt.Errorf("decode order response: %w", err)
	}

	s.log.Info().Str("order_id", out.Order.ID).Msg("order created")
	return &ports.SubmitResult{RemoteID: out.Order.ID}, nil
}

// My returns the caller's own orders.
func (s *OrderService) My(ctx context.Context) ([]ports.RemoteOrder, error) {
	return s.listOrders(ctx, "/orders/my")
}

// Incoming returns orders placed against the caller's products (farmers).
func (s *OrderService) Incoming(ctx context.Context) ([]ports.RemoteOrder, error) {
	return s.listOrders(ctx, "/orders/incoming")
}

// UpdateStatus advances an order through its lifecycle. Never queued.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID, status string) error {
	resp, err := s.gateway.Request(ctx, http.MethodPatch, "/orders/"+orderID,
		map[string]string{"status": status})
	if err != nil {
		return err
	}
	if resp.Unreachable() {
		return domain.ErrOffline
	}
	if !resp.OK() {
		return remoteError(resp)
	}
	return nil
}

func (s *OrderService) listOrders(ctx context.Context, endpoint string) ([]ports.RemoteOrder, error) {
	resp, err := s.gateway.Request(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if resp.Unreachable() {
		return nil, domain.ErrOffline
	}
	if !resp.OK() {
		return nil, remoteError(resp)
	}

	var orders []ports.RemoteOrder
	if err := resp.DecodeJSON(&orders); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return orders, nil
}
