package ports

import (
	"context"
)

// CreateOrderInput carries all data needed to place an order.
type CreateOrderInput struct {
	ProductID string  `validate:"required"`
	Quantity  int     `validate:"required,gt=0"`
	Price     float64 `validate:"required,gt=0"`
	FarmerID  string  `validate:"required"`
}

// CreateProductInput carries all data needed to publish a product.
type CreateProductInput struct {
	Name        string  `validate:"required"`
	Description string
	Price       float64 `validate:"required,gt=0"`
	Stock       int     `validate:"gte=0"`
	Unit        string  `validate:"required"`
	Image       string
}

// SubmitResult is returned by the mutating submit operations.
//
// When the server was reachable, RemoteID holds the server-assigned id.
// When it was not, Queued is true and LocalID identifies the queued
// operation that will be replayed by the next sync pass.
type SubmitResult struct {
	RemoteID string
	Queued   bool
	LocalID  int64
}

// RemoteOrder is the lightweight order view decoded from list responses.
type RemoteOrder struct {
	ID        string  `json:"_id"`
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	FarmerID  string  `json:"farmerId"`
	Status    string  `json:"status"`
}

// RemoteProduct is the lightweight product view decoded from list responses.
type RemoteProduct struct {
	ID          string  `json:"_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Unit        string  `json:"unit"`
	FarmerID    string  `json:"farmerId"`
}

// OrderService is the buyer-facing order client.
type OrderService interface {
	// Create places an order, falling back to the offline queue when the
	// server is unreachable.
	Create(ctx context.Context, input CreateOrderInput) (*SubmitResult, error)
	My(ctx context.Context) ([]RemoteOrder, error)
	Incoming(ctx context.Context) ([]RemoteOrder, error)
	// UpdateStatus advances an order through its lifecycle. Not queued:
	// status updates are only meaningful online.
	UpdateStatus(ctx context.Context, orderID, status string) error
}

// ProductService is the farmer-facing product client.
type ProductService interface {
	// Create publishes a product, falling back to the offline queue when the
	// server is unreachable.
	Create(ctx context.Context, input CreateProductInput) (*SubmitResult, error)
	Catalog(ctx context.Context) ([]RemoteProduct, error)
	Mine(ctx context.Context) ([]RemoteProduct, error)
}
