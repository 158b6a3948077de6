package domain

import (
	"errors"
	"time"
)

// OperationKind discriminates what a queued operation will create on replay.
type OperationKind string

const (
	KindOrder   OperationKind = "order"
	KindProduct OperationKind = "product"
)

// OperationStatus is the lifecycle state of a queued operation.
// The only legal transition is pending → synced.
type OperationStatus string

const (
	StatusPending OperationStatus = "pending"
	StatusSynced  OperationStatus = "synced"
)

var ErrOperationNotFound = errors.New("queued operation not found")
var ErrPayloadMismatch = errors.New("operation payload does not match its kind")
var ErrSyncInProgress = errors.New("sync pass already in progress")

// OrderPayload carries the data needed to create an order on the server.
type OrderPayload struct {
	ProductID string  `json:"productId" validate:"required"`
	Quantity  int     `json:"quantity" validate:"required,gt=0"`
	Price     float64 `json:"price" validate:"required,gt=0"`
	FarmerID  string  `json:"farmerId" validate:"required"`
}

// ProductPayload carries the data needed to publish a product on the server.
type ProductPayload struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
	Unit        string  `json:"unit" validate:"required"`
	Image       string  `json:"image,omitempty"`
}

// Operation is a locally persisted mutation awaiting replay against the server.
//
// LocalID is assigned by the queue store and never changes. RemoteID is set
// exactly when the status becomes synced. Exactly one of Order and Product is
// non-nil, matching Kind.
type Operation struct {
	LocalID        int64
	Kind           OperationKind
	Status         OperationStatus
	IdempotencyKey string
	CreatedAt      time.Time
	SyncedAt       *time.Time
	RemoteID       string

	Order   *OrderPayload
	Product *ProductPayload
}

// Validate checks the kind/payload pairing.
func (o *Operation) Validate() error {
	switch o.Kind {
	case KindOrder:
		if o.Order == nil || o.Product != nil {
			return ErrPayloadMismatch
		}
	case KindProduct:
		if o.Product == nil || o.Order != nil {
			return ErrPayloadMismatch
		}
	default:
		return ErrPayloadMismatch
	}
	return nil
}
