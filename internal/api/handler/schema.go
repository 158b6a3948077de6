package handler

// loginRequest is the body of POST /auth/login.
type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// registerRequest is the body of POST /auth/register.
type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=farmer buyer"`
}

// createOrderRequest is the body of POST /orders.
type createOrderRequest struct {
	ProductID string  `json:"productId" validate:"required"`
	Quantity  int     `json:"quantity" validate:"required,gt=0"`
	Price     float64 `json:"price" validate:"required,gt=0"`
	FarmerID  string  `json:"farmerId" validate:"required"`
}

// createProductRequest is the body of POST /products.
type createProductRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
	Unit        string  `json:"unit" validate:"required"`
	Image       string  `json:"image"`
}

// updateOrderStatusRequest is the body of PATCH /orders/:id.
type updateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// submitResponse reports the outcome of a mutating submit. When the server
// was unreachable the operation is queued and local_id identifies it.
type submitResponse struct {
	RemoteID string `json:"remote_id,omitempty"`
	Queued   bool   `json:"queued"`
	LocalID  int64  `json:"local_id,omitempty"`
}

// queuedOperationView is the read model for GET /queue/pending.
type queuedOperationView struct {
	LocalID        int64  `json:"local_id"`
	Kind           string `json:"kind"`
	Status         string `json:"status"`
	IdempotencyKey string `json:"idempotency_key"`
	CreatedAt      string `json:"created_at"`
	Payload        any    `json:"payload"`
}
