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

// ProductService publishes and lists products, falling back to the offline
// queue when the server is unreachable.
type ProductService struct {
	gateway  ports.Gateway
	queue    ports.QueueRepository
	validate *validator.Validate
	log      zerolog.Logger
}

func NewProductService(gw ports.Gateway, queue ports.QueueRepository, log zerolog.Logger) *ProductService {
	return &ProductService{
		gateway:  gw,
		queue:    queue,
		validate: validator.New(),
		log:      log,
	}
}

// Create publishes a product, queueing it when the server is unreachable.
func (s *ProductService) Create(ctx context.Context, input ports.CreateProductInput) (*ports.SubmitResult, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("invalid product: %w", err)
	}

	payload := &domain.ProductPayload{
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Stock:       input.Stock,
		Unit:        input.Unit,
		Image:       input.Image,
	}
	key := uuid.NewString()

	resp, err := s.gateway.Request(ctx, http.MethodPost, endpointProducts, payload,
		ports.WithHeader("Idempotency-Key", key))
	if err != nil {
		return nil, err
	}

	if resp.Unreachable() {
		s.log.Warn().Str("name", input.Name).Msg("server unreachable, queueing product")
		return enqueue(ctx, s.queue, &domain.Operation{
			Kind:           domain.KindProduct,
			IdempotencyKey: key,
			Product:        payload,
		})
	}
	if !resp.OK() {
		return nil, remoteError(resp)
	}

	var out struct {
		Product struct {
			ID string `json:"_id"`
		} `json:"product"`
	}
	if err := resp.DecodeJSON(&out); err != nil {
		return nil, fmt.Errorf("decode product response: %w", err)
	}

	s.log.Info().Str("product_id", out.Product.ID).Msg("product published")
	return &ports.SubmitResult{RemoteID: out.Product.ID}, nil
}

// Catalog returns the public product catalog.
func (s *ProductService) Catalog(ctx context.Context) ([]ports.RemoteProduct, error) {
	return s.listProducts(ctx, endpointProducts)
}

// Mine returns the caller's own products (farmers).
func (s *ProductService) Mine(ctx context.Context) ([]ports.RemoteProduct, error) {
	return s.listProducts(ctx, "/products/my")
}

func (s *ProductService) listProducts(ctx context.Context, endpoint string) ([]ports.RemoteProduct, error) {
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

	var products []ports.RemoteProduct
	if err := resp.DecodeJSON(&products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return products, nil
}
