package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/ecosdelcampo/fieldsync/internal/api/handler"
	"github.com/ecosdelcampo/fieldsync/internal/core/ports"
)

// Deps carries everything the loopback API needs.
type Deps struct {
	Auth     ports.AuthService
	Orders   ports.OrderService
	Products ports.ProductService
	Queue    ports.QueueRepository
	Sync     ports.SyncService
	Creds    ports.CredentialStore
	Log      zerolog.Logger
}

// NewRouter builds the Echo instance for the loopback status/submit API.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echoprometheus.NewMiddleware("fieldsync_api"))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	submitHandler := handler.NewSubmitHandler(deps.Orders, deps.Products)
	statusHandler := handler.NewStatusHandler(deps.Queue, deps.Sync, deps.Creds)
	healthHandler := handler.NewHealthHandler()

	// --- Auth routes ---
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/logout", authHandler.Logout)
	e.GET("/session", statusHandler.Session)

	// --- Marketplace routes (proxied through the gateway) ---
	e.POST("/orders", submitHandler.CreateOrder)
	e.GET("/orders/my", submitHandler.MyOrders)
	e.GET("/orders/incoming", submitHandler.IncomingOrders)
	e.PATCH("/orders/:id", submitHandler.UpdateOrderStatus)
	e.POST("/products", submitHandler.CreateProduct)
	e.GET("/products", submitHandler.Catalog)
	e.GET("/products/my", submitHandler.MyProducts)

	// --- Agent state ---
	e.GET("/queue/pending", statusHandler.PendingOperations)
	e.POST("/sync", statusHandler.TriggerSync)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
