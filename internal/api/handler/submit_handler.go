package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ecosdelcampo/fieldsync/internal/core/ports"
)

// SubmitHandler exposes the order and product clients on the loopback API.
// Mutations go through the offline-resilient submit path: a 202 response
// with queued=true means the operation was staged for replay.
type SubmitHandler struct {
	orders   ports.OrderService
	products ports.ProductService
}

func NewSubmitHandler(orders ports.OrderService, products ports.ProductService) *SubmitHandler {
	return &SubmitHandler{orders: orders, products: products}
}

func (h *SubmitHandler) CreateOrder(c echo.Context) error {
	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.orders.Create(c.Request().Context(), ports.CreateOrderInput{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Price:     req.Price,
		FarmerID:  req.FarmerID,
	})
	if err != nil {
		return err
	}
	return submitReply(c, result)
}

func (h *SubmitHandler) MyOrders(c echo.Context) error {
	orders, err := h.orders.My(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *SubmitHandler) IncomingOrders(c echo.Context) error {
	orders, err := h.orders.Incoming(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *SubmitHandler) UpdateOrderStatus(c echo.Context) error {
	var req updateOrderStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.orders.UpdateStatus(c.Request().Context(), c.Param("id"), req.Status); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *SubmitHandler) CreateProduct(c echo.Context) error {
	var req createProductRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.products.Create(c.Request().Context(), ports.CreateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Unit:        req.Unit,
		Image:       req.Image,
	})
	if err != nil {
		return err
	}
	return submitReply(c, result)
}

func (h *SubmitHandler) Catalog(c echo.Context) error {
	products, err := h.products.Catalog(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, products)
}

func (h *SubmitHandler) MyProducts(c echo.Context) error {
	products, err := h.products.Mine(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, products)
}

func submitReply(c echo.Context, result *ports.SubmitResult) error {
	resp := submitResponse{
		RemoteID: result.RemoteID,
		Queued:   result.Queued,
		LocalID:  result.LocalID,
	}
	if result.Queued {
		return c.JSON(http.StatusAccepted, resp)
	}
	return c.JSON(http.StatusCreated, resp)
}
