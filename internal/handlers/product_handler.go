package handlers

import (
	"fmt"
	"net/url"

	"catalog/internal/apperrors"
	"catalog/internal/models"
	"catalog/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ProductHandler handles HTTP requests for the product catalog.
type ProductHandler struct {
	service  *services.ProductService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: newValidator(),
		logger:   logger,
	}
}

// searchRequest is the body of a catalog search.
type searchRequest struct {
	Name string `json:"name"`
}

// RegisterRoutes registers the product routes. Reads are public; the protect
// handlers run in front of every write.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, protect ...fiber.Handler) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Post("/search", h.HandleSearchProducts)
	productRoutes.Get("/:id", h.HandleGetProductByID)
	productRoutes.Post("/", chain(protect, h.HandleCreateProduct)...)
	productRoutes.Put("/by-name/:name", chain(protect, h.HandleUpdateProductByName)...)
	productRoutes.Put("/:id", chain(protect, h.HandleUpdateProductByID)...)
	productRoutes.Delete("/:id", chain(protect, h.HandleDeleteProduct)...)
}

// HandleGetProducts returns the whole catalog.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.service.ListAll()
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(products)
}

// HandleSearchProducts answers a search by name. The name is required.
func (h *ProductHandler) HandleSearchProducts(c *fiber.Ctx) error {
	var req searchRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	products, err := h.service.List(req.Name)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(products)
}

// HandleGetProductByID retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return invalidID(c)
	}
	product, err := h.service.Get(id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(product)
}

// HandleCreateProduct creates a product from the name, price and stock
// form fields or query parameters. Price and stock arrive unparsed.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	product, err := h.service.Create(c.FormValue("name"), c.FormValue("price"), c.FormValue("stock"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProductByID replaces name, price and stock of a product.
func (h *ProductHandler) HandleUpdateProductByID(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return invalidID(c)
	}
	req, ok, err := h.parseProductRequest(c)
	if !ok {
		return err
	}
	h.logger.Debug("Update by ID requested", zap.Uint("product_id", id), zap.String("name", req.Name))

	product, err := h.service.UpdateByID(id, req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(product)
}

// HandleUpdateProductByName updates price and stock of the product named in the path.
func (h *ProductHandler) HandleUpdateProductByName(c *fiber.Ctx) error {
	name, err := url.PathUnescape(c.Params("name"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid product name in path",
		})
	}
	// The body name is only checked for uniqueness on this path, never stored.
	req, ok, err := h.parseProductRequest(c, "Name")
	if !ok {
		return err
	}
	h.logger.Debug("Update by name requested", zap.String("name", name))

	product, err := h.service.UpdateByName(name, req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(product)
}

// HandleDeleteProduct deletes a product by its ID.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return invalidID(c)
	}
	if err := h.service.Delete(id); err != nil {
		return h.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// parseProductRequest decodes and validates an update body, skipping the
// fields named in except. When ok is false the response has already been
// written and err is what the handler returns.
func (h *ProductHandler) parseProductRequest(c *fiber.Ctx, except ...string) (models.ProductRequest, bool, error) {
	var req models.ProductRequest
	if err := c.BodyParser(&req); err != nil {
		return req, false, invalidBody(c, err)
	}
	if err := h.validate.StructExcept(req, except...); err != nil {
		return req, false, validationFailed(c, err)
	}
	return req, true, nil
}

// respondError maps a service error kind to a status code. Validation and
// duplicate errors carry their message; the rest get a generic text.
func (h *ProductHandler) respondError(c *fiber.Ctx, err error) error {
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": err.Error(),
		})
	case apperrors.KindDuplicateName:
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": err.Error(),
		})
	case apperrors.KindNotFound:
		h.logger.Debug("Product not found", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Product not found",
		})
	default:
		h.logger.Error("Product operation failed", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not complete the product operation",
		})
	}
}

func parseID(c *fiber.Ctx) (uint, bool) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}

func invalidID(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": fmt.Sprintf("The ID must be a positive integer, got %q", c.Params("id")),
	})
}

func chain(before []fiber.Handler, last fiber.Handler) []fiber.Handler {
	handlers := make([]fiber.Handler, 0, len(before)+1)
	handlers = append(handlers, before...)
	return append(handlers, last)
}
