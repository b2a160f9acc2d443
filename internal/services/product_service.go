package services

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"catalog/internal/apperrors"
	"catalog/internal/metrics"
	"catalog/internal/models"
	"catalog/internal/repositories"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	minNameLength = 2
	maxNameLength = 100
	priceScale    = 2
)

// maxPrice is the first value that no longer fits a decimal(12,2) column.
var maxPrice = decimal.New(1, 10)

// EventPublisher delivers serialized product events under a routing key.
type EventPublisher interface {
	Publish(routingKey string, body []byte) error
}

// ProductService handles business logic related to products: name uniqueness,
// input validation and the two update flavours.
type ProductService struct {
	repo      repositories.ProductRepository
	publisher EventPublisher
	logger    *zap.Logger
}

// NewProductService creates a new ProductService. A nil publisher disables
// event publication and a nil logger discards logs.
func NewProductService(repo repositories.ProductRepository, publisher EventPublisher, logger *zap.Logger) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// List returns the whole catalog. nameFilter is required but does not narrow
// the result.
func (s *ProductService) List(nameFilter string) (products []models.Product, err error) {
	defer s.record("list", &err)

	if nameFilter == "" {
		return nil, apperrors.Validation("product name must not be empty")
	}
	return s.listAll()
}

// ListAll returns every product in the catalog.
func (s *ProductService) ListAll() (products []models.Product, err error) {
	defer s.record("list_all", &err)
	return s.listAll()
}

func (s *ProductService) listAll() ([]models.Product, error) {
	products, err := s.repo.GetAll()
	if err != nil {
		s.logger.Error("Failed to list products", zap.Error(err))
		return nil, apperrors.OperationFailed("could not retrieve products", err)
	}
	return products, nil
}

// Get returns the product with the given ID.
func (s *ProductService) Get(id uint) (product *models.Product, err error) {
	defer s.record("get", &err)
	return s.findByID(id)
}

// ExistsByName reports whether a product named exactly name exists.
func (s *ProductService) ExistsByName(name string) (exists bool, err error) {
	defer s.record("exists_by_name", &err)
	return s.nameTaken(name)
}

func (s *ProductService) nameTaken(name string) (bool, error) {
	exists, err := s.repo.ExistsByName(name)
	if err != nil {
		s.logger.Error("Failed to check product name", zap.String("name", name), zap.Error(err))
		return false, apperrors.OperationFailed("could not check product name", err)
	}
	return exists, nil
}

// Create parses the raw price and stock and stores a new product. Checks run in
// order and stop at the first failure: empty name, duplicate name, price
// format, stock format, then ranges.
func (s *ProductService) Create(name, priceText, stockText string) (product *models.Product, err error) {
	defer s.record("create", &err)

	if name == "" {
		return nil, apperrors.Validation("product name must not be empty")
	}
	taken, err := s.nameTaken(name)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperrors.DuplicateName(name)
	}
	price, err := decimal.NewFromString(strings.TrimSpace(priceText))
	if err != nil {
		return nil, apperrors.Validation("price must be a valid number")
	}
	stock, err := strconv.Atoi(strings.TrimSpace(stockText))
	if err != nil {
		return nil, apperrors.Validation("stock must be a valid integer")
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateAmounts(&price, &stock); err != nil {
		return nil, err
	}

	product = models.NewProduct(name, price, stock)
	if err := s.repo.Create(product); err != nil {
		if errors.Is(err, repositories.ErrDuplicateName) {
			return nil, apperrors.DuplicateName(name)
		}
		s.logger.Error("Failed to save product", zap.String("name", name), zap.Error(err))
		return nil, apperrors.OperationFailed("could not save product", err)
	}

	s.logger.Info("Product created", zap.Uint("product_id", product.ID), zap.String("name", product.Name))
	s.publish(models.EventProductCreated, *product)
	return product, nil
}

// UpdateByID replaces name, price and stock of the product with the given ID.
// The request must carry the complete desired state.
func (s *ProductService) UpdateByID(id uint, req models.ProductRequest) (product *models.Product, err error) {
	defer s.record("update_by_id", &err)

	if id == 0 {
		return nil, apperrors.Validation("product id must be a positive integer")
	}
	if req.Name == "" {
		return nil, apperrors.Validation("product name must not be empty")
	}
	if err := validateName(req.Name); err != nil {
		return nil, err
	}
	if err := validateAmounts(req.Price, req.Stock); err != nil {
		return nil, err
	}

	existing, err := s.findByID(id)
	if err != nil {
		return nil, err
	}
	if req.Name != existing.Name {
		if err := s.ensureNameAvailable(req.Name); err != nil {
			return nil, err
		}
	}

	updated := *existing
	updated.ApplyRequest(req)
	if err := s.save(&updated); err != nil {
		return nil, err
	}
	s.publish(models.EventProductUpdated, updated)
	return &updated, nil
}

// UpdateByName replaces price and stock of the product named currentName.
// The stored name never changes on this path, even when req.Name differs.
func (s *ProductService) UpdateByName(currentName string, req models.ProductRequest) (product *models.Product, err error) {
	defer s.record("update_by_name", &err)

	if err := validateAmounts(req.Price, req.Stock); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByName(currentName)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NotFound("product named %q not found", currentName)
		}
		s.logger.Error("Failed to fetch product by name", zap.String("name", currentName), zap.Error(err))
		return nil, apperrors.OperationFailed("could not retrieve product", err)
	}
	if req.Name != "" && req.Name != currentName {
		if err := s.ensureNameAvailable(req.Name); err != nil {
			return nil, err
		}
	}

	updated := *existing
	updated.ApplyRequestKeepName(req)
	if err := s.save(&updated); err != nil {
		return nil, err
	}
	s.publish(models.EventProductUpdated, updated)
	return &updated, nil
}

// Delete removes the product with the given ID. Store failures are reported
// as a generic operation failure.
func (s *ProductService) Delete(id uint) (err error) {
	defer s.record("delete", &err)

	existing, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.NotFound("product with ID %d not found", id)
		}
		s.logger.Error("Failed to check product before delete", zap.Uint("product_id", id), zap.Error(err))
		return apperrors.OperationFailed("could not delete product", err)
	}
	if err := s.repo.Delete(id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.NotFound("product with ID %d not found", id)
		}
		s.logger.Error("Failed to delete product", zap.Uint("product_id", id), zap.Error(err))
		return apperrors.OperationFailed("could not delete product", err)
	}

	s.logger.Info("Product deleted", zap.Uint("product_id", id))
	s.publish(models.EventProductDeleted, *existing)
	return nil
}

func (s *ProductService) findByID(id uint) (*models.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NotFound("product with ID %d not found", id)
		}
		s.logger.Error("Failed to fetch product", zap.Uint("product_id", id), zap.Error(err))
		return nil, apperrors.OperationFailed("could not retrieve product", err)
	}
	return product, nil
}

func (s *ProductService) ensureNameAvailable(name string) error {
	taken, err := s.nameTaken(name)
	if err != nil {
		return err
	}
	if taken {
		return apperrors.DuplicateName(name)
	}
	return nil
}

func (s *ProductService) save(product *models.Product) error {
	if err := s.repo.Update(product); err != nil {
		switch {
		case errors.Is(err, repositories.ErrDuplicateName):
			return apperrors.DuplicateName(product.Name)
		case errors.Is(err, repositories.ErrNotFound):
			return apperrors.NotFound("product with ID %d not found", product.ID)
		}
		s.logger.Error("Failed to update product", zap.Uint("product_id", product.ID), zap.Error(err))
		return apperrors.OperationFailed("could not update product", err)
	}
	s.logger.Info("Product updated", zap.Uint("product_id", product.ID))
	return nil
}

// publish is best effort: a broker failure never undoes a committed change.
func (s *ProductService) publish(eventType string, product models.Product) {
	if s.publisher == nil {
		return
	}
	body, err := json.Marshal(models.ProductEvent{
		Type:       eventType,
		Product:    product,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn("Failed to marshal product event", zap.String("event", eventType), zap.Error(err))
		return
	}
	if err := s.publisher.Publish(eventType, body); err != nil {
		s.logger.Warn("Failed to publish product event",
			zap.String("event", eventType),
			zap.Uint("product_id", product.ID),
			zap.Error(err))
	}
}

func (s *ProductService) record(operation string, err *error) {
	outcome := metrics.OutcomeOK
	if *err != nil {
		outcome = apperrors.KindOf(*err).String()
	}
	metrics.RecordOperation(operation, outcome)
}

func validateName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < minNameLength || n > maxNameLength {
		return apperrors.Validation("product name must be between %d and %d characters", minNameLength, maxNameLength)
	}
	return nil
}

// validateAmounts requires a positive price that fits decimal(12,2) without
// rounding, and a positive stock.
func validateAmounts(price *decimal.Decimal, stock *int) error {
	if price == nil || !price.IsPositive() {
		return apperrors.Validation("price must be a positive value")
	}
	if !price.Equal(price.Truncate(priceScale)) {
		return apperrors.Validation("price must have at most %d decimal places", priceScale)
	}
	if price.GreaterThanOrEqual(maxPrice) {
		return apperrors.Validation("price must be less than %s", maxPrice.String())
	}
	if stock == nil || *stock <= 0 {
		return apperrors.Validation("stock must be a positive integer")
	}
	return nil
}
