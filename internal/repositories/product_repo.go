package repositories

import (
	"errors"

	"catalog/internal/models"
)

var (
	// ErrNotFound is returned when no product matches the given id or name.
	ErrNotFound = errors.New("product not found")
	// ErrDuplicateName is returned when a write would give two products the same name.
	ErrDuplicateName = errors.New("product name already exists")
)

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	GetAll() ([]models.Product, error)
	GetByID(id uint) (*models.Product, error)
	GetByName(name string) (*models.Product, error)
	ExistsByID(id uint) (bool, error)
	ExistsByName(name string) (bool, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
	Delete(id uint) error
}
