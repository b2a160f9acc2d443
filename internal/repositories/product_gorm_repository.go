package repositories

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"catalog/internal/models"

	"gorm.io/gorm"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
// The unique index on name requires the *gorm.DB to be opened with TranslateError.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// GetAll retrieves all products from the database ordered by id.
func (r *GORMProductRepository) GetAll() ([]models.Product, error) {
	var products []models.Product
	if err := r.db.Order("id").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to get all products: %w", err)
	}
	return products, nil
}

// GetByID retrieves a single product by its ID from the database.
func (r *GORMProductRepository) GetByID(id uint) (*models.Product, error) {
	var product models.Product
	if err := r.db.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product with ID %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product by ID %d: %w", id, err)
	}
	return &product, nil
}

// GetByName retrieves a single product by its exact name.
func (r *GORMProductRepository) GetByName(name string) (*models.Product, error) {
	var product models.Product
	if err := r.db.First(&product, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product with name %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product by name %q: %w", name, err)
	}
	return &product, nil
}

// ExistsByID reports whether a product with the ID exists.
func (r *GORMProductRepository) ExistsByID(id uint) (bool, error) {
	return r.exists("id = ?", id)
}

// ExistsByName reports whether a product with exactly this name exists.
func (r *GORMProductRepository) ExistsByName(name string) (bool, error) {
	return r.exists("name = ?", name)
}

func (r *GORMProductRepository) exists(query string, arg any) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Product{}).Where(query, arg).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check product existence: %w", err)
	}
	return count > 0, nil
}

// Create creates a new product in the database. The ID is assigned by the database.
func (r *GORMProductRepository) Create(product *models.Product) error {
	product.ID = 0
	if err := r.db.Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", translate(err))
	}
	return nil
}

// Update writes name, price and stock of an existing product.
func (r *GORMProductRepository) Update(product *models.Product) error {
	product.UpdatedAt = time.Now()
	// Save would fall back to an insert when no row matches.
	res := r.db.Model(product).Select("name", "price", "stock", "updated_at").Updates(product)
	if res.Error != nil {
		return fmt.Errorf("failed to update product: %w", translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product with ID %d not found for update: %w", product.ID, ErrNotFound)
	}
	return nil
}

// Delete deletes a product by its ID from the database.
func (r *GORMProductRepository) Delete(id uint) error {
	res := r.db.Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product with ID %d not found for deletion: %w", id, ErrNotFound)
	}
	return nil
}

// translate maps unique violations on the name index to ErrDuplicateName.
// Older driver builds do not translate every constraint error, hence the message check.
func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateName
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value") {
		return ErrDuplicateName
	}
	return err
}
