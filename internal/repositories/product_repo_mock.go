package repositories

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"catalog/internal/models"
)

// MockProductRepository is an in-memory implementation of ProductRepository.
// Ids start at 1 and are never reused after a delete.
type MockProductRepository struct {
	products map[uint]models.Product
	byName   map[string]uint
	nextID   uint
	mu       sync.RWMutex
}

// NewMockProductRepository creates a new instance of MockProductRepository.
func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{
		products: make(map[uint]models.Product),
		byName:   make(map[string]uint),
		nextID:   1,
	}
}

// GetAll returns all products ordered by id.
func (r *MockProductRepository) GetAll() ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	productList := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		productList = append(productList, p)
	}
	sort.Slice(productList, func(i, j int) bool { return productList[i].ID < productList[j].ID })
	return productList, nil
}

// GetByID returns a product by its ID.
func (r *MockProductRepository) GetByID(id uint) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, fmt.Errorf("product with ID %d: %w", id, ErrNotFound)
	}
	return &product, nil
}

// GetByName returns a product by its exact name.
func (r *MockProductRepository) GetByName(name string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("product with name %q: %w", name, ErrNotFound)
	}
	product := r.products[id]
	return &product, nil
}

// ExistsByID reports whether a product with the ID exists.
func (r *MockProductRepository) ExistsByID(id uint) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.products[id]
	return ok, nil
}

// ExistsByName reports whether a product with exactly this name exists.
func (r *MockProductRepository) ExistsByName(name string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byName[name]
	return ok, nil
}

// Create adds a new product and assigns its ID.
func (r *MockProductRepository) Create(product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byName[product.Name]; taken {
		return fmt.Errorf("create %q: %w", product.Name, ErrDuplicateName)
	}
	product.ID = r.nextID
	r.nextID++
	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now
	r.products[product.ID] = *product
	r.byName[product.Name] = product.ID
	return nil
}

// Update modifies an existing product.
func (r *MockProductRepository) Update(product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.products[product.ID]
	if !ok {
		return fmt.Errorf("product with ID %d not found for update: %w", product.ID, ErrNotFound)
	}
	if owner, taken := r.byName[product.Name]; taken && owner != product.ID {
		return fmt.Errorf("update %q: %w", product.Name, ErrDuplicateName)
	}
	delete(r.byName, current.Name)
	product.UpdatedAt = time.Now()
	r.products[product.ID] = *product
	r.byName[product.Name] = product.ID
	return nil
}

// Delete removes a product by its ID.
func (r *MockProductRepository) Delete(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[id]
	if !ok {
		return fmt.Errorf("product with ID %d not found for deletion: %w", id, ErrNotFound)
	}
	delete(r.byName, product.Name)
	delete(r.products, id)
	return nil
}
