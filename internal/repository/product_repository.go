package repository

import (
	"context"

	"github.com/yukikurage/hierarchy-api/internal/database"
	"github.com/yukikurage/hierarchy-api/internal/models"
	"github.com/yukikurage/hierarchy-api/internal/utils"
	"gorm.io/gorm"
)

// GormProductRepository is a GORM implementation of ProductRepository
type GormProductRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new ProductRepository
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &GormProductRepository{db: db}
}

// Create creates a new product
func (r *GormProductRepository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// FindByID finds a product by ID
func (r *GormProductRepository) FindByID(ctx context.Context, id uint64) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// List lists products within the filter, newest first
func (r *GormProductRepository) List(ctx context.Context, filter ScopeFilter, page utils.PaginationParams) ([]models.Product, int64, error) {
	query := scoped(r.db.WithContext(ctx).Model(&models.Product{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []models.Product
	if err := query.Scopes(database.Paginate(page)).Order("id DESC").Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// Update updates a product guarded by its version
func (r *GormProductRepository) Update(ctx context.Context, product *models.Product) error {
	expected := product.Version
	product.Version++
	if err := updateVersioned(ctx, r.db, product, expected); err != nil {
		product.Version = expected
		return err
	}
	return nil
}

// Delete deletes a product
func (r *GormProductRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&models.Product{}, id).Error
}

// DeleteByOwner deletes every product owned by the owner
func (r *GormProductRepository) DeleteByOwner(ctx context.Context, kind models.OwnerKind, ownerID uint64) (int64, error) {
	column, err := ownerColumn(kind)
	if err != nil {
		return 0, err
	}
	result := r.db.WithContext(ctx).Where(column+" = ?", ownerID).Delete(&models.Product{})
	return result.RowsAffected, result.Error
}
