package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yukikurage/hierarchy-api/internal/constants"
	"github.com/yukikurage/hierarchy-api/internal/models"
	"github.com/yukikurage/hierarchy-api/internal/repository"
	"github.com/yukikurage/hierarchy-api/internal/storage"
	"github.com/yukikurage/hierarchy-api/internal/utils"
)

// ProductService provides business logic for products.
type ProductService struct {
	store          repository.Store
	resolver       *ScopeResolver
	blobs          storage.BlobStore
	maxUploadBytes int64
}

// NewProductService creates a new ProductService.
func NewProductService(store repository.Store, resolver *ScopeResolver, blobs storage.BlobStore, maxUploadBytes int64) *ProductService {
	return &ProductService{
		store:          store,
		resolver:       resolver,
		blobs:          blobs,
		maxUploadBytes: maxUploadBytes,
	}
}

// ProductInput represents parameters to create a product.
type ProductInput struct {
	Name           string            `json:"name"`
	PartNumber     string            `json:"part_number"`
	Brand          string            `json:"brand" validate:"required"`
	Description    string            `json:"description"`
	Weight         float64           `json:"weight" validate:"gte=0"`
	WeightUnit     models.WeightUnit `json:"weight_unit" validate:"omitempty,oneof=lb oz mg g kg t"`
	InitialStock   *int64            `json:"initial_stock" validate:"required"`
	InitialCost    decimal.Decimal   `json:"initial_cost"`
	BuyPrice       decimal.Decimal   `json:"buy_price"`
	RetailPrice    decimal.Decimal   `json:"retail_price"`
	WholesalePrice decimal.Decimal   `json:"wholesale_price"`
	Tags           string            `json:"tags"`
}

// ProductPatch holds the fields to change. Nil fields are kept.
type ProductPatch struct {
	Name           *string            `json:"name"`
	PartNumber     *string            `json:"part_number"`
	Brand          *string            `json:"brand" validate:"omitempty,min=1"`
	Description    *string            `json:"description"`
	Weight         *float64           `json:"weight" validate:"omitempty,gte=0"`
	WeightUnit     *models.WeightUnit `json:"weight_unit" validate:"omitempty,oneof=lb oz mg g kg t"`
	InitialStock   *int64             `json:"initial_stock"`
	InitialCost    *decimal.Decimal   `json:"initial_cost"`
	BuyPrice       *decimal.Decimal   `json:"buy_price"`
	RetailPrice    *decimal.Decimal   `json:"retail_price"`
	WholesalePrice *decimal.Decimal   `json:"wholesale_price"`
	Tags           *string            `json:"tags"`
}

func (p ProductPatch) apply(product *models.Product) {
	if p.Name != nil {
		product.Name = strings.TrimSpace(*p.Name)
	}
	if p.PartNumber != nil {
		product.PartNumber = strings.TrimSpace(*p.PartNumber)
	}
	if p.Brand != nil {
		product.Brand = strings.TrimSpace(*p.Brand)
	}
	if p.Description != nil {
		product.Description = *p.Description
	}
	if p.Weight != nil {
		product.Weight = *p.Weight
	}
	if p.WeightUnit != nil {
		product.WeightUnit = *p.WeightUnit
	}
	if p.InitialStock != nil {
		product.InitialStock = *p.InitialStock
	}
	if p.InitialCost != nil {
		product.InitialCost = *p.InitialCost
	}
	if p.BuyPrice != nil {
		product.BuyPrice = *p.BuyPrice
	}
	if p.RetailPrice != nil {
		product.RetailPrice = *p.RetailPrice
	}
	if p.WholesalePrice != nil {
		product.WholesalePrice = *p.WholesalePrice
	}
	if p.Tags != nil {
		product.Tags = utils.ParseTags(*p.Tags)
	}
}

// CreateProduct creates a product owned by the actor's parent or branch.
func (s *ProductService) CreateProduct(ctx context.Context, input ProductInput) (*models.Product, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	var product *models.Product
	err = withConflictRetry(ctx, "create_product", func() error {
		return s.store.Transaction(ctx, func(tx repository.Store) error {
			scope, err := s.resolver.resolveWith(ctx, tx, actor)
			if err != nil {
				return err
			}
			if scope.Owner == nil {
				return ErrUnassigned
			}

			p := &models.Product{
				Name:           strings.TrimSpace(input.Name),
				PartNumber:     strings.TrimSpace(input.PartNumber),
				Brand:          strings.TrimSpace(input.Brand),
				Description:    input.Description,
				Weight:         input.Weight,
				WeightUnit:     input.WeightUnit,
				InitialStock:   *input.InitialStock,
				InitialCost:    input.InitialCost,
				BuyPrice:       input.BuyPrice,
				RetailPrice:    input.RetailPrice,
				WholesalePrice: input.WholesalePrice,
				Tags:           utils.ParseTags(input.Tags),
				Images:         models.StringList{constants.DefaultProductImage},
			}
			ownerID := scope.Owner.OwnerID()
			switch scope.Owner.OwnerKind() {
			case models.OwnerParent:
				p.ParentID = &ownerID
			case models.OwnerBranch:
				p.BranchID = &ownerID
			}
			if err := tx.Products().Create(ctx, p); err != nil {
				return fmt.Errorf("failed to create product: %w", err)
			}

			members := scope.Owner.ProductMembers()
			*members = members.Prepend(p.ID)
			if err := saveOwner(ctx, tx, scope.Owner); err != nil {
				return err
			}
			product = p
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	logWithFields(ctx, logrus.InfoLevel, "product created", logrus.Fields{"product_id": product.ID})
	return product, nil
}

// ListProducts lists the products visible to the actor.
func (s *ProductService) ListProducts(ctx context.Context, page utils.PaginationParams) ([]models.Product, int64, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, 0, err
	}
	scope, err := s.resolver.Resolve(ctx, actor)
	if err != nil {
		return nil, 0, err
	}

	products, total, err := s.store.Products().List(ctx, scope.Filter(), page)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}

// GetProduct returns a product visible to the actor.
func (s *ProductService) GetProduct(ctx context.Context, id uint64) (*models.Product, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	product, err := s.store.Products().FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "product")
	}
	if err := s.resolver.Authorize(ctx, actor, ActionRead, TargetOfProduct(product)); err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProduct applies patch to a product in the actor's scope.
func (s *ProductService) UpdateProduct(ctx context.Context, id uint64, patch ProductPatch) (*models.Product, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateStruct(patch); err != nil {
		return nil, err
	}

	var product *models.Product
	err = withConflictRetry(ctx, "update_product", func() error {
		p, err := s.store.Products().FindByID(ctx, id)
		if err != nil {
			return storeErr(err, "product")
		}
		if err := s.resolver.Authorize(ctx, actor, ActionUpdate, TargetOfProduct(p)); err != nil {
			return err
		}
		patch.apply(p)
		if err := s.store.Products().Update(ctx, p); err != nil {
			return err
		}
		product = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// AddProductImage stores an uploaded image and puts it first in the product's images.
// The placeholder image is dropped on the first real upload.
func (s *ProductService) AddProductImage(ctx context.Context, id uint64, data []byte) (*models.Product, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty upload: %w", ErrInvalidImage)
	}
	if s.maxUploadBytes > 0 && int64(len(data)) > s.maxUploadBytes {
		return nil, fmt.Errorf("image larger than %d bytes: %w", s.maxUploadBytes, ErrInvalidImage)
	}
	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return nil, fmt.Errorf("unsupported content type %s: %w", mime.String(), ErrInvalidImage)
	}

	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.Authorize(ctx, actor, ActionUpdate, TargetOfProduct(product)); err != nil {
		return nil, err
	}

	name := fmt.Sprintf("%s_%d_%s%s", constants.ProductImagePrefix, product.ID, uuid.NewString()[:8], mime.Extension())
	if err := s.blobs.Put(ctx, name, data); err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	err = withConflictRetry(ctx, "add_image", func() error {
		p, err := s.store.Products().FindByID(ctx, id)
		if err != nil {
			return storeErr(err, "product")
		}
		images := p.Images
		if len(images) > 0 && images[0] == constants.DefaultProductImage {
			images = images[1:]
		}
		p.Images = append(models.StringList{name}, images...)
		if err := s.store.Products().Update(ctx, p); err != nil {
			return err
		}
		product = p
		return nil
	})
	if err != nil {
		if delErr := s.blobs.Delete(ctx, name); delErr != nil {
			logWithFields(ctx, logrus.WarnLevel, "failed to remove orphaned image", logrus.Fields{"image": name, "error": delErr.Error()})
		}
		return nil, err
	}
	return product, nil
}
