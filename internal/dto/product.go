package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/yukikurage/hierarchy-api/internal/models"
	"github.com/yukikurage/hierarchy-api/internal/utils"
)

// ProductDTO represents a product in API responses
type ProductDTO struct {
	ID             uint64            `json:"id"`
	Name           string            `json:"name"`
	PartNumber     string            `json:"part_number"`
	Brand          string            `json:"brand"`
	Description    string            `json:"description"`
	Weight         float64           `json:"weight"`
	WeightUnit     models.WeightUnit `json:"weight_unit"`
	InitialStock   int64             `json:"initial_stock"`
	InitialCost    decimal.Decimal   `json:"initial_cost"`
	BuyPrice       decimal.Decimal   `json:"buy_price"`
	RetailPrice    decimal.Decimal   `json:"retail_price"`
	WholesalePrice decimal.Decimal   `json:"wholesale_price"`
	Tags           []string          `json:"tags"`
	Images         []string          `json:"images"`
	ParentID       *uint64           `json:"parent_id"`
	BranchID       *uint64           `json:"branch_id"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// ProductListResponse represents a paginated list of products
type ProductListResponse struct {
	Products   []ProductDTO             `json:"products"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

func strs(list models.StringList) []string {
	if list == nil {
		return []string{}
	}
	return list
}

// ToProductDTO converts a Product model to ProductDTO
func ToProductDTO(product models.Product) ProductDTO {
	return ProductDTO{
		ID:             product.ID,
		Name:           product.Name,
		PartNumber:     product.PartNumber,
		Brand:          product.Brand,
		Description:    product.Description,
		Weight:         product.Weight,
		WeightUnit:     product.WeightUnit,
		InitialStock:   product.InitialStock,
		InitialCost:    product.InitialCost,
		BuyPrice:       product.BuyPrice,
		RetailPrice:    product.RetailPrice,
		WholesalePrice: product.WholesalePrice,
		Tags:           strs(product.Tags),
		Images:         strs(product.Images),
		ParentID:       product.ParentID,
		BranchID:       product.BranchID,
		CreatedAt:      product.CreatedAt,
		UpdatedAt:      product.UpdatedAt,
	}
}

// ToProductListResponse converts a page of products
func ToProductListResponse(products []models.Product, page utils.PaginationParams, total int64) ProductListResponse {
	items := make([]ProductDTO, len(products))
	for i, product := range products {
		items[i] = ToProductDTO(product)
	}
	return ProductListResponse{
		Products:   items,
		Pagination: page.Response(total),
	}
}
