package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/hierarchy-api/internal/dto"
	apierrors "github.com/yukikurage/hierarchy-api/internal/errors"
	"github.com/yukikurage/hierarchy-api/internal/services"
	"github.com/yukikurage/hierarchy-api/internal/utils"
)

type ProductHandler struct {
	products *services.ProductService
	cascade  *services.CascadeService
}

func NewProductHandler(products *services.ProductService, cascade *services.CascadeService) *ProductHandler {
	return &ProductHandler{
		products: products,
		cascade:  cascade,
	}
}

// ListProducts returns the products visible to the actor
func (h *ProductHandler) ListProducts(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	products, total, err := h.products.ListProducts(c.Request.Context(), params)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProductListResponse(products, params, total))
}

// GetProduct returns a specific product by ID
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	product, err := h.products.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProductDTO(*product))
}

// CreateProduct creates a product owned by the actor's parent or branch
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req services.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	product, err := h.products.CreateProduct(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToProductDTO(*product))
}

// UpdateProduct updates the given fields of a product
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.ProductPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	product, err := h.products.UpdateProduct(c.Request.Context(), id, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProductDTO(*product))
}

// UploadPhoto stores the multipart "file" as a product image
func (h *ProductHandler) UploadPhoto(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		apierrors.BadRequest(c, "Please upload a file")
		return
	}
	file, err := header.Open()
	if err != nil {
		apierrors.BadRequest(c, "Failed to read upload")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		apierrors.BadRequest(c, "Failed to read upload")
		return
	}

	product, err := h.products.AddProductImage(c.Request.Context(), id, data)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProductDTO(*product))
}

// DeleteProduct deletes a product and its stored images
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.cascade.DeleteProduct(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}
