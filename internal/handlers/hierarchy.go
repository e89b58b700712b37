package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/hierarchy-api/internal/dto"
	apierrors "github.com/yukikurage/hierarchy-api/internal/errors"
	"github.com/yukikurage/hierarchy-api/internal/services"
	"github.com/yukikurage/hierarchy-api/internal/utils"
)

// HierarchyHandler serves parents and branches.
type HierarchyHandler struct {
	hierarchy *services.HierarchyService
	cascade   *services.CascadeService
}

func NewHierarchyHandler(hierarchy *services.HierarchyService, cascade *services.CascadeService) *HierarchyHandler {
	return &HierarchyHandler{
		hierarchy: hierarchy,
		cascade:   cascade,
	}
}

// CreateParent creates the parent of the authenticated admin
func (h *HierarchyHandler) CreateParent(c *gin.Context) {
	var req services.ProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	parent, err := h.hierarchy.CreateParent(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToParentDTO(*parent))
}

// GetParent returns the parent of the authenticated admin
func (h *HierarchyHandler) GetParent(c *gin.Context) {
	parent, err := h.hierarchy.GetParent(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToParentDTO(*parent))
}

// UpdateParent replaces the profile of the admin's parent
func (h *HierarchyHandler) UpdateParent(c *gin.Context) {
	var req services.ProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	parent, err := h.hierarchy.UpdateParent(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToParentDTO(*parent))
}

// DeleteParent deletes the admin's parent with all of its branches, users and products
func (h *HierarchyHandler) DeleteParent(c *gin.Context) {
	if err := h.cascade.DeleteParent(c.Request.Context()); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Parent deleted successfully"})
}

// ListBranches returns the branches visible to the actor
func (h *HierarchyHandler) ListBranches(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	branches, total, err := h.hierarchy.ListBranches(c.Request.Context(), params)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToBranchListResponse(branches, params, total))
}

// GetBranch returns a branch by ID
func (h *HierarchyHandler) GetBranch(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	branch, err := h.hierarchy.GetBranch(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToBranchDTO(*branch))
}

// CreateBranch creates a branch under the admin's parent
func (h *HierarchyHandler) CreateBranch(c *gin.Context) {
	var req services.ProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	branch, err := h.hierarchy.CreateBranch(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToBranchDTO(*branch))
}

// UpdateBranch replaces the profile of a branch
func (h *HierarchyHandler) UpdateBranch(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.ProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	branch, err := h.hierarchy.UpdateBranch(c.Request.Context(), id, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToBranchDTO(*branch))
}

// SetBranchManager sets or clears the manager of a branch
func (h *HierarchyHandler) SetBranchManager(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	type SetManagerRequest struct {
		ManagerID uint64 `json:"manager_id"`
	}

	var req SetManagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	branch, err := h.hierarchy.SetBranchManager(c.Request.Context(), id, req.ManagerID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToBranchDTO(*branch))
}

// DeleteBranch deletes a branch with its users and products
func (h *HierarchyHandler) DeleteBranch(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.cascade.DeleteBranch(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Branch deleted successfully"})
}
