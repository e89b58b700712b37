package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/hierarchy-api/internal/dto"
	apierrors "github.com/yukikurage/hierarchy-api/internal/errors"
	"github.com/yukikurage/hierarchy-api/internal/models"
	"github.com/yukikurage/hierarchy-api/internal/services"
	"github.com/yukikurage/hierarchy-api/internal/utils"
)

// UserHandler serves user management and placement.
type UserHandler struct {
	identity   *services.IdentityService
	assignment *services.AssignmentService
	cascade    *services.CascadeService
}

func NewUserHandler(identity *services.IdentityService, assignment *services.AssignmentService, cascade *services.CascadeService) *UserHandler {
	return &UserHandler{
		identity:   identity,
		assignment: assignment,
		cascade:    cascade,
	}
}

// ListUsers returns the users visible to the actor
func (h *UserHandler) ListUsers(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	users, total, err := h.identity.ListUsers(c.Request.Context(), params)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserListResponse(users, params, total))
}

// GetUser returns a user by ID
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	user, err := h.identity.GetUser(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// CreateUser creates an unplaced user
func (h *UserHandler) CreateUser(c *gin.Context) {
	type CreateUserRequest struct {
		Name            string      `json:"name" binding:"required"`
		Email           string      `json:"email" binding:"required"`
		Password        string      `json:"password" binding:"required"`
		PasswordConfirm string      `json:"password_confirm" binding:"required"`
		Role            models.Role `json:"role"`
	}

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.identity.CreateUser(c.Request.Context(), services.CreateUserInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		Role:            req.Role,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToUserDTO(*user))
}

// DeleteUser deletes a user and removes it from its parent or branch
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.cascade.DeleteUser(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

// SetActive sets the activation flag; without a body it toggles the flag
func (h *UserHandler) SetActive(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	type SetActiveRequest struct {
		Active *bool `json:"active"`
	}

	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.identity.SetActive(c.Request.Context(), id, req.Active)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// AssignParent places a user into a parent
func (h *UserHandler) AssignParent(c *gin.Context) {
	h.changePlacement(c, models.OwnerParent, "parentId", h.assignment.Assign)
}

// UnassignParent removes a user from a parent
func (h *UserHandler) UnassignParent(c *gin.Context) {
	h.changePlacement(c, models.OwnerParent, "parentId", h.assignment.Unassign)
}

// AssignBranch places a user into a branch
func (h *UserHandler) AssignBranch(c *gin.Context) {
	h.changePlacement(c, models.OwnerBranch, "branchId", h.assignment.Assign)
}

// UnassignBranch removes a user from a branch
func (h *UserHandler) UnassignBranch(c *gin.Context) {
	h.changePlacement(c, models.OwnerBranch, "branchId", h.assignment.Unassign)
}

type placementFunc func(ctx context.Context, input services.AssignInput) (models.Owner, error)

func (h *UserHandler) changePlacement(c *gin.Context, kind models.OwnerKind, ownerParam string, change placementFunc) {
	userID, ok := parseID(c, "id")
	if !ok {
		return
	}
	ownerID, ok := parseID(c, ownerParam)
	if !ok {
		return
	}

	owner, err := change(c.Request.Context(), services.AssignInput{
		UserID:    userID,
		OwnerKind: kind,
		OwnerID:   ownerID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToOwnerDTO(owner))
}
