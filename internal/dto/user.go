package dto

import (
	"time"

	"github.com/yukikurage/hierarchy-api/internal/models"
	"github.com/yukikurage/hierarchy-api/internal/utils"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID        uint64      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	Active    bool        `json:"active"`
	ParentID  *uint64     `json:"parent_id"`
	BranchID  *uint64     `json:"branch_id"`
	TenantID  *uint64     `json:"tenant_id"`
	CreatedAt time.Time   `json:"created_at"`
}

// UserListResponse represents a paginated list of users
type UserListResponse struct {
	Users      []UserDTO                `json:"users"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// AuthResponse is returned by login and password reset
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserDTO   `json:"user"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		Active:    user.Active,
		ParentID:  user.ParentID,
		BranchID:  user.BranchID,
		TenantID:  user.TenantID,
		CreatedAt: user.CreatedAt,
	}
}

// ToUserListResponse converts a page of users
func ToUserListResponse(users []models.User, page utils.PaginationParams, total int64) UserListResponse {
	items := make([]UserDTO, len(users))
	for i, user := range users {
		items[i] = ToUserDTO(user)
	}
	return UserListResponse{
		Users:      items,
		Pagination: page.Response(total),
	}
}
