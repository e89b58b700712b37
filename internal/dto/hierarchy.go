package dto

import (
	"time"

	"github.com/yukikurage/hierarchy-api/internal/models"
	"github.com/yukikurage/hierarchy-api/internal/utils"
)

// ParentDTO represents a parent in API responses
type ParentDTO struct {
	ID         uint64         `json:"id"`
	Name       string         `json:"name"`
	Address    models.Address `json:"address"`
	Contact    models.Contact `json:"contact"`
	AdminID    uint64         `json:"admin_id"`
	BranchIDs  []uint64       `json:"branch_ids"`
	UserIDs    []uint64       `json:"user_ids"`
	ProductIDs []uint64       `json:"product_ids"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// BranchDTO represents a branch in API responses
type BranchDTO struct {
	ID         uint64         `json:"id"`
	ParentID   uint64         `json:"parent_id"`
	ManagerID  *uint64        `json:"manager_id"`
	Name       string         `json:"name"`
	Address    models.Address `json:"address"`
	Contact    models.Contact `json:"contact"`
	UserIDs    []uint64       `json:"user_ids"`
	ProductIDs []uint64       `json:"product_ids"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// BranchListResponse represents a paginated list of branches
type BranchListResponse struct {
	Branches   []BranchDTO              `json:"branches"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// OwnerDTO is returned by assignment endpoints: the parent or branch after the change
type OwnerDTO struct {
	Kind   models.OwnerKind `json:"kind"`
	Parent *ParentDTO       `json:"parent,omitempty"`
	Branch *BranchDTO       `json:"branch,omitempty"`
}

// ids never serializes a nil list as null
func ids(list models.IDList) []uint64 {
	if list == nil {
		return []uint64{}
	}
	return list
}

// ToParentDTO converts a Parent model to ParentDTO
func ToParentDTO(parent models.Parent) ParentDTO {
	return ParentDTO{
		ID:         parent.ID,
		Name:       parent.Name,
		Address:    parent.Address,
		Contact:    parent.Contact,
		AdminID:    parent.AdminID,
		BranchIDs:  ids(parent.BranchIDs),
		UserIDs:    ids(parent.UserIDs),
		ProductIDs: ids(parent.ProductIDs),
		CreatedAt:  parent.CreatedAt,
		UpdatedAt:  parent.UpdatedAt,
	}
}

// ToBranchDTO converts a Branch model to BranchDTO
func ToBranchDTO(branch models.Branch) BranchDTO {
	return BranchDTO{
		ID:         branch.ID,
		ParentID:   branch.ParentID,
		ManagerID:  branch.ManagerID,
		Name:       branch.Name,
		Address:    branch.Address,
		Contact:    branch.Contact,
		UserIDs:    ids(branch.UserIDs),
		ProductIDs: ids(branch.ProductIDs),
		CreatedAt:  branch.CreatedAt,
		UpdatedAt:  branch.UpdatedAt,
	}
}

// ToBranchListResponse converts a page of branches
func ToBranchListResponse(branches []models.Branch, page utils.PaginationParams, total int64) BranchListResponse {
	items := make([]BranchDTO, len(branches))
	for i, branch := range branches {
		items[i] = ToBranchDTO(branch)
	}
	return BranchListResponse{
		Branches:   items,
		Pagination: page.Response(total),
	}
}

// ToOwnerDTO converts a parent or branch
func ToOwnerDTO(owner models.Owner) OwnerDTO {
	out := OwnerDTO{Kind: owner.OwnerKind()}
	switch o := owner.(type) {
	case *models.Parent:
		p := ToParentDTO(*o)
		out.Parent = &p
	case *models.Branch:
		b := ToBranchDTO(*o)
		out.Branch = &b
	}
	return out
}
