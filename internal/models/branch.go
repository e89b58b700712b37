package models

import (
	"time"
)

type Branch struct {
	ID         uint64    `gorm:"primarykey" json:"id"`
	ParentID   uint64    `gorm:"index;not null" json:"parent_id"`
	ManagerID  *uint64   `gorm:"index" json:"manager_id"`
	Name       string    `gorm:"type:varchar(255);not null" json:"name"`
	Address    Address   `gorm:"embedded;embeddedPrefix:address_" json:"address"`
	Contact    Contact   `gorm:"embedded;embeddedPrefix:contact_" json:"contact"`
	UserIDs    IDList    `gorm:"type:text" json:"user_ids"`
	ProductIDs IDList    `gorm:"type:text" json:"product_ids"`
	Version    uint64    `gorm:"not null;default:0" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (b *Branch) OwnerKind() OwnerKind    { return OwnerBranch }
func (b *Branch) OwnerID() uint64         { return b.ID }
func (b *Branch) Members() *IDList        { return &b.UserIDs }
func (b *Branch) ProductMembers() *IDList { return &b.ProductIDs }
func (b *Branch) TenantID() uint64        { return b.ParentID }
