package models

import (
	"time"
)

type Address struct {
	Street          string `gorm:"type:varchar(255)" json:"street"`
	StreetAditional string `gorm:"type:varchar(255)" json:"street_aditional"`
	District        string `gorm:"type:varchar(255)" json:"district"`
	City            string `gorm:"type:varchar(255)" json:"city"`
	State           string `gorm:"type:varchar(255)" json:"state"`
	Country         string `gorm:"type:varchar(255)" json:"country"`
	ZipCode         string `gorm:"type:varchar(20)" json:"zip_code"`
}

type Contact struct {
	Phone string `gorm:"type:varchar(50)" json:"phone"`
	Email string `gorm:"type:varchar(255)" json:"email"`
}

type Parent struct {
	ID         uint64    `gorm:"primarykey" json:"id"`
	Name       string    `gorm:"type:varchar(255);not null" json:"name"`
	Address    Address   `gorm:"embedded;embeddedPrefix:address_" json:"address"`
	Contact    Contact   `gorm:"embedded;embeddedPrefix:contact_" json:"contact"`
	AdminID    uint64    `gorm:"uniqueIndex;not null" json:"admin_id"`
	BranchIDs  IDList    `gorm:"type:text" json:"branch_ids"`
	UserIDs    IDList    `gorm:"type:text" json:"user_ids"`
	ProductIDs IDList    `gorm:"type:text" json:"product_ids"`
	Version    uint64    `gorm:"not null;default:0" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (p *Parent) OwnerKind() OwnerKind    { return OwnerParent }
func (p *Parent) OwnerID() uint64         { return p.ID }
func (p *Parent) Members() *IDList        { return &p.UserIDs }
func (p *Parent) ProductMembers() *IDList { return &p.ProductIDs }
func (p *Parent) TenantID() uint64        { return p.ID }
