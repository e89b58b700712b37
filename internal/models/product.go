package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type WeightUnit string

const (
	WeightPound     WeightUnit = "lb"
	WeightOunce     WeightUnit = "oz"
	WeightMilligram WeightUnit = "mg"
	WeightGram      WeightUnit = "g"
	WeightKilogram  WeightUnit = "kg"
	WeightTon       WeightUnit = "t"
)

type Product struct {
	ID             uint64          `gorm:"primarykey" json:"id"`
	Name           string          `gorm:"type:varchar(255)" json:"name"`
	PartNumber     string          `gorm:"type:varchar(100)" json:"part_number"`
	Brand          string          `gorm:"type:varchar(255);not null" json:"brand"`
	Description    string          `gorm:"type:text" json:"description"`
	Weight         float64         `json:"weight"`
	WeightUnit     WeightUnit      `gorm:"type:varchar(5)" json:"weight_unit"`
	InitialStock   int64           `gorm:"not null" json:"initial_stock"`
	InitialCost    decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"initial_cost"`
	BuyPrice       decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"buy_price"`
	RetailPrice    decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"retail_price"`
	WholesalePrice decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"wholesale_price"`
	Tags           StringList      `gorm:"type:text" json:"tags"`
	Images         StringList      `gorm:"type:text" json:"images"`
	ParentID       *uint64         `gorm:"index" json:"parent_id"`
	BranchID       *uint64         `gorm:"index" json:"branch_id"`
	Version        uint64          `gorm:"not null;default:0" json:"-"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
