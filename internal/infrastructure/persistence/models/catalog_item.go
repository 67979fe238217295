package models

import (
	"time"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogItemModel maps the ERP item table read by outbound sync. Only the
// remote reference columns are written by this service.
type CatalogItemModel struct {
	Code          string          `gorm:"type:varchar(140);primary_key"`
	Name          string          `gorm:"type:varchar(255);not null"`
	Description   string          `gorm:"type:text"`
	StandardPrice decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Weight        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	WeightUnit    string          `gorm:"type:varchar(20)"`
	Image         string          `gorm:"type:varchar(500)"`
	Brand         string          `gorm:"type:varchar(140)"`
	ItemGroup     string          `gorm:"type:varchar(140);index"`
	Barcode       string          `gorm:"type:varchar(64);index"`
	StockQty      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Disabled      bool            `gorm:"not null;default:false"`
	HasVariants   bool            `gorm:"not null;default:false"`
	VariantOf     string          `gorm:"type:varchar(140)"`
	IsSalesItem   bool            `gorm:"not null"`
	IsStockItem   bool            `gorm:"not null"`
	ModifiedAt    time.Time       `gorm:"not null"`

	RemoteID   string                 `gorm:"column:storefront_remote_id;type:varchar(100);index"`
	SyncStatus integration.SyncStatus `gorm:"column:storefront_sync_status;type:varchar(20)"`
	LastSyncAt *time.Time             `gorm:"column:storefront_last_sync_at"`
}

// TableName returns the table name for GORM
func (CatalogItemModel) TableName() string {
	return "catalog_items"
}

// ToDomain converts the row to a domain CatalogItem
func (m *CatalogItemModel) ToDomain() *integration.CatalogItem {
	return &integration.CatalogItem{
		Code:          m.Code,
		Name:          m.Name,
		Description:   m.Description,
		StandardPrice: m.StandardPrice,
		Weight:        m.Weight,
		WeightUnit:    m.WeightUnit,
		Image:         m.Image,
		Brand:         m.Brand,
		ItemGroup:     m.ItemGroup,
		Barcode:       m.Barcode,
		StockQty:      m.StockQty,
		Disabled:      m.Disabled,
		HasVariants:   m.HasVariants,
		VariantOf:     m.VariantOf,
		IsSalesItem:   m.IsSalesItem,
		IsStockItem:   m.IsStockItem,
		ModifiedAt:    m.ModifiedAt,
		RemoteID:      m.RemoteID,
		SyncStatus:    m.SyncStatus,
		LastSyncAt:    m.LastSyncAt,
	}
}

// CatalogItemModelFromDomain creates a row from a domain CatalogItem
func CatalogItemModelFromDomain(i *integration.CatalogItem) *CatalogItemModel {
	return &CatalogItemModel{
		Code:          i.Code,
		Name:          i.Name,
		Description:   i.Description,
		StandardPrice: i.StandardPrice,
		Weight:        i.Weight,
		WeightUnit:    i.WeightUnit,
		Image:         i.Image,
		Brand:         i.Brand,
		ItemGroup:     i.ItemGroup,
		Barcode:       i.Barcode,
		StockQty:      i.StockQty,
		Disabled:      i.Disabled,
		HasVariants:   i.HasVariants,
		VariantOf:     i.VariantOf,
		IsSalesItem:   i.IsSalesItem,
		IsStockItem:   i.IsStockItem,
		ModifiedAt:    i.ModifiedAt,
		RemoteID:      i.RemoteID,
		SyncStatus:    i.SyncStatus,
		LastSyncAt:    i.LastSyncAt,
	}
}

// ItemPriceModel is one entry of a price list
type ItemPriceModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	PriceList string          `gorm:"type:varchar(140);not null;uniqueIndex:idx_item_price_list_item,priority:1"`
	ItemCode  string          `gorm:"type:varchar(140);not null;uniqueIndex:idx_item_price_list_item,priority:2"`
	Rate      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UpdatedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ItemPriceModel) TableName() string {
	return "item_prices"
}

// ItemGroupModel is a local catalog category
type ItemGroupModel struct {
	Name        string `gorm:"type:varchar(140);primary_key"`
	Description string `gorm:"type:text"`
	ParentGroup string `gorm:"type:varchar(140)"`
	Image       string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (ItemGroupModel) TableName() string {
	return "item_groups"
}

// ToDomain converts the row to a domain ItemGroup
func (m *ItemGroupModel) ToDomain() *integration.ItemGroup {
	return &integration.ItemGroup{
		Name:        m.Name,
		Description: m.Description,
		ParentGroup: m.ParentGroup,
		Image:       m.Image,
	}
}

// CategoryMappingModel links an item group with a storefront collection
type CategoryMappingModel struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key"`
	ItemGroup  string     `gorm:"type:varchar(140);not null;uniqueIndex"`
	RemoteID   string     `gorm:"type:varchar(100);index"`
	RemoteName string     `gorm:"type:varchar(255)"`
	IsActive   bool       `gorm:"not null"`
	LastSyncAt *time.Time `gorm:"index"`
	CreatedAt  time.Time  `gorm:"not null"`
	UpdatedAt  time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CategoryMappingModel) TableName() string {
	return "category_mappings"
}

// ToDomain converts the row to a domain CategoryMapping
func (m *CategoryMappingModel) ToDomain() *integration.CategoryMapping {
	return &integration.CategoryMapping{
		ID:         m.ID,
		ItemGroup:  m.ItemGroup,
		RemoteID:   m.RemoteID,
		RemoteName: m.RemoteName,
		IsActive:   m.IsActive,
		LastSyncAt: m.LastSyncAt,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// CategoryMappingModelFromDomain creates a row from a domain CategoryMapping
func CategoryMappingModelFromDomain(c *integration.CategoryMapping) *CategoryMappingModel {
	return &CategoryMappingModel{
		ID:         c.ID,
		ItemGroup:  c.ItemGroup,
		RemoteID:   c.RemoteID,
		RemoteName: c.RemoteName,
		IsActive:   c.IsActive,
		LastSyncAt: c.LastSyncAt,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}
