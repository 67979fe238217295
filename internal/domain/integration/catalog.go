package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// CatalogItem
// ---------------------------------------------------------------------------

// CatalogItem is the local catalog record that outbound sync reads.
// The ERP owns it. Sync only writes back the remote reference fields
// through CatalogWriter.UpdateSyncFields.
type CatalogItem struct {
	Code          string
	Name          string
	Description   string
	StandardPrice decimal.Decimal
	Weight        decimal.Decimal
	WeightUnit    string
	Image         string
	Brand         string
	ItemGroup     string
	Barcode       string
	StockQty      decimal.Decimal
	Disabled      bool
	HasVariants   bool
	VariantOf     string
	IsSalesItem   bool
	IsStockItem   bool
	ModifiedAt    time.Time

	// Remote reference side channel
	RemoteID   string
	SyncStatus SyncStatus
	LastSyncAt *time.Time
}

// IsTemplate reports whether the item is the parent of variants.
// Templates are not sold directly and never sync.
func (i *CatalogItem) IsTemplate() bool {
	return i.HasVariants
}

// IsSellable reports whether the item can be listed on the storefront
func (i *CatalogItem) IsSellable() bool {
	return i.IsSalesItem || i.IsStockItem
}

// CatalogReader reads local catalog items
type CatalogReader interface {
	// FindByCode finds an item by its code, ErrLocalEntityNotFound if absent
	FindByCode(ctx context.Context, code string) (*CatalogItem, error)

	// ExistsByCode checks if an item exists
	ExistsByCode(ctx context.Context, code string) (bool, error)

	// FindByBarcode finds an item by barcode, used to match inbound lines
	FindByBarcode(ctx context.Context, barcode string) (*CatalogItem, error)

	// FindUnsynced lists enabled sellable items that have no remote id yet
	FindUnsynced(ctx context.Context, limit int) ([]CatalogItem, error)
}

// CatalogWriter writes the remote reference side channel back to the catalog
type CatalogWriter interface {
	UpdateSyncFields(ctx context.Context, code string, remoteID string, status SyncStatus, lastSyncAt *time.Time) error
}

// RemoteReferenceReader pages through items that already carry a remote id
// in the catalog side channel, ordered by code
type RemoteReferenceReader interface {
	// FindWithRemoteID returns up to limit items with a code after afterCode
	FindWithRemoteID(ctx context.Context, afterCode string, limit int) ([]CatalogItem, error)
}

// PriceListReader resolves explicit price list entries
type PriceListReader interface {
	// FindItemPrice returns the price of an item on a price list.
	// The bool is false when the list has no entry for the item.
	FindItemPrice(ctx context.Context, priceList string, code string) (decimal.Decimal, bool, error)
}

// ---------------------------------------------------------------------------
// ItemGroup and CategoryMapping
// ---------------------------------------------------------------------------

// ItemGroup is a local catalog category
type ItemGroup struct {
	Name        string
	Description string
	ParentGroup string
	Image       string
}

// ItemGroupReader reads local item groups
type ItemGroupReader interface {
	FindByName(ctx context.Context, name string) (*ItemGroup, error)
}

// CategoryMapping links a local item group with a storefront collection.
// There is at most one mapping per item group.
type CategoryMapping struct {
	ID         uuid.UUID
	ItemGroup  string
	RemoteID   string
	RemoteName string
	IsActive   bool
	LastSyncAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewCategoryMapping creates an active category mapping
func NewCategoryMapping(itemGroup, remoteID, remoteName string) (*CategoryMapping, error) {
	if itemGroup == "" {
		return nil, ErrInvalidLocalID
	}
	now := time.Now()
	return &CategoryMapping{
		ID:         uuid.New(),
		ItemGroup:  itemGroup,
		RemoteID:   remoteID,
		RemoteName: remoteName,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// CategoryMappingRepository persists category mappings
type CategoryMappingRepository interface {
	FindByItemGroup(ctx context.Context, itemGroup string) (*CategoryMapping, error)
	FindByRemoteID(ctx context.Context, remoteID string) (*CategoryMapping, error)
	// Save inserts or updates a mapping, keyed by item group
	Save(ctx context.Context, mapping *CategoryMapping) error
}
