package integration

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalogItem() *CatalogItem {
	return &CatalogItem{
		Code:          "SKU-001",
		Name:          "Ceramic Mug",
		Description:   "Hand glazed 350ml mug",
		StandardPrice: decimal.RequireFromString("29.99"),
		Weight:        decimal.RequireFromString("0.4"),
		Image:         "/files/mug.png",
		Brand:         "Kiln & Co",
		ItemGroup:     "Kitchen",
		Barcode:       "4006381333931",
		StockQty:      decimal.NewFromInt(12),
		IsSalesItem:   true,
		IsStockItem:   true,
	}
}

func testSettings() Settings {
	s := DefaultSettings()
	s.Enabled = true
	s.APIBaseURL = "https://api.storefront.test/v1"
	s.SiteBaseURL = "https://erp.example.com"
	s.APIKey = "secret-key"
	s.SiteID = "site-1"
	s.AccountID = "acct-1"
	return s
}

// ---------------------------------------------------------------------------
// ToRemotePayload Tests
// ---------------------------------------------------------------------------

func TestToRemotePayload(t *testing.T) {
	t.Run("All toggles on", func(t *testing.T) {
		item := testCatalogItem()
		p := ToRemotePayload(item, decimal.RequireFromString("29.99"), testSettings(), "col-9")

		assert.Equal(t, "Ceramic Mug", p.Name)
		assert.Equal(t, ProductTypePhysical, p.ProductType)
		assert.True(t, p.Visible)
		assert.Equal(t, "ceramic-mug", p.Slug)
		assert.Equal(t, "SKU-001", p.SKU)
		assert.Equal(t, "Hand glazed 350ml mug", p.Description)
		require.NotNil(t, p.PriceData)
		assert.Equal(t, "29.99", p.PriceData.Price)
		assert.Equal(t, "0.400", p.Weight)
		assert.Equal(t, "Kiln & Co", p.Brand)
		require.NotNil(t, p.Media)
		assert.Equal(t, "https://erp.example.com/files/mug.png", p.Media.MainMedia)
		assert.Equal(t, []string{"col-9"}, p.CollectionIDs)
	})

	t.Run("Toggles off omit optional fields", func(t *testing.T) {
		s := testSettings()
		s.SyncDescription = false
		s.SyncImages = false
		s.SyncWeight = false
		s.SyncBrand = false
		s.SyncCategories = false

		p := ToRemotePayload(testCatalogItem(), decimal.RequireFromString("29.99"), s, "col-9")
		assert.Empty(t, p.Description)
		assert.Nil(t, p.Media)
		assert.Empty(t, p.Weight)
		assert.Empty(t, p.Brand)
		assert.Empty(t, p.CollectionIDs)
		assert.Equal(t, "Ceramic Mug", p.Name)
		assert.NotNil(t, p.PriceData)
	})

	t.Run("Empty source fields are omitted even when toggled on", func(t *testing.T) {
		item := &CatalogItem{Code: "SKU-002", Name: "Plain", IsSalesItem: true}
		p := ToRemotePayload(item, decimal.Zero, testSettings(), "")

		data, err := json.Marshal(p)
		require.NoError(t, err)
		var raw map[string]any
		require.NoError(t, json.Unmarshal(data, &raw))

		assert.Equal(t, "Plain", raw["name"])
		assert.Equal(t, "physical", raw["productType"])
		assert.Equal(t, true, raw["visible"])
		for _, key := range []string{"description", "media", "weight", "brand", "collectionIds"} {
			assert.NotContains(t, raw, key)
		}
	})

	t.Run("Price serialized as string", func(t *testing.T) {
		p := ToRemotePayload(testCatalogItem(), decimal.NewFromInt(30), testSettings(), "")
		data, err := json.Marshal(p)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"price":"30.00"`)
	})
}

func TestProductPayload_ForUpdate(t *testing.T) {
	p := ToRemotePayload(testCatalogItem(), decimal.NewFromInt(10), testSettings(), "")

	s := testSettings()
	assert.NotNil(t, p.ForUpdate(s).PriceData)

	s.SyncPrice = false
	u := p.ForUpdate(s)
	assert.Nil(t, u.PriceData)
	assert.NotNil(t, p.PriceData, "original payload is not modified")
}

func TestResolvePrice(t *testing.T) {
	tests := []struct {
		name     string
		list     decimal.NullDecimal
		standard decimal.Decimal
		want     string
	}{
		{"price list wins", decimal.NewNullDecimal(decimal.RequireFromString("24.5")), decimal.RequireFromString("29.99"), "24.50"},
		{"standing price", decimal.NullDecimal{}, decimal.RequireFromString("29.994"), "29.99"},
		{"rounded half up", decimal.NullDecimal{}, decimal.RequireFromString("10.005"), "10.01"},
		{"fallback zero", decimal.NullDecimal{}, decimal.Zero, "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatPrice(ResolvePrice(tt.list, tt.standard)))
		})
	}
}

func TestResolveImageURL(t *testing.T) {
	tests := []struct {
		path string
		base string
		want string
	}{
		{"/files/a.png", "https://erp.example.com", "https://erp.example.com/files/a.png"},
		{"files/a.png", "https://erp.example.com/", "https://erp.example.com/files/a.png"},
		{"https://cdn.example.com/a.png", "https://erp.example.com", "https://cdn.example.com/a.png"},
		{"HTTP://cdn.example.com/a.png", "https://erp.example.com", "HTTP://cdn.example.com/a.png"},
		{"", "https://erp.example.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveImageURL(tt.path, tt.base))
		})
	}
}

// ---------------------------------------------------------------------------
// ValidateRemotePayload Tests
// ---------------------------------------------------------------------------

func TestValidateRemotePayload(t *testing.T) {
	valid := func() *ProductPayload {
		return ToRemotePayload(testCatalogItem(), decimal.RequireFromString("29.99"), testSettings(), "")
	}

	t.Run("Valid payload", func(t *testing.T) {
		assert.Empty(t, ValidateRemotePayload(valid()))
	})

	t.Run("Missing price", func(t *testing.T) {
		p := valid()
		p.PriceData = nil
		assert.Contains(t, ValidateRemotePayload(p), "Price is required")
	})

	t.Run("Non numeric price", func(t *testing.T) {
		p := valid()
		p.PriceData.Price = "twelve"
		assert.Contains(t, ValidateRemotePayload(p), "Price must be a valid number")
	})

	t.Run("Name longer than 80 characters", func(t *testing.T) {
		p := valid()
		p.Name = strings.Repeat("n", 81)
		assert.Contains(t, ValidateRemotePayload(p), "Product name must be 80 characters or fewer")
	})

	t.Run("Name of exactly 80 multibyte characters", func(t *testing.T) {
		p := valid()
		p.Name = strings.Repeat("é", 80)
		assert.Empty(t, ValidateRemotePayload(p))
	})

	t.Run("Violations are collected", func(t *testing.T) {
		p := &ProductPayload{}
		errs := ValidateRemotePayload(p)
		assert.Len(t, errs, 3)
	})
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "ceramic-mug", Slugify("Ceramic Mug"))
	assert.Equal(t, "creme-brulee-set-2", Slugify("  Crème Brûlée  Set #2 "))
	assert.Equal(t, "", Slugify("!!!"))
}

func TestToInventoryPayload(t *testing.T) {
	item := testCatalogItem()
	item.StockQty = decimal.RequireFromString("7.8")
	p := ToInventoryPayload(item)
	assert.Equal(t, int64(7), p.Quantity)
	assert.True(t, p.InStock)

	item.StockQty = decimal.NewFromInt(-2)
	p = ToInventoryPayload(item)
	assert.Zero(t, p.Quantity)
	assert.False(t, p.InStock)
}
