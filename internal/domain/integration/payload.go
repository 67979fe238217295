package integration

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// MaxProductNameLength is the longest display name the storefront accepts
	MaxProductNameLength = 80

	// ProductTypePhysical is the storefront product type for stocked goods
	ProductTypePhysical = "physical"
)

// ---------------------------------------------------------------------------
// Storefront payload shapes
// ---------------------------------------------------------------------------

// ProductPayload is the storefront representation of a catalog item
type ProductPayload struct {
	Name          string     `json:"name"`
	ProductType   string     `json:"productType"`
	Visible       bool       `json:"visible"`
	Slug          string     `json:"slug,omitempty"`
	SKU           string     `json:"sku,omitempty"`
	Barcode       string     `json:"barcode,omitempty"`
	Description   string     `json:"description,omitempty"`
	PriceData     *PriceData `json:"priceData,omitempty"`
	Weight        string     `json:"weight,omitempty"`
	Brand         string     `json:"brand,omitempty"`
	Media         *Media     `json:"media,omitempty"`
	CollectionIDs []string   `json:"collectionIds,omitempty"`
}

// PriceData carries the price as a string-encoded decimal
type PriceData struct {
	Price    string `json:"price"`
	Currency string `json:"currency,omitempty"`
}

// Media holds the product images
type Media struct {
	MainMedia string      `json:"mainMedia,omitempty"`
	Items     []MediaItem `json:"items,omitempty"`
}

// MediaItem is one product image
type MediaItem struct {
	URL string `json:"url"`
}

// CategoryPayload is the storefront representation of an item group
type CategoryPayload struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Slug        string `json:"slug,omitempty"`
	Visible     bool   `json:"visible"`
}

// InventoryPayload sets the stock level of a storefront product
type InventoryPayload struct {
	TrackQuantity bool   `json:"trackQuantity"`
	Quantity      int64  `json:"quantity"`
	InStock       bool   `json:"inStock"`
	SKU           string `json:"sku,omitempty"`
}

// ---------------------------------------------------------------------------
// Outbound transform
// ---------------------------------------------------------------------------

// ToRemotePayload converts a catalog item into the storefront product shape.
// Name, type, visibility and price are always emitted. Optional fields are
// emitted only when their toggle is on and the source value is non-empty.
// categoryRemoteID is the collection id of the item group, empty if unmapped.
func ToRemotePayload(item *CatalogItem, price decimal.Decimal, s Settings, categoryRemoteID string) *ProductPayload {
	p := &ProductPayload{
		Name:        strings.TrimSpace(item.Name),
		ProductType: ProductTypePhysical,
		Visible:     !item.Disabled,
		Slug:        Slugify(item.Name),
		SKU:         item.Code,
		Barcode:     item.Barcode,
		PriceData: &PriceData{
			Price:    FormatPrice(price),
			Currency: s.DefaultCurrency,
		},
	}

	if s.SyncDescription && strings.TrimSpace(item.Description) != "" {
		p.Description = item.Description
	}
	if s.SyncImages && strings.TrimSpace(item.Image) != "" {
		url := ResolveImageURL(item.Image, s.SiteBaseURL)
		p.Media = &Media{
			MainMedia: url,
			Items:     []MediaItem{{URL: url}},
		}
	}
	if s.SyncWeight && item.Weight.IsPositive() {
		p.Weight = item.Weight.StringFixed(3)
	}
	if s.SyncBrand && strings.TrimSpace(item.Brand) != "" {
		p.Brand = item.Brand
	}
	if s.SyncCategories && item.ItemGroup != "" && categoryRemoteID != "" {
		p.CollectionIDs = []string{categoryRemoteID}
	}
	return p
}

// ForUpdate returns the payload to send on update. The price is left out
// when price sync is switched off so storefront-side pricing is kept.
func (p *ProductPayload) ForUpdate(s Settings) *ProductPayload {
	c := *p
	if !s.SyncPrice {
		c.PriceData = nil
	}
	return &c
}

// ResolvePrice picks the price list entry if present, then the standing
// price, then zero. The result is rounded to two places.
func ResolvePrice(listPrice decimal.NullDecimal, standard decimal.Decimal) decimal.Decimal {
	switch {
	case listPrice.Valid:
		return listPrice.Decimal.Round(2)
	case !standard.IsZero():
		return standard.Round(2)
	default:
		return decimal.Zero
	}
}

// FormatPrice serializes a price as a two-place decimal string
func FormatPrice(price decimal.Decimal) string {
	return price.StringFixed(2)
}

// ResolveImageURL makes a relative image path absolute using the site base URL
func ResolveImageURL(path, siteBaseURL string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	lower := strings.ToLower(path)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(path, "//") {
		return path
	}
	base := strings.TrimRight(siteBaseURL, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

// ToCategoryPayload converts an item group into the storefront category shape
func ToCategoryPayload(group *ItemGroup, s Settings) *CategoryPayload {
	p := &CategoryPayload{
		Name:    strings.TrimSpace(group.Name),
		Slug:    Slugify(group.Name),
		Visible: true,
	}
	if s.SyncDescription {
		p.Description = group.Description
	}
	return p
}

// ToInventoryPayload converts a stock quantity into the storefront inventory shape.
// Fractional stock is rounded down and negative stock is reported as zero.
func ToInventoryPayload(item *CatalogItem) *InventoryPayload {
	qty := item.StockQty.Floor().IntPart()
	if qty < 0 {
		qty = 0
	}
	return &InventoryPayload{
		TrackQuantity: true,
		Quantity:      qty,
		InStock:       qty > 0,
		SKU:           item.Code,
	}
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

// ValidateRemotePayload checks a payload before submission. Violations are
// returned as messages; an empty result means the payload may be sent.
func ValidateRemotePayload(p *ProductPayload) []string {
	var errs []string
	if p == nil {
		return []string{"Payload is empty"}
	}

	name := strings.TrimSpace(p.Name)
	if name == "" {
		errs = append(errs, "Product name is required")
	} else if utf8.RuneCountInString(name) > MaxProductNameLength {
		errs = append(errs, "Product name must be 80 characters or fewer")
	}
	if strings.TrimSpace(p.ProductType) == "" {
		errs = append(errs, "Product type is required")
	}

	if p.PriceData == nil || strings.TrimSpace(p.PriceData.Price) == "" {
		errs = append(errs, "Price is required")
	} else if price, err := decimal.NewFromString(p.PriceData.Price); err != nil {
		errs = append(errs, "Price must be a valid number")
	} else if price.IsNegative() {
		errs = append(errs, "Price cannot be negative")
	}
	return errs
}

// ---------------------------------------------------------------------------
// Slugs
// ---------------------------------------------------------------------------

// Slugify builds a lowercase ASCII slug, dropping accents and joining words with dashes
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
