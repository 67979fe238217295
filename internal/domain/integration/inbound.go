package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmespath/go-jmespath"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Webhook events
// ---------------------------------------------------------------------------

// WebhookEventType is the event identifier sent by the storefront
type WebhookEventType string

const (
	EventProductCreated   WebhookEventType = "PRODUCT_CREATED"
	EventProductUpdated   WebhookEventType = "PRODUCT_UPDATED"
	EventProductDeleted   WebhookEventType = "PRODUCT_DELETED"
	EventInventoryUpdated WebhookEventType = "INVENTORY_UPDATED"
	EventOrderCreated     WebhookEventType = "ORDER_CREATED"
	EventOrderUpdated     WebhookEventType = "ORDER_UPDATED"
	EventOrderPaid        WebhookEventType = "ORDER_PAID"
	EventCategoryCreated  WebhookEventType = "CATEGORY_CREATED"
	EventCategoryUpdated  WebhookEventType = "CATEGORY_UPDATED"
)

// String returns the string representation of WebhookEventType
func (t WebhookEventType) String() string {
	return string(t)
}

// NormalizeEventType upper-cases the type and accepts dotted forms such as
// "product.created"
func NormalizeEventType(raw string) WebhookEventType {
	t := strings.ToUpper(strings.TrimSpace(raw))
	t = strings.NewReplacer(".", "_", "-", "_", "/", "_").Replace(t)
	return WebhookEventType(t)
}

// WebhookEvent is a decoded inbound notification
type WebhookEvent struct {
	ID   string
	Type WebhookEventType
	// Data is the event body, the "data" object when present
	Data       map[string]any
	ReceivedAt time.Time
}

var (
	eventTypeExpr = jmespath.MustCompile("eventType || event_type || type")
	eventIDExpr   = jmespath.MustCompile("eventId || event_id || id")

	remoteProductIDExpr = jmespath.MustCompile("productId || product.id || entityId || id")
	quantityExpr        = jmespath.MustCompile("quantity || inventory.quantity || stock.quantity")

	categoryIDExpr   = jmespath.MustCompile("categoryId || category.id || collectionId || id")
	categoryNameExpr = jmespath.MustCompile("category.name || collection.name || name")

	orderIDExpr       = jmespath.MustCompile("orderId || order.id || id")
	orderNumberExpr   = jmespath.MustCompile("order.number || number")
	orderRootExpr     = jmespath.MustCompile("order || @")
	buyerEmailExpr    = jmespath.MustCompile("buyerInfo.email || buyer.email || contact.email")
	buyerFirstExpr    = jmespath.MustCompile("buyerInfo.firstName || buyer.firstName || contact.firstName")
	buyerLastExpr     = jmespath.MustCompile("buyerInfo.lastName || buyer.lastName || contact.lastName")
	currencyExpr      = jmespath.MustCompile("currency || priceSummary.currency")
	totalExpr         = jmespath.MustCompile("totals.total || priceSummary.total.amount || priceSummary.total || total")
	paymentStatusExpr = jmespath.MustCompile("paymentStatus || payment.status")
	createdAtExpr     = jmespath.MustCompile("dateCreated || createdDate || createdAt")
	lineItemsExpr     = jmespath.MustCompile("lineItems || items")

	lineProductIDExpr = jmespath.MustCompile("productId || catalogReference.catalogItemId || product.id")
	lineSKUExpr       = jmespath.MustCompile("sku || physicalProperties.sku")
	lineNameExpr      = jmespath.MustCompile("name || productName.original || productName")
	lineQuantityExpr  = jmespath.MustCompile("quantity")
	linePriceExpr     = jmespath.MustCompile("price.amount || price || priceData.price")
)

// ParseWebhookEvent decodes a webhook body. headerType and headerID take
// precedence over the matching payload fields.
func ParseWebhookEvent(body []byte, headerType, headerID string) (*WebhookEvent, error) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if payload == nil {
		return nil, fmt.Errorf("%w: body must be a JSON object", ErrMalformedPayload)
	}

	rawType := strings.TrimSpace(headerType)
	if rawType == "" {
		rawType = searchString(eventTypeExpr, payload)
	}
	if rawType == "" {
		return nil, ErrMissingEventType
	}

	id := strings.TrimSpace(headerID)
	if id == "" {
		id = searchString(eventIDExpr, payload)
	}

	data := payload
	if nested, ok := payload["data"].(map[string]any); ok {
		data = nested
	}

	return &WebhookEvent{
		ID:         id,
		Type:       NormalizeEventType(rawType),
		Data:       data,
		ReceivedAt: time.Now(),
	}, nil
}

// RemoteProductID extracts the storefront product id from event data
func (e *WebhookEvent) RemoteProductID() string {
	return searchString(remoteProductIDExpr, e.Data)
}

// Quantity extracts an inventory quantity from event data
func (e *WebhookEvent) Quantity() (decimal.Decimal, bool) {
	return searchDecimal(quantityExpr, e.Data)
}

// Category extracts the storefront category id and name from event data
func (e *WebhookEvent) Category() (string, string) {
	return searchString(categoryIDExpr, e.Data), searchString(categoryNameExpr, e.Data)
}

// ---------------------------------------------------------------------------
// Inbound orders
// ---------------------------------------------------------------------------

// InboundOrder is the local view of a storefront order
type InboundOrder struct {
	RemoteOrderID string
	Number        string
	BuyerEmail    string
	BuyerName     string
	Currency      string
	Total         decimal.Decimal
	Paid          bool
	CreatedAt     time.Time
	Lines         []InboundOrderLine
}

// InboundOrderLine is one line of an inbound order
type InboundOrderLine struct {
	RemoteProductID string
	SKU             string
	Name            string
	Quantity        decimal.Decimal
	Price           decimal.Decimal
	// ItemCode is the resolved local item, filled in by the order service
	ItemCode string
}

// ParseInboundOrder converts order event data into an InboundOrder
func ParseInboundOrder(data map[string]any) (*InboundOrder, error) {
	root, err := orderRootExpr.Search(data)
	if err != nil || root == nil {
		root = data
	}

	order := &InboundOrder{
		RemoteOrderID: searchString(orderIDExpr, data),
		Number:        searchString(orderNumberExpr, data),
		BuyerEmail:    searchString(buyerEmailExpr, root),
		Currency:      searchString(currencyExpr, root),
		CreatedAt:     time.Now(),
	}
	if order.RemoteOrderID == "" {
		return nil, fmt.Errorf("%w: order id is missing", ErrInvalidInboundOrder)
	}

	name := strings.TrimSpace(searchString(buyerFirstExpr, root) + " " + searchString(buyerLastExpr, root))
	if name == "" {
		name = order.BuyerEmail
	}
	order.BuyerName = name

	if total, ok := searchDecimal(totalExpr, root); ok {
		order.Total = total.Round(2)
	}
	switch strings.ToUpper(searchString(paymentStatusExpr, root)) {
	case "PAID", "FULLY_PAID":
		order.Paid = true
	}
	if created := searchString(createdAtExpr, root); created != "" {
		if ts, err := time.Parse(time.RFC3339, created); err == nil {
			order.CreatedAt = ts
		}
	}

	items, _ := lineItemsExpr.Search(root)
	list, _ := items.([]any)
	for _, raw := range list {
		line := InboundOrderLine{
			RemoteProductID: searchString(lineProductIDExpr, raw),
			SKU:             searchString(lineSKUExpr, raw),
			Name:            searchString(lineNameExpr, raw),
		}
		if qty, ok := searchDecimal(lineQuantityExpr, raw); ok {
			line.Quantity = qty
		}
		if price, ok := searchDecimal(linePriceExpr, raw); ok {
			line.Price = price.Round(2)
		}
		if line.Quantity.IsZero() {
			line.Quantity = decimal.NewFromInt(1)
		}
		order.Lines = append(order.Lines, line)
	}
	if len(order.Lines) == 0 {
		return nil, fmt.Errorf("%w: order %s has no line items", ErrInvalidInboundOrder, order.RemoteOrderID)
	}
	if order.Total.IsZero() {
		for _, l := range order.Lines {
			order.Total = order.Total.Add(l.Price.Mul(l.Quantity))
		}
	}
	return order, nil
}

// InboundOrderID extracts the storefront order id from order event data
func InboundOrderID(data map[string]any) string {
	return searchString(orderIDExpr, data)
}

// OrderWriter creates local sales orders from inbound orders
type OrderWriter interface {
	// CreateSalesOrder stores the order and returns the local order id
	CreateSalesOrder(ctx context.Context, order *InboundOrder) (string, error)

	// MarkPaid records payment on a previously created order
	MarkPaid(ctx context.Context, localOrderID string, paidAt time.Time) error
}

// ---------------------------------------------------------------------------
// JMESPath helpers
// ---------------------------------------------------------------------------

func searchString(expr *jmespath.JMESPath, data any) string {
	if data == nil {
		return ""
	}
	v, err := expr.Search(data)
	if err != nil || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

func searchDecimal(expr *jmespath.JMESPath, data any) (decimal.Decimal, bool) {
	if data == nil {
		return decimal.Zero, false
	}
	v, err := expr.Search(data)
	if err != nil || v == nil {
		return decimal.Zero, false
	}
	switch val := v.(type) {
	case float64:
		return decimal.NewFromFloat(val), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(val))
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		return decimal.Zero, false
	}
}

// ---------------------------------------------------------------------------
// Deduplication
// ---------------------------------------------------------------------------

// DefaultWebhookDedupTTL is how long a delivered event id is remembered
const DefaultWebhookDedupTTL = 24 * time.Hour

// EventDeduplicator remembers processed webhook event ids
type EventDeduplicator interface {
	// MarkProcessed returns true if the id was newly marked, false if it was
	// already processed within the TTL
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// Release forgets an id so that a redelivery is processed again
	Release(ctx context.Context, eventID string) error
}
