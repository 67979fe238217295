package models

import (
	"time"

	"github.com/erp/storesync/internal/domain/integration"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SalesOrderModel is an ERP sales order created from a storefront order
type SalesOrderModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderNumber   string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	RemoteOrderID string          `gorm:"type:varchar(100);not null;uniqueIndex"`
	RemoteNumber  string          `gorm:"type:varchar(50)"`
	CustomerName  string          `gorm:"type:varchar(200)"`
	CustomerEmail string          `gorm:"type:varchar(200)"`
	Currency      string          `gorm:"type:varchar(3)"`
	Total         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Paid          bool            `gorm:"not null;default:false"`
	PaidAt        *time.Time
	OrderedAt     time.Time             `gorm:"not null"`
	Lines         []SalesOrderLineModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time             `gorm:"not null"`
	UpdatedAt     time.Time             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SalesOrderModel) TableName() string {
	return "sales_orders"
}

// SalesOrderLineModel is one line of a sales order
type SalesOrderLineModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	ItemCode        string          `gorm:"type:varchar(140)"`
	RemoteProductID string          `gorm:"type:varchar(100)"`
	SKU             string          `gorm:"type:varchar(140)"`
	Name            string          `gorm:"type:varchar(255)"`
	Quantity        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Rate            decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (SalesOrderLineModel) TableName() string {
	return "sales_order_lines"
}

// SalesOrderModelFromInbound builds an order with its lines from an inbound order
func SalesOrderModelFromInbound(o *integration.InboundOrder, orderNumber string, now time.Time) *SalesOrderModel {
	m := &SalesOrderModel{
		ID:            uuid.New(),
		OrderNumber:   orderNumber,
		RemoteOrderID: o.RemoteOrderID,
		RemoteNumber:  o.Number,
		CustomerName:  o.BuyerName,
		CustomerEmail: o.BuyerEmail,
		Currency:      o.Currency,
		Total:         o.Total,
		Paid:          o.Paid,
		OrderedAt:     o.CreatedAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if o.Paid {
		m.PaidAt = &now
	}
	for _, l := range o.Lines {
		m.Lines = append(m.Lines, SalesOrderLineModel{
			ID:              uuid.New(),
			OrderID:         m.ID,
			ItemCode:        l.ItemCode,
			RemoteProductID: l.RemoteProductID,
			SKU:             l.SKU,
			Name:            l.Name,
			Quantity:        l.Quantity,
			Rate:            l.Price,
			Amount:          l.Price.Mul(l.Quantity),
		})
	}
	return m
}
