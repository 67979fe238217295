// Package models contains GORM persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns; each model carries ToDomain / FromDomain mappers.
//
// Structure:
// - sync.go: sync state (entity mappings, audit log, integration settings)
// - catalog_item.go: local ERP catalog (items, prices, groups, category mappings)
// - sales_order.go: inbound storefront orders
package models
