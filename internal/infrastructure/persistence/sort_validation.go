package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed != "" && allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// OrderClause builds a whitelisted "column DIR" clause for gorm's Order
func OrderClause(field, dir string, allowed map[string]bool, defaultField string) string {
	return ValidateSortField(field, allowed, defaultField) + " " + ValidateSortOrder(dir)
}

// MappingSortFields contains allowed sort fields for entity mappings
var MappingSortFields = map[string]bool{
	"created_at":    true,
	"updated_at":    true,
	"local_id":      true,
	"status":        true,
	"last_sync_at":  true,
	"next_retry_at": true,
	"failed_syncs":  true,
	"retry_count":   true,
}
