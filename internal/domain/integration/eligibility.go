package integration

// SkipReason explains why an entity was not synced
type SkipReason string

const (
	SkipNone                SkipReason = ""
	SkipIntegrationOff      SkipReason = "integration is disabled"
	SkipAutoSyncOff         SkipReason = "auto sync is disabled"
	SkipEntityDisabled      SkipReason = "item is disabled"
	SkipNotSellable         SkipReason = "item is not a sales or stock item"
	SkipVariantTemplate     SkipReason = "item is a variant template"
	SkipMappingDisabled     SkipReason = "sync is disabled for this item"
	SkipRetriesExhausted    SkipReason = "retry limit reached, reset required"
	SkipInventoryOff        SkipReason = "inventory sync is disabled"
	SkipNoRemoteCounterpart SkipReason = "item has not been created on the storefront"
)

// String returns the string representation of SkipReason
func (r SkipReason) String() string {
	return string(r)
}

// ShouldSync evaluates the eligibility gate for an outbound product sync.
// Conditions are checked in order and the first failing one is returned.
// mapping may be nil when the entity was never synced.
func ShouldSync(s Settings, item *CatalogItem, trigger TriggerType, mapping *EntityMapping) (bool, SkipReason) {
	if !s.Enabled {
		return false, SkipIntegrationOff
	}
	if trigger == TriggerAuto && !s.AutoSyncItems {
		return false, SkipAutoSyncOff
	}
	if item.Disabled {
		return false, SkipEntityDisabled
	}
	if item.IsTemplate() {
		return false, SkipVariantTemplate
	}
	if !item.IsSellable() {
		return false, SkipNotSellable
	}
	if mapping != nil {
		if mapping.IsDisabled() {
			return false, SkipMappingDisabled
		}
		if trigger == TriggerRetry && mapping.RetriesExhausted {
			return false, SkipRetriesExhausted
		}
	}
	return true, SkipNone
}

// ShouldSyncInventory evaluates the gate for an inventory push
func ShouldSyncInventory(s Settings, item *CatalogItem, trigger TriggerType, mapping *EntityMapping) (bool, SkipReason) {
	if !s.Enabled {
		return false, SkipIntegrationOff
	}
	if !s.SyncInventory {
		return false, SkipInventoryOff
	}
	if trigger == TriggerAuto && !s.AutoSyncInventory {
		return false, SkipAutoSyncOff
	}
	if item.Disabled {
		return false, SkipEntityDisabled
	}
	if !item.IsStockItem {
		return false, SkipNotSellable
	}
	if mapping == nil || !mapping.HasRemote() {
		return false, SkipNoRemoteCounterpart
	}
	if mapping.IsDisabled() {
		return false, SkipMappingDisabled
	}
	return true, SkipNone
}
