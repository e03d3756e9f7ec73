package models

// AllModels returns all model structs for auto-migration
// IMPORTANT: Order matters! Parent tables must be created before child tables
func AllModels() []interface{} {
	return []interface{}{
		// 1. Independent tables (no foreign keys)
		&User{},
		&Category{},
		&LoyaltyLevel{},
		&Setting{},

		// 2. Tables with single dependencies
		&MenuItem{}, // depends on: Category
		&Order{},    // depends on: User

		// 3. Tables with multiple dependencies
		&OrderItem{},    // depends on: Order, MenuItem
		&LoyaltyPoint{}, // depends on: User, Order

		// 4. Bookkeeping tables
		&ExternalSyncRecord{},
	}
}
