package database

import (
	"fmt"
	"log"

	"github.com/coffeebliss/models"
	"gorm.io/gorm"
)

// SeedData seeds initial data into empty tables
func SeedData(db *gorm.DB) error {
	log.Println("Checking if database needs seeding...")

	var count int64
	db.Model(&models.Category{}).Count(&count)
	if count > 0 {
		log.Println("Database already has data. Skipping seed.")
		return nil
	}

	log.Println("Database is empty. Starting seed process...")

	// Use transaction for data integrity
	return db.Transaction(func(tx *gorm.DB) error {
		categoryMap, err := seedCategories(tx)
		if err != nil {
			return fmt.Errorf("failed to seed categories: %w", err)
		}

		if err := seedLoyaltyLevels(tx); err != nil {
			return fmt.Errorf("failed to seed loyalty levels: %w", err)
		}

		if err := seedMenuItems(tx, categoryMap); err != nil {
			return fmt.Errorf("failed to seed menu items: %w", err)
		}

		log.Println("Seed process completed successfully")
		return nil
	})
}

func seedCategories(tx *gorm.DB) (map[string]uint, error) {
	categories := []models.Category{
		{Name: "coffee", Emoji: strPtr("☕"), Position: 1},
		{Name: "tea", Emoji: strPtr("🍵"), Position: 2},
		{Name: "bakery", Emoji: strPtr("🥐"), Position: 3},
		{Name: "dessert", Emoji: strPtr("🍰"), Position: 4},
		{Name: "food", Emoji: strPtr("🥪"), Position: 5},
	}

	categoryMap := make(map[string]uint)
	for i := range categories {
		if err := tx.Create(&categories[i]).Error; err != nil {
			return nil, err
		}
		categoryMap[categories[i].Name] = categories[i].ID
	}

	log.Printf("  ✓ Seeded %d categories", len(categories))
	return categoryMap, nil
}

func seedLoyaltyLevels(tx *gorm.DB) error {
	// Thresholds must stay strictly increasing and start at 0
	levels := []models.LoyaltyLevel{
		{Name: "Novice", MinPoints: 0, Discount: 0, Color: "#95a5a6"},
		{Name: "Fan", MinPoints: 100, Discount: 5, Color: "#3498db"},
		{Name: "Regular", MinPoints: 500, Discount: 10, Color: "#9b59b6"},
		{Name: "VIP", MinPoints: 1000, Discount: 15, Color: "#e74c3c"},
		{Name: "Legend", MinPoints: 5000, Discount: 20, Color: "#f1c40f"},
	}

	if err := tx.Create(&levels).Error; err != nil {
		return err
	}

	log.Printf("  ✓ Seeded %d loyalty levels", len(levels))
	return nil
}

func seedMenuItems(tx *gorm.DB, categoryMap map[string]uint) error {
	type seedItem struct {
		category    string
		name        string
		description string
		price       float64
		position    int
	}

	items := []seedItem{
		{"coffee", "Cappuccino", "Classic cappuccino with milk", 180, 1},
		{"coffee", "Latte", "Smooth latte with milk foam", 190, 2},
		{"coffee", "Americano", "Strong americano", 150, 3},
		{"coffee", "Espresso", "Double espresso", 120, 4},
		{"coffee", "Vanilla Raf", "Vanilla raf with caramel", 220, 5},
		{"tea", "Black Tea", "Assam with bergamot", 150, 1},
		{"tea", "Green Tea", "Jasmine green tea", 160, 2},
		{"bakery", "Croissant", "Fresh croissant with chocolate", 120, 1},
		{"bakery", "Muffin", "Chocolate muffin", 130, 2},
		{"dessert", "Cheesecake", "New York cheesecake", 250, 1},
		{"dessert", "Tiramisu", "Classic tiramisu", 280, 2},
		{"food", "Sandwich", "Chicken and vegetables", 200, 1},
		{"food", "Caesar Salad", "Chicken with caesar dressing", 300, 2},
	}

	for _, it := range items {
		categoryID := categoryMap[it.category]
		item := models.MenuItem{
			CategoryID:  &categoryID,
			Name:        it.name,
			Description: strPtr(it.description),
			Price:       it.price,
			Available:   true,
			Position:    it.position,
		}
		if err := tx.Create(&item).Error; err != nil {
			return err
		}
	}

	log.Printf("  ✓ Seeded %d menu items", len(items))
	return nil
}

func strPtr(s string) *string {
	return &s
}
