package main

import (
	"log"

	"github.com/coffeebliss/config"
	"github.com/coffeebliss/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := database.InitializeWithOptions(&cfg.Database, true); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	if err := database.AutoMigrate(database.GetDB()); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	if err := database.SeedData(database.GetDB()); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Seeding completed")
}
