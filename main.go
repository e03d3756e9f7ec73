package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coffeebliss/catalog"
	"github.com/coffeebliss/config"
	"github.com/coffeebliss/database"
	"github.com/coffeebliss/loyalty"
	"github.com/coffeebliss/orders"
	"github.com/coffeebliss/pkg/logger"
	"github.com/coffeebliss/store"
	"github.com/coffeebliss/web"
	"github.com/coffeebliss/web/handlers"
)

func main() {
	// Command line flags
	var (
		migrate = flag.Bool("migrate", false, "Run database migration on startup")
		seed    = flag.Bool("seed", false, "Seed database with sample data")
		help    = flag.Bool("help", false, "Show help")
	)

	flag.Parse()

	if *help {
		showHelp()
		return
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logFormat := "text"
	if cfg.App.Environment == "production" {
		logFormat = "json"
	}
	logger.New(logger.Config{Level: "info", Format: logFormat})

	// Initialize database connection
	if err := database.Initialize(&cfg.Database); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	if *migrate {
		if err := database.AutoMigrate(database.GetDB()); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
	}

	if *seed {
		if err := database.SeedData(database.GetDB()); err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
	}

	db := database.GetDB()
	syncTimeout := time.Duration(cfg.Sync.TimeoutSeconds) * time.Second

	var balanceFetcher loyalty.BalanceFetcher
	if cfg.Sync.Enabled && cfg.Sync.LoyaltyAPI != "" {
		balanceFetcher = loyalty.NewHTTPBalanceFetcher(cfg.Sync.LoyaltyAPI, syncTimeout)
	}
	var menuFetcher catalog.Fetcher
	if cfg.Sync.Enabled && cfg.Sync.MenuAPI != "" {
		menuFetcher = catalog.NewHTTPFetcher(cfg.Sync.MenuAPI, syncTimeout)
	}

	h := handlers.New(
		store.New(db),
		orders.NewLedger(db),
		loyalty.NewEngine(db, cfg.Loyalty, cfg.Sync, balanceFetcher),
		catalog.NewSyncer(db),
		menuFetcher,
		cfg,
	)

	server := web.NewServer(h)

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := server.Shutdown(); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	if err := server.Start(cfg.App.Port); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server stopped")
}

func showHelp() {
	fmt.Println("Coffee Bliss ordering service")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  coffeebliss [flags]")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -migrate   Run database migration on startup")
	fmt.Println("  -seed      Seed database with sample data")
	fmt.Println("  -help      Show this help")
}
