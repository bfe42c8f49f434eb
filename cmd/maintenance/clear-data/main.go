package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/tourbooking/booking-backend/internal/config"
	"github.com/tourbooking/booking-backend/internal/database"
)

// Booking activity, child tables first
var activityTables = []string{"notifications", "payments", "tour_bookings", "vouchers"}

var catalogTables = []string{"tour_schedules", "tours"}

func main() {
	var dbURLFlag string
	var keepCatalog bool
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.BoolVar(&keepCatalog, "keep-catalog", false, "Keep tours and schedules; only reset their seat counts and remediation state")
	flag.Parse()

	// Optional .env in the working directory keeps secrets off the command line
	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}

	// Minimal database config without loading the full app config
	dbCfg := config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     5,
		MaxIdleConnections: 2,
	}

	db, err := database.NewConnection(dbCfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	tables := activityTables
	if !keepCatalog {
		tables = append(append([]string{}, activityTables...), catalogTables...)
	}

	fmt.Println("Connected to database. Truncating tables...")

	tx, err := db.Beginx()
	if err != nil {
		log.Fatalf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	for _, t := range tables {
		if _, err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", t)); err != nil {
			log.Fatalf("failed to truncate %s: %v", t, err)
		}
	}

	if keepCatalog {
		_, err := tx.Exec(`
			UPDATE tour_schedules
			SET booked_slots = 0,
			    status = CASE WHEN status = 'FULL' THEN 'SCHEDULED' ELSE status END,
			    current_price = NULL,
			    remediation_tier = 'NONE',
			    updated_at = NOW()`)
		if err != nil {
			log.Fatalf("failed to reset schedules: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		log.Fatalf("failed to commit: %v", err)
	}

	fmt.Println("Booking data cleared successfully.")

	fmt.Println("Post-clear row counts:")
	for _, t := range append(append([]string{}, activityTables...), catalogTables...) {
		var count int
		if err := db.Get(&count, fmt.Sprintf("SELECT COUNT(*) FROM %s", t)); err != nil {
			fmt.Printf("  %s: error: %v\n", t, err)
			continue
		}
		fmt.Printf("  %s: %d\n", t, count)
	}
}
