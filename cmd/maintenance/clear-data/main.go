package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/smarttransit/booking-engine/internal/config"
	"github.com/smarttransit/booking-engine/internal/database"
)

// bookingTables hold per-trip state; fleetTables are reference data
var (
	bookingTables = []string{"audit_logs", "payments", "bookings", "tickets", "seats"}
	fleetTables   = []string{"schedules", "buses", "routes", "users"}
)

func main() {
	var dbURLFlag string
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	all := flag.Bool("all", false, "also clear schedules, buses, routes and users")
	confirm := flag.Bool("yes", false, "skip the interactive confirmation")
	flag.Parse()

	// Try loading .env from current working directory (optional)
	_ = godotenv.Load()

	if os.Getenv("ENVIRONMENT") == "production" {
		log.Fatal("refusing to clear data in production")
	}

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}

	tables := append([]string(nil), bookingTables...)
	if *all {
		tables = append(tables, fleetTables...)
	}

	if !*confirm {
		fmt.Printf("This truncates %s. Type 'yes' to continue: ", strings.Join(tables, ", "))
		var answer string
		fmt.Scanln(&answer)
		if answer != "yes" {
			fmt.Println("Aborted.")
			return
		}
	}

	db, err := database.NewConnection(config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     2,
		MaxIdleConnections: 1,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec("TRUNCATE TABLE " + strings.Join(tables, ", ") + " RESTART IDENTITY CASCADE"); err != nil {
		log.Fatalf("failed to truncate tables: %v", err)
	}

	if !*all {
		// Schedules survive without seat maps until regenerated
		fmt.Println("Booking data cleared. Regenerate seat maps for schedules you want to reuse.")
	} else {
		fmt.Println("All data cleared.")
	}

	fmt.Println("Post-clear row counts:")
	for _, t := range append(bookingTables, fleetTables...) {
		var count int
		if err := db.Get(&count, fmt.Sprintf("SELECT COUNT(*) FROM %s", t)); err != nil {
			fmt.Printf("  %s: error: %v\n", t, err)
			continue
		}
		fmt.Printf("  %s: %d\n", t, count)
	}
}
