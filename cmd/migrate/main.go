package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-engine/internal/database"
)

func main() {
	var dbURLFlag string
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	list := flag.Bool("list", false, "print the embedded migrations and exit")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if *list {
		migrations, err := database.Migrations()
		if err != nil {
			logger.Fatalf("Failed to read migrations: %v", err)
		}
		for _, m := range migrations {
			logger.Info(m.Version)
		}
		return
	}

	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close(context.Background())

	applied, err := database.ApplyMigrations(ctx, conn, logger)
	if err != nil {
		logger.Fatalf("Migration failed: %v", err)
	}
	logger.WithField("applied", applied).Info("Database schema is up to date")
}
