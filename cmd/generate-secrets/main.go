package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/smarttransit/booking-engine/internal/models"
	"github.com/smarttransit/booking-engine/internal/utils"
	"github.com/smarttransit/booking-engine/pkg/jwt"
)

func main() {
	role := flag.String("role", "", "also mint a development access token for this role (CLIENT, ADMIN, SUPERADMIN)")
	userID := flag.String("user-id", "", "subject for the development token (random when empty)")
	issuer := flag.String("issuer", "smarttransit", "token issuer")
	ttl := flag.Duration("ttl", 24*time.Hour, "development token lifetime")
	flag.Parse()

	secret, err := utils.GenerateSecret(48)
	if err != nil {
		log.Fatalf("Failed to generate secret: %v", err)
	}

	fmt.Println("Add this to your .env file:")
	fmt.Println()
	fmt.Printf("JWT_SECRET=%s\n", secret)
	fmt.Printf("JWT_ISSUER=%s\n", *issuer)

	if *role == "" {
		return
	}
	if !models.Role(*role).Valid() {
		log.Fatalf("Unknown role %q", *role)
	}

	subject := uuid.New()
	if *userID != "" {
		if subject, err = uuid.Parse(*userID); err != nil {
			log.Fatalf("Invalid -user-id: %v", err)
		}
	}

	token, err := jwt.NewService(secret, *issuer, *ttl).GenerateAccessToken(subject, *role)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}

	fmt.Println()
	fmt.Printf("Development token for %s %s (expires in %s):\n", *role, subject, *ttl)
	fmt.Println(token)
	fmt.Println()
	fmt.Println("Keep these values out of version control.")
}
