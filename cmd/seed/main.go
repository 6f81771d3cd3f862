package main

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/yogaswara/account-service/config"
	"github.com/yogaswara/account-service/pkg/helpers"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	phone := "+15550001000"
	email := "demo@example.com"
	password := "password123"
	hasher := helpers.NewPasswordHasher(cfg.BcryptCost)
	hash, err := hasher.Hash(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	var id string
	err = db.QueryRow(`
		INSERT INTO accounts (display_name, phone, email, password_hash)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (phone) WHERE phone IS NOT NULL
		DO UPDATE SET display_name = EXCLUDED.display_name
		RETURNING id
	`, "Demo Account", phone, email, hash).Scan(&id)
	if err != nil {
		log.Fatalf("failed to seed account: %v", err)
	}
	fmt.Printf("seeded account: id=%s phone=%s email=%s password=%s\n", id, phone, email, password)

	// A couple of orders so the cascade delete has something to remove
	for i, total := range []int64{1250, 899, 4400} {
		if _, err := db.Exec(`
			INSERT INTO orders (account_id, items, total_cents)
			VALUES ($1, $2, $3)
		`, id, fmt.Sprintf("demo item %d", i+1), total); err != nil {
			log.Fatalf("failed to seed order: %v", err)
		}
	}
	fmt.Println("seeded 3 orders for demo account")
}
