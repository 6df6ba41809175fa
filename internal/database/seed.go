package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// Default administrator created on an empty database.
const (
	SeedAdminUsername = "admin"
	SeedAdminEmail    = "admin@example.com"
	SeedAdminPassword = "admin123"
)

// SeedCategories are the categories created on an empty database.
var SeedCategories = []string{"General", "Technology", "Travel", "Food", "Health"}

// Seed populates the database with initial data. It creates the default
// admin user when no users exist and the default categories when no
// categories exist. Calling it on a populated database is a no-op.
func Seed(db *sql.DB) error {
	if err := seedAdmin(db); err != nil {
		return err
	}
	return seedCategories(db)
}

func seedAdmin(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}

	if count > 0 {
		slog.Info("users already seeded, skipping")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(SeedAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO users (username, email, password_hash, role, active)
		VALUES ($1, $2, $3, 'admin', TRUE)
	`, SeedAdminUsername, SeedAdminEmail, string(hash))
	if err != nil {
		return fmt.Errorf("seed insert admin: %w", err)
	}

	slog.Info("database seeded with default admin user",
		"username", SeedAdminUsername,
		"email", SeedAdminEmail,
	)
	return nil
}

func seedCategories(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM categories").Scan(&count); err != nil {
		return fmt.Errorf("seed check categories: %w", err)
	}

	if count > 0 {
		slog.Info("categories already seeded, skipping")
		return nil
	}

	for _, name := range SeedCategories {
		_, err := db.Exec(`
			INSERT INTO categories (name, description) VALUES ($1, $2)
			ON CONFLICT (name) DO NOTHING
		`, name, "Posts about "+name)
		if err != nil {
			return fmt.Errorf("seed insert category %s: %w", name, err)
		}
	}

	slog.Info("database seeded with default categories", "count", len(SeedCategories))
	return nil
}
