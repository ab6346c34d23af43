package config

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// SetupDatabase initializes the database connection
func SetupDatabase(cfg *Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	// Create tables if they don't exist
	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

// createTables creates the necessary tables in the database
func createTables(db *sqlx.DB) error {
	// Create accounts table
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			id VARCHAR(36) PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			first_name VARCHAR(255) NOT NULL,
			last_name VARCHAR(255) NOT NULL,
			phone VARCHAR(32) NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			password VARCHAR(255) NOT NULL,
			created_at TIMESTAMP NOT NULL,
			last_login TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create children table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS children (
			id VARCHAR(36) PRIMARY KEY,
			user_id VARCHAR(36) NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			first_name VARCHAR(255) NOT NULL,
			last_name VARCHAR(255) NOT NULL,
			date_of_birth DATE NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create schedules table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS schedules (
			id VARCHAR(36) PRIMARY KEY,
			child_id VARCHAR(36) NOT NULL REFERENCES children(id) ON DELETE CASCADE,
			user_id VARCHAR(36) NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			vaccine_name VARCHAR(255) NOT NULL,
			vaccine_description TEXT NOT NULL DEFAULT '',
			age_months INT NOT NULL,
			age_text VARCHAR(64) NOT NULL DEFAULT '',
			due_date DATE NOT NULL,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			date_completed DATE,
			administered_by TEXT,
			location TEXT,
			batch_number TEXT,
			notes TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (child_id, vaccine_name)
		)
	`)
	if err != nil {
		return err
	}

	// Create vaccinations table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS vaccinations (
			id VARCHAR(36) PRIMARY KEY,
			child_id VARCHAR(36) NOT NULL REFERENCES children(id) ON DELETE CASCADE,
			user_id VARCHAR(36) NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			vaccine VARCHAR(255) NOT NULL,
			date_administered DATE NOT NULL,
			batch_number TEXT,
			administered_by TEXT,
			location TEXT,
			notes TEXT,
			administered BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create indexes for better performance
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_children_user_id ON children(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_schedules_child_id ON schedules(child_id)",
		"CREATE INDEX IF NOT EXISTS idx_schedules_user_id ON schedules(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_vaccinations_child_id ON vaccinations(child_id)",
		"CREATE INDEX IF NOT EXISTS idx_vaccinations_user_id ON vaccinations(user_id)",
	}

	for _, idx := range indexes {
		_, err = db.Exec(idx)
		if err != nil {
			log.Printf("Warning: Failed to create index: %v", err)
			// Don't return error here, indexes are not critical
		}
	}

	return nil
}
