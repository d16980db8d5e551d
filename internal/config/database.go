package config

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq"
)

// InitDatabase creates the database schema on startup.
// Set DROP_TABLES_ON_STARTUP=true environment variable to drop existing tables.
func InitDatabase(db *sql.DB) error {
	// Only drop tables if explicitly requested (via env var)
	// This prevents accidental data loss on restart
	if os.Getenv("DROP_TABLES_ON_STARTUP") == "true" {
		log.Println("Dropping existing tables (DROP_TABLES_ON_STARTUP=true)...")
		for _, table := range []string{"nutrient_intakes", "nutrient_groups", "nutrient_reference_standards", "user_profiles"} {
			if _, err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)); err != nil {
				log.Printf("Warning: Failed to drop %s table: %v", table, err)
			}
		}
	} else {
		log.Println("Skipping table drop (set DROP_TABLES_ON_STARTUP=true to drop tables on startup)")
	}

	log.Println("Creating user_profiles table...")
	profilesSchema := `
	CREATE TABLE IF NOT EXISTS user_profiles (
		user_id UUID PRIMARY KEY,
		birthdate DATE NOT NULL,
		sex TEXT NOT NULL CHECK (sex IN ('male', 'female')),
		pregnant BOOLEAN NOT NULL DEFAULT false,
		lactating BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMP DEFAULT now()
	);`

	if _, err := db.Exec(profilesSchema); err != nil {
		return fmt.Errorf("failed to create user_profiles table: %w", err)
	}

	log.Println("Creating nutrient_reference_standards table...")
	standardsSchema := `
	CREATE TABLE IF NOT EXISTS nutrient_reference_standards (
		id SERIAL PRIMARY KEY,
		nutrient_id BIGINT NOT NULL,
		nutrient_name TEXT NOT NULL,
		unit TEXT NOT NULL,
		sex_bucket TEXT NOT NULL CHECK (sex_bucket IN ('male', 'female', 'infant')),
		age_min INTEGER NOT NULL,
		age_max INTEGER NOT NULL,
		state TEXT NOT NULL CHECK (state IN ('general', 'pregnant', 'lactating')),
		average_need NUMERIC NOT NULL DEFAULT 0,
		recommend_intake NUMERIC NOT NULL DEFAULT 0,
		adequate_intake NUMERIC NOT NULL DEFAULT 0,
		limit_intake NUMERIC NOT NULL DEFAULT 0,
		deficiency_risk TEXT,
		excess_risk TEXT,
		-- One reference row per nutrient per demographic key
		CONSTRAINT uq_reference_key UNIQUE (nutrient_id, sex_bucket, age_min, age_max, state)
	);`

	if _, err := db.Exec(standardsSchema); err != nil {
		return fmt.Errorf("failed to create nutrient_reference_standards table: %w", err)
	}

	log.Println("Creating nutrient_groups table...")
	groupsSchema := `
	CREATE TABLE IF NOT EXISTS nutrient_groups (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		name TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT now()
	);`

	if _, err := db.Exec(groupsSchema); err != nil {
		return fmt.Errorf("failed to create nutrient_groups table: %w", err)
	}

	log.Println("Creating nutrient_intakes table...")
	intakesSchema := `
	CREATE TABLE IF NOT EXISTS nutrient_intakes (
		id SERIAL PRIMARY KEY,
		group_id UUID NOT NULL REFERENCES nutrient_groups(id) ON DELETE CASCADE,
		nutrient_id BIGINT NOT NULL,
		intake NUMERIC NOT NULL CHECK (intake >= 0),
		-- One entry per nutrient within a group
		CONSTRAINT uq_group_nutrient UNIQUE (group_id, nutrient_id)
	);`

	if _, err := db.Exec(intakesSchema); err != nil {
		return fmt.Errorf("failed to create nutrient_intakes table: %w", err)
	}

	// Create indexes
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_reference_standards_lookup ON nutrient_reference_standards(sex_bucket, state, age_min, age_max)",
		"CREATE INDEX IF NOT EXISTS idx_reference_standards_nutrient_id ON nutrient_reference_standards(nutrient_id)",
		"CREATE INDEX IF NOT EXISTS idx_nutrient_groups_user_id ON nutrient_groups(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_nutrient_intakes_group_id ON nutrient_intakes(group_id)",
		"CREATE INDEX IF NOT EXISTS idx_nutrient_intakes_nutrient_id ON nutrient_intakes(nutrient_id)",
	}

	for _, indexSQL := range indexes {
		if _, err := db.Exec(indexSQL); err != nil {
			log.Printf("Warning: Failed to create index: %v", err)
		}
	}

	if err := seedReferenceStandards(db); err != nil {
		log.Printf("Warning: Failed to seed reference standards: %v", err)
	}

	log.Println("Database schema initialized successfully")
	return nil
}

// seedReferenceStandards inserts a starter reference set when the table is
// empty so a fresh deployment can classify immediately. ADMIN uploads
// replace or extend these rows through the API.
func seedReferenceStandards(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM nutrient_reference_standards").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	log.Println("Seeding nutrient reference standards...")

	// nutrient_id, name, unit, sex_bucket, age_min, age_max, state,
	// average_need, recommend_intake, adequate_intake, limit_intake
	seeds := []struct {
		nutrientID int64
		name       string
		unit       string
		bucket     string
		ageMin     int
		ageMax     int
		state      string
		ear        float64
		rni        float64
		ai         float64
		ul         float64
	}{
		{1, "iron", "mg", "female", 19, 49, "general", 8.1, 14.0, 0, 45},
		{1, "iron", "mg", "female", 19, 49, "pregnant", 17.8, 24.0, 0, 45},
		{1, "iron", "mg", "male", 19, 49, "general", 6.0, 10.0, 0, 45},
		{1, "iron", "mg", "infant", 0, 5, "general", 0, 0, 0.3, 40},
		{2, "calcium", "mg", "female", 19, 49, "general", 570, 700, 0, 2500},
		{2, "calcium", "mg", "female", 19, 49, "lactating", 570, 700, 0, 2500},
		{2, "calcium", "mg", "male", 19, 49, "general", 650, 800, 0, 2500},
		{3, "vitamin_c", "mg", "female", 19, 49, "general", 75, 100, 0, 2000},
		{3, "vitamin_c", "mg", "male", 19, 49, "general", 75, 100, 0, 2000},
		{4, "vitamin_d", "ug", "female", 19, 49, "general", 0, 0, 10, 100},
		{4, "vitamin_d", "ug", "male", 19, 49, "general", 0, 0, 10, 100},
		{5, "potassium", "mg", "female", 19, 49, "general", 0, 0, 2300, 0},
		{5, "potassium", "mg", "male", 19, 49, "general", 0, 0, 3500, 0},
	}

	deficiency := "Increased risk of nutrient deficiency"
	excess := "Intake above the tolerable upper limit"

	for _, s := range seeds {
		var defRisk, excRisk interface{}
		if s.ear > 0 || s.ai > 0 {
			defRisk = deficiency
		}
		if s.ul > 0 {
			excRisk = excess
		}
		_, err := db.Exec(`INSERT INTO nutrient_reference_standards
			(nutrient_id, nutrient_name, unit, sex_bucket, age_min, age_max, state,
			 average_need, recommend_intake, adequate_intake, limit_intake, deficiency_risk, excess_risk)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (nutrient_id, sex_bucket, age_min, age_max, state) DO NOTHING`,
			s.nutrientID, s.name, s.unit, s.bucket, s.ageMin, s.ageMax, s.state,
			s.ear, s.rni, s.ai, s.ul, defRisk, excRisk)
		if err != nil {
			return err
		}
	}

	return nil
}

// ConnectDatabase establishes a connection to PostgreSQL with retry logic
func ConnectDatabase(databaseURL string, maxRetries int, retryDelay time.Duration) (*sql.DB, error) {
	var db *sql.DB
	var err error

	for i := 0; i < maxRetries; i++ {
		db, err = sql.Open("postgres", databaseURL)
		if err != nil {
			log.Printf("Failed to open database connection (attempt %d/%d): %v", i+1, maxRetries, err)
			if i < maxRetries-1 {
				time.Sleep(retryDelay)
				continue
			}
			return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
		}

		// Test the connection
		if err = db.Ping(); err != nil {
			log.Printf("Failed to ping database (attempt %d/%d): %v", i+1, maxRetries, err)
			db.Close()
			if i < maxRetries-1 {
				time.Sleep(retryDelay)
				continue
			}
			return nil, fmt.Errorf("failed to ping database after %d attempts: %w", maxRetries, err)
		}

		// Configure connection pool
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		log.Println("Database connection established successfully")
		return db, nil
	}

	return nil, fmt.Errorf("failed to connect to database: %w", err)
}
