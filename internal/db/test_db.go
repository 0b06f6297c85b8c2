package db

import (
	"fmt"
	"log"

	"github.com/salyqtech/salyq-backend/internal/app/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB creates an in-memory SQLite database for testing
func SetupTestDB() (*gorm.DB, error) {
	// plain ":memory:" is per-connection; use a shared cache so every
	// connection the pool opens sees the same in-memory database.
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}

	err = db.AutoMigrate(
		&model.User{},
		&model.Taxpayer{},
		&model.SourceRecord{},
		&model.TaxEventType{},
		&model.LogicalField{},
		&model.TaxEvent{},
		&model.TaxRule{},
		&model.TaxMapping{},
		&model.XmlFieldMap{},
		&model.Declaration{},
		&model.DeclarationItem{},
		&model.ValidationReport{},
		&model.XmlExport{},
		&model.CurrencyRate{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate test database: %w", err)
	}

	return db, nil
}

// SetupTestDBWithCatalog creates a test database with the default rule
// catalog seeded.
func SetupTestDBWithCatalog() (*gorm.DB, error) {
	db, err := SetupTestDB()
	if err != nil {
		return nil, err
	}
	if err := SeedCatalog(db); err != nil {
		return nil, fmt.Errorf("failed to seed test catalog: %w", err)
	}
	return db, nil
}

// CleanupTestDB cleans up the test database
func CleanupTestDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Failed to get DB instance: %v", err)
		return
	}
	sqlDB.Close()
}
