package db

import (
	"github.com/salyqtech/salyq-backend/internal/app/model"
	"github.com/salyqtech/salyq-backend/pkg/logger"
)

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	models := []interface{}{
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
	}

	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	if err := SeedCatalog(DB); err != nil {
		logger.Error("Failed to seed rule catalog during migration", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}
