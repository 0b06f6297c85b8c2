package repository

import (
	"testing"

	"github.com/salyqtech/salyq-backend/internal/app/model"
	"github.com/salyqtech/salyq-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupCatalogTest(t *testing.T) (*gorm.DB, CatalogRepository) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	return testDB, NewCatalogRepository(testDB)
}

func TestCatalogRepository_CodeValidation(t *testing.T) {
	testDB, repo := setupCatalogTest(t)
	defer db.CleanupTestDB(testDB)

	assert.Error(t, repo.CreateEventType(&model.TaxEventType{Code: "DIVIDENDS"}))
	assert.NoError(t, repo.CreateEventType(&model.TaxEventType{Code: "EV_DIVIDENDS"}))

	assert.Error(t, repo.CreateLogicalField(&model.LogicalField{Code: "lf_income"}))
	assert.NoError(t, repo.CreateLogicalField(&model.LogicalField{Code: "LF_INCOME_TOTAL"}))
}

func TestCatalogRepository_ActiveRulesForYear(t *testing.T) {
	testDB, repo := setupCatalogTest(t)
	defer db.CleanupTestDB(testDB)

	require.NoError(t, repo.CreateLogicalField(&model.LogicalField{Code: "LF_INCOME_DIVIDENDS"}))

	anyYear := model.TaxRule{
		RuleCode:   "MAP_ANY",
		RuleType:   model.RuleMapping,
		Conditions: datatypes.JSON([]byte(`{"always": true}`)),
		Actions:    datatypes.JSON([]byte(`{"type": "map", "target": "LF_INCOME_DIVIDENDS"}`)),
		Priority:   200,
		Active:     true,
	}
	year2024 := model.TaxRule{
		RuleCode:   "MAP_2024",
		RuleType:   model.RuleMapping,
		TaxYear:    intPtr(2024),
		Conditions: datatypes.JSON([]byte(`{"always": true}`)),
		Actions:    datatypes.JSON([]byte(`{"type": "map", "target": "LF_INCOME_DIVIDENDS"}`)),
		Priority:   100,
		Active:     true,
	}
	year2023 := model.TaxRule{
		RuleCode:   "MAP_2023",
		RuleType:   model.RuleMapping,
		TaxYear:    intPtr(2023),
		Conditions: datatypes.JSON([]byte(`{"always": true}`)),
		Actions:    datatypes.JSON([]byte(`{"type": "map", "target": "LF_INCOME_DIVIDENDS"}`)),
		Priority:   50,
		Active:     true,
	}
	inactive := model.TaxRule{
		RuleCode:   "MAP_OFF",
		RuleType:   model.RuleMapping,
		Conditions: datatypes.JSON([]byte(`{"always": true}`)),
		Actions:    datatypes.JSON([]byte(`{"type": "map", "target": "LF_INCOME_DIVIDENDS"}`)),
		Priority:   1,
		Active:     false,
	}

	for _, rule := range []*model.TaxRule{&anyYear, &year2024, &year2023, &inactive} {
		require.NoError(t, repo.CreateRule(rule))
	}

	rules, err := repo.ActiveRulesForYear(2024)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	// priority ASC: правило 2024 года (100) раньше общего (200)
	assert.Equal(t, "MAP_2024", rules[0].RuleCode)
	assert.Equal(t, "MAP_ANY", rules[1].RuleCode)
}

func TestCatalogRepository_MapTargetMustExist(t *testing.T) {
	testDB, repo := setupCatalogTest(t)
	defer db.CleanupTestDB(testDB)

	rule := &model.TaxRule{
		RuleCode:   "MAP_BROKEN",
		RuleType:   model.RuleMapping,
		Conditions: datatypes.JSON([]byte(`{"always": true}`)),
		Actions:    datatypes.JSON([]byte(`{"type": "map", "target": "LF_NOT_SEEDED"}`)),
		Active:     true,
	}
	assert.Error(t, repo.CreateRule(rule))
}

func TestCatalogRepository_CacheInvalidation(t *testing.T) {
	testDB, repo := setupCatalogTest(t)
	defer db.CleanupTestDB(testDB)

	require.NoError(t, repo.CreateLogicalField(&model.LogicalField{Code: "LF_INCOME_TOTAL"}))

	rules, err := repo.ActiveRulesForYear(2024)
	require.NoError(t, err)
	assert.Empty(t, rules)

	rule := &model.TaxRule{
		RuleCode:   "CALC_T",
		RuleType:   model.RuleCalculation,
		Conditions: datatypes.JSON([]byte(`{"always": true}`)),
		Actions:    datatypes.JSON([]byte(`{"type": "calc", "target": "LF_INCOME_TOTAL", "formula": 0}`)),
		Active:     true,
	}
	require.NoError(t, repo.CreateRule(rule))

	// запись сбросила кеш: новое правило видно сразу
	rules, err = repo.ActiveRulesForYear(2024)
	require.NoError(t, err)
	assert.Len(t, rules, 1)
}

func TestCatalogRepository_KnownSets(t *testing.T) {
	testDB, repo := setupCatalogTest(t)
	defer db.CleanupTestDB(testDB)

	require.NoError(t, db.SeedCatalog(testDB))

	types, err := repo.KnownEventTypes()
	require.NoError(t, err)
	assert.True(t, types[model.EVForeignDividends])

	fields, err := repo.KnownLogicalFields()
	require.NoError(t, err)
	assert.True(t, fields[model.LFIPNPayable])
}

func intPtr(v int) *int {
	return &v
}
