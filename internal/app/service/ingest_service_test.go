package service

import (
	"encoding/json"
	"testing"

	"github.com/salyqtech/salyq-backend/internal/app/model"
	"github.com/salyqtech/salyq-backend/internal/app/repository"
	"github.com/salyqtech/salyq-backend/internal/db"
	"github.com/salyqtech/salyq-backend/internal/parser"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupIngestTest(t *testing.T) (*gorm.DB, IngestService, *model.Taxpayer) {
	testDB, err := db.SetupTestDBWithCatalog()
	require.NoError(t, err)

	taxpayer := &model.Taxpayer{
		IIN:       "880101300123",
		LastName:  "Ахметов",
		FirstName: "Данияр",
		Email:     "d.akhmetov@example.kz",
	}
	require.NoError(t, testDB.Create(taxpayer).Error)

	svc := NewIngestService(
		repository.NewSourceRecordRepository(testDB),
		repository.NewEventRepository(testDB),
		repository.NewCatalogRepository(testDB),
		repository.NewCurrencyRateRepository(testDB),
		parser.NewRegistry(),
		testDB,
	)
	return testDB, svc, taxpayer
}

const manualPayload = `{
	"event_type": "EV_FOREIGN_DIVIDENDS",
	"event_date": "2024-06-15",
	"amount": 500000
}`

// Повторная загрузка того же содержимого возвращает первую запись.
func TestIngest_IdempotentByChecksum(t *testing.T) {
	testDB, svc, taxpayer := setupIngestTest(t)
	defer db.CleanupTestDB(testDB)

	first, created, err := svc.Ingest(taxpayer.ID, model.SourceManual, json.RawMessage(manualPayload))
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := svc.Ingest(taxpayer.ID, model.SourceManual, json.RawMessage(manualPayload))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	testDB.Model(&model.SourceRecord{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

// Ключи в другом порядке — тот же канонический JSON, та же запись.
func TestIngest_ChecksumIsCanonical(t *testing.T) {
	testDB, svc, taxpayer := setupIngestTest(t)
	defer db.CleanupTestDB(testDB)

	reordered := `{"amount": 500000, "event_date": "2024-06-15", "event_type": "EV_FOREIGN_DIVIDENDS"}`

	first, _, err := svc.Ingest(taxpayer.ID, model.SourceManual, json.RawMessage(manualPayload))
	require.NoError(t, err)
	second, created, err := svc.Ingest(taxpayer.ID, model.SourceManual, json.RawMessage(reordered))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestIngest_UnknownKind(t *testing.T) {
	testDB, svc, taxpayer := setupIngestTest(t)
	defer db.CleanupTestDB(testDB)

	_, _, err := svc.Ingest(taxpayer.ID, model.SourceKind("ftp"), json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrUnknownSourceKind)
}

// Повторный parse не создаёт дубликатов событий.
func TestParse_Idempotent(t *testing.T) {
	testDB, svc, taxpayer := setupIngestTest(t)
	defer db.CleanupTestDB(testDB)

	record, _, err := svc.Ingest(taxpayer.ID, model.SourceManual, json.RawMessage(manualPayload))
	require.NoError(t, err)

	first, err := svc.Parse(record.ID)
	require.NoError(t, err)
	assert.True(t, first.Created)
	require.Len(t, first.Events, 1)

	event := first.Events[0]
	assert.Equal(t, model.EVForeignDividends, event.EventType)
	assert.Equal(t, 2024, event.TaxYear)
	require.NotNil(t, event.Amount)
	assert.True(t, event.Amount.Equal(decimal.NewFromInt(500000)))

	second, err := svc.Parse(record.ID)
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Len(t, second.Events, 1)

	var count int64
	testDB.Model(&model.TaxEvent{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestReparse_ReplacesEvents(t *testing.T) {
	testDB, svc, taxpayer := setupIngestTest(t)
	defer db.CleanupTestDB(testDB)

	record, _, err := svc.Ingest(taxpayer.ID, model.SourceManual, json.RawMessage(manualPayload))
	require.NoError(t, err)

	first, err := svc.Parse(record.ID)
	require.NoError(t, err)
	firstID := first.Events[0].ID

	result, err := svc.Reparse(record.ID)
	require.NoError(t, err)
	assert.True(t, result.Created)
	require.Len(t, result.Events, 1)
	assert.NotEqual(t, firstID, result.Events[0].ID)

	var count int64
	testDB.Model(&model.TaxEvent{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

// Код вне справочника отклоняется при вставке событий.
func TestParse_UnknownEventTypeRejected(t *testing.T) {
	testDB, svc, taxpayer := setupIngestTest(t)
	defer db.CleanupTestDB(testDB)

	// EV_-код проходит парсер, но отсутствует в справочнике
	payload := `{"event_type": "EV_NOT_IN_CATALOG", "event_date": "2024-01-01", "amount": 1}`
	record, _, err := svc.Ingest(taxpayer.ID, model.SourceManual, json.RawMessage(payload))
	require.NoError(t, err)

	_, err = svc.Parse(record.ID)
	assert.ErrorIs(t, err, ErrUnknownEventType)
}

func TestParse_SourceNotFound(t *testing.T) {
	testDB, svc, _ := setupIngestTest(t)
	defer db.CleanupTestDB(testDB)

	_, err := svc.Parse(9999)
	assert.ErrorIs(t, err, ErrSourceNotFound)
}
