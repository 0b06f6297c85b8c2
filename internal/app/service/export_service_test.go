package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/salyqtech/salyq-backend/internal/app/model"
	"github.com/salyqtech/salyq-backend/internal/app/repository"
	"github.com/salyqtech/salyq-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeArchive считает загрузки вместо S3.
type fakeArchive struct {
	keys []string
}

func (a *fakeArchive) Upload(_ context.Context, key string, _ []byte) (string, error) {
	a.keys = append(a.keys, key)
	return "https://archive.local/" + key, nil
}

type exportFixture struct {
	*declFixture
	exports ExportService
	archive *fakeArchive
}

func setupExportTest(t *testing.T) *exportFixture {
	base := setupDeclarationServiceTest(t)
	archive := &fakeArchive{}
	exports := NewExportService(
		repository.NewDeclarationRepository(base.db),
		repository.NewExportRepository(base.db),
		repository.NewCatalogRepository(base.db),
		archive,
		base.db,
	)
	return &exportFixture{declFixture: base, exports: exports, archive: archive}
}

// подготовка проверенной декларации по сценарию: продажа имущества
// и стандартный вычет
func (f *exportFixture) validatedDeclaration(t *testing.T) *model.Declaration {
	f.ingestManual(t, `{"events": [
		{"event_type": "EV_PROPERTY_SALE_KZ", "event_date": "2024-08-20", "amount": 1000000},
		{"event_type": "EV_DEDUCTION_STANDARD", "event_date": "2024-03-01", "amount": 200000}
	]}`)
	decl, _, err := f.decls.Generate(f.taxpayer.ID, 2024)
	require.NoError(t, err)
	_, err = f.decls.Validate(decl.ID)
	require.NoError(t, err)
	return decl
}

// Черновик выгрузить нельзя.
func TestProjectXML_RequiresValidated(t *testing.T) {
	f := setupExportTest(t)
	defer db.CleanupTestDB(f.db)

	f.ingestManual(t, `{"event_type": "EV_DIVIDENDS", "event_date": "2024-03-03", "amount": 100000}`)
	decl, _, err := f.decls.Generate(f.taxpayer.ID, 2024)
	require.NoError(t, err)

	_, err = f.exports.ProjectXML(decl.ID)
	assert.ErrorIs(t, err, ErrNotValidatedYet)
}

// Повторная выгрузка: одинаковые байты и хеш, версии 1 и 2.
func TestProjectXML_DeterministicVersions(t *testing.T) {
	f := setupExportTest(t)
	defer db.CleanupTestDB(f.db)

	decl := f.validatedDeclaration(t)

	first, err := f.exports.ProjectXML(decl.ID)
	require.NoError(t, err)
	second, err := f.exports.ProjectXML(decl.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, first.SchemaVersion)
	assert.Equal(t, 2, second.SchemaVersion)
	assert.Equal(t, first.ContentHash, second.ContentHash)
	assert.Equal(t, first.Payload, second.Payload)

	versions, err := f.exports.ListVersions(decl.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 2)
}

// Содержимое: заголовок, суммы из сценария, структурные маркеры.
func TestProjectXML_Payload(t *testing.T) {
	f := setupExportTest(t)
	defer db.CleanupTestDB(f.db)

	decl := f.validatedDeclaration(t)

	export, err := f.exports.ProjectXML(decl.ID)
	require.NoError(t, err)

	payload := export.Payload
	assert.True(t, strings.HasPrefix(payload, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, payload, `<fno code="270.00"`)
	assert.Contains(t, payload, `<field name="iin">880101300123</field>`)
	assert.Contains(t, payload, `<field name="period_year">2024</field>`)
	// дата создания присутствует и отформатирована как DD.MM.YYYY
	assert.Contains(t, payload, `<field name="date_create">`)
	assert.NotContains(t, payload, `<field name="date_create"/>`)
	assert.Contains(t, payload, `<field name="dt_main">1</field>`)
	assert.Contains(t, payload, `<field name="pril_1">1</field>`)

	// суммы сценария: имущество 1 000 000, вычет 200 000,
	// облагаемый доход 800 000, ИПН 80 000
	assert.Contains(t, payload, `<field name="field_270_01_A">1000000</field>`)
	assert.Contains(t, payload, `<field name="field_270_01_F">200000</field>`)
	assert.Contains(t, payload, `<field name="field_270_01_G">800000</field>`)
	assert.Contains(t, payload, `<field name="field_270_01_H">80000</field>`)

	// незадействованные сетки выводятся пустыми строками
	assert.Contains(t, payload, `<field name="field_270_04_001"/>`)

	assert.Len(t, export.ContentHash, 64)
	assert.False(t, export.Signed)
}

// Подписанная выгрузка уходит в архив.
func TestProjectXML_ArchivesSignedExport(t *testing.T) {
	f := setupExportTest(t)
	defer db.CleanupTestDB(f.db)

	decl := f.validatedDeclaration(t)
	_, err := f.decls.Transition(decl.ID, model.StatusAwaitingConsent)
	require.NoError(t, err)
	require.NoError(t, f.decls.RequestConsent(context.Background(), decl.ID))
	_, err = f.decls.ConfirmConsent(context.Background(), decl.ID, f.consent.codes[decl.ID])
	require.NoError(t, err)

	export, err := f.exports.ProjectXML(decl.ID)
	require.NoError(t, err)
	assert.True(t, export.Signed)
	require.Len(t, f.archive.keys, 1)
	assert.Contains(t, f.archive.keys[0], "declarations/")

	stored, err := f.exports.GetExport(export.ID)
	require.NoError(t, err)
	assert.Equal(t, f.archive.keys[0], stored.ArchiveKey)
}

// Ручная правка показателя меняет данные выгрузки, а вместе с ними
// и хеш содержимого.
func TestProjectXML_HashChangesWithData(t *testing.T) {
	f := setupExportTest(t)
	defer db.CleanupTestDB(f.db)

	decl := f.validatedDeclaration(t)
	first, err := f.exports.ProjectXML(decl.ID)
	require.NoError(t, err)

	// ручная правка меняет данные и, значит, хеш
	require.NoError(t, f.decls.SetItem(decl.ID, model.LFDeductionOther, "50000"))
	_, err = f.decls.Validate(decl.ID)
	require.NoError(t, err)

	second, err := f.exports.ProjectXML(decl.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ContentHash, second.ContentHash)

	var flags map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(decl.Flags, &flags))
}
