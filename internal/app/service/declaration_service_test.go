package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/salyqtech/salyq-backend/internal/app/model"
	"github.com/salyqtech/salyq-backend/internal/app/repository"
	"github.com/salyqtech/salyq-backend/internal/db"
	"github.com/salyqtech/salyq-backend/internal/parser"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeConsentStore — память вместо Redis.
type fakeConsentStore struct {
	codes    map[uint]string
	attempts map[uint]int
}

func newFakeConsentStore() *fakeConsentStore {
	return &fakeConsentStore{codes: map[uint]string{}, attempts: map[uint]int{}}
}

func (s *fakeConsentStore) Store(_ context.Context, id uint, code string, _ time.Duration) error {
	s.codes[id] = code
	s.attempts[id] = 0
	return nil
}

func (s *fakeConsentStore) Check(_ context.Context, id uint, code string, maxAttempts int) (bool, bool, error) {
	stored, ok := s.codes[id]
	if !ok {
		return false, false, nil
	}
	s.attempts[id]++
	if s.attempts[id] > maxAttempts {
		return false, true, nil
	}
	if stored != code {
		return false, false, nil
	}
	delete(s.codes, id)
	return true, false, nil
}

// fakeMailer запоминает отправленные письма.
type fakeMailer struct {
	sent []string
}

func (m *fakeMailer) Send(to, subject, body string) error {
	m.sent = append(m.sent, to)
	return nil
}

type declFixture struct {
	db       *gorm.DB
	ingest   IngestService
	decls    DeclarationService
	taxpayer *model.Taxpayer
	consent  *fakeConsentStore
	mailer   *fakeMailer
}

func setupDeclarationServiceTest(t *testing.T) *declFixture {
	testDB, err := db.SetupTestDBWithCatalog()
	require.NoError(t, err)

	taxpayer := &model.Taxpayer{
		IIN:       "880101300123",
		LastName:  "Ахметов",
		FirstName: "Данияр",
		Phone:     "+77011234567",
		Email:     "d.akhmetov@example.kz",
	}
	require.NoError(t, testDB.Create(taxpayer).Error)

	sourceRepo := repository.NewSourceRecordRepository(testDB)
	eventRepo := repository.NewEventRepository(testDB)
	catalogRepo := repository.NewCatalogRepository(testDB)
	rateRepo := repository.NewCurrencyRateRepository(testDB)
	declRepo := repository.NewDeclarationRepository(testDB)

	consent := newFakeConsentStore()
	mailer := &fakeMailer{}

	return &declFixture{
		db: testDB,
		ingest: NewIngestService(
			sourceRepo, eventRepo, catalogRepo, rateRepo,
			parser.NewRegistry(), testDB,
		),
		decls: NewDeclarationService(
			declRepo, repository.NewTaxpayerRepository(testDB),
			eventRepo, catalogRepo,
			consent, mailer,
			5*time.Minute, 3,
			testDB,
		),
		taxpayer: taxpayer,
		consent:  consent,
		mailer:   mailer,
	}
}

func (f *declFixture) ingestManual(t *testing.T, payload string) {
	record, _, err := f.ingest.Ingest(f.taxpayer.ID, model.SourceManual, json.RawMessage(payload))
	require.NoError(t, err)
	_, err = f.ingest.Parse(record.ID)
	require.NoError(t, err)
}

func itemValue(t *testing.T, items []model.DeclarationItem, code string) decimal.Decimal {
	t.Helper()
	for _, item := range items {
		if item.LogicalField == code {
			return item.Value
		}
	}
	t.Fatalf("item %s not found", code)
	return decimal.Zero
}

// Полный путь: зарубежные дивиденды → декларация с рассчитанным ИПН.
func TestGenerate_ForeignDividends(t *testing.T) {
	f := setupDeclarationServiceTest(t)
	defer db.CleanupTestDB(f.db)

	f.ingestManual(t, `{"event_type": "EV_FOREIGN_DIVIDENDS", "event_date": "2024-06-15", "amount": 500000}`)

	decl, result, err := f.decls.Generate(f.taxpayer.ID, 2024)
	require.NoError(t, err)

	// snapshot-заголовок скопирован из карточки
	assert.Equal(t, "880101300123", decl.IIN)
	assert.Equal(t, "Ахметов", decl.LastName)
	assert.Equal(t, model.StatusDraft, decl.Status)

	_, items, err := f.decls.Get(decl.ID)
	require.NoError(t, err)

	assert.True(t, itemValue(t, items, model.LFIncomeForeignDividends).Equal(decimal.NewFromInt(500000)))
	assert.True(t, itemValue(t, items, model.LFIncomeTotal).Equal(decimal.NewFromInt(500000)))
	assert.True(t, itemValue(t, items, model.LFTaxableIncome).Equal(decimal.NewFromInt(500000)))
	assert.True(t, itemValue(t, items, model.LFIPNCalculated).Equal(decimal.NewFromInt(50000)))
	assert.True(t, itemValue(t, items, model.LFIPNPayable).Equal(decimal.NewFromInt(50000)))

	flags := map[string]bool{}
	require.NoError(t, json.Unmarshal(decl.Flags, &flags))
	assert.True(t, flags["has_income"])
	assert.True(t, flags["has_foreign_income"])
	assert.True(t, flags["pril_2"])

	assert.NotEmpty(t, result.Mappings)

	var mappings int64
	f.db.Model(&model.TaxMapping{}).Count(&mappings)
	assert.Greater(t, mappings, int64(0))
}

// Зачёт иностранного налога обнуляет ИПН к уплате.
func TestGenerate_ForeignCredit(t *testing.T) {
	f := setupDeclarationServiceTest(t)
	defer db.CleanupTestDB(f.db)

	f.ingestManual(t, `{"events": [
		{"event_type": "EV_FOREIGN_DIVIDENDS", "event_date": "2024-06-15", "amount": 500000},
		{"event_type": "EV_FOREIGN_TAX_PAID_GENERAL", "event_date": "2024-06-15", "amount": 50000}
	]}`)

	decl, _, err := f.decls.Generate(f.taxpayer.ID, 2024)
	require.NoError(t, err)

	_, items, err := f.decls.Get(decl.ID)
	require.NoError(t, err)
	assert.True(t, itemValue(t, items, model.LFForeignTaxCreditGeneral).Equal(decimal.NewFromInt(50000)))
	assert.True(t, itemValue(t, items, model.LFIPNPayable).IsZero())
}

// Перегенерация полностью заменяет показатели, включая ручные.
func TestGenerate_ReplacesManualItems(t *testing.T) {
	f := setupDeclarationServiceTest(t)
	defer db.CleanupTestDB(f.db)

	f.ingestManual(t, `{"event_type": "EV_PROPERTY_SALE_KZ", "event_date": "2024-08-20", "amount": 1000000}`)

	decl, _, err := f.decls.Generate(f.taxpayer.ID, 2024)
	require.NoError(t, err)

	require.NoError(t, f.decls.SetItem(decl.ID, model.LFIncomeOther, "777"))

	_, _, err = f.decls.Generate(f.taxpayer.ID, 2024)
	require.NoError(t, err)

	_, items, err := f.decls.Get(decl.ID)
	require.NoError(t, err)
	for _, item := range items {
		assert.NotEqual(t, model.ItemManual, item.Source, "manual item survived regeneration")
	}
}

// Декларация без показателей не проходит проверку; отчёт сохраняется.
func TestValidate_RefusesEmptyDeclaration(t *testing.T) {
	f := setupDeclarationServiceTest(t)
	defer db.CleanupTestDB(f.db)

	declRepo := repository.NewDeclarationRepository(f.db)
	decl, err := declRepo.FindOrCreate(f.taxpayer.ID, 2024, "270.00", model.KindMain)
	require.NoError(t, err)

	report, err := f.decls.Validate(decl.ID)
	assert.ErrorIs(t, err, ErrNoItems)
	require.NotNil(t, report)
	assert.False(t, report.IsValid)

	// декларация осталась в черновике, отчёт записан
	updated, _ := declRepo.FindByID(decl.ID)
	assert.Equal(t, model.StatusDraft, updated.Status)

	reports, err := f.decls.Reports(decl.ID)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.False(t, reports[0].IsValid)
	assert.Equal(t, model.ReportBusiness, reports[0].Kind)
}

func TestValidate_Succeeds(t *testing.T) {
	f := setupDeclarationServiceTest(t)
	defer db.CleanupTestDB(f.db)

	f.ingestManual(t, `{"event_type": "EV_DIVIDENDS", "event_date": "2024-03-03", "amount": 100000}`)
	decl, _, err := f.decls.Generate(f.taxpayer.ID, 2024)
	require.NoError(t, err)

	report, err := f.decls.Validate(decl.ID)
	require.NoError(t, err)
	assert.True(t, report.IsValid)

	updated, _, err := f.decls.Get(decl.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusValidated, updated.Status)
	assert.NotNil(t, updated.ValidatedAt)
}

// Последовательность статусов — только по графу.
func TestTransition_Graph(t *testing.T) {
	f := setupDeclarationServiceTest(t)
	defer db.CleanupTestDB(f.db)

	f.ingestManual(t, `{"event_type": "EV_DIVIDENDS", "event_date": "2024-03-03", "amount": 100000}`)
	decl, _, err := f.decls.Generate(f.taxpayer.ID, 2024)
	require.NoError(t, err)

	// draft → awaiting_consent запрещён
	_, err = f.decls.Transition(decl.ID, model.StatusAwaitingConsent)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.decls.Validate(decl.ID)
	require.NoError(t, err)

	// validated → awaiting_consent разрешён
	updated, err := f.decls.Transition(decl.ID, model.StatusAwaitingConsent)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAwaitingConsent, updated.Status)

	// прямой переход в signed закрыт: только через код подтверждения
	_, err = f.decls.Transition(decl.ID, model.StatusSigned)
	assert.ErrorIs(t, err, ErrConsentRequired)
}

func TestConsentFlow(t *testing.T) {
	f := setupDeclarationServiceTest(t)
	defer db.CleanupTestDB(f.db)

	f.ingestManual(t, `{"event_type": "EV_DIVIDENDS", "event_date": "2024-03-03", "amount": 100000}`)
	decl, _, err := f.decls.Generate(f.taxpayer.ID, 2024)
	require.NoError(t, err)
	_, err = f.decls.Validate(decl.ID)
	require.NoError(t, err)
	_, err = f.decls.Transition(decl.ID, model.StatusAwaitingConsent)
	require.NoError(t, err)

	require.NoError(t, f.decls.RequestConsent(context.Background(), decl.ID))
	assert.Equal(t, []string{"d.akhmetov@example.kz"}, f.mailer.sent)

	// неверный код
	_, err = f.decls.ConfirmConsent(context.Background(), decl.ID, "000000")
	assert.ErrorIs(t, err, ErrConsentCodeInvalid)

	// верный код подписывает декларацию
	code := f.consent.codes[decl.ID]
	signed, err := f.decls.ConfirmConsent(context.Background(), decl.ID, code)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSigned, signed.Status)

	// дальше по графу до принятия
	_, err = f.decls.Transition(decl.ID, model.StatusSubmitted)
	require.NoError(t, err)
	accepted, err := f.decls.Transition(decl.ID, model.StatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAccepted, accepted.Status)

	// терминальный статус неизменяем
	_, err = f.decls.Transition(decl.ID, model.StatusDraft)
	assert.Error(t, err)
	err = f.decls.SetItem(decl.ID, model.LFIncomeOther, "1")
	assert.ErrorIs(t, err, ErrDeclarationFrozen)
}

// Правка показателя проверенной декларации возвращает её в черновик.
func TestSetItem_DropsValidatedToDraft(t *testing.T) {
	f := setupDeclarationServiceTest(t)
	defer db.CleanupTestDB(f.db)

	f.ingestManual(t, `{"event_type": "EV_DIVIDENDS", "event_date": "2024-03-03", "amount": 100000}`)
	decl, _, err := f.decls.Generate(f.taxpayer.ID, 2024)
	require.NoError(t, err)
	_, err = f.decls.Validate(decl.ID)
	require.NoError(t, err)

	require.NoError(t, f.decls.SetItem(decl.ID, model.LFDeductionOther, "5000"))

	updated, items, err := f.decls.Get(decl.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDraft, updated.Status)
	assert.True(t, itemValue(t, items, model.LFDeductionOther).Equal(decimal.NewFromInt(5000)))
}

// Регенерация запрещена после подписания.
func TestGenerate_ForbiddenAfterSigning(t *testing.T) {
	f := setupDeclarationServiceTest(t)
	defer db.CleanupTestDB(f.db)

	f.ingestManual(t, `{"event_type": "EV_DIVIDENDS", "event_date": "2024-03-03", "amount": 100000}`)
	decl, _, err := f.decls.Generate(f.taxpayer.ID, 2024)
	require.NoError(t, err)
	_, err = f.decls.Validate(decl.ID)
	require.NoError(t, err)
	_, err = f.decls.Transition(decl.ID, model.StatusAwaitingConsent)
	require.NoError(t, err)
	require.NoError(t, f.decls.RequestConsent(context.Background(), decl.ID))
	_, err = f.decls.ConfirmConsent(context.Background(), decl.ID, f.consent.codes[decl.ID])
	require.NoError(t, err)

	_, _, err = f.decls.Generate(f.taxpayer.ID, 2024)
	assert.ErrorIs(t, err, ErrRegenerateForbidden)
}

func TestRunEngine_EmptyPeriod(t *testing.T) {
	f := setupDeclarationServiceTest(t)
	defer db.CleanupTestDB(f.db)

	_, err := f.decls.RunEngine(f.taxpayer.ID, 2024, false)
	assert.Error(t, err)

	result, err := f.decls.RunEngine(f.taxpayer.ID, 2024, true)
	require.NoError(t, err)
	assert.Empty(t, result.Mappings)
}
