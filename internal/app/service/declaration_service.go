package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/salyqtech/salyq-backend/internal/app/model"
	"github.com/salyqtech/salyq-backend/internal/app/repository"
	"github.com/salyqtech/salyq-backend/internal/engine"
	"github.com/salyqtech/salyq-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrDeclarationNotFound = errors.New("declaration not found")
	ErrTaxpayerNotFound    = errors.New("taxpayer not found")
	ErrInvalidTransition   = errors.New("status transition is not allowed")
	ErrDeclarationFrozen   = errors.New("declaration is immutable in its current status")
	ErrNoItems             = errors.New("declaration has no computed items")
	ErrMissingTotals       = errors.New("declaration is missing required totals")
	ErrConsentRequired     = errors.New("signing requires consent confirmation")
	ErrConsentCodeInvalid  = errors.New("consent code is invalid or expired")
	ErrConsentAttempts     = errors.New("consent attempts exhausted")
	ErrRegenerateForbidden = errors.New("declaration can be regenerated only in draft or validated status")
)

// ConsentStore хранит одноразовые коды подтверждения подписания.
type ConsentStore interface {
	Store(ctx context.Context, declarationID uint, code string, expiry time.Duration) error
	Check(ctx context.Context, declarationID uint, code string, maxAttempts int) (matched, exhausted bool, err error)
}

// Mailer отправляет письма с кодами подтверждения.
type Mailer interface {
	Send(to, subject, body string) error
}

// DeclarationService — оркестровка: прогон движка, генерация,
// проверка, переходы статусов и подтверждение подписания.
type DeclarationService interface {
	RunEngine(taxpayerID uint, taxYear int, allowEmpty bool) (*engine.Result, error)
	Generate(taxpayerID uint, taxYear int) (*model.Declaration, *engine.Result, error)
	Get(declarationID uint) (*model.Declaration, []model.DeclarationItem, error)
	Validate(declarationID uint) (*model.ValidationReport, error)
	Transition(declarationID uint, target model.DeclarationStatus) (*model.Declaration, error)
	RequestConsent(ctx context.Context, declarationID uint) error
	ConfirmConsent(ctx context.Context, declarationID uint, code string) (*model.Declaration, error)
	SetItem(declarationID uint, logicalField string, value string) error
	Reports(declarationID uint) ([]model.ValidationReport, error)
}

type declarationService struct {
	declRepo     repository.DeclarationRepository
	taxpayerRepo repository.TaxpayerRepository
	eventRepo    repository.EventRepository
	catalogRepo  repository.CatalogRepository
	consentStore ConsentStore
	mailer       Mailer
	otpExpiry    time.Duration
	otpAttempts  int
	db           *gorm.DB
}

func NewDeclarationService(
	declRepo repository.DeclarationRepository,
	taxpayerRepo repository.TaxpayerRepository,
	eventRepo repository.EventRepository,
	catalogRepo repository.CatalogRepository,
	consentStore ConsentStore,
	mailer Mailer,
	otpExpiry time.Duration,
	otpAttempts int,
	db *gorm.DB,
) DeclarationService {
	return &declarationService{
		declRepo:     declRepo,
		taxpayerRepo: taxpayerRepo,
		eventRepo:    eventRepo,
		catalogRepo:  catalogRepo,
		consentStore: consentStore,
		mailer:       mailer,
		otpExpiry:    otpExpiry,
		otpAttempts:  otpAttempts,
		db:           db,
	}
}

// RunEngine собирает снимок входных данных и выполняет семь фаз.
func (s *declarationService) RunEngine(taxpayerID uint, taxYear int, allowEmpty bool) (*engine.Result, error) {
	events, err := s.eventRepo.FindByPeriod(taxpayerID, taxYear)
	if err != nil {
		return nil, err
	}

	rules, err := s.catalogRepo.ActiveRulesForYear(taxYear)
	if err != nil {
		return nil, err
	}
	compiled, err := engine.CompileRules(rules)
	if err != nil {
		return nil, err
	}

	knownTypes, err := s.catalogRepo.KnownEventTypes()
	if err != nil {
		return nil, err
	}
	knownFields, err := s.catalogRepo.KnownLogicalFields()
	if err != nil {
		return nil, err
	}

	return engine.Run(events, compiled, engine.Options{
		TaxYear:         taxYear,
		AllowEmpty:      allowEmpty,
		KnownEventTypes: knownTypes,
		KnownFields:     knownFields,
	})
}

// Generate — прогон движка и полная перезапись показателей декларации
// в одной транзакции под строчной блокировкой. После отмены запроса
// частично записанных показателей не остаётся.
func (s *declarationService) Generate(taxpayerID uint, taxYear int) (*model.Declaration, *engine.Result, error) {
	taxpayer, err := s.taxpayerRepo.FindByID(taxpayerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrTaxpayerNotFound
		}
		return nil, nil, err
	}

	result, err := s.RunEngine(taxpayerID, taxYear, false)
	if err != nil {
		return nil, nil, err
	}

	decl, err := s.declRepo.FindOrCreate(taxpayerID, taxYear, "270.00", model.KindMain)
	if err != nil {
		return nil, nil, err
	}

	events, err := s.eventRepo.FindByPeriod(taxpayerID, taxYear)
	if err != nil {
		return nil, nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		locked, err := s.declRepo.FindByIDForUpdate(tx, decl.ID)
		if err != nil {
			return err
		}
		if locked.Status != model.StatusDraft && locked.Status != model.StatusValidated {
			return ErrRegenerateForbidden
		}
		// перегенерация проверенной декларации сначала возвращает её
		// в черновик
		if locked.Status == model.StatusValidated {
			if err := s.declRepo.UpdateStatus(tx, locked.ID, model.StatusDraft); err != nil {
				return err
			}
		}

		// snapshot-заголовок обновляется из карточки налогоплательщика
		locked.IIN = taxpayer.IIN
		locked.LastName = taxpayer.LastName
		locked.FirstName = taxpayer.FirstName
		locked.MiddleName = taxpayer.MiddleName
		locked.Phone = taxpayer.Phone
		locked.Email = taxpayer.Email
		locked.SpouseIIN = taxpayer.SpouseIIN
		locked.LegalRepIIN = taxpayer.LegalRepIIN
		locked.Status = model.StatusDraft
		if err := tx.Save(locked).Error; err != nil {
			return err
		}

		if err := s.declRepo.DeleteItems(tx, decl.ID); err != nil {
			return err
		}

		items := itemsFromResult(decl.ID, result)
		if err := s.declRepo.BulkUpsertItems(tx, decl.ID, items); err != nil {
			return err
		}

		if err := s.declRepo.MergeFlags(tx, decl.ID, result.Flags); err != nil {
			return err
		}

		return s.rewriteMappings(tx, events, result)
	})
	if err != nil {
		return nil, nil, err
	}

	refreshed, err := s.declRepo.FindByID(decl.ID)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("Declaration generated", map[string]interface{}{
		"declaration_id": decl.ID,
		"taxpayer_id":    taxpayerID,
		"tax_year":       taxYear,
		"items":          len(result.FieldValues),
		"mappings":       len(result.Mappings),
	})
	return refreshed, result, nil
}

// rewriteMappings заменяет следы маппинга для событий периода.
func (s *declarationService) rewriteMappings(tx *gorm.DB, events []model.TaxEvent, result *engine.Result) error {
	if len(events) > 0 {
		ids := make([]uint, 0, len(events))
		for _, event := range events {
			ids = append(ids, event.ID)
		}
		if err := tx.Where("tax_event_id IN ?", ids).
			Delete(&model.TaxMapping{}).Error; err != nil {
			return err
		}
	}
	if len(result.Mappings) == 0 {
		return nil
	}
	mappings := make([]model.TaxMapping, 0, len(result.Mappings))
	for _, m := range result.Mappings {
		mappings = append(mappings, model.TaxMapping{
			TaxEventID:   m.TaxEventID,
			TaxYear:      m.TaxYear,
			LogicalField: m.LogicalField,
			Amount:       m.Amount,
			RuleID:       m.RuleID,
		})
	}
	return tx.Create(&mappings).Error
}

// itemsFromResult — показатели в детерминированном порядке кодов.
func itemsFromResult(declarationID uint, result *engine.Result) []model.DeclarationItem {
	codes := make([]string, 0, len(result.FieldValues))
	for code := range result.FieldValues {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	items := make([]model.DeclarationItem, 0, len(codes))
	for _, code := range codes {
		items = append(items, model.DeclarationItem{
			DeclarationID: declarationID,
			LogicalField:  code,
			Value:         result.FieldValues[code],
			Source:        model.ItemFromRuleEngine,
		})
	}
	return items
}

func (s *declarationService) Get(declarationID uint) (*model.Declaration, []model.DeclarationItem, error) {
	decl, err := s.declRepo.FindByID(declarationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrDeclarationNotFound
		}
		return nil, nil, err
	}
	items, err := s.declRepo.Items(declarationID)
	if err != nil {
		return nil, nil, err
	}
	return decl, items, nil
}

// Validate — бизнес-проверка и переход draft → validated. При провале
// сохраняется отрицательный отчёт, декларация остаётся в черновике.
func (s *declarationService) Validate(declarationID uint) (*model.ValidationReport, error) {
	decl, err := s.declRepo.FindByID(declarationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDeclarationNotFound
		}
		return nil, err
	}
	if decl.Status.Immutable() {
		return nil, ErrDeclarationFrozen
	}
	if !model.CanTransition(decl.Status, model.StatusValidated) {
		return nil, ErrInvalidTransition
	}

	items, err := s.declRepo.Items(declarationID)
	if err != nil {
		return nil, err
	}

	problems := validateItems(items)
	report := &model.ValidationReport{
		DeclarationID: declarationID,
		Kind:          model.ReportBusiness,
		IsValid:       len(problems) == 0,
	}
	reportPayload, _ := json.Marshal(map[string]interface{}{
		"problems":    problems,
		"items_count": len(items),
	})
	report.Report = reportPayload

	if err := s.declRepo.CreateReport(report); err != nil {
		return nil, err
	}

	if !report.IsValid {
		logger.Warn("Declaration validation failed", map[string]interface{}{
			"declaration_id": declarationID,
			"problems":       problems,
		})
		if len(items) == 0 {
			return report, ErrNoItems
		}
		return report, ErrMissingTotals
	}

	now := time.Now()
	decl.Status = model.StatusValidated
	decl.ValidatedAt = &now
	if err := s.declRepo.Update(decl); err != nil {
		return nil, err
	}

	logger.Info("Declaration validated", map[string]interface{}{
		"declaration_id": declarationID,
	})
	return report, nil
}

// validateItems — условия допуска к проверке: есть показатели и
// присутствуют обязательные итоговые поля.
func validateItems(items []model.DeclarationItem) []string {
	var problems []string
	if len(items) == 0 {
		problems = append(problems, "нет рассчитанных показателей")
		return problems
	}

	present := make(map[string]bool, len(items))
	for _, item := range items {
		present[item.LogicalField] = true
	}
	for _, required := range []string{
		model.LFIncomeTotal,
		model.LFTaxableIncome,
		model.LFIPNCalculated,
	} {
		if !present[required] {
			problems = append(problems, fmt.Sprintf("отсутствует обязательное поле %s", required))
		}
	}
	return problems
}

// Transition — переход по графу статусов. Переход в signed выполняется
// только через подтверждение кодом (ConfirmConsent).
func (s *declarationService) Transition(declarationID uint, target model.DeclarationStatus) (*model.Declaration, error) {
	if target == model.StatusSigned {
		return nil, ErrConsentRequired
	}
	if target == model.StatusValidated {
		if _, err := s.Validate(declarationID); err != nil {
			return nil, err
		}
		return s.declRepo.FindByID(declarationID)
	}

	var updated *model.Declaration
	err := s.db.Transaction(func(tx *gorm.DB) error {
		decl, err := s.declRepo.FindByIDForUpdate(tx, declarationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDeclarationNotFound
			}
			return err
		}
		if decl.Status.Immutable() && target != model.StatusAccepted && target != model.StatusRejected {
			return ErrDeclarationFrozen
		}
		if !model.CanTransition(decl.Status, target) {
			return ErrInvalidTransition
		}
		if err := s.declRepo.UpdateStatus(tx, declarationID, target); err != nil {
			return err
		}
		decl.Status = target
		updated = decl
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Declaration status changed", map[string]interface{}{
		"declaration_id": declarationID,
		"status":         updated.Status,
	})
	return updated, nil
}

// RequestConsent — код подтверждения отправляется на email из
// snapshot-заголовка декларации.
func (s *declarationService) RequestConsent(ctx context.Context, declarationID uint) error {
	decl, err := s.declRepo.FindByID(declarationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDeclarationNotFound
		}
		return err
	}
	if decl.Status != model.StatusAwaitingConsent {
		return ErrInvalidTransition
	}

	code, err := generateConsentCode()
	if err != nil {
		return err
	}
	if err := s.consentStore.Store(ctx, declarationID, code, s.otpExpiry); err != nil {
		return err
	}

	body := fmt.Sprintf(
		"Код подтверждения подписания декларации 270.00 за %d год: %s\nКод действует %d минут.",
		decl.TaxYear, code, int(s.otpExpiry.Minutes()),
	)
	if err := s.mailer.Send(decl.Email, "Подтверждение подписания декларации", body); err != nil {
		logger.Error("Failed to send consent code", err, map[string]interface{}{
			"declaration_id": declarationID,
		})
		return err
	}

	logger.Info("Consent code sent", map[string]interface{}{
		"declaration_id": declarationID,
	})
	return nil
}

// ConfirmConsent проверяет код и переводит декларацию в signed.
func (s *declarationService) ConfirmConsent(ctx context.Context, declarationID uint, code string) (*model.Declaration, error) {
	decl, err := s.declRepo.FindByID(declarationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDeclarationNotFound
		}
		return nil, err
	}
	if decl.Status != model.StatusAwaitingConsent {
		return nil, ErrInvalidTransition
	}

	matched, exhausted, err := s.consentStore.Check(ctx, declarationID, code, s.otpAttempts)
	if err != nil {
		return nil, err
	}
	if exhausted {
		return nil, ErrConsentAttempts
	}
	if !matched {
		return nil, ErrConsentCodeInvalid
	}

	if err := s.declRepo.UpdateStatus(nil, declarationID, model.StatusSigned); err != nil {
		return nil, err
	}
	decl.Status = model.StatusSigned

	logger.Info("Declaration signed", map[string]interface{}{
		"declaration_id": declarationID,
	})
	return decl, nil
}

// SetItem — ручная правка показателя. Правка проверенной декларации
// возвращает её в черновик; замороженные статусы правку отклоняют.
func (s *declarationService) SetItem(declarationID uint, logicalField string, value string) error {
	known, err := s.catalogRepo.KnownLogicalFields()
	if err != nil {
		return err
	}
	if !known[logicalField] {
		return fmt.Errorf("unknown logical field %q", logicalField)
	}

	parsed, err := parseDecimal(value)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		decl, err := s.declRepo.FindByIDForUpdate(tx, declarationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDeclarationNotFound
			}
			return err
		}
		if decl.Status.Immutable() {
			return ErrDeclarationFrozen
		}
		if decl.Status == model.StatusValidated {
			if err := s.declRepo.UpdateStatus(tx, declarationID, model.StatusDraft); err != nil {
				return err
			}
		}
		return s.declRepo.BulkUpsertItems(tx, declarationID, []model.DeclarationItem{{
			DeclarationID: declarationID,
			LogicalField:  logicalField,
			Value:         parsed,
			Source:        model.ItemManual,
		}})
	})
}

func (s *declarationService) Reports(declarationID uint) ([]model.ValidationReport, error) {
	return s.declRepo.Reports(declarationID)
}
