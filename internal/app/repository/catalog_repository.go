package repository

import (
	"fmt"
	"sync"

	"github.com/salyqtech/salyq-backend/internal/app/model"
	"github.com/salyqtech/salyq-backend/pkg/logger"
	"gorm.io/gorm"
)

// CatalogRepository — типизированный доступ к справочникам движка:
// коды событий, логические поля, правила, карта XML-полей.
// Справочник читается часто и меняется редко, поэтому результаты
// кешируются в памяти процесса; любая запись сбрасывает кеш.
type CatalogRepository interface {
	// event types
	CreateEventType(et *model.TaxEventType) error
	ListEventTypes() ([]model.TaxEventType, error)
	KnownEventTypes() (map[string]bool, error)

	// logical fields
	CreateLogicalField(lf *model.LogicalField) error
	ListLogicalFields() ([]model.LogicalField, error)
	KnownLogicalFields() (map[string]bool, error)

	// rules
	CreateRule(rule *model.TaxRule) error
	UpdateRule(rule *model.TaxRule) error
	DeleteRule(id uint) error
	FindRuleByID(id uint) (*model.TaxRule, error)
	// ActiveRulesForYear: active = true, tax_year IN (year, NULL),
	// порядок (priority ASC, created_at ASC).
	ActiveRulesForYear(taxYear int) ([]model.TaxRule, error)

	// xml field map
	CreateFieldMap(fm *model.XmlFieldMap) error
	ListFieldMaps(formCode string) ([]model.XmlFieldMap, error)
}

type catalogRepository struct {
	db *gorm.DB

	mu         sync.RWMutex
	rulesCache map[int][]model.TaxRule
	typesCache map[string]bool
	fieldCache map[string]bool
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{
		db:         db,
		rulesCache: make(map[int][]model.TaxRule),
	}
}

// invalidate сбрасывает кеш; вызывается при любой записи в справочник.
func (r *catalogRepository) invalidate() {
	r.mu.Lock()
	r.rulesCache = make(map[int][]model.TaxRule)
	r.typesCache = nil
	r.fieldCache = nil
	r.mu.Unlock()
}

func (r *catalogRepository) CreateEventType(et *model.TaxEventType) error {
	if !model.ValidEventTypeCode(et.Code) {
		return fmt.Errorf("event type code %q does not match EV_[A-Z_]+", et.Code)
	}
	if err := r.db.Create(et).Error; err != nil {
		return err
	}
	r.invalidate()
	return nil
}

func (r *catalogRepository) ListEventTypes() ([]model.TaxEventType, error) {
	var types []model.TaxEventType
	if err := r.db.Order("code ASC").Find(&types).Error; err != nil {
		return nil, err
	}
	return types, nil
}

func (r *catalogRepository) KnownEventTypes() (map[string]bool, error) {
	r.mu.RLock()
	if r.typesCache != nil {
		cached := r.typesCache
		r.mu.RUnlock()
		return cached, nil
	}
	r.mu.RUnlock()

	types, err := r.ListEventTypes()
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(types))
	for _, t := range types {
		known[t.Code] = true
	}

	r.mu.Lock()
	r.typesCache = known
	r.mu.Unlock()
	return known, nil
}

func (r *catalogRepository) CreateLogicalField(lf *model.LogicalField) error {
	if !model.ValidLogicalFieldCode(lf.Code) {
		return fmt.Errorf("logical field code %q does not match LF_[A-Z_]+", lf.Code)
	}
	if err := r.db.Create(lf).Error; err != nil {
		return err
	}
	r.invalidate()
	return nil
}

func (r *catalogRepository) ListLogicalFields() ([]model.LogicalField, error) {
	var fields []model.LogicalField
	if err := r.db.Order("code ASC").Find(&fields).Error; err != nil {
		return nil, err
	}
	return fields, nil
}

func (r *catalogRepository) KnownLogicalFields() (map[string]bool, error) {
	r.mu.RLock()
	if r.fieldCache != nil {
		cached := r.fieldCache
		r.mu.RUnlock()
		return cached, nil
	}
	r.mu.RUnlock()

	fields, err := r.ListLogicalFields()
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f.Code] = true
	}

	r.mu.Lock()
	r.fieldCache = known
	r.mu.Unlock()
	return known, nil
}

func (r *catalogRepository) CreateRule(rule *model.TaxRule) error {
	if err := r.validateRuleTargets(rule); err != nil {
		return err
	}
	if err := r.db.Create(rule).Error; err != nil {
		logger.Error("Failed to create rule", err, map[string]interface{}{
			"rule_code": rule.RuleCode,
		})
		return err
	}
	// default:true у колонки подменяет нулевое значение при Create:
	// явно выключенное правило сохраняется неактивным отдельным UPDATE
	if !rule.Active {
		if err := r.db.Model(rule).Update("active", false).Error; err != nil {
			return err
		}
	}
	r.invalidate()
	return nil
}

func (r *catalogRepository) UpdateRule(rule *model.TaxRule) error {
	if err := r.validateRuleTargets(rule); err != nil {
		return err
	}
	if err := r.db.Save(rule).Error; err != nil {
		return err
	}
	r.invalidate()
	return nil
}

func (r *catalogRepository) DeleteRule(id uint) error {
	if err := r.db.Delete(&model.TaxRule{}, id).Error; err != nil {
		return err
	}
	r.invalidate()
	return nil
}

func (r *catalogRepository) FindRuleByID(id uint) (*model.TaxRule, error) {
	var rule model.TaxRule
	if err := r.db.First(&rule, id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *catalogRepository) ActiveRulesForYear(taxYear int) ([]model.TaxRule, error) {
	r.mu.RLock()
	if cached, ok := r.rulesCache[taxYear]; ok {
		r.mu.RUnlock()
		return cached, nil
	}
	r.mu.RUnlock()

	var rules []model.TaxRule
	if err := r.db.
		Where("active = ? AND (tax_year IS NULL OR tax_year = ?)", true, taxYear).
		Order("priority ASC, created_at ASC").
		Find(&rules).Error; err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.rulesCache[taxYear] = rules
	r.mu.Unlock()

	logger.Debug("Active rules loaded", map[string]interface{}{
		"tax_year": taxYear,
		"count":    len(rules),
	})
	return rules, nil
}

// validateRuleTargets — цель map-действия должна существовать в
// справочнике логических полей.
func (r *catalogRepository) validateRuleTargets(rule *model.TaxRule) error {
	if rule.RuleType != model.RuleMapping && rule.RuleType != model.RuleCalculation {
		return nil
	}
	known, err := r.KnownLogicalFields()
	if err != nil {
		return err
	}
	for _, target := range extractActionTargets(rule.Actions) {
		if !known[target] {
			return fmt.Errorf("rule %s targets unknown logical field %q", rule.RuleCode, target)
		}
	}
	return nil
}

func (r *catalogRepository) CreateFieldMap(fm *model.XmlFieldMap) error {
	if fm.LogicalField != nil && !model.ValidLogicalFieldCode(*fm.LogicalField) {
		return fmt.Errorf("logical field code %q does not match LF_[A-Z_]+", *fm.LogicalField)
	}
	if err := r.db.Create(fm).Error; err != nil {
		return err
	}
	r.invalidate()
	return nil
}

func (r *catalogRepository) ListFieldMaps(formCode string) ([]model.XmlFieldMap, error) {
	var maps []model.XmlFieldMap
	if err := r.db.
		Where("form_code = ?", formCode).
		Order("application_code ASC, sort_order ASC, xml_field_name ASC").
		Find(&maps).Error; err != nil {
		return nil, err
	}
	return maps, nil
}
