package service

import (
	"errors"

	"github.com/salyqtech/salyq-backend/internal/app/model"
	"github.com/salyqtech/salyq-backend/internal/app/repository"
	"github.com/salyqtech/salyq-backend/internal/engine"
	"gorm.io/gorm"
)

var ErrRuleNotFound = errors.New("rule not found")

// CatalogService — администрирование справочников движка. Правила
// компилируются при записи: некорректные условия или действия
// отклоняются сразу, а не при первом прогоне.
type CatalogService interface {
	CreateEventType(et *model.TaxEventType) error
	ListEventTypes() ([]model.TaxEventType, error)

	CreateLogicalField(lf *model.LogicalField) error
	ListLogicalFields() ([]model.LogicalField, error)

	CreateRule(rule *model.TaxRule) error
	UpdateRule(rule *model.TaxRule) error
	DeleteRule(id uint) error
	ListRulesForYear(taxYear int) ([]model.TaxRule, error)

	CreateFieldMap(fm *model.XmlFieldMap) error
	ListFieldMaps(formCode string) ([]model.XmlFieldMap, error)
}

type catalogService struct {
	catalogRepo repository.CatalogRepository
}

func NewCatalogService(catalogRepo repository.CatalogRepository) CatalogService {
	return &catalogService{catalogRepo: catalogRepo}
}

func (s *catalogService) CreateEventType(et *model.TaxEventType) error {
	return s.catalogRepo.CreateEventType(et)
}

func (s *catalogService) ListEventTypes() ([]model.TaxEventType, error) {
	return s.catalogRepo.ListEventTypes()
}

func (s *catalogService) CreateLogicalField(lf *model.LogicalField) error {
	return s.catalogRepo.CreateLogicalField(lf)
}

func (s *catalogService) ListLogicalFields() ([]model.LogicalField, error) {
	return s.catalogRepo.ListLogicalFields()
}

func (s *catalogService) CreateRule(rule *model.TaxRule) error {
	if _, err := engine.CompileRules([]model.TaxRule{*rule}); err != nil {
		return err
	}
	return s.catalogRepo.CreateRule(rule)
}

func (s *catalogService) UpdateRule(rule *model.TaxRule) error {
	if _, err := engine.CompileRules([]model.TaxRule{*rule}); err != nil {
		return err
	}
	return s.catalogRepo.UpdateRule(rule)
}

func (s *catalogService) DeleteRule(id uint) error {
	if _, err := s.catalogRepo.FindRuleByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRuleNotFound
		}
		return err
	}
	return s.catalogRepo.DeleteRule(id)
}

func (s *catalogService) ListRulesForYear(taxYear int) ([]model.TaxRule, error) {
	return s.catalogRepo.ActiveRulesForYear(taxYear)
}

func (s *catalogService) CreateFieldMap(fm *model.XmlFieldMap) error {
	return s.catalogRepo.CreateFieldMap(fm)
}

func (s *catalogService) ListFieldMaps(formCode string) ([]model.XmlFieldMap, error) {
	return s.catalogRepo.ListFieldMaps(formCode)
}
