package repository

import (
	"encoding/json"
	"errors"

	"github.com/salyqtech/salyq-backend/internal/app/model"
	"github.com/salyqtech/salyq-backend/pkg/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DeclarationRepository interface {
	FindOrCreate(taxpayerID uint, taxYear int, formCode string, kind model.DeclarationKind) (*model.Declaration, error)
	FindByID(id uint) (*model.Declaration, error)
	FindByIDForUpdate(tx *gorm.DB, id uint) (*model.Declaration, error)
	FindByPeriod(taxpayerID uint, taxYear int, formCode string) (*model.Declaration, error)
	Update(decl *model.Declaration) error
	UpdateStatus(tx *gorm.DB, id uint, status model.DeclarationStatus) error

	Items(declarationID uint) ([]model.DeclarationItem, error)
	BulkUpsertItems(tx *gorm.DB, declarationID uint, items []model.DeclarationItem) error
	DeleteItems(tx *gorm.DB, declarationID uint) error
	MergeFlags(tx *gorm.DB, declarationID uint, flags map[string]bool) error

	CreateReport(report *model.ValidationReport) error
	Reports(declarationID uint) ([]model.ValidationReport, error)
}

type declarationRepository struct {
	db *gorm.DB
}

func NewDeclarationRepository(db *gorm.DB) DeclarationRepository {
	return &declarationRepository{db: db}
}

// FindOrCreate — атомарное получение декларации периода; уникальность
// (taxpayer, tax_year, form_code) разрешает гонку двух создателей.
func (r *declarationRepository) FindOrCreate(taxpayerID uint, taxYear int, formCode string, kind model.DeclarationKind) (*model.Declaration, error) {
	existing, err := r.FindByPeriod(taxpayerID, taxYear, formCode)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	decl := &model.Declaration{
		TaxpayerID: taxpayerID,
		TaxYear:    taxYear,
		FormCode:   formCode,
		Kind:       kind,
		Status:     model.StatusDraft,
		Flags:      datatypes.JSON([]byte(`{}`)),
	}
	if err := r.db.Create(decl).Error; err != nil {
		// проигравший гонку видит уникальный индекс и берёт чужую запись
		if existing, findErr := r.FindByPeriod(taxpayerID, taxYear, formCode); findErr == nil {
			return existing, nil
		}
		logger.Error("Failed to create declaration", err, map[string]interface{}{
			"taxpayer_id": taxpayerID,
			"tax_year":    taxYear,
		})
		return nil, err
	}

	logger.Debug("Declaration created", map[string]interface{}{
		"declaration_id": decl.ID,
		"taxpayer_id":    taxpayerID,
		"tax_year":       taxYear,
	})
	return decl, nil
}

func (r *declarationRepository) FindByID(id uint) (*model.Declaration, error) {
	var decl model.Declaration
	if err := r.db.First(&decl, id).Error; err != nil {
		return nil, err
	}
	return &decl, nil
}

// FindByIDForUpdate берёт строчную блокировку декларации: конкурентные
// generate/transition/project по одной декларации сериализуются.
func (r *declarationRepository) FindByIDForUpdate(tx *gorm.DB, id uint) (*model.Declaration, error) {
	var decl model.Declaration
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&decl, id).Error; err != nil {
		return nil, err
	}
	return &decl, nil
}

func (r *declarationRepository) FindByPeriod(taxpayerID uint, taxYear int, formCode string) (*model.Declaration, error) {
	var decl model.Declaration
	if err := r.db.
		Where("taxpayer_id = ? AND tax_year = ? AND form_code = ?", taxpayerID, taxYear, formCode).
		First(&decl).Error; err != nil {
		return nil, err
	}
	return &decl, nil
}

func (r *declarationRepository) Update(decl *model.Declaration) error {
	return r.db.Save(decl).Error
}

func (r *declarationRepository) UpdateStatus(tx *gorm.DB, id uint, status model.DeclarationStatus) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	return db.Model(&model.Declaration{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *declarationRepository) Items(declarationID uint) ([]model.DeclarationItem, error) {
	var items []model.DeclarationItem
	if err := r.db.
		Where("declaration_id = ?", declarationID).
		Order("logical_field ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// BulkUpsertItems перезаписывает значения полей, соблюдая уникальность
// (declaration, logical_field).
func (r *declarationRepository) BulkUpsertItems(tx *gorm.DB, declarationID uint, items []model.DeclarationItem) error {
	if len(items) == 0 {
		return nil
	}
	db := r.db
	if tx != nil {
		db = tx
	}
	for i := range items {
		items[i].DeclarationID = declarationID
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "declaration_id"}, {Name: "logical_field"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "source", "updated_at"}),
	}).Create(&items).Error
}

// DeleteItems — перегенерация начинается с чистого листа; ручные
// показатели при этом тоже удаляются (зафиксированная политика).
func (r *declarationRepository) DeleteItems(tx *gorm.DB, declarationID uint) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	return db.Where("declaration_id = ?", declarationID).
		Delete(&model.DeclarationItem{}).Error
}

// MergeFlags — неглубокое слияние JSON-флагов.
func (r *declarationRepository) MergeFlags(tx *gorm.DB, declarationID uint, flags map[string]bool) error {
	db := r.db
	if tx != nil {
		db = tx
	}

	var decl model.Declaration
	if err := db.First(&decl, declarationID).Error; err != nil {
		return err
	}

	merged := map[string]bool{}
	if len(decl.Flags) > 0 {
		if err := json.Unmarshal(decl.Flags, &merged); err != nil {
			logger.Warn("Declaration flags are not valid JSON, resetting", map[string]interface{}{
				"declaration_id": declarationID,
			})
			merged = map[string]bool{}
		}
	}
	for name, value := range flags {
		merged[name] = value
	}

	raw, err := json.Marshal(merged)
	if err != nil {
		return err
	}
	return db.Model(&model.Declaration{}).
		Where("id = ?", declarationID).
		Update("flags", datatypes.JSON(raw)).Error
}

func (r *declarationRepository) CreateReport(report *model.ValidationReport) error {
	return r.db.Create(report).Error
}

func (r *declarationRepository) Reports(declarationID uint) ([]model.ValidationReport, error) {
	var reports []model.ValidationReport
	if err := r.db.
		Where("declaration_id = ?", declarationID).
		Order("created_at DESC, id DESC").
		Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}
