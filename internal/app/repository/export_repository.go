package repository

import (
	"github.com/salyqtech/salyq-backend/internal/app/model"
	"gorm.io/gorm"
)

// ExportRepository — версии XML-выгрузок; только добавление.
type ExportRepository interface {
	Create(tx *gorm.DB, export *model.XmlExport) error
	NextVersion(tx *gorm.DB, declarationID uint) (int, error)
	FindByID(id uint) (*model.XmlExport, error)
	ListByDeclaration(declarationID uint) ([]model.XmlExport, error)
	Latest(declarationID uint) (*model.XmlExport, error)
	MarkSigned(id uint) error
	SetArchiveKey(id uint, key string) error
}

type exportRepository struct {
	db *gorm.DB
}

func NewExportRepository(db *gorm.DB) ExportRepository {
	return &exportRepository{db: db}
}

func (r *exportRepository) Create(tx *gorm.DB, export *model.XmlExport) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	return db.Create(export).Error
}

// NextVersion — монотонный номер версии: число прежних версий + 1.
func (r *exportRepository) NextVersion(tx *gorm.DB, declarationID uint) (int, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	var count int64
	if err := db.Model(&model.XmlExport{}).
		Where("declaration_id = ?", declarationID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count) + 1, nil
}

func (r *exportRepository) FindByID(id uint) (*model.XmlExport, error) {
	var export model.XmlExport
	if err := r.db.First(&export, id).Error; err != nil {
		return nil, err
	}
	return &export, nil
}

func (r *exportRepository) ListByDeclaration(declarationID uint) ([]model.XmlExport, error) {
	var exports []model.XmlExport
	if err := r.db.
		Where("declaration_id = ?", declarationID).
		Order("schema_version ASC").
		Find(&exports).Error; err != nil {
		return nil, err
	}
	return exports, nil
}

func (r *exportRepository) Latest(declarationID uint) (*model.XmlExport, error) {
	var export model.XmlExport
	if err := r.db.
		Where("declaration_id = ?", declarationID).
		Order("schema_version DESC").
		First(&export).Error; err != nil {
		return nil, err
	}
	return &export, nil
}

func (r *exportRepository) MarkSigned(id uint) error {
	return r.db.Model(&model.XmlExport{}).
		Where("id = ?", id).
		Update("signed", true).Error
}

func (r *exportRepository) SetArchiveKey(id uint, key string) error {
	return r.db.Model(&model.XmlExport{}).
		Where("id = ?", id).
		Update("archive_key", key).Error
}
