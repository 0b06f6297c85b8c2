package repository

import (
	"errors"

	"github.com/salyqtech/salyq-backend/internal/app/model"
	"github.com/salyqtech/salyq-backend/pkg/logger"
	"gorm.io/gorm"
)

type SourceRecordRepository interface {
	Create(record *model.SourceRecord) error
	FindByID(id uint) (*model.SourceRecord, error)
	FindByChecksum(taxpayerID uint, checksum string) (*model.SourceRecord, error)
	FindByTaxpayer(taxpayerID uint) ([]model.SourceRecord, error)
	Deactivate(id uint) error
}

type sourceRecordRepository struct {
	db *gorm.DB
}

func NewSourceRecordRepository(db *gorm.DB) SourceRecordRepository {
	return &sourceRecordRepository{db: db}
}

func (r *sourceRecordRepository) Create(record *model.SourceRecord) error {
	if err := r.db.Create(record).Error; err != nil {
		logger.Error("Failed to create source record", err, map[string]interface{}{
			"taxpayer_id": record.TaxpayerID,
			"source_kind": record.SourceKind,
			"checksum":    record.Checksum,
		})
		return err
	}
	logger.Debug("Source record created", map[string]interface{}{
		"source_record_id": record.ID,
		"taxpayer_id":      record.TaxpayerID,
		"source_kind":      record.SourceKind,
	})
	return nil
}

func (r *sourceRecordRepository) FindByID(id uint) (*model.SourceRecord, error) {
	var record model.SourceRecord
	if err := r.db.First(&record, id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByChecksum — проверка идемпотентности загрузки; (nil, nil)
// если такой загрузки ещё не было.
func (r *sourceRecordRepository) FindByChecksum(taxpayerID uint, checksum string) (*model.SourceRecord, error) {
	var record model.SourceRecord
	err := r.db.Where("taxpayer_id = ? AND checksum = ?", taxpayerID, checksum).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *sourceRecordRepository) FindByTaxpayer(taxpayerID uint) ([]model.SourceRecord, error) {
	var records []model.SourceRecord
	if err := r.db.Where("taxpayer_id = ?", taxpayerID).
		Order("imported_at DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *sourceRecordRepository) Deactivate(id uint) error {
	return r.db.Model(&model.SourceRecord{}).
		Where("id = ?", id).
		Update("active", false).Error
}
