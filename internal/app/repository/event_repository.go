package repository

import (
	"github.com/salyqtech/salyq-backend/internal/app/model"
	"github.com/salyqtech/salyq-backend/pkg/logger"
	"gorm.io/gorm"
)

// EventRepository — журнал налоговых событий. Записи добавляются и
// деактивируются, но не изменяются.
type EventRepository interface {
	Create(event *model.TaxEvent) error
	CreateBatch(events []model.TaxEvent) error
	FindByPeriod(taxpayerID uint, taxYear int) ([]model.TaxEvent, error)
	FindBySourceRecord(sourceRecordID uint) ([]model.TaxEvent, error)
	DeleteBySourceRecord(sourceRecordID uint) error
	DeactivateBySourceRecord(sourceRecordID uint) error
}

type eventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(event *model.TaxEvent) error {
	if err := r.db.Create(event).Error; err != nil {
		logger.Error("Failed to create tax event", err, map[string]interface{}{
			"taxpayer_id": event.TaxpayerID,
			"event_type":  event.EventType,
		})
		return err
	}
	return nil
}

// CreateBatch вставляет события атомарно: либо все, либо ни одного.
func (r *eventRepository) CreateBatch(events []model.TaxEvent) error {
	if len(events) == 0 {
		return nil
	}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&events).Error
	})
	if err != nil {
		logger.Error("Failed to create tax events batch", err, map[string]interface{}{
			"count": len(events),
		})
		return err
	}
	logger.Debug("Tax events batch created", map[string]interface{}{
		"count": len(events),
	})
	return nil
}

// FindByPeriod возвращает активные события периода в порядке
// (event_date, id) — этот порядок определяет детерминизм расчёта.
func (r *eventRepository) FindByPeriod(taxpayerID uint, taxYear int) ([]model.TaxEvent, error) {
	var events []model.TaxEvent
	if err := r.db.
		Where("taxpayer_id = ? AND tax_year = ? AND active = ?", taxpayerID, taxYear, true).
		Order("event_date ASC, id ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *eventRepository) FindBySourceRecord(sourceRecordID uint) ([]model.TaxEvent, error) {
	var events []model.TaxEvent
	if err := r.db.
		Where("source_record_id = ?", sourceRecordID).
		Order("event_date ASC, id ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// DeleteBySourceRecord — используется только при повторном разборе
// источника, перед повторной вставкой.
func (r *eventRepository) DeleteBySourceRecord(sourceRecordID uint) error {
	return r.db.Unscoped().
		Where("source_record_id = ?", sourceRecordID).
		Delete(&model.TaxEvent{}).Error
}

func (r *eventRepository) DeactivateBySourceRecord(sourceRecordID uint) error {
	return r.db.Model(&model.TaxEvent{}).
		Where("source_record_id = ?", sourceRecordID).
		Update("active", false).Error
}
