package repository

import (
	"github.com/salyqtech/salyq-backend/internal/app/model"
	"github.com/salyqtech/salyq-backend/pkg/logger"
	"gorm.io/gorm"
)

type TaxpayerRepository interface {
	Create(taxpayer *model.Taxpayer) error
	FindByID(id uint) (*model.Taxpayer, error)
	FindByIIN(iin string) (*model.Taxpayer, error)
	FindByUserID(userID uint) ([]model.Taxpayer, error)
	Update(taxpayer *model.Taxpayer) error
}

type taxpayerRepository struct {
	db *gorm.DB
}

func NewTaxpayerRepository(db *gorm.DB) TaxpayerRepository {
	return &taxpayerRepository{db: db}
}

func (r *taxpayerRepository) Create(taxpayer *model.Taxpayer) error {
	if err := r.db.Create(taxpayer).Error; err != nil {
		logger.Error("Failed to create taxpayer", err, map[string]interface{}{
			"iin": taxpayer.IIN,
		})
		return err
	}
	logger.Debug("Taxpayer created", map[string]interface{}{
		"taxpayer_id": taxpayer.ID,
		"iin":         taxpayer.IIN,
	})
	return nil
}

func (r *taxpayerRepository) FindByID(id uint) (*model.Taxpayer, error) {
	var taxpayer model.Taxpayer
	if err := r.db.First(&taxpayer, id).Error; err != nil {
		return nil, err
	}
	return &taxpayer, nil
}

func (r *taxpayerRepository) FindByIIN(iin string) (*model.Taxpayer, error) {
	var taxpayer model.Taxpayer
	if err := r.db.Where("iin = ?", iin).First(&taxpayer).Error; err != nil {
		return nil, err
	}
	return &taxpayer, nil
}

func (r *taxpayerRepository) FindByUserID(userID uint) ([]model.Taxpayer, error) {
	var taxpayers []model.Taxpayer
	if err := r.db.Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&taxpayers).Error; err != nil {
		return nil, err
	}
	return taxpayers, nil
}

func (r *taxpayerRepository) Update(taxpayer *model.Taxpayer) error {
	if err := r.db.Save(taxpayer).Error; err != nil {
		logger.Error("Failed to update taxpayer", err, map[string]interface{}{
			"taxpayer_id": taxpayer.ID,
		})
		return err
	}
	return nil
}
