package repository

import (
	"errors"
	"time"

	"github.com/salyqtech/salyq-backend/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CurrencyRateRepository interface {
	Upsert(rates []model.CurrencyRate) error
	// FindRate возвращает курс валюты на дату или ближайший
	// предшествующий.
	FindRate(currency string, date time.Time) (*model.CurrencyRate, error)
}

type currencyRateRepository struct {
	db *gorm.DB
}

func NewCurrencyRateRepository(db *gorm.DB) CurrencyRateRepository {
	return &currencyRateRepository{db: db}
}

func (r *currencyRateRepository) Upsert(rates []model.CurrencyRate) error {
	if len(rates) == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "currency"}, {Name: "rate_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"rate", "source"}),
	}).Create(&rates).Error
}

func (r *currencyRateRepository) FindRate(currency string, date time.Time) (*model.CurrencyRate, error) {
	var rate model.CurrencyRate
	err := r.db.
		Where("currency = ? AND rate_date <= ?", currency, date).
		Order("rate_date DESC").
		First(&rate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rate, nil
}
