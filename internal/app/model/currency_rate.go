package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CurrencyRate — официальный курс валюты к тенге на дату.
// Обновляется планировщиком из ленты Нацбанка.
type CurrencyRate struct {
	ID        uint            `gorm:"primarykey" json:"id"`                                                   // ID записи
	Currency  string          `gorm:"type:varchar(3);not null;uniqueIndex:idx_currency_rates_day" json:"currency"` // валюта (ISO)
	RateDate  time.Time       `gorm:"type:date;not null;uniqueIndex:idx_currency_rates_day" json:"rate_date"`      // дата курса
	Rate      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"rate"`                                // курс за единицу
	Source    string          `gorm:"type:varchar(20);default:'NBK'" json:"source"`                           // источник
	CreatedAt time.Time       `json:"created_at"`                                                             // создано
}

func (CurrencyRate) TableName() string {
	return "currency_rates"
}
