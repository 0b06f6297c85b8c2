package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// TaxEvent — атомарный датированный факт финансовой активности.
// Записи добавляются и деактивируются, но никогда не изменяются.
type TaxEvent struct {
	ID             uint             `gorm:"primarykey" json:"id"`                                            // ID события
	TaxpayerID     uint             `gorm:"not null;index:idx_tax_events_period" json:"taxpayer_id"`         // налогоплательщик
	SourceRecordID *uint            `gorm:"index" json:"source_record_id,omitempty"`                         // источник
	EventType      string           `gorm:"type:varchar(60);not null" json:"event_type"`                     // код события (EV_*)
	EventDate      time.Time        `gorm:"type:date;not null" json:"event_date"`                            // дата события
	Amount         *decimal.Decimal `gorm:"type:decimal(20,2)" json:"amount,omitempty"`                      // сумма
	Currency       string           `gorm:"type:varchar(3);default:'KZT'" json:"currency,omitempty"`         // валюта (ISO)
	Metadata       datatypes.JSON   `json:"metadata,omitempty"`                                              // прочие атрибуты
	TaxYear        int              `gorm:"not null;index:idx_tax_events_period" json:"tax_year"`            // налоговый период
	Active         bool             `gorm:"default:true" json:"active"`                                      // признак активности
	CreatedAt      time.Time        `json:"created_at"`                                                      // создано

	Taxpayer     Taxpayer      `gorm:"foreignKey:TaxpayerID" json:"-"`     // налогоплательщик
	SourceRecord *SourceRecord `gorm:"foreignKey:SourceRecordID" json:"-"` // источник
}

func (TaxEvent) TableName() string {
	return "tax_events"
}

// TaxMapping — след применения mapping-правила к событию.
type TaxMapping struct {
	ID           uint            `gorm:"primarykey" json:"id"`                            // ID записи
	TaxEventID   uint            `gorm:"not null;index" json:"tax_event_id"`              // событие
	TaxYear      int             `gorm:"not null;index" json:"tax_year"`                  // налоговый период
	LogicalField string          `gorm:"type:varchar(60);not null" json:"logical_field"`  // поле (LF_*)
	Amount       decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`       // внесённая сумма
	RuleID       uint            `gorm:"not null" json:"rule_id"`                         // правило
	CreatedAt    time.Time       `json:"created_at"`                                      // создано
}

func (TaxMapping) TableName() string {
	return "tax_mappings"
}
