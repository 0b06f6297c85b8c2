package model

import (
	"time"

	"gorm.io/datatypes"
)

type SourceKind string // тип источника данных

const (
	SourceManual     SourceKind = "manual"     // ручной ввод
	SourceCSV        SourceKind = "csv"        // импорт CSV
	SourceExcel      SourceKind = "excel"      // импорт Excel
	SourceBank       SourceKind = "bank"       // банковская выписка
	SourceAccounting SourceKind = "accounting" // выгрузка из учётной системы
	SourceAPI        SourceKind = "api"        // внешний API
)

// ValidSourceKind reports whether k names a registered source kind.
func ValidSourceKind(k SourceKind) bool {
	switch k {
	case SourceManual, SourceCSV, SourceExcel, SourceBank, SourceAccounting, SourceAPI:
		return true
	}
	return false
}

// SourceRecord — неизменяемая запись о загрузке сырых данных.
// Пара (taxpayer_id, checksum) уникальна: один и тот же файл
// нельзя загрузить дважды.
type SourceRecord struct {
	ID         uint           `gorm:"primarykey" json:"id"`                                                                        // ID записи
	TaxpayerID uint           `gorm:"not null;index;uniqueIndex:idx_source_records_checksum" json:"taxpayer_id"`                   // налогоплательщик
	SourceKind SourceKind     `gorm:"type:varchar(20);not null" json:"source_kind"`                                                // тип источника
	ExternalID string         `gorm:"type:varchar(100)" json:"external_id,omitempty"`                                              // внешний идентификатор
	Checksum   string         `gorm:"type:varchar(64);not null;uniqueIndex:idx_source_records_checksum" json:"checksum"`           // SHA-256 канонического JSON
	RawPayload datatypes.JSON `gorm:"not null" json:"raw_payload"`                                                                 // исходные данные
	ImportedAt time.Time      `gorm:"autoCreateTime" json:"imported_at"`                                                           // время загрузки
	Active     bool           `gorm:"default:true" json:"active"`                                                                  // признак активности

	Taxpayer Taxpayer `gorm:"foreignKey:TaxpayerID" json:"-"` // налогоплательщик
}

func (SourceRecord) TableName() string {
	return "source_records"
}
