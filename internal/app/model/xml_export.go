package model

import (
	"time"
)

// XmlExport — версия XML-выгрузки декларации. Записи только добавляются;
// повторная генерация создаёт новую версию с монотонным schema_version.
type XmlExport struct {
	ID            uint      `gorm:"primarykey" json:"id"`                                   // ID выгрузки
	DeclarationID uint      `gorm:"not null;index" json:"declaration_id"`                   // декларация
	Payload       string    `gorm:"type:text;not null" json:"payload"`                      // XML-документ
	SchemaVersion int       `gorm:"not null" json:"schema_version"`                         // номер версии (с 1)
	ContentHash   string    `gorm:"type:varchar(64);not null" json:"content_hash"`          // SHA-256 содержимого
	Signed        bool      `gorm:"default:false" json:"signed"`                            // подписана
	ArchiveKey    string    `gorm:"type:varchar(255)" json:"archive_key,omitempty"`         // ключ в S3-архиве
	CreatedAt     time.Time `json:"created_at"`                                             // создано

	Declaration Declaration `gorm:"foreignKey:DeclarationID" json:"-"` // декларация
}

func (XmlExport) TableName() string {
	return "xml_exports"
}
