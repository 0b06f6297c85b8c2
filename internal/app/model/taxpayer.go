package model

import (
	"time"

	"gorm.io/gorm"
)

type TaxpayerKind string // вид налогоплательщика

const (
	TaxpayerIndividual TaxpayerKind = "individual" // физическое лицо
	TaxpayerBusiness   TaxpayerKind = "business"   // ИП
)

type Taxpayer struct {
	ID         uint           `gorm:"primarykey" json:"id"`                                    // ID налогоплательщика
	UserID     *uint          `gorm:"index" json:"user_id,omitempty"`                          // владелец учётной записи
	IIN        string         `gorm:"type:varchar(12);uniqueIndex:idx_taxpayers_iin;not null" json:"iin"` // ИИН (12 цифр)
	Kind       TaxpayerKind   `gorm:"type:varchar(20);default:'individual'" json:"kind"`       // вид
	LastName   string         `gorm:"not null" json:"last_name"`                               // фамилия
	FirstName  string         `gorm:"not null" json:"first_name"`                              // имя
	MiddleName string         `json:"middle_name"`                                             // отчество
	Phone      string         `json:"phone"`                                                   // телефон
	Email      string         `json:"email"`                                                   // email
	Resident   bool           `gorm:"default:true" json:"resident"`                            // резидент РК
	SpouseIIN  string         `gorm:"type:varchar(12)" json:"spouse_iin,omitempty"`            // ИИН супруга(и)
	LegalRepIIN string        `gorm:"type:varchar(12)" json:"legal_rep_iin,omitempty"`         // ИИН представителя
	CreatedAt  time.Time      `json:"created_at"`                                              // создано
	UpdatedAt  time.Time      `json:"updated_at"`                                              // изменено
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`                                          // мягкое удаление
}

func (Taxpayer) TableName() string {
	return "taxpayers"
}
