package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type DeclarationStatus string // статус декларации
type DeclarationKind string   // вид декларации

const (
	StatusDraft           DeclarationStatus = "draft"            // черновик
	StatusValidated       DeclarationStatus = "validated"        // проверена
	StatusAwaitingConsent DeclarationStatus = "awaiting_consent" // ожидает подтверждения
	StatusSigned          DeclarationStatus = "signed"           // подписана
	StatusSubmitted       DeclarationStatus = "submitted"        // отправлена
	StatusAccepted        DeclarationStatus = "accepted"         // принята органом
	StatusRejected        DeclarationStatus = "rejected"         // отклонена органом

	KindMain       DeclarationKind = "main"       // первоначальная
	KindRegular    DeclarationKind = "regular"    // очередная
	KindAdditional DeclarationKind = "additional" // дополнительная
	KindNotice     DeclarationKind = "notice"     // по уведомлению
)

// allowedTransitions — граф переходов статусов.
var allowedTransitions = map[DeclarationStatus][]DeclarationStatus{
	StatusDraft:           {StatusValidated},
	StatusValidated:       {StatusDraft, StatusAwaitingConsent},
	StatusAwaitingConsent: {StatusValidated, StatusSigned},
	StatusSigned:          {StatusSubmitted},
	StatusSubmitted:       {StatusAccepted, StatusRejected},
	StatusRejected:        {StatusDraft},
	StatusAccepted:        {}, // терминальный
}

// CanTransition reports whether the status graph permits from → to.
func CanTransition(from, to DeclarationStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Immutable reports whether the declaration may no longer be mutated.
func (s DeclarationStatus) Immutable() bool {
	return s == StatusSubmitted || s == StatusAccepted
}

// Declaration — заголовок декларации 270.00 за налоговый период.
// Поля snapshot-заголовка копируются из карточки налогоплательщика
// при первой генерации и обновляются при перегенерации.
type Declaration struct {
	ID         uint              `gorm:"primarykey" json:"id"`                                                              // ID декларации
	TaxpayerID uint              `gorm:"not null;uniqueIndex:idx_declarations_period" json:"taxpayer_id"`                   // налогоплательщик
	TaxYear    int               `gorm:"not null;uniqueIndex:idx_declarations_period" json:"tax_year"`                      // период
	FormCode   string            `gorm:"type:varchar(10);not null;default:'270.00';uniqueIndex:idx_declarations_period" json:"form_code"` // код формы
	Kind       DeclarationKind   `gorm:"type:varchar(20);not null;default:'main'" json:"kind"`                              // вид
	Status     DeclarationStatus `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`                     // статус

	// Snapshot-заголовок
	IIN         string `gorm:"type:varchar(12)" json:"iin"`            // ИИН
	LastName    string `json:"last_name"`                              // фамилия
	FirstName   string `json:"first_name"`                             // имя
	MiddleName  string `json:"middle_name"`                            // отчество
	Phone       string `json:"phone"`                                  // телефон
	Email       string `json:"email"`                                  // email
	SpouseIIN   string `gorm:"type:varchar(12)" json:"spouse_iin"`     // ИИН супруга(и)
	LegalRepIIN string `gorm:"type:varchar(12)" json:"legal_rep_iin"`  // ИИН представителя

	Flags       datatypes.JSON `json:"flags"`                  // флаги представления (pril_1..7 и др.)
	ValidatedAt *time.Time     `json:"validated_at,omitempty"` // время успешной проверки
	ExportedAt  *time.Time     `json:"exported_at,omitempty"`  // время последней выгрузки
	CreatedAt   time.Time      `json:"created_at"`             // создано
	UpdatedAt   time.Time      `json:"updated_at"`             // изменено

	Taxpayer Taxpayer          `gorm:"foreignKey:TaxpayerID" json:"-"`                                  // налогоплательщик
	Items    []DeclarationItem `gorm:"foreignKey:DeclarationID;constraint:OnDelete:CASCADE" json:"items,omitempty"` // показатели
}

func (Declaration) TableName() string {
	return "declarations"
}

type ItemSource string // происхождение показателя

const (
	ItemFromRuleEngine ItemSource = "rule_engine" // рассчитан движком
	ItemManual         ItemSource = "manual"      // введён вручную
)

// DeclarationItem — значение логического поля в декларации.
type DeclarationItem struct {
	ID            uint            `gorm:"primarykey" json:"id"`                                                        // ID показателя
	DeclarationID uint            `gorm:"not null;uniqueIndex:idx_declaration_items_field" json:"declaration_id"`      // декларация
	LogicalField  string          `gorm:"type:varchar(60);not null;uniqueIndex:idx_declaration_items_field" json:"logical_field"` // поле (LF_*)
	Value         decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"value"`                                    // значение
	Source        ItemSource      `gorm:"type:varchar(20);not null;default:'rule_engine'" json:"source"`               // происхождение
	CreatedAt     time.Time       `json:"created_at"`                                                                  // создано
	UpdatedAt     time.Time       `json:"updated_at"`                                                                  // изменено
}

func (DeclarationItem) TableName() string {
	return "declaration_items"
}

type ReportKind string // вид отчёта о проверке

const (
	ReportSchema   ReportKind = "schema"   // структурная проверка
	ReportBusiness ReportKind = "business" // бизнес-проверка
)

// ValidationReport — результат проверки декларации.
type ValidationReport struct {
	ID            uint           `gorm:"primarykey" json:"id"`                          // ID отчёта
	DeclarationID uint           `gorm:"not null;index" json:"declaration_id"`          // декларация
	Kind          ReportKind     `gorm:"type:varchar(20);not null" json:"kind"`         // вид проверки
	IsValid       bool           `gorm:"not null" json:"is_valid"`                      // результат
	Report        datatypes.JSON `json:"report"`                                        // детали
	CreatedAt     time.Time      `json:"created_at"`                                    // создано
}

func (ValidationReport) TableName() string {
	return "validation_reports"
}
