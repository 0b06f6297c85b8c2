package model

import (
	"regexp"
	"time"

	"gorm.io/datatypes"
)

var (
	logicalFieldCodeRe = regexp.MustCompile(`^LF_[A-Z_]+$`)
	eventTypeCodeRe    = regexp.MustCompile(`^EV_[A-Z_]+$`)
)

// ValidLogicalFieldCode reports whether code matches LF_[A-Z_]+.
func ValidLogicalFieldCode(code string) bool {
	return logicalFieldCodeRe.MatchString(code)
}

// ValidEventTypeCode reports whether code matches EV_[A-Z_]+.
func ValidEventTypeCode(code string) bool {
	return eventTypeCodeRe.MatchString(code)
}

// TaxEventType — справочник кодов налоговых событий.
type TaxEventType struct {
	Code        string    `gorm:"type:varchar(60);primarykey" json:"code"` // код (EV_*)
	Description string    `gorm:"type:text" json:"description"`            // описание
	CreatedAt   time.Time `json:"created_at"`                              // создано
}

func (TaxEventType) TableName() string {
	return "tax_event_types"
}

// LogicalField — справочник логических полей декларации.
type LogicalField struct {
	Code        string    `gorm:"type:varchar(60);primarykey" json:"code"` // код (LF_*)
	Description string    `gorm:"type:text" json:"description"`            // описание
	CreatedAt   time.Time `json:"created_at"`                              // создано
}

func (LogicalField) TableName() string {
	return "logical_fields"
}

type RuleType string // тип правила

const (
	RuleMapping     RuleType = "mapping"     // событие → логическое поле
	RuleExclusion   RuleType = "exclusion"   // исключение события из расчёта
	RuleCalculation RuleType = "calculation" // формула над полями
	RuleFlag        RuleType = "flag"        // установка флагов декларации
)

// TaxRule — запись справочника правил. Условия и действия хранятся
// как JSON и разбираются в типизированное дерево при загрузке каталога.
type TaxRule struct {
	ID         uint           `gorm:"primarykey" json:"id"`                              // ID правила
	RuleCode   string         `gorm:"type:varchar(60);not null" json:"rule_code"`        // человекочитаемый код
	TaxYear    *int           `gorm:"index" json:"tax_year,omitempty"`                   // период (NULL = любой)
	RuleType   RuleType       `gorm:"type:varchar(20);not null;index" json:"rule_type"`  // тип
	Conditions datatypes.JSON `gorm:"not null" json:"conditions"`                        // условия
	Actions    datatypes.JSON `gorm:"not null" json:"actions"`                           // действия
	Priority   int            `gorm:"not null;default:100" json:"priority"`              // порядок (меньше — раньше)
	Active     bool           `gorm:"default:true" json:"active"`                        // признак активности
	CreatedAt  time.Time      `json:"created_at"`                                        // создано
	UpdatedAt  time.Time      `json:"updated_at"`                                        // изменено
}

func (TaxRule) TableName() string {
	return "tax_rules"
}

// XmlFieldMap — соответствие логического поля полю XML-формы.
// NULL в logical_field означает поле заголовка, заполняемое из
// атрибутов декларации, а не из рассчитанных показателей.
type XmlFieldMap struct {
	ID              uint    `gorm:"primarykey" json:"id"`                                                                       // ID записи
	FormCode        string  `gorm:"type:varchar(10);not null;uniqueIndex:idx_xml_field_map" json:"form_code"`                   // код формы (270.00)
	ApplicationCode string  `gorm:"type:varchar(20);not null;uniqueIndex:idx_xml_field_map" json:"application_code"`            // код приложения (270.01 и т.д.)
	LogicalField    *string `gorm:"type:varchar(60)" json:"logical_field,omitempty"`                                            // логическое поле
	XmlFieldName    string  `gorm:"type:varchar(80);not null;uniqueIndex:idx_xml_field_map" json:"xml_field_name"`              // имя поля в XML
	SortOrder       int     `gorm:"not null;default:0" json:"sort_order"`                                                       // порядок вывода
}

func (XmlFieldMap) TableName() string {
	return "xml_field_map"
}
