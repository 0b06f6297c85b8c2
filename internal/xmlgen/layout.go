package xmlgen

import (
	"fmt"
	"strings"

	"github.com/salyqtech/salyq-backend/internal/app/model"
)

// Фиксированный порядок приложений формы 270.00. Порядок вывода
// не зависит от содержимого БД — только состав полей берётся из
// справочника xml_field_map.
var applicationOrder = []string{
	"270.00",
	"270.01",
	"270.02",
	"270.03",
	"270.04",
	"270.05",
	"270.06",
	"270.07",
}

// FormName converts an application code to its XML form name
// (270.01 → form_270_01).
func FormName(applicationCode string) string {
	return "form_" + strings.ReplaceAll(applicationCode, ".", "_")
}

// SheetName returns the single sheet name of a form
// (270.00 → page_270_00_01).
func SheetName(applicationCode string) string {
	return "page_" + strings.ReplaceAll(applicationCode, ".", "_") + "_01"
}

// headerValue заполняет поле заголовка (logical_field = NULL) из
// атрибутов декларации. Неизвестное имя — пустой элемент.
func headerValue(decl *model.Declaration, flags map[string]bool, xmlFieldName string) string {
	switch xmlFieldName {
	case "iin":
		return decl.IIN
	case "period_year":
		return fmt.Sprintf("%d", decl.TaxYear)
	case "fio1":
		return decl.LastName
	case "fio2":
		return decl.FirstName
	case "fio3":
		return decl.MiddleName
	case "email":
		return decl.Email
	case "payer_phone_number":
		return decl.Phone
	case "date_create":
		return FormatDate(decl.CreatedAt.UTC().Format("2006-01-02"))
	case "spouse_iin":
		return decl.SpouseIIN
	case "legal_rep_iin":
		return decl.LegalRepIIN
	case "dt_main":
		return kindFlag(decl.Kind, model.KindMain)
	case "dt_regular":
		return kindFlag(decl.Kind, model.KindRegular)
	case "dt_additional":
		return kindFlag(decl.Kind, model.KindAdditional)
	case "dt_notice":
		return kindFlag(decl.Kind, model.KindNotice)
	}

	// pril_1..pril_7 и прочие булевы флаги представления
	if flags[xmlFieldName] {
		return "1"
	}
	return ""
}

// kindFlag: ровно один из четырёх переключателей вида истинен.
func kindFlag(actual, expected model.DeclarationKind) string {
	if actual == expected {
		return "1"
	}
	return ""
}
