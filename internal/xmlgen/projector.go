package xmlgen

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/salyqtech/salyq-backend/internal/app/model"
	"github.com/shopspring/decimal"
)

// Детерминированная сериализация декларации в дерево <fno> регулятора.
// Одинаковые входные данные дают побайтно одинаковый документ.

const (
	xmlHeader  = `<?xml version="1.0" encoding="UTF-8"?>`
	fnoOpening = `<fno code="270.00" formatVersion="1" version="2" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">`
)

// ErrStructureCheck — структурная самопроверка сгенерированного
// документа не прошла.
var ErrStructureCheck = fmt.Errorf("generated XML failed the structural self-check")

// Project строит XML-документ и возвращает его вместе с SHA-256 хешем
// содержимого.
func Project(decl *model.Declaration, items []model.DeclarationItem, fieldMaps []model.XmlFieldMap) (string, string, error) {
	values := make(map[string]decimal.Decimal, len(items))
	for _, item := range items {
		values[item.LogicalField] = item.Value
	}

	flags := decodeFlags(decl.Flags)

	// поля справочника группируются по приложению; порядок внутри
	// приложения фиксирован (sort_order, затем имя поля)
	byApplication := make(map[string][]model.XmlFieldMap)
	for _, fm := range fieldMaps {
		byApplication[fm.ApplicationCode] = append(byApplication[fm.ApplicationCode], fm)
	}
	for _, group := range byApplication {
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].SortOrder != group[j].SortOrder {
				return group[i].SortOrder < group[j].SortOrder
			}
			return group[i].XmlFieldName < group[j].XmlFieldName
		})
	}

	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString("\n")
	b.WriteString(fnoOpening)
	b.WriteString("\n")

	for _, appCode := range applicationOrder {
		fields := byApplication[appCode]
		fmt.Fprintf(&b, `  <form name="%s">`+"\n", FormName(appCode))
		fmt.Fprintf(&b, `    <sheet name="%s">`+"\n", SheetName(appCode))
		for _, fm := range fields {
			writeField(&b, decl, flags, values, fm)
		}
		b.WriteString("    </sheet>\n")
		b.WriteString("  </form>\n")
	}

	b.WriteString("</fno>\n")

	payload := b.String()
	if err := selfCheck(payload); err != nil {
		return "", "", err
	}

	sum := sha256.Sum256([]byte(payload))
	return payload, hex.EncodeToString(sum[:]), nil
}

func writeField(b *strings.Builder, decl *model.Declaration, flags map[string]bool, values map[string]decimal.Decimal, fm model.XmlFieldMap) {
	var content string
	if fm.LogicalField == nil {
		content = escape(headerValue(decl, flags, fm.XmlFieldName))
	} else {
		content = FormatMoney(values[*fm.LogicalField])
	}

	if content == "" {
		fmt.Fprintf(b, `      <field name="%s"/>`+"\n", fm.XmlFieldName)
		return
	}
	fmt.Fprintf(b, `      <field name="%s">%s</field>`+"\n", fm.XmlFieldName, content)
}

// FormatMoney — денежное значение в целых тенге ASCII-цифрами;
// ноль и отсутствующее значение дают пустой элемент. Округление —
// половина вверх.
func FormatMoney(value decimal.Decimal) string {
	if value.IsZero() {
		return ""
	}
	rounded := value.Round(0)
	if rounded.IsZero() {
		return ""
	}
	return rounded.String()
}

// FormatDate renders a date as DD.MM.YYYY.
func FormatDate(isoDate string) string {
	parts := strings.Split(isoDate, "-")
	if len(parts) != 3 {
		return isoDate
	}
	return parts[2] + "." + parts[1] + "." + parts[0]
}

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escape(s string) string {
	return escaper.Replace(s)
}

func decodeFlags(raw []byte) map[string]bool {
	flags := map[string]bool{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &flags)
	}
	return flags
}

// selfCheck — дешёвая структурная проверка результата.
func selfCheck(payload string) error {
	if !strings.HasPrefix(payload, "<?xml") {
		return ErrStructureCheck
	}
	for _, marker := range []string{"<fno", "form_270_00", "form_270_01"} {
		if !strings.Contains(payload, marker) {
			return ErrStructureCheck
		}
	}
	return nil
}
