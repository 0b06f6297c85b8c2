package xmlgen

import (
	"strings"
	"testing"
	"time"

	"github.com/salyqtech/salyq-backend/internal/app/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func lf(code string) *string {
	return &code
}

func testDeclaration() *model.Declaration {
	return &model.Declaration{
		ID:        1,
		TaxYear:   2024,
		FormCode:  "270.00",
		Kind:      model.KindMain,
		Status:    model.StatusValidated,
		IIN:       "880101300123",
		LastName:  "Ахметов",
		FirstName: "Данияр",
		Phone:     "+77011234567",
		Email:     "d.akhmetov@example.kz",
		Flags:     datatypes.JSON([]byte(`{"pril_1": true, "pril_2": true}`)),
		CreatedAt: time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC),
	}
}

func testFieldMaps() []model.XmlFieldMap {
	return []model.XmlFieldMap{
		{FormCode: "270.00", ApplicationCode: "270.00", XmlFieldName: "iin", SortOrder: 1},
		{FormCode: "270.00", ApplicationCode: "270.00", XmlFieldName: "period_year", SortOrder: 2},
		{FormCode: "270.00", ApplicationCode: "270.00", XmlFieldName: "date_create", SortOrder: 2},
		{FormCode: "270.00", ApplicationCode: "270.00", XmlFieldName: "fio1", SortOrder: 3},
		{FormCode: "270.00", ApplicationCode: "270.00", XmlFieldName: "dt_main", SortOrder: 4},
		{FormCode: "270.00", ApplicationCode: "270.00", XmlFieldName: "dt_regular", SortOrder: 5},
		{FormCode: "270.00", ApplicationCode: "270.00", XmlFieldName: "pril_1", SortOrder: 6},
		{FormCode: "270.00", ApplicationCode: "270.00", XmlFieldName: "pril_3", SortOrder: 7},
		{FormCode: "270.00", ApplicationCode: "270.01", XmlFieldName: "field_270_01_D", LogicalField: lf(model.LFIncomeTotal), SortOrder: 1},
		{FormCode: "270.00", ApplicationCode: "270.01", XmlFieldName: "field_270_01_G", LogicalField: lf(model.LFTaxableIncome), SortOrder: 2},
		{FormCode: "270.00", ApplicationCode: "270.01", XmlFieldName: "field_270_01_H", LogicalField: lf(model.LFIPNCalculated), SortOrder: 3},
		{FormCode: "270.00", ApplicationCode: "270.01", XmlFieldName: "field_270_01_K", LogicalField: lf(model.LFIPNPayable), SortOrder: 4},
		{FormCode: "270.00", ApplicationCode: "270.04", XmlFieldName: "field_270_04_001", SortOrder: 1},
	}
}

func testItems() []model.DeclarationItem {
	return []model.DeclarationItem{
		{LogicalField: model.LFIncomeTotal, Value: decimal.NewFromInt(500000)},
		{LogicalField: model.LFTaxableIncome, Value: decimal.NewFromInt(500000)},
		{LogicalField: model.LFIPNCalculated, Value: decimal.NewFromInt(50000)},
		{LogicalField: model.LFIPNPayable, Value: decimal.Zero},
	}
}

func TestProject_Structure(t *testing.T) {
	payload, hash, err := Project(testDeclaration(), testItems(), testFieldMaps())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(payload, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, payload, `<fno code="270.00" formatVersion="1" version="2"`)
	assert.Len(t, hash, 64)

	// все восемь форм присутствуют в фиксированном порядке
	last := -1
	for _, form := range []string{
		"form_270_00", "form_270_01", "form_270_02", "form_270_03",
		"form_270_04", "form_270_05", "form_270_06", "form_270_07",
	} {
		pos := strings.Index(payload, `<form name="`+form+`">`)
		require.GreaterOrEqual(t, pos, 0, form)
		assert.Greater(t, pos, last, "form order broken at %s", form)
		last = pos
	}

	assert.Contains(t, payload, `<sheet name="page_270_00_01">`)
}

func TestProject_HeaderFields(t *testing.T) {
	payload, _, err := Project(testDeclaration(), testItems(), testFieldMaps())
	require.NoError(t, err)

	assert.Contains(t, payload, `<field name="iin">880101300123</field>`)
	assert.Contains(t, payload, `<field name="period_year">2024</field>`)
	// дата создания декларации выводится в формате DD.MM.YYYY
	assert.Contains(t, payload, `<field name="date_create">15.03.2025</field>`)
	assert.Contains(t, payload, `<field name="fio1">Ахметов</field>`)
	// ровно один переключатель вида декларации
	assert.Contains(t, payload, `<field name="dt_main">1</field>`)
	assert.Contains(t, payload, `<field name="dt_regular"/>`)
	// флаги приложений
	assert.Contains(t, payload, `<field name="pril_1">1</field>`)
	assert.Contains(t, payload, `<field name="pril_3"/>`)
}

func TestProject_MoneyFields(t *testing.T) {
	payload, _, err := Project(testDeclaration(), testItems(), testFieldMaps())
	require.NoError(t, err)

	assert.Contains(t, payload, `<field name="field_270_01_D">500000</field>`)
	// ноль выводится пустым элементом
	assert.Contains(t, payload, `<field name="field_270_01_K"/>`)
	// незаполненные строки сеток — пустые элементы
	assert.Contains(t, payload, `<field name="field_270_04_001"/>`)
}

func TestProject_Deterministic(t *testing.T) {
	decl := testDeclaration()
	items := testItems()
	maps := testFieldMaps()

	payload1, hash1, err := Project(decl, items, maps)
	require.NoError(t, err)
	payload2, hash2, err := Project(decl, items, maps)
	require.NoError(t, err)

	assert.Equal(t, payload1, payload2)
	assert.Equal(t, hash1, hash2)
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "", FormatMoney(decimal.Zero))
	assert.Equal(t, "500000", FormatMoney(decimal.NewFromInt(500000)))
	// половина округляется вверх
	assert.Equal(t, "3", FormatMoney(decimal.RequireFromString("2.5")))
	assert.Equal(t, "2", FormatMoney(decimal.RequireFromString("2.4")))
	// округление до нуля тоже даёт пустой элемент
	assert.Equal(t, "", FormatMoney(decimal.RequireFromString("0.4")))
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "15.06.2024", FormatDate("2024-06-15"))
}

func TestProject_Escaping(t *testing.T) {
	decl := testDeclaration()
	decl.LastName = `Тоо "Квест" & <Ко>`

	payload, _, err := Project(decl, testItems(), testFieldMaps())
	require.NoError(t, err)
	assert.Contains(t, payload, "Тоо &quot;Квест&quot; &amp; &lt;Ко&gt;")
}

func TestFormName(t *testing.T) {
	assert.Equal(t, "form_270_01", FormName("270.01"))
	assert.Equal(t, "page_270_02_01", SheetName("270.02"))
}
