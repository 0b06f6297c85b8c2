package db

import (
	"fmt"

	"github.com/salyqtech/salyq-backend/internal/app/model"
	"github.com/salyqtech/salyq-backend/pkg/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SeedCatalog наполняет справочники движка данными по умолчанию:
// коды событий, логические поля, правила и карту XML-полей формы
// 270.00. Посев идемпотентен: непустой справочник пропускается.
func SeedCatalog(db *gorm.DB) error {
	logger.Info("Seeding rule catalog...")

	if err := seedLogicalFields(db); err != nil {
		return err
	}
	if err := seedEventTypes(db); err != nil {
		return err
	}
	if err := seedRules(db); err != nil {
		return err
	}
	if err := seedFieldMap(db); err != nil {
		return err
	}

	logger.Info("Rule catalog seeded successfully")
	return nil
}

var logicalFieldSeed = []model.LogicalField{
	{Code: model.LFIncomePropertyKZ, Description: "Доход от продажи имущества в РК"},
	{Code: model.LFIncomePropertyAbroad, Description: "Доход от продажи имущества за пределами РК"},
	{Code: model.LFIncomePropertyVehicle, Description: "Доход от продажи транспортных средств"},
	{Code: model.LFIncomePropertyTotal, Description: "Итого доход от продажи имущества"},
	{Code: model.LFIncomeRent, Description: "Доход от сдачи в аренду лицам, не являющимся налоговыми агентами"},
	{Code: model.LFIncomeAssignment, Description: "Доход от уступки права требования"},
	{Code: model.LFIncomeIPAssets, Description: "Доход от продажи ИС и прочих активов"},
	{Code: model.LFIncomeDividends, Description: "Дивиденды, полученные в РК"},
	{Code: model.LFIncomeInterest, Description: "Вознаграждение, полученное в РК"},
	{Code: model.LFIncomeWinnings, Description: "Выигрыши"},
	{Code: model.LFIncomeRoyalty, Description: "Роялти"},
	{Code: model.LFIncomePrizes, Description: "Призы и подарки"},
	{Code: model.LFIncomeOther, Description: "Прочие доходы не от налогового агента"},
	{Code: model.LFIncomeForeignDividends, Description: "Дивиденды из источников за пределами РК"},
	{Code: model.LFIncomeForeignInterest, Description: "Вознаграждение из источников за пределами РК"},
	{Code: model.LFIncomeForeignRoyalty, Description: "Роялти из источников за пределами РК"},
	{Code: model.LFIncomeForeignEmployment, Description: "Доход от работы за пределами РК"},
	{Code: model.LFIncomeForeignBusiness, Description: "Доход от предпринимательства за пределами РК"},
	{Code: model.LFIncomeForeignCapitalGains, Description: "Прирост стоимости за пределами РК"},
	{Code: model.LFIncomeForeignPension, Description: "Пенсионные выплаты за пределами РК"},
	{Code: model.LFIncomeForeignInsurance, Description: "Страховые выплаты за пределами РК"},
	{Code: model.LFIncomeForeignOther, Description: "Прочие доходы за пределами РК"},
	{Code: model.LFIncomeForeignTotal, Description: "Итого доходы из источников за пределами РК"},
	{Code: model.LFIncomeCFCProfit, Description: "Суммарная прибыль КИК"},
	{Code: model.LFDeductionStandard, Description: "Стандартные налоговые вычеты"},
	{Code: model.LFDeductionOther, Description: "Прочие налоговые вычеты"},
	{Code: model.LFDeductionTotal, Description: "Итого налоговые вычеты"},
	{Code: model.LFAdjustmentExempt, Description: "Корректировка: освобождаемые доходы"},
	{Code: model.LFAdjustmentDoubleTax, Description: "Корректировка по международным договорам"},
	{Code: model.LFAdjustmentCorrection, Description: "Корректировка дохода"},
	{Code: model.LFAdjustmentOther, Description: "Прочие корректировки"},
	{Code: model.LFAdjustmentTotal, Description: "Итого корректировки"},
	{Code: model.LFForeignTaxCreditGeneral, Description: "Зачёт иностранного налога"},
	{Code: model.LFForeignTaxCreditCFC, Description: "Зачёт иностранного налога по КИК"},
	{Code: model.LFIncomeTotal, Description: "Совокупный годовой доход"},
	{Code: model.LFTaxableIncome, Description: "Облагаемый доход"},
	{Code: model.LFIPNCalculated, Description: "Исчисленный ИПН"},
	{Code: model.LFIPNPayable, Description: "ИПН к уплате"},
}

func seedLogicalFields(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.LogicalField{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return db.Create(&logicalFieldSeed).Error
}

var eventTypeSeed = []model.TaxEventType{
	{Code: model.EVPropertySaleKZ, Description: "Продажа имущества в РК"},
	{Code: model.EVPropertySaleAbroad, Description: "Продажа имущества за пределами РК"},
	{Code: model.EVPropertySaleVehicle, Description: "Продажа транспортного средства"},
	{Code: model.EVRentIncome, Description: "Доход от аренды"},
	{Code: model.EVAssignmentIncome, Description: "Уступка права требования"},
	{Code: model.EVIPAssetsIncome, Description: "Продажа ИС и прочих активов"},
	{Code: model.EVDividends, Description: "Дивиденды в РК"},
	{Code: model.EVInterest, Description: "Вознаграждение в РК"},
	{Code: model.EVWinnings, Description: "Выигрыш"},
	{Code: model.EVRoyalty, Description: "Роялти"},
	{Code: model.EVPrizes, Description: "Приз или подарок"},
	{Code: model.EVOtherIncome, Description: "Прочий доход не от налогового агента"},
	{Code: model.EVForeignDividends, Description: "Зарубежные дивиденды"},
	{Code: model.EVForeignInterest, Description: "Зарубежное вознаграждение"},
	{Code: model.EVForeignRoyalty, Description: "Зарубежные роялти"},
	{Code: model.EVForeignEmployment, Description: "Доход от работы за рубежом"},
	{Code: model.EVForeignBusiness, Description: "Доход от бизнеса за рубежом"},
	{Code: model.EVForeignCapitalGains, Description: "Прирост стоимости за рубежом"},
	{Code: model.EVForeignPension, Description: "Зарубежная пенсия"},
	{Code: model.EVForeignInsurance, Description: "Зарубежная страховая выплата"},
	{Code: model.EVForeignOther, Description: "Прочий зарубежный доход"},
	{Code: model.EVCFCProfit, Description: "Прибыль КИК"},
	{Code: model.EVDeductionStandard, Description: "Стандартный вычет"},
	{Code: model.EVDeductionOther, Description: "Прочий вычет"},
	{Code: model.EVAdjustmentExempt, Description: "Корректировка: освобождение"},
	{Code: model.EVAdjustmentDoubleTax, Description: "Корректировка по международным договорам"},
	{Code: model.EVAdjustmentCorrection, Description: "Корректировка дохода"},
	{Code: model.EVAdjustmentOther, Description: "Прочая корректировка"},
	{Code: model.EVForeignTaxPaidGeneral, Description: "Налог, уплаченный за рубежом"},
	{Code: model.EVForeignTaxPaidCFC, Description: "Налог, уплаченный за рубежом по КИК"},
	{Code: model.EVAssetDeclared, Description: "Заявленный актив (приложения)"},
	{Code: model.EVDebtDeclared, Description: "Заявленное обязательство (приложения)"},
}

func seedEventTypes(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.TaxEventType{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return db.Create(&eventTypeSeed).Error
}

func seedRules(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.TaxRule{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	var rules []model.TaxRule

	// mapping-правила: одно на каждую пару событие → поле
	priority := 100
	for _, eventType := range orderedEventTypes() {
		target, ok := model.EventFieldTargets[eventType]
		if !ok {
			continue
		}
		rules = append(rules, model.TaxRule{
			RuleCode:   "MAP_" + eventType,
			RuleType:   model.RuleMapping,
			Conditions: jsonValue(fmt.Sprintf(`{"event.event_type": {"eq": %q}}`, eventType)),
			Actions:    jsonValue(fmt.Sprintf(`{"type": "map", "target": %q}`, target)),
			Priority:   priority,
			Active:     true,
		})
		priority++
	}

	// calculation-правила итогов: legacy-форма записи намеренно
	// сохранена — так их вводил методолог
	calcRules := []struct {
		code    string
		formula string
		target  string
	}{
		{"CALC_PROPERTY_TOTAL", "SUM(LF_INCOME_PROPERTY_KZ, LF_INCOME_PROPERTY_ABROAD, LF_INCOME_PROPERTY_VEHICLE)", model.LFIncomePropertyTotal},
		{"CALC_FOREIGN_TOTAL", "SUM(LF_INCOME_FOREIGN_DIVIDENDS, LF_INCOME_FOREIGN_INTEREST, LF_INCOME_FOREIGN_ROYALTY, LF_INCOME_FOREIGN_EMPLOYMENT, LF_INCOME_FOREIGN_BUSINESS, LF_INCOME_FOREIGN_CAPITAL_GAINS, LF_INCOME_FOREIGN_PENSION, LF_INCOME_FOREIGN_INSURANCE, LF_INCOME_FOREIGN_OTHER)", model.LFIncomeForeignTotal},
		{"CALC_DEDUCTION_TOTAL", "SUM(LF_DEDUCTION_STANDARD, LF_DEDUCTION_OTHER)", model.LFDeductionTotal},
		{"CALC_ADJUSTMENT_TOTAL", "SUM(LF_ADJUSTMENT_EXEMPT, LF_ADJUSTMENT_DOUBLE_TAX, LF_ADJUSTMENT_CORRECTION, LF_ADJUSTMENT_OTHER)", model.LFAdjustmentTotal},
		{"CALC_INCOME_TOTAL", "SUM(LF_INCOME_PROPERTY_TOTAL, LF_INCOME_RENT, LF_INCOME_ASSIGNMENT, LF_INCOME_IP_ASSETS, LF_INCOME_FOREIGN_TOTAL, LF_INCOME_DIVIDENDS, LF_INCOME_INTEREST, LF_INCOME_WINNINGS, LF_INCOME_ROYALTY, LF_INCOME_PRIZES, LF_INCOME_OTHER, LF_INCOME_CFC_PROFIT)", model.LFIncomeTotal},
	}
	calcPriority := 200
	for _, cr := range calcRules {
		rules = append(rules, model.TaxRule{
			RuleCode:   cr.code,
			RuleType:   model.RuleCalculation,
			Conditions: jsonValue(`{"always": true}`),
			Actions:    jsonValue(fmt.Sprintf(`{"type": "calc", "target": %q, "formula": %q}`, cr.target, cr.formula)),
			Priority:   calcPriority,
			Active:     true,
		})
		calcPriority++
	}

	// итоговый налоговый блок в структурной форме
	rules = append(rules,
		model.TaxRule{
			RuleCode:   "CALC_TAXABLE_INCOME",
			RuleType:   model.RuleCalculation,
			Conditions: jsonValue(`{"always": true}`),
			Actions: jsonValue(`{"type": "calc", "target": "LF_TAXABLE_INCOME",
				"formula": {"op": "max", "args": [{"op": "sub", "a": {"op": "sub", "a": {"ref": "LF_INCOME_TOTAL"}, "b": {"ref": "LF_ADJUSTMENT_TOTAL"}}, "b": {"ref": "LF_DEDUCTION_TOTAL"}}]}}`),
			Priority: 300,
			Active:   true,
		},
		model.TaxRule{
			RuleCode:   "CALC_IPN",
			RuleType:   model.RuleCalculation,
			Conditions: jsonValue(`{"always": true}`),
			Actions: jsonValue(`{"type": "calc", "target": "LF_IPN_CALCULATED",
				"formula": {"op": "round", "args": [{"op": "percent", "a": {"ref": "LF_TAXABLE_INCOME"}, "b": 10}]}}`),
			Priority: 301,
			Active:   true,
		},
		model.TaxRule{
			RuleCode:   "CALC_IPN_PAYABLE",
			RuleType:   model.RuleCalculation,
			Conditions: jsonValue(`{"always": true}`),
			Actions: jsonValue(`{"type": "calc", "target": "LF_IPN_PAYABLE",
				"formula": {"op": "max", "args": [{"op": "sub", "a": {"op": "sub", "a": {"ref": "LF_IPN_CALCULATED"}, "b": {"ref": "LF_FOREIGN_TAX_CREDIT_GENERAL"}}, "b": {"ref": "LF_FOREIGN_TAX_CREDIT_CFC"}}]}}`),
			Priority: 302,
			Active:   true,
		},
		model.TaxRule{
			RuleCode:   "FLAG_TAX_DUE",
			RuleType:   model.RuleFlag,
			Conditions: jsonValue(`{"LF_IPN_PAYABLE": {"gt": 0}}`),
			Actions:    jsonValue(`{"type": "flag", "set": {"has_tax_due": true}}`),
			Priority:   400,
			Active:     true,
		},
	)

	return db.Create(&rules).Error
}

// orderedEventTypes — детерминированный порядок посева mapping-правил.
func orderedEventTypes() []string {
	codes := make([]string, 0, len(eventTypeSeed))
	for _, et := range eventTypeSeed {
		codes = append(codes, et.Code)
	}
	return codes
}

func seedFieldMap(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.XmlFieldMap{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	var maps []model.XmlFieldMap
	order := 0
	add := func(appCode, xmlField string, logicalField string) {
		order++
		fm := model.XmlFieldMap{
			FormCode:        "270.00",
			ApplicationCode: appCode,
			XmlFieldName:    xmlField,
			SortOrder:       order,
		}
		if logicalField != "" {
			lf := logicalField
			fm.LogicalField = &lf
		}
		maps = append(maps, fm)
	}

	// заголовок формы 270.00
	for _, name := range []string{
		"iin", "period_year", "date_create", "fio1", "fio2", "fio3",
		"email", "payer_phone_number", "spouse_iin", "legal_rep_iin",
		"dt_main", "dt_regular", "dt_additional", "dt_notice",
		"pril_1", "pril_2", "pril_3", "pril_4", "pril_5", "pril_6", "pril_7",
	} {
		add("270.00", name, "")
	}

	// приложение 270.01 — расчёт налога
	add("270.01", "field_270_01_A", model.LFIncomePropertyTotal)
	add("270.01", "field_270_01_A1", model.LFIncomePropertyKZ)
	add("270.01", "field_270_01_A2", model.LFIncomePropertyAbroad)
	add("270.01", "field_270_01_A3", model.LFIncomePropertyVehicle)
	add("270.01", "field_270_01_B", model.LFIncomeRent)
	add("270.01", "field_270_01_B1", model.LFIncomeAssignment)
	add("270.01", "field_270_01_B2", model.LFIncomeIPAssets)
	add("270.01", "field_270_01_C", model.LFIncomeForeignTotal)
	add("270.01", "field_270_01_C1", model.LFIncomeCFCProfit)
	add("270.01", "field_270_01_D", model.LFIncomeTotal)
	add("270.01", "field_270_01_E", model.LFAdjustmentTotal)
	add("270.01", "field_270_01_F", model.LFDeductionTotal)
	add("270.01", "field_270_01_F1", model.LFDeductionStandard)
	add("270.01", "field_270_01_F2", model.LFDeductionOther)
	add("270.01", "field_270_01_G", model.LFTaxableIncome)
	add("270.01", "field_270_01_H", model.LFIPNCalculated)
	add("270.01", "field_270_01_I", model.LFForeignTaxCreditGeneral)
	add("270.01", "field_270_01_J", model.LFForeignTaxCreditCFC)
	add("270.01", "field_270_01_K", model.LFIPNPayable)

	// приложение 270.02 — доходы за пределами РК
	foreign := []string{
		model.LFIncomeForeignDividends,
		model.LFIncomeForeignInterest,
		model.LFIncomeForeignRoyalty,
		model.LFIncomeForeignEmployment,
		model.LFIncomeForeignBusiness,
		model.LFIncomeForeignCapitalGains,
		model.LFIncomeForeignPension,
		model.LFIncomeForeignInsurance,
		model.LFIncomeForeignOther,
	}
	for i, lf := range foreign {
		add("270.02", fmt.Sprintf("field_270_02_%03d", i+1), lf)
	}
	add("270.02", "field_270_02_010", model.LFIncomeForeignTotal)
	add("270.02", "field_270_02_011", model.LFForeignTaxCreditGeneral)

	// приложение 270.03 — КИК
	add("270.03", "field_270_03_001", model.LFIncomeCFCProfit)
	add("270.03", "field_270_03_002", model.LFForeignTaxCreditCFC)

	// приложения 270.04–270.07 — сетки сведений; незаполненные строки
	// выводятся пустыми элементами в объявленном порядке
	for _, appCode := range []string{"270.04", "270.05", "270.06", "270.07"} {
		prefix := "field_" + appCode[0:3] + "_" + appCode[4:]
		for row := 1; row <= 5; row++ {
			add(appCode, fmt.Sprintf("%s_%03d", prefix, row), "")
		}
	}

	return db.Create(&maps).Error
}

func jsonValue(s string) datatypes.JSON {
	return datatypes.JSON([]byte(s))
}
