package model

// Логические поля формы 270.00.

const (
	// Доходы от продажи имущества
	LFIncomePropertyKZ      = "LF_INCOME_PROPERTY_KZ"      // имущество в РК
	LFIncomePropertyAbroad  = "LF_INCOME_PROPERTY_ABROAD"  // имущество за пределами РК
	LFIncomePropertyVehicle = "LF_INCOME_PROPERTY_VEHICLE" // транспортные средства
	LFIncomePropertyTotal   = "LF_INCOME_PROPERTY_TOTAL"   // итого по имуществу

	// Прочие доходы не от налогового агента
	LFIncomeRent       = "LF_INCOME_RENT"       // аренда
	LFIncomeAssignment = "LF_INCOME_ASSIGNMENT" // уступка права требования
	LFIncomeIPAssets   = "LF_INCOME_IP_ASSETS"  // ИС и прочие активы
	LFIncomeDividends  = "LF_INCOME_DIVIDENDS"  // дивиденды в РК
	LFIncomeInterest   = "LF_INCOME_INTEREST"   // вознаграждение в РК
	LFIncomeWinnings   = "LF_INCOME_WINNINGS"   // выигрыши
	LFIncomeRoyalty    = "LF_INCOME_ROYALTY"    // роялти
	LFIncomePrizes     = "LF_INCOME_PRIZES"     // призы и подарки
	LFIncomeOther      = "LF_INCOME_OTHER"      // прочие доходы

	// Доходы из источников за пределами РК
	LFIncomeForeignDividends    = "LF_INCOME_FOREIGN_DIVIDENDS"     // дивиденды
	LFIncomeForeignInterest     = "LF_INCOME_FOREIGN_INTEREST"      // вознаграждение
	LFIncomeForeignRoyalty      = "LF_INCOME_FOREIGN_ROYALTY"       // роялти
	LFIncomeForeignEmployment   = "LF_INCOME_FOREIGN_EMPLOYMENT"    // трудовая деятельность
	LFIncomeForeignBusiness     = "LF_INCOME_FOREIGN_BUSINESS"      // предпринимательство
	LFIncomeForeignCapitalGains = "LF_INCOME_FOREIGN_CAPITAL_GAINS" // прирост стоимости
	LFIncomeForeignPension      = "LF_INCOME_FOREIGN_PENSION"       // пенсионные выплаты
	LFIncomeForeignInsurance    = "LF_INCOME_FOREIGN_INSURANCE"     // страховые выплаты
	LFIncomeForeignOther        = "LF_INCOME_FOREIGN_OTHER"         // прочие
	LFIncomeForeignTotal        = "LF_INCOME_FOREIGN_TOTAL"         // итого зарубежных

	// КИК
	LFIncomeCFCProfit = "LF_INCOME_CFC_PROFIT" // прибыль КИК

	// Вычеты
	LFDeductionStandard = "LF_DEDUCTION_STANDARD" // стандартные вычеты
	LFDeductionOther    = "LF_DEDUCTION_OTHER"    // прочие вычеты
	LFDeductionTotal    = "LF_DEDUCTION_TOTAL"    // итого вычетов

	// Корректировки
	LFAdjustmentExempt     = "LF_ADJUSTMENT_EXEMPT"     // освобождаемые доходы
	LFAdjustmentDoubleTax  = "LF_ADJUSTMENT_DOUBLE_TAX" // межд. договоры
	LFAdjustmentCorrection = "LF_ADJUSTMENT_CORRECTION" // корректировка дохода
	LFAdjustmentOther      = "LF_ADJUSTMENT_OTHER"      // прочие корректировки
	LFAdjustmentTotal      = "LF_ADJUSTMENT_TOTAL"      // итого корректировок

	// Зачёт иностранного налога
	LFForeignTaxCreditGeneral = "LF_FOREIGN_TAX_CREDIT_GENERAL" // общий зачёт
	LFForeignTaxCreditCFC     = "LF_FOREIGN_TAX_CREDIT_CFC"     // зачёт по КИК

	// Итоги
	LFIncomeTotal    = "LF_INCOME_TOTAL"    // совокупный доход
	LFTaxableIncome  = "LF_TAXABLE_INCOME"  // облагаемый доход
	LFIPNCalculated  = "LF_IPN_CALCULATED"  // исчисленный ИПН
	LFIPNPayable     = "LF_IPN_PAYABLE"     // ИПН к уплате
)

// PropertyIncomeFields — три поля доходов от продажи имущества.
var PropertyIncomeFields = []string{
	LFIncomePropertyKZ,
	LFIncomePropertyAbroad,
	LFIncomePropertyVehicle,
}

// ForeignIncomeFields — девять полей зарубежных доходов.
var ForeignIncomeFields = []string{
	LFIncomeForeignDividends,
	LFIncomeForeignInterest,
	LFIncomeForeignRoyalty,
	LFIncomeForeignEmployment,
	LFIncomeForeignBusiness,
	LFIncomeForeignCapitalGains,
	LFIncomeForeignPension,
	LFIncomeForeignInsurance,
	LFIncomeForeignOther,
}

// DeductionFields — слагаемые итога вычетов.
var DeductionFields = []string{
	LFDeductionStandard,
	LFDeductionOther,
}

// AdjustmentFields — четыре поля корректировок.
var AdjustmentFields = []string{
	LFAdjustmentExempt,
	LFAdjustmentDoubleTax,
	LFAdjustmentCorrection,
	LFAdjustmentOther,
}

// PrimaryIncomeFields — двенадцать первичных категорий дохода,
// из которых складывается LF_INCOME_TOTAL.
var PrimaryIncomeFields = []string{
	LFIncomePropertyTotal,
	LFIncomeRent,
	LFIncomeAssignment,
	LFIncomeIPAssets,
	LFIncomeForeignTotal,
	LFIncomeDividends,
	LFIncomeInterest,
	LFIncomeWinnings,
	LFIncomeRoyalty,
	LFIncomePrizes,
	LFIncomeOther,
	LFIncomeCFCProfit,
}

// Коды налоговых событий. Каждому коду при посеве справочника
// соответствует одно mapping-правило.

const (
	EVPropertySaleKZ      = "EV_PROPERTY_SALE_KZ"      // продажа имущества в РК
	EVPropertySaleAbroad  = "EV_PROPERTY_SALE_ABROAD"  // продажа имущества за рубежом
	EVPropertySaleVehicle = "EV_PROPERTY_SALE_VEHICLE" // продажа транспорта

	EVRentIncome       = "EV_RENT_INCOME"       // доход от аренды
	EVAssignmentIncome = "EV_ASSIGNMENT_INCOME" // уступка права требования
	EVIPAssetsIncome   = "EV_IP_ASSETS_INCOME"  // ИС и прочие активы
	EVDividends        = "EV_DIVIDENDS"         // дивиденды в РК
	EVInterest         = "EV_INTEREST"          // вознаграждение в РК
	EVWinnings         = "EV_WINNINGS"          // выигрыши
	EVRoyalty          = "EV_ROYALTY"           // роялти
	EVPrizes           = "EV_PRIZES"            // призы и подарки
	EVOtherIncome      = "EV_OTHER_INCOME"      // прочие доходы

	EVForeignDividends    = "EV_FOREIGN_DIVIDENDS"     // зарубежные дивиденды
	EVForeignInterest     = "EV_FOREIGN_INTEREST"      // зарубежное вознаграждение
	EVForeignRoyalty      = "EV_FOREIGN_ROYALTY"       // зарубежные роялти
	EVForeignEmployment   = "EV_FOREIGN_EMPLOYMENT"    // работа за рубежом
	EVForeignBusiness     = "EV_FOREIGN_BUSINESS"      // бизнес за рубежом
	EVForeignCapitalGains = "EV_FOREIGN_CAPITAL_GAINS" // прирост стоимости
	EVForeignPension      = "EV_FOREIGN_PENSION"       // зарубежная пенсия
	EVForeignInsurance    = "EV_FOREIGN_INSURANCE"     // страховые выплаты
	EVForeignOther        = "EV_FOREIGN_OTHER"         // прочие зарубежные

	EVCFCProfit = "EV_CFC_PROFIT" // прибыль КИК

	EVDeductionStandard = "EV_DEDUCTION_STANDARD" // стандартный вычет
	EVDeductionOther    = "EV_DEDUCTION_OTHER"    // прочий вычет

	EVAdjustmentExempt     = "EV_ADJUSTMENT_EXEMPT"     // освобождение
	EVAdjustmentDoubleTax  = "EV_ADJUSTMENT_DOUBLE_TAX" // межд. договоры
	EVAdjustmentCorrection = "EV_ADJUSTMENT_CORRECTION" // корректировка
	EVAdjustmentOther      = "EV_ADJUSTMENT_OTHER"      // прочая корректировка

	EVForeignTaxPaidGeneral = "EV_FOREIGN_TAX_PAID_GENERAL" // уплачен налог за рубежом
	EVForeignTaxPaidCFC     = "EV_FOREIGN_TAX_PAID_CFC"     // уплачен налог по КИК

	// Сведения для приложений 270.04–270.07: в расчёт сумм не входят
	EVAssetDeclared = "EV_ASSET_DECLARED" // заявленный актив
	EVDebtDeclared  = "EV_DEBT_DECLARED"  // заявленное обязательство
)

// EventFieldTargets — пары событие → логическое поле для посева
// mapping-правил по умолчанию.
var EventFieldTargets = map[string]string{
	EVPropertySaleKZ:      LFIncomePropertyKZ,
	EVPropertySaleAbroad:  LFIncomePropertyAbroad,
	EVPropertySaleVehicle: LFIncomePropertyVehicle,

	EVRentIncome:       LFIncomeRent,
	EVAssignmentIncome: LFIncomeAssignment,
	EVIPAssetsIncome:   LFIncomeIPAssets,
	EVDividends:        LFIncomeDividends,
	EVInterest:         LFIncomeInterest,
	EVWinnings:         LFIncomeWinnings,
	EVRoyalty:          LFIncomeRoyalty,
	EVPrizes:           LFIncomePrizes,
	EVOtherIncome:      LFIncomeOther,

	EVForeignDividends:    LFIncomeForeignDividends,
	EVForeignInterest:     LFIncomeForeignInterest,
	EVForeignRoyalty:      LFIncomeForeignRoyalty,
	EVForeignEmployment:   LFIncomeForeignEmployment,
	EVForeignBusiness:     LFIncomeForeignBusiness,
	EVForeignCapitalGains: LFIncomeForeignCapitalGains,
	EVForeignPension:      LFIncomeForeignPension,
	EVForeignInsurance:    LFIncomeForeignInsurance,
	EVForeignOther:        LFIncomeForeignOther,

	EVCFCProfit: LFIncomeCFCProfit,

	EVDeductionStandard: LFDeductionStandard,
	EVDeductionOther:    LFDeductionOther,

	EVAdjustmentExempt:     LFAdjustmentExempt,
	EVAdjustmentDoubleTax:  LFAdjustmentDoubleTax,
	EVAdjustmentCorrection: LFAdjustmentCorrection,
	EVAdjustmentOther:      LFAdjustmentOther,

	EVForeignTaxPaidGeneral: LFForeignTaxCreditGeneral,
	EVForeignTaxPaidCFC:     LFForeignTaxCreditCFC,
}
