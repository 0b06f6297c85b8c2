package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/salyqtech/salyq-backend/config"
	"github.com/salyqtech/salyq-backend/internal/app/model"
	"github.com/salyqtech/salyq-backend/internal/db"
	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"
)

// Загрузка справочника движка. Без аргументов сеются встроенные
// справочники по умолчанию; с путём к XLSX-книге — содержимое книги
// (листы: event_types, logical_fields, rules, xml_field_map).
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	if len(os.Args) < 2 {
		fmt.Println("No workbook given, default catalog seeded.")
		return
	}

	filePath := os.Args[1]
	fmt.Printf("Reading catalog workbook: %s\n", filePath)

	book, err := excelize.OpenFile(filePath)
	if err != nil {
		log.Fatal("Failed to open workbook:", err)
	}
	defer book.Close()

	fmt.Print("Import the workbook catalog? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	counts := map[string]int{}

	if rows, err := book.GetRows("event_types"); err == nil {
		counts["event_types"] = importEventTypes(rows)
	}
	if rows, err := book.GetRows("logical_fields"); err == nil {
		counts["logical_fields"] = importLogicalFields(rows)
	}
	if rows, err := book.GetRows("rules"); err == nil {
		counts["rules"] = importRules(rows)
	}
	if rows, err := book.GetRows("xml_field_map"); err == nil {
		counts["xml_field_map"] = importFieldMap(rows)
	}

	fmt.Println("Import completed:")
	for sheet, count := range counts {
		fmt.Printf("  %-16s %d rows\n", sheet, count)
	}
}

// колонки: code, description
func importEventTypes(rows [][]string) int {
	imported := 0
	for i, row := range rows {
		if i == 0 || len(row) < 1 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		et := model.TaxEventType{Code: strings.TrimSpace(row[0])}
		if len(row) > 1 {
			et.Description = strings.TrimSpace(row[1])
		}
		if err := db.GetDB().Save(&et).Error; err != nil {
			log.Printf("event_types row %d: %v", i+1, err)
			continue
		}
		imported++
	}
	return imported
}

// колонки: code, description
func importLogicalFields(rows [][]string) int {
	imported := 0
	for i, row := range rows {
		if i == 0 || len(row) < 1 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		lf := model.LogicalField{Code: strings.TrimSpace(row[0])}
		if len(row) > 1 {
			lf.Description = strings.TrimSpace(row[1])
		}
		if err := db.GetDB().Save(&lf).Error; err != nil {
			log.Printf("logical_fields row %d: %v", i+1, err)
			continue
		}
		imported++
	}
	return imported
}

// колонки: rule_code, rule_type, tax_year, priority, conditions, actions
func importRules(rows [][]string) int {
	imported := 0
	for i, row := range rows {
		if i == 0 || len(row) < 6 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		rule := model.TaxRule{
			RuleCode:   strings.TrimSpace(row[0]),
			RuleType:   model.RuleType(strings.TrimSpace(row[1])),
			Conditions: datatypes.JSON([]byte(row[4])),
			Actions:    datatypes.JSON([]byte(row[5])),
			Active:     true,
		}
		if year := strings.TrimSpace(row[2]); year != "" {
			if y, err := strconv.Atoi(year); err == nil {
				rule.TaxYear = &y
			}
		}
		if priority := strings.TrimSpace(row[3]); priority != "" {
			if p, err := strconv.Atoi(priority); err == nil {
				rule.Priority = p
			}
		}
		if err := db.GetDB().
			Where("rule_code = ?", rule.RuleCode).
			Assign(rule).
			FirstOrCreate(&model.TaxRule{}).Error; err != nil {
			log.Printf("rules row %d: %v", i+1, err)
			continue
		}
		imported++
	}
	return imported
}

// колонки: form_code, application_code, xml_field_name, logical_field, sort_order
func importFieldMap(rows [][]string) int {
	imported := 0
	for i, row := range rows {
		if i == 0 || len(row) < 3 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		fm := model.XmlFieldMap{
			FormCode:        strings.TrimSpace(row[0]),
			ApplicationCode: strings.TrimSpace(row[1]),
			XmlFieldName:    strings.TrimSpace(row[2]),
		}
		if len(row) > 3 && strings.TrimSpace(row[3]) != "" {
			lf := strings.TrimSpace(row[3])
			fm.LogicalField = &lf
		}
		if len(row) > 4 {
			if order, err := strconv.Atoi(strings.TrimSpace(row[4])); err == nil {
				fm.SortOrder = order
			}
		}
		if err := db.GetDB().
			Where("form_code = ? AND application_code = ? AND xml_field_name = ?",
				fm.FormCode, fm.ApplicationCode, fm.XmlFieldName).
			Assign(fm).
			FirstOrCreate(&model.XmlFieldMap{}).Error; err != nil {
			log.Printf("xml_field_map row %d: %v", i+1, err)
			continue
		}
		imported++
	}
	return imported
}
