package parser

import (
	"bytes"
	"encoding/base64"
	"encoding/json"

	"github.com/salyqtech/salyq-backend/internal/app/model"
	"github.com/xuri/excelize/v2"
)

// ExcelParser разбирает XLSX-импорт. Полезная нагрузка:
// {"file_base64": "<содержимое файла>"} — каждый лист книги читается
// отдельно, имя листа попадает в metadata.sheet.
type ExcelParser struct{}

func (p *ExcelParser) Kind() model.SourceKind {
	return model.SourceExcel
}

func (p *ExcelParser) Parse(payload []byte) ([]TaxEventInput, error) {
	var root struct {
		FileBase64 string `json:"file_base64"`
	}
	if err := json.Unmarshal(payload, &root); err != nil {
		return nil, parseErrorf(-1, "payload is not a JSON object: %v", err)
	}
	if root.FileBase64 == "" {
		return nil, parseErrorf(-1, "missing file_base64")
	}

	content, err := base64.StdEncoding.DecodeString(root.FileBase64)
	if err != nil {
		return nil, parseErrorf(-1, "file_base64 is not valid base64: %v", err)
	}

	book, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, parseErrorf(-1, "cannot open workbook: %v", err)
	}
	defer book.Close()

	var inputs []TaxEventInput
	index := 0
	for _, sheet := range book.GetSheetList() {
		rows, err := book.GetRows(sheet)
		if err != nil {
			return nil, parseErrorf(-1, "cannot read sheet %q: %v", sheet, err)
		}
		for _, rec := range rowsToRecords(rows) {
			input, err := parseTabularRow(index, rec)
			if err != nil {
				return nil, err
			}
			input.Metadata["sheet"] = sheet
			inputs = append(inputs, input)
			index++
		}
	}

	if len(inputs) == 0 {
		return nil, parseErrorf(-1, "workbook has no data rows")
	}
	return inputs, nil
}
