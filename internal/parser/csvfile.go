package parser

import (
	"encoding/csv"
	"encoding/json"
	"strings"

	"github.com/salyqtech/salyq-backend/internal/app/model"
)

// CSVParser разбирает CSV-импорт. Полезная нагрузка:
// {"content": "<текст CSV>", "delimiter": ";"} — разделитель необязателен.
type CSVParser struct{}

func (p *CSVParser) Kind() model.SourceKind {
	return model.SourceCSV
}

func (p *CSVParser) Parse(payload []byte) ([]TaxEventInput, error) {
	var root struct {
		Content   string `json:"content"`
		Delimiter string `json:"delimiter"`
	}
	if err := json.Unmarshal(payload, &root); err != nil {
		return nil, parseErrorf(-1, "payload is not a JSON object: %v", err)
	}
	if strings.TrimSpace(root.Content) == "" {
		return nil, parseErrorf(-1, "missing csv content")
	}

	reader := csv.NewReader(strings.NewReader(root.Content))
	reader.TrimLeadingSpace = true
	if root.Delimiter != "" {
		reader.Comma = rune(root.Delimiter[0])
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, parseErrorf(-1, "malformed csv: %v", err)
	}

	records := rowsToRecords(rows)
	if len(records) == 0 {
		return nil, parseErrorf(-1, "csv has no data rows")
	}

	inputs := make([]TaxEventInput, 0, len(records))
	for i, rec := range records {
		input, err := parseTabularRow(i, rec)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, input)
	}
	return inputs, nil
}
