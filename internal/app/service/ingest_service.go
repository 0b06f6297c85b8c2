package service

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/salyqtech/salyq-backend/internal/app/model"
	"github.com/salyqtech/salyq-backend/internal/app/repository"
	"github.com/salyqtech/salyq-backend/internal/parser"
	"github.com/salyqtech/salyq-backend/pkg/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrSourceNotFound    = errors.New("source record not found")
	ErrUnknownSourceKind = errors.New("unknown source kind")
	ErrUnknownEventType  = errors.New("event type is not in the catalog")
)

// ParseResult — итог разбора источника.
type ParseResult struct {
	Created bool             `json:"created"`
	Skipped bool             `json:"skipped"`
	Events  []model.TaxEvent `json:"events"`
}

// IngestService — загрузка сырых данных и превращение их в события.
type IngestService interface {
	// Ingest идемпотентна по контрольной сумме: повторная загрузка
	// того же содержимого возвращает существующую запись.
	Ingest(taxpayerID uint, kind model.SourceKind, payload json.RawMessage) (*model.SourceRecord, bool, error)
	// Parse идемпотентен: существующие события источника возвращаются
	// без повторной вставки.
	Parse(sourceRecordID uint) (*ParseResult, error)
	// Reparse удаляет события источника и разбирает его заново.
	Reparse(sourceRecordID uint) (*ParseResult, error)
	ListSources(taxpayerID uint) ([]model.SourceRecord, error)
}

type ingestService struct {
	sourceRepo  repository.SourceRecordRepository
	eventRepo   repository.EventRepository
	catalogRepo repository.CatalogRepository
	rateRepo    repository.CurrencyRateRepository
	registry    *parser.Registry
	db          *gorm.DB
}

func NewIngestService(
	sourceRepo repository.SourceRecordRepository,
	eventRepo repository.EventRepository,
	catalogRepo repository.CatalogRepository,
	rateRepo repository.CurrencyRateRepository,
	registry *parser.Registry,
	db *gorm.DB,
) IngestService {
	return &ingestService{
		sourceRepo:  sourceRepo,
		eventRepo:   eventRepo,
		catalogRepo: catalogRepo,
		rateRepo:    rateRepo,
		registry:    registry,
		db:          db,
	}
}

func (s *ingestService) Ingest(taxpayerID uint, kind model.SourceKind, payload json.RawMessage) (*model.SourceRecord, bool, error) {
	if !model.ValidSourceKind(kind) {
		return nil, false, ErrUnknownSourceKind
	}

	checksum, canonical, err := checksumPayload(payload)
	if err != nil {
		return nil, false, fmt.Errorf("payload is not valid JSON: %w", err)
	}

	if existing, err := s.sourceRepo.FindByChecksum(taxpayerID, checksum); err != nil {
		return nil, false, err
	} else if existing != nil {
		logger.Debug("Duplicate source payload, returning existing record", map[string]interface{}{
			"taxpayer_id":      taxpayerID,
			"source_record_id": existing.ID,
		})
		return existing, false, nil
	}

	record := &model.SourceRecord{
		TaxpayerID: taxpayerID,
		SourceKind: kind,
		Checksum:   checksum,
		RawPayload: datatypes.JSON(canonical),
		Active:     true,
	}
	if err := s.sourceRepo.Create(record); err != nil {
		// проигравший гонку берёт запись победителя
		if existing, findErr := s.sourceRepo.FindByChecksum(taxpayerID, checksum); findErr == nil && existing != nil {
			return existing, false, nil
		}
		return nil, false, err
	}

	logger.Info("Source payload ingested", map[string]interface{}{
		"taxpayer_id":      taxpayerID,
		"source_record_id": record.ID,
		"source_kind":      kind,
	})
	return record, true, nil
}

func (s *ingestService) Parse(sourceRecordID uint) (*ParseResult, error) {
	record, err := s.sourceRepo.FindByID(sourceRecordID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSourceNotFound
		}
		return nil, err
	}

	// повторный вызов возвращает уже созданные события
	existing, err := s.eventRepo.FindBySourceRecord(sourceRecordID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return &ParseResult{Skipped: true, Events: existing}, nil
	}

	events, err := s.parseRecord(record)
	if err != nil {
		return nil, err
	}
	if err := s.eventRepo.CreateBatch(events); err != nil {
		return nil, err
	}

	created, err := s.eventRepo.FindBySourceRecord(sourceRecordID)
	if err != nil {
		return nil, err
	}
	logger.Info("Source record parsed", map[string]interface{}{
		"source_record_id": sourceRecordID,
		"events_created":   len(created),
	})
	return &ParseResult{Created: true, Events: created}, nil
}

func (s *ingestService) Reparse(sourceRecordID uint) (*ParseResult, error) {
	record, err := s.sourceRepo.FindByID(sourceRecordID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSourceNotFound
		}
		return nil, err
	}

	events, err := s.parseRecord(record)
	if err != nil {
		return nil, err
	}

	// удаление и повторная вставка в одной транзакции
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().
			Where("source_record_id = ?", sourceRecordID).
			Delete(&model.TaxEvent{}).Error; err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}
		return tx.Create(&events).Error
	})
	if err != nil {
		return nil, err
	}

	created, err := s.eventRepo.FindBySourceRecord(sourceRecordID)
	if err != nil {
		return nil, err
	}
	logger.Info("Source record reparsed", map[string]interface{}{
		"source_record_id": sourceRecordID,
		"events_created":   len(created),
	})
	return &ParseResult{Created: true, Events: created}, nil
}

func (s *ingestService) ListSources(taxpayerID uint) ([]model.SourceRecord, error) {
	return s.sourceRepo.FindByTaxpayer(taxpayerID)
}

// parseRecord прогоняет запись через парсер и валидирует коды событий
// по справочнику. Неизвестный код — конфликт, а не ошибка разбора.
func (s *ingestService) parseRecord(record *model.SourceRecord) ([]model.TaxEvent, error) {
	inputs, err := s.registry.Parse(record)
	if err != nil {
		return nil, err
	}

	known, err := s.catalogRepo.KnownEventTypes()
	if err != nil {
		return nil, err
	}

	events := make([]model.TaxEvent, 0, len(inputs))
	for i, input := range inputs {
		if !known[input.EventType] {
			return nil, fmt.Errorf("%w: record %d has type %q", ErrUnknownEventType, i, input.EventType)
		}

		eventDate, err := time.Parse("2006-01-02", input.EventDate)
		if err != nil {
			return nil, fmt.Errorf("record %d: bad normalized date %q", i, input.EventDate)
		}

		metadata := input.Metadata
		if metadata == nil {
			metadata = map[string]interface{}{}
		}

		// для валютных сумм подкладываем пересчёт в тенге по курсу
		// на дату события; правила могут адресовать его через
		// amount_source = metadata.amount_kzt
		if input.Amount != nil && input.Currency != "" && input.Currency != "KZT" && s.rateRepo != nil {
			if rate, err := s.rateRepo.FindRate(input.Currency, eventDate); err == nil && rate != nil {
				metadata["amount_kzt"] = input.Amount.Mul(rate.Rate).Round(2).String()
				metadata["rate_date"] = rate.RateDate.Format("2006-01-02")
			}
		}

		rawMetadata, err := json.Marshal(metadata)
		if err != nil {
			return nil, err
		}

		sourceID := input.SourceRecordID
		events = append(events, model.TaxEvent{
			TaxpayerID:     input.TaxpayerID,
			SourceRecordID: &sourceID,
			EventType:      input.EventType,
			EventDate:      eventDate,
			Amount:         input.Amount,
			Currency:       input.Currency,
			Metadata:       datatypes.JSON(rawMetadata),
			TaxYear:        eventDate.Year(),
			Active:         true,
		})
	}
	return events, nil
}

// checksumPayload — SHA-256 канонического JSON (ключи отсортированы).
func checksumPayload(payload json.RawMessage) (string, []byte, error) {
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.UseNumber()
	var value interface{}
	if err := decoder.Decode(&value); err != nil {
		return "", nil, err
	}

	// encoding/json сериализует ключи объектов в отсортированном порядке
	canonical, err := json.Marshal(value)
	if err != nil {
		return "", nil, err
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), canonical, nil
}
