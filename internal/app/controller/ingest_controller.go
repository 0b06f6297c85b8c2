package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/salyqtech/salyq-backend/internal/errors"
	"github.com/salyqtech/salyq-backend/internal/app/model"
	"github.com/salyqtech/salyq-backend/internal/app/service"
	"github.com/salyqtech/salyq-backend/internal/middleware"
	"github.com/salyqtech/salyq-backend/internal/parser"
)

type IngestController struct {
	ingestService service.IngestService
}

func NewIngestController(ingestService service.IngestService) *IngestController {
	return &IngestController{ingestService: ingestService}
}

type IngestRequest struct {
	SourceKind model.SourceKind `json:"source_kind" binding:"required"`
	Payload    json.RawMessage  `json:"payload" binding:"required"`
}

// Ingest stores a raw source payload (idempotent by checksum)
// POST /api/v1/taxpayers/:id/sources
func (ctrl *IngestController) Ingest(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	taxpayerID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Укажите source_kind и payload")
		return
	}

	record, created, err := ctrl.ingestService.Ingest(taxpayerID, req.SourceKind, req.Payload)
	if err != nil {
		if errors.Is(err, service.ErrUnknownSourceKind) {
			apperrors.BadRequest(c, apperrors.SourceUnknownKind, "Неизвестный тип источника")
			return
		}
		log.Error("Ingest failed", err, map[string]interface{}{
			"taxpayer_id": taxpayerID,
		})
		apperrors.InternalError(c, "")
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{
		"source_record": record,
		"created":       created,
	})
}

// ListSources returns source records of a taxpayer
// GET /api/v1/taxpayers/:id/sources
func (ctrl *IngestController) ListSources(c *gin.Context) {
	taxpayerID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	records, err := ctrl.ingestService.ListSources(taxpayerID)
	if err != nil {
		apperrors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sources": records,
		"count":   len(records),
	})
}

// Parse converts a source record into tax events (idempotent)
// POST /api/v1/sources/:id/parse
func (ctrl *IngestController) Parse(c *gin.Context) {
	ctrl.runParse(c, false)
}

// Reparse deletes the source's events and parses again
// POST /api/v1/sources/:id/reparse
func (ctrl *IngestController) Reparse(c *gin.Context) {
	ctrl.runParse(c, true)
}

func (ctrl *IngestController) runParse(c *gin.Context, again bool) {
	log := middleware.GetLoggerFromContext(c)

	sourceID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var result *service.ParseResult
	var err error
	if again {
		result, err = ctrl.ingestService.Reparse(sourceID)
	} else {
		result, err = ctrl.ingestService.Parse(sourceID)
	}
	if err != nil {
		var parseErr *parser.ParseError
		switch {
		case errors.Is(err, service.ErrSourceNotFound):
			apperrors.NotFound(c, apperrors.SourceNotFound, "Источник данных не найден")
		case errors.Is(err, service.ErrUnknownEventType):
			apperrors.Conflict(c, apperrors.EventUnknownType, "Данные ссылаются на неизвестный код события")
		case errors.As(err, &parseErr):
			apperrors.BadRequest(c, apperrors.SourceParseFailed, "Ошибка разбора данных: "+parseErr.Error())
		default:
			log.Error("Parse failed", err, map[string]interface{}{
				"source_record_id": sourceID,
			})
			apperrors.InternalError(c, "")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"created": result.Created,
		"skipped": result.Skipped,
		"events":  result.Events,
		"count":   len(result.Events),
	})
}
