package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/salyqtech/salyq-backend/internal/errors"
	"github.com/salyqtech/salyq-backend/internal/app/service"
	"github.com/salyqtech/salyq-backend/internal/middleware"
	"github.com/salyqtech/salyq-backend/internal/xmlgen"
)

type ExportController struct {
	exportService service.ExportService
}

func NewExportController(exportService service.ExportService) *ExportController {
	return &ExportController{exportService: exportService}
}

// ProjectXML creates a new XML version of a declaration
// POST /api/v1/declarations/:id/xml
func (ctrl *ExportController) ProjectXML(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	declarationID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	export, err := ctrl.exportService.ProjectXML(declarationID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDeclarationNotFound):
			apperrors.NotFound(c, apperrors.DeclarationNotFound, "Декларация не найдена")
		case errors.Is(err, service.ErrNotValidatedYet):
			apperrors.Conflict(c, apperrors.DeclarationNotValid, "Сначала выполните проверку декларации")
		case errors.Is(err, xmlgen.ErrStructureCheck):
			log.Error("XML self-check failed", err, map[string]interface{}{
				"declaration_id": declarationID,
			})
			apperrors.InternalError(c, "Сформированный XML не прошёл самопроверку")
		default:
			log.Error("XML projection failed", err, nil)
			apperrors.InternalError(c, "")
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"export": export})
}

// ListVersions returns all XML versions of a declaration
// GET /api/v1/declarations/:id/xml
func (ctrl *ExportController) ListVersions(c *gin.Context) {
	declarationID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	exports, err := ctrl.exportService.ListVersions(declarationID)
	if err != nil {
		apperrors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"exports": exports,
		"count":   len(exports),
	})
}

// GetExport returns one XML export with its payload
// GET /api/v1/exports/:id
func (ctrl *ExportController) GetExport(c *gin.Context) {
	exportID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	export, err := ctrl.exportService.GetExport(exportID)
	if err != nil {
		if errors.Is(err, service.ErrDeclarationNotFound) {
			apperrors.NotFound(c, apperrors.XmlNotFound, "XML-выгрузка не найдена")
			return
		}
		apperrors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"export": export})
}
