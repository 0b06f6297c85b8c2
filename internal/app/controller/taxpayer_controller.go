package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apperrors "github.com/salyqtech/salyq-backend/internal/errors"
	"github.com/salyqtech/salyq-backend/internal/app/service"
	"github.com/salyqtech/salyq-backend/internal/middleware"
)

type TaxpayerController struct {
	taxpayerService service.TaxpayerService
}

func NewTaxpayerController(taxpayerService service.TaxpayerService) *TaxpayerController {
	return &TaxpayerController{taxpayerService: taxpayerService}
}

// CreateTaxpayer registers a taxpayer card
// POST /api/v1/taxpayers
func (ctrl *TaxpayerController) CreateTaxpayer(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	var input service.TaxpayerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Некорректные данные налогоплательщика")
		return
	}

	taxpayer, err := ctrl.taxpayerService.Create(userID, input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidIIN):
			apperrors.BadRequest(c, apperrors.ValidationInvalidIIN, "ИИН не прошёл проверку контрольного разряда")
		case errors.Is(err, service.ErrIINRegistered):
			apperrors.Conflict(c, apperrors.TaxpayerIINTaken, "Налогоплательщик с таким ИИН уже зарегистрирован")
		default:
			log.Error("Failed to create taxpayer", err, nil)
			apperrors.InternalError(c, "")
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"taxpayer": taxpayer})
}

// ListTaxpayers returns the user's taxpayer cards
// GET /api/v1/taxpayers
func (ctrl *TaxpayerController) ListTaxpayers(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	taxpayers, err := ctrl.taxpayerService.ListByUser(userID)
	if err != nil {
		apperrors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"taxpayers": taxpayers,
		"count":     len(taxpayers),
	})
}

// GetTaxpayer returns a taxpayer by ID
// GET /api/v1/taxpayers/:id
func (ctrl *TaxpayerController) GetTaxpayer(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	taxpayer, err := ctrl.taxpayerService.Get(id)
	if err != nil {
		if errors.Is(err, service.ErrTaxpayerNotFound) {
			apperrors.NotFound(c, apperrors.TaxpayerNotFound, "Налогоплательщик не найден")
			return
		}
		apperrors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"taxpayer": taxpayer})
}

// UpdateTaxpayer updates descriptive attributes
// PUT /api/v1/taxpayers/:id
func (ctrl *TaxpayerController) UpdateTaxpayer(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var input service.TaxpayerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Некорректные данные")
		return
	}

	taxpayer, err := ctrl.taxpayerService.Update(id, input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTaxpayerNotFound):
			apperrors.NotFound(c, apperrors.TaxpayerNotFound, "Налогоплательщик не найден")
		case errors.Is(err, service.ErrInvalidIIN):
			apperrors.BadRequest(c, apperrors.ValidationInvalidIIN, "ИИН не прошёл проверку")
		default:
			apperrors.InternalError(c, "")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"taxpayer": taxpayer})
}

// parseIDParam — общий разбор числового параметра пути.
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Неверный идентификатор")
		return 0, false
	}
	return uint(id), true
}
