package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apperrors "github.com/salyqtech/salyq-backend/internal/errors"
	"github.com/salyqtech/salyq-backend/internal/app/model"
	"github.com/salyqtech/salyq-backend/internal/app/service"
	"github.com/salyqtech/salyq-backend/internal/engine"
	"github.com/salyqtech/salyq-backend/internal/middleware"
)

type DeclarationController struct {
	declService service.DeclarationService
}

func NewDeclarationController(declService service.DeclarationService) *DeclarationController {
	return &DeclarationController{declService: declService}
}

// RunEngine computes the field map without persisting a declaration
// POST /api/v1/taxpayers/:id/declarations/:year/run
func (ctrl *DeclarationController) RunEngine(c *gin.Context) {
	taxpayerID, year, ok := ctrl.periodParams(c)
	if !ok {
		return
	}
	allowEmpty := c.Query("allow_empty") == "true"

	result, err := ctrl.declService.RunEngine(taxpayerID, year, allowEmpty)
	if err != nil {
		ctrl.respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

// Generate runs the engine and persists declaration items and flags
// POST /api/v1/taxpayers/:id/declarations/:year/generate
func (ctrl *DeclarationController) Generate(c *gin.Context) {
	taxpayerID, year, ok := ctrl.periodParams(c)
	if !ok {
		return
	}

	decl, result, err := ctrl.declService.Generate(taxpayerID, year)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTaxpayerNotFound):
			apperrors.NotFound(c, apperrors.TaxpayerNotFound, "Налогоплательщик не найден")
		case errors.Is(err, service.ErrRegenerateForbidden):
			apperrors.Conflict(c, apperrors.DeclarationImmutable, "Декларацию в этом статусе нельзя перегенерировать")
		default:
			ctrl.respondEngineError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"declaration": decl,
		"result":      result,
	})
}

// GetDeclaration returns a declaration with its items
// GET /api/v1/declarations/:id
func (ctrl *DeclarationController) GetDeclaration(c *gin.Context) {
	declarationID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	decl, items, err := ctrl.declService.Get(declarationID)
	if err != nil {
		if errors.Is(err, service.ErrDeclarationNotFound) {
			apperrors.NotFound(c, apperrors.DeclarationNotFound, "Декларация не найдена")
			return
		}
		apperrors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"declaration": decl,
		"items":       items,
	})
}

// Validate runs the business validation gate
// POST /api/v1/declarations/:id/validate
func (ctrl *DeclarationController) Validate(c *gin.Context) {
	declarationID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	report, err := ctrl.declService.Validate(declarationID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDeclarationNotFound):
			apperrors.NotFound(c, apperrors.DeclarationNotFound, "Декларация не найдена")
		case errors.Is(err, service.ErrNoItems):
			apperrors.Unprocessable(c, apperrors.DeclarationNoItems, "Нет рассчитанных показателей")
		case errors.Is(err, service.ErrMissingTotals):
			apperrors.Unprocessable(c, apperrors.DeclarationNotValid, "Отсутствуют обязательные итоговые поля")
		case errors.Is(err, service.ErrDeclarationFrozen):
			apperrors.Conflict(c, apperrors.DeclarationImmutable, "Декларация уже отправлена")
		case errors.Is(err, service.ErrInvalidTransition):
			apperrors.Conflict(c, apperrors.DeclarationBadStatus, "Проверка недоступна в текущем статусе")
		default:
			apperrors.InternalError(c, "")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

type TransitionRequest struct {
	Target model.DeclarationStatus `json:"target" binding:"required"`
}

// Transition moves the declaration along the status graph
// POST /api/v1/declarations/:id/transition
func (ctrl *DeclarationController) Transition(c *gin.Context) {
	declarationID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Укажите целевой статус")
		return
	}

	decl, err := ctrl.declService.Transition(declarationID, req.Target)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDeclarationNotFound):
			apperrors.NotFound(c, apperrors.DeclarationNotFound, "Декларация не найдена")
		case errors.Is(err, service.ErrConsentRequired):
			apperrors.Conflict(c, apperrors.DeclarationBadStatus, "Подписание выполняется через код подтверждения")
		case errors.Is(err, service.ErrDeclarationFrozen):
			apperrors.Conflict(c, apperrors.DeclarationImmutable, "Декларация в неизменяемом статусе")
		case errors.Is(err, service.ErrInvalidTransition):
			apperrors.Conflict(c, apperrors.DeclarationBadStatus, "Недопустимый переход статуса")
		case errors.Is(err, service.ErrNoItems):
			apperrors.Unprocessable(c, apperrors.DeclarationNoItems, "Нет рассчитанных показателей")
		case errors.Is(err, service.ErrMissingTotals):
			apperrors.Unprocessable(c, apperrors.DeclarationNotValid, "Отсутствуют обязательные итоговые поля")
		default:
			apperrors.InternalError(c, "")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"declaration": decl})
}

// RequestConsent sends the signing OTP code
// POST /api/v1/declarations/:id/consent/request
func (ctrl *DeclarationController) RequestConsent(c *gin.Context) {
	declarationID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.declService.RequestConsent(c.Request.Context(), declarationID); err != nil {
		switch {
		case errors.Is(err, service.ErrDeclarationNotFound):
			apperrors.NotFound(c, apperrors.DeclarationNotFound, "Декларация не найдена")
		case errors.Is(err, service.ErrInvalidTransition):
			apperrors.Conflict(c, apperrors.DeclarationBadStatus, "Декларация не ожидает подтверждения")
		default:
			apperrors.InternalError(c, "")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Код подтверждения отправлен"})
}

type ConsentRequest struct {
	Code string `json:"code" binding:"required"`
}

// ConfirmConsent verifies the OTP code and signs the declaration
// POST /api/v1/declarations/:id/consent/confirm
func (ctrl *DeclarationController) ConfirmConsent(c *gin.Context) {
	declarationID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ConsentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Укажите код подтверждения")
		return
	}

	decl, err := ctrl.declService.ConfirmConsent(c.Request.Context(), declarationID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDeclarationNotFound):
			apperrors.NotFound(c, apperrors.DeclarationNotFound, "Декларация не найдена")
		case errors.Is(err, service.ErrConsentCodeInvalid):
			apperrors.BadRequest(c, apperrors.ConsentCodeInvalid, "Неверный или истёкший код")
		case errors.Is(err, service.ErrConsentAttempts):
			apperrors.Conflict(c, apperrors.ConsentAttemptsSpent, "Попытки исчерпаны, запросите новый код")
		case errors.Is(err, service.ErrInvalidTransition):
			apperrors.Conflict(c, apperrors.DeclarationBadStatus, "Декларация не ожидает подтверждения")
		default:
			apperrors.InternalError(c, "")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"declaration": decl})
}

type SetItemRequest struct {
	LogicalField string `json:"logical_field" binding:"required"`
	Value        string `json:"value" binding:"required"`
}

// SetItem manually overrides a declaration item
// PUT /api/v1/declarations/:id/items
func (ctrl *DeclarationController) SetItem(c *gin.Context) {
	declarationID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req SetItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Укажите logical_field и value")
		return
	}

	if err := ctrl.declService.SetItem(declarationID, req.LogicalField, req.Value); err != nil {
		switch {
		case errors.Is(err, service.ErrDeclarationNotFound):
			apperrors.NotFound(c, apperrors.DeclarationNotFound, "Декларация не найдена")
		case errors.Is(err, service.ErrDeclarationFrozen):
			apperrors.Conflict(c, apperrors.DeclarationImmutable, "Декларация в неизменяемом статусе")
		default:
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Показатель обновлён"})
}

// Reports returns validation reports of a declaration
// GET /api/v1/declarations/:id/reports
func (ctrl *DeclarationController) Reports(c *gin.Context) {
	declarationID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	reports, err := ctrl.declService.Reports(declarationID)
	if err != nil {
		apperrors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

func (ctrl *DeclarationController) periodParams(c *gin.Context) (uint, int, bool) {
	taxpayerID, ok := parseIDParam(c, "id")
	if !ok {
		return 0, 0, false
	}
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year < 2000 || year > 2100 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "Неверный налоговый период")
		return 0, 0, false
	}
	return taxpayerID, year, true
}

func (ctrl *DeclarationController) respondEngineError(c *gin.Context, err error) {
	var unknownType *engine.UnknownEventTypeError
	switch {
	case errors.Is(err, engine.ErrEmptyEventSet):
		apperrors.Unprocessable(c, apperrors.RuleEmptyEventSet, "Нет событий за указанный период")
	case errors.As(err, &unknownType):
		apperrors.Conflict(c, apperrors.EventUnknownType, "Событие ссылается на неизвестный код")
	default:
		middleware.GetLoggerFromContext(c).Error("Engine run failed", err, nil)
		apperrors.InternalError(c, "")
	}
}
