package controller

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/salyqtech/salyq-backend/internal/errors"
	"github.com/salyqtech/salyq-backend/internal/app/model"
	"github.com/salyqtech/salyq-backend/internal/app/service"
)

type CatalogController struct {
	catalogService service.CatalogService
}

func NewCatalogController(catalogService service.CatalogService) *CatalogController {
	return &CatalogController{catalogService: catalogService}
}

// ListEventTypes — GET /api/v1/catalog/event-types
func (ctrl *CatalogController) ListEventTypes(c *gin.Context) {
	types, err := ctrl.catalogService.ListEventTypes()
	if err != nil {
		apperrors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"event_types": types})
}

// CreateEventType — POST /api/v1/catalog/event-types
func (ctrl *CatalogController) CreateEventType(c *gin.Context) {
	var et model.TaxEventType
	if err := c.ShouldBindJSON(&et); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Некорректные данные")
		return
	}
	if err := ctrl.catalogService.CreateEventType(&et); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, err.Error())
		return
	}
	c.JSON(http.StatusCreated, gin.H{"event_type": et})
}

// ListLogicalFields — GET /api/v1/catalog/logical-fields
func (ctrl *CatalogController) ListLogicalFields(c *gin.Context) {
	fields, err := ctrl.catalogService.ListLogicalFields()
	if err != nil {
		apperrors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"logical_fields": fields})
}

// CreateLogicalField — POST /api/v1/catalog/logical-fields
func (ctrl *CatalogController) CreateLogicalField(c *gin.Context) {
	var lf model.LogicalField
	if err := c.ShouldBindJSON(&lf); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Некорректные данные")
		return
	}
	if err := ctrl.catalogService.CreateLogicalField(&lf); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, err.Error())
		return
	}
	c.JSON(http.StatusCreated, gin.H{"logical_field": lf})
}

// ListRules — GET /api/v1/catalog/rules?year=2024
func (ctrl *CatalogController) ListRules(c *gin.Context) {
	year, err := strconv.Atoi(c.DefaultQuery("year", strconv.Itoa(time.Now().Year())))
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "Неверный год")
		return
	}
	rules, err := ctrl.catalogService.ListRulesForYear(year)
	if err != nil {
		apperrors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

// CreateRule — POST /api/v1/catalog/rules
func (ctrl *CatalogController) CreateRule(c *gin.Context) {
	var rule model.TaxRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Некорректные данные правила")
		return
	}
	if err := ctrl.catalogService.CreateRule(&rule); err != nil {
		apperrors.BadRequest(c, apperrors.RuleInvalidPayload, err.Error())
		return
	}
	c.JSON(http.StatusCreated, gin.H{"rule": rule})
}

// UpdateRule — PUT /api/v1/catalog/rules/:id
func (ctrl *CatalogController) UpdateRule(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var rule model.TaxRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Некорректные данные правила")
		return
	}
	rule.ID = id
	if err := ctrl.catalogService.UpdateRule(&rule); err != nil {
		apperrors.BadRequest(c, apperrors.RuleInvalidPayload, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"rule": rule})
}

// DeleteRule — DELETE /api/v1/catalog/rules/:id
func (ctrl *CatalogController) DeleteRule(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := ctrl.catalogService.DeleteRule(id); err != nil {
		if errors.Is(err, service.ErrRuleNotFound) {
			apperrors.NotFound(c, apperrors.RuleNotFound, "Правило не найдено")
			return
		}
		apperrors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Правило удалено"})
}

// ListFieldMaps — GET /api/v1/catalog/field-map?form=270.00
func (ctrl *CatalogController) ListFieldMaps(c *gin.Context) {
	form := c.DefaultQuery("form", "270.00")
	maps, err := ctrl.catalogService.ListFieldMaps(form)
	if err != nil {
		apperrors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"field_map": maps})
}

// CreateFieldMap — POST /api/v1/catalog/field-map
func (ctrl *CatalogController) CreateFieldMap(c *gin.Context) {
	var fm model.XmlFieldMap
	if err := c.ShouldBindJSON(&fm); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Некорректные данные")
		return
	}
	if err := ctrl.catalogService.CreateFieldMap(&fm); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, err.Error())
		return
	}
	c.JSON(http.StatusCreated, gin.H{"field_map": fm})
}
