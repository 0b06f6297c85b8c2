package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo код + сообщение для пользователя
type ErrorInfo struct {
	Code    string
	Message string
}

// ParseError переводит ошибку хранилища в код и безопасное сообщение.
// Детали SQL не раскрываются наружу.
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Code:    InternalServerError,
			Message: "Ошибка сервера",
		}
	}

	errStr := err.Error()
	errStrLower := strings.ToLower(errStr)

	// 1. GORM
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{
			Code:    ResourceNotFound,
			Message: getNotFoundMessage(context),
		}
	}

	// 2. PostgreSQL

	// 2-1. Unique constraint (23505)
	if strings.Contains(errStrLower, "duplicate key") || strings.Contains(errStrLower, "unique constraint") {
		return parseDuplicateKeyError(errStr)
	}

	// 2-2. Foreign key constraint (23503)
	if strings.Contains(errStrLower, "foreign key constraint") {
		return parseForeignKeyError(errStr)
	}

	// 2-3. Not null constraint (23502)
	if strings.Contains(errStrLower, "null value") && strings.Contains(errStrLower, "violates not-null constraint") {
		return ErrorInfo{
			Code:    ValidationRequired,
			Message: "Обязательное поле не заполнено",
		}
	}

	// 3. Сетевые ошибки
	if strings.Contains(errStrLower, "connection refused") ||
		strings.Contains(errStrLower, "no such host") ||
		strings.Contains(errStrLower, "timeout") {
		return ErrorInfo{
			Code:    InternalExternalAPI,
			Message: "Внешний сервис недоступен. Повторите попытку позже",
		}
	}

	return ErrorInfo{
		Code:    InternalServerError,
		Message: "Ошибка сервера. Повторите попытку позже",
	}
}

func parseDuplicateKeyError(errStr string) ErrorInfo {
	errLower := strings.ToLower(errStr)

	// повторная загрузка того же файла
	if strings.Contains(errLower, "checksum") || strings.Contains(errLower, "idx_source_records_checksum") {
		return ErrorInfo{
			Code:    SourceDuplicate,
			Message: "Эти данные уже были загружены",
		}
	}

	// ИИН уже зарегистрирован
	if strings.Contains(errLower, "iin") || strings.Contains(errLower, "idx_taxpayers_iin") {
		return ErrorInfo{
			Code:    TaxpayerIINTaken,
			Message: "Налогоплательщик с таким ИИН уже зарегистрирован",
		}
	}

	// декларация за период уже есть
	if strings.Contains(errLower, "declarations") || strings.Contains(errLower, "idx_declarations_period") {
		return ErrorInfo{
			Code:    ResourceAlreadyExists,
			Message: "Декларация за этот период уже существует",
		}
	}

	// email занят
	if strings.Contains(errLower, "email") || strings.Contains(errLower, "idx_users_email") {
		return ErrorInfo{
			Code:    AuthEmailAlreadyExists,
			Message: "Этот email уже используется",
		}
	}

	return ErrorInfo{
		Code:    ResourceAlreadyExists,
		Message: "Такие данные уже существуют",
	}
}

func parseForeignKeyError(errStr string) ErrorInfo {
	errLower := strings.ToLower(errStr)

	if strings.Contains(errLower, "still referenced") || strings.Contains(errLower, "is still referenced by") {
		return ErrorInfo{
			Code:    ResourceConflict,
			Message: "Есть связанные данные, удаление невозможно",
		}
	}

	if strings.Contains(errLower, "taxpayer_id") || strings.Contains(errLower, "fk_taxpayers") {
		return ErrorInfo{
			Code:    TaxpayerNotFound,
			Message: "Налогоплательщик не найден",
		}
	}
	if strings.Contains(errLower, "event_type") || strings.Contains(errLower, "fk_tax_event_types") {
		return ErrorInfo{
			Code:    EventUnknownType,
			Message: "Неизвестный код налогового события",
		}
	}
	if strings.Contains(errLower, "logical_field") || strings.Contains(errLower, "fk_logical_fields") {
		return ErrorInfo{
			Code:    RuleUnknownField,
			Message: "Неизвестное логическое поле",
		}
	}

	return ErrorInfo{
		Code:    ResourceNotFound,
		Message: "Связанные данные не найдены",
	}
}

func getNotFoundMessage(context string) string {
	contextLower := strings.ToLower(context)

	if strings.Contains(contextLower, "taxpayer") {
		return "Налогоплательщик не найден"
	}
	if strings.Contains(contextLower, "declaration") {
		return "Декларация не найдена"
	}
	if strings.Contains(contextLower, "source") {
		return "Источник данных не найден"
	}
	if strings.Contains(contextLower, "rule") {
		return "Правило не найдено"
	}
	if strings.Contains(contextLower, "export") || strings.Contains(contextLower, "xml") {
		return "XML-выгрузка не найдена"
	}
	if strings.Contains(contextLower, "user") {
		return "Пользователь не найден"
	}

	return "Запрошенные данные не найдены"
}
