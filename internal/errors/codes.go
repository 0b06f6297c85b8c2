package errors

// Коды ошибок для фронтенда
// Формат: КАТЕГОРИЯ_ДЕТАЛЬ

const (
	// ==================== Аутентификация (AUTH_) ====================
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"        // требуется вход
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS" // неверный email/пароль
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"       // токен истёк
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"       // недействительный токен
	AuthTokenRevoked       = "AUTH_TOKEN_REVOKED"       // токен отозван
	AuthEmailAlreadyExists = "AUTH_EMAIL_EXISTS"        // email уже занят

	// ==================== Права доступа (AUTHZ_) ====================
	AuthzForbidden    = "AUTHZ_FORBIDDEN"      // нет доступа
	AuthzRoleNotFound = "AUTHZ_ROLE_NOT_FOUND" // роль не найдена
	AuthzAdminOnly    = "AUTHZ_ADMIN_ONLY"     // только для администратора

	// ==================== Валидация (VALIDATION_) ====================
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"  // неверный ввод
	ValidationInvalidID     = "VALIDATION_INVALID_ID"     // неверный идентификатор
	ValidationInvalidIIN    = "VALIDATION_INVALID_IIN"    // неверный ИИН
	ValidationInvalidFormat = "VALIDATION_INVALID_FORMAT" // неверный формат
	ValidationRequired      = "VALIDATION_REQUIRED"       // обязательное поле

	// ==================== Ресурсы (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"      // ресурс не найден
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS" // уже существует
	ResourceConflict      = "RESOURCE_CONFLICT"       // конфликт

	// ==================== Налогоплательщики (TAXPAYER_) ====================
	TaxpayerNotFound = "TAXPAYER_NOT_FOUND" // налогоплательщик не найден
	TaxpayerIINTaken = "TAXPAYER_IIN_TAKEN" // ИИН уже зарегистрирован

	// ==================== Источники данных (SOURCE_) ====================
	SourceNotFound       = "SOURCE_NOT_FOUND"       // источник не найден
	SourceDuplicate      = "SOURCE_DUPLICATE"       // повторная загрузка (checksum)
	SourceParseFailed    = "SOURCE_PARSE_FAILED"    // ошибка разбора данных
	SourceUnknownKind    = "SOURCE_UNKNOWN_KIND"    // неизвестный тип источника
	EventUnknownType     = "EVENT_UNKNOWN_TYPE"     // неизвестный код события
	EventStoreImmutable  = "EVENT_STORE_IMMUTABLE"  // события нельзя изменять

	// ==================== Справочник правил (RULE_) ====================
	RuleNotFound         = "RULE_NOT_FOUND"          // правило не найдено
	RuleInvalidPayload   = "RULE_INVALID_PAYLOAD"    // некорректные условия/действия
	RuleUnknownField     = "RULE_UNKNOWN_FIELD"      // неизвестное логическое поле
	RuleEngineFailed     = "RULE_ENGINE_FAILED"      // сбой расчёта
	RuleEmptyEventSet    = "RULE_EMPTY_EVENT_SET"    // нет событий за период

	// ==================== Декларации (DECL_) ====================
	DeclarationNotFound   = "DECL_NOT_FOUND"         // декларация не найдена
	DeclarationImmutable  = "DECL_IMMUTABLE"         // статус запрещает изменение
	DeclarationBadStatus  = "DECL_INVALID_TRANSITION" // недопустимый переход статуса
	DeclarationNoItems    = "DECL_NO_ITEMS"          // нет рассчитанных показателей
	DeclarationNotValid   = "DECL_NOT_VALIDATED"     // требуется проверка
	ConsentCodeInvalid    = "CONSENT_CODE_INVALID"   // неверный код подтверждения
	ConsentCodeExpired    = "CONSENT_CODE_EXPIRED"   // код истёк
	ConsentAttemptsSpent  = "CONSENT_ATTEMPTS_SPENT" // попытки исчерпаны

	// ==================== XML-выгрузка (XML_) ====================
	XmlNotFound        = "XML_NOT_FOUND"        // выгрузка не найдена
	XmlStructureBroken = "XML_STRUCTURE_BROKEN" // структурная самопроверка не прошла

	// ==================== Внутренние ошибки (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"   // ошибка сервера
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR" // ошибка БД
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"   // ошибка внешнего API
)
