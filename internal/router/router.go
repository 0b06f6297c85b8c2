package router

import (
	"github.com/gin-gonic/gin"
	"github.com/salyqtech/salyq-backend/config"
	"github.com/salyqtech/salyq-backend/internal/app/controller"
	"github.com/salyqtech/salyq-backend/internal/middleware"
)

type Router struct {
	authController        *controller.AuthController
	taxpayerController    *controller.TaxpayerController
	ingestController      *controller.IngestController
	declarationController *controller.DeclarationController
	exportController      *controller.ExportController
	catalogController     *controller.CatalogController
	authMiddleware        *middleware.AuthMiddleware
	config                *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	taxpayerController *controller.TaxpayerController,
	ingestController *controller.IngestController,
	declarationController *controller.DeclarationController,
	exportController *controller.ExportController,
	catalogController *controller.CatalogController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:        authController,
		taxpayerController:    taxpayerController,
		ingestController:      ingestController,
		declarationController: declarationController,
		exportController:      exportController,
		catalogController:     catalogController,
		authMiddleware:        authMiddleware,
		config:                cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"message": "SALYQ API is running",
		})
	})

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authController.Register)
			auth.POST("/login", r.authController.Login)
			auth.POST("/logout", r.authMiddleware.Authenticate(), r.authController.Logout)
			auth.GET("/me", r.authMiddleware.Authenticate(), r.authController.GetMe)
		}

		taxpayers := v1.Group("/taxpayers")
		taxpayers.Use(r.authMiddleware.Authenticate())
		{
			taxpayers.GET("", r.taxpayerController.ListTaxpayers)
			taxpayers.POST("", r.taxpayerController.CreateTaxpayer)
			taxpayers.GET("/:id", r.taxpayerController.GetTaxpayer)
			taxpayers.PUT("/:id", r.taxpayerController.UpdateTaxpayer)

			taxpayers.GET("/:id/sources", r.ingestController.ListSources)
			taxpayers.POST("/:id/sources", r.ingestController.Ingest)

			taxpayers.POST("/:id/declarations/:year/run", r.declarationController.RunEngine)
			taxpayers.POST("/:id/declarations/:year/generate", r.declarationController.Generate)
		}

		sources := v1.Group("/sources")
		sources.Use(r.authMiddleware.Authenticate())
		{
			sources.POST("/:id/parse", r.ingestController.Parse)
			sources.POST("/:id/reparse", r.ingestController.Reparse)
		}

		declarations := v1.Group("/declarations")
		declarations.Use(r.authMiddleware.Authenticate())
		{
			declarations.GET("/:id", r.declarationController.GetDeclaration)
			declarations.POST("/:id/validate", r.declarationController.Validate)
			declarations.POST("/:id/transition", r.declarationController.Transition)
			declarations.POST("/:id/consent/request", r.declarationController.RequestConsent)
			declarations.POST("/:id/consent/confirm", r.declarationController.ConfirmConsent)
			declarations.PUT("/:id/items", r.declarationController.SetItem)
			declarations.GET("/:id/reports", r.declarationController.Reports)

			declarations.POST("/:id/xml", r.exportController.ProjectXML)
			declarations.GET("/:id/xml", r.exportController.ListVersions)
		}

		exports := v1.Group("/exports")
		exports.Use(r.authMiddleware.Authenticate())
		{
			exports.GET("/:id", r.exportController.GetExport)
		}

		catalog := v1.Group("/catalog")
		catalog.Use(r.authMiddleware.Authenticate())
		{
			catalog.GET("/event-types", r.catalogController.ListEventTypes)
			catalog.GET("/logical-fields", r.catalogController.ListLogicalFields)
			catalog.GET("/rules", r.catalogController.ListRules)
			catalog.GET("/field-map", r.catalogController.ListFieldMaps)

			admin := catalog.Group("")
			admin.Use(r.authMiddleware.RequireRole("admin"))
			{
				admin.POST("/event-types", r.catalogController.CreateEventType)
				admin.POST("/logical-fields", r.catalogController.CreateLogicalField)
				admin.POST("/rules", r.catalogController.CreateRule)
				admin.PUT("/rules/:id", r.catalogController.UpdateRule)
				admin.DELETE("/rules/:id", r.catalogController.DeleteRule)
				admin.POST("/field-map", r.catalogController.CreateFieldMap)
			}
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
