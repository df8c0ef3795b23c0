package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"chatplatform/internal/ai"
	appsvc "chatplatform/internal/app"
	"chatplatform/internal/bootstrap"
	"chatplatform/internal/platform/rabbitmq"
	"chatplatform/internal/repository"
	"chatplatform/internal/transport/http/handler"
	"chatplatform/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	userRepo := repository.NewUserRepository(app.MySQL)
	externalUserRepo := repository.NewExternalUserRepository(app.MySQL)
	courseRepo := repository.NewCourseRepository(app.MySQL)
	documentRepo := repository.NewDocumentRepository(app.MySQL)
	presetRepo := repository.NewPresetRepository(app.MySQL)
	chatSessionRepo := repository.NewChatSessionRepository(app.MySQL)

	cfg := app.Config
	authService := appsvc.NewAuthService(
		userRepo,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
		time.Duration(cfg.Auth.ExternalTokenExpireHour)*time.Hour,
	)
	externalUserService := appsvc.NewExternalUserService(externalUserRepo)
	courseService := appsvc.NewCourseService(courseRepo)
	documentService := appsvc.NewDocumentService(documentRepo, courseRepo, app.ContentCache)
	presetService := appsvc.NewPresetService(presetRepo, courseRepo)
	sessionService := appsvc.NewSessionService(
		chatSessionRepo,
		ai.NewOpenAICompatibleClient(),
		documentService,
		presetService,
		cfg.LLM.BaseURL,
		cfg.LLM.APIKey,
		time.Duration(cfg.Chat.SessionLifetimeHours)*time.Hour,
		cfg.Chat.HistoryClearThreshold,
	)
	transcripts := rabbitmq.NewTranscriptPublisher(app.Broker, cfg.RabbitMQ.TranscriptQueue)
	transcriptService := appsvc.NewTranscriptService(
		courseRepo,
		repository.NewChannelMessageRepository(app.MySQL),
		cfg.RabbitMQ.ChannelQueuePrefix,
	)

	authHandler := handler.NewAuthHandler(authService)
	courseHandler := handler.NewCourseHandler(courseService)
	documentHandler := handler.NewDocumentHandler(documentService)
	presetHandler := handler.NewPresetHandler(presetService)
	transcriptHandler := handler.NewTranscriptHandler(transcriptService)
	wsHandler := handler.NewWebSocketHandler(
		authService,
		externalUserService,
		courseService,
		sessionService,
		app.Manager,
		transcripts,
	)

	router.GET("/ws/:token", wsHandler.Serve)

	v1 := router.Group("/api/v1")
	authJWT := middleware.AuthJWT(cfg.Auth.JWTSecret)

	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", authJWT, authHandler.Me)
	authGroup.POST("/external-token", authJWT, authHandler.ExternalToken)

	courseGroup := v1.Group("/courses")
	courseGroup.Use(authJWT)
	courseGroup.POST("", courseHandler.Create)
	courseGroup.GET("", courseHandler.List)
	courseGroup.GET("/:id", courseHandler.Get)
	courseGroup.PUT("/:id", courseHandler.Update)
	courseGroup.DELETE("/:id", courseHandler.Delete)
	courseGroup.POST("/:id/documents", documentHandler.Upload)
	courseGroup.GET("/:id/documents", documentHandler.List)
	courseGroup.GET("/:id/messages", transcriptHandler.History)
	courseGroup.GET("/:id/members", courseHandler.Members)

	documentGroup := v1.Group("/documents")
	documentGroup.Use(authJWT)
	documentGroup.DELETE("/:id", documentHandler.Delete)

	presetGroup := v1.Group("/presets")
	presetGroup.Use(authJWT)
	presetGroup.POST("", presetHandler.Create)
	presetGroup.GET("", presetHandler.List)
	presetGroup.GET("/:id", presetHandler.Get)
	presetGroup.PUT("/:id", presetHandler.Update)
	presetGroup.DELETE("/:id", presetHandler.Delete)

	v1.GET("/models", authJWT, presetHandler.Models)

	return router
}
