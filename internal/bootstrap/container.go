package bootstrap

import (
	"log"

	"github.com/ThreeDotsLabs/watermill"

	"ai-docchat-be/internal/config"
	"ai-docchat-be/internal/constant"
	"ai-docchat-be/internal/controller"
	"ai-docchat-be/internal/events"
	"ai-docchat-be/internal/pkg/logger"
	"ai-docchat-be/internal/repository/memory"
	"ai-docchat-be/internal/service"
	"ai-docchat-be/internal/websocket"
	"ai-docchat-be/pkg/credential"
	embeddingazure "ai-docchat-be/pkg/embedding/azure"
	llmazure "ai-docchat-be/pkg/llm/azure"
	"ai-docchat-be/pkg/rag"
	"ai-docchat-be/pkg/resilient"
	"ai-docchat-be/pkg/vectorindex"
)

type Container struct {
	ChatController controller.IChatController

	// WebSocket routing (run by main)
	WebSocketHub *websocket.Hub

	Logger logger.ILogger
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	bus := events.NewBus(watermill.NewStdLogger(false, false))
	notifier := events.NewBusNotifier(bus)

	// 3. Upstream credentials
	var creds credential.Provider
	if cfg.Auth.Mode == constant.AuthModeBearer {
		creds = credential.NewBearerProvider(
			cfg.Auth.TokenURL,
			cfg.Auth.ClientID,
			cfg.Auth.ClientSecret,
			cfg.Auth.Scope,
			cfg.Auth.TokenRefreshInterval,
		)
		log.Printf("[INFO] Using Azure AD bearer token auth (refresh every %s)", cfg.Auth.TokenRefreshInterval)
	} else {
		creds = credential.NewStaticKeyProvider(cfg.Auth.APIKey)
		log.Printf("[INFO] Using API key auth")
	}

	// 4. Upstream providers, wrapped with the retry policy
	policy := resilient.NewRetryPolicy(cfg.Retry.MaxAttempts, cfg.Retry.BackoffBase)

	chatProvider := llmazure.NewProvider(
		cfg.OpenAI.BaseURL,
		cfg.OpenAI.APIVersion,
		cfg.OpenAI.ChatDeployment,
		cfg.OpenAI.Temperature,
		creds,
		cfg.OpenAI.Timeout,
	)
	chatClient := resilient.NewChatClient(chatProvider, policy)

	embedProvider := embeddingazure.NewProvider(
		cfg.OpenAI.BaseURL,
		cfg.OpenAI.APIVersion,
		cfg.OpenAI.EmbeddingDeployment,
		creds,
		cfg.OpenAI.Timeout,
	)
	embedClient := resilient.NewEmbedClient(embedProvider, policy)

	// 5. RAG pipeline
	builder := vectorindex.NewBuilder(embedClient, cfg.Ingest.EmbeddingBatchSize)
	engine := rag.NewEngine(chatClient, cfg.Ingest.TopK, cfg.App.Debug)

	// 6. Session storage
	sessionRepo := memory.NewSessionRepository()

	// 7. Services
	chatService := service.NewChatService(sessionRepo, chatClient, engine, notifier, cfg, sysLogger)
	ingestService := service.NewIngestService(builder, notifier, sessionRepo, cfg, sysLogger)

	// 8. WebSocket hub; disconnect tears the session down
	hub := websocket.NewHub(bus, sysLogger, chatService.EndSession)

	// 9. Controllers
	chatController := controller.NewChatController(chatService, ingestService, hub)

	return &Container{
		ChatController: chatController,
		WebSocketHub:   hub,
		Logger:         sysLogger,
	}
}
