package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/StyleAiLabs/lm-studio-api/internal/api/handlers"
)

func SetupRouter(
	chatHandler *handlers.ChatHandler,
	knowledgeHandler *handlers.KnowledgeHandler,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: func() string { return uuid.NewString() },
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-Tenant-Id",
	}))
	app.Use(logger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	api := app.Group("/api")
	api.Post("/completion", chatHandler.CreateCompletion)
	api.Post("/chat", chatHandler.CreateChatCompletion)

	knowledge := api.Group("/knowledge")
	knowledge.Post("/upload", knowledgeHandler.Upload)
	knowledge.Get("/status", knowledgeHandler.Status)
	knowledge.Post("/rebuild", knowledgeHandler.Rebuild)
	knowledge.Delete("/documents/:filename", knowledgeHandler.DeleteDocument)
	knowledge.Post("/scrape", knowledgeHandler.Scrape)

	app.Get("/debug/knowledge", knowledgeHandler.DebugQuery)

	return app
}
