package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/pokevisor/pokevisor/app/repository"
	"github.com/pokevisor/pokevisor/internal/pkg/cache"
	"github.com/pokevisor/pokevisor/internal/pkg/capture"
	"github.com/pokevisor/pokevisor/internal/pkg/database"
	"github.com/pokevisor/pokevisor/internal/pkg/env"
	"github.com/pokevisor/pokevisor/internal/pkg/router"
	"github.com/pokevisor/pokevisor/internal/pkg/usage"
	"github.com/pokevisor/pokevisor/internal/pkg/vision"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	capture.Setup(context.Background())

	repository.SetGlobalFactory(repository.NewFactory(database.GetDB()))
	usage.SetGlobalService(usage.NewServiceFromDB(database.GetDB()))
	vision.SetGlobalClient(vision.NewClientFromEnv())

	// init fiber app
	app := fiber.New(fiber.Config{
		// Camera uploads arrive base64-encoded in JSON
		BodyLimit: 15 * 1024 * 1024,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}
