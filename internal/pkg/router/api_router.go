package router

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/pokevisor/pokevisor/app/controllers"
	"github.com/pokevisor/pokevisor/internal/pkg/cache"
	"github.com/pokevisor/pokevisor/internal/pkg/identity"
	"github.com/pokevisor/pokevisor/internal/pkg/middleware"
	"github.com/pokevisor/pokevisor/internal/pkg/oauth"
	"github.com/pokevisor/pokevisor/internal/pkg/session"
)

type ApiRouter struct {
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	// init session store and oauth providers before any route runs
	session.NewSessionStore()
	oauth.Setup()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware())

	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Storage:    limiterStorage(),
		KeyGenerator: func(c *fiber.Ctx) string {
			return identity.ClientIP(c)
		},
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")

	v1.Post("/identify", controllers.HandleIdentify)

	v1.Get("/pokemon/list", controllers.HandleListPokemon)
	v1.Post("/pokemon/describe", controllers.HandleDescribe)
	v1.Get("/pokemon/:name", controllers.HandleGetPokemon)

	v1.Get("/user/usage", controllers.HandleGetUsage)
	v1.Get("/user/plan", controllers.HandleGetPlan)
	v1.Get("/user/pokedex", middleware.RequireAPISessionAuth, controllers.HandleGetPokedex)

	v1.Post("/billing/checkout", middleware.RequireAPISessionAuth, controllers.HandleCreateCheckout)
	v1.Post("/billing/webhook", controllers.HandleBillingWebhook)

	v1.Post("/auth/register", controllers.HandleRegister)
	v1.Post("/auth/login", controllers.HandleLogin)
	v1.Post("/auth/logout", controllers.HandleLogout)
	v1.Get("/auth/:provider", gothfiber.BeginAuthHandler)
	v1.Get("/auth/:provider/callback", controllers.HandleOAuthCallback)
}

// limiterStorage keeps rate-limit counters in Redis so limits hold across
// instances. Falls back to the in-memory default when no cache is configured.
func limiterStorage() fiber.Storage {
	client := cache.GetClient()
	if client == nil {
		return nil
	}
	opts := client.Options()
	host, port := "127.0.0.1", 6379
	if h, p, err := net.SplitHostPort(opts.Addr); err == nil {
		host = h
		if parsed, e := strconv.Atoi(p); e == nil {
			port = parsed
		}
	} else if opts.Addr != "" {
		host = opts.Addr
	}
	return redisstorage.New(redisstorage.Config{
		Host:     host,
		Port:     port,
		Password: opts.Password,
		Database: 3,
	})
}
