package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/mandoubi-api/internal/application/auth"
	"github.com/jhoicas/mandoubi-api/internal/application/catalogue"
	"github.com/jhoicas/mandoubi-api/internal/application/gate"
	"github.com/jhoicas/mandoubi-api/internal/application/members"
	"github.com/jhoicas/mandoubi-api/internal/application/realtime"
	appsales "github.com/jhoicas/mandoubi-api/internal/application/sales"
	"github.com/jhoicas/mandoubi-api/internal/application/session"
	"github.com/jhoicas/mandoubi-api/internal/domain/entity"
	infrapdf "github.com/jhoicas/mandoubi-api/internal/infrastructure/pdf"
	"github.com/jhoicas/mandoubi-api/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/mandoubi-api/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/mandoubi-api/internal/interfaces/http"
	"github.com/jhoicas/mandoubi-api/pkg/config"
	"github.com/jhoicas/mandoubi-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("tz", cfg.App.Timezone.String()).
		Msg("iniciando aplicación")
	if cfg.Access.AdminUserID == "" {
		log.Warn().Msg("ACCESS_ADMIN_USER_ID vacío: ningún perfil nuevo se aprovisiona como admin")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	redisClient, err := infraredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a Redis")
	}
	defer redisClient.Close()

	// Cambios de colección vía LISTEN/NOTIFY
	notifier := postgres.NewNotifier(pool, log.Component("notifier")).WithRetryDelay(cfg.Realtime.RetryDelay)
	go func() {
		if err := notifier.Run(ctx); err != nil {
			log.Error().Err(err).Msg("notifier finalizado")
		}
	}()

	userRepo := postgres.NewUserRepository(pool)
	accountRepo := postgres.NewAccountRepository(pool)
	saleRepo := postgres.NewSaleRepository(pool)
	itemRepo := postgres.NewItemRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	registry := session.NewRegistry()
	sessionUC := session.NewUseCase(userRepo, registry, cfg.Access.AdminUserID, cfg.Access.AuthLoadTimeout, log.Component("session"))

	passwordGate := gate.New(gate.Config{
		Enabled:           cfg.Gate.Enabled,
		EditPasswordHash:  cfg.Gate.EditPasswordHash,
		PricePasswordHash: cfg.Gate.PricePasswordHash,
	}, infraredis.NewGateStore(redisClient), log.Component("gate"))

	salesMirror := realtime.NewMirror[*entity.Sale](appsales.Collection, notifier, cfg.Realtime.LoadTimeout, log.Component("sales-mirror"))
	itemsMirror := realtime.NewMirror[*entity.Item](catalogue.Collection, notifier, cfg.Realtime.LoadTimeout, log.Component("items-mirror"))

	salesUC := appsales.NewUseCase(
		saleRepo, txRunner, userRepo, passwordGate,
		infrapdf.NewMarotoPDFGenerator(cfg.App.Timezone),
		salesMirror,
		appsales.Config{
			ExchangeRate: cfg.Currency.ExchangeRate,
			Location:     cfg.App.Timezone,
			FanOut:       cfg.App.FanOut,
		},
		log.Component("sales"),
	)
	catalogueUC := catalogue.NewUseCase(itemRepo, itemsMirror, cfg.Currency.ExchangeRate)
	membersUC := members.NewUseCase(userRepo, accountRepo, cfg.App.FanOut, log.Component("members"))
	authUC := auth.NewAuthUseCase(accountRepo, sessionUC, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	// Sesiones inactivas: se descarta su selección del folleto y su latch
	go func() {
		tick := time.NewTicker(10 * time.Minute)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-tick.C:
				if n := registry.Sweep(now.Add(-cfg.Access.SessionIdleTTL)); n > 0 {
					log.Info().Int("sessions", n).Msg("sesiones inactivas descartadas")
				}
			}
		}
	}()

	app := fiber.New(fiber.Config{
		AppName:     cfg.App.Name,
		ReadTimeout: time.Second * 10,
		// Sin WriteTimeout: los streams SSE viven mientras el cliente siga conectado.
		IdleTimeout: time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Mandoubi API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "sessions": registry.Len()})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:      authUC,
		Sessions:    sessionUC,
		SalesUC:     salesUC,
		CatalogueUC: catalogueUC,
		MembersUC:   membersUC,
		JWTSecret:   cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
