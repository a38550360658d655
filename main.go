package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/stampcard-app/stampcard/cmd"
	"github.com/stampcard-app/stampcard/stampcard"
	"github.com/stampcard-app/stampcard/stampcard/auth"
	"github.com/stampcard-app/stampcard/stampcard/database"
	"github.com/stampcard-app/stampcard/stampcard/database/repositories"
	"github.com/stampcard-app/stampcard/stampcard/logger"
	"github.com/stampcard-app/stampcard/stampcard/services"
	"github.com/stampcard-app/stampcard/stampcard/web/handlers"
	"github.com/stampcard-app/stampcard/stampcard/web/middleware"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	customHandler := logger.NewHandler("StampCard")
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting StampCard API",
		slog.String("version", version),
		slog.String("commit", commit))

	// Maintenance subcommands (migrate) take over before server flags.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		cmd.Execute()
		return
	}

	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := stampcard.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}
	customHandler.SetLevel(cfg.Log.Level)
	slog.Info("Configuration loaded successfully")

	slog.Info("Initializing database connection...")
	dbStartTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbConfig := database.DBConfig{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		Database: cfg.DB.Database,
		PoolSize: cfg.DB.PoolSize,
	}

	db, err := database.New(ctx, dbConfig)
	if err != nil {
		logger.LogError("Database connection failed", err,
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}

	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Schema initialization failed", slog.Any("error", err))
		os.Exit(-1)
	}

	slog.Info("Database connected successfully",
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStartTime)))

	programRepo := repositories.NewProgramRepository(db.BunDB())
	membershipRepo := repositories.NewMembershipRepository(db.BunDB())

	var verifier auth.Verifier
	switch cfg.Auth.Provider {
	case "twilio":
		verifier = auth.NewTwilioVerifier(
			cfg.Auth.TwilioBaseURL,
			cfg.Auth.TwilioAccountSID,
			cfg.Auth.TwilioAuthToken,
			cfg.Auth.TwilioVerifySID,
		)
	default:
		slog.Warn("Using in-memory verification provider; codes are logged, not sent")
		verifier = auth.NewMemoryVerifier()
	}

	session := auth.NewSession(verifier, cfg.Auth.SessionSecret, time.Duration(cfg.Auth.SessionTTLHours)*time.Hour)

	adminPhones := make(map[string]bool, len(cfg.Auth.AdminPhones))
	for _, phone := range cfg.Auth.AdminPhones {
		adminPhones[phone] = true
	}

	var spacesService *services.SpacesService
	if cfg.Spaces.Key != "" {
		spacesService = services.NewSpacesService(
			cfg.Spaces.Key,
			cfg.Spaces.Secret,
			cfg.Spaces.Region,
			cfg.Spaces.Bucket,
			cfg.Spaces.ImageRoot,
		)
	}

	webApp := &handlers.WebApp{
		DB:             db,
		Session:        session,
		ProgramRepo:    programRepo,
		MembershipRepo: membershipRepo,
		Registration:   services.NewRegistrationService(programRepo, membershipRepo),
		Checkin:        services.NewCheckinService(programRepo, membershipRepo),
		Redemption:     services.NewRedemptionService(membershipRepo),
		Search:         services.NewSearchService(programRepo),
		Spaces:         spacesService,
		AdminPhones:    adminPhones,
		Version:        version,
		Commit:         commit,
	}

	app := fiber.New(fiber.Config{
		AppName:      "StampCard API",
		ServerHeader: "StampCard",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	app.Use(recover.New())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(middleware.LoggingMiddleware())

	setupRoutes(app, webApp)

	// Log auth state transitions for operational visibility.
	authStream, cancelSub := session.Subscribe()
	defer cancelSub()
	go func() {
		for user := range authStream {
			if user != nil {
				slog.Info("Auth state changed: signed in",
					slog.String("type", "auth"),
					slog.String("user_id", user.ID))
			} else {
				slog.Info("Auth state changed: signed out",
					slog.String("type", "auth"))
			}
		}
	}()

	address := cfg.Server.Addr()
	logger.LogSystem("Starting server", slog.String("address", address))

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := app.Listen(address); err != nil {
			slog.Error("Failed to start server", slog.String("error", err.Error()))
		}
	}()

	<-c
	logger.LogSystem("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", slog.String("error", err.Error()))
	}

	db.Close()
	logger.LogSystem("Server shutdown complete")
}

// setupRoutes configures all application routes
func setupRoutes(app *fiber.App, webApp *handlers.WebApp) {
	app.Get("/health", handlers.HealthCheck(webApp))

	api := app.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Post("/start", handlers.StartVerification(webApp))
	authGroup.Post("/verify", handlers.ConfirmCode(webApp))
	authGroup.Post("/signout", handlers.SignOut(webApp))

	api.Get("/programs/search", handlers.SearchPrograms(webApp))

	memberships := api.Group("/memberships")
	memberships.Use(middleware.AuthRequired(webApp))
	memberships.Get("/", handlers.ListMemberships(webApp))
	memberships.Post("/", handlers.RegisterMembership(webApp))
	memberships.Post("/:id/checkin", handlers.Checkin(webApp))
	memberships.Delete("/:id", handlers.Redeem(webApp))

	admin := app.Group("/admin")
	admin.Use(middleware.AuthRequired(webApp))
	admin.Use(middleware.AdminRequired(webApp))
	admin.Post("/programs", handlers.ProgramsCreate(webApp))
	admin.Delete("/programs/:id", handlers.ProgramsDelete(webApp))
	admin.Post("/programs/:id/image", handlers.ProgramsUploadImage(webApp))
}
