package router

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opaq-social/backend/internal/handlers"
	"github.com/opaq-social/backend/internal/middleware"
	"github.com/opaq-social/backend/internal/models"
	"github.com/opaq-social/backend/internal/repositories"
	"github.com/opaq-social/backend/pkg/aiclient"
	"github.com/opaq-social/backend/pkg/config"
	"github.com/opaq-social/backend/pkg/mailer"
	"github.com/opaq-social/backend/pkg/storeweb"
	"github.com/opaq-social/backend/pkg/websearch"
)

// Clients bundles the outbound API clients the handlers depend on
type Clients struct {
	AI      *aiclient.Client
	Search  *websearch.Client
	Storage *storeweb.Client
	Mail    *mailer.Client
}

// SetupRoutes wires repositories, handlers and middleware onto the Echo
// instance and prepares the storage schema (Postgres migrations, Mongo
// indexes)
func SetupRoutes(e *echo.Echo, cfg *config.Config, db *config.DB, clients *Clients) error {
	if err := db.Postgres.AutoMigrate(&models.User{}, &models.Pitch{}, &models.PitchInteraction{}); err != nil {
		return err
	}

	mongoDB := db.Mongo.Database(cfg.MongoDatabase)

	userRepo := repositories.NewPostgresUserRepository(db.Postgres)
	pitchRepo := repositories.NewPostgresPitchRepository(db.Postgres)
	postRepo := repositories.NewMongoPostRepository(mongoDB)
	postInteractionRepo := repositories.NewMongoPostInteractionRepository(mongoDB)
	discussionRepo := repositories.NewMongoDiscussionRepository(mongoDB)
	discussionInteractionRepo := repositories.NewMongoDiscussionInteractionRepository(mongoDB)
	manifestRepo := repositories.NewMongoManifestRepository(mongoDB)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := postInteractionRepo.EnsureIndexes(ctx); err != nil {
		return err
	}
	if err := discussionRepo.EnsureIndexes(ctx); err != nil {
		return err
	}
	if err := discussionInteractionRepo.EnsureIndexes(ctx); err != nil {
		return err
	}

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.Metrics())

	e.GET("/health", handlers.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	api.Use(middleware.SessionAuth(cfg.SessionCookie, cfg.JWTSecret))

	authHandler := handlers.NewAuthHandler(userRepo, cfg.JWTSecret, cfg.SessionCookie)
	userHandler := handlers.NewUserHandler(userRepo)
	postHandler := handlers.NewPostHandler(postRepo, postInteractionRepo, discussionRepo, discussionInteractionRepo, userRepo)
	postInteractionHandler := handlers.NewPostInteractionHandler(postInteractionRepo, postRepo, discussionRepo)
	discussionHandler := handlers.NewDiscussionHandler(discussionRepo, discussionInteractionRepo, postRepo, userRepo)
	pitchHandler := handlers.NewPitchHandler(pitchRepo, clients.Storage, clients.Mail, db.Redis, cfg.JWTSecret)
	manifestHandler := handlers.NewManifestHandler(manifestRepo, clients.AI, clients.Search)

	authHandler.RegisterAuthRoutes(api)
	userHandler.RegisterProfileRoutes(api)
	postHandler.RegisterPostRoutes(api)
	postInteractionHandler.RegisterPostInteractionRoutes(api)
	discussionHandler.RegisterDiscussionRoutes(api)
	pitchHandler.RegisterPitchRoutes(api)
	manifestHandler.RegisterManifestRoutes(api)

	return nil
}
