package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/fami1212/modern-e-library-hub/api/routes"
	"github.com/fami1212/modern-e-library-hub/internal/auth"
	"github.com/fami1212/modern-e-library-hub/internal/books"
	"github.com/fami1212/modern-e-library-hub/internal/borrowings"
	"github.com/fami1212/modern-e-library-hub/internal/favorites"
	"github.com/fami1212/modern-e-library-hub/internal/messaging"
	"github.com/fami1212/modern-e-library-hub/internal/reading"
	"github.com/fami1212/modern-e-library-hub/internal/reviews"
	"github.com/fami1212/modern-e-library-hub/internal/stats"
	"github.com/fami1212/modern-e-library-hub/internal/users"
	"github.com/fami1212/modern-e-library-hub/pkg/auth/session"
	"github.com/fami1212/modern-e-library-hub/pkg/config"
	"github.com/fami1212/modern-e-library-hub/pkg/db"
	"github.com/fami1212/modern-e-library-hub/pkg/logger"
	"github.com/fami1212/modern-e-library-hub/pkg/migrate"
	"github.com/fami1212/modern-e-library-hub/pkg/redis"
	"github.com/fami1212/modern-e-library-hub/pkg/storage/gcs"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	var storageClient *gcs.Client
	if cfg.Storage.BucketName != "" {
		storageClient, err = gcs.NewClient(context.Background(), cfg.Storage, cfg.GCP, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap object storage", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "object storage not configured, upload endpoints disabled")
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	usersRepo := users.NewRepository(dbClient.DB())
	booksRepo := books.NewRepository(dbClient.DB())
	borrowingsRepo := borrowings.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UsersRepo:   usersRepo,
		Tx:          dbClient,
		Session:     sessionManager,
		JWTConfig:   cfg.JWT,
		PasswordCfg: cfg.Password,
		App:         cfg.App,
		Features:    cfg.Features,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	usersService, err := users.NewService(usersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	var signer books.ObjectSigner
	if storageClient != nil {
		signer = storageClient
	}
	booksService, err := books.NewService(books.ServiceParams{
		Repo:    booksRepo,
		Storage: signer,
		Config:  cfg.Storage,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create books service", err)
		os.Exit(1)
	}

	borrowingsService, err := borrowings.NewService(borrowings.ServiceParams{
		Repo:      borrowingsRepo,
		BooksRepo: booksRepo,
		Ledger:    books.NewLedger(),
		Tx:        dbClient,
		Lending:   cfg.Lending,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create borrowings service", err)
		os.Exit(1)
	}

	favoritesService, err := favorites.NewService(favorites.ServiceParams{
		Repo:      favorites.NewRepository(dbClient.DB()),
		BooksRepo: booksRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create favorites service", err)
		os.Exit(1)
	}

	reviewsService, err := reviews.NewService(reviews.ServiceParams{
		Repo:      reviews.NewRepository(dbClient.DB()),
		BooksRepo: booksRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reviews service", err)
		os.Exit(1)
	}

	messagingService, err := messaging.NewService(messaging.ServiceParams{
		Repo: messaging.NewRepository(dbClient.DB()),
		Tx:   dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create messaging service", err)
		os.Exit(1)
	}

	readingService, err := reading.NewService(reading.ServiceParams{
		Repo:      reading.NewRepository(dbClient.DB()),
		BooksRepo: booksRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reading service", err)
		os.Exit(1)
	}

	statsService, err := stats.NewService(stats.ServiceParams{
		Repo:           stats.NewRepository(dbClient.DB()),
		BooksRepo:      booksRepo,
		BorrowingsRepo: borrowingsRepo,
		UsersRepo:      usersRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stats service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	healthDeps := routes.HealthDeps{DB: dbClient, Redis: redisClient}
	if storageClient != nil {
		healthDeps.Storage = storageClient
	}

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(cfg, logg, healthDeps, redisClient, routes.Services{
			Session:    sessionManager,
			Auth:       authService,
			Users:      usersService,
			Books:      booksService,
			Borrowings: borrowingsService,
			Favorites:  favoritesService,
			Reviews:    reviewsService,
			Messaging:  messagingService,
			Reading:    readingService,
			Stats:      statsService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
