package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fami1212/modern-e-library-hub/api/controllers"
	"github.com/fami1212/modern-e-library-hub/api/middleware"
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
	"github.com/fami1212/modern-e-library-hub/pkg/logger"
	"github.com/fami1212/modern-e-library-hub/pkg/redis"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles everything the router mounts.
type Services struct {
	Session    session.AccessSessionChecker
	Auth       auth.Service
	Users      users.Service
	Books      books.Service
	Borrowings borrowings.Service
	Favorites  favorites.Service
	Reviews    reviews.Service
	Messaging  messaging.Service
	Reading    reading.Service
	Stats      stats.Service
}

// HealthDeps lists the dependencies the readiness probe pings.
type HealthDeps struct {
	DB      pinger
	Redis   pinger
	Storage pinger
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	health HealthDeps,
	redisClient *redis.Client,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, healthPingers(health)))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(svcs.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(svcs.Auth, logg))
		r.With(middleware.Auth(cfg.JWT, svcs.Session, logg)).Post("/logout", controllers.AuthLogout(svcs.Auth, logg))
	})

	// The service refuses admin bootstrap outside dev regardless of routing.
	if !cfg.App.IsProd() {
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).
			Post("/api/admin/v1/auth/register", controllers.AuthRegisterAdmin(svcs.Auth, logg))
	}

	authenticated := middleware.Auth(cfg.JWT, svcs.Session, logg)
	adminOnly := middleware.RequireAdmin(logg)

	r.Route("/api/v1/books", func(r chi.Router) {
		// Public catalog surface.
		r.Get("/", controllers.BookList(svcs.Books, logg))
		r.Get("/{bookId}", controllers.BookDetail(svcs.Books, logg))
		r.Get("/{bookId}/reviews", controllers.ReviewListForBook(svcs.Reviews, logg))
		r.Get("/{bookId}/reviews/summary", controllers.ReviewSummary(svcs.Reviews, logg))

		// Publishing is open to any authenticated member; edits and
		// deletes authorize per book (owner or staff) in the service.
		r.Group(func(r chi.Router) {
			r.Use(authenticated)
			r.Post("/", controllers.BookCreate(svcs.Books, logg))
			r.Patch("/{bookId}", controllers.BookUpdate(svcs.Books, logg))
			r.Delete("/{bookId}", controllers.BookDelete(svcs.Books, logg))
			r.Post("/{bookId}/borrow", controllers.BorrowingCreateForBook(svcs.Borrowings, logg))
			r.Put("/{bookId}/reviews", controllers.ReviewSubmit(svcs.Reviews, logg))
			r.Get("/{bookId}/read-url", controllers.BookPDFReadURL(svcs.Books, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authenticated)

		r.Route("/users", func(r chi.Router) {
			r.Get("/me", controllers.ProfileMe(svcs.Users, logg))
			r.Put("/me", controllers.ProfileUpdate(svcs.Users, logg))
		})

		r.Route("/favorites", func(r chi.Router) {
			r.Get("/", controllers.FavoriteList(svcs.Favorites, logg))
			r.Post("/{bookId}", controllers.FavoriteAdd(svcs.Favorites, logg))
			r.Delete("/{bookId}", controllers.FavoriteRemove(svcs.Favorites, logg))
			r.Get("/{bookId}", controllers.FavoriteCheck(svcs.Favorites, logg))
		})

		r.Delete("/reviews/{reviewId}", controllers.ReviewDelete(svcs.Reviews, logg))

		r.Route("/borrowings", func(r chi.Router) {
			r.Get("/", controllers.BorrowingList(svcs.Borrowings, logg))
			r.Post("/", controllers.BorrowingCreate(svcs.Borrowings, logg))
			r.Post("/{borrowingId}/return", controllers.BorrowingReturn(svcs.Borrowings, logg))
			r.Post("/{borrowingId}/extend", controllers.BorrowingExtend(svcs.Borrowings, logg))
		})

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", controllers.ConversationList(svcs.Messaging, logg))
			r.Post("/", controllers.ConversationStart(svcs.Messaging, logg))
			r.Get("/{conversationId}/messages", controllers.MessageList(svcs.Messaging, logg))
			r.Post("/{conversationId}/messages", controllers.MessageSend(svcs.Messaging, logg))
			r.Get("/{conversationId}/unread", controllers.ConversationUnreadCount(svcs.Messaging, logg))
		})

		r.Route("/reading-sessions", func(r chi.Router) {
			r.Post("/", controllers.ReadingSessionStart(svcs.Reading, logg))
			r.Post("/{sessionId}/end", controllers.ReadingSessionEnd(svcs.Reading, logg))
		})
		r.Get("/reading-stats", controllers.ReadingStats(svcs.Reading, logg))

		r.Get("/stats", controllers.StatsDashboard(svcs.Stats, logg))

		r.Route("/admin", func(r chi.Router) {
			r.Use(adminOnly)

			r.Route("/borrowings", func(r chi.Router) {
				r.Get("/", controllers.BorrowingAdminList(svcs.Borrowings, logg))
				r.Get("/active", controllers.BorrowingListActive(svcs.Borrowings, logg))
				r.Get("/overdue", controllers.BorrowingListOverdue(svcs.Borrowings, logg))
				r.Post("/{borrowingId}/validate", controllers.BorrowingValidate(svcs.Borrowings, logg))
				r.Post("/{borrowingId}/fine-paid", controllers.BorrowingMarkFinePaid(svcs.Borrowings, logg))
			})

			r.Route("/books/{bookId}", func(r chi.Router) {
				r.Patch("/copies", controllers.BookUpdateCopies(svcs.Books, logg))
				r.Post("/cover-upload-url", controllers.BookCoverUploadURL(svcs.Books, logg))
				r.Post("/pdf-upload-url", controllers.BookPDFUploadURL(svcs.Books, logg))
			})

			r.Delete("/reviews/{reviewId}", controllers.ReviewDelete(svcs.Reviews, logg))
			r.Post("/conversations/{conversationId}/close", controllers.ConversationClose(svcs.Messaging, logg))
			r.Get("/users/{userId}", controllers.ProfileDetail(svcs.Users, logg))
		})
	})

	return r
}

func healthPingers(deps HealthDeps) map[string]controllers.Pinger {
	out := map[string]controllers.Pinger{}
	if deps.DB != nil {
		out["database"] = deps.DB
	}
	if deps.Redis != nil {
		out["redis"] = deps.Redis
	}
	if deps.Storage != nil {
		out["storage"] = deps.Storage
	}
	return out
}
