package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/storetrail/storetrail-backend/api/controllers"
	"github.com/storetrail/storetrail-backend/api/middleware"
	"github.com/storetrail/storetrail-backend/internal/checkins"
	"github.com/storetrail/storetrail-backend/internal/stores"
	"github.com/storetrail/storetrail-backend/internal/users"
	"github.com/storetrail/storetrail-backend/pkg/auth/session"
	"github.com/storetrail/storetrail-backend/pkg/config"
	"github.com/storetrail/storetrail-backend/pkg/db/models"
	"github.com/storetrail/storetrail-backend/pkg/enums"
	"github.com/storetrail/storetrail-backend/pkg/logger"
	pkgredis "github.com/storetrail/storetrail-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// edgeStore backs per-request throttling and replay protection.
type edgeStore interface {
	pkgredis.IdempotencyStore
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Hit(ctx context.Context, scope string, limit int64, window time.Duration) (pkgredis.Window, error)
}

type profileService interface {
	Me(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error)
}

type dlqLister interface {
	List(ctx context.Context, limit int) ([]models.OutboxDLQ, error)
}

// Deps groups everything the HTTP surface needs. Nil collaborators degrade the
// routes that use them rather than failing router construction.
type Deps struct {
	Health         []controllers.NamedPinger
	Edge           edgeStore
	Sessions       sessionManager
	Users          profileService
	Stores         stores.Service
	CheckIns       checkins.Service
	DLQ            dlqLister
	MetricsHandler http.Handler
}

// checkInBodyOverhead covers the JSON fields around the base64 photo.
const checkInBodyOverhead = 64 << 10

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	checkInPolicy := middleware.NewRateLimitPolicy(
		"checkins",
		cfg.CheckIn.RateLimitWindow,
		cfg.CheckIn.RateLimitPerUser,
	)
	// base64 inflates the photo by 4/3
	checkInBodyLimit := int64(cfg.CheckIn.MaxPhotoBytes)/3*4 + 4 + checkInBodyOverhead

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Health...))
	})
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Route("/api/v1/stores", func(r chi.Router) {
		r.Get("/", controllers.StoresList(deps.Stores, logg))
		r.Get("/nearby", controllers.StoresNearby(deps.Stores, logg))
		r.Get("/{storeId}", controllers.StoreGet(deps.Stores, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.Auth(cfg.JWT, deps.Sessions, logg)).Get("/me", controllers.AuthMe(deps.Users, logg))
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthAllowExpired(cfg.JWT, logg))
			r.Post("/logout", controllers.AuthLogout(deps.Sessions, logg))
			r.Post("/refresh", controllers.AuthRefresh(deps.Sessions, deps.Users, cfg.JWT, logg))
		})
	})

	r.Route("/api/v1/checkins", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))

		r.With(
			chimw.RequestSize(checkInBodyLimit),
			middleware.RateLimit(checkInPolicy, deps.Edge, logg),
			middleware.Idempotency(deps.Edge, cfg.CheckIn.IdempotencyTTL, logg),
		).Post("/", controllers.CheckInCreate(deps.CheckIns, logg))
		r.Get("/me", controllers.CheckInsMine(deps.CheckIns, logg))
		r.Get("/me/stats", controllers.CheckInStats(deps.CheckIns, logg))
		r.Get("/visited/{storeId}", controllers.CheckInVisited(deps.CheckIns, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
		r.Post("/stores", controllers.AdminStoreCreate(deps.Stores, logg))
		r.Get("/outbox/dlq", controllers.AdminOutboxDLQ(deps.DLQ, logg))
	})

	return r
}
