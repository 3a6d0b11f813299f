package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/angelmondragon/inventory-backend/api/controllers"
	"github.com/angelmondragon/inventory-backend/api/middleware"
	"github.com/angelmondragon/inventory-backend/internal/exports"
	"github.com/angelmondragon/inventory-backend/internal/projects"
	"github.com/angelmondragon/inventory-backend/internal/rooms"
	"github.com/angelmondragon/inventory-backend/internal/upload"
	"github.com/angelmondragon/inventory-backend/pkg/config"
	"github.com/angelmondragon/inventory-backend/pkg/logger"
	"github.com/angelmondragon/inventory-backend/pkg/redis"
)

// Dependencies carries the health checks and domain services the router
// mounts. IdempotencyStore and Metrics are optional.
type Dependencies struct {
	Health           map[string]controllers.Pinger
	IdempotencyStore redis.IdempotencyStore
	Metrics          http.Handler

	Uploads  upload.Service
	Projects projects.Service
	Rooms    rooms.Service
	Exports  exports.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Health))
	})

	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	maxUpload := cfg.Upload.MaxUploadBytes()

	r.Route("/api", func(r chi.Router) {
		if maxUpload > 0 {
			r.Use(chimiddleware.RequestSize(maxUpload))
		}
		r.Use(middleware.Owner(cfg.Rooms.DefaultOwnerID, logg))
		r.Use(middleware.Idempotency(deps.IdempotencyStore, logg))

		r.Get("/ping", controllers.OwnerPing())

		r.Route("/v1/projects", func(r chi.Router) {
			r.Post("/", controllers.ProjectCreate(deps.Projects, logg))
			r.Route("/{projectId}", func(r chi.Router) {
				r.Get("/", controllers.ProjectGet(deps.Projects, logg))
				r.Route("/rooms", func(r chi.Router) {
					r.Get("/", controllers.RoomList(deps.Rooms, logg))
					r.Post("/", controllers.RoomCreate(deps.Rooms, logg))
					r.Get("/{roomId}", controllers.RoomGet(deps.Rooms, logg))
					r.Patch("/{roomId}", controllers.RoomUpdate(deps.Rooms, logg))
					r.Delete("/{roomId}", controllers.RoomDelete(deps.Rooms, logg))
				})
			})
		})

		uploadRoute := r.With()
		if cfg.Upload.Timeout > 0 {
			uploadRoute = r.With(chimiddleware.Timeout(cfg.Upload.Timeout))
		}
		uploadRoute.Post("/v1/uploads/videos", controllers.UploadVideo(deps.Uploads, maxUpload, logg))

		r.Post("/v1/exports", controllers.ExportRooms(deps.Exports, cfg.Export.Timeout, logg))
	})

	return r
}
