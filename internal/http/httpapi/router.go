package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"brandstudio/internal/http/handlers"
	"brandstudio/internal/middleware"
)

type Options struct {
	Logger          zerolog.Logger
	CORSOrigins     []string
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
	RateLimitPerMin int
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	// Middlewares dasar
	r.Use(
		chimw.RealIP,
		middleware.RequestID,
		middleware.Logger(opts.Logger),
		chimw.Recoverer,
		middleware.CORS(opts.CORSOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)

	// Health
	r.Get("/v1/healthz", app.Health)

	// reads and the event stream are not rate limited
	limit := middleware.RateLimit(opts.RateLimitPerMin, time.Minute)

	r.Route("/v1/sessions", func(r chi.Router) {
		r.With(limit).Post("/", app.CreateSession)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", app.GetSession)
			r.Get("/events", app.Events)
			r.Get("/images/{index}/download", app.DownloadImage)
			r.Get("/images.zip", app.ImagesZip)

			r.Group(func(r chi.Router) {
				r.Use(limit)
				r.Delete("/", app.DeleteSession)
				r.Put("/assets/{slot}", app.PutAsset)
				r.Delete("/assets/{slot}", app.DeleteAsset)
				r.Patch("/params", app.UpdateParams)
				r.Put("/model-override", app.SetModelOverride)
				r.Post("/analyze", app.Analyze)
				r.Post("/styles/refresh", app.RefreshStyles)
				r.Post("/generate", app.Generate)
				r.Post("/regenerate", app.Regenerate)
				r.Put("/selection", app.Select)
				r.Post("/reset", app.Reset)
			})
		})
	})

	return r
}
