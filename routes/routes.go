package routes

import (
	"net/http"
	"time"

	"github.com/Dosada05/tournament-fixtures/handlers"
	"github.com/Dosada05/tournament-fixtures/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	JWTSecret      []byte
	AllowedOrigins []string
	RequestTimeout time.Duration
}

func SetupRoutes(
	router chi.Router,
	opts Options,
	tournamentHandler *handlers.TournamentHandler,
	teamHandler *handlers.TeamHandler,
	fixtureHandler *handlers.FixtureHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(opts.JWTSecret)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// websocket-соединения живут дольше RequestTimeout, поэтому вне группы с Timeout
	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)

	router.Group(func(r chi.Router) {
		if opts.RequestTimeout > 0 {
			r.Use(chiMiddleware.Timeout(opts.RequestTimeout))
		}

		r.Route("/tournaments", func(r chi.Router) {
			r.Get("/", tournamentHandler.ListHandler)
			r.With(authenticate, middleware.RequireAdmin).Post("/", tournamentHandler.CreateHandler)

			r.Route("/{tournamentID}", func(r chi.Router) {
				r.Get("/", tournamentHandler.GetByIDHandler)
				r.With(authenticate, middleware.RequireAdmin).Put("/", tournamentHandler.UpdateHandler)
				r.With(authenticate, middleware.RequireAdmin).Delete("/", tournamentHandler.DeleteHandler)
				r.Get("/overview", tournamentHandler.OverviewHandler)

				r.Get("/teams", teamHandler.ListTeams)
				r.With(authenticate).Post("/teams", teamHandler.RegisterTeam)

				r.Route("/fixtures", func(r chi.Router) {
					r.Get("/", fixtureHandler.ListFixtures)
					r.Get("/{round}", fixtureHandler.GetFixture)
					r.Get("/{round}/standings", fixtureHandler.GetStandings)

					// Изменения расписания только для администратора
					r.Group(func(r chi.Router) {
						r.Use(authenticate, middleware.RequireAdmin)
						r.Post("/", fixtureHandler.GenerateFixture)
						r.Put("/{round}/matches/{matchID}/score", fixtureHandler.ReportScore)
						r.Put("/{round}/matches/{matchID}/override", fixtureHandler.OverrideScore)
					})
				})
			})
		})

		r.With(authenticate).Get("/me/teams", teamHandler.ListMyTeams)

		r.Route("/teams", func(r chi.Router) {
			r.Use(authenticate, middleware.RequireAdmin)
			r.Get("/", teamHandler.ListTeamsByStatus)
			r.Patch("/{teamID}/status", teamHandler.DecideTeam)
		})
	})
}
