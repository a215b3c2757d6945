package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/music-catalog/internal/config"
	"github.com/pribylovaa/music-catalog/internal/http/handlers"
	"github.com/pribylovaa/music-catalog/internal/http/middleware"
	"github.com/pribylovaa/music-catalog/internal/metrics"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string // например, "/api"; если пустой — роуты регистрируются на корне.
	Metrics  *metrics.Metrics
	Auth     config.AuthConfig
	Cookie   config.CookieConfig
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc handlers.Service, verifier middleware.TokenVerifier, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
		middleware.Metrics(opts.Metrics),
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}

	h := handlers.New(svc, opts.Auth, opts.Cookie)
	gate := middleware.RequireAuth(verifier, opts.Metrics)

	if opts.BasePath != "" && opts.BasePath != "/" {
		sub := chi.NewRouter()
		registerRoutes(sub, h, gate)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h, gate)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, gate middleware.Middleware) {
	// auth
	r.Post("/auth/register", h.RegisterUser)
	r.Post("/auth/login", h.LoginUser)
	r.Post("/auth/refresh", h.RefreshToken)
	r.Get("/auth/logout", h.Logout)
	r.Post("/auth/logout", h.Logout)

	// защищённые маршруты
	r.Group(func(r chi.Router) {
		r.Use(gate)
		r.Get("/users/me", h.Me)
	})
}
