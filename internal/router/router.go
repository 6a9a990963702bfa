package router

import (
	"github.com/Totarae/shorttty/internal/handlers"
	"github.com/Totarae/shorttty/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Option настраивает маршрутизатор.
type Option func(*options)

type options struct {
	limiter    *middleware.RateLimiter
	trustProxy bool
}

// WithTrustedProxy берёт адрес клиента из X-Forwarded-For / X-Real-IP.
// Включать только когда сервер стоит за прокси, который перезаписывает эти заголовки.
func WithTrustedProxy(trust bool) Option {
	return func(o *options) {
		o.trustProxy = trust
	}
}

// WithRateLimit ограничивает создание ссылок и переходы по IP. rps <= 0 отключает лимит.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *options) {
		if rps > 0 {
			o.limiter = middleware.NewRateLimiter(rps, burst)
		}
	}
}

// NewRouter создаёт и настраивает маршрутизатор
func NewRouter(handler *handlers.Handler, logger *zap.Logger, opts ...Option) *chi.Mux {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	limited := func(r chi.Router) chi.Router {
		if o.limiter == nil {
			return r
		}
		return r.With(o.limiter.Limit)
	}

	r := chi.NewRouter()

	if o.trustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(chimw.Recoverer)
	r.Use(middleware.LoggingMiddleware(logger)) // Подключаем логирование
	r.Use(middleware.GzipMiddleware)            // Gzip-сжатие

	r.Get("/", handler.Home)
	r.Get("/ping", handler.Ping)

	r.Route("/auth", func(r chi.Router) {
		r.Get("/", handler.Auth.Login)
		r.Get("/login", handler.Auth.Login)
		r.Get("/callback", handler.Auth.Callback)
		r.Post("/refresh", handler.Auth.Refresh)
		r.Post("/logout", handler.Auth.Logout)
		r.Get("/logout", handler.Auth.Logout)
	})

	r.Get("/storage/{name}", handler.Storage)
	limited(r).Get("/redirect/{id}", handler.Redirect)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(handler.Auth))

		r.Get("/dashboard", handler.Dashboard)
		r.Get("/link/{id}", handler.LinkDetails)

		r.Route("/api", func(r chi.Router) {
			r.Get("/user", handler.Auth.Me)
			r.Get("/qr/preview", handler.PreviewQR)
			r.Get("/links", handler.ListLinks)
			limited(r).Post("/links", handler.CreateLink)
			r.Get("/links/{id}", handler.LinkDetails)
			r.Delete("/links/{id}", handler.DeleteLink)
			r.Get("/links/{id}/qr", handler.DownloadQR)
		})
	})

	limited(r).Get("/{id}", handler.Redirect)
	return r
}
