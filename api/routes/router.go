package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mksagencies/storefront-backend/api/controllers"
	"github.com/mksagencies/storefront-backend/api/middleware"
	"github.com/mksagencies/storefront-backend/internal/auth"
	"github.com/mksagencies/storefront-backend/internal/cron"
	"github.com/mksagencies/storefront-backend/internal/orders"
	"github.com/mksagencies/storefront-backend/internal/products"
	"github.com/mksagencies/storefront-backend/internal/session"
	"github.com/mksagencies/storefront-backend/pkg/config"
	"github.com/mksagencies/storefront-backend/pkg/logger"
	"github.com/mksagencies/storefront-backend/pkg/redis"
)

type imageSweeper interface {
	Sweep(ctx context.Context, dryRun bool) (*cron.OrphanImageReport, error)
}

// Services are the domain services the API exposes. Sweeper may be nil when
// no bucket is configured; the cleanup endpoint then answers 500.
type Services struct {
	Auth     auth.Service
	Orders   orders.Service
	Products products.Service
	Sessions *session.Factory
	Sweeper  imageSweeper
}

// Infra is what the router needs beyond the services.
type Infra struct {
	DB          controllers.Pinger
	Redis       controllers.Pinger
	Idempotency redis.IdempotencyStore
	Gatherer    prometheus.Gatherer
	Now         func() time.Time
}

func NewRouter(cfg *config.Config, logg *logger.Logger, infra Infra, svc Services) http.Handler {
	now := infra.Now
	if now == nil {
		now = time.Now
	}
	authn := middleware.NewAuthenticator(cfg.JWT, logg, now)

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
		middleware.ClientIP(logg),
	)

	live := controllers.HealthLive(cfg, now)
	r.Get("/health", live)
	r.Get("/health/live", live)
	r.Get("/health/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
		"postgres": infra.DB,
		"redis":    infra.Redis,
	}))

	if infra.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(infra.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", live)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/google", controllers.GoogleLogin(svc.Auth, logg))
			r.Post("/guest", controllers.GuestSession(svc.Auth, logg))
			r.Post("/verify-guest", controllers.VerifyGuest(svc.Auth, logg))
			r.Post("/email/send", controllers.SendLoginLink(svc.Auth, logg))
			r.Post("/email/verify", controllers.VerifyLoginLink(svc.Auth, logg))
			r.With(authn.Required).Get("/verify", controllers.VerifyToken(logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(svc.Products, logg))
			r.Get("/{slug}", controllers.GetProduct(svc.Products, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/track/{orderNumber}", controllers.TrackOrder(svc.Orders, logg))

			r.With(
				authn.Optional,
				middleware.Idempotency(infra.Idempotency, middleware.OrderReplayWindow, logg),
			).Post("/", controllers.CreateOrder(svc.Orders, logg))

			r.Group(func(r chi.Router) {
				r.Use(authn.Required)
				r.Get("/", controllers.ListMyOrders(svc.Orders, logg))
				r.Get("/{id}", controllers.GetMyOrder(svc.Orders, logg))
			})
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(authn.Required, middleware.Session(svc.Sessions, logg))
			r.Get("/", controllers.GetCart(logg))
			r.Delete("/", controllers.ClearCart(logg))
			r.Post("/add", controllers.AddToCart(logg))
			r.Post("/update", controllers.UpdateCartItem(logg))
			r.Post("/remove", controllers.RemoveFromCart(logg))
			r.Post("/clear", controllers.ClearCart(logg))
			r.Post("/sync", controllers.SyncCart(logg))
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Use(authn.Required, middleware.Session(svc.Sessions, logg))
			r.Get("/", controllers.GetWishlist(logg))
			r.Delete("/", controllers.ClearWishlist(logg))
			r.Post("/add", controllers.AddToWishlist(logg))
			r.Post("/remove", controllers.RemoveFromWishlist(logg))
			r.Post("/clear", controllers.ClearWishlist(logg))
			r.Post("/sync", controllers.SyncWishlist(logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", controllers.AdminLogin(svc.Auth, logg))

			r.Group(func(r chi.Router) {
				r.Use(authn.Admin)
				r.Get("/analytics", controllers.AdminAnalytics(svc.Orders, logg))

				r.Route("/orders", func(r chi.Router) {
					r.Get("/", controllers.AdminListOrders(svc.Orders, logg))
					r.Get("/{id}", controllers.AdminGetOrder(svc.Orders, logg))
					r.Put("/{id}", controllers.AdminUpdateOrderStatus(svc.Orders, logg))
					r.Put("/{id}/status", controllers.AdminUpdateOrderStatus(svc.Orders, logg))
				})

				r.Route("/products", func(r chi.Router) {
					r.Get("/", controllers.AdminListProducts(svc.Products, logg))
					r.Put("/", controllers.AdminManageProducts(svc.Products, logg))
					r.Post("/", controllers.AdminManageProducts(svc.Products, logg))
				})

				r.Post("/maintenance/cleanup-images", controllers.CleanupImages(svc.Sweeper, logg))
			})
		})
	})

	return r
}
