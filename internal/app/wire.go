package app

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ledgerhub/p2pcore/internal/auth"
	"github.com/ledgerhub/p2pcore/internal/guard"
	"github.com/ledgerhub/p2pcore/internal/handler"
	"github.com/ledgerhub/p2pcore/internal/ledger"
	"github.com/ledgerhub/p2pcore/internal/repository"
	"github.com/ledgerhub/p2pcore/internal/service"
)

// RouterDeps holds all dependencies needed by NewRouter.
type RouterDeps struct {
	Pool               *pgxpool.Pool
	JWTMgr             *auth.JWTManager
	Logger             *slog.Logger
	Engine             *ledger.Engine
	Users              repository.UserStore
	Transactions       repository.TransactionStore
	Sessions           repository.SessionStore
	BcryptCost         int
	CORSAllowedOrigins string
}

// NewRouter assembles the chi.Router with all routes and middleware (spec
// §6's HTTP surface). Grounded on the teacher's app.NewRouter (ordered
// middleware chain, route grouping by auth realm), trimmed to this
// service's single auth realm and route table.
func NewRouter(deps RouterDeps) chi.Router {
	pool := deps.Pool
	logger := deps.Logger

	identitySvc := service.NewIdentityService(pool, deps.Users, deps.Sessions, deps.JWTMgr, deps.BcryptCost)

	authHandler := handler.NewAuthHandler(identitySvc)
	transferHandler := handler.NewTransferHandler(deps.Engine, deps.Users, deps.Transactions, pool)

	r := chi.NewRouter()

	// Global middleware (order matters).
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.CORSWithOrigins(deps.CORSAllowedOrigins))
	r.Use(handler.JSONContentType)

	// Auth rate limiter: 10 attempts per 15 minutes per IP.
	authRateLimiter := guard.NewRateLimiter(10, 15*time.Minute)

	// Health (no auth).
	r.Get("/health", handler.HealthHandler(pool))

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(handler.RateLimitMiddleware(authRateLimiter, handler.ClientIP))
				r.Post("/register", authHandler.Register)
				r.Post("/login", authHandler.Login)
			})

			r.Group(func(r chi.Router) {
				r.Use(auth.Authenticate(deps.JWTMgr, deps.Sessions, deps.Users, pool))
				r.Post("/logout", authHandler.Logout)
				r.Get("/user", authHandler.CurrentUser)
			})
		})

		// Caller-authenticated routes.
		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate(deps.JWTMgr, deps.Sessions, deps.Users, pool))

			r.Get("/balance", transferHandler.GetBalance)

			r.Route("/transactions", func(r chi.Router) {
				r.Post("/validate-receiver", transferHandler.ValidateReceiver)
				r.Post("/", transferHandler.CreateTransfer)
				r.Get("/", transferHandler.ListTransactions)
				r.Get("/stats", transferHandler.GetStats)
				r.Get("/{uuid}", transferHandler.GetTransaction)
			})
		})
	})

	return r
}
