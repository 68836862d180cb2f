package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tiermaster/backend/internal/auth"
	"github.com/tiermaster/backend/internal/config"
	"github.com/tiermaster/backend/internal/database"
	"github.com/tiermaster/backend/internal/handlers"
	"github.com/tiermaster/backend/internal/middleware"
	"github.com/tiermaster/backend/internal/models"
	"github.com/tiermaster/backend/internal/observability"
	"github.com/tiermaster/backend/internal/ranking"
	"github.com/tiermaster/backend/internal/suggestion"
	"github.com/tiermaster/backend/internal/voting"
)

// Routes holds what the router needs beyond the handlers.
type Routes struct {
	Handler        *handlers.Handler
	Sessions       middleware.TokenParser
	SessionCookie  string
	Users          middleware.UserReader
	ModeratorTiers []models.SubscriptionTier
	CORSOrigins    []string
	Metrics        *observability.Metrics
	Health         func(ctx context.Context) map[string]string
	Tracing        bool
}

// NewServer wires the stores, services and handlers on top of db and returns
// the configured HTTP server.
func NewServer(cfg config.Config, db database.Service, metrics *observability.Metrics) *http.Server {
	gormDB := db.GetDB()

	ledger := database.NewVoteLedger(gormDB)
	catalog := database.NewCatalog(gormDB)
	users := database.NewUserStore(gormDB)
	suggestions := database.NewSuggestionStore(gormDB)

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.SessionTTL)
	verifier := auth.NewGoogleVerifier(cfg.GoogleClientID)
	var flow *auth.OAuthFlow
	if cfg.GoogleClientSecret != "" && cfg.GoogleRedirectURL != "" {
		flow = auth.NewOAuthFlow(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, verifier)
	}

	handler := handlers.NewHandler(handlers.Deps{
		Auth:        auth.NewService(verifier, flow, users, issuer),
		Voting:      voting.NewService(ledger, catalog, users, metrics),
		Ranking:     ranking.NewService(catalog, ledger, users),
		Suggestions: suggestion.NewService(suggestions, users, metrics),
		Items:       catalog,
		Maintenance: database.NewMaintenance(gormDB, nil),
		Cookie: handlers.CookieConfig{
			Name:   cfg.SessionCookie,
			Secure: cfg.CookieSecure,
			TTL:    cfg.SessionTTL,
		},
	})

	router := RegisterRoutes(Routes{
		Handler:        handler,
		Sessions:       issuer,
		SessionCookie:  cfg.SessionCookie,
		Users:          users,
		ModeratorTiers: cfg.ModeratorTiers,
		CORSOrigins:    cfg.CORSOrigins,
		Metrics:        metrics,
		Health:         db.Health,
		Tracing:        cfg.OTLPEndpoint != "",
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		Handler:           router,
		IdleTimeout:       time.Minute,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	slog.Info("server configured", "addr", server.Addr, "env", cfg.Env, "moderator_tiers", cfg.ModeratorTiers)
	return server
}

// RegisterRoutes sets up all application routes
func RegisterRoutes(rt Routes) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(slog.Default()))
	if rt.Tracing {
		r.Use(otelgin.Middleware(observability.ServiceName))
	}
	if rt.Metrics != nil {
		r.Use(middleware.Metrics(rt.Metrics))
	}

	r.Use(cors.New(corsConfig(rt.CORSOrigins)))
	r.Use(middleware.Identify(rt.Sessions, rt.SessionCookie))

	r.GET("/health", func(c *gin.Context) {
		if rt.Health == nil {
			c.JSON(http.StatusOK, gin.H{"status": "up"})
			return
		}
		stats := rt.Health(c.Request.Context())
		status := http.StatusOK
		if stats["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, stats)
	})
	if rt.Metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(rt.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	h := rt.Handler
	api := r.Group("/api")
	{
		// public reads
		api.GET("/ranking", h.Ranking.GetRanking)
		api.GET("/home/popular-tiers", h.Ranking.PopularTiers)
		api.GET("/items/:id", h.Ranking.GetItem)
		api.GET("/categories", h.Ranking.GetCategories)
		api.GET("/vote", h.Vote.ListVotes)

		// login
		api.POST("/auth/google", h.Auth.GoogleLogin)
		api.GET("/auth/google/login", h.Auth.GoogleRedirect)
		api.GET("/auth/google/callback", h.Auth.GoogleCallback)
		api.POST("/auth/logout", h.Auth.Logout)

		protected := api.Group("")
		protected.Use(middleware.RequireIdentity())
		{
			protected.GET("/me", h.Auth.GetMe)
			protected.GET("/user/info", h.User.GetInfo)

			protected.POST("/vote", h.Vote.CastVote)
			protected.DELETE("/vote", h.Vote.RetractVote)
			protected.PUT("/vote", h.Vote.MoveVote)

			protected.POST("/submit", h.Suggestion.Submit)
			protected.GET("/submit/remaining", h.Suggestion.Remaining)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.RequireTier(rt.Users, rt.ModeratorTiers))
		{
			admin.GET("/suggestions", h.Admin.ListSuggestions)
			admin.POST("/process-suggestion", h.Admin.ProcessSuggestion)
			admin.POST("/items", h.Admin.AddItem)
			admin.POST("/reset", h.Admin.Reset)
			admin.POST("/seed", h.Admin.Seed)
		}
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:  []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
