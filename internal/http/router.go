// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/elianaAbay/Spotify-Matcher/docs" // swagger docs registration
	"github.com/elianaAbay/Spotify-Matcher/internal/config"
	"github.com/elianaAbay/Spotify-Matcher/internal/domain"
	"github.com/elianaAbay/Spotify-Matcher/internal/http/handlers"
	"github.com/elianaAbay/Spotify-Matcher/internal/http/middleware"
	"github.com/elianaAbay/Spotify-Matcher/internal/repo"
	"github.com/elianaAbay/Spotify-Matcher/internal/services"
	"github.com/elianaAbay/Spotify-Matcher/internal/spotify"
	"github.com/elianaAbay/Spotify-Matcher/internal/token"
	"github.com/elianaAbay/Spotify-Matcher/internal/ws"
)

// profileRepoShim adapts the repository free functions to the profile
// interfaces expected by the services. This keeps services decoupled from the
// concrete repo package while reusing existing functions.
type profileRepoShim struct{}

// GetProfile proxies repo.GetProfile.
func (profileRepoShim) GetProfile(ctx context.Context, db *gorm.DB, id string) (*domain.Profile, error) {
	return repo.GetProfile(ctx, db, id)
}

// ListOtherProfiles proxies repo.ListOtherProfiles.
func (profileRepoShim) ListOtherProfiles(ctx context.Context, db *gorm.DB, excludingID string) ([]domain.Profile, error) {
	return repo.ListOtherProfiles(ctx, db, excludingID)
}

// UpsertProfile proxies repo.UpsertProfile.
func (profileRepoShim) UpsertProfile(ctx context.Context, db *gorm.DB, spotifyID, displayName string, topArtists []string, accessToken, refreshToken string) (*domain.Profile, error) {
	return repo.UpsertProfile(ctx, db, spotifyID, displayName, topArtists, accessToken, refreshToken)
}

// conversationRepoShim adapts the repository free functions to the
// services.ConversationRepo interface expected by the ChatService.
type conversationRepoShim struct{}

// FindOrCreateConversation proxies repo.FindOrCreateConversation.
func (conversationRepoShim) FindOrCreateConversation(ctx context.Context, db *gorm.DB, idA, idB string) (*domain.Conversation, error) {
	return repo.FindOrCreateConversation(ctx, db, idA, idB)
}

// GetConversation proxies repo.GetConversation.
func (conversationRepoShim) GetConversation(ctx context.Context, db *gorm.DB, id string) (*domain.Conversation, error) {
	return repo.GetConversation(ctx, db, id)
}

// AppendMessage proxies repo.AppendMessage.
func (conversationRepoShim) AppendMessage(ctx context.Context, db *gorm.DB, conversationID, senderID, body string) (*domain.Message, error) {
	return repo.AppendMessage(ctx, db, conversationID, senderID, body)
}

// CountMessages proxies repo.CountMessages (pagination support).
func (conversationRepoShim) CountMessages(ctx context.Context, db *gorm.DB, conversationID string) (int64, error) {
	return repo.CountMessages(ctx, db, conversationID)
}

// ListMessagesPage proxies repo.ListMessagesPage (pagination support).
func (conversationRepoShim) ListMessagesPage(ctx context.Context, db *gorm.DB, conversationID string, offset, limit int) ([]domain.Message, error) {
	return repo.ListMessagesPage(ctx, db, conversationID, offset, limit)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and returns the relay hub, which the caller must Run before serving.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip (WebSocket and metrics excluded)
//  7. Metrics
//  8. Rate limiter (per user/IP)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) *ws.Hub {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Response compression (not on the WebSocket upgrade or metrics scrape)
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/ws", "/metrics"})))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture. The frontend origin is always allowed; extra origins
	// come from configuration.
	origins := cfg.CORS.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{cfg.FrontendURL}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Swagger UI (opt-in)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/third parties
	issuer := token.NewIssuer(cfg.JWTSecret, cfg.SessionTTL)
	spClient := spotify.NewClient(spotify.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RedirectURI:  cfg.Spotify.RedirectURI,
	})

	loginSvc := services.NewLoginService(db, profileRepoShim{}, spClient, issuer)
	matchSvc := services.NewMatchService(db, profileRepoShim{})
	chatSvc := services.NewChatService(db, conversationRepoShim{})
	hub := ws.NewHub(chatSvc, log.Logger)

	h := handlers.New(loginSvc, spClient, matchSvc, chatSvc, cfg.FrontendURL)
	wsh := handlers.NewWSHandler(hub, issuer, origins)

	// Public OAuth endpoints
	r.GET("/login", h.Login)
	r.GET("/callback", h.Callback)

	// Relay upgrade (token checked inside; browser clients can't set headers)
	r.GET("/ws", wsh.Serve)

	// Protected API
	api := r.Group("/api")
	api.Use(middleware.RequireAuth(issuer))
	{
		api.GET("/match", h.BestMatch)
		api.GET("/spotify/top-artists", h.TopArtists)
		api.GET("/chats/:id/messages", h.ListMessages)
	}

	return hub
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
