package router

import (
	"net/http"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"proctrace/internal/config"
	"proctrace/internal/handlers"
	"proctrace/internal/models"
	"proctrace/internal/repository"
	"proctrace/internal/services"
	"proctrace/internal/telemetry"
	"proctrace/internal/ws"
)

// Payload caps. Events are tiny; results carry the full behavioral payload.
const (
	maxEventBody  = 1 << 20  // 1 MB
	maxResultBody = 10 << 20 // 10 MB
)

// Deps carries everything the route table wires together.
type Deps struct {
	Log      *zap.Logger
	Cfg      *config.Manager
	DB       *gorm.DB
	Results  *repository.Results
	Events   *repository.Events
	Certs    *repository.Certificates
	Stats    *repository.Stats
	Admins   *repository.Admins
	APIKeys  *repository.APIKeys
	Catalog  *models.TestCatalog
	Analyzer *services.Analyzer
	Hub      *ws.Hub
	Tel      *telemetry.Telemetry
}

func keyFunc(c *gin.Context) string {
	return c.ClientIP()
}

func rateLimitExceeded(c *gin.Context, info ratelimit.Info) {
	c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, try again later"})
}

// limiter builds an in-memory per-client-IP rate limiter.
func limiter(perMinute uint) gin.HandlerFunc {
	store := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Minute,
		Limit: perMinute,
	})
	return ratelimit.RateLimiter(store, &ratelimit.Options{
		ErrorHandler: rateLimitExceeded,
		KeyFunc:      keyFunc,
	})
}

// maxBody caps the request body; oversized payloads fail the JSON bind with
// a 400 instead of exhausting memory.
func maxBody(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

// Setup builds the gin engine and the full route table.
func Setup(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(d.Log, d.Tel))

	store := cookie.NewStore([]byte(d.Cfg.Current().Server.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   false, // Set to true in production
		SameSite: http.SameSiteLaxMode,
		MaxAge:   86400,
	})
	router.Use(sessions.Sessions("proctrace_session", store))

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
	})
	router.Use(func(c *gin.Context) {
		if err := secureMiddleware.Process(c.Writer, c.Request); err != nil {
			c.Abort()
			return
		}
		c.Next()
	})

	// Handlers
	resultsHandler := handlers.NewResultsHandler(d.Log, d.Cfg, d.Results, d.Events, d.Certs, d.Catalog, d.Analyzer, d.Hub, d.Tel)
	eventsHandler := handlers.NewEventsHandler(d.Log, d.Results, d.Events, d.Tel)
	analysisHandler := handlers.NewAnalysisHandler(d.Log, d.Cfg, d.Analyzer, d.Results)
	certsHandler := handlers.NewCertificatesHandler(d.Log, d.Certs)
	statsHandler := handlers.NewStatsHandler(d.Log, d.Cfg, d.Stats)
	authHandler := handlers.NewAuthHandler(d.Log, d.Admins, d.APIKeys)

	// Operational endpoints
	router.GET("/healthz", func(c *gin.Context) {
		sqlDB, err := d.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "database unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(d.Tel.Handler()))

	// Certificate verification is public: the number is printed on the
	// document being checked.
	router.GET("/api/certificates/verify/*number", certsHandler.Verify)

	// Reviewer sign-in and admin-only key management.
	router.POST("/api/admin/login", limiter(5), authHandler.Login)
	router.POST("/api/admin/logout", AdminLoaderMiddleware(d.Admins), authHandler.Logout)

	admin := router.Group("/api/admin")
	admin.Use(AdminLoaderMiddleware(d.Admins))
	admin.Use(AdminRequired())
	admin.Use(CSRFProtection())
	{
		admin.POST("/keys", authHandler.CreateKey)
		admin.GET("/keys", authHandler.ListKeys)
		admin.DELETE("/keys/:name", authHandler.RevokeKey)
	}

	// Machine-client API.
	api := router.Group("/api")
	api.Use(APIKeyRequired(d.APIKeys, d.Log))
	{
		api.POST("/results", limiter(30), maxBody(maxResultBody), resultsHandler.SaveResults)
		api.POST("/events", limiter(60), maxBody(maxEventBody), eventsHandler.LogEvent)

		api.GET("/results", resultsHandler.List)
		api.GET("/results/:sessionId", resultsHandler.Get)
		api.GET("/results/:sessionId/events", resultsHandler.SessionEvents)
		api.GET("/sessions/abandoned", resultsHandler.Abandoned)

		api.POST("/analysis/similarity", limiter(5), analysisHandler.Similarity)
		api.GET("/analysis/fingerprints", analysisHandler.Fingerprints)
		api.GET("/analysis/behavior", analysisHandler.Behavior)

		api.GET("/stats/dashboard", statsHandler.Dashboard)
		api.GET("/certificates", certsHandler.List)
	}

	// Live update notifications for review clients.
	router.GET("/ws", APIKeyRequired(d.APIKeys, d.Log), func(c *gin.Context) {
		if err := d.Hub.ServeWS(c.Writer, c.Request); err != nil {
			d.Log.Error("Websocket upgrade failed", zap.Error(err))
		}
	})

	return router
}
