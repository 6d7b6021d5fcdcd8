package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"artkeeper/internal/config"
	"artkeeper/internal/linkcache"
	"artkeeper/internal/resolve"
	"artkeeper/internal/service"
)

type HandlerSet struct {
	log      zerolog.Logger
	cfg      *config.AppConfig
	artwork  *service.ArtworkService
	resolver *resolve.Orchestrator
	links    *linkcache.Cache
	db       *pgxpool.Pool
	cache    *redis.Client
}

// NewHandlerSet wires the HTTP layer. db and cache may be nil when the
// corresponding backend is disabled; the health handler reports them as
// skipped.
func NewHandlerSet(log zerolog.Logger, artwork *service.ArtworkService, resolver *resolve.Orchestrator, links *linkcache.Cache, db *pgxpool.Pool, cache *redis.Client, cfg *config.AppConfig) HandlerSet {
	return HandlerSet{
		log:      log,
		cfg:      cfg,
		artwork:  artwork,
		resolver: resolver,
		links:    links,
		db:       db,
		cache:    cache,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")

	items := v1.Group("/items")
	items.POST("/:id/classify", h.ClassifyItem)
	items.POST("/:id/no-candidate", h.MarkNoCandidate)
	items.GET("/low-quality", h.ListLowQuality)
	items.GET("/latest", h.ListLatest)

	v1.POST("/resolve", h.StartResolve)
	v1.GET("/resolve/:id", h.ResolveState)

	v1.POST("/composite", h.Composite)
	v1.POST("/composite/plan", h.CompositePlan)

	v1.POST("/linkcache/invalidate", h.InvalidateLinks)
}
