package http

import (
	"context"

	"github.com/dkeye/Stage/internal/adapters/signal"
	"github.com/dkeye/Stage/internal/app/orch"
	"github.com/dkeye/Stage/internal/config"
	"github.com/dkeye/Stage/internal/store"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type Deps struct {
	Orch    *orch.Orchestrator
	Auth    TokenIssuer
	Scores  store.Scores
	Limiter *signal.RoomRateLimiter
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	cookieStore := cookie.NewStore([]byte(cfg.Secret))
	cookieStore.Options(sessions.Options{Path: "/", MaxAge: int(cfg.Auth.TTL.Seconds()), HttpOnly: true})
	r.Use(sessions.Sessions("StageSessions", cookieStore))

	if cfg.StaticPath != "" {
		r.Static("/static", cfg.StaticPath)
		r.GET("/", func(c *gin.Context) {
			c.File(cfg.StaticPath + "/index.html")
		})
	}

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	h := &handlers{
		orch:       deps.Orch,
		auth:       deps.Auth,
		scores:     deps.Scores,
		ice:        cfg.ICE,
		devLogin:   cfg.Auth.DevLogin,
		sendBuffer: cfg.SendBuffer,
	}
	ctrl := signal.NewSignalWSController(deps.Orch, deps.Limiter, signal.Options{
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		WriteWait:  cfg.WriteWait,
		SendBuffer: cfg.SendBuffer,
	})

	api := r.Group("/api")
	api.POST("/session", h.createSession)
	api.GET("/ice-servers", h.iceServers)

	authed := api.Group("", AuthMiddleware(deps.Auth))
	authed.GET("/ws/signal", func(c *gin.Context) {
		ctrl.HandleSignal(ctx, c, identity(c))
	})
	authed.GET("/events/:id/participants", h.participants)
	authed.GET("/events/:id/interactions", h.streamInteractions)
	authed.GET("/events/:id/scores", h.leaderboard)
	authed.GET("/events/:id/scores/:user", h.score)
	authed.POST("/ballots/:id/responses", h.submitResponse)

	host := authed.Group("", RequireHost())
	host.GET("/rooms", h.rooms)
	host.POST("/ballots", h.launchBallot)
	host.POST("/ballots/:id/deactivate", h.closeBallot)

	return r
}
