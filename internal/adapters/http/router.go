package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/hireloop/sigproxy/internal/adapters/signal"
	"github.com/hireloop/sigproxy/internal/app"
	"github.com/hireloop/sigproxy/internal/config"
	"github.com/hireloop/sigproxy/internal/core"
	"github.com/hireloop/sigproxy/internal/upstream"
)

func genClientToken() string {
	return uuid.NewString()
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, store *app.Store, exchange core.Exchanger) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	cookieStore := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("SigproxySessions", cookieStore))
	r.Use(ClientTokenMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	ctrl := signal.NewSignalWSController(store, exchange, cfg)

	api := r.Group("/api")

	api.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "signaling server is running"})
	})

	// HTTP fallback mirroring the WebSocket sdp_offer flow.
	api.POST("/exchange-sdp", func(c *gin.Context) {
		handleExchangeSDP(c, exchange)
	})

	api.GET("/ws/signal", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("ct", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})

	return r
}

type exchangeRequest struct {
	SDP string `json:"sdp"`
}

func handleExchangeSDP(c *gin.Context, exchange core.Exchanger) {
	var req exchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SDP == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid sdp"})
		return
	}

	offer := webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  req.SDP,
	}
	answer, err := exchange.Exchange(c.Request.Context(), offer)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("exchange-sdp failed")
		var sessErr *upstream.SessionError
		var negErr *upstream.NegotiationError
		switch {
		case errors.Is(err, upstream.ErrCredentialsMissing):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server is missing realtime API credentials"})
		case errors.As(err, &sessErr), errors.As(err, &negErr):
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "sdp exchange failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"sdp": answer.SDP})
}
