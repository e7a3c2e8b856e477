package server

import (
	"net/http"

	"github.com/BerylCAtieno/ikigai-coach/internal/diagram"
	"github.com/BerylCAtieno/ikigai-coach/internal/gateway"
	"github.com/BerylCAtieno/ikigai-coach/internal/session"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Options wires the server to its collaborators.
type Options struct {
	Gateway     gateway.Generator
	Sessions    *session.Manager
	Exporter    *diagram.Exporter
	Gatherer    prometheus.Gatherer
	Logger      *zap.Logger
	CORSOrigins []string
}

// Server serves the page, the JSON API and the gateway endpoint.
type Server struct {
	gateway  gateway.Generator
	sessions *session.Manager
	exporter *diagram.Exporter
	logger   *zap.Logger
	engine   *gin.Engine
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		gateway:  opts.Gateway,
		sessions: opts.Sessions,
		exporter: opts.Exporter,
		logger:   logger,
		engine:   gin.New(),
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(RequestLoggingMiddleware(logger))
	s.engine.Use(cors.New(corsConfig(opts.CORSOrigins)))

	s.engine.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	s.engine.POST("/generate", s.HandleGenerate)
	s.engine.POST("/api/gemini", s.HandleGenerate)
	s.engine.GET("/shared/:token", s.handleShared)

	app := s.engine.Group("/", ClientIDMiddleware())
	app.GET("/", s.handlePage)

	api := app.Group("/api")
	api.GET("/record", s.handleGetRecord)
	api.PATCH("/record", s.handleUpdateRecord)
	api.POST("/record", s.handleUpdateRecord)
	api.POST("/record/intersections", s.handleGenerateIntersections)

	api.GET("/diagram.svg", s.handleDiagramSVG)
	api.GET("/diagram.png", s.handleDiagramPNG)
	api.POST("/diagram/share", s.handleShare)

	api.GET("/colors", s.handleGetColors)
	api.PUT("/colors", s.handleSetColors)
	api.POST("/colors", s.handleSetColors)
	api.PUT("/colors/:field", s.handleSetColor)
	api.POST("/colors/reset", s.handleResetColors)

	api.GET("/advice", s.handleAdviceView)
	api.POST("/advice", s.handleRequestAdvice)
	api.POST("/advice/close", s.handleCloseAdvice)
	api.POST("/advice/save", s.handleSaveAdvice)
	api.POST("/advice/copy", s.handleCopyAdvice)
	api.GET("/advice/history", s.handleAdviceHistory)
	api.POST("/advice/history", s.handleAdviceHistory)
	api.DELETE("/advice/saved", s.handleDeleteAdvice)
	api.POST("/advice/delete", s.handleDeleteAdvice)

	return s
}

// Handler is the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", clientHeader}
	return cfg
}

func (s *Server) session(c *gin.Context) *session.Session {
	return s.sessions.Get(c.GetString(clientKey))
}
