package server

import (
	"bytes"
	"net/http"
	"net/http/pprof"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pothiers/cadence/internal/aggregator"
	"github.com/pothiers/cadence/internal/chart"
	"github.com/pothiers/cadence/internal/hub"
	"github.com/pothiers/cadence/internal/output"
	"github.com/pothiers/cadence/internal/report"
	"github.com/pothiers/cadence/internal/series"
)

// Server exposes the latest report over HTTP for plotting clients.
type Server struct {
	engine         *gin.Engine
	hub            *hub.Hub
	port           string
	startOfDayHour int
	log            *zap.SugaredLogger
}

// New creates the API server.
func New(h *hub.Hub, port string, startOfDayHour int, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	// Disable automatic redirects that cause 301 issues.
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false

	s := &Server{
		engine:         engine,
		hub:            h,
		port:           port,
		startOfDayHour: startOfDayHour,
		log:            log,
	}

	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) setupRoutes() {
	// Health check.
	s.engine.GET("/healthz", func(c *gin.Context) {
		body := gin.H{"status": "ok", "dropped_reports": s.hub.Dropped()}
		if rep := s.hub.Latest(); rep != nil {
			body["generated"] = rep.Generated
			body["records"] = rep.Quality.Records
		}
		c.JSON(http.StatusOK, body)
	})

	api := s.engine.Group("/api", s.requireReport)
	api.GET("/summary", func(c *gin.Context) {
		c.JSON(http.StatusOK, latest(c))
	})
	api.GET("/rates", func(c *gin.Context) {
		entries := latest(c).Entries()
		if category := c.Query("category"); category != "" {
			filtered := make([]aggregator.Entry, 0, len(entries))
			for _, e := range entries {
				if e.Category == category {
					filtered = append(filtered, e)
				}
			}
			entries = filtered
		}
		c.JSON(http.StatusOK, entries)
	})
	api.GET("/volumes", func(c *gin.Context) {
		samples := latest(c).Volumes()
		if category := c.Query("category"); category != "" {
			filtered := make([]series.Sample, 0, len(samples))
			for _, v := range samples {
				if v.Category == category {
					filtered = append(filtered, v)
				}
			}
			samples = filtered
		}
		c.JSON(http.StatusOK, samples)
	})
	api.GET("/chart.png", s.handleChart)

	// WebSocket.
	s.engine.GET("/ws", s.handleWebSocket)

	// pprof profiling endpoints.
	s.engine.GET("/debug/pprof/", gin.WrapF(pprof.Index))
	s.engine.GET("/debug/pprof/profile", gin.WrapF(pprof.Profile))
	s.engine.GET("/debug/pprof/heap", gin.WrapH(pprof.Handler("heap")))
	s.engine.GET("/debug/pprof/goroutine", gin.WrapH(pprof.Handler("goroutine")))
}

const reportKey = "report"

// requireReport aborts with 503 until the first run has finished.
func (s *Server) requireReport(c *gin.Context) {
	rep := s.hub.Latest()
	if rep == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "no report yet"})
		return
	}
	c.Set(reportKey, rep)
	c.Next()
}

func latest(c *gin.Context) *report.Report {
	return c.MustGet(reportKey).(*report.Report)
}

func (s *Server) handleChart(c *gin.Context) {
	rep := latest(c)
	table := rep.Table()
	if table == nil {
		c.JSON(http.StatusConflict, output.NewDocument(rep))
		return
	}
	var buf bytes.Buffer
	err := chart.Render(&buf, chart.Input{
		Table:          table,
		Categories:     table.Categories,
		Times:          table.Times,
		Window:         table.Window,
		StartOfDayHour: s.startOfDayHour,
	})
	if err != nil {
		s.log.Errorw("Chart render failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// Start runs the server. Blocks until the server is stopped.
func (s *Server) Start() error {
	return s.engine.Run(":" + s.port)
}
