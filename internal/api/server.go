package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go-cvlibrary-scraper/internal/database"
	"go-cvlibrary-scraper/internal/models"
	"go-cvlibrary-scraper/internal/session"

	"github.com/gin-gonic/gin"
)

// Server exposes the scraper over HTTP.
type Server struct {
	tasks    *TaskManager
	sessions *session.Store
	index    database.Index
	ready    func(ctx context.Context) error
	version  string
	started  time.Time
}

type Options struct {
	Tasks    *TaskManager
	Sessions *session.Store
	// Index is optional; when set GET /sessions lists from it.
	Index   database.Index
	Ready   func(ctx context.Context) error
	Version string
}

func NewServer(opts Options) *Server {
	return &Server{
		tasks:    opts.Tasks,
		sessions: opts.Sessions,
		index:    opts.Index,
		ready:    opts.Ready,
		version:  opts.Version,
		started:  time.Now(),
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.health)
	r.GET("/health/live", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "alive"}) })
	r.GET("/health/ready", s.readiness)

	r.POST("/scrapes", s.startScrape)
	r.GET("/scrapes/:id", s.getScrape)
	r.DELETE("/scrapes/:id", s.cancelScrape)

	r.GET("/sessions", s.listSessions)
	r.GET("/sessions/:id", s.getSession)
	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"version":        s.version,
		"uptime_seconds": int(time.Since(s.started).Seconds()),
		"busy":           s.tasks.Busy(),
	})
}

func (s *Server) readiness(c *gin.Context) {
	if s.ready != nil {
		if err := s.ready(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) startScrape(c *gin.Context) {
	var criteria models.SearchCriteria
	if err := c.ShouldBindJSON(&criteria); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	criteria.Normalize()
	if err := criteria.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := s.tasks.Start(criteria)
	if errors.Is(err, ErrBusy) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, task)
}

func (s *Server) getScrape(c *gin.Context) {
	task, err := s.tasks.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) cancelScrape(c *gin.Context) {
	task, err := s.tasks.Cancel(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) listSessions(c *gin.Context) {
	if s.index != nil {
		list, err := s.index.ListSessions(c.Request.Context(), 50)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"sessions": list})
		return
	}

	list, err := s.sessions.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]models.IndexedSession, 0, len(list))
	for _, rec := range list {
		out = append(out, models.NewIndexedSession(rec))
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

func (s *Server) getSession(c *gin.Context) {
	rec, err := s.sessions.Load(c.Param("id"))
	if errors.Is(err, session.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}
