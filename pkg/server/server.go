package server

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"fable/pkg/analysis"
	"fable/pkg/flight"
	"fable/pkg/inference"
	"fable/pkg/schema"
	"fable/pkg/utils"
)

const (
	booksFile   = "BookAnalyses.json"
	storiesFile = "StoryHistory.json"
)

type Server struct {
	Echo       *echo.Echo
	Inferencer inference.Inferencer
	Books      map[string]*schema.BookAnalysis
	Stories    []schema.StoryEntry
	Ctx        context.Context

	// DefaultWorkflow applies when an analyze request names none.
	DefaultWorkflow string

	mu sync.RWMutex // guards Books and Stories

	analyses flight.Cache[analyzeKey, *schema.BookAnalysis]

	submu   sync.Mutex
	subs    map[string]map[int]analysis.Progress
	nextSub int
}

func NewServer(ctx context.Context, inf inference.Inferencer) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.CORS())

	s := &Server{
		Echo:       e,
		Inferencer: inf,
		Books:      make(map[string]*schema.BookAnalysis),
		Ctx:        ctx,
		subs:       make(map[string]map[int]analysis.Progress),
	}
	s.analyses = flight.NewCache(s.analyze)

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.Echo.GET("/", s.handleGetRoot)

	api := s.Echo.Group("/api")
	api.POST("/analyze", s.handlePostAnalyze) // full pipeline, streams SSE progress
	api.POST("/themes", s.handlePostThemes)   // single-shot passes over raw text
	api.POST("/plot", s.handlePostPlot)
	api.POST("/moments", s.handlePostMoments)
	api.POST("/story", s.handlePostStory)
	api.POST("/align", s.handlePostAlign) // local span location, no model call

	api.GET("/books", s.handleGetBooks)
	api.GET("/books/:id", s.handleGetBook)
}

func (s *Server) Start(addr string) error {
	log.Info("server listening", "addr", addr)
	return s.Echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info("shutting down server")

	s.mu.RLock()
	books := maps.Clone(s.Books)
	stories := slices.Clone(s.Stories)
	s.mu.RUnlock()

	saveErr := utils.Save(booksFile, books)
	if err := utils.Save(storiesFile, stories); err != nil {
		log.Warn("failed saving story history", "error", err)
	}
	if err := s.Echo.Shutdown(ctx); err != nil {
		return err
	}
	return saveErr
}

func cancelled(c echo.Context) bool {
	select {
	case <-c.Request().Context().Done():
		return true
	default:
		return false
	}
}
