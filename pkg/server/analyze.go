package server

import (
	"maps"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/segmentio/ksuid"

	"fable/pkg/analysis"
	"fable/pkg/schema"
	"fable/pkg/utils"
)

type analyzeReq struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Text     string `json:"text"`
	Workflow string `json:"workflow"`
	Force    bool   `json:"force"`
}

// analyzeKey identifies one unit of analysis work. The text is part of the
// key so a re-upload with changed content never gets a stale result.
type analyzeKey struct {
	ID       string
	Title    string
	Text     string
	Workflow string
}

// analyze is the flight cache's work function. Coalesced runs outlive any
// single request, so they execute under the server context; a disconnecting
// client must not abort a run another client is waiting on.
func (s *Server) analyze(k analyzeKey) (*schema.BookAnalysis, error) {
	w := analysis.New(s.Inferencer, analysis.ConfigFor(k.Workflow))
	return w.Analyze(s.Ctx, analysis.Book{ID: k.ID, Title: k.Title, Text: k.Text}, s.broadcast(k.ID))
}

// POST /api/analyze
func (s *Server) handlePostAnalyze(c echo.Context) error {
	var req analyzeReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}
	if req.ID = strings.TrimSpace(req.ID); req.ID == "" {
		req.ID = ksuid.New().String()
	}
	if req.Workflow == "" {
		req.Workflow = s.DefaultWorkflow
	}

	if n, err := utils.NumTokens(req.Text); err == nil {
		log.Debug("analyze request", "book", req.ID, "workflow", req.Workflow, "tokens", n)
	}

	key := analyzeKey{
		ID:       req.ID,
		Title:    strings.TrimSpace(req.Title),
		Text:     req.Text,
		Workflow: req.Workflow,
	}

	w := utils.NewSSEWriter(c)
	defer w.Close()

	unsubscribe := s.subscribe(req.ID, func(segment, total int, characters []schema.Character) {
		if cancelled(c) {
			return
		}
		_ = w.Event("segment", map[string]any{
			"segment":    segment,
			"total":      total,
			"characters": characters,
		})
	})
	defer unsubscribe()

	var result *schema.BookAnalysis
	var err error
	if req.Force {
		result, err = s.analyses.Force(key)
	} else {
		result, err = s.analyses.Get(key)
	}
	if err != nil {
		log.Error("analysis failed", "book", req.ID, "error", err)
		_ = w.Event("error", utils.ErrJSON(err.Error()))
		return nil
	}

	s.mu.Lock()
	s.Books[result.ID] = result
	books := maps.Clone(s.Books)
	s.mu.Unlock()
	if err := utils.Save(booksFile, books); err != nil {
		log.Warn("failed saving analyses", "error", err)
	}

	return w.Event("done", result)
}

// subscribe registers a per-request progress callback for one book and
// returns its removal func. Multiple requests coalesced onto the same run
// all see the segment events.
func (s *Server) subscribe(bookID string, fn analysis.Progress) func() {
	s.submu.Lock()
	id := s.nextSub
	s.nextSub++
	if s.subs[bookID] == nil {
		s.subs[bookID] = make(map[int]analysis.Progress)
	}
	s.subs[bookID][id] = fn
	s.submu.Unlock()

	return func() {
		s.submu.Lock()
		delete(s.subs[bookID], id)
		if len(s.subs[bookID]) == 0 {
			delete(s.subs, bookID)
		}
		s.submu.Unlock()
	}
}

func (s *Server) broadcast(bookID string) analysis.Progress {
	return func(segment, total int, characters []schema.Character) {
		s.submu.Lock()
		fns := make([]analysis.Progress, 0, len(s.subs[bookID]))
		for _, fn := range s.subs[bookID] {
			fns = append(fns, fn)
		}
		s.submu.Unlock()

		for _, fn := range fns {
			fn(segment, total, characters)
		}
	}
}
