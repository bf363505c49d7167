package server

import (
	"cmp"
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
)

func (s *Server) handleGetRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"service": "Fable Analysis API",
		"status":  "ok",
	})
}

type bookSummary struct {
	ID         string `json:"id"`
	Title      string `json:"title,omitempty"`
	Workflow   string `json:"workflow"`
	Characters int    `json:"characters"`
	Segments   int    `json:"segments"`
	Failed     int    `json:"failed,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// GET /api/books
func (s *Server) handleGetBooks(c echo.Context) error {
	s.mu.RLock()
	out := make([]bookSummary, 0, len(s.Books))
	for _, b := range s.Books {
		out = append(out, bookSummary{
			ID:         b.ID,
			Title:      b.Title,
			Workflow:   b.Workflow,
			Characters: len(b.Characters),
			Segments:   b.Segments,
			Failed:     len(b.Failed),
			CreatedAt:  b.CreatedAt,
		})
	}
	s.mu.RUnlock()

	// Newest first; RFC 3339 sorts lexically.
	slices.SortFunc(out, func(a, b bookSummary) int {
		return cmp.Or(cmp.Compare(b.CreatedAt, a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return c.JSON(http.StatusOK, out)
}

// GET /api/books/:id
func (s *Server) handleGetBook(c echo.Context) error {
	s.mu.RLock()
	b, ok := s.Books[c.Param("id")]
	s.mu.RUnlock()
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown book")
	}
	return c.JSON(http.StatusOK, b)
}
