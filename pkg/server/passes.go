package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"fable/pkg/analysis"
	"fable/pkg/prompts"
)

type textReq struct {
	Title string `json:"title,omitempty"`
	Text  string `json:"text"`
}

type momentsReq struct {
	Character string `json:"character"`
	Text      string `json:"text"`
}

// POST /api/themes
func (s *Server) handlePostThemes(c echo.Context) error {
	var req textReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}

	themes, _, ok := analysis.Run(c.Request().Context(), s.Inferencer, prompts.Themes{},
		prompts.ThemesInput{Title: req.Title, Text: req.Text})
	if !ok {
		return echo.NewHTTPError(http.StatusBadGateway, "theme inference failed")
	}
	return c.JSON(http.StatusOK, themes)
}

// POST /api/plot
func (s *Server) handlePostPlot(c echo.Context) error {
	var req textReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}

	chapters := analysis.CountChapters(req.Text)
	plot, _, ok := analysis.Run(c.Request().Context(), s.Inferencer, prompts.Plot{},
		prompts.PlotInput{Text: req.Text, Chapters: chapters})
	if !ok {
		return echo.NewHTTPError(http.StatusBadGateway, "plot inference failed")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"chapters":    chapters,
		"plot_points": plot.Points,
	})
}

// POST /api/moments
func (s *Server) handlePostMoments(c echo.Context) error {
	var req momentsReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	req.Character = strings.TrimSpace(req.Character)
	req.Text = strings.TrimSpace(req.Text)
	if req.Character == "" || req.Text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "character and text are required")
	}

	out, _, ok := analysis.Run(c.Request().Context(), s.Inferencer, prompts.Moments{},
		prompts.MomentsInput{Character: req.Character, Text: req.Text})
	if !ok {
		return echo.NewHTTPError(http.StatusBadGateway, "moments inference failed")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"character": req.Character,
		"moments":   out.Moments,
	})
}
