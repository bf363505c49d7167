package server

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/segmentio/ksuid"

	"fable/pkg/analysis"
	"fable/pkg/prompts"
	"fable/pkg/schema"
	"fable/pkg/utils"
)

type storyReq struct {
	Prompt string `json:"prompt"`
}

const maxStoryHistoryEntries = 50

// POST /api/story
func (s *Server) handlePostStory(c echo.Context) error {
	var req storyReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "prompt is required")
	}

	out, _, ok := analysis.Run(c.Request().Context(), s.Inferencer, prompts.Story{},
		prompts.StoryInput{Prompt: req.Prompt})
	if !ok || out.Text == "" {
		return echo.NewHTTPError(http.StatusBadGateway, "story generation failed")
	}

	entry := schema.StoryEntry{
		ID:        ksuid.New().String(),
		Prompt:    req.Prompt,
		Text:      out.Text,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}

	s.mu.Lock()
	s.Stories = append([]schema.StoryEntry{entry}, s.Stories...)
	if len(s.Stories) > maxStoryHistoryEntries {
		s.Stories = s.Stories[:maxStoryHistoryEntries]
	}
	history := slices.Clone(s.Stories)
	s.mu.Unlock()

	if err := utils.Save(storiesFile, history); err != nil {
		log.Warn("failed saving story history", "error", err)
	}

	log.Info("story generated", "id", entry.ID, "entries", len(history))

	return c.JSON(http.StatusOK, map[string]any{
		"result":  out.Text,
		"entry":   entry,
		"history": history,
	})
}
