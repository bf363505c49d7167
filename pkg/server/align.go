package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"fable/pkg/align"
	"fable/pkg/schema"
)

type alignReq struct {
	Text    string          `json:"text"`
	Dialogs []schema.Dialog `json:"dialogs"`
}

// POST /api/align
// Locates extracted dialog lines inside the chapter text for read-along
// highlighting. Purely local, no model call.
func (s *Server) handlePostAlign(c echo.Context) error {
	var req alignReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	if strings.TrimSpace(req.Text) == "" || len(req.Dialogs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "text and dialogs are required")
	}

	spans := align.Dialogs(req.Text, req.Dialogs)
	return c.JSON(http.StatusOK, map[string]any{
		"spans": spans,
	})
}
