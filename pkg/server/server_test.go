package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/openai/openai-go/v3"

	"fable/pkg/schema"
)

// stubModel routes on the system prompt so each endpoint gets its own
// canned response.
type stubModel struct {
	batched string
	themes  string
	plot    string
	moments string
	story   string
	err     error
}

func (f *stubModel) Infer(_ context.Context, _ *openai.ChatCompletionNewParams, system, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	switch {
	case strings.Contains(system, "Story analysis engine"):
		return f.batched, nil
	case strings.Contains(system, "mood, genre"):
		return f.themes, nil
	case strings.Contains(system, "story structure"):
		return f.plot, nil
	case strings.Contains(system, "literary analyst"):
		return f.moments, nil
	case strings.Contains(system, "storyteller"):
		return f.story, nil
	}
	return "{}", nil
}

func newTestServer(t *testing.T, model *stubModel) *Server {
	t.Helper()
	t.Chdir(t.TempDir()) // handlers persist JSON files into the working dir
	return NewServer(context.Background(), model)
}

func doJSON(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeEndpointStreams(t *testing.T) {
	s := newTestServer(t, &stubModel{
		batched: `{"Tom":{"D":["Hi"],"T":["brave"],"V":"male,young,neutral,1.0,1.0"}}`,
		themes:  `{"mood":"tense","genre":"mystery","era":"modern","emotional_tone":"uneasy","suggested_ambient_sound":null}`,
		plot:    `[{"type":"setup","chapter":1,"description":"opening","confidence":0.8}]`,
	})

	rec := doJSON(s, http.MethodPost, "/api/analyze",
		`{"id":"b1","title":"Doorway","text":"Tom opened the door. \"Hi,\" said Tom."}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, "event: segment") {
		t.Error("missing segment event in stream")
	}
	if !strings.Contains(body, "event: done") {
		t.Error("missing done event in stream")
	}

	s.mu.RLock()
	stored, ok := s.Books["b1"]
	s.mu.RUnlock()
	if !ok {
		t.Fatal("analysis not stored")
	}
	names := make(map[string]bool)
	for _, ch := range stored.Characters {
		names[ch.Name] = true
	}
	if !names["Tom"] || !names["Narrator"] {
		t.Errorf("characters = %+v", stored.Characters)
	}
	if stored.Themes == nil || stored.Themes.Genre != "mystery" {
		t.Errorf("themes = %+v", stored.Themes)
	}
}

func TestAnalyzeRequiresText(t *testing.T) {
	s := newTestServer(t, &stubModel{})
	if rec := doJSON(s, http.MethodPost, "/api/analyze", `{"id":"b1"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestThemesEndpoint(t *testing.T) {
	s := newTestServer(t, &stubModel{
		themes: `{"mood":"dark","genre":"horror","era":"victorian","emotional_tone":"dread","suggested_ambient_sound":"rain"}`,
	})

	rec := doJSON(s, http.MethodPost, "/api/themes", `{"title":"T","text":"Some chapter text."}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var themes schema.ThemeAnalysis
	if err := json.Unmarshal(rec.Body.Bytes(), &themes); err != nil {
		t.Fatal(err)
	}
	if themes.Genre != "horror" || themes.SuggestedAmbientSound == nil {
		t.Errorf("themes = %+v", themes)
	}
}

func TestThemesEndpointModelFailure(t *testing.T) {
	s := newTestServer(t, &stubModel{err: errors.New("engine unavailable")})
	if rec := doJSON(s, http.MethodPost, "/api/themes", `{"text":"text"}`); rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestMomentsRequiresCharacter(t *testing.T) {
	s := newTestServer(t, &stubModel{})
	if rec := doJSON(s, http.MethodPost, "/api/moments", `{"text":"text"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestStoryEndpointKeepsHistory(t *testing.T) {
	s := newTestServer(t, &stubModel{story: "Once upon a time, Mira spoke."})

	for _, prompt := range []string{"first", "second"} {
		rec := doJSON(s, http.MethodPost, "/api/story", `{"prompt":"`+prompt+`"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.Stories) != 2 {
		t.Fatalf("history = %+v", s.Stories)
	}
	if s.Stories[0].Prompt != "second" {
		t.Errorf("newest entry should lead, got %q", s.Stories[0].Prompt)
	}
	if s.Stories[0].ID == "" || s.Stories[0].Text == "" {
		t.Errorf("entry = %+v", s.Stories[0])
	}
}

func TestAlignEndpoint(t *testing.T) {
	s := newTestServer(t, &stubModel{})

	rec := doJSON(s, http.MethodPost, "/api/align",
		`{"text":"Tom waved. \"Hello there,\" he said.","dialogs":[{"speaker":"Tom","text":"Hello there,"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Spans []struct {
			Dialog int  `json:"dialog"`
			Start  int  `json:"start"`
			End    int  `json:"end"`
			Exact  bool `json:"exact"`
		} `json:"spans"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Spans) != 1 || !out.Spans[0].Exact || out.Spans[0].Start >= out.Spans[0].End {
		t.Errorf("spans = %+v", out.Spans)
	}

	if rec := doJSON(s, http.MethodPost, "/api/align", `{"text":"x"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("missing dialogs status = %d", rec.Code)
	}
}

func TestGetBooks(t *testing.T) {
	s := newTestServer(t, &stubModel{})
	s.Books["old"] = &schema.BookAnalysis{ID: "old", Workflow: "fast", CreatedAt: "2026-01-01T00:00:00Z"}
	s.Books["new"] = &schema.BookAnalysis{ID: "new", Workflow: "rich", CreatedAt: "2026-02-01T00:00:00Z"}

	rec := doJSON(s, http.MethodGet, "/api/books", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var out []bookSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0].ID != "new" {
		t.Errorf("books = %+v", out)
	}

	if rec := doJSON(s, http.MethodGet, "/api/books/old", ""); rec.Code != http.StatusOK {
		t.Errorf("lookup status = %d", rec.Code)
	}
	if rec := doJSON(s, http.MethodGet, "/api/books/missing", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing status = %d", rec.Code)
	}
}
