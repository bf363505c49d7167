package analysis

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"fable/pkg/inference"
	"fable/pkg/merge"
	"fable/pkg/prompts"
	"fable/pkg/schema"
	"fable/pkg/utils"
)

// Config selects which passes run and how the text is sliced. Presets are
// tuned per model class: small models get the single batched call per
// segment, larger ones afford the pass-per-concern flow.
type Config struct {
	Name         string
	SegmentChars int
	MaxSegments  int
	Themes       bool
	Plot         bool
}

// FastConfig is the 2-pass preset: batched all-in-one extraction on small
// segments, then whole-book themes and plot.
func FastConfig() Config {
	return Config{Name: "fast", SegmentChars: 4000, MaxSegments: 10, Themes: true, Plot: true}
}

// RichConfig is the 3-pass preset: names, then dialogs against the known
// name list, then traits and voice per merged character.
func RichConfig() Config {
	return Config{Name: "rich", SegmentChars: 8000, MaxSegments: 50, Themes: true, Plot: true}
}

// ConfigFor resolves a workflow name, defaulting to fast.
func ConfigFor(name string) Config {
	if strings.EqualFold(strings.TrimSpace(name), "rich") {
		return RichConfig()
	}
	return FastConfig()
}

// Book is the unit of work handed to a workflow.
type Book struct {
	ID    string
	Title string
	Text  string
}

// Progress is invoked after each merged segment with the running character
// list. May be nil.
type Progress func(segment, total int, characters []schema.Character)

// Workflow runs the configured passes sequentially. One model call is in
// flight at a time and the merger state is only touched from this flow, so
// no locking is needed.
type Workflow struct {
	model  inference.Inferencer
	merger *merge.Merger
	config Config
	log    *log.Logger
}

type Option func(*Workflow)

func WithMerger(m *merge.Merger) Option { return func(w *Workflow) { w.merger = m } }

func WithLogger(l *log.Logger) Option { return func(w *Workflow) { w.log = l } }

func New(model inference.Inferencer, cfg Config, opts ...Option) *Workflow {
	w := &Workflow{
		model:  model,
		merger: merge.New(),
		config: cfg,
		log:    log.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Analyze runs the full pipeline over one book. The only error it returns
// is context cancellation; every extraction failure degrades into the
// Failed map of the result instead.
func (w *Workflow) Analyze(ctx context.Context, book Book, progress Progress) (*schema.BookAnalysis, error) {
	segments := utils.ChunkText(book.Text, w.config.SegmentChars)
	if len(segments) > w.config.MaxSegments {
		segments = segments[:w.config.MaxSegments]
	}
	w.log.Info("starting analysis",
		"book", book.ID, "workflow", w.config.Name, "segments", len(segments))

	state := merge.NewState()
	failed := make(map[string]schema.FailedSegment)

	var err error
	if w.config.Name == "rich" {
		state, err = w.runRich(ctx, segments, state, failed, progress)
	} else {
		state, err = w.runFast(ctx, segments, state, failed, progress)
	}
	if err != nil {
		return nil, err
	}

	// The Narrator carries all non-dialog prose in read-along mode and must
	// exist even when extraction found nothing.
	narrator := schema.DefaultVoice()
	state = w.merger.Merge(state, []schema.ExtractedCharacter{
		{Name: prompts.SpeakerNarrator, Voice: &narrator},
	})

	analysis := &schema.BookAnalysis{
		ID:         book.ID,
		Title:      book.Title,
		Workflow:   w.config.Name,
		Characters: w.merger.ToList(state),
		Segments:   len(segments),
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	if len(failed) > 0 {
		analysis.Failed = failed
	}

	if w.config.Themes {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		themes, _, ok := Run(ctx, w.model, prompts.Themes{}, prompts.ThemesInput{Title: book.Title, Text: book.Text})
		if ok && themes != (schema.ThemeAnalysis{}) {
			analysis.Themes = &themes
		}
	}
	if w.config.Plot {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		plot, _, ok := Run(ctx, w.model, prompts.Plot{}, prompts.PlotInput{Text: book.Text, Chapters: CountChapters(book.Text)})
		if ok {
			analysis.PlotPoints = plot.Points
		}
	}

	w.log.Info("analysis complete",
		"book", book.ID, "characters", len(analysis.Characters), "failed", len(failed))
	return analysis, nil
}

// runFast issues one batched call per segment and folds each batch straight
// into the merger.
func (w *Workflow) runFast(ctx context.Context, segments []string, state *merge.State, failed map[string]schema.FailedSegment, progress Progress) (*merge.State, error) {
	for i, seg := range segments {
		if ctx.Err() != nil {
			return state, ctx.Err()
		}
		out, raw, ok := Run(ctx, w.model, prompts.Batched{}, prompts.BatchedInput{
			Text:         seg,
			BatchIndex:   i,
			TotalBatches: len(segments),
		})
		if !ok || len(out.Characters) == 0 {
			failed[segmentKey(i)] = failedSegment("batched extraction produced nothing", seg, raw)
		}
		state = w.merger.Merge(state, out.Characters)
		w.report(progress, i, len(segments), state)
	}
	return state, nil
}

// runRich is names, then dialogs against the accumulated name list, then
// one traits/voice call per merged character.
func (w *Workflow) runRich(ctx context.Context, segments []string, state *merge.State, failed map[string]schema.FailedSegment, progress Progress) (*merge.State, error) {
	var known []string
	seen := make(map[string]struct{})
	addKnown := func(names []string) {
		for _, n := range names {
			key := strings.ToLower(n)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			known = append(known, n)
		}
	}

	for i, seg := range segments {
		if ctx.Err() != nil {
			return state, ctx.Err()
		}

		names, raw, ok := Run(ctx, w.model, prompts.Names{}, prompts.NamesInput{Text: seg})
		if !ok || len(names.Characters) == 0 {
			// Even a degraded segment can seed the name list locally.
			heuristic := prompts.HeuristicNames(seg)
			if len(heuristic) == 0 {
				failed[segmentKey(i)] = failedSegment("no names extracted", seg, raw)
			}
			names.Characters = heuristic
		}
		addKnown(names.Characters)

		dialogs, _, _ := Run(ctx, w.model, prompts.Dialogs{}, prompts.DialogsInput{Text: seg, Characters: known})

		batch := make([]schema.ExtractedCharacter, 0, len(names.Characters))
		for _, n := range names.Characters {
			batch = append(batch, schema.ExtractedCharacter{Name: n})
		}
		batch = append(batch, groupBySpeaker(dialogs.Dialogs)...)
		state = w.merger.Merge(state, batch)
		w.report(progress, i, len(segments), state)
	}

	// Traits pass runs over the merged cast so each character is asked about
	// exactly once, with their own dialog as context. Characters that came
	// back with traits get a personality synthesis on top.
	for _, ch := range w.merger.ToList(state) {
		if ctx.Err() != nil {
			return state, ctx.Err()
		}
		traits, _, ok := Run(ctx, w.model, prompts.Traits{}, prompts.TraitsInput{Character: ch.Name, Context: dialogContext(ch)})
		if !ok {
			continue
		}
		state = w.merger.Merge(state, []schema.ExtractedCharacter{
			{Name: ch.Name, Traits: traits.Traits, Voice: traits.Voice},
		})

		if len(traits.Traits) == 0 {
			continue
		}
		if ctx.Err() != nil {
			return state, ctx.Err()
		}
		personality, _, ok := Run(ctx, w.model, prompts.Personality{}, prompts.PersonalityInput{Character: ch.Name, Traits: traits.Traits})
		if !ok || len(personality.Personality) == 0 {
			continue
		}
		state = w.merger.Merge(state, []schema.ExtractedCharacter{
			{Name: ch.Name, Personality: personality.Personality},
		})
	}
	return state, nil
}

func (w *Workflow) report(progress Progress, i, total int, state *merge.State) {
	w.log.Debug("segment merged", "segment", i+1, "total", total, "characters", state.Len())
	if progress != nil {
		progress(i+1, total, w.merger.ToList(state))
	}
}

// groupBySpeaker turns attributed dialog lines into per-character batch
// entries, preserving line order. Unattributed lines are dropped; they
// cannot be voiced.
func groupBySpeaker(dialogs []schema.Dialog) []schema.ExtractedCharacter {
	idx := make(map[string]int)
	var out []schema.ExtractedCharacter
	for _, d := range dialogs {
		if d.Speaker == "" || d.Speaker == prompts.SpeakerUnknown {
			continue
		}
		i, ok := idx[d.Speaker]
		if !ok {
			i = len(out)
			idx[d.Speaker] = i
			out = append(out, schema.ExtractedCharacter{Name: d.Speaker})
		}
		out[i].Dialogs = append(out[i].Dialogs, d.Text)
	}
	return out
}

func dialogContext(ch schema.Character) string {
	lines := ch.Dialogs
	if len(lines) > 20 {
		lines = lines[:20]
	}
	if len(lines) == 0 {
		return "Character named " + ch.Name
	}
	return strings.Join(lines, " ")
}

func segmentKey(i int) string { return fmt.Sprintf("segment-%d", i+1) }

func failedSegment(reason, text, raw string) schema.FailedSegment {
	f := schema.FailedSegment{
		Reason: reason,
		Text:   utils.LimitStr(text, 200),
		Raw:    utils.LimitStr(raw, 2000),
	}
	if compressed, err := utils.CompressToBase64(text); err == nil {
		f.Compressed = compressed
	}
	return f
}

var chapterRX = regexp.MustCompile(`(?mi)^\s*chapter\s+(?:\d+|[ivxlc]+)\b`)

// CountChapters counts heading-style chapter markers, treating headless
// text as a single chapter.
func CountChapters(text string) int {
	n := len(chapterRX.FindAllString(text, -1))
	if n < 1 {
		return 1
	}
	return n
}
