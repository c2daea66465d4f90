package presenter

import (
	"context"
	"fmt"
	"strconv"

	"transcript-advisor/internal/analyses"
)

// Mode selects where a view is shown.
type Mode string

const (
	// ModeInline renders next to the upload controls from an in-memory envelope.
	ModeInline Mode = "inline"
	// ModePage renders the standalone results view from the transfer slot.
	ModePage Mode = "page"
)

// State of a view.
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
)

const (
	maxReviews = 2

	NoCoursesMessage         = "No courses detected in transcript"
	NoRecommendationsMessage = "No recommendations available. Make sure your transcript contains recognizable course codes."
)

// Metric is one optional satisfaction percentage.
type Metric struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Card is the display form of one recommendation.
type Card struct {
	CourseCode  string   `json:"courseCode"`
	Description string   `json:"description,omitempty"`
	MatchLabel  string   `json:"matchLabel"`
	ScoreLabel  string   `json:"scoreLabel,omitempty"`
	Metrics     []Metric `json:"metrics"`
	Reviews     []string `json:"reviews"`
	Link        string   `json:"link,omitempty"`
}

// Summary is the header block of a view.
type Summary struct {
	FilesProcessed   int      `json:"filesProcessed"`
	EstimatedPages   int      `json:"estimatedPages"`
	CoursesFound     int      `json:"coursesFound"`
	Recommendations  int      `json:"recommendations"`
	ExtractedCourses []string `json:"extractedCourses"`
}

// View is what a results surface displays. Summary and Cards are set only when ready.
type View struct {
	Mode    Mode     `json:"mode"`
	State   State    `json:"state"`
	Summary *Summary `json:"summary,omitempty"`
	Cards   []Card   `json:"cards,omitempty"`
	// Empty carries the placeholder texts for empty sections of a ready view.
	Empty []string `json:"empty,omitempty"`
}

// Taker reads the handed-off envelope; transfer.Channel implements it.
type Taker interface {
	Take(ctx context.Context) (analyses.Envelope, bool, error)
}

// Loading returns a view waiting for data.
func Loading(mode Mode) View {
	return View{Mode: mode, State: StateLoading}
}

// Present builds the ready view of an envelope. It never fails and never touches the network.
func Present(env analyses.Envelope, mode Mode) View {
	view := View{
		Mode:  mode,
		State: StateReady,
		Summary: &Summary{
			FilesProcessed:   env.FilesProcessed,
			EstimatedPages:   env.TotalPages,
			CoursesFound:     env.TotalCoursesFound,
			Recommendations:  env.TotalRecommendations,
			ExtractedCourses: append([]string{}, env.ExtractedCourses...),
		},
		Cards: make([]Card, 0, len(env.Recommendations)),
	}
	for _, rec := range env.Recommendations {
		view.Cards = append(view.Cards, card(rec, mode))
	}
	if len(env.ExtractedCourses) == 0 {
		view.Empty = append(view.Empty, NoCoursesMessage)
	}
	if len(env.Recommendations) == 0 {
		view.Empty = append(view.Empty, NoRecommendationsMessage)
	}
	return view
}

// Activate builds the standalone view from the transfer slot. With nothing
// handed off the view stays loading; that is not an error.
func Activate(ctx context.Context, src Taker) (View, error) {
	env, ok, err := src.Take(ctx)
	if err != nil {
		return Loading(ModePage), err
	}
	if !ok {
		return Loading(ModePage), nil
	}
	return Present(env, ModePage), nil
}

// MatchLabel formats a [0,1] score as a percentage with one decimal.
func MatchLabel(score float64) string {
	return fmt.Sprintf("%.1f%% Match", score*100)
}

// Percent formats a [0,100] value without trailing zeros, e.g. 80%.
func Percent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "%"
}

func card(rec analyses.Recommendation, mode Mode) Card {
	info := rec.CourseInfo
	c := Card{
		CourseCode:  rec.CourseCode,
		Description: info.CourseDescription,
		MatchLabel:  MatchLabel(rec.Score),
		Metrics:     []Metric{},
		Link:        info.URL,
	}
	if mode == ModeInline {
		c.ScoreLabel = fmt.Sprintf("Score: %.1f%%", rec.Score*100)
	}

	for _, m := range []struct {
		label string
		value *float64
	}{
		{"Liked", info.LikedPercentage},
		{"Useful", info.UsefulPercentage},
		{"Easy", info.EasyPercentage},
	} {
		if m.value == nil {
			continue
		}
		c.Metrics = append(c.Metrics, Metric{Label: m.label, Value: Percent(*m.value)})
	}

	reviews := info.Reviews
	if len(reviews) > maxReviews {
		reviews = reviews[:maxReviews]
	}
	c.Reviews = append([]string{}, reviews...)
	return c
}
