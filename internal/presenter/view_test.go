package presenter

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"transcript-advisor/internal/analyses"
)

func ptr(v float64) *float64 { return &v }

func sampleEnvelope() analyses.Envelope {
	return analyses.Envelope{
		FilesProcessed:   1,
		TotalPages:       2,
		ExtractedCourses: []string{"CS100"},
		Recommendations: []analyses.Recommendation{{
			CourseCode: "CS101",
			Score:      0.87,
			CourseInfo: analyses.CourseInfo{
				CourseDescription: "Intro",
				LikedPercentage:   ptr(80),
				UsefulPercentage:  ptr(70),
				EasyPercentage:    ptr(60),
				URL:               "https://x",
				Reviews:           []string{"good", "hard", "long"},
			},
		}},
		TotalCoursesFound:    1,
		TotalRecommendations: 1,
	}
}

func TestPresentPageView(t *testing.T) {
	view := Present(sampleEnvelope(), ModePage)

	want := View{
		Mode:  ModePage,
		State: StateReady,
		Summary: &Summary{
			FilesProcessed:   1,
			EstimatedPages:   2,
			CoursesFound:     1,
			Recommendations:  1,
			ExtractedCourses: []string{"CS100"},
		},
		Cards: []Card{{
			CourseCode:  "CS101",
			Description: "Intro",
			MatchLabel:  "87.0% Match",
			Metrics: []Metric{
				{Label: "Liked", Value: "80%"},
				{Label: "Useful", Value: "70%"},
				{Label: "Easy", Value: "60%"},
			},
			Reviews: []string{"good", "hard"},
			Link:    "https://x",
		}},
	}
	if diff := cmp.Diff(want, view); diff != "" {
		t.Fatalf("view mismatch (-want +got):\n%s", diff)
	}
}

func TestPresentOmitsAbsentMetrics(t *testing.T) {
	env := sampleEnvelope()
	env.Recommendations[0].CourseInfo.LikedPercentage = nil
	env.Recommendations[0].CourseInfo.EasyPercentage = ptr(72.5)
	env.Recommendations[0].CourseInfo.URL = ""

	card := Present(env, ModeInline).Cards[0]
	want := []Metric{{Label: "Useful", Value: "70%"}, {Label: "Easy", Value: "72.5%"}}
	if diff := cmp.Diff(want, card.Metrics); diff != "" {
		t.Fatalf("metrics mismatch (-want +got):\n%s", diff)
	}
	if card.Link != "" {
		t.Fatalf("expected no link, got %q", card.Link)
	}
	if card.ScoreLabel != "Score: 87.0%" {
		t.Fatalf("unexpected inline score label %q", card.ScoreLabel)
	}
}

func TestPresentEmptyEnvelope(t *testing.T) {
	env := analyses.NewEnvelope(analyses.RawPayload{})
	view := Present(env, ModePage)
	if view.State != StateReady || len(view.Cards) != 0 {
		t.Fatalf("unexpected view: %+v", view)
	}
	if diff := cmp.Diff([]string{NoCoursesMessage, NoRecommendationsMessage}, view.Empty); diff != "" {
		t.Fatalf("empty messages mismatch (-want +got):\n%s", diff)
	}
}

func TestMatchLabelRounding(t *testing.T) {
	cases := map[float64]string{
		0:     "0.0% Match",
		0.87:  "87.0% Match",
		0.876: "87.6% Match",
		1:     "100.0% Match",
	}
	for score, want := range cases {
		if got := MatchLabel(score); got != want {
			t.Fatalf("MatchLabel(%v) = %q, want %q", score, got, want)
		}
	}
}

type fakeTaker struct {
	env analyses.Envelope
	ok  bool
	err error
}

func (f fakeTaker) Take(context.Context) (analyses.Envelope, bool, error) {
	return f.env, f.ok, f.err
}

func TestActivate(t *testing.T) {
	ctx := context.Background()

	view, err := Activate(ctx, fakeTaker{})
	if err != nil || view.State != StateLoading || view.Mode != ModePage {
		t.Fatalf("expected loading page view, got %+v (%v)", view, err)
	}

	view, err = Activate(ctx, fakeTaker{env: sampleEnvelope(), ok: true})
	if err != nil || view.State != StateReady {
		t.Fatalf("expected ready view, got %+v (%v)", view, err)
	}

	boom := errors.New("boom")
	if _, err := Activate(ctx, fakeTaker{err: boom}); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestRenderText(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderText(&buf, Present(sampleEnvelope(), ModePage)); err != nil {
		t.Fatalf("RenderText: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"CS101", "87.0%", "80%", "https://x", `"good"`, `"hard"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, `"long"`) {
		t.Fatalf("third review must not be rendered:\n%s", out)
	}

	buf.Reset()
	if err := RenderMarkdown(&buf, Loading(ModePage)); err != nil {
		t.Fatalf("RenderMarkdown: %v", err)
	}
	if !strings.Contains(buf.String(), "Loading") {
		t.Fatalf("expected loading text, got %q", buf.String())
	}
}
