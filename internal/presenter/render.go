package presenter

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const descriptionWidth = 48

// RenderText writes a view as terminal tables.
func RenderText(w io.Writer, v View) error {
	return render(w, v, false)
}

// RenderMarkdown writes a view as GitHub-flavoured Markdown tables.
func RenderMarkdown(w io.Writer, v View) error {
	return render(w, v, true)
}

func render(w io.Writer, v View, markdown bool) error {
	if v.State != StateReady || v.Summary == nil {
		_, err := fmt.Fprintln(w, "Loading results...")
		return err
	}

	summary := newTable(markdown)
	summary.AppendHeader(table.Row{"Summary", ""})
	summary.AppendRows([]table.Row{
		{"Files Processed", v.Summary.FilesProcessed},
		{"Estimated Pages", v.Summary.EstimatedPages},
		{"Courses Found", v.Summary.CoursesFound},
		{"Recommendations", v.Summary.Recommendations},
	})
	if len(v.Summary.ExtractedCourses) > 0 {
		summary.AppendRow(table.Row{"Courses from Transcript", strings.Join(v.Summary.ExtractedCourses, ", ")})
	}
	if _, err := fmt.Fprintln(w, output(summary, markdown)); err != nil {
		return err
	}

	if len(v.Cards) > 0 {
		cards := newTable(markdown)
		cards.AppendHeader(table.Row{"#", "Course", "Match", "Liked", "Useful", "Easy", "Description", "Link"})
		cards.SetColumnConfigs([]table.ColumnConfig{
			{Number: 1, Align: text.AlignRight},
			{Number: 3, Align: text.AlignRight},
			{Number: 7, WidthMax: descriptionWidth},
		})
		for i, c := range v.Cards {
			cards.AppendRow(table.Row{
				i + 1,
				c.CourseCode,
				strings.TrimSuffix(c.MatchLabel, " Match"),
				metricValue(c.Metrics, "Liked"),
				metricValue(c.Metrics, "Useful"),
				metricValue(c.Metrics, "Easy"),
				c.Description,
				c.Link,
			})
		}
		if _, err := fmt.Fprintln(w, output(cards, markdown)); err != nil {
			return err
		}

		for _, c := range v.Cards {
			if len(c.Reviews) == 0 {
				continue
			}
			if _, err := fmt.Fprintf(w, "%s reviews:\n", c.CourseCode); err != nil {
				return err
			}
			for _, r := range c.Reviews {
				if _, err := fmt.Fprintf(w, "  %q\n", r); err != nil {
					return err
				}
			}
		}
	}

	for _, msg := range v.Empty {
		if _, err := fmt.Fprintln(w, msg); err != nil {
			return err
		}
	}
	return nil
}

func newTable(markdown bool) table.Writer {
	t := table.NewWriter()
	if !markdown {
		t.SetStyle(table.StyleLight)
	}
	return t
}

func output(t table.Writer, markdown bool) string {
	if markdown {
		return t.RenderMarkdown()
	}
	return t.Render()
}

func metricValue(metrics []Metric, label string) string {
	for _, m := range metrics {
		if m.Label == label {
			return m.Value
		}
	}
	return "-"
}
