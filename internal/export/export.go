// Package export renders sprint reports for files and terminals.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"sprintboard/internal/models"
	"sprintboard/internal/reports"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatText Format = "text"
)

// ParseFormat accepts json, yaml (or yml) and text, case-insensitively.
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "text", "txt", "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown export format %q", raw)
	}
}

// Render writes the report to w in the given format.
func Render(w io.Writer, report reports.SprintReport, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case FormatYAML:
		data, err := yaml.Marshal(yamlReport(report))
		if err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
		_, err = w.Write(data)
		return err
	case FormatText:
		return renderText(w, report)
	default:
		return fmt.Errorf("unknown export format %q", f)
	}
}

type yamlTask struct {
	ID       int64  `yaml:"id"`
	Title    string `yaml:"title"`
	Priority string `yaml:"priority"`
}

type yamlDoc struct {
	SprintID           int64          `yaml:"sprint_id"`
	SprintName         string         `yaml:"sprint_name"`
	StartDate          string         `yaml:"start_date"`
	EndDate            string         `yaml:"end_date"`
	Summary            string         `yaml:"summary"`
	TaskCompletionRate float64        `yaml:"task_completion_rate"`
	Velocity           float64        `yaml:"velocity"`
	TotalTasks         int            `yaml:"total_tasks"`
	StatusDistribution map[string]int `yaml:"status_distribution"`
	CompletedTasks     []yamlTask     `yaml:"completed_tasks"`
	BurndownData       []float64      `yaml:"burndown_data"`
	GeneratedAt        time.Time      `yaml:"generated_at"`
}

func yamlReport(r reports.SprintReport) yamlDoc {
	dist := make(map[string]int, len(r.Metrics.StatusDistribution))
	for k, v := range r.Metrics.StatusDistribution {
		dist[string(k)] = v
	}
	done := make([]yamlTask, 0, len(r.CompletedTasks))
	for _, t := range r.CompletedTasks {
		done = append(done, yamlTask{ID: t.ID, Title: t.Title, Priority: string(t.Priority)})
	}
	return yamlDoc{
		SprintID:           r.SprintID,
		SprintName:         r.SprintName,
		StartDate:          r.StartDate.Format(time.DateOnly),
		EndDate:            r.EndDate.Format(time.DateOnly),
		Summary:            r.Summary,
		TaskCompletionRate: r.TaskCompletionRate,
		Velocity:           r.Velocity,
		TotalTasks:         r.Metrics.TotalTasks,
		StatusDistribution: dist,
		CompletedTasks:     done,
		BurndownData:       r.BurndownData,
		GeneratedAt:        r.GeneratedAt.UTC(),
	}
}

func renderText(w io.Writer, r reports.SprintReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Sprint:\t%s (#%d)\n", r.SprintName, r.SprintID)
	fmt.Fprintf(tw, "Dates:\t%s to %s\n", r.StartDate.Format(time.DateOnly), r.EndDate.Format(time.DateOnly))
	fmt.Fprintf(tw, "Completion:\t%.2f%%\n", r.TaskCompletionRate)
	fmt.Fprintf(tw, "Velocity:\t%.0f\n", r.Velocity)
	for _, s := range models.TaskStatuses {
		fmt.Fprintf(tw, "  %s:\t%d\n", s, r.Metrics.StatusDistribution[s])
	}
	fmt.Fprintf(tw, "Generated:\t%s\n", r.GeneratedAt.UTC().Format(time.RFC3339))
	if err := tw.Flush(); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "\n%s\n", r.Summary); err != nil {
		return err
	}
	if len(r.CompletedTasks) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "\nCompleted tasks:"); err != nil {
		return err
	}
	for _, t := range r.CompletedTasks {
		if _, err := fmt.Fprintf(w, "  - #%d %s [%s]\n", t.ID, t.Title, t.Priority); err != nil {
			return err
		}
	}
	return nil
}
