package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"sprintboard/internal/metrics"
	"sprintboard/internal/models"
	"sprintboard/internal/reports"
)

func sampleReport() reports.SprintReport {
	tasks := []models.Task{
		{ID: 1, Title: "Login page", Status: models.StatusDone, Priority: models.PriorityHigh},
		{ID: 2, Title: "Signup page", Status: models.StatusTodo, Priority: models.PriorityLow},
	}
	m := metrics.ForSprint(tasks)
	return reports.SprintReport{
		SprintID:           3,
		SprintName:         "Sprint 3",
		StartDate:          time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		EndDate:            time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC),
		Summary:            "Sprint 'Sprint 3' completed with 1 out of 2 tasks finished (50.00% completion rate). Team velocity: 1 tasks completed.",
		CompletedTasks:     tasks[:1],
		TaskCompletionRate: m.CompletionPercentage,
		Velocity:           m.Velocity,
		Metrics:            m,
		BurndownData:       []float64{m.CompletionPercentage},
		GeneratedAt:        time.Date(2025, 2, 15, 18, 0, 0, 0, time.UTC),
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{"JSON": FormatJSON, "yml": FormatYAML, "yaml": FormatYAML, "": FormatText, "txt": FormatText}
	for raw, want := range tests {
		got, err := ParseFormat(raw)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", raw, got, err, want)
		}
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Error("expected error for pdf")
	}
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, sampleReport(), FormatJSON); err != nil {
		t.Fatalf("Render: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded["task_completion_rate"] != 50.0 {
		t.Errorf("task_completion_rate = %v", decoded["task_completion_rate"])
	}
}

func TestRenderYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, sampleReport(), FormatYAML); err != nil {
		t.Fatalf("Render: %v", err)
	}

	var doc struct {
		SprintName   string         `yaml:"sprint_name"`
		StartDate    string         `yaml:"start_date"`
		Distribution map[string]int `yaml:"status_distribution"`
		Completed    []struct {
			Title string `yaml:"title"`
		} `yaml:"completed_tasks"`
	}
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not YAML: %v", err)
	}
	if doc.SprintName != "Sprint 3" || doc.StartDate != "2025-02-01" {
		t.Errorf("unexpected header %+v", doc)
	}
	if doc.Distribution["DONE"] != 1 || doc.Distribution["BLOCKED"] != 0 {
		t.Errorf("distribution = %v", doc.Distribution)
	}
	if len(doc.Completed) != 1 || doc.Completed[0].Title != "Login page" {
		t.Errorf("completed = %+v", doc.Completed)
	}
}

func TestRenderText(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, sampleReport(), FormatText); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Sprint 3 (#3)", "2025-02-01 to 2025-02-15", "50.00%", "IN_PROGRESS:", "#1 Login page [HIGH]", "Team velocity: 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	if err := Render(&bytes.Buffer{}, sampleReport(), Format("pdf")); err == nil {
		t.Error("expected error")
	}
}
