package headless

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/agent"
	"github.com/XueBing-Yang/AppAgent-AutoModel/pkg/workflow"
)

// ArtifactWriter handles writing execution artifacts
type ArtifactWriter struct {
	outputDir string
	config    ArtifactConfig
}

// NewArtifactWriter creates a new artifact writer
func NewArtifactWriter(outputDir string, cfg ArtifactConfig) *ArtifactWriter {
	return &ArtifactWriter{
		outputDir: outputDir,
		config:    cfg,
	}
}

// Dir returns the directory a summary's artifacts are written to: one
// subdirectory per run.
func (w *ArtifactWriter) Dir(summary *ExecutionSummary) string {
	name := summary.RunID
	if name == "" {
		name = summary.StartTime.Format("20060102-150405")
	}
	return filepath.Join(w.outputDir, name)
}

// WriteAll writes all configured artifact formats
func (w *ArtifactWriter) WriteAll(summary *ExecutionSummary) error {
	dir := w.Dir(summary)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if w.config.JSON {
		if err := w.WriteExecutionJSON(dir, summary); err != nil {
			return err
		}
	}
	if w.config.Markdown {
		if err := w.WriteSummaryMarkdown(dir, summary); err != nil {
			return err
		}
	}
	return nil
}

// WriteExecutionJSON writes the full execution summary, trace included, as JSON
func (w *ArtifactWriter) WriteExecutionJSON(dir string, summary *ExecutionSummary) error {
	path := filepath.Join(dir, "execution.json")

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal execution summary: %w", err)
	}

	if writeErr := os.WriteFile(path, data, 0600); writeErr != nil {
		return fmt.Errorf("failed to write execution JSON: %w", writeErr)
	}
	return nil
}

// WriteSummaryMarkdown writes a human-readable markdown summary
func (w *ArtifactWriter) WriteSummaryMarkdown(dir string, summary *ExecutionSummary) error {
	path := filepath.Join(dir, "summary.md")

	var md strings.Builder

	md.WriteString("# AppAgent Run Summary\n\n")
	md.WriteString(fmt.Sprintf("**Task:** %s\n\n", summary.Task))
	md.WriteString(fmt.Sprintf("**Status:** %s (%s)\n\n", summary.Status, summary.State))
	md.WriteString(fmt.Sprintf("**Started:** %s\n\n", summary.StartTime.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Duration:** %s\n\n", summary.Duration))

	md.WriteString("## Result\n\n")
	switch {
	case summary.Error != "":
		md.WriteString(fmt.Sprintf("❌ **Error:** %s\n\n", summary.Error))
	case summary.Reply != "":
		md.WriteString(summary.Reply + "\n\n")
	default:
		md.WriteString("_(no reply)_\n\n")
	}

	if summary.Plan != nil && !summary.Plan.IsGeneral() {
		md.WriteString(fmt.Sprintf("## Plan (%s)\n\n", summary.Plan.Summarize()))
		for _, step := range summary.Plan.Steps {
			box := " "
			if step.Status == workflow.StatusCompleted {
				box = "x"
			}
			md.WriteString(fmt.Sprintf("- [%s] %s", box, step.Title))
			if step.Note != "" {
				md.WriteString(fmt.Sprintf(" (%s)", step.Note))
			}
			md.WriteString("\n")
		}
		md.WriteString("\n")
	}

	if len(summary.Steps) > 0 {
		md.WriteString("## Steps\n\n")
		for i, step := range summary.Steps {
			status := "✅"
			if !step.Success {
				status = "❌ " + step.ErrorKind
			}
			md.WriteString(fmt.Sprintf("%d. `%s` %s\n", i+1, step.Name, status))
		}
		md.WriteString("\n")
	}

	md.WriteString("## Metrics\n\n")
	md.WriteString(fmt.Sprintf("- **Steps:** %d\n", summary.Metrics.Steps))
	md.WriteString(fmt.Sprintf("- **Failed Steps:** %d\n", summary.Metrics.FailedSteps))
	md.WriteString(fmt.Sprintf("- **Messages:** %d\n", summary.Metrics.Messages))

	if writeErr := os.WriteFile(path, []byte(md.String()), 0600); writeErr != nil {
		return fmt.Errorf("failed to write summary markdown: %w", writeErr)
	}
	return nil
}

// ExecutionSummary contains a complete summary of one unattended run
type ExecutionSummary struct {
	RunID     string             `json:"run_id"`
	Task      string             `json:"task"`
	Status    string             `json:"status"`
	State     agent.State        `json:"state"`
	Reply     string             `json:"reply,omitempty"`
	Error     string             `json:"error,omitempty"`
	StartTime time.Time          `json:"start_time"`
	EndTime   time.Time          `json:"end_time"`
	Duration  time.Duration      `json:"duration"`
	Plan      *workflow.Plan     `json:"plan,omitempty"`
	Steps     []StepRecord       `json:"steps"`
	Trace     []agent.TraceEntry `json:"trace,omitempty"`
	Metrics   ExecutionMetrics   `json:"metrics"`
}

// StepRecord is one dispatched skill and its outcome.
type StepRecord struct {
	Name      string `json:"name"`
	Success   bool   `json:"success"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// ExecutionMetrics contains execution metrics
type ExecutionMetrics struct {
	Steps       int `json:"steps"`
	FailedSteps int `json:"failed_steps"`
	Messages    int `json:"messages"`
}
