package scenario

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ArtifactWriter writes run reports and screenshots under one directory.
type ArtifactWriter struct {
	outputDir string
}

// NewArtifactWriter creates a new artifact writer
func NewArtifactWriter(outputDir string) *ArtifactWriter {
	return &ArtifactWriter{
		outputDir: outputDir,
	}
}

// Dir returns the output directory.
func (w *ArtifactWriter) Dir() string { return w.outputDir }

// WriteScreenshot stores data under a unique name and returns its path.
func (w *ArtifactWriter) WriteScreenshot(prefix string, data []byte) (string, error) {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(w.outputDir, fmt.Sprintf("%s-%s.png", sanitize(prefix), uuid.New().String()))
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}
	return path, nil
}

// WriteAll writes the JSON report and the markdown summary.
func (w *ArtifactWriter) WriteAll(report *Report) error {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := w.WriteReportJSON(report); err != nil {
		return err
	}
	return w.WriteSummaryMarkdown(report)
}

func (w *ArtifactWriter) reportBase(report *Report) string {
	return sanitize(report.Scenario) + "-" + sanitize(report.Browser)
}

// WriteReportJSON writes the full report as JSON
func (w *ArtifactWriter) WriteReportJSON(report *Report) error {
	path := filepath.Join(w.outputDir, w.reportBase(report)+".json")

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if writeErr := os.WriteFile(path, data, 0600); writeErr != nil {
		return fmt.Errorf("failed to write report JSON: %w", writeErr)
	}

	return nil
}

// WriteSummaryMarkdown writes a human-readable markdown summary
func (w *ArtifactWriter) WriteSummaryMarkdown(report *Report) error {
	path := filepath.Join(w.outputDir, w.reportBase(report)+".md")

	var md strings.Builder

	md.WriteString(fmt.Sprintf("# %s\n\n", report.Scenario))
	md.WriteString(fmt.Sprintf("**Browser:** %s\n\n", report.Browser))
	md.WriteString(fmt.Sprintf("**Status:** %s\n\n", report.Status))
	md.WriteString(fmt.Sprintf("**Started:** %s\n\n", report.StartTime.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Duration:** %s\n\n", report.Duration))

	md.WriteString("## Steps\n\n")
	for _, step := range report.Steps {
		status := "✅"
		if step.Status != StatusPassed {
			status = "❌"
		}
		md.WriteString(fmt.Sprintf("%s %d. `%s`", status, step.Index, step.Action))
		if step.Target != "" {
			md.WriteString(fmt.Sprintf(" %s", step.Target))
		}
		md.WriteString(fmt.Sprintf(" (%s)\n", step.Duration))
		if step.Error != "" {
			md.WriteString(fmt.Sprintf("   Error: %s\n", step.Error))
		}
		if step.Screenshot != "" {
			md.WriteString(fmt.Sprintf("   Screenshot: %s\n", step.Screenshot))
		}
	}
	md.WriteString("\n")

	if writeErr := os.WriteFile(path, []byte(md.String()), 0600); writeErr != nil {
		return fmt.Errorf("failed to write summary markdown: %w", writeErr)
	}

	return nil
}

// sanitize makes s safe to use in a file name.
func sanitize(s string) string {
	if s == "" {
		return "unnamed"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
