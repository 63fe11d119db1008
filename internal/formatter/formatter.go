// package formatter provides functions to export frame sheets to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"stopmo/internal/models"
	"stopmo/internal/shared"
)

// ExportToCSV converts a project's frame sheet to CSV format with columns: Index, Status, Filename, Note
func ExportToCSV(config *models.ProjectConfig) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Index", "Status", "Filename", "Note"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, frame := range config.Frames {
		record := []string{
			strconv.Itoa(frame.Index),
			shared.TakenString(frame.Taken),
			stringOrEmpty(frame.Filename),
			stringOrEmpty(frame.Note),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a project's frame sheet to Markdown format
func ExportToMarkdown(projectID string, config *models.ProjectConfig) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", projectID))
	buf.WriteString(fmt.Sprintf("**Frames**: %d\n", config.TotalFrames))
	buf.WriteString(fmt.Sprintf("**FPS**: %d\n", config.FPS))
	buf.WriteString(fmt.Sprintf("**Aspect ratio**: %.4f\n", config.AspectRatio))
	buf.WriteString(fmt.Sprintf("**Progress**: %s\n\n", shared.PercentString(config.TakenCount(), config.TotalFrames)))

	buf.WriteString("## Frames\n\n")
	buf.WriteString("| Index | Status | Filename | Note |\n")
	buf.WriteString("| ----- | ------ | -------- | ---- |\n")
	for _, frame := range config.Frames {
		buf.WriteString(fmt.Sprintf("| %d | %s | %s | %s |\n",
			frame.Index,
			shared.TakenString(frame.Taken),
			stringOrEmpty(frame.Filename),
			stringOrEmpty(frame.Note),
		))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a project's frame sheet to plain text format
func ExportToText(projectID string, config *models.ProjectConfig) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Project: %s\n", projectID))
	buf.WriteString(fmt.Sprintf("Frames: %d taken of %d (%s)\n\n",
		config.TakenCount(), config.TotalFrames,
		shared.PercentString(config.TakenCount(), config.TotalFrames)))

	for _, frame := range config.Frames {
		line := fmt.Sprintf("%4d. %s", frame.Index, shared.TakenString(frame.Taken))
		if frame.Filename != nil {
			line += fmt.Sprintf(" %s", *frame.Filename)
		}
		if frame.Note != nil {
			line += fmt.Sprintf(" -- %s", *frame.Note)
		}
		buf.WriteString(line + "\n")
	}

	return buf.Bytes(), nil
}

// ProjectMetadata is the summary serialized next to CSV exports.
type ProjectMetadata struct {
	ProjectID   string  `json:"project_id"`
	TotalFrames int     `json:"total_frames"`
	TakenFrames int     `json:"taken_frames"`
	FPS         int     `json:"fps"`
	AspectRatio float64 `json:"aspect_ratio"`
}

// ToMetadataJSON generates a JSON representation of project metadata (without the frame list)
func ToMetadataJSON(projectID string, config *models.ProjectConfig) ([]byte, error) {
	return shared.MarshalJSON(ProjectMetadata{
		ProjectID:   projectID,
		TotalFrames: config.TotalFrames,
		TakenFrames: config.TakenCount(),
		FPS:         config.FPS,
		AspectRatio: config.AspectRatio,
	}, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	FramesFile   string
	MetadataFile string
}

// WriteCSVExport exports a frame sheet to CSV format with an accompanying metadata JSON file.
//
// Defaults to the project ID as the base filename & creates {base}_frames.csv and {base}_metadata.json
func WriteCSVExport(projectID string, config *models.ProjectConfig, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = projectID
	}

	csvData, err := ExportToCSV(config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	framesFile := baseFilepath + "_frames.csv"
	if err := os.WriteFile(framesFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(projectID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		FramesFile:   framesFile,
		MetadataFile: metadataFile,
	}, nil
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
