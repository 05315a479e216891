package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"media-saver/pkg/models"
)

func sampleTasks() []*models.ConversionTask {
	completed := time.Date(2026, 8, 1, 12, 30, 0, 0, time.UTC)
	return []*models.ConversionTask{
		{
			ID:        "task_1",
			SourceURL: "https://v.example.com/1",
			Title:     "Cooking pasta",
			Status:    models.StatusSuccess,
			ParsedInfo: &models.ParsedMediaInfo{
				MediaType: models.MediaTypeVideo,
				Author:    "chef",
				Format:    "mp4",
				Duration:  93,
			},
			Upload:      &models.UploadResult{Success: true, FilePath: "https://dav.example.com/cooking_pasta.mp4"},
			CreatedAt:   completed.Add(-time.Minute),
			CompletedAt: &completed,
		},
		{
			ID:        "task_2",
			SourceURL: "https://v.example.com/2",
			Title:     "",
			Status:    models.StatusFailed,
			Error:     "parser API timed out",
			CreatedAt: completed,
		},
	}
}

func TestExportTasksCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.csv")
	exporter := NewDataExporter(ExportConfig{Format: FormatCSV, FilePath: path})

	if err := exporter.ExportTasks(sampleTasks()); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open export: %v", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read CSV: %v", err)
	}

	// Header + 2 rows
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}
	if records[0][0] != "ID" {
		t.Errorf("Expected ID header, got %s", records[0][0])
	}
	if records[1][0] != "task_1" || records[1][4] != "success" {
		t.Errorf("Unexpected first row: %v", records[1])
	}
	if records[2][6] != "parser API timed out" {
		t.Errorf("Expected error column, got %v", records[2])
	}
}

func TestExportTasksCustomColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.csv")
	exporter := NewDataExporter(ExportConfig{
		Format:   FormatCSV,
		FilePath: path,
		Columns:  []string{"id", "author", "duration", "uploaded_to"},
	})

	if err := exporter.ExportTasks(sampleTasks()); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	file, _ := os.Open(path)
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read CSV: %v", err)
	}

	if records[1][1] != "chef" || records[1][2] != "93" {
		t.Errorf("Unexpected row: %v", records[1])
	}
	if records[1][3] != "https://dav.example.com/cooking_pasta.mp4" {
		t.Errorf("Expected upload path, got %s", records[1][3])
	}
	// Failed task has no parsed info, columns stay empty
	if records[2][1] != "" || records[2][2] != "" {
		t.Errorf("Expected empty columns for failed task: %v", records[2])
	}
}

func TestExportTasksJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	exporter := NewDataExporter(ExportConfig{Format: FormatJSON, FilePath: path})

	if err := exporter.ExportTasks(sampleTasks()); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read export: %v", err)
	}

	var decoded struct {
		Count int                      `json:"count"`
		Tasks []*models.ConversionTask `json:"tasks"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to decode JSON: %v", err)
	}
	if decoded.Count != 2 || len(decoded.Tasks) != 2 {
		t.Errorf("Expected 2 tasks, got count=%d len=%d", decoded.Count, len(decoded.Tasks))
	}
	if decoded.Tasks[0].Upload == nil || !decoded.Tasks[0].Upload.Success {
		t.Errorf("Expected upload result round-tripped: %+v", decoded.Tasks[0].Upload)
	}
}

func TestExportTasksXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.xlsx")
	exporter := NewDataExporter(ExportConfig{Format: FormatXLSX, FilePath: path})

	if err := exporter.ExportTasks(sampleTasks()); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Errorf("Expected non-empty XLSX file, err=%v", err)
	}
}

func TestExportTasksTXT(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.txt")
	exporter := NewDataExporter(ExportConfig{Format: FormatTXT, FilePath: path})

	if err := exporter.ExportTasks(sampleTasks()); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	text := string(data)
	if !strings.Contains(text, "Cooking pasta") {
		t.Error("Expected title in report")
	}
	if !strings.Contains(text, "parser API timed out") {
		t.Error("Expected error in report")
	}
	if !strings.Contains(text, "Total Tasks: 2") {
		t.Error("Expected task count in report")
	}
}

func TestExportBatchesCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batches.csv")
	exporter := NewDataExporter(ExportConfig{Format: FormatCSV, FilePath: path})

	batches := []*models.BatchTask{
		{ID: "batch_1", Name: "evening run", Status: models.BatchStatusPartial, TotalTasks: 3, CompletedTasks: 2},
	}

	if err := exporter.ExportBatches(batches); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	file, _ := os.Open(path)
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read CSV: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[1][2] != "partial_success" || records[1][3] != "3" {
		t.Errorf("Unexpected batch row: %v", records[1])
	}
}

func TestValidateConfig(t *testing.T) {
	if err := ValidateConfig(ExportConfig{Format: FormatCSV}); err == nil {
		t.Error("Expected error for missing file path")
	}
	if err := ValidateConfig(ExportConfig{Format: "pdf", FilePath: "x.pdf"}); err == nil {
		t.Error("Expected error for unsupported format")
	}
	if err := ValidateConfig(ExportConfig{Format: FormatJSON, FilePath: "x.json"}); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}
