package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"media-saver/pkg/models"
)

// ExportFormat represents different export formats
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
	FormatJSON ExportFormat = "json"
	FormatTXT  ExportFormat = "txt"
)

// ExportConfig holds configuration for history export
type ExportConfig struct {
	Format        ExportFormat
	FilePath      string
	Columns       []string
	DateFormat    string
	Delimiter     rune
	IncludeHeader bool
}

// DataExporter writes conversion history to different formats
type DataExporter struct {
	config ExportConfig
}

// NewDataExporter creates a new data exporter
func NewDataExporter(config ExportConfig) *DataExporter {
	// Set defaults
	if config.DateFormat == "" {
		config.DateFormat = "2006-01-02 15:04:05"
	}
	if config.Delimiter == 0 {
		config.Delimiter = ','
	}
	if len(config.Columns) == 0 {
		config.Columns = getDefaultColumns()
	}
	config.IncludeHeader = true

	return &DataExporter{
		config: config,
	}
}

// ExportTasks exports conversion tasks to the configured format
func (de *DataExporter) ExportTasks(tasks []*models.ConversionTask) error {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(de.config.FilePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	switch de.config.Format {
	case FormatCSV:
		return de.exportToCSV(tasks)
	case FormatXLSX:
		return de.exportToXLSX(tasks)
	case FormatJSON:
		return de.exportToJSON(tasks)
	case FormatTXT:
		return de.exportToTXT(tasks)
	default:
		return fmt.Errorf("unsupported export format: %s", de.config.Format)
	}
}

// exportToCSV exports tasks to CSV format
func (de *DataExporter) exportToCSV(tasks []*models.ConversionTask) error {
	file, err := os.Create(de.config.FilePath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	writer.Comma = de.config.Delimiter
	defer writer.Flush()

	// Write header
	if de.config.IncludeHeader {
		if err := writer.Write(de.config.Columns); err != nil {
			return fmt.Errorf("failed to write CSV header: %w", err)
		}
	}

	// Write data rows
	for _, task := range tasks {
		row := de.taskToRow(task)
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	return nil
}

// exportToXLSX exports tasks to Excel format
func (de *DataExporter) exportToXLSX(tasks []*models.ConversionTask) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Conversions"
	f.SetSheetName("Sheet1", sheetName)

	// Set header style
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
			Size: 12,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6E6FA"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	// Write headers
	for i, column := range de.config.Columns {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, column)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	// Set column widths
	columnWidths := map[string]float64{
		"A": 40, // ID
		"B": 60, // Source URL
		"C": 40, // Title
		"D": 15, // Media Type
		"E": 15, // Status
		"F": 60, // File Path
		"G": 40, // Error
		"H": 20, // Created At
		"I": 20, // Completed At
	}

	for col, width := range columnWidths {
		f.SetColWidth(sheetName, col, col, width)
	}

	// Write data rows
	for i, task := range tasks {
		row := de.taskToRow(task)
		for j, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+j, i+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	// Auto-filter
	endRange := fmt.Sprintf("%c%d", 'A'+len(de.config.Columns)-1, len(tasks)+1)
	f.AutoFilter(sheetName, "A1:"+endRange, []excelize.AutoFilterOptions{})

	// Freeze first row
	f.SetPanes(sheetName, &excelize.Panes{
		Freeze: true,
		Split:  false,
		XSplit: 0,
		YSplit: 1,
	})

	// Save file
	if err := f.SaveAs(de.config.FilePath); err != nil {
		return fmt.Errorf("failed to save XLSX file: %w", err)
	}

	return nil
}

// exportToJSON exports tasks to JSON format
func (de *DataExporter) exportToJSON(tasks []*models.ConversionTask) error {
	// Create export data structure
	exportData := struct {
		ExportedAt time.Time                `json:"exported_at"`
		Count      int                      `json:"count"`
		Tasks      []*models.ConversionTask `json:"tasks"`
	}{
		ExportedAt: time.Now(),
		Count:      len(tasks),
		Tasks:      tasks,
	}

	// Marshal to JSON
	data, err := json.MarshalIndent(exportData, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	// Write to file
	if err := os.WriteFile(de.config.FilePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}

	return nil
}

// exportToTXT exports tasks to plain text format
func (de *DataExporter) exportToTXT(tasks []*models.ConversionTask) error {
	file, err := os.Create(de.config.FilePath)
	if err != nil {
		return fmt.Errorf("failed to create TXT file: %w", err)
	}
	defer file.Close()

	// Write header
	fmt.Fprintf(file, "Conversion History Report\n")
	fmt.Fprintf(file, "Generated: %s\n", time.Now().Format(de.config.DateFormat))
	fmt.Fprintf(file, "Total Tasks: %d\n", len(tasks))
	fmt.Fprintf(file, "%s\n\n", strings.Repeat("=", 50))

	// Write task entries
	for i, task := range tasks {
		fmt.Fprintf(file, "Task %d:\n", i+1)
		fmt.Fprintf(file, "  ID: %s\n", task.ID)
		fmt.Fprintf(file, "  Source URL: %s\n", task.SourceURL)
		fmt.Fprintf(file, "  Title: %s\n", task.Title)
		fmt.Fprintf(file, "  Status: %s\n", task.Status)
		if task.ParsedInfo != nil {
			fmt.Fprintf(file, "  Media Type: %s\n", task.ParsedInfo.MediaType)
			if task.ParsedInfo.Author != "" {
				fmt.Fprintf(file, "  Author: %s\n", task.ParsedInfo.Author)
			}
		}
		if task.Upload != nil && task.Upload.FilePath != "" {
			fmt.Fprintf(file, "  Uploaded To: %s\n", task.Upload.FilePath)
		}
		if task.Error != "" {
			fmt.Fprintf(file, "  Error: %s\n", task.Error)
		}
		fmt.Fprintf(file, "  Created: %s\n", task.CreatedAt.Format(de.config.DateFormat))
		if task.CompletedAt != nil {
			fmt.Fprintf(file, "  Completed: %s\n", task.CompletedAt.Format(de.config.DateFormat))
		}
		fmt.Fprintf(file, "\n")
	}

	return nil
}

// taskToRow converts a ConversionTask to a row of strings
func (de *DataExporter) taskToRow(task *models.ConversionTask) []string {
	row := make([]string, len(de.config.Columns))

	for i, column := range de.config.Columns {
		switch strings.ToLower(column) {
		case "id", "task_id":
			row[i] = task.ID
		case "source_url", "url":
			row[i] = task.SourceURL
		case "title":
			row[i] = task.Title
		case "media_type":
			if task.ParsedInfo != nil {
				row[i] = string(task.ParsedInfo.MediaType)
			}
		case "author":
			if task.ParsedInfo != nil {
				row[i] = task.ParsedInfo.Author
			}
		case "description":
			if task.ParsedInfo != nil {
				row[i] = task.ParsedInfo.Description
			}
		case "format":
			if task.ParsedInfo != nil {
				row[i] = task.ParsedInfo.Format
			}
		case "duration":
			if task.ParsedInfo != nil && task.ParsedInfo.Duration > 0 {
				row[i] = fmt.Sprintf("%.0f", task.ParsedInfo.Duration)
			}
		case "image_count":
			if task.ParsedInfo != nil && task.ParsedInfo.ImageCount > 0 {
				row[i] = fmt.Sprintf("%d", task.ParsedInfo.ImageCount)
			}
		case "status":
			row[i] = string(task.Status)
		case "file_path", "uploaded_to":
			if task.Upload != nil {
				row[i] = task.Upload.FilePath
			}
		case "images_uploaded":
			if task.Upload != nil {
				row[i] = fmt.Sprintf("%d", task.Upload.ImagesUploaded)
			}
		case "error", "error_message":
			row[i] = task.Error
		case "batch_id":
			row[i] = task.BatchID
		case "created_at":
			row[i] = task.CreatedAt.Format(de.config.DateFormat)
		case "completed_at":
			if task.CompletedAt != nil {
				row[i] = task.CompletedAt.Format(de.config.DateFormat)
			}
		default:
			row[i] = ""
		}
	}

	return row
}

// getDefaultColumns returns default column names
func getDefaultColumns() []string {
	return []string{
		"ID",
		"Source URL",
		"Title",
		"Media Type",
		"Status",
		"File Path",
		"Error",
		"Created At",
		"Completed At",
	}
}

// ExportBatches exports batch summaries
func (de *DataExporter) ExportBatches(batches []*models.BatchTask) error {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(de.config.FilePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	switch de.config.Format {
	case FormatCSV:
		return de.exportBatchesToCSV(batches)
	case FormatXLSX:
		return de.exportBatchesToXLSX(batches)
	case FormatJSON:
		return de.exportBatchesToJSON(batches)
	default:
		return fmt.Errorf("unsupported export format for batches: %s", de.config.Format)
	}
}

// exportBatchesToCSV exports batches to CSV
func (de *DataExporter) exportBatchesToCSV(batches []*models.BatchTask) error {
	file, err := os.Create(de.config.FilePath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	writer.Comma = de.config.Delimiter
	defer writer.Flush()

	// Write header
	headers := []string{"ID", "Name", "Status", "Total Tasks", "Completed Tasks", "Created At", "Completed At"}
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	// Write data rows
	for _, batch := range batches {
		row := de.batchToRow(batch)
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	return nil
}

// exportBatchesToXLSX exports batches to Excel
func (de *DataExporter) exportBatchesToXLSX(batches []*models.BatchTask) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Batches"
	f.SetSheetName("Sheet1", sheetName)

	// Headers
	headers := []string{"ID", "Name", "Status", "Total Tasks", "Completed Tasks", "Created At", "Completed At"}

	// Write headers
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	// Write data
	for i, batch := range batches {
		row := de.batchToRow(batch)
		for j, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+j, i+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	return f.SaveAs(de.config.FilePath)
}

// exportBatchesToJSON exports batches to JSON
func (de *DataExporter) exportBatchesToJSON(batches []*models.BatchTask) error {
	exportData := struct {
		ExportedAt time.Time           `json:"exported_at"`
		Count      int                 `json:"count"`
		Batches    []*models.BatchTask `json:"batches"`
	}{
		ExportedAt: time.Now(),
		Count:      len(batches),
		Batches:    batches,
	}

	data, err := json.MarshalIndent(exportData, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return os.WriteFile(de.config.FilePath, data, 0644)
}

func (de *DataExporter) batchToRow(batch *models.BatchTask) []string {
	completedAt := ""
	if batch.CompletedAt != nil {
		completedAt = batch.CompletedAt.Format(de.config.DateFormat)
	}
	return []string{
		batch.ID,
		batch.Name,
		string(batch.Status),
		fmt.Sprintf("%d", batch.TotalTasks),
		fmt.Sprintf("%d", batch.CompletedTasks),
		batch.CreatedAt.Format(de.config.DateFormat),
		completedAt,
	}
}

// ExportTemplate creates a template file for bulk conversion input
func (de *DataExporter) ExportTemplate() error {
	switch de.config.Format {
	case FormatCSV:
		return de.createCSVTemplate()
	case FormatXLSX:
		return de.createXLSXTemplate()
	default:
		return fmt.Errorf("template creation not supported for format: %s", de.config.Format)
	}
}

// createCSVTemplate creates a CSV template
func (de *DataExporter) createCSVTemplate() error {
	file, err := os.Create(de.config.FilePath)
	if err != nil {
		return fmt.Errorf("failed to create CSV template: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write headers with example data
	headers := []string{"URL", "Parser", "WebDAV", "Folder"}
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	// Write example rows
	examples := [][]string{
		{"https://v.douyin.com/abc123/", "", "", ""},
		{"https://v.example.com/share/def456", "backup", "nas", "videos/2026"},
	}

	for _, example := range examples {
		if err := writer.Write(example); err != nil {
			return fmt.Errorf("failed to write example row: %w", err)
		}
	}

	return nil
}

// createXLSXTemplate creates an Excel template
func (de *DataExporter) createXLSXTemplate() error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Template"
	f.SetSheetName("Sheet1", sheetName)

	// Headers
	headers := []string{"URL", "Parser", "WebDAV", "Folder"}

	// Set headers
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	// Example data
	examples := [][]string{
		{"https://v.douyin.com/abc123/", "", "", ""},
		{"https://v.example.com/share/def456", "backup", "nas", "videos/2026"},
	}

	for i, example := range examples {
		row := i + 2
		for j, value := range example {
			cell := fmt.Sprintf("%c%d", 'A'+j, row)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	return f.SaveAs(de.config.FilePath)
}

// GetSupportedFormats returns list of supported export formats
func GetSupportedFormats() []ExportFormat {
	return []ExportFormat{FormatCSV, FormatXLSX, FormatJSON, FormatTXT}
}

// ValidateConfig validates export configuration
func ValidateConfig(config ExportConfig) error {
	if config.FilePath == "" {
		return fmt.Errorf("file path is required")
	}

	supported := false
	for _, format := range GetSupportedFormats() {
		if config.Format == format {
			supported = true
			break
		}
	}

	if !supported {
		return fmt.Errorf("unsupported format: %s", config.Format)
	}

	return nil
}
