package models

import "context"

// ParserClient defines the interface for the third-party parser gateway
type ParserClient interface {
	// Parse sends the source URL to the configured parser endpoint and
	// returns the normalized media record
	Parse(ctx context.Context, sourceURL string, cfg ParserConfig) (*ParsedMediaInfo, error)

	// ParseRaw returns the decoded response payload without normalization,
	// for preview and diagnostics
	ParseRaw(ctx context.Context, sourceURL string, cfg ParserConfig) (map[string]any, error)
}

// Uploader defines the interface for the WebDAV upload gateway
type Uploader interface {
	// Upload transfers the parsed media to the WebDAV server under
	// folderPath and reports the outcome
	Upload(ctx context.Context, info *ParsedMediaInfo, cfg WebDAVConfig, folderPath string) (*UploadResult, error)

	// Test verifies the WebDAV server is reachable with the given credentials
	Test(ctx context.Context, cfg WebDAVConfig) error
}

// HistoryStore defines the interface for conversion history persistence
type HistoryStore interface {
	SaveTask(task *ConversionTask) error
	GetTask(id string) (*ConversionTask, error)
	ListTasks(filter TaskFilter) ([]*ConversionTask, error)
	SaveBatch(batch *BatchTask) error
	GetBatch(id string) (*BatchTask, error)
	ListBatches(limit int) ([]*BatchTask, error)
	GetStats() (*Stats, error)
	Close() error
}

// ProgressFunc receives fractional progress and status transitions while
// a task runs
type ProgressFunc func(progress float64, status TaskStatus)
