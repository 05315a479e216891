package models

import (
	"strconv"
	"time"
)

// MediaType represents the kind of media a parser response resolved to
type MediaType string

const (
	MediaTypeVideo      MediaType = "video"
	MediaTypeImageAlbum MediaType = "image_album"
)

// TaskStatus represents the lifecycle state of a conversion task
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusParsing   TaskStatus = "parsing"
	StatusParsed    TaskStatus = "parsed"
	StatusUploading TaskStatus = "uploading"
	StatusSuccess   TaskStatus = "success"
	StatusFailed    TaskStatus = "failed"
)

// Terminal reports whether a task in this status will not transition again.
func (s TaskStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// BatchStatus represents the terminal classification of a batch run.
// A batch where only some tasks succeeded reports partial_success so
// callers can tell it apart from a clean run.
type BatchStatus string

const (
	BatchStatusPending BatchStatus = "pending"
	BatchStatusRunning BatchStatus = "running"
	BatchStatusSuccess BatchStatus = "success"
	BatchStatusPartial BatchStatus = "partial_success"
	BatchStatusFailed  BatchStatus = "failed"
)

// PublishTime carries a publish timestamp that third-party parsers return
// either as epoch milliseconds or as a free-text date string.
type PublishTime struct {
	Millis int64  `json:"millis,omitempty"`
	Raw    string `json:"raw,omitempty"`
}

// IsZero reports whether no time information was extracted
func (p PublishTime) IsZero() bool {
	return p.Millis == 0 && p.Raw == ""
}

// String returns the millis value when present, the raw text otherwise
func (p PublishTime) String() string {
	if p.Millis != 0 {
		return strconv.FormatInt(p.Millis, 10)
	}
	return p.Raw
}

// ImageInfo represents a single image inside an album
type ImageInfo struct {
	URL      string `json:"url"`
	Filename string `json:"filename,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
}

// ParsedMediaInfo is the canonical record produced by response
// normalization. Video fields or album fields are populated depending
// on MediaType, never both.
type ParsedMediaInfo struct {
	Title       string      `json:"title"`
	Author      string      `json:"author,omitempty"`
	Avatar      string      `json:"avatar,omitempty"`
	Signature   string      `json:"signature,omitempty"`
	Time        PublishTime `json:"time,omitempty"`
	Description string      `json:"description,omitempty"`
	MediaType   MediaType   `json:"media_type"`

	// Video fields
	URL       string  `json:"url,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
	FileSize  int64   `json:"file_size,omitempty"`
	Format    string  `json:"format,omitempty"`
	Thumbnail string  `json:"thumbnail,omitempty"`

	// Album fields
	Images     []ImageInfo `json:"images,omitempty"`
	ImageCount int         `json:"image_count,omitempty"`
}

// UploadResult records the outcome of an upload gateway call
type UploadResult struct {
	Success  bool   `json:"success"`
	FilePath string `json:"file_path,omitempty"`
	Error    string `json:"error,omitempty"`

	// Album bookkeeping. Partial image failures do not fail the task,
	// they only show up in these counters.
	ImagesUploaded int `json:"images_uploaded,omitempty"`
	ImagesFailed   int `json:"images_failed,omitempty"`
}

// ConversionTask represents a single share-link conversion
type ConversionTask struct {
	ID          string           `json:"id" gorm:"primaryKey"`
	SourceURL   string           `json:"source_url" gorm:"index"`
	Title       string           `json:"title"`
	Status      TaskStatus       `json:"status" gorm:"default:pending;index"`
	Progress    float64          `json:"progress"`
	Error       string           `json:"error,omitempty"`
	ParsedInfo  *ParsedMediaInfo `json:"parsed_info,omitempty" gorm:"serializer:json"`
	Upload      *UploadResult    `json:"upload,omitempty" gorm:"serializer:json"`
	BatchID     string           `json:"batch_id,omitempty" gorm:"index"`
	CreatedAt   time.Time        `json:"created_at" gorm:"autoCreateTime"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// BatchTask represents an ordered run of conversion tasks sharing one
// parser and one WebDAV configuration
type BatchTask struct {
	ID             string            `json:"id" gorm:"primaryKey"`
	Name           string            `json:"name"`
	Status         BatchStatus       `json:"status" gorm:"default:pending"`
	TotalTasks     int               `json:"total_tasks"`
	CompletedTasks int               `json:"completed_tasks"`
	Tasks          []*ConversionTask `json:"tasks,omitempty" gorm:"-"`
	CreatedAt      time.Time         `json:"created_at" gorm:"autoCreateTime"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
}

// ParserConfig describes a user-configured third-party parser endpoint
type ParserConfig struct {
	ID                string            `json:"id" mapstructure:"id" yaml:"id"`
	Name              string            `json:"name" mapstructure:"name" yaml:"name"`
	APIURL            string            `json:"api_url" mapstructure:"api_url" yaml:"api_url"`
	APIKey            string            `json:"api_key,omitempty" mapstructure:"api_key" yaml:"api_key"`
	IsDefault         bool              `json:"is_default,omitempty" mapstructure:"is_default" yaml:"is_default"`
	RequestMethod     string            `json:"request_method,omitempty" mapstructure:"request_method" yaml:"request_method"`
	URLParamName      string            `json:"url_param_name,omitempty" mapstructure:"url_param_name" yaml:"url_param_name"`
	CustomHeaders     map[string]string `json:"custom_headers,omitempty" mapstructure:"custom_headers" yaml:"custom_headers"`
	CustomBodyParams  map[string]any    `json:"custom_body_params,omitempty" mapstructure:"custom_body_params" yaml:"custom_body_params"`
	CustomQueryParams map[string]string `json:"custom_query_params,omitempty" mapstructure:"custom_query_params" yaml:"custom_query_params"`
}

// Method returns the configured request method, defaulting to POST
func (c ParserConfig) Method() string {
	if c.RequestMethod == "GET" {
		return "GET"
	}
	return "POST"
}

// ParamName returns the query/body parameter carrying the source URL
func (c ParserConfig) ParamName() string {
	if c.URLParamName != "" {
		return c.URLParamName
	}
	return "url"
}

// WebDAVConfig describes a user-configured WebDAV server
type WebDAVConfig struct {
	ID        string `json:"id" mapstructure:"id" yaml:"id"`
	Name      string `json:"name" mapstructure:"name" yaml:"name"`
	URL       string `json:"url" mapstructure:"url" yaml:"url"`
	Username  string `json:"username" mapstructure:"username" yaml:"username"`
	Password  string `json:"password,omitempty" mapstructure:"password" yaml:"password"`
	BasePath  string `json:"base_path,omitempty" mapstructure:"base_path" yaml:"base_path"`
	IsDefault bool   `json:"is_default,omitempty" mapstructure:"is_default" yaml:"is_default"`
}

// TaskFilter defines filters for listing conversion history
type TaskFilter struct {
	Status    *TaskStatus
	BatchID   *string
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
	OrderBy   string
	OrderDesc bool
}

// Stats represents aggregate conversion statistics
type Stats struct {
	TotalTasks      int64   `json:"total_tasks"`
	SuccessfulTasks int64   `json:"successful_tasks"`
	FailedTasks     int64   `json:"failed_tasks"`
	TasksToday      int64   `json:"tasks_today"`
	TotalBatches    int64   `json:"total_batches"`
	SuccessRate     float64 `json:"success_rate"`
}
