package types

import "time"

// ServerConfig holds settings for the HTTP surface.
type ServerConfig struct {
	// Addr is the listen address (e.g. ":5000").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// MaxUploadBytes caps the request body size. Zero means no limit.
	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`

	// MaxConcurrent caps in-flight conversions; extra requests get 429.
	// Zero means unlimited.
	MaxConcurrent int64 `json:"max_concurrent" yaml:"max_concurrent" mapstructure:"max_concurrent"`

	// ReadHeaderTimeout bounds how long the server waits for request headers.
	ReadHeaderTimeout time.Duration `json:"read_header_timeout" yaml:"read_header_timeout" mapstructure:"read_header_timeout"`

	// ShutdownTimeout is the grace period for in-flight requests on shutdown.
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`

	// APIKey, when set, is required in the X-Api-Key header.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`
}

// ConversionBackend selects where conversion tools run.
type ConversionBackend string

const (
	BackendLocal     ConversionBackend = "local"
	BackendContainer ConversionBackend = "container"
)

// ConversionConfig holds settings for the conversion tools.
type ConversionConfig struct {
	// Backend selects local binaries or the tools container image.
	Backend ConversionBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Image is the container image holding soffice and pdf2docx.
	Image string `json:"image" yaml:"image" mapstructure:"image"`

	// SofficeBin is the LibreOffice executable name or path.
	SofficeBin string `json:"soffice_bin" yaml:"soffice_bin" mapstructure:"soffice_bin"`

	// Pdf2docxBin is the pdf2docx executable name or path.
	Pdf2docxBin string `json:"pdf2docx_bin" yaml:"pdf2docx_bin" mapstructure:"pdf2docx_bin"`

	// WorkRoot is the parent of per-request scratch directories.
	// Empty means the OS temp directory.
	WorkRoot string `json:"work_root" yaml:"work_root" mapstructure:"work_root"`

	// Timeout bounds a single conversion. Zero means no timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// HistoryConfig holds settings for the conversion journal.
type HistoryConfig struct {
	// DBPath is the SQLite database file. Empty disables the journal.
	DBPath string `json:"db_path" yaml:"db_path" mapstructure:"db_path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is text or json.
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// Config groups every docconvert setting.
type Config struct {
	Server     ServerConfig     `json:"server" yaml:"server" mapstructure:"server"`
	Conversion ConversionConfig `json:"conversion" yaml:"conversion" mapstructure:"conversion"`
	History    HistoryConfig    `json:"history" yaml:"history" mapstructure:"history"`
	Log        LogConfig        `json:"log" yaml:"log" mapstructure:"log"`
}
