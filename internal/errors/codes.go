// Package errors provides structured error handling for colsearch.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Collection configuration errors
//   - 2XX: IO errors (file, disk)
//   - 3XX: Extraction errors (per-file, recoverable)
//   - 4XX: Query errors
//   - 5XX: Index and internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates collection configuration errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and disk I/O errors.
	CategoryIO Category = "IO"
	// CategoryExtraction indicates per-file extractor errors.
	CategoryExtraction Category = "EXTRACTION"
	// CategoryQuery indicates query errors.
	CategoryQuery Category = "QUERY"
	// CategoryIndex indicates index commit and internal errors.
	CategoryIndex Category = "INDEX"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates the current operation must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates the operation failed but the run can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199): fatal for the affected collection only.
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// IO errors (200-299)
	ErrCodeFileNotFound = "ERR_201_FILE_NOT_FOUND"
	ErrCodeCacheWrite   = "ERR_202_CACHE_WRITE"
	ErrCodeCacheRead    = "ERR_203_CACHE_READ"

	// Extraction errors (300-399): per-file, never abort a reindex run.
	ErrCodeNoExtractor      = "ERR_301_NO_EXTRACTOR"
	ErrCodeExtractorFailed  = "ERR_302_EXTRACTOR_FAILED"
	ErrCodeMalformedOutput  = "ERR_303_MALFORMED_OUTPUT"
	ErrCodeEmptyRecord      = "ERR_304_EMPTY_RECORD"
	ErrCodeExtractorTimeout = "ERR_305_EXTRACTOR_TIMEOUT"

	// Query errors (400-499): fatal for the query invocation only.
	ErrCodeInvalidQuery = "ERR_401_INVALID_QUERY"
	ErrCodeQueryEmpty   = "ERR_402_QUERY_EMPTY"

	// Index and internal errors (500-599)
	ErrCodeCommitFailed = "ERR_501_COMMIT_FAILED"
	ErrCodeCorruptIndex = "ERR_502_CORRUPT_INDEX"
	ErrCodeInternal     = "ERR_503_INTERNAL"
)

// categoryFromCode extracts the category from an error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryIndex
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryExtraction
	case '4':
		return CategoryQuery
	default:
		return CategoryIndex
	}
}

// severityFromCode determines severity based on the error code.
// Extraction errors are warnings: the file is skipped, the run continues.
func severityFromCode(code string) Severity {
	switch categoryFromCode(code) {
	case CategoryExtraction:
		return SeverityWarning
	case CategoryConfig, CategoryQuery:
		return SeverityFatal
	case CategoryIndex:
		if code == ErrCodeCommitFailed || code == ErrCodeCorruptIndex {
			return SeverityFatal
		}
		return SeverityError
	default:
		return SeverityError
	}
}
