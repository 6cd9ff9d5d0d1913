package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidPeriod        ErrorCode = 102
	ErrCodeInvalidThreshold     ErrorCode = 103

	// Data/Resource errors (200-299)
	ErrCodeDataSourceUnavailable ErrorCode = 200
	ErrCodeMissingColumn         ErrorCode = 201
	ErrCodeMalformedInput        ErrorCode = 202
	ErrCodeQueryFailed           ErrorCode = 203
	ErrCodeNoDataFound           ErrorCode = 204

	// Backtest errors (300-399)
	ErrCodeBacktestConfigError ErrorCode = 300
	ErrCodeBacktestRunFailed   ErrorCode = 301

	// Storage errors (400-499)
	ErrCodeStorageInitFailed   ErrorCode = 400
	ErrCodeStorageWriteFailed  ErrorCode = 401
	ErrCodeStorageExportFailed ErrorCode = 402

	// Market data errors (500-599)
	ErrCodeDownloadFailed      ErrorCode = 500
	ErrCodeInvalidInterval     ErrorCode = 501
	ErrCodeWriterNotConfigured ErrorCode = 502
)
