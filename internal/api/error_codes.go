// internal/api/error_codes.go
package api

// API error codes. Codes derived from application errors come from
// internal/errors; these cover what only the HTTP layer can detect.
const (
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorNotFound      = "NOT_FOUND"
	ErrorInternalError = "INTERNAL_ERROR"
	ErrorRateLimited   = "RATE_LIMIT_EXCEEDED"

	// uploads
	ErrorFileMissing      = "FILE_MISSING"
	ErrorFileInvalid      = "FILE_INVALID"
	ErrorFileTooLarge     = "FILE_TOO_LARGE"
	ErrorFileUploadFailed = "FILE_UPLOAD_FAILED"

	// jobs
	ErrorJobNotFound = "JOB_NOT_FOUND"
	ErrorJobFailed   = "JOB_FAILED"
	ErrorNoResult    = "NO_RESULT"

	// articles and search
	ErrorArticleNotFound = "ARTICLE_NOT_FOUND"
	ErrorQueryInvalid    = "QUERY_INVALID"
	ErrorSearchFailed    = "SEARCH_FAILED"
)
