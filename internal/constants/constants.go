package constants

// ContextKeyUserID is the gin context key holding the authenticated user ID.
const ContextKeyUserID = "user_id"

const (
	MinPasswordLength = 8
	MaxCommentLength  = 2000
)

// Pagination bounds
const (
	MinPageSize     = 1
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// DefaultMaxUploadBytes caps attachment uploads when MAX_UPLOAD_BYTES is unset (10 MiB).
const DefaultMaxUploadBytes = 10 << 20
