package response

const (
	CodeInvalidRequest   = "invalid_request"
	CodeValidation       = "validation_error"
	CodeNotFound         = "not_found"
	CodeConflict         = "conflict"
	CodeAlreadyLiked     = "already_liked"
	CodeUnauthenticated  = "authentication_required"
	CodeInvalidLogin     = "authentication_failed"
	CodeForbidden        = "forbidden"
	CodePartialFailure   = "partial_failure"
	CodeStoreUnavailable = "store_unavailable"
	CodeInternal         = "internal_error"
)

var (
	ErrInvalidRequestFormat = Error(CodeInvalidRequest, "Invalid request format")
	ErrAuthenticationFailed = Error(CodeInvalidLogin, "Invalid username or password")
	ErrSessionRequired      = Error(CodeUnauthenticated, "Authentication required")
	ErrAdminRequired        = Error(CodeForbidden, "Admin access required")
	ErrInternal             = Error(CodeInternal, "Internal server error")
)
