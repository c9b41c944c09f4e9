package router

// Error codes used in problem responses that do not originate from a coded
// engine error.
const (
	ErrInternalCode   = "INTERNAL_ERROR"
	ErrBadRequestCode = "BAD_REQUEST"
	ErrNotFoundCode   = "NOT_FOUND"

	ErrPayloadTooLargeCode = "PAYLOAD_TOO_LARGE"
)
