package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Input errors
const (
	// ErrCodeFrameTooLarge indicates a frame exceeded the maximum length before a delimiter was found.
	ErrCodeFrameTooLarge ErrorCode = "FRAME_TOO_LARGE"
	// ErrCodeUnterminatedFrame indicates the stream ended inside a frame while strict termination was on.
	ErrCodeUnterminatedFrame ErrorCode = "UNTERMINATED_FRAME"
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
)

// Pipeline construction errors
const (
	// ErrCodeNilElement indicates a nil element was injected into a pipeline.
	ErrCodeNilElement ErrorCode = "NIL_ELEMENT"
	// ErrCodeNoBranches indicates a fan-out stage was built without branches.
	ErrCodeNoBranches ErrorCode = "NO_BRANCHES"
)

// Downstream errors
const (
	// ErrCodeSubmissionFailed indicates a batch could not be delivered to its endpoint.
	ErrCodeSubmissionFailed ErrorCode = "SUBMISSION_FAILED"
	// ErrCodeEndpointBusy indicates an endpoint already has its maximum of submissions in flight.
	ErrCodeEndpointBusy ErrorCode = "ENDPOINT_BUSY"
	// ErrCodeConnectionFailed indicates a failed connection to a service.
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)
