package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrListingNotFound is returned when a listing is not found.
	ErrListingNotFound = errors.New("listing not found")
	// ErrListingExpired is returned when claiming a listing past its expiry time.
	ErrListingExpired = errors.New("listing has expired")
	// ErrListingFull is returned when a listing has no claim slots left.
	ErrListingFull = errors.New("listing is fully claimed")
	// ErrAlreadyClaimed is returned when a receiver claims the same listing twice.
	ErrAlreadyClaimed = errors.New("listing already claimed by this receiver")
	// ErrForbidden is returned when the requester's role or ownership does not
	// permit the operation. Kept deliberately vague to avoid leaking which
	// check failed.
	ErrForbidden = errors.New("operation not permitted")
	// ErrInvalidListing is returned when listing fields fail validation.
	ErrInvalidListing = errors.New("invalid listing data")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors. Claim rejections carry
// their specific reason; authorization failures do not.
func MapErrorToHTTP(err error) *HTTPError {
	switch err {
	case ErrUserNotFound:
		return NewHTTPError(http.StatusNotFound, err.Error(), "USER_NOT_FOUND")
	case ErrListingNotFound:
		return NewHTTPError(http.StatusNotFound, err.Error(), "LISTING_NOT_FOUND")
	case ErrListingExpired:
		return NewHTTPError(http.StatusConflict, err.Error(), "LISTING_EXPIRED")
	case ErrListingFull:
		return NewHTTPError(http.StatusConflict, err.Error(), "LISTING_FULL")
	case ErrAlreadyClaimed:
		return NewHTTPError(http.StatusConflict, err.Error(), "ALREADY_CLAIMED")
	case ErrForbidden:
		return NewHTTPError(http.StatusForbidden, err.Error(), "FORBIDDEN")
	case ErrInvalidListing:
		return NewHTTPError(http.StatusBadRequest, err.Error(), "INVALID_LISTING")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
