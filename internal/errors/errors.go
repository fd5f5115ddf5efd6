package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrUserNotFound is returned when a user id or username is unresolvable.
	ErrUserNotFound = errors.New("user not found")
	// ErrBookNotFound is returned when a book id is unresolvable.
	ErrBookNotFound = errors.New("book not found")
	// ErrLoanNotFound is returned when a loan id is unresolvable.
	ErrLoanNotFound = errors.New("loan not found")
	// ErrReservationNotFound is returned when a reservation id is unresolvable.
	ErrReservationNotFound = errors.New("reservation not found")
	// ErrAnnouncementNotFound is returned when an announcement id is unresolvable.
	ErrAnnouncementNotFound = errors.New("announcement not found")
	// ErrQuotaExceeded is returned when loans plus active reservations meet the user's limit.
	ErrQuotaExceeded = errors.New("loan limit reached: open loans and reservations count against your quota")
	// ErrOverdueBlock is returned when the user holds an overdue loan; all borrowing is blocked until it is returned.
	ErrOverdueBlock = errors.New("borrowing blocked: you have an overdue book, return it first")
	// ErrBookUnavailable is returned when a borrow targets a book that is not available.
	ErrBookUnavailable = errors.New("book is not available for borrowing")
	// ErrDuplicateReservation is returned when the user already holds an active reservation for the book.
	ErrDuplicateReservation = errors.New("you already have an active reservation for this book")
	// ErrAlreadyReturned is returned on a second return or an extension of a closed loan.
	ErrAlreadyReturned = errors.New("this loan has already been returned")
	// ErrAlreadyFinalized is returned when cancelling a reservation in a terminal state.
	ErrAlreadyFinalized = errors.New("this reservation has already been finalized")
	// ErrExtensionLimitReached is returned when a loan has used up its single extension.
	ErrExtensionLimitReached = errors.New("this loan has already been extended the maximum number of times")
	// ErrReservedByOthers is returned when an extension is blocked by a pending reservation queue.
	ErrReservedByOthers = errors.New("this book has pending reservations and cannot be extended")
	// ErrInvalidExtensionWeeks is returned when an extension is not 1 or 2 weeks.
	ErrInvalidExtensionWeeks = errors.New("loans can only be extended by 1 or 2 weeks")
	// ErrForbidden is returned on authorization failures (e.g. cancelling someone else's reservation).
	ErrForbidden = errors.New("you are not allowed to perform this operation")
	// ErrUserHasOpenLoans is returned when deleting a user who still holds books.
	ErrUserHasOpenLoans = errors.New("user still has books on loan and cannot be deleted")
	// ErrBookOnLoan is returned when deleting or withdrawing a book that is currently lent out.
	ErrBookOnLoan = errors.New("book is currently on loan")
	// ErrDuplicateUsername is returned when a username is already taken.
	ErrDuplicateUsername = errors.New("username is already in use")
	// ErrDuplicateEmail is returned when an email address is already taken.
	ErrDuplicateEmail = errors.New("email address is already in use")
	// ErrInvalidCredentials is returned when login fails.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInvalidRefreshToken is returned when a refresh token is invalid or expired.
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
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

// MapErrorToHTTP maps domain errors to HTTP errors. Business-rule failures
// each get a distinct code; anything unmapped is treated as an infrastructure
// error and surfaced as a generic retryable 500.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "USER_NOT_FOUND")
	case errors.Is(err, ErrBookNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "BOOK_NOT_FOUND")
	case errors.Is(err, ErrLoanNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "LOAN_NOT_FOUND")
	case errors.Is(err, ErrReservationNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "RESERVATION_NOT_FOUND")
	case errors.Is(err, ErrAnnouncementNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "ANNOUNCEMENT_NOT_FOUND")
	case errors.Is(err, ErrQuotaExceeded):
		return NewHTTPError(http.StatusConflict, err.Error(), "QUOTA_EXCEEDED")
	case errors.Is(err, ErrOverdueBlock):
		return NewHTTPError(http.StatusConflict, err.Error(), "OVERDUE_BLOCK")
	case errors.Is(err, ErrBookUnavailable):
		return NewHTTPError(http.StatusConflict, err.Error(), "BOOK_UNAVAILABLE")
	case errors.Is(err, ErrDuplicateReservation):
		return NewHTTPError(http.StatusConflict, err.Error(), "DUPLICATE_RESERVATION")
	case errors.Is(err, ErrAlreadyReturned):
		return NewHTTPError(http.StatusConflict, err.Error(), "ALREADY_RETURNED")
	case errors.Is(err, ErrAlreadyFinalized):
		return NewHTTPError(http.StatusConflict, err.Error(), "ALREADY_FINALIZED")
	case errors.Is(err, ErrExtensionLimitReached):
		return NewHTTPError(http.StatusConflict, err.Error(), "EXTENSION_LIMIT_REACHED")
	case errors.Is(err, ErrReservedByOthers):
		return NewHTTPError(http.StatusConflict, err.Error(), "RESERVED_BY_OTHERS")
	case errors.Is(err, ErrInvalidExtensionWeeks):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "INVALID_EXTENSION_WEEKS")
	case errors.Is(err, ErrForbidden):
		return NewHTTPError(http.StatusForbidden, err.Error(), "FORBIDDEN")
	case errors.Is(err, ErrUserHasOpenLoans):
		return NewHTTPError(http.StatusConflict, err.Error(), "USER_HAS_OPEN_LOANS")
	case errors.Is(err, ErrBookOnLoan):
		return NewHTTPError(http.StatusConflict, err.Error(), "BOOK_ON_LOAN")
	case errors.Is(err, ErrDuplicateUsername):
		return NewHTTPError(http.StatusConflict, err.Error(), "DUPLICATE_USERNAME")
	case errors.Is(err, ErrDuplicateEmail):
		return NewHTTPError(http.StatusConflict, err.Error(), "DUPLICATE_EMAIL")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrInvalidRefreshToken):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "INVALID_REFRESH_TOKEN")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error, please try again", "INTERNAL_ERROR")
	}
}
