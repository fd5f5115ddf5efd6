package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		err          error
		expectedCode int
		expectedTag  string
	}{
		{ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
		{ErrBookNotFound, http.StatusNotFound, "BOOK_NOT_FOUND"},
		{ErrLoanNotFound, http.StatusNotFound, "LOAN_NOT_FOUND"},
		{ErrReservationNotFound, http.StatusNotFound, "RESERVATION_NOT_FOUND"},
		{ErrAnnouncementNotFound, http.StatusNotFound, "ANNOUNCEMENT_NOT_FOUND"},
		{ErrQuotaExceeded, http.StatusConflict, "QUOTA_EXCEEDED"},
		{ErrOverdueBlock, http.StatusConflict, "OVERDUE_BLOCK"},
		{ErrBookUnavailable, http.StatusConflict, "BOOK_UNAVAILABLE"},
		{ErrDuplicateReservation, http.StatusConflict, "DUPLICATE_RESERVATION"},
		{ErrAlreadyReturned, http.StatusConflict, "ALREADY_RETURNED"},
		{ErrAlreadyFinalized, http.StatusConflict, "ALREADY_FINALIZED"},
		{ErrExtensionLimitReached, http.StatusConflict, "EXTENSION_LIMIT_REACHED"},
		{ErrReservedByOthers, http.StatusConflict, "RESERVED_BY_OTHERS"},
		{ErrInvalidExtensionWeeks, http.StatusBadRequest, "INVALID_EXTENSION_WEEKS"},
		{ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{ErrUserHasOpenLoans, http.StatusConflict, "USER_HAS_OPEN_LOANS"},
		{ErrBookOnLoan, http.StatusConflict, "BOOK_ON_LOAN"},
		{ErrDuplicateUsername, http.StatusConflict, "DUPLICATE_USERNAME"},
		{ErrDuplicateEmail, http.StatusConflict, "DUPLICATE_EMAIL"},
		{ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{ErrInvalidRefreshToken, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.expectedTag, func(t *testing.T) {
			httpErr := MapErrorToHTTP(tt.err)
			assert.Equal(t, tt.expectedCode, httpErr.StatusCode)
			assert.Equal(t, tt.expectedTag, httpErr.Code)
			assert.Equal(t, tt.err.Error(), httpErr.Message)
		})
	}
}

func TestMapErrorToHTTP_WrappedError(t *testing.T) {
	wrapped := fmt.Errorf("borrow failed: %w", ErrQuotaExceeded)

	httpErr := MapErrorToHTTP(wrapped)

	assert.Equal(t, http.StatusConflict, httpErr.StatusCode)
	assert.Equal(t, "QUOTA_EXCEEDED", httpErr.Code)
}

func TestMapErrorToHTTP_UnknownError(t *testing.T) {
	httpErr := MapErrorToHTTP(errors.New("connection reset"))

	assert.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)
	assert.Equal(t, "INTERNAL_ERROR", httpErr.Code)
	// Infrastructure details never leak to the client.
	assert.Equal(t, "internal server error, please try again", httpErr.Message)
}

func TestToErrorResponse(t *testing.T) {
	resp := MapErrorToHTTP(ErrBookNotFound).ToErrorResponse()

	assert.Equal(t, "book not found", resp.Error)
	assert.Equal(t, "BOOK_NOT_FOUND", resp.Code)
}
