package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"libcirc/internal/clock"
	liberr "libcirc/internal/errors"
	"libcirc/internal/model"
)

var testNow = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

func bookID(id uint) *uint { return &id }

func TestEligibilityService_CanBorrow(t *testing.T) {
	user := &model.User{ID: 1, Name: "Alice", MaxLoanLimit: 3}

	tests := []struct {
		name          string
		userID        uint
		bookID        *uint
		setupMock     func(*mockStore)
		expectedError error
	}{
		{
			name:   "user under quota with available book",
			userID: 1,
			bookID: bookID(10),
			setupMock: func(s *mockStore) {
				s.users.On("FindByID", mock.Anything, uint(1)).Return(user, nil)
				s.loans.On("HasOverdue", mock.Anything, uint(1), testNow).Return(false, nil)
				s.loans.On("CountOpenByBorrower", mock.Anything, uint(1)).Return(int64(1), nil)
				s.reservations.On("CountActiveByUser", mock.Anything, uint(1)).Return(int64(1), nil)
				s.books.On("FindByID", mock.Anything, uint(10)).Return(&model.Book{
					ID: 10, Status: model.BookStatusAvailable,
				}, nil)
			},
		},
		{
			name:   "unknown user",
			userID: 99,
			setupMock: func(s *mockStore) {
				s.users.On("FindByID", mock.Anything, uint(99)).Return(nil, gorm.ErrRecordNotFound)
			},
			expectedError: liberr.ErrUserNotFound,
		},
		{
			name:   "overdue loan blocks all borrowing",
			userID: 1,
			bookID: bookID(10),
			setupMock: func(s *mockStore) {
				s.users.On("FindByID", mock.Anything, uint(1)).Return(user, nil)
				s.loans.On("HasOverdue", mock.Anything, uint(1), testNow).Return(true, nil)
			},
			expectedError: liberr.ErrOverdueBlock,
		},
		{
			name:   "loans plus reservations at limit",
			userID: 1,
			setupMock: func(s *mockStore) {
				s.users.On("FindByID", mock.Anything, uint(1)).Return(user, nil)
				s.loans.On("HasOverdue", mock.Anything, uint(1), testNow).Return(false, nil)
				s.loans.On("CountOpenByBorrower", mock.Anything, uint(1)).Return(int64(2), nil)
				s.reservations.On("CountActiveByUser", mock.Anything, uint(1)).Return(int64(1), nil)
			},
			expectedError: liberr.ErrQuotaExceeded,
		},
		{
			name:   "book already on loan",
			userID: 1,
			bookID: bookID(10),
			setupMock: func(s *mockStore) {
				borrower := uint(2)
				s.users.On("FindByID", mock.Anything, uint(1)).Return(user, nil)
				s.loans.On("HasOverdue", mock.Anything, uint(1), testNow).Return(false, nil)
				s.loans.On("CountOpenByBorrower", mock.Anything, uint(1)).Return(int64(0), nil)
				s.reservations.On("CountActiveByUser", mock.Anything, uint(1)).Return(int64(0), nil)
				s.books.On("FindByID", mock.Anything, uint(10)).Return(&model.Book{
					ID: 10, Status: model.BookStatusOnLoan, BorrowerID: &borrower,
				}, nil)
			},
			expectedError: liberr.ErrBookUnavailable,
		},
		{
			name:   "reserved book held for this user",
			userID: 1,
			bookID: bookID(10),
			setupMock: func(s *mockStore) {
				s.users.On("FindByID", mock.Anything, uint(1)).Return(user, nil)
				s.loans.On("HasOverdue", mock.Anything, uint(1), testNow).Return(false, nil)
				s.loans.On("CountOpenByBorrower", mock.Anything, uint(1)).Return(int64(0), nil)
				s.reservations.On("CountActiveByUser", mock.Anything, uint(1)).Return(int64(1), nil)
				s.books.On("FindByID", mock.Anything, uint(10)).Return(&model.Book{
					ID: 10, Status: model.BookStatusReserved,
				}, nil)
				s.reservations.On("FindActiveByBookAndUser", mock.Anything, uint(10), uint(1)).
					Return(&model.Reservation{ID: 5, BookID: 10, UserID: 1, Status: model.ReservationStatusNotified}, nil)
			},
		},
		{
			name:   "reserved book held for someone else",
			userID: 1,
			bookID: bookID(10),
			setupMock: func(s *mockStore) {
				s.users.On("FindByID", mock.Anything, uint(1)).Return(user, nil)
				s.loans.On("HasOverdue", mock.Anything, uint(1), testNow).Return(false, nil)
				s.loans.On("CountOpenByBorrower", mock.Anything, uint(1)).Return(int64(0), nil)
				s.reservations.On("CountActiveByUser", mock.Anything, uint(1)).Return(int64(0), nil)
				s.books.On("FindByID", mock.Anything, uint(10)).Return(&model.Book{
					ID: 10, Status: model.BookStatusReserved,
				}, nil)
				s.reservations.On("FindActiveByBookAndUser", mock.Anything, uint(10), uint(1)).
					Return(nil, gorm.ErrRecordNotFound)
			},
			expectedError: liberr.ErrBookUnavailable,
		},
		{
			name:   "withdrawn book",
			userID: 1,
			bookID: bookID(10),
			setupMock: func(s *mockStore) {
				s.users.On("FindByID", mock.Anything, uint(1)).Return(user, nil)
				s.loans.On("HasOverdue", mock.Anything, uint(1), testNow).Return(false, nil)
				s.loans.On("CountOpenByBorrower", mock.Anything, uint(1)).Return(int64(0), nil)
				s.reservations.On("CountActiveByUser", mock.Anything, uint(1)).Return(int64(0), nil)
				s.books.On("FindByID", mock.Anything, uint(10)).Return(&model.Book{
					ID: 10, Status: model.BookStatusUnavailable,
				}, nil)
			},
			expectedError: liberr.ErrBookUnavailable,
		},
		{
			name:   "nil book id checks user rules only",
			userID: 1,
			setupMock: func(s *mockStore) {
				s.users.On("FindByID", mock.Anything, uint(1)).Return(user, nil)
				s.loans.On("HasOverdue", mock.Anything, uint(1), testNow).Return(false, nil)
				s.loans.On("CountOpenByBorrower", mock.Anything, uint(1)).Return(int64(0), nil)
				s.reservations.On("CountActiveByUser", mock.Anything, uint(1)).Return(int64(0), nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStore()
			tt.setupMock(store)

			svc := NewEligibilityService(store, clock.Fixed{T: testNow})
			err := svc.CanBorrow(context.Background(), tt.userID, tt.bookID)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
			store.assertExpectations(t)
		})
	}
}

func TestEligibilityService_CanExtend(t *testing.T) {
	returned := testNow.Add(-24 * time.Hour)

	tests := []struct {
		name          string
		loanID        uint
		setupMock     func(*mockStore)
		expectedError error
	}{
		{
			name:   "never extended with empty queue",
			loanID: 7,
			setupMock: func(s *mockStore) {
				s.loans.On("FindByID", mock.Anything, uint(7)).Return(&model.LoanHistory{
					ID: 7, BookID: 10, DueDate: testNow.Add(48 * time.Hour),
				}, nil)
				s.reservations.On("CountPendingByBook", mock.Anything, uint(10)).Return(int64(0), nil)
			},
		},
		{
			name:   "unknown loan",
			loanID: 99,
			setupMock: func(s *mockStore) {
				s.loans.On("FindByID", mock.Anything, uint(99)).Return(nil, gorm.ErrRecordNotFound)
			},
			expectedError: liberr.ErrLoanNotFound,
		},
		{
			name:   "already returned",
			loanID: 7,
			setupMock: func(s *mockStore) {
				s.loans.On("FindByID", mock.Anything, uint(7)).Return(&model.LoanHistory{
					ID: 7, BookID: 10, ReturnDate: &returned,
				}, nil)
			},
			expectedError: liberr.ErrAlreadyReturned,
		},
		{
			name:   "pending reservation blocks extension",
			loanID: 7,
			setupMock: func(s *mockStore) {
				s.loans.On("FindByID", mock.Anything, uint(7)).Return(&model.LoanHistory{
					ID: 7, BookID: 10,
				}, nil)
				s.reservations.On("CountPendingByBook", mock.Anything, uint(10)).Return(int64(2), nil)
			},
			expectedError: liberr.ErrReservedByOthers,
		},
		{
			name:   "extension limit reached",
			loanID: 7,
			setupMock: func(s *mockStore) {
				s.loans.On("FindByID", mock.Anything, uint(7)).Return(&model.LoanHistory{
					ID: 7, BookID: 10, ExtensionCount: model.MaxExtensions,
				}, nil)
				s.reservations.On("CountPendingByBook", mock.Anything, uint(10)).Return(int64(0), nil)
			},
			expectedError: liberr.ErrExtensionLimitReached,
		},
		{
			name:   "queued reservation outranks extension limit",
			loanID: 7,
			setupMock: func(s *mockStore) {
				s.loans.On("FindByID", mock.Anything, uint(7)).Return(&model.LoanHistory{
					ID: 7, BookID: 10, ExtensionCount: model.MaxExtensions,
				}, nil)
				s.reservations.On("CountPendingByBook", mock.Anything, uint(10)).Return(int64(1), nil)
			},
			expectedError: liberr.ErrReservedByOthers,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStore()
			tt.setupMock(store)

			svc := NewEligibilityService(store, clock.Fixed{T: testNow})
			err := svc.CanExtend(context.Background(), tt.loanID)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
			store.assertExpectations(t)
		})
	}
}
