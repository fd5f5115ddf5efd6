package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"libcirc/internal/clock"
	"libcirc/internal/model"
	"libcirc/internal/notify"
)

// Walks a book through a full circulation cycle: Alice borrows it, Bob
// reserves it while it is out, Alice's return hands the hold to Bob, and Bob
// borrows it, fulfilling his reservation. The mocks return shared pointers so
// state mutations carry across the phases.
func TestCirculationLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	clk := clock.Fixed{T: testNow}

	eligibility := NewEligibilityService(store, clk)
	loans := NewLoanService(store, eligibility, notify.Noop{}, clk, testLoanDays)
	reservations := NewReservationService(store, eligibility, notify.Noop{}, clk, testGraceDays)

	book := &model.Book{ID: 1, Title: "SICP", Status: model.BookStatusAvailable}
	alice := &model.User{ID: 1, Username: "alice", Name: "Alice", Email: "alice@example.com", MaxLoanLimit: 3}
	bob := &model.User{ID: 2, Username: "bob", Name: "Bob", Email: "bob@example.com", MaxLoanLimit: 3}

	store.users.On("FindByID", mock.Anything, uint(1)).Return(alice, nil)
	store.users.On("FindByID", mock.Anything, uint(2)).Return(bob, nil)
	store.users.On("ListAdmins", mock.Anything).Return([]model.User{}, nil).Maybe()
	store.books.On("Update", mock.Anything, book).Return(nil)
	store.loans.On("Update", mock.Anything, mock.AnythingOfType("*model.LoanHistory")).Return(nil)
	store.reservations.On("Update", mock.Anything, mock.AnythingOfType("*model.Reservation")).Return(nil)

	// Alice borrows the available book.
	store.books.On("FindByIDForUpdate", mock.Anything, uint(1)).Return(book, nil).Once()
	store.loans.On("HasOverdue", mock.Anything, uint(1), testNow).Return(false, nil).Once()
	store.loans.On("CountOpenByBorrower", mock.Anything, uint(1)).Return(int64(0), nil).Once()
	store.reservations.On("CountActiveByUser", mock.Anything, uint(1)).Return(int64(0), nil).Once()
	store.books.On("FindByID", mock.Anything, uint(1)).Return(book, nil).Once()
	store.loans.On("Create", mock.Anything, mock.AnythingOfType("*model.LoanHistory")).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*model.LoanHistory).ID = 10
	}).Once()
	store.reservations.On("FindActiveByBookAndUser", mock.Anything, uint(1), uint(1)).Return(nil, gorm.ErrRecordNotFound).Once()

	aliceLoan, err := loans.Borrow(ctx, 1, 1, nil)
	assert.NoError(t, err)
	assert.Equal(t, testNow.Add(testLoanDays*24*time.Hour), aliceLoan.DueDate)
	assert.Equal(t, model.BookStatusOnLoan, book.Status)
	assert.Equal(t, uint(1), *book.BorrowerID)

	// Bob reserves the book while Alice has it.
	store.books.On("FindByIDForUpdate", mock.Anything, uint(1)).Return(book, nil).Once()
	store.reservations.On("FindActiveByBookAndUser", mock.Anything, uint(1), uint(2)).Return(nil, gorm.ErrRecordNotFound).Once()
	store.loans.On("CountOpenByBorrower", mock.Anything, uint(2)).Return(int64(0), nil).Once()
	store.reservations.On("CountActiveByUser", mock.Anything, uint(2)).Return(int64(0), nil).Once()
	store.reservations.On("Create", mock.Anything, mock.AnythingOfType("*model.Reservation")).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*model.Reservation).ID = 20
	}).Once()

	bobReservation, err := reservations.Reserve(ctx, 2, 1)
	assert.NoError(t, err)
	assert.Equal(t, model.ReservationStatusPending, bobReservation.Status)
	assert.Equal(t, testNow, bobReservation.ReservationDate)

	// Alice returns; the hold passes to Bob.
	store.loans.On("FindByIDForUpdate", mock.Anything, uint(10)).Return(aliceLoan, nil).Once()
	store.books.On("FindByIDForUpdate", mock.Anything, uint(1)).Return(book, nil).Once()
	store.reservations.On("FirstPendingForUpdate", mock.Anything, uint(1)).Return(bobReservation, nil).Once()

	_, err = loans.Return(ctx, 10)
	assert.NoError(t, err)
	assert.NotNil(t, aliceLoan.ReturnDate)
	assert.Nil(t, book.BorrowerID)
	assert.Equal(t, model.BookStatusReserved, book.Status)
	assert.Equal(t, model.ReservationStatusNotified, bobReservation.Status)
	assert.NotNil(t, bobReservation.NotificationSentAt)

	// Bob borrows the book held for him; his reservation is fulfilled.
	store.books.On("FindByIDForUpdate", mock.Anything, uint(1)).Return(book, nil).Once()
	store.loans.On("HasOverdue", mock.Anything, uint(2), testNow).Return(false, nil).Once()
	store.loans.On("CountOpenByBorrower", mock.Anything, uint(2)).Return(int64(0), nil).Once()
	store.reservations.On("CountActiveByUser", mock.Anything, uint(2)).Return(int64(1), nil).Once()
	store.books.On("FindByID", mock.Anything, uint(1)).Return(book, nil).Once()
	store.reservations.On("FindActiveByBookAndUser", mock.Anything, uint(1), uint(2)).Return(bobReservation, nil).Twice()
	store.loans.On("Create", mock.Anything, mock.AnythingOfType("*model.LoanHistory")).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*model.LoanHistory).ID = 11
	}).Once()

	bobLoan, err := loans.Borrow(ctx, 2, 1, nil)
	assert.NoError(t, err)
	assert.Equal(t, uint(2), *bobLoan.BorrowerID)
	assert.Equal(t, model.BookStatusOnLoan, book.Status)
	assert.Equal(t, uint(2), *book.BorrowerID)
	assert.Equal(t, model.ReservationStatusFulfilled, bobReservation.Status)
}
