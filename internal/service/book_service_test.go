package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"libcirc/internal/cache"
	"libcirc/internal/clock"
	liberr "libcirc/internal/errors"
	"libcirc/internal/model"
	"libcirc/internal/repository"
)

func newBookServiceForTest(store *mockStore, cacheClient *cache.Client) BookService {
	return NewBookService(store, cacheClient, clock.Fixed{T: testNow})
}

func TestBookService_Create_AssignsBookNumbers(t *testing.T) {
	tests := []struct {
		name           string
		maxNumber      string
		expectedNumber string
	}{
		{"first book of the year", "", "BO-2026-001"},
		{"sequence continues", "BO-2026-007", "BO-2026-008"},
		{"three digit rollover", "BO-2026-099", "BO-2026-100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStore()
			store.books.On("MaxBookNumber", mock.Anything, "BO-2026-").Return(tt.maxNumber, nil)
			store.books.On("Create", mock.Anything, mock.AnythingOfType("*model.Book")).Return(nil)

			svc := newBookServiceForTest(store, nil)
			book, err := svc.Create(context.Background(), BookInput{Title: "SICP", Author: "Abelson"})

			assert.NoError(t, err)
			assert.NotNil(t, book.BookNumber)
			assert.Equal(t, tt.expectedNumber, *book.BookNumber)
			assert.Equal(t, model.BookStatusAvailable, book.Status)
		})
	}
}

func TestBookService_AssignMissingNumbers(t *testing.T) {
	store := newMockStore()
	unnumbered := []model.Book{
		{ID: 1, Title: "First"},
		{ID: 2, Title: "Second"},
	}

	store.books.On("ListWithoutNumber", mock.Anything).Return(unnumbered, nil)
	// Each assignment sees the previously assigned number as the max.
	store.books.On("MaxBookNumber", mock.Anything, "BO-2026-").Return("", nil).Once()
	store.books.On("MaxBookNumber", mock.Anything, "BO-2026-").Return("BO-2026-001", nil).Once()
	store.books.On("Update", mock.Anything, mock.AnythingOfType("*model.Book")).Return(nil)

	svc := newBookServiceForTest(store, nil)
	assigned, err := svc.AssignMissingNumbers(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 2, assigned)
}

func TestBookService_Delete(t *testing.T) {
	t.Run("book on loan cannot be deleted", func(t *testing.T) {
		store := newMockStore()
		borrowerID := uint(1)
		store.books.On("FindByIDForUpdate", mock.Anything, uint(10)).Return(&model.Book{
			ID: 10, Status: model.BookStatusOnLoan, BorrowerID: &borrowerID,
		}, nil)

		svc := newBookServiceForTest(store, nil)
		err := svc.Delete(context.Background(), 10)

		assert.ErrorIs(t, err, liberr.ErrBookOnLoan)
		store.books.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("available book is deleted", func(t *testing.T) {
		store := newMockStore()
		store.books.On("FindByIDForUpdate", mock.Anything, uint(10)).Return(&model.Book{
			ID: 10, Status: model.BookStatusAvailable,
		}, nil)
		store.books.On("Delete", mock.Anything, uint(10)).Return(nil)

		svc := newBookServiceForTest(store, nil)
		assert.NoError(t, svc.Delete(context.Background(), 10))
	})
}

func TestBookService_Get_UsesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cacheClient := cache.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	store := newMockStore()
	store.books.On("FindByID", mock.Anything, uint(10)).Return(&model.Book{
		ID: 10, Title: "SICP", Status: model.BookStatusAvailable,
	}, nil).Once()

	svc := newBookServiceForTest(store, cacheClient)

	first, err := svc.Get(context.Background(), 10)
	assert.NoError(t, err)
	assert.Equal(t, "SICP", first.Title)

	// Second read is served from the cache; the repository was set to allow
	// only one call.
	second, err := svc.Get(context.Background(), 10)
	assert.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Title, second.Title)
	store.books.AssertExpectations(t)
}

func TestBookService_ImportCSV(t *testing.T) {
	csvData := strings.Join([]string{
		"title,author,category1,category2,keywords,location",
		"SICP,Abelson,Programming,,lisp scheme,Shelf A",
		"TAOCP,Knuth,Programming,,algorithms,Shelf B",
		"SICP,Abelson,Programming,,lisp scheme,Shelf A",
		",NoTitle,,,,",
	}, "\n")

	store := newMockStore()
	// First SICP and TAOCP are new; the second SICP already exists.
	store.books.On("FindByTitleAndAuthor", mock.Anything, "SICP", "Abelson").
		Return(nil, gorm.ErrRecordNotFound).Once()
	store.books.On("FindByTitleAndAuthor", mock.Anything, "TAOCP", "Knuth").
		Return(nil, gorm.ErrRecordNotFound).Once()
	store.books.On("FindByTitleAndAuthor", mock.Anything, "SICP", "Abelson").
		Return(&model.Book{ID: 1, Title: "SICP", Author: "Abelson"}, nil).Once()
	store.books.On("MaxBookNumber", mock.Anything, "BO-2026-").Return("", nil).Once()
	store.books.On("MaxBookNumber", mock.Anything, "BO-2026-").Return("BO-2026-001", nil).Once()
	store.books.On("Create", mock.Anything, mock.AnythingOfType("*model.Book")).Return(nil).Twice()

	svc := newBookServiceForTest(store, nil)
	result, err := svc.ImportCSV(context.Background(), strings.NewReader(csvData))

	assert.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, result.Skipped)
	assert.Len(t, result.Errors, 1)
	store.books.AssertExpectations(t)
}

func TestBookService_ImportCSV_RequiresTitleColumn(t *testing.T) {
	store := newMockStore()
	svc := newBookServiceForTest(store, nil)

	_, err := svc.ImportCSV(context.Background(), strings.NewReader("author,location\nKnuth,Shelf B\n"))
	assert.Error(t, err)
}

func TestBookService_ExportCSV(t *testing.T) {
	number := "BO-2026-001"
	store := newMockStore()
	store.books.On("List", mock.Anything, repository.BookSearchFilter{}).Return([]model.Book{
		{ID: 1, BookNumber: &number, Title: "SICP", Author: "Abelson", Category1: "Programming", Status: model.BookStatusAvailable},
		{ID: 2, Title: "TAOCP", Author: "Knuth", Status: model.BookStatusOnLoan},
	}, nil)

	svc := newBookServiceForTest(store, nil)
	var buf bytes.Buffer
	err := svc.ExportCSV(context.Background(), &buf)

	assert.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, "book_number,title,author,category1,category2,keywords,location,status", lines[0])
	assert.Contains(t, lines[1], "BO-2026-001,SICP,Abelson,Programming")
	assert.Contains(t, lines[2], "TAOCP,Knuth")
	assert.Contains(t, lines[2], "on_loan")
}
