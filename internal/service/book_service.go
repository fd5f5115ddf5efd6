package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"libcirc/internal/cache"
	"libcirc/internal/clock"
	liberr "libcirc/internal/errors"
	"libcirc/internal/model"
	"libcirc/internal/repository"
)

const (
	bookCacheKeyPrefix = "book:"
	bookCacheTTL       = 5 * time.Minute
)

// csvHeader is the canonical column order for book import and export.
var csvHeader = []string{"title", "author", "category1", "category2", "keywords", "location"}

// BookInput carries the editable catalog fields of a book.
type BookInput struct {
	Title     string
	Author    string
	Category1 string
	Category2 string
	Keywords  string
	Location  string
}

// CSVImportResult summarizes a catalog import run.
type CSVImportResult struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// BookService manages the catalog: CRUD, search, book number assignment and
// CSV import/export. Detail reads go through the Redis cache.
type BookService interface {
	Create(ctx context.Context, input BookInput) (*model.Book, error)
	Update(ctx context.Context, bookID uint, input BookInput) (*model.Book, error)
	Delete(ctx context.Context, bookID uint) error
	// Withdraw takes a book out of circulation without deleting its history.
	Withdraw(ctx context.Context, bookID uint) (*model.Book, error)
	Get(ctx context.Context, bookID uint) (*model.Book, error)
	Search(ctx context.Context, filter repository.BookSearchFilter) ([]model.Book, error)
	// AssignMissingNumbers backfills book numbers for books created before
	// number assignment existed. Returns the number of books updated.
	AssignMissingNumbers(ctx context.Context) (int, error)
	ImportCSV(ctx context.Context, r io.Reader) (*CSVImportResult, error)
	ExportCSV(ctx context.Context, w io.Writer) error
}

type bookService struct {
	store repository.Store
	cache *cache.Client
	clock clock.Clock
}

// NewBookService creates a new catalog service.
func NewBookService(store repository.Store, cacheClient *cache.Client, clk clock.Clock) BookService {
	return &bookService{store: store, cache: cacheClient, clock: clk}
}

func (s *bookService) Create(ctx context.Context, input BookInput) (*model.Book, error) {
	var book *model.Book
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		number, err := s.nextBookNumber(ctx, tx)
		if err != nil {
			return err
		}
		book = &model.Book{
			BookNumber: &number,
			Title:      input.Title,
			Author:     input.Author,
			Category1:  input.Category1,
			Category2:  input.Category2,
			Keywords:   input.Keywords,
			Location:   input.Location,
			Status:     model.BookStatusAvailable,
		}
		return tx.Books().Create(ctx, book)
	})
	if err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}
	return book, nil
}

// nextBookNumber allocates the next BO-<year>-<seq> number. Must run inside a
// transaction so concurrent creates cannot allocate the same number.
func (s *bookService) nextBookNumber(ctx context.Context, tx repository.Store) (string, error) {
	prefix := fmt.Sprintf("BO-%d-", s.clock.Now().Year())
	max, err := tx.Books().MaxBookNumber(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("find max book number: %w", err)
	}

	seq := 1
	if max != "" {
		var n int
		if _, err := fmt.Sscanf(strings.TrimPrefix(max, prefix), "%d", &n); err == nil {
			seq = n + 1
		}
	}
	return fmt.Sprintf("%s%03d", prefix, seq), nil
}

func (s *bookService) Update(ctx context.Context, bookID uint, input BookInput) (*model.Book, error) {
	book, err := s.store.Books().FindByID(ctx, bookID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, liberr.ErrBookNotFound
		}
		return nil, fmt.Errorf("find book: %w", err)
	}

	book.Title = input.Title
	book.Author = input.Author
	book.Category1 = input.Category1
	book.Category2 = input.Category2
	book.Keywords = input.Keywords
	book.Location = input.Location
	if err := s.store.Books().Update(ctx, book); err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}

	s.invalidate(ctx, bookID)
	return book, nil
}

func (s *bookService) Delete(ctx context.Context, bookID uint) error {
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		book, err := tx.Books().FindByIDForUpdate(ctx, bookID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return liberr.ErrBookNotFound
			}
			return fmt.Errorf("lock book: %w", err)
		}
		if book.BorrowerID != nil {
			return liberr.ErrBookOnLoan
		}
		return tx.Books().Delete(ctx, bookID)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, bookID)
	return nil
}

func (s *bookService) Withdraw(ctx context.Context, bookID uint) (*model.Book, error) {
	var book *model.Book
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		b, err := tx.Books().FindByIDForUpdate(ctx, bookID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return liberr.ErrBookNotFound
			}
			return fmt.Errorf("lock book: %w", err)
		}
		if b.BorrowerID != nil {
			return liberr.ErrBookOnLoan
		}
		b.Status = model.BookStatusUnavailable
		if err := tx.Books().Update(ctx, b); err != nil {
			return fmt.Errorf("update book: %w", err)
		}
		book = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, bookID)
	return book, nil
}

func (s *bookService) Get(ctx context.Context, bookID uint) (*model.Book, error) {
	key := fmt.Sprintf("%s%d", bookCacheKeyPrefix, bookID)
	if data, _ := s.cache.Get(ctx, key); data != nil {
		var book model.Book
		if err := json.Unmarshal(data, &book); err == nil {
			return &book, nil
		}
	}

	book, err := s.store.Books().FindByID(ctx, bookID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, liberr.ErrBookNotFound
		}
		return nil, fmt.Errorf("find book: %w", err)
	}

	if data, err := json.Marshal(book); err == nil {
		_ = s.cache.Set(ctx, key, data, bookCacheTTL)
	}
	return book, nil
}

func (s *bookService) Search(ctx context.Context, filter repository.BookSearchFilter) ([]model.Book, error) {
	return s.store.Books().List(ctx, filter)
}

func (s *bookService) AssignMissingNumbers(ctx context.Context) (int, error) {
	assigned := 0
	err := s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		books, err := tx.Books().ListWithoutNumber(ctx)
		if err != nil {
			return fmt.Errorf("list unnumbered books: %w", err)
		}
		for i := range books {
			number, err := s.nextBookNumber(ctx, tx)
			if err != nil {
				return err
			}
			books[i].BookNumber = &number
			if err := tx.Books().Update(ctx, &books[i]); err != nil {
				return fmt.Errorf("assign book number: %w", err)
			}
			assigned++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return assigned, nil
}

func (s *bookService) ImportCSV(ctx context.Context, r io.Reader) (*CSVImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := columnIndex(header)
	if _, ok := cols["title"]; !ok {
		return nil, fmt.Errorf("csv is missing required column %q", "title")
	}

	result := &CSVImportResult{}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		input := BookInput{
			Title:     field(record, cols, "title"),
			Author:    field(record, cols, "author"),
			Category1: field(record, cols, "category1"),
			Category2: field(record, cols, "category2"),
			Keywords:  field(record, cols, "keywords"),
			Location:  field(record, cols, "location"),
		}
		if input.Title == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: empty title", line))
			continue
		}

		// Same title+author means the book is already in the catalog.
		if _, err := s.store.Books().FindByTitleAndAuthor(ctx, input.Title, input.Author); err == nil {
			result.Skipped++
			continue
		} else if err != gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("check duplicate: %w", err)
		}

		if _, err := s.Create(ctx, input); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		result.Created++
	}

	slog.Info("book csv import finished",
		"created", result.Created, "skipped", result.Skipped, "errors", len(result.Errors))
	return result, nil
}

func (s *bookService) ExportCSV(ctx context.Context, w io.Writer) error {
	books, err := s.store.Books().List(ctx, repository.BookSearchFilter{})
	if err != nil {
		return fmt.Errorf("list books: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(append([]string{"book_number"}, append(csvHeader, "status")...)); err != nil {
		return err
	}
	for i := range books {
		b := &books[i]
		number := ""
		if b.BookNumber != nil {
			number = *b.BookNumber
		}
		row := []string{number, b.Title, b.Author, b.Category1, b.Category2, b.Keywords, b.Location, string(b.Status)}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func (s *bookService) invalidate(ctx context.Context, bookID uint) {
	_ = s.cache.Delete(ctx, fmt.Sprintf("%s%d", bookCacheKeyPrefix, bookID))
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return cols
}

func field(record []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
