package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"libcirc/internal/model"
)

// BookSearchFilter narrows book listings. Zero values mean "no filter".
type BookSearchFilter struct {
	Query     string // matched against title, author, categories and keywords
	Category1 string
	Status    model.BookStatus
}

// BookRepository defines book persistence operations.
type BookRepository interface {
	Create(ctx context.Context, book *model.Book) error
	Update(ctx context.Context, book *model.Book) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Book, error)
	// FindByIDForUpdate locks the book row for the duration of the enclosing
	// transaction. All lifecycle transitions go through this lock.
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Book, error)
	FindByTitleAndAuthor(ctx context.Context, title, author string) (*model.Book, error)
	List(ctx context.Context, filter BookSearchFilter) ([]model.Book, error)
	ListWithoutNumber(ctx context.Context) ([]model.Book, error)
	MaxBookNumber(ctx context.Context, yearPrefix string) (string, error)
}

type bookRepository struct {
	db *gorm.DB
}

// NewBookRepository creates a new book repository.
func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) Create(ctx context.Context, book *model.Book) error {
	return r.db.WithContext(ctx).Create(book).Error
}

func (r *bookRepository) Update(ctx context.Context, book *model.Book) error {
	return r.db.WithContext(ctx).Save(book).Error
}

func (r *bookRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.Book{}, id).Error
}

func (r *bookRepository) FindByID(ctx context.Context, id uint) (*model.Book, error) {
	var book model.Book
	if err := r.db.WithContext(ctx).First(&book, id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Book, error) {
	var book model.Book
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&book, id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) FindByTitleAndAuthor(ctx context.Context, title, author string) (*model.Book, error) {
	var book model.Book
	if err := r.db.WithContext(ctx).
		Where("title = ? AND author = ?", title, author).
		First(&book).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) List(ctx context.Context, filter BookSearchFilter) ([]model.Book, error) {
	q := r.db.WithContext(ctx).Model(&model.Book{}).Order("id")
	if filter.Query != "" {
		like := fmt.Sprintf("%%%s%%", filter.Query)
		q = q.Where(
			"title LIKE ? OR author LIKE ? OR category1 LIKE ? OR category2 LIKE ? OR keywords LIKE ?",
			like, like, like, like, like,
		)
	}
	if filter.Category1 != "" {
		q = q.Where("category1 = ?", filter.Category1)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	var books []model.Book
	if err := q.Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *bookRepository) ListWithoutNumber(ctx context.Context) ([]model.Book, error) {
	var books []model.Book
	if err := r.db.WithContext(ctx).Where("book_number IS NULL").Order("id").Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

// MaxBookNumber returns the highest assigned book number with the given
// prefix (e.g. "BO-2026-"), or "" if none exists yet.
func (r *bookRepository) MaxBookNumber(ctx context.Context, yearPrefix string) (string, error) {
	var book model.Book
	err := r.db.WithContext(ctx).
		Where("book_number LIKE ?", yearPrefix+"%").
		Order("book_number DESC").
		First(&book).Error
	if err == gorm.ErrRecordNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if book.BookNumber == nil {
		return "", nil
	}
	return *book.BookNumber, nil
}
