package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store bundles all repositories behind one handle so a lifecycle transition
// (e.g. return a loan, promote the next reservation, flip the book status)
// can touch several entities inside a single transaction.
type Store interface {
	Users() UserRepository
	Books() BookRepository
	Loans() LoanRepository
	Reservations() ReservationRepository
	OperationLogs() OperationLogRepository
	Announcements() AnnouncementRepository

	// WithTransaction runs fn inside a database transaction; the Store passed
	// to fn is scoped to that transaction. Returning an error rolls back.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore creates a GORM-backed Store.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Users() UserRepository                 { return &userRepository{db: s.db} }
func (s *gormStore) Books() BookRepository                 { return &bookRepository{db: s.db} }
func (s *gormStore) Loans() LoanRepository                 { return &loanRepository{db: s.db} }
func (s *gormStore) Reservations() ReservationRepository   { return &reservationRepository{db: s.db} }
func (s *gormStore) OperationLogs() OperationLogRepository { return &operationLogRepository{db: s.db} }
func (s *gormStore) Announcements() AnnouncementRepository {
	return &announcementRepository{db: s.db}
}

func (s *gormStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &gormStore{db: tx})
	})
}
