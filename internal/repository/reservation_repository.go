package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"libcirc/internal/model"
)

// ReservationRepository defines reservation persistence operations.
// Pending reservations for a book are ordered by (reservation_date, id)
// ascending; the id tie-break keeps the order strict under equal timestamps.
type ReservationRepository interface {
	Create(ctx context.Context, reservation *model.Reservation) error
	Update(ctx context.Context, reservation *model.Reservation) error
	FindByID(ctx context.Context, id uint) (*model.Reservation, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Reservation, error)
	// FindActiveByBookAndUser returns the user's pending or notified
	// reservation on the book, if one exists.
	FindActiveByBookAndUser(ctx context.Context, bookID, userID uint) (*model.Reservation, error)
	// FirstPendingForUpdate returns the head of the book's queue, locked.
	FirstPendingForUpdate(ctx context.Context, bookID uint) (*model.Reservation, error)
	CountActiveByUser(ctx context.Context, userID uint) (int64, error)
	// CountPendingBefore counts pending reservations on the same book that
	// sort strictly earlier than the given one.
	CountPendingBefore(ctx context.Context, reservation *model.Reservation) (int64, error)
	CountPendingByBook(ctx context.Context, bookID uint) (int64, error)
	ListPendingByBook(ctx context.Context, bookID uint) ([]model.Reservation, error)
	ListByUser(ctx context.Context, userID uint) ([]model.Reservation, error)
	// ListStaleNotified returns notified reservations whose notification was
	// sent before the cutoff.
	ListStaleNotified(ctx context.Context, cutoff time.Time) ([]model.Reservation, error)
}

type reservationRepository struct {
	db *gorm.DB
}

// NewReservationRepository creates a new reservation repository.
func NewReservationRepository(db *gorm.DB) ReservationRepository {
	return &reservationRepository{db: db}
}

func (r *reservationRepository) Create(ctx context.Context, reservation *model.Reservation) error {
	return r.db.WithContext(ctx).Create(reservation).Error
}

func (r *reservationRepository) Update(ctx context.Context, reservation *model.Reservation) error {
	return r.db.WithContext(ctx).Save(reservation).Error
}

func (r *reservationRepository) FindByID(ctx context.Context, id uint) (*model.Reservation, error) {
	var reservation model.Reservation
	if err := r.db.WithContext(ctx).First(&reservation, id).Error; err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *reservationRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Reservation, error) {
	var reservation model.Reservation
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&reservation, id).Error; err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *reservationRepository) FindActiveByBookAndUser(ctx context.Context, bookID, userID uint) (*model.Reservation, error) {
	var reservation model.Reservation
	if err := r.db.WithContext(ctx).
		Where("book_id = ? AND user_id = ? AND status IN ?",
			bookID, userID,
			[]model.ReservationStatus{model.ReservationStatusPending, model.ReservationStatusNotified}).
		First(&reservation).Error; err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *reservationRepository) FirstPendingForUpdate(ctx context.Context, bookID uint) (*model.Reservation, error) {
	var reservation model.Reservation
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("book_id = ? AND status = ?", bookID, model.ReservationStatusPending).
		Order("reservation_date, id").
		First(&reservation).Error; err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *reservationRepository) CountActiveByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Reservation{}).
		Where("user_id = ? AND status IN ?", userID,
			[]model.ReservationStatus{model.ReservationStatusPending, model.ReservationStatusNotified}).
		Count(&count).Error
	return count, err
}

func (r *reservationRepository) CountPendingBefore(ctx context.Context, reservation *model.Reservation) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Reservation{}).
		Where("book_id = ? AND status = ?", reservation.BookID, model.ReservationStatusPending).
		Where("reservation_date < ? OR (reservation_date = ? AND id < ?)",
			reservation.ReservationDate, reservation.ReservationDate, reservation.ID).
		Count(&count).Error
	return count, err
}

func (r *reservationRepository) CountPendingByBook(ctx context.Context, bookID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Reservation{}).
		Where("book_id = ? AND status = ?", bookID, model.ReservationStatusPending).
		Count(&count).Error
	return count, err
}

func (r *reservationRepository) ListPendingByBook(ctx context.Context, bookID uint) ([]model.Reservation, error) {
	var reservations []model.Reservation
	if err := r.db.WithContext(ctx).
		Where("book_id = ? AND status = ?", bookID, model.ReservationStatusPending).
		Order("reservation_date, id").
		Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

func (r *reservationRepository) ListByUser(ctx context.Context, userID uint) ([]model.Reservation, error) {
	var reservations []model.Reservation
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("reservation_date DESC").
		Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

func (r *reservationRepository) ListStaleNotified(ctx context.Context, cutoff time.Time) ([]model.Reservation, error) {
	var reservations []model.Reservation
	if err := r.db.WithContext(ctx).
		Where("status = ? AND notification_sent_at < ?", model.ReservationStatusNotified, cutoff).
		Order("notification_sent_at").
		Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}
