package repository

import (
	"context"

	"gorm.io/gorm"

	"libcirc/internal/model"
)

// OperationLogRepository defines audit log persistence operations.
type OperationLogRepository interface {
	Create(ctx context.Context, log *model.OperationLog) error
	ListRecent(ctx context.Context, limit int) ([]model.OperationLog, error)
}

type operationLogRepository struct {
	db *gorm.DB
}

// NewOperationLogRepository creates a new operation log repository.
func NewOperationLogRepository(db *gorm.DB) OperationLogRepository {
	return &operationLogRepository{db: db}
}

func (r *operationLogRepository) Create(ctx context.Context, log *model.OperationLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *operationLogRepository) ListRecent(ctx context.Context, limit int) ([]model.OperationLog, error) {
	if limit <= 0 {
		limit = 100
	}
	var logs []model.OperationLog
	if err := r.db.WithContext(ctx).Order("timestamp DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
