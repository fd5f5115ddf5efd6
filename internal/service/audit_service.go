package service

import (
	"context"
	"log/slog"

	"libcirc/internal/clock"
	"libcirc/internal/model"
	"libcirc/internal/repository"
)

// AuditService records who did what. Recording is best effort: an audit
// failure is logged but never fails the operation it describes.
type AuditService interface {
	Record(ctx context.Context, userID *uint, action, target, details, ipAddress string)
	ListRecent(ctx context.Context, limit int) ([]model.OperationLog, error)
}

type auditService struct {
	store repository.Store
	clock clock.Clock
}

// NewAuditService creates a new audit trail service.
func NewAuditService(store repository.Store, clk clock.Clock) AuditService {
	return &auditService{store: store, clock: clk}
}

func (s *auditService) Record(ctx context.Context, userID *uint, action, target, details, ipAddress string) {
	entry := &model.OperationLog{
		Timestamp: s.clock.Now(),
		UserID:    userID,
		Action:    action,
		Target:    target,
		Details:   details,
		IPAddress: ipAddress,
	}
	if err := s.store.OperationLogs().Create(ctx, entry); err != nil {
		slog.Error("failed to record operation log", "action", action, "target", target, "error", err)
	}
}

func (s *auditService) ListRecent(ctx context.Context, limit int) ([]model.OperationLog, error) {
	return s.store.OperationLogs().ListRecent(ctx, limit)
}
