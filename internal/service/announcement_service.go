package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	liberr "libcirc/internal/errors"
	"libcirc/internal/model"
	"libcirc/internal/repository"
)

// AnnouncementInput carries the editable announcement fields.
type AnnouncementInput struct {
	Title    string
	Body     string
	Priority model.AnnouncementPriority
}

// AnnouncementService manages admin announcements shown to all users.
type AnnouncementService interface {
	Create(ctx context.Context, input AnnouncementInput, createdByID uint) (*model.Announcement, error)
	Update(ctx context.Context, id uint, input AnnouncementInput) (*model.Announcement, error)
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context) ([]model.Announcement, error)
}

type announcementService struct {
	store repository.Store
}

// NewAnnouncementService creates a new announcement service.
func NewAnnouncementService(store repository.Store) AnnouncementService {
	return &announcementService{store: store}
}

func (s *announcementService) Create(ctx context.Context, input AnnouncementInput, createdByID uint) (*model.Announcement, error) {
	priority := input.Priority
	if priority == "" {
		priority = model.AnnouncementPriorityNormal
	}
	announcement := &model.Announcement{
		Title:       input.Title,
		Body:        input.Body,
		Priority:    priority,
		CreatedByID: &createdByID,
	}
	if err := s.store.Announcements().Create(ctx, announcement); err != nil {
		return nil, fmt.Errorf("create announcement: %w", err)
	}
	return announcement, nil
}

func (s *announcementService) Update(ctx context.Context, id uint, input AnnouncementInput) (*model.Announcement, error) {
	announcement, err := s.store.Announcements().FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, liberr.ErrAnnouncementNotFound
		}
		return nil, fmt.Errorf("find announcement: %w", err)
	}

	announcement.Title = input.Title
	announcement.Body = input.Body
	if input.Priority != "" {
		announcement.Priority = input.Priority
	}
	if err := s.store.Announcements().Update(ctx, announcement); err != nil {
		return nil, fmt.Errorf("update announcement: %w", err)
	}
	return announcement, nil
}

func (s *announcementService) Delete(ctx context.Context, id uint) error {
	if _, err := s.store.Announcements().FindByID(ctx, id); err != nil {
		if err == gorm.ErrRecordNotFound {
			return liberr.ErrAnnouncementNotFound
		}
		return fmt.Errorf("find announcement: %w", err)
	}
	return s.store.Announcements().Delete(ctx, id)
}

func (s *announcementService) List(ctx context.Context) ([]model.Announcement, error) {
	return s.store.Announcements().List(ctx)
}
