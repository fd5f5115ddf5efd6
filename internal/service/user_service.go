package service

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	liberr "libcirc/internal/errors"
	"libcirc/internal/model"
	"libcirc/internal/repository"
)

// CreateUserInput carries the fields for registering a user.
type CreateUserInput struct {
	Username     string
	Password     string
	Name         string
	Email        string
	IsAdmin      bool
	MaxLoanLimit int
}

// UpdateUserInput carries the mutable user fields; nil means leave unchanged.
type UpdateUserInput struct {
	Password     *string
	Name         *string
	Email        *string
	IsAdmin      *bool
	MaxLoanLimit *int
}

// UserService manages user accounts.
type UserService interface {
	Create(ctx context.Context, input CreateUserInput) (*model.User, error)
	Update(ctx context.Context, userID uint, input UpdateUserInput) (*model.User, error)
	Delete(ctx context.Context, userID uint) error
	Get(ctx context.Context, userID uint) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
}

type userService struct {
	store repository.Store
}

// NewUserService creates a new user account service.
func NewUserService(store repository.Store) UserService {
	return &userService{store: store}
}

func (s *userService) Create(ctx context.Context, input CreateUserInput) (*model.User, error) {
	if _, err := s.store.Users().FindByUsername(ctx, input.Username); err == nil {
		return nil, liberr.ErrDuplicateUsername
	} else if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if _, err := s.store.Users().FindByEmail(ctx, input.Email); err == nil {
		return nil, liberr.ErrDuplicateEmail
	} else if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	limit := input.MaxLoanLimit
	if limit <= 0 {
		limit = model.DefaultMaxLoanLimit
	}

	user := &model.User{
		Username:     input.Username,
		PasswordHash: string(hash),
		Name:         input.Name,
		Email:        input.Email,
		IsAdmin:      input.IsAdmin,
		MaxLoanLimit: limit,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *userService) Update(ctx context.Context, userID uint, input UpdateUserInput) (*model.User, error) {
	user, err := s.store.Users().FindByID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, liberr.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if input.Email != nil && *input.Email != user.Email {
		if existing, err := s.store.Users().FindByEmail(ctx, *input.Email); err == nil && existing.ID != userID {
			return nil, liberr.ErrDuplicateEmail
		} else if err != nil && err != gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("check email: %w", err)
		}
		user.Email = *input.Email
		// Cached Slack ID belongs to the old address.
		user.SlackUserID = ""
	}
	if input.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}
	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.IsAdmin != nil {
		user.IsAdmin = *input.IsAdmin
	}
	if input.MaxLoanLimit != nil && *input.MaxLoanLimit > 0 {
		user.MaxLoanLimit = *input.MaxLoanLimit
	}

	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

func (s *userService) Delete(ctx context.Context, userID uint) error {
	return s.store.WithTransaction(ctx, func(ctx context.Context, tx repository.Store) error {
		if _, err := tx.Users().FindByID(ctx, userID); err != nil {
			if err == gorm.ErrRecordNotFound {
				return liberr.ErrUserNotFound
			}
			return fmt.Errorf("find user: %w", err)
		}

		open, err := tx.Loans().CountOpenByBorrower(ctx, userID)
		if err != nil {
			return fmt.Errorf("count open loans: %w", err)
		}
		if open > 0 {
			return liberr.ErrUserHasOpenLoans
		}

		// History keeps the closed loans but drops the borrower link.
		if err := tx.Loans().DetachBorrower(ctx, userID); err != nil {
			return fmt.Errorf("detach loan history: %w", err)
		}
		if err := tx.Users().Delete(ctx, userID); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
}

func (s *userService) Get(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.store.Users().FindByID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, liberr.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *userService) List(ctx context.Context) ([]model.User, error) {
	return s.store.Users().List(ctx)
}
