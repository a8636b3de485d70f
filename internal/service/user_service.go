package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

var ErrUserNotFound = errors.New("user not found")

// UserService resolves verified identities to user records and owns
// profile and account lifecycle.
type UserService interface {
	// EnsureUser finds the user for a verified subject id, creating the
	// record on first sight. Exactly one record exists per subject id.
	EnsureUser(ctx context.Context, authID, email, name string) (*model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
	UpdateUsername(ctx context.Context, id, username string) (*model.User, error)
	// DeleteAccount removes the user and, by cascade, their conversations
	// and usage counters.
	DeleteAccount(ctx context.Context, id string) error
	ListUsers(ctx context.Context) ([]model.User, error)
	CountUsers(ctx context.Context) (int, error)
}

type userService struct {
	userRepo  repository.UserRepository
	usageRepo repository.UsageRepository
	logger    zerolog.Logger
}

func NewUserService(userRepo repository.UserRepository, usageRepo repository.UsageRepository, logger zerolog.Logger) UserService {
	return &userService{
		userRepo:  userRepo,
		usageRepo: usageRepo,
		logger:    logger.With().Str("service", "UserService").Logger(),
	}
}

func usernameFromEmail(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return fmt.Sprintf("user_%d", time.Now().Unix())
}

func (s *userService) EnsureUser(ctx context.Context, authID, email, name string) (*model.User, error) {
	user, err := s.userRepo.GetUserByAuthID(ctx, authID)
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if user == nil {
		username := name
		if username == "" {
			username = usernameFromEmail(email)
		}
		user = &model.User{
			AuthID:   authID,
			Email:    email,
			Username: username,
			Role:     model.RoleUser,
		}
		if err := s.userRepo.CreateUser(ctx, user); err != nil {
			// A concurrent request may have created the record first;
			// re-read before giving up.
			existing, lookupErr := s.userRepo.GetUserByAuthID(ctx, authID)
			if lookupErr != nil || existing == nil {
				return nil, fmt.Errorf("creating user: %w", err)
			}
			user = existing
		} else {
			s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("New user created")
		}
	}

	// Every user carries one usage entry per known model; new models are
	// backfilled here on each resolution.
	if err := s.usageRepo.EnsureEntries(ctx, user.ID, model.KnownModels()); err != nil {
		return nil, fmt.Errorf("backfilling usage entries: %w", err)
	}
	entries, err := s.usageRepo.ListEntries(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("loading usage entries: %w", err)
	}
	user.Usage = entries

	return user, nil
}

func (s *userService) Get(ctx context.Context, id string) (*model.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	entries, err := s.usageRepo.ListEntries(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading usage entries: %w", err)
	}
	user.Usage = entries
	return user, nil
}

func (s *userService) UpdateUsername(ctx context.Context, id, username string) (*model.User, error) {
	user, err := s.userRepo.UpdateUsername(ctx, id, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("updating username: %w", err)
	}
	return user, nil
}

func (s *userService) DeleteAccount(ctx context.Context, id string) error {
	if err := s.userRepo.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error().Err(err).Str("user_id", id).Msg("Failed to delete account")
		return fmt.Errorf("deleting account: %w", err)
	}
	return nil
}

func (s *userService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.userRepo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

func (s *userService) CountUsers(ctx context.Context) (int, error) {
	count, err := s.userRepo.CountUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return count, nil
}
