// Package users registers users. There are no credentials; identity is
// asserted by the caller.
package users

import (
	"context"
	"log/slog"
	"strings"

	"sprintboard/internal/apperr"
	"sprintboard/internal/clock"
	"sprintboard/internal/models"
	"sprintboard/internal/storage"
)

type Registration struct {
	Username string
	Email    string
	FullName string
}

type Service struct {
	repo   storage.Repository
	clock  clock.Clock
	logger *slog.Logger
}

func NewService(repo storage.Repository, clk clock.Clock, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, clock: clock.OrSystem(clk), logger: logger}
}

// Register creates a user. Username and email must both be unused.
func (s *Service) Register(ctx context.Context, in Registration) (models.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if username == "" {
		return models.User{}, apperr.Validationf("username is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return models.User{}, apperr.Validationf("a valid email is required")
	}

	var user models.User
	err := s.repo.InTx(ctx, func(repo storage.Repository) error {
		taken, err := repo.UsernameTaken(ctx, username)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflictf("username %q is already taken", username)
		}
		taken, err = repo.EmailTaken(ctx, email)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflictf("email %q is already registered", email)
		}

		user = models.User{
			Username:  username,
			Email:     email,
			FullName:  strings.TrimSpace(in.FullName),
			CreatedAt: s.clock.Now(),
		}
		return repo.CreateUser(ctx, &user)
	})
	if err != nil {
		return models.User{}, err
	}

	s.logger.Info("user registered", slog.Int64("user_id", user.ID), slog.String("username", user.Username))
	return user, nil
}

func (s *Service) Get(ctx context.Context, id int64) (models.User, error) {
	return s.repo.GetUser(ctx, id)
}
