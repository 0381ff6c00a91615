package usecase

import (
	"context"
	"io"

	repo "github.com/example/contacts-api/internal/adapters/postgres"
	avatars "github.com/example/contacts-api/internal/adapters/s3"
	"github.com/example/contacts-api/internal/domain"
	pkglog "github.com/example/contacts-api/pkg/log"
)

type UserService interface {
	UpdateAvatar(ctx context.Context, user *domain.User, filename, contentType string, body io.Reader) (*domain.User, error)
}

type userService struct {
	users   repo.UserRepository
	storage avatars.AvatarStorage
	store   RevocationStore
	logger  pkglog.Logger
}

func NewUserService(users repo.UserRepository, storage avatars.AvatarStorage, store RevocationStore, logger pkglog.Logger) UserService {
	return &userService{users: users, storage: storage, store: store, logger: logger}
}

func (s *userService) UpdateAvatar(ctx context.Context, user *domain.User, filename, contentType string, body io.Reader) (*domain.User, error) {
	url, err := s.storage.Upload(ctx, user.ID, filename, contentType, body)
	if err != nil {
		return nil, err
	}
	updated, err := s.users.UpdateAvatar(ctx, user.Email, url)
	if err != nil {
		return nil, err
	}
	if s.store != nil {
		if err := s.store.DropUser(ctx, user.Email); err != nil {
			s.logger.Warn().Err(err).Msg("user cache drop failed")
		}
	}
	return updated, nil
}
