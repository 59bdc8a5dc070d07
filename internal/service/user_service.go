package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	users "github.com/AdamBeresnev/post-battles/internal/user"
	"github.com/AdamBeresnev/post-battles/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/markbates/goth"
)

var guestID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

type UserService struct {
	base
	admins map[string]bool
}

// NewUserService promotes users whose email is in adminEmails to admin whenever they log in.
func NewUserService(db *sqlx.DB, adminEmails []string, opts ...Option) *UserService {
	admins := make(map[string]bool, len(adminEmails))
	for _, email := range adminEmails {
		admins[strings.ToLower(strings.TrimSpace(email))] = true
	}
	return &UserService{base: newBase(db, opts), admins: admins}
}

func (s *UserService) isAdminEmail(email string) bool {
	return email != "" && s.admins[strings.ToLower(email)]
}

func (s *UserService) FindOrCreateUserByProvider(ctx context.Context, gothUser goth.User) (*users.User, error) {
	user, err := s.stores.Users.GetUserByProvider(ctx, gothUser.Provider, gothUser.UserID)

	if err == nil {
		username := utils.FirstNonEmpty(gothUser.NickName, gothUser.Name, user.Username)
		if utils.OrZero(user.AvatarURL) != gothUser.AvatarURL || user.Username != username {
			user.AvatarURL = utils.StringOrNil(gothUser.AvatarURL)
			user.Username = username
			if err := s.stores.Users.UpdateUserNameAndAvatar(ctx, user); err != nil {
				s.logger.Warn("failed to refresh user profile", "user_id", user.ID, "error", err)
			}
		}
		return s.promote(ctx, user)
	}

	if errors.Is(err, sql.ErrNoRows) {
		newUser := &users.User{
			ID:         uuid.New(),
			Email:      gothUser.Email,
			Username:   utils.FirstNonEmpty(gothUser.NickName, gothUser.Name, gothUser.Email),
			Role:       users.RoleUser,
			CreatedAt:  s.now(),
			Provider:   utils.Ptr(gothUser.Provider),
			ProviderID: utils.Ptr(gothUser.UserID),
			AvatarURL:  utils.StringOrNil(gothUser.AvatarURL),
		}
		if err := s.stores.Users.CreateUser(ctx, newUser); err != nil {
			return nil, err
		}
		s.logger.Info("user registered", "user_id", newUser.ID, "provider", gothUser.Provider)
		return s.promote(ctx, newUser)
	}

	return nil, err
}

func (s *UserService) promote(ctx context.Context, user *users.User) (*users.User, error) {
	if user.IsAdmin() || !s.isAdminEmail(user.Email) {
		return user, nil
	}
	if err := s.stores.Users.SetRole(ctx, user.ID, users.RoleAdmin); err != nil {
		return nil, err
	}
	user.Role = users.RoleAdmin
	return user, nil
}

func (s *UserService) EnsureGuestUser(ctx context.Context) (*users.User, error) {
	user, err := s.stores.Users.GetUser(ctx, guestID)
	if err == nil {
		return user, nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		guestUser := &users.User{
			ID:        guestID,
			Email:     "guest@post-battles.local",
			Username:  "Guest User",
			Role:      users.RoleUser,
			CreatedAt: s.now(),
		}
		if err := s.stores.Users.CreateUser(ctx, guestUser); err != nil {
			return nil, err
		}
		return guestUser, nil
	}
	return nil, err
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*users.User, error) {
	user, err := s.stores.Users.GetUser(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return user, nil
}
